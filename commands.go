package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cvbridge/core"
	"cvbridge/cv"
	"cvbridge/history"
	"cvbridge/imgproc"
	"cvbridge/logging"
	"cvbridge/pipeline"
	"cvbridge/vision"
)

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "cvbridge",
		Short:         "Convert and inspect images through the cv binding",
		Version:       core.GetVersionInfo(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	root.AddCommand(
		&cobra.Command{
			Use:   "gray <in> <out>",
			Short: "Convert an image to grayscale",
			Args:  exactArgs(2),
			RunE:  action(needs{runtime: true}, grayCommand),
		},
		&cobra.Command{
			Use:   "run <pipeline.yaml> <in> <out>",
			Short: "Apply a YAML pipeline to an image",
			Long: `Apply the steps of a YAML pipeline to an image and save the result.

Available ops: ` + strings.Join(pipeline.Ops(), ", ") + ".",
			Args: exactArgs(3),
			RunE: action(needs{runtime: true}, runCommand),
		},
		&cobra.Command{
			Use:   "info <in>",
			Short: "Describe an image",
			Args:  exactArgs(1),
			RunE:  action(needs{runtime: true}, infoCommand),
		},
		newHistoryCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  exactArgs(0),
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "cvbridge %s\n", core.GetVersionInfo())
			},
		},
	)
	return root
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	check := cobra.ExactArgs(n)
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return nil
	}
}

// action builds the app a command needs, runs fn and logs its failure.
func action(n needs, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(n, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.close()

		err = fn(cmd.Context(), a, args)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			a.logger.Warn("Interrupted", zap.String("command", cmd.Name()))
		default:
			a.logger.Error("Command failed", zap.String("command", cmd.Name()), zap.Error(err))
		}
		return err
	}
}

// transform turns the decoded source into the image to save. Buffers it
// creates besides the result belong in scope.
type transform func(scope *cv.Scope, src *cv.Mat) (*cv.Mat, error)

func grayCommand(ctx context.Context, a *app, args []string) error {
	in, out := args[0], args[1]

	return a.record(ctx, "gray", in, out, func(run *history.Run) error {
		return a.convertFile(in, out, run, func(scope *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
			gray, err := imgproc.CvtColor(src, a.rt.Code(cv.ColorRGBA2Gray))
			if err != nil {
				return nil, err
			}
			scope.Track(gray)
			return imgproc.CvtColor(gray, a.rt.Code(cv.ColorGray2RGBA))
		})
	})
}

func runCommand(ctx context.Context, a *app, args []string) error {
	file, in, out := args[0], args[1], args[2]

	if err := core.CheckFileExists(file); err != nil {
		return err
	}
	p, err := pipeline.Load(file)
	if err != nil {
		return err
	}
	name := p.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}
	a.logger.Info("Pipeline loaded", zap.String("name", name), zap.Int("steps", len(p.Steps)))

	return a.record(ctx, "run "+name, in, out, func(run *history.Run) error {
		return a.convertFile(in, out, run, func(_ *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
			return p.Run(ctx, src)
		})
	})
}

// convertFile decodes in, applies fn and writes the result to out.
func (a *app) convertFile(in, out string, run *history.Run, fn transform) error {
	if err := core.CheckFileExists(in); err != nil {
		return err
	}
	if err := core.CheckOutputPath(out); err != nil {
		return err
	}
	img, err := vision.LoadFile(in)
	if err != nil {
		return err
	}
	img = vision.FitWithin(img, a.cfg.MaxSide)

	scope := a.rt.NewScope()
	defer scope.Close()

	src, err := a.rt.FromImageData(img)
	if err != nil {
		return err
	}
	scope.Track(src)

	dst, err := fn(scope, src)
	if err != nil {
		return err
	}
	scope.Track(dst)

	run.Width, run.Height, run.Channels = dst.Cols(), dst.Rows(), dst.Channels()
	rgba, err := dst.ToImageData()
	if err != nil {
		return err
	}
	if err := vision.SaveFile(out, rgba, a.cfg.JPEGQuality); err != nil {
		return err
	}

	a.logger.Info("Image written", zap.String("output", out), logging.ImageField("result", imageInfo(dst)))
	color.New(color.FgGreen).Fprintf(a.stdout, "Wrote %s (%dx%d)\n", out, dst.Cols(), dst.Rows())
	return nil
}

func infoCommand(ctx context.Context, a *app, args []string) error {
	in := args[0]

	return a.record(ctx, "info", in, "", func(run *history.Run) error {
		if err := core.CheckFileExists(in); err != nil {
			return err
		}
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		img, format, err := vision.DecodeImage(data)
		if err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}

		m, err := a.rt.FromImage(img)
		if err != nil {
			return err
		}
		defer a.rt.SafeRelease(m)

		means, err := channelMeans(m)
		if err != nil {
			return err
		}
		run.Width, run.Height, run.Channels = m.Cols(), m.Rows(), m.Channels()

		w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "File:\t%s\n", in)
		fmt.Fprintf(w, "Format:\t%s\n", format)
		fmt.Fprintf(w, "File size:\t%s\n", humanize.Bytes(uint64(len(data))))
		fmt.Fprintf(w, "Dimensions:\t%dx%d\n", m.Cols(), m.Rows())
		fmt.Fprintf(w, "Buffer:\t%s, %s\n", m.Type(), humanize.IBytes(uint64(m.Total()*m.ElemSize())))
		fmt.Fprintf(w, "Channel means:\t%s\n", formatMeans(means))
		return w.Flush()
	})
}

// channelMeans averages each channel of m.
func channelMeans(m *cv.Mat) ([]float64, error) {
	values, err := m.Values()
	if err != nil {
		return nil, err
	}
	ch := m.Channels()
	sums := make([]float64, ch)
	for i, v := range values {
		sums[i%ch] += v
	}
	if n := len(values) / ch; n > 0 {
		for i := range sums {
			sums[i] /= float64(n)
		}
	}
	return sums, nil
}

func formatMeans(means []float64) string {
	parts := make([]string, len(means))
	for i, v := range means {
		parts[i] = fmt.Sprintf("%.1f", v)
	}
	return strings.Join(parts, " ")
}

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		prune time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Args:  exactArgs(0),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "number of runs to list")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete runs older than this age first")
	cmd.RunE = action(needs{history: true}, func(ctx context.Context, a *app, _ []string) error {
		if limit <= 0 {
			return fmt.Errorf("%w: --limit must be positive", errUsage)
		}
		return historyCommand(ctx, a, limit, prune)
	})
	return cmd
}

func historyCommand(ctx context.Context, a *app, limit int, prune time.Duration) error {
	if prune > 0 {
		n, err := a.history.Prune(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		a.logger.Info("Pruned history", zap.Int64("deleted", n), zap.Duration("older_than", prune))
		fmt.Fprintf(a.stdout, "Pruned %d run(s)\n", n)
	}

	runs, err := a.history.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.stdout, "No runs recorded")
		return nil
	}

	ok := color.New(color.FgGreen)
	failed := color.New(color.FgRed)
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tCOMMAND\tINPUT\tOUTPUT\tSIZE\tTIME\tSTATUS")
	for _, r := range runs {
		size := "-"
		if r.Width > 0 {
			size = fmt.Sprintf("%dx%dx%d", r.Width, r.Height, r.Channels)
		}
		status := ok.Sprint(r.Status)
		if r.Status == history.StatusError {
			status = failed.Sprintf("%s: %s", r.Status, r.Error)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%dms\t%s\n",
			humanize.Time(r.CreatedAt), r.Command, orDash(r.Input), orDash(r.Output), size, r.DurationMS, status)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// record runs fn and stores the outcome in the history ledger when one is
// open. Ledger failures are logged and never fail the command.
func (a *app) record(ctx context.Context, name, in, out string, fn func(run *history.Run) error) error {
	start := time.Now()
	run := history.Run{Command: name, Input: in, Output: out}
	err := fn(&run)
	end := time.Now()

	run.DurationMS = end.Sub(start).Milliseconds()
	run.Status = history.StatusSuccess
	if err != nil {
		run.Status = history.StatusError
		run.Error = err.Error()
	}
	a.logger.Debug("Command finished", append(logging.TimingFields(start, end), zap.String("command", name))...)

	if a.history != nil {
		// Record even when ctx was cancelled so interrupted runs are kept.
		if _, recErr := a.history.Record(context.WithoutCancel(ctx), run); recErr != nil {
			a.logger.Warn("Failed to record run", zap.String("command", name), zap.Error(recErr))
		}
	}
	return err
}

func imageInfo(m *cv.Mat) logging.ImageInfo {
	return logging.ImageInfo{Width: m.Cols(), Height: m.Rows(), Channels: m.Channels(), Type: m.Type().String()}
}
