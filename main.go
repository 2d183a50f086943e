// Command cvbridge converts and inspects images through the cv binding.
//
// Usage:
//
//	cvbridge gray <in> <out>
//	cvbridge run <pipeline.yaml> <in> <out>
//	cvbridge info <in>
//	cvbridge history [-n N] [--prune AGE]
//	cvbridge version
//
// Configuration comes from CVBRIDGE_* variables, optionally in a .env file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cvbridge/core"
	"cvbridge/cv"
	"cvbridge/cvmod"
	"cvbridge/fakecv"
	"cvbridge/gocvmod"
	"cvbridge/history"
	"cvbridge/logging"
)

// errUsage marks command-line mistakes, reported with exit code 2.
var errUsage = errors.New("usage")

func main() {
	// A missing .env is normal; a malformed one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return core.ExitCodeSuccess
	}

	errColor := color.New(color.FgRed, color.Bold)
	errColor.Fprintf(stderr, "Error: %v\n", err)
	switch {
	case errors.Is(err, errUsage), cmd == root:
		fmt.Fprintf(stderr, "Usage: %s\n", cmd.UseLine())
		return core.ExitCodeUsage
	case errors.Is(err, context.Canceled):
		return core.ExitCodeSIGINT
	default:
		return core.ExitCodeError
	}
}

// app holds what a command needs.
type app struct {
	cfg     *core.Config
	logger  *logging.Logger
	rt      *cv.Runtime
	history *history.Store
	stdout  io.Writer
	stderr  io.Writer
}

// needs selects the parts of app a command uses.
type needs struct {
	runtime bool
	history bool
}

// newApp loads configuration and builds a logger plus whatever n asks for.
// The history store is opened whenever it is configured; commands that do
// not need it keep working when it fails to open.
func newApp(n needs, stdout, stderr io.Writer) (*app, error) {
	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLoggerWithConfig(logging.Config{
		Development: cfg.DevMode,
		Level:       cfg.LogLevel,
		FilePath:    cfg.LogFile,
		File:        logging.DefaultFileWriterConfig(),
		Console:     consoleSink(stderr),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr}

	if n.runtime {
		mod, err := newModule(cfg.Backend)
		if err != nil {
			a.close()
			return nil, err
		}
		a.rt, err = cv.NewRuntime(mod, cv.WithLogger(logger.Zap().Named("cv")))
		if err != nil {
			a.close()
			return nil, err
		}
		logger.Debug("Image module ready", zap.String("backend", mod.Name()))
	}

	switch {
	case cfg.HistoryDB != "":
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			if n.history {
				a.close()
				return nil, err
			}
			logger.Warn("History disabled", zap.String("path", cfg.HistoryDB), zap.Error(err))
			break
		}
		a.history = store
	case n.history:
		a.close()
		return nil, core.ErrMissingConfig(core.EnvPrefix + "HISTORY_DB")
	}
	return a, nil
}

// newModule constructs the foreign module named by backend.
func newModule(backend string) (cvmod.Module, error) {
	switch backend {
	case core.BackendFake:
		return fakecv.New(), nil
	default:
		return gocvmod.New()
	}
}

// consoleSink returns a WriteSyncer for w, or nil to let the logger use stderr.
func consoleSink(w io.Writer) zapcore.WriteSyncer {
	if f, ok := w.(*os.File); ok && f == os.Stderr {
		return nil
	}
	return zapcore.AddSync(w)
}

func (a *app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("Failed to close history", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
