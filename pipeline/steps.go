package pipeline

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"cvbridge/cv"
	"cvbridge/cvmod"
	"cvbridge/imgproc"
)

type stageFunc func(scope *cv.Scope, src *cv.Mat) (*cv.Mat, error)

type stage struct {
	op  string
	run stageFunc
}

type builder func(params *yaml.Node) (stageFunc, error)

var builders = map[string]builder{
	"cvtColor":          buildCvtColor,
	"resize":            buildResize,
	"threshold":         buildThreshold,
	"adaptiveThreshold": buildAdaptiveThreshold,
	"gaussianBlur":      buildGaussianBlur,
	"medianBlur":        buildMedianBlur,
	"bilateralFilter":   buildBilateralFilter,
	"canny":             buildCanny,
	"dilate":            buildMorph(imgproc.Dilate),
	"erode":             buildMorph(imgproc.Erode),
	"morphologyEx":      buildMorphologyEx,
	"convert":           buildConvert,
}

// Ops returns the supported operation names, sorted.
func Ops() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Step) compile() (stage, error) {
	b, ok := builders[s.Op]
	if !ok {
		return stage{}, fmt.Errorf("%w %q (expected one of %s)", ErrUnknownOp, s.Op, strings.Join(Ops(), ", "))
	}
	run, err := b(&s.Params)
	if err != nil {
		return stage{}, err
	}
	return stage{op: s.Op, run: run}, nil
}

// decode fills out from a params node, rejecting unknown keys. A missing
// params block leaves out untouched.
func decode(node *yaml.Node, out any) error {
	if node.Kind == 0 {
		return nil
	}
	raw, err := yaml.Marshal(node)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidParams}, args...)...)
}

// optional resolves name in table, leaving empty names for the default.
func optional(table cv.ConstantTable, name string) (cv.Const, error) {
	if name == "" {
		return "", nil
	}
	return table.Find(name)
}

// Size is a kernel size written either as a single number or as
// [width, height].
type Size cvmod.Size

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var n int
		if err := node.Decode(&n); err != nil {
			return err
		}
		*s = Size{Width: n, Height: n}
		return nil
	case yaml.SequenceNode:
		var wh []int
		if err := node.Decode(&wh); err != nil {
			return err
		}
		if len(wh) != 2 {
			return fmt.Errorf("size needs [width, height], got %d values", len(wh))
		}
		*s = Size{Width: wh[0], Height: wh[1]}
		return nil
	}
	return fmt.Errorf("size must be a number or [width, height] at line %d", node.Line)
}

func (s Size) positive() bool { return s.Width > 0 && s.Height > 0 }

func (s Size) odd() bool { return s.positive() && s.Width%2 == 1 && s.Height%2 == 1 }

func buildCvtColor(node *yaml.Node) (stageFunc, error) {
	var p struct {
		Code string `yaml:"code"`
	}
	if err := decode(node, &p); err != nil {
		return nil, err
	}
	if p.Code == "" {
		return nil, invalid("code is required")
	}
	code, err := cv.ColorConversion.Find(p.Code)
	if err != nil {
		return nil, err
	}
	return func(_ *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
		return imgproc.CvtColor(src, src.Runtime().Code(code))
	}, nil
}

func buildResize(node *yaml.Node) (stageFunc, error) {
	var p struct {
		Width         int     `yaml:"width"`
		Height        int     `yaml:"height"`
		Fx            float64 `yaml:"fx"`
		Fy            float64 `yaml:"fy"`
		Interpolation string  `yaml:"interpolation"`
	}
	if err := decode(node, &p); err != nil {
		return nil, err
	}
	scaled := p.Fx > 0 && p.Fy > 0
	if !scaled && (p.Width <= 0 || p.Height <= 0) {
		return nil, invalid("resize needs width and height or positive fx and fy")
	}
	interp, err := optional(cv.Interpolation, p.Interpolation)
	if err != nil {
		return nil, err
	}
	opts := imgproc.ResizeOptions{Width: p.Width, Height: p.Height, Fx: p.Fx, Fy: p.Fy, Interpolation: interp}
	return func(_ *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
		return imgproc.Resize(src, opts)
	}, nil
}

func buildThreshold(node *yaml.Node) (stageFunc, error) {
	var p struct {
		Thresh float64  `yaml:"thresh"`
		MaxVal float64  `yaml:"maxval"`
		Type   string   `yaml:"type"`
		Flags  []string `yaml:"flags"`
	}
	if err := decode(node, &p); err != nil {
		return nil, err
	}
	typ, err := optional(cv.Threshold, p.Type)
	if err != nil {
		return nil, err
	}
	opts := imgproc.ThresholdOptions{Thresh: p.Thresh, MaxVal: p.MaxVal, Type: typ}
	for _, f := range p.Flags {
		c, err := cv.Threshold.Find(f)
		if err != nil {
			return nil, err
		}
		opts.ExtraFlags = append(opts.ExtraFlags, c)
	}
	return func(_ *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
		dst, _, err := imgproc.Threshold(src, opts)
		return dst, err
	}, nil
}

func buildAdaptiveThreshold(node *yaml.Node) (stageFunc, error) {
	var p struct {
		MaxValue  float64 `yaml:"maxValue"`
		Method    string  `yaml:"method"`
		Type      string  `yaml:"type"`
		BlockSize int     `yaml:"blockSize"`
		C         float64 `yaml:"c"`
	}
	if err := decode(node, &p); err != nil {
		return nil, err
	}
	if p.BlockSize < 3 || p.BlockSize%2 == 0 {
		return nil, invalid("blockSize must be odd and at least 3, got %d", p.BlockSize)
	}
	method, err := optional(cv.AdaptiveMethod, p.Method)
	if err != nil {
		return nil, err
	}
	typ, err := optional(cv.Threshold, p.Type)
	if err != nil {
		return nil, err
	}
	return func(_ *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
		return imgproc.AdaptiveThreshold(src, p.MaxValue, method, typ, p.BlockSize, p.C)
	}, nil
}

func buildGaussianBlur(node *yaml.Node) (stageFunc, error) {
	var p struct {
		KSize  Size    `yaml:"ksize"`
		SigmaX float64 `yaml:"sigmaX"`
		SigmaY float64 `yaml:"sigmaY"`
		Border string  `yaml:"border"`
	}
	if err := decode(node, &p); err != nil {
		return nil, err
	}
	if !p.KSize.odd() {
		return nil, invalid("ksize must be odd and positive, got %dx%d", p.KSize.Width, p.KSize.Height)
	}
	border, err := optional(cv.Border, p.Border)
	if err != nil {
		return nil, err
	}
	opts := imgproc.GaussianBlurOptions{KSize: cvmod.Size(p.KSize), SigmaX: p.SigmaX, SigmaY: p.SigmaY, BorderType: border}
	return func(_ *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
		return imgproc.GaussianBlur(src, opts)
	}, nil
}

func buildMedianBlur(node *yaml.Node) (stageFunc, error) {
	var p struct {
		KSize int `yaml:"ksize"`
	}
	if err := decode(node, &p); err != nil {
		return nil, err
	}
	if p.KSize < 3 || p.KSize%2 == 0 {
		return nil, invalid("ksize must be odd and at least 3, got %d", p.KSize)
	}
	return func(_ *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
		return imgproc.MedianBlur(src, p.KSize)
	}, nil
}

func buildBilateralFilter(node *yaml.Node) (stageFunc, error) {
	var p struct {
		D          int     `yaml:"d"`
		SigmaColor float64 `yaml:"sigmaColor"`
		SigmaSpace float64 `yaml:"sigmaSpace"`
		Border     string  `yaml:"border"`
	}
	if err := decode(node, &p); err != nil {
		return nil, err
	}
	border, err := optional(cv.Border, p.Border)
	if err != nil {
		return nil, err
	}
	return func(_ *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
		return imgproc.BilateralFilter(src, p.D, p.SigmaColor, p.SigmaSpace, border)
	}, nil
}

func buildCanny(node *yaml.Node) (stageFunc, error) {
	var p struct {
		Threshold1   float64 `yaml:"threshold1"`
		Threshold2   float64 `yaml:"threshold2"`
		ApertureSize int     `yaml:"apertureSize"`
		L2Gradient   bool    `yaml:"l2gradient"`
	}
	if err := decode(node, &p); err != nil {
		return nil, err
	}
	if p.ApertureSize != 0 && (p.ApertureSize < 3 || p.ApertureSize > 7 || p.ApertureSize%2 == 0) {
		return nil, invalid("apertureSize must be 3, 5 or 7, got %d", p.ApertureSize)
	}
	opts := imgproc.CannyOptions{
		Threshold1:   p.Threshold1,
		Threshold2:   p.Threshold2,
		ApertureSize: p.ApertureSize,
		L2Gradient:   p.L2Gradient,
	}
	return func(_ *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
		return imgproc.Canny(src, opts)
	}, nil
}

type morphParams struct {
	Shape      string `yaml:"shape"`
	KSize      Size   `yaml:"ksize"`
	Iterations int    `yaml:"iterations"`
}

// kernel validates the structuring element and returns a function that
// builds it on the runtime of the image being processed. The kernel is
// tracked by the run's scope.
func (p *morphParams) kernel() (func(*cv.Scope, *cv.Runtime) (*cv.Mat, error), error) {
	if p.KSize == (Size{}) {
		p.KSize = Size{Width: 3, Height: 3}
	}
	if !p.KSize.positive() {
		return nil, invalid("ksize must be positive, got %dx%d", p.KSize.Width, p.KSize.Height)
	}
	if p.Iterations < 0 {
		return nil, invalid("iterations must not be negative")
	}
	shape, err := optional(cv.MorphShape, p.Shape)
	if err != nil {
		return nil, err
	}
	ksize := cvmod.Size(p.KSize)
	return func(scope *cv.Scope, rt *cv.Runtime) (*cv.Mat, error) {
		k, err := imgproc.GetStructuringElement(rt, shape, ksize)
		if err != nil {
			return nil, err
		}
		scope.Track(k)
		return k, nil
	}, nil
}

func buildMorph(apply func(src, kernel *cv.Mat, iterations int) (*cv.Mat, error)) builder {
	return func(node *yaml.Node) (stageFunc, error) {
		var p morphParams
		if err := decode(node, &p); err != nil {
			return nil, err
		}
		kernel, err := p.kernel()
		if err != nil {
			return nil, err
		}
		return func(scope *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
			k, err := kernel(scope, src.Runtime())
			if err != nil {
				return nil, err
			}
			return apply(src, k, p.Iterations)
		}, nil
	}
}

func buildMorphologyEx(node *yaml.Node) (stageFunc, error) {
	var p struct {
		Op          string `yaml:"op"`
		morphParams `yaml:",inline"`
	}
	if err := decode(node, &p); err != nil {
		return nil, err
	}
	if p.Op == "" {
		return nil, invalid("op is required")
	}
	op, err := cv.MorphOp.Find(p.Op)
	if err != nil {
		return nil, err
	}
	kernel, err := p.kernel()
	if err != nil {
		return nil, err
	}
	return func(scope *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
		k, err := kernel(scope, src.Runtime())
		if err != nil {
			return nil, err
		}
		return imgproc.MorphologyEx(src, op, k, p.Iterations)
	}, nil
}

func buildConvert(node *yaml.Node) (stageFunc, error) {
	var p struct {
		Type  string   `yaml:"type"`
		Alpha *float64 `yaml:"alpha"`
		Beta  float64  `yaml:"beta"`
	}
	if err := decode(node, &p); err != nil {
		return nil, err
	}
	if p.Type == "" {
		return nil, invalid("type is required")
	}
	typ, err := cv.DataTypes.Find(p.Type)
	if err != nil {
		return nil, err
	}
	alpha := 1.0
	if p.Alpha != nil {
		alpha = *p.Alpha
	}
	return func(_ *cv.Scope, src *cv.Mat) (*cv.Mat, error) {
		t := cvmod.MatType(src.Runtime().Code(typ))
		return src.ConvertToWithParams(t, alpha, p.Beta)
	}, nil
}
