// Package imgproc forwards image operations to the foreign module.
//
// Every function that produces an image allocates an owning output on the
// runtime of its first argument and returns it; the caller releases it. When
// the module reports an error the output is released before the error is
// returned unchanged. Optional enumerations are given as cv.Const names and
// an empty name selects the documented default.
package imgproc

import (
	"cvbridge/cv"
	"cvbridge/cvmod"
)

// prepare checks the operands and returns the runtime they share.
func prepare(mats ...*cv.Mat) (*cv.Runtime, error) {
	for _, m := range mats {
		if m == nil {
			return nil, cv.ErrNilMat
		}
	}
	rt := mats[0].Runtime()
	if err := rt.Check(mats...); err != nil {
		return nil, err
	}
	return rt, nil
}

// produce runs fn with a fresh owning output and hands the output back only
// if fn succeeds.
func produce(operands []*cv.Mat, fn func(m cvmod.Module, dst cvmod.MatHandle) error) (*cv.Mat, error) {
	rt, err := prepare(operands...)
	if err != nil {
		return nil, err
	}
	dst := rt.Empty()
	if err := fn(rt.Module(), dst.Handle()); err != nil {
		rt.SafeRelease(dst)
		return nil, err
	}
	return dst, nil
}

// codeOr resolves c, or def when c is empty.
func codeOr(rt *cv.Runtime, c, def cv.Const) (int, error) {
	if c == "" {
		c = def
	}
	return rt.Resolve(c)
}

// CvtColor converts src between colour spaces. code is a module value such
// as rt.Code(cv.ColorRGBA2Gray).
func CvtColor(src *cv.Mat, code int) (*cv.Mat, error) {
	return produce([]*cv.Mat{src}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		return m.CvtColor(src.Handle(), dst, code)
	})
}

// ResizeOptions selects either an explicit size or scale factors. When Fx or
// Fy is set the width and height are ignored. Interpolation defaults to
// INTER_LINEAR.
type ResizeOptions struct {
	Width         int
	Height        int
	Fx            float64
	Fy            float64
	Interpolation cv.Const
}

// Resize scales src.
func Resize(src *cv.Mat, opts ResizeOptions) (*cv.Mat, error) {
	return produce([]*cv.Mat{src}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		size := cv.NewSize(opts.Width, opts.Height)
		if opts.Fx != 0 || opts.Fy != 0 {
			size = cv.NewSize(0, 0)
		}
		interp, err := codeOr(src.Runtime(), opts.Interpolation, cv.InterLinear)
		if err != nil {
			return err
		}
		return m.Resize(src.Handle(), dst, size, opts.Fx, opts.Fy, interp)
	})
}

// ThresholdOptions are the arguments of Threshold. Type defaults to
// THRESH_BINARY; flags such as THRESH_OTSU can be added with ExtraFlags.
type ThresholdOptions struct {
	Thresh     float64
	MaxVal     float64
	Type       cv.Const
	ExtraFlags []cv.Const
}

// Threshold applies a fixed-level threshold. The second result is the
// threshold the module used, which differs from Thresh for automatic modes.
func Threshold(src *cv.Mat, opts ThresholdOptions) (*cv.Mat, float64, error) {
	var used float64
	out, err := produce([]*cv.Mat{src}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		rt := src.Runtime()
		typ, err := codeOr(rt, opts.Type, cv.ThreshBinary)
		if err != nil {
			return err
		}
		for _, f := range opts.ExtraFlags {
			flag, err := rt.Resolve(f)
			if err != nil {
				return err
			}
			typ |= flag
		}
		used, err = m.Threshold(src.Handle(), dst, opts.Thresh, opts.MaxVal, typ)
		return err
	})
	return out, used, err
}

// AdaptiveThreshold applies a threshold computed per neighbourhood.
func AdaptiveThreshold(src *cv.Mat, maxValue float64, method, thresholdType cv.Const, blockSize int, c float64) (*cv.Mat, error) {
	return produce([]*cv.Mat{src}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		rt := src.Runtime()
		adaptive, err := codeOr(rt, method, cv.AdaptiveThreshMeanC)
		if err != nil {
			return err
		}
		typ, err := codeOr(rt, thresholdType, cv.ThreshBinary)
		if err != nil {
			return err
		}
		return m.AdaptiveThreshold(src.Handle(), dst, maxValue, adaptive, typ, blockSize, c)
	})
}

// GaussianBlurOptions are the arguments of GaussianBlur. SigmaY defaults to
// 0 (same as SigmaX) and BorderType to BORDER_DEFAULT.
type GaussianBlurOptions struct {
	KSize      cvmod.Size
	SigmaX     float64
	SigmaY     float64
	BorderType cv.Const
}

// GaussianBlur smooths src with a Gaussian kernel.
func GaussianBlur(src *cv.Mat, opts GaussianBlurOptions) (*cv.Mat, error) {
	return produce([]*cv.Mat{src}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		border, err := codeOr(src.Runtime(), opts.BorderType, cv.BorderDefault)
		if err != nil {
			return err
		}
		return m.GaussianBlur(src.Handle(), dst, opts.KSize, opts.SigmaX, opts.SigmaY, border)
	})
}

// MedianBlur smooths src with a ksize x ksize median filter.
func MedianBlur(src *cv.Mat, ksize int) (*cv.Mat, error) {
	return produce([]*cv.Mat{src}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		return m.MedianBlur(src.Handle(), dst, ksize)
	})
}

// BilateralFilter smooths src while keeping edges. borderType defaults to
// BORDER_DEFAULT.
func BilateralFilter(src *cv.Mat, d int, sigmaColor, sigmaSpace float64, borderType cv.Const) (*cv.Mat, error) {
	return produce([]*cv.Mat{src}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		border, err := codeOr(src.Runtime(), borderType, cv.BorderDefault)
		if err != nil {
			return err
		}
		return m.BilateralFilter(src.Handle(), dst, d, sigmaColor, sigmaSpace, border)
	})
}

// CannyOptions are the arguments of Canny. ApertureSize defaults to 3.
type CannyOptions struct {
	Threshold1   float64
	Threshold2   float64
	ApertureSize int
	L2Gradient   bool
}

// Canny finds edges in src.
func Canny(src *cv.Mat, opts CannyOptions) (*cv.Mat, error) {
	return produce([]*cv.Mat{src}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		aperture := opts.ApertureSize
		if aperture == 0 {
			aperture = 3
		}
		return m.Canny(src.Handle(), dst, opts.Threshold1, opts.Threshold2, aperture, opts.L2Gradient)
	})
}

// morphParams fills in the library defaults: anchor at the kernel centre,
// at least one iteration, constant border.
func morphParams(rt *cv.Runtime, iterations int) cvmod.MorphParams {
	if iterations <= 0 {
		iterations = 1
	}
	return cvmod.MorphParams{
		Anchor:     cv.NewPoint(-1, -1),
		Iterations: iterations,
		BorderType: rt.Code(cv.BorderConstant),
	}
}

// Dilate dilates src with kernel. iterations defaults to 1.
func Dilate(src, kernel *cv.Mat, iterations int) (*cv.Mat, error) {
	return produce([]*cv.Mat{src, kernel}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		return m.Dilate(src.Handle(), dst, kernel.Handle(), morphParams(src.Runtime(), iterations))
	})
}

// Erode erodes src with kernel. iterations defaults to 1.
func Erode(src, kernel *cv.Mat, iterations int) (*cv.Mat, error) {
	return produce([]*cv.Mat{src, kernel}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		return m.Erode(src.Handle(), dst, kernel.Handle(), morphParams(src.Runtime(), iterations))
	})
}

// MorphologyEx applies an advanced morphological operation such as
// cv.MorphOpen. iterations defaults to 1.
func MorphologyEx(src *cv.Mat, op cv.Const, kernel *cv.Mat, iterations int) (*cv.Mat, error) {
	return produce([]*cv.Mat{src, kernel}, func(m cvmod.Module, dst cvmod.MatHandle) error {
		rt := src.Runtime()
		code, err := codeOr(rt, op, cv.MorphOpen)
		if err != nil {
			return err
		}
		return m.MorphologyEx(src.Handle(), dst, code, kernel.Handle(), morphParams(rt, iterations))
	})
}

// GetStructuringElement builds an owning morphology kernel. shape defaults
// to MORPH_RECT.
func GetStructuringElement(rt *cv.Runtime, shape cv.Const, ksize cvmod.Size) (*cv.Mat, error) {
	code, err := codeOr(rt, shape, cv.MorphRect)
	if err != nil {
		return nil, err
	}
	h, err := rt.Module().GetStructuringElement(code, ksize)
	if err != nil {
		return nil, err
	}
	return rt.Wrap(h, true), nil
}
