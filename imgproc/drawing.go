package imgproc

import (
	"cvbridge/cv"
	"cvbridge/cvmod"
)

// DrawOptions are the optional line arguments of the drawing functions. A
// nil *DrawOptions draws a one pixel LINE_8 stroke.
type DrawOptions struct {
	// Thickness defaults to 1. Pass -1 (cv.Filled's value) to fill shapes.
	Thickness int
	LineType  cv.Const
	Shift     int
}

func (o *DrawOptions) stroke(rt *cv.Runtime) (cvmod.Stroke, error) {
	var opts DrawOptions
	if o != nil {
		opts = *o
	}
	if opts.Thickness == 0 {
		opts.Thickness = 1
	}
	lineType, err := codeOr(rt, opts.LineType, cv.Line8)
	if err != nil {
		return cvmod.Stroke{}, err
	}
	return cvmod.Stroke{
		Thickness: opts.Thickness,
		LineType:  lineType,
		Shift:     opts.Shift,
	}, nil
}

// draw validates img and color, then calls fn in place on img.
func draw(img *cv.Mat, color cv.Color, fn func(m cvmod.Module, h cvmod.MatHandle, c cvmod.Scalar) error) error {
	rt, err := prepare(img)
	if err != nil {
		return err
	}
	scalar, err := cv.ToScalar(color)
	if err != nil {
		return err
	}
	return fn(rt.Module(), img.Handle(), scalar)
}

// DrawLine draws a segment from pt1 to pt2 onto img.
func DrawLine(img *cv.Mat, pt1, pt2 cvmod.Point, color cv.Color, opts *DrawOptions) error {
	return draw(img, color, func(m cvmod.Module, h cvmod.MatHandle, c cvmod.Scalar) error {
		stroke, err := opts.stroke(img.Runtime())
		if err != nil {
			return err
		}
		return m.Line(h, pt1, pt2, c, stroke)
	})
}

// DrawRectangle draws the rectangle with opposite corners pt1 and pt2.
func DrawRectangle(img *cv.Mat, pt1, pt2 cvmod.Point, color cv.Color, opts *DrawOptions) error {
	return draw(img, color, func(m cvmod.Module, h cvmod.MatHandle, c cvmod.Scalar) error {
		stroke, err := opts.stroke(img.Runtime())
		if err != nil {
			return err
		}
		return m.Rectangle(h, pt1, pt2, c, stroke)
	})
}

// DrawCircle draws a circle around center.
func DrawCircle(img *cv.Mat, center cvmod.Point, radius int, color cv.Color, opts *DrawOptions) error {
	return draw(img, color, func(m cvmod.Module, h cvmod.MatHandle, c cvmod.Scalar) error {
		stroke, err := opts.stroke(img.Runtime())
		if err != nil {
			return err
		}
		return m.Circle(h, center, radius, c, stroke)
	})
}

// DrawEllipse draws an elliptic arc. Angles are in degrees.
func DrawEllipse(img *cv.Mat, center cvmod.Point, axes cvmod.Size, angle, startAngle, endAngle float64, color cv.Color, opts *DrawOptions) error {
	return draw(img, color, func(m cvmod.Module, h cvmod.MatHandle, c cvmod.Scalar) error {
		stroke, err := opts.stroke(img.Runtime())
		if err != nil {
			return err
		}
		return m.Ellipse(h, center, axes, angle, startAngle, endAngle, c, stroke)
	})
}

// TextOptions are the optional arguments of PutText. A nil *TextOptions
// renders FONT_HERSHEY_SIMPLEX at scale 1.
type TextOptions struct {
	FontFace         cv.Const
	FontScale        float64
	Thickness        int
	LineType         cv.Const
	BottomLeftOrigin bool
}

// PutText renders text with its baseline starting at org.
func PutText(img *cv.Mat, text string, org cvmod.Point, color cv.Color, opts *TextOptions) error {
	var o TextOptions
	if opts != nil {
		o = *opts
	}
	if o.FontScale == 0 {
		o.FontScale = 1
	}
	return draw(img, color, func(m cvmod.Module, h cvmod.MatHandle, c cvmod.Scalar) error {
		rt := img.Runtime()
		stroke, err := (&DrawOptions{Thickness: o.Thickness, LineType: o.LineType}).stroke(rt)
		if err != nil {
			return err
		}
		font, err := codeOr(rt, o.FontFace, cv.FontHersheySimplex)
		if err != nil {
			return err
		}
		return m.PutText(h, text, org, font, o.FontScale, c, stroke, o.BottomLeftOrigin)
	})
}

// FillPoly fills the polygon described by pts.
func FillPoly(img *cv.Mat, pts []cvmod.Point, color cv.Color) error {
	return draw(img, color, func(m cvmod.Module, h cvmod.MatHandle, c cvmod.Scalar) error {
		return m.FillPoly(h, pts, c)
	})
}
