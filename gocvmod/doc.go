// Package gocvmod provides a cvmod.Module backed by OpenCV through
// gocv.io/x/gocv.
//
// The real backend is compiled only with the "gocv" build tag because it
// needs the OpenCV shared libraries:
//
//	go build -tags gocv
//
// Without the tag New returns a core.ConfigError explaining how to enable it.
package gocvmod

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"cvbridge/cvmod"
)

// Name is the backend name reported by Module.Name and used by the CLI.
const Name = "gocv"

var (
	ErrForeignHandle = errors.New("gocvmod: handle was not created by this module")
	ErrDeleted       = errors.New("gocvmod: handle already deleted")
	ErrOutOfRange    = errors.New("gocvmod: index out of range")
)

// toRGBA converts a channel-ordered scalar to the color.RGBA gocv expects.
// gocv turns color.RGBA into a BGRA scalar, so R and B are swapped here to
// land value i on channel i.
func toRGBA(s cvmod.Scalar) color.RGBA {
	return color.RGBA{
		R: clamp8(s[2]),
		G: clamp8(s[1]),
		B: clamp8(s[0]),
		A: clamp8(s[3]),
	}
}

func clamp8(v float64) uint8 {
	return uint8(cvmod.Saturate(cvmod.Depth8U, v))
}

func toImagePoint(p cvmod.Point) image.Point { return image.Pt(p.X, p.Y) }

func toImagePoints(pts []cvmod.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = toImagePoint(p)
	}
	return out
}

func fromImagePoints(pts []image.Point) []cvmod.Point {
	out := make([]cvmod.Point, len(pts))
	for i, p := range pts {
		out[i] = cvmod.Point{X: p.X, Y: p.Y}
	}
	return out
}

func toRect(r image.Rectangle) cvmod.Rect {
	return cvmod.Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// checkRegion validates r against a rows x cols buffer and returns it as an
// image.Rectangle.
func checkRegion(rows, cols int, r cvmod.Rect) (image.Rectangle, error) {
	if r.Empty() || r.X < 0 || r.Y < 0 || r.X+r.Width > cols || r.Y+r.Height > rows {
		return image.Rectangle{}, fmt.Errorf("%w: region %+v in %dx%d", ErrOutOfRange, r, rows, cols)
	}
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height), nil
}

// signedArea is the shoelace area of a polygon. Its sign follows the
// winding direction.
func signedArea(pts []cvmod.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += float64(p.X*q.Y - q.X*p.Y)
	}
	return sum / 2
}

func area(pts []cvmod.Point, oriented bool) float64 {
	a := signedArea(pts)
	if oriented {
		return a
	}
	return math.Abs(a)
}

// shift moves every point of every contour by offset.
func shift(contours [][]image.Point, offset cvmod.Point) [][]image.Point {
	if offset == (cvmod.Point{}) {
		return contours
	}
	d := toImagePoint(offset)
	out := make([][]image.Point, len(contours))
	for i, c := range contours {
		out[i] = make([]image.Point, len(c))
		for j, p := range c {
			out[i][j] = p.Add(d)
		}
	}
	return out
}
