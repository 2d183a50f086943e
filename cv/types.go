package cv

import (
	"fmt"

	"cvbridge/cvmod"
)

// Color is an RGB or RGBA colour given as 3 or 4 components.
type Color []float64

// Common colours, opaque.
var (
	Black = Color{0, 0, 0, 255}
	White = Color{255, 255, 255, 255}
	Red   = Color{255, 0, 0, 255}
	Green = Color{0, 255, 0, 255}
	Blue  = Color{0, 0, 255, 255}
)

// ToScalar converts c to a module scalar. A missing alpha becomes 255.
func ToScalar(c Color) (cvmod.Scalar, error) {
	switch len(c) {
	case 3:
		return cvmod.Scalar{c[0], c[1], c[2], 255}, nil
	case 4:
		return cvmod.Scalar{c[0], c[1], c[2], c[3]}, nil
	default:
		return cvmod.Scalar{}, fmt.Errorf("cv: colour needs 3 or 4 components, got %d", len(c))
	}
}

// NewSize returns a size.
func NewSize(width, height int) cvmod.Size {
	return cvmod.Size{Width: width, Height: height}
}

// NewPoint returns a point.
func NewPoint(x, y int) cvmod.Point {
	return cvmod.Point{X: x, Y: y}
}

// NewRect returns a rectangle.
func NewRect(x, y, width, height int) cvmod.Rect {
	return cvmod.Rect{X: x, Y: y, Width: width, Height: height}
}

// NewScalar returns a scalar; omitted components are zero.
func NewScalar(v ...float64) cvmod.Scalar {
	var s cvmod.Scalar
	copy(s[:], v)
	return s
}
