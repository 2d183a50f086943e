package cvmod

import "fmt"

// Depth is the element type of a single sample, encoded as OpenCV does.
type Depth int

// Element depths. The numeric values are part of the OpenCV ABI.
const (
	Depth8U  Depth = 0
	Depth8S  Depth = 1
	Depth16U Depth = 2
	Depth16S Depth = 3
	Depth32S Depth = 4
	Depth32F Depth = 5
	Depth64F Depth = 6
)

// Size returns the number of bytes used by one sample of this depth.
func (d Depth) Size() int {
	switch d {
	case Depth8U, Depth8S:
		return 1
	case Depth16U, Depth16S:
		return 2
	case Depth32S, Depth32F:
		return 4
	case Depth64F:
		return 8
	default:
		return 0
	}
}

// Valid reports whether d is one of the seven supported depths.
func (d Depth) Valid() bool {
	return d >= Depth8U && d <= Depth64F
}

func (d Depth) String() string {
	switch d {
	case Depth8U:
		return "8U"
	case Depth8S:
		return "8S"
	case Depth16U:
		return "16U"
	case Depth16S:
		return "16S"
	case Depth32S:
		return "32S"
	case Depth32F:
		return "32F"
	case Depth64F:
		return "64F"
	default:
		return fmt.Sprintf("Depth(%d)", int(d))
	}
}

// MatType combines a depth with a channel count (1..4).
// The encoding matches CV_MAKETYPE: depth + (channels-1)<<3.
type MatType int

const channelShift = 3

// MakeType builds a MatType from a depth and a channel count.
func MakeType(d Depth, channels int) MatType {
	return MatType(int(d) + (channels-1)<<channelShift)
}

// Depth returns the element depth of t.
func (t MatType) Depth() Depth {
	return Depth(int(t) & ((1 << channelShift) - 1))
}

// Channels returns the channel count of t.
func (t MatType) Channels() int {
	return (int(t) >> channelShift) + 1
}

// ElemSize returns the byte size of one sample.
func (t MatType) ElemSize() int {
	return t.Depth().Size()
}

// PixelSize returns the byte size of one pixel (all channels).
func (t MatType) PixelSize() int {
	return t.ElemSize() * t.Channels()
}

func (t MatType) String() string {
	return fmt.Sprintf("CV_%sC%d", t.Depth(), t.Channels())
}

// Common types, spelled the way OpenCV spells them.
var (
	CV8UC1  = MakeType(Depth8U, 1)
	CV8UC2  = MakeType(Depth8U, 2)
	CV8UC3  = MakeType(Depth8U, 3)
	CV8UC4  = MakeType(Depth8U, 4)
	CV32SC2 = MakeType(Depth32S, 2)
	CV32FC1 = MakeType(Depth32F, 1)
	CV32FC2 = MakeType(Depth32F, 2)
	CV32FC3 = MakeType(Depth32F, 3)
	CV32FC4 = MakeType(Depth32F, 4)
)

// Size is a width/height pair.
type Size struct {
	Width  int
	Height int
}

// Point is an integer 2D coordinate.
type Point struct {
	X int
	Y int
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// RotatedRect is a rectangle with a centre, a size and a rotation in degrees.
type RotatedRect struct {
	Center Point
	Size   Size
	Angle  float64
}

// Scalar is a 4-element value used for colours and fill values.
type Scalar [4]float64

// KeyPoint is a detected feature location.
type KeyPoint struct {
	X        float64
	Y        float64
	Size     float64
	Angle    float64
	Response float64
	Octave   int
	ClassID  int
}
