// Package cvmod defines the contract between the binding and a foreign
// image-processing module.
//
// A Module is the loaded library: it exposes named numeric constants, buffer
// constructors and a fixed set of free functions. Every value it hands out
// that owns foreign memory is a handle with a Delete method; the binding in
// package cv decides when Delete is called.
//
// Implementations:
//   - gocvmod: OpenCV through gocv.io/x/gocv (build tag "gocv")
//   - fakecv: in-memory module used by tests
package cvmod

import "errors"

// ErrUnsupported is returned by modules that do not implement an operation.
var ErrUnsupported = errors.New("cvmod: operation not supported by module")

// MatHandle is a reference to a foreign 2D sample buffer.
//
// Rows, Cols, Type and Empty are pure queries. Everything else may fail with
// an error produced by the foreign library; callers pass those through.
type MatHandle interface {
	Rows() int
	Cols() int
	Type() MatType
	Empty() bool

	// Bytes returns a continuous copy of the samples in row-major order.
	Bytes() ([]byte, error)
	// At reads one sample as float64.
	At(row, col, channel int) (float64, error)

	Clone() (MatHandle, error)
	CopyTo(dst MatHandle) error
	ConvertTo(dst MatHandle, t MatType, alpha, beta float64) error
	SetTo(value Scalar) error

	// Row, Col and Region return handles aliasing this buffer's memory.
	Row(y int) (MatHandle, error)
	Col(x int) (MatHandle, error)
	Region(r Rect) (MatHandle, error)

	Delete() error
}

// PointSetHandle is a foreign list of points, typically one contour.
type PointSetHandle interface {
	Len() int
	Points() []Point
	Delete() error
}

// ContourVectorHandle is a foreign list of contours. Handles returned by At
// are owned by the vector.
type ContourVectorHandle interface {
	Len() int
	At(i int) (PointSetHandle, error)
	Delete() error
}

// DetectParams are the tuning knobs of a multi-scale detection.
type DetectParams struct {
	ScaleFactor  float64
	MinNeighbors int
	Flags        int
	MinSize      Size
	MaxSize      Size
}

// ClassifierHandle is a foreign cascade classifier.
type ClassifierHandle interface {
	Load(path string) bool
	DetectMultiScale(img MatHandle, p DetectParams) ([]Rect, error)
	Delete() error
}

// FeatureDetectorHandle is a foreign keypoint detector and descriptor extractor.
type FeatureDetectorHandle interface {
	Detect(img MatHandle) ([]KeyPoint, error)
	// Compute fills descriptors and returns the keypoints that survived.
	Compute(img MatHandle, keypoints []KeyPoint, descriptors MatHandle) ([]KeyPoint, error)
	DetectAndCompute(img, mask, descriptors MatHandle) ([]KeyPoint, error)
	Delete() error
}

// MorphParams carries the optional arguments of dilate, erode and morphologyEx.
// An anchor of (-1,-1) means the kernel centre.
type MorphParams struct {
	Anchor      Point
	Iterations  int
	BorderType  int
	BorderValue Scalar
}

// Stroke carries the optional line arguments of the drawing functions.
type Stroke struct {
	Thickness int
	LineType  int
	Shift     int
}

// Module is a loaded foreign image-processing library.
type Module interface {
	// Name identifies the backend in logs and CLI output.
	Name() string
	// Constant returns the value of a named constant such as "COLOR_RGBA2GRAY".
	Constant(name string) (int, bool)

	NewMat() MatHandle
	NewMatWithSize(rows, cols int, t MatType) (MatHandle, error)
	NewMatFromBytes(rows, cols int, t MatType, data []byte) (MatHandle, error)

	CvtColor(src, dst MatHandle, code int) error
	Resize(src, dst MatHandle, dsize Size, fx, fy float64, interpolation int) error
	Threshold(src, dst MatHandle, thresh, maxval float64, typ int) (float64, error)
	AdaptiveThreshold(src, dst MatHandle, maxValue float64, method, typ, blockSize int, c float64) error
	GaussianBlur(src, dst MatHandle, ksize Size, sigmaX, sigmaY float64, borderType int) error
	MedianBlur(src, dst MatHandle, ksize int) error
	BilateralFilter(src, dst MatHandle, d int, sigmaColor, sigmaSpace float64, borderType int) error
	Canny(src, dst MatHandle, threshold1, threshold2 float64, apertureSize int, l2gradient bool) error
	Dilate(src, dst, kernel MatHandle, p MorphParams) error
	Erode(src, dst, kernel MatHandle, p MorphParams) error
	MorphologyEx(src, dst MatHandle, op int, kernel MatHandle, p MorphParams) error
	GetStructuringElement(shape int, ksize Size) (MatHandle, error)

	FindContours(img MatHandle, mode, method int, offset Point) (ContourVectorHandle, error)
	DrawContours(img MatHandle, contours ContourVectorHandle, idx int, color Scalar, thickness int) error
	ContourArea(contour PointSetHandle, oriented bool) (float64, error)
	ArcLength(curve PointSetHandle, closed bool) (float64, error)
	ApproxPolyDP(curve PointSetHandle, epsilon float64, closed bool) (PointSetHandle, error)
	BoundingRect(points PointSetHandle) (Rect, error)
	MinAreaRect(points PointSetHandle) (RotatedRect, error)

	Line(img MatHandle, pt1, pt2 Point, color Scalar, s Stroke) error
	Rectangle(img MatHandle, pt1, pt2 Point, color Scalar, s Stroke) error
	Circle(img MatHandle, center Point, radius int, color Scalar, s Stroke) error
	Ellipse(img MatHandle, center Point, axes Size, angle, startAngle, endAngle float64, color Scalar, s Stroke) error
	PutText(img MatHandle, text string, org Point, fontFace int, fontScale float64, color Scalar, s Stroke, bottomLeftOrigin bool) error
	FillPoly(img MatHandle, pts []Point, color Scalar) error

	NewCascadeClassifier() (ClassifierHandle, error)
	NewORB(nfeatures int) (FeatureDetectorHandle, error)
}
