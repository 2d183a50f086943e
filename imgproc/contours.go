package imgproc

import (
	"cvbridge/cv"
	"cvbridge/cvmod"
)

// NoMaxArea disables the upper bound of FilterContoursByArea.
const NoMaxArea = -1.0

// FindContoursOptions select the retrieval mode and approximation method.
// They default to RETR_EXTERNAL and CHAIN_APPROX_SIMPLE.
type FindContoursOptions struct {
	Mode   cv.Const
	Method cv.Const
	Offset cvmod.Point
}

// FindContours traces the outlines in a binary image. The returned vector
// owns its contours; release it once the contours are no longer needed.
func FindContours(img *cv.Mat, opts FindContoursOptions) (*cv.Contours, error) {
	rt, err := prepare(img)
	if err != nil {
		return nil, err
	}
	mode, err := codeOr(rt, opts.Mode, cv.RetrExternal)
	if err != nil {
		return nil, err
	}
	method, err := codeOr(rt, opts.Method, cv.ChainApproxSimple)
	if err != nil {
		return nil, err
	}
	h, err := rt.Module().FindContours(img.Handle(), mode, method, opts.Offset)
	if err != nil {
		return nil, err
	}
	return rt.WrapContours(h), nil
}

// DrawContours draws contour idx, or all of them when idx is negative.
// thickness defaults to 1.
func DrawContours(img *cv.Mat, contours *cv.Contours, idx int, color cv.Color, thickness int) error {
	if img == nil || contours == nil {
		return cv.ErrNilMat
	}
	if contours.Runtime() != img.Runtime() {
		return cv.ErrRuntimeMismatch
	}
	ch, err := contours.Handle()
	if err != nil {
		return err
	}
	if thickness == 0 {
		thickness = 1
	}
	return draw(img, color, func(m cvmod.Module, h cvmod.MatHandle, c cvmod.Scalar) error {
		return m.DrawContours(h, ch, idx, c, thickness)
	})
}

func pointSet(p *cv.PointSet) (cvmod.Module, cvmod.PointSetHandle, error) {
	h, err := p.Handle()
	if err != nil {
		return nil, nil, err
	}
	return p.Runtime().Module(), h, nil
}

// ContourArea returns the area enclosed by contour. With oriented set the
// sign tells the winding direction.
func ContourArea(contour *cv.PointSet, oriented bool) (float64, error) {
	m, h, err := pointSet(contour)
	if err != nil {
		return 0, err
	}
	return m.ContourArea(h, oriented)
}

// ArcLength returns the perimeter of a closed curve or the length of an open one.
func ArcLength(curve *cv.PointSet, closed bool) (float64, error) {
	m, h, err := pointSet(curve)
	if err != nil {
		return 0, err
	}
	return m.ArcLength(h, closed)
}

// ApproxPolyDP simplifies curve to within epsilon pixels. The result owns
// its points.
func ApproxPolyDP(curve *cv.PointSet, epsilon float64, closed bool) (*cv.PointSet, error) {
	m, h, err := pointSet(curve)
	if err != nil {
		return nil, err
	}
	out, err := m.ApproxPolyDP(h, epsilon, closed)
	if err != nil {
		return nil, err
	}
	return curve.Runtime().WrapPointSet(out, true), nil
}

// BoundingRect returns the smallest upright rectangle containing points.
func BoundingRect(points *cv.PointSet) (cvmod.Rect, error) {
	m, h, err := pointSet(points)
	if err != nil {
		return cvmod.Rect{}, err
	}
	return m.BoundingRect(h)
}

// MinAreaRect returns the smallest rotated rectangle containing points.
func MinAreaRect(points *cv.PointSet) (cvmod.RotatedRect, error) {
	m, h, err := pointSet(points)
	if err != nil {
		return cvmod.RotatedRect{}, err
	}
	return m.MinAreaRect(h)
}

// ContourInfo summarises one contour.
type ContourInfo struct {
	Points       []cvmod.Point
	Area         float64
	Perimeter    float64
	BoundingRect cvmod.Rect
}

// DescribeContour measures contour. The perimeter treats it as closed.
func DescribeContour(contour *cv.PointSet) (ContourInfo, error) {
	pts, err := contour.Points()
	if err != nil {
		return ContourInfo{}, err
	}
	info := ContourInfo{Points: pts}
	if info.Area, err = ContourArea(contour, false); err != nil {
		return ContourInfo{}, err
	}
	if info.Perimeter, err = ArcLength(contour, true); err != nil {
		return ContourInfo{}, err
	}
	if info.BoundingRect, err = BoundingRect(contour); err != nil {
		return ContourInfo{}, err
	}
	return info, nil
}

// FilterContoursByArea returns the indices of contours whose area lies in
// [minArea, maxArea]. Pass NoMaxArea to drop the upper bound.
func FilterContoursByArea(contours *cv.Contours, minArea, maxArea float64) ([]int, error) {
	if contours == nil {
		return nil, cv.ErrNilMat
	}
	if _, err := contours.Handle(); err != nil {
		return nil, err
	}
	var keep []int
	for i := 0; i < contours.Len(); i++ {
		c, err := contours.At(i)
		if err != nil {
			return nil, err
		}
		area, err := ContourArea(c, false)
		if err != nil {
			return nil, err
		}
		if area >= minArea && (maxArea < 0 || area <= maxArea) {
			keep = append(keep, i)
		}
	}
	return keep, nil
}
