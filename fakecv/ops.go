package fakecv

import (
	"errors"
	"fmt"
	"math"

	"cvbridge/cvmod"
)

// ErrNotLoaded is returned by detection on a classifier without a cascade.
var ErrNotLoaded = errors.New("fakecv: classifier has no cascade loaded")

func (m *Module) pair(src, dst cvmod.MatHandle) (*Mat, *Mat, error) {
	s, err := m.mat(src)
	if err != nil {
		return nil, nil, err
	}
	d, err := m.mat(dst)
	if err != nil {
		return nil, nil, err
	}
	return s, d, nil
}

// passThrough copies src into dst. Filters the fake does not model use it.
func (m *Module) passThrough(src, dst cvmod.MatHandle) error {
	s, d, err := m.pair(src, dst)
	if err != nil {
		return err
	}
	b, err := s.Bytes()
	if err != nil {
		return err
	}
	return d.assign(s.rows, s.cols, s.typ, b)
}

func maxValue(d cvmod.Depth) float64 {
	switch d {
	case cvmod.Depth8U:
		return math.MaxUint8
	case cvmod.Depth16U:
		return math.MaxUint16
	case cvmod.Depth32F, cvmod.Depth64F:
		return 1
	default:
		return math.MaxInt8
	}
}

// gray weights a pixel with the ITU-R BT.601 luma coefficients. 8-bit input
// uses OpenCV's 14-bit fixed point form so results match bit for bit.
func gray(d cvmod.Depth, r, g, b float64) float64 {
	if d == cvmod.Depth8U {
		return float64((int(r)*4899 + int(g)*9617 + int(b)*1868 + (1 << 13)) >> 14)
	}
	return 0.299*r + 0.587*g + 0.114*b
}

type conversion struct {
	in, out int
	apply   func(d cvmod.Depth, px []float64) []float64
}

func conversions() map[string]conversion {
	return map[string]conversion{
		"COLOR_RGBA2GRAY": {4, 1, func(d cvmod.Depth, p []float64) []float64 { return []float64{gray(d, p[0], p[1], p[2])} }},
		"COLOR_RGB2GRAY":  {3, 1, func(d cvmod.Depth, p []float64) []float64 { return []float64{gray(d, p[0], p[1], p[2])} }},
		"COLOR_BGR2GRAY":  {3, 1, func(d cvmod.Depth, p []float64) []float64 { return []float64{gray(d, p[2], p[1], p[0])} }},
		"COLOR_GRAY2RGBA": {1, 4, func(d cvmod.Depth, p []float64) []float64 { return []float64{p[0], p[0], p[0], maxValue(d)} }},
		"COLOR_GRAY2BGR":  {1, 3, func(d cvmod.Depth, p []float64) []float64 { return []float64{p[0], p[0], p[0]} }},
		"COLOR_RGB2RGBA":  {3, 4, func(d cvmod.Depth, p []float64) []float64 { return []float64{p[0], p[1], p[2], maxValue(d)} }},
		"COLOR_RGBA2RGB":  {4, 3, func(d cvmod.Depth, p []float64) []float64 { return []float64{p[0], p[1], p[2]} }},
		"COLOR_BGR2RGB":   {3, 3, func(d cvmod.Depth, p []float64) []float64 { return []float64{p[2], p[1], p[0]} }},
		"COLOR_BGR2RGBA":  {3, 4, func(d cvmod.Depth, p []float64) []float64 { return []float64{p[2], p[1], p[0], maxValue(d)} }},
		"COLOR_RGBA2BGR":  {4, 3, func(d cvmod.Depth, p []float64) []float64 { return []float64{p[2], p[1], p[0]} }},
	}
}

func (m *Module) conversionFor(code int) (conversion, bool) {
	for name, conv := range conversions() {
		if v, ok := m.constants[name]; ok && v == code {
			return conv, true
		}
	}
	return conversion{}, false
}

// CvtColor implements cvmod.Module for the gray, RGB, BGR and RGBA codes.
func (m *Module) CvtColor(src, dst cvmod.MatHandle, code int) error {
	if err := m.record("CvtColor", code); err != nil {
		return err
	}
	s, d, err := m.pair(src, dst)
	if err != nil {
		return err
	}
	conv, ok := m.conversionFor(code)
	if !ok {
		return fmt.Errorf("%w: colour conversion code %d", cvmod.ErrUnsupported, code)
	}
	if s.typ.Channels() != conv.in {
		return fmt.Errorf("fakecv: colour conversion %d expects %d channels, got %d", code, conv.in, s.typ.Channels())
	}
	in, err := s.samples()
	if err != nil {
		return err
	}
	depth := s.typ.Depth()
	out := make([]float64, 0, s.rows*s.cols*conv.out)
	for i := 0; i+conv.in <= len(in); i += conv.in {
		out = append(out, conv.apply(depth, in[i:i+conv.in])...)
	}
	return d.assignSamples(s.rows, s.cols, cvmod.MakeType(depth, conv.out), out)
}

// Resize implements cvmod.Module with nearest-neighbour sampling. A zero
// dsize is derived from fx and fy.
func (m *Module) Resize(src, dst cvmod.MatHandle, dsize cvmod.Size, fx, fy float64, interpolation int) error {
	if err := m.record("Resize", dsize, fx, fy, interpolation); err != nil {
		return err
	}
	s, d, err := m.pair(src, dst)
	if err != nil {
		return err
	}
	w, h := dsize.Width, dsize.Height
	if w == 0 && h == 0 {
		w = int(math.Round(float64(s.cols) * fx))
		h = int(math.Round(float64(s.rows) * fy))
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: resize to %dx%d", ErrOutOfRange, w, h)
	}
	in, err := s.samples()
	if err != nil {
		return err
	}
	ch := s.typ.Channels()
	out := make([]float64, 0, w*h*ch)
	for y := 0; y < h; y++ {
		sy := min(y*s.rows/h, s.rows-1)
		for x := 0; x < w; x++ {
			sx := min(x*s.cols/w, s.cols-1)
			base := (sy*s.cols + sx) * ch
			out = append(out, in[base:base+ch]...)
		}
	}
	return d.assignSamples(h, w, s.typ, out)
}

func (m *Module) thresholdSample(v, thresh, maxval float64, typ int) float64 {
	switch typ {
	case m.constants["THRESH_BINARY_INV"]:
		if v > thresh {
			return 0
		}
		return maxval
	case m.constants["THRESH_TRUNC"]:
		return math.Min(v, thresh)
	case m.constants["THRESH_TOZERO"]:
		if v > thresh {
			return v
		}
		return 0
	case m.constants["THRESH_TOZERO_INV"]:
		if v > thresh {
			return 0
		}
		return v
	default:
		if v > thresh {
			return maxval
		}
		return 0
	}
}

// Threshold implements cvmod.Module. The automatic threshold flags are
// accepted but the given threshold is used as is.
func (m *Module) Threshold(src, dst cvmod.MatHandle, thresh, maxval float64, typ int) (float64, error) {
	if err := m.record("Threshold", thresh, maxval, typ); err != nil {
		return 0, err
	}
	s, d, err := m.pair(src, dst)
	if err != nil {
		return 0, err
	}
	in, err := s.samples()
	if err != nil {
		return 0, err
	}
	base := typ &^ (m.constants["THRESH_OTSU"] | m.constants["THRESH_TRIANGLE"])
	for i, v := range in {
		in[i] = m.thresholdSample(v, thresh, maxval, base)
	}
	return thresh, d.assignSamples(s.rows, s.cols, s.typ, in)
}

// AdaptiveThreshold implements cvmod.Module.
func (m *Module) AdaptiveThreshold(src, dst cvmod.MatHandle, maxValue float64, method, typ, blockSize int, c float64) error {
	if err := m.record("AdaptiveThreshold", maxValue, method, typ, blockSize, c); err != nil {
		return err
	}
	return m.passThrough(src, dst)
}

// GaussianBlur implements cvmod.Module.
func (m *Module) GaussianBlur(src, dst cvmod.MatHandle, ksize cvmod.Size, sigmaX, sigmaY float64, borderType int) error {
	if err := m.record("GaussianBlur", ksize, sigmaX, sigmaY, borderType); err != nil {
		return err
	}
	return m.passThrough(src, dst)
}

// MedianBlur implements cvmod.Module.
func (m *Module) MedianBlur(src, dst cvmod.MatHandle, ksize int) error {
	if err := m.record("MedianBlur", ksize); err != nil {
		return err
	}
	return m.passThrough(src, dst)
}

// BilateralFilter implements cvmod.Module.
func (m *Module) BilateralFilter(src, dst cvmod.MatHandle, d int, sigmaColor, sigmaSpace float64, borderType int) error {
	if err := m.record("BilateralFilter", d, sigmaColor, sigmaSpace, borderType); err != nil {
		return err
	}
	return m.passThrough(src, dst)
}

// Canny implements cvmod.Module.
func (m *Module) Canny(src, dst cvmod.MatHandle, threshold1, threshold2 float64, apertureSize int, l2gradient bool) error {
	if err := m.record("Canny", threshold1, threshold2, apertureSize, l2gradient); err != nil {
		return err
	}
	return m.passThrough(src, dst)
}

// Dilate implements cvmod.Module.
func (m *Module) Dilate(src, dst, kernel cvmod.MatHandle, p cvmod.MorphParams) error {
	if err := m.record("Dilate", p); err != nil {
		return err
	}
	if _, err := m.mat(kernel); err != nil {
		return err
	}
	return m.passThrough(src, dst)
}

// Erode implements cvmod.Module.
func (m *Module) Erode(src, dst, kernel cvmod.MatHandle, p cvmod.MorphParams) error {
	if err := m.record("Erode", p); err != nil {
		return err
	}
	if _, err := m.mat(kernel); err != nil {
		return err
	}
	return m.passThrough(src, dst)
}

// MorphologyEx implements cvmod.Module.
func (m *Module) MorphologyEx(src, dst cvmod.MatHandle, op int, kernel cvmod.MatHandle, p cvmod.MorphParams) error {
	if err := m.record("MorphologyEx", op, p); err != nil {
		return err
	}
	if _, err := m.mat(kernel); err != nil {
		return err
	}
	return m.passThrough(src, dst)
}

// GetStructuringElement implements cvmod.Module. Ellipses are approximated
// by rectangles.
func (m *Module) GetStructuringElement(shape int, ksize cvmod.Size) (cvmod.MatHandle, error) {
	if err := m.record("GetStructuringElement", shape, ksize); err != nil {
		return nil, err
	}
	if ksize.Width <= 0 || ksize.Height <= 0 {
		return nil, fmt.Errorf("%w: kernel size %dx%d", ErrOutOfRange, ksize.Width, ksize.Height)
	}
	data := make([]byte, ksize.Width*ksize.Height)
	cross := shape == m.constants["MORPH_CROSS"]
	for y := 0; y < ksize.Height; y++ {
		for x := 0; x < ksize.Width; x++ {
			if !cross || y == ksize.Height/2 || x == ksize.Width/2 {
				data[y*ksize.Width+x] = 1
			}
		}
	}
	return m.newRoot(ksize.Height, ksize.Width, cvmod.CV8UC1, data), nil
}

// FindContours implements cvmod.Module. It returns the contours set with
// SetContours, shifted by offset.
func (m *Module) FindContours(img cvmod.MatHandle, mode, method int, offset cvmod.Point) (cvmod.ContourVectorHandle, error) {
	if err := m.record("FindContours", mode, method, offset); err != nil {
		return nil, err
	}
	if _, err := m.mat(img); err != nil {
		return nil, err
	}
	m.mu.Lock()
	src := m.contours
	m.mu.Unlock()

	vec := &ContourVector{obj: m.track()}
	for _, pts := range src {
		ps := &PointSet{parent: vec}
		for _, p := range pts {
			ps.points = append(ps.points, cvmod.Point{X: p.X + offset.X, Y: p.Y + offset.Y})
		}
		vec.sets = append(vec.sets, ps)
	}
	return vec, nil
}

// DrawContours implements cvmod.Module.
func (m *Module) DrawContours(img cvmod.MatHandle, contours cvmod.ContourVectorHandle, idx int, color cvmod.Scalar, thickness int) error {
	if err := m.record("DrawContours", idx, color, thickness); err != nil {
		return err
	}
	if _, err := m.mat(img); err != nil {
		return err
	}
	vec, err := m.contourVector(contours)
	if err != nil {
		return err
	}
	if idx >= vec.Len() {
		return fmt.Errorf("%w: contour %d of %d", ErrOutOfRange, idx, vec.Len())
	}
	return nil
}

// ContourArea implements cvmod.Module using the shoelace formula.
func (m *Module) ContourArea(contour cvmod.PointSetHandle, oriented bool) (float64, error) {
	if err := m.record("ContourArea", oriented); err != nil {
		return 0, err
	}
	ps, err := m.pointSet(contour)
	if err != nil {
		return 0, err
	}
	pts := ps.points
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += float64(pts[i].X*pts[j].Y - pts[j].X*pts[i].Y)
	}
	area := sum / 2
	if !oriented {
		area = math.Abs(area)
	}
	return area, nil
}

// ArcLength implements cvmod.Module.
func (m *Module) ArcLength(curve cvmod.PointSetHandle, closed bool) (float64, error) {
	if err := m.record("ArcLength", closed); err != nil {
		return 0, err
	}
	ps, err := m.pointSet(curve)
	if err != nil {
		return 0, err
	}
	return perimeter(ps.points, closed), nil
}

func distance(a, b cvmod.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func perimeter(pts []cvmod.Point, closed bool) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += distance(pts[i-1], pts[i])
	}
	if closed && len(pts) > 1 {
		total += distance(pts[len(pts)-1], pts[0])
	}
	return total
}

// ApproxPolyDP implements cvmod.Module with Ramer-Douglas-Peucker.
func (m *Module) ApproxPolyDP(curve cvmod.PointSetHandle, epsilon float64, closed bool) (cvmod.PointSetHandle, error) {
	if err := m.record("ApproxPolyDP", epsilon, closed); err != nil {
		return nil, err
	}
	ps, err := m.pointSet(curve)
	if err != nil {
		return nil, err
	}
	pts := ps.points
	if closed && len(pts) > 2 {
		pts = append(append([]cvmod.Point(nil), pts...), pts[0])
		out := simplify(pts, epsilon)
		return m.NewPointSet(out[:len(out)-1]), nil
	}
	return m.NewPointSet(simplify(pts, epsilon)), nil
}

func segmentDistance(p, a, b cvmod.Point) float64 {
	if a == b {
		return distance(p, a)
	}
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	return math.Abs(dy*float64(p.X-a.X)-dx*float64(p.Y-a.Y)) / math.Hypot(dx, dy)
}

func simplify(pts []cvmod.Point, epsilon float64) []cvmod.Point {
	if len(pts) < 3 {
		return append([]cvmod.Point(nil), pts...)
	}
	last := len(pts) - 1
	worst, at := 0.0, 0
	for i := 1; i < last; i++ {
		if d := segmentDistance(pts[i], pts[0], pts[last]); d > worst {
			worst, at = d, i
		}
	}
	if worst <= epsilon {
		return []cvmod.Point{pts[0], pts[last]}
	}
	left := simplify(pts[:at+1], epsilon)
	right := simplify(pts[at:], epsilon)
	return append(left[:len(left)-1], right...)
}

func bounds(pts []cvmod.Point) cvmod.Rect {
	if len(pts) == 0 {
		return cvmod.Rect{}
	}
	minX, minY, maxX, maxY := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return cvmod.Rect{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}

// BoundingRect implements cvmod.Module.
func (m *Module) BoundingRect(points cvmod.PointSetHandle) (cvmod.Rect, error) {
	if err := m.record("BoundingRect"); err != nil {
		return cvmod.Rect{}, err
	}
	ps, err := m.pointSet(points)
	if err != nil {
		return cvmod.Rect{}, err
	}
	return bounds(ps.points), nil
}

// MinAreaRect implements cvmod.Module. The fake only reports the axis
// aligned box.
func (m *Module) MinAreaRect(points cvmod.PointSetHandle) (cvmod.RotatedRect, error) {
	if err := m.record("MinAreaRect"); err != nil {
		return cvmod.RotatedRect{}, err
	}
	ps, err := m.pointSet(points)
	if err != nil {
		return cvmod.RotatedRect{}, err
	}
	r := bounds(ps.points)
	return cvmod.RotatedRect{
		Center: cvmod.Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2},
		Size:   cvmod.Size{Width: r.Width, Height: r.Height},
	}, nil
}

func (m *Module) draw(name string, img cvmod.MatHandle, args ...any) error {
	if err := m.record(name, args...); err != nil {
		return err
	}
	_, err := m.mat(img)
	return err
}

// Line implements cvmod.Module.
func (m *Module) Line(img cvmod.MatHandle, pt1, pt2 cvmod.Point, color cvmod.Scalar, s cvmod.Stroke) error {
	return m.draw("Line", img, pt1, pt2, color, s)
}

// Rectangle implements cvmod.Module.
func (m *Module) Rectangle(img cvmod.MatHandle, pt1, pt2 cvmod.Point, color cvmod.Scalar, s cvmod.Stroke) error {
	return m.draw("Rectangle", img, pt1, pt2, color, s)
}

// Circle implements cvmod.Module.
func (m *Module) Circle(img cvmod.MatHandle, center cvmod.Point, radius int, color cvmod.Scalar, s cvmod.Stroke) error {
	return m.draw("Circle", img, center, radius, color, s)
}

// Ellipse implements cvmod.Module.
func (m *Module) Ellipse(img cvmod.MatHandle, center cvmod.Point, axes cvmod.Size, angle, startAngle, endAngle float64, color cvmod.Scalar, s cvmod.Stroke) error {
	return m.draw("Ellipse", img, center, axes, angle, startAngle, endAngle, color, s)
}

// PutText implements cvmod.Module.
func (m *Module) PutText(img cvmod.MatHandle, text string, org cvmod.Point, fontFace int, fontScale float64, color cvmod.Scalar, s cvmod.Stroke, bottomLeftOrigin bool) error {
	return m.draw("PutText", img, text, org, fontFace, fontScale, color, s, bottomLeftOrigin)
}

// FillPoly implements cvmod.Module.
func (m *Module) FillPoly(img cvmod.MatHandle, pts []cvmod.Point, color cvmod.Scalar) error {
	return m.draw("FillPoly", img, pts, color)
}
