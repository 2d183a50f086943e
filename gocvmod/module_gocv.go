//go:build gocv

// OpenCV implementation of cvmod.Module.
// Build with: go build -tags gocv

package gocvmod

import (
	"fmt"
	"image"
	"image/color"
	"runtime"

	"gocv.io/x/gocv"

	"cvbridge/cvmod"
)

// Module adapts gocv to cvmod.Module. It holds no state of its own; all
// memory lives in the handles it returns.
type Module struct{}

var _ cvmod.Module = (*Module)(nil)

// New returns the OpenCV backend.
func New() (cvmod.Module, error) {
	return &Module{}, nil
}

// Name implements cvmod.Module.
func (*Module) Name() string { return Name }

// Constant implements cvmod.Module. gocv uses the OpenCV numbering.
func (*Module) Constant(name string) (int, bool) {
	v, ok := cvmod.StandardConstants[name]
	return v, ok
}

// mat is a gocv.Mat plus the bookkeeping OpenCV leaves to the caller:
// views are headers that must be closed, and only once, with their parent.
type mat struct {
	m       gocv.Mat
	root    *mat
	views   []*mat
	deleted bool
}

var _ cvmod.MatHandle = (*mat)(nil)

func newRoot(m gocv.Mat) *mat { return &mat{m: m} }

func (x *mat) alive() error {
	if x.root != nil {
		return x.root.alive()
	}
	if x.deleted {
		return ErrDeleted
	}
	return nil
}

func (x *mat) view(m gocv.Mat) *mat {
	root := x
	if x.root != nil {
		root = x.root
	}
	v := &mat{m: m, root: root}
	root.views = append(root.views, v)
	return v
}

func (x *mat) Rows() int {
	if x.alive() != nil {
		return 0
	}
	return x.m.Rows()
}

func (x *mat) Cols() int {
	if x.alive() != nil {
		return 0
	}
	return x.m.Cols()
}

func (x *mat) Type() cvmod.MatType {
	if x.alive() != nil {
		return cvmod.CV8UC1
	}
	return cvmod.MatType(x.m.Type())
}

func (x *mat) Empty() bool {
	return x.alive() != nil || x.m.Empty()
}

func (x *mat) Bytes() ([]byte, error) {
	if err := x.alive(); err != nil {
		return nil, err
	}
	if x.m.IsContinuous() {
		return x.m.ToBytes(), nil
	}
	c := x.m.Clone()
	defer c.Close()
	return c.ToBytes(), nil
}

func (x *mat) At(row, col, channel int) (float64, error) {
	if err := x.alive(); err != nil {
		return 0, err
	}
	t := x.Type()
	if row < 0 || row >= x.m.Rows() || col < 0 || col >= x.m.Cols() || channel < 0 || channel >= t.Channels() {
		return 0, fmt.Errorf("%w: (%d,%d,%d) in %dx%d %s", ErrOutOfRange, row, col, channel, x.m.Rows(), x.m.Cols(), t)
	}
	px := x.m.Region(image.Rect(col, row, col+1, row+1))
	defer px.Close()
	c := px.Clone()
	defer c.Close()
	b := c.ToBytes()
	size := t.Depth().Size()
	return cvmod.Sample(b[channel*size:], t.Depth()), nil
}

func (x *mat) Clone() (cvmod.MatHandle, error) {
	if err := x.alive(); err != nil {
		return nil, err
	}
	return newRoot(x.m.Clone()), nil
}

func (x *mat) CopyTo(dst cvmod.MatHandle) error {
	d, err := resolve(dst)
	if err != nil {
		return err
	}
	if err := x.alive(); err != nil {
		return err
	}
	return x.m.CopyTo(&d.m)
}

func (x *mat) ConvertTo(dst cvmod.MatHandle, t cvmod.MatType, alpha, beta float64) error {
	d, err := resolve(dst)
	if err != nil {
		return err
	}
	if err := x.alive(); err != nil {
		return err
	}
	// gocv takes the scale and offset as float32, so they lose precision
	// beyond about seven significant digits.
	return x.m.ConvertToWithParams(&d.m, gocv.MatType(t), float32(alpha), float32(beta))
}

func (x *mat) SetTo(v cvmod.Scalar) error {
	if err := x.alive(); err != nil {
		return err
	}
	x.m.SetTo(gocv.NewScalar(v[0], v[1], v[2], v[3]))
	return nil
}

func (x *mat) Row(y int) (cvmod.MatHandle, error) {
	if err := x.alive(); err != nil {
		return nil, err
	}
	if y < 0 || y >= x.m.Rows() {
		return nil, fmt.Errorf("%w: row %d of %d", ErrOutOfRange, y, x.m.Rows())
	}
	return x.view(x.m.RowRange(y, y+1)), nil
}

func (x *mat) Col(c int) (cvmod.MatHandle, error) {
	if err := x.alive(); err != nil {
		return nil, err
	}
	if c < 0 || c >= x.m.Cols() {
		return nil, fmt.Errorf("%w: col %d of %d", ErrOutOfRange, c, x.m.Cols())
	}
	return x.view(x.m.ColRange(c, c+1)), nil
}

func (x *mat) Region(r cvmod.Rect) (cvmod.MatHandle, error) {
	if err := x.alive(); err != nil {
		return nil, err
	}
	rect, err := checkRegion(x.m.Rows(), x.m.Cols(), r)
	if err != nil {
		return nil, err
	}
	return x.view(x.m.Region(rect)), nil
}

// Delete closes an owned buffer together with every view header taken from
// it. On a view it only reports whether the parent is still alive.
func (x *mat) Delete() error {
	if x.root != nil {
		return x.root.alive()
	}
	if x.deleted {
		return ErrDeleted
	}
	x.deleted = true
	for _, v := range x.views {
		_ = v.m.Close()
	}
	x.views = nil
	return x.m.Close()
}

func resolve(h cvmod.MatHandle) (*mat, error) {
	x, ok := h.(*mat)
	if !ok || x == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignHandle, h)
	}
	return x, x.alive()
}

func resolvePair(src, dst cvmod.MatHandle) (*mat, *mat, error) {
	s, err := resolve(src)
	if err != nil {
		return nil, nil, err
	}
	d, err := resolve(dst)
	if err != nil {
		return nil, nil, err
	}
	return s, d, nil
}

// NewMat implements cvmod.Module.
func (*Module) NewMat() cvmod.MatHandle { return newRoot(gocv.NewMat()) }

func checkShape(rows, cols int, t cvmod.MatType) error {
	if rows < 0 || cols < 0 || !t.Depth().Valid() || t.Channels() < 1 || t.Channels() > 4 {
		return fmt.Errorf("%w: %dx%d %s", ErrOutOfRange, rows, cols, t)
	}
	return nil
}

// NewMatWithSize implements cvmod.Module.
func (*Module) NewMatWithSize(rows, cols int, t cvmod.MatType) (cvmod.MatHandle, error) {
	if err := checkShape(rows, cols, t); err != nil {
		return nil, err
	}
	return newRoot(gocv.NewMatWithSize(rows, cols, gocv.MatType(t))), nil
}

// NewMatFromBytes implements cvmod.Module. The samples are copied into
// OpenCV-owned memory so data may be reused by the caller.
func (*Module) NewMatFromBytes(rows, cols int, t cvmod.MatType, data []byte) (cvmod.MatHandle, error) {
	if err := checkShape(rows, cols, t); err != nil {
		return nil, err
	}
	if want := rows * cols * t.PixelSize(); len(data) != want {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d %s, want %d", ErrOutOfRange, len(data), rows, cols, t, want)
	}
	wrapped, err := gocv.NewMatFromBytes(rows, cols, gocv.MatType(t), data)
	if err != nil {
		return nil, err
	}
	defer wrapped.Close()
	out := wrapped.Clone()
	runtime.KeepAlive(data)
	return newRoot(out), nil
}

// CvtColor implements cvmod.Module.
func (*Module) CvtColor(src, dst cvmod.MatHandle, code int) error {
	s, d, err := resolvePair(src, dst)
	if err != nil {
		return err
	}
	return gocv.CvtColor(s.m, &d.m, gocv.ColorConversionCode(code))
}

// Resize implements cvmod.Module.
func (*Module) Resize(src, dst cvmod.MatHandle, dsize cvmod.Size, fx, fy float64, interpolation int) error {
	s, d, err := resolvePair(src, dst)
	if err != nil {
		return err
	}
	return gocv.Resize(s.m, &d.m, image.Pt(dsize.Width, dsize.Height), fx, fy, gocv.InterpolationFlags(interpolation))
}

// Threshold implements cvmod.Module.
func (*Module) Threshold(src, dst cvmod.MatHandle, thresh, maxval float64, typ int) (float64, error) {
	s, d, err := resolvePair(src, dst)
	if err != nil {
		return 0, err
	}
	used := gocv.Threshold(s.m, &d.m, float32(thresh), float32(maxval), gocv.ThresholdType(typ))
	return float64(used), nil
}

// AdaptiveThreshold implements cvmod.Module.
func (*Module) AdaptiveThreshold(src, dst cvmod.MatHandle, maxValue float64, method, typ, blockSize int, c float64) error {
	s, d, err := resolvePair(src, dst)
	if err != nil {
		return err
	}
	return gocv.AdaptiveThreshold(s.m, &d.m, float32(maxValue), gocv.AdaptiveThresholdType(method), gocv.ThresholdType(typ), blockSize, float32(c))
}

// GaussianBlur implements cvmod.Module.
func (*Module) GaussianBlur(src, dst cvmod.MatHandle, ksize cvmod.Size, sigmaX, sigmaY float64, borderType int) error {
	s, d, err := resolvePair(src, dst)
	if err != nil {
		return err
	}
	return gocv.GaussianBlur(s.m, &d.m, image.Pt(ksize.Width, ksize.Height), sigmaX, sigmaY, gocv.BorderType(borderType))
}

// MedianBlur implements cvmod.Module.
func (*Module) MedianBlur(src, dst cvmod.MatHandle, ksize int) error {
	s, d, err := resolvePair(src, dst)
	if err != nil {
		return err
	}
	return gocv.MedianBlur(s.m, &d.m, ksize)
}

// BilateralFilter implements cvmod.Module. gocv always uses BORDER_DEFAULT.
func (*Module) BilateralFilter(src, dst cvmod.MatHandle, diameter int, sigmaColor, sigmaSpace float64, borderType int) error {
	s, d, err := resolvePair(src, dst)
	if err != nil {
		return err
	}
	if borderType != cvmod.StandardConstants["BORDER_DEFAULT"] {
		return fmt.Errorf("%w: bilateralFilter border %d", cvmod.ErrUnsupported, borderType)
	}
	return gocv.BilateralFilter(s.m, &d.m, diameter, sigmaColor, sigmaSpace)
}

// Canny implements cvmod.Module. Only the default aperture and L1 norm are
// reachable through gocv.
func (*Module) Canny(src, dst cvmod.MatHandle, threshold1, threshold2 float64, apertureSize int, l2gradient bool) error {
	s, d, err := resolvePair(src, dst)
	if err != nil {
		return err
	}
	if apertureSize != 3 || l2gradient {
		return fmt.Errorf("%w: canny aperture %d l2 %t", cvmod.ErrUnsupported, apertureSize, l2gradient)
	}
	return gocv.Canny(s.m, &d.m, float32(threshold1), float32(threshold2))
}

func resolveMorph(src, dst, kernel cvmod.MatHandle) (*mat, *mat, *mat, error) {
	s, d, err := resolvePair(src, dst)
	if err != nil {
		return nil, nil, nil, err
	}
	k, err := resolve(kernel)
	if err != nil {
		return nil, nil, nil, err
	}
	return s, d, k, nil
}

func defaultAnchor(p cvmod.MorphParams) bool {
	return p.Anchor == (cvmod.Point{X: -1, Y: -1})
}

// Dilate implements cvmod.Module. The default anchor and border use plain
// dilate repeated per iteration, which keeps OpenCV's default border value;
// anything else goes through DilateWithParams with a zero border value.
func (*Module) Dilate(src, dst, kernel cvmod.MatHandle, p cvmod.MorphParams) error {
	s, d, k, err := resolveMorph(src, dst, kernel)
	if err != nil {
		return err
	}
	if !defaultAnchor(p) || p.BorderType != cvmod.StandardConstants["BORDER_CONSTANT"] {
		return gocv.DilateWithParams(s.m, &d.m, k.m, toImagePoint(p.Anchor),
			gocv.BorderType(p.Iterations), gocv.BorderType(p.BorderType), color.RGBA{})
	}
	if err := gocv.Dilate(s.m, &d.m, k.m); err != nil {
		return err
	}
	for i := 1; i < p.Iterations; i++ {
		if err := gocv.Dilate(d.m, &d.m, k.m); err != nil {
			return err
		}
	}
	return nil
}

// Erode implements cvmod.Module.
func (*Module) Erode(src, dst, kernel cvmod.MatHandle, p cvmod.MorphParams) error {
	s, d, k, err := resolveMorph(src, dst, kernel)
	if err != nil {
		return err
	}
	return gocv.ErodeWithParams(s.m, &d.m, k.m, toImagePoint(p.Anchor), p.Iterations, p.BorderType)
}

// MorphologyEx implements cvmod.Module. gocv fixes the anchor at the kernel
// centre.
func (*Module) MorphologyEx(src, dst cvmod.MatHandle, op int, kernel cvmod.MatHandle, p cvmod.MorphParams) error {
	s, d, k, err := resolveMorph(src, dst, kernel)
	if err != nil {
		return err
	}
	if !defaultAnchor(p) {
		return fmt.Errorf("%w: morphologyEx anchor %+v", cvmod.ErrUnsupported, p.Anchor)
	}
	return gocv.MorphologyExWithParams(s.m, &d.m, gocv.MorphType(op), k.m, p.Iterations, gocv.BorderType(p.BorderType))
}

// GetStructuringElement implements cvmod.Module.
func (*Module) GetStructuringElement(shape int, ksize cvmod.Size) (cvmod.MatHandle, error) {
	if ksize.Width <= 0 || ksize.Height <= 0 {
		return nil, fmt.Errorf("%w: kernel size %dx%d", ErrOutOfRange, ksize.Width, ksize.Height)
	}
	return newRoot(gocv.GetStructuringElement(gocv.MorphShape(shape), image.Pt(ksize.Width, ksize.Height))), nil
}

// pointSet is a gocv.PointVector, owned or borrowed from a contour vector.
type pointSet struct {
	pv      gocv.PointVector
	parent  *contours
	deleted bool
}

var _ cvmod.PointSetHandle = (*pointSet)(nil)

func (p *pointSet) alive() error {
	if p.parent != nil {
		return p.parent.alive()
	}
	if p.deleted {
		return ErrDeleted
	}
	return nil
}

func (p *pointSet) Len() int {
	if p.alive() != nil {
		return 0
	}
	return p.pv.Size()
}

func (p *pointSet) Points() []cvmod.Point {
	if p.alive() != nil {
		return nil
	}
	return fromImagePoints(p.pv.ToPoints())
}

func (p *pointSet) Delete() error {
	if p.parent != nil {
		return p.parent.alive()
	}
	if p.deleted {
		return ErrDeleted
	}
	p.deleted = true
	p.pv.Close()
	return nil
}

func resolvePoints(h cvmod.PointSetHandle) (*pointSet, error) {
	p, ok := h.(*pointSet)
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignHandle, h)
	}
	return p, p.alive()
}

// contours is a gocv.PointsVector.
type contours struct {
	pv      gocv.PointsVector
	deleted bool
}

var _ cvmod.ContourVectorHandle = (*contours)(nil)

func (c *contours) alive() error {
	if c.deleted {
		return ErrDeleted
	}
	return nil
}

func (c *contours) Len() int {
	if c.deleted {
		return 0
	}
	return c.pv.Size()
}

func (c *contours) At(i int) (cvmod.PointSetHandle, error) {
	if err := c.alive(); err != nil {
		return nil, err
	}
	if i < 0 || i >= c.pv.Size() {
		return nil, fmt.Errorf("%w: contour %d of %d", ErrOutOfRange, i, c.pv.Size())
	}
	return &pointSet{pv: c.pv.At(i), parent: c}, nil
}

func (c *contours) Delete() error {
	if c.deleted {
		return ErrDeleted
	}
	c.deleted = true
	c.pv.Close()
	return nil
}

// FindContours implements cvmod.Module. gocv has no offset argument, so a
// non-zero offset rebuilds the vector with shifted points.
func (*Module) FindContours(img cvmod.MatHandle, mode, method int, offset cvmod.Point) (cvmod.ContourVectorHandle, error) {
	s, err := resolve(img)
	if err != nil {
		return nil, err
	}
	pv := gocv.FindContours(s.m, gocv.RetrievalMode(mode), gocv.ContourApproximationMode(method))
	if offset != (cvmod.Point{}) {
		shifted := gocv.NewPointsVectorFromPoints(shift(pv.ToPoints(), offset))
		pv.Close()
		pv = shifted
	}
	return &contours{pv: pv}, nil
}

// DrawContours implements cvmod.Module.
func (*Module) DrawContours(img cvmod.MatHandle, cs cvmod.ContourVectorHandle, idx int, color cvmod.Scalar, thickness int) error {
	d, err := resolve(img)
	if err != nil {
		return err
	}
	c, ok := cs.(*contours)
	if !ok || c == nil {
		return fmt.Errorf("%w: %T", ErrForeignHandle, cs)
	}
	if err := c.alive(); err != nil {
		return err
	}
	if idx >= c.pv.Size() {
		return fmt.Errorf("%w: contour %d of %d", ErrOutOfRange, idx, c.pv.Size())
	}
	return gocv.DrawContours(&d.m, c.pv, idx, toRGBA(color), thickness)
}

// ContourArea implements cvmod.Module. gocv only returns the absolute area,
// so oriented areas are computed from the points.
func (*Module) ContourArea(contour cvmod.PointSetHandle, oriented bool) (float64, error) {
	p, err := resolvePoints(contour)
	if err != nil {
		return 0, err
	}
	if oriented {
		return area(p.Points(), true), nil
	}
	return gocv.ContourArea(p.pv), nil
}

// ArcLength implements cvmod.Module.
func (*Module) ArcLength(curve cvmod.PointSetHandle, closed bool) (float64, error) {
	p, err := resolvePoints(curve)
	if err != nil {
		return 0, err
	}
	return gocv.ArcLength(p.pv, closed), nil
}

// ApproxPolyDP implements cvmod.Module.
func (*Module) ApproxPolyDP(curve cvmod.PointSetHandle, epsilon float64, closed bool) (cvmod.PointSetHandle, error) {
	p, err := resolvePoints(curve)
	if err != nil {
		return nil, err
	}
	return &pointSet{pv: gocv.ApproxPolyDP(p.pv, epsilon, closed)}, nil
}

// BoundingRect implements cvmod.Module.
func (*Module) BoundingRect(points cvmod.PointSetHandle) (cvmod.Rect, error) {
	p, err := resolvePoints(points)
	if err != nil {
		return cvmod.Rect{}, err
	}
	return toRect(gocv.BoundingRect(p.pv)), nil
}

// MinAreaRect implements cvmod.Module.
func (*Module) MinAreaRect(points cvmod.PointSetHandle) (cvmod.RotatedRect, error) {
	p, err := resolvePoints(points)
	if err != nil {
		return cvmod.RotatedRect{}, err
	}
	r := gocv.MinAreaRect(p.pv)
	return cvmod.RotatedRect{
		Center: cvmod.Point{X: r.Center.X, Y: r.Center.Y},
		Size:   cvmod.Size{Width: r.Width, Height: r.Height},
		Angle:  r.Angle,
	}, nil
}

// Line implements cvmod.Module. gocv's line has no line type or shift
// argument and always draws LINE_8 without shift.
func (*Module) Line(img cvmod.MatHandle, pt1, pt2 cvmod.Point, color cvmod.Scalar, s cvmod.Stroke) error {
	d, err := resolve(img)
	if err != nil {
		return err
	}
	if s.LineType != cvmod.StandardConstants["LINE_8"] || s.Shift != 0 {
		return fmt.Errorf("%w: line type %d shift %d", cvmod.ErrUnsupported, s.LineType, s.Shift)
	}
	return gocv.Line(&d.m, toImagePoint(pt1), toImagePoint(pt2), toRGBA(color), s.Thickness)
}

// Rectangle implements cvmod.Module.
func (*Module) Rectangle(img cvmod.MatHandle, pt1, pt2 cvmod.Point, color cvmod.Scalar, s cvmod.Stroke) error {
	d, err := resolve(img)
	if err != nil {
		return err
	}
	r := image.Rectangle{Min: toImagePoint(pt1), Max: toImagePoint(pt2)}.Canon()
	return gocv.RectangleWithParams(&d.m, r, toRGBA(color), s.Thickness, gocv.LineType(s.LineType), s.Shift)
}

// Circle implements cvmod.Module.
func (*Module) Circle(img cvmod.MatHandle, center cvmod.Point, radius int, color cvmod.Scalar, s cvmod.Stroke) error {
	d, err := resolve(img)
	if err != nil {
		return err
	}
	return gocv.CircleWithParams(&d.m, toImagePoint(center), radius, toRGBA(color), s.Thickness, gocv.LineType(s.LineType), s.Shift)
}

// Ellipse implements cvmod.Module.
func (*Module) Ellipse(img cvmod.MatHandle, center cvmod.Point, axes cvmod.Size, angle, startAngle, endAngle float64, color cvmod.Scalar, s cvmod.Stroke) error {
	d, err := resolve(img)
	if err != nil {
		return err
	}
	return gocv.EllipseWithParams(&d.m, toImagePoint(center), image.Pt(axes.Width, axes.Height), angle, startAngle, endAngle,
		toRGBA(color), s.Thickness, gocv.LineType(s.LineType), s.Shift)
}

// PutText implements cvmod.Module.
func (*Module) PutText(img cvmod.MatHandle, text string, org cvmod.Point, fontFace int, fontScale float64, color cvmod.Scalar, s cvmod.Stroke, bottomLeftOrigin bool) error {
	d, err := resolve(img)
	if err != nil {
		return err
	}
	return gocv.PutTextWithParams(&d.m, text, toImagePoint(org), gocv.HersheyFont(fontFace), fontScale,
		toRGBA(color), s.Thickness, gocv.LineType(s.LineType), bottomLeftOrigin)
}

// FillPoly implements cvmod.Module.
func (*Module) FillPoly(img cvmod.MatHandle, pts []cvmod.Point, color cvmod.Scalar) error {
	d, err := resolve(img)
	if err != nil {
		return err
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{toImagePoints(pts)})
	defer pv.Close()
	return gocv.FillPoly(&d.m, pv, toRGBA(color))
}

type classifier struct {
	c       gocv.CascadeClassifier
	deleted bool
}

// NewCascadeClassifier implements cvmod.Module.
func (*Module) NewCascadeClassifier() (cvmod.ClassifierHandle, error) {
	return &classifier{c: gocv.NewCascadeClassifier()}, nil
}

func (c *classifier) Load(path string) bool {
	if c.deleted {
		return false
	}
	return c.c.Load(path)
}

func (c *classifier) DetectMultiScale(img cvmod.MatHandle, p cvmod.DetectParams) ([]cvmod.Rect, error) {
	if c.deleted {
		return nil, ErrDeleted
	}
	s, err := resolve(img)
	if err != nil {
		return nil, err
	}
	found := c.c.DetectMultiScaleWithParams(s.m, p.ScaleFactor, p.MinNeighbors, p.Flags,
		image.Pt(p.MinSize.Width, p.MinSize.Height), image.Pt(p.MaxSize.Width, p.MaxSize.Height))
	out := make([]cvmod.Rect, len(found))
	for i, r := range found {
		out[i] = toRect(r)
	}
	return out, nil
}

func (c *classifier) Delete() error {
	if c.deleted {
		return ErrDeleted
	}
	c.deleted = true
	return c.c.Close()
}

type orb struct {
	o       gocv.ORB
	deleted bool
}

// ORB defaults from cv::ORB::create.
const (
	orbFeatures      = 500
	orbScaleFactor   = 1.2
	orbLevels        = 8
	orbEdgeThreshold = 31
	orbFirstLevel    = 0
	orbWTAK          = 2
	orbPatchSize     = 31
	orbFastThreshold = 20
)

// NewORB implements cvmod.Module. nfeatures <= 0 selects OpenCV's default.
func (*Module) NewORB(nfeatures int) (cvmod.FeatureDetectorHandle, error) {
	if nfeatures <= 0 {
		nfeatures = orbFeatures
	}
	o := gocv.NewORBWithParams(nfeatures, orbScaleFactor, orbLevels, orbEdgeThreshold, orbFirstLevel,
		orbWTAK, gocv.ORBScoreTypeHarris, orbPatchSize, orbFastThreshold)
	return &orb{o: o}, nil
}

func fromKeyPoints(kps []gocv.KeyPoint) []cvmod.KeyPoint {
	out := make([]cvmod.KeyPoint, len(kps))
	for i, k := range kps {
		out[i] = cvmod.KeyPoint{X: k.X, Y: k.Y, Size: k.Size, Angle: k.Angle, Response: k.Response, Octave: k.Octave, ClassID: k.ClassID}
	}
	return out
}

func toKeyPoints(kps []cvmod.KeyPoint) []gocv.KeyPoint {
	out := make([]gocv.KeyPoint, len(kps))
	for i, k := range kps {
		out[i] = gocv.KeyPoint{X: k.X, Y: k.Y, Size: k.Size, Angle: k.Angle, Response: k.Response, Octave: k.Octave, ClassID: k.ClassID}
	}
	return out
}

// store moves a freshly computed descriptor matrix into dst.
func store(desc gocv.Mat, dst cvmod.MatHandle) error {
	defer desc.Close()
	d, err := resolve(dst)
	if err != nil {
		return err
	}
	return desc.CopyTo(&d.m)
}

func (o *orb) Detect(img cvmod.MatHandle) ([]cvmod.KeyPoint, error) {
	if o.deleted {
		return nil, ErrDeleted
	}
	s, err := resolve(img)
	if err != nil {
		return nil, err
	}
	return fromKeyPoints(o.o.Detect(s.m)), nil
}

func (o *orb) Compute(img cvmod.MatHandle, keypoints []cvmod.KeyPoint, descriptors cvmod.MatHandle) ([]cvmod.KeyPoint, error) {
	if o.deleted {
		return nil, ErrDeleted
	}
	s, err := resolve(img)
	if err != nil {
		return nil, err
	}
	mask := gocv.NewMat()
	defer mask.Close()
	kps, desc := o.o.Compute(s.m, mask, toKeyPoints(keypoints))
	if err := store(desc, descriptors); err != nil {
		return nil, err
	}
	return fromKeyPoints(kps), nil
}

func (o *orb) DetectAndCompute(img, mask, descriptors cvmod.MatHandle) ([]cvmod.KeyPoint, error) {
	if o.deleted {
		return nil, ErrDeleted
	}
	s, m, err := resolvePair(img, mask)
	if err != nil {
		return nil, err
	}
	kps := o.o.Detect(s.m)
	if len(kps) == 0 {
		return nil, store(gocv.NewMat(), descriptors)
	}
	kept, desc := o.o.Compute(s.m, m.m, kps)
	if err := store(desc, descriptors); err != nil {
		return nil, err
	}
	return fromKeyPoints(kept), nil
}

func (o *orb) Delete() error {
	if o.deleted {
		return ErrDeleted
	}
	o.deleted = true
	return o.o.Close()
}
