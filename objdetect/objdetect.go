// Package objdetect wraps the foreign cascade classifier and ORB feature
// detector. Both hold a foreign handle and follow the cv release rules:
// Release deletes the handle once and later calls do nothing.
package objdetect

import (
	"errors"

	"go.uber.org/zap"

	"cvbridge/cv"
	"cvbridge/cvmod"
)

// Detector defaults.
const (
	DefaultScaleFactor  = 1.1
	DefaultMinNeighbors = 3
	DefaultORBFeatures  = 500
)

// ErrNotLoaded is returned by DetectMultiScale before a successful Load.
var ErrNotLoaded = errors.New("objdetect: classifier has no cascade loaded")

// Detection is one object found by a cascade classifier.
type Detection struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns d as a rectangle.
func (d Detection) Rect() cvmod.Rect {
	return cvmod.Rect{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}
}

// DetectionOptions tune DetectMultiScale. Zero fields take the defaults;
// zero sizes leave the object size unbounded.
type DetectionOptions struct {
	ScaleFactor  float64
	MinNeighbors int
	Flags        int
	MinSize      cvmod.Size
	MaxSize      cvmod.Size
}

func (o *DetectionOptions) params() cvmod.DetectParams {
	p := cvmod.DetectParams{ScaleFactor: DefaultScaleFactor, MinNeighbors: DefaultMinNeighbors}
	if o == nil {
		return p
	}
	if o.ScaleFactor != 0 {
		p.ScaleFactor = o.ScaleFactor
	}
	if o.MinNeighbors != 0 {
		p.MinNeighbors = o.MinNeighbors
	}
	p.Flags = o.Flags
	p.MinSize = o.MinSize
	p.MaxSize = o.MaxSize
	return p
}

// CascadeClassifier detects objects with a trained Haar or LBP cascade.
type CascadeClassifier struct {
	rt       *cv.Runtime
	handle   cvmod.ClassifierHandle
	loaded   bool
	released bool
}

// NewCascadeClassifier creates a classifier on the default runtime.
func NewCascadeClassifier() (*CascadeClassifier, error) {
	rt, err := cv.Default()
	if err != nil {
		return nil, err
	}
	return NewCascadeClassifierFor(rt)
}

// NewCascadeClassifierFor creates a classifier on rt.
func NewCascadeClassifierFor(rt *cv.Runtime) (*CascadeClassifier, error) {
	h, err := rt.Module().NewCascadeClassifier()
	if err != nil {
		return nil, err
	}
	return &CascadeClassifier{rt: rt, handle: h}, nil
}

// Load reads a cascade file and reports whether it could be used.
func (c *CascadeClassifier) Load(path string) bool {
	if c == nil || c.released {
		return false
	}
	c.loaded = c.handle.Load(path)
	if !c.loaded {
		c.rt.Logger().Debug("Cascade not loaded", zap.String("path", path))
	}
	return c.loaded
}

// DetectMultiScale finds objects of different sizes in img.
func (c *CascadeClassifier) DetectMultiScale(img *cv.Mat, opts *DetectionOptions) ([]Detection, error) {
	if c == nil || c.released {
		return nil, cv.ErrReleased
	}
	if !c.loaded {
		return nil, ErrNotLoaded
	}
	if err := c.rt.Check(img); err != nil {
		return nil, err
	}
	rects, err := c.handle.DetectMultiScale(img.Handle(), opts.params())
	if err != nil {
		return nil, err
	}
	out := make([]Detection, len(rects))
	for i, r := range rects {
		out[i] = Detection{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	}
	return out, nil
}

// Release deletes the foreign classifier. Repeated calls do nothing.
func (c *CascadeClassifier) Release() error {
	if c == nil || c.released {
		return nil
	}
	c.released = true
	return c.handle.Delete()
}

// ORBDetector finds ORB keypoints and computes their binary descriptors.
type ORBDetector struct {
	rt       *cv.Runtime
	handle   cvmod.FeatureDetectorHandle
	released bool
}

// NewORBDetector creates a detector on the default runtime. nfeatures caps
// the number of keypoints and defaults to 500.
func NewORBDetector(nfeatures int) (*ORBDetector, error) {
	rt, err := cv.Default()
	if err != nil {
		return nil, err
	}
	return NewORBDetectorFor(rt, nfeatures)
}

// NewORBDetectorFor creates a detector on rt.
func NewORBDetectorFor(rt *cv.Runtime, nfeatures int) (*ORBDetector, error) {
	if nfeatures <= 0 {
		nfeatures = DefaultORBFeatures
	}
	h, err := rt.Module().NewORB(nfeatures)
	if err != nil {
		return nil, err
	}
	return &ORBDetector{rt: rt, handle: h}, nil
}

func (o *ORBDetector) check(img *cv.Mat) error {
	if o == nil || o.released {
		return cv.ErrReleased
	}
	return o.rt.Check(img)
}

// Detect returns the keypoints found in img.
func (o *ORBDetector) Detect(img *cv.Mat) ([]cvmod.KeyPoint, error) {
	if err := o.check(img); err != nil {
		return nil, err
	}
	return o.handle.Detect(img.Handle())
}

// Compute describes keypoints in img. It returns the keypoints that
// survived and an owning descriptor matrix with one row per keypoint.
func (o *ORBDetector) Compute(img *cv.Mat, keypoints []cvmod.KeyPoint) ([]cvmod.KeyPoint, *cv.Mat, error) {
	if err := o.check(img); err != nil {
		return nil, nil, err
	}
	desc := o.rt.Empty()
	kps, err := o.handle.Compute(img.Handle(), keypoints, desc.Handle())
	if err != nil {
		o.rt.SafeRelease(desc)
		return nil, nil, err
	}
	return kps, desc, nil
}

// DetectAndCompute detects keypoints over the whole image and describes them
// in one pass. The descriptor matrix is owned by the caller.
func (o *ORBDetector) DetectAndCompute(img *cv.Mat) ([]cvmod.KeyPoint, *cv.Mat, error) {
	if err := o.check(img); err != nil {
		return nil, nil, err
	}
	mask := o.rt.Empty()
	defer o.rt.SafeRelease(mask)

	desc := o.rt.Empty()
	kps, err := o.handle.DetectAndCompute(img.Handle(), mask.Handle(), desc.Handle())
	if err != nil {
		o.rt.SafeRelease(desc)
		return nil, nil, err
	}
	return kps, desc, nil
}

// Release deletes the foreign detector. Repeated calls do nothing.
func (o *ORBDetector) Release() error {
	if o == nil || o.released {
		return nil
	}
	o.released = true
	return o.handle.Delete()
}

var (
	_ cv.Releaser = (*CascadeClassifier)(nil)
	_ cv.Releaser = (*ORBDetector)(nil)
)
