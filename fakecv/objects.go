package fakecv

import (
	"fmt"
	"os"

	"cvbridge/cvmod"
)

// PointSet is a fake point list. Sets handed out by a ContourVector are owned
// by the vector and become invalid with it.
type PointSet struct {
	obj    object
	parent *ContourVector
	points []cvmod.Point
}

var _ cvmod.PointSetHandle = (*PointSet)(nil)

func (ps *PointSet) alive() error {
	if ps.parent != nil {
		return ps.parent.obj.alive()
	}
	return ps.obj.alive()
}

// Len implements cvmod.PointSetHandle.
func (ps *PointSet) Len() int { return len(ps.points) }

// Points implements cvmod.PointSetHandle.
func (ps *PointSet) Points() []cvmod.Point {
	out := make([]cvmod.Point, len(ps.points))
	copy(out, ps.points)
	return out
}

// Delete implements cvmod.PointSetHandle.
func (ps *PointSet) Delete() error {
	if ps.parent != nil {
		return ps.parent.obj.alive()
	}
	return ps.obj.free()
}

// NewPointSet allocates an owning point set, as the real module does for
// contour approximations.
func (m *Module) NewPointSet(points []cvmod.Point) *PointSet {
	ps := &PointSet{obj: m.track()}
	ps.points = append(ps.points, points...)
	return ps
}

// ContourVector is a fake list of contours.
type ContourVector struct {
	obj  object
	sets []*PointSet
}

var _ cvmod.ContourVectorHandle = (*ContourVector)(nil)

// Len implements cvmod.ContourVectorHandle.
func (cv *ContourVector) Len() int { return len(cv.sets) }

// At implements cvmod.ContourVectorHandle.
func (cv *ContourVector) At(i int) (cvmod.PointSetHandle, error) {
	if err := cv.obj.alive(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(cv.sets) {
		return nil, fmt.Errorf("%w: contour %d of %d", ErrOutOfRange, i, len(cv.sets))
	}
	return cv.sets[i], nil
}

// Delete implements cvmod.ContourVectorHandle.
func (cv *ContourVector) Delete() error { return cv.obj.free() }

func (m *Module) contourVector(h cvmod.ContourVectorHandle) (*ContourVector, error) {
	cv, ok := h.(*ContourVector)
	if !ok || cv == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignHandle, h)
	}
	if err := cv.obj.alive(); err != nil {
		return nil, err
	}
	return cv, nil
}

// Classifier is a fake cascade classifier. Load succeeds for any existing
// file; detection returns the rectangles set with SetDetections.
type Classifier struct {
	obj    object
	loaded string
}

var _ cvmod.ClassifierHandle = (*Classifier)(nil)

// NewCascadeClassifier implements cvmod.Module.
func (m *Module) NewCascadeClassifier() (cvmod.ClassifierHandle, error) {
	if err := m.record("NewCascadeClassifier"); err != nil {
		return nil, err
	}
	return &Classifier{obj: m.track()}, nil
}

// Load implements cvmod.ClassifierHandle.
func (c *Classifier) Load(path string) bool {
	if c.obj.alive() != nil {
		return false
	}
	_ = c.obj.mod.record("Load", path)
	if st, err := os.Stat(path); err != nil || st.IsDir() {
		return false
	}
	c.loaded = path
	return true
}

// DetectMultiScale implements cvmod.ClassifierHandle.
func (c *Classifier) DetectMultiScale(img cvmod.MatHandle, p cvmod.DetectParams) ([]cvmod.Rect, error) {
	if err := c.obj.alive(); err != nil {
		return nil, err
	}
	if err := c.obj.mod.record("DetectMultiScale", p); err != nil {
		return nil, err
	}
	if _, err := c.obj.mod.mat(img); err != nil {
		return nil, err
	}
	if c.loaded == "" {
		return nil, ErrNotLoaded
	}
	c.obj.mod.mu.Lock()
	defer c.obj.mod.mu.Unlock()
	return append([]cvmod.Rect(nil), c.obj.mod.detections...), nil
}

// Delete implements cvmod.ClassifierHandle.
func (c *Classifier) Delete() error { return c.obj.free() }

// descriptorBytes is the width of an ORB descriptor.
const descriptorBytes = 32

// FeatureDetector is a fake ORB. It reports the keypoints set with
// SetKeyPoints, capped at nfeatures, and zero descriptors.
type FeatureDetector struct {
	obj       object
	nfeatures int
}

var _ cvmod.FeatureDetectorHandle = (*FeatureDetector)(nil)

// NewORB implements cvmod.Module.
func (m *Module) NewORB(nfeatures int) (cvmod.FeatureDetectorHandle, error) {
	if err := m.record("NewORB", nfeatures); err != nil {
		return nil, err
	}
	return &FeatureDetector{obj: m.track(), nfeatures: nfeatures}, nil
}

func (f *FeatureDetector) keypoints() []cvmod.KeyPoint {
	f.obj.mod.mu.Lock()
	defer f.obj.mod.mu.Unlock()
	kps := f.obj.mod.keypoints
	if f.nfeatures > 0 && len(kps) > f.nfeatures {
		kps = kps[:f.nfeatures]
	}
	return append([]cvmod.KeyPoint(nil), kps...)
}

func (f *FeatureDetector) describe(kps []cvmod.KeyPoint, descriptors cvmod.MatHandle) error {
	d, err := f.obj.mod.mat(descriptors)
	if err != nil {
		return err
	}
	return d.assign(len(kps), descriptorBytes, cvmod.CV8UC1, make([]byte, len(kps)*descriptorBytes))
}

// Detect implements cvmod.FeatureDetectorHandle.
func (f *FeatureDetector) Detect(img cvmod.MatHandle) ([]cvmod.KeyPoint, error) {
	if err := f.obj.alive(); err != nil {
		return nil, err
	}
	if err := f.obj.mod.record("Detect"); err != nil {
		return nil, err
	}
	if _, err := f.obj.mod.mat(img); err != nil {
		return nil, err
	}
	return f.keypoints(), nil
}

// Compute implements cvmod.FeatureDetectorHandle.
func (f *FeatureDetector) Compute(img cvmod.MatHandle, keypoints []cvmod.KeyPoint, descriptors cvmod.MatHandle) ([]cvmod.KeyPoint, error) {
	if err := f.obj.alive(); err != nil {
		return nil, err
	}
	if err := f.obj.mod.record("Compute", len(keypoints)); err != nil {
		return nil, err
	}
	if _, err := f.obj.mod.mat(img); err != nil {
		return nil, err
	}
	if err := f.describe(keypoints, descriptors); err != nil {
		return nil, err
	}
	return append([]cvmod.KeyPoint(nil), keypoints...), nil
}

// DetectAndCompute implements cvmod.FeatureDetectorHandle.
func (f *FeatureDetector) DetectAndCompute(img, mask, descriptors cvmod.MatHandle) ([]cvmod.KeyPoint, error) {
	if err := f.obj.alive(); err != nil {
		return nil, err
	}
	if err := f.obj.mod.record("DetectAndCompute"); err != nil {
		return nil, err
	}
	if _, err := f.obj.mod.mat(img); err != nil {
		return nil, err
	}
	if _, err := f.obj.mod.mat(mask); err != nil {
		return nil, err
	}
	kps := f.keypoints()
	if err := f.describe(kps, descriptors); err != nil {
		return nil, err
	}
	return kps, nil
}

// Delete implements cvmod.FeatureDetectorHandle.
func (f *FeatureDetector) Delete() error { return f.obj.free() }
