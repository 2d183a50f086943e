package objdetect

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"cvbridge/cv"
	"cvbridge/cvmod"
	"cvbridge/fakecv"
)

func newTestRuntime(t *testing.T) (*cv.Runtime, *fakecv.Module) {
	t.Helper()
	mod := fakecv.New()
	rt, err := cv.NewRuntime(mod, cv.WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("NewRuntime() error: %v", err)
	}
	t.Cleanup(func() {
		if mod.Live() != 0 || mod.DoubleFrees() != 0 {
			t.Errorf("Live()/DoubleFrees() = %d/%d, want 0/0", mod.Live(), mod.DoubleFrees())
		}
	})
	return rt, mod
}

func newImage(t *testing.T, rt *cv.Runtime) *cv.Mat {
	t.Helper()
	img, err := rt.NewMat(16, 16, cvmod.CV8UC1)
	if err != nil {
		t.Fatalf("NewMat() error: %v", err)
	}
	t.Cleanup(func() { _ = img.Release() })
	return img
}

func writeCascade(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cascade.xml")
	if err := os.WriteFile(path, []byte("<opencv_storage/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCascadeClassifier(t *testing.T) {
	rt, mod := newTestRuntime(t)
	img := newImage(t, rt)
	mod.SetDetections([]cvmod.Rect{{X: 1, Y: 2, Width: 3, Height: 4}})

	c, err := NewCascadeClassifierFor(rt)
	if err != nil {
		t.Fatalf("NewCascadeClassifierFor() error: %v", err)
	}
	defer c.Release()

	if _, err := c.DetectMultiScale(img, nil); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("DetectMultiScale() before Load error = %v, want ErrNotLoaded", err)
	}
	if c.Load(filepath.Join(t.TempDir(), "missing.xml")) {
		t.Error("Load() of a missing file succeeded")
	}
	if !c.Load(writeCascade(t)) {
		t.Fatal("Load() failed")
	}

	tests := []struct {
		name string
		opts *DetectionOptions
		want cvmod.DetectParams
	}{
		{"defaults", nil, cvmod.DetectParams{ScaleFactor: 1.1, MinNeighbors: 3}},
		{"zero fields take defaults", &DetectionOptions{MinSize: cvmod.Size{Width: 8, Height: 8}},
			cvmod.DetectParams{ScaleFactor: 1.1, MinNeighbors: 3, MinSize: cvmod.Size{Width: 8, Height: 8}}},
		{"overrides", &DetectionOptions{ScaleFactor: 1.3, MinNeighbors: 5, Flags: 2},
			cvmod.DetectParams{ScaleFactor: 1.3, MinNeighbors: 5, Flags: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.DetectMultiScale(img, tt.opts)
			if err != nil {
				t.Fatalf("DetectMultiScale() error: %v", err)
			}
			if len(got) != 1 || got[0] != (Detection{X: 1, Y: 2, Width: 3, Height: 4}) {
				t.Errorf("DetectMultiScale() = %+v", got)
			}
			call, _ := mod.LastCall("DetectMultiScale")
			if call.Args[0] != tt.want {
				t.Errorf("params = %+v, want %+v", call.Args[0], tt.want)
			}
		})
	}

	if err := c.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if err := c.Release(); err != nil {
		t.Errorf("second Release() error: %v", err)
	}
	if _, err := c.DetectMultiScale(img, nil); !errors.Is(err, cv.ErrReleased) {
		t.Errorf("DetectMultiScale() after release error = %v", err)
	}
	if c.Load(writeCascade(t)) {
		t.Error("Load() after release succeeded")
	}
}

func TestDetectionRect(t *testing.T) {
	d := Detection{X: 5, Y: 6, Width: 7, Height: 8}
	if d.Rect() != cv.NewRect(5, 6, 7, 8) {
		t.Errorf("Rect() = %+v", d.Rect())
	}
}

func TestNewCascadeClassifierRequiresInit(t *testing.T) {
	if cv.Ready() {
		t.Skip("default runtime already registered")
	}
	if _, err := NewCascadeClassifier(); err == nil {
		t.Error("NewCascadeClassifier() before Init should fail")
	}
	if _, err := NewORBDetector(0); err == nil {
		t.Error("NewORBDetector() before Init should fail")
	}
}

func TestORBDetector(t *testing.T) {
	rt, mod := newTestRuntime(t)
	img := newImage(t, rt)
	mod.SetKeyPoints([]cvmod.KeyPoint{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}})

	orb, err := NewORBDetectorFor(rt, 0)
	if err != nil {
		t.Fatalf("NewORBDetectorFor() error: %v", err)
	}
	defer orb.Release()
	if call, _ := mod.LastCall("NewORB"); call.Args[0] != DefaultORBFeatures {
		t.Errorf("NewORB nfeatures = %v, want %d", call.Args[0], DefaultORBFeatures)
	}

	kps, err := orb.Detect(img)
	if err != nil || len(kps) != 3 {
		t.Fatalf("Detect() = %v, %v", kps, err)
	}

	kept, desc, err := orb.Compute(img, kps[:2])
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if len(kept) != 2 || desc.Rows() != 2 || !desc.Owns() {
		t.Errorf("Compute() = %d keypoints, descriptors %v", len(kept), desc)
	}
	_ = desc.Release()

	kps, desc, err = orb.DetectAndCompute(img)
	if err != nil {
		t.Fatalf("DetectAndCompute() error: %v", err)
	}
	if len(kps) != 3 || desc.Rows() != 3 {
		t.Errorf("DetectAndCompute() = %d keypoints, %v", len(kps), desc)
	}
	_ = desc.Release()

	boom := errors.New("boom")
	mod.FailNext("Compute", boom)
	if _, desc, err := orb.Compute(img, kps); !errors.Is(err, boom) || desc != nil {
		t.Errorf("Compute() with module failure = %v, %v", desc, err)
	}

	if err := orb.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if _, err := orb.Detect(img); !errors.Is(err, cv.ErrReleased) {
		t.Errorf("Detect() after release error = %v", err)
	}
}

func TestORBRejectsForeignImage(t *testing.T) {
	rt, _ := newTestRuntime(t)
	other, _ := newTestRuntime(t)
	orb, err := NewORBDetectorFor(rt, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer orb.Release()

	if _, err := orb.Detect(newImage(t, other)); !errors.Is(err, cv.ErrRuntimeMismatch) {
		t.Errorf("Detect() error = %v, want ErrRuntimeMismatch", err)
	}
}
