package cv

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"cvbridge/cvmod"
	"cvbridge/fakecv"
)

var allDepths = []cvmod.Depth{
	cvmod.Depth8U, cvmod.Depth8S, cvmod.Depth16U, cvmod.Depth16S,
	cvmod.Depth32S, cvmod.Depth32F, cvmod.Depth64F,
}

// patternValues returns n values that exercise signs and fractions but stay
// representable in every depth.
func patternValues(d cvmod.Depth, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		v := float64(i%100) + 1
		switch d {
		case cvmod.Depth8S, cvmod.Depth16S, cvmod.Depth32S:
			if i%2 == 1 {
				v = -v
			}
		case cvmod.Depth32F, cvmod.Depth64F:
			v += 0.25
		}
		out[i] = v
	}
	return out
}

func TestClone_AllTypesIdentical(t *testing.T) {
	rt, _ := newTestRuntime(t)

	for _, d := range allDepths {
		for ch := 1; ch <= 4; ch++ {
			typ := cvmod.MakeType(d, ch)
			t.Run(typ.String(), func(t *testing.T) {
				const rows, cols = 3, 5
				src := mustMat(t)(rt.NewMatFromArray(rows, cols, typ, patternValues(d, rows*cols*ch)))
				dst := mustMat(t)(src.Clone())

				if !dst.Owns() {
					t.Error("Clone() result does not own its handle")
				}
				if dst.Type() != typ || dst.Rows() != rows || dst.Cols() != cols {
					t.Fatalf("Clone() = %s, want %dx%d %s", dst, rows, cols, typ)
				}
				for r := 0; r < rows; r++ {
					for c := 0; c < cols; c++ {
						for k := 0; k < ch; k++ {
							want, _ := src.At(r, c, k)
							got, err := dst.At(r, c, k)
							if err != nil {
								t.Fatalf("At(%d,%d,%d) error: %v", r, c, k, err)
							}
							if got != want {
								t.Fatalf("At(%d,%d,%d) = %v, want %v", r, c, k, got, want)
							}
						}
					}
				}
			})
		}
	}
}

func TestRelease_OwnerTwiceFreesOnce(t *testing.T) {
	rt, mod := newTestRuntime(t)

	m, err := rt.NewMat(4, 4, cvmod.CV8UC4)
	if err != nil {
		t.Fatalf("NewMat() error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := m.Release(); err != nil {
			t.Fatalf("Release() #%d error: %v", i+1, err)
		}
	}

	if mod.Frees() != 1 {
		t.Errorf("Frees() = %d, want 1", mod.Frees())
	}
	if mod.DoubleFrees() != 0 {
		t.Errorf("DoubleFrees() = %d, want 0", mod.DoubleFrees())
	}
	if mod.Live() != 0 {
		t.Errorf("Live() = %d, want 0", mod.Live())
	}
	if !m.Released() {
		t.Error("Released() = false after Release")
	}
}

func TestRelease_FailedDeleteStillMarksReleased(t *testing.T) {
	rt, mod := newTestRuntime(t)

	m, err := rt.NewMat(1, 1, cvmod.CV8UC1)
	if err != nil {
		t.Fatalf("NewMat() error: %v", err)
	}
	boom := errors.New("delete failed")
	mod.FailNext("Delete", boom)

	if err := m.Release(); !errors.Is(err, boom) {
		t.Fatalf("Release() error = %v, want %v", err, boom)
	}
	if err := m.Release(); err != nil {
		t.Errorf("second Release() error = %v, want nil", err)
	}
	if mod.Frees() != 0 || mod.DoubleFrees() != 0 {
		t.Errorf("Frees()/DoubleFrees() = %d/%d, want 0/0", mod.Frees(), mod.DoubleFrees())
	}
}

func TestRelease_NilMat(t *testing.T) {
	var m *Mat
	if err := m.Release(); err != nil {
		t.Errorf("Release() on nil error = %v", err)
	}
	if !m.Released() {
		t.Error("nil Mat should report Released")
	}
}

func TestZeroValueMat(t *testing.T) {
	rt, _ := newTestRuntime(t)
	m := &Mat{}

	if err := m.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if !m.Released() {
		t.Error("zero Mat should report Released")
	}
	if _, err := m.Clone(); !errors.Is(err, ErrNilMat) {
		t.Errorf("Clone() error = %v, want ErrNilMat", err)
	}
	if err := rt.Check(m); !errors.Is(err, ErrNilMat) {
		t.Errorf("Check() error = %v, want ErrNilMat", err)
	}
	expectPanic(t, ErrNilMat, func() { _ = m.Rows() })
}

func TestViews_ReleaseIsNoOpAndParentNotBlocked(t *testing.T) {
	rt, mod := newTestRuntime(t)

	parent, err := rt.NewMatFromArray(3, 4, cvmod.CV8UC1, patternValues(cvmod.Depth8U, 12))
	if err != nil {
		t.Fatalf("NewMatFromArray() error: %v", err)
	}

	row, err := parent.Row(1)
	if err != nil {
		t.Fatalf("Row() error: %v", err)
	}
	col, err := parent.Col(2)
	if err != nil {
		t.Fatalf("Col() error: %v", err)
	}
	region, err := parent.Region(NewRect(1, 1, 2, 2))
	if err != nil {
		t.Fatalf("Region() error: %v", err)
	}
	nested, err := region.Row(0)
	if err != nil {
		t.Fatalf("Row() of region error: %v", err)
	}

	views := map[string]*Mat{"row": row, "col": col, "region": region, "nested": nested}
	for name, v := range views {
		if v.Owns() {
			t.Errorf("%s view owns its handle", name)
		}
		if err := v.Release(); err != nil {
			t.Errorf("%s Release() error: %v", name, err)
		}
		if v.Released() {
			t.Errorf("%s view reports released after its own Release", name)
		}
	}
	if mod.Frees() != 0 {
		t.Fatalf("view Release freed memory: Frees() = %d", mod.Frees())
	}

	// Views alias the parent.
	if got, _ := row.UCharAt(0, 0); got != 5 {
		t.Errorf("row(1)[0] = %d, want 5", got)
	}
	if got, _ := nested.UCharAt(0, 1); got != 7 {
		t.Errorf("region(1,1,2,2).row(0)[1] = %d, want 7", got)
	}

	if err := parent.Release(); err != nil {
		t.Fatalf("parent Release() with live views error: %v", err)
	}
	if mod.Frees() != 1 || mod.Live() != 0 {
		t.Errorf("Frees()/Live() = %d/%d, want 1/0", mod.Frees(), mod.Live())
	}

	for name, v := range views {
		if !v.Released() {
			t.Errorf("%s view still valid after parent release", name)
		}
		if _, err := v.Data(); !errors.Is(err, ErrReleased) {
			t.Errorf("%s Data() after parent release error = %v, want ErrReleased", name, err)
		}
		if err := v.Release(); err != nil {
			t.Errorf("%s Release() after parent release error = %v", name, err)
		}
	}
}

func TestViews_WriteThrough(t *testing.T) {
	rt, _ := newTestRuntime(t)

	parent := mustMat(t)(rt.NewMat(2, 3, cvmod.CV8UC1))
	region, err := parent.Region(NewRect(1, 0, 2, 2))
	if err != nil {
		t.Fatalf("Region() error: %v", err)
	}
	if _, err := region.Fill(9); err != nil {
		t.Fatalf("Fill() error: %v", err)
	}

	got, err := parent.Data()
	if err != nil {
		t.Fatalf("Data() error: %v", err)
	}
	want := []byte{0, 9, 9, 0, 9, 9}
	if !bytes.Equal(got, want) {
		t.Errorf("parent data = %v, want %v", got, want)
	}
}

func TestViews_BoundsErrorsComeFromModule(t *testing.T) {
	rt, _ := newTestRuntime(t)
	m := mustMat(t)(rt.NewMat(2, 2, cvmod.CV8UC1))

	if _, err := m.Row(5); !errors.Is(err, fakecv.ErrOutOfRange) {
		t.Errorf("Row(5) error = %v, want module's ErrOutOfRange", err)
	}
	if _, err := m.Col(-1); !errors.Is(err, fakecv.ErrOutOfRange) {
		t.Errorf("Col(-1) error = %v, want module's ErrOutOfRange", err)
	}
	if _, err := m.Region(NewRect(1, 1, 2, 2)); !errors.Is(err, fakecv.ErrOutOfRange) {
		t.Errorf("Region() error = %v, want module's ErrOutOfRange", err)
	}
}

func TestAfterRelease_AccessorsPanicAndOperationsFail(t *testing.T) {
	rt, _ := newTestRuntime(t)
	m, err := rt.NewMat(2, 2, cvmod.CV8UC1)
	if err != nil {
		t.Fatalf("NewMat() error: %v", err)
	}
	if err := m.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	accessors := map[string]func(){
		"Rows":     func() { m.Rows() },
		"Cols":     func() { m.Cols() },
		"Type":     func() { m.Type() },
		"Channels": func() { m.Channels() },
		"IsEmpty":  func() { m.IsEmpty() },
		"Size":     func() { m.Size() },
		"Handle":   func() { m.Handle() },
	}
	for name, fn := range accessors {
		t.Run(name, func(t *testing.T) {
			expectPanic(t, ErrReleased, fn)
		})
	}

	ops := map[string]func() error{
		"Clone":     func() error { _, err := m.Clone(); return err },
		"ConvertTo": func() error { _, err := m.ConvertTo(cvmod.CV32FC1); return err },
		"SetTo":     func() error { _, err := m.SetTo(NewScalar(1)); return err },
		"Row":       func() error { _, err := m.Row(0); return err },
		"At":        func() error { _, err := m.At(0, 0, 0); return err },
		"Data":      func() error { _, err := m.Data(); return err },
		"ToImage":   func() error { _, err := m.ToImageData(); return err },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrReleased) {
			t.Errorf("%s after release error = %v, want ErrReleased", name, err)
		}
	}

	if got := m.String(); got != "Mat(released)" {
		t.Errorf("String() = %q", got)
	}
}

func TestConvertTo_ScaleAndOffset(t *testing.T) {
	rt, _ := newTestRuntime(t)

	tests := []struct {
		name  string
		src   cvmod.MatType
		value float64
		to    cvmod.MatType
		alpha float64
		beta  float64
		want  float64
	}{
		{"8U to 8U", cvmod.CV8UC1, 5, cvmod.CV8UC1, 2, 1, 11},
		{"8U to 32F", cvmod.CV8UC1, 5, cvmod.CV32FC1, 2, 1, 11},
		{"32F to 16S", cvmod.CV32FC1, 5, cvmod.MakeType(cvmod.Depth16S, 1), 2, 1, 11},
		{"saturates high", cvmod.CV8UC1, 200, cvmod.CV8UC1, 2, 1, 255},
		{"saturates low", cvmod.CV32FC1, 5, cvmod.CV8UC1, -2, 1, 0},
		{"rounds half to even", cvmod.CV32FC1, 2.5, cvmod.CV8UC1, 1, 0, 2},
		{"defaults keep values", cvmod.CV8UC1, 7, cvmod.CV32FC1, 1, 0, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := mustMat(t)(rt.NewMatFromArray(1, 1, tt.src, []float64{tt.value}))
			out := mustMat(t)(src.ConvertToWithParams(tt.to, tt.alpha, tt.beta))

			if out.Depth() != tt.to.Depth() {
				t.Errorf("depth = %s, want %s", out.Depth(), tt.to.Depth())
			}
			got, err := out.DoubleAt(0, 0)
			if err != nil {
				t.Fatalf("DoubleAt() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("convert(%v, %v, %v) = %v, want %v", tt.value, tt.alpha, tt.beta, got, tt.want)
			}
		})
	}
}

func TestConvertTo_ForeignErrorReleasesOutput(t *testing.T) {
	rt, mod := newTestRuntime(t)
	src := mustMat(t)(rt.NewMat(1, 1, cvmod.CV8UC1))

	boom := errors.New("convert failed")
	mod.FailNext("ConvertTo", boom)
	before := mod.Live()

	if _, err := src.ConvertTo(cvmod.CV32FC1); !errors.Is(err, boom) {
		t.Fatalf("ConvertTo() error = %v, want foreign error unchanged", err)
	}
	if mod.Live() != before {
		t.Errorf("Live() = %d, want %d: output leaked on error", mod.Live(), before)
	}
}

func TestSetTo_ReturnsReceiver(t *testing.T) {
	rt, _ := newTestRuntime(t)
	m := mustMat(t)(rt.NewMat(2, 2, cvmod.CV8UC3))

	got, err := m.SetTo(NewScalar(1, 2, 3))
	if err != nil {
		t.Fatalf("SetTo() error: %v", err)
	}
	if got != m {
		t.Error("SetTo() should return its receiver")
	}
	for ch, want := range []float64{1, 2, 3} {
		if v, _ := m.At(1, 1, ch); v != want {
			t.Errorf("channel %d = %v, want %v", ch, v, want)
		}
	}
}

func TestCopyTo(t *testing.T) {
	rt, _ := newTestRuntime(t)
	src := mustMat(t)(rt.NewMatFromArray(2, 2, cvmod.CV8UC1, []float64{1, 2, 3, 4}))
	dst := mustMat(t)(rt.NewMat(0, 0, cvmod.CV8UC1))

	if err := src.CopyTo(dst); err != nil {
		t.Fatalf("CopyTo() error: %v", err)
	}
	got, _ := dst.Data()
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("dst data = %v", got)
	}

	if err := src.CopyTo(nil); !errors.Is(err, ErrNilMat) {
		t.Errorf("CopyTo(nil) error = %v, want ErrNilMat", err)
	}
}

func TestNewMatFromBytes_LengthCheckedByModule(t *testing.T) {
	rt, mod := newTestRuntime(t)

	_, err := rt.NewMatFromBytes(2, 2, cvmod.CV8UC1, []byte{1, 2, 3})
	if !errors.Is(err, fakecv.ErrSizeMismatch) {
		t.Errorf("NewMatFromBytes() error = %v, want module's ErrSizeMismatch", err)
	}
	if mod.Live() != 0 {
		t.Errorf("Live() = %d after failed create", mod.Live())
	}
}

func TestTypedAccessors(t *testing.T) {
	rt, _ := newTestRuntime(t)

	tests := []struct {
		typ   cvmod.MatType
		value float64
	}{
		{cvmod.CV8UC1, 200},
		{cvmod.MakeType(cvmod.Depth32S, 1), -70000},
		{cvmod.CV32FC1, 1.5},
		{cvmod.MakeType(cvmod.Depth64F, 1), 1e10},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			m := mustMat(t)(rt.NewMatFromArray(1, 1, tt.typ, []float64{tt.value}))
			switch tt.typ.Depth() {
			case cvmod.Depth8U:
				if v, _ := m.UCharAt(0, 0); float64(v) != tt.value {
					t.Errorf("UCharAt() = %v", v)
				}
			case cvmod.Depth32S:
				if v, _ := m.IntAt(0, 0); float64(v) != tt.value {
					t.Errorf("IntAt() = %v", v)
				}
			case cvmod.Depth32F:
				if v, _ := m.FloatAt(0, 0); float64(v) != tt.value {
					t.Errorf("FloatAt() = %v", v)
				}
			default:
				if v, _ := m.DoubleAt(0, 0); v != tt.value {
					t.Errorf("DoubleAt() = %v", v)
				}
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	rt, _ := newTestRuntime(t)
	m := mustMat(t)(rt.NewMat(3, 5, cvmod.CV8UC3))

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"Rows", m.Rows(), 3},
		{"Cols", m.Cols(), 5},
		{"Height", m.Height(), 3},
		{"Width", m.Width(), 5},
		{"Channels", m.Channels(), 3},
		{"Depth", m.Depth(), cvmod.Depth8U},
		{"Total", m.Total(), 15},
		{"Size", m.Size(), cvmod.Size{Width: 5, Height: 3}},
		{"ElemSize", m.ElemSize(), 3},
		{"IsEmpty", m.IsEmpty(), false},
		{"String", m.String(), fmt.Sprintf("Mat(3x5 %s owner)", cvmod.CV8UC3)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	empty := rt.Empty()
	defer empty.Release()
	if !empty.IsEmpty() {
		t.Error("Empty().IsEmpty() = false")
	}
}
