package cv

import (
	"fmt"

	"cvbridge/cvmod"
)

// lifetime is shared by an owner and every view derived from it.
type lifetime struct {
	released bool
}

// Mat wraps one foreign buffer handle.
type Mat struct {
	rt     *Runtime
	handle cvmod.MatHandle
	owns   bool
	life   *lifetime
}

// Wrap adopts a handle produced by rt's module. When owns is true the
// returned Mat is responsible for deleting it.
func (rt *Runtime) Wrap(h cvmod.MatHandle, owns bool) *Mat {
	return &Mat{rt: rt, handle: h, owns: owns, life: &lifetime{}}
}

// view wraps an aliasing handle that lives and dies with m's owner.
func (m *Mat) view(h cvmod.MatHandle) *Mat {
	return &Mat{rt: m.rt, handle: h, owns: false, life: m.life}
}

// NewMat allocates a zero-filled rows x cols buffer of type t.
func (rt *Runtime) NewMat(rows, cols int, t cvmod.MatType) (*Mat, error) {
	h, err := rt.module.NewMatWithSize(rows, cols, t)
	if err != nil {
		return nil, err
	}
	return rt.Wrap(h, true), nil
}

// NewMatFromBytes allocates a buffer initialised from data. The length of
// data is not checked here; the foreign module decides what it accepts.
func (rt *Runtime) NewMatFromBytes(rows, cols int, t cvmod.MatType, data []byte) (*Mat, error) {
	h, err := rt.module.NewMatFromBytes(rows, cols, t, data)
	if err != nil {
		return nil, err
	}
	return rt.Wrap(h, true), nil
}

// NewMatFromArray allocates a buffer from numbers, encoding each one to the
// element depth of t with saturation.
func (rt *Runtime) NewMatFromArray(rows, cols int, t cvmod.MatType, values []float64) (*Mat, error) {
	return rt.NewMatFromBytes(rows, cols, t, cvmod.EncodeSamples(t.Depth(), values))
}

// Empty allocates an owning zero-size buffer, the usual output argument of
// a foreign call.
func (rt *Runtime) Empty() *Mat {
	return rt.Wrap(rt.module.NewMat(), true)
}

// NewMat allocates a buffer through the registered module.
func NewMat(rows, cols int, t cvmod.MatType) (*Mat, error) {
	rt, err := Default()
	if err != nil {
		return nil, err
	}
	return rt.NewMat(rows, cols, t)
}

// NewMatFromBytes allocates an initialised buffer through the registered module.
func NewMatFromBytes(rows, cols int, t cvmod.MatType, data []byte) (*Mat, error) {
	rt, err := Default()
	if err != nil {
		return nil, err
	}
	return rt.NewMatFromBytes(rows, cols, t, data)
}

// NewMatFromArray allocates a buffer from numbers through the registered module.
func NewMatFromArray(rows, cols int, t cvmod.MatType, values []float64) (*Mat, error) {
	rt, err := Default()
	if err != nil {
		return nil, err
	}
	return rt.NewMatFromArray(rows, cols, t, values)
}

// Empty allocates an empty owning buffer through the registered module.
func Empty() (*Mat, error) {
	rt, err := Default()
	if err != nil {
		return nil, err
	}
	return rt.Empty(), nil
}

// Released reports whether m, or the owner m is a view of, has been released.
// A nil Mat counts as released.
func (m *Mat) Released() bool {
	return m == nil || m.life == nil || m.life.released
}

// check reports ErrNilMat for nil and zero-value buffers, which were never
// wrapped around a handle.
func (m *Mat) check() error {
	if m == nil || m.life == nil || m.handle == nil {
		return ErrNilMat
	}
	if m.life.released {
		return ErrReleased
	}
	return nil
}

// mustHandle is used by accessors, which have no error to return.
func (m *Mat) mustHandle() cvmod.MatHandle {
	if err := m.check(); err != nil {
		panic(err)
	}
	return m.handle
}

// Handle returns the foreign handle. It panics after release.
func (m *Mat) Handle() cvmod.MatHandle { return m.mustHandle() }

// Runtime returns the runtime m was created from.
func (m *Mat) Runtime() *Runtime { return m.rt }

// Owns reports whether m deletes its handle on Release.
func (m *Mat) Owns() bool { return m.owns }

// The accessors below are pure pass-through queries. Like Handle, they
// panic with ErrReleased once the buffer has been released.

func (m *Mat) Rows() int           { return m.mustHandle().Rows() }
func (m *Mat) Cols() int           { return m.mustHandle().Cols() }
func (m *Mat) Height() int         { return m.Rows() }
func (m *Mat) Width() int          { return m.Cols() }
func (m *Mat) Type() cvmod.MatType { return m.mustHandle().Type() }
func (m *Mat) Channels() int       { return m.Type().Channels() }
func (m *Mat) Depth() cvmod.Depth  { return m.Type().Depth() }
func (m *Mat) IsEmpty() bool       { return m.mustHandle().Empty() }
func (m *Mat) Total() int          { return m.Rows() * m.Cols() }
func (m *Mat) Size() cvmod.Size    { return cvmod.Size{Width: m.Cols(), Height: m.Rows()} }
func (m *Mat) ElemSize() int       { return m.Type().PixelSize() }

// At reads one sample as float64.
func (m *Mat) At(row, col, channel int) (float64, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	return m.handle.At(row, col, channel)
}

// UCharAt reads the first channel of a pixel as a byte.
func (m *Mat) UCharAt(row, col int) (uint8, error) {
	v, err := m.At(row, col, 0)
	return uint8(cvmod.Saturate(cvmod.Depth8U, v)), err
}

// IntAt reads the first channel of a pixel as an int32.
func (m *Mat) IntAt(row, col int) (int32, error) {
	v, err := m.At(row, col, 0)
	return int32(cvmod.Saturate(cvmod.Depth32S, v)), err
}

// FloatAt reads the first channel of a pixel as a float32.
func (m *Mat) FloatAt(row, col int) (float32, error) {
	v, err := m.At(row, col, 0)
	return float32(v), err
}

// DoubleAt reads the first channel of a pixel as a float64.
func (m *Mat) DoubleAt(row, col int) (float64, error) {
	return m.At(row, col, 0)
}

// Data returns a continuous copy of the samples in row-major order.
func (m *Mat) Data() ([]byte, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	return m.handle.Bytes()
}

// Values decodes every sample to float64 in row-major, channel-minor order.
func (m *Mat) Values() ([]float64, error) {
	b, err := m.Data()
	if err != nil {
		return nil, err
	}
	return cvmod.DecodeSamples(m.handle.Type().Depth(), b), nil
}

// Row returns a view of row y.
func (m *Mat) Row(y int) (*Mat, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	h, err := m.handle.Row(y)
	if err != nil {
		return nil, err
	}
	return m.view(h), nil
}

// Col returns a view of column x.
func (m *Mat) Col(x int) (*Mat, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	h, err := m.handle.Col(x)
	if err != nil {
		return nil, err
	}
	return m.view(h), nil
}

// Region returns a view of the rectangle r.
func (m *Mat) Region(r cvmod.Rect) (*Mat, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	h, err := m.handle.Region(r)
	if err != nil {
		return nil, err
	}
	return m.view(h), nil
}

// Clone returns an owning deep copy.
func (m *Mat) Clone() (*Mat, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	h, err := m.handle.Clone()
	if err != nil {
		return nil, err
	}
	return m.rt.Wrap(h, true), nil
}

// CopyTo copies m into dst, reallocating dst when its geometry differs.
func (m *Mat) CopyTo(dst *Mat) error {
	if err := m.check(); err != nil {
		return err
	}
	if err := dst.check(); err != nil {
		return err
	}
	return m.handle.CopyTo(dst.handle)
}

// ConvertTo returns an owning copy converted to the depth of t.
func (m *Mat) ConvertTo(t cvmod.MatType) (*Mat, error) {
	return m.ConvertToWithParams(t, 1, 0)
}

// ConvertToWithParams returns an owning copy with every sample mapped to
// v*alpha + beta and saturated to the depth of t.
func (m *Mat) ConvertToWithParams(t cvmod.MatType, alpha, beta float64) (*Mat, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	out := m.rt.Empty()
	if err := m.handle.ConvertTo(out.handle, t, alpha, beta); err != nil {
		m.rt.SafeRelease(out)
		return nil, err
	}
	return out, nil
}

// SetTo fills every pixel with value and returns m for chaining.
func (m *Mat) SetTo(value cvmod.Scalar) (*Mat, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	if err := m.handle.SetTo(value); err != nil {
		return nil, err
	}
	return m, nil
}

// Fill sets every sample of every channel to v.
func (m *Mat) Fill(v float64) (*Mat, error) {
	return m.SetTo(cvmod.Scalar{v, v, v, v})
}

// Release deletes the foreign buffer if m owns it. It is safe to call more
// than once and on views, where it does nothing. A failed delete is returned
// but m is still marked released so it is never freed twice.
func (m *Mat) Release() error {
	if m == nil || !m.owns || m.Released() {
		return nil
	}
	m.life.released = true
	return m.handle.Delete()
}

func (m *Mat) String() string {
	if m.Released() {
		return "Mat(released)"
	}
	kind := "owner"
	if !m.owns {
		kind = "view"
	}
	return fmt.Sprintf("Mat(%dx%d %s %s)", m.handle.Rows(), m.handle.Cols(), m.handle.Type(), kind)
}

// Check returns an error unless every buffer is live and was created from rt.
// Operation shims call it before passing handles to the module.
func (rt *Runtime) Check(mats ...*Mat) error {
	for _, m := range mats {
		if err := m.check(); err != nil {
			return err
		}
		if m.rt != rt {
			return ErrRuntimeMismatch
		}
	}
	return nil
}
