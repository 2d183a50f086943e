// Package fakecv is an in-memory cvmod.Module.
//
// Buffers have real storage for every depth and channel count, so clone,
// copy, convert, fill and views behave like the real library. Everything
// that allocates is counted, and a second Delete of the same object is
// reported as ErrDoubleFree instead of corrupting memory, which makes the
// module a strict mock for release discipline.
//
// Colour conversion, resize, threshold and the contour measurements compute
// real results. The remaining filters copy their source unchanged; tests
// assert on the recorded calls instead.
package fakecv

import (
	"errors"
	"fmt"
	"sync"

	"cvbridge/cvmod"
)

// Errors reported by the fake module.
var (
	ErrDoubleFree    = errors.New("fakecv: object deleted twice")
	ErrUseAfterFree  = errors.New("fakecv: object used after delete")
	ErrOutOfRange    = errors.New("fakecv: index out of range")
	ErrSizeMismatch  = errors.New("fakecv: data length does not match buffer size")
	ErrInvalidType   = errors.New("fakecv: invalid buffer type")
	ErrForeignHandle = errors.New("fakecv: handle belongs to another module")
)

// Call is one recorded invocation of a free function.
type Call struct {
	Name string
	Args []any
}

// Module is the fake foreign module. The zero value is not usable; call New.
type Module struct {
	name      string
	constants map[string]int

	mu          sync.Mutex
	live        int
	allocs      int
	frees       int
	doubleFrees int
	calls       []Call
	failures    map[string]error

	contours   [][]cvmod.Point
	detections []cvmod.Rect
	keypoints  []cvmod.KeyPoint
}

// Option configures a Module.
type Option func(*Module)

// WithName sets the name reported by Name.
func WithName(name string) Option {
	return func(m *Module) { m.name = name }
}

// WithoutConstants removes names from the constant table, producing an
// incomplete module.
func WithoutConstants(names ...string) Option {
	return func(m *Module) {
		for _, n := range names {
			delete(m.constants, n)
		}
	}
}

// New returns a fake module serving the standard OpenCV constant values.
func New(opts ...Option) *Module {
	m := &Module{
		name:      "fake",
		constants: make(map[string]int, len(cvmod.StandardConstants)),
		failures:  make(map[string]error),
	}
	for k, v := range cvmod.StandardConstants {
		m.constants[k] = v
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ cvmod.Module = (*Module)(nil)

// Name implements cvmod.Module.
func (m *Module) Name() string { return m.name }

// Constant implements cvmod.Module.
func (m *Module) Constant(name string) (int, bool) {
	v, ok := m.constants[name]
	return v, ok
}

// Live returns the number of allocated objects not yet deleted.
func (m *Module) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// Allocs returns the number of objects ever allocated.
func (m *Module) Allocs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocs
}

// Frees returns the number of successful deletes.
func (m *Module) Frees() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frees
}

// DoubleFrees returns the number of deletes of already deleted objects.
func (m *Module) DoubleFrees() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doubleFrees
}

// Calls returns a copy of every recorded call in order.
func (m *Module) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent call to the named function.
func (m *Module) LastCall(name string) (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Name == name {
			return m.calls[i], true
		}
	}
	return Call{}, false
}

// FailNext makes the next call to the named function return err.
// Names match the Module method names ("GaussianBlur", "Clone", "Delete").
func (m *Module) FailNext(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[name] = err
}

// SetContours sets the contours returned by FindContours.
func (m *Module) SetContours(contours [][]cvmod.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contours = contours
}

// SetDetections sets the rectangles returned by classifier detection.
func (m *Module) SetDetections(rects []cvmod.Rect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = rects
}

// SetKeyPoints sets the keypoints returned by feature detection.
func (m *Module) SetKeyPoints(kps []cvmod.KeyPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keypoints = kps
}

// record appends a call and returns the injected failure for it, if any.
func (m *Module) record(name string, args ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Name: name, Args: args})
	return m.takeFailure(name)
}

func (m *Module) takeFailure(name string) error {
	if err, ok := m.failures[name]; ok {
		delete(m.failures, name)
		return err
	}
	return nil
}

// failure consumes an injected failure without recording a call.
func (m *Module) failure(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takeFailure(name)
}

// object is the allocation bookkeeping shared by every deletable fake.
type object struct {
	mod     *Module
	deleted bool
}

func (m *Module) track() object {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live++
	m.allocs++
	return object{mod: m}
}

func (o *object) alive() error {
	if o.deleted {
		return ErrUseAfterFree
	}
	return nil
}

func (o *object) free() error {
	o.mod.mu.Lock()
	defer o.mod.mu.Unlock()
	if err := o.mod.takeFailure("Delete"); err != nil {
		return err
	}
	if o.deleted {
		o.mod.doubleFrees++
		return ErrDoubleFree
	}
	o.deleted = true
	o.mod.live--
	o.mod.frees++
	return nil
}

func (m *Module) mat(h cvmod.MatHandle) (*Mat, error) {
	fm, ok := h.(*Mat)
	if !ok || fm == nil || fm.root.obj.mod != m {
		return nil, fmt.Errorf("%w: %T", ErrForeignHandle, h)
	}
	if err := fm.alive(); err != nil {
		return nil, err
	}
	return fm, nil
}

func (m *Module) pointSet(h cvmod.PointSetHandle) (*PointSet, error) {
	ps, ok := h.(*PointSet)
	if !ok || ps == nil {
		return nil, fmt.Errorf("%w: %T", ErrForeignHandle, h)
	}
	if err := ps.alive(); err != nil {
		return nil, err
	}
	return ps, nil
}
