package fakecv

import (
	"errors"
	"fmt"

	"cvbridge/cvmod"
)

// Mat is a fake buffer. Views share the byte slice of their root and are
// valid only while the root is.
type Mat struct {
	obj  object // meaningful on roots only
	root *Mat

	data   []byte
	rows   int
	cols   int
	typ    cvmod.MatType
	offset int
	step   int
}

var _ cvmod.MatHandle = (*Mat)(nil)

func validType(t cvmod.MatType) bool {
	return t >= 0 && t.Depth().Valid() && t.Channels() >= 1 && t.Channels() <= 4
}

func (m *Module) newRoot(rows, cols int, t cvmod.MatType, data []byte) *Mat {
	fm := &Mat{
		obj:  m.track(),
		data: data,
		rows: rows,
		cols: cols,
		typ:  t,
		step: cols * t.PixelSize(),
	}
	fm.root = fm
	return fm
}

// NewMat implements cvmod.Module.
func (m *Module) NewMat() cvmod.MatHandle {
	return m.newRoot(0, 0, cvmod.CV8UC1, nil)
}

// NewMatWithSize implements cvmod.Module.
func (m *Module) NewMatWithSize(rows, cols int, t cvmod.MatType) (cvmod.MatHandle, error) {
	if err := m.failure("NewMatWithSize"); err != nil {
		return nil, err
	}
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrOutOfRange, rows, cols)
	}
	if !validType(t) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, int(t))
	}
	return m.newRoot(rows, cols, t, make([]byte, rows*cols*t.PixelSize())), nil
}

// NewMatFromBytes implements cvmod.Module.
func (m *Module) NewMatFromBytes(rows, cols int, t cvmod.MatType, data []byte) (cvmod.MatHandle, error) {
	if err := m.failure("NewMatFromBytes"); err != nil {
		return nil, err
	}
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrOutOfRange, rows, cols)
	}
	if !validType(t) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, int(t))
	}
	want := rows * cols * t.PixelSize()
	if len(data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(data), want)
	}
	buf := make([]byte, want)
	copy(buf, data)
	return m.newRoot(rows, cols, t, buf), nil
}

func (fm *Mat) mod() *Module { return fm.root.obj.mod }

func (fm *Mat) alive() error { return fm.root.obj.alive() }

func (fm *Mat) isView() bool { return fm.root != fm }

func (fm *Mat) rowBytes() int { return fm.cols * fm.typ.PixelSize() }

func (fm *Mat) index(row, col int) int {
	return fm.offset + row*fm.step + col*fm.typ.PixelSize()
}

// Rows implements cvmod.MatHandle.
func (fm *Mat) Rows() int { return fm.rows }

// Cols implements cvmod.MatHandle.
func (fm *Mat) Cols() int { return fm.cols }

// Type implements cvmod.MatHandle.
func (fm *Mat) Type() cvmod.MatType { return fm.typ }

// Empty implements cvmod.MatHandle.
func (fm *Mat) Empty() bool { return fm.rows == 0 || fm.cols == 0 }

// Bytes implements cvmod.MatHandle.
func (fm *Mat) Bytes() ([]byte, error) {
	if err := fm.alive(); err != nil {
		return nil, err
	}
	n := fm.rowBytes()
	out := make([]byte, 0, fm.rows*n)
	for r := 0; r < fm.rows; r++ {
		start := fm.index(r, 0)
		out = append(out, fm.data[start:start+n]...)
	}
	return out, nil
}

// At implements cvmod.MatHandle.
func (fm *Mat) At(row, col, channel int) (float64, error) {
	if err := fm.alive(); err != nil {
		return 0, err
	}
	if row < 0 || row >= fm.rows || col < 0 || col >= fm.cols || channel < 0 || channel >= fm.typ.Channels() {
		return 0, fmt.Errorf("%w: (%d,%d,%d) in %dx%d %s", ErrOutOfRange, row, col, channel, fm.rows, fm.cols, fm.typ)
	}
	i := fm.index(row, col) + channel*fm.typ.ElemSize()
	return cvmod.Sample(fm.data[i:], fm.typ.Depth()), nil
}

// samples decodes the buffer into row-major float64 samples.
func (fm *Mat) samples() ([]float64, error) {
	b, err := fm.Bytes()
	if err != nil {
		return nil, err
	}
	return cvmod.DecodeSamples(fm.typ.Depth(), b), nil
}

// assign replaces the content of fm with a continuous buffer. Matching
// geometry is written in place so views keep observing it; anything else
// reallocates, which views cannot do.
func (fm *Mat) assign(rows, cols int, t cvmod.MatType, data []byte) error {
	if err := fm.alive(); err != nil {
		return err
	}
	if fm.rows == rows && fm.cols == cols && fm.typ == t {
		n := fm.rowBytes()
		for r := 0; r < rows; r++ {
			copy(fm.data[fm.index(r, 0):], data[r*n:(r+1)*n])
		}
		return nil
	}
	if fm.isView() {
		return fmt.Errorf("%w: cannot reallocate a view from %dx%d %s to %dx%d %s",
			ErrSizeMismatch, fm.rows, fm.cols, fm.typ, rows, cols, t)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	fm.data = buf
	fm.rows, fm.cols, fm.typ = rows, cols, t
	fm.offset = 0
	fm.step = cols * t.PixelSize()
	return nil
}

func (fm *Mat) assignSamples(rows, cols int, t cvmod.MatType, samples []float64) error {
	return fm.assign(rows, cols, t, cvmod.EncodeSamples(t.Depth(), samples))
}

// Clone implements cvmod.MatHandle.
func (fm *Mat) Clone() (cvmod.MatHandle, error) {
	if err := fm.mod().failure("Clone"); err != nil {
		return nil, err
	}
	b, err := fm.Bytes()
	if err != nil {
		return nil, err
	}
	return fm.mod().newRoot(fm.rows, fm.cols, fm.typ, b), nil
}

// CopyTo implements cvmod.MatHandle.
func (fm *Mat) CopyTo(dst cvmod.MatHandle) error {
	if err := fm.mod().failure("CopyTo"); err != nil {
		return err
	}
	d, err := fm.mod().mat(dst)
	if err != nil {
		return err
	}
	b, err := fm.Bytes()
	if err != nil {
		return err
	}
	return d.assign(fm.rows, fm.cols, fm.typ, b)
}

// ConvertTo implements cvmod.MatHandle. Only the depth of t is used; the
// channel count is kept, as in OpenCV.
func (fm *Mat) ConvertTo(dst cvmod.MatHandle, t cvmod.MatType, alpha, beta float64) error {
	if err := fm.mod().failure("ConvertTo"); err != nil {
		return err
	}
	d, err := fm.mod().mat(dst)
	if err != nil {
		return err
	}
	if !t.Depth().Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidType, int(t))
	}
	in, err := fm.samples()
	if err != nil {
		return err
	}
	for i, v := range in {
		in[i] = v*alpha + beta
	}
	return d.assignSamples(fm.rows, fm.cols, cvmod.MakeType(t.Depth(), fm.typ.Channels()), in)
}

// SetTo implements cvmod.MatHandle.
func (fm *Mat) SetTo(value cvmod.Scalar) error {
	if err := fm.mod().failure("SetTo"); err != nil {
		return err
	}
	if err := fm.alive(); err != nil {
		return err
	}
	ch := fm.typ.Channels()
	es := fm.typ.ElemSize()
	for r := 0; r < fm.rows; r++ {
		for c := 0; c < fm.cols; c++ {
			base := fm.index(r, c)
			for k := 0; k < ch; k++ {
				cvmod.PutSample(fm.data[base+k*es:], fm.typ.Depth(), value[k])
			}
		}
	}
	return nil
}

func (fm *Mat) view(rect cvmod.Rect) *Mat {
	return &Mat{
		root:   fm.root,
		data:   fm.data,
		rows:   rect.Height,
		cols:   rect.Width,
		typ:    fm.typ,
		offset: fm.index(rect.Y, rect.X),
		step:   fm.step,
	}
}

// Row implements cvmod.MatHandle.
func (fm *Mat) Row(y int) (cvmod.MatHandle, error) {
	if err := fm.alive(); err != nil {
		return nil, err
	}
	if y < 0 || y >= fm.rows {
		return nil, fmt.Errorf("%w: row %d of %d", ErrOutOfRange, y, fm.rows)
	}
	return fm.view(cvmod.Rect{X: 0, Y: y, Width: fm.cols, Height: 1}), nil
}

// Col implements cvmod.MatHandle.
func (fm *Mat) Col(x int) (cvmod.MatHandle, error) {
	if err := fm.alive(); err != nil {
		return nil, err
	}
	if x < 0 || x >= fm.cols {
		return nil, fmt.Errorf("%w: col %d of %d", ErrOutOfRange, x, fm.cols)
	}
	return fm.view(cvmod.Rect{X: x, Y: 0, Width: 1, Height: fm.rows}), nil
}

// Region implements cvmod.MatHandle.
func (fm *Mat) Region(r cvmod.Rect) (cvmod.MatHandle, error) {
	if err := fm.alive(); err != nil {
		return nil, err
	}
	if r.X < 0 || r.Y < 0 || r.Width < 0 || r.Height < 0 ||
		r.X+r.Width > fm.cols || r.Y+r.Height > fm.rows {
		return nil, fmt.Errorf("%w: region %+v of %dx%d", ErrOutOfRange, r, fm.rows, fm.cols)
	}
	return fm.view(r), nil
}

// Delete implements cvmod.MatHandle. Deleting a view header releases nothing.
func (fm *Mat) Delete() error {
	if fm.isView() {
		return fm.alive()
	}
	return fm.obj.free()
}

// IsDeleted reports whether the buffer backing fm has been freed.
func (fm *Mat) IsDeleted() bool {
	return errors.Is(fm.alive(), ErrUseAfterFree)
}
