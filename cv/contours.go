package cv

import (
	"fmt"

	"cvbridge/cvmod"
)

// PointSet wraps a foreign point list such as one contour. Sets returned by
// Contours.At are views owned by the vector; sets returned by
// approximations own their handle.
type PointSet struct {
	rt     *Runtime
	handle cvmod.PointSetHandle
	owns   bool
	life   *lifetime
}

// WrapPointSet adopts a point-set handle produced by rt's module.
func (rt *Runtime) WrapPointSet(h cvmod.PointSetHandle, owns bool) *PointSet {
	return &PointSet{rt: rt, handle: h, owns: owns, life: &lifetime{}}
}

func (p *PointSet) check() error {
	if p == nil {
		return ErrNilMat
	}
	if p.life.released {
		return ErrReleased
	}
	return nil
}

// Handle returns the foreign handle for passing back to the module.
func (p *PointSet) Handle() (cvmod.PointSetHandle, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return p.handle, nil
}

// Runtime returns the runtime p was created from.
func (p *PointSet) Runtime() *Runtime { return p.rt }

// Owns reports whether p deletes its handle on Release.
func (p *PointSet) Owns() bool { return p.owns }

// Len returns the number of points. It panics after release.
func (p *PointSet) Len() int {
	if err := p.check(); err != nil {
		panic(err)
	}
	return p.handle.Len()
}

// Points returns a copy of the points.
func (p *PointSet) Points() ([]cvmod.Point, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return p.handle.Points(), nil
}

// Release deletes the point list if p owns it; views are left alone.
func (p *PointSet) Release() error {
	if p == nil || !p.owns || p.life.released {
		return nil
	}
	p.life.released = true
	return p.handle.Delete()
}

func (p *PointSet) String() string {
	if p == nil || p.life.released {
		return "PointSet(released)"
	}
	return fmt.Sprintf("PointSet(%d points)", p.handle.Len())
}

// Contours wraps an owning foreign contour vector.
type Contours struct {
	rt     *Runtime
	handle cvmod.ContourVectorHandle
	life   *lifetime
}

// WrapContours adopts a contour vector produced by rt's module.
func (rt *Runtime) WrapContours(h cvmod.ContourVectorHandle) *Contours {
	return &Contours{rt: rt, handle: h, life: &lifetime{}}
}

func (c *Contours) check() error {
	if c == nil {
		return ErrNilMat
	}
	if c.life.released {
		return ErrReleased
	}
	return nil
}

// Handle returns the foreign handle for passing back to the module.
func (c *Contours) Handle() (cvmod.ContourVectorHandle, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.handle, nil
}

// Runtime returns the runtime c was created from.
func (c *Contours) Runtime() *Runtime { return c.rt }

// Len returns the number of contours. It panics after release.
func (c *Contours) Len() int {
	if err := c.check(); err != nil {
		panic(err)
	}
	return c.handle.Len()
}

// At returns contour i as a view that becomes invalid when c is released.
func (c *Contours) At(i int) (*PointSet, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	h, err := c.handle.At(i)
	if err != nil {
		return nil, err
	}
	return &PointSet{rt: c.rt, handle: h, owns: false, life: c.life}, nil
}

// Release deletes the vector. Repeated calls do nothing.
func (c *Contours) Release() error {
	if c == nil || c.life.released {
		return nil
	}
	c.life.released = true
	return c.handle.Delete()
}

func (c *Contours) String() string {
	if c == nil || c.life.released {
		return "Contours(released)"
	}
	return fmt.Sprintf("Contours(%d)", c.handle.Len())
}
