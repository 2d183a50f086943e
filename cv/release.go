package cv

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Releaser is anything holding foreign memory that must be freed explicitly.
type Releaser interface {
	Release() error
}

// isNil reports whether r is a nil interface or a typed nil pointer.
func isNil(r Releaser) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func describe(r Releaser) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", r)
}

// releaseOne frees r, converting both errors and panics into warnings.
func releaseOne(logger *zap.Logger, index int, r Releaser) {
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("Panic while releasing resource",
				zap.Int("index", index),
				zap.String("resource", fmt.Sprintf("%T", r)),
				zap.Any("panic", p))
		}
	}()
	if err := r.Release(); err != nil {
		logger.Warn("Failed to release resource",
			zap.Int("index", index),
			zap.String("resource", describe(r)),
			zap.Error(err))
	}
}

func safeRelease(logger *zap.Logger, items []Releaser) {
	for i, r := range items {
		if isNil(r) {
			continue
		}
		releaseOne(logger, i, r)
	}
}

// SafeRelease releases every item independently. Nil items are skipped, and
// a failing or panicking release is logged as a warning without stopping the
// rest. It never returns an error, so it is fit for cleanup paths.
func (rt *Runtime) SafeRelease(items ...Releaser) {
	safeRelease(rt.logger, items)
}

// SafeRelease releases items, logging through the registered runtime's logger
// or the global zap logger when Init has not run.
func SafeRelease(items ...Releaser) {
	safeRelease(defaultLogger(), items)
}

// Scope collects resources allocated along one code path and releases them
// together. Typical use:
//
//	s := rt.NewScope()
//	defer s.Close()
//	gray, err := imgproc.CvtColor(src, code)
//	if err != nil {
//		return nil, err
//	}
//	s.Track(gray)
//	...
//	return s.Keep(result), nil
type Scope struct {
	logger *zap.Logger

	mu    sync.Mutex
	items []Releaser
}

// NewScope returns a scope that logs through rt's logger.
func (rt *Runtime) NewScope() *Scope {
	return &Scope{logger: rt.logger}
}

// NewScope returns a scope that logs like SafeRelease.
func NewScope() *Scope {
	return &Scope{logger: defaultLogger()}
}

// Track adds resources to the scope. Nil items are ignored.
func (s *Scope) Track(items ...Releaser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range items {
		if !isNil(r) {
			s.items = append(s.items, r)
		}
	}
}

// Keep removes m from the scope so Close leaves it alone, and returns it.
// Use it for the value handed back to the caller.
func (s *Scope) Keep(m *Mat) *Mat {
	s.Forget(m)
	return m
}

// Forget removes r from the scope without releasing it.
func (s *Scope) Forget(r Releaser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i] == r {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Len returns the number of tracked resources.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close releases every tracked resource, newest first, and empties the scope.
// Failures are logged, never returned. Calling Close again does nothing.
func (s *Scope) Close() {
	s.mu.Lock()
	items := s.items
	s.items = nil
	s.mu.Unlock()

	reversed := make([]Releaser, len(items))
	for i, r := range items {
		reversed[len(items)-1-i] = r
	}
	safeRelease(s.logger, reversed)
}
