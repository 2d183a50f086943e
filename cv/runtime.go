// Package cv is the typed binding over a foreign image-processing module.
//
// The module is registered once with Init (or wrapped in an explicit Runtime
// with NewRuntime) and every buffer created through the package carries the
// runtime that made it. Buffers hold foreign memory the Go collector cannot
// see: each owning *Mat must be released exactly once, either with a deferred
// Release, with SafeRelease, or by tracking it in a Scope.
//
// Ownership rules:
//   - Constructors, Clone, ConvertTo and every imgproc result return owners.
//   - Row, Col and Region return views. Releasing a view does nothing, and
//     releasing the owner invalidates every view derived from it.
//   - Accessors on a released buffer panic with ErrReleased; operations that
//     return an error return ErrReleased instead.
package cv

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"cvbridge/core"
	"cvbridge/cvmod"
)

// initFunc is the registration entry point named in not-initialized errors.
const initFunc = "cv.Init"

// Errors returned by the binding.
var (
	// ErrNotInitialized matches any error caused by using the package-level
	// functions before Init.
	ErrNotInitialized = core.ErrModuleNotInitialized(initFunc)

	// ErrAlreadyInitialized matches the error of a second Init.
	ErrAlreadyInitialized = &core.ConfigError{Code: core.ErrCodeModuleAlreadyReady}

	ErrNilModule         = errors.New("cv: module is nil")
	ErrReleased          = errors.New("cv: buffer already released")
	ErrUnsupportedLayout = errors.New("cv: unsupported buffer layout for image data")
	ErrNilMat            = errors.New("cv: nil buffer")
	ErrRuntimeMismatch   = errors.New("cv: buffers belong to different runtimes")
)

// Runtime binds a foreign module to the buffers created from it.
type Runtime struct {
	module cvmod.Module
	logger *zap.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for release warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// NewRuntime wraps m after checking that it defines every required constant.
// Only presence is checked; the values are the module's business.
func NewRuntime(m cvmod.Module, opts ...Option) (*Runtime, error) {
	if m == nil {
		return nil, ErrNilModule
	}
	if missing := cvmod.MissingConstants(m); len(missing) > 0 {
		return nil, core.ErrModuleIncomplete(m.Name(), missing)
	}
	rt := &Runtime{
		module: m,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt, nil
}

// Module returns the wrapped foreign module.
func (rt *Runtime) Module() cvmod.Module { return rt.module }

// Logger returns the logger used for release warnings.
func (rt *Runtime) Logger() *zap.Logger { return rt.logger }

// Constant returns the value of a named module constant. Names were checked
// at construction, so a miss means a name outside the required set.
func (rt *Runtime) Constant(name string) (int, bool) {
	return rt.module.Constant(name)
}

var (
	registryMu     sync.RWMutex
	defaultRuntime *Runtime
)

// Init registers m as the process-wide module. It must be called exactly
// once before any package-level operation; a second call fails with an error
// matching ErrAlreadyInitialized and leaves the first registration in place.
func Init(m cvmod.Module, opts ...Option) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if defaultRuntime != nil {
		return core.ErrModuleAlreadyInitialized(defaultRuntime.module.Name())
	}
	rt, err := NewRuntime(m, opts...)
	if err != nil {
		return err
	}
	defaultRuntime = rt
	return nil
}

// Ready reports whether Init has succeeded.
func Ready() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return defaultRuntime != nil
}

// Default returns the runtime installed by Init.
func Default() (*Runtime, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if defaultRuntime == nil {
		return nil, ErrNotInitialized
	}
	return defaultRuntime, nil
}

// Module returns the registered foreign module.
func Module() (cvmod.Module, error) {
	rt, err := Default()
	if err != nil {
		return nil, err
	}
	return rt.module, nil
}

// defaultLogger is the logger for package-level helpers that must work
// whether or not Init ran.
func defaultLogger() *zap.Logger {
	if rt, err := Default(); err == nil {
		return rt.logger
	}
	return zap.L()
}
