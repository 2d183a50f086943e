package cv

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cvbridge/fakecv"
)

// resetDefault clears the process-wide registration.
func resetDefault() {
	registryMu.Lock()
	defer registryMu.Unlock()
	defaultRuntime = nil
}

// newTestRuntime returns a runtime over a fresh fake module and fails the
// test if anything it allocated is still live at cleanup.
func newTestRuntime(t *testing.T) (*Runtime, *fakecv.Module) {
	t.Helper()
	mod := fakecv.New()
	rt, err := NewRuntime(mod)
	if err != nil {
		t.Fatalf("NewRuntime() error: %v", err)
	}
	t.Cleanup(func() {
		if n := mod.DoubleFrees(); n != 0 {
			t.Errorf("fake module saw %d double frees", n)
		}
	})
	return rt, mod
}

// newObservedRuntime is newTestRuntime with release warnings captured.
func newObservedRuntime(t *testing.T) (*Runtime, *fakecv.Module, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	mod := fakecv.New()
	rt, err := NewRuntime(mod, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("NewRuntime() error: %v", err)
	}
	return rt, mod, logs
}

// mustMat returns a check for a constructor's results that fails the test
// on error and releases the buffer at cleanup.
func mustMat(t *testing.T) func(m *Mat, err error) *Mat {
	t.Helper()
	return func(m *Mat, err error) *Mat {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		t.Cleanup(func() { _ = m.Release() })
		return m
	}
}

func expectPanic(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		p := recover()
		if p == nil {
			t.Fatalf("expected panic with %v", want)
		}
		if err, ok := p.(error); !ok || err != want {
			t.Fatalf("panic = %v, want %v", p, want)
		}
	}()
	fn()
}
