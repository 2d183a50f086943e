//go:build !gocv

package gocvmod

import (
	"testing"

	"cvbridge/core"
)

func TestNewWithoutOpenCV(t *testing.T) {
	m, err := New()
	if m != nil {
		t.Errorf("New() returned a module without the gocv tag")
	}
	cfgErr, ok := core.IsConfigError(err)
	if !ok {
		t.Fatalf("New() error = %v, want a ConfigError", err)
	}
	if cfgErr.Code != core.ErrCodeBackendUnavailable {
		t.Errorf("Code = %q, want %q", cfgErr.Code, core.ErrCodeBackendUnavailable)
	}
}
