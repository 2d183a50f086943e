package cv

import (
	"errors"
	"strings"
	"testing"

	"cvbridge/core"
	"cvbridge/cvmod"
	"cvbridge/fakecv"
)

func TestNewRuntime_Validation(t *testing.T) {
	tests := []struct {
		name     string
		module   cvmod.Module
		wantErr  error
		wantCode string
	}{
		{
			name:    "nil module",
			module:  nil,
			wantErr: ErrNilModule,
		},
		{
			name:     "missing constants",
			module:   fakecv.New(fakecv.WithoutConstants("COLOR_RGBA2GRAY", "LINE_8")),
			wantCode: core.ErrCodeModuleIncomplete,
		},
		{
			name:   "complete module",
			module: fakecv.New(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := NewRuntime(tt.module)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewRuntime() error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantCode != "":
				if got := core.GetErrorCode(err); got != tt.wantCode {
					t.Errorf("NewRuntime() error code = %q, want %q (err: %v)", got, tt.wantCode, err)
				}
			default:
				if err != nil {
					t.Fatalf("NewRuntime() unexpected error: %v", err)
				}
				if rt.Module() != tt.module {
					t.Error("Runtime.Module() does not return the wrapped module")
				}
			}
		})
	}
}

func TestNewRuntime_IncompleteNamesMissingConstants(t *testing.T) {
	_, err := NewRuntime(fakecv.New(fakecv.WithoutConstants("COLOR_RGBA2GRAY")))
	if err == nil || !strings.Contains(err.Error(), "COLOR_RGBA2GRAY") {
		t.Errorf("error %v should name the missing constant", err)
	}
}

// Operations before Init fail with the not-initialized error and succeed
// right after registration.
func TestInit_GatesPackageOperations(t *testing.T) {
	resetDefault()
	t.Cleanup(resetDefault)

	if Ready() {
		t.Fatal("Ready() = true before Init")
	}

	ops := map[string]func() error{
		"NewMat": func() error {
			m, err := NewMat(2, 2, cvmod.CV8UC1)
			if err == nil {
				_ = m.Release()
			}
			return err
		},
		"NewMatFromArray": func() error {
			m, err := NewMatFromArray(1, 1, cvmod.CV8UC1, []float64{1})
			if err == nil {
				_ = m.Release()
			}
			return err
		},
		"Empty": func() error {
			m, err := Empty()
			if err == nil {
				_ = m.Release()
			}
			return err
		},
		"Module": func() error {
			_, err := Module()
			return err
		},
		"Lookup": func() error {
			_, err := ColorConversion.Lookup("RGBA2GRAY")
			return err
		},
	}

	for name, op := range ops {
		err := op()
		if !errors.Is(err, ErrNotInitialized) {
			t.Errorf("%s before Init: error = %v, want ErrNotInitialized", name, err)
			continue
		}
		if core.GetErrorCode(err) != core.ErrCodeModuleNotReady {
			t.Errorf("%s before Init: code = %q", name, core.GetErrorCode(err))
		}
		if !strings.Contains(err.Error(), "cv.Init") {
			t.Errorf("%s before Init: message %q should name cv.Init", name, err.Error())
		}
	}

	mod := fakecv.New()
	if err := Init(mod); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if !Ready() {
		t.Fatal("Ready() = false after Init")
	}

	for name, op := range ops {
		if err := op(); err != nil {
			t.Errorf("%s after Init: unexpected error: %v", name, err)
		}
	}
	if mod.Live() != 0 {
		t.Errorf("Live() = %d after releasing everything", mod.Live())
	}
}

func TestInit_ExactlyOnce(t *testing.T) {
	resetDefault()
	t.Cleanup(resetDefault)

	first := fakecv.New(fakecv.WithName("first"))
	if err := Init(first); err != nil {
		t.Fatalf("first Init() error: %v", err)
	}

	err := Init(fakecv.New(fakecv.WithName("second")))
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Init() error = %v, want ErrAlreadyInitialized", err)
	}

	got, err := Module()
	if err != nil {
		t.Fatalf("Module() error: %v", err)
	}
	if got != first {
		t.Error("second Init replaced the first registration")
	}
}

func TestInit_IncompleteModuleLeavesRegistryEmpty(t *testing.T) {
	resetDefault()
	t.Cleanup(resetDefault)

	err := Init(fakecv.New(fakecv.WithoutConstants("BORDER_DEFAULT")))
	if core.GetErrorCode(err) != core.ErrCodeModuleIncomplete {
		t.Fatalf("Init() error = %v, want MODULE_INCOMPLETE", err)
	}
	if Ready() {
		t.Error("Ready() = true after a failed Init")
	}
}

// Buffers remember their runtime, so independent modules can be used side
// by side without touching the registry.
func TestRuntime_IndependentModules(t *testing.T) {
	rtA, modA := newTestRuntime(t)
	rtB, modB := newTestRuntime(t)

	a := mustMat(t)(rtA.NewMat(2, 2, cvmod.CV8UC1))
	b := mustMat(t)(rtB.NewMat(3, 3, cvmod.CV8UC1))

	clone := mustMat(t)(a.Clone())
	if clone.Runtime() != rtA {
		t.Error("Clone() did not keep the source runtime")
	}
	if modA.Live() != 2 || modB.Live() != 1 {
		t.Errorf("Live() = %d/%d, want 2/1", modA.Live(), modB.Live())
	}
	if err := rtA.Check(a, b); !errors.Is(err, ErrRuntimeMismatch) {
		t.Errorf("Check() error = %v, want ErrRuntimeMismatch", err)
	}
	if err := rtA.Check(a, clone); err != nil {
		t.Errorf("Check() unexpected error: %v", err)
	}
}
