package core

import (
	"testing"
)

// clearEnv unsets every variable LoadConfig reads for the duration of t.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DEV_MODE", "LOG_LEVEL", "LOG_FILE", "BACKEND", "MAX_SIDE", "JPEG_QUALITY", "HISTORY_DB"} {
		t.Setenv(EnvPrefix+name, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	want := Config{
		LogFile:     "cvbridge.log",
		Backend:     BackendGoCV,
		JPEGQuality: 90,
	}
	if *cfg != want {
		t.Errorf("LoadConfig() = %+v, want %+v", *cfg, want)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"DEV_MODE", "yes")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "WARN")
	t.Setenv(EnvPrefix+"LOG_FILE", "/tmp/cv.log")
	t.Setenv(EnvPrefix+"BACKEND", "Fake")
	t.Setenv(EnvPrefix+"MAX_SIDE", "1024")
	t.Setenv(EnvPrefix+"JPEG_QUALITY", "75")
	t.Setenv(EnvPrefix+"HISTORY_DB", "runs.db")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	want := Config{
		DevMode:     true,
		LogLevel:    "warn",
		LogFile:     "/tmp/cv.log",
		Backend:     BackendFake,
		MaxSide:     1024,
		JPEGQuality: 75,
		HistoryDB:   "runs.db",
	}
	if *cfg != want {
		t.Errorf("LoadConfig() = %+v, want %+v", *cfg, want)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"dev mode", "DEV_MODE", "sometimes"},
		{"negative max side", "MAX_SIDE", "-1"},
		{"max side not a number", "MAX_SIDE", "big"},
		{"quality too low", "JPEG_QUALITY", "0"},
		{"quality too high", "JPEG_QUALITY", "101"},
		{"backend", "BACKEND", "opencl"},
		{"log level", "LOG_LEVEL", "trace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvPrefix+tt.key, tt.value)
			_, err := LoadConfig()
			if GetErrorCode(err) != ErrCodeInvalidValue {
				t.Errorf("LoadConfig() error = %v, want %s", err, ErrCodeInvalidValue)
			}
		})
	}
}
