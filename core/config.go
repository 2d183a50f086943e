package core

import (
	"strings"
)

// Backends the CLI knows how to construct.
const (
	BackendGoCV = "gocv"
	BackendFake = "fake"
)

// Config holds all configuration values for the command-line tool.
type Config struct {
	// Logging
	DevMode  bool   // Console-friendly logs at debug level
	LogLevel string // debug, info, warn, error (empty = mode default)
	LogFile  string // Rotated log file path

	// Image module
	Backend string // gocv (default) or fake

	// Output
	MaxSide     int // Downscale outputs whose longest side exceeds this (0 = never)
	JPEGQuality int // Quality for .jpg/.jpeg outputs (1-100)

	// History
	HistoryDB string // SQLite path for the run ledger (empty = disabled)
}

// LoadConfig loads configuration from CVBRIDGE_* environment variables with
// defaults suitable for running the tool from a shell.
// A .env file, if any, must already have been loaded by the caller.
func LoadConfig() (*Config, error) {
	devMode, err := ParseBoolEnv(EnvPrefix+"DEV_MODE", false)
	if err != nil {
		return nil, err
	}

	maxSide, err := ParseIntEnv(EnvPrefix+"MAX_SIDE", 0)
	if err != nil {
		return nil, err
	}
	if maxSide < 0 {
		return nil, ErrInvalidValue(EnvPrefix+"MAX_SIDE", GetEnvOrDefault(EnvPrefix+"MAX_SIDE", ""), "must not be negative")
	}

	jpegQuality, err := ParseIntEnv(EnvPrefix+"JPEG_QUALITY", 90)
	if err != nil {
		return nil, err
	}
	if jpegQuality < 1 || jpegQuality > 100 {
		return nil, ErrInvalidValue(EnvPrefix+"JPEG_QUALITY", GetEnvOrDefault(EnvPrefix+"JPEG_QUALITY", ""), "must be between 1 and 100")
	}

	backend := strings.ToLower(GetEnvOrDefault(EnvPrefix+"BACKEND", BackendGoCV))
	if backend != BackendGoCV && backend != BackendFake {
		return nil, ErrInvalidValue(EnvPrefix+"BACKEND", backend, "expected gocv or fake")
	}

	logLevel := strings.ToLower(GetEnvOrDefault(EnvPrefix+"LOG_LEVEL", ""))
	switch logLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return nil, ErrInvalidValue(EnvPrefix+"LOG_LEVEL", logLevel, "expected debug, info, warn or error")
	}

	return &Config{
		DevMode:     devMode,
		LogLevel:    logLevel,
		LogFile:     GetEnvOrDefault(EnvPrefix+"LOG_FILE", "cvbridge.log"),
		Backend:     backend,
		MaxSide:     maxSide,
		JPEGQuality: jpegQuality,
		HistoryDB:   GetEnvOrDefault(EnvPrefix+"HISTORY_DB", ""),
	}, nil
}
