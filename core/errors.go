package core

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError represents a configuration or initialization error with an
// actionable instruction for the caller.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Is matches any *ConfigError carrying the same Code, so sentinel values can
// be compared with errors.Is.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Error codes for configuration errors
const (
	ErrCodeMissingConfig      = "MISSING_CONFIG"
	ErrCodeInvalidValue       = "INVALID_VALUE"
	ErrCodeModuleNotReady     = "MODULE_NOT_INITIALIZED"
	ErrCodeModuleIncomplete   = "MODULE_INCOMPLETE"
	ErrCodeModuleAlreadyReady = "MODULE_ALREADY_INITIALIZED"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
)

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in the environment or your .env file", varName),
	}
}

// ErrInvalidValue returns an error for a configuration value that failed validation
func ErrInvalidValue(varName, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s '%s': %s", varName, value, reason),
		Action:  fmt.Sprintf("Correct %s in the environment or your .env file", varName),
	}
}

// ErrModuleNotInitialized returns the error raised by any buffer operation
// that runs before the foreign module was registered.
func ErrModuleNotInitialized(initFunc string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeModuleNotReady,
		Message: "Image module not initialized",
		Action:  fmt.Sprintf("Call %s(module) once before any other operation", initFunc),
	}
}

// ErrModuleIncomplete returns an error for a module that lacks required constants.
func ErrModuleIncomplete(moduleName string, missing []string) *ConfigError {
	shown := missing
	if len(shown) > 5 {
		shown = shown[:5]
	}
	msg := fmt.Sprintf("Module %q is missing %d required constants (%s",
		moduleName, len(missing), strings.Join(shown, ", "))
	if len(missing) > len(shown) {
		msg += ", ..."
	}
	msg += ")"
	return &ConfigError{
		Code:    ErrCodeModuleIncomplete,
		Message: msg,
		Action:  "Register a module built against a compatible library version",
	}
}

// ErrModuleAlreadyInitialized returns an error for a second registration.
func ErrModuleAlreadyInitialized(current string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeModuleAlreadyReady,
		Message: fmt.Sprintf("Image module already initialized with %q", current),
		Action:  "Register the module exactly once per process, or use an explicit runtime",
	}
}

// ErrBackendUnavailable returns an error for a backend that was not compiled in.
func ErrBackendUnavailable(backend, hint string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeBackendUnavailable,
		Message: fmt.Sprintf("Backend %q is not available in this build", backend),
		Action:  hint,
	}
}

// IsConfigError checks if an error is, or wraps, a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
