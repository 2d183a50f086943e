//go:build !gocv

// Stub used when OpenCV is not available.
// Build with: go build -tags gocv

package gocvmod

import (
	"cvbridge/core"
	"cvbridge/cvmod"
)

// New reports that the OpenCV backend was not compiled in.
func New() (cvmod.Module, error) {
	return nil, core.ErrBackendUnavailable(Name, "install OpenCV 4 and rebuild with -tags gocv")
}
