package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileError describes an unusable input or output path.
type FileError struct {
	Path    string
	Message string
	Err     error
}

func (e *FileError) Error() string { return e.Message }

func (e *FileError) Unwrap() error { return e.Err }

// CheckFileExists returns nil when path names an existing regular file.
func CheckFileExists(path string) error {
	if path == "" {
		return &FileError{Path: path, Message: "file path cannot be empty"}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FileError{Path: path, Message: fmt.Sprintf("file not found: %s", path), Err: err}
		}
		return &FileError{Path: path, Message: fmt.Sprintf("error checking file %s: %v", path, err), Err: err}
	}
	if info.IsDir() {
		return &FileError{Path: path, Message: fmt.Sprintf("path is a directory, not a file: %s", path)}
	}
	return nil
}

// CheckOutputPath returns nil when path can be created: it is not a directory
// and its parent directory exists.
func CheckOutputPath(path string) error {
	if path == "" {
		return &FileError{Path: path, Message: "output path cannot be empty"}
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return &FileError{Path: path, Message: fmt.Sprintf("output path is a directory: %s", path)}
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return &FileError{Path: path, Message: fmt.Sprintf("output directory not found: %s", dir), Err: err}
	}
	if !info.IsDir() {
		return &FileError{Path: path, Message: fmt.Sprintf("output parent is not a directory: %s", dir)}
	}
	return nil
}
