package pathway

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a pathway id is not in the store.
var ErrNotFound = errors.New("pathway not found")

// LoadError reports malformed or missing content at store initialization.
type LoadError struct {
	File string
	Err  error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("load pathway content: %v", e.Err)
	}
	return fmt.Sprintf("load pathway content %s: %v", e.File, e.Err)
}

// Unwrap returns the underlying cause
func (e *LoadError) Unwrap() error {
	return e.Err
}

func loadErr(file string, format string, args ...any) *LoadError {
	return &LoadError{File: file, Err: fmt.Errorf(format, args...)}
}
