package gguf

import "errors"

// notFoundError signals a missing model file, surfaced verbatim to callers.
type notFoundError struct{ path string }

func (e notFoundError) Error() string { return "model file not found: " + e.path }

// IsNotFound reports whether err indicates a missing model file.
func IsNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}

// malformedError signals a structurally invalid container: bad magic,
// truncated fields, or limits exceeded. Fatal for the file, never for the
// process.
type malformedError struct {
	path   string
	reason string
}

func (e malformedError) Error() string { return "malformed gguf " + e.path + ": " + e.reason }

// IsMalformed reports whether err indicates a structurally invalid container.
func IsMalformed(err error) bool {
	var m malformedError
	return errors.As(err, &m)
}
