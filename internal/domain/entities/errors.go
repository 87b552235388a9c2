package entities

import (
	"errors"
	"fmt"
)

// Error kinds. Only ErrFileNotFound and ErrUnsupportedFormat end a run,
// every other kind stays local to the component that produced it.
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrParse             = errors.New("parse error")
	ErrToolUnavailable   = errors.New("introspection unavailable")
	ErrIO                = errors.New("io error")
)

// ParseError reports a header field that could not be read at its offset
type ParseError struct {
	Field  string
	Offset int64
	Reason string
}

// NewParseError creates a ParseError for a field at a file offset
func NewParseError(field string, offset int64, reason string) *ParseError {
	return &ParseError{Field: field, Offset: offset, Reason: reason}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s at 0x%x: %s", e.Field, e.Offset, e.Reason)
}

// Unwrap lets errors.Is match ErrParse
func (e *ParseError) Unwrap() error {
	return ErrParse
}
