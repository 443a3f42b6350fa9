package codec

import (
	"errors"
	"fmt"
)

// ErrInvalidEncoding is the category sentinel for every decode failure.
// Match with errors.Is.
var ErrInvalidEncoding = errors.New("invalid encoding")

// InvalidEncodingError reports a malformed state vector or update payload.
type InvalidEncodingError struct {
	// Offset is the byte position at which decoding failed.
	Offset int

	// Reason describes what was expected.
	Reason string
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("invalid encoding at byte %d: %s", e.Offset, e.Reason)
}

func (e *InvalidEncodingError) Unwrap() error {
	return ErrInvalidEncoding
}

func invalidf(offset int, format string, args ...any) error {
	return &InvalidEncodingError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
