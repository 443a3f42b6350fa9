package quilt

import (
	"errors"
	"fmt"

	"github.com/quiltdb/quilt/internal/codec"
)

// ErrInvalidEncoding matches every decode failure of a state vector or
// update payload. A rejected payload leaves the document unchanged.
var ErrInvalidEncoding = codec.ErrInvalidEncoding

// InvalidEncodingError carries the byte offset and reason of a decode
// failure. Match the category with errors.Is(err, ErrInvalidEncoding).
type InvalidEncodingError = codec.InvalidEncodingError

// Transaction lifecycle errors.
var (
	// ErrTxnOpen means the document already has an open transaction.
	ErrTxnOpen = errors.New("document already has an open transaction")

	// ErrTxnCommitted means the transaction has already been committed.
	ErrTxnCommitted = errors.New("transaction already committed")

	// ErrWrongDoc means a container was used with a transaction belonging
	// to a different document.
	ErrWrongDoc = errors.New("container does not belong to the transaction's document")

	// ErrUnsupportedValue means an input value cannot be inserted, such as
	// a container handle read from another slot. Use a Prelim value to
	// create a nested container.
	ErrUnsupportedValue = errors.New("value cannot be inserted")
)

// IndexOutOfBoundsError reports an index or range outside a container's
// visible bounds. Only the offending call is aborted; operations already
// applied in the same transaction remain applied.
type IndexOutOfBoundsError struct {
	Index  int
	Length int
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("index %d out of bounds (length %d)", e.Index, e.Length)
}

// IsIndexOutOfBounds reports whether err is an out-of-bounds failure.
// Uses errors.As to handle wrapped errors.
func IsIndexOutOfBounds(err error) bool {
	var oob *IndexOutOfBoundsError
	return errors.As(err, &oob)
}

func outOfBounds(index, length int) error {
	return &IndexOutOfBoundsError{Index: index, Length: length}
}
