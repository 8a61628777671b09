package blob

import (
	"errors"
	"fmt"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidKey   = errors.New("invalid blob key")
)

// BlobError carries the failed operation and key alongside the cause.
type BlobError struct {
	Op  string
	Key string
	Err error
}

func (e *BlobError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("blob %s failed for key '%s': %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("blob %s failed: %v", e.Op, e.Err)
}

func (e *BlobError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the blob does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBlobNotFound)
}
