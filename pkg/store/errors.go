package store

import (
	"errors"
	"fmt"
)

// Common store error conditions.
var (
	ErrItemNotFound    = errors.New("item not found")
	ErrConditionFailed = errors.New("condition failed")
	ErrUnknownBackend  = errors.New("unknown store backend")
)

// StoreError wraps a backend failure with the operation and item context.
type StoreError struct {
	Op    string
	Table string
	Key   Key
	Err   error
}

func (e *StoreError) Error() string {
	if e.Key.Value != "" {
		return fmt.Sprintf("store %s failed for %s=%s in %s: %v", e.Op, e.Key.Name, e.Key.Value, e.Table, e.Err)
	}
	return fmt.Sprintf("store %s failed in %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err indicates a missing item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

// IsConditionFailed reports whether err indicates a failed write
// precondition.
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}
