package core

import (
	"errors"
	"fmt"
)

var (
	ErrStoreRead  = errors.New("store read failed")
	ErrStoreWrite = errors.New("store write failed")
)

// StoreError reports a failed read or write against the key-value store.
// Writes are retryable: in-memory state has already been updated.
type StoreError struct {
	Op  string // "get" or "set"
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	switch target {
	case ErrStoreWrite:
		return e.Op == "set"
	case ErrStoreRead:
		return e.Op == "get"
	}
	return false
}

// Retryable reports whether the caller may retry the action manually.
func (e *StoreError) Retryable() bool { return e.Op == "set" }
