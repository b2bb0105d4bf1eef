package memo

import (
	"errors"
	"fmt"
)

var (
	ErrMethodNotFound   = errors.New("method not found")
	ErrSerialization    = errors.New("serialization error")
	ErrBackend          = errors.New("cache backend error")
	ErrNoStore          = errors.New("no cache store configured")
	ErrCacheMiss        = errors.New("cache miss")
	ErrArgumentMismatch = errors.New("argument mismatch")
	ErrResultType       = errors.New("unexpected result type")
)

// MethodNotFoundError is returned when a call is not eligible for cached
// dispatch or when no underlying function is registered under the name.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method [%s] does not exist", e.Method)
}

func (e *MethodNotFoundError) Is(target error) bool {
	return target == ErrMethodNotFound
}

// SerializationError reports arguments or results that could not be encoded.
type SerializationError struct {
	Method string
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error on %s: %v", e.Method, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

// BackendError wraps a failure of the external cache store.
type BackendError struct {
	Op  string
	Key Key
	Err error
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache backend error on %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache backend error on %s for key %s: %v", e.Op, e.Key.String(), e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}
