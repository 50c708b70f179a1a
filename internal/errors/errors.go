// Package errors defines application-specific error types and sentinel errors.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrNotRecord         = errors.New("avro schema must be a record")
	ErrUnsupportedType   = errors.New("unsupported avro type")
	ErrUnsupportedScheme = errors.New("unsupported storage scheme")
	ErrBufferFull        = errors.New("buffer is full")
	ErrSourceClosed      = errors.New("record source is closed")
	ErrWriterClosed      = errors.New("storage writer is closed")
	ErrConnectionLost    = errors.New("connection lost")
)

// UnsupportedTypeError reports a schema node that has no conversion rule.
type UnsupportedTypeError struct {
	Field  string
	Type   string
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	msg := fmt.Sprintf("cannot convert avro type %s", e.Type)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %s)", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnsupportedTypeError) Unwrap() error {
	return ErrUnsupportedType
}

// ValidationError represents a datum that does not match its schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field=%s: %s", e.Field, e.Reason)
}

// StorageError represents a storage operation failure.
type StorageError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: operation=%s path=%s: %v",
		e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// SourceError represents a failure while reading records from a source.
type SourceError struct {
	Source string
	Offset int64
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source error: source=%s offset=%d: %v",
		e.Source, e.Offset, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Retryable defines an interface for errors that can indicate if they are retryable.
type Retryable interface {
	error
	IsRetryable() bool
}

// IsRetryable checks if an error is retryable.
// It first checks if the error implements the Retryable interface,
// then falls back to checking sentinel errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable Retryable
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return errors.Is(err, ErrConnectionLost)
}

// IsRetryable determines if a StorageError is retryable based on the operation type.
func (e *StorageError) IsRetryable() bool {
	return e.Operation == "write" || e.Operation == "upload" || e.Operation == "create"
}

// IsRetryable determines if a SourceError is retryable.
func (e *SourceError) IsRetryable() bool {
	return IsRetryable(e.Err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
