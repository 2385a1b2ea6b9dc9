// Package domain defines the column type descriptors, schemas, and errors
// shared by the engine and storage sides of the bridge.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UnsupportedTypeError indicates a type tag with no counterpart on the other
// side of the bridge. Exactly one of Engine or Storage is set.
type UnsupportedTypeError struct {
	Column  string
	Engine  string
	Storage string
}

func (e *UnsupportedTypeError) Error() string {
	var msg string
	if e.Storage != "" {
		msg = fmt.Sprintf("storage type %s is not supported by the query engine", e.Storage)
	} else {
		msg = fmt.Sprintf("engine type %s has no storage counterpart", e.Engine)
	}
	if e.Column != "" {
		return fmt.Sprintf("column %q: %s", e.Column, msg)
	}
	return msg
}

// DuplicateColumnError indicates two storage columns that collide once their
// names are lower-cased.
type DuplicateColumnError struct {
	Key            string
	FirstName      string
	FirstPosition  int
	SecondName     string
	SecondPosition int
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column name %q: %q (position %d) and %q (position %d) collide case-insensitively",
		e.Key, e.FirstName, e.FirstPosition, e.SecondName, e.SecondPosition)
}

// UnknownColumnError indicates a required column that is absent from the
// indexed storage schema.
type UnknownColumnError struct {
	Column string
	Table  string
}

func (e *UnknownColumnError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("column %q not found in table %q", e.Column, e.Table)
	}
	return fmt.Sprintf("column %q not found in storage schema", e.Column)
}

// AvailabilityError indicates the storage integration cannot be used at all.
type AvailabilityError struct {
	Reason string
}

func (e *AvailabilityError) Error() string {
	return "storage integration is not available: " + e.Reason
}

// StorageError is the single representation of a failure reported by the
// storage client. Op names the boundary call that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// WrapStorageError converts an error returned by the storage client into a
// *StorageError. A nil error stays nil, so the call site reads
//
//	if err := domain.WrapStorageError(client.Call(), "open table"); err != nil {
//		return err
//	}
func WrapStorageError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnavailable creates an AvailabilityError with a formatted reason.
func ErrUnavailable(format string, args ...interface{}) *AvailabilityError {
	return &AvailabilityError{Reason: fmt.Sprintf(format, args...)}
}
