package core

import "github.com/pkg/errors"

var (
	ErrForbidden = errors.New("permission denied")

	// storage failure kinds; match them with errors.Is
	ErrStorageTransient = errors.New("storage temporarily unavailable")
	ErrStorageFatal     = errors.New("storage failure")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// StorageError wraps a driver error with its failure kind so that callers never see raw storage errors.
type StorageError struct {
	Op        string
	Err       error
	Transient bool
}

func NewStorageError(op string, err error, transient bool) error {
	return &StorageError{Op: op, Err: err, Transient: transient}
}

func (err *StorageError) Error() string {
	kind := ErrStorageFatal
	if err.Transient {
		kind = ErrStorageTransient
	}
	return err.Op + ": " + kind.Error() + ": " + err.Err.Error()
}

func (err *StorageError) Unwrap() error { return err.Err }

func (err *StorageError) Is(target error) bool {
	switch target {
	case ErrStorageTransient:
		return err.Transient
	case ErrStorageFatal:
		return !err.Transient
	}
	return false
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrStorageTransient)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
