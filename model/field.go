package model

import (
	"errors"
	"fmt"
	"io/fs"
)

// FieldState tells whether a metadata field carries a trusted value.
type FieldState int

const (
	FieldMissing FieldState = iota
	FieldPresent
	FieldFailed
)

func (s FieldState) String() string {
	switch s {
	case FieldPresent:
		return "present"
	case FieldMissing:
		return "missing"
	case FieldFailed:
		return "failed"
	default:
		return fmt.Sprintf("FieldState(%d)", int(s))
	}
}

// ErrorKind classifies why a field could not be read.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorNotFound
	ErrorPermission
	ErrorCorrupt
	ErrorUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorNotFound:
		return "not_found"
	case ErrorPermission:
		return "permission"
	case ErrorCorrupt:
		return "corrupt"
	case ErrorUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// KindOf maps an I/O or decode error onto an ErrorKind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, fs.ErrNotExist):
		return ErrorNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrorPermission
	default:
		return ErrorCorrupt
	}
}

// Field is a closed result type for one metadata value: Present(v), Missing
// or Failed(kind). The zero value is Missing.
type Field[T any] struct {
	state FieldState
	value T
	kind  ErrorKind
	err   error
}

func Present[T any](v T) Field[T] {
	return Field[T]{state: FieldPresent, value: v}
}

func Missing[T any]() Field[T] {
	return Field[T]{state: FieldMissing}
}

func Failed[T any](kind ErrorKind, err error) Field[T] {
	if kind == ErrorNone {
		kind = ErrorCorrupt
	}
	return Field[T]{state: FieldFailed, kind: kind, err: err}
}

func (f Field[T]) State() FieldState { return f.state }

// Get returns the value and true only for Present fields.
func (f Field[T]) Get() (T, bool) {
	if f.state != FieldPresent {
		var zero T
		return zero, false
	}
	return f.value, true
}

// OrZero returns the value for Present fields and the zero value otherwise.
func (f Field[T]) OrZero() T {
	v, _ := f.Get()
	return v
}

func (f Field[T]) Kind() ErrorKind { return f.kind }

func (f Field[T]) Err() error { return f.err }

func (f Field[T]) String() string {
	switch f.state {
	case FieldPresent:
		return "present"
	case FieldMissing:
		return "missing"
	case FieldFailed:
		return "failed(" + f.kind.String() + ")"
	default:
		return f.state.String()
	}
}
