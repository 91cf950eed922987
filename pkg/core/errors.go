package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by a Table or a Storage matches exactly
// one of these through errors.Is.
var (
	ErrIO            = errors.New("store i/o failure")
	ErrCorruptStore  = errors.New("store is corrupt")
	ErrValidation    = errors.New("invalid value")
	ErrNotFound      = errors.New("record not found")
	ErrDataIntegrity = errors.New("stored record failed integrity check")
	ErrReadOnly      = errors.New("store is in read-only mode")
	ErrConflict      = errors.New("store changed on disk since it was loaded")
	ErrLocked        = errors.New("store is locked by another process")
	ErrClosed        = errors.New("store is closed")
)

// Error is the structured error surfaced to callers: a kind plus detail.
type Error struct {
	Kind   error
	Op     string
	ID     RecordID // zero when the error is not about one record
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.ID != 0 {
		fmt.Fprintf(&b, " (id %d)", e.ID)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds a structured error of the given kind.
func NewError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Invalidf reports a field that violates its domain constraint.
func Invalidf(field, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Detail: field + ": " + fmt.Sprintf(format, args...)}
}

// KindOf returns the error kind carried by err, or nil if err is not a store error.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrValidation, ErrNotFound, ErrCorruptStore, ErrDataIntegrity,
		ErrReadOnly, ErrConflict, ErrLocked, ErrClosed, ErrIO,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
