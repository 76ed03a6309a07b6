// Package apperr defines the opaque error taxonomy shared by every layer of
// the net-reduction engine. Components never return bare errors for
// conditions a caller might need to branch on; they return *Error with a
// stable Kind so the HTTP edge can map it to a status code without the core
// engine knowing anything about transport.
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the opaque error categories the engine can surface.
type Kind string

const (
	Unauthenticated        Kind = "unauthenticated"
	Forbidden               Kind = "forbidden"
	NotFound                Kind = "not_found"
	ChannelMismatch         Kind = "channel_mismatch"
	ValidationError         Kind = "validation_error"
	MissingVariableKind     Kind = "missing_variable"
	FrozenVariableMissing   Kind = "frozen_variable_missing"
	FormulaNotFound         Kind = "formula_not_found"
	Conflict                Kind = "conflict"
	Internal                Kind = "internal"
)

// Error is the engine-wide error type. Row is set (>0) when the error
// belongs to one row of a batch operation (CSV import, manual batch insert).
type Error struct {
	Kind    Kind
	Message string
	Row     int
	Err     error
}

func (e *Error) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind that wraps an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithRow returns a copy of e annotated with a 1-based row index for batch
// reporting.
func (e *Error) WithRow(row int) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Row = row
	return &cp
}

// KindOf extracts the Kind from err, defaulting to Internal for anything that
// isn't an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// MissingVariable builds a MissingVariableKind error for an unbound identifier.
func MissingVariable(name string) *Error {
	return New(MissingVariableKind, "missing variable: %s", name)
}

// FrozenMissing builds a FrozenVariableMissing error for symbol s.
func FrozenMissing(symbol string) *Error {
	return New(FrozenVariableMissing, "frozen variable not configured: %s", symbol)
}

// MissingManual builds a ValidationError for a missing manual M3 variable.
func MissingManual(itemID, variable string) *Error {
	return New(ValidationError, "missing manual value %s for item %s", variable, itemID)
}
