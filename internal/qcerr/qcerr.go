// Package qcerr defines the analysis error taxonomy.
package qcerr

import (
	"errors"
	"fmt"
)

// Kind classifies an analysis failure.
type Kind uint8

const (
	// MissingColumn reports a required field absent from the record schema.
	MissingColumn Kind = iota + 1
	// EmptyDataset reports zero records or zero groups after filtering.
	EmptyDataset
	// InsufficientVariance reports a correlation over a constant series.
	InsufficientVariance
	// MalformedRecord reports a record rejected at ingestion.
	MalformedRecord
)

func (k Kind) String() string {
	switch k {
	case MissingColumn:
		return "missing column"
	case EmptyDataset:
		return "empty dataset"
	case InsufficientVariance:
		return "insufficient variance"
	case MalformedRecord:
		return "malformed record"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching.
var (
	ErrMissingColumn        = &Error{Kind: MissingColumn}
	ErrEmptyDataset         = &Error{Kind: EmptyDataset}
	ErrInsufficientVariance = &Error{Kind: InsufficientVariance}
	ErrMalformedRecord      = &Error{Kind: MalformedRecord}
)

// Error is a classified analysis failure.
type Error struct {
	Kind   Kind
	Op     string
	Field  string
	Detail string
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s)", e.Field)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a classified error.
func New(kind Kind, op, field, detail string) *Error {
	return &Error{Kind: kind, Op: op, Field: field, Detail: detail}
}

// KindOf returns the kind of a classified error, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
