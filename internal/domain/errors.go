package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema marks a source whose column layout is unusable.
	ErrSchema = errors.New("schema error")
	// ErrMalformedRecord marks a record that violates its fixed field count.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrHeaderMismatch marks a source whose expected header is absent.
	ErrHeaderMismatch = errors.New("header mismatch")
	// ErrMissingData indicates that no configured data source could be found.
	ErrMissingData = errors.New("missing data")
	// ErrUnknownPathway indicates a pathway ID absent from the pathway index.
	ErrUnknownPathway = errors.New("unknown pathway")
	// ErrUnknownGene indicates a gene absent from an index or identifier map.
	ErrUnknownGene = errors.New("unknown gene")
	// ErrUnknownDisease indicates a disease name absent from the disease map.
	ErrUnknownDisease = errors.New("unknown disease")
	// ErrDegenerateScore is returned when an overlap score has a zero denominator.
	ErrDegenerateScore = errors.New("degenerate score")
)

// RecordError describes a single offending record of a tabular source.
type RecordError struct {
	Source string
	Line   int
	Record string
	Reason string
	Err    error
}

func (e *RecordError) Error() string {
	msg := fmt.Sprintf("%s line %d", e.Source, e.Line)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Record != "" {
		msg += fmt.Sprintf(" (record %q)", e.Record)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRecordError wraps kind with source and line context.
func NewRecordError(kind error, source string, line int, record, reason string) error {
	return &RecordError{
		Source: source,
		Line:   line,
		Record: record,
		Reason: reason,
		Err:    kind,
	}
}
