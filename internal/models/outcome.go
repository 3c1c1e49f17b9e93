package models

import "fmt"

// SkipReason names why a work unit produced no record.
type SkipReason string

// Skip reasons.
const (
	SkipFetchFailed        SkipReason = "fetch_failed"
	SkipEmptyDocument      SkipReason = "empty_document"
	SkipMissingDescription SkipReason = "missing_description"
	SkipMalformedItem      SkipReason = "malformed_item"
)

// Outcome is the result of one work unit: either a record or a skip with a reason.
type Outcome[T any] struct {
	Err    error
	Record T
	Unit   string
	Reason SkipReason
}

// Success wraps a normalized record.
func Success[T any](unit string, record T) Outcome[T] {
	return Outcome[T]{Unit: unit, Record: record}
}

// Skipped records that unit yielded nothing.
func Skipped[T any](unit string, reason SkipReason, err error) Outcome[T] {
	return Outcome[T]{Unit: unit, Reason: reason, Err: err}
}

// OK reports whether the outcome carries a record.
func (o Outcome[T]) OK() bool {
	return o.Reason == ""
}

func (o Outcome[T]) String() string {
	if o.OK() {
		return o.Unit + ": ok"
	}

	if o.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", o.Unit, o.Reason, o.Err)
	}

	return fmt.Sprintf("%s: %s", o.Unit, o.Reason)
}
