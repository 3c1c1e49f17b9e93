package normalizer

import (
	"errors"

	"vulnfeed/internal/crawler/parsers"
	"vulnfeed/internal/models"
)

// Validation errors.
var (
	ErrEmptyDocument      = errors.New("page yielded no content")
	ErrMissingDescription = errors.New("page has no description section")
)

// Validator gates extracted fields before they become records.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateWeakness reports whether a weakness page may produce a record. Only
// the description landmark is required; an empty description text is allowed.
func (v *Validator) ValidateWeakness(fields parsers.WeaknessFields) error {
	if fields.Empty() {
		return ErrEmptyDocument
	}

	if !fields.Description.Present {
		return ErrMissingDescription
	}

	return nil
}

// SkipReasonFor maps a validation error to the reason recorded in the outcome.
func SkipReasonFor(err error) models.SkipReason {
	switch {
	case errors.Is(err, ErrEmptyDocument):
		return models.SkipEmptyDocument
	case errors.Is(err, ErrMissingDescription):
		return models.SkipMissingDescription
	case errors.Is(err, parsers.ErrMalformedItem):
		return models.SkipMalformedItem
	default:
		return models.SkipFetchFailed
	}
}
