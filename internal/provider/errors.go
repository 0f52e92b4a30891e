package provider

import (
	"fmt"

	"github.com/bbernstein/chargefinder/internal/models"
)

// FetchError reports that a provider could not be reached or answered with
// an unusable response.
type FetchError struct {
	Provider string
	Message  string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch error: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s fetch error: %s", e.Provider, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewFetchError(provider, message string, err error) *FetchError {
	return &FetchError{
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// MalformedRecordError reports a raw record that cannot be normalized.
type MalformedRecordError struct {
	Source models.Source
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: %s %s", e.Source, e.Field, e.Reason)
}

func NewMalformedRecordError(source models.Source, field, reason string) *MalformedRecordError {
	return &MalformedRecordError{
		Source: source,
		Field:  field,
		Reason: reason,
	}
}
