package engine

import (
	"errors"
	"fmt"
)

// ErrBusinessNotFound is returned when a business ID resolves to no profile.
// Callers can render a specific "business not found" message from it.
var ErrBusinessNotFound = errors.New("business not found")

// ValidationError reports a malformed or missing request field. It is
// surfaced before any data-source call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// DataSourceError reports an unexpected failure reading an underlying data
// source. It is retryable and must not be silently converted into an empty
// context: an empty context would produce a misleadingly confident answer.
type DataSourceError struct {
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s failed: %v", e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}
