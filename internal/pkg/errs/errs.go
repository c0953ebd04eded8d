// Package errs holds the error taxonomy shared by the model pipeline. None of
// these errors are recovered inside the pipeline; they carry the failing key
// or field so the caller can diagnose the input.
package errs

import "fmt"

// DataIntegrityError reports a required lookup that has no entry for a key the
// index builder produced.
type DataIntegrityError struct {
	Source string
	Key    interface{}
	Detail string
}

func (e *DataIntegrityError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("data integrity: %s %v: %s", e.Source, e.Key, e.Detail)
	}
	return fmt.Sprintf("data integrity: no %s entry for %v", e.Source, e.Key)
}

// MissingKey returns a DataIntegrityError for a lookup miss.
func MissingKey(source string, key interface{}) error {
	return &DataIntegrityError{Source: source, Key: key}
}

// Invalid returns a DataIntegrityError for a malformed input entry.
func Invalid(source string, key interface{}, detail string) error {
	return &DataIntegrityError{Source: source, Key: key, Detail: detail}
}

// ConfigurationError reports a missing or out of range configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// SolverError reports a solve that ended without an optimal solution.
type SolverError struct {
	Status string
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver: status %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("solver: status %s", e.Status)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}
