package schema

import "time"

// ErrorKind categorizes extraction failures.
type ErrorKind string

const (
	// ErrSelectorMiss indicates no selector in a field's list matched.
	ErrSelectorMiss ErrorKind = "selector_miss"
	// ErrParse indicates a matched string failed numeric/format parsing.
	ErrParse ErrorKind = "parse"
	// ErrValidation indicates a parsed value violated a field invariant.
	ErrValidation ErrorKind = "validation"
	// ErrAmbiguous indicates multiple candidates passed validation.
	ErrAmbiguous ErrorKind = "ambiguous"
	// ErrMissingElement indicates a structural precondition was absent.
	ErrMissingElement ErrorKind = "missing_element"
	// ErrMethodFailure indicates an unexpected internal failure was captured.
	ErrMethodFailure ErrorKind = "method_failure"
)

// Method identifies which extraction tier produced an error.
type Method string

const (
	MethodStructuredData Method = "structured_data"
	MethodSelector       Method = "selector"
	MethodRegex          Method = "regex"
	MethodHeuristic      Method = "heuristic"
)

// ExtractionError records one field-level failure. The list on a record is
// append-only during a single extraction.
type ExtractionError struct {
	FieldName string    `json:"field_name"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Method    Method    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}

// NewError builds a timestamped extraction error.
func NewError(field string, kind ErrorKind, method Method, message string) ExtractionError {
	return ExtractionError{
		FieldName: field,
		Kind:      kind,
		Message:   message,
		Method:    method,
		Timestamp: time.Now(),
	}
}
