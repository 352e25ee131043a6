package validator

import (
	"errors"
	"fmt"
)

// InputValidationError rejects a request before any extraction or model work.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ExtractionError means the document could not be opened or decoded.
type ExtractionError struct {
	Path string
	Page int
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("Error extracting text from PDF (page %d): %v", e.Page, e.Err)
	}
	return fmt.Sprintf("Error extracting text from PDF: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// InvocationError wraps a transport, authentication or provider failure.
type InvocationError struct {
	Provider string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("LLM validation error (%s): %v", e.Provider, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// MalformedModelOutputError means the completion could not be decoded or did
// not match the verdict schema. Raw holds the text that was parsed.
type MalformedModelOutputError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *MalformedModelOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model output: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed model output: %s", e.Reason)
}

func (e *MalformedModelOutputError) Unwrap() error { return e.Err }

// Kind names the error category for logs and outcome events.
func Kind(err error) string {
	var (
		inputErr      *InputValidationError
		extractionErr *ExtractionError
		invocationErr *InvocationError
		malformedErr  *MalformedModelOutputError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &inputErr):
		return "input_validation"
	case errors.As(err, &extractionErr):
		return "extraction"
	case errors.As(err, &invocationErr):
		return "invocation"
	case errors.As(err, &malformedErr):
		return "malformed_model_output"
	default:
		return "internal"
	}
}
