package models

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrFieldShape ErrorType = iota
	ErrServerValidation
	ErrTransport
	ErrSubmission
	ErrInvalidConfig
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrFieldShape:
		return "FieldShape"
	case ErrServerValidation:
		return "ServerValidation"
	case ErrTransport:
		return "Transport"
	case ErrSubmission:
		return "Submission"
	case ErrInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}

// ContentError represents an error raised while adding content
type ContentError struct {
	Type ErrorType
	Row  string
	Err  error
}

// Error implements the error interface
func (e *ContentError) Error() string {
	if e.Row != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Row, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *ContentError) Unwrap() error {
	return e.Err
}
