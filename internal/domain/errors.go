package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeProvider      = "PROVIDER_ERROR"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidStrategy      = NewDomainError(ErrCodeValidation, "invalid search strategy")
	ErrDimensionMismatch    = NewDomainError(ErrCodeValidation, "embedding dimension does not match store dimension")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrJobNotFound      = NewDomainError(ErrCodeNotFound, "ingest job not found")
)

// Configuration errors
var (
	ErrMissingAPIKey    = NewDomainError(ErrCodeConfiguration, "embedding provider API key is not configured")
	ErrInvalidDimension = NewDomainError(ErrCodeConfiguration, "store dimension exceeds native embedding dimension")
)

// Authorization errors
var (
	ErrInvalidServiceKey = NewDomainError(ErrCodeUnauthorized, "invalid service API key")
)
