package validation

import (
	"time"
)

// ValidationSeverity represents the severity level of a validation issue
type ValidationSeverity int

const (
	ValidationSeverityError ValidationSeverity = iota
	ValidationSeverityWarning
	ValidationSeverityInfo
)

// ValidationErrorCode represents specific validation error types
type ValidationErrorCode int

const (
	ErrorInvalidAddress ValidationErrorCode = iota
	ErrorChecksumMismatch
	ErrorEmptyAmount
	ErrorNotANumber
	ErrorTooManyDecimals
	ErrorNonPositiveAmount
	ErrorInsufficientBalance
	ErrorMemoTooLong
)

func (c ValidationErrorCode) String() string {
	switch c {
	case ErrorInvalidAddress:
		return "InvalidAddress"
	case ErrorChecksumMismatch:
		return "ChecksumMismatch"
	case ErrorEmptyAmount:
		return "EmptyAmount"
	case ErrorNotANumber:
		return "NotANumber"
	case ErrorTooManyDecimals:
		return "TooManyDecimals"
	case ErrorNonPositiveAmount:
		return "NonPositiveAmount"
	case ErrorInsufficientBalance:
		return "InsufficientBalance"
	case ErrorMemoTooLong:
		return "MemoTooLong"
	default:
		return "Unknown"
	}
}

// Form field names used in ValidationError.Field
const (
	FieldAddress = "address"
	FieldAmount  = "amount"
	FieldMemo    = "memo"
)

// ValidationError represents a specific validation error
type ValidationError struct {
	Field    string
	Code     ValidationErrorCode
	Message  string
	Severity ValidationSeverity
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidationResult represents the result of validating a transaction draft
type ValidationResult struct {
	IsValid     bool
	ValidatedAt time.Time
	Errors      []ValidationError
	Warnings    []ValidationError
}

// FieldError returns the first error recorded against field, if any.
func (r ValidationResult) FieldError(field string) (ValidationError, bool) {
	for _, e := range r.Errors {
		if e.Field == field {
			return e, true
		}
	}
	return ValidationError{}, false
}

func newError(field string, code ValidationErrorCode, message string) *ValidationError {
	return &ValidationError{
		Field:    field,
		Code:     code,
		Message:  message,
		Severity: ValidationSeverityError,
	}
}
