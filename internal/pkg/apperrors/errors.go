package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Substitution data errors
var (
	// ErrSourceUnavailable covers transport failures and non-2xx responses.
	ErrSourceUnavailable = errors.New("substitution source unavailable")
	// ErrInvalidPayload means the document is not a JSON array of rules.
	ErrInvalidPayload = errors.New("invalid substitution payload")
	// ErrMalformedRule marks a single rule that failed validation.
	ErrMalformedRule = errors.New("malformed substitution rule")
	// ErrRelationNotFound is returned when no merged relation has the given id.
	ErrRelationNotFound = errors.New("substitution relation not found")
	// ErrServiceClosed is returned by refreshes started after shutdown.
	ErrServiceClosed = errors.New("substitution service closed")
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// NewBadRequestError creates a new custom error for bad request with a message
func NewBadRequestError(message string) *CustomError {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithStatusMsg adds a user-friendly status message
func (e *CustomError) WithStatusMsg(msg string) *CustomError {
	e.StatusMsg = msg
	return e
}

// StatusMessage returns the user-facing message carried by err, or fallback.
func StatusMessage(err error, fallback string) string {
	var ce *CustomError
	if errors.As(err, &ce) && ce.StatusMsg != "" {
		return ce.StatusMsg
	}
	return fallback
}

// DetailsOf returns the context details carried by err, or nil.
func DetailsOf(err error) map[string]interface{} {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Details
	}
	return nil
}
