package domain

// Common domain errors
var (
	ErrNotFound     = NewError("not found", 404)
	ErrInvalidInput = NewError("invalid input", 400)
	ErrUnavailable  = NewError("service unavailable", 503)
	ErrInternal     = NewError("internal server error", 500)
)

// Error represents a domain error with an associated code.
type Error struct {
	Message string
	Code    int
}

// Error returns the error message.
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new domain error with the given message and code.
func NewError(message string, code int) *Error {
	return &Error{
		Message: message,
		Code:    code,
	}
}
