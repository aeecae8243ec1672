package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("permission denied")
	ErrUnauthenticated = errors.New("sign in required")
	ErrValidation      = errors.New("validation failed")
	ErrDuplicateRating = errors.New("duplicate rating exists")
	ErrNotLoaded       = errors.New("catalog not loaded")
)

// CustomError carries a user-facing message on top of one of the sentinels.
type CustomError struct {
	Err     error
	Message string
}

func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(message string) error {
	return &CustomError{Err: ErrNotFound, Message: message}
}

func NewForbiddenError(message string) error {
	return &CustomError{Err: ErrForbidden, Message: message}
}

func NewValidationError(message string) error {
	return &CustomError{Err: ErrValidation, Message: message}
}

// Message returns the user-facing text of err when it carries one.
func Message(err error) (string, bool) {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message, true
	}
	return "", false
}
