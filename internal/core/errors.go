// CivicVoice | 2026
// errors.go

package core

import (
	"errors"
	"net/http"
)

// Sentinel errors shared across repositories, services and handlers.
// Repositories translate driver errors into these; handlers translate
// them into HTTP responses.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrDuplicatePhone = errors.New("phone already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrNotImplemented = errors.New("not implemented")
)

// AppError is an error that already knows which HTTP status it maps to
// and which message is safe to show the client.
type AppError struct {
	Err     error
	Message string
	Status  int
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int) *AppError {
	return &AppError{Err: err, Message: message, Status: status}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "Insufficient permissions"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(ErrNotFound, resource+" not found", http.StatusNotFound)
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusConflict)
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "Invalid token", http.StatusUnauthorized)
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "Invalid token", http.StatusUnauthorized)
}

func NotImplementedError(feature string) *AppError {
	return NewAppError(
		ErrNotImplemented,
		feature+" is not implemented",
		http.StatusNotImplemented,
	)
}

// StatusForError resolves any error to its HTTP status, falling back
// to 500 for unanticipated errors.
func StatusForError(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrDuplicatePhone):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
