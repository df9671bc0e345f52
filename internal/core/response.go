// CivicVoice | 2026
// response.go

package core

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the wire shape for every failure: {"error": msg} with
// optional per-field details for validation errors.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	//nolint:errcheck // best-effort response write
	_ = json.NewEncoder(w).Encode(data)
}

func OK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, data)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func BadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message})
}

func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authentication required"
	}
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: message})
}

func Forbidden(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusForbidden, ErrorResponse{Error: message})
}

func NotFound(w http.ResponseWriter, resource string) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

func Conflict(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusConflict, ErrorResponse{Error: message})
}

func NotImplemented(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: message})
}

var production atomic.Bool

// SetProduction controls whether internal error messages are suppressed
// in responses. Called once from main; defaults to false so tests see
// real messages.
func SetProduction(on bool) {
	production.Store(on)
}

// InternalServerError logs the real error and suppresses its message in
// production.
func InternalServerError(w http.ResponseWriter, err error) {
	slog.Error("internal error", "error", err)

	message := "Internal server error"
	if !production.Load() {
		message = err.Error()
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: message})
}

// JSONError renders any error through the taxonomy mapping.
func JSONError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, ErrorResponse{Error: appErr.Message})
		return
	}

	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		InternalServerError(w, err)
		return
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// ValidationFailed renders a validator error as a 400 with per-field
// details, matching {"error": "Validation error", "details": [...]}.
func ValidationFailed(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		BadRequest(w, err.Error())
		return
	}

	details := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}

	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "Validation error",
		Details: details,
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "e164":
		return "must be a valid phone number"
	default:
		return "is invalid"
	}
}
