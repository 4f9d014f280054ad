package http

import (
	"fmt"
	"net/http"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error. An empty code defaults to ERR_NOT_FOUND.
func NotFoundError(code, message string) *AppError {
	return NewAppError(orCode(code, "ERR_NOT_FOUND"), "", message, http.StatusNotFound)
}

// UnauthorizedError creates a 401 error.
func UnauthorizedError(code, message string) *AppError {
	return NewAppError(orCode(code, "ERR_UNAUTHORIZED"), "", message, http.StatusUnauthorized)
}

// ConflictError creates a 409 error.
func ConflictError(code, message string) *AppError {
	return NewAppError(orCode(code, "ERR_CONFLICT"), "", message, http.StatusConflict)
}

// UnprocessableError creates a 422 error tied to a request field.
func UnprocessableError(code, field, message string) *AppError {
	return NewAppError(code, field, message, http.StatusUnprocessableEntity)
}

// InternalError creates a 500 error. The wrapped cause is never serialized.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

func orCode(code, fallback string) string {
	if code == "" {
		return fallback
	}
	return code
}
