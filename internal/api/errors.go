package api

import (
	"errors"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest            = &AppError{Code: http.StatusBadRequest, Message: "bad request"}
	ErrNotFound              = &AppError{Code: http.StatusNotFound, Message: "not found"}
	ErrInternalServer        = &AppError{Code: http.StatusInternalServerError, Message: "internal server error"}
	ErrValidation            = &AppError{Code: http.StatusBadRequest, Message: "validation error"}
	ErrSessionNotFound       = &AppError{Code: http.StatusNotFound, Message: "session not found"}
	ErrTooManyRequests       = &AppError{Code: http.StatusTooManyRequests, Message: "rate limit exceeded"}
	ErrProviderNotConfigured = &AppError{Code: http.StatusServiceUnavailable, Message: "LLM provider is not configured: set LLM_API_KEY"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONErrorMessage(w, appErr.Code, appErr.Message)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
