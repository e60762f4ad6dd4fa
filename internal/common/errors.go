package common

import (
	"errors"
	"net/http"
)

// Error codes for the payment API taxonomy. Each code carries a fixed HTTP
// status; handlers never invent statuses ad hoc.
const (
	CodeValidation = "VALIDATION"
	CodeSignature  = "SIGNATURE"
	CodeProvider   = "PROVIDER"
	CodeTimeout    = "TIMEOUT"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewValidation flags a client-correctable request problem. Raised before any
// provider call is made.
func NewValidation(message string, err error) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest, Err: err}
}

// NewSignature flags a webhook whose authenticity could not be established.
// The message must never echo the signing secret.
func NewSignature(message string, err error) *AppError {
	return &AppError{Code: CodeSignature, Message: message, HTTPStatus: http.StatusBadRequest, Err: err}
}

// NewProvider wraps an upstream payment-provider failure. The provider's
// message may be surfaced since it originates from a trusted party.
func NewProvider(message string, err error) *AppError {
	return &AppError{Code: CodeProvider, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// NewTimeout flags a slow or unreachable provider, distinct from CodeProvider
// so callers can decide whether a retry is safe.
func NewTimeout(message string, err error) *AppError {
	return &AppError{Code: CodeTimeout, Message: message, HTTPStatus: http.StatusServiceUnavailable, Err: err}
}

// NewNotFound flags a lookup for an unknown resource (e.g. session id).
func NewNotFound(message string, err error) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound, Err: err}
}

// NewInternal wraps an unexpected failure. The caller-visible message stays
// generic; the underlying error is for server-side logs only.
func NewInternal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal error", HTTPStatus: http.StatusInternalServerError, Err: err}
}

// AsAppError normalises any error into an AppError, defaulting to the
// internal classification for errors outside the taxonomy.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		if appErr.HTTPStatus == 0 {
			appErr.HTTPStatus = http.StatusInternalServerError
		}
		return appErr
	}
	return NewInternal(err)
}

// IsCode reports whether err belongs to the taxonomy with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
