package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInvalidInput        = "invalid_input"
	CodeUnauthorized        = "unauthorized"
	CodeNotFound            = "not_found"
	CodeValidation          = "validation_error"
	CodeClassifierDown      = "classification_unavailable"
	CodeClassifierMalformed = "malformed_classifier_output"
	CodePersistence         = "persistence_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func InvalidInput(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidInput, err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, CodeValidation, err)
}

func ClassifierUnavailable(err error) *Error {
	return New(http.StatusInternalServerError, CodeClassifierDown, err)
}

func ClassifierMalformed(err error) *Error {
	return New(http.StatusInternalServerError, CodeClassifierMalformed, err)
}

func Persistence(err error) *Error {
	return New(http.StatusInternalServerError, CodePersistence, err)
}

// From returns err as an *Error. Errors that already carry a status and code
// pass through untouched so callers never double-wrap.
func From(err error, fallback *Error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if fallback != nil {
		return New(fallback.Status, fallback.Code, err)
	}
	return Persistence(err)
}

func Is(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
