// Package apperr defines the error kinds shared by the client layers and
// the helpers that turn them into user-visible messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyExists   = errors.New("already exists")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("not logged in")
	ErrNotConfirmed    = errors.New("not confirmed")
	ErrForbidden       = errors.New("not the owner")
	ErrTransport       = errors.New("transport error")
)

// DefaultMessage is shown when nothing more specific is known about a failure.
const DefaultMessage = "An unknown error occurred"

// APIError is a non-2xx response from the remote notes API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote API returned HTTP %d", e.Status)
	}
	return e.Message
}

// Unwrap maps the status code onto the sentinel kinds above.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthenticated
	}
	return nil
}

// ValidationError is a client-side input error raised before any network call.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Err} }

// Invalid wraps err as a ValidationError. A nil err stays nil.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

// Invalidf builds a ValidationError from a format string.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// TransportError is a failure below the HTTP status level (DNS, refused
// connection, timeout, undecodable body).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// Message returns the text shown to the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		if tErr.Err != nil {
			return tErr.Err.Error()
		}
		return DefaultMessage
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "You must be logged in."
	case errors.Is(err, ErrNotConfirmed):
		return "Deletion was not confirmed."
	case errors.Is(err, ErrForbidden):
		return "Only the owner can change this note."
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultMessage
}
