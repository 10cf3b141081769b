package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP envelope
type Kind string

const (
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindTransport      Kind = "transport"
	KindRemoteProtocol Kind = "remote_protocol"
	KindLicense        Kind = "license"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindInternal       Kind = "internal"
)

// Error is the application error carried across package boundaries
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Field   string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap allows errors.Is and errors.As to reach the cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two *Error values by kind and code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// New creates an error of the given kind
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Authorization reports a failed session, capability or nonce check
func Authorization(message string) *Error {
	return New(KindAuthorization, "unauthorized", message)
}

// Forbidden reports a valid session that lacks a capability
func Forbidden(message string) *Error {
	return New(KindAuthorization, "forbidden", message)
}

// Validation reports bad input. field may be empty.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Code: "validation_failed", Message: message, Field: field}
}

// Transport reports a network failure or timeout talking to a remote service
func Transport(err error) *Error {
	return Wrap(KindTransport, "transport_error", "remote service unreachable", err)
}

// RemoteProtocol reports a remote response that could not be decoded
func RemoteProtocol(err error) *Error {
	return Wrap(KindRemoteProtocol, "remote_protocol_error", "malformed remote response", err)
}

// LicenseInactive reports that optimization is blocked by the license status
func LicenseInactive(status string) *Error {
	return New(KindLicense, "license_inactive", fmt.Sprintf("license is not active (status: %s)", status))
}

// Conflict reports an operation that clashes with current state
func Conflict(message string) *Error {
	return New(KindConflict, "conflict", message)
}

// NotFound reports a missing resource
func NotFound(what string) *Error {
	return New(KindNotFound, "not_found", fmt.Sprintf("%s not found", what))
}

// Internal wraps an unexpected failure
func Internal(err error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", err)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to its response status code
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindAuthorization:
		if e.Code == "forbidden" {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindTransport, KindRemoteProtocol:
		return http.StatusBadGateway
	case KindLicense:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
