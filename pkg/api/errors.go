package api

import (
	"fmt"
	"strings"
)

// Code identifies the exact classification of a chain halt. Codes are
// stable and machine-readable; clients branch on them, so renaming one
// is a breaking API change.
type Code string

const (
	CodeMissingToken           Code = "MissingTokenError"
	CodeTokenMalformed         Code = "TokenMalformed"
	CodeTokenExpired           Code = "TokenExpired"
	CodeSignatureInvalid       Code = "SignatureInvalid"
	CodeInvalidPayload         Code = "InvalidPayloadError"
	CodeSubscriptionDenied     Code = "SubscriptionDenied"
	CodePermissionDenied       Code = "PermissionDenied"
	CodeEntitlementUnavailable Code = "EntitlementUnavailable"
)

// ChainError is a classified halt of the request chain. Every failing stage
// produces exactly one ChainError; nothing downstream of the failing stage
// runs.
type ChainError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`

	// Param names the offending input when one exists: the claim field
	// that failed schema validation, the billing status, or the missing
	// permissions.
	Param string `json:"param,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Code, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ChainError) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error and returns the receiver.
func (e *ChainError) WithCause(err error) *ChainError {
	e.cause = err
	return e
}

// ErrorResponse wraps a ChainError for JSON serialization as the top-level
// error response body.
type ErrorResponse struct {
	Error *ChainError `json:"error"`
}

// NewMissingTokenError creates the halt for a request carrying no token in
// any supported carrier.
func NewMissingTokenError() *ChainError {
	return &ChainError{
		Code:    CodeMissingToken,
		Message: "no bearer token found in header, cookie, query, or body",
	}
}

// NewTokenMalformedError creates the halt for a token that is not a
// structurally valid JWT.
func NewTokenMalformedError(err error) *ChainError {
	return (&ChainError{
		Code:    CodeTokenMalformed,
		Message: "token is not a well-formed JWT",
	}).WithCause(err)
}

// NewTokenExpiredError creates the halt for a token whose expiry lies in the
// past beyond the configured clock skew.
func NewTokenExpiredError(err error) *ChainError {
	return (&ChainError{
		Code:    CodeTokenExpired,
		Message: "token has expired",
	}).WithCause(err)
}

// NewSignatureInvalidError creates the halt for a token that verifies under
// neither accepted signing secret.
func NewSignatureInvalidError(err error) *ChainError {
	return (&ChainError{
		Code:    CodeSignatureInvalid,
		Message: "token signature is not valid under any accepted secret",
	}).WithCause(err)
}

// NewInvalidPayloadError creates the halt for decoded claims that violate
// the identity schema. Param names the offending claim field.
func NewInvalidPayloadError(field, message string) *ChainError {
	return &ChainError{
		Code:    CodeInvalidPayload,
		Message: message,
		Param:   field,
	}
}

// NewSubscriptionDeniedError creates the halt for an account whose
// subscription is not active. Param carries the billing status returned.
func NewSubscriptionDeniedError(status SubscriptionStatus) *ChainError {
	return &ChainError{
		Code:    CodeSubscriptionDenied,
		Message: "account subscription does not permit access",
		Param:   string(status),
	}
}

// NewPermissionDeniedError creates the halt for an identity lacking part of
// a route's required permission set. Param lists the missing permissions.
func NewPermissionDeniedError(missing []string) *ChainError {
	return &ChainError{
		Code:    CodePermissionDenied,
		Message: "identity is missing required permissions",
		Param:   strings.Join(missing, ","),
	}
}

// NewEntitlementUnavailableError creates the halt for a billing or
// permissions collaborator that could not be reached or timed out. It is
// distinct from the denial codes so operators can alert on collaborator
// outages separately from legitimate denials.
func NewEntitlementUnavailableError(err error) *ChainError {
	return (&ChainError{
		Code:    CodeEntitlementUnavailable,
		Message: "entitlement could not be determined",
	}).WithCause(err)
}
