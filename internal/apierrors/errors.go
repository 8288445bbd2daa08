// Package apierrors provides shared error types for the mail provider client.
package apierrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrUnauthorized is returned when the provider rejects credentials or a bearer token.
	ErrUnauthorized = errors.New("invalid or expired credential")

	// ErrAccountExists is returned when the requested mailbox address is already taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrNotFound is returned when a message or account is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited is returned when the provider rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrMalformedResponse is returned when a response body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Operation names the provider call an error came from.
type Operation string

const (
	OpUnknown       Operation = ""
	OpListDomains   Operation = "list domains"
	OpCreateAccount Operation = "create account"
	OpIssueToken    Operation = "issue token"
	OpListMessages  Operation = "list messages"
	OpGetMessage    Operation = "get message"
)

// APIError represents a non-2xx or undecodable response from the provider.
type APIError struct {
	StatusCode int
	Message    string
	Operation  Operation
	Err        error
}

func (e *APIError) Error() string {
	prefix := fmt.Sprintf("API error %d", e.StatusCode)
	if e.Operation != OpUnknown {
		prefix = fmt.Sprintf("%s: API error %d", e.Operation, e.StatusCode)
	}
	switch {
	case e.Message != "":
		return prefix + ": " + e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

// Unwrap returns the underlying error, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401:
		return target == ErrUnauthorized
	case 404:
		return target == ErrNotFound
	case 409:
		return target == ErrAccountExists
	case 422:
		// mail.tm answers a taken address with a validation violation.
		return target == ErrAccountExists && e.Operation == OpCreateAccount
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// NetworkError represents a transport-level failure, including timeouts.
type NetworkError struct {
	Err       error
	URL       string
	Operation Operation
}

func (e *NetworkError) Error() string {
	if e.Operation != OpUnknown {
		return fmt.Sprintf("%s: network error: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err means the provider rejected a credential.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
