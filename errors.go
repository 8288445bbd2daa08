package tempmail

import (
	"errors"
	"fmt"

	"github.com/Dimuthnilanjana/email-alias-generator/internal/apierrors"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/delivery"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrProvisioningFailed is returned when the provider rejects account creation.
	ErrProvisioningFailed = errors.New("mailbox provisioning failed")

	// ErrAuthFailed is returned when the provider refuses to issue a token.
	ErrAuthFailed = errors.New("token issuance failed")

	// ErrNetworkFailure is returned for transport errors and timeouts.
	ErrNetworkFailure = errors.New("network failure")

	// ErrInvalidCredential is returned when the provider rejects a token it
	// issued earlier, or when no token is bound to the session.
	ErrInvalidCredential = errors.New("credential rejected")

	// ErrProviderError is returned for non-2xx responses and malformed bodies.
	ErrProviderError = errors.New("unexpected provider response")

	// ErrRateLimited is returned when the provider rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNoSession is returned when an operation needs a current session.
	ErrNoSession = errors.New("no active session")

	// ErrSessionExpired is returned when the current session has expired.
	ErrSessionExpired = errors.New("session has expired")

	// ErrSessionReplaced is returned when the session changed while a
	// request for it was outstanding.
	ErrSessionReplaced = errors.New("session was replaced")

	// ErrPollInFlight is returned when a refresh is already outstanding.
	ErrPollInFlight = errors.New("refresh already in progress")

	// ErrMessageNotFound is returned when a message id is unknown.
	ErrMessageNotFound = errors.New("message not found")

	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")
)

// TempMailError is implemented by all typed errors of this package.
type TempMailError interface {
	error
	TempMailError() // marker method
}

// APIError represents a non-2xx or malformed response from the provider.
type APIError struct {
	StatusCode int
	Message    string
	Operation  string
}

func (e *APIError) Error() string {
	prefix := "API error"
	if e.Operation != "" {
		prefix = e.Operation + ": API error"
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %d: %s", prefix, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %d", prefix, e.StatusCode)
}

// TempMailError implements the TempMailError interface.
func (e *APIError) TempMailError() {}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidCredential:
		// A 401 from /token means bad account credentials, not a stale token.
		return e.StatusCode == 401 && e.Operation != string(apierrors.OpIssueToken)
	case ErrRateLimited:
		return e.StatusCode == 429
	case ErrMessageNotFound:
		return e.StatusCode == 404 && e.Operation == string(apierrors.OpGetMessage)
	case ErrProviderError:
		return e.StatusCode != 401
	}
	return false
}

// NetworkError represents a transport failure or timeout.
type NetworkError struct {
	Err       error
	URL       string
	Operation string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetworkFailure
}

// TempMailError implements the TempMailError interface.
func (e *NetworkError) TempMailError() {}

// ProvisioningError reports a failed mailbox creation.
type ProvisioningError struct {
	Address string
	Err     error
}

func (e *ProvisioningError) Error() string {
	if e.Address != "" {
		return fmt.Sprintf("provision %s: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("provision mailbox: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *ProvisioningError) Is(target error) bool {
	return target == ErrProvisioningFailed
}

// TempMailError implements the TempMailError interface.
func (e *ProvisioningError) TempMailError() {}

// AuthError reports a failed token issuance.
type AuthError struct {
	Address string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authenticate %s: %v", e.Address, e.Err)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailed
}

// TempMailError implements the TempMailError interface.
func (e *AuthError) TempMailError() {}

// wrapError converts internal errors to public errors.
// This ensures that errors.Is() checks work with public sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" && apiErr.Err != nil {
			msg = apiErr.Err.Error()
		}
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    msg,
			Operation:  string(apiErr.Operation),
		}
	}

	var netErr *apierrors.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err:       netErr.Err,
			URL:       netErr.URL,
			Operation: string(netErr.Operation),
		}
	}

	switch {
	case errors.Is(err, delivery.ErrPollInFlight):
		return ErrPollInFlight
	case errors.Is(err, delivery.ErrNoCredential):
		return ErrInvalidCredential
	}

	return err
}
