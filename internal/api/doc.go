// Package api provides the HTTP client for the disposable mailbox provider
// (mail.tm compatible). It handles request/response serialization, bearer
// authentication and client-side rate limiting.
//
// # Endpoints
//
//   - [Client.ListDomains]: GET /domains
//   - [Client.CreateAccount]: POST /accounts
//   - [Client.IssueToken]: POST /token
//   - [Client.ListMessages]: GET /messages (bearer auth)
//   - [Client.GetMessage]: GET /messages/{id} (bearer auth)
//
// # Retry Behavior
//
// The client never retries. Every request is bounded by the configured
// timeout; a timeout is reported exactly like a connection failure, as an
// [apierrors.NetworkError]. Deciding whether to try again belongs to the
// caller's next action.
//
// # Error Handling
//
// Any non-2xx status or undecodable body is an [apierrors.APIError]. A 401
// matches apierrors.ErrUnauthorized so callers can tell a rejected token
// from a network failure:
//
//	if errors.Is(err, apierrors.ErrUnauthorized) {
//	    // re-authenticate
//	}
//
// # Thread Safety
//
// The [Client] type is safe for concurrent use.
package api
