package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Dimuthnilanjana/email-alias-generator/internal/apierrors"
)

var errMissingMember = errors.New(`collection has no "hydra:member"`)

// ListDomains returns the domains mailboxes can be registered under.
func (c *Client) ListDomains(ctx context.Context) ([]Domain, error) {
	var result collection[Domain]
	err := c.do(ctx, request{
		op:     apierrors.OpListDomains,
		method: http.MethodGet,
		path:   "/domains",
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// CreateAccount registers a mailbox.
func (c *Client) CreateAccount(ctx context.Context, address, password string) (*Account, error) {
	if address == "" || password == "" {
		return nil, fmt.Errorf("address and password are required")
	}
	var result Account
	err := c.do(ctx, request{
		op:     apierrors.OpCreateAccount,
		method: http.MethodPost,
		path:   "/accounts",
		body:   Credentials{Address: address, Password: password},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// IssueToken exchanges mailbox credentials for a bearer token.
func (c *Client) IssueToken(ctx context.Context, address, password string) (string, error) {
	var result Token
	err := c.do(ctx, request{
		op:     apierrors.OpIssueToken,
		method: http.MethodPost,
		path:   "/token",
		body:   Credentials{Address: address, Password: password},
	}, &result)
	if err != nil {
		return "", err
	}
	if result.Token == "" {
		return "", &apierrors.APIError{
			StatusCode: http.StatusOK,
			Operation:  apierrors.OpIssueToken,
			Err:        fmt.Errorf("%w: empty token", apierrors.ErrMalformedResponse),
		}
	}
	return result.Token, nil
}

// ListMessages returns the provider's current view of the inbox.
func (c *Client) ListMessages(ctx context.Context, token string) ([]Message, error) {
	if token == "" {
		return nil, &apierrors.APIError{
			StatusCode: http.StatusUnauthorized,
			Operation:  apierrors.OpListMessages,
			Message:    "missing bearer token",
		}
	}
	var result collection[Message]
	err := c.do(ctx, request{
		op:     apierrors.OpListMessages,
		method: http.MethodGet,
		path:   "/messages",
		token:  token,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetMessage retrieves the full content of one message.
func (c *Client) GetMessage(ctx context.Context, token, id string) (*MessageDetail, error) {
	var result MessageDetail
	err := c.do(ctx, request{
		op:     apierrors.OpGetMessage,
		method: http.MethodGet,
		path:   "/messages/" + url.PathEscape(id),
		token:  token,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
