package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Dimuthnilanjana/email-alias-generator/internal/apierrors"
)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.mail.tm"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 8 // mail.tm allows 8 requests per second per IP
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client is the HTTP client for the mail provider REST API.
// It is stateless apart from its configuration and never retries a request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	userAgent  string
}

// Option configures the API client.
type Option func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout bounds every request. A timeout surfaces as a NetworkError.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit limits outgoing requests to rps requests per second.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a new API client.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		userAgent:  "tempmail-go",
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}

	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes a single provider call.
type request struct {
	op     apierrors.Operation
	method string
	path   string
	token  string
	body   any
}

// do performs one HTTP round trip and decodes a JSON response into result.
// Non-2xx responses become *apierrors.APIError, transport failures and
// timeouts become *apierrors.NetworkError.
func (c *Client) do(ctx context.Context, r request, result any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := c.baseURL + r.path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &apierrors.NetworkError{Err: err, URL: url, Operation: r.op}
		}
	}

	var bodyReader io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/ld+json, application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apierrors.NetworkError{Err: err, URL: url, Operation: r.op}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(resp, r.op)
	}

	if result == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierrors.NetworkError{Err: err, URL: url, Operation: r.op}
	}
	if err := json.Unmarshal(data, result); err != nil {
		return &apierrors.APIError{
			StatusCode: resp.StatusCode,
			Operation:  r.op,
			Err:        fmt.Errorf("%w: %v", apierrors.ErrMalformedResponse, err),
		}
	}
	return nil
}

// errorBody covers the error shapes mail.tm returns: JSON-LD problem
// documents and plain {code, message} objects.
type errorBody struct {
	Description string `json:"hydra:description"`
	Detail      string `json:"detail"`
	Message     string `json:"message"`
}

func parseErrorResponse(resp *http.Response, op apierrors.Operation) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(body))
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Description != "":
			msg = eb.Description
		case eb.Detail != "":
			msg = eb.Detail
		case eb.Message != "":
			msg = eb.Message
		}
	}

	return &apierrors.APIError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Operation:  op,
	}
}
