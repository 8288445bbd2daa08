package tempmail

import (
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/Dimuthnilanjana/email-alias-generator/internal/api"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/clock"
)

const (
	// DefaultBaseURL is the public mail.tm API.
	DefaultBaseURL = api.DefaultBaseURL

	// DefaultTimeout bounds each provider request.
	DefaultTimeout = api.DefaultTimeout

	// DefaultSessionTTL is how long a session stays valid after creation.
	DefaultSessionTTL = time.Hour

	// DefaultPollInterval is the auto-refresh interval.
	DefaultPollInterval = 30 * time.Second

	// DefaultRateLimit is mail.tm's published limit in requests per second.
	DefaultRateLimit = float64(api.DefaultRateLimit)

	// DefaultUserAgent is sent with every provider request.
	DefaultUserAgent = "tempmail-go"

	defaultWaitTimeout = 60 * time.Second
)

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	domain       string
	sessionTTL   time.Duration
	pollInterval time.Duration
	autoRefresh  bool
	clock        clock.Clock
	logger       *slog.Logger
	rateLimit    float64
	rateBurst    int
	userAgent    string
}

// waitConfig holds configuration for waiting on messages.
type waitConfig struct {
	subject      string
	subjectRegex *regexp.Regexp
	from         string
	fromRegex    *regexp.Regexp
	predicate    func(*Message) bool
	timeout      time.Duration
}

// Option configures the client.
type Option func(*clientConfig)

// WaitOption configures message waiting.
type WaitOption func(*waitConfig)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header sent to the provider.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithTimeout sets the timeout applied to every provider request.
// A timeout is reported as ErrNetworkFailure.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithDomain sets the mailbox domain. When empty, the first active public
// domain reported by the provider is used.
func WithDomain(domain string) Option {
	return func(c *clientConfig) {
		c.domain = domain
	}
}

// WithSessionTTL sets how long a session stays valid.
// Default: 1 hour
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.sessionTTL = ttl
	}
}

// WithPollInterval sets the auto-refresh interval.
// Default: 30 seconds
func WithPollInterval(interval time.Duration) Option {
	return func(c *clientConfig) {
		c.pollInterval = interval
	}
}

// WithAutoRefresh sets whether new sessions are polled automatically.
// Default: true
func WithAutoRefresh(enabled bool) Option {
	return func(c *clientConfig) {
		c.autoRefresh = enabled
	}
}

// WithClock sets the time source for expiry and polling.
func WithClock(clk clock.Clock) Option {
	return func(c *clientConfig) {
		c.clock = clk
	}
}

// WithLogger sets the structured logger. Logging is discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithRateLimit caps outgoing requests per second. A non-positive rate
// disables limiting.
// Default: 8 requests per second, burst 8
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *clientConfig) {
		c.rateLimit = perSecond
		c.rateBurst = burst
	}
}

// WithSubject filters messages by exact subject match.
func WithSubject(subject string) WaitOption {
	return func(c *waitConfig) {
		c.subject = subject
	}
}

// WithSubjectRegex filters messages by subject regex.
func WithSubjectRegex(pattern *regexp.Regexp) WaitOption {
	return func(c *waitConfig) {
		c.subjectRegex = pattern
	}
}

// WithFrom filters messages by exact sender address.
func WithFrom(from string) WaitOption {
	return func(c *waitConfig) {
		c.from = from
	}
}

// WithFromRegex filters messages by sender regex.
func WithFromRegex(pattern *regexp.Regexp) WaitOption {
	return func(c *waitConfig) {
		c.fromRegex = pattern
	}
}

// WithPredicate filters messages by custom predicate.
func WithPredicate(fn func(*Message) bool) WaitOption {
	return func(c *waitConfig) {
		c.predicate = fn
	}
}

// WithWaitTimeout sets the timeout for waiting.
func WithWaitTimeout(timeout time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = timeout
	}
}

// Matches checks if a message matches the wait criteria.
func (w *waitConfig) Matches(m *Message) bool {
	if w.subject != "" && m.Subject != w.subject {
		return false
	}
	if w.subjectRegex != nil && !w.subjectRegex.MatchString(m.Subject) {
		return false
	}
	if w.from != "" && m.From != w.from {
		return false
	}
	if w.fromRegex != nil && !w.fromRegex.MatchString(m.From) {
		return false
	}
	if w.predicate != nil && !w.predicate(m) {
		return false
	}
	return true
}
