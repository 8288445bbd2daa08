package tempmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dimuthnilanjana/email-alias-generator/internal/api"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/apierrors"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/clock"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/delivery"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/store"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/token"
)

// MinSessionTTL is the shortest accepted session lifetime.
const MinSessionTTL = time.Minute

// Client manages the current disposable mailbox session.
type Client struct {
	apiClient *api.Client
	tokens    *token.Lifecycle
	store     *store.Store
	scheduler *delivery.Scheduler
	subs      *subscriptionManager
	clock     clock.Clock
	logger    *slog.Logger

	domain       string
	sessionTTL   time.Duration
	pollInterval time.Duration

	// createMu serializes CreateSession and Reauthenticate.
	createMu sync.Mutex

	mu          sync.RWMutex
	session     *Session
	password    string
	autoRefresh bool
	expired     bool // EventSessionExpired sent for the current session
	closed      bool
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(cfg *clientConfig) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithBaseURL(cfg.baseURL),
		api.WithRateLimit(cfg.rateLimit, cfg.rateBurst),
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}
	if cfg.userAgent != "" {
		apiOpts = append(apiOpts, api.WithUserAgent(cfg.userAgent))
	}
	return api.New(apiOpts...)
}

// New creates a client. No network calls are made until CreateSession.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		baseURL:      DefaultBaseURL,
		timeout:      DefaultTimeout,
		sessionTTL:   DefaultSessionTTL,
		pollInterval: DefaultPollInterval,
		autoRefresh:  true,
		rateLimit:    DefaultRateLimit,
		rateBurst:    int(DefaultRateLimit),
		userAgent:    DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.sessionTTL < MinSessionTTL {
		return nil, fmt.Errorf("session TTL must be at least %v, got %v", MinSessionTTL, cfg.sessionTTL)
	}
	if cfg.pollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %v", cfg.pollInterval)
	}
	if cfg.clock == nil {
		cfg.clock = clock.Real{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	apiClient, err := buildAPIClient(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		apiClient:    apiClient,
		tokens:       token.New(),
		store:        store.New(),
		subs:         newSubscriptionManager(),
		clock:        cfg.clock,
		logger:       cfg.logger,
		domain:       cfg.domain,
		sessionTTL:   cfg.sessionTTL,
		pollInterval: cfg.pollInterval,
		autoRefresh:  cfg.autoRefresh,
	}
	c.scheduler = delivery.NewScheduler(delivery.Config{
		Lister:    apiClient,
		Tokens:    c.tokens,
		Sink:      c.store,
		Clock:     cfg.clock,
		Timeout:   cfg.timeout,
		Active:    c.checkActive,
		OnOutcome: c.handleOutcome,
		Logger:    cfg.logger,
	})

	return c, nil
}

// checkClosed returns ErrClientClosed if the client has been closed.
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// checkActive reports whether sessionID is current and unexpired.
func (c *Client) checkActive(sessionID string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.closed:
		return ErrClientClosed
	case c.session == nil || c.session.ID != sessionID:
		return ErrSessionReplaced
	case c.session.IsExpired(c.clock.Now()):
		return ErrSessionExpired
	}
	return nil
}

// CreateSession provisions a new mailbox and makes it current. On failure
// the previous session, if any, stays current and keeps polling.
func (c *Client) CreateSession(ctx context.Context) (Session, error) {
	c.createMu.Lock()
	defer c.createMu.Unlock()

	if err := c.checkClosed(); err != nil {
		return Session{}, err
	}

	domain, err := c.resolveDomain(ctx)
	if err != nil {
		return Session{}, &ProvisioningError{Err: err}
	}

	local, password, err := generateCredentials()
	if err != nil {
		return Session{}, &ProvisioningError{Err: err}
	}
	address := local + "@" + domain

	if _, err := c.apiClient.CreateAccount(ctx, address, password); err != nil {
		c.logger.Warn("account creation failed", "address", address, "error", err)
		return Session{}, &ProvisioningError{Address: address, Err: wrapError(err)}
	}

	tok, err := c.apiClient.IssueToken(ctx, address, password)
	if err != nil {
		c.logger.Warn("token issuance failed", "address", address, "error", err)
		return Session{}, &AuthError{Address: address, Err: wrapError(err)}
	}

	now := c.clock.Now()
	session := Session{
		ID:        uuid.NewString(),
		Address:   address,
		Domain:    domain,
		CreatedAt: now,
		ExpiresAt: now.Add(c.sessionTTL),
	}

	if err := c.install(session, password, tok); err != nil {
		return Session{}, err
	}

	c.logger.Info("session created",
		"provider", c.apiClient.BaseURL(),
		"session", session.ID,
		"address", session.Address,
		"expires_at", session.ExpiresAt,
		"token", token.Fingerprint(tok))
	c.emit(Event{Kind: EventSessionCreated, Session: session})

	return session, nil
}

// install replaces the current session. The old scheduler is stopped
// before the store is reset and the new one is started.
func (c *Client) install(session Session, password, tok string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	c.scheduler.Stop()
	c.store.Reset(session.ID)
	c.tokens.Bind(session.ID, tok)
	c.session = &session
	c.password = password
	c.expired = false

	if c.autoRefresh {
		if err := c.scheduler.Start(session.ID, c.pollInterval); err != nil {
			c.logger.Error("start scheduler", "session", session.ID, "error", err)
		}
	}
	return nil
}

// resolveDomain returns the configured domain or the first active public
// domain offered by the provider.
func (c *Client) resolveDomain(ctx context.Context) (string, error) {
	if c.domain != "" {
		return c.domain, nil
	}
	domains, err := c.apiClient.ListDomains(ctx)
	if err != nil {
		return "", wrapError(err)
	}
	for _, d := range domains {
		if d.IsActive && !d.IsPrivate && d.Domain != "" {
			return d.Domain, nil
		}
	}
	return "", errors.New("provider offers no active public domain")
}

// Current returns the current session.
func (c *Client) Current() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Now returns the client's current time.
func (c *Client) Now() time.Time {
	return c.clock.Now()
}

// SetAutoRefresh starts or stops polling for the current session.
func (c *Client) SetAutoRefresh(enabled bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.autoRefresh == enabled {
		c.mu.Unlock()
		return nil
	}
	c.autoRefresh = enabled

	var session Session
	if c.session != nil {
		session = *c.session
	}
	var err error
	switch {
	case !enabled:
		c.scheduler.Stop()
	case c.session != nil && !c.session.IsExpired(c.clock.Now()):
		err = c.scheduler.Start(c.session.ID, c.pollInterval)
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}

	c.logger.Info("auto-refresh changed", "enabled", enabled)
	c.emit(Event{Kind: EventAutoRefreshChanged, Session: session, AutoRefresh: enabled})
	return nil
}

// AutoRefresh reports whether auto-refresh is enabled.
func (c *Client) AutoRefresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.autoRefresh
}

// SchedulerState returns the state of the auto-refresh scheduler.
func (c *Client) SchedulerState() State {
	return c.scheduler.State()
}

// PollInterval returns the auto-refresh interval.
func (c *Client) PollInterval() time.Duration {
	return c.pollInterval
}

// Refresh polls the inbox now. It fails with ErrPollInFlight when a poll
// is already outstanding and does not move the next scheduled tick.
func (c *Client) Refresh(ctx context.Context) (RefreshResult, error) {
	if err := c.checkClosed(); err != nil {
		return RefreshResult{}, err
	}
	session, ok := c.Current()
	if !ok {
		return RefreshResult{}, ErrNoSession
	}

	out := c.scheduler.PollNow(ctx, session.ID)
	if out.Err != nil {
		return RefreshResult{}, wrapError(out.Err)
	}
	if !out.Result.Accepted {
		if err := c.checkClosed(); err != nil {
			return RefreshResult{}, err
		}
		return RefreshResult{}, ErrSessionReplaced
	}

	return RefreshResult{
		SessionID: session.ID,
		Added:     out.Result.Added,
		Total:     c.store.Len(),
		Unread:    c.store.Unread(),
	}, nil
}

// handleOutcome turns poll outcomes into events. It runs on the polling
// goroutine or on the caller of Refresh.
func (c *Client) handleOutcome(out delivery.Outcome) {
	session, current := c.sessionByID(out.SessionID)

	switch {
	case out.Err == nil:
		if out.Result.Accepted && len(out.Result.Added) > 0 {
			c.logger.Debug("messages received", "session", out.SessionID, "count", len(out.Result.Added))
			c.emit(Event{Kind: EventMessagesReceived, Session: session, Messages: out.Result.Added})
		}

	case errors.Is(out.Err, ErrSessionExpired):
		if c.markExpired(out.SessionID) {
			c.logger.Info("session expired", "session", out.SessionID)
			c.emit(Event{Kind: EventSessionExpired, Session: session})
		}

	case errors.Is(out.Err, ErrSessionReplaced),
		errors.Is(out.Err, ErrClientClosed),
		errors.Is(out.Err, delivery.ErrPollInFlight),
		errors.Is(out.Err, delivery.ErrNoCredential),
		errors.Is(out.Err, delivery.ErrStopped):
		// Refused before any request was sent.

	case apierrors.IsUnauthorized(out.Err):
		if current {
			c.credentialRejected(session, out.Err, out.Stopped)
		}

	default:
		if current {
			c.emit(Event{Kind: EventPollFailed, Session: session, Err: wrapError(out.Err)})
		}
	}
}

// credentialRejected drops the token of session and stops polling for it
// unless the scheduler already halted itself.
func (c *Client) credentialRejected(session Session, cause error, halted bool) {
	c.tokens.Invalidate(session.ID)
	if !halted {
		c.mu.RLock()
		if c.session != nil && c.session.ID == session.ID {
			c.scheduler.Stop()
		}
		c.mu.RUnlock()
	}

	c.logger.Warn("credential rejected", "session", session.ID, "error", cause)
	c.emit(Event{Kind: EventCredentialRejected, Session: session, Err: wrapError(cause)})
}

// sessionByID returns the current session and whether its id is id.
func (c *Client) sessionByID(id string) (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil || c.session.ID != id {
		return Session{ID: id}, false
	}
	return *c.session, true
}

func (c *Client) markExpired(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.ID != id || c.expired {
		return false
	}
	c.expired = true
	return true
}

// Reauthenticate issues a fresh token for the current mailbox and resumes
// auto-refresh if it is enabled.
func (c *Client) Reauthenticate(ctx context.Context) error {
	c.createMu.Lock()
	defer c.createMu.Unlock()

	c.mu.RLock()
	closed := c.closed
	var session Session
	if c.session != nil {
		session = *c.session
	}
	password := c.password
	c.mu.RUnlock()

	switch {
	case closed:
		return ErrClientClosed
	case session.ID == "":
		return ErrNoSession
	case session.IsExpired(c.clock.Now()):
		return ErrSessionExpired
	}

	tok, err := c.apiClient.IssueToken(ctx, session.Address, password)
	if err != nil {
		return &AuthError{Address: session.Address, Err: wrapError(err)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if c.session == nil || c.session.ID != session.ID {
		return ErrSessionReplaced
	}
	c.tokens.Bind(session.ID, tok)
	if c.autoRefresh {
		if err := c.scheduler.Start(session.ID, c.pollInterval); err != nil {
			return err
		}
	}
	c.logger.Info("session reauthenticated", "session", session.ID, "token", token.Fingerprint(tok))
	return nil
}

// Messages returns a snapshot of the current session's messages, newest first.
func (c *Client) Messages() []Message {
	return c.store.Messages()
}

// UnreadCount returns the number of unread messages.
func (c *Client) UnreadCount() int {
	return c.store.Unread()
}

// Select returns a message and marks it read.
func (c *Client) Select(id string) (Message, bool) {
	before, ok := c.store.Get(id)
	if !ok {
		return Message{}, false
	}
	msg, ok := c.store.Select(id)
	if ok && !before.IsRead {
		c.emitForCurrent(EventMessageRead, id)
	}
	return msg, ok
}

// MarkRead marks a message read. It reports whether the message exists.
func (c *Client) MarkRead(id string) bool {
	before, ok := c.store.Get(id)
	if !ok || !c.store.MarkRead(id) {
		return false
	}
	if !before.IsRead {
		c.emitForCurrent(EventMessageRead, id)
	}
	return true
}

// Delete removes a message locally. The provider copy is left in place and
// later polls never bring it back.
func (c *Client) Delete(id string) bool {
	if !c.store.Delete(id) {
		return false
	}
	c.emitForCurrent(EventMessageDeleted, id)
	return true
}

// LoadMessage fetches the full body and attachments of a message and keeps
// them on the local copy. The read flag is not changed.
func (c *Client) LoadMessage(ctx context.Context, id string) (Message, error) {
	if err := c.checkClosed(); err != nil {
		return Message{}, err
	}
	session, ok := c.Current()
	if !ok {
		return Message{}, ErrNoSession
	}
	if _, ok := c.store.Get(id); !ok {
		return Message{}, ErrMessageNotFound
	}
	tok, ok := c.tokens.Current(session.ID)
	if !ok {
		return Message{}, ErrInvalidCredential
	}

	detail, err := c.apiClient.GetMessage(ctx, tok, id)
	if err != nil {
		if apierrors.IsUnauthorized(err) {
			c.credentialRejected(session, err, false)
		}
		return Message{}, wrapError(err)
	}

	msg, ok := c.store.Attach(session.ID, detail)
	if !ok {
		if _, err := c.sessionOrReplaced(session.ID); err != nil {
			return Message{}, err
		}
		return Message{}, ErrMessageNotFound
	}
	return msg, nil
}

func (c *Client) sessionOrReplaced(id string) (Session, error) {
	session, current := c.sessionByID(id)
	if !current {
		return Session{}, ErrSessionReplaced
	}
	return session, nil
}

func (c *Client) emitForCurrent(kind EventKind, messageID string) {
	session, _ := c.Current()
	c.emit(Event{Kind: kind, Session: session, MessageID: messageID})
}

func (c *Client) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = c.clock.Now()
	}
	c.subs.notify(ev)
}

// Close stops polling and forgets the session, its token and messages.
// It is idempotent; afterwards every operation returns ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.scheduler.Stop()
	c.tokens.Clear()
	c.store.Reset("")

	var session Session
	if c.session != nil {
		session = *c.session
	}
	c.session = nil
	c.password = ""
	c.mu.Unlock()

	if session.ID != "" {
		c.logger.Info("session closed", "session", session.ID)
	}
	c.emit(Event{Kind: EventSessionClosed, Session: session})
	c.subs.clear()
	return nil
}
