package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dimuthnilanjana/email-alias-generator/internal/api"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/clock"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/store"
)

// Default polling configuration values.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultPollTimeout  = 15 * time.Second
)

var (
	// ErrPollInFlight is returned when a fetch for the session is already outstanding.
	ErrPollInFlight = errors.New("poll already in flight")

	// ErrNoCredential is returned when no credential is bound to the session.
	ErrNoCredential = errors.New("no valid credential for session")

	// ErrStopped is returned for a tick that fired after the scheduler was
	// stopped or restarted.
	ErrStopped = errors.New("scheduler stopped")
)

// MessageLister fetches the provider's view of an inbox.
type MessageLister interface {
	ListMessages(ctx context.Context, token string) ([]api.Message, error)
}

// TokenSource returns the credential bound to a session.
type TokenSource interface {
	Current(sessionID string) (string, bool)
}

// MessageSink receives fetched records. It must drop records whose
// session id is not current.
type MessageSink interface {
	Reconcile(sessionID string, raw []api.Message) store.Result
}

// Trigger tells what started a poll.
type Trigger int

const (
	TriggerTick Trigger = iota
	TriggerManual
)

func (t Trigger) String() string {
	if t == TriggerManual {
		return "manual"
	}
	return "tick"
}

// Outcome describes one completed or refused poll.
type Outcome struct {
	SessionID string
	Trigger   Trigger
	Result    store.Result
	Err       error

	// Stopped is true when this outcome stopped the scheduler.
	Stopped bool
}

// Config holds the collaborators of a Scheduler.
type Config struct {
	Lister MessageLister
	Tokens TokenSource
	Sink   MessageSink

	// Clock drives the ticker. If nil, the wall clock is used.
	Clock clock.Clock

	// Timeout bounds each fetch. If zero, DefaultPollTimeout is used.
	Timeout time.Duration

	// Active is consulted before every poll. A non-nil error refuses the
	// poll; on a tick it also stops the scheduler (expired or replaced
	// session).
	Active func(sessionID string) error

	// OnOutcome is called from the polling goroutine after every poll.
	OnOutcome func(Outcome)

	Logger *slog.Logger
}
