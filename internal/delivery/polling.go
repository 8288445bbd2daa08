package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dimuthnilanjana/email-alias-generator/internal/apierrors"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/clock"
)

// State is the scheduler lifecycle state.
type State int

const (
	StateIdle State = iota
	StateScheduled
	StatePolling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StatePolling:
		return "polling"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Scheduler polls the inbox of one session on a fixed interval.
type Scheduler struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	sessionID string
	interval  time.Duration
	gen       uint64 // bumped on every start and stop
	cancel    context.CancelFunc
	done      chan struct{}

	inFlight    string // session id of the outstanding fetch, kept across Stop
	inFlightSeq uint64
	seq         uint64
	skipped     int
}

// NewScheduler creates an idle scheduler.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPollTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		cfg:    cfg,
		logger: logger.With("component", "scheduler"),
	}
}

func (s *Scheduler) running() bool {
	return s.state == StateScheduled || s.state == StatePolling
}

// Start arms the ticker for sessionID. It is a no-op when already running
// for the same session; a scheduler running for another session is
// stopped first.
func (s *Scheduler) Start(sessionID string, interval time.Duration) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", interval)
	}

	s.mu.Lock()
	if s.running() && s.sessionID == sessionID {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	ticker := s.cfg.Clock.NewTicker(interval)
	s.gen++
	s.sessionID = sessionID
	s.interval = interval
	s.state = StateScheduled
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, ticker, sessionID, s.gen, s.done)

	s.logger.Debug("scheduler started", "session", sessionID, "interval", interval)
	return nil
}

// Stop cancels future ticks and waits for the ticker loop to exit.
// It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	done := s.stopLocked()
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// stopLocked transitions to Stopped and returns the loop's done channel,
// or nil if nothing was running.
func (s *Scheduler) stopLocked() chan struct{} {
	if !s.running() {
		if s.state == StateIdle {
			s.state = StateStopped
		}
		return nil
	}
	s.cancel()
	s.gen++
	s.state = StateStopped
	done := s.done
	s.cancel = nil
	s.done = nil
	s.logger.Debug("scheduler stopped", "session", s.sessionID)
	return done
}

// halt stops the scheduler from a polling goroutine without waiting for
// the loop. It only acts on the generation the poll belongs to.
func (s *Scheduler) halt(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || !s.running() {
		return false
	}
	s.stopLocked()
	return true
}

// haltSession stops the scheduler if it runs for sessionID.
func (s *Scheduler) haltSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != sessionID || !s.running() {
		return false
	}
	s.stopLocked()
	return true
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID returns the session the scheduler was last started for.
func (s *Scheduler) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Skipped returns how many ticks were skipped because a fetch was in flight.
func (s *Scheduler) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

func (s *Scheduler) run(ctx context.Context, ticker clock.Ticker, sessionID string, gen uint64, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.onTick(sessionID, gen)
		}
	}
}

// onTick runs on the loop goroutine. It never calls collaborators that may
// block on the caller's locks; the fetch runs on its own goroutine.
func (s *Scheduler) onTick(sessionID string, gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.running() {
		s.mu.Unlock()
		return
	}
	if s.inFlight == sessionID {
		s.skipped++
		s.mu.Unlock()
		s.logger.Debug("tick skipped, poll in flight", "session", sessionID)
		return
	}
	s.mu.Unlock()

	go s.cycle(sessionID, gen, TriggerTick)
}

// PollNow fetches the inbox of sessionID immediately, subject to the same
// in-flight guard as a tick. It blocks until the fetch completes or ctx is
// done. The ticker schedule is left unchanged.
func (s *Scheduler) PollNow(ctx context.Context, sessionID string) Outcome {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	return s.cycleContext(ctx, sessionID, gen, TriggerManual)
}

func (s *Scheduler) cycle(sessionID string, gen uint64, trigger Trigger) {
	s.cycleContext(context.Background(), sessionID, gen, trigger)
}

func (s *Scheduler) cycleContext(ctx context.Context, sessionID string, gen uint64, trigger Trigger) Outcome {
	out := s.poll(ctx, sessionID, gen, trigger)
	if s.cfg.OnOutcome != nil {
		s.cfg.OnOutcome(out)
	}
	return out
}

func (s *Scheduler) poll(ctx context.Context, sessionID string, gen uint64, trigger Trigger) Outcome {
	out := Outcome{SessionID: sessionID, Trigger: trigger}

	if s.cfg.Active != nil {
		if err := s.cfg.Active(sessionID); err != nil {
			out.Err = err
			if trigger == TriggerTick {
				out.Stopped = s.halt(gen)
			}
			return out
		}
	}

	token, seq, err := s.begin(sessionID, gen, trigger)
	if err != nil {
		out.Err = err
		return out
	}
	defer s.finish(seq, gen)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	raw, err := s.cfg.Lister.ListMessages(ctx, token)
	if err != nil {
		out.Err = err
		if apierrors.IsUnauthorized(err) {
			out.Stopped = s.haltSession(sessionID)
			s.logger.Warn("credential rejected, polling stopped", "session", sessionID)
		} else {
			s.logger.Warn("poll failed", "session", sessionID, "trigger", trigger.String(), "error", err)
		}
		return out
	}

	out.Result = s.cfg.Sink.Reconcile(sessionID, raw)
	if !out.Result.Accepted {
		s.logger.Debug("stale poll result dropped", "session", sessionID)
	}
	return out
}

// begin claims the in-flight slot for sessionID.
func (s *Scheduler) begin(sessionID string, gen uint64, trigger Trigger) (string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if trigger == TriggerTick && (gen != s.gen || !s.running()) {
		return "", 0, ErrStopped
	}
	if s.inFlight == sessionID {
		if trigger == TriggerTick {
			s.skipped++
		}
		return "", 0, ErrPollInFlight
	}

	token, ok := s.cfg.Tokens.Current(sessionID)
	if !ok {
		s.logger.Debug("poll skipped, no credential", "session", sessionID)
		return "", 0, ErrNoCredential
	}

	s.seq++
	s.inFlight = sessionID
	s.inFlightSeq = s.seq
	if s.state == StateScheduled && s.sessionID == sessionID && gen == s.gen {
		s.state = StatePolling
	}
	return token, s.seq, nil
}

// finish releases the in-flight slot claimed by seq.
func (s *Scheduler) finish(seq, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlightSeq == seq {
		s.inFlight = ""
	}
	if s.state == StatePolling && gen == s.gen {
		s.state = StateScheduled
	}
}
