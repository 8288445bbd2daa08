package tempmail

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// EventKind identifies what changed.
type EventKind int

const (
	EventSessionCreated EventKind = iota
	EventMessagesReceived
	EventMessageRead
	EventMessageDeleted
	EventPollFailed
	EventCredentialRejected
	EventSessionExpired
	EventAutoRefreshChanged
	EventSessionClosed
)

var eventNames = [...]string{
	EventSessionCreated:     "session_created",
	EventMessagesReceived:   "messages_received",
	EventMessageRead:        "message_read",
	EventMessageDeleted:     "message_deleted",
	EventPollFailed:         "poll_failed",
	EventCredentialRejected: "credential_rejected",
	EventSessionExpired:     "session_expired",
	EventAutoRefreshChanged: "auto_refresh_changed",
	EventSessionClosed:      "session_closed",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a change notification.
type Event struct {
	Kind    EventKind
	Session Session
	Time    time.Time

	// Messages holds the new messages of EventMessagesReceived.
	Messages []Message

	// MessageID is set for EventMessageRead and EventMessageDeleted.
	MessageID string

	// Err is set for EventPollFailed and EventCredentialRejected.
	Err error

	// AutoRefresh is the new setting for EventAutoRefreshChanged.
	AutoRefresh bool
}

// Subscription represents an active subscription that can be unsubscribed.
type Subscription interface {
	// Unsubscribe stops the subscription. Safe to call multiple times.
	Unsubscribe()
}

type funcSubscription struct {
	cancel func()
}

func (s *funcSubscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

// subscription represents one registered event callback.
type subscription struct {
	id       string
	callback func(Event)
	active   atomic.Bool
}

// subscriptionManager handles event subscriptions with safe lifecycle management.
// It ensures callbacks are never invoked after unsubscription completes.
type subscriptionManager struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	nextID atomic.Uint64

	done      chan struct{} // closed by clear
	closeOnce sync.Once
}

func newSubscriptionManager() *subscriptionManager {
	return &subscriptionManager{
		subs: make(map[string]*subscription),
		done: make(chan struct{}),
	}
}

// subscribe registers a callback and returns its unsubscribe function.
func (m *subscriptionManager) subscribe(callback func(Event)) func() {
	id := strconv.FormatUint(m.nextID.Add(1), 10)

	sub := &subscription{id: id, callback: callback}
	sub.active.Store(true)

	m.mu.Lock()
	m.subs[id] = sub
	m.mu.Unlock()

	return func() {
		m.unsubscribe(id)
	}
}

// unsubscribe removes a subscription. Safe to call multiple times.
func (m *subscriptionManager) unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub, ok := m.subs[id]; ok {
		sub.active.Store(false)
		delete(m.subs, id)
	}
}

// notify calls every registered callback synchronously, outside the lock.
func (m *subscriptionManager) notify(ev Event) {
	m.mu.RLock()
	if len(m.subs) == 0 {
		m.mu.RUnlock()
		return
	}
	subs := make([]*subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	for _, sub := range subs {
		if sub.active.Load() {
			sub.callback(ev)
		}
	}
}

// clear removes all subscriptions. Called during Client.Close().
func (m *subscriptionManager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs {
		sub.active.Store(false)
	}
	m.subs = make(map[string]*subscription)
	m.closeOnce.Do(func() { close(m.done) })
}

// OnEvent registers fn to be called for every event. Callbacks run on the
// goroutine that produced the event and must not block.
func (c *Client) OnEvent(fn func(Event)) Subscription {
	return &funcSubscription{cancel: c.subs.subscribe(fn)}
}

// Events returns a channel that receives events until ctx is done or the
// client is closed. Events are dropped when the channel buffer is full.
// The channel is not closed; select on ctx.Done() to detect cancellation.
func (c *Client) Events(ctx context.Context) <-chan Event {
	ch := make(chan Event, 32)

	unsubscribe := c.subs.subscribe(func(ev Event) {
		select {
		case ch <- ev:
		default:
		}
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-c.subs.done:
		}
		unsubscribe()
	}()

	return ch
}
