// Package store reconciles provider-reported messages into local inbox state.
//
// The store is bound to exactly one session at a time. Local read and delete
// state is authoritative: a later reconcile never overwrites a known message
// and never brings back a deleted one.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/Dimuthnilanjana/email-alias-generator/internal/api"
)

// Placeholders used when the provider omits a field.
const (
	UnknownSender = "Unknown"
	NoPreview     = "(No preview available)"
)

// Attachment references a file attached to a message.
type Attachment struct {
	ID          string
	Filename    string
	ContentType string
	Size        int
	DownloadURL string
}

// Message is the local view of one provider message.
type Message struct {
	ID             string
	SessionID      string
	From           string
	FromName       string
	Subject        string
	Preview        string
	ReceivedAt     time.Time
	IsRead         bool
	HasAttachments bool

	// Set once the full message has been loaded.
	Loaded      bool
	Text        string
	HTML        []string
	Attachments []Attachment
}

// Result describes the outcome of one Reconcile call.
type Result struct {
	// Accepted is false when the call was dropped for a stale session id.
	Accepted bool
	// Added holds the messages that were new to the store.
	Added []Message
}

// Store holds the messages of the current session.
type Store struct {
	mu        sync.RWMutex
	sessionID string
	messages  map[string]*Message
	order     []string // newest first
	deleted   map[string]struct{}
}

// New returns an empty store bound to no session.
func New() *Store {
	return &Store{
		messages: make(map[string]*Message),
		deleted:  make(map[string]struct{}),
	}
}

// Reset clears all state and binds the store to sessionID.
func (s *Store) Reset(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	s.messages = make(map[string]*Message)
	s.order = nil
	s.deleted = make(map[string]struct{})
}

// SessionID returns the session the store is bound to.
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Reconcile merges raw provider records fetched for sessionID. The call is
// discarded entirely when sessionID is not the bound session.
func (s *Store) Reconcile(sessionID string, raw []api.Message) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" || sessionID != s.sessionID {
		return Result{}
	}

	var added []Message
	for _, r := range raw {
		if r.ID == "" || r.IsDeleted {
			continue
		}
		if _, gone := s.deleted[r.ID]; gone {
			continue
		}
		if _, known := s.messages[r.ID]; known {
			continue
		}
		m := fromRaw(sessionID, r)
		s.messages[m.ID] = m
		s.order = append(s.order, m.ID)
		added = append(added, clone(m))
	}

	if len(added) > 0 {
		sort.SliceStable(s.order, func(i, j int) bool {
			return s.messages[s.order[i]].ReceivedAt.After(s.messages[s.order[j]].ReceivedAt)
		})
	}

	return Result{Accepted: true, Added: added}
}

func fromRaw(sessionID string, r api.Message) *Message {
	m := &Message{
		ID:             r.ID,
		SessionID:      sessionID,
		From:           UnknownSender,
		Subject:        r.Subject,
		Preview:        r.Intro,
		ReceivedAt:     r.CreatedAt,
		IsRead:         r.Seen,
		HasAttachments: r.HasAttachments,
	}
	if r.From != nil && r.From.Address != "" {
		m.From = r.From.Address
		m.FromName = r.From.Name
	}
	if m.Preview == "" {
		m.Preview = NoPreview
	}
	return m
}

// MarkRead sets the read flag. It reports whether the message exists.
func (s *Store) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return false
	}
	m.IsRead = true
	return true
}

// Delete removes a message locally and remembers the id so it is never
// re-added. It reports whether the message existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return false
	}
	delete(s.messages, id)
	s.deleted[id] = struct{}{}
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Select returns a message and marks it read.
func (s *Store) Select(id string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return Message{}, false
	}
	m.IsRead = true
	return clone(m), true
}

// Get returns a message without changing its read flag.
func (s *Store) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return Message{}, false
	}
	return clone(m), true
}

// Attach stores the full content of a message loaded for sessionID.
func (s *Store) Attach(sessionID string, d *api.MessageDetail) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID != s.sessionID || d == nil {
		return Message{}, false
	}
	m, ok := s.messages[d.ID]
	if !ok {
		return Message{}, false
	}

	m.Loaded = true
	m.Text = d.Text
	m.HTML = append([]string(nil), d.HTML...)
	m.Attachments = make([]Attachment, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		m.Attachments = append(m.Attachments, Attachment{
			ID:          a.ID,
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
			DownloadURL: a.DownloadURL,
		})
	}
	if len(m.Attachments) > 0 {
		m.HasAttachments = true
	}
	return clone(m), true
}

// Messages returns a snapshot of all messages, newest first.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clone(s.messages[id]))
	}
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Unread returns the number of unread messages.
func (s *Store) Unread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages {
		if !m.IsRead {
			n++
		}
	}
	return n
}

func clone(m *Message) Message {
	c := *m
	if m.HTML != nil {
		c.HTML = append([]string(nil), m.HTML...)
	}
	if m.Attachments != nil {
		c.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return c
}
