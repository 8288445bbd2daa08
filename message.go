package tempmail

import (
	"github.com/Dimuthnilanjana/email-alias-generator/internal/delivery"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/store"
)

// Message is a locally held inbox message.
type Message = store.Message

// Attachment describes a file attached to a loaded message.
type Attachment = store.Attachment

// Sentinel values used when the provider omits a field.
const (
	UnknownSender = store.UnknownSender
	NoPreview     = store.NoPreview
)

// State is the auto-refresh scheduler state.
type State = delivery.State

// Scheduler states.
const (
	StateIdle      = delivery.StateIdle
	StateScheduled = delivery.StateScheduled
	StatePolling   = delivery.StatePolling
	StateStopped   = delivery.StateStopped
)

// RefreshResult describes a completed manual refresh.
type RefreshResult struct {
	SessionID string

	// Added holds the messages that were new in this refresh.
	Added []Message

	Total  int
	Unread int
}
