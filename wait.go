package tempmail

import (
	"context"
	"fmt"
)

// WaitForMessage waits for a message of the current session matching the
// given criteria. Messages already in the store are checked first; after
// that it relies on auto-refresh or manual Refresh calls to bring in new
// ones.
func (c *Client) WaitForMessage(ctx context.Context, opts ...WaitOption) (Message, error) {
	if err := c.checkClosed(); err != nil {
		return Message{}, err
	}
	session, ok := c.Current()
	if !ok {
		return Message{}, ErrNoSession
	}

	cfg := &waitConfig{
		timeout: defaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	// 1. Start watching FIRST to avoid race condition
	events := c.Events(ctx)

	// 2. Check existing messages (handles already-arrived case)
	for _, m := range c.Messages() {
		if cfg.Matches(&m) {
			return m, nil
		}
	}

	// 3. Watch for new messages
	for {
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case ev := <-events:
			switch ev.Kind {
			case EventMessagesReceived:
				if ev.Session.ID != session.ID {
					continue
				}
				for _, m := range ev.Messages {
					if cfg.Matches(&m) {
						return m, nil
					}
				}
			case EventSessionCreated:
				if ev.Session.ID != session.ID {
					return Message{}, ErrSessionReplaced
				}
			case EventSessionExpired:
				return Message{}, ErrSessionExpired
			case EventCredentialRejected:
				return Message{}, fmt.Errorf("wait for message: %w", ev.Err)
			case EventSessionClosed:
				return Message{}, ErrClientClosed
			}
		}
	}
}
