package tempmail

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForMessage_Existing(t *testing.T) {
	p := newFakeProvider(t)
	c, _ := newTestClient(t, p, WithAutoRefresh(false))

	s, err := c.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	p.deliver(s.Address, rawMessage("m1", "a@x.com", "Welcome", testEpoch))
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	msg, err := c.WaitForMessage(context.Background(), WithSubject("Welcome"), WithWaitTimeout(time.Second))
	if err != nil {
		t.Fatalf("WaitForMessage() error = %v", err)
	}
	if msg.ID != "m1" {
		t.Errorf("ID = %s, want m1", msg.ID)
	}
}

func TestWaitForMessage_Arrives(t *testing.T) {
	p := newFakeProvider(t)
	c, clk := newTestClient(t, p)

	s, err := c.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	type result struct {
		msg Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := c.WaitForMessage(context.Background(), WithFrom("b@x.com"), WithWaitTimeout(2*time.Second))
		done <- result{msg, err}
	}()

	p.deliver(s.Address, rawMessage("m1", "a@x.com", "Other", testEpoch))
	p.deliver(s.Address, rawMessage("m2", "b@x.com", "Wanted", testEpoch.Add(time.Second)))

	// Keep ticking until the waiter reports; it may subscribe after the first tick.
	for {
		clk.Advance(DefaultPollInterval)
		select {
		case r := <-done:
			if r.err != nil {
				t.Fatalf("WaitForMessage() error = %v", r.err)
			}
			if r.msg.ID != "m2" {
				t.Errorf("ID = %s, want m2", r.msg.ID)
			}
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWaitForMessage_Timeout(t *testing.T) {
	p := newFakeProvider(t)
	c, _ := newTestClient(t, p, WithAutoRefresh(false))

	if _, err := c.CreateSession(context.Background()); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	_, err := c.WaitForMessage(context.Background(), WithWaitTimeout(20*time.Millisecond))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForMessage() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestWaitForMessage_NoSession(t *testing.T) {
	p := newFakeProvider(t)
	c, _ := newTestClient(t, p)

	if _, err := c.WaitForMessage(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("WaitForMessage() error = %v, want ErrNoSession", err)
	}
}

func TestWaitForMessage_SessionReplaced(t *testing.T) {
	p := newFakeProvider(t)
	c, _ := newTestClient(t, p, WithAutoRefresh(false))

	if _, err := c.CreateSession(context.Background()); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		close(started)
		_, err := c.WaitForMessage(context.Background(), WithWaitTimeout(2*time.Second))
		done <- err
	}()
	<-started

	// Replace until the waiter has subscribed and observed it.
	for {
		if _, err := c.CreateSession(context.Background()); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
		select {
		case err := <-done:
			if !errors.Is(err, ErrSessionReplaced) {
				t.Errorf("WaitForMessage() error = %v, want ErrSessionReplaced", err)
			}
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}
