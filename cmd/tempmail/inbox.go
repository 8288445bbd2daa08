package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	tempmail "github.com/Dimuthnilanjana/email-alias-generator"
)

const inboxHelp = `Commands:
  r       refresh now
  n       new address (replaces the current one)
  a       toggle auto-refresh
  l       list messages
  s ID    show and mark read
  o ID    load the full message
  d ID    delete locally
  q       quit`

func newInboxCmd(streams Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "Create a disposable inbox and watch it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := cfg.Logger(streams.Err)
			if err != nil {
				return err
			}
			client, err := tempmail.New(append(cfg.Options(), tempmail.WithLogger(logger))...)
			if err != nil {
				return err
			}
			defer client.Close()

			return runInbox(cmd.Context(), client, streams)
		},
	}
}

// inboxSession drives one interactive inbox run.
type inboxSession struct {
	client *tempmail.Client
	out    io.Writer
}

func runInbox(ctx context.Context, client *tempmail.Client, streams Streams) error {
	s := &inboxSession{client: client, out: &syncWriter{w: streams.Out}}

	sub := client.OnEvent(s.printEvent)
	defer sub.Unsubscribe()

	if err := s.newSession(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, inboxHelp)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(streams.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := s.dispatch(ctx, line)
			if err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (s *inboxSession) dispatch(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return false, nil
	case "q", "quit":
		return true, nil
	case "r":
		res, err := s.client.Refresh(ctx)
		if err != nil {
			return false, describe(err)
		}
		fmt.Fprintf(s.out, "%d new, %d messages, %d unread\n", len(res.Added), res.Total, res.Unread)
	case "n":
		return false, s.newSession(ctx)
	case "a":
		enabled := !s.client.AutoRefresh()
		if err := s.client.SetAutoRefresh(enabled); err != nil {
			return false, err
		}
	case "l":
		s.list()
	case "s":
		msg, ok := s.client.Select(arg)
		if !ok {
			return false, tempmail.ErrMessageNotFound
		}
		s.show(msg)
	case "o":
		msg, err := s.client.LoadMessage(ctx, arg)
		if err != nil {
			return false, describe(err)
		}
		s.show(msg)
	case "d":
		if !s.client.Delete(arg) {
			return false, tempmail.ErrMessageNotFound
		}
	default:
		fmt.Fprintln(s.out, inboxHelp)
	}
	return false, nil
}

func (s *inboxSession) newSession(ctx context.Context) error {
	session, err := s.client.CreateSession(ctx)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(s.out, "Address: %s\nExpires: %s (in %s)\n",
		session.Address,
		session.ExpiresAt.Format(time.RFC3339),
		formatRemaining(session.Remaining(s.client.Now())))
	return nil
}

func (s *inboxSession) list() {
	msgs := s.client.Messages()
	if session, ok := s.client.Current(); ok {
		status := "active"
		if session.IsExpired(s.client.Now()) {
			status = "expired"
		}
		fmt.Fprintf(s.out, "%s (%s), %d messages, %d unread, auto-refresh %v\n",
			session.Address, status, len(msgs), s.client.UnreadCount(), s.client.AutoRefresh())
	}
	for _, m := range msgs {
		mark := " "
		if !m.IsRead {
			mark = "*"
		}
		fmt.Fprintf(s.out, "%s %s  %-30s  %s  %s\n", mark, m.ID, m.From, m.ReceivedAt.Format("15:04"), m.Subject)
	}
}

func (s *inboxSession) show(m tempmail.Message) {
	fmt.Fprintf(s.out, "From:    %s\nSubject: %s\nDate:    %s\n\n", m.From, m.Subject, m.ReceivedAt.Format(time.RFC1123))
	body := m.Preview
	if m.Loaded && m.Text != "" {
		body = m.Text
	}
	fmt.Fprintln(s.out, body)
	for _, a := range m.Attachments {
		fmt.Fprintf(s.out, "  [attachment] %s (%s, %d bytes)\n", a.Filename, a.ContentType, a.Size)
	}
}

func (s *inboxSession) printEvent(ev tempmail.Event) {
	switch ev.Kind {
	case tempmail.EventMessagesReceived:
		for _, m := range ev.Messages {
			fmt.Fprintf(s.out, "New message %s from %s: %s\n", m.ID, m.From, m.Subject)
		}
	case tempmail.EventPollFailed:
		fmt.Fprintf(s.out, "Refresh failed: %v\n", describe(ev.Err))
	case tempmail.EventCredentialRejected:
		fmt.Fprintln(s.out, "The provider rejected the inbox token; auto-refresh stopped. Press n for a new address.")
	case tempmail.EventSessionExpired:
		fmt.Fprintln(s.out, "This address has expired. Press n for a new one.")
	case tempmail.EventAutoRefreshChanged:
		fmt.Fprintf(s.out, "Auto-refresh: %v\n", ev.AutoRefresh)
	}
}

// describe maps error kinds to user-facing text.
func describe(err error) error {
	switch {
	case errors.Is(err, tempmail.ErrProvisioningFailed):
		return fmt.Errorf("could not create a mailbox: %w", err)
	case errors.Is(err, tempmail.ErrAuthFailed):
		return fmt.Errorf("could not sign in to the new mailbox: %w", err)
	case errors.Is(err, tempmail.ErrInvalidCredential):
		return fmt.Errorf("inbox token rejected, create a new address: %w", err)
	case errors.Is(err, tempmail.ErrRateLimited):
		return fmt.Errorf("provider rate limit hit, try again shortly: %w", err)
	case errors.Is(err, tempmail.ErrMessageNotFound):
		return fmt.Errorf("message not found: %w", err)
	case errors.Is(err, tempmail.ErrProviderError):
		return fmt.Errorf("the provider returned an unexpected response, try again later: %w", err)
	case errors.Is(err, tempmail.ErrNetworkFailure):
		return fmt.Errorf("network problem, try again: %w", err)
	case errors.Is(err, tempmail.ErrSessionExpired):
		return fmt.Errorf("address expired, press n for a new one: %w", err)
	case errors.Is(err, tempmail.ErrPollInFlight):
		return errors.New("a refresh is already running")
	}
	return err
}
