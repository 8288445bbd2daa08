package tempmail

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dimuthnilanjana/email-alias-generator/internal/api"
	"github.com/Dimuthnilanjana/email-alias-generator/internal/clock"
)

// fakeProvider is an in-memory mail.tm API.
type fakeProvider struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	domains      []api.Domain
	accounts     map[string]string // address -> password
	tokens       map[string]string // token -> address
	messages     map[string][]api.MessageDetail
	accountFail  int // status returned by POST /accounts when non-zero
	tokenFail    int // status returned by POST /token when non-zero
	listBlock    chan struct{}
	listStarted  chan struct{}
	listRequests int
	nextToken    int
	userAgent    string // last User-Agent seen
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		t:           t,
		domains:     []api.Domain{{ID: "d1", Domain: "example.test", IsActive: true}},
		accounts:    make(map[string]string),
		tokens:      make(map[string]string),
		messages:    make(map[string][]api.MessageDetail),
		listStarted: make(chan struct{}, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /domains", p.handleDomains)
	mux.HandleFunc("POST /accounts", p.handleAccounts)
	mux.HandleFunc("POST /token", p.handleToken)
	mux.HandleFunc("GET /messages", p.handleMessages)
	mux.HandleFunc("GET /messages/{id}", p.handleMessage)

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/ld+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeViolation(w http.ResponseWriter, status int, desc string) {
	writeJSON(w, status, map[string]string{"hydra:description": desc})
}

func (p *fakeProvider) handleDomains(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"hydra:member": p.domains})
}

func (p *fakeProvider) handleAccounts(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeViolation(w, http.StatusBadRequest, "invalid body")
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accountFail != 0 {
		writeViolation(w, p.accountFail, "address: This value is already used.")
		return
	}
	if _, ok := p.accounts[creds.Address]; ok {
		writeViolation(w, http.StatusUnprocessableEntity, "address: This value is already used.")
		return
	}
	p.accounts[creds.Address] = creds.Password
	writeJSON(w, http.StatusCreated, api.Account{ID: "acc-" + creds.Address, Address: creds.Address})
}

func (p *fakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeViolation(w, http.StatusBadRequest, "invalid body")
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tokenFail != 0 {
		writeJSON(w, p.tokenFail, map[string]any{"code": p.tokenFail, "message": "Invalid credentials."})
		return
	}
	if pw, ok := p.accounts[creds.Address]; !ok || pw != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "message": "Invalid credentials."})
		return
	}
	p.nextToken++
	tok := "tok-" + creds.Address + "-" + strconv.Itoa(p.nextToken)
	p.tokens[tok] = creds.Address
	writeJSON(w, http.StatusOK, api.Token{ID: "acc-" + creds.Address, Token: tok})
}

func (p *fakeProvider) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	p.mu.Lock()
	p.userAgent = r.UserAgent()
	address, ok := p.tokens[tok]
	p.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "message": "Invalid JWT Token"})
		return "", false
	}
	return address, true
}

func (p *fakeProvider) handleMessages(w http.ResponseWriter, r *http.Request) {
	address, ok := p.authorize(w, r)
	if !ok {
		return
	}

	p.mu.Lock()
	p.listRequests++
	block := p.listBlock
	msgs := make([]api.Message, 0, len(p.messages[address]))
	for _, d := range p.messages[address] {
		msgs = append(msgs, d.Message)
	}
	p.mu.Unlock()

	p.listStarted <- struct{}{}
	if block != nil {
		<-block
	}
	writeJSON(w, http.StatusOK, map[string]any{"hydra:member": msgs, "hydra:totalItems": len(msgs)})
}

func (p *fakeProvider) handleMessage(w http.ResponseWriter, r *http.Request) {
	address, ok := p.authorize(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.messages[address] {
		if d.ID == id {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeViolation(w, http.StatusNotFound, "Not Found")
}

// deliver adds a message to the inbox of address.
func (p *fakeProvider) deliver(address string, d api.MessageDetail) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[address] = append(p.messages[address], d)
}

// revokeTokens invalidates every issued token.
func (p *fakeProvider) revokeTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = make(map[string]string)
}

func (p *fakeProvider) set(fn func(p *fakeProvider)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

func (p *fakeProvider) requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listRequests
}

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func rawMessage(id, from, subject string, at time.Time) api.MessageDetail {
	return api.MessageDetail{
		Message: api.Message{
			ID:        id,
			From:      &api.Address{Address: from},
			Subject:   subject,
			Intro:     "preview of " + subject,
			CreatedAt: at,
		},
		Text: "body of " + subject,
	}
}

// newTestClient returns a client wired to p with a fake clock and no rate limit.
func newTestClient(t *testing.T, p *fakeProvider, opts ...Option) (*Client, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(testEpoch)
	base := []Option{
		WithBaseURL(p.server.URL),
		WithClock(clk),
		WithRateLimit(0, 0),
		WithTimeout(2 * time.Second),
	}
	c, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, clk
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

// recordEvents records every event emitted by c.
func recordEvents(c *Client) *eventLog {
	l := &eventLog{ch: make(chan Event, 64)}
	c.OnEvent(func(ev Event) {
		l.mu.Lock()
		l.events = append(l.events, ev)
		l.mu.Unlock()
		l.ch <- ev
	})
	return l
}

// waitKind waits for the next event of kind.
func (l *eventLog) waitKind(t *testing.T, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-l.ch:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v event", kind)
			return Event{}
		}
	}
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
