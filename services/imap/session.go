package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/oneboxhq/onebox/internal/enum"
	errs "github.com/oneboxhq/onebox/internal/errors"
	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
)

// SessionEventType enumerates the events a session emits on its channel.
type SessionEventType string

const (
	SessionEventConnected    SessionEventType = "connected"
	SessionEventDisconnected SessionEventType = "disconnected"
	SessionEventError        SessionEventType = "error"
	SessionEventNewMessage   SessionEventType = "new_message"
)

type SessionEvent struct {
	Type      SessionEventType
	AccountID string
	Folder    string
	Err       error
}

const sessionEventBuffer = 64

// Session owns one IMAP connection for one account. State changes go through
// the Transition table; consumers observe the session through its event
// channel and State(). A session never retries on its own: a transport fault
// lands it in error state and it stays there until Connect is called again.
type Session struct {
	account *models.Account

	mu         sync.Mutex
	state      enum.ConnectionStatus
	client     *client.Client
	lastError  error
	connecting bool

	events chan SessionEvent
}

func NewSession(account *models.Account) *Session {
	return &Session{
		account: account,
		state:   enum.ConnectionDisconnected,
		events:  make(chan SessionEvent, sessionEventBuffer),
	}
}

// Events returns the session's outbound event channel. Events are dropped,
// not blocked on, when the consumer lags behind the buffer.
func (s *Session) Events() <-chan SessionEvent {
	return s.events
}

func (s *Session) State() enum.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Connect dials, checks capabilities and logs in. It resolves once the
// session is in connected state. A second Connect while one is in flight is
// rejected; Connect after a fault or disconnect starts over.
func (s *Session) Connect(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Session.Connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, s.account.ID)

	s.mu.Lock()
	if s.connecting {
		s.mu.Unlock()
		tracing.TraceErr(span, errs.ErrConnectInProgress)
		return errs.ErrConnectInProgress
	}
	next, ok := Transition(s.state, InputConnect)
	if !ok {
		state := s.state
		s.mu.Unlock()
		err := fmt.Errorf("connect is not valid in state %s", state)
		tracing.TraceErr(span, err)
		return err
	}
	s.connecting = true
	s.state = next
	s.mu.Unlock()

	c, err := s.dialAndLogin(ctx)
	if err != nil {
		s.mu.Lock()
		s.connecting = false
		s.state, _ = Transition(s.state, InputFault)
		s.lastError = err
		s.mu.Unlock()
		tracing.TraceErr(span, err)
		s.emit(SessionEvent{Type: SessionEventError, AccountID: s.account.ID, Err: err})
		return err
	}

	// Disconnect may have landed while the dial was in flight; the fresh
	// connection must not outlive the torn-down session.
	if !s.adoptClient(c) {
		c.Timeout = 5 * time.Second
		go c.Logout()
		err := fmt.Errorf("session was torn down during connect")
		tracing.TraceErr(span, err)
		return err
	}

	s.emit(SessionEvent{Type: SessionEventConnected, AccountID: s.account.ID})
	return nil
}

// adoptClient installs the freshly dialed client if the session is still in
// connecting state. It reports false when the session was torn down meanwhile.
func (s *Session) adoptClient(c *client.Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = false
	next, ok := Transition(s.state, InputConnectOK)
	if !ok {
		return false
	}
	s.client = c
	s.lastError = nil
	s.state = next
	return true
}

func (s *Session) dialAndLogin(ctx context.Context) (*client.Client, error) {
	serverAddr := fmt.Sprintf("%s:%d", s.account.ImapServer, s.account.ImapPort)

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	if s.account.ImapSecurity == enum.EmailSecurityTLS {
		tlsConfig := &tls.Config{
			ServerName: s.account.ImapServer,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}

	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}

	// Check capabilities
	c.Timeout = 30 * time.Second
	caps, err := c.Capability()
	if err != nil {
		c.Logout()
		return nil, fmt.Errorf("capability error: %w", err)
	}

	log.Printf("[%s] Server capabilities: %v", s.account.ID, caps)

	// Login
	err = c.Login(s.account.ImapUsername, s.account.ImapPassword)
	if err != nil {
		c.Logout()
		return nil, fmt.Errorf("login error: %w", err)
	}

	// Reset timeout
	c.Timeout = 0

	log.Printf("[%s] Successfully connected to %s", s.account.ID, serverAddr)
	return c, nil
}

// Disconnect logs out and moves the session to disconnected. It is safe to
// call from any state, repeatedly.
func (s *Session) Disconnect() {
	s.mu.Lock()
	c := s.client
	s.client = nil
	alreadyDisconnected := s.state == enum.ConnectionDisconnected
	s.state, _ = Transition(s.state, InputDisconnect)
	s.mu.Unlock()

	if c != nil {
		c.Timeout = 5 * time.Second

		done := make(chan error, 1)
		go func() {
			done <- c.Logout()
		}()

		select {
		case err := <-done:
			if err != nil {
				log.Printf("[%s] Error during logout: %v", s.account.ID, err)
			}
		case <-time.After(5 * time.Second):
			log.Printf("[%s] Logout timed out", s.account.ID)
		}
	}

	if !alreadyDisconnected {
		s.emit(SessionEvent{Type: SessionEventDisconnected, AccountID: s.account.ID})
	}
}

// Client returns the live IMAP client or ErrNotConnected.
func (s *Session) Client() (*client.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil || s.state == enum.ConnectionDisconnected || s.state == enum.ConnectionError {
		return nil, errs.ErrNotConnected
	}
	return s.client, nil
}

// apply runs one transition and reports whether it was legal.
func (s *Session) apply(input SessionInput) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := Transition(s.state, input)
	if ok {
		s.state = next
	}
	return ok
}

// fault records a transport error from any live state and emits an error
// event. The connection is torn down; recovery is the owner's call.
func (s *Session) fault(err error) {
	s.mu.Lock()
	s.state, _ = Transition(s.state, InputFault)
	s.lastError = err
	c := s.client
	s.client = nil
	s.mu.Unlock()

	if c != nil {
		c.Timeout = 5 * time.Second
		go c.Logout()
	}

	log.Printf("[%s] Session fault: %v", s.account.ID, err)
	s.emit(SessionEvent{Type: SessionEventError, AccountID: s.account.ID, Err: err})
}

func (s *Session) emit(event SessionEvent) {
	select {
	case s.events <- event:
	default:
		log.Printf("[%s] Dropping session event %s, consumer is behind", s.account.ID, event.Type)
	}
}
