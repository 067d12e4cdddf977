package imap

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/oneboxhq/onebox/config"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/enum"
	errs "github.com/oneboxhq/onebox/internal/errors"
	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

const defaultLookback = 30 * 24 * time.Hour

// IMAPService owns every account session. Accounts live in memory only; the
// service is their single writer. Recovery from error state is not automatic
// here, it belongs to the reconnect cron or an operator calling Reconnect.
type IMAPService struct {
	lookback       time.Duration
	defaultFolders []string

	accounts map[string]*models.Account
	sessions map[string]*Session
	cancels  map[string]context.CancelFunc
	mu       sync.RWMutex

	eventHandler func(context.Context, interfaces.MailEvent)

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewIMAPService(cfg *config.IMAPConfig) *IMAPService {
	lookback := defaultLookback
	if cfg != nil && cfg.Lookback != "" {
		if parsed, err := time.ParseDuration(cfg.Lookback); err == nil && parsed > 0 {
			lookback = parsed
		} else {
			log.Printf("Invalid IMAP lookback %q, using default %v", cfg.Lookback, defaultLookback)
		}
	}

	folders := []string{"INBOX"}
	if cfg != nil && cfg.DefaultFolders != "" {
		folders = utils.StringToSlice(cfg.DefaultFolders)
	}

	return &IMAPService{
		lookback:       lookback,
		defaultFolders: folders,
		accounts:       make(map[string]*models.Account),
		sessions:       make(map[string]*Session),
		cancels:        make(map[string]context.CancelFunc),
	}
}

// SetEventHandler sets the sink for raw mail events. Must be called before
// Start.
func (s *IMAPService) SetEventHandler(handler func(context.Context, interfaces.MailEvent)) {
	s.eventHandler = handler
}

// Start launches one goroutine per registered account.
func (s *IMAPService) Start(ctx context.Context) error {
	span, ctx := tracing.StartTracerSpan(ctx, "IMAPService.Start")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	span.LogFields(tracingLog.Int("account_count", len(s.accounts)))

	for id, account := range s.accounts {
		log.Printf("Starting account: %s (%s)", id, account.EmailAddress)
		s.launchAccount(s.ctx, account)
	}

	return nil
}

// Stop gracefully shuts down every session.
func (s *IMAPService) Stop() error {
	log.Println("Stopping IMAP service...")

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All IMAP operations completed gracefully")
	case <-time.After(10 * time.Second):
		log.Println("Timeout waiting for IMAP operations to complete")
	}

	s.mu.Lock()
	for id, session := range s.sessions {
		log.Printf("Disconnecting account: %s", id)
		session.Disconnect()
	}
	s.mu.Unlock()

	log.Println("IMAP service stopped")
	return nil
}

// AddAccount registers a new account and starts monitoring it when the
// service is running.
func (s *IMAPService) AddAccount(ctx context.Context, account *models.Account) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.AddAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if account == nil {
		err := errors.New("account is nil")
		tracing.TraceErr(span, err)
		return err
	}
	tracing.TagAccount(span, account.ID)

	if len(account.Folders) == 0 {
		account.Folders = append([]string{}, s.defaultFolders...)
	}
	// A folder listed twice would backfill twice; first occurrence wins.
	folders := make([]string, 0, len(account.Folders))
	for _, folder := range account.Folders {
		if !utils.IsStringInSlice(folder, folders) {
			folders = append(folders, folder)
		}
	}
	account.Folders = folders
	if len(account.Folders) == 0 {
		tracing.TraceErr(span, errs.ErrNoSyncFolders)
		return errs.ErrNoSyncFolders
	}
	if account.ImapPort == 0 {
		account.ImapPort = 993
	}
	if account.ImapSecurity == "" {
		account.ImapSecurity = enum.EmailSecurityTLS
	}
	account.Status = enum.ConnectionDisconnected

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID]; exists {
		tracing.TraceErr(span, errs.ErrAccountExists)
		return errs.ErrAccountExists
	}

	s.accounts[account.ID] = account

	if s.ctx != nil {
		s.launchAccount(s.ctx, account)
	}

	return nil
}

// RemoveAccount disconnects and forgets an account.
func (s *IMAPService) RemoveAccount(ctx context.Context, accountID string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPService.RemoveAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[accountID]; !exists {
		tracing.TraceErr(span, errs.ErrAccountNotFound)
		return errs.ErrAccountNotFound
	}

	if cancel, ok := s.cancels[accountID]; ok {
		cancel()
		delete(s.cancels, accountID)
	}
	if session, ok := s.sessions[accountID]; ok {
		session.Disconnect()
		delete(s.sessions, accountID)
	}
	delete(s.accounts, accountID)

	return nil
}

// Reconnect restarts monitoring for an account sitting in error or
// disconnected state.
func (s *IMAPService) Reconnect(ctx context.Context, accountID string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPService.Reconnect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	s.mu.Lock()
	defer s.mu.Unlock()

	account, exists := s.accounts[accountID]
	if !exists {
		tracing.TraceErr(span, errs.ErrAccountNotFound)
		return errs.ErrAccountNotFound
	}

	if account.Status != enum.ConnectionError && account.Status != enum.ConnectionDisconnected {
		span.LogFields(tracingLog.String("skipped", account.Status.String()))
		return nil
	}

	if s.ctx == nil {
		return errors.New("service is not started")
	}

	if cancel, ok := s.cancels[accountID]; ok {
		cancel()
	}
	if session, ok := s.sessions[accountID]; ok {
		session.Disconnect()
	}

	log.Printf("[%s] Reconnecting account", accountID)
	s.launchAccount(s.ctx, account)
	return nil
}

// Status returns a point-in-time snapshot of every account.
func (s *IMAPService) Status() map[string]models.AccountSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]models.AccountSnapshot, len(s.accounts))
	for id, account := range s.accounts {
		result[id] = models.AccountSnapshot{
			ID:           account.ID,
			EmailAddress: account.EmailAddress,
			Status:       account.Status,
			LastError:    account.LastError,
			LastSynced:   account.LastSynced,
			Folders:      append([]string{}, account.Folders...),
		}
	}

	return result
}

// launchAccount must be called with s.mu held.
func (s *IMAPService) launchAccount(ctx context.Context, account *models.Account) {
	session := NewSession(account)
	accountCtx, cancel := context.WithCancel(ctx)

	s.sessions[account.ID] = session
	s.cancels[account.ID] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.drainSessionEvents(accountCtx, session, account)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runAccount(accountCtx, session, account)
	}()
}

// drainSessionEvents mirrors session lifecycle events into the account
// status fields.
func (s *IMAPService) drainSessionEvents(ctx context.Context, session *Session, account *models.Account) {
	for {
		select {
		case event := <-session.events:
			switch event.Type {
			case SessionEventConnected:
				s.setAccountStatus(account, enum.ConnectionConnected, "")
			case SessionEventDisconnected:
				s.setAccountStatus(account, enum.ConnectionDisconnected, "")
			case SessionEventError:
				msg := ""
				if event.Err != nil {
					msg = event.Err.Error()
				}
				s.setAccountStatus(account, enum.ConnectionError, msg)
			case SessionEventNewMessage:
				log.Printf("[%s][%s] New message signal", event.AccountID, event.Folder)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *IMAPService) setAccountStatus(account *models.Account, status enum.ConnectionStatus, lastError string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account.Status = status
	account.LastError = lastError
}

func (s *IMAPService) markSynced(account *models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account.LastSynced = utils.TimePtr(utils.Now())
}

// runAccount performs one connect, backfill and idle cycle for an account.
// There is no retry loop here on purpose: a fault parks the account in error
// state until Reconnect is called.
func (s *IMAPService) runAccount(ctx context.Context, session *Session, account *models.Account) {
	// Every span below this point carries the account tag via the context.
	ctx = utils.WithAccountID(ctx, account.ID)
	span, ctx := tracing.StartTracerSpan(ctx, "IMAPService.runAccount")
	defer span.Finish()
	tracing.TagAccount(span, account.ID)

	s.setAccountStatus(account, enum.ConnectionConnecting, "")

	if err := session.Connect(ctx); err != nil {
		log.Printf("[%s] Connection error: %v", account.ID, err)
		tracing.TraceErr(span, err)
		return
	}

	cutoff := utils.Now().Add(-s.lookback)

	// Folders within one account sync strictly sequentially.
	session.apply(InputSyncStart)
	s.setAccountStatus(account, enum.ConnectionSyncing, "")

	var folderErr error
	for _, folder := range account.Folders {
		select {
		case <-ctx.Done():
			session.Disconnect()
			return
		default:
		}

		err := s.backfillFolder(ctx, session, account, folder, cutoff)
		if err == nil {
			continue
		}

		log.Printf("[%s][%s] Error during backfill: %v", account.ID, folder, err)
		tracing.TraceErr(span, err)
		folderErr = err

		// Completed folders keep their results; a broken connection ends
		// the cycle.
		if isConnectionError(err) {
			session.fault(err)
			return
		}
		session.emit(SessionEvent{Type: SessionEventError, AccountID: account.ID, Folder: folder, Err: err})
	}

	session.apply(InputSyncDone)
	s.markSynced(account)

	if folderErr != nil {
		s.setAccountStatus(account, enum.ConnectionError, folderErr.Error())
		return
	}

	// Watch the primary folder until the context ends or the transport
	// breaks. New-mail signals re-run an UNSEEN fetch in the idle path.
	session.apply(InputIdleStart)
	s.setAccountStatus(account, enum.ConnectionIdling, "")

	primary := account.Folders[0]
	err := s.idleFolder(ctx, session, account, primary)
	if err != nil && ctx.Err() == nil {
		session.fault(err)
		return
	}

	session.Disconnect()
}

// isConnectionError checks if an error is related to connectivity
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errorMsg := err.Error()
	return strings.Contains(errorMsg, "connection closed") ||
		strings.Contains(errorMsg, "i/o timeout") ||
		strings.Contains(errorMsg, "EOF") ||
		strings.Contains(errorMsg, "connection reset")
}
