package imap

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

const (
	idleLogoutTimeout = 25 * time.Minute
	idlePollInterval  = 20 * time.Minute
	noopInterval      = 5 * time.Minute
)

// idleFolder watches one selected folder with IDLE until the context is
// cancelled or the connection breaks. New-mail signals trigger an UNSEEN
// refetch scoped to this folder.
func (s *IMAPService) idleFolder(ctx context.Context, session *Session, account *models.Account, folder string) error {
	ctx = utils.WithFolder(ctx, folder)
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.idleFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)
	span.SetTag("folder", folder)

	c, err := session.Client()
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	// The folder must be selected before IDLE; select writable so Recent
	// updates flow.
	c.Timeout = 30 * time.Second
	mbox, err := c.Select(folder, false)
	c.Timeout = 0
	if err != nil {
		err = fmt.Errorf("error selecting folder for idle: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	supported, err := c.Support("IDLE")
	if err != nil {
		log.Printf("[%s][%s] Error checking IDLE support: %v", account.ID, folder, err)
	}
	if !supported {
		log.Printf("[%s][%s] Server does not advertise IDLE, relying on poll interval", account.ID, folder)
	}

	var stopOnce sync.Once
	stop := make(chan struct{})
	safeClose := func() {
		stopOnce.Do(func() {
			close(stop)
		})
	}
	defer safeClose()

	updates := make(chan client.Update, 100)
	c.Updates = updates
	defer func() { c.Updates = nil }()

	errChan := s.watchIdleUpdates(ctx, session, account, folder, c, updates, mbox.Messages, stop, safeClose)

	c.Timeout = 0
	idleErr := c.Idle(stop, &client.IdleOptions{
		LogoutTimeout: idleLogoutTimeout,
		PollInterval:  idlePollInterval,
	})

	safeClose()

	var watchErr error
	select {
	case watchErr = <-errChan:
	case <-time.After(5 * time.Second):
		log.Printf("[%s][%s] Timed out waiting for idle watcher to finish", account.ID, folder)
	}

	log.Printf("[%s][%s] Stopped monitoring folder", account.ID, folder)

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if idleErr != nil {
		return fmt.Errorf("IDLE error: %w", idleErr)
	}
	return watchErr
}

// watchIdleUpdates consumes the client update stream and runs the NOOP
// keepalive. It reports at most one error on the returned channel.
func (s *IMAPService) watchIdleUpdates(
	ctx context.Context,
	session *Session,
	account *models.Account,
	folder string,
	c *client.Client,
	updates chan client.Update,
	initialCount uint32,
	stop chan struct{},
	safeClose func(),
) chan error {
	errChan := make(chan error, 1)

	// Context cancel monitoring
	go func() {
		select {
		case <-ctx.Done():
			log.Printf("[%s][%s] Context cancelled, stopping IDLE", account.ID, folder)
			safeClose()
		case <-stop:
		}
	}()

	// NOOP keepalive as a safety net in addition to IDLE's built-in polling
	go func() {
		noopTicker := time.NewTicker(noopInterval)
		defer noopTicker.Stop()

		for {
			select {
			case <-noopTicker.C:
				c.Timeout = 10 * time.Second
				err := c.Noop()
				c.Timeout = 0

				if err != nil {
					log.Printf("[%s][%s] Error during NOOP: %v", account.ID, folder, err)
					select {
					case errChan <- fmt.Errorf("keepalive failed: %w", err):
					default:
					}
					safeClose()
					return
				}
			case <-stop:
				return
			}
		}
	}()

	// Update processor
	go func() {
		currentCount := initialCount

		for {
			select {
			case update, ok := <-updates:
				if !ok {
					log.Printf("[%s][%s] Updates channel closed", account.ID, folder)
					return
				}

				switch u := update.(type) {
				case *client.MailboxUpdate:
					log.Printf("[%s][%s] Mailbox update - Messages: %d (was: %d)",
						account.ID, folder, u.Mailbox.Messages, currentCount)

					if u.Mailbox.Messages > currentCount {
						newMessages := u.Mailbox.Messages - currentCount
						log.Printf("[%s][%s] Detected %d new message(s)", account.ID, folder, newMessages)

						session.emit(SessionEvent{
							Type:      SessionEventNewMessage,
							AccountID: account.ID,
							Folder:    folder,
						})

						// The refetch is a sync burst: idling -> syncing,
						// then back to idling. A broken connection leaves
						// the session in syncing for the fault path.
						session.apply(InputSyncStart)
						if err := s.syncUnseen(ctx, session, account, folder); err != nil {
							log.Printf("[%s][%s] Error fetching unseen messages: %v", account.ID, folder, err)
							if isConnectionError(err) {
								select {
								case errChan <- err:
								default:
								}
								safeClose()
								return
							}
						}
						session.apply(InputSyncDone)
						session.apply(InputIdleStart)
					}
					currentCount = u.Mailbox.Messages

				case *client.ExpungeUpdate:
					if u.SeqNum <= currentCount && currentCount > 0 {
						currentCount--
					}

				case *client.MessageUpdate:
					// Flag changes only, nothing to fetch.

				default:
				}

			case <-stop:
				return
			}
		}
	}()

	return errChan
}
