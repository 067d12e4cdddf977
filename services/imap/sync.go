package imap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

const backfillBatchSize = 50

// includeInBackfill applies the inclusive lower bound of the backfill window.
// IMAP SINCE has date granularity, so the server over-returns around the
// boundary and the exact cutoff is enforced here: a message stamped exactly
// at the cutoff is in scope. Messages without a usable timestamp are kept.
func includeInBackfill(sentAt time.Time, cutoff time.Time) bool {
	if sentAt.IsZero() {
		return true
	}
	return !sentAt.Before(cutoff)
}

// backfillFolder pulls the lookback window for one folder and streams every
// message into the pipeline. The folder is opened read-only so flags are
// untouched.
func (s *IMAPService) backfillFolder(ctx context.Context, session *Session, account *models.Account, folder string, cutoff time.Time) error {
	ctx = utils.WithFolder(ctx, folder)
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.backfillFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)
	span.LogFields(tracingLog.String("folder", folder))
	span.LogFields(tracingLog.String("cutoff", cutoff.Format(time.RFC3339)))

	c, err := session.Client()
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	c.Timeout = 30 * time.Second
	mbox, err := c.Select(folder, true)
	c.Timeout = 0
	if err != nil {
		err = fmt.Errorf("error selecting folder: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	log.Printf("[%s][%s] Selected folder - Messages: %d, Recent: %d, Unseen: %d",
		account.ID, folder, mbox.Messages, mbox.Recent, mbox.Unseen)

	criteria := imap.NewSearchCriteria()
	criteria.Since = cutoff

	c.Timeout = 30 * time.Second
	uids, err := c.UidSearch(criteria)
	c.Timeout = 0
	if err != nil {
		err = fmt.Errorf("error searching for messages: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	if len(uids) == 0 {
		log.Printf("[%s][%s] No messages to backfill", account.ID, folder)
		return nil
	}

	// Oldest first
	sort.SliceStable(uids, func(i, j int) bool {
		return uids[i] < uids[j]
	})

	log.Printf("[%s][%s] Starting backfill of %d messages", account.ID, folder, len(uids))

	processed := 0
	for i := 0; i < len(uids); i += backfillBatchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := i + backfillBatchSize
		if end > len(uids) {
			end = len(uids)
		}

		count, err := s.fetchAndEmit(ctx, session, account, folder, uids[i:end], cutoff, true)
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		processed += count
	}

	log.Printf("[%s][%s] Completed backfill of %d messages", account.ID, folder, processed)
	return nil
}

// syncUnseen re-fetches the folder scoped to UNSEEN messages. Used after an
// IDLE new-mail signal; no window filter applies here.
func (s *IMAPService) syncUnseen(ctx context.Context, session *Session, account *models.Account, folder string) error {
	ctx = utils.WithFolder(ctx, folder)
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.syncUnseen")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)
	span.LogFields(tracingLog.String("folder", folder))

	c, err := session.Client()
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	c.Timeout = 30 * time.Second
	uids, err := c.UidSearch(criteria)
	c.Timeout = 0
	if err != nil {
		err = fmt.Errorf("error searching unseen messages: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	if len(uids) == 0 {
		return nil
	}

	log.Printf("[%s][%s] Fetching %d unseen message(s)", account.ID, folder, len(uids))

	_, err = s.fetchAndEmit(ctx, session, account, folder, uids, time.Time{}, false)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

// fetchAndEmit fetches the given UIDs with BODY.PEEK and hands each message
// to the pipeline. A zero cutoff disables the window filter.
func (s *IMAPService) fetchAndEmit(
	ctx context.Context,
	session *Session,
	account *models.Account,
	folder string,
	uids []uint32,
	cutoff time.Time,
	initialSync bool,
) (int, error) {
	c, err := session.Client()
	if err != nil {
		return 0, err
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchBodyStructure,
		"BODY.PEEK[]",
		imap.FetchUid,
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	c.Timeout = 60 * time.Second

	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	count := 0
	for msg := range messages {
		select {
		case <-ctx.Done():
			<-done
			c.Timeout = 0
			return count, ctx.Err()
		default:
		}

		if !cutoff.IsZero() && !includeInBackfill(messageSentAt(msg), cutoff) {
			continue
		}

		s.emitMailEvent(ctx, account, folder, msg, initialSync)
		count++
	}

	c.Timeout = 0

	if err := <-done; err != nil {
		return count, fmt.Errorf("IMAP fetch error: %w", err)
	}

	return count, nil
}

// messageSentAt prefers the envelope date and falls back to the internal
// server timestamp.
func messageSentAt(msg *imap.Message) time.Time {
	if msg.Envelope != nil && !msg.Envelope.Date.IsZero() {
		return msg.Envelope.Date
	}
	return msg.InternalDate
}

func (s *IMAPService) emitMailEvent(ctx context.Context, account *models.Account, folder string, msg *imap.Message, initialSync bool) {
	if s.eventHandler == nil {
		return
	}

	event := interfaces.MailEvent{
		AccountID:   account.ID,
		Folder:      folder,
		ImapUID:     msg.Uid,
		Envelope:    msg.Envelope,
		Raw:         extractFullMessage(msg),
		InitialSync: initialSync,
		ReceivedAt:  utils.Now(),
	}

	s.eventHandler(ctx, event)
}

// extractFullMessage pulls the complete RFC822 bytes from the fetched body
// sections.
func extractFullMessage(msg *imap.Message) []byte {
	var fullMessageBuffer bytes.Buffer

	for section, literal := range msg.Body {
		if section.Peek {
			continue // Skip PEEK sections to avoid duplicates
		}

		if len(section.Path) == 0 && section.Specifier == imap.EntireSpecifier {
			data, err := io.ReadAll(literal)
			if err == nil {
				fullMessageBuffer.Write(data)
				break
			}
		}
	}

	return fullMessageBuffer.Bytes()
}
