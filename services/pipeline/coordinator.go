package pipeline

import (
	"context"
	"log"
	"sync"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/oneboxhq/onebox/config"
	"github.com/oneboxhq/onebox/dto"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/enum"
	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

const EventTypeEmailProcessed = "email.processed"

const (
	defaultQueueSize = 256
	defaultWorkers   = 4
)

// Coordinator runs the processing pipeline: normalize, classify, persist,
// publish, notify. Work is fanned out over a fixed worker pool; messages with
// the same email ID are serialized by a keyed mutex so a backfill and an
// unseen refetch of the same message cannot race.
type Coordinator struct {
	normalizer     *Normalizer
	classifier     *Classifier
	emailRepo      interfaces.EmailRepository
	attachmentRepo interfaces.EmailAttachmentRepository
	publisher      interfaces.EventPublisher
	notifiers      []interfaces.Notifier

	queue   chan interfaces.MailEvent
	workers int
	locks   *keyedMutex

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewCoordinator(
	cfg *config.IMAPConfig,
	classifier *Classifier,
	emailRepo interfaces.EmailRepository,
	attachmentRepo interfaces.EmailAttachmentRepository,
	publisher interfaces.EventPublisher,
	notifiers []interfaces.Notifier,
) *Coordinator {
	queueSize := defaultQueueSize
	workers := defaultWorkers
	if cfg != nil {
		if cfg.QueueSize > 0 {
			queueSize = cfg.QueueSize
		}
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
	}

	return &Coordinator{
		normalizer:     NewNormalizer(),
		classifier:     classifier,
		emailRepo:      emailRepo,
		attachmentRepo: attachmentRepo,
		publisher:      publisher,
		notifiers:      notifiers,
		queue:          make(chan interfaces.MailEvent, queueSize),
		workers:        workers,
		locks:          newKeyedMutex(),
	}
}

// Start launches the worker pool.
func (c *Coordinator) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go func(worker int) {
			defer c.wg.Done()
			c.runWorker(worker)
		}(i)
	}

	log.Printf("Pipeline started with %d workers, queue size %d", c.workers, cap(c.queue))
}

// Stop drains nothing: in-flight messages finish, queued messages are
// abandoned. Backfill re-covers them on the next reconnect.
func (c *Coordinator) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	log.Println("Pipeline stopped")
}

// Enqueue hands one raw mail event to the pool. It blocks when the queue is
// full, which backpressures the IMAP fetch loop instead of dropping mail.
func (c *Coordinator) Enqueue(ctx context.Context, event interfaces.MailEvent) {
	select {
	case c.queue <- event:
	case <-c.ctx.Done():
		log.Printf("[%s][%s] Pipeline is stopping, discarding message UID %d", event.AccountID, event.Folder, event.ImapUID)
	case <-ctx.Done():
	}
}

func (c *Coordinator) runWorker(worker int) {
	for {
		select {
		case event := <-c.queue:
			c.process(event)
		case <-c.ctx.Done():
			return
		}
	}
}

// process runs one message through every pipeline stage. Side effects after
// persistence are best-effort: their failures are logged and never undo the
// stored record.
func (c *Coordinator) process(event interfaces.MailEvent) {
	ctx := utils.WithFolder(utils.WithAccountID(c.ctx, event.AccountID), event.Folder)
	span, ctx := tracing.StartTracerSpan(ctx, "Coordinator.process")
	defer span.Finish()
	tracing.SetDefaultPipelineSpanTags(ctx, span)

	email, attachments, err := c.normalizer.Normalize(ctx, event)
	if err != nil {
		// Malformed input is logged and skipped; it must not poison the queue.
		tracing.TraceErr(span, err)
		log.Printf("[%s][%s] Skipping malformed message UID %d: %v", event.AccountID, event.Folder, event.ImapUID, err)
		return
	}
	tracing.TagEntity(span, email.ID)

	// Same email ID processes strictly one at a time.
	c.locks.Lock(email.ID)
	defer c.locks.Unlock(email.ID)

	existing, err := c.emailRepo.GetByID(ctx, email.ID)
	if err != nil {
		tracing.TraceErr(span, err)
		log.Printf("Error checking for existing email %s: %v", email.ID, err)
		return
	}
	if existing != nil {
		span.LogFields(tracingLog.Bool("duplicate", true))
		return
	}

	result := c.classifier.Classify(ctx, email)
	email.Category = result.Category
	email.CategorySource = result.Source

	if err := c.emailRepo.Create(ctx, email); err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to persist email"))
		log.Printf("Error persisting email %s: %v", email.ID, err)
		return
	}

	for _, attachment := range attachments {
		if err := c.attachmentRepo.Store(ctx, attachment.Meta, email.ID, attachment.Content); err != nil {
			tracing.TraceErr(span, err)
			log.Printf("Error storing attachment %s for email %s: %v", attachment.Meta.Filename, email.ID, err)
		}
	}

	c.publishProcessed(ctx, span, email, event)

	if email.Category == enum.IntentInterested {
		for _, notifier := range c.notifiers {
			notifier.Notify(ctx, email)
		}
	}
}

func (c *Coordinator) publishProcessed(ctx context.Context, span opentracing.Span, email *models.Email, event interfaces.MailEvent) {
	if c.publisher == nil {
		return
	}

	payload := dto.EmailProcessed{
		EmailID:   email.ID,
		AccountID: email.AccountID,
		Folder:    email.Folder,
		Subject:   email.Subject,
		From:      email.FromAddress,
		Category:  email.Category,
	}

	if err := c.publisher.PublishFanoutEvent(ctx, email.ID, EventTypeEmailProcessed, payload); err != nil {
		tracing.TraceErr(span, err)
		log.Printf("Error publishing processed event for email %s: %v", email.ID, err)
	}
}
