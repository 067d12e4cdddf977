package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneboxhq/onebox/config"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/enum"
	"github.com/oneboxhq/onebox/internal/models"
)

type fakeEmailRepository struct {
	mu      sync.Mutex
	emails  map[string]*models.Email
	created []string
}

func newFakeEmailRepository() *fakeEmailRepository {
	return &fakeEmailRepository{emails: make(map[string]*models.Email)}
}

func (r *fakeEmailRepository) Create(ctx context.Context, email *models.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.emails[email.ID]; ok {
		return nil
	}
	r.emails[email.ID] = email
	r.created = append(r.created, email.ID)
	return nil
}

func (r *fakeEmailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emails[id], nil
}

func (r *fakeEmailRepository) Search(ctx context.Context, filters interfaces.EmailSearchFilters) ([]*models.Email, error) {
	return nil, nil
}

func (r *fakeEmailRepository) UpdateCategory(ctx context.Context, id string, category enum.IntentCategory, source enum.ClassificationSource) error {
	return nil
}

func (r *fakeEmailRepository) createdCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

type fakeAttachmentRepository struct {
	mu     sync.Mutex
	stored []string
}

func (r *fakeAttachmentRepository) GetByID(ctx context.Context, id string) (*models.EmailAttachment, error) {
	return nil, nil
}

func (r *fakeAttachmentRepository) ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error) {
	return nil, nil
}

func (r *fakeAttachmentRepository) Store(ctx context.Context, attachment *models.EmailAttachment, emailID string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, attachment.Filename)
	return nil
}

func (r *fakeAttachmentRepository) DownloadAttachment(ctx context.Context, id string) ([]byte, error) {
	return nil, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *fakePublisher) PublishFanoutEvent(ctx context.Context, entityId string, eventType string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, entityId)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeNotifier struct {
	mu       sync.Mutex
	notified []string
}

func (n *fakeNotifier) Notify(ctx context.Context, email *models.Email) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, email.ID)
}

func (n *fakeNotifier) notifiedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notified)
}

func newTestCoordinator(label string, emailRepo *fakeEmailRepository, attachmentRepo *fakeAttachmentRepository, publisher *fakePublisher, notifier *fakeNotifier) *Coordinator {
	cfg := &config.IMAPConfig{QueueSize: 16, Workers: 2}
	classifier := NewClassifier(&stubAIService{label: label})
	return NewCoordinator(cfg, classifier, emailRepo, attachmentRepo, publisher, []interfaces.Notifier{notifier})
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Fail(t, "condition not met in time")
}

func TestCoordinator_ProcessInterestedNotifies(t *testing.T) {
	emailRepo := newFakeEmailRepository()
	attachmentRepo := &fakeAttachmentRepository{}
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	c := newTestCoordinator("interested", emailRepo, attachmentRepo, publisher, notifier)

	ctx := context.Background()
	c.Start(ctx)
	defer c.Stop()

	c.Enqueue(ctx, interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
		ImapUID:   1,
		Envelope:  sampleEnvelope(),
		Raw:       sampleRawMessage,
	})

	waitFor(t, func() bool { return notifier.notifiedCount() == 1 })

	assert.Equal(t, 1, emailRepo.createdCount())
	stored, err := emailRepo.GetByID(ctx, "acct1-msg-1@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, enum.IntentInterested, stored.Category)
	assert.Equal(t, enum.ClassificationSourceModel, stored.CategorySource)

	publisher.mu.Lock()
	assert.Equal(t, []string{"acct1-msg-1@example.com"}, publisher.published)
	publisher.mu.Unlock()
}

func TestCoordinator_NotInterestedDoesNotNotify(t *testing.T) {
	emailRepo := newFakeEmailRepository()
	attachmentRepo := &fakeAttachmentRepository{}
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	c := newTestCoordinator("not_interested", emailRepo, attachmentRepo, publisher, notifier)

	ctx := context.Background()
	c.Start(ctx)
	defer c.Stop()

	c.Enqueue(ctx, interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
		ImapUID:   1,
		Envelope:  sampleEnvelope(),
		Raw:       sampleRawMessage,
	})

	waitFor(t, func() bool { return emailRepo.createdCount() == 1 })

	// Event still goes out, the notification does not.
	waitFor(t, func() bool {
		publisher.mu.Lock()
		defer publisher.mu.Unlock()
		return len(publisher.published) == 1
	})
	assert.Equal(t, 0, notifier.notifiedCount())
}

func TestCoordinator_DuplicateProcessedOnce(t *testing.T) {
	emailRepo := newFakeEmailRepository()
	attachmentRepo := &fakeAttachmentRepository{}
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	c := newTestCoordinator("interested", emailRepo, attachmentRepo, publisher, notifier)

	ctx := context.Background()
	c.Start(ctx)
	defer c.Stop()

	event := interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
		ImapUID:   1,
		Envelope:  sampleEnvelope(),
		Raw:       sampleRawMessage,
	}
	c.Enqueue(ctx, event)
	c.Enqueue(ctx, event)
	c.Enqueue(ctx, event)

	waitFor(t, func() bool { return notifier.notifiedCount() >= 1 })
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, emailRepo.createdCount())
	assert.Equal(t, 1, notifier.notifiedCount())
}

func TestCoordinator_MalformedMessageSkipped(t *testing.T) {
	emailRepo := newFakeEmailRepository()
	attachmentRepo := &fakeAttachmentRepository{}
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	c := newTestCoordinator("interested", emailRepo, attachmentRepo, publisher, notifier)

	ctx := context.Background()
	c.Start(ctx)
	defer c.Stop()

	// No raw content and no envelope: skipped without poisoning the queue.
	c.Enqueue(ctx, interfaces.MailEvent{AccountID: "acct1", Folder: "INBOX", ImapUID: 1})
	c.Enqueue(ctx, interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
		ImapUID:   2,
		Envelope:  sampleEnvelope(),
		Raw:       sampleRawMessage,
	})

	waitFor(t, func() bool { return emailRepo.createdCount() == 1 })
	assert.Equal(t, []string{"acct1-msg-1@example.com"}, emailRepo.created)
}

func TestCoordinator_PublishFailureDoesNotRollBack(t *testing.T) {
	emailRepo := newFakeEmailRepository()
	attachmentRepo := &fakeAttachmentRepository{}
	publisher := &fakePublisher{err: assert.AnError}
	notifier := &fakeNotifier{}
	c := newTestCoordinator("interested", emailRepo, attachmentRepo, publisher, notifier)

	ctx := context.Background()
	c.Start(ctx)
	defer c.Stop()

	c.Enqueue(ctx, interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
		ImapUID:   1,
		Envelope:  sampleEnvelope(),
		Raw:       sampleRawMessage,
	})

	// Notification still fires after the failed publish.
	waitFor(t, func() bool { return notifier.notifiedCount() == 1 })
	assert.Equal(t, 1, emailRepo.createdCount())
}

func TestCoordinator_StoresAttachments(t *testing.T) {
	emailRepo := newFakeEmailRepository()
	attachmentRepo := &fakeAttachmentRepository{}
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	c := newTestCoordinator("spam", emailRepo, attachmentRepo, publisher, notifier)

	raw := []byte("From: jane@example.com\r\n" +
		"To: sales@acme.com\r\n" +
		"Subject: With attachment\r\n" +
		"Message-Id: <msg-3@example.com>\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"b1\"\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"See attached.\r\n" +
		"--b1\r\n" +
		"Content-Type: application/pdf; name=\"quote.pdf\"\r\n" +
		"Content-Disposition: attachment; filename=\"quote.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"JVBERi0=\r\n" +
		"--b1--\r\n")

	ctx := context.Background()
	c.Start(ctx)
	defer c.Stop()

	c.Enqueue(ctx, interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
		ImapUID:   3,
		Raw:       raw,
	})

	waitFor(t, func() bool {
		attachmentRepo.mu.Lock()
		defer attachmentRepo.mu.Unlock()
		return len(attachmentRepo.stored) == 1
	})

	attachmentRepo.mu.Lock()
	assert.Equal(t, []string{"quote.pdf"}, attachmentRepo.stored)
	attachmentRepo.mu.Unlock()
}
