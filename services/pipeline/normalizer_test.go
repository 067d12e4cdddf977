package pipeline

import (
	"context"
	"testing"
	"time"

	go_imap "github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneboxhq/onebox/interfaces"
	errs "github.com/oneboxhq/onebox/internal/errors"
)

var sampleRawMessage = []byte("From: Jane Doe <jane@example.com>\r\n" +
	"To: sales@acme.com\r\n" +
	"Subject: Pricing question\r\n" +
	"Message-Id: <msg-1@example.com>\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"How much does it cost?\r\n")

func sampleEnvelope() *go_imap.Envelope {
	return &go_imap.Envelope{
		Date:      time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		Subject:   "Pricing question",
		MessageId: "<msg-1@example.com>",
		From: []*go_imap.Address{
			{PersonalName: "Jane Doe", MailboxName: "jane", HostName: "example.com"},
		},
		To: []*go_imap.Address{
			{MailboxName: "sales", HostName: "acme.com"},
		},
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer()

	email, attachments, err := n.Normalize(context.Background(), interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
		ImapUID:   42,
		Envelope:  sampleEnvelope(),
		Raw:       sampleRawMessage,
	})
	require.NoError(t, err)
	require.NotNil(t, email)

	assert.Equal(t, "acct1-msg-1@example.com", email.ID)
	assert.Equal(t, "msg-1@example.com", email.MessageID)
	assert.Equal(t, "acct1", email.AccountID)
	assert.Equal(t, "INBOX", email.Folder)
	assert.Equal(t, uint32(42), email.ImapUID)
	assert.Equal(t, "Pricing question", email.Subject)
	assert.Equal(t, "jane@example.com", email.FromAddress)
	assert.Equal(t, "Jane Doe", email.FromName)
	assert.Equal(t, []string{"sales@acme.com"}, []string(email.ToAddresses))
	assert.Contains(t, email.BodyText, "How much does it cost?")
	assert.False(t, email.HasAttachment)
	assert.Empty(t, attachments)

	require.NotNil(t, email.SentAt)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC), *email.SentAt)
}

func TestNormalizer_DeterministicID(t *testing.T) {
	n := NewNormalizer()
	event := interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
		ImapUID:   42,
		Envelope:  sampleEnvelope(),
		Raw:       sampleRawMessage,
	}

	first, _, err := n.Normalize(context.Background(), event)
	require.NoError(t, err)
	second, _, err := n.Normalize(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestNormalizer_FallbackIDWithoutMessageID(t *testing.T) {
	n := NewNormalizer()
	envelope := sampleEnvelope()
	envelope.MessageId = ""

	email, _, err := n.Normalize(context.Background(), interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "Sent",
		ImapUID:   7,
		Envelope:  envelope,
	})
	require.NoError(t, err)

	assert.Equal(t, "acct1-Sent-7", email.ID)
	assert.Equal(t, email.ID, email.MessageID)
}

func TestNormalizer_MalformedInput(t *testing.T) {
	n := NewNormalizer()

	_, _, err := n.Normalize(context.Background(), interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
	})
	assert.ErrorIs(t, err, errs.ErrMalformedMessage)
}

func TestNormalizer_EnvelopeOnly(t *testing.T) {
	n := NewNormalizer()

	email, attachments, err := n.Normalize(context.Background(), interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
		ImapUID:   9,
		Envelope:  sampleEnvelope(),
	})
	require.NoError(t, err)

	assert.Equal(t, "acct1-msg-1@example.com", email.ID)
	assert.Empty(t, email.BodyText)
	assert.Empty(t, attachments)
}

func TestNormalizer_MultipartWithAttachment(t *testing.T) {
	raw := []byte("From: jane@example.com\r\n" +
		"To: sales@acme.com\r\n" +
		"Subject: With attachment\r\n" +
		"Message-Id: <msg-2@example.com>\r\n" +
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

	n := NewNormalizer()
	email, attachments, err := n.Normalize(context.Background(), interfaces.MailEvent{
		AccountID: "acct1",
		Folder:    "INBOX",
		ImapUID:   10,
		Raw:       raw,
	})
	require.NoError(t, err)

	assert.Equal(t, "acct1-INBOX-10", email.ID)
	assert.Equal(t, "msg-2@example.com", email.MessageID)
	assert.Equal(t, "With attachment", email.Subject)
	assert.True(t, email.HasAttachment)

	require.Len(t, attachments, 1)
	assert.Equal(t, "quote.pdf", attachments[0].Meta.Filename)
	assert.Equal(t, "application/pdf", attachments[0].Meta.ContentType)
	assert.NotEmpty(t, attachments[0].Content)
}
