package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	go_imap "github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/oneboxhq/onebox/interfaces"
	errs "github.com/oneboxhq/onebox/internal/errors"
	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

// AttachmentFile pairs attachment metadata with its raw content, which only
// exists in memory between parsing and upload.
type AttachmentFile struct {
	Meta    *models.EmailAttachment
	Content []byte
}

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize turns one raw mail event into the canonical Email record plus
// its attachments. The same input always yields the same Email ID, so
// reprocessing is idempotent downstream.
func (n *Normalizer) Normalize(ctx context.Context, event interfaces.MailEvent) (*models.Email, []AttachmentFile, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Normalizer.Normalize")
	defer span.Finish()
	tracing.SetDefaultPipelineSpanTags(ctx, span)
	tracing.TagAccount(span, event.AccountID)

	if len(event.Raw) == 0 && event.Envelope == nil {
		err := errors.Wrap(errs.ErrMalformedMessage, "no raw content and no envelope")
		tracing.TraceErr(span, err)
		return nil, nil, err
	}

	email := &models.Email{
		AccountID: event.AccountID,
		Folder:    event.Folder,
		ImapUID:   event.ImapUID,
	}

	n.applyEnvelope(email, event.Envelope)

	var attachments []AttachmentFile
	if len(event.Raw) > 0 {
		parser, err := enmime.ReadEnvelope(bytes.NewReader(event.Raw))
		if err != nil {
			err = errors.Wrap(errs.ErrMalformedMessage, err.Error())
			tracing.TraceErr(span, err)
			return nil, nil, err
		}
		attachments = n.applyParsedContent(email, parser)
	}

	email.ID = deterministicEmailID(event)
	if email.MessageID == "" {
		email.MessageID = email.ID
	}
	tracing.TagEntity(span, email.ID)

	return email, attachments, nil
}

// deterministicEmailID derives the record key from account and protocol
// message id; folder plus UID is the fallback when the header is absent.
func deterministicEmailID(event interfaces.MailEvent) string {
	if event.Envelope != nil && event.Envelope.MessageId != "" {
		return fmt.Sprintf("%s-%s", event.AccountID, utils.NormalizeMessageID(event.Envelope.MessageId))
	}
	return fmt.Sprintf("%s-%s-%d", event.AccountID, event.Folder, event.ImapUID)
}

func (n *Normalizer) applyEnvelope(email *models.Email, envelope *go_imap.Envelope) {
	if envelope == nil {
		return
	}

	if !envelope.Date.IsZero() {
		sentTime := envelope.Date.UTC()
		email.SentAt = &sentTime
	}

	email.Subject = envelope.Subject
	email.MessageID = utils.NormalizeMessageID(envelope.MessageId)

	// Sender information
	if len(envelope.From) > 0 {
		sender := envelope.From[0]
		email.FromName = sender.PersonalName
		syntaxValidation := mailvalidate.ValidateEmailSyntax(sender.Address())
		if syntaxValidation.IsValid {
			email.FromAddress = syntaxValidation.CleanEmail
		} else {
			email.FromAddress = strings.ToLower(strings.TrimSpace(sender.Address()))
		}
	}

	// Recipients
	email.ToAddresses = convertAddressesToStringArray(envelope.To)
	email.CcAddresses = convertAddressesToStringArray(envelope.Cc)
	email.BccAddresses = convertAddressesToStringArray(envelope.Bcc)
}

func (n *Normalizer) applyParsedContent(email *models.Email, parser *enmime.Envelope) []AttachmentFile {
	// Extract headers
	headers := make(map[string]interface{})
	for _, key := range parser.GetHeaderKeys() {
		values := parser.GetHeaderValues(key)
		if len(values) > 0 {
			headers[key] = values
		}
	}
	email.RawHeaders = models.JSONMap(headers)

	email.BodyText = parser.Text
	email.BodyHTML = parser.HTML

	// Envelope fields missing from the fetch can still come out of the
	// parsed headers.
	if email.Subject == "" {
		email.Subject = parser.GetHeader("Subject")
	}
	if email.MessageID == "" {
		email.MessageID = utils.NormalizeMessageID(parser.GetHeader("Message-Id"))
	}

	attachments := make([]AttachmentFile, 0, len(parser.Attachments)+len(parser.Inlines))

	for _, attachment := range parser.Attachments {
		attachments = append(attachments, AttachmentFile{
			Meta: &models.EmailAttachment{
				Filename:    attachment.FileName,
				ContentType: attachment.ContentType,
			},
			Content: attachment.Content,
		})
	}

	for _, inline := range parser.Inlines {
		attachments = append(attachments, AttachmentFile{
			Meta: &models.EmailAttachment{
				Filename:    inline.FileName,
				ContentType: inline.ContentType,
				ContentID:   inline.ContentID,
				IsInline:    true,
			},
			Content: inline.Content,
		})
	}

	if len(attachments) > 0 {
		email.HasAttachment = true
	}

	return attachments
}

func convertAddressesToStringArray(addresses []*go_imap.Address) pq.StringArray {
	if len(addresses) == 0 {
		return pq.StringArray{}
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if addr.MailboxName != "" && addr.HostName != "" {
			emailAddr := addr.Address()
			validation := mailvalidate.ValidateEmailSyntax(emailAddr)
			if validation.IsValid {
				result = append(result, validation.CleanEmail)
			}
		}
	}

	return pq.StringArray(result)
}
