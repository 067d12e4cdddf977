package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/oneboxhq/onebox/dto"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/logger"
	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

const webhookBodyLimit = 500

type webhookNotifier struct {
	url    string
	client *http.Client
	logger logger.Logger
}

func NewWebhookNotifier(url string, log logger.Logger) interfaces.Notifier {
	return &webhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: log,
	}
}

// Notify posts the email summary to the configured webhook. The body is
// truncated so downstream consumers never receive full message content.
func (n *webhookNotifier) Notify(ctx context.Context, email *models.Email) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "webhookNotifier.Notify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, email.ID)

	if n.url == "" {
		return
	}

	payload := dto.WebhookPayload{
		Email: dto.WebhookEmail{
			ID:       email.ID,
			Subject:  email.Subject,
			From:     email.FromAddress,
			Body:     utils.Truncate(email.BodyText, webhookBodyLimit),
			Category: email.Category,
		},
		Action:    "email_interested",
		Timestamp: utils.Now().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		tracing.TraceErr(span, err)
		n.logger.Errorf("webhook notification: failed to marshal payload: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewBuffer(body))
	if err != nil {
		tracing.TraceErr(span, err)
		n.logger.Errorf("webhook notification: failed to create request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		tracing.TraceErr(span, err)
		n.logger.Warnf("webhook notification failed for email %s: %v", email.ID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warnf("webhook notification for email %s returned status %d", email.ID, resp.StatusCode)
	}
}
