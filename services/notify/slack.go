package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/logger"
	"github.com/oneboxhq/onebox/internal/models"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

type slackNotifier struct {
	webhookURL string
	client     *http.Client
	logger     logger.Logger
}

func NewSlackNotifier(webhookURL string, log logger.Logger) interfaces.Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     log,
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts a short block-formatted message to the configured Slack
// incoming webhook. Delivery failures are logged and dropped.
func (n *slackNotifier) Notify(ctx context.Context, email *models.Email) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "slackNotifier.Notify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, email.ID)

	if n.webhookURL == "" {
		return
	}

	message := slackMessage{
		Blocks: []slackBlock{
			{
				Type: "header",
				Text: &slackText{Type: "plain_text", Text: "New interested lead"},
			},
			{
				Type: "section",
				Text: &slackText{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Subject:* %s\n*From:* %s <%s>\n*To:* %s\n*Category:* %s",
						email.Subject, email.FromName, email.FromAddress, utils.SliceToString(email.ToAddresses), email.Category),
				},
			},
		},
	}

	payload, err := json.Marshal(message)
	if err != nil {
		tracing.TraceErr(span, err)
		n.logger.Errorf("slack notification: failed to marshal payload: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		tracing.TraceErr(span, err)
		n.logger.Errorf("slack notification: failed to create request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		tracing.TraceErr(span, err)
		n.logger.Warnf("slack notification failed for email %s: %v", email.ID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warnf("slack notification for email %s returned status %d", email.ID, resp.StatusCode)
	}
}
