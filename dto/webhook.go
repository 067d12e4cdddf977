package dto

import "github.com/oneboxhq/onebox/internal/enum"

// WebhookPayload is posted to the configured webhook when an email
// is classified as interested.
type WebhookPayload struct {
	Email     WebhookEmail `json:"email"`
	Action    string       `json:"action"`
	Timestamp string       `json:"timestamp"`
}

type WebhookEmail struct {
	ID       string              `json:"id"`
	Subject  string              `json:"subject"`
	From     string              `json:"from"`
	Body     string              `json:"body"`
	Category enum.IntentCategory `json:"category"`
}
