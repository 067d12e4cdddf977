package dto

import "github.com/oneboxhq/onebox/internal/enum"

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id        string      `json:"id"`
	EntityId  string      `json:"entityId"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	Timestamp   string `json:"timestamp"`
}

// EmailProcessed is the payload published after an email clears the pipeline.
type EmailProcessed struct {
	EmailID   string              `json:"emailId"`
	AccountID string              `json:"accountId"`
	Folder    string              `json:"folder"`
	Subject   string              `json:"subject"`
	From      string              `json:"from"`
	Category  enum.IntentCategory `json:"category"`
}
