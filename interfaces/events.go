package interfaces

import "context"

type EventPublisher interface {
	PublishFanoutEvent(ctx context.Context, entityId string, eventType string, message interface{}) error
	Close() error
}
