package port

import "context"

type EventPublisher interface {
	Publish(ctx context.Context, topic string, data []byte, attributes map[string]string) error
	Close() error
}

// MessageHandler processes one delivered message. A returned error makes
// the subscriber redeliver it.
type MessageHandler func(ctx context.Context, data []byte, attributes map[string]string) error

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Stop() error
}
