package pubsub

import (
	"context"
	"log/slog"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

type Publisher struct {
	client *pubsub.Client
	logger *slog.Logger

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func NewPublisher(client *pubsub.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
		topics: make(map[string]*pubsub.Topic),
	}
}

// topic reuses one handle per topic so its batching goroutines are not
// restarted for every message.
func (p *Publisher) topic(topicID string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[topicID]
	if !ok {
		t = p.client.Topic(topicID)
		p.topics[topicID] = t
	}
	return t
}

func (p *Publisher) Publish(ctx context.Context, topicID string, data []byte, attributes map[string]string) error {
	msg := &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	}

	result := p.topic(topicID).Publish(ctx, msg)

	serverID, err := result.Get(ctx)
	if err != nil {
		p.logger.Error("Failed to publish message", "topic", topicID, "error", err)
		return errors.WrapMessagingError(err, "could not publish message").
			WithContext("topic", topicID)
	}

	p.logger.Info("Message published successfully",
		"topic", topicID,
		"message_id", serverID,
		"event_type", attributes["event_type"])
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.topics {
		t.Stop()
		delete(p.topics, id)
	}
	return nil
}

var _ port.EventPublisher = (*Publisher)(nil)
