package pubsub

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

type Subscriber struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	logger       *slog.Logger
	cancel       context.CancelFunc
}

// NewSubscriber pulls batch requests one at a time; batches are never
// processed concurrently.
func NewSubscriber(client *pubsub.Client, subID string, logger *slog.Logger) *Subscriber {
	sub := client.Subscription(subID)
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.NumGoroutines = 1
	return &Subscriber{
		client:       client,
		subscription: sub,
		logger:       logger,
	}
}

func (s *Subscriber) Subscribe(ctx context.Context, handler port.MessageHandler) error {
	subCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.logger.Info("Starting Pub/Sub subscriber", "subscription", s.subscription.ID())

	err := s.subscription.Receive(subCtx, func(ctx context.Context, msg *pubsub.Message) {
		s.logger.Debug("Received message", "msg_id", msg.ID)

		err := handler(ctx, msg.Data, msg.Attributes)
		if err != nil && !errors.IsNonRetryable(err) {
			s.logger.Error("Error processing message, sending NACK", "msg_id", msg.ID, "error", err)
			msg.Nack()
			return
		}
		if err != nil {
			s.logger.Warn("Message can not succeed on retry, sending ACK", "msg_id", msg.ID, "error", err)
		} else {
			s.logger.Info("Successfully processed message, sending ACK", "msg_id", msg.ID)
		}
		msg.Ack()
	})

	if err != nil && err != context.Canceled {
		s.logger.Error("Subscriber Receive returned error", "error", err)
		return errors.WrapMessagingError(err, "pubsub receive failed").
			WithContext("subscription", s.subscription.ID())
	}

	s.logger.Info("Subscriber stopped.")
	return nil
}

func (s *Subscriber) Stop() error {
	s.logger.Info("Stopping subscriber...")
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

var _ port.EventSubscriber = (*Subscriber)(nil)
