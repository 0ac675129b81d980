package handlers

import (
	"context"
	"log/slog"

	"github.com/histopathai/print-resize-service/internal/domain/events"
	"github.com/histopathai/print-resize-service/internal/service"
	pkgErrors "github.com/histopathai/print-resize-service/pkg/errors"
)

// BatchRunner is the part of the orchestrator a request handler needs.
type BatchRunner interface {
	RunRequested(ctx context.Context, request *events.BatchRequestedEvent) (*service.BatchResult, error)
}

// BatchHandlerService turns batch.requested.v1 messages into batch runs.
// It serves both the one-shot job entrypoint and the Pub/Sub worker.
type BatchHandlerService struct {
	runner     BatchRunner
	serializer events.EventSerializer
	logger     *slog.Logger
}

func NewBatchHandlerService(
	runner BatchRunner,
	serializer events.EventSerializer,
	logger *slog.Logger,
) *BatchHandlerService {
	return &BatchHandlerService{
		runner:     runner,
		serializer: serializer,
		logger:     logger,
	}
}

func (h *BatchHandlerService) HandleBatchRequest(
	ctx context.Context,
	data []byte,
	attributes map[string]string,
) error {
	eventType := attributes["event_type"]

	h.logger.Info("Handling batch request",
		"event_type", eventType,
		"attributes", attributes,
	)

	// Eventarc deliveries may carry no attributes; the payload's own type wins.
	if eventType != "" && eventType != string(events.EventTypeBatchRequested) {
		if _, err := events.CreateEvent(events.EventType(eventType)); err != nil {
			h.logger.Warn("Unknown event type", "event_type", eventType)
			return pkgErrors.WrapValidationError(err, "unknown event type").
				WithContext("event_type", eventType)
		}
		h.logger.Warn("Unexpected event type", "event_type", eventType)
		return pkgErrors.NewValidationError("unexpected event type").
			WithContext("event_type", eventType)
	}

	var request events.BatchRequestedEvent
	if err := h.serializer.Deserialize(data, &request); err != nil {
		h.logger.Error("Failed to deserialize event", "error", err)
		return err
	}
	if request.EventType != "" && request.EventType != events.EventTypeBatchRequested {
		return pkgErrors.NewValidationError("unexpected event type").
			WithContext("event_type", request.EventType)
	}

	h.logger.Info("Processing batch request",
		"event_id", request.EventID,
		"batch_id", request.BatchID,
		"sources", len(request.Sources),
	)

	result, err := h.runner.RunRequested(ctx, &request)
	if err != nil {
		h.logger.Error("Failed to process batch",
			"batch_id", request.BatchID,
			"error", err,
		)
		return err
	}

	h.logger.Info("Successfully processed batch request",
		"event_id", request.EventID,
		"batch_id", result.Batch.ID,
		"archive_key", result.Batch.ArchiveKey,
	)

	return nil
}
