package events

import (
	"github.com/histopathai/print-resize-service/internal/domain/model"
)

const (
	EventTypeBatchRequested EventType = "batch.requested.v1"
	EventTypeBatchCompleted EventType = "batch.completed.v1"
	EventTypeBatchFailed    EventType = "batch.failed.v1"
)

// BatchRequestedEvent asks a worker to process images already present in
// the input storage. Sources are paths relative to the input mount.
type BatchRequestedEvent struct {
	BaseEvent
	BatchID string            `json:"batch_id"`
	Config  model.BatchConfig `json:"config"`
	Sources []string          `json:"sources"`
}

func NewBatchRequestedEvent(batchID string, cfg model.BatchConfig, sources []string) BatchRequestedEvent {
	return BatchRequestedEvent{
		BaseEvent: NewBaseEvent(EventTypeBatchRequested),
		BatchID:   batchID,
		Config:    cfg,
		Sources:   sources,
	}
}

type BatchCompletedEvent struct {
	BaseEvent
	BatchID    string              `json:"batch_id"`
	ArchiveKey string              `json:"archive_key"`
	LedgerKey  string              `json:"ledger_key"`
	Items      []model.ItemSummary `json:"items"`
}

func NewBatchCompletedEvent(batch *model.Batch) BatchCompletedEvent {
	return BatchCompletedEvent{
		BaseEvent:  NewBaseEvent(EventTypeBatchCompleted),
		BatchID:    batch.ID,
		ArchiveKey: batch.ArchiveKey,
		LedgerKey:  batch.LedgerKey,
		Items:      batch.Items,
	}
}

type BatchFailedEvent struct {
	BaseEvent
	BatchID       string `json:"batch_id"`
	FailureReason string `json:"failure_reason"`
	ErrorType     string `json:"error_type"`
	Retryable     bool   `json:"retryable"`
}

func NewBatchFailedEvent(batchID, reason, errorType string, retryable bool) BatchFailedEvent {
	return BatchFailedEvent{
		BaseEvent:     NewBaseEvent(EventTypeBatchFailed),
		BatchID:       batchID,
		FailureReason: reason,
		ErrorType:     errorType,
		Retryable:     retryable,
	}
}
