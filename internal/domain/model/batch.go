package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/histopathai/print-resize-service/internal/domain/vobj"
)

// Batch is the persisted record of one batch run.
type Batch struct {
	ID            string           `json:"id" firestore:"id"`
	Status        vobj.BatchStatus `json:"status" firestore:"status"`
	Config        BatchConfig      `json:"config" firestore:"config"`
	Sources       []string         `json:"sources" firestore:"sources"`
	Items         []ItemSummary    `json:"items" firestore:"items"`
	ArchiveKey    string           `json:"archive_key,omitempty" firestore:"archive_key"`
	LedgerKey     string           `json:"ledger_key,omitempty" firestore:"ledger_key"`
	FailureReason string           `json:"failure_reason,omitempty" firestore:"failure_reason"`
	Retryable     bool             `json:"retryable" firestore:"retryable"`
	CreatedAt     time.Time        `json:"created_at" firestore:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" firestore:"updated_at"`
}

// NewBatch creates a pending batch. An empty id gets a generated one.
func NewBatch(id string, cfg BatchConfig, sources []string) *Batch {
	if id == "" {
		id = uuid.New().String()
	}
	now := Now()
	return &Batch{
		ID:        id,
		Status:    vobj.BatchStatusPending,
		Config:    cfg,
		Sources:   sources,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (b *Batch) MarkProcessing() {
	b.Status = vobj.BatchStatusProcessing
	b.UpdatedAt = Now()
}

func (b *Batch) MarkCompleted(items []ProcessedItem, archiveKey, ledgerKey string) {
	b.Items = make([]ItemSummary, 0, len(items))
	for i := range items {
		b.Items = append(b.Items, items[i].Summary())
	}
	b.ArchiveKey = archiveKey
	b.LedgerKey = ledgerKey
	b.Status = vobj.BatchStatusCompleted
	b.UpdatedAt = Now()
}

func (b *Batch) MarkFailed(reason string, retryable bool) {
	b.Status = vobj.BatchStatusFailed
	b.FailureReason = reason
	b.Retryable = retryable
	b.UpdatedAt = Now()
}

func Now() time.Time {
	return time.Now().UTC()
}
