package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

// MemoryBatchRepository is used when no Firestore project is configured.
type MemoryBatchRepository struct {
	mu      sync.RWMutex
	batches map[string]model.Batch
}

func NewMemoryBatchRepository() *MemoryBatchRepository {
	return &MemoryBatchRepository{batches: make(map[string]model.Batch)}
}

func (r *MemoryBatchRepository) Save(ctx context.Context, batch *model.Batch) error {
	if batch == nil || batch.ID == "" {
		return errors.NewValidationError("batch id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[batch.ID] = clone(batch)
	return nil
}

func (r *MemoryBatchRepository) Get(ctx context.Context, id string) (*model.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, errors.NewNotFoundError("batch").
			WithContext("batch_id", id)
	}
	out := clone(&b)
	return &out, nil
}

func (r *MemoryBatchRepository) List(ctx context.Context, limit int) ([]*model.Batch, error) {
	r.mu.RLock()
	results := make([]*model.Batch, 0, len(r.batches))
	for _, b := range r.batches {
		c := clone(&b)
		results = append(results, &c)
	}
	r.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func clone(b *model.Batch) model.Batch {
	c := *b
	c.Sources = append([]string(nil), b.Sources...)
	c.Items = append([]model.ItemSummary(nil), b.Items...)
	return c
}

var _ port.BatchRepository = (*MemoryBatchRepository)(nil)
