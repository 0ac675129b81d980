package port

import (
	"context"

	"github.com/histopathai/print-resize-service/internal/domain/model"
)

// BatchRepository stores batch records.
type BatchRepository interface {
	Save(ctx context.Context, batch *model.Batch) error
	Get(ctx context.Context, id string) (*model.Batch, error)
	List(ctx context.Context, limit int) ([]*model.Batch, error)
}
