package repository

import (
	"context"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreBatchRepository keeps one document per batch, keyed by batch ID.
type FirestoreBatchRepository struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

func NewFirestoreBatchRepository(client *firestore.Client, collection string, logger *slog.Logger) *FirestoreBatchRepository {
	return &FirestoreBatchRepository{
		client:     client,
		collection: collection,
		logger:     logger,
	}
}

func (r *FirestoreBatchRepository) Save(ctx context.Context, batch *model.Batch) error {
	if batch == nil || batch.ID == "" {
		return errors.NewValidationError("batch id is required")
	}

	docRef := r.client.Collection(r.collection).Doc(batch.ID)
	if _, err := docRef.Set(ctx, batch); err != nil {
		return errors.WrapStorageError(err, "failed to save batch").
			WithContext("collection", r.collection).
			WithContext("batch_id", batch.ID)
	}

	r.logger.Debug("Saved batch record",
		"batch_id", batch.ID,
		"status", batch.Status)
	return nil
}

func (r *FirestoreBatchRepository) Get(ctx context.Context, id string) (*model.Batch, error) {
	doc, err := r.client.Collection(r.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NewNotFoundError("batch").
				WithContext("batch_id", id)
		}
		return nil, errors.WrapStorageError(err, "failed to read batch").
			WithContext("collection", r.collection).
			WithContext("batch_id", id)
	}

	var batch model.Batch
	if err := doc.DataTo(&batch); err != nil {
		return nil, errors.WrapInternalError(err, "failed to decode batch document").
			WithContext("batch_id", id)
	}
	return &batch, nil
}

// List returns the most recent batches first.
func (r *FirestoreBatchRepository) List(ctx context.Context, limit int) ([]*model.Batch, error) {
	query := r.client.Collection(r.collection).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var results []*model.Batch
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.WrapStorageError(err, "failed to list batches").
				WithContext("collection", r.collection)
		}

		var batch model.Batch
		if err := doc.DataTo(&batch); err != nil {
			return nil, errors.WrapInternalError(err, "failed to decode batch document").
				WithContext("batch_id", doc.Ref.ID)
		}
		results = append(results, &batch)
	}

	return results, nil
}

var _ port.BatchRepository = (*FirestoreBatchRepository)(nil)
