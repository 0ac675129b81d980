package service

import (
	"context"
	"io"
	"log/slog"
	"path"

	"github.com/histopathai/print-resize-service/internal/domain/events"
	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/internal/domain/vobj"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

// ImageInspector reads an uploaded payload's header into an ImageAsset.
type ImageInspector interface {
	Inspect(ctx context.Context, filename string, data []byte) (*model.ImageAsset, error)
}

// Upload is one source file handed to a batch.
type Upload struct {
	Filename string
	Data     []byte
}

type OrchestratorConfig struct {
	ArchiveName   string
	LedgerName    string
	ResultTopicID string
	MaxInputBytes int64
}

// BatchResult is what a finished run hands back to its caller.
type BatchResult struct {
	Batch   *model.Batch
	Items   []model.ProcessedItem
	Archive []byte
	Ledger  []byte
}

type BatchOrchestrator struct {
	logger        *slog.Logger
	config        OrchestratorConfig
	inspector     ImageInspector
	processor     *BatchProcessor
	packager      *ArchivePackager
	ledger        *LedgerBuilder
	validator     *OutputValidator
	inputStorage  port.InputStorage
	outputStorage port.OutputStorage
	repository    port.BatchRepository
	publisher     port.EventPublisher
	serializer    events.EventSerializer
}

func NewBatchOrchestrator(
	logger *slog.Logger,
	config OrchestratorConfig,
	inspector ImageInspector,
	processor *BatchProcessor,
	packager *ArchivePackager,
	ledger *LedgerBuilder,
	validator *OutputValidator,
	inputStorage port.InputStorage,
	outputStorage port.OutputStorage,
	repository port.BatchRepository,
	publisher port.EventPublisher,
	serializer events.EventSerializer,
) *BatchOrchestrator {
	return &BatchOrchestrator{
		logger:        logger,
		config:        config,
		inspector:     inspector,
		processor:     processor,
		packager:      packager,
		ledger:        ledger,
		validator:     validator,
		inputStorage:  inputStorage,
		outputStorage: outputStorage,
		repository:    repository,
		publisher:     publisher,
		serializer:    serializer,
	}
}

// RunUploads processes files received directly from a client.
func (o *BatchOrchestrator) RunUploads(ctx context.Context, batchID string, cfg model.BatchConfig, uploads []Upload) (*BatchResult, error) {
	sources := make([]string, 0, len(uploads))
	for _, u := range uploads {
		sources = append(sources, u.Filename)
	}

	batch := model.NewBatch(batchID, cfg, sources)
	return o.run(ctx, batch, func(ctx context.Context) ([]Upload, error) {
		return uploads, nil
	})
}

// RunRequested processes a batch whose sources already sit in input storage.
func (o *BatchOrchestrator) RunRequested(ctx context.Context, request *events.BatchRequestedEvent) (*BatchResult, error) {
	batch := model.NewBatch(request.BatchID, request.Config, request.Sources)
	return o.run(ctx, batch, func(ctx context.Context) ([]Upload, error) {
		return o.loadSources(ctx, request.Sources)
	})
}

func (o *BatchOrchestrator) Get(ctx context.Context, id string) (*model.Batch, error) {
	return o.repository.Get(ctx, id)
}

// OpenArtifact streams a stored artifact of a finished batch.
func (o *BatchOrchestrator) OpenArtifact(ctx context.Context, key string) (io.ReadCloser, error) {
	return o.outputStorage.GetReader(ctx, key)
}

func (o *BatchOrchestrator) run(ctx context.Context, batch *model.Batch, load func(context.Context) ([]Upload, error)) (*BatchResult, error) {
	log := o.logger.With("batch_id", batch.ID)
	log.Info("Starting batch",
		"mode", batch.Config.Mode,
		"sources", len(batch.Sources))

	// Reject bad operator input before anything is read or decoded.
	cfg, err := o.processor.PrepareConfig(batch.Config)
	if err != nil {
		return nil, o.fail(ctx, batch, err)
	}
	batch.Config = cfg

	batch.MarkProcessing()
	if err := o.repository.Save(ctx, batch); err != nil {
		log.Warn("Failed to record batch start", "error", err)
	}

	uploads, err := load(ctx)
	if err != nil {
		return nil, o.fail(ctx, batch, err)
	}

	assets := make([]*model.ImageAsset, 0, len(uploads))
	for _, u := range uploads {
		asset, err := o.inspector.Inspect(ctx, u.Filename, u.Data)
		if err != nil {
			return nil, o.fail(ctx, batch, err)
		}
		assets = append(assets, asset)
	}

	items, err := o.processor.Process(ctx, assets, cfg)
	if err != nil {
		return nil, o.fail(ctx, batch, err)
	}

	archive, err := o.packager.Package(ctx, batch.ID, cfg, items)
	if err != nil {
		return nil, o.fail(ctx, batch, err)
	}

	ledger, err := o.ledger.Build(ctx, batch.ID, items)
	if err != nil {
		return nil, o.fail(ctx, batch, err)
	}

	if err := o.validator.Validate(ctx, items, archive, ledger); err != nil {
		return nil, o.fail(ctx, batch, err)
	}

	archiveKey := path.Join(batch.ID, o.config.ArchiveName)
	ledgerKey := path.Join(batch.ID, o.config.LedgerName)

	objects := make([]port.Object, 0, len(items)+2)
	for i := range items {
		objects = append(objects, port.Object{
			Key:         ItemKey(batch.ID, items[i].Filename),
			Data:        items[i].Data,
			ContentType: items[i].Format.ContentType().String(),
		})
	}
	objects = append(objects,
		port.Object{Key: archiveKey, Data: archive, ContentType: vobj.ContentTypeApplicationZip.String()},
		port.Object{Key: ledgerKey, Data: ledger, ContentType: vobj.ContentTypeApplicationXLSX.String()},
	)

	if err := o.outputStorage.PutObjects(ctx, objects); err != nil {
		return nil, o.fail(ctx, batch, err)
	}

	batch.MarkCompleted(items, archiveKey, ledgerKey)
	if err := o.repository.Save(ctx, batch); err != nil {
		return nil, o.fail(ctx, batch, err)
	}

	o.publish(ctx, events.NewBatchCompletedEvent(batch), batch.ID)

	log.Info("Batch completed",
		"items", len(items),
		"archive_key", archiveKey,
		"ledger_key", ledgerKey)

	return &BatchResult{
		Batch:   batch,
		Items:   items,
		Archive: archive,
		Ledger:  ledger,
	}, nil
}

// ItemKey is where a single converted image is stored.
func ItemKey(batchID, filename string) string {
	return path.Join(batchID, "images", filename)
}

func (o *BatchOrchestrator) loadSources(ctx context.Context, sources []string) ([]Upload, error) {
	if len(sources) == 0 {
		return nil, errors.NewInvalidInputError("batch has no images")
	}

	uploads := make([]Upload, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.ErrorTypeCancellation, "batch canceled while loading sources")
		}

		rc, err := o.inputStorage.GetReader(ctx, src)
		if err != nil {
			return nil, err
		}
		data, err := readLimited(rc, o.config.MaxInputBytes)
		rc.Close()
		if err != nil {
			return nil, errors.Wrap(err, errors.TypeOf(err), "failed to read source image").
				WithContext("path", src)
		}

		uploads = append(uploads, Upload{Filename: path.Base(src), Data: data})
	}
	return uploads, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.WrapStorageError(err, "read failed")
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.WrapStorageError(err, "read failed")
	}
	if int64(len(data)) > limit {
		return nil, errors.NewInvalidInputError("source image is too large").
			WithContext("max_bytes", limit)
	}
	return data, nil
}

// fail records the failure and publishes it. The original error is
// returned unchanged so callers can map its type.
func (o *BatchOrchestrator) fail(ctx context.Context, batch *model.Batch, cause error) error {
	retryable := !errors.IsNonRetryable(cause)
	batch.MarkFailed(cause.Error(), retryable)

	o.logger.Error("Batch failed",
		"batch_id", batch.ID,
		"error_type", errors.TypeOf(cause),
		"retryable", retryable,
		"error", cause)

	// Recording the failure must not be cut short by the caller's deadline.
	ctx = context.WithoutCancel(ctx)

	if err := o.repository.Save(ctx, batch); err != nil {
		o.logger.Error("Failed to record batch failure",
			"batch_id", batch.ID,
			"error", err)
	}

	o.publish(ctx, events.NewBatchFailedEvent(batch.ID, batch.FailureReason, string(errors.TypeOf(cause)), retryable), batch.ID)
	return cause
}

func (o *BatchOrchestrator) publish(ctx context.Context, event events.Event, batchID string) {
	data, err := o.serializer.Serialize(event)
	if err != nil {
		o.logger.Error("Failed to serialize event", "batch_id", batchID, "error", err)
		return
	}

	attributes := map[string]string{
		"event_type": string(event.GetEventType()),
		"event_id":   event.GetEventID(),
		"batch_id":   batchID,
	}

	if err := o.publisher.Publish(ctx, o.config.ResultTopicID, data, attributes); err != nil {
		o.logger.Error("Failed to publish event",
			"batch_id", batchID,
			"event_type", event.GetEventType(),
			"error", err)
	}
}
