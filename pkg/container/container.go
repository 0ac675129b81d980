package container

import (
	"context"
	"log/slog"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/histopathai/print-resize-service/internal/application/handlers"
	"github.com/histopathai/print-resize-service/internal/domain/events"
	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/internal/handler"
	pubsubInfra "github.com/histopathai/print-resize-service/internal/infrastructure/events/pubsub"
	"github.com/histopathai/print-resize-service/internal/infrastructure/events/stdout"
	"github.com/histopathai/print-resize-service/internal/infrastructure/processors"
	"github.com/histopathai/print-resize-service/internal/infrastructure/repository"
	storageInfra "github.com/histopathai/print-resize-service/internal/infrastructure/storage"
	"github.com/histopathai/print-resize-service/internal/service"
	"github.com/histopathai/print-resize-service/pkg/config"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

type Container struct {
	Config          *config.Config
	Logger          *slog.Logger
	PubSubClient    *pubsub.Client
	StorageClient   *storage.Client
	FirestoreClient *firestore.Client

	Publisher       port.EventPublisher
	Subscriber      port.EventSubscriber
	EventSerializer events.EventSerializer
	InputStorage    port.InputStorage
	OutputStorage   port.OutputStorage
	Repository      port.BatchRepository

	Orchestrator        *service.BatchOrchestrator
	BatchHandlerService *handlers.BatchHandlerService
	HTTPHandler         *handler.Handler
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	logger.Info("Initializing container",
		"env", cfg.Env,
		"mode", cfg.Mode,
		"storage_provider", cfg.Storage.Provider,
		"encoder", cfg.Encoder.Backend)

	c := &Container{
		Config:          cfg,
		Logger:          logger,
		EventSerializer: events.NewJSONEventSerializer(),
	}

	if err := c.initClients(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initStorage(); err != nil {
		c.Close()
		return nil, err
	}
	c.initMessaging()

	if c.FirestoreClient != nil {
		c.Repository = repository.NewFirestoreBatchRepository(c.FirestoreClient, cfg.Firestore.Collection, logger)
	} else {
		c.Repository = repository.NewMemoryBatchRepository()
	}

	encoder, err := c.newEncoder()
	if err != nil {
		c.Close()
		return nil, err
	}

	fields, err := model.ParseLedgerFields(cfg.Ledger.Fields)
	if err != nil {
		c.Close()
		return nil, err
	}

	inspector := processors.NewImageInfoProcessor(logger, cfg.Resize.MaxPixels)
	zip := processors.NewZipProcessor()

	processor := service.NewBatchProcessor(
		logger,
		inspector,
		processors.NewResampler(logger, cfg.Resize.SharpenSigma),
		encoder,
		cfg.Resize.MaxPixels,
	)

	c.Orchestrator = service.NewBatchOrchestrator(
		logger,
		service.OrchestratorConfig{
			ArchiveName:   cfg.Resize.ArchiveName,
			LedgerName:    cfg.Ledger.Filename,
			ResultTopicID: cfg.PubSub.ResultTopicID,
			MaxInputBytes: int64(cfg.Storage.MaxInputMB) << 20,
		},
		inspector,
		processor,
		service.NewArchivePackager(logger, zip),
		service.NewLedgerBuilder(logger, fields, cfg.Ledger.ThumbnailSize),
		service.NewOutputValidator(logger, zip),
		c.InputStorage,
		c.OutputStorage,
		c.Repository,
		c.Publisher,
		c.EventSerializer,
	)

	c.BatchHandlerService = handlers.NewBatchHandlerService(c.Orchestrator, c.EventSerializer, logger)

	c.HTTPHandler = handler.NewHandler(
		c.Orchestrator,
		handler.Defaults{
			Mode:     cfg.Resize.DefaultMode,
			DPI:      cfg.Resize.DefaultDPI,
			MaxWidth: cfg.Resize.DefaultMaxWidth,
			Format:   cfg.Resize.DefaultFormat,
			Prefix:   cfg.Resize.DefaultPrefix,
		},
		handler.Limits{
			MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
			MaxFiles:       cfg.Server.MaxFiles,
		},
		logger,
	)

	logger.Info("Container initialized successfully")
	return c, nil
}

func (c *Container) initClients(ctx context.Context) error {
	if !c.Config.UsesGCP() {
		c.Logger.Info("No GCP project configured, using local adapters")
		return nil
	}
	projectID := c.Config.GCP.ProjectID

	pubsubClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		c.Logger.Error("Failed to create Pub/Sub client", "error", err)
		return errors.WrapInternalError(err, "failed to create pubsub client")
	}
	c.PubSubClient = pubsubClient

	firestoreClient, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		c.Logger.Error("Failed to create Firestore client", "error", err)
		return errors.WrapInternalError(err, "failed to create firestore client")
	}
	c.FirestoreClient = firestoreClient

	if c.Config.Storage.Provider == "gcs" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			c.Logger.Error("Failed to create Storage client", "error", err)
			return errors.WrapInternalError(err, "failed to create storage client")
		}
		c.StorageClient = storageClient
	}
	return nil
}

func (c *Container) initStorage() error {
	cfg := c.Config
	parallel := cfg.GCP.MaxParallelUploads

	if c.StorageClient == nil {
		c.InputStorage = storageInfra.NewMountStorage(cfg.Storage.InputMountPath, c.Logger)
		c.OutputStorage = storageInfra.NewMountStorage(cfg.Storage.OutputMountPath, c.Logger)
		return nil
	}

	if cfg.GCP.OutputBucketName == "" {
		return errors.NewConfigurationError("OUTPUT_BUCKET_NAME is required for gcs storage")
	}
	c.OutputStorage = storageInfra.NewGCSStorage(c.Logger, c.StorageClient, cfg.GCP.OutputBucketName, cfg.Storage.OutputPrefix, parallel)

	// Sources are read through the FUSE mount unless an input bucket is named.
	if cfg.GCP.InputBucketName != "" {
		c.InputStorage = storageInfra.NewGCSStorage(c.Logger, c.StorageClient, cfg.GCP.InputBucketName, "", parallel)
	} else {
		c.InputStorage = storageInfra.NewMountStorage(cfg.Storage.InputMountPath, c.Logger)
	}
	return nil
}

func (c *Container) initMessaging() {
	if c.PubSubClient == nil {
		c.Publisher = stdout.NewPublisher(c.Logger)
		return
	}

	c.Publisher = pubsubInfra.NewPublisher(c.PubSubClient, c.Logger)
	if c.Config.PubSub.RequestSubscriptionID != "" {
		c.Subscriber = pubsubInfra.NewSubscriber(c.PubSubClient, c.Config.PubSub.RequestSubscriptionID, c.Logger)
	}
}

func (c *Container) newEncoder() (port.ImageEncoder, error) {
	if c.Config.Encoder.Backend != config.EncoderVips {
		return processors.NewNativeEncoder(c.Logger), nil
	}

	vips := processors.NewVipsEncoder(c.Logger, c.Config.Encoder.VipsBinary, c.Config.Encoder.Timeout)
	if err := vips.VerifyBinary(); err != nil {
		return nil, err
	}
	return vips, nil
}

func (c *Container) Close() error {
	c.Logger.Info("Closing container resources")

	var firstErr error
	record := func(name string, err error) {
		if err == nil {
			return
		}
		c.Logger.Error("Failed to close resource", "resource", name, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if c.Subscriber != nil {
		record("subscriber", c.Subscriber.Stop())
	}
	if c.Publisher != nil {
		record("publisher", c.Publisher.Close())
	}
	if c.PubSubClient != nil {
		record("pubsub", c.PubSubClient.Close())
	}
	if c.FirestoreClient != nil {
		record("firestore", c.FirestoreClient.Close())
	}
	if c.StorageClient != nil {
		record("storage", c.StorageClient.Close())
	}

	if firstErr == nil {
		c.Logger.Info("Container resources closed successfully")
	}
	return firstErr
}
