package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/histopathai/print-resize-service/internal/server"
	"github.com/histopathai/print-resize-service/pkg/config"
	"github.com/histopathai/print-resize-service/pkg/container"
	"github.com/histopathai/print-resize-service/pkg/errors"
	"github.com/histopathai/print-resize-service/pkg/logger"
)

type CloudEventPayload struct {
	Message struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
}

func main() {
	// Initialize basic logger for startup
	startupLogger := logger.New(logger.Config{
		Level:  "info",
		Format: "text",
	})

	startupLogger.Info("Starting Print Resize Service")

	cfg, err := config.LoadConfig(startupLogger)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	appLogger.Info("Configuration loaded",
		"env", cfg.Env,
		"mode", cfg.Mode,
		"project_id", cfg.GCP.ProjectID,
		"result_topic", cfg.PubSub.ResultTopicID,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cnt, err := container.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize container", "error", err)
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer func() {
		if err := cnt.Close(); err != nil {
			appLogger.Error("Error closing container", "error", err)
		}
	}()

	switch cfg.Mode {
	case config.RunModeJob:
		err = runJob(ctx, cnt, appLogger)
	case config.RunModeWorker:
		err = runWorker(ctx, cnt, appLogger)
	default:
		router := server.NewRouter(cfg.Server.GinMode, cnt.HTTPHandler, appLogger)
		err = server.Start(ctx, cfg.Server, router, appLogger)
	}

	if err != nil {
		appLogger.Error("Service stopped with error", "mode", cfg.Mode, "error", err)
		cnt.Close()
		os.Exit(1)
	}
	appLogger.Info("Service stopped", "mode", cfg.Mode)
}

// runJob handles exactly one batch.requested.v1 event delivered by Eventarc
// through the CE_DATA environment variable.
func runJob(ctx context.Context, cnt *container.Container, appLogger *slog.Logger) error {
	ceDataEnv := os.Getenv("CE_DATA")
	if ceDataEnv == "" {
		return errors.NewConfigurationError("CE_DATA environment variable not found, job must be triggered by Eventarc")
	}

	data, attributes, err := decodeCloudEvent(ceDataEnv)
	if err != nil {
		return err
	}

	appLogger.Info("Calling batch handler",
		"event_type", attributes["event_type"],
		"batch_id", attributes["batch_id"],
	)
	if err := cnt.BatchHandlerService.HandleBatchRequest(ctx, data, attributes); err != nil {
		return err
	}

	appLogger.Info("Print Resize Job completed successfully")
	return nil
}

func runWorker(ctx context.Context, cnt *container.Container, appLogger *slog.Logger) error {
	if cnt.Subscriber == nil {
		return errors.NewConfigurationError("worker mode needs PROJECT_ID and REQUEST_SUBSCRIPTION_ID")
	}
	appLogger.Info("Worker waiting for batch requests",
		"subscription", cnt.Config.PubSub.RequestSubscriptionID)
	return cnt.Subscriber.Subscribe(ctx, cnt.BatchHandlerService.HandleBatchRequest)
}

// decodeCloudEvent unwraps the base64 CloudEvent and the base64 Pub/Sub
// message data inside it.
func decodeCloudEvent(encoded string) ([]byte, map[string]string, error) {
	decodedCloudEvent, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, errors.WrapValidationError(err, "failed to decode CE_DATA")
	}

	var payload CloudEventPayload
	if err := json.Unmarshal(decodedCloudEvent, &payload); err != nil {
		return nil, nil, errors.WrapValidationError(err, "failed to unmarshal CloudEvent JSON")
	}

	data, err := base64.StdEncoding.DecodeString(payload.Message.Data)
	if err != nil {
		return nil, nil, errors.WrapValidationError(err, "failed to decode inner Pub/Sub message data")
	}

	attributes := payload.Message.Attributes
	if attributes == nil {
		attributes = make(map[string]string)
	}
	return data, attributes, nil
}
