package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Environment string

const (
	EnvLocal      Environment = "LOCAL"
	EnvDev        Environment = "DEV"
	EnvProduction Environment = "PROD"
)

// RunMode selects the entrypoint behaviour.
type RunMode string

const (
	RunModeServer RunMode = "server" // HTTP upload API
	RunModeJob    RunMode = "job"    // single batch from CE_DATA
	RunModeWorker RunMode = "worker" // Pub/Sub pull subscriber
)

type EncoderBackend string

const (
	EncoderNative EncoderBackend = "native"
	EncoderVips   EncoderBackend = "vips"
)

// GCPConfig holds Google Cloud Platform related configuration.
type GCPConfig struct {
	ProjectID          string
	Region             string
	InputBucketName    string
	OutputBucketName   string
	MaxParallelUploads int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	Provider        string // "local" (mount) or "gcs"
	InputMountPath  string // Mount path for input files (e.g., /input, /gcs/bucket-original, ./test-data/input)
	OutputMountPath string // Mount path for output files (e.g., /output, /gcs/bucket-processed, ./test-data/output)
	OutputPrefix    string // Key prefix inside the output bucket
	MaxInputMB      int    // Largest source object read in job mode
}

type ServerConfig struct {
	Port         string
	GinMode      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxUploadMB  int
	MaxFiles     int
}

// ResizeConfig holds defaults applied when a request leaves a field empty.
type ResizeConfig struct {
	DefaultMode     string
	DefaultDPI      int
	DefaultMaxWidth int
	DefaultFormat   string
	DefaultPrefix   string
	// SharpenSigma of zero keeps the resampler's built-in radius.
	SharpenSigma float64
	// MaxPixels bounds both decoded sources and resampled outputs.
	MaxPixels   int64
	ArchiveName string
}

type LedgerConfig struct {
	Filename      string
	Fields        string // e.g. "Stage=Before|During|After;Result=OK|NG|Pending"
	ThumbnailSize int
}

type EncoderConfig struct {
	Backend    EncoderBackend
	VipsBinary string
	Timeout    time.Duration
}

type PubSubConfig struct {
	ResultTopicID         string
	RequestSubscriptionID string
}

type FirestoreConfig struct {
	Collection string
}

type Config struct {
	Env       Environment
	Mode      RunMode
	GCP       GCPConfig
	Storage   StorageConfig
	Logging   LoggingConfig
	Server    ServerConfig
	Resize    ResizeConfig
	Ledger    LedgerConfig
	Encoder   EncoderConfig
	PubSub    PubSubConfig
	Firestore FirestoreConfig
}

// UsesGCP reports whether cloud clients should be created.
func (c *Config) UsesGCP() bool {
	return c.GCP.ProjectID != ""
}

func LoadGCPConfig() GCPConfig {
	return GCPConfig{
		ProjectID:          os.Getenv("PROJECT_ID"),
		Region:             os.Getenv("REGION"),
		InputBucketName:    os.Getenv("INPUT_BUCKET_NAME"),
		OutputBucketName:   os.Getenv("OUTPUT_BUCKET_NAME"),
		MaxParallelUploads: getEnvInt("MAX_PARALLEL_UPLOADS", 8),
	}
}

func LoadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "INFO"),
		Format: getEnv("LOG_FORMAT", "json"),
	}
}

func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "release"),
		ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 2*time.Minute),
		WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Minute),
		MaxUploadMB:  getEnvInt("MAX_UPLOAD_MB", 256),
		MaxFiles:     getEnvInt("MAX_FILES", 200),
	}
}

func LoadResizeConfig() ResizeConfig {
	return ResizeConfig{
		DefaultMode:     getEnv("DEFAULT_MODE", "direct_dpi"),
		DefaultDPI:      getEnvInt("DEFAULT_DPI", 300),
		DefaultMaxWidth: getEnvInt("DEFAULT_MAX_WIDTH", 10000),
		DefaultFormat:   getEnv("DEFAULT_FORMAT", "png"),
		DefaultPrefix:   getEnv("DEFAULT_PREFIX", "resized"),
		SharpenSigma:    getEnvFloat("SHARPEN_SIGMA", 0),
		MaxPixels:       int64(getEnvInt("MAX_PIXELS", 150_000_000)),
		ArchiveName:     getEnv("ARCHIVE_NAME", "resized_images.zip"),
	}
}

func LoadLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Filename:      getEnv("LEDGER_NAME", "photo_ledger.xlsx"),
		Fields:        getEnv("LEDGER_FIELDS", "Stage=Before|During|After;Result=OK|NG|Pending"),
		ThumbnailSize: getEnvInt("LEDGER_THUMBNAIL_SIZE", 240),
	}
}

func LoadEncoderConfig() EncoderConfig {
	backend := EncoderBackend(strings.ToLower(getEnv("ENCODER_BACKEND", string(EncoderNative))))
	if backend != EncoderVips {
		backend = EncoderNative
	}
	return EncoderConfig{
		Backend:    backend,
		VipsBinary: getEnv("VIPS_BINARY", "vips"),
		Timeout:    getEnvDuration("VIPS_TIMEOUT", 2*time.Minute),
	}
}

func LoadPubSubConfig() PubSubConfig {
	return PubSubConfig{
		ResultTopicID:         getEnv("RESULT_TOPIC_ID", "print-resize-results"),
		RequestSubscriptionID: getEnv("REQUEST_SUBSCRIPTION_ID", "print-resize-requests-sub"),
	}
}

func LoadConfig(logger *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	env := Environment(getEnv("APP_ENV", "LOCAL"))

	var storageConfig StorageConfig
	var gcpConfig GCPConfig

	if env == EnvLocal {
		storageConfig = StorageConfig{
			Provider:        getEnv("STORAGE_PROVIDER", "local"),
			InputMountPath:  getEnv("INPUT_MOUNT_PATH", "./test-data/input"),
			OutputMountPath: getEnv("OUTPUT_MOUNT_PATH", "./test-data/output"),
		}
		gcpConfig = GCPConfig{MaxParallelUploads: getEnvInt("MAX_PARALLEL_UPLOADS", 8)}
	} else {
		// In cloud, use /input and /output mount points (GCS FUSE)
		storageConfig = StorageConfig{
			Provider:        getEnv("STORAGE_PROVIDER", "gcs"),
			InputMountPath:  getEnv("INPUT_MOUNT_PATH", "/input"),
			OutputMountPath: getEnv("OUTPUT_MOUNT_PATH", "/output"),
		}
		gcpConfig = LoadGCPConfig()
	}
	storageConfig.OutputPrefix = os.Getenv("OUTPUT_PREFIX")
	storageConfig.MaxInputMB = getEnvInt("MAX_INPUT_MB", 256)

	config := &Config{
		Env:     env,
		Mode:    RunMode(getEnv("APP_MODE", string(RunModeServer))),
		GCP:     gcpConfig,
		Storage: storageConfig,
		Logging: LoadLoggingConfig(),
		Server:  LoadServerConfig(),
		Resize:  LoadResizeConfig(),
		Ledger:  LoadLedgerConfig(),
		Encoder: LoadEncoderConfig(),
		PubSub:  LoadPubSubConfig(),
		Firestore: FirestoreConfig{
			Collection: getEnv("FIRESTORE_COLLECTION", "print_batches"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
