package config

import (
	"testing"
	"time"

	"github.com/histopathai/print-resize-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_LocalDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "LOCAL")
	t.Setenv("PROJECT_ID", "")

	cfg, err := LoadConfig(logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, RunModeServer, cfg.Mode)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, 300, cfg.Resize.DefaultDPI)
	assert.Equal(t, "resized", cfg.Resize.DefaultPrefix)
	assert.Equal(t, "resized_images.zip", cfg.Resize.ArchiveName)
	assert.Equal(t, EncoderNative, cfg.Encoder.Backend)
	assert.False(t, cfg.UsesGCP())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "PROD")
	t.Setenv("APP_MODE", "worker")
	t.Setenv("PROJECT_ID", "proj")
	t.Setenv("OUTPUT_BUCKET_NAME", "out")
	t.Setenv("DEFAULT_DPI", "350")
	t.Setenv("ENCODER_BACKEND", "VIPS")
	t.Setenv("VIPS_TIMEOUT", "45s")
	t.Setenv("SHARPEN_SIGMA", "not-a-number")

	cfg, err := LoadConfig(logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, RunModeWorker, cfg.Mode)
	assert.Equal(t, "gcs", cfg.Storage.Provider)
	assert.Equal(t, "out", cfg.GCP.OutputBucketName)
	assert.Equal(t, 350, cfg.Resize.DefaultDPI)
	assert.Equal(t, EncoderVips, cfg.Encoder.Backend)
	assert.Equal(t, 45*time.Second, cfg.Encoder.Timeout)
	assert.Zero(t, cfg.Resize.SharpenSigma)
	assert.True(t, cfg.UsesGCP())
}

func TestLoadResizeConfig_SharpenSigma(t *testing.T) {
	t.Setenv("SHARPEN_SIGMA", "1.25")
	assert.Equal(t, 1.25, LoadResizeConfig().SharpenSigma)

	t.Setenv("SHARPEN_SIGMA", "-2")
	assert.Zero(t, LoadResizeConfig().SharpenSigma)

	t.Setenv("SHARPEN_SIGMA", "")
	assert.Zero(t, LoadResizeConfig().SharpenSigma)
}
