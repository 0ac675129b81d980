package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/infrastructure/processors"
	"github.com/histopathai/print-resize-service/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = color.NRGBA{R: 200, G: 30, B: 30, A: 255}

func TestProcess_DirectDPIKeepsPixelsInOrder(t *testing.T) {
	p, _ := newProcessor()
	assets := []*model.ImageAsset{
		inspect(t, "b.png", pngBytes(t, solid(100, 50, red))),
		inspect(t, "a.png", pngBytes(t, solid(30, 60, red))),
	}

	items, err := p.Process(context.Background(), assets, batchConfig(model.SizeModeDirectDPI, 254, 0, 0, model.FormatPNG))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "site1_b.png", items[0].Filename)
	assert.Equal(t, "site1_a.png", items[1].Filename)

	first := items[0]
	assert.Equal(t, 100, first.Width)
	assert.Equal(t, 50, first.Height)
	assert.Equal(t, model.ResolvedSize{Width: 100, Height: 50, DPI: 254}, first.Resolved)
	assert.Equal(t, model.PhysicalSize{WidthCm: 1.0, HeightCm: 0.5}, first.Physical)
	assert.False(t, first.Sharpened)
	assert.False(t, first.Clamped)

	dpi, ok := processors.PNGPhysDPI(first.Data)
	require.True(t, ok)
	assert.Equal(t, 254, dpi)
	assert.Equal(t, "site1_b.png: 100x50 px -> 100x50 px, 254 dpi, 1.0 x 0.5 cm", first.InfoText())
}

func TestProcess_WidthCmDerivesDPI(t *testing.T) {
	p, _ := newProcessor()
	assets := []*model.ImageAsset{inspect(t, "scan.jpg", jpegBytes(t, solid(300, 200, red)))}

	items, err := p.Process(context.Background(), assets, batchConfig(model.SizeModeWidthCm, 300, 2.54, 0, model.FormatJPEG))
	require.NoError(t, err)

	item := items[0]
	assert.Equal(t, "site1_scan.jpg", item.Filename)
	assert.Equal(t, 300, item.Resolved.DPI)
	assert.Equal(t, 300, item.Width)

	x, y, ok := processors.JPEGDensity(item.Data)
	require.True(t, ok)
	assert.Equal(t, 300, x)
	assert.Equal(t, 300, y)
}

func TestProcess_WidthHeightCmResamples(t *testing.T) {
	p, _ := newProcessor()

	t.Run("downscale is sharpened", func(t *testing.T) {
		assets := []*model.ImageAsset{inspect(t, "big.png", pngBytes(t, solid(200, 100, red)))}
		items, err := p.Process(context.Background(), assets,
			batchConfig(model.SizeModeWidthHeightCmDPI, 50, 2.54, 1.27, model.FormatPNG))
		require.NoError(t, err)

		item := items[0]
		assert.Equal(t, 50, item.Width)
		assert.Equal(t, 25, item.Height)
		assert.True(t, item.Resolved.Resampled)
		assert.True(t, item.Sharpened)
	})

	t.Run("upscale is not sharpened", func(t *testing.T) {
		assets := []*model.ImageAsset{inspect(t, "small.png", pngBytes(t, solid(20, 20, red)))}
		items, err := p.Process(context.Background(), assets,
			batchConfig(model.SizeModeWidthHeightCmDPI, 100, 2.54, 2.54, model.FormatPNG))
		require.NoError(t, err)

		item := items[0]
		assert.Equal(t, 100, item.Width)
		assert.Equal(t, 100, item.Height)
		assert.False(t, item.Sharpened)
	})
}

func TestProcess_ClampsToMaxWidth(t *testing.T) {
	p, _ := newProcessor()
	cfg := batchConfig(model.SizeModeDirectDPI, 300, 0, 0, model.FormatPNG)
	cfg.Inputs.MaxOutputWidth = 500

	assets := []*model.ImageAsset{
		inspect(t, "wide.png", pngBytes(t, solid(800, 200, red))),
		inspect(t, "narrow.png", pngBytes(t, solid(400, 200, red))),
	}
	items, err := p.Process(context.Background(), assets, cfg)
	require.NoError(t, err)

	assert.True(t, items[0].Clamped)
	assert.Equal(t, 500, items[0].Width)
	assert.Equal(t, 125, items[0].Height)
	// Physical size follows the final pixels at the resolved DPI.
	assert.Equal(t, model.RoundTenth(500/300.0*2.54), items[0].Physical.WidthCm)

	assert.False(t, items[1].Clamped)
	assert.Equal(t, 400, items[1].Width)
}

func TestProcess_FlattensAlphaForJPEG(t *testing.T) {
	p, _ := newProcessor()
	transparent := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	asset := inspect(t, "logo.png", pngBytes(t, transparent))
	require.Equal(t, model.ColorRGBA, asset.ColorModel)

	items, err := p.Process(context.Background(), []*model.ImageAsset{asset},
		batchConfig(model.SizeModeDirectDPI, 300, 0, 0, model.FormatJPEG))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(items[0].Data))
	require.NoError(t, err)
	r, g, b, _ := img.At(8, 8).RGBA()
	assert.Greater(t, r>>8, uint32(245))
	assert.Greater(t, g>>8, uint32(245))
	assert.Greater(t, b>>8, uint32(245))
}

func TestProcess_FilenameDerivation(t *testing.T) {
	asset := &model.ImageAsset{Filename: "photo.JPG"}
	assert.Equal(t, "site1_photo.png", OutputFilename("site1", asset, model.FormatPNG))
	assert.Equal(t, "site1_photo.jpg", OutputFilename("site1", asset, model.FormatJPEG))

	nested := &model.ImageAsset{Filename: `C:\shots\day1\IMG_0001.jpeg`}
	assert.Equal(t, "p_IMG_0001.png", OutputFilename("p", nested, model.FormatPNG))
}

func TestProcess_DuplicateNamesStayUnique(t *testing.T) {
	p, _ := newProcessor()
	assets := []*model.ImageAsset{
		inspect(t, "a.jpg", jpegBytes(t, solid(10, 10, red))),
		inspect(t, "a.png", pngBytes(t, solid(10, 10, red))),
		inspect(t, "dir/a.png", pngBytes(t, solid(10, 10, red))),
	}

	items, err := p.Process(context.Background(), assets, batchConfig(model.SizeModeDirectDPI, 300, 0, 0, model.FormatPNG))
	require.NoError(t, err)
	assert.Equal(t, "site1_a.png", items[0].Filename)
	assert.Equal(t, "site1_a_2.png", items[1].Filename)
	assert.Equal(t, "site1_a_3.png", items[2].Filename)
}

func TestProcess_InvalidInputBeforeAnyDecode(t *testing.T) {
	tests := []struct {
		name string
		cfg  model.BatchConfig
	}{
		{"width_cm zero", batchConfig(model.SizeModeWidthCm, 300, 0, 0, model.FormatPNG)},
		{"height_cm zero", batchConfig(model.SizeModeHeightCm, 300, 5, 0, model.FormatPNG)},
		{"dpi below range", batchConfig(model.SizeModeDirectDPI, 10, 0, 0, model.FormatPNG)},
		{"unknown mode", batchConfig(model.SizeMode("fit"), 300, 0, 0, model.FormatPNG)},
		{"unknown format", batchConfig(model.SizeModeDirectDPI, 300, 0, 0, model.OutputFormat("gif"))},
		{"target over pixel limit", batchConfig(model.SizeModeWidthHeightCmDPI, 1200, 1e5, 1e5, model.FormatPNG)},
		{"blank prefix", func() model.BatchConfig {
			c := batchConfig(model.SizeModeDirectDPI, 300, 0, 0, model.FormatPNG)
			c.Inputs.Prefix = "   "
			return c
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, decoder := newProcessor()
			assets := []*model.ImageAsset{inspect(t, "a.png", pngBytes(t, solid(10, 10, red)))}

			items, err := p.Process(context.Background(), assets, tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrorTypeInvalidInput), "got %v", err)
			assert.Nil(t, items)
			assert.Zero(t, decoder.calls)
		})
	}
}

func TestProcess_TrimsPrefix(t *testing.T) {
	p, _ := newProcessor()
	cfg := batchConfig(model.SizeModeDirectDPI, 300, 0, 0, model.FormatPNG)
	cfg.Inputs.Prefix = "  site9 "

	items, err := p.Process(context.Background(), []*model.ImageAsset{inspect(t, "x.png", pngBytes(t, solid(4, 4, red)))}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "site9_x.png", items[0].Filename)
}

func TestProcess_FirstFailureAbortsBatch(t *testing.T) {
	p, decoder := newProcessor()
	good := pngBytes(t, solid(40, 40, red))
	broken := inspect(t, "broken.png", good)
	broken.Data = good[:60]

	assets := []*model.ImageAsset{
		inspect(t, "ok.png", good),
		broken,
		inspect(t, "never.png", good),
	}

	items, err := p.Process(context.Background(), assets, batchConfig(model.SizeModeDirectDPI, 300, 0, 0, model.FormatPNG))
	require.Error(t, err)
	assert.Nil(t, items)
	assert.True(t, errors.Is(err, errors.ErrorTypeDecode), "type is preserved: %v", err)
	assert.Equal(t, 2, decoder.calls)
}

func TestProcess_StopsWhenCanceled(t *testing.T) {
	p, decoder := newProcessor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, []*model.ImageAsset{inspect(t, "a.png", pngBytes(t, solid(4, 4, red)))},
		batchConfig(model.SizeModeDirectDPI, 300, 0, 0, model.FormatPNG))
	assert.True(t, errors.Is(err, errors.ErrorTypeCancellation))
	assert.Zero(t, decoder.calls)
}

func TestProcess_EmptyBatch(t *testing.T) {
	p, _ := newProcessor()
	_, err := p.Process(context.Background(), nil, batchConfig(model.SizeModeDirectDPI, 300, 0, 0, model.FormatPNG))
	assert.True(t, errors.Is(err, errors.ErrorTypeInvalidInput))
}
