package processors

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"log/slog"

	// Source codecs accepted for upload.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

type ImageInfoProcessor struct {
	logger    *slog.Logger
	maxPixels int64
}

// NewImageInfoProcessor creates a processor that rejects images with more
// than maxPixels pixels. A non-positive maxPixels disables the limit.
func NewImageInfoProcessor(logger *slog.Logger, maxPixels int64) *ImageInfoProcessor {
	return &ImageInfoProcessor{
		logger:    logger,
		maxPixels: maxPixels,
	}
}

// Inspect reads the header of an uploaded payload and returns the asset
// with its original dimensions and color model. Pixels are not decoded.
func (p *ImageInfoProcessor) Inspect(ctx context.Context, filename string, data []byte) (*model.ImageAsset, error) {
	if len(data) == 0 {
		return nil, errors.NewDecodeError("image payload is empty").
			WithContext("file", filename)
	}

	if ext := model.SourceExtension(filename); !model.SupportedSourceFormats.IsSupported(ext) {
		return nil, errors.NewDecodeError("unsupported file extension").
			WithContext("file", filename).
			WithContext("extension", ext)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		p.logger.Warn("Failed to read image header",
			"file", filename,
			"size", len(data),
			"error", err)
		return nil, errors.WrapDecodeError(err, "unsupported or corrupt image payload").
			WithContext("file", filename)
	}

	if !model.SupportedSourceFormats.IsSupported(format) {
		return nil, errors.NewDecodeError("unsupported image format").
			WithContext("file", filename).
			WithContext("format", format)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.NewDecodeError("invalid dimensions detected in image header").
			WithContext("file", filename).
			WithContext("width", cfg.Width).
			WithContext("height", cfg.Height)
	}

	if p.maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return nil, errors.NewDecodeError("image exceeds the maximum pixel count").
			WithContext("file", filename).
			WithContext("width", cfg.Width).
			WithContext("height", cfg.Height).
			WithContext("max_pixels", p.maxPixels)
	}

	asset := &model.ImageAsset{
		Filename:     filename,
		Width:        cfg.Width,
		Height:       cfg.Height,
		ColorModel:   classifyColorModel(cfg.ColorModel),
		SourceFormat: format,
		Data:         data,
	}

	p.logger.Debug("Inspected image",
		"file", filename,
		"format", format,
		"width", asset.Width,
		"height", asset.Height,
		"color_model", asset.ColorModel)

	return asset, nil
}

// Decode returns the full pixel data of an asset.
func (p *ImageInfoProcessor) Decode(ctx context.Context, asset *model.ImageAsset) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(asset.Data))
	if err != nil {
		return nil, errors.WrapDecodeError(err, "failed to decode image").
			WithContext("file", asset.Filename).
			WithContext("format", asset.SourceFormat)
	}
	return img, nil
}

func classifyColorModel(m color.Model) model.ColorModel {
	if _, ok := m.(color.Palette); ok {
		return model.ColorPaletted
	}

	switch m {
	case color.GrayModel, color.Gray16Model:
		return model.ColorGray
	case color.YCbCrModel:
		return model.ColorRGB
	case color.CMYKModel:
		return model.ColorCMYK
	default:
		return model.ColorRGBA
	}
}
