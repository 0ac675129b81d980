package service

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/internal/infrastructure/processors"
	"github.com/histopathai/print-resize-service/internal/sizing"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

// ImageDecoder turns an inspected asset into pixels.
type ImageDecoder interface {
	Decode(ctx context.Context, asset *model.ImageAsset) (image.Image, error)
}

// BatchProcessor converts images one at a time, in input order. The first
// failing image aborts the whole batch.
type BatchProcessor struct {
	logger    *slog.Logger
	decoder   ImageDecoder
	resampler *processors.Resampler
	encoder   port.ImageEncoder
	maxPixels int64
}

// NewBatchProcessor builds a processor that refuses to produce images larger
// than maxPixels pixels. A non-positive maxPixels disables the limit.
func NewBatchProcessor(
	logger *slog.Logger,
	decoder ImageDecoder,
	resampler *processors.Resampler,
	encoder port.ImageEncoder,
	maxPixels int64,
) *BatchProcessor {
	return &BatchProcessor{
		logger:    logger,
		decoder:   decoder,
		resampler: resampler,
		encoder:   encoder,
		maxPixels: maxPixels,
	}
}

// PrepareConfig trims the prefix and validates the operator inputs against
// the selected mode and the pixel limit. No image is needed to do so.
func (p *BatchProcessor) PrepareConfig(cfg model.BatchConfig) (model.BatchConfig, error) {
	cfg.Inputs.Prefix = strings.TrimSpace(cfg.Inputs.Prefix)

	if !cfg.Mode.IsValid() {
		return cfg, errors.NewInvalidInputError("unknown size mode").
			WithContext("mode", cfg.Mode)
	}
	if err := cfg.Inputs.Validate(); err != nil {
		return cfg, err
	}
	if err := sizing.CheckMode(cfg.Mode, cfg.Inputs); err != nil {
		return cfg, err
	}
	if err := sizing.CheckPixelBudget(cfg.Mode, cfg.Inputs, p.maxPixels); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (p *BatchProcessor) Process(ctx context.Context, assets []*model.ImageAsset, cfg model.BatchConfig) ([]model.ProcessedItem, error) {
	cfg, err := p.PrepareConfig(cfg)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, errors.NewInvalidInputError("batch has no images")
	}

	p.logger.Info("Processing batch",
		"mode", cfg.Mode,
		"images", len(assets),
		"dpi", cfg.Inputs.DPI,
		"format", cfg.Inputs.Format,
		"max_width", cfg.Inputs.MaxOutputWidth)

	names := newFilenameSet()
	items := make([]model.ProcessedItem, 0, len(assets))

	for i, asset := range assets {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.ErrorTypeCancellation, "batch canceled").
				WithContext("processed", i).
				WithContext("total", len(assets))
		}

		item, err := p.processOne(ctx, asset, cfg)
		if err != nil {
			p.logger.Error("Image failed, aborting batch",
				"index", i,
				"file", asset.Filename,
				"error", err)
			return nil, errors.Wrap(err, errors.TypeOf(err), "failed to process image").
				WithContext("index", i).
				WithContext("file", asset.Filename)
		}

		item.Filename = names.claim(item.Filename)
		items = append(items, *item)

		p.logger.Info("Image processed", "index", i, "info", item.InfoText())
	}

	return items, nil
}

func (p *BatchProcessor) processOne(ctx context.Context, asset *model.ImageAsset, cfg model.BatchConfig) (*model.ProcessedItem, error) {
	in := cfg.Inputs

	resolved, err := sizing.Resolve(asset.Width, asset.Height, cfg.Mode, in)
	if err != nil {
		return nil, err
	}
	if p.maxPixels > 0 && int64(resolved.Width)*int64(resolved.Height) > p.maxPixels {
		return nil, errors.NewInvalidInputError("requested output size exceeds the pixel limit").
			WithContext("width", resolved.Width).
			WithContext("height", resolved.Height).
			WithContext("max_pixels", p.maxPixels)
	}

	img, err := p.decoder.Decode(ctx, asset)
	if err != nil {
		return nil, err
	}

	if !in.Format.SupportsAlpha() && asset.ColorModel.HasAlphaOrPalette() {
		img = processors.Flatten(img)
	}

	sharpened := false
	if resolved.Resampled {
		img = p.resampler.Resample(img, resolved.Width, resolved.Height)
		if processors.ShouldSharpen(asset.Width, asset.Height, resolved.Width, resolved.Height) {
			img = p.resampler.Sharpen(img)
			sharpened = true
		}
	}

	img, clamped := p.resampler.ClampWidth(img, in.MaxOutputWidth)
	bounds := img.Bounds()

	data, err := p.encoder.Encode(ctx, img, in.Format, resolved.DPI)
	if err != nil {
		return nil, err
	}

	return &model.ProcessedItem{
		Filename:       OutputFilename(in.Prefix, asset, in.Format),
		SourceFilename: asset.Filename,
		Format:         in.Format,
		Data:           data,
		OriginalWidth:  asset.Width,
		OriginalHeight: asset.Height,
		Resolved:       resolved,
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		Physical:       sizing.Physical(bounds.Dx(), bounds.Dy(), resolved.DPI),
		Sharpened:      sharpened,
		Clamped:        clamped,
	}, nil
}

// OutputFilename is "{prefix}_{basename}.{ext}"; the source extension is
// always replaced by the output format's.
func OutputFilename(prefix string, asset *model.ImageAsset, format model.OutputFormat) string {
	return fmt.Sprintf("%s_%s.%s", prefix, asset.BaseName(), format.Extension())
}

// filenameSet keeps output names unique within a batch: a repeated name
// gets "_2", "_3", ... before its extension.
type filenameSet map[string]struct{}

func newFilenameSet() filenameSet {
	return make(filenameSet)
}

func (s filenameSet) claim(name string) string {
	candidate := name
	if _, taken := s[candidate]; taken {
		dot := strings.LastIndex(name, ".")
		stem, ext := name, ""
		if dot > 0 {
			stem, ext = name[:dot], name[dot:]
		}
		for n := 2; ; n++ {
			candidate = fmt.Sprintf("%s_%d%s", stem, n, ext)
			if _, taken := s[candidate]; !taken {
				break
			}
		}
	}
	s[candidate] = struct{}{}
	return candidate
}
