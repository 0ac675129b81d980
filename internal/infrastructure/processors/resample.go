package processors

import (
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
)

// DefaultSharpenSigma is the unsharp-mask radius used after resampling.
const DefaultSharpenSigma = 0.8

// Resampler regenerates pixel grids with a Lanczos filter.
type Resampler struct {
	logger       *slog.Logger
	sharpenSigma float64
}

func NewResampler(logger *slog.Logger, sharpenSigma float64) *Resampler {
	if sharpenSigma <= 0 {
		sharpenSigma = DefaultSharpenSigma
	}
	return &Resampler{
		logger:       logger,
		sharpenSigma: sharpenSigma,
	}
}

// Resample scales img to exactly width x height.
func (r *Resampler) Resample(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	r.logger.Debug("Resampling image",
		"from_width", b.Dx(),
		"from_height", b.Dy(),
		"to_width", width,
		"to_height", height)
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Sharpen applies a single unsharp-mask pass.
func (r *Resampler) Sharpen(img image.Image) image.Image {
	return imaging.Sharpen(img, r.sharpenSigma)
}

// ClampWidth downscales img proportionally so its width does not exceed
// maxWidth. It never upscales and reports whether pixels changed.
func (r *Resampler) ClampWidth(img image.Image, maxWidth int) (image.Image, bool) {
	b := img.Bounds()
	width, height, clamped := ClampedSize(b.Dx(), b.Dy(), maxWidth)
	if !clamped {
		return img, false
	}
	r.logger.Debug("Clamping image width",
		"from_width", b.Dx(),
		"from_height", b.Dy(),
		"max_width", maxWidth,
		"to_height", height)
	return imaging.Resize(img, width, height, imaging.Lanczos), true
}

// ClampedSize returns the dimensions after the max-width clamp.
func ClampedSize(width, height, maxWidth int) (int, int, bool) {
	if maxWidth <= 0 || width <= maxWidth {
		return width, height, false
	}
	newHeight := int(math.Round(float64(height) * float64(maxWidth) / float64(width)))
	if newHeight < 1 {
		newHeight = 1
	}
	return maxWidth, newHeight, true
}

// ShouldSharpen reports whether a resample from the original to the target
// size gets the sharpening pass: exactly when the larger target dimension is
// smaller than the larger original dimension.
func ShouldSharpen(originalW, originalH, targetW, targetH int) bool {
	return max(originalW, originalH) > max(targetW, targetH)
}

// Flatten composites img onto an opaque white canvas, dropping alpha and
// palette indirection.
func Flatten(img image.Image) image.Image {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}
