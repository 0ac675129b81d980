package processors

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

// VipsEncoder hands the final raster to the vips CLI, which can write
// JPEG without chroma subsampling. The intermediate is a lossless PNG.
type VipsEncoder struct {
	*BaseProcessor
	timeout time.Duration
}

func NewVipsEncoder(logger *slog.Logger, binary string, timeout time.Duration) *VipsEncoder {
	if binary == "" {
		binary = "vips"
	}
	encoder := &VipsEncoder{
		BaseProcessor: NewBaseProcessor(logger, binary),
		timeout:       timeout,
	}

	// Verify binary at initialization
	if err := encoder.VerifyBinary(); err != nil {
		logger.Error("vips binary verification failed", "error", err)
	}

	return encoder
}

func (e *VipsEncoder) Encode(ctx context.Context, img image.Image, format model.OutputFormat, dpi int) ([]byte, error) {
	if dpi <= 0 {
		return nil, errors.NewEncodeError("dpi must be positive").
			WithContext("dpi", dpi)
	}
	target, err := vipsTarget(format)
	if err != nil {
		return nil, err
	}

	ws, err := model.NewWorkspace("vips")
	if err != nil {
		return nil, errors.WrapStorageError(err, "failed to create vips workspace")
	}
	defer ws.Remove()

	inputPath := ws.Join("input.png")
	outputPath := ws.Join("output." + format.Extension())

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, errors.WrapEncodeError(err, "failed to write vips intermediate")
	}
	if err := os.WriteFile(inputPath, buf.Bytes(), 0644); err != nil {
		return nil, errors.WrapStorageError(err, "failed to write vips intermediate").
			WithContext("path", inputPath)
	}

	// vips expresses resolution in pixels per millimetre
	res := strconv.FormatFloat(float64(dpi)/25.4, 'f', 6, 64)
	args := []string{
		"copy",
		inputPath,
		outputPath + target,
		"--xres", res,
		"--yres", res,
	}

	if _, err := e.Execute(ctx, args, e.timeout); err != nil {
		return nil, errors.WrapEncodeError(err, "vips encode failed").
			WithContext("format", format).
			WithContext("dpi", dpi)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, errors.WrapEncodeError(err, "vips produced no output").
			WithContext("output_file", outputPath)
	}
	if len(data) == 0 {
		return nil, errors.NewEncodeError("vips output is empty").
			WithContext("output_file", outputPath)
	}

	// vips rounds its own density fields; rewrite them with the exact value.
	return StampDPI(data, format, dpi)
}

func vipsTarget(format model.OutputFormat) (string, error) {
	switch format {
	case model.FormatJPEG:
		return fmt.Sprintf("[Q=%d,subsample-mode=off]", JPEGQuality), nil
	case model.FormatPNG:
		return "[compression=0]", nil
	}
	return "", errors.NewEncodeError("unsupported output format").
		WithContext("format", format)
}

var _ port.ImageEncoder = (*VipsEncoder)(nil)
