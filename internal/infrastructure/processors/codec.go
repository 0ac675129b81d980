package processors

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"

	"github.com/gen2brain/jpegli"
	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

// JPEGQuality is fixed for every JPEG output.
const JPEGQuality = 90

// NativeEncoder encodes in process and stamps the resolution into the
// container metadata. JPEG goes through jpegli with 4:4:4 chroma.
type NativeEncoder struct {
	logger *slog.Logger
}

func NewNativeEncoder(logger *slog.Logger) *NativeEncoder {
	return &NativeEncoder{logger: logger}
}

func (e *NativeEncoder) Encode(ctx context.Context, img image.Image, format model.OutputFormat, dpi int) ([]byte, error) {
	if dpi <= 0 {
		return nil, errors.NewEncodeError("dpi must be positive").
			WithContext("dpi", dpi)
	}

	var buf bytes.Buffer
	switch format {
	case model.FormatJPEG:
		opts := &jpegli.EncodingOptions{
			Quality:           JPEGQuality,
			ChromaSubsampling: image.YCbCrSubsampleRatio444,
		}
		if err := jpegli.Encode(&buf, img, opts); err != nil {
			return nil, errors.WrapEncodeError(err, "failed to encode JPEG")
		}
	case model.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.NoCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, errors.WrapEncodeError(err, "failed to encode PNG")
		}
	default:
		return nil, errors.NewEncodeError("unsupported output format").
			WithContext("format", format)
	}

	data, err := StampDPI(buf.Bytes(), format, dpi)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Encoded image",
		"format", format,
		"dpi", dpi,
		"bytes", len(data))

	return data, nil
}

// StampDPI writes dpi into the resolution metadata of an encoded stream.
func StampDPI(data []byte, format model.OutputFormat, dpi int) ([]byte, error) {
	switch format {
	case model.FormatJPEG:
		return SetJPEGDensity(data, dpi)
	case model.FormatPNG:
		return SetPNGPhys(data, dpi)
	}
	return nil, errors.NewEncodeError("unsupported output format").
		WithContext("format", format)
}

var _ port.ImageEncoder = (*NativeEncoder)(nil)
