package port

import (
	"context"
	"image"

	"github.com/histopathai/print-resize-service/internal/domain/model"
)

// ImageEncoder writes pixels in an output format with the resolution
// stamped as horizontal and vertical DPI.
type ImageEncoder interface {
	Encode(ctx context.Context, img image.Image, format model.OutputFormat, dpi int) ([]byte, error)
}
