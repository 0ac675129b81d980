package model

import (
	"strings"

	"github.com/histopathai/print-resize-service/internal/domain/vobj"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

// OutputFormat is the encoding of every file produced by a batch.
type OutputFormat string

const (
	FormatJPEG OutputFormat = "jpeg"
	FormatPNG  OutputFormat = "png"
)

// ParseOutputFormat accepts "jpeg", "jpg" and "png" in any case.
func ParseOutputFormat(token string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(token), ".")) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	}
	return "", errors.NewInvalidInputError("unsupported output format").
		WithContext("format", token)
}

// Extension is the canonical file extension without the leading dot.
func (f OutputFormat) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

func (f OutputFormat) ContentType() vobj.ContentType {
	if f == FormatJPEG {
		return vobj.ContentTypeImageJPEG
	}
	return vobj.ContentTypeImagePNG
}

// SupportsAlpha reports whether the format can carry transparency.
func (f OutputFormat) SupportsAlpha() bool {
	return f == FormatPNG
}

type Format map[string]bool

// SupportedSourceFormats are the upload extensions and decoder names a
// batch accepts.
var SupportedSourceFormats = Format{
	"jpeg": true,
	"jpg":  true,
	"png":  true,
	"bmp":  true,
	"tif":  true,
	"tiff": true,
	"webp": true,
}

func (f Format) IsSupported(format string) bool {
	standardized := strings.ToLower(strings.TrimPrefix(format, "."))
	_, ok := f[standardized]
	return ok
}
