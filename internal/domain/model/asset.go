package model

import (
	"path"
	"strings"
)

// ColorModel is the pixel representation of a decoded source image.
type ColorModel string

const (
	ColorGray     ColorModel = "gray"
	ColorRGB      ColorModel = "rgb"
	ColorRGBA     ColorModel = "rgba"
	ColorPaletted ColorModel = "paletted"
	ColorCMYK     ColorModel = "cmyk"
)

// HasAlphaOrPalette reports whether the model needs flattening before it
// can be written to a format without alpha support.
func (c ColorModel) HasAlphaOrPalette() bool {
	return c == ColorRGBA || c == ColorPaletted
}

// ImageAsset is one uploaded image. It is read once and never mutated.
type ImageAsset struct {
	Filename     string
	Width        int
	Height       int
	ColorModel   ColorModel
	SourceFormat string
	Data         []byte
}

// BaseName returns the filename without directory and extension.
// Windows-style separators from browser uploads are honoured.
func (a *ImageAsset) BaseName() string {
	base := path.Base(strings.ReplaceAll(a.Filename, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Extension returns the lowercased source extension including the dot.
func (a *ImageAsset) Extension() string {
	return SourceExtension(a.Filename)
}

// SourceExtension is the lowercased extension of a slash or backslash
// separated filename, including the dot.
func SourceExtension(filename string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(filename, `\`, "/")))
}
