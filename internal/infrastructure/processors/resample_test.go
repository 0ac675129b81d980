package processors

import (
	"image"
	"image/color"
	"testing"

	"github.com/histopathai/print-resize-service/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestNewResampler_DefaultSigma(t *testing.T) {
	assert.Equal(t, DefaultSharpenSigma, NewResampler(logger.Discard(), 0).sharpenSigma)
	assert.Equal(t, DefaultSharpenSigma, NewResampler(logger.Discard(), -1).sharpenSigma)
	assert.Equal(t, 1.5, NewResampler(logger.Discard(), 1.5).sharpenSigma)
}

func TestShouldSharpen(t *testing.T) {
	tests := []struct {
		name                       string
		origW, origH, targW, targH int
		want                       bool
	}{
		{"pure downscale", 2000, 1000, 1000, 500, true},
		{"upscale", 500, 500, 1000, 1000, false},
		{"same size", 1000, 1000, 1000, 1000, false},
		{"portrait downscale", 1000, 3000, 800, 2400, true},
		{"aspect change with larger long side", 1000, 1000, 1200, 300, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldSharpen(tt.origW, tt.origH, tt.targW, tt.targH))
		})
	}
}

func TestClampedSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
		wantClamped  bool
	}{
		{"already compliant", 800, 600, 1000, 800, 600, false},
		{"exactly at limit", 1000, 600, 1000, 1000, 600, false},
		{"downscale", 4000, 3000, 1000, 1000, 750, true},
		{"rounds height", 3000, 1001, 1000, 1000, 334, true},
		{"no limit", 9000, 10, 0, 9000, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, clamped := ClampedSize(tt.w, tt.h, tt.max)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
			assert.Equal(t, tt.wantClamped, clamped)
		})
	}
}

func TestClampWidth_Idempotent(t *testing.T) {
	r := NewResampler(logger.Discard(), 0)

	once, clamped := r.ClampWidth(gradient(1200, 300), 600)
	assert.True(t, clamped)
	assert.Equal(t, image.Rect(0, 0, 600, 150), once.Bounds())

	twice, clamped := r.ClampWidth(once, 600)
	assert.False(t, clamped)
	assert.Equal(t, once.Bounds(), twice.Bounds())
}

func TestResample(t *testing.T) {
	r := NewResampler(logger.Discard(), DefaultSharpenSigma)
	src := gradient(100, 50)

	same := r.Resample(src, 100, 50)
	assert.Same(t, src, same)

	out := r.Resample(src, 30, 70)
	assert.Equal(t, image.Rect(0, 0, 30, 70), out.Bounds())

	sharp := r.Sharpen(out)
	assert.Equal(t, out.Bounds(), sharp.Bounds())
}

func TestFlatten(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.NRGBA{A: 0})
	src.Set(1, 0, color.NRGBA{R: 255, A: 255})

	out := Flatten(src)
	r, g, b, a := out.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff, 0xffff}, []uint32{r, g, b, a})

	r, g, b, a = out.At(1, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0, 0xffff}, []uint32{r, g, b, a})
}
