package model

import (
	"fmt"
	"math"
)

// PhysicalSize is a printed size in centimetres, rounded to 0.1.
type PhysicalSize struct {
	WidthCm  float64 `json:"width_cm" firestore:"width_cm"`
	HeightCm float64 `json:"height_cm" firestore:"height_cm"`
}

// RoundTenth rounds to one decimal place, half away from zero.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// ProcessedItem is the result of running one ImageAsset through a batch.
type ProcessedItem struct {
	Filename       string
	SourceFilename string
	Format         OutputFormat
	Data           []byte

	OriginalWidth  int
	OriginalHeight int
	Resolved       ResolvedSize
	// Width and Height are the final pixel dimensions after the width clamp.
	Width     int
	Height    int
	Physical  PhysicalSize
	Sharpened bool
	Clamped   bool
}

// InfoText renders the one-line description shown next to each output.
func (p *ProcessedItem) InfoText() string {
	return fmt.Sprintf("%s: %dx%d px -> %dx%d px, %d dpi, %.1f x %.1f cm",
		p.Filename,
		p.OriginalWidth, p.OriginalHeight,
		p.Width, p.Height,
		p.Resolved.DPI,
		p.Physical.WidthCm, p.Physical.HeightCm,
	)
}

// Summary drops the encoded payload so the item can be persisted or
// returned in an API response.
func (p *ProcessedItem) Summary() ItemSummary {
	return ItemSummary{
		Filename:       p.Filename,
		SourceFilename: p.SourceFilename,
		OriginalWidth:  p.OriginalWidth,
		OriginalHeight: p.OriginalHeight,
		Width:          p.Width,
		Height:         p.Height,
		DPI:            p.Resolved.DPI,
		Resampled:      p.Resolved.Resampled,
		Sharpened:      p.Sharpened,
		Clamped:        p.Clamped,
		Physical:       p.Physical,
		Size:           int64(len(p.Data)),
		Info:           p.InfoText(),
	}
}

// ItemSummary is the metadata of a ProcessedItem without its bytes.
type ItemSummary struct {
	Filename       string       `json:"filename" firestore:"filename"`
	SourceFilename string       `json:"source_filename" firestore:"source_filename"`
	OriginalWidth  int          `json:"original_width" firestore:"original_width"`
	OriginalHeight int          `json:"original_height" firestore:"original_height"`
	Width          int          `json:"width" firestore:"width"`
	Height         int          `json:"height" firestore:"height"`
	DPI            int          `json:"dpi" firestore:"dpi"`
	Resampled      bool         `json:"resampled" firestore:"resampled"`
	Sharpened      bool         `json:"sharpened" firestore:"sharpened"`
	Clamped        bool         `json:"clamped" firestore:"clamped"`
	Physical       PhysicalSize `json:"physical" firestore:"physical"`
	Size           int64        `json:"size" firestore:"size"`
	Info           string       `json:"info" firestore:"info"`
}
