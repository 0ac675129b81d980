package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	LedgerSheet = "Ledger"

	// Excel caps row heights at 409 points.
	maxRowHeightPoints = 409.0
	pointsPerPixel     = 0.75
	rowPaddingPoints   = 6.0

	defaultThumbnailSize = 240
)

var ledgerMetadataHeaders = []string{
	"No.",
	"Photo",
	"File",
	"Source",
	"Original (px)",
	"Output (px)",
	"DPI",
	"Print size (cm)",
}

// LedgerBuilder produces the photo ledger workbook: one row per processed
// image with a thumbnail, its metadata, and annotation cells restricted to
// configured drop-down lists.
type LedgerBuilder struct {
	logger        *slog.Logger
	fields        []model.LedgerField
	thumbnailSize int
}

func NewLedgerBuilder(logger *slog.Logger, fields []model.LedgerField, thumbnailSize int) *LedgerBuilder {
	if thumbnailSize <= 0 {
		thumbnailSize = defaultThumbnailSize
	}
	return &LedgerBuilder{
		logger:        logger,
		fields:        fields,
		thumbnailSize: thumbnailSize,
	}
}

func (l *LedgerBuilder) Build(ctx context.Context, batchID string, items []model.ProcessedItem) ([]byte, error) {
	if len(items) == 0 {
		return nil, errors.NewValidationError("nothing to put in the ledger")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", LedgerSheet); err != nil {
		return nil, errors.WrapProcessingError(err, "failed to name ledger sheet")
	}

	if err := l.writeHeader(f); err != nil {
		return nil, err
	}

	for i := range items {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.ErrorTypeCancellation, "ledger build canceled")
		}
		if err := l.writeRow(f, i+2, i+1, &items[i]); err != nil {
			return nil, errors.Wrap(err, errors.TypeOf(err), "failed to write ledger row").
				WithContext("file", items[i].Filename)
		}
	}

	if err := l.addDropLists(f, len(items)); err != nil {
		return nil, err
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Photo ledger",
		Subject: batchID,
	}); err != nil {
		return nil, errors.WrapProcessingError(err, "failed to set ledger properties")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.WrapProcessingError(err, "failed to write ledger workbook")
	}

	l.logger.Info("Ledger built",
		"batch_id", batchID,
		"rows", len(items),
		"annotation_columns", len(l.fields),
		"bytes", buf.Len())

	return buf.Bytes(), nil
}

func (l *LedgerBuilder) headers() []string {
	headers := append([]string(nil), ledgerMetadataHeaders...)
	for _, field := range l.fields {
		headers = append(headers, field.Name)
	}
	return headers
}

func (l *LedgerBuilder) writeHeader(f *excelize.File) error {
	headers := l.headers()
	if err := f.SetSheetRow(LedgerSheet, "A1", &headers); err != nil {
		return errors.WrapProcessingError(err, "failed to write ledger header")
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return errors.WrapProcessingError(err, "failed to create header style")
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(LedgerSheet, "A1", last+"1", style); err != nil {
		return errors.WrapProcessingError(err, "failed to style ledger header")
	}

	// Picture column is sized to the thumbnail; ~7px per character unit.
	if err := f.SetColWidth(LedgerSheet, "B", "B", float64(l.thumbnailSize)/7+2); err != nil {
		return errors.WrapProcessingError(err, "failed to size photo column")
	}
	if err := f.SetColWidth(LedgerSheet, "C", "D", 28); err != nil {
		return errors.WrapProcessingError(err, "failed to size name columns")
	}

	if err := f.SetPanes(LedgerSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return errors.WrapProcessingError(err, "failed to freeze ledger header")
	}
	return nil
}

func (l *LedgerBuilder) writeRow(f *excelize.File, row, number int, item *model.ProcessedItem) error {
	values := []interface{}{
		number,
		"",
		item.Filename,
		item.SourceFilename,
		fmt.Sprintf("%d x %d", item.OriginalWidth, item.OriginalHeight),
		fmt.Sprintf("%d x %d", item.Width, item.Height),
		item.Resolved.DPI,
		fmt.Sprintf("%.1f x %.1f", item.Physical.WidthCm, item.Physical.HeightCm),
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(LedgerSheet, cell, &values); err != nil {
		return errors.WrapProcessingError(err, "failed to write ledger values")
	}

	thumb, thumbHeight, err := l.thumbnail(item)
	if err != nil {
		return err
	}

	photoCell, _ := excelize.CoordinatesToCellName(2, row)
	if err := f.AddPictureFromBytes(LedgerSheet, photoCell, &excelize.Picture{
		Extension: ".jpg",
		File:      thumb,
		Format: &excelize.GraphicOptions{
			AltText:     item.Filename,
			OffsetX:     3,
			OffsetY:     3,
			Positioning: "oneCell",
		},
	}); err != nil {
		return errors.WrapProcessingError(err, "failed to embed thumbnail")
	}

	if err := f.SetRowHeight(LedgerSheet, row, RowHeightPoints(thumbHeight)); err != nil {
		return errors.WrapProcessingError(err, "failed to set row height")
	}
	return nil
}

// thumbnail fits the item into a square of thumbnailSize pixels without
// upscaling and returns the JPEG bytes and the thumbnail height.
func (l *LedgerBuilder) thumbnail(item *model.ProcessedItem) ([]byte, int, error) {
	img, err := imaging.Decode(bytes.NewReader(item.Data))
	if err != nil {
		return nil, 0, errors.WrapDecodeError(err, "failed to read processed image for ledger")
	}

	thumb := imaging.Fit(img, l.thumbnailSize, l.thumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, 0, errors.WrapEncodeError(err, "failed to encode ledger thumbnail")
	}
	return buf.Bytes(), thumb.Bounds().Dy(), nil
}

// RowHeightPoints converts a picture height in pixels into a row height
// that fits it.
func RowHeightPoints(pixelHeight int) float64 {
	h := float64(pixelHeight)*pointsPerPixel + rowPaddingPoints
	return math.Min(h, maxRowHeightPoints)
}

func (l *LedgerBuilder) addDropLists(f *excelize.File, rows int) error {
	for i, field := range l.fields {
		col, _ := excelize.ColumnNumberToName(len(ledgerMetadataHeaders) + i + 1)

		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, rows+1)
		if err := dv.SetDropList(field.Options); err != nil {
			return errors.WrapConfigurationError(err, "ledger options do not fit a drop-down list").
				WithContext("field", field.Name)
		}
		dv.SetError(excelize.DataValidationErrorStyleStop, field.Name, "Pick a value from the list.")

		if err := f.AddDataValidation(LedgerSheet, dv); err != nil {
			return errors.WrapProcessingError(err, "failed to add drop-down list").
				WithContext("field", field.Name)
		}
		if err := f.SetColWidth(LedgerSheet, col, col, 14); err != nil {
			return errors.WrapProcessingError(err, "failed to size annotation column")
		}
	}
	return nil
}
