package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/infrastructure/processors"
	"github.com/histopathai/print-resize-service/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// OutputValidator checks finished artifacts before anything is stored.
type OutputValidator struct {
	logger *slog.Logger
	zip    *processors.ZipProcessor
}

func NewOutputValidator(logger *slog.Logger, zip *processors.ZipProcessor) *OutputValidator {
	return &OutputValidator{
		logger: logger,
		zip:    zip,
	}
}

// Validate confirms that every item carries its DPI metadata, that the
// archive holds every item plus the manifest and info listing, and that the
// ledger has one row per item.
func (v *OutputValidator) Validate(ctx context.Context, items []model.ProcessedItem, archive, ledger []byte) error {
	for i := range items {
		if err := ValidateItemDPI(&items[i]); err != nil {
			return err
		}
	}

	if err := v.validateArchive(ctx, items, archive); err != nil {
		return err
	}
	if err := v.validateLedger(items, ledger); err != nil {
		return err
	}

	v.logger.Info("All outputs validated successfully", "items", len(items))
	return nil
}

// ValidateItemDPI reads the resolution back out of the encoded bytes.
func ValidateItemDPI(item *model.ProcessedItem) error {
	var got int
	var ok bool
	switch item.Format {
	case model.FormatJPEG:
		got, _, ok = processors.JPEGDensity(item.Data)
	case model.FormatPNG:
		got, ok = processors.PNGPhysDPI(item.Data)
	}

	if !ok {
		return errors.NewProcessingError("output has no resolution metadata").
			WithContext("file", item.Filename)
	}
	if got != item.Resolved.DPI {
		return errors.NewProcessingError("output resolution metadata does not match").
			WithContext("file", item.Filename).
			WithContext("want_dpi", item.Resolved.DPI).
			WithContext("got_dpi", got)
	}
	return nil
}

func (v *OutputValidator) validateArchive(ctx context.Context, items []model.ProcessedItem, archive []byte) error {
	index, err := v.zip.BuildIndexMap(ctx, archive)
	if err != nil {
		return errors.WrapProcessingError(err, "archive is unreadable")
	}

	present := make(map[string]int64, len(index.Entries))
	for _, e := range index.Entries {
		present[e.Name] = e.UncompressedSize
	}

	required := []string{ManifestFilename, InfoFilename}
	for i := range items {
		required = append(required, items[i].Filename)
		if size, ok := present[items[i].Filename]; ok && size != int64(len(items[i].Data)) {
			return errors.NewProcessingError(fmt.Sprintf("archive entry has the wrong size: %s", items[i].Filename)).
				WithContext("file", items[i].Filename).
				WithContext("want", len(items[i].Data)).
				WithContext("got", size)
		}
	}

	for _, name := range required {
		if _, ok := present[name]; !ok {
			return errors.NewProcessingError(fmt.Sprintf("required archive entry not found: %s", name)).
				WithContext("file", name)
		}
	}
	return nil
}

func (v *OutputValidator) validateLedger(items []model.ProcessedItem, ledger []byte) error {
	f, err := excelize.OpenReader(bytes.NewReader(ledger))
	if err != nil {
		return errors.WrapProcessingError(err, "ledger is unreadable")
	}
	defer f.Close()

	rows, err := f.GetRows(LedgerSheet)
	if err != nil {
		return errors.WrapProcessingError(err, "ledger sheet is missing").
			WithContext("sheet", LedgerSheet)
	}
	if len(rows) != len(items)+1 {
		return errors.NewProcessingError("ledger row count does not match the batch").
			WithContext("want", len(items)+1).
			WithContext("got", len(rows))
	}
	for i := range items {
		// Column C holds the output filename.
		if len(rows[i+1]) < 3 || rows[i+1][2] != items[i].Filename {
			return errors.NewProcessingError("ledger row does not match its item").
				WithContext("row", i+2).
				WithContext("file", items[i].Filename)
		}
	}
	return nil
}
