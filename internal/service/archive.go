package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/infrastructure/processors"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

const (
	ManifestFilename = "manifest.json"
	InfoFilename     = "info.txt"
)

// Manifest describes the contents of a batch archive.
type Manifest struct {
	Version int                  `json:"version"`
	BatchID string               `json:"batch_id"`
	Mode    model.SizeMode       `json:"mode"`
	Inputs  model.OperatorInputs `json:"inputs"`
	Items   []model.ItemSummary  `json:"items"`
}

// ArchivePackager bundles processed images into a single ZIP together with
// a JSON manifest and a plain-text info listing.
type ArchivePackager struct {
	logger *slog.Logger
	zip    *processors.ZipProcessor
}

func NewArchivePackager(logger *slog.Logger, zip *processors.ZipProcessor) *ArchivePackager {
	return &ArchivePackager{
		logger: logger,
		zip:    zip,
	}
}

func (a *ArchivePackager) Package(ctx context.Context, batchID string, cfg model.BatchConfig, items []model.ProcessedItem) ([]byte, error) {
	if len(items) == 0 {
		return nil, errors.NewValidationError("nothing to archive")
	}

	manifest := Manifest{
		Version: 1,
		BatchID: batchID,
		Mode:    cfg.Mode,
		Inputs:  cfg.Inputs,
		Items:   make([]model.ItemSummary, 0, len(items)),
	}

	entries := make([]processors.ZipEntry, 0, len(items)+2)
	var info strings.Builder
	for i := range items {
		entries = append(entries, processors.ZipEntry{
			Name: items[i].Filename,
			Data: items[i].Data,
		})
		manifest.Items = append(manifest.Items, items[i].Summary())
		info.WriteString(items[i].InfoText())
		info.WriteString("\n")
	}

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errors.WrapInternalError(err, "failed to encode manifest")
	}
	entries = append(entries,
		processors.ZipEntry{Name: ManifestFilename, Data: manifestData},
		processors.ZipEntry{Name: InfoFilename, Data: []byte(info.String())},
	)

	data, err := a.zip.Build(ctx, entries)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Archive built",
		"batch_id", batchID,
		"entries", len(entries),
		"bytes", len(data))

	return data, nil
}
