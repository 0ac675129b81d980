package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/pkg/errors"
	"github.com/histopathai/print-resize-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestLedgerBuilder_Build(t *testing.T) {
	fields, err := model.ParseLedgerFields("Stage=Before|During|After;Result=OK|NG|Pending")
	require.NoError(t, err)
	builder := NewLedgerBuilder(logger.Discard(), fields, 64)
	items, _ := processedItems(t, model.FormatJPEG)

	data, err := builder.Build(context.Background(), "batch-1", items)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(LedgerSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"No.", "Photo", "File", "Source", "Original (px)", "Output (px)", "DPI", "Print size (cm)", "Stage", "Result"}, rows[0])
	assert.Equal(t, "site1_one.jpg", rows[1][2])
	assert.Equal(t, "one.png", rows[1][3])
	assert.Equal(t, "120 x 80", rows[1][4])
	assert.Equal(t, "300", rows[1][6])
	assert.Equal(t, "1.0 x 0.7", rows[1][7])

	validations, err := f.GetDataValidations(LedgerSheet)
	require.NoError(t, err)
	require.Len(t, validations, 2)
	assert.Equal(t, "I2:I3", validations[0].Sqref)
	assert.Equal(t, "J2:J3", validations[1].Sqref)

	pics, err := f.GetPictures(LedgerSheet, "B2")
	require.NoError(t, err)
	assert.Len(t, pics, 1)

	// 120x80 fits 64x64 as roughly 64x43.
	height, err := f.GetRowHeight(LedgerSheet, 2)
	require.NoError(t, err)
	assert.InDelta(t, RowHeightPoints(43), height, 1.0)

	// 60x90 fits as roughly 43x64: taller row.
	taller, err := f.GetRowHeight(LedgerSheet, 3)
	require.NoError(t, err)
	assert.Greater(t, taller, height)
}

func TestRowHeightPoints(t *testing.T) {
	assert.Equal(t, 6.0, RowHeightPoints(0))
	assert.Equal(t, 81.0, RowHeightPoints(100))
	assert.Equal(t, 409.0, RowHeightPoints(5000))
}

func TestLedgerBuilder_Empty(t *testing.T) {
	builder := NewLedgerBuilder(logger.Discard(), nil, 0)
	_, err := builder.Build(context.Background(), "b", nil)
	assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
}
