package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/histopathai/print-resize-service/internal/domain/events"
	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/infrastructure/processors"
	"github.com/histopathai/print-resize-service/internal/infrastructure/repository"
	"github.com/histopathai/print-resize-service/internal/infrastructure/storage"
	"github.com/histopathai/print-resize-service/pkg/logger"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func inspect(t *testing.T, filename string, data []byte) *model.ImageAsset {
	t.Helper()
	asset, err := processors.NewImageInfoProcessor(logger.Discard(), 0).Inspect(context.Background(), filename, data)
	require.NoError(t, err)
	return asset
}

func batchConfig(mode model.SizeMode, dpi int, widthCm, heightCm float64, format model.OutputFormat) model.BatchConfig {
	return model.BatchConfig{
		Mode: mode,
		Inputs: model.OperatorInputs{
			DPI:            dpi,
			WidthCm:        widthCm,
			HeightCm:       heightCm,
			MaxOutputWidth: 4000,
			Format:         format,
			Prefix:         "site1",
		},
	}
}

// countingDecoder records how many images were decoded.
type countingDecoder struct {
	inner ImageDecoder
	calls int
}

func (d *countingDecoder) Decode(ctx context.Context, asset *model.ImageAsset) (image.Image, error) {
	d.calls++
	return d.inner.Decode(ctx, asset)
}

func newProcessor() (*BatchProcessor, *countingDecoder) {
	log := logger.Discard()
	decoder := &countingDecoder{inner: processors.NewImageInfoProcessor(log, 0)}
	return NewBatchProcessor(
		log,
		decoder,
		processors.NewResampler(log, processors.DefaultSharpenSigma),
		processors.NewNativeEncoder(log),
		testMaxPixels,
	), decoder
}

const testMaxPixels = 150_000_000

type published struct {
	topic      string
	data       []byte
	attributes map[string]string
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, data []byte, attributes map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{topic: topic, data: data, attributes: attributes})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.messages {
		out = append(out, m.attributes["event_type"])
	}
	return out
}

type harness struct {
	orchestrator *BatchOrchestrator
	input        *storage.MountStorage
	output       *storage.MountStorage
	inputDir     string
	repo         *repository.MemoryBatchRepository
	publisher    *recordingPublisher
	zip          *processors.ZipProcessor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.Discard()

	inputDir := t.TempDir()
	h := &harness{
		input:     storage.NewMountStorage(inputDir, log),
		output:    storage.NewMountStorage(t.TempDir(), log),
		inputDir:  inputDir,
		repo:      repository.NewMemoryBatchRepository(),
		publisher: &recordingPublisher{},
		zip:       processors.NewZipProcessor(),
	}

	processor, _ := newProcessor()
	fields, err := model.ParseLedgerFields("Stage=Before|After;Result=OK|NG")
	require.NoError(t, err)

	h.orchestrator = NewBatchOrchestrator(
		log,
		OrchestratorConfig{
			ArchiveName:   "resized_images.zip",
			LedgerName:    "photo_ledger.xlsx",
			ResultTopicID: "results",
			MaxInputBytes: 1 << 20,
		},
		processors.NewImageInfoProcessor(log, 0),
		processor,
		NewArchivePackager(log, h.zip),
		NewLedgerBuilder(log, fields, 64),
		NewOutputValidator(log, h.zip),
		h.input,
		h.output,
		h.repo,
		h.publisher,
		events.NewJSONEventSerializer(),
	)
	return h
}

func bytesReader(s string) *bytes.Reader {
	return bytes.NewReader([]byte(s))
}
