package processors

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"time"

	"github.com/histopathai/print-resize-service/pkg/errors"
)

// ZipEntry is one file placed in an archive.
type ZipEntry struct {
	Name string
	Data []byte
}

// ZipEntryIndex describes where an entry lives inside an archive.
type ZipEntryIndex struct {
	Name             string `json:"name"`
	Offset           int64  `json:"offset"`
	CompressedSize   int64  `json:"compressed_size"`
	UncompressedSize int64  `json:"uncompressed_size"`
	Method           uint16 `json:"method"`
}

type ZipIndexMap struct {
	Version int             `json:"version"`
	Entries []ZipEntryIndex `json:"entries"`
}

// Names returns the entry names in archive order.
func (m *ZipIndexMap) Names() []string {
	names := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		names = append(names, e.Name)
	}
	return names
}

// ZipProcessor builds and inspects in-memory archives. Entries are stored
// without compression; image payloads are already compressed or raw by
// choice.
type ZipProcessor struct {
	now func() time.Time
}

func NewZipProcessor() *ZipProcessor {
	return &ZipProcessor{now: time.Now}
}

func (z *ZipProcessor) Build(ctx context.Context, entries []ZipEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	modified := z.now()

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.ErrorTypeCancellation, "archive build canceled")
		}
		if entry.Name == "" {
			return nil, errors.NewValidationError("archive entry name is empty")
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, errors.NewValidationError("duplicate archive entry").
				WithContext("file", entry.Name)
		}
		seen[entry.Name] = struct{}{}

		fw, err := w.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Store,
			Modified: modified,
		})
		if err != nil {
			return nil, errors.WrapProcessingError(err, "failed to add archive entry").
				WithContext("file", entry.Name)
		}
		if _, err := fw.Write(entry.Data); err != nil {
			return nil, errors.WrapProcessingError(err, "failed to write archive entry").
				WithContext("file", entry.Name)
		}
	}

	if err := w.Close(); err != nil {
		return nil, errors.WrapProcessingError(err, "failed to finalize archive")
	}
	return buf.Bytes(), nil
}

// BuildIndexMap lists the entries of an archive without extracting them.
func (z *ZipProcessor) BuildIndexMap(ctx context.Context, data []byte) (*ZipIndexMap, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.WrapValidationError(err, "failed to open zip")
	}

	index := &ZipIndexMap{Version: 1}
	for _, f := range r.File {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		offset, err := f.DataOffset()
		if err != nil {
			return nil, errors.WrapProcessingError(err, "failed to get data offset").
				WithContext("file", f.Name)
		}
		index.Entries = append(index.Entries, ZipEntryIndex{
			Name:             f.Name,
			Offset:           offset,
			CompressedSize:   int64(f.CompressedSize64),
			UncompressedSize: int64(f.UncompressedSize64),
			Method:           f.Method,
		})
	}
	return index, nil
}

// ExtractDesiredFile returns the contents of one named entry.
func (z *ZipProcessor) ExtractDesiredFile(data []byte, targetFile string) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.WrapValidationError(err, "failed to open zip")
	}

	var file *zip.File
	for _, f := range r.File {
		if f.Name == targetFile {
			file = f
			break
		}
	}
	if file == nil {
		return nil, errors.NewNotFoundError("file in zip").
			WithContext("file", targetFile)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, errors.WrapProcessingError(err, "failed to open target file in zip").
			WithContext("file", targetFile)
	}
	defer rc.Close()

	out, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.WrapProcessingError(err, "failed to read file content").
			WithContext("file", targetFile)
	}
	return out, nil
}
