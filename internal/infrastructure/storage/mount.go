package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

// MountStorage implements storage interfaces for mount-based access (GCS FUSE, local filesystem)
type MountStorage struct {
	*BaseStorage
	basePath string
}

// NewMountStorage creates a new mount-based storage
// basePath is the mount point (e.g., "/input", "/gcs/bucket-name", "./test-data/output")
func NewMountStorage(basePath string, logger *slog.Logger) *MountStorage {
	return &MountStorage{
		BaseStorage: NewBaseStorage(logger, 0),
		basePath:    basePath,
	}
}

func (m *MountStorage) resolve(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.basePath, filepath.FromSlash(cleaned)), nil
}

// GetReader implements InputStorage.GetReader and OutputStorage.GetReader
func (m *MountStorage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := m.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("file").
				WithContext("path", key).
				WithContext("full_path", fullPath)
		}
		return nil, errors.WrapStorageError(err, "failed to open file").
			WithContext("path", key).
			WithContext("full_path", fullPath)
	}

	return file, nil
}

// Exists implements InputStorage.Exists
func (m *MountStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := m.resolve(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.WrapStorageError(err, "failed to check file existence").
		WithContext("path", key).
		WithContext("full_path", fullPath)
}

// PutObject writes the object through a temp file so readers never observe
// a partial artifact.
func (m *MountStorage) PutObject(ctx context.Context, obj port.Object) error {
	fullPath, err := m.resolve(obj.Key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.WrapStorageError(err, "failed to create directory").
			WithContext("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return errors.WrapStorageError(err, "failed to create temp file").
			WithContext("dir", dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(obj.Data); err != nil {
		tmp.Close()
		return errors.WrapStorageError(err, "failed to write file data").
			WithContext("key", obj.Key)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapStorageError(err, "failed to close temp file").
			WithContext("key", obj.Key)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return errors.WrapStorageError(err, "failed to move file into place").
			WithContext("key", obj.Key).
			WithContext("full_path", fullPath)
	}

	m.logger.Debug("File written",
		"key", obj.Key,
		"full_path", fullPath,
		"bytes", len(obj.Data))

	return nil
}

func (m *MountStorage) PutObjects(ctx context.Context, objs []port.Object) error {
	return m.putAll(ctx, objs, m.PutObject)
}

// Verify interfaces are implemented
var _ port.InputStorage = (*MountStorage)(nil)
var _ port.OutputStorage = (*MountStorage)(nil)
