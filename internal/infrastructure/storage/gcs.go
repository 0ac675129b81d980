package storage

import (
	"context"
	goerrors "errors"
	"io"
	"log/slog"
	"path"

	"cloud.google.com/go/storage"
	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

type GCSStorage struct {
	*BaseStorage
	gcsClient  *storage.Client
	bucketName string
	prefix     string
}

// NewGCSStorage stores objects in bucketName under an optional key prefix.
func NewGCSStorage(logger *slog.Logger, gcsClient *storage.Client, bucketName, prefix string, maxParallel int) *GCSStorage {
	return &GCSStorage{
		BaseStorage: NewBaseStorage(logger, maxParallel),
		gcsClient:   gcsClient,
		bucketName:  bucketName,
		prefix:      prefix,
	}
}

func (s *GCSStorage) object(key string) (*storage.ObjectHandle, string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, "", err
	}
	if s.prefix != "" {
		cleaned = path.Join(s.prefix, cleaned)
	}
	return s.gcsClient.Bucket(s.bucketName).Object(cleaned), cleaned, nil
}

func (s *GCSStorage) PutObject(ctx context.Context, obj port.Object) error {
	handle, objectKey, err := s.object(obj.Key)
	if err != nil {
		return err
	}

	writer := handle.NewWriter(ctx)
	writer.ChunkSize = 16 * 1024 * 1024 // 16MB chunks
	writer.ContentType = contentTypeOf(obj)

	if _, err := writer.Write(obj.Data); err != nil {
		writer.Close()
		return errors.WrapStorageError(err, "failed to upload object content").
			WithContext("bucket", s.bucketName).
			WithContext("dest_key", objectKey)
	}

	if err := writer.Close(); err != nil {
		return errors.WrapStorageError(err, "failed to close writer").
			WithContext("bucket", s.bucketName).
			WithContext("dest_key", objectKey)
	}

	s.logger.Debug("Uploaded object",
		"bucket", s.bucketName,
		"key", objectKey,
		"bytes", len(obj.Data))

	return nil
}

func (s *GCSStorage) PutObjects(ctx context.Context, objs []port.Object) error {
	s.logger.Info("Starting parallel GCS upload",
		"bucket", s.bucketName,
		"count", len(objs),
		"max_parallel", s.maxParallel)

	return s.putAll(ctx, objs, s.PutObject)
}

func (s *GCSStorage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	handle, objectKey, err := s.object(key)
	if err != nil {
		return nil, err
	}

	reader, err := handle.NewReader(ctx)
	if err != nil {
		if goerrors.Is(err, storage.ErrObjectNotExist) {
			return nil, errors.NewNotFoundError("object").
				WithContext("bucket", s.bucketName).
				WithContext("key", objectKey)
		}
		return nil, errors.WrapStorageError(err, "failed to open object").
			WithContext("bucket", s.bucketName).
			WithContext("key", objectKey)
	}
	return reader, nil
}

func (s *GCSStorage) Exists(ctx context.Context, key string) (bool, error) {
	handle, objectKey, err := s.object(key)
	if err != nil {
		return false, err
	}

	if _, err := handle.Attrs(ctx); err != nil {
		if goerrors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, errors.WrapStorageError(err, "failed to read object attributes").
			WithContext("bucket", s.bucketName).
			WithContext("key", objectKey)
	}
	return true, nil
}

var _ port.InputStorage = (*GCSStorage)(nil)
var _ port.OutputStorage = (*GCSStorage)(nil)
