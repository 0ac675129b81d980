package storage

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/histopathai/print-resize-service/internal/domain/port"
	"github.com/histopathai/print-resize-service/internal/domain/vobj"
	"github.com/histopathai/print-resize-service/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const defaultMaxParallel = 8

type BaseStorage struct {
	logger      *slog.Logger
	maxParallel int
}

func NewBaseStorage(logger *slog.Logger, maxParallel int) *BaseStorage {
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	return &BaseStorage{
		logger:      logger,
		maxParallel: maxParallel,
	}
}

// putAll fans uploads out over a bounded errgroup. The first failure
// cancels the remaining uploads and is returned.
func (bs *BaseStorage) putAll(ctx context.Context, objs []port.Object, put func(context.Context, port.Object) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bs.maxParallel)

	for _, obj := range objs {
		g.Go(func() error {
			if err := put(ctx, obj); err != nil {
				bs.logger.Error("Failed to store object",
					"key", obj.Key,
					"error", err)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return errors.WrapStorageError(err, "failed to store objects").
			WithContext("count", len(objs))
	}

	bs.logger.Debug("Stored objects", "count", len(objs))
	return nil
}

// cleanKey normalizes an object key and rejects keys that would escape the
// storage root.
func cleanKey(key string) (string, error) {
	slashed := strings.ReplaceAll(key, "\\", "/")
	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return "", errors.NewValidationError("object key escapes the storage root").
				WithContext("key", key)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+slashed), "/")
	if cleaned == "" {
		return "", errors.NewValidationError("object key is empty").
			WithContext("key", key)
	}
	return cleaned, nil
}

func contentTypeOf(obj port.Object) string {
	if obj.ContentType != "" {
		return obj.ContentType
	}
	return detectContentType(obj.Key).String()
}

func detectContentType(key string) vobj.ContentType {
	contentTypes := map[string]vobj.ContentType{
		".jpg":  vobj.ContentTypeImageJPEG,
		".jpeg": vobj.ContentTypeImageJPEG,
		".png":  vobj.ContentTypeImagePNG,
		".tif":  vobj.ContentTypeImageTIFF,
		".tiff": vobj.ContentTypeImageTIFF,
		".zip":  vobj.ContentTypeApplicationZip,
		".json": vobj.ContentTypeApplicationJSON,
		".xlsx": vobj.ContentTypeApplicationXLSX,
		".txt":  vobj.ContentTypeTextPlain,
	}

	if contentType, ok := contentTypes[strings.ToLower(path.Ext(key))]; ok {
		return contentType
	}
	return vobj.ContentTypeApplicationOctetStream
}
