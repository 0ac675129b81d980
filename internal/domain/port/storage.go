package port

import (
	"context"
	"io"
)

// Object is a finished artifact addressed by a slash-separated key.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
}

// InputStorage reads source images referenced by a batch request.
type InputStorage interface {
	GetReader(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// OutputStorage persists batch artifacts.
type OutputStorage interface {
	PutObject(ctx context.Context, obj Object) error
	// PutObjects writes every object; the first failure is returned.
	PutObjects(ctx context.Context, objs []Object) error
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)
}
