package objectstore

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound signals a missing object.
var ErrObjectNotFound = errors.New("objectstore: object not found")

// Info describes a stored object.
type Info struct {
	Key         string
	Size        int64
	ContentType string
}

// Store keeps uploaded note files.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get opens the object; the caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, Info, error)
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	EnsureBucket(ctx context.Context) error
	URL(key string) string
}
