package note

import (
	"context"
	"io"

	domnote "github.com/kailas-cloud/studybot/internal/domain/note"
	"github.com/kailas-cloud/studybot/internal/objectstore"
)

// Repository defines the storage contract for note metadata.
type Repository interface {
	Save(ctx context.Context, n domnote.Note) error
	Get(ctx context.Context, id string) (domnote.Note, error)
	Delete(ctx context.Context, n domnote.Note) error
	List(ctx context.Context, limit int) ([]domnote.Note, error)
	ListByUploader(ctx context.Context, uploader string) ([]domnote.Note, error)
}

// ObjectStore holds the uploaded files.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, objectstore.Info, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}
