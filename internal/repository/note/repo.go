package note

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/studybot/internal/domain"
	domnote "github.com/kailas-cloud/studybot/internal/domain/note"
)

// store is the consumer interface for notes (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key, member string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Repo implements usecase/note.Repository.
type Repo struct {
	store  store
	prefix string
}

// New creates a note repository. Keys are namespaced by prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Save writes the note hash and indexes it by creation time.
func (r *Repo) Save(ctx context.Context, n domnote.Note) error {
	key := r.noteKey(n.ID())
	if err := r.store.HSet(ctx, key, noteToHash(n)); err != nil {
		return fmt.Errorf("hset note %s: %w", n.ID(), err)
	}

	score := float64(n.CreatedAt().UnixMilli())
	if err := r.store.ZAdd(ctx, r.allKey(), score, n.ID()); err != nil {
		return errors.Join(fmt.Errorf("index note %s: %w", n.ID(), err), r.store.Del(ctx, key))
	}
	if err := r.store.ZAdd(ctx, r.uploaderKey(n.UploadedBy()), score, n.ID()); err != nil {
		return errors.Join(
			fmt.Errorf("index note %s by uploader: %w", n.ID(), err),
			r.store.ZRem(ctx, r.allKey(), n.ID()),
			r.store.Del(ctx, key),
		)
	}
	return nil
}

// Get returns a note by ID.
func (r *Repo) Get(ctx context.Context, id string) (domnote.Note, error) {
	m, err := r.store.HGetAll(ctx, r.noteKey(id))
	if err != nil {
		return domnote.Note{}, fmt.Errorf("hgetall note %s: %w", id, err)
	}
	if len(m) == 0 {
		return domnote.Note{}, domain.ErrNoteNotFound
	}
	return noteFromHash(m)
}

// Delete removes the note and its index entries.
func (r *Repo) Delete(ctx context.Context, n domnote.Note) error {
	if err := r.store.Del(ctx, r.noteKey(n.ID())); err != nil {
		return fmt.Errorf("del note %s: %w", n.ID(), err)
	}
	if err := r.store.ZRem(ctx, r.allKey(), n.ID()); err != nil {
		return fmt.Errorf("unindex note %s: %w", n.ID(), err)
	}
	if err := r.store.ZRem(ctx, r.uploaderKey(n.UploadedBy()), n.ID()); err != nil {
		return fmt.Errorf("unindex note %s by uploader: %w", n.ID(), err)
	}
	return nil
}

// List returns up to limit notes, newest first. limit <= 0 means all.
func (r *Repo) List(ctx context.Context, limit int) ([]domnote.Note, error) {
	return r.listIndex(ctx, r.allKey(), limit)
}

// ListByUploader returns every note uploaded by the user, newest first.
func (r *Repo) ListByUploader(ctx context.Context, uploader string) ([]domnote.Note, error) {
	return r.listIndex(ctx, r.uploaderKey(uploader), 0)
}

func (r *Repo) listIndex(ctx context.Context, index string, limit int) ([]domnote.Note, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := r.store.ZRevRange(ctx, index, 0, stop)
	if err != nil {
		return nil, fmt.Errorf("zrevrange %s: %w", index, err)
	}
	if len(ids) == 0 {
		return []domnote.Note{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.noteKey(id)
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi notes: %w", err)
	}

	notes := make([]domnote.Note, 0, len(results))
	for i, m := range results {
		// index entry without a hash: deleted concurrently
		if len(m) == 0 {
			continue
		}
		n, err := noteFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse note %s: %w", ids[i], err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func (r *Repo) noteKey(id string) string { return r.prefix + "note:" + id }

func (r *Repo) allKey() string { return r.prefix + "notes" }

func (r *Repo) uploaderKey(uploader string) string { return r.prefix + "notes:by:" + uploader }
