package note

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/studybot/internal/domain"
	"github.com/kailas-cloud/studybot/internal/domain/assistant"
	domnote "github.com/kailas-cloud/studybot/internal/domain/note"
	"github.com/kailas-cloud/studybot/internal/domain/user"
	"github.com/kailas-cloud/studybot/internal/logger"
	"github.com/kailas-cloud/studybot/internal/metrics"
	"github.com/kailas-cloud/studybot/internal/objectstore"
)

// Upload is a file received from a staff member.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Download is an opened note file. The caller closes Body.
type Download struct {
	Body        io.ReadCloser
	Name        string
	ContentType string
	Size        int64
}

// Service handles study note management.
type Service struct {
	repo     Repository
	objects  ObjectStore
	maxBytes int64
	now      func() time.Time
	newID    func() string
}

// New creates a note service. maxBytes caps the upload size.
func New(repo Repository, objects ObjectStore, maxBytes int64) *Service {
	return &Service{
		repo:     repo,
		objects:  objects,
		maxBytes: maxBytes,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Upload stores the file and creates the note. Only staff may upload.
func (s *Service) Upload(ctx context.Context, caller user.Principal, meta domnote.Meta, up Upload) (domnote.Note, error) {
	n, err := s.upload(ctx, caller, meta, up)
	if err != nil {
		metrics.NoteUploadsTotal.WithLabelValues("error").Inc()
		return domnote.Note{}, err
	}
	metrics.NoteUploadsTotal.WithLabelValues("ok").Inc()
	metrics.NoteUploadBytes.Observe(float64(n.File().Size))
	return n, nil
}

func (s *Service) upload(ctx context.Context, caller user.Principal, meta domnote.Meta, up Upload) (domnote.Note, error) {
	if !caller.IsStaff() {
		return domnote.Note{}, domain.ErrForbidden
	}
	if up.Name == "" || up.Body == nil {
		return domnote.Note{}, domain.NewValidationError("file", "is required")
	}

	body, err := io.ReadAll(io.LimitReader(up.Body, s.maxBytes+1))
	if err != nil {
		return domnote.Note{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(body)) > s.maxBytes {
		return domnote.Note{}, domain.ErrPayloadTooLarge
	}

	now := s.now().UTC()
	key := domnote.ObjectKey(caller.ID, up.Name, now)
	file := domnote.File{
		Key:  key,
		URL:  s.objects.URL(key),
		Name: up.Name,
		Type: up.ContentType,
		Size: int64(len(body)),
	}

	var content string
	if domnote.IsPlainText(up.ContentType) {
		content = string(body)
	}

	n, err := domnote.New(s.newID(), meta, file, content, caller.ID, now)
	if err != nil {
		return domnote.Note{}, err
	}

	if err := s.objects.Put(ctx, key, bytes.NewReader(body), file.Size, up.ContentType); err != nil {
		return domnote.Note{}, fmt.Errorf("store file: %w: %w", domain.ErrStorageUnavailable, err)
	}

	if err := s.repo.Save(ctx, n); err != nil {
		if rmErr := s.objects.Remove(ctx, key); rmErr != nil {
			logger.FromContext(ctx).Warn("Orphaned note file",
				zap.String("key", key),
				zap.Error(rmErr),
			)
		}
		return domnote.Note{}, fmt.Errorf("save note: %w", err)
	}

	return n, nil
}

// List returns every note, newest first.
func (s *Service) List(ctx context.Context) ([]domnote.Note, error) {
	notes, err := s.repo.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Search filters all notes by a case-insensitive term over title, subject and
// description, and by exact subject. Empty values do not filter.
func (s *Service) Search(ctx context.Context, term, subject string) ([]domnote.Note, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domnote.Note, 0, len(notes))
	for i := range notes {
		if notes[i].Matches(term) && notes[i].InSubject(subject) {
			out = append(out, notes[i])
		}
	}
	return out, nil
}

// Subjects returns the distinct subjects across all notes, newest note's subject first.
func (s *Service) Subjects(ctx context.Context) ([]string, error) {
	notes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return domnote.Subjects(notes), nil
}

// ListOwn returns the caller's uploads filtered by term. An empty term returns all of them.
func (s *Service) ListOwn(ctx context.Context, caller user.Principal, term string) ([]domnote.Note, error) {
	if !caller.IsStaff() {
		return nil, domain.ErrForbidden
	}
	notes, err := s.repo.ListByUploader(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return filter(notes, term), nil
}

// Get returns a note by ID.
func (s *Service) Get(ctx context.Context, id string) (domnote.Note, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return domnote.Note{}, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// Delete removes a note and its file. Only the uploader may delete.
func (s *Service) Delete(ctx context.Context, caller user.Principal, id string) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get note: %w", err)
	}
	if n.UploadedBy() != caller.ID {
		return domain.ErrForbidden
	}

	if err := s.objects.Remove(ctx, n.File().Key); err != nil {
		return fmt.Errorf("remove file: %w: %w", domain.ErrStorageUnavailable, err)
	}
	if err := s.repo.Delete(ctx, n); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// Download opens the note's file.
func (s *Service) Download(ctx context.Context, id string) (Download, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return Download{}, fmt.Errorf("get note: %w", err)
	}

	body, info, err := s.objects.Get(ctx, n.File().Key)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return Download{}, fmt.Errorf("note file: %w", domain.ErrNotFound)
		}
		return Download{}, fmt.Errorf("open file: %w: %w", domain.ErrStorageUnavailable, err)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = n.File().Type
	}
	return Download{Body: body, Name: n.File().Name, ContentType: contentType, Size: info.Size}, nil
}

// Corpus returns up to limit of the newest notes in the shape the assistant ranks.
func (s *Service) Corpus(ctx context.Context, limit int) ([]assistant.Document, error) {
	notes, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	docs := make([]assistant.Document, len(notes))
	for i := range notes {
		docs[i] = notes[i].Document()
	}
	return docs, nil
}

func filter(notes []domnote.Note, term string) []domnote.Note {
	out := make([]domnote.Note, 0, len(notes))
	for i := range notes {
		if notes[i].Matches(term) {
			out = append(out, notes[i])
		}
	}
	return out
}
