package note

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/studybot/internal/domain"
	"github.com/kailas-cloud/studybot/internal/domain/assistant"
)

// Field limits.
const (
	MaxTitleLen       = 200
	MaxSubjectLen     = 100
	MaxDescriptionLen = 2000
)

// AllSubjects is the subject filter value that selects every subject.
const AllSubjects = "all"

// PlainText is the only content type whose body is extracted into the note.
const PlainText = "text/plain"

// Meta is the user-entered part of a note.
type Meta struct {
	Title       string
	Subject     string
	Description string
}

// File describes the uploaded file backing a note.
type File struct {
	Key  string // object storage key
	URL  string
	Name string
	Type string
	Size int64
}

// Note is a study note uploaded by a staff member (immutable value object).
type Note struct {
	id          string
	meta        Meta
	file        File
	contentText string
	uploadedBy  string
	createdAt   time.Time
	updatedAt   time.Time
}

// New validates and creates a Note.
func New(id string, meta Meta, file File, contentText, uploadedBy string, now time.Time) (Note, error) {
	if id == "" {
		return Note{}, fmt.Errorf("note ID is required")
	}
	if uploadedBy == "" {
		return Note{}, domain.NewValidationError("uploaded_by", "is required")
	}

	meta.Title = strings.TrimSpace(meta.Title)
	meta.Subject = strings.TrimSpace(meta.Subject)
	meta.Description = strings.TrimSpace(meta.Description)

	if err := validateMeta(meta); err != nil {
		return Note{}, err
	}

	return Note{
		id:          id,
		meta:        meta,
		file:        file,
		contentText: contentText,
		uploadedBy:  uploadedBy,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct creates a Note without validation (storage hydration).
func Reconstruct(
	id string, meta Meta, file File, contentText, uploadedBy string,
	createdAt, updatedAt time.Time,
) Note {
	return Note{
		id: id, meta: meta, file: file, contentText: contentText, uploadedBy: uploadedBy,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

func validateMeta(m Meta) error {
	switch {
	case m.Title == "":
		return domain.NewValidationError("title", "is required")
	case utf8.RuneCountInString(m.Title) > MaxTitleLen:
		return domain.NewValidationError("title", fmt.Sprintf("is longer than %d characters", MaxTitleLen))
	case m.Subject == "":
		return domain.NewValidationError("subject", "is required")
	case utf8.RuneCountInString(m.Subject) > MaxSubjectLen:
		return domain.NewValidationError("subject", fmt.Sprintf("is longer than %d characters", MaxSubjectLen))
	case utf8.RuneCountInString(m.Description) > MaxDescriptionLen:
		return domain.NewValidationError("description",
			fmt.Sprintf("is longer than %d characters", MaxDescriptionLen))
	}
	return nil
}

// ID returns the note identifier.
func (n *Note) ID() string { return n.id }

// Title returns the note title.
func (n *Note) Title() string { return n.meta.Title }

// Subject returns the note subject.
func (n *Note) Subject() string { return n.meta.Subject }

// Description returns the note description.
func (n *Note) Description() string { return n.meta.Description }

// File returns the backing file info.
func (n *Note) File() File { return n.file }

// ContentText returns the extracted text, empty for non plain-text files.
func (n *Note) ContentText() string { return n.contentText }

// UploadedBy returns the uploader's user ID.
func (n *Note) UploadedBy() string { return n.uploadedBy }

// CreatedAt returns the creation time.
func (n *Note) CreatedAt() time.Time { return n.createdAt }

// UpdatedAt returns the last update time.
func (n *Note) UpdatedAt() time.Time { return n.updatedAt }

// Matches reports whether term occurs in the title, subject or description,
// ignoring case. An empty term matches every note.
func (n *Note) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(n.meta.Title), term) ||
		strings.Contains(strings.ToLower(n.meta.Subject), term) ||
		strings.Contains(strings.ToLower(n.meta.Description), term)
}

// InSubject reports whether the note belongs to subject exactly.
// An empty subject or AllSubjects matches every note.
func (n *Note) InSubject(subject string) bool {
	subject = strings.TrimSpace(subject)
	if subject == "" || subject == AllSubjects {
		return true
	}
	return n.meta.Subject == subject
}

// Subjects returns the distinct subjects of notes in order of first appearance.
func Subjects(notes []Note) []string {
	seen := make(map[string]struct{}, len(notes))
	out := make([]string, 0, len(notes))
	for i := range notes {
		s := notes[i].meta.Subject
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Document returns the note in the shape the assistant ranks.
func (n *Note) Document() assistant.Document {
	return assistant.Document{
		ID:          n.id,
		Title:       n.meta.Title,
		Subject:     n.meta.Subject,
		Body:        n.contentText,
		Description: n.meta.Description,
	}
}

// ObjectKey builds the storage key for an upload: <uploader>/<unix-ms>.<ext>.
func ObjectKey(uploader, fileName string, now time.Time) string {
	key := fmt.Sprintf("%s/%d", uploader, now.UnixMilli())
	if i := strings.LastIndex(fileName, "."); i >= 0 && i < len(fileName)-1 {
		key += fileName[i:]
	}
	return key
}

// IsPlainText reports whether a content type carries extractable text.
func IsPlainText(contentType string) bool {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mt), PlainText)
}
