package session

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultTitle is the title of a session before its first message.
const DefaultTitle = "New Chat"

// Session is a student's conversation with the assistant.
type Session struct {
	id        string
	studentID string
	title     string
	createdAt time.Time
	updatedAt time.Time
}

// New creates a session titled DefaultTitle.
func New(id, studentID string, now time.Time) (Session, error) {
	if id == "" {
		return Session{}, fmt.Errorf("session ID is required")
	}
	if studentID == "" {
		return Session{}, fmt.Errorf("student ID is required")
	}
	return Session{id: id, studentID: studentID, title: DefaultTitle, createdAt: now, updatedAt: now}, nil
}

// Reconstruct creates a Session without validation (storage hydration).
func Reconstruct(id, studentID, title string, createdAt, updatedAt time.Time) Session {
	return Session{id: id, studentID: studentID, title: title, createdAt: createdAt, updatedAt: updatedAt}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StudentID returns the owning student.
func (s *Session) StudentID() string { return s.studentID }

// Title returns the session title.
func (s *Session) Title() string { return s.title }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns the time of the last message.
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// OwnedBy reports whether the session belongs to the student.
func (s *Session) OwnedBy(studentID string) bool { return s.studentID == studentID }

// Touch returns a copy with updatedAt moved to now.
func (s *Session) Touch(now time.Time) Session {
	c := *s
	c.updatedAt = now
	return c
}

// Retitle returns a copy with a new title.
func (s *Session) Retitle(title string) Session {
	c := *s
	c.title = title
	return c
}

// TitleFromMessage derives a session title from the first line of a message,
// cut to maxRunes characters.
func TitleFromMessage(message string, maxRunes int) string {
	line, _, _ := strings.Cut(message, "\n")
	if maxRunes > 0 && utf8.RuneCountInString(line) > maxRunes {
		line = string([]rune(line)[:maxRunes])
	}
	return line
}
