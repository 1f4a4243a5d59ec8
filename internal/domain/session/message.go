package session

import "time"

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks a message typed by the student.
	RoleUser Role = "user"
	// RoleAssistant marks a generated reply.
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a session.
type Message struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Role         Role      `json:"role"`
	Content      string    `json:"content"`
	RelatedNotes []string  `json:"related_notes"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUserMessage creates the student's side of a turn.
func NewUserMessage(id, sessionID, content string, now time.Time) Message {
	return Message{
		ID: id, SessionID: sessionID, Role: RoleUser, Content: content,
		RelatedNotes: []string{}, CreatedAt: now,
	}
}

// NewAssistantMessage creates the reply side of a turn.
func NewAssistantMessage(id, sessionID, content string, related []string, now time.Time) Message {
	if related == nil {
		related = []string{}
	}
	return Message{
		ID: id, SessionID: sessionID, Role: RoleAssistant, Content: content,
		RelatedNotes: related, CreatedAt: now,
	}
}
