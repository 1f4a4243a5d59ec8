package chat

import (
	"context"

	"github.com/kailas-cloud/studybot/internal/domain/assistant"
	domsession "github.com/kailas-cloud/studybot/internal/domain/session"
)

// CorpusLoader supplies the notes the assistant ranks.
type CorpusLoader interface {
	Corpus(ctx context.Context, limit int) ([]assistant.Document, error)
}

// SessionRepository defines the storage contract for chat sessions.
type SessionRepository interface {
	Save(ctx context.Context, s domsession.Session) error
	Get(ctx context.Context, id string) (domsession.Session, error)
	ListByStudent(ctx context.Context, studentID string) ([]domsession.Session, error)
	AppendMessages(ctx context.Context, sessionID string, msgs ...domsession.Message) error
	Messages(ctx context.Context, sessionID string) ([]domsession.Message, error)
}
