package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/studybot/internal/domain"
	"github.com/kailas-cloud/studybot/internal/domain/assistant"
	domsession "github.com/kailas-cloud/studybot/internal/domain/session"
	"github.com/kailas-cloud/studybot/internal/domain/user"
	"github.com/kailas-cloud/studybot/internal/logger"
	"github.com/kailas-cloud/studybot/internal/metrics"
)

// Exchange is one stored question and its reply.
type Exchange struct {
	User      domsession.Message
	Assistant domsession.Message
}

// Service answers questions about the uploaded notes and keeps chat history.
type Service struct {
	corpus      CorpusLoader
	sessions    SessionRepository
	corpusLimit int
	titleMax    int
	now         func() time.Time
	newID       func() string
}

// New creates a chat service.
func New(corpus CorpusLoader, sessions SessionRepository, corpusLimit, titleMax int) *Service {
	return &Service{
		corpus:      corpus,
		sessions:    sessions,
		corpusLimit: corpusLimit,
		titleMax:    titleMax,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Reply ranks the corpus against the trimmed message and renders the answer.
func (s *Service) Reply(ctx context.Context, message string) (assistant.Reply, error) {
	message = strings.TrimSpace(message)
	docs, err := s.corpus.Corpus(ctx, s.corpusLimit)
	if err != nil {
		return assistant.Reply{}, fmt.Errorf("reply: %w", err)
	}

	matches := assistant.Rank(message, docs)
	reply := assistant.Synthesize(message, matches)

	metrics.ChatRepliesTotal.WithLabelValues(string(reply.Intent)).Inc()
	metrics.ChatMatchedNotes.Observe(float64(len(matches)))

	logger.FromContext(ctx).Debug("Chat reply",
		zap.Int("corpus", len(docs)),
		zap.Int("matched", len(matches)),
		zap.String("intent", string(reply.Intent)),
	)

	return reply, nil
}

// CreateSession starts an empty session for a student.
func (s *Service) CreateSession(ctx context.Context, caller user.Principal) (domsession.Session, error) {
	if !caller.IsStudent() {
		return domsession.Session{}, domain.ErrForbidden
	}
	sess, err := domsession.New(s.newID(), caller.ID, s.now().UTC())
	if err != nil {
		return domsession.Session{}, fmt.Errorf("new session: %w", err)
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return domsession.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// ListSessions returns the caller's sessions, most recently active first.
func (s *Service) ListSessions(ctx context.Context, caller user.Principal) ([]domsession.Session, error) {
	if !caller.IsStudent() {
		return nil, domain.ErrForbidden
	}
	list, err := s.sessions.ListByStudent(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

// Messages returns a session's history in the order it was written.
func (s *Service) Messages(ctx context.Context, caller user.Principal, sessionID string) ([]domsession.Message, error) {
	if _, err := s.owned(ctx, caller, sessionID); err != nil {
		return nil, err
	}
	msgs, err := s.sessions.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return msgs, nil
}

// Send stores the student's message and the assistant's reply. The first
// message of a session also names it.
func (s *Service) Send(ctx context.Context, caller user.Principal, sessionID, message string) (Exchange, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Exchange{}, domain.NewValidationError("message", "is required")
	}

	sess, err := s.owned(ctx, caller, sessionID)
	if err != nil {
		return Exchange{}, err
	}
	history, err := s.sessions.Messages(ctx, sessionID)
	if err != nil {
		return Exchange{}, fmt.Errorf("load messages: %w", err)
	}

	reply, err := s.Reply(ctx, message)
	if err != nil {
		return Exchange{}, err
	}

	now := s.now().UTC()
	ex := Exchange{
		User:      domsession.NewUserMessage(s.newID(), sessionID, message, now),
		Assistant: domsession.NewAssistantMessage(s.newID(), sessionID, reply.Text, reply.RelatedDocumentIDs, now),
	}
	if err := s.sessions.AppendMessages(ctx, sessionID, ex.User, ex.Assistant); err != nil {
		return Exchange{}, fmt.Errorf("append messages: %w", err)
	}

	sess = sess.Touch(now)
	if len(history) == 0 {
		sess = sess.Retitle(domsession.TitleFromMessage(message, s.titleMax))
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Exchange{}, fmt.Errorf("save session: %w", err)
	}

	return ex, nil
}

func (s *Service) owned(ctx context.Context, caller user.Principal, sessionID string) (domsession.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domsession.Session{}, fmt.Errorf("get session: %w", err)
	}
	if !sess.OwnedBy(caller.ID) {
		return domsession.Session{}, domain.ErrForbidden
	}
	return sess, nil
}
