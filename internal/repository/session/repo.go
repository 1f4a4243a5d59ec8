package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/studybot/internal/domain"
	domsession "github.com/kailas-cloud/studybot/internal/domain/session"
)

// store is the consumer interface for chat sessions (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Repo implements usecase/chat.SessionRepository.
type Repo struct {
	store  store
	prefix string
}

// New creates a session repository. Keys are namespaced by prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Save writes the session hash and (re)scores it in the student's index by updated time.
func (r *Repo) Save(ctx context.Context, s domsession.Session) error {
	fields := map[string]string{
		"id":         s.ID(),
		"student_id": s.StudentID(),
		"title":      s.Title(),
		"created_at": strconv.FormatInt(s.CreatedAt().UnixMilli(), 10),
		"updated_at": strconv.FormatInt(s.UpdatedAt().UnixMilli(), 10),
	}
	if err := r.store.HSet(ctx, r.sessionKey(s.ID()), fields); err != nil {
		return fmt.Errorf("hset session %s: %w", s.ID(), err)
	}
	score := float64(s.UpdatedAt().UnixMilli())
	if err := r.store.ZAdd(ctx, r.studentKey(s.StudentID()), score, s.ID()); err != nil {
		return fmt.Errorf("index session %s: %w", s.ID(), err)
	}
	return nil
}

// Get returns a session by ID.
func (r *Repo) Get(ctx context.Context, id string) (domsession.Session, error) {
	m, err := r.store.HGetAll(ctx, r.sessionKey(id))
	if err != nil {
		return domsession.Session{}, fmt.Errorf("hgetall session %s: %w", id, err)
	}
	if len(m) == 0 {
		return domsession.Session{}, domain.ErrSessionNotFound
	}
	return sessionFromHash(m)
}

// ListByStudent returns the student's sessions, most recently updated first.
func (r *Repo) ListByStudent(ctx context.Context, studentID string) ([]domsession.Session, error) {
	ids, err := r.store.ZRevRange(ctx, r.studentKey(studentID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("zrevrange sessions %s: %w", studentID, err)
	}
	if len(ids) == 0 {
		return []domsession.Session{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.sessionKey(id)
	}
	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi sessions: %w", err)
	}

	sessions := make([]domsession.Session, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		s, err := sessionFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse session %s: %w", ids[i], err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// AppendMessages pushes messages to the end of the session log.
func (r *Repo) AppendMessages(ctx context.Context, sessionID string, msgs ...domsession.Message) error {
	values := make([]string, len(msgs))
	for i, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values[i] = string(data)
	}
	if err := r.store.RPush(ctx, r.messagesKey(sessionID), values...); err != nil {
		return fmt.Errorf("rpush messages %s: %w", sessionID, err)
	}
	return nil
}

// Messages returns the session log in insertion order.
func (r *Repo) Messages(ctx context.Context, sessionID string) ([]domsession.Message, error) {
	raw, err := r.store.LRange(ctx, r.messagesKey(sessionID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("lrange messages %s: %w", sessionID, err)
	}
	msgs := make([]domsession.Message, len(raw))
	for i, s := range raw {
		if err := json.Unmarshal([]byte(s), &msgs[i]); err != nil {
			return nil, fmt.Errorf("unmarshal message %d: %w", i, err)
		}
	}
	return msgs, nil
}

func (r *Repo) sessionKey(id string) string { return r.prefix + "session:" + id }

func (r *Repo) messagesKey(id string) string { return r.prefix + "session:" + id + ":messages" }

func (r *Repo) studentKey(studentID string) string { return r.prefix + "sessions:" + studentID }

func sessionFromHash(m map[string]string) (domsession.Session, error) {
	created, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return domsession.Session{}, fmt.Errorf("invalid created_at: %w", err)
	}
	updated, err := strconv.ParseInt(m["updated_at"], 10, 64)
	if err != nil {
		return domsession.Session{}, fmt.Errorf("invalid updated_at: %w", err)
	}
	return domsession.Reconstruct(m["id"], m["student_id"], m["title"],
		time.UnixMilli(created).UTC(), time.UnixMilli(updated).UTC()), nil
}
