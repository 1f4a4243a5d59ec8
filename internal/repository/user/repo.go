package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/studybot/internal/db"
	"github.com/kailas-cloud/studybot/internal/domain"
	domuser "github.com/kailas-cloud/studybot/internal/domain/user"
)

// store is the consumer interface for user profiles (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
}

// Repo implements usecase/auth.Repository.
type Repo struct {
	store  store
	prefix string
}

// New creates a user repository. Keys are namespaced by prefix.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Create claims the e-mail address and stores the profile.
// Returns domain.ErrAlreadyExists when the address is taken.
func (r *Repo) Create(ctx context.Context, u domuser.User) error {
	emailKey := r.emailKey(u.Email())
	ok, err := r.store.SetNX(ctx, emailKey, []byte(u.ID()))
	if err != nil {
		return fmt.Errorf("claim email: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyExists
	}

	fields := map[string]string{
		"id":            u.ID(),
		"email":         u.Email(),
		"full_name":     u.FullName(),
		"role":          string(u.Role()),
		"password_hash": u.PasswordHash(),
		"created_at":    strconv.FormatInt(u.CreatedAt().UnixMilli(), 10),
		"updated_at":    strconv.FormatInt(u.UpdatedAt().UnixMilli(), 10),
	}
	if err := r.store.HSet(ctx, r.userKey(u.ID()), fields); err != nil {
		// release the address so the user can retry
		return errors.Join(fmt.Errorf("hset user %s: %w", u.ID(), err), r.store.Del(ctx, emailKey))
	}
	return nil
}

// Get returns a profile by ID.
func (r *Repo) Get(ctx context.Context, id string) (domuser.User, error) {
	m, err := r.store.HGetAll(ctx, r.userKey(id))
	if err != nil {
		return domuser.User{}, fmt.Errorf("hgetall user %s: %w", id, err)
	}
	if len(m) == 0 {
		return domuser.User{}, domain.ErrNotFound
	}
	return userFromHash(m)
}

// GetByEmail resolves the e-mail index and returns the profile.
func (r *Repo) GetByEmail(ctx context.Context, email string) (domuser.User, error) {
	id, err := r.store.Get(ctx, r.emailKey(email))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domuser.User{}, domain.ErrNotFound
		}
		return domuser.User{}, fmt.Errorf("get email index: %w", err)
	}
	return r.Get(ctx, string(id))
}

func (r *Repo) userKey(id string) string { return r.prefix + "user:" + id }

func (r *Repo) emailKey(email string) string { return r.prefix + "user:email:" + email }

func userFromHash(m map[string]string) (domuser.User, error) {
	created, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return domuser.User{}, fmt.Errorf("invalid created_at: %w", err)
	}
	updated, err := strconv.ParseInt(m["updated_at"], 10, 64)
	if err != nil {
		return domuser.User{}, fmt.Errorf("invalid updated_at: %w", err)
	}
	return domuser.Reconstruct(m["id"], m["email"], m["full_name"], domuser.Role(m["role"]), m["password_hash"],
		time.UnixMilli(created).UTC(), time.UnixMilli(updated).UTC()), nil
}
