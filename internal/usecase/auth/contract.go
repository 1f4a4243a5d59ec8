package auth

import (
	"context"

	domuser "github.com/kailas-cloud/studybot/internal/domain/user"
)

// Repository defines the storage contract for user profiles.
type Repository interface {
	Create(ctx context.Context, u domuser.User) error
	Get(ctx context.Context, id string) (domuser.User, error)
	GetByEmail(ctx context.Context, email string) (domuser.User, error)
}
