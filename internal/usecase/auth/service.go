package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kailas-cloud/studybot/internal/domain"
	domuser "github.com/kailas-cloud/studybot/internal/domain/user"
)

// ServicePrincipalID identifies requests authenticated with a static API key.
const ServicePrincipalID = "service"

// Registration is a signup request.
type Registration struct {
	Email    string
	Password string
	FullName string
	Role     string
}

// Token is a signed access token.
type Token struct {
	Value     string
	ExpiresAt time.Time
	User      domuser.User
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles accounts and access tokens.
type Service struct {
	repo    Repository
	secret  []byte
	ttl     time.Duration
	apiKeys [][]byte
	cost    int
	now     func() time.Time
	newID   func() string
}

// New creates an auth service. Tokens are HS256-signed with secret and live for ttl.
// Each non-empty API key authenticates as a staff service principal.
func New(repo Repository, secret []byte, ttl time.Duration, apiKeys []string) *Service {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}
	return &Service{
		repo:    repo,
		secret:  secret,
		ttl:     ttl,
		apiKeys: keys,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, reg Registration) (domuser.User, error) {
	switch {
	case len(reg.Password) < domuser.MinPasswordLen:
		return domuser.User{}, domain.NewValidationError("password",
			fmt.Sprintf("must be at least %d characters", domuser.MinPasswordLen))
	case len(reg.Password) > domuser.MaxPasswordLen:
		return domuser.User{}, domain.NewValidationError("password",
			fmt.Sprintf("must be at most %d bytes", domuser.MaxPasswordLen))
	}
	role, err := domuser.ParseRole(reg.Role)
	if err != nil {
		return domuser.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return domuser.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := domuser.New(s.newID(), reg.Email, reg.FullName, role, string(hash), s.now().UTC())
	if err != nil {
		return domuser.User{}, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return domuser.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	email, err := domuser.NormalizeEmail(email)
	if err != nil {
		return Token{}, domain.ErrUnauthorized
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Token{}, domain.ErrUnauthorized
		}
		return Token{}, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash()), []byte(password)) != nil {
		return Token{}, domain.ErrUnauthorized
	}

	now := s.now()
	exp := now.Add(s.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(u.Role()),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: exp, User: u}, nil
}

// Profile returns the account behind a principal.
func (s *Service) Profile(ctx context.Context, id string) (domuser.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return domuser.User{}, fmt.Errorf("get profile: %w", err)
	}
	return u, nil
}

// Authenticate resolves a bearer credential (API key or access token) to a principal.
func (s *Service) Authenticate(credential string) (domuser.Principal, error) {
	if credential == "" {
		return domuser.Principal{}, domain.ErrUnauthorized
	}
	for _, k := range s.apiKeys {
		if subtle.ConstantTimeCompare(k, []byte(credential)) == 1 {
			return domuser.Principal{ID: ServicePrincipalID, Role: domuser.RoleStaff}, nil
		}
	}

	var c claims
	_, err := jwt.ParseWithClaims(credential, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return domuser.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	role, err := domuser.ParseRole(c.Role)
	if err != nil || c.Subject == "" {
		return domuser.Principal{}, domain.ErrUnauthorized
	}
	return domuser.Principal{ID: c.Subject, Role: role}, nil
}
