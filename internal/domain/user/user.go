package user

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/kailas-cloud/studybot/internal/domain"
)

// Role decides what a user may do: staff upload notes, students chat.
type Role string

const (
	// RoleStaff may upload and delete notes.
	RoleStaff Role = "staff"
	// RoleStudent may chat about notes.
	RoleStudent Role = "student"
)

// Password length limits in bytes. bcrypt refuses anything longer than MaxPasswordLen.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStaff, RoleStudent:
		return Role(s), nil
	default:
		return "", domain.NewValidationError("role", fmt.Sprintf("must be %q or %q", RoleStaff, RoleStudent))
	}
}

// User is an account profile.
type User struct {
	id           string
	email        string
	fullName     string
	role         Role
	passwordHash string
	createdAt    time.Time
	updatedAt    time.Time
}

// New validates and creates a User. The password must already be hashed.
func New(id, email, fullName string, role Role, passwordHash string, now time.Time) (User, error) {
	if id == "" {
		return User{}, fmt.Errorf("user ID is required")
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return User{}, domain.NewValidationError("full_name", "is required")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return User{}, err
	}
	if passwordHash == "" {
		return User{}, fmt.Errorf("password hash is required")
	}
	return User{
		id: id, email: email, fullName: fullName, role: role, passwordHash: passwordHash,
		createdAt: now, updatedAt: now,
	}, nil
}

// Reconstruct creates a User without validation (storage hydration).
func Reconstruct(id, email, fullName string, role Role, passwordHash string, createdAt, updatedAt time.Time) User {
	return User{
		id: id, email: email, fullName: fullName, role: role, passwordHash: passwordHash,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// NormalizeEmail trims and lower-cases an address after checking its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.NewValidationError("email", "is not a valid address")
	}
	return email, nil
}

// ID returns the user identifier.
func (u *User) ID() string { return u.id }

// Email returns the normalized e-mail address.
func (u *User) Email() string { return u.email }

// FullName returns the display name.
func (u *User) FullName() string { return u.fullName }

// Role returns the user's role.
func (u *User) Role() Role { return u.role }

// PasswordHash returns the bcrypt hash.
func (u *User) PasswordHash() string { return u.passwordHash }

// CreatedAt returns the creation time.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns the last update time.
func (u *User) UpdatedAt() time.Time { return u.updatedAt }
