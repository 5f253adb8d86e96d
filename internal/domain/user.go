// Package domain contains the core business entities for Lendery.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the peer-to-peer book-lending system.
package domain

import (
	"time"
)

// Lending duration bounds, in days.
const (
	// DefaultLendDuration is assigned to newly registered users.
	DefaultLendDuration = 28

	// MinLendDuration is the shortest configurable lending duration.
	MinLendDuration = 7

	// MaxLendDuration is the longest configurable lending duration.
	MaxLendDuration = 90
)

// User represents a registered user in the system.
// Users own books they list for lending and may borrow books from others.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// FirstName is the user's first name.
	FirstName string `json:"first_name"`

	// LastName is the user's last name.
	LastName string `json:"last_name"`

	// Email is the unique email address for the user.
	// Uniqueness is enforced case-insensitively.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// LendDuration is the number of days a loan lasts once a book this
	// user borrows is handed over. Bounded by MinLendDuration and
	// MaxLendDuration.
	LendDuration int `json:"duration"`

	// IsActive indicates whether the user account is active.
	// Inactive users cannot authenticate.
	IsActive bool `json:"is_active"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with default values.
func NewUser(firstName, lastName, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		LendDuration: DefaultLendDuration,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanAuthenticate returns true if the user is allowed to authenticate.
func (u *User) CanAuthenticate() bool {
	return u.IsActive
}

// ValidateLendDuration checks that a lending duration is within bounds.
func ValidateLendDuration(days int) error {
	if days < MinLendDuration || days > MaxLendDuration {
		return ErrInvalidLendDuration
	}
	return nil
}
