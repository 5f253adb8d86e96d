// Package repository defines data access interfaces for Lendery.
// These interfaces abstract database operations, allowing for different
// implementations (PostgreSQL, SQLite, in-memory for testing) while
// keeping the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/prn-tf/lendery/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user. Returns domain.ErrUserAlreadyExists if
	// the email is taken (compared case-insensitively).
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ExistsByEmail checks if a user with the given email exists
	// (case-insensitive).
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// UpdateLendDuration updates only the lending duration of a user.
	UpdateLendDuration(ctx context.Context, id int64, days int) error

	// List returns all users ordered by creation time.
	List(ctx context.Context) ([]*domain.User, error)
}

// =============================================================================
// Book Repository
// =============================================================================

// BookRepository defines the interface for book data access.
//
// The state-transition methods (Reserve, CancelReservation, MarkLentOut,
// Delete) are guarded single-statement updates: each re-checks the
// expected lending flags in its WHERE clause so two racing requests
// cannot both perform the same transition. A guard miss on an existing
// row is reported as ErrStateConflict.
type BookRepository interface {
	// Create creates a new book. Returns domain.ErrBookAlreadyExists if
	// a book with the same title and author exists (case-insensitive).
	Create(ctx context.Context, book *domain.Book) error

	// GetByID retrieves a book by ID.
	GetByID(ctx context.Context, id int64) (*domain.Book, error)

	// List returns all books ordered by creation time.
	List(ctx context.Context) ([]*domain.Book, error)

	// ExistsByTitleAuthor checks if a book with the given title and
	// author exists (case-insensitive).
	ExistsByTitleAuthor(ctx context.Context, title, author string) (bool, error)

	// SetActive sets the active flag of a book.
	SetActive(ctx context.Context, id int64, active bool) error

	// Reserve transitions an available book to Reserved for the given
	// lender. Guard: reserved = false.
	Reserve(ctx context.Context, bookID, lenderID int64) error

	// CancelReservation clears a reservation that has not been handed
	// over. Guard: reserved = true AND lent_out = false.
	CancelReservation(ctx context.Context, bookID int64) error

	// MarkLentOut transitions a reserved book to LentOut with the given
	// return date. Guard: reserved = true AND lent_out = false.
	MarkLentOut(ctx context.Context, bookID int64, returnDate time.Time) error

	// ResetLending returns a book to the Available state, clearing
	// reserved, lent_out, lender and return date.
	ResetLending(ctx context.Context, bookID int64) error

	// Delete deletes a book. Guard: reserved = false AND lent_out = false.
	Delete(ctx context.Context, id int64) error
}

// =============================================================================
// Repositories
// =============================================================================

// Repositories holds all repository instances for one database backend.
type Repositories struct {
	Users UserRepository
	Books BookRepository
}

// DatabaseHealth is an interface for database health checks.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}
