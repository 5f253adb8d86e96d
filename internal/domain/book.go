// Package domain contains the core business entities for Lendery.
package domain

import (
	"time"
)

// Book represents a book listed for lending.
//
// Each book occupies exactly one of three lending states, fully
// determined by its Reserved and LentOut flags:
//
//   - Available: Reserved=false, LentOut=false
//   - Reserved:  Reserved=true,  LentOut=false, LenderID set
//   - LentOut:   Reserved=true,  LentOut=true,  LenderID and ReturnDate set
//
// The Active flag is orthogonal: an owner can deactivate a book to hide
// it from lending without touching the reservation lifecycle.
type Book struct {
	// ID is the unique identifier for the book (auto-generated).
	ID int64 `json:"id"`

	// Title is the book title. The (Title, Author) pair is unique
	// across all books, compared case-insensitively.
	Title string `json:"title"`

	// Author is the book author.
	Author string `json:"author"`

	// Description is an optional free-form description.
	Description string `json:"description"`

	// ImageURL points at the cover image. Validated on creation.
	ImageURL string `json:"image_url"`

	// Active indicates whether the owner currently offers the book.
	Active bool `json:"active"`

	// Reserved is true while a lender holds a reservation or loan.
	Reserved bool `json:"reserved"`

	// LentOut is true once the book has been handed over to the lender.
	LentOut bool `json:"lent_out"`

	// ReturnDate is the date the book is due back. Set when the book is
	// handed over; nil otherwise.
	ReturnDate *time.Time `json:"return_date,omitempty"`

	// OwnerID is the ID of the user who listed the book. Fixed for the
	// book's lifetime.
	OwnerID int64 `json:"owner_id"`

	// LenderID is the ID of the user currently holding a reservation or
	// loan on the book; nil while the book is available.
	LenderID *int64 `json:"lender_id,omitempty"`

	// CreatedAt is the timestamp when the book was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the book was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBook creates a new Book in the Available state.
func NewBook(ownerID int64, title, author, imageURL, description string) *Book {
	now := time.Now().UTC()
	return &Book{
		Title:       title,
		Author:      author,
		Description: description,
		ImageURL:    imageURL,
		Active:      true,
		Reserved:    false,
		LentOut:     false,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsAvailable returns true if the book is neither reserved nor lent out.
func (b *Book) IsAvailable() bool {
	return !b.Reserved && !b.LentOut
}

// IsOwnedBy returns true if the given user listed the book.
func (b *Book) IsOwnedBy(userID int64) bool {
	return b.OwnerID == userID
}

// IsLentTo returns true if the given user is the current lender.
func (b *Book) IsLentTo(userID int64) bool {
	return b.LenderID != nil && *b.LenderID == userID
}

// IsOwnerOrLender returns true if the given user may manage the book's
// current reservation or loan.
func (b *Book) IsOwnerOrLender(userID int64) bool {
	return b.IsOwnedBy(userID) || b.IsLentTo(userID)
}

// IsOverdue returns true if the book is lent out and its return date has
// passed.
func (b *Book) IsOverdue(now time.Time) bool {
	return b.ReturnDate != nil && b.ReturnDate.Before(now)
}
