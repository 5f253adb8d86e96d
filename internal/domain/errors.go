// Package domain contains the core business entities for Lendery.
package domain

import (
	"errors"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserInactive indicates the user account is disabled.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidLendDuration indicates a lending duration outside the
	// MinLendDuration..MaxLendDuration range.
	ErrInvalidLendDuration = errors.New("lend duration out of range")

	// ===========================================
	// Book Errors
	// ===========================================

	// ErrBookNotFound indicates the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrBookAlreadyExists indicates a book with the same title and
	// author exists (compared case-insensitively).
	ErrBookAlreadyExists = errors.New("book already exists")

	// ErrBookNotAvailable indicates the book is already reserved.
	ErrBookNotAvailable = errors.New("book is already reserved")

	// ErrBookNotReserved indicates the operation requires a reservation
	// but the book has none.
	ErrBookNotReserved = errors.New("book is not reserved")

	// ErrBookLentOut indicates the book has already been handed over.
	ErrBookLentOut = errors.New("book is already lent out")

	// ErrBookInUse indicates the book is reserved or lent out and cannot
	// be removed.
	ErrBookInUse = errors.New("book is reserved or lent out")

	// ErrOwnBookReservation indicates an owner tried to reserve their
	// own book.
	ErrOwnBookReservation = errors.New("owner cannot reserve own book")

	// ErrInvalidImageURL indicates the cover image URL does not resolve
	// to an image.
	ErrInvalidImageURL = errors.New("image URL does not point to an image")

	// ===========================================
	// Authorization Errors
	// ===========================================

	// ErrAccessDenied indicates the user does not have permission.
	ErrAccessDenied = errors.New("access denied")
)
