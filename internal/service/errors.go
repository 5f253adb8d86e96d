// Package service provides business logic services for Lendery.
package service

import "errors"

// Common service errors.
var (
	// User errors
	ErrMissingFields      = errors.New("first name, last name, email and password are required")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
	ErrUserNotFound       = errors.New("user not found")

	// Book errors
	ErrBookNotFound      = errors.New("book not found")
	ErrDuplicateBook     = errors.New("book with this title and author already exists")
	ErrBookUnavailable   = errors.New("book is already reserved")
	ErrNoReservation     = errors.New("book has no reservation")
	ErrAlreadyLentOut    = errors.New("book has already been handed over")
	ErrBookInUse         = errors.New("book is reserved or lent out")
	ErrOwnBook           = errors.New("cannot reserve your own book")
	ErrNotAuthorized     = errors.New("not allowed to manage this book")

	// Session errors
	ErrSessionNotFound = errors.New("session not found or expired")

	// General errors
	ErrLockContention = errors.New("could not acquire lock, try again")
	ErrInternalError  = errors.New("internal server error")
)
