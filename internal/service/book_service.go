package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/covers"
	"github.com/prn-tf/lendery/internal/domain"
	"github.com/prn-tf/lendery/internal/lock"
	"github.com/prn-tf/lendery/internal/repository"
)

// Lock settings for lending transitions.
const (
	bookLockTTL        = 5 * time.Second
	bookLockRetries    = 3
	bookLockRetryDelay = 100 * time.Millisecond
)

// BookService handles book listing and the lending lifecycle.
//
// Every state transition runs under a per-book lock, and the repository
// re-checks the expected lending flags in its UPDATE statement. The lock
// serializes transitions on one node (or across nodes with the Redis
// locker); the guarded statement is the backstop that keeps two racing
// requests from both succeeding even without the lock.
type BookService struct {
	bookRepo  repository.BookRepository
	userRepo  repository.UserRepository
	locker    lock.Locker
	validator covers.Validator
	mirror    *covers.Mirror
	logger    zerolog.Logger
}

// NewBookService creates a new BookService.
// The mirror is optional; pass nil to disable cover archival.
func NewBookService(
	bookRepo repository.BookRepository,
	userRepo repository.UserRepository,
	locker lock.Locker,
	validator covers.Validator,
	mirror *covers.Mirror,
	logger zerolog.Logger,
) *BookService {
	return &BookService{
		bookRepo:  bookRepo,
		userRepo:  userRepo,
		locker:    locker,
		validator: validator,
		mirror:    mirror,
		logger:    logger.With().Str("service", "book").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// AddBookInput contains the data needed to list a new book.
type AddBookInput struct {
	OwnerID     int64
	Title       string
	Author      string
	ImageURL    string
	Description string
}

// AddBookOutput contains the result of listing a book.
type AddBookOutput struct {
	Book *domain.Book
}

// ReceiveBookOutput contains the result of confirming a hand-over.
type ReceiveBookOutput struct {
	Book *domain.Book

	// ReturnDate is the computed due date of the loan.
	ReturnDate time.Time
}

// =============================================================================
// Listing Operations
// =============================================================================

// Add lists a new book owned by the given user.
// The cover image URL must resolve to an image and the (title, author)
// pair must not already be listed.
func (s *BookService) Add(ctx context.Context, input AddBookInput) (*AddBookOutput, error) {
	// Title and author are normalized to title case, like user names.
	title := titleCase(strings.TrimSpace(input.Title))
	author := titleCase(strings.TrimSpace(input.Author))
	imageURL := strings.TrimSpace(input.ImageURL)

	if title == "" || author == "" || imageURL == "" {
		return nil, ErrMissingFields
	}

	if err := s.validator.Validate(ctx, imageURL); err != nil {
		return nil, err
	}

	exists, err := s.bookRepo.ExistsByTitleAuthor(ctx, title, author)
	if err != nil {
		s.logger.Error().Err(err).Str("title", title).Msg("failed to check book existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s by %s", ErrDuplicateBook, title, author)
	}

	book := domain.NewBook(input.OwnerID, title, author, imageURL, strings.TrimSpace(input.Description))

	if err := s.bookRepo.Create(ctx, book); err != nil {
		if errors.Is(err, domain.ErrBookAlreadyExists) {
			return nil, fmt.Errorf("%w: %s by %s", ErrDuplicateBook, title, author)
		}
		s.logger.Error().Err(err).Str("title", title).Msg("failed to create book")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("book_id", book.ID).
		Int64("owner_id", book.OwnerID).
		Str("title", book.Title).
		Msg("book listed")

	if s.mirror != nil {
		// Best-effort archival, off the request path.
		go s.mirror.Archive(context.WithoutCancel(ctx), book.ID, book.ImageURL)
	}

	return &AddBookOutput{Book: book}, nil
}

// List returns all books.
func (s *BookService) List(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.bookRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list books")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return books, nil
}

// GetByID retrieves a book by ID.
func (s *BookService) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		s.logger.Error().Err(err).Int64("book_id", id).Msg("failed to get book")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return book, nil
}

// SetActive changes whether the owner currently offers the book.
// Only the owner may toggle activity. The flag does not touch the
// lending lifecycle.
func (s *BookService) SetActive(ctx context.Context, callerID, bookID int64, active bool) error {
	book, err := s.GetByID(ctx, bookID)
	if err != nil {
		return err
	}

	if !book.IsOwnedBy(callerID) {
		return ErrNotAuthorized
	}
	if book.LentOut {
		return ErrAlreadyLentOut
	}

	if err := s.bookRepo.SetActive(ctx, bookID, active); err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return ErrBookNotFound
		}
		s.logger.Error().Err(err).Int64("book_id", bookID).Msg("failed to set book activity")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("book_id", bookID).
		Bool("active", active).
		Msg("book activity changed")

	return nil
}

// Remove deletes a book listing.
// Only the owner may remove a book, and only while it is neither
// reserved nor lent out.
func (s *BookService) Remove(ctx context.Context, callerID, bookID int64) error {
	return s.withBookLock(ctx, bookID, func(ctx context.Context) error {
		book, err := s.GetByID(ctx, bookID)
		if err != nil {
			return err
		}

		if !book.IsOwnedBy(callerID) {
			return ErrNotAuthorized
		}
		if !book.IsAvailable() {
			return ErrBookInUse
		}

		if err := s.bookRepo.Delete(ctx, bookID); err != nil {
			return s.mapTransitionError(err, bookID, ErrBookInUse, "failed to delete book")
		}

		s.logger.Info().Int64("book_id", bookID).Msg("book removed")
		return nil
	})
}

// =============================================================================
// Lending Lifecycle
// =============================================================================

// Reserve places a reservation on an available book for the caller.
func (s *BookService) Reserve(ctx context.Context, callerID, bookID int64) error {
	return s.withBookLock(ctx, bookID, func(ctx context.Context) error {
		book, err := s.GetByID(ctx, bookID)
		if err != nil {
			return err
		}

		if book.IsOwnedBy(callerID) {
			return ErrOwnBook
		}
		if book.Reserved {
			return ErrBookUnavailable
		}

		if err := s.bookRepo.Reserve(ctx, bookID, callerID); err != nil {
			return s.mapTransitionError(err, bookID, ErrBookUnavailable, "failed to reserve book")
		}

		s.logger.Info().
			Int64("book_id", bookID).
			Int64("lender_id", callerID).
			Msg("book reserved")
		return nil
	})
}

// CancelReservation withdraws a reservation before hand-over.
// Either side of the reservation may cancel; once the book has been
// handed over, the loan must run its course and be returned instead.
func (s *BookService) CancelReservation(ctx context.Context, callerID, bookID int64) error {
	return s.withBookLock(ctx, bookID, func(ctx context.Context) error {
		book, err := s.GetByID(ctx, bookID)
		if err != nil {
			return err
		}

		if !book.IsOwnerOrLender(callerID) {
			return ErrNotAuthorized
		}
		if !book.Reserved {
			return ErrNoReservation
		}
		if book.LentOut {
			return ErrAlreadyLentOut
		}

		if err := s.bookRepo.CancelReservation(ctx, bookID); err != nil {
			return s.mapTransitionError(err, bookID, ErrAlreadyLentOut, "failed to cancel reservation")
		}

		s.logger.Info().
			Int64("book_id", bookID).
			Int64("user_id", callerID).
			Msg("reservation cancelled")
		return nil
	})
}

// Receive confirms the physical hand-over of a reserved book.
// The return date is computed from the lender's duration at the moment
// of hand-over; later duration changes do not move it.
func (s *BookService) Receive(ctx context.Context, callerID, bookID int64) (*ReceiveBookOutput, error) {
	var out *ReceiveBookOutput

	err := s.withBookLock(ctx, bookID, func(ctx context.Context) error {
		book, err := s.GetByID(ctx, bookID)
		if err != nil {
			return err
		}

		if !book.IsOwnerOrLender(callerID) {
			return ErrNotAuthorized
		}
		if !book.Reserved {
			return ErrNoReservation
		}
		if book.LentOut {
			return ErrAlreadyLentOut
		}

		lender, err := s.userRepo.GetByID(ctx, *book.LenderID)
		if err != nil {
			s.logger.Error().Err(err).Int64("book_id", bookID).Msg("failed to get lender")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		returnDate := time.Now().UTC().AddDate(0, 0, lender.LendDuration)

		if err := s.bookRepo.MarkLentOut(ctx, bookID, returnDate); err != nil {
			return s.mapTransitionError(err, bookID, ErrAlreadyLentOut, "failed to mark book lent out")
		}

		book.LentOut = true
		book.ReturnDate = &returnDate

		s.logger.Info().
			Int64("book_id", bookID).
			Int64("lender_id", lender.ID).
			Time("return_date", returnDate).
			Msg("book handed over")

		out = &ReceiveBookOutput{Book: book, ReturnDate: returnDate}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Return closes a loan and makes the book available again.
// Reservation, lender and return date are all cleared, from either the
// Reserved or LentOut state.
func (s *BookService) Return(ctx context.Context, callerID, bookID int64) error {
	return s.withBookLock(ctx, bookID, func(ctx context.Context) error {
		book, err := s.GetByID(ctx, bookID)
		if err != nil {
			return err
		}

		if !book.IsOwnerOrLender(callerID) {
			return ErrNotAuthorized
		}

		if err := s.bookRepo.ResetLending(ctx, bookID); err != nil {
			if errors.Is(err, domain.ErrBookNotFound) {
				return ErrBookNotFound
			}
			s.logger.Error().Err(err).Int64("book_id", bookID).Msg("failed to reset book lending")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		s.logger.Info().
			Int64("book_id", bookID).
			Int64("user_id", callerID).
			Msg("book returned")
		return nil
	})
}

// =============================================================================
// Helpers
// =============================================================================

// withBookLock runs fn while holding the per-book lending lock.
func (s *BookService) withBookLock(ctx context.Context, bookID int64, fn func(ctx context.Context) error) error {
	key := lock.Keys.Book(bookID)

	acquired, err := s.locker.AcquireWithRetry(ctx, key, bookLockTTL, bookLockRetries, bookLockRetryDelay)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to acquire book lock")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !acquired {
		return ErrLockContention
	}
	defer func() {
		if _, err := s.locker.Release(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to release book lock")
		}
	}()

	return fn(ctx)
}

// mapTransitionError translates repository errors from a guarded
// transition into service errors. A guard miss means the state moved
// between our read and the update.
func (s *BookService) mapTransitionError(err error, bookID int64, conflictErr error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrStateConflict):
		return conflictErr
	case errors.Is(err, domain.ErrBookNotFound):
		return ErrBookNotFound
	default:
		s.logger.Error().Err(err).Int64("book_id", bookID).Msg(msg)
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
}
