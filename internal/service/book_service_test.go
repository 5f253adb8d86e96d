package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/lendery/internal/covers"
	"github.com/prn-tf/lendery/internal/domain"
	"github.com/prn-tf/lendery/internal/lock"
)

func newTestBookService(bookRepo *MockBookRepository, userRepo *MockUserRepository, validator covers.Validator) *BookService {
	return NewBookService(bookRepo, userRepo, lock.NewNoOpLocker(), validator, nil, zerolog.Nop())
}

// seedUser adds a user with the given duration and returns its ID.
func seedUser(repo *MockUserRepository, email string, duration int) int64 {
	user := domain.NewUser("Test", "User", email, "hash")
	user.LendDuration = duration
	_ = repo.Create(context.Background(), user)
	return user.ID
}

// seedBook adds an available book owned by ownerID and returns its ID.
func seedBook(repo *MockBookRepository, ownerID int64, title string) int64 {
	book := domain.NewBook(ownerID, title, "Author", "http://img.example/x.png", "")
	_ = repo.Create(context.Background(), book)
	return book.ID
}

func TestBookService_Add(t *testing.T) {
	tests := []struct {
		name      string
		input     AddBookInput
		validator covers.Validator
		setup     func(*MockBookRepository)
		wantErr   error
	}{
		{
			name: "success",
			input: AddBookInput{
				OwnerID:  1,
				Title:    "The Dispossessed",
				Author:   "Ursula K. Le Guin",
				ImageURL: "http://img.example/d.png",
			},
			validator: okValidator{},
		},
		{
			name: "missing title",
			input: AddBookInput{
				OwnerID:  1,
				Author:   "Someone",
				ImageURL: "http://img.example/x.png",
			},
			validator: okValidator{},
			wantErr:   ErrMissingFields,
		},
		{
			name: "invalid image",
			input: AddBookInput{
				OwnerID:  1,
				Title:    "A Book",
				Author:   "Someone",
				ImageURL: "http://img.example/not-an-image",
			},
			validator: failValidator{},
			wantErr:   domain.ErrInvalidImageURL,
		},
		{
			name: "duplicate title and author case-insensitive",
			input: AddBookInput{
				OwnerID:  2,
				Title:    "the dispossessed",
				Author:   "URSULA K. LE GUIN",
				ImageURL: "http://img.example/d.png",
			},
			validator: okValidator{},
			setup: func(m *MockBookRepository) {
				_ = m.Create(context.Background(),
					domain.NewBook(1, "The Dispossessed", "Ursula K. Le Guin", "http://img.example/d.png", ""))
			},
			wantErr: ErrDuplicateBook,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookRepo := NewMockBookRepository()
			if tt.setup != nil {
				tt.setup(bookRepo)
			}
			svc := newTestBookService(bookRepo, NewMockUserRepository(), tt.validator)

			out, err := svc.Add(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Book.ID == 0 {
				t.Error("expected book ID to be assigned")
			}
			if !out.Book.Active || out.Book.Reserved || out.Book.LentOut {
				t.Errorf("expected new book to be active and available, got %+v", out.Book)
			}
		})
	}
}

func TestBookService_Add_TitleCasesInput(t *testing.T) {
	bookRepo := NewMockBookRepository()
	svc := newTestBookService(bookRepo, NewMockUserRepository(), okValidator{})

	out, err := svc.Add(context.Background(), AddBookInput{
		OwnerID:  1,
		Title:    "the left hand of darkness",
		Author:   "ursula le guin",
		ImageURL: "http://img.example/l.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Book.Title != "The Left Hand Of Darkness" {
		t.Errorf("title = %q, want The Left Hand Of Darkness", out.Book.Title)
	}
	if out.Book.Author != "Ursula Le Guin" {
		t.Errorf("author = %q, want Ursula Le Guin", out.Book.Author)
	}
}

func TestBookService_Reserve_OwnBook(t *testing.T) {
	bookRepo := NewMockBookRepository()
	userRepo := NewMockUserRepository()
	owner := seedUser(userRepo, "owner@example.com", 28)
	bookID := seedBook(bookRepo, owner, "Solaris")

	svc := newTestBookService(bookRepo, userRepo, okValidator{})

	err := svc.Reserve(context.Background(), owner, bookID)
	if !errors.Is(err, ErrOwnBook) {
		t.Fatalf("expected ErrOwnBook, got %v", err)
	}

	book, _ := bookRepo.GetByID(context.Background(), bookID)
	if book.Reserved || book.LenderID != nil {
		t.Errorf("own-book reservation must not mutate the book, got %+v", book)
	}
}

func TestBookService_Reserve_SecondCallerLoses(t *testing.T) {
	bookRepo := NewMockBookRepository()
	userRepo := NewMockUserRepository()
	owner := seedUser(userRepo, "owner@example.com", 28)
	first := seedUser(userRepo, "first@example.com", 28)
	second := seedUser(userRepo, "second@example.com", 28)
	bookID := seedBook(bookRepo, owner, "Solaris")

	svc := newTestBookService(bookRepo, userRepo, okValidator{})

	if err := svc.Reserve(context.Background(), first, bookID); err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}

	err := svc.Reserve(context.Background(), second, bookID)
	if !errors.Is(err, ErrBookUnavailable) {
		t.Fatalf("expected ErrBookUnavailable for second reservation, got %v", err)
	}

	book, _ := bookRepo.GetByID(context.Background(), bookID)
	if book.LenderID == nil || *book.LenderID != first {
		t.Errorf("lender must remain the first caller, got %v", book.LenderID)
	}
}

func TestBookService_Receive_SnapshotsLenderDuration(t *testing.T) {
	bookRepo := NewMockBookRepository()
	userRepo := NewMockUserRepository()
	owner := seedUser(userRepo, "owner@example.com", 28)
	lender := seedUser(userRepo, "lender@example.com", 14)
	bookID := seedBook(bookRepo, owner, "Solaris")

	svc := newTestBookService(bookRepo, userRepo, okValidator{})
	ctx := context.Background()

	if err := svc.Reserve(ctx, lender, bookID); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	out, err := svc.Receive(ctx, lender, bookID)
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}

	wantDate := time.Now().UTC().AddDate(0, 0, 14)
	if got := out.ReturnDate.Format("2006-01-02"); got != wantDate.Format("2006-01-02") {
		t.Errorf("return date = %s, want %s", got, wantDate.Format("2006-01-02"))
	}

	// Changing the lender's duration afterwards must not move the date.
	if err := userRepo.UpdateLendDuration(ctx, lender, 90); err != nil {
		t.Fatalf("update duration failed: %v", err)
	}
	book, _ := bookRepo.GetByID(ctx, bookID)
	if book.ReturnDate == nil || !book.ReturnDate.Equal(out.ReturnDate) {
		t.Errorf("return date moved after duration change: %v", book.ReturnDate)
	}
}

func TestBookService_Receive_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(ctx context.Context, svc *BookService, lender, bookID int64)
		caller  string // "owner", "lender" or "stranger"
		wantErr error
	}{
		{
			name:    "not reserved",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {},
			caller:  "owner",
			wantErr: ErrNoReservation,
		},
		{
			name: "already lent out",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {
				_ = svc.Reserve(ctx, lender, bookID)
				_, _ = svc.Receive(ctx, lender, bookID)
			},
			caller:  "lender",
			wantErr: ErrAlreadyLentOut,
		},
		{
			name: "stranger",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {
				_ = svc.Reserve(ctx, lender, bookID)
			},
			caller:  "stranger",
			wantErr: ErrNotAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookRepo := NewMockBookRepository()
			userRepo := NewMockUserRepository()
			owner := seedUser(userRepo, "owner@example.com", 28)
			lender := seedUser(userRepo, "lender@example.com", 28)
			stranger := seedUser(userRepo, "stranger@example.com", 28)
			bookID := seedBook(bookRepo, owner, "Solaris")

			svc := newTestBookService(bookRepo, userRepo, okValidator{})
			ctx := context.Background()

			tt.prepare(ctx, svc, lender, bookID)

			caller := owner
			switch tt.caller {
			case "lender":
				caller = lender
			case "stranger":
				caller = stranger
			}

			if _, err := svc.Receive(ctx, caller, bookID); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBookService_Return_FullReset(t *testing.T) {
	bookRepo := NewMockBookRepository()
	userRepo := NewMockUserRepository()
	owner := seedUser(userRepo, "owner@example.com", 28)
	lender := seedUser(userRepo, "lender@example.com", 28)
	bookID := seedBook(bookRepo, owner, "Solaris")

	svc := newTestBookService(bookRepo, userRepo, okValidator{})
	ctx := context.Background()

	if err := svc.Reserve(ctx, lender, bookID); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := svc.Receive(ctx, lender, bookID); err != nil {
		t.Fatalf("receive failed: %v", err)
	}

	// Owner closes the loan.
	if err := svc.Return(ctx, owner, bookID); err != nil {
		t.Fatalf("return failed: %v", err)
	}

	book, _ := bookRepo.GetByID(ctx, bookID)
	if book.Reserved || book.LentOut || book.LenderID != nil || book.ReturnDate != nil {
		t.Errorf("book not fully reset: %+v", book)
	}
}

func TestBookService_Return_NotAuthorized(t *testing.T) {
	bookRepo := NewMockBookRepository()
	userRepo := NewMockUserRepository()
	owner := seedUser(userRepo, "owner@example.com", 28)
	lender := seedUser(userRepo, "lender@example.com", 28)
	stranger := seedUser(userRepo, "stranger@example.com", 28)
	bookID := seedBook(bookRepo, owner, "Solaris")

	svc := newTestBookService(bookRepo, userRepo, okValidator{})
	ctx := context.Background()

	_ = svc.Reserve(ctx, lender, bookID)
	if _, err := svc.Receive(ctx, lender, bookID); err != nil {
		t.Fatalf("receive failed: %v", err)
	}

	if err := svc.Return(ctx, stranger, bookID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestBookService_CancelReservation(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(ctx context.Context, svc *BookService, lender, bookID int64)
		caller  string
		wantErr error
	}{
		{
			name: "lender cancels",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {
				_ = svc.Reserve(ctx, lender, bookID)
			},
			caller: "lender",
		},
		{
			name: "owner cancels",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {
				_ = svc.Reserve(ctx, lender, bookID)
			},
			caller: "owner",
		},
		{
			name:    "no reservation",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {},
			caller:  "owner",
			wantErr: ErrNoReservation,
		},
		{
			name: "blocked once lent out",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {
				_ = svc.Reserve(ctx, lender, bookID)
				_, _ = svc.Receive(ctx, lender, bookID)
			},
			caller:  "lender",
			wantErr: ErrAlreadyLentOut,
		},
		{
			name: "stranger cannot cancel",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {
				_ = svc.Reserve(ctx, lender, bookID)
			},
			caller:  "stranger",
			wantErr: ErrNotAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookRepo := NewMockBookRepository()
			userRepo := NewMockUserRepository()
			owner := seedUser(userRepo, "owner@example.com", 28)
			lender := seedUser(userRepo, "lender@example.com", 28)
			stranger := seedUser(userRepo, "stranger@example.com", 28)
			bookID := seedBook(bookRepo, owner, "Solaris")

			svc := newTestBookService(bookRepo, userRepo, okValidator{})
			ctx := context.Background()

			tt.prepare(ctx, svc, lender, bookID)

			caller := owner
			switch tt.caller {
			case "lender":
				caller = lender
			case "stranger":
				caller = stranger
			}

			err := svc.CancelReservation(ctx, caller, bookID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			book, _ := bookRepo.GetByID(ctx, bookID)
			if book.Reserved || book.LenderID != nil {
				t.Errorf("reservation not cleared: %+v", book)
			}
		})
	}
}

func TestBookService_Remove(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(ctx context.Context, svc *BookService, lender, bookID int64)
		caller  string
		wantErr error
	}{
		{
			name:    "owner removes available book",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {},
			caller:  "owner",
		},
		{
			name: "blocked while reserved even for owner",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {
				_ = svc.Reserve(ctx, lender, bookID)
			},
			caller:  "owner",
			wantErr: ErrBookInUse,
		},
		{
			name: "blocked while lent out",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {
				_ = svc.Reserve(ctx, lender, bookID)
				_, _ = svc.Receive(ctx, lender, bookID)
			},
			caller:  "owner",
			wantErr: ErrBookInUse,
		},
		{
			name:    "non-owner cannot remove",
			prepare: func(ctx context.Context, svc *BookService, lender, bookID int64) {},
			caller:  "lender",
			wantErr: ErrNotAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookRepo := NewMockBookRepository()
			userRepo := NewMockUserRepository()
			owner := seedUser(userRepo, "owner@example.com", 28)
			lender := seedUser(userRepo, "lender@example.com", 28)
			bookID := seedBook(bookRepo, owner, "Solaris")

			svc := newTestBookService(bookRepo, userRepo, okValidator{})
			ctx := context.Background()

			tt.prepare(ctx, svc, lender, bookID)

			caller := owner
			if tt.caller == "lender" {
				caller = lender
			}

			err := svc.Remove(ctx, caller, bookID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if _, getErr := bookRepo.GetByID(ctx, bookID); getErr != nil {
					t.Error("rejected removal must not delete the book")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, getErr := bookRepo.GetByID(ctx, bookID); !errors.Is(getErr, domain.ErrBookNotFound) {
				t.Error("expected book to be deleted")
			}
		})
	}
}

func TestBookService_SetActive(t *testing.T) {
	bookRepo := NewMockBookRepository()
	userRepo := NewMockUserRepository()
	owner := seedUser(userRepo, "owner@example.com", 28)
	lender := seedUser(userRepo, "lender@example.com", 28)
	bookID := seedBook(bookRepo, owner, "Solaris")

	svc := newTestBookService(bookRepo, userRepo, okValidator{})
	ctx := context.Background()

	if err := svc.SetActive(ctx, lender, bookID, false); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-owner, got %v", err)
	}

	if err := svc.SetActive(ctx, owner, bookID, false); err != nil {
		t.Fatalf("owner deactivation failed: %v", err)
	}
	book, _ := bookRepo.GetByID(ctx, bookID)
	if book.Active {
		t.Error("expected book to be inactive")
	}

	// Deactivation is refused once the book has been handed over.
	_ = svc.Reserve(ctx, lender, bookID)
	if _, err := svc.Receive(ctx, lender, bookID); err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if err := svc.SetActive(ctx, owner, bookID, true); !errors.Is(err, ErrAlreadyLentOut) {
		t.Fatalf("expected ErrAlreadyLentOut, got %v", err)
	}
}

func TestBookService_LentOutImpliesInvariant(t *testing.T) {
	bookRepo := NewMockBookRepository()
	userRepo := NewMockUserRepository()
	owner := seedUser(userRepo, "owner@example.com", 28)
	lender := seedUser(userRepo, "lender@example.com", 28)
	bookID := seedBook(bookRepo, owner, "Solaris")

	svc := newTestBookService(bookRepo, userRepo, okValidator{})
	ctx := context.Background()

	_ = svc.Reserve(ctx, lender, bookID)
	if _, err := svc.Receive(ctx, lender, bookID); err != nil {
		t.Fatalf("receive failed: %v", err)
	}

	book, _ := bookRepo.GetByID(ctx, bookID)
	if !book.LentOut {
		t.Fatal("expected book to be lent out")
	}
	if !book.Reserved || book.LenderID == nil || book.ReturnDate == nil {
		t.Errorf("lent_out implies reserved, lender and return date: %+v", book)
	}
}
