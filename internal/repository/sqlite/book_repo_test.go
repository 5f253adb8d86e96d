package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prn-tf/lendery/internal/domain"
	"github.com/prn-tf/lendery/internal/repository"
)

func TestBookRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	owner := mustCreateUser(t, db, "owner@example.com")
	book := mustCreateBook(t, db, owner.ID, "Solaris")

	got, err := repo.GetByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "Solaris" || got.OwnerID != owner.ID {
		t.Errorf("unexpected book: %+v", got)
	}
	if !got.Active || got.Reserved || got.LentOut {
		t.Errorf("expected active available book, got %+v", got)
	}
	if got.LenderID != nil || got.ReturnDate != nil {
		t.Error("expected no lender or return date on a fresh book")
	}
}

func TestBookRepository_Create_DuplicateTitleAuthor(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	owner := mustCreateUser(t, db, "owner@example.com")

	original := domain.NewBook(owner.ID, "Solaris", "Stanisław Lem", "http://img.example/x.png", "")
	if err := repo.Create(ctx, original); err != nil {
		t.Fatalf("failed to create book: %v", err)
	}

	// Case folding must cover the full Unicode range, not just ASCII:
	// "STANISŁAW LEM" and "Stanisław Lem" are the same author.
	exists, err := repo.ExistsByTitleAuthor(ctx, "SOLARIS", "STANISŁAW LEM")
	if err != nil {
		t.Fatalf("ExistsByTitleAuthor failed: %v", err)
	}
	if !exists {
		t.Error("expected case-folded duplicate to be detected")
	}

	// "STANISLAW" without the stroke is a different author.
	exists, err = repo.ExistsByTitleAuthor(ctx, "SOLARIS", "STANISLAW LEM")
	if err != nil {
		t.Fatalf("ExistsByTitleAuthor failed: %v", err)
	}
	if exists {
		t.Error("ASCII-transliterated author must not match the Unicode one")
	}

	dup := domain.NewBook(owner.ID, "SOLARIS", "STANISŁAW LEM", "http://img.example/x.png", "")
	if err := repo.Create(ctx, dup); !errors.Is(err, domain.ErrBookAlreadyExists) {
		t.Fatalf("expected ErrBookAlreadyExists for case-insensitive duplicate, got %v", err)
	}

	books, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(books) != 1 {
		t.Errorf("rejected duplicate must not create a row, have %d books", len(books))
	}
}

func TestBookRepository_Reserve_GuardsAgainstDoubleReserve(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	owner := mustCreateUser(t, db, "owner@example.com")
	first := mustCreateUser(t, db, "first@example.com")
	second := mustCreateUser(t, db, "second@example.com")
	book := mustCreateBook(t, db, owner.ID, "Solaris")

	if err := repo.Reserve(ctx, book.ID, first.ID); err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}

	if err := repo.Reserve(ctx, book.ID, second.ID); !errors.Is(err, repository.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict for second reserve, got %v", err)
	}

	got, err := repo.GetByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.LenderID == nil || *got.LenderID != first.ID {
		t.Errorf("lender must remain the first caller, got %v", got.LenderID)
	}
}

func TestBookRepository_Reserve_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)

	if err := repo.Reserve(context.Background(), 9999, 1); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestBookRepository_MarkLentOut(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	owner := mustCreateUser(t, db, "owner@example.com")
	lender := mustCreateUser(t, db, "lender@example.com")
	book := mustCreateBook(t, db, owner.ID, "Solaris")

	returnDate := time.Now().UTC().AddDate(0, 0, 28)

	// Not reserved yet: guard must refuse.
	if err := repo.MarkLentOut(ctx, book.ID, returnDate); !errors.Is(err, repository.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict before reservation, got %v", err)
	}

	if err := repo.Reserve(ctx, book.ID, lender.ID); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := repo.MarkLentOut(ctx, book.ID, returnDate); err != nil {
		t.Fatalf("MarkLentOut failed: %v", err)
	}

	got, err := repo.GetByID(ctx, book.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.LentOut || !got.Reserved {
		t.Errorf("expected lent-out book, got %+v", got)
	}
	if got.ReturnDate == nil || got.ReturnDate.Format("2006-01-02") != returnDate.Format("2006-01-02") {
		t.Errorf("return date = %v, want %s", got.ReturnDate, returnDate.Format("2006-01-02"))
	}

	// A second hand-over must be refused.
	if err := repo.MarkLentOut(ctx, book.ID, returnDate); !errors.Is(err, repository.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict for second hand-over, got %v", err)
	}
}

func TestBookRepository_CancelReservation(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	owner := mustCreateUser(t, db, "owner@example.com")
	lender := mustCreateUser(t, db, "lender@example.com")
	book := mustCreateBook(t, db, owner.ID, "Solaris")

	// No reservation yet.
	if err := repo.CancelReservation(ctx, book.ID); !errors.Is(err, repository.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict without reservation, got %v", err)
	}

	if err := repo.Reserve(ctx, book.ID, lender.ID); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := repo.CancelReservation(ctx, book.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	got, _ := repo.GetByID(ctx, book.ID)
	if got.Reserved || got.LenderID != nil {
		t.Errorf("reservation not cleared: %+v", got)
	}

	// Once lent out, cancellation is refused by the guard.
	if err := repo.Reserve(ctx, book.ID, lender.ID); err != nil {
		t.Fatalf("re-reserve failed: %v", err)
	}
	if err := repo.MarkLentOut(ctx, book.ID, time.Now().UTC().AddDate(0, 0, 28)); err != nil {
		t.Fatalf("MarkLentOut failed: %v", err)
	}
	if err := repo.CancelReservation(ctx, book.ID); !errors.Is(err, repository.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict while lent out, got %v", err)
	}
}

func TestBookRepository_ResetLending(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	owner := mustCreateUser(t, db, "owner@example.com")
	lender := mustCreateUser(t, db, "lender@example.com")
	book := mustCreateBook(t, db, owner.ID, "Solaris")

	if err := repo.Reserve(ctx, book.ID, lender.ID); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := repo.MarkLentOut(ctx, book.ID, time.Now().UTC().AddDate(0, 0, 28)); err != nil {
		t.Fatalf("MarkLentOut failed: %v", err)
	}

	if err := repo.ResetLending(ctx, book.ID); err != nil {
		t.Fatalf("ResetLending failed: %v", err)
	}

	got, _ := repo.GetByID(ctx, book.ID)
	if got.Reserved || got.LentOut || got.LenderID != nil || got.ReturnDate != nil {
		t.Errorf("book not fully reset: %+v", got)
	}
}

func TestBookRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	owner := mustCreateUser(t, db, "owner@example.com")
	lender := mustCreateUser(t, db, "lender@example.com")
	book := mustCreateBook(t, db, owner.ID, "Solaris")

	// Reserved books cannot be deleted.
	if err := repo.Reserve(ctx, book.ID, lender.ID); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := repo.Delete(ctx, book.ID); !errors.Is(err, repository.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict for reserved book, got %v", err)
	}

	if err := repo.CancelReservation(ctx, book.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := repo.Delete(ctx, book.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := repo.GetByID(ctx, book.ID); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound after delete, got %v", err)
	}

	if err := repo.Delete(ctx, 9999); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound for unknown book, got %v", err)
	}
}

func TestBookRepository_SetActive(t *testing.T) {
	db := newTestDB(t)
	repo := NewBookRepository(db)
	ctx := context.Background()

	owner := mustCreateUser(t, db, "owner@example.com")
	book := mustCreateBook(t, db, owner.ID, "Solaris")

	if err := repo.SetActive(ctx, book.ID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	got, _ := repo.GetByID(ctx, book.ID)
	if got.Active {
		t.Error("expected book to be inactive")
	}

	if err := repo.SetActive(ctx, 9999, true); !errors.Is(err, domain.ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}
