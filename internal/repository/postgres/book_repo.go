package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/lendery/internal/domain"
	"github.com/prn-tf/lendery/internal/repository"
)

// bookRepository implements repository.BookRepository for PostgreSQL.
type bookRepository struct {
	db *DB
}

// NewBookRepository creates a new PostgreSQL book repository.
func NewBookRepository(db *DB) repository.BookRepository {
	return &bookRepository{db: db}
}

const bookColumns = `id, title, author, description, image_url, active, reserved, lent_out, return_date, owner_id, lender_id, created_at, updated_at`

// Create creates a new book.
func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	query := `
		INSERT INTO books (title, author, title_key, author_key, description, image_url, active, reserved, lent_out, return_date, owner_id, lender_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		book.Title,
		book.Author,
		repository.FoldCase(book.Title),
		repository.FoldCase(book.Author),
		book.Description,
		book.ImageURL,
		book.Active,
		book.Reserved,
		book.LentOut,
		book.ReturnDate,
		book.OwnerID,
		book.LenderID,
		book.CreatedAt,
		book.UpdatedAt,
	).Scan(&book.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: title and author already listed", domain.ErrBookAlreadyExists)
		}
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

// GetByID retrieves a book by ID.
func (r *bookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	return scanBook(r.db.Pool.QueryRow(ctx, query, id))
}

// List returns all books ordered by creation time.
func (r *bookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBookFields(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}

// ExistsByTitleAuthor checks if a book with the given title and author
// exists (case-insensitive).
func (r *bookRepository) ExistsByTitleAuthor(ctx context.Context, title, author string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM books WHERE title_key = $1 AND author_key = $2)`,
		repository.FoldCase(title), repository.FoldCase(author),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check book existence: %w", err)
	}
	return exists, nil
}

// SetActive sets the active flag of a book.
func (r *bookRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE books SET active = $1, updated_at = now() WHERE id = $2`

	tag, err := r.db.Pool.Exec(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("failed to set book activity: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// Reserve transitions an available book to Reserved for the given lender.
// The guard re-checks reserved = FALSE so two racing reservations cannot
// both succeed.
func (r *bookRepository) Reserve(ctx context.Context, bookID, lenderID int64) error {
	query := `
		UPDATE books
		SET reserved = TRUE, lender_id = $1, updated_at = now()
		WHERE id = $2 AND reserved = FALSE
	`

	tag, err := r.db.Pool.Exec(ctx, query, lenderID, bookID)
	if err != nil {
		return fmt.Errorf("failed to reserve book: %w", err)
	}

	return r.transitionOutcome(ctx, tag.RowsAffected(), bookID)
}

// CancelReservation clears a reservation that has not been handed over.
func (r *bookRepository) CancelReservation(ctx context.Context, bookID int64) error {
	query := `
		UPDATE books
		SET reserved = FALSE, lender_id = NULL, updated_at = now()
		WHERE id = $1 AND reserved = TRUE AND lent_out = FALSE
	`

	tag, err := r.db.Pool.Exec(ctx, query, bookID)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}

	return r.transitionOutcome(ctx, tag.RowsAffected(), bookID)
}

// MarkLentOut transitions a reserved book to LentOut with the given
// return date.
func (r *bookRepository) MarkLentOut(ctx context.Context, bookID int64, returnDate time.Time) error {
	query := `
		UPDATE books
		SET lent_out = TRUE, return_date = $1, updated_at = now()
		WHERE id = $2 AND reserved = TRUE AND lent_out = FALSE
	`

	tag, err := r.db.Pool.Exec(ctx, query, returnDate, bookID)
	if err != nil {
		return fmt.Errorf("failed to mark book lent out: %w", err)
	}

	return r.transitionOutcome(ctx, tag.RowsAffected(), bookID)
}

// ResetLending returns a book to the Available state.
func (r *bookRepository) ResetLending(ctx context.Context, bookID int64) error {
	query := `
		UPDATE books
		SET reserved = FALSE, lent_out = FALSE, lender_id = NULL, return_date = NULL, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, bookID)
	if err != nil {
		return fmt.Errorf("failed to reset book lending: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// Delete deletes a book unless it is reserved or lent out.
func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM books WHERE id = $1 AND reserved = FALSE AND lent_out = FALSE`

	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	return r.transitionOutcome(ctx, tag.RowsAffected(), id)
}

// transitionOutcome distinguishes "row missing" from "guard miss" when a
// guarded statement affected no rows.
func (r *bookRepository) transitionOutcome(ctx context.Context, rowsAffected int64, bookID int64) error {
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check book existence: %w", err)
	}
	if !exists {
		return domain.ErrBookNotFound
	}
	return repository.ErrStateConflict
}

func scanBook(row pgx.Row) (*domain.Book, error) {
	book := &domain.Book{}
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Description,
		&book.ImageURL,
		&book.Active,
		&book.Reserved,
		&book.LentOut,
		&book.ReturnDate,
		&book.OwnerID,
		&book.LenderID,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to scan book: %w", err)
	}
	return book, nil
}

func scanBookFields(rows pgx.Rows) (*domain.Book, error) {
	book := &domain.Book{}
	if err := rows.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Description,
		&book.ImageURL,
		&book.Active,
		&book.Reserved,
		&book.LentOut,
		&book.ReturnDate,
		&book.OwnerID,
		&book.LenderID,
		&book.CreatedAt,
		&book.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan book: %w", err)
	}
	return book, nil
}

// Ensure bookRepository implements repository.BookRepository.
var _ repository.BookRepository = (*bookRepository)(nil)
