package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prn-tf/lendery/internal/domain"
	"github.com/prn-tf/lendery/internal/repository"
)

// dateLayout is the storage format for return dates (date precision).
const dateLayout = "2006-01-02"

// bookRepository implements repository.BookRepository for SQLite.
type bookRepository struct {
	db *DB
}

// NewBookRepository creates a new SQLite book repository.
func NewBookRepository(db *DB) repository.BookRepository {
	return &bookRepository{db: db}
}

const bookColumns = `id, title, author, description, image_url, active, reserved, lent_out, return_date, owner_id, lender_id, created_at, updated_at`

// Create creates a new book.
func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	query := `
		INSERT INTO books (title, author, title_key, author_key, description, image_url, active, reserved, lent_out, return_date, owner_id, lender_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		book.Title,
		book.Author,
		repository.FoldCase(book.Title),
		repository.FoldCase(book.Author),
		book.Description,
		book.ImageURL,
		boolToInt(book.Active),
		boolToInt(book.Reserved),
		boolToInt(book.LentOut),
		formatDate(book.ReturnDate),
		book.OwnerID,
		book.LenderID,
		book.CreatedAt.Format(time.RFC3339),
		book.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: title and author already listed", domain.ErrBookAlreadyExists)
		}
		return fmt.Errorf("failed to create book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	book.ID = id

	return nil
}

// GetByID retrieves a book by ID.
func (r *bookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = ?`

	book, err := scanBookRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// List returns all books ordered by creation time.
func (r *bookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBookRow(rows)
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
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books WHERE title_key = ? AND author_key = ?`,
		repository.FoldCase(title), repository.FoldCase(author),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check book existence: %w", err)
	}
	return count > 0, nil
}

// SetActive sets the active flag of a book.
func (r *bookRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE books SET active = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, boolToInt(active), nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("failed to set book activity: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// Reserve transitions an available book to Reserved for the given lender.
// The guard re-checks reserved = 0 so two racing reservations cannot both
// succeed.
func (r *bookRepository) Reserve(ctx context.Context, bookID, lenderID int64) error {
	query := `
		UPDATE books
		SET reserved = 1, lender_id = ?, updated_at = ?
		WHERE id = ? AND reserved = 0
	`

	result, err := r.db.ExecContext(ctx, query, lenderID, nowRFC3339(), bookID)
	if err != nil {
		return fmt.Errorf("failed to reserve book: %w", err)
	}

	return r.transitionOutcome(ctx, result, bookID)
}

// CancelReservation clears a reservation that has not been handed over.
func (r *bookRepository) CancelReservation(ctx context.Context, bookID int64) error {
	query := `
		UPDATE books
		SET reserved = 0, lender_id = NULL, updated_at = ?
		WHERE id = ? AND reserved = 1 AND lent_out = 0
	`

	result, err := r.db.ExecContext(ctx, query, nowRFC3339(), bookID)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}

	return r.transitionOutcome(ctx, result, bookID)
}

// MarkLentOut transitions a reserved book to LentOut with the given
// return date.
func (r *bookRepository) MarkLentOut(ctx context.Context, bookID int64, returnDate time.Time) error {
	query := `
		UPDATE books
		SET lent_out = 1, return_date = ?, updated_at = ?
		WHERE id = ? AND reserved = 1 AND lent_out = 0
	`

	result, err := r.db.ExecContext(ctx, query, returnDate.Format(dateLayout), nowRFC3339(), bookID)
	if err != nil {
		return fmt.Errorf("failed to mark book lent out: %w", err)
	}

	return r.transitionOutcome(ctx, result, bookID)
}

// ResetLending returns a book to the Available state.
func (r *bookRepository) ResetLending(ctx context.Context, bookID int64) error {
	query := `
		UPDATE books
		SET reserved = 0, lent_out = 0, lender_id = NULL, return_date = NULL, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, nowRFC3339(), bookID)
	if err != nil {
		return fmt.Errorf("failed to reset book lending: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// Delete deletes a book unless it is reserved or lent out.
func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM books WHERE id = ? AND reserved = 0 AND lent_out = 0`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	return r.transitionOutcome(ctx, result, id)
}

// transitionOutcome distinguishes "row missing" from "guard miss" when a
// guarded statement affected no rows.
func (r *bookRepository) transitionOutcome(ctx context.Context, result sql.Result, bookID int64) error {
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		return nil
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE id = ?`, bookID).Scan(&count); err != nil {
		return fmt.Errorf("failed to check book existence: %w", err)
	}
	if count == 0 {
		return domain.ErrBookNotFound
	}
	return repository.ErrStateConflict
}

func scanBookRow(row rowScanner) (*domain.Book, error) {
	book := &domain.Book{}
	var active, reserved, lentOut int
	var returnDate sql.NullString
	var lenderID sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Description,
		&book.ImageURL,
		&active,
		&reserved,
		&lentOut,
		&returnDate,
		&book.OwnerID,
		&lenderID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan book: %w", err)
	}

	book.Active = active != 0
	book.Reserved = reserved != 0
	book.LentOut = lentOut != 0
	if returnDate.Valid {
		d, err := time.Parse(dateLayout, returnDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse return date: %w", err)
		}
		book.ReturnDate = &d
	}
	if lenderID.Valid {
		book.LenderID = &lenderID.Int64
	}
	book.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	book.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return book, nil
}

// formatDate renders a nullable date for storage.
func formatDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Ensure bookRepository implements repository.BookRepository.
var _ repository.BookRepository = (*bookRepository)(nil)
