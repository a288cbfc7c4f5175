package library

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CatalogStore holds Book records and their copy counts.
type CatalogStore struct {
	db *Database
}

// NewCatalogStore creates a CatalogStore backed by the given database.
func NewCatalogStore(db *Database) *CatalogStore {
	return &CatalogStore{db: db}
}

const bookColumns = `id, title, author, isbn, category, publisher,
        COALESCE(publication_year, 0), total_copies, available_copies,
        description, created_at, updated_at`

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category,
		&b.Publisher, &b.PublicationYear, &b.TotalCopies, &b.AvailableCopies,
		&b.Description, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *CatalogStore) queryBooks(query string, args ...any) ([]*Book, error) {
	rows, err := s.db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Create inserts a new book. A new book has no outstanding loans, so its
// available count always starts equal to its total count.
func (s *CatalogStore) Create(b *Book) (int64, error) {
	if strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.Author) == "" {
		return 0, fmt.Errorf("title and author are required: %w", ErrInvalidRange)
	}
	if b.TotalCopies < 0 {
		return 0, fmt.Errorf("total copies %d: %w", b.TotalCopies, ErrInvalidRange)
	}

	res, err := s.db.db.Exec(`INSERT INTO books
        (title, author, isbn, category, publisher, publication_year, total_copies, available_copies, description)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Author, b.ISBN, b.Category, b.Publisher,
		nullableYear(b.PublicationYear), b.TotalCopies, b.TotalCopies, b.Description)
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	b.ID = id
	b.AvailableCopies = b.TotalCopies
	return id, nil
}

// Get fetches a single book by id.
func (s *CatalogStore) Get(id int64) (*Book, error) {
	b, err := scanBook(s.db.db.QueryRow(`SELECT `+bookColumns+` FROM books WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// List returns all books ordered by title.
func (s *CatalogStore) List() ([]*Book, error) {
	return s.queryBooks(`SELECT ` + bookColumns + ` FROM books ORDER BY title`)
}

// Available returns books with at least one free copy.
func (s *CatalogStore) Available() ([]*Book, error) {
	return s.queryBooks(`SELECT ` + bookColumns + ` FROM books WHERE available_copies > 0 ORDER BY title`)
}

// Search matches the term against title, author and category.
func (s *CatalogStore) Search(term string) ([]*Book, error) {
	pattern := "%" + term + "%"
	return s.queryBooks(`SELECT `+bookColumns+` FROM books
        WHERE title LIKE ? OR author LIKE ? OR category LIKE ? ORDER BY title`,
		pattern, pattern, pattern)
}

// ByCategory returns books in the given category.
func (s *CatalogStore) ByCategory(category string) ([]*Book, error) {
	return s.queryBooks(`SELECT `+bookColumns+` FROM books WHERE category=? ORDER BY title`, category)
}

// Categories returns the distinct non-empty categories in the catalog.
func (s *CatalogStore) Categories() ([]string, error) {
	rows, err := s.db.db.Query(`SELECT DISTINCT category FROM books WHERE category != '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Update rewrites a book's descriptive fields. Copy counts are not
// touched here: available_copies belongs to AdjustAvailability and
// total_copies to UpdateTotalCopies, which preserve the loan invariant.
func (s *CatalogStore) Update(b *Book) error {
	if strings.TrimSpace(b.Title) == "" || strings.TrimSpace(b.Author) == "" {
		return fmt.Errorf("title and author are required: %w", ErrInvalidRange)
	}
	res, err := s.db.db.Exec(`UPDATE books
        SET title=?, author=?, isbn=?, category=?, publisher=?, publication_year=?,
            description=?, updated_at=CURRENT_TIMESTAMP
        WHERE id=?`,
		b.Title, b.Author, b.ISBN, b.Category, b.Publisher,
		nullableYear(b.PublicationYear), b.Description, b.ID)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("book %d: %w", b.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a book. Books with outstanding loans cannot be deleted;
// the active-loan check runs inside the delete transaction so no loan can
// be issued between the check and the delete.
func (s *CatalogStore) Delete(id int64) error {
	tx, err := s.db.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	active, err := countActiveLoans(tx, `book_id`, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("book %d has %d outstanding loans: %w", id, active, ErrHasActiveLoans)
	}

	res, err := tx.Exec(`DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// AdjustAvailability changes available_copies by delta as one atomic
// statement. It is the only mutator of that column. A decrement that
// would drive the count negative is rejected with ErrNotAvailable; an
// increment is clamped to total_copies.
func (s *CatalogStore) AdjustAvailability(bookID int64, delta int) error {
	return adjustAvailability(s.db.db, bookID, delta)
}

func adjustAvailability(q dbtx, bookID int64, delta int) error {
	res, err := q.Exec(`UPDATE books
        SET available_copies = MIN(available_copies + ?, total_copies),
            updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND available_copies + ? >= 0`,
		delta, bookID, delta)
	if err != nil {
		return fmt.Errorf("adjust availability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := q.QueryRow(`SELECT EXISTS(SELECT 1 FROM books WHERE id=?)`, bookID).Scan(&exists); err != nil {
			return fmt.Errorf("check book: %w", err)
		}
		if !exists {
			return fmt.Errorf("book %d: %w", bookID, ErrNotFound)
		}
		return fmt.Errorf("book %d: %w", bookID, ErrNotAvailable)
	}
	return nil
}

// UpdateTotalCopies resizes the collection administratively. The new
// available count is re-derived by the same difference rule the loan
// invariant uses: available += newTotal - oldTotal, clamped to
// [0, newTotal].
func (s *CatalogStore) UpdateTotalCopies(bookID int64, newTotal int) error {
	if newTotal < 0 {
		return fmt.Errorf("total copies %d: %w", newTotal, ErrInvalidRange)
	}

	tx, err := s.db.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var total, available int
	err = tx.QueryRow(`SELECT total_copies, available_copies FROM books WHERE id=?`, bookID).
		Scan(&total, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("book %d: %w", bookID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read copies: %w", err)
	}

	available += newTotal - total
	if available < 0 {
		available = 0
	}
	if available > newTotal {
		available = newTotal
	}

	if _, err := tx.Exec(`UPDATE books
        SET total_copies=?, available_copies=?, updated_at=CURRENT_TIMESTAMP
        WHERE id=?`, newTotal, available, bookID); err != nil {
		return fmt.Errorf("update copies: %w", err)
	}
	return tx.Commit()
}

// nullableYear maps the zero year to NULL so unknown stays unknown.
func nullableYear(year int) any {
	if year == 0 {
		return nil
	}
	return year
}

// countActiveLoans counts ISSUED/OVERDUE loans matching column=id.
// column is always a compile-time constant.
func countActiveLoans(q dbtx, column string, id int64) (int, error) {
	var n int
	err := q.QueryRow(`SELECT COUNT(*) FROM loans
        WHERE `+column+` = ? AND status IN ('ISSUED','OVERDUE')`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active loans: %w", err)
	}
	return n, nil
}
