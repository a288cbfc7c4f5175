package library

import (
	"errors"
	"path/filepath"
	"testing"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func addBook(t *testing.T, db *Database, title string, copies int) int64 {
	t.Helper()
	id, err := NewCatalogStore(db).Create(&Book{Title: title, Author: "Author", TotalCopies: copies})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	return id
}

// checkInvariant verifies available_copies == total_copies minus the
// outstanding (ISSUED/OVERDUE) loans on the book.
func checkInvariant(t *testing.T, db *Database, bookID int64) {
	t.Helper()
	b, err := NewCatalogStore(db).Get(bookID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	var out int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM loans WHERE book_id=? AND status IN ('ISSUED','OVERDUE')`, bookID).Scan(&out); err != nil {
		t.Fatalf("count outstanding: %v", err)
	}
	if b.AvailableCopies != b.TotalCopies-out {
		t.Fatalf("invariant broken: available=%d total=%d outstanding=%d",
			b.AvailableCopies, b.TotalCopies, out)
	}
}

func TestCreateBookStartsFullyAvailable(t *testing.T) {
	db := tempDB(t)
	cat := NewCatalogStore(db)

	id, err := cat.Create(&Book{
		Title: "The Go Programming Language", Author: "Donovan & Kernighan",
		ISBN: "978-0134190440", Category: "Programming", Publisher: "Addison-Wesley",
		PublicationYear: 2015, TotalCopies: 3, Description: "Reference",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	b, err := cat.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.AvailableCopies != 3 || b.TotalCopies != 3 {
		t.Fatalf("want 3/3 copies, got %d/%d", b.AvailableCopies, b.TotalCopies)
	}
	if b.Category != "Programming" || b.PublicationYear != 2015 {
		t.Fatalf("attributes not persisted: %+v", b)
	}
}

func TestCreateBookValidation(t *testing.T) {
	db := tempDB(t)
	cat := NewCatalogStore(db)

	if _, err := cat.Create(&Book{Title: "  ", Author: "A", TotalCopies: 1}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("empty title: want ErrInvalidRange, got %v", err)
	}
	if _, err := cat.Create(&Book{Title: "T", Author: "A", TotalCopies: -1}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("negative copies: want ErrInvalidRange, got %v", err)
	}
}

func TestGetMissingBook(t *testing.T) {
	db := tempDB(t)
	if _, err := NewCatalogStore(db).Get(404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAdjustAvailabilityClamps(t *testing.T) {
	db := tempDB(t)
	cat := NewCatalogStore(db)
	id := addBook(t, db, "Clamped", 1)

	if err := cat.AdjustAvailability(id, -1); err != nil {
		t.Fatalf("decrement to zero: %v", err)
	}
	if err := cat.AdjustAvailability(id, -1); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("decrement below zero: want ErrNotAvailable, got %v", err)
	}

	// Increments clamp at total_copies instead of failing.
	if err := cat.AdjustAvailability(id, +5); err != nil {
		t.Fatalf("increment: %v", err)
	}
	b, _ := cat.Get(id)
	if b.AvailableCopies != 1 {
		t.Fatalf("want clamp at 1, got %d", b.AvailableCopies)
	}

	if err := cat.AdjustAvailability(404, -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing book: want ErrNotFound, got %v", err)
	}
}

func TestUpdateTotalCopiesRederivesAvailability(t *testing.T) {
	db := tempDB(t)
	cat := NewCatalogStore(db)
	id := addBook(t, db, "Resize Me", 3)

	// Two copies out on loan.
	if err := cat.AdjustAvailability(id, -2); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	tests := []struct {
		name          string
		newTotal      int
		wantAvailable int
	}{
		{"grow", 5, 3},
		{"shrink", 3, 1},
		{"shrink below outstanding clamps to zero", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cat.UpdateTotalCopies(id, tt.newTotal); err != nil {
				t.Fatalf("update total: %v", err)
			}
			b, _ := cat.Get(id)
			if b.TotalCopies != tt.newTotal || b.AvailableCopies != tt.wantAvailable {
				t.Fatalf("want %d/%d, got %d/%d",
					tt.wantAvailable, tt.newTotal, b.AvailableCopies, b.TotalCopies)
			}
		})
	}

	if err := cat.UpdateTotalCopies(id, -2); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("negative total: want ErrInvalidRange, got %v", err)
	}
	if err := cat.UpdateTotalCopies(404, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing book: want ErrNotFound, got %v", err)
	}
}

func TestUpdateLeavesCopyCountsAlone(t *testing.T) {
	db := tempDB(t)
	cat := NewCatalogStore(db)
	id := addBook(t, db, "Immutable Counts", 2)

	b, _ := cat.Get(id)
	b.Title = "Renamed"
	b.TotalCopies = 99
	b.AvailableCopies = 99
	if err := cat.Update(b); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := cat.Get(id)
	if got.Title != "Renamed" {
		t.Fatalf("title not updated")
	}
	if got.TotalCopies != 2 || got.AvailableCopies != 2 {
		t.Fatalf("copy counts must not change via Update, got %d/%d",
			got.AvailableCopies, got.TotalCopies)
	}
}

func TestDeleteBookBlockedByOutstandingLoan(t *testing.T) {
	db := tempDB(t)
	cat := NewCatalogStore(db)
	ledger := NewLedger(db, SystemClock{}, DefaultFinePerDay)

	bookID := addBook(t, db, "Wanted", 1)
	userID := addUser(t, db, "alice")

	loanID, err := ledger.IssueLoan(userID, bookID, 14)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := cat.Delete(bookID); !errors.Is(err, ErrHasActiveLoans) {
		t.Fatalf("want ErrHasActiveLoans, got %v", err)
	}

	if _, err := ledger.ReturnLoan(loanID); err != nil {
		t.Fatalf("return: %v", err)
	}
	// Historical RETURNED loans don't block deletion.
	if err := cat.Delete(bookID); err != nil {
		t.Fatalf("delete after return: %v", err)
	}
	if err := cat.Delete(bookID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestSearchAndCategories(t *testing.T) {
	db := tempDB(t)
	cat := NewCatalogStore(db)

	books := []*Book{
		{Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction", TotalCopies: 1},
		{Title: "Dune Messiah", Author: "Frank Herbert", Category: "Science Fiction", TotalCopies: 1},
		{Title: "SICP", Author: "Abelson & Sussman", Category: "Programming", TotalCopies: 1},
	}
	for _, b := range books {
		if _, err := cat.Create(b); err != nil {
			t.Fatalf("create %q: %v", b.Title, err)
		}
	}

	res, err := cat.Search("Dune")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("want 2 results, got %d", len(res))
	}

	cats, err := cat.Categories()
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "Programming" || cats[1] != "Science Fiction" {
		t.Fatalf("unexpected categories: %v", cats)
	}

	sf, err := cat.ByCategory("Science Fiction")
	if err != nil {
		t.Fatalf("by category: %v", err)
	}
	if len(sf) != 2 {
		t.Fatalf("want 2 science fiction books, got %d", len(sf))
	}
}

func TestAvailableListing(t *testing.T) {
	db := tempDB(t)
	cat := NewCatalogStore(db)

	a := addBook(t, db, "All Out", 1)
	addBook(t, db, "On Shelf", 1)

	if err := cat.AdjustAvailability(a, -1); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	avail, err := cat.Available()
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(avail) != 1 || avail[0].Title != "On Shelf" {
		t.Fatalf("unexpected available listing: %v", avail)
	}
}
