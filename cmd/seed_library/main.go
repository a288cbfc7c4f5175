// Command seed_library resets the database and loads a starter catalog
// plus an admin account, for demos and local development.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/RKROGHAN/Library-Management/library"
)

func main() {
	_ = godotenv.Load()

	dbPath := os.Getenv("LIBRARY_DB")
	if dbPath == "" {
		dbPath = "library.db"
	}

	// Start from a clean slate, including SQLite's sidecar files.
	for _, f := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			log.Fatalf("remove %s: %v", f, err)
		}
	}

	lib, err := library.Open(dbPath, library.DefaultFinePerDay)
	if err != nil {
		log.Fatalf("open library: %v", err)
	}
	defer lib.Close()

	seedUsers(lib)
	seedBooks(lib)

	fmt.Printf("Seeded %s.\n", dbPath)
}

func seedUsers(lib *library.Library) {
	users := []struct {
		user     library.User
		password string
	}{
		{library.User{Username: "admin", Role: library.RoleAdmin, Email: "admin@library.local"}, "admin123"},
		{library.User{Username: "alice", Role: library.RoleMember, Email: "alice@example.com", Phone: "555-0101"}, "alice123"},
		{library.User{Username: "bob", Role: library.RoleMember, Email: "bob@example.com", Phone: "555-0102"}, "bob123"},
	}
	for i := range users {
		id, err := lib.Users.Create(&users[i].user, users[i].password)
		if err != nil {
			log.Fatalf("seed user %s: %v", users[i].user.Username, err)
		}
		fmt.Printf("  user %-8s id=%d role=%s\n", users[i].user.Username, id, users[i].user.Role)
	}
}

func seedBooks(lib *library.Library) {
	books := []library.Book{
		{Title: "The Go Programming Language", Author: "Alan A. A. Donovan", ISBN: "978-0134190440",
			Category: "Programming", Publisher: "Addison-Wesley", PublicationYear: 2015, TotalCopies: 3,
			Description: "The authoritative resource for any programmer who wants to learn Go."},
		{Title: "Clean Code", Author: "Robert C. Martin", ISBN: "978-0132350884",
			Category: "Programming", Publisher: "Prentice Hall", PublicationYear: 2008, TotalCopies: 2,
			Description: "A handbook of agile software craftsmanship."},
		{Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441172719",
			Category: "Science Fiction", Publisher: "Ace", PublicationYear: 1965, TotalCopies: 4,
			Description: "Paul Atreides and the desert planet Arrakis."},
		{Title: "Foundation", Author: "Isaac Asimov", ISBN: "978-0553293357",
			Category: "Science Fiction", Publisher: "Spectra", PublicationYear: 1951, TotalCopies: 2,
			Description: "The fall and rebirth of a galactic empire."},
		{Title: "A Brief History of Time", Author: "Stephen Hawking", ISBN: "978-0553380163",
			Category: "Science", Publisher: "Bantam", PublicationYear: 1988, TotalCopies: 2,
			Description: "From the Big Bang to black holes."},
		{Title: "The Pragmatic Programmer", Author: "David Thomas", ISBN: "978-0135957059",
			Category: "Programming", Publisher: "Addison-Wesley", PublicationYear: 2019, TotalCopies: 3,
			Description: "Your journey to mastery, 20th anniversary edition."},
	}
	for i := range books {
		id, err := lib.Catalog.Create(&books[i])
		if err != nil {
			log.Fatalf("seed book %q: %v", books[i].Title, err)
		}
		fmt.Printf("  book %-35q id=%d copies=%d\n", books[i].Title, id, books[i].TotalCopies)
	}
}
