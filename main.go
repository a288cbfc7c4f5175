package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/RKROGHAN/Library-Management/library"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		// Per-call conditions get a friendly line; cobra already printed it.
		os.Exit(1)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openLibrary() (*library.Library, error) {
	finePerDay := library.DefaultFinePerDay
	if v := os.Getenv("LIBRARY_FINE_PER_DAY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("LIBRARY_FINE_PER_DAY %q: %w", v, err)
		}
		finePerDay = f
	}
	return library.Open(getenv("LIBRARY_DB", "library.db"), finePerDay)
}

func defaultLoanDays() int {
	if v := os.Getenv("LIBRARY_LOAN_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("ignoring bad LIBRARY_LOAN_DAYS %q", v)
	}
	return library.DefaultLoanPeriodDays
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return string(bytePassword), nil
}

// requireAdmin is the capability check in front of administrative
// mutations. Credentials come from LIBRARY_ADMIN_USER/_PASSWORD when
// set (scripts, tests), otherwise from an interactive prompt.
func requireAdmin(lib *library.Library) error {
	username := os.Getenv("LIBRARY_ADMIN_USER")
	password := os.Getenv("LIBRARY_ADMIN_PASSWORD")

	if username == "" {
		fmt.Print("Admin username: ")
		if _, err := fmt.Scanln(&username); err != nil {
			return fmt.Errorf("read username: %w", err)
		}
	}
	if password == "" {
		var err error
		password, err = readPassword("Admin password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	u, err := lib.Users.Authenticate(username, password)
	if err != nil {
		return fmt.Errorf("admin authentication failed")
	}
	if !u.IsAdmin() {
		return fmt.Errorf("user %q is not an administrator", username)
	}
	return nil
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library-management",
		Short:         "Library circulation ledger and catalog administration",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newBookCmd(), newUserCmd(), newIssueCmd(), newReturnCmd(),
		newReconcileCmd(), newLoansCmd(), newReportCmd())
	return root
}

// ------------------ book ------------------

func newBookCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Catalog administration"}

	var b library.Book
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			if err := requireAdmin(lib); err != nil {
				return err
			}
			id, err := lib.Catalog.Create(&b)
			if err != nil {
				return err
			}
			fmt.Printf("Added book ID %d (%d copies).\n", id, b.TotalCopies)
			return nil
		},
	}
	add.Flags().StringVar(&b.Title, "title", "", "book title (required)")
	add.Flags().StringVar(&b.Author, "author", "", "book author (required)")
	add.Flags().StringVar(&b.ISBN, "isbn", "", "ISBN")
	add.Flags().StringVar(&b.Category, "category", "", "category")
	add.Flags().StringVar(&b.Publisher, "publisher", "", "publisher")
	add.Flags().IntVar(&b.PublicationYear, "year", 0, "publication year")
	add.Flags().IntVar(&b.TotalCopies, "copies", 1, "number of copies")
	add.Flags().StringVar(&b.Description, "description", "", "description")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("author")

	var onlyAvailable bool
	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List books",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			var books []*library.Book
			switch {
			case onlyAvailable:
				books, err = lib.Catalog.Available()
			case category != "":
				books, err = lib.Catalog.ByCategory(category)
			default:
				books, err = lib.Catalog.List()
			}
			if err != nil {
				return err
			}
			printBooks(books)
			return nil
		},
	}
	list.Flags().BoolVar(&onlyAvailable, "available", false, "only books with free copies")
	list.Flags().StringVar(&category, "category", "", "only books in this category")

	search := &cobra.Command{
		Use:   "search TERM",
		Short: "Search books by title, author or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			books, err := lib.Catalog.Search(args[0])
			if err != nil {
				return err
			}
			printBooks(books)
			return nil
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			cats, err := lib.Catalog.Categories()
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Println(c)
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm BOOK_ID",
		Short: "Delete a book (refused while copies are on loan)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			if err := requireAdmin(lib); err != nil {
				return err
			}
			if err := lib.Catalog.Delete(id); err != nil {
				return err
			}
			fmt.Printf("Deleted book %d.\n", id)
			return nil
		},
	}

	setCopies := &cobra.Command{
		Use:   "set-copies BOOK_ID N",
		Short: "Resize a book's total copy count",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid copy count %q", args[1])
			}
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			if err := requireAdmin(lib); err != nil {
				return err
			}
			if err := lib.Catalog.UpdateTotalCopies(id, n); err != nil {
				return err
			}
			fmt.Printf("Book %d now has %d total copies.\n", id, n)
			return nil
		},
	}

	cmd.AddCommand(add, list, search, categories, rm, setCopies)
	return cmd
}

func printBooks(books []*library.Book) {
	if len(books) == 0 {
		fmt.Println("No books found.")
		return
	}
	fmt.Printf("%-5s %-35s %-25s %-20s %s\n", "ID", "Title", "Author", "Category", "Copies")
	for _, b := range books {
		fmt.Printf("%-5d %-35s %-25s %-20s %d/%d\n",
			b.ID, b.Title, b.Author, b.Category, b.AvailableCopies, b.TotalCopies)
	}
}

// ------------------ user ------------------

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Membership administration"}

	var u library.User
	var role string
	add := &cobra.Command{
		Use:   "add USERNAME",
		Short: "Register a user (prompts for their password)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			if err := requireAdmin(lib); err != nil {
				return err
			}

			u.Username = args[0]
			u.Role = library.Role(role)
			password, err := readPassword(fmt.Sprintf("Password for %s: ", u.Username))
			if err != nil {
				return err
			}
			id, err := lib.Users.Create(&u, password)
			if err != nil {
				return err
			}
			fmt.Printf("Added user ID %d (%s).\n", id, u.Role)
			return nil
		},
	}
	add.Flags().StringVar(&role, "role", string(library.RoleMember), "ADMIN or MEMBER")
	add.Flags().StringVar(&u.Email, "email", "", "email address")
	add.Flags().StringVar(&u.Phone, "phone", "", "phone number")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			users, err := lib.Users.List()
			if err != nil {
				return err
			}
			fmt.Printf("%-5s %-20s %-8s %s\n", "ID", "Username", "Role", "Email")
			for _, u := range users {
				fmt.Printf("%-5d %-20s %-8s %s\n", u.ID, u.Username, u.Role, u.Email)
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm USER_ID",
		Short: "Delete a user (refused while they hold loans)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			if err := requireAdmin(lib); err != nil {
				return err
			}
			if err := lib.Users.Delete(id); err != nil {
				return err
			}
			fmt.Printf("Deleted user %d.\n", id)
			return nil
		},
	}

	passwd := &cobra.Command{
		Use:   "passwd USER_ID",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			if err := requireAdmin(lib); err != nil {
				return err
			}
			password, err := readPassword("New password: ")
			if err != nil {
				return err
			}
			if err := lib.Users.SetPassword(id, password); err != nil {
				return err
			}
			fmt.Printf("Password updated for user %d.\n", id)
			return nil
		},
	}

	cmd.AddCommand(add, list, rm, passwd)
	return cmd
}

// ------------------ circulation ------------------

func newIssueCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "issue USER_ID BOOK_ID",
		Short: "Issue a copy of a book to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			bookID, err := parseID(args[1], "book")
			if err != nil {
				return err
			}
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			if days == 0 {
				days = defaultLoanDays()
			}
			loanID, err := lib.Ledger.IssueLoan(userID, bookID, days)
			if err != nil {
				if errors.Is(err, library.ErrNotAvailable) {
					return fmt.Errorf("no copies of book %d are available right now", bookID)
				}
				return err
			}
			fmt.Printf("Issued loan %d: user %d has book %d for %d days.\n", loanID, userID, bookID, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "loan period in days (default from LIBRARY_LOAN_DAYS)")
	return cmd
}

func newReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return LOAN_ID",
		Short: "Return a loaned copy and settle its fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loanID, err := parseID(args[0], "loan")
			if err != nil {
				return err
			}
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			loan, err := lib.Ledger.ReturnLoan(loanID)
			if err != nil {
				if errors.Is(err, library.ErrAlreadyReturned) {
					return fmt.Errorf("loan %d was already returned", loanID)
				}
				return err
			}
			if loan.FineAmount > 0 {
				fmt.Printf("Returned loan %d. Fine due: %.2f\n", loanID, loan.FineAmount)
			} else {
				fmt.Printf("Returned loan %d. No fine.\n", loanID)
			}
			return nil
		},
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Sweep past-due loans into OVERDUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			n, err := lib.Ledger.ReconcileOverdue()
			if err != nil {
				return err
			}
			log.Printf("reconcile: %d loans marked overdue", n)
			return nil
		},
	}
}

func newLoansCmd() *cobra.Command {
	var active, overdue bool
	var userID, bookID int64
	var search string
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			var loans []*library.LoanDetail
			switch {
			case active:
				loans, err = lib.Ledger.ActiveLoans()
			case overdue:
				loans, err = lib.Ledger.OverdueLoans()
			case userID != 0:
				loans, err = lib.Ledger.LoansForUser(userID)
			case bookID != 0:
				loans, err = lib.Ledger.LoansForBook(bookID)
			case search != "":
				loans, err = lib.Ledger.SearchLoans(search)
			default:
				loans, err = lib.Ledger.Loans()
			}
			if err != nil {
				return err
			}
			printLoans(loans)
			return nil
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "only ISSUED loans")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only overdue loans")
	cmd.Flags().Int64Var(&userID, "user", 0, "loans for this user id")
	cmd.Flags().Int64Var(&bookID, "book", 0, "loans for this book id")
	cmd.Flags().StringVar(&search, "search", "", "match borrower, title or author")
	return cmd
}

func printLoans(loans []*library.LoanDetail) {
	if len(loans) == 0 {
		fmt.Println("No loans found.")
		return
	}
	fmt.Printf("%-5s %-15s %-30s %-10s %-12s %-12s %s\n",
		"ID", "Borrower", "Title", "Status", "Issued", "Due", "Fine")
	for _, l := range loans {
		fmt.Printf("%-5d %-15s %-30s %-10s %-12s %-12s %.2f\n",
			l.ID, l.Username, l.BookTitle, l.Status,
			l.IssueDate.Format("2006-01-02"), l.DueDate.Format("2006-01-02"), l.FineAmount)
	}
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show the circulation dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()

			s := lib.Reports.Summary()
			fmt.Printf("Books:            %s\n", s.TotalBooks)
			fmt.Printf("Copies (total):   %s\n", s.TotalCopies)
			fmt.Printf("Copies available: %s\n", s.AvailableCopies)
			fmt.Printf("Users:            %s\n", s.TotalUsers)
			fmt.Printf("Active loans:     %s\n", s.ActiveLoans)
			fmt.Printf("Overdue loans:    %s\n", s.OverdueLoans)
			return nil
		},
	}
}
