package library

import "time"

// Role controls which administrative operations a user may perform.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// LoanStatus is the lifecycle state of a Loan. RETURNED is terminal;
// OVERDUE is a cached marker refreshed by Ledger.ReconcileOverdue.
type LoanStatus string

const (
	LoanIssued   LoanStatus = "ISSUED"
	LoanReturned LoanStatus = "RETURNED"
	LoanOverdue  LoanStatus = "OVERDUE"
)

// Book represents a title in the catalog together with its copy counts.
// AvailableCopies is only ever written by CatalogStore.AdjustAvailability
// and CatalogStore.UpdateTotalCopies so that it stays equal to
// TotalCopies minus the outstanding loans on the book.
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn,omitempty"`
	Category        string `json:"category,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	Description     string `json:"description,omitempty"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// User represents a registered library user.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Don't serialize password hash
	Role         Role   `json:"role"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user may perform administrative mutations.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Loan is a single borrowing record linking one user to one book copy.
// Loans are append-mostly: they are never deleted, only transitioned.
type Loan struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	BookID     int64      `json:"book_id"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     LoanStatus `json:"status"`
	FineAmount float64    `json:"fine_amount"`
	CreatedAt  time.Time
}

// LoanDetail is a Loan joined with borrower and book display fields.
type LoanDetail struct {
	Loan
	Username   string `json:"username"`
	BookTitle  string `json:"book_title"`
	BookAuthor string `json:"book_author"`
}

// OverdueAt reports whether the loan counts as overdue at the given
// instant. This live comparison is the canonical overdue predicate; the
// OVERDUE status value is merely a cache of it.
func (l *Loan) OverdueAt(now time.Time) bool {
	switch l.Status {
	case LoanOverdue:
		return true
	case LoanIssued:
		return dateOf(now).After(l.DueDate)
	default:
		return false
	}
}

// DaysOverdueAt returns how many whole days past due the loan is at the
// given instant, or 0 if it is not overdue.
func (l *Loan) DaysOverdueAt(now time.Time) int64 {
	if !l.OverdueAt(now) {
		return 0
	}
	return epochDay(now) - epochDay(l.DueDate)
}

// dateOf truncates an instant to its UTC calendar date. All loan dates
// are stored at this granularity.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// epochDay counts whole days since the Unix epoch.
func epochDay(t time.Time) int64 {
	return dateOf(t).Unix() / 86400
}

const dateLayout = "2006-01-02"
