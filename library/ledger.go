package library

import (
	"database/sql"
	"errors"
	"fmt"
)

// Ledger owns Loan records and the issue/return/overdue/fine logic.
// It is the only component that mutates a book's availability and a
// loan's status together, and it always does so in one transaction.
type Ledger struct {
	db         *Database
	clock      Clock
	finePerDay float64
}

// NewLedger creates a Ledger. finePerDay is the daily overdue penalty.
func NewLedger(db *Database, clock Clock, finePerDay float64) *Ledger {
	return &Ledger{db: db, clock: clock, finePerDay: finePerDay}
}

// FinePerDay returns the configured daily overdue penalty.
func (lg *Ledger) FinePerDay() float64 { return lg.finePerDay }

const loanColumns = `l.id, l.user_id, l.book_id, l.issue_date, l.due_date,
        l.return_date, l.status, l.fine_amount, l.created_at`

const loanDetailQuery = `SELECT ` + loanColumns + `,
        COALESCE(u.username, ''), COALESCE(b.title, ''), COALESCE(b.author, '')
        FROM loans l
        LEFT JOIN users u ON u.id = l.user_id
        LEFT JOIN books b ON b.id = l.book_id`

func scanLoan(row interface{ Scan(...any) error }) (*Loan, error) {
	var l Loan
	var returned sql.NullTime
	err := row.Scan(&l.ID, &l.UserID, &l.BookID, &l.IssueDate, &l.DueDate,
		&returned, &l.Status, &l.FineAmount, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if returned.Valid {
		t := returned.Time
		l.ReturnDate = &t
	}
	return &l, nil
}

// IssueLoan lends one copy of a book to a user for loanPeriodDays days
// and returns the new loan's id. The availability check and decrement
// run as a single atomic statement inside the loan transaction, so two
// callers racing for the last copy cannot both win: the loser gets
// ErrNotAvailable and no loan row is written.
func (lg *Ledger) IssueLoan(userID, bookID int64, loanPeriodDays int) (int64, error) {
	if loanPeriodDays <= 0 {
		return 0, fmt.Errorf("loan period %d days: %w", loanPeriodDays, ErrInvalidRange)
	}

	tx, err := lg.db.begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id=?)`, userID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	if err := adjustAvailability(tx, bookID, -1); err != nil {
		return 0, err
	}

	issued := dateOf(lg.clock.Now())
	due := issued.AddDate(0, 0, loanPeriodDays)

	res, err := tx.Exec(`INSERT INTO loans (user_id, book_id, issue_date, due_date, status)
        VALUES (?, ?, ?, ?, ?)`,
		userID, bookID, issued.Format(dateLayout), due.Format(dateLayout), LoanIssued)
	if err != nil {
		return 0, fmt.Errorf("insert loan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// ReturnLoan closes a loan: it records the return date, stores the final
// fine and gives the copy back to the catalog. The loan update and the
// availability increment commit together, so a failed update cannot
// leave a phantom extra copy.
func (lg *Ledger) ReturnLoan(loanID int64) (*Loan, error) {
	tx, err := lg.db.begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	loan, err := scanLoan(tx.QueryRow(`SELECT `+loanColumns+` FROM loans l WHERE l.id=?`, loanID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", loanID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	if loan.Status == LoanReturned {
		return nil, fmt.Errorf("loan %d: %w", loanID, ErrAlreadyReturned)
	}

	now := lg.clock.Now()
	returned := dateOf(now)
	fine := lg.CalculateFine(loan)

	// Conditioned on the loan not being RETURNED yet, in case another
	// return committed between our read and this write.
	res, err := tx.Exec(`UPDATE loans SET return_date=?, status=?, fine_amount=?
        WHERE id=? AND status != ?`,
		returned.Format(dateLayout), LoanReturned, fine, loanID, LoanReturned)
	if err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("loan %d: %w", loanID, ErrAlreadyReturned)
	}

	if err := adjustAvailability(tx, loan.BookID, +1); err != nil {
		// The copy count is bounded above by total_copies, so the only
		// increment failure left is a vanished book row.
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	loan.Status = LoanReturned
	loan.ReturnDate = &returned
	loan.FineAmount = fine
	return loan, nil
}

// ReconcileOverdue transitions ISSUED loans whose due date has passed to
// OVERDUE and reports how many changed. It is idempotent, never touches
// availability (the copy stays out either way), and cannot clobber a
// concurrent return because the write is conditioned on status ISSUED.
func (lg *Ledger) ReconcileOverdue() (int64, error) {
	today := dateOf(lg.clock.Now()).Format(dateLayout)
	res, err := lg.db.db.Exec(`UPDATE loans SET status=? WHERE status=? AND due_date < ?`,
		LoanOverdue, LoanIssued, today)
	if err != nil {
		return 0, fmt.Errorf("reconcile overdue: %w", err)
	}
	return res.RowsAffected()
}

// CalculateFine computes the fine a loan has accrued as of now. It is a
// pure function of the loan, the clock and the configured rate: overdue
// days times the daily rate, floored at zero. Nothing is written.
func (lg *Ledger) CalculateFine(l *Loan) float64 {
	days := l.DaysOverdueAt(lg.clock.Now())
	if days <= 0 {
		return 0
	}
	return float64(days) * lg.finePerDay
}

// Get fetches a single loan by id.
func (lg *Ledger) Get(loanID int64) (*Loan, error) {
	loan, err := scanLoan(lg.db.db.QueryRow(`SELECT `+loanColumns+` FROM loans l WHERE l.id=?`, loanID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", loanID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return loan, nil
}

// Loans returns every loan, newest first.
func (lg *Ledger) Loans() ([]*LoanDetail, error) {
	return lg.queryLoans(loanDetailQuery + ` ORDER BY l.created_at DESC, l.id DESC`)
}

// ActiveLoans returns loans currently in status ISSUED.
func (lg *Ledger) ActiveLoans() ([]*LoanDetail, error) {
	return lg.queryLoans(loanDetailQuery+` WHERE l.status=? ORDER BY l.due_date`, LoanIssued)
}

// OverdueLoans returns loans that are overdue right now under the
// canonical predicate: already marked OVERDUE, or still ISSUED with a
// due date in the past.
func (lg *Ledger) OverdueLoans() ([]*LoanDetail, error) {
	today := dateOf(lg.clock.Now()).Format(dateLayout)
	return lg.queryLoans(loanDetailQuery+` WHERE l.status=? OR (l.status=? AND l.due_date < ?)
        ORDER BY l.due_date`, LoanOverdue, LoanIssued, today)
}

// LoansForUser returns a user's loans, newest first.
func (lg *Ledger) LoansForUser(userID int64) ([]*LoanDetail, error) {
	return lg.queryLoans(loanDetailQuery+` WHERE l.user_id=? ORDER BY l.created_at DESC, l.id DESC`, userID)
}

// LoansForBook returns a book's loans, newest first.
func (lg *Ledger) LoansForBook(bookID int64) ([]*LoanDetail, error) {
	return lg.queryLoans(loanDetailQuery+` WHERE l.book_id=? ORDER BY l.created_at DESC, l.id DESC`, bookID)
}

// SearchLoans matches the term against borrower username, book title and
// book author.
func (lg *Ledger) SearchLoans(term string) ([]*LoanDetail, error) {
	pattern := "%" + term + "%"
	return lg.queryLoans(loanDetailQuery+` WHERE u.username LIKE ? OR b.title LIKE ? OR b.author LIKE ?
        ORDER BY l.created_at DESC, l.id DESC`, pattern, pattern, pattern)
}

func (lg *Ledger) queryLoans(query string, args ...any) ([]*LoanDetail, error) {
	rows, err := lg.db.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var loans []*LoanDetail
	for rows.Next() {
		var d LoanDetail
		var returned sql.NullTime
		err := rows.Scan(&d.ID, &d.UserID, &d.BookID, &d.IssueDate, &d.DueDate,
			&returned, &d.Status, &d.FineAmount, &d.CreatedAt,
			&d.Username, &d.BookTitle, &d.BookAuthor)
		if err != nil {
			return nil, err
		}
		if returned.Valid {
			t := returned.Time
			d.ReturnDate = &t
		}
		loans = append(loans, &d)
	}
	return loans, rows.Err()
}
