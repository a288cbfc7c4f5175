package library

import "fmt"

// Metric is a single dashboard count. Available is false when the
// underlying read failed; the value is then meaningless and callers
// should render an explicit "unavailable" marker instead.
type Metric struct {
	Value     int64
	Available bool
}

func (m Metric) String() string {
	if !m.Available {
		return "unavailable"
	}
	return fmt.Sprintf("%d", m.Value)
}

// Summary is the read-only dashboard projection over the three stores.
type Summary struct {
	TotalBooks      Metric
	TotalCopies     Metric
	AvailableCopies Metric
	TotalUsers      Metric
	ActiveLoans     Metric
	OverdueLoans    Metric
}

// Reports aggregates read-only counts for external presentation layers.
// A failed read degrades that one metric instead of failing the whole
// summary, so a partially reachable store still yields a dashboard.
type Reports struct {
	db    *Database
	clock Clock
}

// NewReports creates a Reports façade backed by the given database.
func NewReports(db *Database, clock Clock) *Reports {
	return &Reports{db: db, clock: clock}
}

// Summary computes the dashboard counts. It never returns an error;
// unreachable metrics come back with Available=false.
func (r *Reports) Summary() Summary {
	today := dateOf(r.clock.Now()).Format(dateLayout)
	return Summary{
		TotalBooks:      r.count(`SELECT COUNT(*) FROM books`),
		TotalCopies:     r.count(`SELECT COALESCE(SUM(total_copies), 0) FROM books`),
		AvailableCopies: r.count(`SELECT COALESCE(SUM(available_copies), 0) FROM books`),
		TotalUsers:      r.count(`SELECT COUNT(*) FROM users`),
		ActiveLoans:     r.count(`SELECT COUNT(*) FROM loans WHERE status='ISSUED'`),
		OverdueLoans: r.count(`SELECT COUNT(*) FROM loans
            WHERE status='OVERDUE' OR (status='ISSUED' AND due_date < ?)`, today),
	}
}

func (r *Reports) count(query string, args ...any) Metric {
	var n int64
	if err := r.db.db.QueryRow(query, args...).Scan(&n); err != nil {
		return Metric{}
	}
	return Metric{Value: n, Available: true}
}
