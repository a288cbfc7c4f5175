package library

// Default circulation policy.
const (
	DefaultLoanPeriodDays = 14
	DefaultFinePerDay     = 1.00
)

// Library bundles the stores, the ledger and the reporting façade over
// one shared database, keeping caller code simple.
type Library struct {
	db *Database

	Catalog *CatalogStore
	Users   *MembershipStore
	Ledger  *Ledger
	Reports *Reports
}

// Open opens (or creates) the library database at dbPath and wires the
// components together with the system clock.
func Open(dbPath string, finePerDay float64) (*Library, error) {
	return OpenWithClock(dbPath, finePerDay, SystemClock{})
}

// OpenWithClock is Open with an injected clock, for callers that need
// deterministic dates.
func OpenWithClock(dbPath string, finePerDay float64, clock Clock) (*Library, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	return &Library{
		db:      db,
		Catalog: NewCatalogStore(db),
		Users:   NewMembershipStore(db),
		Ledger:  NewLedger(db, clock, finePerDay),
		Reports: NewReports(db, clock),
	}, nil
}

// Close closes the underlying database.
func (l *Library) Close() error { return l.db.Close() }

// Ping verifies the underlying store is reachable.
func (l *Library) Ping() error { return l.db.Ping() }
