package library

import "time"

// Clock supplies the current time to the Ledger. Injecting it keeps
// due-date computation and overdue detection testable against
// arbitrary dates.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
