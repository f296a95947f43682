package ledger

import (
	"context"

	"threepl/internal/core"
)

// Ports for ledger backends. Implementations must serialize writers against
// readers so that Months always returns a consistent snapshot.
type (
	Reader interface {
		// Months returns a deep copy of the ledger in order.
		Months(ctx context.Context) ([]core.MonthlyLedgerRecord, error)
		// Revision increases on every successful write.
		Revision(ctx context.Context) (uint64, error)
		// Snapshot returns the months together with the revision they were
		// read at, with no write in between.
		Snapshot(ctx context.Context) ([]core.MonthlyLedgerRecord, uint64, error)
	}

	Writer interface {
		SetAmount(ctx context.Context, index int, kind core.LineKind, category string, amount float64) error
		// AppendMonth adds a month at the end and returns its index.
		AppendMonth(ctx context.Context, rec core.MonthlyLedgerRecord) (int, error)
		// Replace swaps the whole ledger, e.g. after an import.
		Replace(ctx context.Context, recs []core.MonthlyLedgerRecord) error
	}

	Store interface {
		Reader
		Writer
	}
)
