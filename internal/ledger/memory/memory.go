package memory

import (
	"context"
	"fmt"
	"sync"

	"threepl/internal/core"
	"threepl/internal/ledger"
)

var _ ledger.Store = (*Book)(nil)

// Book is a caller-owned in-memory ledger guarded by a single-writer lock.
type Book struct {
	mu       sync.RWMutex
	months   []core.MonthlyLedgerRecord
	revision uint64
}

func New(recs []core.MonthlyLedgerRecord) *Book {
	return &Book{months: core.CloneLedger(recs)}
}

func (b *Book) Months(_ context.Context) ([]core.MonthlyLedgerRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return core.CloneLedger(b.months), nil
}

func (b *Book) Revision(_ context.Context) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision, nil
}

func (b *Book) Snapshot(_ context.Context) ([]core.MonthlyLedgerRecord, uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return core.CloneLedger(b.months), b.revision, nil
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.months)
}

// SetAmount overwrites one category of one month.
func (b *Book) SetAmount(_ context.Context, index int, kind core.LineKind, category string, amount float64) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if category == "" {
		return core.ErrEmptyCategory
	}
	if err := core.ValidateAmount(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := core.CheckIndex(index, len(b.months)); err != nil {
		return err
	}
	rec := &b.months[index]
	items := rec.Items(kind)
	if items == nil {
		items = map[string]float64{}
		if kind == core.KindRevenue {
			rec.Revenue = items
		} else {
			rec.Costs = items
		}
	}
	items[category] = amount
	b.revision++
	return nil
}

func (b *Book) AppendMonth(_ context.Context, rec core.MonthlyLedgerRecord) (int, error) {
	if err := rec.Validate(); err != nil {
		return 0, fmt.Errorf("append month %q: %w", rec.Month, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.months = append(b.months, rec.Clone())
	b.revision++
	return len(b.months) - 1, nil
}

func (b *Book) Replace(_ context.Context, recs []core.MonthlyLedgerRecord) error {
	for _, r := range recs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("replace ledger, month %q: %w", r.Month, err)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.months = core.CloneLedger(recs)
	b.revision++
	return nil
}
