package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"threepl/internal/core"
	"threepl/internal/ledger"
	"threepl/internal/log"

	_ "modernc.org/sqlite"
)

// DefaultDSN keeps the ledger in an in-memory table for the life of the process.
const DefaultDSN = ":memory:"

// ErrPersistentDSN rejects DSNs that would keep the ledger on disk.
var ErrPersistentDSN = errors.New("sqlite dsn must be in-memory")

var _ ledger.Store = (*SQLiteRepository)(nil)

// IsMemoryDSN reports whether dsn names an in-memory SQLite database, either
// ":memory:" itself or a URI with mode=memory.
func IsMemoryDSN(dsn string) bool {
	if dsn == "" || strings.Contains(dsn, ":memory:") {
		return true
	}
	_, query, _ := strings.Cut(dsn, "?")
	for _, kv := range strings.Split(query, "&") {
		if kv == "mode=memory" {
			return true
		}
	}
	return false
}

// SQLiteRepository is a ledger backend on a single SQLite connection. The
// connection limit doubles as the single-writer lock.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	if !IsMemoryDSN(dsn) {
		return nil, fmt.Errorf("%w: %q", ErrPersistentDSN, dsn)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Months implements ledger.Reader
func (r *SQLiteRepository) Months(ctx context.Context) ([]core.MonthlyLedgerRecord, error) {
	return readMonths(ctx, r.db)
}

// Revision implements ledger.Reader
func (r *SQLiteRepository) Revision(ctx context.Context) (uint64, error) {
	return readRevision(ctx, r.db)
}

// Snapshot implements ledger.Reader. Both reads share one transaction, and
// the single connection keeps writers out until it ends.
func (r *SQLiteRepository) Snapshot(ctx context.Context) ([]core.MonthlyLedgerRecord, uint64, error) {
	var (
		months []core.MonthlyLedgerRecord
		rev    uint64
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if months, err = readMonths(ctx, tx); err != nil {
			return err
		}
		rev, err = readRevision(ctx, tx)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return months, rev, nil
}

func readMonths(ctx context.Context, q queryer) ([]core.MonthlyLedgerRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT m.position, m.label, i.kind, i.category, i.amount
		FROM ledger_months m
		LEFT JOIN ledger_items i ON i.position = m.position
		ORDER BY m.position`)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyLedgerRecord
	last := -1
	for rows.Next() {
		var (
			pos      int
			label    string
			kind     sql.NullString
			category sql.NullString
			amount   sql.NullFloat64
		)
		if err := rows.Scan(&pos, &label, &kind, &category, &amount); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		if pos != last {
			out = append(out, core.MonthlyLedgerRecord{
				Month:   label,
				Revenue: map[string]float64{},
				Costs:   map[string]float64{},
			})
			last = pos
		}
		if !kind.Valid {
			continue
		}
		rec := &out[len(out)-1]
		rec.Items(core.LineKind(kind.String))[category.String] = amount.Float64
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return out, nil
}

func readRevision(ctx context.Context, q queryer) (uint64, error) {
	var rev int64
	if err := q.QueryRowContext(ctx, `SELECT revision FROM ledger_revision WHERE id = 1`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return uint64(rev), nil
}

// SetAmount implements ledger.Writer
func (r *SQLiteRepository) SetAmount(ctx context.Context, index int, kind core.LineKind, category string, amount float64) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if category == "" {
		return core.ErrEmptyCategory
	}
	if err := core.ValidateAmount(amount); err != nil {
		return err
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		n, err := countMonths(ctx, tx)
		if err != nil {
			return err
		}
		if err := core.CheckIndex(index, n); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_items (position, kind, category, amount) VALUES (?, ?, ?, ?)
			ON CONFLICT (position, kind, category) DO UPDATE SET amount = excluded.amount`,
			index, string(kind), category, amount); err != nil {
			return fmt.Errorf("upsert ledger item: %w", err)
		}
		logger(ctx).DebugContext(ctx, "Ledger amount saved to SQLite",
			log.NewFields().WithLedgerEdit(index, kind, category, amount).ToSlice()...)
		return bumpRevision(ctx, tx)
	})
}

// AppendMonth implements ledger.Writer
func (r *SQLiteRepository) AppendMonth(ctx context.Context, rec core.MonthlyLedgerRecord) (int, error) {
	if err := rec.Validate(); err != nil {
		return 0, fmt.Errorf("append month %q: %w", rec.Month, err)
	}
	var pos int
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		n, err := countMonths(ctx, tx)
		if err != nil {
			return err
		}
		pos = n
		if err := insertMonth(ctx, tx, pos, rec); err != nil {
			return err
		}
		return bumpRevision(ctx, tx)
	})
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// Replace implements ledger.Writer
func (r *SQLiteRepository) Replace(ctx context.Context, recs []core.MonthlyLedgerRecord) error {
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("replace ledger, month %q: %w", rec.Month, err)
		}
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_items`); err != nil {
			return fmt.Errorf("clear ledger items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_months`); err != nil {
			return fmt.Errorf("clear ledger months: %w", err)
		}
		for i, rec := range recs {
			if err := insertMonth(ctx, tx, i, rec); err != nil {
				return err
			}
		}
		logger(ctx).InfoContext(ctx, "Ledger replaced in SQLite", "months", len(recs))
		return bumpRevision(ctx, tx)
	})
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentStorage)
}

func countMonths(ctx context.Context, tx *sql.Tx) (int, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_months`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count months: %w", err)
	}
	return n, nil
}

func insertMonth(ctx context.Context, tx *sql.Tx, pos int, rec core.MonthlyLedgerRecord) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO ledger_months (position, label) VALUES (?, ?)`, pos, rec.Month); err != nil {
		return fmt.Errorf("insert month: %w", err)
	}
	for _, kind := range []core.LineKind{core.KindRevenue, core.KindCost} {
		for category, amount := range rec.Items(kind) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ledger_items (position, kind, category, amount) VALUES (?, ?, ?, ?)`,
				pos, string(kind), category, amount); err != nil {
				return fmt.Errorf("insert ledger item %s/%s: %w", kind, category, err)
			}
		}
	}
	return nil
}

func bumpRevision(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `UPDATE ledger_revision SET revision = revision + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("bump revision: %w", err)
	}
	return nil
}
