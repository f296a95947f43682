package services

import (
	"context"
	"fmt"

	"threepl/internal/amqp"
	"threepl/internal/cache"
	"threepl/internal/catalog"
	"threepl/internal/core"
	"threepl/internal/ledger"
	"threepl/internal/log"
)

// ReportPublisher hands a computed month to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, msg *amqp.ReportMessage) error
}

// LedgerService orchestrates the ledger store, the calculators, the metrics
// cache and the report publisher. Cache and publisher are optional.
type LedgerService struct {
	store     ledger.Store
	variant   catalog.Variant
	calc      *core.Calculator
	quoter    core.Quoter
	cache     *cache.Metrics
	publisher ReportPublisher
	logger    *log.Logger
}

type Option func(*LedgerService)

func WithCache(c *cache.Metrics) Option {
	return func(s *LedgerService) { s.cache = c }
}

func WithPublisher(p ReportPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

func NewLedgerService(store ledger.Store, variant catalog.Variant, rates core.RateCard, opts ...Option) (*LedgerService, error) {
	calc, err := core.NewCalculator(variant.Buckets)
	if err != nil {
		return nil, fmt.Errorf("variant %q: %w", variant.Name, err)
	}
	quoter, err := core.NewQuoter(rates)
	if err != nil {
		return nil, fmt.Errorf("rate card: %w", err)
	}
	s := &LedgerService{
		store:   store,
		variant: variant,
		calc:    calc,
		quoter:  quoter,
		logger:  log.New(log.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	return s, nil
}

func (s *LedgerService) Variant() catalog.Variant {
	return s.variant
}

// Ledger returns a snapshot of every month plus the revision it was read at.
func (s *LedgerService) Ledger(ctx context.Context) ([]core.MonthlyLedgerRecord, uint64, error) {
	months, rev, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read ledger: %w", err)
	}
	return months, rev, nil
}

// UpdateAmount edits one cell. The category must belong to the variant on
// the given side.
func (s *LedgerService) UpdateAmount(ctx context.Context, index int, kind core.LineKind, category string, amount float64) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	if got, ok := s.variant.Buckets.KindOf(category); !ok || got != kind {
		return &core.MissingCategoryError{Month: fmt.Sprintf("#%d", index), Kind: kind, Category: category, Unmapped: true}
	}
	if err := s.store.SetAmount(ctx, index, kind, category, amount); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Ledger amount updated",
		log.NewFields().WithOperation(log.OpUpdate).WithLedgerEdit(index, kind, category, amount).ToSlice()...)
	return nil
}

// AppendMonth adds a month at the end of the ledger. A record with no
// amounts at all starts from the variant defaults.
func (s *LedgerService) AppendMonth(ctx context.Context, rec core.MonthlyLedgerRecord) (int, error) {
	if len(rec.Revenue) == 0 && len(rec.Costs) == 0 {
		rec = s.variant.SeedRecord(rec.Month)
	}
	if err := s.variant.Buckets.CheckRecord(rec); err != nil {
		return 0, err
	}
	idx, err := s.store.AppendMonth(ctx, rec)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Ledger month appended",
		log.FieldOperation, log.OpAppend,
		log.FieldMonthIndex, idx,
		log.FieldMonth, rec.Month)
	return idx, nil
}

// MonthlyMetrics derives the metrics of one month, served from the cache
// when the ledger has not changed since they were computed.
func (s *LedgerService) MonthlyMetrics(ctx context.Context, index int, drivers core.OperatingDrivers) (core.DerivedMetrics, error) {
	m, _, err := s.monthlyMetrics(ctx, index, drivers)
	return m, err
}

func (s *LedgerService) monthlyMetrics(ctx context.Context, index int, drivers core.OperatingDrivers) (core.DerivedMetrics, uint64, error) {
	key := cache.MetricsKey{Variant: s.variant.Name, Month: index, Drivers: drivers}
	if s.cache != nil {
		rev, err := s.store.Revision(ctx)
		if err != nil {
			return core.DerivedMetrics{}, 0, fmt.Errorf("read revision: %w", err)
		}
		key.Revision = rev
		if m, ok := s.cache.Get(key); ok {
			return m, rev, nil
		}
	}

	months, rev, err := s.store.Snapshot(ctx)
	if err != nil {
		return core.DerivedMetrics{}, 0, fmt.Errorf("read ledger: %w", err)
	}
	m, err := s.calc.ComputeMonthlyMetrics(months, drivers, index)
	if err != nil {
		return core.DerivedMetrics{}, 0, err
	}

	// The key follows the snapshot, so a write racing the lookup only costs a miss.
	if s.cache != nil {
		key.Revision = rev
		s.cache.Set(key, m)
	}
	s.logger.WithComponent(log.ComponentMetrics).DebugContext(ctx, "Monthly metrics computed",
		log.NewFields().WithOperation(log.OpCompute).WithMetrics(s.variant.Name, index, m).ToSlice()...)
	return m, rev, nil
}

// MetricsTable derives every month in ledger order.
func (s *LedgerService) MetricsTable(ctx context.Context, drivers core.OperatingDrivers) ([]core.DerivedMetrics, error) {
	months, err := s.store.Months(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return s.calc.ComputeTable(months, drivers)
}

func (s *LedgerService) Quote(ctx context.Context, shipment core.FreightShipment) (core.QuoteBreakdown, error) {
	q, err := s.quoter.Quote(shipment)
	if err != nil {
		return core.QuoteBreakdown{}, err
	}
	s.logger.WithComponent(log.ComponentFreight).InfoContext(ctx, "Freight quoted",
		log.NewFields().WithOperation(log.OpQuote).WithQuote(shipment, q).ToSlice()...)
	return q, nil
}

// RequestReport computes a month and publishes it for reporting. Without a
// publisher the request succeeds and nothing is sent.
func (s *LedgerService) RequestReport(ctx context.Context, index int, drivers core.OperatingDrivers) (*amqp.ReportMessage, error) {
	m, rev, err := s.monthlyMetrics(ctx, index, drivers)
	if err != nil {
		return nil, err
	}
	msg := amqp.NewReportMessage(s.variant.Name, index, rev, m)

	if s.publisher == nil {
		s.logger.WarnContext(ctx, "Report publisher not available, skipping report message",
			log.FieldReportID, msg.ID)
		return msg, nil
	}
	if err := s.publisher.PublishReport(ctx, msg); err != nil {
		return nil, fmt.Errorf("publish report: %w", err)
	}
	s.logger.InfoContext(ctx, "Report requested",
		log.FieldOperation, log.OpReport,
		log.FieldReportID, msg.ID,
		log.FieldMonthIndex, index)
	return msg, nil
}
