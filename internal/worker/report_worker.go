package worker

import (
	"context"
	"errors"
	"fmt"

	"threepl/internal/amqp"
	"threepl/internal/cache"
	"threepl/internal/log"
)

var ErrInvalidReport = errors.New("invalid report message")

// ReportWorker consumes report requests. Redelivered messages are
// recognised by ID and acknowledged without being handled twice.
type ReportWorker struct {
	logger *log.Logger
	seen   *cache.LRU[string, struct{}]
	sink   func(context.Context, *amqp.ReportMessage) error
}

// NewReportWorker returns a worker that remembers the last seenSize
// message IDs. sink receives each new report; a nil sink only logs.
func NewReportWorker(logger *log.Logger, seenSize int, sink func(context.Context, *amqp.ReportMessage) error) *ReportWorker {
	return &ReportWorker{
		logger: logger.WithComponent(log.ComponentWorker),
		seen:   cache.NewLRU[string, struct{}](seenSize, 0),
		sink:   sink,
	}
}

// HandleReportMessage processes a single report message from AMQP.
func (w *ReportWorker) HandleReportMessage(ctx context.Context, msg *amqp.ReportMessage) error {
	if msg.MonthIndex < 0 || msg.Variant == "" {
		// Returning nil acks the message; a requeue would loop forever.
		w.logger.ErrorContext(ctx, "Dropping malformed report message",
			log.FieldReportID, msg.ID,
			log.FieldError, ErrInvalidReport)
		return nil
	}
	if _, dup := w.seen.Get(msg.ID); dup {
		w.logger.InfoContext(ctx, "Report already processed", log.FieldReportID, msg.ID)
		return nil
	}

	if w.sink != nil {
		if err := w.sink(ctx, msg); err != nil {
			return fmt.Errorf("deliver report %s: %w", msg.ID, err)
		}
	}
	w.seen.Set(msg.ID, struct{}{})

	fields := log.NewFields().
		WithOperation(log.OpReport).
		WithMetrics(msg.Variant, msg.MonthIndex, msg.Metrics)
	fields[log.FieldReportID] = msg.ID
	fields[log.FieldRevision] = msg.Revision
	w.logger.InfoContext(ctx, "Report processed", fields.ToSlice()...)
	return nil
}
