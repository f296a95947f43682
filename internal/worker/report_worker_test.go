package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"threepl/internal/amqp"
	"threepl/internal/core"
	"threepl/internal/log"
)

func TestReportWorker(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelInfo, Output: &buf})

	var delivered []string
	fail := true
	w := NewReportWorker(logger, 8, func(_ context.Context, m *amqp.ReportMessage) error {
		if fail {
			fail = false
			return errors.New("downstream unavailable")
		}
		delivered = append(delivered, m.ID)
		return nil
	})

	msg := amqp.NewReportMessage("standard", 0, 4, core.DerivedMetrics{Month: "Jan", GrossRevenue: 300000})

	if err := w.HandleReportMessage(ctx, msg); err == nil {
		t.Fatalf("expected sink failure to surface for requeue")
	}
	if err := w.HandleReportMessage(ctx, msg); err != nil {
		t.Fatalf("HandleReportMessage: %v", err)
	}
	if err := w.HandleReportMessage(ctx, msg); err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}
	if len(delivered) != 1 {
		t.Errorf("delivered %d times, want once", len(delivered))
	}
	if !strings.Contains(buf.String(), "Report already processed") {
		t.Errorf("duplicate not logged: %s", buf.String())
	}
}

func TestReportWorkerDropsMalformed(t *testing.T) {
	called := false
	w := NewReportWorker(log.New(log.Config{Output: &bytes.Buffer{}}), 4, func(context.Context, *amqp.ReportMessage) error {
		called = true
		return nil
	})
	msg := &amqp.ReportMessage{ID: "x", Variant: "", MonthIndex: 0}
	if err := w.HandleReportMessage(context.Background(), msg); err != nil {
		t.Fatalf("malformed message should be acked, got %v", err)
	}
	if called {
		t.Errorf("sink called for malformed message")
	}
}
