package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"threepl/internal/core"
)

type (
	ledgerResponse struct {
		Variant  string                     `json:"variant"`
		Revision uint64                     `json:"revision"`
		Months   []core.MonthlyLedgerRecord `json:"months"`
	}

	variantResponse struct {
		Name        string                `json:"name"`
		Description string                `json:"description"`
		Buckets     core.BucketMap        `json:"buckets"`
		Drivers     core.OperatingDrivers `json:"drivers"`
	}

	// metricsRequest selects a month; omitted drivers fall back to the
	// variant defaults.
	metricsRequest struct {
		MonthIndex int                    `json:"month_index"`
		Drivers    *core.OperatingDrivers `json:"drivers"`
	}

	tableRequest struct {
		Drivers *core.OperatingDrivers `json:"drivers"`
	}

	tableResponse struct {
		Months []core.DerivedMetrics `json:"months"`
	}

	amountRequest struct {
		Amount *amount `json:"amount"`
	}

	reportResponse struct {
		ReportID   string `json:"report_id"`
		MonthIndex int    `json:"month_index"`
	}
)

// amount accepts a JSON number or a spreadsheet-style string like "$1,234.50".
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		*a = amount(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: amount must be a number or numeric string", core.ErrInvalidAmount)
	}
	*a = amount(f)
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVariant(w http.ResponseWriter, _ *http.Request) {
	v := s.svc.Variant()
	writeJSON(w, http.StatusOK, variantResponse{
		Name:        v.Name,
		Description: v.Description,
		Buckets:     v.Buckets,
		Drivers:     v.Drivers,
	})
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	months, rev, err := s.svc.Ledger(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if months == nil {
		months = []core.MonthlyLedgerRecord{}
	}
	writeJSON(w, http.StatusOK, ledgerResponse{Variant: s.svc.Variant().Name, Revision: rev, Months: months})
}

func (s *Server) handleAppendMonth(w http.ResponseWriter, r *http.Request) {
	var rec core.MonthlyLedgerRecord
	if err := decodeJSON(w, r, &rec, false); err != nil {
		s.fail(w, r, err)
		return
	}
	idx, err := s.svc.AppendMonth(r.Context(), rec)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"index": idx})
}

func (s *Server) handleUpdateAmount(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: month index must be an integer", errBadRequest))
		return
	}
	kind := core.LineKind(chi.URLParam(r, "kind"))
	category := chi.URLParam(r, "category")

	var req amountRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Amount == nil {
		s.fail(w, r, fmt.Errorf("%w: amount is required", errBadRequest))
		return
	}
	if err := s.svc.UpdateAmount(r.Context(), index, kind, category, float64(*req.Amount)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var req metricsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.svc.MonthlyMetrics(r.Context(), req.MonthIndex, s.drivers(req.Drivers))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Rounded())
}

func (s *Server) handleMetricsTable(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.fail(w, r, err)
		return
	}
	table, err := s.svc.MetricsTable(r.Context(), s.drivers(req.Drivers))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]core.DerivedMetrics, len(table))
	for i, m := range table {
		out[i] = m.Rounded()
	}
	writeJSON(w, http.StatusOK, tableResponse{Months: out})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var shipment core.FreightShipment
	if err := decodeJSON(w, r, &shipment, false); err != nil {
		s.fail(w, r, err)
		return
	}
	q, err := s.svc.Quote(r.Context(), shipment)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req metricsRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	msg, err := s.svc.RequestReport(r.Context(), req.MonthIndex, s.drivers(req.Drivers))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, reportResponse{ReportID: msg.ID, MonthIndex: msg.MonthIndex})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, retry later")
}

func (s *Server) drivers(d *core.OperatingDrivers) core.OperatingDrivers {
	if d == nil {
		return s.svc.Variant().Drivers
	}
	return *d
}
