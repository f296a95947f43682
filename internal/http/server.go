package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"threepl/internal/amqp"
	"threepl/internal/catalog"
	"threepl/internal/core"
	"threepl/internal/log"
	"threepl/internal/middleware/ratelimit"
	"threepl/internal/middleware/security"
)

const requestTimeout = 30 * time.Second

// LedgerService is what the API needs from services.LedgerService.
type LedgerService interface {
	Variant() catalog.Variant
	Ledger(ctx context.Context) ([]core.MonthlyLedgerRecord, uint64, error)
	UpdateAmount(ctx context.Context, index int, kind core.LineKind, category string, amount float64) error
	AppendMonth(ctx context.Context, rec core.MonthlyLedgerRecord) (int, error)
	MonthlyMetrics(ctx context.Context, index int, drivers core.OperatingDrivers) (core.DerivedMetrics, error)
	MetricsTable(ctx context.Context, drivers core.OperatingDrivers) ([]core.DerivedMetrics, error)
	Quote(ctx context.Context, shipment core.FreightShipment) (core.QuoteBreakdown, error)
	RequestReport(ctx context.Context, index int, drivers core.OperatingDrivers) (*amqp.ReportMessage, error)
}

type Server struct {
	http.Server
	svc     LedgerService
	logger  *log.Logger
	limiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires the JSON API onto a chi router.
func NewServer(addr string, svc LedgerService, logger *log.Logger) *Server {
	s := &Server{
		svc:     svc,
		logger:  logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		log.RequestLogger(s.logger),
		middleware.Recoverer,
		security.Headers(security.DefaultHeadersConfig()),
	)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(
			s.limiter.Middleware(clientKey, s.handleRateLimited),
			middleware.Timeout(requestTimeout),
			security.RequireJSON,
		)
		r.Get("/variant", s.handleVariant)
		r.Get("/ledger", s.handleLedger)
		r.Post("/ledger/months", s.handleAppendMonth)
		r.Put("/ledger/months/{index}/{kind}/{category}", s.handleUpdateAmount)
		r.Post("/metrics", s.handleMetrics)
		r.Post("/metrics/table", s.handleMetricsTable)
		r.Post("/quotes", s.handleQuote)
		r.Post("/reports", s.handleReport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// clientKey runs after RealIP, so RemoteAddr already holds the client address.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Shutdown stops the server and its background routines once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
