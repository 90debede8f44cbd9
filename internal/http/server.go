// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	applog "kopilka/internal/log"
	"kopilka/internal/services"
)

type Server struct {
	http.Server

	ledger        *services.LedgerService
	reversals     *services.ReversalEngine
	obligations   *services.ObligationService
	debts         *services.DebtService
	reports       *services.ReportService
	defaultUserID int64
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, defaultUserID int64,
	ledger *services.LedgerService,
	reversals *services.ReversalEngine,
	obligations *services.ObligationService,
	debts *services.DebtService,
	reports *services.ReportService,
) *Server {
	s := &Server{
		ledger:        ledger,
		reversals:     reversals,
		obligations:   obligations,
		debts:         debts,
		reports:       reports,
		defaultUserID: defaultUserID,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /operations", s.handleApplyOperation)
	mux.HandleFunc("GET /operations", s.handleListOperations)
	mux.HandleFunc("GET /operations/{id}", s.handleGetOperation)
	mux.HandleFunc("DELETE /operations/{id}", s.handleReverseOperation)
	mux.HandleFunc("PATCH /operations/items/{id}", s.handleAmendItem)

	mux.HandleFunc("POST /fixed-payments", s.handleCreateFixedPayment)
	mux.HandleFunc("PATCH /fixed-payments/{id}", s.handleUpdateFixedPayment)
	mux.HandleFunc("DELETE /fixed-payments/{id}", s.handleDeactivateFixedPayment)
	mux.HandleFunc("GET /dues", s.handleListDues)
	mux.HandleFunc("POST /dues/{id}/pay", s.handlePayDue)
	mux.HandleFunc("POST /dues/{id}/skip", s.handleSkipDue)

	mux.HandleFunc("POST /debts", s.handleCreateDebt)
	mux.HandleFunc("GET /debts", s.handleListDebts)
	mux.HandleFunc("POST /debts/{id}/settle", s.handleSettleDebt)

	mux.HandleFunc("GET /reports/household", s.handleHouseholdReport)
	mux.HandleFunc("GET /reports/business", s.handleBusinessReport)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)

	s.Server = http.Server{
		Addr:         addr,
		Handler:      requestLogging(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= 500 {
			level = slog.LevelError
		} else if rec.status >= 400 {
			level = slog.LevelWarn
		}
		slog.Default().Log(r.Context(), level, "HTTP request",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rec.status,
			applog.FieldDuration, time.Since(start).Milliseconds())
	})
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
