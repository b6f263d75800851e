// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"balance-ledger/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(ledgerHandler *handler.LedgerHandler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/deposit", ledgerHandler.Deposit)
		r.Post("/withdraw", ledgerHandler.Withdraw)
		r.Post("/transfer", ledgerHandler.Transfer)
		r.Get("/balance/{userID}", ledgerHandler.GetBalance)
		r.Get("/users/{userID}/transactions", ledgerHandler.GetTransactionHistory)
	})

	logger.Debug("routes registered")
	return r
}
