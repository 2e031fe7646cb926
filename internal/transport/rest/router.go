package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/crypto-settlement/internal/auth"
	"github.com/frahmantamala/crypto-settlement/internal/ledger"
	"github.com/frahmantamala/crypto-settlement/internal/payment"
	"github.com/frahmantamala/crypto-settlement/internal/transport/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, paymentHandler *payment.Handler, ledgerHandler *ledger.Handler, tokenSecret string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		// Health check routes
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Protected routes that require a resolved account
		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(tokenSecret, logger))

			if paymentHandler != nil {
				pr.Route("/payments/intents", func(ir chi.Router) {
					ir.Post("/", paymentHandler.CreateIntent)            // POST /payments/intents
					ir.Get("/{id}", paymentHandler.GetStatus)            // GET /payments/intents/:id
					ir.Post("/{id}/transaction", paymentHandler.SubmitTxHash) // POST /payments/intents/:id/transaction
				})
			}

			if ledgerHandler != nil {
				pr.Get("/balance", ledgerHandler.GetBalance) // GET /balance
			}
		})
	})
}
