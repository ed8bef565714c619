package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-analytics/internal/api/handlers"
	custommiddleware "github.com/ndewijer/portfolio-analytics/internal/api/middleware"
	"github.com/ndewijer/portfolio-analytics/internal/config"
	"github.com/ndewijer/portfolio-analytics/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(svc *service.Services, cfg *config.Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
		})

		r.Route("/transaction", func(r chi.Router) {
			transactionHandler := handlers.NewTransactionHandler(svc.Transaction)
			r.Post("/", transactionHandler.CreateTransaction)
			r.With(custommiddleware.ValidateUUIDMiddleware).Get("/owner/{uuid}", transactionHandler.TransactionsPerOwner)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", transactionHandler.GetTransaction)
				r.Delete("/", transactionHandler.DeleteTransaction)
			})
		})

		r.Route("/market", func(r chi.Router) {
			marketHandler := handlers.NewMarketHandler(svc.MarketData)
			r.Get("/fx", marketHandler.GetExchangeRate)
			r.Put("/fx", marketHandler.UpsertExchangeRate)
			r.Put("/price", marketHandler.UpsertPrice)
		})

		r.Route("/owner/{uuid}", func(r chi.Router) {
			r.Use(custommiddleware.ValidateUUIDMiddleware)
			ownerHandler := handlers.NewOwnerHandler(svc.Valuation, svc.Performance, svc.Cash)
			r.Put("/cash", ownerHandler.SetCashBalance)
			r.Post("/deposit", ownerHandler.CreateDeposit)
			r.Get("/snapshot", ownerHandler.Snapshots)
			r.Post("/snapshot", ownerHandler.BuildSnapshot)
			r.Post("/snapshot/rebuild", ownerHandler.RebuildSnapshots)
			r.Get("/positions", ownerHandler.Positions)
			r.Get("/performance", ownerHandler.Performance)
		})
	})

	return r
}
