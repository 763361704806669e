package api

import (
	"encoding/json"
	"net/http"

	"github.com/ajayprojects/portal/internal/api/handlers"
	"github.com/ajayprojects/portal/internal/api/middleware"
	"github.com/ajayprojects/portal/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Identity)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Client-Id", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Task catalog & conditional fields
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Route("/{taskID}", func(r chi.Router) {
				r.Get("/", h.GetTask)
				r.Post("/fields", h.ResolveFields)
			})
		})

		// Estimates (the Project Ledger)
		r.Route("/estimates", func(r chi.Router) {
			r.Get("/", h.ListEstimates)
			r.Post("/", h.CreateEstimate)
			r.Route("/{estimateID}", func(r chi.Router) {
				r.Get("/", h.GetEstimate)
				r.Post("/invoice", h.GenerateInvoice)
			})
		})

		// Market price index
		r.Route("/prices", func(r chi.Router) {
			r.Get("/", h.GetPrices)
			r.Get("/ticker", h.GetTicker)
		})

		// Quota & upgrade
		r.Route("/quota", func(r chi.Router) {
			r.Get("/", h.GetQuota)
			r.Post("/upgrade", h.RequestUpgrade)
		})

		// Leads
		r.Post("/callbacks", h.RequestCallback)

		// Client profile
		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.GetProfile)
			r.Put("/", h.UpsertProfile)
		})

		// Assistant chat
		r.Route("/chat", func(r chi.Router) {
			r.Get("/ws", h.ChatWS)
			r.Get("/history", h.ChatHistory)
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "estimation-portal",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "estimation-portal",
		})
	}
}
