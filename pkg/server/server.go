// Package server provides the public entry point for initializing the
// estimation portal backend: config → telemetry → store → services → router.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ajayprojects/portal/internal/api"
	"github.com/ajayprojects/portal/internal/api/handlers"
	"github.com/ajayprojects/portal/internal/cache"
	"github.com/ajayprojects/portal/internal/catalog"
	"github.com/ajayprojects/portal/internal/chat"
	"github.com/ajayprojects/portal/internal/config"
	"github.com/ajayprojects/portal/internal/estimator"
	"github.com/ajayprojects/portal/internal/gemini"
	"github.com/ajayprojects/portal/internal/notify"
	"github.com/ajayprojects/portal/internal/pricing"
	"github.com/ajayprojects/portal/internal/quota"
	"github.com/ajayprojects/portal/internal/store"
	"github.com/ajayprojects/portal/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized portal backend.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store (snapshot-backed, or PostgreSQL when
	// DATABASE_URL is set).
	Store store.Store

	// Config is the resolved server configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	cache        *cache.Cache
	watcher      *quota.Watcher
	shutdownOTel func(context.Context) error
}

// New initializes all portal components from the environment and returns a
// ready Server.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the portal with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var dataStore store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		dataStore = pg
		log.Info().Msg("PostgreSQL store initialized")
	} else {
		dataStore = store.NewMemoryStore(cfg.DataDir)
		log.Info().Str("dir", cfg.DataDir).Msg("Snapshot store initialized")
	}

	responseCache, err := cache.New(cfg.Cache.MaxEntries, cfg.DataDir)
	if err != nil {
		dataStore.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	cat, err := catalog.New()
	if err != nil {
		responseCache.Close()
		dataStore.Close()
		return nil, fmt.Errorf("load task catalog: %w", err)
	}
	log.Info().Int("tasks", len(cat.List())).Msg("Task catalog loaded")

	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set, collaborator calls will fail")
	}
	client, err := gemini.New(ctx, cfg.Gemini.APIKey,
		cfg.Gemini.EstimateModel, cfg.Gemini.PriceModel, cfg.Gemini.ChatModel)
	if err != nil {
		responseCache.Close()
		dataStore.Close()
		return nil, fmt.Errorf("init gemini client: %w", err)
	}

	notifier := notify.NewService(cfg.Webhook.URL, cfg.Webhook.Secret)
	if notifier.Enabled() {
		log.Info().Msg("Lead webhook forwarding enabled")
	}

	classify := func(err error) estimator.Class {
		switch gemini.Classify(err) {
		case gemini.ClassRateLimited:
			return estimator.ClassRateLimited
		case gemini.ClassTransient:
			return estimator.ClassTransient
		default:
			return estimator.ClassPermanent
		}
	}

	est := estimator.New(cat, responseCache, client, classify, dataStore, notifier,
		cfg.Cache.EstimateTTL, cfg.Quota.FreeLimit)
	prices := pricing.NewService(client, responseCache, cfg.Cache.PriceTTL)
	chatManager := chat.NewManager(client)
	watcher := quota.NewWatcher()

	h := handlers.New(dataStore, est, prices, chatManager, notifier, watcher, cat, cfg.Quota)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Store:        dataStore,
		Config:       cfg,
		Port:         cfg.Port,
		cache:        responseCache,
		watcher:      watcher,
		shutdownOTel: shutdown,
	}, nil
}

// Shutdown flushes the cache snapshot, stops cooldown timers, closes the
// store, and drains telemetry.
func (s *Server) Shutdown(ctx context.Context) {
	s.watcher.Stop()
	s.cache.Close()
	if err := s.Store.Close(); err != nil {
		log.Warn().Err(err).Msg("Store close failed")
	}
	if err := s.shutdownOTel(ctx); err != nil {
		log.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}
