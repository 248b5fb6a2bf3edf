package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rocodehq/rocode-gateway/internal/gateway/handlers"
	"github.com/rocodehq/rocode-gateway/internal/gateway/providers"
	"github.com/rocodehq/rocode-gateway/internal/optimizer"
	"github.com/rocodehq/rocode-gateway/internal/optimizer/budget"
	"github.com/rocodehq/rocode-gateway/internal/optimizer/cache"
	"github.com/rocodehq/rocode-gateway/internal/optimizer/router"
	"github.com/rocodehq/rocode-gateway/internal/shared/config"
	"github.com/rocodehq/rocode-gateway/internal/shared/database"
	"github.com/rocodehq/rocode-gateway/internal/shared/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("starting RoCode gateway", "port", cfg.Port, "env", cfg.Env)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	// Model catalog: defaults overlaid with pricing rows from the database
	catalog := router.DefaultCatalog()
	if rows, err := db.ListModelPricing(ctx); err != nil {
		logger.Warn("model pricing overlay unavailable, using defaults", "error", err)
	} else {
		for _, row := range rows {
			catalog[row.Alias] = router.ModelInfo{
				Name:       row.Alias,
				Provider:   row.Provider,
				Model:      row.Model,
				CostInput:  row.InputPerMTokens,
				CostOutput: row.OutputPerMTokens,
				Capability: router.ParseCapability(row.Capability),
				MaxTokens:  row.MaxOutputTokens,
			}
		}
		if len(rows) > 0 {
			logger.Info("applied model pricing overrides", "models", len(rows))
		}
	}
	modelRouter := router.New(catalog)

	// Response cache: in-memory tier over Redis. Disabled entirely when
	// CACHE_ENABLED=false.
	var responseCache *cache.Cache
	var cacheDep optimizer.ResponseCache
	if cfg.CacheEnabled {
		responseCache = cache.New(cfg.CacheMemorySize, cache.NewRedisStore(redisClient), logger, cache.WithTTL(cfg.CacheTTL))
		cacheDep = responseCache
		if cfg.CacheSeedEnabled {
			seeded := responseCache.Seed(ctx, "claude-4-sonnet")
			logger.Info("seeded response cache", "entries", seeded)
		}
	}

	// Token budgets: Redis snapshot by default, file snapshot when a path is
	// configured
	var budgetStore budget.Store = budget.NewRedisStore(redisClient)
	if cfg.BudgetSnapshotPath != "" {
		budgetStore = budget.NewFileStore(cfg.BudgetSnapshotPath)
	}
	budgetMgr := budget.NewManager(budgetStore, logger)
	budgetMgr.Load(ctx)

	// Optimization pipeline
	opt := optimizer.New(cfg.OptimizationsEnabled, cacheDep, modelRouter, budgetMgr, logger)

	// Provider manager
	providerMgr := providers.NewManager(cfg)

	// Background maintenance
	if responseCache != nil {
		go runTicker(ctx, cfg.CacheCleanupEvery, func() { responseCache.Cleanup(ctx) })
	}
	go runTicker(ctx, cfg.BudgetFlushEvery, func() { budgetMgr.Flush(ctx) })

	// Initialize handlers
	chatHandler := handlers.NewChatHandler(opt, providerMgr, modelRouter, budgetMgr, db, logger)
	middleware := handlers.NewMiddleware(db, redisClient)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORSMiddleware)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// API routes (with auth and rate limiting)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.RateLimitMiddleware)

		r.Post("/chat/completions", chatHandler.HandleChatCompletion)
		r.Get("/optimizer/metrics", chatHandler.HandleMetrics)
		r.Get("/usage/{userID}", chatHandler.HandleUsage)
	})

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down gracefully")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Final budget flush so little usage is lost between intervals
	budgetMgr.Flush(shutdownCtx)

	logger.Info("server stopped")
}

func runTicker(ctx context.Context, every time.Duration, fn func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
