package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/utkarshprasad2/FrugalTops/internal/api"
	"github.com/utkarshprasad2/FrugalTops/internal/browser"
	"github.com/utkarshprasad2/FrugalTops/internal/config"
	"github.com/utkarshprasad2/FrugalTops/internal/database"
	"github.com/utkarshprasad2/FrugalTops/internal/events"
	"github.com/utkarshprasad2/FrugalTops/internal/retailer"
	"github.com/utkarshprasad2/FrugalTops/internal/scraper"
	"github.com/utkarshprasad2/FrugalTops/internal/search"
)

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	outbox := database.NewOutboxRepository(db)
	relay := database.NewRelay(redisClient, outbox, logger, database.RelayConfig{
		PollInterval: cfg.Relay.PollInterval,
		BatchSize:    cfg.Relay.BatchSize,
	})
	go func() {
		if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("relay stopped with error", "error", err)
		}
	}()

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = cfg.Browser.Headless
	browserOpts.Timeout = cfg.Browser.Timeout
	browserOpts.ViewportWidth = cfg.Browser.ViewportWidth
	browserOpts.ViewportHeight = cfg.Browser.ViewportHeight
	browserOpts.MaxRetries = cfg.Scraper.MaxRetries
	browserOpts.RetryDelay = cfg.Scraper.RetryDelay
	browserOpts.SettleDelay = cfg.Browser.SettleDelay
	browserOpts.DiagnosticsDir = cfg.Browser.DiagnosticsDir
	if cfg.Browser.UserAgent != "" {
		browserOpts.UserAgent = cfg.Browser.UserAgent
	}

	registry := retailer.Default()
	scraperService := scraper.NewService(registry, browser.Factory(browserOpts, logger), logger)

	products := database.NewProductRepository(db)
	prices := database.NewPriceHistoryRepository(db)
	publisher := events.NewPublisher(db, outbox, logger)
	searchService := search.NewService(products, scraperService, prices, publisher, cfg.Scraper.Retailers, logger)

	handlers := api.NewHandlers(searchService, products, prices, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		pendingCount, _ := outbox.GetPendingCount(r.Context())
		deadLetterCount, _ := outbox.GetDeadLetterCount(r.Context())

		health := map[string]interface{}{
			"status": "ok",
			"outbox": map[string]interface{}{
				"pending":     pendingCount,
				"dead_letter": deadLetterCount,
			},
		}

		status := http.StatusOK
		if deadLetterCount > 100 {
			health["status"] = "error"
			health["message"] = "high number of dead letter events"
			status = http.StatusServiceUnavailable
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/search", handlers.SearchProducts)
			r.Get("/filters", handlers.GetFilters)
		})

		r.Route("/price-history", func(r chi.Router) {
			r.Get("/product/{productID}", handlers.GetPriceHistory)
			r.Get("/stats/{productID}", handlers.GetPriceStats)
			r.Get("/best-deals", handlers.GetBestDeals)
			r.Post("/track", handlers.TrackPrice)
		})
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
