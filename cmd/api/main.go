package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/recall/internal/api"
	"github.com/saturnino-fabrica-de-software/recall/internal/audit"
	"github.com/saturnino-fabrica-de-software/recall/internal/cache"
	"github.com/saturnino-fabrica-de-software/recall/internal/config"
	"github.com/saturnino-fabrica-de-software/recall/internal/database"
	"github.com/saturnino-fabrica-de-software/recall/internal/decision"
	"github.com/saturnino-fabrica-de-software/recall/internal/extractor"
	"github.com/saturnino-fabrica-de-software/recall/internal/metrics"
	"github.com/saturnino-fabrica-de-software/recall/internal/repository"
	"github.com/saturnino-fabrica-de-software/recall/internal/service"
	"github.com/saturnino-fabrica-de-software/recall/internal/webhook"
	"github.com/saturnino-fabrica-de-software/recall/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Recall API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("extractor", cfg.ExtractorType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer pool.Close()

	ex, err := extractor.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	fetcher, closeFetcher, err := newFetcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFetcher()

	classifier, err := decision.NewClassifier(cfg.Thresholds(), cfg.CandidateLimit)
	if err != nil {
		return fmt.Errorf("invalid matching configuration: %w", err)
	}

	recorder := metrics.NewManager()

	// background workers share one lifetime
	workers, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	cacheOpts := cache.Options{
		NegativePolicy: cache.NegativePolicy(cfg.NegativeCachePolicy),
		NegativeTTL:    cfg.NegativeCacheTTL,
		Observer:       recorder,
		Logger:         logger,
	}
	if cfg.DurableCache {
		store := cache.NewPGStore(pool)
		cacheOpts.Store = store
		cacheOpts.StoreTTL = cfg.DurableCacheTTL

		janitor := cache.NewJanitor(store, logger.With("component", "cache_janitor"), time.Hour)
		go janitor.Start(workers)
	}
	embeddings := cache.NewEmbeddingCache(cacheOpts)

	hub := ws.NewHub(logger, recorder)
	go hub.Run(workers)

	publishers := service.Publishers{hub}

	var dispatcher *webhook.Dispatcher
	if cfg.WebhookURL != "" {
		dispatcher = webhook.NewDispatcher(webhook.Options{
			URL:         cfg.WebhookURL,
			Secret:      cfg.WebhookSecret,
			MaxAttempts: cfg.WebhookMaxAttempts,
			Observer:    recorder,
			Logger:      logger,
		})
		go dispatcher.Run(workers)
		publishers = append(publishers, dispatcher)
	}

	auditLog := audit.NewSlogLogger(logger)

	subjects := repository.NewSubjectRepository(pool)
	sessions := repository.NewSessionRepository(pool)
	people := repository.NewPersonRepository(pool)
	samples := repository.NewSampleRepository(pool)
	events := repository.NewRecognitionEventRepository(pool)

	enrollment := service.NewEnrollmentService(subjects, people, samples, embeddings, fetcher, ex).
		WithFanOut(cfg.FanOutLimit).
		WithFetchTimeout(cfg.FetchTimeout).
		WithAudit(auditLog).
		WithRecorder(recorder).
		WithLogger(logger)

	recognition := service.NewRecognitionService(sessions, people, events, ex, classifier).
		WithExtractionTimeout(cfg.ExtractionTimeout).
		WithPublisher(publishers).
		WithAudit(auditLog).
		WithRecorder(recorder).
		WithLogger(logger)

	router := api.NewRouter(logger, &api.Dependencies{
		Sessions:    service.NewSessionService(subjects, sessions),
		Enrollment:  enrollment,
		Recognition: recognition,
		Hub:         hub,
		Metrics:     recorder,
		DB:          pool,
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	cancelWorkers()
	if dispatcher != nil {
		dispatcher.Stop()
	}

	logger.Info("server stopped")
	return nil
}
