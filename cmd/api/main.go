package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/paytask/backend/internal/auth"
	"github.com/paytask/backend/internal/config"
	"github.com/paytask/backend/internal/dashboard"
	"github.com/paytask/backend/internal/handlers"
	"github.com/paytask/backend/internal/ledger"
	"github.com/paytask/backend/internal/middleware"
	"github.com/paytask/backend/internal/notify"
	"github.com/paytask/backend/internal/router"
	"github.com/paytask/backend/internal/services"
	"github.com/paytask/backend/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink notify.Sink = notify.LogSink{Log: logger}
	if cfg.WebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.WebhookURL)
		slog.Info("Task events will be posted to webhook", "url", cfg.WebhookURL)
	}

	var (
		kv          store.KV
		notifier    ledger.Notifier = notify.NewInline(sink, logger)
		riverClient *river.Client[pgx.Tx]
	)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		kv = store.NewMemoryStore()
		slog.Info("Using in-memory storage; state is lost on exit")

	case config.BackendSQLite:
		sqliteStore, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			slog.Error("Failed to open SQLite store", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		kv = sqliteStore
		slog.Info("Using SQLite storage", "path", cfg.SQLitePath)

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Unable to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("Cannot reach PostgreSQL. Check DATABASE_URL and that the server is running", "error", err)
			os.Exit(1)
		}
		slog.Info("Connected to PostgreSQL database successfully!")

		pgStore, err := store.NewPostgresStore(ctx, pool)
		if err != nil {
			slog.Error("Snapshot migrations failed", "error", err)
			os.Exit(1)
		}
		kv = pgStore

		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			slog.Error("Failed to create River migrator", "error", err)
			os.Exit(1)
		}
		if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
			slog.Error("River migrate up failed", "error", err)
			os.Exit(1)
		}
		slog.Info("River migrations applied")

		// The insert func is set after the River client exists.
		var insertMu sync.Mutex
		var insertFn notify.InsertFunc
		insertEvent := func(ctx context.Context, args notify.TaskEventArgs) error {
			insertMu.Lock()
			fn := insertFn
			insertMu.Unlock()
			if fn == nil {
				return errors.New("river insert not wired")
			}
			return fn(ctx, args)
		}

		workers := river.NewWorkers()
		river.AddWorker(workers, notify.NewTaskEventWorker(sink))

		riverClient, err = river.NewClient(riverpgxv5.New(pool), &river.Config{
			Queues: map[string]river.QueueConfig{
				river.QueueDefault: {MaxWorkers: 10},
			},
			Workers: workers,
		})
		if err != nil {
			slog.Error("Failed to create River client", "error", err)
			os.Exit(1)
		}

		insertMu.Lock()
		insertFn = func(ctx context.Context, args notify.TaskEventArgs) error {
			_, err := riverClient.Insert(ctx, args, nil)
			return err
		}
		insertMu.Unlock()

		notifier = notify.NewQueued(insertEvent, logger)
	}
	defer kv.Close()

	validator, err := services.NewValidator()
	if err != nil {
		slog.Error("Schema validator init failed", "error", err)
		os.Exit(1)
	}

	led := ledger.New(ledger.Options{
		Snapshots:    store.NewSnapshots(kv, validator),
		Logger:       logger,
		Notifier:     notifier,
		SeedDemoData: cfg.SeedDemoData,
	})
	led.Load(ctx)

	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set; using the development secret")
		cfg.JWTSecret = auth.DefaultSecret
	}
	authSvc := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(authSvc, led, logger)

	taskHandler := &handlers.TaskHandler{
		Ledger:  led,
		Latency: cfg.SimulatedLatency,
		Logger:  logger,
	}
	dashHandler := dashboard.NewHandler(led, logger)

	apiRouter := router.New(
		authHandler,
		taskHandler,
		dashHandler,
		middleware.SessionAuth(authSvc, led, cfg.AuthFallback),
		middleware.RewardCheck(cfg.MaxReward),
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (delivers queued task events)
	if riverClient != nil {
		go func() {
			if err := riverClient.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("River client stopped", "error", err)
			}
		}()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := riverClient.Stop(stopCtx); err != nil {
				slog.Warn("River client stop", "error", err)
			}
		}()
	}

	srv := &http.Server{Addr: cfg.Addr(), Handler: corsHandler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting HTTP server", "addr", srv.Addr, "store", cfg.StoreBackend, "latency", cfg.SimulatedLatency)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
