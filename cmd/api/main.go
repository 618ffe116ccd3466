package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/thehive/timebank/internal/account"
	"github.com/thehive/timebank/internal/auth"
	"github.com/thehive/timebank/internal/config"
	"github.com/thehive/timebank/internal/handlers"
	"github.com/thehive/timebank/internal/ledger"
	"github.com/thehive/timebank/internal/middleware"
	"github.com/thehive/timebank/internal/notify"
	"github.com/thehive/timebank/internal/posts"
	"github.com/thehive/timebank/internal/repository"
	"github.com/thehive/timebank/internal/router"
	"github.com/thehive/timebank/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	startingBonus, ceiling, err := cfg.Bounds()
	if err != nil {
		slog.Error("invalid balance bounds", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.ConnectionString())
	if err != nil {
		slog.Error("unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("cannot reach PostgreSQL; is it running?", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	// River migrations (job queue tables)
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("river migrate up failed", "error", err)
		os.Exit(1)
	}

	// Ledger
	ledgerRepo := ledger.NewRepository(pool, ceiling)
	ledgerSvc := ledger.NewService(ledgerRepo)

	// Notifications: insert func is set after the River client is created
	// (breaks the init cycle).
	var insertMu sync.Mutex
	var insertFn notify.EnqueueTxFunc
	enqueueNotification := func(ctx context.Context, tx pgx.Tx, args notify.NotificationArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	notifyRepo := notify.NewRepository(pool)
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewWorker(notifyRepo, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args notify.NotificationArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	// Repositories
	accountRepo := repository.NewAccountRepo(pool)
	postRepo := repository.NewPostRepo(pool)
	proposalRepo := repository.NewProposalRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	reviewRepo := repository.NewReviewRepo(pool)

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, ledgerSvc, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, startingBonus)
	authHandler := auth.NewHandler(authSvc, logger)
	authed := middleware.JWTAuth(authSvc, accountRepo)

	// Services
	lifecycle := services.NewLifecycle(pool, proposalRepo, jobRepo, postRepo, ledgerSvc, enqueueNotification, logger)
	reviews := services.NewReviews(proposalRepo, jobRepo, postRepo, reviewRepo)

	// Handlers
	postSvc := posts.NewService(postRepo)
	postHandler := posts.NewHandler(postSvc, logger)
	accountHandler := &account.Handler{Ledger: ledgerSvc, Notifications: notifyRepo, Logger: logger}
	proposalHandler := &handlers.ProposalHandler{Lifecycle: lifecycle, Proposals: proposalRepo, Jobs: jobRepo, Logger: logger}
	reviewHandler := &handlers.ReviewHandler{Reviews: reviews, Notifications: notifyRepo, Logger: logger}

	mux := http.NewServeMux()
	mux.Handle("/api/", router.New(authHandler, postHandler, accountHandler, reviewHandler, authed))
	RegisterProposalRoutes(mux, proposalHandler, reviewHandler, authed)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (delivers notifications)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("river client stopped", "error", err)
		}
	}()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.App.Port)
	slog.Info("starting HTTP server", "addr", addr, "app", cfg.App.Name)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
