package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/tally/internal/audit"
	"github.com/MrJamesThe3rd/tally/internal/category"
	categoryStore "github.com/MrJamesThe3rd/tally/internal/category/store"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/export"
	tallyHttp "github.com/MrJamesThe3rd/tally/internal/http"
	auditHandler "github.com/MrJamesThe3rd/tally/internal/http/audit"
	categoryHandler "github.com/MrJamesThe3rd/tally/internal/http/category"
	exportHandler "github.com/MrJamesThe3rd/tally/internal/http/export"
	importHandler "github.com/MrJamesThe3rd/tally/internal/http/importcsv"
	ruleHandler "github.com/MrJamesThe3rd/tally/internal/http/rule"
	sessionHandler "github.com/MrJamesThe3rd/tally/internal/http/session"
	subscriptionHandler "github.com/MrJamesThe3rd/tally/internal/http/subscription"
	txHandler "github.com/MrJamesThe3rd/tally/internal/http/transaction"
	walletHandler "github.com/MrJamesThe3rd/tally/internal/http/wallet"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/logging"
	"github.com/MrJamesThe3rd/tally/internal/rule"
	ruleStore "github.com/MrJamesThe3rd/tally/internal/rule/store"
	"github.com/MrJamesThe3rd/tally/internal/session"
	"github.com/MrJamesThe3rd/tally/internal/subscription"
	subscriptionStore "github.com/MrJamesThe3rd/tally/internal/subscription/store"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txStore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
	walletStore "github.com/MrJamesThe3rd/tally/internal/wallet/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.App.LogLevel, cfg.App.LogJSON).With("app", cfg.App.Name)
	slog.SetDefault(logger)

	ctx := context.Background()

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var cache *redis.Client

	if cfg.Redis.URL != "" {
		cache, err = database.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer cache.Close()
	} else {
		slog.Warn("REDIS_URL not set, Idempotency-Key headers are ignored")
	}

	var (
		transactionService  = transaction.NewService(txStore.New(db))
		walletService       = wallet.NewService(walletStore.New(db))
		categoryService     = category.NewService(categoryStore.New(db))
		subscriptionService = subscription.NewService(subscriptionStore.New(db), transactionService)
		auditService        = audit.NewService(walletStore.New(db), cfg.Audit.Tolerance)
		ruleService         = rule.NewService(ruleStore.New(db))
		importService       = importer.NewService(ruleService)
		exportService       = export.NewService(transactionService, walletService, categoryService)
		lock                = session.NewService(cfg.Lock.PINHash, cfg.Lock.SessionSecret, cfg.Lock.Timeout)
	)

	if cfg.Notifications.Enabled {
		logDueSubscriptions(ctx, subscriptionService, cfg.Notifications.LeadDays)
	}

	if !lock.Enabled() {
		slog.Warn("PIN_HASH not set, the API is not locked")
	}

	handlers := tallyHttp.Handlers{
		Session:       sessionHandler.NewHandler(lock),
		Wallets:       walletHandler.NewHandler(walletService),
		Transactions:  txHandler.NewHandler(transactionService),
		Categories:    categoryHandler.NewHandler(categoryService),
		Subscriptions: subscriptionHandler.NewHandler(subscriptionService, cfg.Notifications.LeadDays),
		Audit:         auditHandler.NewHandler(auditService),
		Import:        importHandler.NewHandler(importService, transactionService),
		Rules:         ruleHandler.NewHandler(ruleService),
		Export:        exportHandler.NewHandler(exportService),
	}

	router := tallyHttp.New(handlers, tallyHttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Timeout:        cfg.Server.Timeout,
		Lock:           lock,
		Cache:          cache,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErrCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "port", srv.Addr)
		srvErrCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}

		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited cleanly")
}

// logDueSubscriptions writes one reminder line per subscription due within
// leadDays.
func logDueSubscriptions(ctx context.Context, subs *subscription.Service, leadDays int) {
	due, err := subs.Upcoming(ctx, time.Duration(leadDays)*24*time.Hour)
	if err != nil {
		slog.Warn("failed to list due subscriptions", "error", err)
		return
	}

	for _, sub := range due {
		slog.Info("subscription due",
			"service", sub.ServiceName,
			"amount", sub.Amount.StringFixed(2),
			"due", sub.NextDueDate.Format(time.DateOnly))
	}
}
