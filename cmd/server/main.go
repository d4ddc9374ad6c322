package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/mail-scheduler/internal/api"
	"github.com/notifyhub/mail-scheduler/internal/config"
	"github.com/notifyhub/mail-scheduler/internal/db"
	"github.com/notifyhub/mail-scheduler/internal/mailer"
	"github.com/notifyhub/mail-scheduler/internal/metrics"
	"github.com/notifyhub/mail-scheduler/internal/ratelimiter"
	"github.com/notifyhub/mail-scheduler/internal/repository"
	"github.com/notifyhub/mail-scheduler/internal/service"
	"github.com/notifyhub/mail-scheduler/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := repository.NewPgStore(pool)
	limiter := ratelimiter.New(cfg.SendRateLimit)

	transport, err := mailer.NewSMTPTransport(mailer.Config{
		Host:     cfg.MailServer,
		Port:     cfg.MailPort,
		Username: cfg.MailUsername,
		Password: cfg.MailPassword,
		UseTLS:   cfg.MailUseTLS,
		UseSSL:   cfg.MailUseSSL,
		From:     cfg.MailDefaultSender,
		Timeout:  cfg.MailTimeout,
	})
	if err != nil {
		logger.Fatal("failed to create mail transport", zap.Error(err))
	}

	// ---- dispatch engine ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onDelivery, onPending := m.DispatchHooks()
	deliverer := worker.NewDeliverer(store, transport, limiter, logger, onDelivery)
	dispatcher := worker.NewDispatcher(
		store, deliverer,
		cfg.DispatchInterval, cfg.DispatchWorkers, cfg.ClaimBatch,
		logger, onPending,
	)
	dispatcher.Start(workerCtx)

	svc := service.NewSchedulerService(store, dispatcher, logger, service.Hooks{
		OnScheduled: m.ScheduledTotal.Inc,
		OnCancelled: m.CancelledTotal.Inc,
	})

	// ---- HTTP server ----
	router := api.NewRouter(svc, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the dispatch engine to stop firing new timers.
	cancelWorkers()

	// 3. Wait for in-flight deliveries to finish.
	dispatcher.Wait()

	logger.Info("server stopped cleanly")
}
