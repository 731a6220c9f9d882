package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"csrgive.com/app/internal/config"
	"csrgive.com/app/internal/database"
	apphttp "csrgive.com/app/internal/http"
	"csrgive.com/app/internal/http/middleware"
	"csrgive.com/app/internal/mailer"
	"csrgive.com/app/internal/modules/audit"
	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/modules/giving"
	"csrgive.com/app/internal/modules/notifications"
	"csrgive.com/app/internal/modules/payments"
	"csrgive.com/app/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database, cfg.IsDevelopment(), logger)
	if err != nil {
		return err
	}
	if cfg.IsDevelopment() {
		if err := database.Migrate(db); err != nil {
			return err
		}
		logger.Info("auto-migration completed")
	}

	pay := payments.NewService(db, cfg.Payment.DefaultProvider, cfg.Payment.Currency)
	pay.SetLogger(logger)
	for _, p := range payments.NewProviders(cfg.Payment) {
		pay.RegisterProvider(p.Name(), p)
	}
	if _, err := pay.Provider(""); err != nil {
		return err
	}
	logger.Info("payment providers ready", "providers", pay.Providers(), "default", cfg.Payment.DefaultProvider)

	webhooks := payments.NewWebhookService(db)
	webhooks.SetLogger(logger)

	mail, err := mailer.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	notifier := notifications.NewService(mail, cfg.Mail)

	auditor := audit.NewService(db)
	auditor.SetLogger(logger)

	givingSvc := giving.NewService(db, pay, notifier, auditor, cfg.Refund.Window())
	givingSvc.SetLogger(logger)

	st, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	archiver := donations.NewReceiptArchiver(donations.NewRepo(db), st.Storage)
	archiver.SetLogger(logger)
	logger.Info("receipt storage ready", "driver", st.Driver)

	limiter := newLimiter(ctx, cfg, logger)

	r := apphttp.NewRouter(logger, db, cfg, apphttp.Deps{
		Payments: pay,
		Webhooks: webhooks,
		Giving:   givingSvc,
		Archiver: archiver,
		Audit:    auditor,
		Limiter:  limiter,
	})

	srv := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.App.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server exited")
	return nil
}

// newLimiter prefers Redis so limits hold across instances; without it, or
// when Redis does not answer, each process counts on its own.
func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) middleware.Limiter {
	perMinute := cfg.RateLimit.DonationsPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}

	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return middleware.NewMemoryLimiter(perMinute, time.Minute)
	}

	rc := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-memory rate limiter", "addr", addr, "err", err)
		_ = rc.Close()
		return middleware.NewMemoryLimiter(perMinute, time.Minute)
	}
	return middleware.NewRedisLimiter(rc, perMinute, time.Minute)
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
