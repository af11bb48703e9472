// Command api is the Courtside club back-office server.
//
// Usage:
//
//	courtside-api
//	API_PORT=8080 courtside-api

// @title Courtside API
// @version 1.0.0
// @description Youth basketball club back office: roster imports, registrations, payments, schedules and documents.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Courtside
// @license.name MIT
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/courtside/internal/api"
	"github.com/albapepper/courtside/internal/api/handler"
	"github.com/albapepper/courtside/internal/auth"
	"github.com/albapepper/courtside/internal/cache"
	"github.com/albapepper/courtside/internal/config"
	"github.com/albapepper/courtside/internal/db"
	"github.com/albapepper/courtside/internal/documents"
	"github.com/albapepper/courtside/internal/listener"
	"github.com/albapepper/courtside/internal/maintenance"
	"github.com/albapepper/courtside/internal/notifications"
	"github.com/albapepper/courtside/internal/payments"
	"github.com/albapepper/courtside/internal/registration"
	"github.com/albapepper/courtside/internal/roster"
	"github.com/albapepper/courtside/internal/schedule"

	_ "github.com/albapepper/courtside/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	fees, err := config.LoadFeeSchedule(cfg.FeeScheduleFile)
	if err != nil {
		logger.Error("Failed to load fee schedule", "file", cfg.FeeScheduleFile, "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	club := notifications.Club{Name: cfg.ClubName, Email: cfg.ClubEmail}

	// Payments
	var gateway payments.Gateway
	if gw := payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret); gw != nil {
		gateway = gw
		logger.Info("Stripe payments enabled", "currency", cfg.Currency)
	} else {
		logger.Info("Stripe payments disabled (no STRIPE_SECRET_KEY)")
	}
	paymentStore := payments.NewPostgresStore(pool.Pool)
	checkout := payments.NewCheckoutService(paymentStore, gateway, cfg.PublicURL, cfg.ClubName, logger)
	webhooks := payments.NewProcessor(paymentStore, club, cfg.PublicURL, logger)

	// Schedule and documents
	scheduleSvc := schedule.NewService(schedule.NewPostgresStore(pool.Pool), logger)
	docs := documents.NewService(
		documents.NewPostgresSource(pool.Pool, paymentStore, scheduleSvc),
		documents.Club{Name: cfg.ClubName, Address: cfg.ClubAddress, Email: cfg.ClubEmail},
	)

	registrations := registration.NewService(registration.NewPostgresStore(pool.Pool), checkout, registration.Options{
		Fees:      fees,
		Currency:  cfg.Currency,
		Club:      club,
		PublicURL: cfg.PublicURL,
	}, logger)

	// Email outbox dispatch
	var sender notifications.Sender = notifications.LogSender{Logger: logger}
	if sg := notifications.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddr); sg != nil {
		sender = sg
		logger.Info("SendGrid email delivery enabled", "from", cfg.EmailFromAddr)
	} else {
		logger.Info("Email delivery disabled (no SENDGRID_API_KEY); emails are logged")
	}
	dispatcher := notifications.NewDispatcher(
		notifications.NewPostgresQueue(pool.Pool, cfg.EmailMaxTries), sender, docs, logger)
	go dispatcher.Run(ctx)

	// LISTEN/NOTIFY wakes the dispatcher as soon as an email is enqueued
	go listener.Start(ctx, cfg.DatabaseURL, dispatcher, logger)

	// Maintenance tickers (requeue, expiry, cleanup)
	go maintenance.Start(ctx, pool.Pool, maintenance.DefaultConfig(), logger)

	h := handler.New(handler.Deps{
		DB:            pool.Pool,
		Cache:         appCache,
		Config:        cfg,
		Logger:        logger,
		Roster:        roster.NewPostgresStore(pool.Pool),
		Registrations: registrations,
		Checkout:      checkout,
		Gateway:       gateway,
		Webhooks:      webhooks,
		Documents:     docs,
		Schedule:      scheduleSvc,
	})
	router := api.NewRouter(h, auth.NewService(cfg.SessionSecret, cfg.SessionTTL), cfg)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting Courtside API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
