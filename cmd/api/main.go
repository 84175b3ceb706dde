package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/sync/errgroup"

	"invoicer/internal/auth"
	"invoicer/internal/config"
	"invoicer/internal/database"
	apperrors "invoicer/internal/errors"
	"invoicer/internal/logger"
	"invoicer/internal/notify"
	"invoicer/internal/router"
	"invoicer/internal/services"
	"invoicer/internal/storage"
	"invoicer/internal/validator"
)

// @title           Invoicer API
// @version         1.0
// @description     Invoicer lets users keep an account, issue invoices to their clients, track payment and send reminders.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitWithOptions(cfg.Env, logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	// Create database manager
	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profile image storage: %w", err)
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	notifier := notify.NewDispatcher(notify.NewMailer(cfg), cfg.ClientURL)
	userService := services.NewUserService(db, store, notifier, services.UserOptions{
		ResetTokenTTL:  cfg.ResetTokenTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	invoiceService := services.NewInvoiceService(db, notifier)
	auditService := services.NewAuditService(db)

	handler := router.New(router.Deps{
		Mode:        apperrors.ParseMode(cfg.Env),
		Tokens:      auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpirationDur),
		Users:       userService,
		Invoices:    invoiceService,
		Audit:       auditService,
		CORSOrigins: []string{cfg.ClientURL},
		Health:      dbManager.Ping,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gzhttp.GzipHandler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting Invoicer API server on port %s", cfg.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
