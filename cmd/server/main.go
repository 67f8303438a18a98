// Package main provides the entry point for the merge queue HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appConfig "github.com/festy23/mergequeue/internal/config"
	"github.com/festy23/mergequeue/internal/database/database"
	"github.com/festy23/mergequeue/internal/database/migrate"
	"github.com/festy23/mergequeue/internal/health"
	"github.com/festy23/mergequeue/internal/middleware"
	pullrequestRouter "github.com/festy23/mergequeue/internal/pullrequest/router"
	statisticsRouter "github.com/festy23/mergequeue/internal/statistics/router"
	"github.com/festy23/mergequeue/internal/webhook"
	"github.com/festy23/mergequeue/pkg/logger"
)

func main() {
	cfg := appConfig.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	sugar, err := logger.NewWithConfig(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = sugar.Sync() }()

	if err := run(cfg, sugar); err != nil {
		sugar.Errorw("server stopped with error", "error", err)
		_ = sugar.Sync()
		os.Exit(1)
	}
}

func run(cfg appConfig.Config, sugar *zap.SugaredLogger) error {
	db, err := database.New(sugar)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := database.Close(db); closeErr != nil {
			sugar.Errorw("failed to close database", "error", closeErr)
		}
	}()

	if err := migrate.Migrate(db, sugar); err != nil {
		return err
	}

	if cfg.Webhook.Secret == "" {
		sugar.Warnw("GITHUB_WEBHOOK_SECRET is empty, webhook signatures are not verified")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(middleware.Recovery(sugar), middleware.Logger(sugar))

	// The delegation schema is detected here, after migrations ran.
	pullRequests := pullrequestRouter.NewService(db, sugar)

	health.RegisterRoutes(r, db, sugar)
	pullrequestRouter.RegisterRoutes(r, pullRequests, sugar)
	webhook.RegisterRoutes(r, pullRequests, cfg.Webhook.Secret, sugar)
	statisticsRouter.RegisterRoutes(r, db, sugar)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		sugar.Infow("starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	sugar.Infow("shutting down HTTP server", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx := context.Background()
	if cfg.Server.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, cfg.Server.ShutdownTimeout)
		defer cancel()
	}
	return srv.Shutdown(shutdownCtx)
}
