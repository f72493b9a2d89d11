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

	"github.com/dom/taskflow/internal/api"
	"github.com/dom/taskflow/internal/auth"
	"github.com/dom/taskflow/internal/config"
	"github.com/dom/taskflow/internal/logging"
	"github.com/dom/taskflow/internal/repository/postgres"
	"github.com/dom/taskflow/internal/service"
	"github.com/dom/taskflow/internal/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")

	return cmd
}

// bootstrap loads configuration and opens the database.
func bootstrap() (*config.Config, *logrus.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.Environment)

	gormLevel := logger.Silent
	if cfg.IsDevelopment() {
		gormLevel = logger.Warn
	}

	db, err := postgres.NewConnection(cfg.DatabaseURL, gormLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, log, db, nil
}

func runServer(ctx context.Context, migrate bool) error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}

	if migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("database migrations applied")
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	// Initialize WebSocket hub
	hub := websocket.NewHub(log)
	go hub.Run()

	// Initialize services
	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTExpiration)
	services := service.NewServices(repos, tokens, hub, cfg, log)

	// Initialize router
	router := api.NewRouter(services, hub, cfg, log)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "environment": cfg.Environment}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serveErr:
		if ok {
			hub.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-quit:
	}

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	hub.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("server stopped")
	return nil
}
