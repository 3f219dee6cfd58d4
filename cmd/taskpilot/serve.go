package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atomm/taskpilot/internal/api"
	"github.com/atomm/taskpilot/internal/core/session"
	"github.com/atomm/taskpilot/internal/infrastructure/config"
	"github.com/atomm/taskpilot/internal/infrastructure/db/csvstore"
	"github.com/atomm/taskpilot/internal/infrastructure/queue"
	"github.com/atomm/taskpilot/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Configuration comes from the environment (PORT, JWT_SECRET, STORE_DRIVER, ...).
Dirty session data is flushed every AUTOSAVE_INTERVAL and once more on shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), workers)
		},
	}
	cmd.Flags().IntVar(&workers, "autosave-workers", 4, "number of autosave workers")

	return cmd
}

func runServe(parent context.Context, workers int) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), Service: "taskpilot"})

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	directory, closeDirectory, err := openDirectory(ctx, cfg, log)
	if err != nil {
		_ = closeStore(context.Background())
		return fmt.Errorf("open session directory: %w", err)
	}

	registry := session.NewRegistry(store, directory, cfg.TokenTTL, log)
	autosaver := queue.NewAutosaver(workers, cfg.AutosaveInterval, registry, log)

	e := api.NewRouter(api.Deps{
		Registry:  registry,
		Store:     store,
		Directory: directory,
		Settings:  csvstore.NewSettingsRepository(cfg.Store.DataDir, log),
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Logger:    log,
	})

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	autosaver.Start(workerCtx)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("store", cfg.Store.Driver).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}

	cancelWorkers()
	autosaver.Wait()
	if err := autosaver.FlushAll(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("final flush incomplete, some changes were not saved")
	}

	if err := closeDirectory(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("close session directory")
	}
	if err := closeStore(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("close record store")
	}
	log.Info().Msg("stopped")
	return nil
}
