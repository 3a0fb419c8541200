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

	"github.com/spf13/cobra"

	"github.com/erazemk/polyswap/internal/api"
	"github.com/erazemk/polyswap/internal/config"
	"github.com/erazemk/polyswap/internal/exchange"
	"github.com/erazemk/polyswap/internal/notify"
	"github.com/erazemk/polyswap/internal/storage"
	"github.com/erazemk/polyswap/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		closeLog, err := setupLogger(cfg.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()

		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg *config.Config) error {
	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database ready", "driver", cfg.DBDriver)

	secret, err := jwtSecret(ctx, cfg, database)
	if err != nil {
		return fmt.Errorf("loading jwt secret: %w", err)
	}

	var proofs storage.Storage
	if cfg.MinIO.Enabled() {
		m, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return fmt.Errorf("connecting to proof storage: %w", err)
		}
		proofs = m
		slog.Info("proof storage ready", "endpoint", cfg.MinIO.Endpoint, "bucket", cfg.MinIO.Bucket)
	} else {
		slog.Warn("MINIO_ENDPOINT not set, photo uploads disabled")
	}

	inbox := notify.NewInbox(database)
	engine := exchange.NewEngine(store.New(database), inbox, exchange.WithLogger(slog.Default()))

	handler := api.LoggingMiddleware(api.NewRouter(api.Deps{
		DB:        database,
		Engine:    engine,
		Inbox:     inbox,
		Proofs:    proofs,
		JWTSecret: secret,
	}))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
