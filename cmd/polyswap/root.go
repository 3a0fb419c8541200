package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/erazemk/polyswap/internal/config"
	"github.com/erazemk/polyswap/internal/db"
	"github.com/erazemk/polyswap/internal/store"
)

var (
	// Global flags. When set they override the environment.
	dbDriver string
	dbDSN    string
	logPath  string
)

var rootCmd = &cobra.Command{
	Use:   "polyswap",
	Short: "Polyswap - exchange of recyclable material between neighbours",
	Long: `Polyswap serves the HTTP API through which users post recyclable material,
respond with offers and carry an exchange from offer to completed collection.

Configuration is read from the environment (and a .env file when present):
  POLYSWAP_ADDR, POLYSWAP_DB_DRIVER, POLYSWAP_DB_DSN, POLYSWAP_JWT_SECRET,
  POLYSWAP_TOKEN_TTL, POLYSWAP_LOG, MINIO_ENDPOINT, MINIO_ACCESS_KEY,
  MINIO_SECRET_KEY, MINIO_BUCKET, MINIO_USE_SSL, MINIO_PUBLIC_URL`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "database driver: sqlite or postgres")
	rootCmd.PersistentFlags().StringVarP(&dbDSN, "db", "d", "", "database DSN (SQLite path or Postgres URL)")
	rootCmd.PersistentFlags().StringVarP(&logPath, "log", "l", "", "log file path (default: stdout/stderr only)")
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("db-driver") {
		cfg.DBDriver = dbDriver
	}
	if flags.Changed("db") {
		cfg.DBDSN = dbDSN
	}
	if flags.Changed("log") {
		cfg.LogFile = logPath
	}
	if flags.Changed("addr") {
		cfg.Addr = serveAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDatabase opens the configured database and brings its schema up to date.
func openDatabase(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return database, nil
}

// jwtSecret returns the configured signing secret, or the one stored in the
// database (generated on first use).
func jwtSecret(ctx context.Context, cfg *config.Config, database *sqlx.DB) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	return store.GetJWTSecret(ctx, database)
}
