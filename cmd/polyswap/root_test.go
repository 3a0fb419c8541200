package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/polyswap/internal/db"
	"github.com/erazemk/polyswap/internal/store"
)

func TestMigrateAndUserCommands(t *testing.T) {
	t.Setenv("POLYSWAP_JWT_SECRET", "")
	t.Setenv("POLYSWAP_DB_DRIVER", "")
	path := filepath.Join(t.TempDir(), "polyswap.db")

	rootCmd.SetArgs([]string{"migrate", "--db", path})
	require.NoError(t, rootCmd.Execute())
	_, err := os.Stat(path)
	require.NoError(t, err)

	rootCmd.SetArgs([]string{"user", "add", "Ana Novak", "--db", path})
	require.NoError(t, rootCmd.Execute())

	database, err := db.Open(db.DriverSQLite, path)
	require.NoError(t, err)
	defer database.Close()

	users, err := store.ListUsers(context.Background(), database)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ana Novak", users[0].Name)
}

func TestLoadConfigRejectsBadDriver(t *testing.T) {
	t.Setenv("POLYSWAP_JWT_SECRET", "")
	rootCmd.SetArgs([]string{"migrate", "--db-driver", "mysql", "--db", filepath.Join(t.TempDir(), "x.db")})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DBDriver")
}

func TestLevelRouterSplitsByLevel(t *testing.T) {
	var out, errOut strings.Builder
	logger := slog.New(&levelRouter{
		stdout: slog.NewTextHandler(&out, nil),
		stderr: slog.NewTextHandler(&errOut, nil),
	})

	logger.Info("hello")
	logger.Warn("careful")
	logger.Error("broken")
	logger.Debug("hidden")

	assert.Contains(t, out.String(), "hello")
	assert.Contains(t, out.String(), "careful")
	assert.NotContains(t, out.String(), "broken")
	assert.Contains(t, errOut.String(), "broken")
	assert.NotContains(t, out.String()+errOut.String(), "hidden")
}
