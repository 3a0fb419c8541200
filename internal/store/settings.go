package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const settingJWTSecret = "jwt_secret"

// GetJWTSecret returns the signing key for bearer tokens, creating a random
// one on first use. Every instance sharing the database signs with it.
func GetJWTSecret(ctx context.Context, db *sqlx.DB) (string, error) {
	return ensureSetting(ctx, db, settingJWTSecret, func() (string, error) {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		return hex.EncodeToString(buf), nil
	})
}

// ensureSetting returns the stored value of name, writing generate's value
// first when none exists. Concurrent callers converge on whichever insert
// landed first.
func ensureSetting(ctx context.Context, db *sqlx.DB, name string, generate func() (string, error)) (string, error) {
	var value string
	err := get(ctx, db, &value, `SELECT value FROM settings WHERE name = ?`, name)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("reading setting %s: %w", name, err)
	}

	candidate, err := generate()
	if err != nil {
		return "", fmt.Errorf("generating setting %s: %w", name, err)
	}
	if _, err := exec(ctx, db,
		`INSERT INTO settings (name, value) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
		name, candidate,
	); err != nil {
		return "", fmt.Errorf("storing setting %s: %w", name, err)
	}

	if err := get(ctx, db, &value, `SELECT value FROM settings WHERE name = ?`, name); err != nil {
		return "", fmt.Errorf("reading setting %s: %w", name, err)
	}
	return value, nil
}
