package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RevokeToken puts a bearer token's ID on the deny list until expiresAt.
// Tokens that already expired are not recorded since the signature check
// rejects them anyway. Every call also drops entries that outlived their
// token.
func RevokeToken(ctx context.Context, db *sqlx.DB, jti string, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("revoking token: empty token id")
	}

	now := time.Now().UTC()
	if expiresAt.After(now) {
		_, err := exec(ctx, db,
			`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT (jti) DO NOTHING`,
			jti, expiresAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("revoking token %s: %w", jti, err)
		}
	}

	if _, err := PurgeExpiredTokens(ctx, db, now); err != nil {
		return err
	}
	return nil
}

// PurgeExpiredTokens removes deny-list entries whose token expired before
// now and reports how many were dropped.
func PurgeExpiredTokens(ctx context.Context, db *sqlx.DB, now time.Time) (int64, error) {
	res, err := exec(ctx, db, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purging revoked tokens: %w", err)
	}
	return n, nil
}

// IsTokenRevoked reports whether jti is on the deny list.
func IsTokenRevoked(ctx context.Context, db *sqlx.DB, jti string) (bool, error) {
	var revoked bool
	err := get(ctx, db, &revoked, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti)
	if err != nil {
		return false, fmt.Errorf("checking token %s: %w", jti, err)
	}
	return revoked, nil
}
