package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: lookup indexes for the transactions view and the inbox.
	`CREATE INDEX IF NOT EXISTS idx_offers_seller ON offers(seller_id)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_buyer ON offers(buyer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at)`,

	// Migration 2: posts listing by status.
	`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status, created_at)`,
}

// Migrate runs the database schema migrations.
func Migrate(db *sqlx.DB) error {
	if err := EnsureSchema(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
