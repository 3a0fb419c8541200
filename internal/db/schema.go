package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema. It is valid for both SQLite and
// PostgreSQL; ids are uuid strings and list columns hold JSON arrays.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    photo_url  TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
    id               TEXT PRIMARY KEY,
    owner_id         TEXT NOT NULL REFERENCES users(id),
    category         TEXT NOT NULL CHECK (category IN ('SEEKING', 'SELLING')),
    title            TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    total_weight     DOUBLE PRECISION NOT NULL CHECK (total_weight > 0),
    remaining_weight DOUBLE PRECISION NOT NULL CHECK (remaining_weight >= 0),
    price            DOUBLE PRECISION NOT NULL DEFAULT 0,
    collection_mode  TEXT NOT NULL DEFAULT 'meetup' CHECK (collection_mode IN ('meetup', 'pickup', 'dropoff')),
    location         TEXT NOT NULL DEFAULT '',
    item_types       TEXT NOT NULL DEFAULT '[]',
    photos           TEXT NOT NULL DEFAULT '[]',
    status           TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'closed')),
    created_at       TIMESTAMP NOT NULL,
    updated_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS offers (
    id               TEXT PRIMARY KEY,
    post_id          TEXT NOT NULL REFERENCES posts(id),
    seller_id        TEXT NOT NULL REFERENCES users(id),
    buyer_id         TEXT NOT NULL REFERENCES users(id),
    responder_id     TEXT NOT NULL REFERENCES users(id),
    offered_items    TEXT NOT NULL DEFAULT '[]',
    offered_weight   DOUBLE PRECISION NOT NULL CHECK (offered_weight > 0),
    requested_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
    price            DOUBLE PRECISION NOT NULL DEFAULT 0,
    message          TEXT NOT NULL DEFAULT '',
    images           TEXT NOT NULL DEFAULT '[]',
    status           TEXT NOT NULL DEFAULT 'pending'
                     CHECK (status IN ('pending', 'accepted', 'declined', 'cancelled', 'completed')),
    created_at       TIMESTAMP NOT NULL,
    updated_at       TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_offers_open
    ON offers(post_id, responder_id) WHERE status IN ('pending', 'accepted');

CREATE TABLE IF NOT EXISTS offer_schedules (
    offer_id       TEXT PRIMARY KEY REFERENCES offers(id),
    post_id        TEXT NOT NULL REFERENCES posts(id),
    offerer_id     TEXT NOT NULL REFERENCES users(id),
    collector_id   TEXT NOT NULL REFERENCES users(id),
    proposed_by    TEXT NOT NULL REFERENCES users(id),
    scheduled_date TEXT NOT NULL,
    scheduled_time TEXT NOT NULL,
    status         TEXT NOT NULL,
    collection_img TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES users(id),
    title      TEXT NOT NULL,
    body       TEXT NOT NULL DEFAULT '',
    category   TEXT NOT NULL,
    ref_type   TEXT NOT NULL DEFAULT '',
    ref_id     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    read_at    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    name  TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
