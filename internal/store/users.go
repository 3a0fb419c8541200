package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/model"
)

// CreateUser creates a new user.
func CreateUser(ctx context.Context, db *sqlx.DB, name, photoURL string) (*model.User, error) {
	if err := model.ValidateName(name); err != nil {
		return nil, err
	}

	u := &model.User{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		PhotoURL:  photoURL,
		CreatedAt: time.Now().UTC(),
	}
	_, err := exec(ctx, db,
		`INSERT INTO users (id, name, photo_url, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, u.PhotoURL, u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, db, u.ID)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sqlx.DB, id string) (*model.User, error) {
	u := &model.User{}
	err := get(ctx, db, u,
		`SELECT id, name, photo_url, created_at FROM users WHERE id = ?`, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// ListUsers returns all users.
func ListUsers(ctx context.Context, db *sqlx.DB) ([]model.User, error) {
	var users []model.User
	err := selectAll(ctx, db, &users,
		`SELECT id, name, photo_url, created_at FROM users ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// UpdateUserPhoto sets a user's profile photo URL.
func UpdateUserPhoto(ctx context.Context, db *sqlx.DB, id, photoURL string) error {
	_, err := exec(ctx, db,
		`UPDATE users SET photo_url = ? WHERE id = ?`,
		photoURL, id,
	)
	if err != nil {
		return fmt.Errorf("updating user photo: %w", err)
	}
	return nil
}
