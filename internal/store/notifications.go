package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/model"
)

// CreateNotification stores a notification in the recipient's inbox.
func CreateNotification(ctx context.Context, db *sqlx.DB, n model.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := exec(ctx, db,
		`INSERT INTO notifications (id, user_id, title, body, category, ref_type, ref_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Body, n.Category, n.RefType, n.RefID, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func ListNotifications(ctx context.Context, db *sqlx.DB, userID string, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT id, user_id, title, body, category, ref_type, ref_id, created_at, read_at
	          FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id`

	var out []model.Notification
	if err := selectAll(ctx, db, &out, query, userID); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead marks one of the user's notifications read. It
// returns false if no unread notification matched.
func MarkNotificationRead(ctx context.Context, db *sqlx.DB, id, userID string) (bool, error) {
	res, err := exec(ctx, db,
		`UPDATE notifications SET read_at = ? WHERE id = ? AND user_id = ? AND read_at IS NULL`,
		time.Now().UTC(), id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	return n > 0, nil
}
