// Package notify delivers exchange notifications to users' inboxes.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/exchange"
	"github.com/erazemk/polyswap/internal/model"
	"github.com/erazemk/polyswap/internal/store"
)

// Inbox persists notifications so clients can poll them.
type Inbox struct {
	db *sqlx.DB
}

var _ exchange.Notifier = (*Inbox)(nil)

// NewInbox returns an inbox on db.
func NewInbox(db *sqlx.DB) *Inbox {
	return &Inbox{db: db}
}

// Notify implements exchange.Notifier.
func (i *Inbox) Notify(ctx context.Context, n model.Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("notification %q has no recipient", n.Title)
	}
	if err := store.CreateNotification(ctx, i.db, n); err != nil {
		return err
	}
	slog.Debug("notification stored", "user", n.UserID, "category", n.Category, "ref", n.RefID)
	return nil
}

// List returns a user's notifications, newest first.
func (i *Inbox) List(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	return store.ListNotifications(ctx, i.db, userID, unreadOnly)
}

// MarkRead marks one notification read. It returns false when the
// notification does not belong to userID or was already read.
func (i *Inbox) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	return store.MarkNotificationRead(ctx, i.db, id, userID)
}
