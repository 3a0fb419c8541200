package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/polyswap/internal/db"
	"github.com/erazemk/polyswap/internal/model"
)

func TestNotificationInbox(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	ana, _ := CreateUser(ctx, database, "Ana", "")
	bob, _ := CreateUser(ctx, database, "Bob", "")

	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	first := model.Notification{ID: uuid.NewString(), UserID: ana.ID, Title: "New offer", Category: model.NotifyOffer, RefType: "offer", RefID: "o1", CreatedAt: base}
	second := model.Notification{ID: uuid.NewString(), UserID: ana.ID, Title: "Goal met", Category: model.NotifyGoalMet, CreatedAt: base.Add(time.Minute)}
	other := model.Notification{ID: uuid.NewString(), UserID: bob.ID, Title: "Hi", Category: model.NotifyOffer}

	for _, n := range []model.Notification{first, second, other} {
		require.NoError(t, CreateNotification(ctx, database, n))
	}

	inbox, err := ListNotifications(ctx, database, ana.ID, false)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, second.ID, inbox[0].ID)
	assert.Nil(t, inbox[0].ReadAt)

	ok, err := MarkNotificationRead(ctx, database, first.ID, ana.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Another user's notification cannot be marked.
	ok, err = MarkNotificationRead(ctx, database, other.ID, ana.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	unread, err := ListNotifications(ctx, database, ana.ID, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)
}
