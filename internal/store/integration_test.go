//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/erazemk/polyswap/internal/db"
	"github.com/erazemk/polyswap/internal/exchange"
	"github.com/erazemk/polyswap/internal/model"
)

// newPostgresDB starts a PostgreSQL container and returns a migrated database.
func newPostgresDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("polyswap"),
		postgres.WithUsername("polyswap"),
		postgres.WithPassword("polyswap"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminating container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	database, err := db.Open(db.DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

func TestPostgresExchange(t *testing.T) {
	database := newPostgresDB(t)
	ctx := context.Background()
	s := New(database)

	owner, err := CreateUser(ctx, database, "Owner", "")
	require.NoError(t, err)
	responder, err := CreateUser(ctx, database, "Responder", "")
	require.NoError(t, err)
	post, err := CreatePost(ctx, database, owner.ID, PostInput{
		Category:    model.CategorySelling,
		Title:       "HDPE crates",
		TotalWeight: 5,
		Price:       12.5,
	})
	require.NoError(t, err)

	engine := exchange.NewEngine(s, nil)
	res, err := engine.SubmitOffer(ctx, post.ID, responder.ID, exchange.OfferInput{OfferedWeight: 8})
	require.NoError(t, err)
	offerID := res.Deal.Offer.ID

	_, err = engine.SubmitOffer(ctx, post.ID, responder.ID, exchange.OfferInput{OfferedWeight: 1})
	assert.ErrorIs(t, err, exchange.ErrDuplicateActiveOffer)

	// Two owners' sessions race to accept the same offer.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.AcceptOffer(ctx, offerID, owner.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, exchange.ErrConflict)
	}
	assert.GreaterOrEqual(t, ok, 1)

	got, err := GetPost(ctx, database, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.RemainingWeight)

	txs, err := ListTransactions(ctx, database, responder.ID, exchange.StageOfferAccepted)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Owner", txs[0].SellerName)

	secret, err := GetJWTSecret(ctx, database)
	require.NoError(t, err)
	assert.Len(t, secret, 64)
}
