package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/exchange"
	"github.com/erazemk/polyswap/internal/model"
)

type transactionRow struct {
	model.Transaction
	ScheduleUpdatedAt *time.Time `db:"schedule_updated_at"`
}

// ListTransactions returns the offers userID takes part in, flattened with
// their post, schedule and both parties. An empty stage returns every stage.
func ListTransactions(ctx context.Context, db *sqlx.DB, userID string, stage exchange.Stage) ([]model.Transaction, error) {
	var rows []transactionRow
	err := selectAll(ctx, db, &rows,
		`SELECT o.id AS offer_id, o.post_id, p.title AS post_title, p.category,
		        o.seller_id, COALESCE(su.name, '') AS seller_name, COALESCE(su.photo_url, '') AS seller_photo,
		        o.buyer_id, COALESCE(bu.name, '') AS buyer_name, COALESCE(bu.photo_url, '') AS buyer_photo,
		        o.offered_weight, o.price, o.status AS offer_status,
		        COALESCE(s.status, '') AS schedule_status,
		        COALESCE(s.scheduled_date, '') AS scheduled_date,
		        COALESCE(s.scheduled_time, '') AS scheduled_time,
		        COALESCE(s.collection_img, '') AS collection_img,
		        o.updated_at, s.updated_at AS schedule_updated_at
		 FROM offers o
		 JOIN posts p ON p.id = o.post_id
		 LEFT JOIN users su ON su.id = o.seller_id
		 LEFT JOIN users bu ON bu.id = o.buyer_id
		 LEFT JOIN offer_schedules s ON s.offer_id = o.id
		 WHERE o.seller_id = ? OR o.buyer_id = ?`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	out := make([]model.Transaction, 0, len(rows))
	for _, r := range rows {
		t := r.Transaction
		st, err := transactionStage(&t)
		if err != nil {
			return nil, fmt.Errorf("deriving stage of offer %s: %w", t.OfferID, err)
		}
		if stage != "" && st != stage {
			continue
		}
		t.Stage = st.String()
		if r.ScheduleUpdatedAt != nil && r.ScheduleUpdatedAt.After(t.UpdatedAt) {
			t.UpdatedAt = *r.ScheduleUpdatedAt
		}
		out = append(out, t)
	}

	slices.SortStableFunc(out, func(a, b model.Transaction) int {
		return cmp.Or(b.UpdatedAt.Compare(a.UpdatedAt), cmp.Compare(a.OfferID, b.OfferID))
	})
	return out, nil
}

func transactionStage(t *model.Transaction) (exchange.Stage, error) {
	var sched *model.Schedule
	if t.ScheduleStatus != "" {
		sched = &model.Schedule{Status: t.ScheduleStatus}
	}
	return exchange.StageOf(&model.Offer{Status: t.OfferStatus}, sched)
}
