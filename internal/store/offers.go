package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/polyswap/internal/exchange"
	"github.com/erazemk/polyswap/internal/model"
)

const offerColumns = `id, post_id, seller_id, buyer_id, responder_id, offered_items, offered_weight,
	requested_weight, price, message, images, status, created_at, updated_at`

// LoadDeal returns an offer with its post and schedule.
func (s *Store) LoadDeal(ctx context.Context, offerID string) (*exchange.Deal, error) {
	d := &exchange.Deal{}

	err := get(ctx, s.q, &d.Offer, `SELECT `+offerColumns+` FROM offers WHERE id = ?`, offerID)
	if err != nil {
		return nil, notFound(err, "offer "+offerID)
	}

	err = get(ctx, s.q, &d.Post, `SELECT `+postColumns+` FROM posts WHERE id = ?`, d.Offer.PostID)
	if err != nil {
		return nil, notFound(err, "post "+d.Offer.PostID)
	}

	sched, err := getSchedule(ctx, s.q, offerID)
	if err != nil {
		return nil, err
	}
	d.Schedule = sched

	return d, nil
}

// GetPost returns a post or ErrNotFound.
func (s *Store) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	p, err := GetPost(ctx, s.q, postID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("post %s: %w", postID, exchange.ErrNotFound)
	}
	return p, nil
}

// InsertOffer stores a new offer. A second open offer from the same
// responder on the same post fails with ErrDuplicateActiveOffer.
func (s *Store) InsertOffer(ctx context.Context, o *model.Offer) error {
	_, err := exec(ctx, s.q,
		`INSERT INTO offers (`+offerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.PostID, o.SellerID, o.BuyerID, o.ResponderID, o.OfferedItems, o.OfferedWeight,
		o.RequestedWeight, o.Price, o.Message, o.Images, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return exchange.ErrDuplicateActiveOffer
	}
	if err != nil {
		return fmt.Errorf("inserting offer: %w", err)
	}
	return nil
}

// SetOfferStatus moves an offer from one status to another.
func (s *Store) SetOfferStatus(ctx context.Context, offerID, from, to string) error {
	res, err := exec(ctx, s.q,
		`UPDATE offers SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), offerID, from,
	)
	if err != nil {
		return fmt.Errorf("updating offer status: %w", err)
	}
	return casResult(res, "updating offer "+offerID)
}

// CancelUnscheduledOffer cancels an offer at status from. It matches no row,
// and so returns ErrConflict, once a schedule exists for the offer.
func (s *Store) CancelUnscheduledOffer(ctx context.Context, offerID, from string) error {
	res, err := exec(ctx, s.q,
		`UPDATE offers SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?
		   AND NOT EXISTS (SELECT 1 FROM offer_schedules WHERE offer_id = ?)`,
		model.OfferStatusCancelled, time.Now().UTC(), offerID, from, offerID,
	)
	if err != nil {
		return fmt.Errorf("cancelling offer: %w", err)
	}
	return casResult(res, "cancelling offer "+offerID)
}

// DeleteOffer removes an offer that is still in status from.
func (s *Store) DeleteOffer(ctx context.Context, offerID, from string) error {
	res, err := exec(ctx, s.q, `DELETE FROM offers WHERE id = ? AND status = ?`, offerID, from)
	if err != nil {
		return fmt.Errorf("deleting offer: %w", err)
	}
	return casResult(res, "deleting offer "+offerID)
}

// DecrementRemainingWeight subtracts amount from a post's remaining weight,
// clamping at zero.
func (s *Store) DecrementRemainingWeight(ctx context.Context, postID string, amount float64) (exchange.WeightResult, error) {
	if amount < 0 {
		return exchange.WeightResult{}, fmt.Errorf("negative weight decrement %g", amount)
	}

	res, err := exec(ctx, s.q,
		`UPDATE posts
		 SET remaining_weight = CASE WHEN remaining_weight > ? THEN remaining_weight - ? ELSE 0 END,
		     updated_at = ?
		 WHERE id = ?`,
		amount, amount, time.Now().UTC(), postID,
	)
	if err != nil {
		return exchange.WeightResult{}, fmt.Errorf("decrementing remaining weight: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return exchange.WeightResult{}, fmt.Errorf("decrementing remaining weight: %w", err)
	} else if n == 0 {
		return exchange.WeightResult{}, fmt.Errorf("post %s: %w", postID, exchange.ErrNotFound)
	}

	var remaining float64
	if err := get(ctx, s.q, &remaining, `SELECT remaining_weight FROM posts WHERE id = ?`, postID); err != nil {
		return exchange.WeightResult{}, fmt.Errorf("reading remaining weight: %w", err)
	}
	return exchange.WeightResult{Remaining: remaining, FullyMet: remaining <= 0}, nil
}

// ListOffersForPost returns the offers on a post, newest first.
func ListOffersForPost(ctx context.Context, db *sqlx.DB, postID string) ([]model.Offer, error) {
	var offers []model.Offer
	err := selectAll(ctx, db, &offers,
		`SELECT `+offerColumns+` FROM offers WHERE post_id = ? ORDER BY created_at DESC, id`, postID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}
	return offers, nil
}

// GetOffer returns an offer by ID, or nil if it does not exist.
func GetOffer(ctx context.Context, db *sqlx.DB, id string) (*model.Offer, error) {
	o := &model.Offer{}
	err := get(ctx, db, o, `SELECT `+offerColumns+` FROM offers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting offer: %w", err)
	}
	return o, nil
}
