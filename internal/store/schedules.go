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

const scheduleColumns = `offer_id, post_id, offerer_id, collector_id, proposed_by, scheduled_date,
	scheduled_time, status, collection_img, created_at, updated_at`

func getSchedule(ctx context.Context, q sqlx.ExtContext, offerID string) (*model.Schedule, error) {
	sched := &model.Schedule{}
	err := get(ctx, q, sched, `SELECT `+scheduleColumns+` FROM offer_schedules WHERE offer_id = ?`, offerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting schedule: %w", err)
	}
	return sched, nil
}

// InsertSchedule creates the schedule of an offer. An offer has at most one
// schedule; a second insert fails with ErrConflict.
func (s *Store) InsertSchedule(ctx context.Context, sched *model.Schedule) error {
	_, err := exec(ctx, s.q,
		`INSERT INTO offer_schedules (`+scheduleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.OfferID, sched.PostID, sched.OffererID, sched.CollectorID, sched.ProposedBy,
		sched.ScheduledDate, sched.ScheduledTime, sched.Status, sched.CollectionImg,
		sched.CreatedAt, sched.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("schedule for offer %s: %w", sched.OfferID, exchange.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}
	return nil
}

// SetScheduleStage moves a schedule from one stage to another.
func (s *Store) SetScheduleStage(ctx context.Context, offerID string, from, to exchange.Stage) error {
	res, err := exec(ctx, s.q,
		`UPDATE offer_schedules SET status = ?, updated_at = ? WHERE offer_id = ? AND status = ?`,
		string(to), time.Now().UTC(), offerID, string(from),
	)
	if err != nil {
		return fmt.Errorf("updating schedule status: %w", err)
	}
	return casResult(res, "updating schedule "+offerID)
}

// AgreeSchedule moves a schedule to stage to, provided the slot and its
// proposer are still the ones in seen.
func (s *Store) AgreeSchedule(ctx context.Context, seen *model.Schedule, to exchange.Stage) error {
	res, err := exec(ctx, s.q,
		`UPDATE offer_schedules SET status = ?, updated_at = ?
		 WHERE offer_id = ? AND status = ?
		   AND scheduled_date = ? AND scheduled_time = ? AND proposed_by = ?`,
		string(to), time.Now().UTC(), seen.OfferID, seen.Status,
		seen.ScheduledDate, seen.ScheduledTime, seen.ProposedBy,
	)
	if err != nil {
		return fmt.Errorf("agreeing to schedule: %w", err)
	}
	return casResult(res, "agreeing to schedule "+seen.OfferID)
}

// AttachProof stores the collection photo and moves the schedule forward.
func (s *Store) AttachProof(ctx context.Context, offerID string, from, to exchange.Stage, imageURL string) error {
	res, err := exec(ctx, s.q,
		`UPDATE offer_schedules SET status = ?, collection_img = ?, updated_at = ?
		 WHERE offer_id = ? AND status = ?`,
		string(to), imageURL, time.Now().UTC(), offerID, string(from),
	)
	if err != nil {
		return fmt.Errorf("attaching proof: %w", err)
	}
	return casResult(res, "attaching proof to "+offerID)
}

// Reschedule replaces the proposed slot while the schedule is still at from.
func (s *Store) Reschedule(ctx context.Context, offerID string, from exchange.Stage, date, clock, proposedBy string) error {
	res, err := exec(ctx, s.q,
		`UPDATE offer_schedules SET scheduled_date = ?, scheduled_time = ?, proposed_by = ?, updated_at = ?
		 WHERE offer_id = ? AND status = ?`,
		date, clock, proposedBy, time.Now().UTC(), offerID, string(from),
	)
	if err != nil {
		return fmt.Errorf("rescheduling: %w", err)
	}
	return casResult(res, "rescheduling "+offerID)
}
