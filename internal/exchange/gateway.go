package exchange

import (
	"context"

	"github.com/erazemk/polyswap/internal/model"
)

// Deal is an offer together with its post and, once scheduled, its schedule.
type Deal struct {
	Offer    model.Offer     `json:"offer"`
	Post     model.Post      `json:"post"`
	Schedule *model.Schedule `json:"schedule,omitempty"`
}

// Stage returns the current stage of the deal.
func (d *Deal) Stage() (Stage, error) {
	return StageOf(&d.Offer, d.Schedule)
}

// Counterpart returns the other participant's id.
func (d *Deal) Counterpart(userID string) string {
	if userID == d.Offer.SellerID {
		return d.Offer.BuyerID
	}
	return d.Offer.SellerID
}

// WeightResult is the outcome of a remaining-weight decrement.
type WeightResult struct {
	Remaining float64 `json:"remaining"`
	FullyMet  bool    `json:"fully_met"`
}

// Gateway is the persistence the engine runs on. Status writes are
// compare-and-set: a write whose from value no longer matches returns
// ErrConflict. Missing rows return ErrNotFound.
type Gateway interface {
	LoadDeal(ctx context.Context, offerID string) (*Deal, error)
	GetPost(ctx context.Context, postID string) (*model.Post, error)

	InsertOffer(ctx context.Context, offer *model.Offer) error
	SetOfferStatus(ctx context.Context, offerID, from, to string) error
	// CancelUnscheduledOffer cancels an offer still at from that has no
	// schedule.
	CancelUnscheduledOffer(ctx context.Context, offerID, from string) error
	DeleteOffer(ctx context.Context, offerID, from string) error
	DecrementRemainingWeight(ctx context.Context, postID string, amount float64) (WeightResult, error)

	InsertSchedule(ctx context.Context, s *model.Schedule) error
	SetScheduleStage(ctx context.Context, offerID string, from, to Stage) error
	// AgreeSchedule moves seen to stage to only while the stored slot still
	// matches seen.
	AgreeSchedule(ctx context.Context, seen *model.Schedule, to Stage) error
	AttachProof(ctx context.Context, offerID string, from, to Stage, imageURL string) error
	Reschedule(ctx context.Context, offerID string, from Stage, date, clock, proposedBy string) error

	// InTx runs fn against a gateway bound to one database transaction.
	// The transaction commits when fn returns nil.
	InTx(ctx context.Context, fn func(tx Gateway) error) error
}

// Notifier delivers notifications. Delivery failures never fail an exchange
// operation.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// PaymentMarker records that the collector has paid.
type PaymentMarker interface {
	MarkPaid(ctx context.Context, offerID string) error
}

// MockPayment is a PaymentMarker that always succeeds.
type MockPayment struct{}

// MarkPaid implements PaymentMarker.
func (MockPayment) MarkPaid(context.Context, string) error { return nil }
