package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/polyswap/internal/model"
)

// Engine drives offers through the exchange lifecycle.
type Engine struct {
	gw       Gateway
	notifier Notifier
	payments PaymentMarker
	log      *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithPaymentMarker replaces the default MockPayment.
func WithPaymentMarker(p PaymentMarker) Option {
	return func(e *Engine) { e.payments = p }
}

// WithLogger sets the logger used for dropped notifications.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an engine persisting through gw and notifying through n.
// n may be nil.
func NewEngine(gw Gateway, n Notifier, opts ...Option) *Engine {
	e := &Engine{
		gw:       gw,
		notifier: n,
		payments: MockPayment{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of an engine operation.
type Result struct {
	Deal    *Deal         `json:"deal"`
	Stage   Stage         `json:"stage"`
	Changed bool          `json:"changed"`
	Weight  *WeightResult `json:"weight,omitempty"`
	GoalMet bool          `json:"goal_met"`
}

// OfferInput is what a responder proposes.
type OfferInput struct {
	OfferedItems    []string
	OfferedWeight   float64
	RequestedWeight float64
	Price           float64
	Message         string
	Images          []string
}

// applyFunc performs the writes of one transition inside a transaction.
type applyFunc func(ctx context.Context, tx Gateway, d *Deal, actor Actor, from, to Stage) error

// advance gates actorID against action on the offer and applies it. A replay of an
// action whose target is the current stage returns an unchanged result
// without calling apply.
func (e *Engine) advance(ctx context.Context, offerID, actorID string, action Action, apply applyFunc) (*Result, error) {
	rule, ok := RuleFor(action)
	if !ok {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	deal, err := e.gw.LoadDeal(ctx, offerID)
	if err != nil {
		return nil, classify("loading offer", err)
	}
	from, err := deal.Stage()
	if err != nil {
		return nil, classify("reading stage", err)
	}

	actor := ResolveActor(deal, actorID)
	if !actor.Participant() {
		return nil, forbidden("user %s is not a party to offer %s", actorID, offerID)
	}
	if !actor.Satisfies(rule.Party) {
		return nil, forbidden("%s may not %s offer %s", actor.Role, action, offerID)
	}

	if from == rule.To && !rule.Repeatable {
		return &Result{Deal: deal, Stage: from}, nil
	}
	to, err := rule.Next(from)
	if err != nil {
		return nil, err
	}

	err = e.gw.InTx(ctx, func(tx Gateway) error {
		// The actor decided on deal; apply only if nobody moved it since.
		current, err := tx.LoadDeal(ctx, offerID)
		if err != nil {
			return err
		}
		if !sameState(deal, current) {
			return fmt.Errorf("offer %s changed before %s: %w", offerID, action, ErrConflict)
		}
		return apply(ctx, tx, current, actor, from, to)
	})
	if err != nil {
		return nil, classify(string(action), err)
	}

	updated, err := e.gw.LoadDeal(ctx, offerID)
	if err != nil {
		return nil, classify("reloading offer", err)
	}
	return &Result{Deal: updated, Stage: to, Changed: true}, nil
}

// SubmitOffer creates a pending offer from responderID on postID.
func (e *Engine) SubmitOffer(ctx context.Context, postID, responderID string, in OfferInput) (*Result, error) {
	if in.OfferedWeight <= 0 {
		return nil, invalidInput("offered weight must be positive")
	}
	if in.RequestedWeight < 0 || in.Price < 0 {
		return nil, invalidInput("requested weight and price must not be negative")
	}

	post, err := e.gw.GetPost(ctx, postID)
	if err != nil {
		return nil, classify("loading post", err)
	}
	if post.OwnerID == responderID {
		return nil, forbidden("cannot respond to your own post")
	}
	if post.Status != model.PostStatusActive {
		return nil, fmt.Errorf("%w: post %s is %s", ErrInvalidTransition, postID, post.Status)
	}

	sellerID, buyerID, err := Sides(post.Category, post.OwnerID, responderID)
	if err != nil {
		return nil, classify("resolving sides", err)
	}

	now := e.now().UTC()
	offer := &model.Offer{
		ID:              uuid.NewString(),
		PostID:          post.ID,
		SellerID:        sellerID,
		BuyerID:         buyerID,
		ResponderID:     responderID,
		OfferedItems:    model.StringList(in.OfferedItems),
		OfferedWeight:   in.OfferedWeight,
		RequestedWeight: in.RequestedWeight,
		Price:           in.Price,
		Message:         strings.TrimSpace(in.Message),
		Images:          model.StringList(in.Images),
		Status:          model.OfferStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.gw.InsertOffer(ctx, offer); err != nil {
		return nil, classify("inserting offer", err)
	}

	deal := &Deal{Offer: *offer, Post: *post}
	e.notify(ctx, post.OwnerID, model.NotifyOffer, "New offer",
		fmt.Sprintf("You received an offer of %g kg on %q.", offer.OfferedWeight, post.Title), offer.ID)

	return &Result{Deal: deal, Stage: StageOfferMade, Changed: true}, nil
}

// AcceptOffer accepts a pending offer and decrements the post's remaining
// weight by the offered weight in the same transaction.
func (e *Engine) AcceptOffer(ctx context.Context, offerID, actorID string) (*Result, error) {
	var weight WeightResult
	res, err := e.advance(ctx, offerID, actorID, ActionAccept,
		func(ctx context.Context, tx Gateway, d *Deal, _ Actor, _, _ Stage) error {
			if d.Post.Status != model.PostStatusActive {
				return fmt.Errorf("%w: post %s is %s", ErrInvalidTransition, d.Post.ID, d.Post.Status)
			}
			if err := tx.SetOfferStatus(ctx, d.Offer.ID, model.OfferStatusPending, model.OfferStatusAccepted); err != nil {
				return err
			}
			w, err := tx.DecrementRemainingWeight(ctx, d.Post.ID, d.Offer.OfferedWeight)
			if err != nil {
				return err
			}
			weight = w
			return nil
		})
	if err != nil || !res.Changed {
		return res, err
	}

	res.Weight = &weight
	res.GoalMet = weight.FullyMet

	d := res.Deal
	e.notify(ctx, d.Offer.ResponderID, model.NotifyOffer, "Offer accepted",
		fmt.Sprintf("Your offer on %q was accepted.", d.Post.Title), d.Offer.ID)
	if weight.FullyMet {
		e.notify(ctx, d.Post.OwnerID, model.NotifyGoalMet, "Goal met",
			fmt.Sprintf("%q has reached its target weight.", d.Post.Title), d.Offer.ID)
	}
	return res, nil
}

// DeclineOffer declines a pending offer.
func (e *Engine) DeclineOffer(ctx context.Context, offerID, actorID string) (*Result, error) {
	res, err := e.advance(ctx, offerID, actorID, ActionDecline,
		func(ctx context.Context, tx Gateway, d *Deal, _ Actor, _, _ Stage) error {
			return tx.SetOfferStatus(ctx, d.Offer.ID, model.OfferStatusPending, model.OfferStatusDeclined)
		})
	if err != nil || !res.Changed {
		return res, err
	}

	d := res.Deal
	e.notify(ctx, d.Offer.ResponderID, model.NotifyOffer, "Offer declined",
		fmt.Sprintf("Your offer on %q was declined.", d.Post.Title), d.Offer.ID)
	return res, nil
}

// DeleteOffer removes a pending offer. Only the responder may withdraw it.
func (e *Engine) DeleteOffer(ctx context.Context, offerID, actorID string) error {
	rule, _ := RuleFor(ActionWithdraw)

	deal, err := e.gw.LoadDeal(ctx, offerID)
	if err != nil {
		return classify("loading offer", err)
	}
	from, err := deal.Stage()
	if err != nil {
		return classify("reading stage", err)
	}

	actor := ResolveActor(deal, actorID)
	if !actor.Satisfies(rule.Party) {
		return forbidden("only the responder may withdraw offer %s", offerID)
	}
	if _, err := rule.Next(from); err != nil {
		return err
	}

	err = e.gw.InTx(ctx, func(tx Gateway) error {
		return tx.DeleteOffer(ctx, offerID, model.OfferStatusPending)
	})
	if err != nil {
		return classify("deleting offer", err)
	}

	e.notify(ctx, deal.Post.OwnerID, model.NotifyCancel, "Offer withdrawn",
		fmt.Sprintf("An offer on %q was withdrawn.", deal.Post.Title), offerID)
	return nil
}

// CreateSchedule proposes the first collection slot for an accepted offer.
func (e *Engine) CreateSchedule(ctx context.Context, offerID, actorID, date, clock string) (*Result, error) {
	if err := validateSlot(date, clock); err != nil {
		return nil, err
	}

	res, err := e.advance(ctx, offerID, actorID, ActionSchedule,
		func(ctx context.Context, tx Gateway, d *Deal, actor Actor, _, to Stage) error {
			// Re-asserts the accepted status so a concurrent cancel loses.
			if err := tx.SetOfferStatus(ctx, d.Offer.ID, model.OfferStatusAccepted, model.OfferStatusAccepted); err != nil {
				return err
			}
			now := e.now().UTC()
			return tx.InsertSchedule(ctx, &model.Schedule{
				OfferID:       d.Offer.ID,
				PostID:        d.Post.ID,
				OffererID:     d.Offer.SellerID,
				CollectorID:   d.Offer.BuyerID,
				ProposedBy:    actor.UserID,
				ScheduledDate: date,
				ScheduledTime: clock,
				Status:        string(to),
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		})
	if err != nil || !res.Changed {
		return res, err
	}

	e.notifySchedule(ctx, res.Deal, actorID, "Collection scheduled")
	return res, nil
}

// EditSchedule replaces the proposed slot. It is only allowed before the
// slot has been agreed; the editor becomes the proposer.
func (e *Engine) EditSchedule(ctx context.Context, offerID, actorID, date, clock string) (*Result, error) {
	if err := validateSlot(date, clock); err != nil {
		return nil, err
	}

	res, err := e.advance(ctx, offerID, actorID, ActionReschedule,
		func(ctx context.Context, tx Gateway, d *Deal, actor Actor, from, _ Stage) error {
			return tx.Reschedule(ctx, d.Offer.ID, from, date, clock, actor.UserID)
		})
	if err != nil {
		return nil, err
	}

	e.notifySchedule(ctx, res.Deal, actorID, "Collection rescheduled")
	return res, nil
}

// AgreeToSchedule accepts the slot proposed by the other participant.
func (e *Engine) AgreeToSchedule(ctx context.Context, offerID, actorID string) (*Result, error) {
	res, err := e.advance(ctx, offerID, actorID, ActionAgree,
		func(ctx context.Context, tx Gateway, d *Deal, _ Actor, _, to Stage) error {
			return tx.AgreeSchedule(ctx, d.Schedule, to)
		})
	if err != nil || !res.Changed {
		return res, err
	}

	d := res.Deal
	e.notify(ctx, d.Counterpart(actorID), model.NotifySchedule, "Schedule confirmed",
		fmt.Sprintf("Collection for %q is set for %s at %s.", d.Post.Title, d.Schedule.ScheduledDate, d.Schedule.ScheduledTime), d.Offer.ID)
	return res, nil
}

// UploadProof attaches the collection photo at imageURL.
func (e *Engine) UploadProof(ctx context.Context, offerID, actorID, imageURL string) (*Result, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, invalidInput("proof image is required")
	}

	res, err := e.advance(ctx, offerID, actorID, ActionUploadProof,
		func(ctx context.Context, tx Gateway, d *Deal, _ Actor, from, to Stage) error {
			return tx.AttachProof(ctx, d.Offer.ID, from, to, imageURL)
		})
	if err != nil || !res.Changed {
		return res, err
	}

	d := res.Deal
	e.notify(ctx, d.Counterpart(actorID), model.NotifyProof, "Proof uploaded",
		fmt.Sprintf("Proof of collection for %q is ready for review.", d.Post.Title), d.Offer.ID)
	return res, nil
}

// ConfirmProof accepts the uploaded collection photo.
func (e *Engine) ConfirmProof(ctx context.Context, offerID, actorID string) (*Result, error) {
	res, err := e.advance(ctx, offerID, actorID, ActionConfirmProof, e.moveSchedule)
	if err != nil || !res.Changed {
		return res, err
	}

	d := res.Deal
	e.notify(ctx, d.Offer.SellerID, model.NotifyProof, "Proof confirmed",
		fmt.Sprintf("Proof of collection for %q was confirmed.", d.Post.Title), d.Offer.ID)
	return res, nil
}

// MarkPayment records the collector's payment through the payment marker.
func (e *Engine) MarkPayment(ctx context.Context, offerID, actorID string) (*Result, error) {
	res, err := e.advance(ctx, offerID, actorID, ActionMarkPayment,
		func(ctx context.Context, tx Gateway, d *Deal, a Actor, from, to Stage) error {
			if err := e.moveSchedule(ctx, tx, d, a, from, to); err != nil {
				return err
			}
			if err := e.payments.MarkPaid(ctx, d.Offer.ID); err != nil {
				return fmt.Errorf("marking payment: %w", err)
			}
			return nil
		})
	if err != nil || !res.Changed {
		return res, err
	}

	d := res.Deal
	e.notify(ctx, d.Offer.SellerID, model.NotifyPayment, "Payment sent",
		fmt.Sprintf("Payment for %q was marked as sent.", d.Post.Title), d.Offer.ID)
	return res, nil
}

// CompleteTransaction closes the exchange as completed.
func (e *Engine) CompleteTransaction(ctx context.Context, offerID, actorID string) (*Result, error) {
	res, err := e.advance(ctx, offerID, actorID, ActionComplete,
		func(ctx context.Context, tx Gateway, d *Deal, a Actor, from, to Stage) error {
			if err := e.moveSchedule(ctx, tx, d, a, from, to); err != nil {
				return err
			}
			return tx.SetOfferStatus(ctx, d.Offer.ID, model.OfferStatusAccepted, model.OfferStatusCompleted)
		})
	if err != nil || !res.Changed {
		return res, err
	}

	d := res.Deal
	for _, uid := range []string{d.Offer.SellerID, d.Offer.BuyerID} {
		e.notify(ctx, uid, model.NotifyComplete, "Exchange completed",
			fmt.Sprintf("The exchange for %q is complete.", d.Post.Title), d.Offer.ID)
	}
	if d.Post.GoalMet() {
		res.GoalMet = true
		e.notify(ctx, d.Post.OwnerID, model.NotifyGoalMet, "Goal met",
			fmt.Sprintf("All material for %q has been exchanged.", d.Post.Title), d.Offer.ID)
	}
	return res, nil
}

// CancelTransaction cancels the exchange from any non-terminal stage.
func (e *Engine) CancelTransaction(ctx context.Context, offerID, actorID string) (*Result, error) {
	res, err := e.advance(ctx, offerID, actorID, ActionCancel,
		func(ctx context.Context, tx Gateway, d *Deal, a Actor, from, to Stage) error {
			if d.Schedule == nil {
				return tx.CancelUnscheduledOffer(ctx, d.Offer.ID, d.Offer.Status)
			}
			if err := e.moveSchedule(ctx, tx, d, a, from, to); err != nil {
				return err
			}
			return tx.SetOfferStatus(ctx, d.Offer.ID, d.Offer.Status, model.OfferStatusCancelled)
		})
	if err != nil || !res.Changed {
		return res, err
	}

	d := res.Deal
	e.notify(ctx, d.Counterpart(actorID), model.NotifyCancel, "Exchange cancelled",
		fmt.Sprintf("The exchange for %q was cancelled.", d.Post.Title), d.Offer.ID)
	return res, nil
}

// Deal returns the current state of an offer.
func (e *Engine) Deal(ctx context.Context, offerID string) (*Result, error) {
	deal, err := e.gw.LoadDeal(ctx, offerID)
	if err != nil {
		return nil, classify("loading offer", err)
	}
	st, err := deal.Stage()
	if err != nil {
		return nil, classify("reading stage", err)
	}
	return &Result{Deal: deal, Stage: st, GoalMet: deal.Post.GoalMet()}, nil
}

// sameState reports whether two loads of a deal show the same offer status
// and schedule.
func sameState(a, b *Deal) bool {
	if a.Offer.Status != b.Offer.Status {
		return false
	}
	if a.Schedule == nil || b.Schedule == nil {
		return a.Schedule == nil && b.Schedule == nil
	}
	sa, sb := a.Schedule, b.Schedule
	return sa.Status == sb.Status &&
		sa.ScheduledDate == sb.ScheduledDate &&
		sa.ScheduledTime == sb.ScheduledTime &&
		sa.ProposedBy == sb.ProposedBy &&
		sa.CollectionImg == sb.CollectionImg
}

func (e *Engine) moveSchedule(ctx context.Context, tx Gateway, d *Deal, _ Actor, from, to Stage) error {
	return tx.SetScheduleStage(ctx, d.Offer.ID, from, to)
}

func (e *Engine) notifySchedule(ctx context.Context, d *Deal, actorID, title string) {
	if d.Schedule == nil {
		return
	}
	e.notify(ctx, d.Counterpart(actorID), model.NotifySchedule, title,
		fmt.Sprintf("Proposed collection for %q on %s at %s.", d.Post.Title, d.Schedule.ScheduledDate, d.Schedule.ScheduledTime), d.Offer.ID)
}

// notify delivers one notification. Failures are logged and dropped.
func (e *Engine) notify(ctx context.Context, userID, category, title, body, offerID string) {
	if e.notifier == nil || userID == "" {
		return
	}

	n := model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Category:  category,
		RefType:   "offer",
		RefID:     offerID,
		CreatedAt: e.now().UTC(),
	}
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.log.Warn("failed to send notification",
			"user", userID, "category", category, "offer", offerID, "error", err)
	}
}

func validateSlot(date, clock string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return invalidInput("scheduled date must be YYYY-MM-DD: %q", date)
	}
	if _, err := time.Parse(model.TimeLayout, clock); err != nil {
		return invalidInput("scheduled time must be HH:MM: %q", clock)
	}
	return nil
}
