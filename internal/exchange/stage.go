// Package exchange implements the lifecycle of an exchange between a post
// owner and a responder.
//
// Stage graph:
//
//	offer_made ──► offer_accepted ──► schedule_set ──► for_collection ──► proof_uploaded
//	    │                              ▲    │                                  │
//	    ▼                              └────┘ reschedule                       ▼
//	 declined                                                           awaiting_payment
//	                                                                           │
//	                                                                           ▼
//	 completed ◄──────────────────────────────────────────────────────── for_completion
//
// Every non-terminal stage may also move to cancelled.
// completed, declined and cancelled are terminal.
package exchange

import (
	"fmt"

	"github.com/erazemk/polyswap/internal/model"
)

// Stage is the single current stage of an exchange.
type Stage string

// Stages in pipeline order, followed by the terminal exits.
const (
	StageOfferMade       Stage = "offer_made"
	StageOfferAccepted   Stage = "offer_accepted"
	StageScheduleSet     Stage = "schedule_set"
	StageForCollection   Stage = "for_collection"
	StageProofUploaded   Stage = "proof_uploaded"
	StageAwaitingPayment Stage = "awaiting_payment"
	StageForCompletion   Stage = "for_completion"
	StageCompleted       Stage = "completed"

	StageDeclined  Stage = "declined"
	StageCancelled Stage = "cancelled"
)

// pipeline lists the forward stages in order.
var pipeline = []Stage{
	StageOfferMade,
	StageOfferAccepted,
	StageScheduleSet,
	StageForCollection,
	StageProofUploaded,
	StageAwaitingPayment,
	StageForCompletion,
	StageCompleted,
}

// Stages returns every known stage, pipeline first.
func Stages() []Stage {
	out := make([]Stage, 0, len(pipeline)+2)
	out = append(out, pipeline...)
	return append(out, StageDeclined, StageCancelled)
}

// ParseStage converts a raw string to a Stage.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if st.Rank() < 0 && !st.IsExit() {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	return st, nil
}

// Rank returns the position of s in the pipeline, or -1 for the terminal
// exits and unknown values.
func (s Stage) Rank() int {
	for i, p := range pipeline {
		if p == s {
			return i
		}
	}
	return -1
}

// IsExit reports whether s is one of the abort exits (declined, cancelled).
func (s Stage) IsExit() bool {
	return s == StageDeclined || s == StageCancelled
}

// Terminal reports whether no further transitions leave s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s.IsExit()
}

// Scheduled reports whether s is owned by the schedule record.
func (s Stage) Scheduled() bool {
	return s.Rank() >= StageScheduleSet.Rank()
}

// String implements fmt.Stringer.
func (s Stage) String() string { return string(s) }

// StageOf derives the current stage from an offer and its optional schedule.
// The schedule, when present, is authoritative.
func StageOf(offer *model.Offer, schedule *model.Schedule) (Stage, error) {
	if schedule != nil {
		return ParseStage(schedule.Status)
	}

	switch offer.Status {
	case model.OfferStatusPending:
		return StageOfferMade, nil
	case model.OfferStatusAccepted:
		return StageOfferAccepted, nil
	case model.OfferStatusDeclined:
		return StageDeclined, nil
	case model.OfferStatusCancelled:
		return StageCancelled, nil
	case model.OfferStatusCompleted:
		return StageCompleted, nil
	}
	return "", fmt.Errorf("unknown offer status %q", offer.Status)
}
