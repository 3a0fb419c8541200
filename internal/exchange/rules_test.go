package exchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allActions = []Action{
	ActionAccept, ActionDecline, ActionWithdraw, ActionSchedule, ActionReschedule, ActionAgree,
	ActionUploadProof, ActionConfirmProof, ActionMarkPayment, ActionComplete, ActionCancel,
}

// Every (stage, action) pair either advances, loops on reschedule, exits into
// declined/cancelled, or is rejected.
func TestTransitionsNeverMoveBackwards(t *testing.T) {
	for _, from := range Stages() {
		for _, action := range allActions {
			to, err := Transition(from, action)
			if err != nil {
				if !errors.Is(err, ErrInvalidTransition) && !errors.Is(err, ErrForbidden) {
					t.Errorf("%s from %s: unexpected error kind %v", action, from, err)
				}
				continue
			}

			if from.Terminal() {
				t.Errorf("%s from terminal stage %s allowed", action, from)
			}
			if to == "" || to.IsExit() {
				continue
			}
			if action == ActionReschedule {
				assert.Equal(t, from, to)
				continue
			}
			if to.Rank() <= from.Rank() {
				t.Errorf("%s moves %s backwards to %s", action, from, to)
			}
		}
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from   Stage
		action Action
		want   Stage
	}{
		{StageOfferMade, ActionAccept, StageOfferAccepted},
		{StageOfferMade, ActionDecline, StageDeclined},
		{StageOfferAccepted, ActionSchedule, StageScheduleSet},
		{StageScheduleSet, ActionReschedule, StageScheduleSet},
		{StageScheduleSet, ActionAgree, StageForCollection},
		{StageForCollection, ActionUploadProof, StageProofUploaded},
		{StageProofUploaded, ActionConfirmProof, StageAwaitingPayment},
		{StageAwaitingPayment, ActionMarkPayment, StageForCompletion},
		{StageForCompletion, ActionComplete, StageCompleted},
		{StageForCompletion, ActionCancel, StageCancelled},
		{StageOfferMade, ActionCancel, StageCancelled},
	}

	for _, tt := range tests {
		got, err := Transition(tt.from, tt.action)
		require.NoError(t, err, "%s from %s", tt.action, tt.from)
		assert.Equal(t, tt.want, got, "%s from %s", tt.action, tt.from)
	}
}

func TestTransitionErrors(t *testing.T) {
	_, err := Transition(StageOfferMade, ActionComplete)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StageOfferMade, te.From)
	assert.Equal(t, StageCompleted, te.To)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "offer_made")
	assert.Contains(t, err.Error(), "completed")

	// Cancelling twice is not a transition; the engine treats it as a replay.
	_, err = Transition(StageCancelled, ActionCancel)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Rescheduling outside schedule_set is forbidden rather than invalid.
	_, err = Transition(StageForCollection, ActionReschedule)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrInvalidTransition)

	_, err = Transition(StageOfferMade, Action("teleport"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelCoversNonTerminalStages(t *testing.T) {
	rule, ok := RuleFor(ActionCancel)
	require.True(t, ok)
	for _, s := range Stages() {
		assert.Equal(t, !s.Terminal(), rule.Allows(s), "stage %s", s)
	}
}

func TestRulesHaveParties(t *testing.T) {
	rules := Rules()
	assert.Len(t, rules, len(allActions))
	for _, r := range rules {
		assert.NotZero(t, r.Party, "rule %s", r.Action)
		assert.NotEmpty(t, r.From, "rule %s", r.Action)
	}
}

func TestEveryActionHasRule(t *testing.T) {
	for _, action := range allActions {
		r, ok := RuleFor(action)
		require.True(t, ok, "no rule for %s", action)
		require.Equal(t, action, r.Action)
	}
	require.Len(t, Rules(), len(allActions))
}
