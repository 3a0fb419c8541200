package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/polyswap/internal/model"
)

func TestParseStage(t *testing.T) {
	for _, s := range Stages() {
		got, err := ParseStage(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStage("shipped")
	assert.Error(t, err)
	_, err = ParseStage("")
	assert.Error(t, err)
}

func TestStageRankAndTerminal(t *testing.T) {
	assert.Equal(t, 0, StageOfferMade.Rank())
	assert.Equal(t, 7, StageCompleted.Rank())
	assert.Equal(t, -1, StageCancelled.Rank())
	assert.Equal(t, -1, StageDeclined.Rank())

	terminal := map[Stage]bool{StageCompleted: true, StageDeclined: true, StageCancelled: true}
	for _, s := range Stages() {
		assert.Equal(t, terminal[s], s.Terminal(), "stage %s", s)
	}

	assert.False(t, StageOfferAccepted.Scheduled())
	assert.True(t, StageScheduleSet.Scheduled())
	assert.True(t, StageCompleted.Scheduled())
	assert.False(t, StageCancelled.Scheduled())
}

func TestStageOf(t *testing.T) {
	tests := []struct {
		offerStatus string
		schedule    string
		want        Stage
	}{
		{model.OfferStatusPending, "", StageOfferMade},
		{model.OfferStatusAccepted, "", StageOfferAccepted},
		{model.OfferStatusDeclined, "", StageDeclined},
		{model.OfferStatusCancelled, "", StageCancelled},
		{model.OfferStatusAccepted, "for_collection", StageForCollection},
		// The schedule wins over the offer row.
		{model.OfferStatusAccepted, "cancelled", StageCancelled},
		{model.OfferStatusCompleted, "completed", StageCompleted},
	}

	for _, tt := range tests {
		var sched *model.Schedule
		if tt.schedule != "" {
			sched = &model.Schedule{Status: tt.schedule}
		}
		got, err := StageOf(&model.Offer{Status: tt.offerStatus}, sched)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "offer=%s schedule=%s", tt.offerStatus, tt.schedule)
	}

	_, err := StageOf(&model.Offer{Status: "weird"}, nil)
	assert.Error(t, err)
	_, err = StageOf(&model.Offer{Status: model.OfferStatusAccepted}, &model.Schedule{Status: "weird"})
	assert.Error(t, err)
}
