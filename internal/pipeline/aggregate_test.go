package pipeline

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
)

func TestAggregator_StageLifecycle(t *testing.T) {
	agg := NewAggregator("run-1", "Tulsa, OK")

	agg.StageStarted(model.StageParse, 3)
	agg.Outcome(model.StageParse, "Acme", model.OutcomeSuccess, 1, false, nil)
	agg.Outcome(model.StageParse, "Beta", model.OutcomeSkipped, 1, false, nil)
	agg.Outcome(model.StageParse, "Gamma", model.OutcomeFailed, 2, true, eris.New("boom"))
	agg.StageDone(model.StageParse, 40*time.Millisecond, false)

	snap := agg.Snapshot()
	require.Len(t, snap.StageReports, 1)

	sr := snap.StageReports[0]
	assert.Equal(t, "parse", sr.Stage)
	assert.Equal(t, 3, sr.Items)
	assert.Equal(t, 1, sr.Succeeded)
	assert.Equal(t, 1, sr.Skipped)
	assert.Equal(t, 1, sr.Failed)
	assert.Equal(t, 4, sr.Attempts)
	assert.Equal(t, model.OutcomeSuccess, sr.Status)

	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "Gamma", snap.Errors[0].Item)
	assert.Equal(t, "boom", snap.Errors[0].Error)
	assert.True(t, snap.Errors[0].Retryable)
}

func TestAggregator_CoarseRetryGetsSeparateEntries(t *testing.T) {
	agg := NewAggregator("run-1", "Tulsa, OK")

	agg.StageStarted(model.StageEnrich, 2)
	agg.Outcome(model.StageEnrich, "Acme", model.OutcomeFailed, 3, true, eris.New("503"))
	agg.Outcome(model.StageEnrich, "Beta", model.OutcomeFailed, 3, true, eris.New("503"))
	agg.StageDone(model.StageEnrich, time.Millisecond, true)

	agg.StageStarted(model.StageEnrich, 2)
	agg.Outcome(model.StageEnrich, "Acme", model.OutcomeSuccess, 1, false, nil)
	agg.Outcome(model.StageEnrich, "Beta", model.OutcomeSuccess, 1, false, nil)
	agg.StageDone(model.StageEnrich, time.Millisecond, false)

	snap := agg.Snapshot()
	require.Len(t, snap.StageReports, 2)
	assert.Equal(t, model.OutcomeFailed, snap.StageReports[0].Status)
	assert.Equal(t, 2, snap.StageReports[0].Failed)
	assert.Equal(t, model.OutcomeSuccess, snap.StageReports[1].Status)
	assert.Equal(t, 2, snap.StageReports[1].Succeeded)
}

func TestAggregator_ValidateSkipsCountAsRejected(t *testing.T) {
	agg := NewAggregator("run-1", "Tulsa, OK")

	agg.StageStarted(model.StageContacts, 1)
	agg.Outcome(model.StageContacts, "Acme", model.OutcomeSkipped, 1, false, nil)
	agg.StageDone(model.StageContacts, time.Millisecond, false)

	agg.StageStarted(model.StageValidate, 2)
	agg.Outcome(model.StageValidate, "Acme", model.OutcomeSkipped, 1, false, nil)
	agg.Outcome(model.StageValidate, "Beta", model.OutcomeSuccess, 1, false, nil)
	agg.StageDone(model.StageValidate, time.Millisecond, false)

	snap := agg.Snapshot()
	assert.Equal(t, 1, snap.Rejected) // only the validate-stage skip
}

func TestAggregator_FinishComputesAverageScore(t *testing.T) {
	agg := NewAggregator("run-1", "Tulsa, OK")

	agg.Finish(model.RunStatusComplete, []*model.Prospect{
		{CompanyName: "Acme", ICPScore: 0.8},
		{CompanyName: "Beta", ICPScore: 0.4},
	}, "")

	snap := agg.Snapshot()
	assert.Equal(t, model.RunStatusComplete, snap.Status)
	assert.InDelta(t, 0.6, snap.AverageICPScore, 1e-9)
	assert.False(t, snap.CompletedAt.IsZero())
	assert.GreaterOrEqual(t, snap.DurationMS, int64(0))
}

func TestAggregator_SnapshotIsACopy(t *testing.T) {
	agg := NewAggregator("run-1", "Tulsa, OK")
	agg.StageStarted(model.StageDiscover, 1)

	snap := agg.Snapshot()
	snap.StageReports[0].Items = 999
	snap.Market = "elsewhere"

	again := agg.Snapshot()
	assert.Equal(t, 1, again.StageReports[0].Items)
	assert.Equal(t, "Tulsa, OK", again.Market)
}

func TestAggregator_CandidatesSeenAccumulates(t *testing.T) {
	agg := NewAggregator("run-1", "Tulsa, OK")
	agg.CandidatesSeen(10)
	agg.CandidatesSeen(5)
	assert.Equal(t, 15, agg.Snapshot().CandidatesSeen)
}
