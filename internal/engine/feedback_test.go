package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/events"
)

func TestRecordOutcome_UnknownIDLeavesMetricsUnchanged(t *testing.T) {
	h := newHarness(t, fixedEstimator(6), WithIDGenerator(decision.NewFixedGenerator("d-1")))
	_, err := h.engine.Estimate(context.Background(), bareInput())
	require.NoError(t, err)
	require.NoError(t, h.engine.RecordOutcome(context.Background(), "d-1", 6.5))

	before := h.engine.Snapshot()
	err = h.engine.RecordOutcome(context.Background(), "missing", 4)
	after := h.engine.Snapshot()

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrFeedbackNotFound)
	assert.Equal(t, before, after)
}

func TestRecordOutcome_AveragesAreExact(t *testing.T) {
	h := newHarness(t, fixedEstimator(6), WithIDGenerator(decision.NewFixedGenerator("d1", "d2", "d3", "d4")))
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := h.engine.Estimate(ctx, bareInput())
		require.NoError(t, err)
	}

	// Deviations 0.5, 2, 0.75, 1 with tolerance 1.0.
	actuals := map[string]float64{"d1": 6.5, "d2": 8, "d3": 5.25, "d4": 7}
	for _, id := range []string{"d1", "d2", "d3", "d4"} {
		require.NoError(t, h.engine.RecordOutcome(ctx, id, actuals[id]))
	}

	snap := h.engine.Snapshot()
	assert.Equal(t, int64(4), snap.PredictionsObserved)
	assert.Equal(t, int64(3), snap.AccurateCount, "deviation equal to tolerance counts as accurate")
	assert.Equal(t, 4.25/4, snap.AvgDeviation)
	assert.Equal(t, 75.0, snap.AccuracyPercent)
}

func TestRecordOutcome_DuplicateIsIgnored(t *testing.T) {
	h := newHarness(t, fixedEstimator(6), WithIDGenerator(decision.NewFixedGenerator("d-1")))
	ctx := context.Background()
	_, err := h.engine.Estimate(ctx, bareInput())
	require.NoError(t, err)

	require.NoError(t, h.engine.RecordOutcome(ctx, "d-1", 6.5))
	first := h.engine.Snapshot()
	require.NoError(t, h.engine.RecordOutcome(ctx, "d-1", 12))
	h.drain(t)

	assert.Equal(t, first, h.engine.Snapshot())
	assert.Len(t, h.events.of(events.KindLearning), 1)

	outcomes, err := h.store.Outcomes(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, 6.5, outcomes[0].Actual)
}

func TestRecordOutcome_RejectsInvalidActual(t *testing.T) {
	h := newHarness(t, fixedEstimator(6), WithIDGenerator(decision.NewFixedGenerator("d-1")))
	_, err := h.engine.Estimate(context.Background(), bareInput())
	require.NoError(t, err)

	for _, actual := range []float64{math.NaN(), math.Inf(1), -1} {
		err := h.engine.RecordOutcome(context.Background(), "d-1", actual)
		assert.True(t, IsValidationError(err), "actual=%v", actual)
	}
	assert.Zero(t, h.engine.Snapshot().PredictionsObserved)
}

func TestRecordOutcome_LearningEventFollowsDecision(t *testing.T) {
	h := newHarness(t, fixedEstimator(6), WithIDGenerator(decision.NewFixedGenerator("d-1")))
	ctx := context.Background()
	d, err := h.engine.Estimate(ctx, bareInput())
	require.NoError(t, err)
	require.NoError(t, h.engine.RecordOutcome(ctx, d.ID, 4))
	h.drain(t)

	decisions := h.events.of(events.KindDecision)
	learnings := h.events.of(events.KindLearning)
	require.Len(t, decisions, 1)
	require.Len(t, learnings, 1)
	assert.Less(t, decisions[0].Seq, learnings[0].Seq)

	payload, ok := learnings[0].Payload.(events.Learning)
	require.True(t, ok)
	assert.Equal(t, "d-1", payload.Outcome.DecisionID)
	assert.Equal(t, 6.0, payload.Outcome.Predicted)
	assert.Equal(t, 4.0, payload.Outcome.Actual)
	assert.Equal(t, 2.0, payload.Outcome.Deviation)
	assert.False(t, payload.Outcome.Accurate)
	assert.Equal(t, 0.0, payload.AccuracySoFar)
	assert.Equal(t, testNow, payload.Outcome.ObservedAt)
}

func TestRestore_RebuildsMetricsFromStore(t *testing.T) {
	ctx := context.Background()
	store := decision.NewMemoryStore()
	yesterday := testNow.Add(-24 * time.Hour)

	clock := yesterday
	first, err := New(fixedEstimator(6),
		WithStore(store),
		WithNow(func() time.Time { return clock }),
		WithIDGenerator(decision.NewFixedGenerator("old", "new-1", "new-2")),
	)
	require.NoError(t, err)
	_, err = first.Estimate(ctx, bareInput())
	require.NoError(t, err)
	clock = testNow
	_, err = first.Estimate(ctx, bareInput())
	require.NoError(t, err)
	_, err = first.Estimate(ctx, bareInput())
	require.NoError(t, err)
	require.NoError(t, first.RecordOutcome(ctx, "old", 6.5))
	require.NoError(t, first.RecordOutcome(ctx, "new-1", 9))

	second, err := New(fixedEstimator(6), WithStore(store), WithNow(func() time.Time { return testNow }))
	require.NoError(t, err)
	dayStart := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)
	require.NoError(t, second.Restore(ctx, dayStart))

	snap := second.Snapshot()
	assert.Equal(t, int64(3), snap.TotalDecisions)
	assert.Equal(t, int64(2), snap.DecisionsToday)
	assert.Equal(t, int64(2), snap.PredictionsObserved)
	assert.Equal(t, int64(1), snap.AccurateCount)
	assert.Equal(t, 1.75, snap.AvgDeviation)

	require.NoError(t, second.RecordOutcome(ctx, "old", 1))
	assert.Equal(t, snap, second.Snapshot(), "feedback applied before the restart stays applied")

	require.NoError(t, second.Restore(ctx, dayStart))
	assert.Equal(t, snap, second.Snapshot())
}

func TestRestore_StoreWithoutOptionalCapabilities(t *testing.T) {
	e, err := New(fixedEstimator(6), WithStore(failingStore{}))
	require.NoError(t, err)
	require.NoError(t, e.Restore(context.Background(), testNow))
	assert.Zero(t, e.Snapshot().TotalDecisions)
}
