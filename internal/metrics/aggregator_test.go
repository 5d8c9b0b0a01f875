package metrics

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestAggregator_EmptySnapshot(t *testing.T) {
	a := New(0.85, true)
	snap := a.Snapshot()

	assert.Zero(t, snap.TotalDecisions)
	assert.Zero(t, snap.PredictionsObserved)
	assert.Zero(t, snap.AccuracyPercent)
	assert.Zero(t, snap.AvgDeviation)
	assert.Equal(t, 0.85, snap.ConfidenceThreshold)
	assert.True(t, snap.MLEnabled)
}

func TestAggregator_ObserveComputesAverages(t *testing.T) {
	ctx := context.Background()
	a := New(0.85, false)

	_, ok := a.Observe(ctx, "a", 0.5, true)
	require.True(t, ok)
	_, ok = a.Observe(ctx, "b", 1.5, false)
	require.True(t, ok)
	snap, ok := a.Observe(ctx, "c", 0.25, true)
	require.True(t, ok)

	assert.Equal(t, int64(3), snap.PredictionsObserved)
	assert.Equal(t, int64(2), snap.AccurateCount)
	assert.InDelta(t, 200.0/3.0, snap.AccuracyPercent, 1e-9)
	assert.InDelta(t, 2.25/3.0, snap.AvgDeviation, 1e-9)
}

func TestAggregator_DuplicateObservationIgnored(t *testing.T) {
	ctx := context.Background()
	a := New(0.85, false)

	_, ok := a.Observe(ctx, "a", 0.5, true)
	require.True(t, ok)
	snap, ok := a.Observe(ctx, "a", 9, false)

	assert.False(t, ok)
	assert.Equal(t, int64(1), snap.PredictionsObserved)
	assert.Equal(t, int64(1), snap.AccurateCount)
	assert.InDelta(t, 0.5, snap.TotalDeviation, 1e-9)
	assert.True(t, a.Applied("a"))
	assert.False(t, a.Applied("b"))
}

func TestAggregator_ResetDaily(t *testing.T) {
	ctx := context.Background()
	a := New(0.85, false)
	for i := 0; i < 3; i++ {
		a.RecordDecision(ctx, "approved", false)
	}

	before := a.ResetDaily()
	after := a.Snapshot()

	assert.Equal(t, int64(3), before.DecisionsToday)
	assert.Zero(t, after.DecisionsToday)
	assert.Equal(t, int64(3), after.TotalDecisions)
}

func TestAggregator_Restore(t *testing.T) {
	a := New(0.85, false)
	a.RecordDecision(context.Background(), "approved", false)

	a.Restore(State{
		TotalDecisions: 10,
		DecisionsToday: 4,
		Observations: []Observation{
			{DecisionID: "a", Deviation: 0.5, Accurate: true},
			{DecisionID: "b", Deviation: 2, Accurate: false},
			{DecisionID: "a", Deviation: 7, Accurate: false},
		},
	})
	snap := a.Snapshot()

	assert.Equal(t, int64(10), snap.TotalDecisions)
	assert.Equal(t, int64(4), snap.DecisionsToday)
	assert.Equal(t, int64(2), snap.PredictionsObserved)
	assert.Equal(t, int64(1), snap.AccurateCount)
	assert.InDelta(t, 1.25, snap.AvgDeviation, 1e-9)

	_, ok := a.Observe(context.Background(), "b", 1, true)
	assert.False(t, ok, "restored observations count as applied")
}

func TestAggregator_ConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	a := New(0.85, false)

	const n = 1000
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.RecordDecision(ctx, "approved", false)
			a.Observe(ctx, fmt.Sprintf("d-%d", i), 0.5, i%2 == 0)
			_ = a.Snapshot()
		}(i)
	}
	wg.Wait()

	snap := a.Snapshot()
	assert.Equal(t, int64(n), snap.TotalDecisions)
	assert.Equal(t, int64(n), snap.DecisionsToday)
	assert.Equal(t, int64(n), snap.PredictionsObserved)
	assert.Equal(t, int64(n/2), snap.AccurateCount)
	assert.InDelta(t, 50.0, snap.AccuracyPercent, 1e-9)
	assert.InDelta(t, 0.5, snap.AvgDeviation, 1e-9)
}

func TestAggregator_ExportsInstruments(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	a := New(0.85, false, WithMeter(provider.Meter("test")))
	a.RecordDecision(ctx, "approved", false)
	a.RecordDecision(ctx, "pending", true)
	a.Observe(ctx, "x", 0.75, true)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			if m.Name == "estimator.decisions" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				assert.Equal(t, int64(2), total)
			}
		}
	}
	assert.True(t, found["estimator.decisions"])
	assert.True(t, found["estimator.feedback.deviation"])
}
