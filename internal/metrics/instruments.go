package metrics

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// instruments mirror the aggregator to OpenTelemetry. Counters live in the
// aggregator; instruments are for export only.
type instruments struct {
	decisions metric.Int64Counter
	deviation metric.Float64Histogram
}

func newInstruments(m metric.Meter, logger *slog.Logger) instruments {
	var ins instruments
	var err error

	ins.decisions, err = m.Int64Counter("estimator.decisions",
		metric.WithDescription("Decisions issued by the estimation engine"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		logger.Warn("metric instrument unavailable", "name", "estimator.decisions", "error", err)
		ins.decisions, _ = noop.Meter{}.Int64Counter("estimator.decisions")
	}

	ins.deviation, err = m.Float64Histogram("estimator.feedback.deviation",
		metric.WithDescription("Absolute deviation between estimated and actual hours"),
		metric.WithUnit("h"),
	)
	if err != nil {
		logger.Warn("metric instrument unavailable", "name", "estimator.feedback.deviation", "error", err)
		ins.deviation, _ = noop.Meter{}.Float64Histogram("estimator.feedback.deviation")
	}

	return ins
}
