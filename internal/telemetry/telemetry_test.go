package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNew_RequiresEndpoint(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNew_DoesNotDial(t *testing.T) {
	p, err := New(context.Background(), Config{OTLPEndpoint: "127.0.0.1:1", Insecure: true})
	require.NoError(t, err)
	require.NotNil(t, p)
	// Shutdown tries a final export to the unreachable collector; only the
	// provider wiring matters here.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}

func TestResource_ServiceName(t *testing.T) {
	res, err := Resource(Config{ServiceVersion: "1.2.3"})
	require.NoError(t, err)

	set := res.Set()
	name, ok := set.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, DefaultServiceName, name.AsString())

	version, ok := set.Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", version.AsString())
}

func TestNewWithReader_CollectsFromMeter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	p, err := NewWithReader(Config{ServiceName: "estimengine-test"}, reader)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	counter, err := p.Meter("test").Int64Counter("estimator.decisions")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	name, ok := rm.Resource.Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "estimengine-test", name.AsString())

	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestShutdown_NilProvider(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}
