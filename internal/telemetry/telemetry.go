// Package telemetry sets up the OpenTelemetry meter provider that the
// metrics aggregator mirrors its counters into.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is reported when Config.ServiceName is empty.
const DefaultServiceName = "estimengine"

// DefaultExportInterval is the periodic reader interval.
const DefaultExportInterval = 15 * time.Second

// Config selects the OTLP collector.
type Config struct {
	OTLPEndpoint   string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	ExportInterval time.Duration
}

// Provider owns the meter provider and its exporter.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
}

// New builds an OTLP/gRPC meter provider and installs it as the global
// provider. Nothing is dialled until the first export.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.OTLPEndpoint == "" {
		return nil, errors.New("telemetry: otlp endpoint is required")
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create metric exporter: %w", err)
	}

	return NewWithReader(cfg, sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(exportInterval(cfg)),
	))
}

// NewWithReader builds a provider around reader. Tests pass a ManualReader.
func NewWithReader(cfg Config, reader sdkmetric.Reader) (*Provider, error) {
	res, err := Resource(cfg)
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	return &Provider{meterProvider: mp}, nil
}

// Resource describes this service. Attributes are schemaless so they merge
// with the SDK default whatever semconv version it carries.
func Resource(cfg Config) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("telemetry: merge resource: %w", err)
	}
	return res, nil
}

// Meter returns a named meter from the provider.
func (p *Provider) Meter(name string) metric.Meter {
	return p.meterProvider.Meter(name)
}

// Shutdown flushes pending metrics and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown meter provider: %w", err)
	}
	return nil
}

func exportInterval(cfg Config) time.Duration {
	if cfg.ExportInterval > 0 {
		return cfg.ExportInterval
	}
	return DefaultExportInterval
}
