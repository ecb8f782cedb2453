// Package telemetry configures OpenTelemetry tracing for the dispatch
// core: a Provider wrapping the tracer provider, plus attribute helpers for
// batch, courier and order spans. No other package in this module starts
// spans through it, and cmd/server does not construct a Provider.
// Grounded directly on the teacher's pkg/telemetry.Provider (OTLP + stdout
// exporters, resource attributes via semconv, global propagator setup),
// with the attribute helpers narrowed to this domain's span fields.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds telemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	EnableConsole  bool
	SampleRate     float64
}

// Provider wraps the OpenTelemetry TracerProvider.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// NewProvider builds a Provider from cfg. With no OTLP endpoint and console
// export disabled, it falls back to the global no-op tracer so a
// development run never needs a collector.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
		resource.WithOS(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var exporters []sdktrace.SpanExporter

	if cfg.OTLPEndpoint != "" {
		otlpExporter, err := otlptrace.New(ctx,
			otlptracegrpc.NewClient(
				otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
				otlptracegrpc.WithInsecure(),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("create OTLP exporter: %w", err)
		}
		exporters = append(exporters, otlpExporter)
	}

	if cfg.EnableConsole {
		consoleExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create console exporter: %w", err)
		}
		exporters = append(exporters, consoleExporter)
	}

	if len(exporters) == 0 {
		return &Provider{tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	}
	for _, exp := range exporters {
		opts = append(opts, sdktrace.WithBatcher(exp,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tracerProvider: tp, tracer: tp.Tracer(cfg.ServiceName)}, nil
}

// Tracer returns the service tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes and stops the tracer provider, a no-op when running
// without exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		return p.tracerProvider.Shutdown(ctx)
	}
	return nil
}

// StartSpan starts a span named name.
func (p *Provider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, opts...)
}

// Attribute helpers for batch, courier and order spans.

func BatchIDAttr(batchID string) attribute.KeyValue   { return attribute.String("work4food.batch_id", batchID) }
func CourierIDAttr(courierID string) attribute.KeyValue { return attribute.String("work4food.courier_id", courierID) }
func OrderIDAttr(orderID string) attribute.KeyValue   { return attribute.String("work4food.order_id", orderID) }
func OmegaAttr(omega float64) attribute.KeyValue      { return attribute.Float64("work4food.omega", omega) }
func AssignedOrdersAttr(n int) attribute.KeyValue     { return attribute.Int("work4food.assigned_orders", n) }
