// Package observer provides OTEL-based observability for divinations.
//
// It wraps the LLM Provider, the Limiter, the Augmenter and the history
// store with instrumented versions that emit traces, metrics, and logs via
// OpenTelemetry. Export to any OTEL-compatible backend by setting the
// standard OTEL env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/oraclelang/oracle/observer"

// Instruments holds all OTEL instruments used by the observer wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// LLM
	TokenUsage  metric.Int64Counter
	CostTotal   metric.Float64Counter
	LLMRequests metric.Int64Counter
	LLMDuration metric.Float64Histogram

	// Divination
	QuotaDecisions  metric.Int64Counter
	Augmentations   metric.Int64Counter
	AugmentDuration metric.Float64Histogram
	HistoryWrites   metric.Int64Counter

	Cost *CostCalculator
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context, pricing map[string]ModelPricing) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("oracle")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := newInstruments(tp, mp, lp, pricing)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

func newInstruments(tp trace.TracerProvider, mp metric.MeterProvider, lp otellog.LoggerProvider, pricing map[string]ModelPricing) (*Instruments, error) {
	meter := mp.Meter(scopeName)

	tokenUsage, err := meter.Int64Counter("llm.token.usage",
		metric.WithDescription("Total tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	costTotal, err := meter.Float64Counter("llm.cost.total",
		metric.WithDescription("Cumulative LLM cost in USD"),
		metric.WithUnit("USD"))
	if err != nil {
		return nil, err
	}

	llmRequests, err := meter.Int64Counter("llm.requests",
		metric.WithDescription("LLM request count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	llmDuration, err := meter.Float64Histogram("llm.duration",
		metric.WithDescription("LLM call duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	quotaDecisions, err := meter.Int64Counter("oracle.quota.decisions",
		metric.WithDescription("Quota checks by outcome"),
		metric.WithUnit("{decision}"))
	if err != nil {
		return nil, err
	}

	augmentations, err := meter.Int64Counter("oracle.augmentations",
		metric.WithDescription("Reading elaborations by status"),
		metric.WithUnit("{augmentation}"))
	if err != nil {
		return nil, err
	}

	augmentDuration, err := meter.Float64Histogram("oracle.augment.duration",
		metric.WithDescription("Reading elaboration duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	historyWrites, err := meter.Int64Counter("oracle.history.writes",
		metric.WithDescription("History records written"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:          tp.Tracer(scopeName),
		Meter:           meter,
		Logger:          lp.Logger(scopeName),
		TokenUsage:      tokenUsage,
		CostTotal:       costTotal,
		LLMRequests:     llmRequests,
		LLMDuration:     llmDuration,
		QuotaDecisions:  quotaDecisions,
		Augmentations:   augmentations,
		AugmentDuration: augmentDuration,
		HistoryWrites:   historyWrites,
		Cost:            NewCostCalculator(pricing),
	}, nil
}

// NewFromGlobal builds Instruments on the global OTEL providers, which
// are no-ops unless Init or the host has configured them.
func NewFromGlobal(pricing map[string]ModelPricing) (*Instruments, error) {
	return newInstruments(otel.GetTracerProvider(), otel.GetMeterProvider(), global.GetLoggerProvider(), pricing)
}
