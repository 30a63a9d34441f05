// Package otel configures OpenTelemetry tracing for cartstore processes.
package otel

import (
	"context"
	"strconv"
	"strings"

	"github.com/louisbranch/cartstore/internal/platform/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Env holds the tracing settings. Values are kept as raw strings so a
// malformed ratio degrades to full sampling instead of failing startup.
type Env struct {
	Endpoint    string `env:"CARTSTORE_OTEL_ENDPOINT"`
	Enabled     string `env:"CARTSTORE_OTEL_ENABLED"`
	SampleRatio string `env:"CARTSTORE_OTEL_SAMPLE_RATIO"`
}

// active reports whether an exporter should be installed.
func (e Env) active() bool {
	if strings.EqualFold(strings.TrimSpace(e.Enabled), "false") {
		return false
	}
	return strings.TrimSpace(e.Endpoint) != ""
}

// Setup initialises tracing for serviceName from the process environment.
//
// Tracing is opt-in: when CARTSTORE_OTEL_ENDPOINT is empty or
// CARTSTORE_OTEL_ENABLED is "false", Setup returns a no-op shutdown
// function and no global provider is registered.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	var env Env
	if err := config.ParseEnv(&env); err != nil {
		return noopShutdown, err
	}
	return SetupWithEnv(ctx, serviceName, env)
}

// SetupWithEnv initialises tracing from explicit settings. The returned
// shutdown function flushes pending spans and should be deferred.
func SetupWithEnv(ctx context.Context, serviceName string, env Env) (func(context.Context) error, error) {
	if !env.active() {
		return noopShutdown, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(strings.TrimSpace(env.Endpoint)),
	)
	if err != nil {
		return noopShutdown, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(env.SampleRatio)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

func noopShutdown(context.Context) error { return nil }

// samplerFor samples everything unless a ratio in (0,1) is configured.
func samplerFor(raw string) sdktrace.Sampler {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return sdktrace.AlwaysSample()
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
