package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Options selects OTLP/HTTP endpoints and labels the exported resource.
type Options struct {
	// MetricsURL is the full OTLP/HTTP metrics endpoint. Empty disables metrics.
	MetricsURL string
	// LogsURL is the full OTLP/HTTP logs endpoint. Empty disables log events.
	LogsURL string
	// Version is reported as service.version.
	Version string
	// RunID and Target label every exported series and record.
	RunID  string
	Target string
}

// Enabled reports whether any exporter is configured.
func (o Options) Enabled() bool {
	return o.MetricsURL != "" || o.LogsURL != ""
}

// ShutdownFunc flushes and stops the providers installed by Init.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs global meter and logger providers exporting to the
// configured endpoints. With no endpoints it installs nothing and returns
// a no-op shutdown, leaving the Record* helpers on the noop providers.
// Callers must invoke the returned func before exit so a short-lived run
// still flushes its data.
func Init(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if !opts.Enabled() {
		return noopShutdown, nil
	}
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(resourceAttrs(opts)...),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	var shutdowns []ShutdownFunc
	if opts.MetricsURL != "" {
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(opts.MetricsURL))
		if err != nil {
			return nil, fmt.Errorf("metrics exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}
	if opts.LogsURL != "" {
		exp, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(opts.LogsURL))
		if err != nil {
			return joinShutdown(shutdowns), fmt.Errorf("logs exporter: %w", err)
		}
		lp := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(lp)
		shutdowns = append(shutdowns, lp.Shutdown)
	}
	initInstruments()
	return joinShutdown(shutdowns), nil
}

func joinShutdown(fns []ShutdownFunc) ShutdownFunc {
	return func(ctx context.Context) error {
		var errs []error
		for _, fn := range fns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}
}

// resourceAttrs builds the resource labels for one run. Attributes from
// OTEL_RESOURCE_ATTRIBUTES are merged in by Init.
func resourceAttrs(opts Options) []attribute.KeyValue {
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	attrs := []attribute.KeyValue{
		attribute.String("service.name", "sqlhealth"),
		attribute.String("service.version", version),
	}
	if opts.RunID != "" {
		attrs = append(attrs, attribute.String("sqlhealth.run_id", opts.RunID))
	}
	if opts.Target != "" {
		attrs = append(attrs, attribute.String("sqlhealth.target", opts.Target))
	}
	return attrs
}
