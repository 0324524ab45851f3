// Package telemetry holds the recording helpers for sqlhealth diagnosis
// events.
// Each function emits both an OTel log event and increments a metric
// counter. With no provider installed by Init they go to the global noop
// providers.
package telemetry

import (
	"context"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterRecorderName = "github.com/steveyegge/sqlhealth"
	loggerName        = "sqlhealth"
)

// recorderInstruments holds all lazy-initialized OTel metric instruments.
type recorderInstruments struct {
	probeTotal    metric.Int64Counter
	checkTotal    metric.Int64Counter
	findingTotal  metric.Int64Counter
	checkDuration metric.Float64Histogram
}

var (
	instOnce sync.Once
	inst     recorderInstruments
)

// initInstruments registers the recorder instruments against the current
// global MeterProvider. Init calls it after installing the real provider;
// every Record* function also calls it lazily.
func initInstruments() {
	instOnce.Do(func() {
		m := otel.GetMeterProvider().Meter(meterRecorderName)

		inst.probeTotal, _ = m.Int64Counter("sqlhealth.probe.total",
			metric.WithDescription("Total connectivity probes"),
		)
		inst.checkTotal, _ = m.Int64Counter("sqlhealth.check.runs.total",
			metric.WithDescription("Total diagnostic check executions"),
		)
		inst.findingTotal, _ = m.Int64Counter("sqlhealth.findings.total",
			metric.WithDescription("Total findings produced by checks"),
		)
		inst.checkDuration, _ = m.Float64Histogram("sqlhealth.check.duration_ms",
			metric.WithDescription("Check query and interpretation latency in milliseconds"),
			metric.WithUnit("ms"),
		)
	})
}

// statusStr returns "ok" or "error" depending on whether err is nil.
func statusStr(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// emit sends an OTel log event with the given body and key-value attributes.
func emit(ctx context.Context, body string, sev otellog.Severity, attrs ...otellog.KeyValue) {
	logger := global.GetLoggerProvider().Logger(loggerName)
	var r otellog.Record
	r.SetBody(otellog.StringValue(body))
	r.SetSeverity(sev)
	r.AddAttributes(attrs...)
	logger.Emit(ctx, r)
}

// errKV returns a log KeyValue with the error message, or empty string if nil.
func errKV(err error) otellog.KeyValue {
	if err != nil {
		return otellog.String("error", truncateOutput(err.Error(), maxErrorLog))
	}
	return otellog.String("error", "")
}

// severity returns SeverityInfo on success, SeverityError on failure.
func severity(err error) otellog.Severity {
	if err != nil {
		return otellog.SeverityError
	}
	return otellog.SeverityInfo
}

// findingSeverity maps a finding severity name to a log severity.
func findingSeverity(name string) otellog.Severity {
	switch name {
	case "actionable":
		return otellog.SeverityError
	case "warning":
		return otellog.SeverityWarn
	default:
		return otellog.SeverityInfo
	}
}

const (
	// maxMessageLog caps finding messages in log events.
	maxMessageLog = 1024
	// maxErrorLog caps driver error text in log events.
	maxErrorLog = 2048
)

// truncateOutput trims s to max bytes and appends "…" when truncated.
// Avoids splitting multi-byte UTF-8 characters at the boundary.
func truncateOutput(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	truncated := s[:limit]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "…"
}

// RecordProbe records a connectivity probe (metrics + log event).
// target is the display form of the server, never the connection string.
func RecordProbe(ctx context.Context, runID, target string, durationMs float64, err error) {
	initInstruments()
	status := statusStr(err)
	inst.probeTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("target", target),
			attribute.String("status", status),
		),
	)
	emit(ctx, "probe", severity(err),
		otellog.String("run_id", runID),
		otellog.String("target", target),
		otellog.Float64("duration_ms", durationMs),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordCheck records one check execution with its duration and number of
// findings (metrics + log event).
func RecordCheck(ctx context.Context, runID, check string, durationMs float64, findings int, err error) {
	initInstruments()
	status := statusStr(err)
	attrs := metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("status", status),
	)
	inst.checkTotal.Add(ctx, 1, attrs)
	inst.checkDuration.Record(ctx, durationMs, attrs)
	emit(ctx, "check.run", severity(err),
		otellog.String("run_id", runID),
		otellog.String("check", check),
		otellog.Float64("duration_ms", durationMs),
		otellog.Int("findings", findings),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordFinding records one finding (metrics + log event). sev is the
// finding's severity name: informational, warning or actionable.
func RecordFinding(ctx context.Context, runID, check, sev, message string) {
	initInstruments()
	inst.findingTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("check", check),
			attribute.String("severity", sev),
		),
	)
	emit(ctx, "finding", findingSeverity(sev),
		otellog.String("run_id", runID),
		otellog.String("check", check),
		otellog.String("severity", sev),
		otellog.String("message", truncateOutput(message, maxMessageLog)),
	)
}
