package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/steveyegge/sqlhealth/internal/config"
	"github.com/steveyegge/sqlhealth/internal/doctor"
	"github.com/steveyegge/sqlhealth/internal/logging"
	"github.com/steveyegge/sqlhealth/internal/telemetry"
)

func newDiagnoseCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Probe the server and run all health checks",
		Long: `Probe the server once, then run each built-in check in order and
print its findings as soon as it completes.

A check that fails is reported and the remaining checks still run. If the
server cannot be reached no check runs and the exit code is 2. The exit
code is 1 when any check failed or when --fail-on is reached.`,
		Example: `  sqlhealth diagnose --host 172.17.2.31
  sqlhealth diagnose --auth sql --user monitor --format json
  sqlhealth diagnose --skip long-transactions --fail-on actionable`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return doDiagnose(cmd.Context(), opts, stdout, stderr)
		},
	}
	opts.addOutputFlags(cmd)
	return cmd
}

// doDiagnose runs a full diagnosis and maps the report to an exit error.
func doDiagnose(ctx context.Context, o *options, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if o.format != "text" && o.format != "json" {
		return fail(stderr, "diagnose", fmt.Errorf("--format %q: want text or json", o.format))
	}
	threshold, err := parseFailOn(o.failOn)
	if err != nil {
		return fail(stderr, "diagnose", err)
	}
	cfg, src, err := loadValidConfig(o)
	if err != nil {
		return fail(stderr, "diagnose", err)
	}

	logs := logging.New(cfg.Log, o.verbose, stderr)
	defer logs.Close() //nolint:errcheck // best-effort log flush
	src.log(logs.Config, cfg)

	runID := uuid.NewString()
	target := cfg.Server.Target()
	shutdown := startTelemetry(ctx, cfg, runID, target, logs)
	defer shutdown()

	db, err := openQuerier(ctx, cfg, logs.Creds, logs.DB)
	if err != nil {
		return fail(stderr, "diagnose", err)
	}

	d := &doctor.Doctor{
		Target:       target,
		Skip:         cfg.Checks.Skip,
		QueryTimeout: cfg.Server.QueryTimeout.Duration,
		RunID:        runID,
		Log:          &logs.Doctor,
	}
	for _, c := range doctor.DefaultChecks() {
		d.Register(c)
	}

	var r doctor.Renderer
	if o.format == "json" {
		r = doctor.NewJSONRenderer(stdout)
	} else {
		r = doctor.NewTextRenderer(stdout, o.verbose, !o.noColor && !color.NoColor)
	}

	rep, err := d.Run(ctx, db, r)
	if err != nil {
		var ce *doctor.ConnectivityError
		if errors.As(err, &ce) {
			fmt.Fprintf(stderr, "sqlhealth diagnose: %v\n", err) //nolint:errcheck // best-effort stderr
			return errUnreachable
		}
		return fail(stderr, "diagnose", err)
	}
	logs.Root.Info().Str("run_id", runID).Int("failed", rep.Failed).
		Str("highest", rep.Highest().String()).Msg("diagnosis complete")
	return reportExit(rep, threshold)
}

// failOn is the --fail-on threshold. failNever disables it.
type failOn int

const (
	failNever failOn = iota
	failWarning
	failActionable
)

func parseFailOn(s string) (failOn, error) {
	switch s {
	case "", "none":
		return failNever, nil
	case "warning":
		return failWarning, nil
	case "actionable":
		return failActionable, nil
	default:
		return failNever, fmt.Errorf("--fail-on %q: want none, warning or actionable", s)
	}
}

// reportExit returns errExit when a check failed or the highest finding
// reaches the threshold.
func reportExit(rep *doctor.Report, threshold failOn) error {
	if rep.Failed > 0 {
		return errExit
	}
	switch {
	case threshold == failWarning && rep.Highest() >= doctor.Warning:
		return errExit
	case threshold == failActionable && rep.Highest() == doctor.Actionable:
		return errExit
	}
	return nil
}

// startTelemetry installs exporters when configured. Telemetry problems
// are logged and never stop a diagnosis.
func startTelemetry(ctx context.Context, cfg *config.Config, runID, target string, logs *logging.Loggers) func() {
	shutdown, err := telemetry.Init(ctx, telemetry.Options{
		MetricsURL: cfg.Telemetry.MetricsURL,
		LogsURL:    cfg.Telemetry.LogsURL,
		Version:    version,
		RunID:      runID,
		Target:     target,
	})
	if err != nil {
		logs.Root.Warn().Err(err).Msg("telemetry disabled")
	}
	return func() {
		if shutdown == nil {
			return
		}
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logs.Root.Warn().Err(err).Msg("telemetry flush")
		}
	}
}
