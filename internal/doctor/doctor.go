package doctor

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/steveyegge/sqlhealth/internal/sqlserver"
	"github.com/steveyegge/sqlhealth/internal/telemetry"
)

// Report summarizes the results of a diagnosis run.
type Report struct {
	// RunID correlates this run's telemetry.
	RunID string `json:"run_id,omitempty"`
	// Target is the diagnosed server.
	Target string `json:"target"`
	// Outcomes holds one entry per registered check, in registry order.
	Outcomes []*Outcome `json:"-"`
	// Informational, Warnings and Actionable count findings by severity.
	Informational int `json:"informational"`
	Warnings      int `json:"warnings"`
	Actionable    int `json:"actionable"`
	// Failed is the number of checks that could not complete.
	Failed int `json:"failed"`
	// Skipped is the number of checks excluded by configuration.
	Skipped int `json:"skipped"`
}

func (r *Report) add(o *Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch {
	case o.Skipped:
		r.Skipped++
	case o.Failed():
		r.Failed++
	}
	for _, f := range o.Findings {
		switch f.Severity {
		case Informational:
			r.Informational++
		case Warning:
			r.Warnings++
		case Actionable:
			r.Actionable++
		}
	}
}

// Highest returns the most severe finding in the report, or
// Informational when there are none.
func (r *Report) Highest() Severity {
	switch {
	case r.Actionable > 0:
		return Actionable
	case r.Warnings > 0:
		return Warning
	default:
		return Informational
	}
}

// Renderer consumes a run as it happens. Outcome is called once per check,
// in registry order, as soon as that check completes.
type Renderer interface {
	Begin(target string, at time.Time)
	Outcome(o *Outcome)
	End(r *Report)
}

// Doctor runs registered checks against one server.
type Doctor struct {
	checks []Check

	// Target labels the server in errors, output and telemetry.
	Target string
	// Skip names checks that are reported as skipped instead of run.
	Skip []string
	// QueryTimeout bounds each check's query. Zero means no bound beyond
	// the driver's own.
	QueryTimeout time.Duration
	// RunID correlates telemetry for one run.
	RunID string
	// Log receives per-check debug timing. Nil discards.
	Log *zerolog.Logger
}

// Register adds a check to the end of the run order.
func (d *Doctor) Register(c Check) {
	d.checks = append(d.checks, c)
}

// Checks returns the registered checks in run order.
func (d *Doctor) Checks() []Check {
	return slices.Clone(d.checks)
}

func (d *Doctor) logger() *zerolog.Logger {
	if d.Log != nil {
		return d.Log
	}
	nop := zerolog.Nop()
	return &nop
}

// Run probes the server and then executes every registered check in order,
// handing each outcome to r as it completes. A failed probe returns a
// *ConnectivityError and runs nothing. A failing check is recorded on its
// own Outcome and never stops the checks after it.
func (d *Doctor) Run(ctx context.Context, db sqlserver.Querier, r Renderer) (*Report, error) {
	if err := d.Connect(ctx, db); err != nil {
		return nil, err
	}
	if r != nil {
		r.Begin(d.Target, time.Now())
	}
	rep := &Report{RunID: d.RunID, Target: d.Target}
	for _, c := range d.checks {
		o := d.runCheck(ctx, db, c)
		rep.add(o)
		if r != nil {
			r.Outcome(o)
		}
	}
	if r != nil {
		r.End(rep)
	}
	return rep, nil
}

// runCheck executes one check. Query errors, interpretation errors and
// panics all end up as a *CheckExecutionError on the returned Outcome.
func (d *Doctor) runCheck(ctx context.Context, db sqlserver.Querier, c Check) (o *Outcome) {
	o = &Outcome{Check: c.Name(), Title: c.Title()}
	if slices.Contains(d.Skip, c.Name()) {
		o.Skipped = true
		d.logger().Debug().Str("check", c.Name()).Msg("skipped")
		return o
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			o.Findings = nil
			o.Err = &CheckExecutionError{Check: c.Name(), Err: fmt.Errorf("panic: %v", p)}
		}
		o.Duration = time.Since(start)
		d.record(ctx, o)
	}()

	qctx := ctx
	if d.QueryTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, d.QueryTimeout)
		defer cancel()
	}

	rows, err := db.Query(qctx, c.Query())
	if err != nil {
		o.Err = &CheckExecutionError{Check: c.Name(), Err: err}
		return o
	}
	findings, err := c.Interpret(rows)
	if err != nil {
		o.Err = &CheckExecutionError{Check: c.Name(), Err: fmt.Errorf("interpreting rows: %w", err)}
		return o
	}
	o.Findings = findings
	return o
}

func (d *Doctor) record(ctx context.Context, o *Outcome) {
	telemetry.RecordCheck(ctx, d.RunID, o.Check, durationMs(o.Duration), len(o.Findings), o.Err)
	for _, f := range o.Findings {
		telemetry.RecordFinding(ctx, d.RunID, f.Check, f.Severity.String(), f.Message)
	}
	d.logger().Debug().
		Str("check", o.Check).
		Dur("elapsed", o.Duration).
		Int("findings", len(o.Findings)).
		Err(o.Err).
		Msg("check complete")
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
