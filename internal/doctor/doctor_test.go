package doctor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/steveyegge/sqlhealth/internal/sqlserver"
)

// mockCheck is a configurable Check for testing the runner.
type mockCheck struct {
	name     string
	findings []Finding
	err      error
	panics   bool
	gotRows  []sqlserver.Row
}

func (m *mockCheck) Name() string  { return m.name }
func (m *mockCheck) Title() string { return "Title " + m.name }
func (m *mockCheck) Query() string { return "SELECT " + m.name }
func (m *mockCheck) Interpret(rows []sqlserver.Row) ([]Finding, error) {
	m.gotRows = rows
	if m.panics {
		panic("bad row shape")
	}
	return m.findings, m.err
}

// recorder is a Renderer that remembers what it was handed.
type recorder struct {
	begun    bool
	outcomes []*Outcome
	report   *Report
}

func (r *recorder) Begin(string, time.Time) { r.begun = true }
func (r *recorder) Outcome(o *Outcome)      { r.outcomes = append(r.outcomes, o) }
func (r *recorder) End(rep *Report)         { r.report = rep }

func finding(check string, sev Severity, msg string) Finding {
	return Finding{Check: check, Severity: sev, Message: msg}
}

func newDoctor(checks ...Check) *Doctor {
	d := &Doctor{Target: "db01/master"}
	for _, c := range checks {
		d.Register(c)
	}
	return d
}

func fakeFor(checks ...*mockCheck) *sqlserver.Fake {
	db := sqlserver.NewFake()
	for _, c := range checks {
		db.Results[c.Query()] = nil
	}
	return db
}

func TestDoctor_AllChecksRunInOrder(t *testing.T) {
	a := &mockCheck{name: "a", findings: []Finding{finding("a", Informational, "fine")}}
	b := &mockCheck{name: "b", findings: []Finding{finding("b", Warning, "hmm")}}
	c := &mockCheck{name: "c", findings: []Finding{finding("c", Actionable, "bad"), finding("c", Actionable, "worse")}}
	db := fakeFor(a, b, c)
	rec := &recorder{}

	rep, err := newDoctor(a, b, c).Run(context.Background(), db, rec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantCalls := []string{"Ping", "SELECT a", "SELECT b", "SELECT c"}
	if diff := cmp.Diff(wantCalls, db.Calls); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
	if rep.Informational != 1 || rep.Warnings != 1 || rep.Actionable != 2 || rep.Failed != 0 {
		t.Errorf("counts = %+v", rep)
	}
	if rep.Highest() != Actionable {
		t.Errorf("Highest = %v, want actionable", rep.Highest())
	}
	if !rec.begun || rec.report != rep || len(rec.outcomes) != 3 {
		t.Errorf("renderer saw begun=%v outcomes=%d report=%v", rec.begun, len(rec.outcomes), rec.report != nil)
	}
	if got := rec.outcomes[2].Findings; len(got) != 2 || got[0].Message != "bad" || got[1].Message != "worse" {
		t.Errorf("finding order not preserved: %+v", got)
	}
}

func TestDoctor_ProbeFailureRunsNothing(t *testing.T) {
	a := &mockCheck{name: "a"}
	db := fakeFor(a)
	db.PingErr = errors.New("dial tcp 172.17.2.31:1433: i/o timeout")
	rec := &recorder{}

	rep, err := newDoctor(a).Run(context.Background(), db, rec)
	if rep != nil {
		t.Errorf("report = %+v, want nil", rep)
	}
	var ce *ConnectivityError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConnectivityError", err)
	}
	if ce.Target != "db01/master" || !strings.Contains(err.Error(), "i/o timeout") {
		t.Errorf("err = %v", err)
	}
	if diff := cmp.Diff([]string{"Ping"}, db.Calls); diff != "" {
		t.Errorf("no query may run after a failed probe (-want +got):\n%s", diff)
	}
	if rec.begun || len(rec.outcomes) != 0 {
		t.Error("renderer must not be invoked after a failed probe")
	}
}

func TestDoctor_Probe(t *testing.T) {
	db := sqlserver.NewFake()
	d := newDoctor()
	if !d.Probe(context.Background(), db) {
		t.Error("Probe = false, want true")
	}
	db.PingErr = errors.New("login failed")
	if d.Probe(context.Background(), db) {
		t.Error("Probe = true, want false")
	}
	if got := len(db.Calls); got != 2 {
		t.Errorf("Probe made %d attempts, want exactly 1 each", got)
	}
}

func TestDoctor_QueryFailureIsIsolated(t *testing.T) {
	a := &mockCheck{name: "a", findings: []Finding{finding("a", Informational, "fine")}}
	b := &mockCheck{name: "b", findings: []Finding{finding("b", Warning, "never")}}
	c := &mockCheck{name: "c", findings: []Finding{finding("c", Warning, "still ran")}}
	db := fakeFor(a, b, c)
	db.Errors[b.Query()] = errors.New("VIEW SERVER STATE permission denied")

	rep, err := newDoctor(a, b, c).Run(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(rep.Outcomes))
	}
	oa, ob, oc := rep.Outcomes[0], rep.Outcomes[1], rep.Outcomes[2]
	if oa.Failed() || len(oa.Findings) != 1 || oa.Findings[0].Message != "fine" {
		t.Errorf("check a affected by b's failure: %+v", oa)
	}
	var ce *CheckExecutionError
	if !errors.As(ob.Err, &ce) || ce.Check != "b" {
		t.Fatalf("b err = %v, want *CheckExecutionError for b", ob.Err)
	}
	if !strings.Contains(ob.Err.Error(), "permission denied") {
		t.Errorf("b err = %v, want underlying cause", ob.Err)
	}
	if ob.Findings != nil {
		t.Errorf("failed check has findings: %+v", ob.Findings)
	}
	if oc.Failed() || oc.Findings[0].Message != "still ran" {
		t.Errorf("check c did not run after b failed: %+v", oc)
	}
	if rep.Failed != 1 || rep.Warnings != 1 || rep.Informational != 1 {
		t.Errorf("counts = %+v", rep)
	}
}

func TestDoctor_InterpretErrorIsIsolated(t *testing.T) {
	a := &mockCheck{name: "a", err: errors.New(`column "pages_kb" is NULL`)}
	b := &mockCheck{name: "b", findings: []Finding{finding("b", Informational, "ok")}}
	db := fakeFor(a, b)

	rep, err := newDoctor(a, b).Run(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(rep.Outcomes[0].Err.Error(), "interpreting rows") {
		t.Errorf("a err = %v", rep.Outcomes[0].Err)
	}
	if rep.Outcomes[1].Failed() {
		t.Errorf("b failed: %v", rep.Outcomes[1].Err)
	}
}

func TestDoctor_PanicIsIsolated(t *testing.T) {
	a := &mockCheck{name: "a", panics: true}
	b := &mockCheck{name: "b", findings: []Finding{finding("b", Informational, "ok")}}
	db := fakeFor(a, b)

	rep, err := newDoctor(a, b).Run(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var ce *CheckExecutionError
	if !errors.As(rep.Outcomes[0].Err, &ce) || !strings.Contains(ce.Error(), "bad row shape") {
		t.Errorf("a err = %v, want recovered panic", rep.Outcomes[0].Err)
	}
	if rep.Outcomes[1].Failed() {
		t.Error("b should run after a panicked")
	}
}

func TestDoctor_Skip(t *testing.T) {
	a := &mockCheck{name: "a", findings: []Finding{finding("a", Warning, "x")}}
	b := &mockCheck{name: "b", findings: []Finding{finding("b", Informational, "y")}}
	db := fakeFor(a, b)
	d := newDoctor(a, b)
	d.Skip = []string{"a"}

	rep, err := d.Run(context.Background(), db, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.Outcomes[0].Skipped || rep.Skipped != 1 {
		t.Errorf("a not skipped: %+v", rep.Outcomes[0])
	}
	if diff := cmp.Diff([]string{"SELECT b"}, db.Queries()); diff != "" {
		t.Errorf("queries (-want +got):\n%s", diff)
	}
}

// deadlineQuerier records whether queries carried a deadline.
type deadlineQuerier struct {
	*sqlserver.Fake
	deadlines []bool
}

func (q *deadlineQuerier) Query(ctx context.Context, query string) ([]sqlserver.Row, error) {
	_, ok := ctx.Deadline()
	q.deadlines = append(q.deadlines, ok)
	return q.Fake.Query(ctx, query)
}

func TestDoctor_QueryTimeout(t *testing.T) {
	a := &mockCheck{name: "a"}
	q := &deadlineQuerier{Fake: fakeFor(a)}
	d := newDoctor(a)

	if _, err := d.Run(context.Background(), q, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	d.QueryTimeout = time.Second
	if _, err := d.Run(context.Background(), q, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff([]bool{false, true}, q.deadlines); diff != "" {
		t.Errorf("deadlines (-want +got):\n%s", diff)
	}
}

func TestDoctor_BuiltinChecksEndToEnd(t *testing.T) {
	db := sqlserver.NewFake()
	checks := DefaultChecks()
	db.Results[checks[0].Query()] = []sqlserver.Row{{"type": "MEMORYCLERK_XTP", "pages_kb": int64(1153434)}}
	db.Errors[checks[1].Query()] = errors.New("network blip")
	db.Results[checks[2].Query()] = []sqlserver.Row{{"database_name": "sales", "log_reuse_wait_desc": "ACTIVE_TRANSACTION"}}

	d := newDoctor(checks...)
	var buf bytes.Buffer
	rep, err := d.Run(context.Background(), db, NewTextRenderer(&buf, false, false))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Warnings != 1 || rep.Actionable != 1 || rep.Failed != 1 {
		t.Errorf("counts = %+v", rep)
	}
	out := buf.String()
	for _, want := range []string{
		"SQL Server health diagnosis — db01/master",
		"XTP memory usage:\n  ⚠ elevated XTP memory usage: 1.10 GB",
		"Long-running transactions:\n  ✗ check long-transactions failed: network blip",
		"Transaction log reuse:\n  ✗ sales: long transaction blocking log truncation",
		"      log reuse wait: ACTIVE_TRANSACTION",
		"1 warnings, 1 actionable, 1 failed",
		"diagnosis complete",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextRenderer_SkippedAndVerbose(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, true, false)
	r.Outcome(&Outcome{Check: "a", Title: "A", Skipped: true})
	r.Outcome(&Outcome{Check: "b", Title: "B", Duration: 12 * time.Millisecond,
		Findings: []Finding{finding("b", Informational, "fine")}})
	out := buf.String()
	if !strings.Contains(out, "A:\n  - skipped\n") {
		t.Errorf("skipped section wrong:\n%s", out)
	}
	if !strings.Contains(out, "  ✓ fine\n  (b in 12ms)") {
		t.Errorf("verbose timing missing:\n%s", out)
	}
}

func TestTextRenderer_Color(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf, false, true)
	r.Outcome(&Outcome{Check: "a", Title: "A", Findings: []Finding{finding("a", Warning, "x")}})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected ANSI escapes with color enabled: %q", buf.String())
	}
}

func TestPrintSummary_NoChecks(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, &Report{})
	if buf.String() != "No checks ran.\n" {
		t.Errorf("summary = %q", buf.String())
	}
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONRenderer(&buf)
	r.Begin("db01/master", time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	r.Outcome(&Outcome{Check: "a", Findings: []Finding{{
		Check: "a", Severity: Warning, Message: "hmm", Payload: map[string]any{"gb": 1.1},
	}}})
	r.Outcome(&Outcome{Check: "b", Err: &CheckExecutionError{Check: "b", Err: errors.New("boom")}})
	r.Outcome(&Outcome{Check: "c", Skipped: true})
	r.End(&Report{Target: "db01/master", Warnings: 1, Failed: 1, Skipped: 1})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), buf.String())
	}
	var recs []map[string]any
	for _, l := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(l), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", l, err)
		}
		recs = append(recs, m)
	}
	if recs[0]["type"] != "begin" || recs[0]["at"] != "2026-10-18T09:00:00Z" {
		t.Errorf("begin = %v", recs[0])
	}
	if recs[1]["type"] != "finding" || recs[1]["check"] != "a" || recs[1]["severity"] != "warning" {
		t.Errorf("finding = %v", recs[1])
	}
	if recs[2]["type"] != "error" || recs[2]["error"] != "check b failed: boom" {
		t.Errorf("error = %v", recs[2])
	}
	if recs[3]["type"] != "skipped" || recs[3]["check"] != "c" {
		t.Errorf("skipped = %v", recs[3])
	}
	if recs[4]["type"] != "summary" || recs[4]["warnings"] != float64(1) || recs[4]["target"] != "db01/master" {
		t.Errorf("summary = %v", recs[4])
	}
}

func TestSeverityString(t *testing.T) {
	for sev, want := range map[Severity]string{
		Informational: "informational",
		Warning:       "warning",
		Actionable:    "actionable",
		Severity(9):   "severity(9)",
	} {
		if got := sev.String(); got != want {
			t.Errorf("Severity(%d).String() = %q, want %q", int(sev), got, want)
		}
	}
}
