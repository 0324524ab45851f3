// Package doctor provides health diagnostics for a SQL Server instance. It
// defines a Check interface, a registry of the built-in checks, and a
// runner that probes connectivity, executes checks sequentially with
// per-check failure isolation, and streams outcomes to a renderer.
package doctor

import (
	"fmt"
	"time"

	"github.com/steveyegge/sqlhealth/internal/sqlserver"
)

// Severity grades a finding.
type Severity int

const (
	// Informational findings need no action.
	Informational Severity = iota
	// Warning findings deserve a look but usually resolve on their own.
	Warning
	// Actionable findings need an operator to do something.
	Actionable
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case Informational:
		return "informational"
	case Warning:
		return "warning"
	case Actionable:
		return "actionable"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText renders the severity name in JSON output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Check is a single diagnostic: a static query plus the rule that turns
// its rows into findings. Implementations are registered with a Doctor and
// executed sequentially during Run.
type Check interface {
	// Name returns a short, unique identifier (e.g. "xtp-memory").
	Name() string
	// Title returns the section header shown above the check's findings.
	Title() string
	// Query returns the statement to run. It never contains user input.
	Query() string
	// Interpret turns the query's rows into findings. An empty row set
	// yields the check's "nothing found" finding, never an error.
	Interpret(rows []sqlserver.Row) ([]Finding, error)
}

// Finding is one interpreted observation.
type Finding struct {
	// Check names the check that produced this finding.
	Check string `json:"check"`
	// Severity grades the finding.
	Severity Severity `json:"severity"`
	// Message is a one-line, human-readable summary.
	Message string `json:"message"`
	// Details holds follow-up lines: observed values and remediation advice.
	Details []string `json:"details,omitempty"`
	// Payload carries the values behind threshold decisions.
	Payload map[string]any `json:"payload,omitempty"`
}

// Outcome is the result of running one check.
type Outcome struct {
	Check    string        `json:"check"`
	Title    string        `json:"title"`
	Findings []Finding     `json:"findings,omitempty"`
	Err      error         `json:"-"`
	Skipped  bool          `json:"skipped,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Failed reports whether the check could not complete.
func (o *Outcome) Failed() bool { return o.Err != nil }
