package doctor

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// TextRenderer prints a run for a terminal: a header, one section per check
// with an icon per finding, indented detail lines, and a summary.
type TextRenderer struct {
	w       io.Writer
	verbose bool

	ok, warn, bad, dim *color.Color
}

// NewTextRenderer returns a TextRenderer writing to w. Verbose adds per-check
// timing; useColor enables ANSI colors regardless of terminal detection.
func NewTextRenderer(w io.Writer, verbose, useColor bool) *TextRenderer {
	r := &TextRenderer{
		w:       w,
		verbose: verbose,
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		bad:     color.New(color.FgRed, color.Bold),
		dim:     color.New(color.Faint),
	}
	for _, c := range []*color.Color{r.ok, r.warn, r.bad, r.dim} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func (t *TextRenderer) icon(s Severity) string {
	switch s {
	case Warning:
		return t.warn.Sprint("⚠")
	case Actionable:
		return t.bad.Sprint("✗")
	default:
		return t.ok.Sprint("✓")
	}
}

// Begin prints the banner.
func (t *TextRenderer) Begin(target string, at time.Time) {
	fmt.Fprintf(t.w, "SQL Server health diagnosis — %s\n", target) //nolint:errcheck // best-effort output
	fmt.Fprintf(t.w, "%s\n\n", at.Format("2006-01-02 15:04:05"))   //nolint:errcheck // best-effort output
}

// Outcome prints one check's section.
func (t *TextRenderer) Outcome(o *Outcome) {
	fmt.Fprintf(t.w, "%s:\n", o.Title) //nolint:errcheck // best-effort output
	switch {
	case o.Skipped:
		fmt.Fprintf(t.w, "  %s %s\n", t.dim.Sprint("-"), t.dim.Sprint("skipped")) //nolint:errcheck // best-effort output
	case o.Failed():
		fmt.Fprintf(t.w, "  %s %s\n", t.bad.Sprint("✗"), o.Err) //nolint:errcheck // best-effort output
	default:
		for _, f := range o.Findings {
			fmt.Fprintf(t.w, "  %s %s\n", t.icon(f.Severity), f.Message) //nolint:errcheck // best-effort output
			for _, d := range f.Details {
				fmt.Fprintf(t.w, "      %s\n", d) //nolint:errcheck // best-effort output
			}
		}
	}
	if t.verbose && !o.Skipped {
		fmt.Fprintf(t.w, "  %s\n", t.dim.Sprintf("(%s in %s)", o.Check, o.Duration.Round(time.Millisecond))) //nolint:errcheck // best-effort output
	}
	fmt.Fprintln(t.w) //nolint:errcheck // best-effort output
}

// End prints the summary line.
func (t *TextRenderer) End(r *Report) {
	PrintSummary(t.w, r)
	fmt.Fprintln(t.w, "diagnosis complete") //nolint:errcheck // best-effort output
}

// PrintSummary writes the counts line to w.
func PrintSummary(w io.Writer, r *Report) {
	parts := []string{}
	if r.Informational > 0 {
		parts = append(parts, fmt.Sprintf("%d informational", r.Informational))
	}
	if r.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", r.Warnings))
	}
	if r.Actionable > 0 {
		parts = append(parts, fmt.Sprintf("%d actionable", r.Actionable))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.Failed))
	}
	if r.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", r.Skipped))
	}
	if len(parts) == 0 {
		fmt.Fprintln(w, "No checks ran.") //nolint:errcheck // best-effort output
		return
	}
	for i, p := range parts {
		if i > 0 {
			fmt.Fprint(w, ", ") //nolint:errcheck // best-effort output
		}
		fmt.Fprint(w, p) //nolint:errcheck // best-effort output
	}
	fmt.Fprintln(w) //nolint:errcheck // best-effort output
}

// JSONRenderer writes one JSON object per line: a "begin" record, a
// "finding", "error" or "skipped" record per check result, and a closing
// "summary".
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a JSONRenderer writing to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

type jsonRecord struct {
	Type       string  `json:"type"`
	Target     string  `json:"target,omitempty"`
	At         string  `json:"at,omitempty"`
	Check      string  `json:"check,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"duration_ms,omitempty"`
	*Finding
	*Report
}

func (j *JSONRenderer) emit(rec jsonRecord) {
	_ = j.enc.Encode(rec) // best-effort output
}

// Begin writes the begin record.
func (j *JSONRenderer) Begin(target string, at time.Time) {
	j.emit(jsonRecord{Type: "begin", Target: target, At: at.Format(time.RFC3339)})
}

// Outcome writes the check's records.
func (j *JSONRenderer) Outcome(o *Outcome) {
	ms := durationMs(o.Duration)
	switch {
	case o.Skipped:
		j.emit(jsonRecord{Type: "skipped", Check: o.Check})
	case o.Failed():
		j.emit(jsonRecord{Type: "error", Check: o.Check, Error: o.Err.Error(), DurationMS: ms})
	default:
		for i := range o.Findings {
			j.emit(jsonRecord{Type: "finding", Check: o.Check, DurationMS: ms, Finding: &o.Findings[i]})
		}
	}
}

// End writes the summary record.
func (j *JSONRenderer) End(r *Report) {
	j.emit(jsonRecord{Type: "summary", Target: r.Target, Report: r})
}

var (
	_ Renderer = (*TextRenderer)(nil)
	_ Renderer = (*JSONRenderer)(nil)
)
