package docgen

import (
	"io"
	"strings"

	"github.com/steveyegge/sqlhealth/internal/doctor"
)

// RenderChecksMarkdown writes a reference page listing checks in run
// order with the exact statement each one sends to the server.
func RenderChecksMarkdown(w io.Writer, checks []doctor.Check) error {
	m := &mdWriter{w: w}
	m.printf("# Built-in Checks\n\n")
	m.autoGenerated()
	m.printf("Checks run in the order below. Every statement is read-only and fixed at build time.\n\n")
	m.printf("| Check | Title |\n|-------|-------|\n")
	for _, c := range checks {
		m.printf("| [`%s`](#%s) | %s |\n", c.Name(), c.Name(), c.Title())
	}
	m.printf("\n")
	for _, c := range checks {
		m.printf("## %s\n\n%s\n\n```sql\n%s\n```\n\n", c.Name(), c.Title(), strings.TrimSpace(c.Query()))
	}
	return m.err
}
