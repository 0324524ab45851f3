package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/sqlhealth/internal/docgen"
)

// newGenDocCmd creates the hidden "sqlhealth gen-doc" subcommand. It writes
// docs/reference/cli.md by walking the real command tree. Must be called
// from the repository root (go.mod must exist).
func newGenDocCmd(stdout, stderr io.Writer, root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:    "gen-doc",
		Short:  "Generate CLI reference documentation",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat("go.mod"); err != nil {
				return fail(stderr, "gen-doc", fmt.Errorf("must run from repository root (go.mod not found)"))
			}
			if err := os.MkdirAll("docs/reference", 0o755); err != nil {
				return fail(stderr, "gen-doc", err)
			}
			const out = "docs/reference/cli.md"
			if err := docgen.WriteFile(out, func(w io.Writer) error {
				return docgen.RenderCLIMarkdown(w, root)
			}); err != nil {
				return fail(stderr, "gen-doc", err)
			}
			fmt.Fprintf(stdout, "Generated: %s\n", out) //nolint:errcheck // best-effort stdout
			return nil
		},
	}
}
