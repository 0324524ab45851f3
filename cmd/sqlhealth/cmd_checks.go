package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/steveyegge/sqlhealth/internal/doctor"
)

func newChecksCmd(stdout io.Writer) *cobra.Command {
	var showSQL bool
	cmd := &cobra.Command{
		Use:   "checks",
		Short: "List the built-in checks in run order",
		Example: `  sqlhealth checks
  sqlhealth checks --sql`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			doChecks(showSQL, stdout)
		},
	}
	cmd.Flags().BoolVar(&showSQL, "sql", false, "also print each check's query")
	return cmd
}

func doChecks(showSQL bool, stdout io.Writer) {
	checks := doctor.DefaultChecks()
	if !showSQL {
		tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		for _, c := range checks {
			fmt.Fprintf(tw, "%s\t%s\n", c.Name(), c.Title()) //nolint:errcheck // best-effort stdout
		}
		tw.Flush() //nolint:errcheck // best-effort stdout
		return
	}
	for i, c := range checks {
		if i > 0 {
			fmt.Fprintln(stdout) //nolint:errcheck // best-effort stdout
		}
		fmt.Fprintf(stdout, "%s: %s\n", c.Name(), c.Title()) //nolint:errcheck // best-effort stdout
		for _, line := range strings.Split(c.Query(), "\n") {
			fmt.Fprintf(stdout, "    %s\n", line) //nolint:errcheck // best-effort stdout
		}
	}
}
