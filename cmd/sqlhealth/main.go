// sqlhealth diagnoses the health of a SQL Server instance: it probes
// connectivity, then runs a fixed set of read-only checks and reports
// graded findings.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errExit is a sentinel error returned by cobra RunE functions to signal
// exit code 1. The command has already written its own error to stderr.
var errExit = errors.New("exit")

// errUnreachable signals exit code 2: the server could not be reached and
// no check ran. The command has already reported the cause.
var errUnreachable = errors.New("unreachable")

// run executes the sqlhealth CLI with the given args, writing output to
// stdout and errors to stderr. Returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUnreachable):
		return 2
	case errors.Is(err, errExit):
		return 1
	default:
		// Flag and argument errors from cobra itself.
		fmt.Fprintf(stderr, "sqlhealth: %v\n", err) //nolint:errcheck // best-effort stderr
		return 1
	}
}

// newRootCmd creates the root cobra command with all subcommands. Without
// a subcommand the root runs a full diagnosis.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "sqlhealth",
		Short: "SQL Server health diagnosis",
		Long: `Probe a SQL Server instance and run read-only health checks:
in-memory OLTP memory use, long-running transactions, and transaction log
reuse waits. Running sqlhealth with no subcommand is the same as
"sqlhealth diagnose".`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				fmt.Fprintf(stderr, "sqlhealth: unknown command %q\n", args[0]) //nolint:errcheck // best-effort stderr
				return errExit
			}
			return doDiagnose(cmd.Context(), opts, stdout, stderr)
		},
	}
	opts.addConnectionFlags(root)
	opts.addOutputFlags(root)
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(
		newDiagnoseCmd(opts, stdout, stderr),
		newProbeCmd(opts, stdout, stderr),
		newChecksCmd(stdout),
		newConfigCmd(opts, stdout, stderr),
		newVersionCmd(stdout),
	)
	root.AddCommand(newGenDocCmd(stdout, stderr, root))
	return root
}
