package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/steveyegge/sqlhealth/internal/doctor"
	"github.com/steveyegge/sqlhealth/internal/logging"
)

func newProbeCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Test connectivity to the server",
		Long: `Make a single connection attempt with the configured target and
credentials. Exits 0 when the server accepts the login and 2 when it
cannot be reached. No check runs.`,
		Example: `  sqlhealth probe --host db01 --instance SQL2019`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return doProbe(cmd.Context(), opts, stdout, stderr)
		},
	}
}

func doProbe(ctx context.Context, o *options, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, src, err := loadValidConfig(o)
	if err != nil {
		return fail(stderr, "probe", err)
	}
	logs := logging.New(cfg.Log, o.verbose, stderr)
	defer logs.Close() //nolint:errcheck // best-effort log flush
	src.log(logs.Config, cfg)

	db, err := openQuerier(ctx, cfg, logs.Creds, logs.DB)
	if err != nil {
		return fail(stderr, "probe", err)
	}
	d := &doctor.Doctor{Target: cfg.Server.Target(), Log: &logs.Doctor}
	if err := d.Connect(ctx, db); err != nil {
		fmt.Fprintf(stdout, "✗ %v\n", err) //nolint:errcheck // best-effort stdout
		return errUnreachable
	}
	fmt.Fprintf(stdout, "✓ connected to %s\n", d.Target) //nolint:errcheck // best-effort stdout
	return nil
}
