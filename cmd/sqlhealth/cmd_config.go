package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/steveyegge/sqlhealth/internal/doctor"
	"github.com/steveyegge/sqlhealth/internal/logging"
)

func newConfigCmd(opts *options, stdout, stderr io.Writer) *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as TOML",
		Long: `Print the configuration a diagnosis would use: the config file (or
defaults), then SQLHEALTH_* environment variables, then flags. The
password is redacted. Use --validate to check it without printing.`,
		Example: `  sqlhealth config
  sqlhealth config --host db01 --auth sql --user monitor
  sqlhealth config --validate`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return doConfig(opts, validate, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "validate the config and exit (0 = valid, 1 = errors)")
	return cmd
}

func doConfig(o *options, validate bool, stdout, stderr io.Writer) error {
	cfg, src, err := loadConfig(o)
	if err != nil {
		return fail(stderr, "config", err)
	}
	logs := logging.New(cfg.Log, o.verbose, stderr)
	defer logs.Close() //nolint:errcheck // best-effort log flush
	src.log(logs.Config, cfg)

	if validate {
		if err := cfg.Validate(doctor.CheckNames(doctor.DefaultChecks())); err != nil {
			return fail(stderr, "config", err)
		}
		fmt.Fprintln(stdout, "config ok") //nolint:errcheck // best-effort stdout
		return nil
	}
	red := cfg.Redacted()
	data, err := red.Marshal()
	if err != nil {
		return fail(stderr, "config", err)
	}
	stdout.Write(data) //nolint:errcheck // best-effort stdout
	return nil
}
