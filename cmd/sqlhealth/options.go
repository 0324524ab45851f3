package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/steveyegge/sqlhealth/internal/config"
	"github.com/steveyegge/sqlhealth/internal/credentials"
	"github.com/steveyegge/sqlhealth/internal/doctor"
	"github.com/steveyegge/sqlhealth/internal/fsys"
	"github.com/steveyegge/sqlhealth/internal/sqlserver"
)

// options holds the flag values shared by the root command and its
// subcommands. Zero values mean "not given" and leave the config alone.
type options struct {
	configPath string
	host       string
	port       int
	instance   string
	database   string
	auth       string
	user       string
	verbose    bool

	format  string
	skip    []string
	noColor bool
	failOn  string
}

// addConnectionFlags registers the target and logging flags as persistent
// flags on root, so every subcommand accepts them.
func (o *options) addConnectionFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "path to sqlhealth.toml (default: $SQLHEALTH_CONFIG, then ./sqlhealth.toml)")
	f.StringVar(&o.host, "host", "", "server host name or address")
	f.IntVar(&o.port, "port", 0, "TCP port (default: driver resolution)")
	f.StringVar(&o.instance, "instance", "", "named instance")
	f.StringVar(&o.database, "database", "", "initial database")
	f.StringVar(&o.auth, "auth", "", "authentication mode: integrated|sql")
	f.StringVar(&o.user, "user", "", "SQL login for --auth sql")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging and per-check timing")
}

// addOutputFlags registers the diagnosis output flags on cmd. The root
// and diagnose commands both get them, bound to the same fields.
func (o *options) addOutputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.format, "format", "text", "output format: text|json")
	f.StringSliceVar(&o.skip, "skip", nil, "check names to skip (repeatable, comma-separated)")
	f.BoolVar(&o.noColor, "no-color", false, "disable colored output")
	f.StringVar(&o.failOn, "fail-on", "none", "exit 1 when a finding reaches this severity: none|warning|actionable")
}

// apply overlays flag values on cfg.
func (o *options) apply(cfg *config.Config) {
	s := &cfg.Server
	if o.host != "" {
		s.Host = o.host
	}
	if o.port != 0 {
		s.Port = o.port
	}
	if o.instance != "" {
		s.Instance = o.instance
	}
	if o.database != "" {
		s.Database = o.database
	}
	if o.auth != "" {
		s.Auth = o.auth
	}
	if o.user != "" {
		s.User = o.user
	}
	cfg.Checks.Skip = append(cfg.Checks.Skip, o.skip...)
}

// configSource records where the effective configuration came from.
type configSource struct {
	file string   // "" when defaults applied
	env  []string // SQLHEALTH_* variables that were set
}

// log writes the resolution to the config logger at debug level.
func (src configSource) log(l zerolog.Logger, cfg *config.Config) {
	file := src.file
	if file == "" {
		file = "(defaults)"
	}
	l.Debug().Str("file", file).Strs("env", src.env).
		Str("target", cfg.Server.Target()).Str("auth", cfg.Server.Auth).
		Strs("skip", cfg.Checks.Skip).Msg("config resolved")
}

// loadConfig resolves the effective configuration: file (or defaults),
// then SQLHEALTH_* environment variables, then flags.
func loadConfig(o *options) (*config.Config, configSource, error) {
	fs := fsys.OSFS{}
	var src configSource
	path, err := config.Discover(fs, o.configPath, os.Getenv)
	if err != nil {
		return nil, src, err
	}
	src.file = path
	var cfg *config.Config
	if path == "" {
		d := config.Default()
		cfg = &d
	} else if cfg, err = config.Load(fs, path); err != nil {
		return nil, src, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, src, err
	}
	src.env = config.EnvOverrides(os.Getenv)
	o.apply(cfg)
	return cfg, src, nil
}

// loadValidConfig is loadConfig plus validation against the built-in
// check names.
func loadValidConfig(o *options) (*config.Config, configSource, error) {
	cfg, src, err := loadConfig(o)
	if err != nil {
		return nil, src, err
	}
	if err := cfg.Validate(doctor.CheckNames(doctor.DefaultChecks())); err != nil {
		return nil, src, err
	}
	return cfg, src, nil
}

// newQuerier builds the database collaborator. Tests replace it.
var newQuerier = func(dsn string, log zerolog.Logger) sqlserver.Querier {
	return sqlserver.NewClient(dsn, log)
}

// newSecretReader builds the Kubernetes secret reader on first use.
// Tests replace it.
var newSecretReader = func(kubeContext string) (credentials.SecretReader, error) {
	return credentials.NewKubeSecrets(kubeContext)
}

// openQuerier resolves the password and returns a Querier for cfg.Server.
func openQuerier(ctx context.Context, cfg *config.Config, creds, db zerolog.Logger) (sqlserver.Querier, error) {
	r := &credentials.Resolver{
		Getenv: os.Getenv,
		Secrets: func() (credentials.SecretReader, error) {
			return newSecretReader(cfg.Server.KubeContext)
		},
	}
	password, err := r.Password(ctx, cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("resolving password: %w", err)
	}
	creds.Debug().Str("auth", cfg.Server.Auth).Bool("password", password != "").Msg("credentials resolved")
	return newQuerier(sqlserver.ConnString(cfg.Server, password), db), nil
}

// fail reports err for command name on stderr and returns errExit.
func fail(stderr io.Writer, name string, err error) error {
	fmt.Fprintf(stderr, "sqlhealth %s: %v\n", name, err) //nolint:errcheck // best-effort stderr
	return errExit
}
