// Package config handles loading and parsing sqlhealth.toml, the connection
// target and run options for a diagnosis.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/invopop/jsonschema"
	"github.com/steveyegge/sqlhealth/internal/fsys"
)

// DefaultFile is the config file looked up in the working directory when
// neither --config nor SQLHEALTH_CONFIG is given.
const DefaultFile = "sqlhealth.toml"

// Authentication modes.
const (
	AuthIntegrated = "integrated"
	AuthSQL        = "sql"
)

// Config is the top-level sqlhealth configuration.
type Config struct {
	Server    Server    `toml:"server"`
	Checks    Checks    `toml:"checks,omitempty"`
	Log       Log       `toml:"log,omitempty"`
	Telemetry Telemetry `toml:"telemetry,omitempty"`
}

// Server describes the SQL Server instance to diagnose and how to log in.
type Server struct {
	// Host is the server name or address.
	Host string `toml:"host" jsonschema:"required"`
	// Port is the TCP port. Zero lets the driver resolve it (via the
	// browser service when Instance is set).
	Port int `toml:"port,omitempty"`
	// Instance is the named instance, if any.
	Instance string `toml:"instance,omitempty"`
	// Database is the initial catalog. Defaults to master.
	Database string `toml:"database,omitempty"`
	// Auth is "integrated" (SSPI on Windows, Kerberos elsewhere) or "sql"
	// (login + password).
	Auth string `toml:"auth,omitempty" jsonschema:"enum=integrated,enum=sql"`
	// User is the SQL login used with auth = "sql".
	User string `toml:"user,omitempty"`
	// Password is the literal SQL login password.
	Password string `toml:"password,omitempty"`
	// PasswordEnv names an environment variable holding the password.
	PasswordEnv string `toml:"password_env,omitempty"`
	// PasswordSecret is a Kubernetes secret reference, "namespace/name/key".
	PasswordSecret string `toml:"password_secret,omitempty"`
	// KubeContext selects the kubeconfig context for PasswordSecret when not
	// running in a cluster. Empty uses the current context.
	KubeContext string `toml:"kube_context,omitempty"`
	// TrustServerCertificate skips server certificate validation.
	TrustServerCertificate bool `toml:"trust_server_certificate"`
	// Encrypt is passed to the driver unchanged ("true", "false", "disable", "strict").
	Encrypt string `toml:"encrypt,omitempty"`
	// AppName is reported to the server as the client program name.
	AppName string `toml:"app_name,omitempty"`
	// DialTimeout bounds connection establishment.
	DialTimeout Duration `toml:"dial_timeout,omitempty"`
	// QueryTimeout bounds each check's query. Zero means no limit.
	QueryTimeout Duration `toml:"query_timeout,omitempty"`
	// Krb5 locates Kerberos credentials for auth = "integrated" on hosts
	// other than Windows.
	Krb5 Krb5 `toml:"krb5,omitempty"`
}

// Krb5 locates Kerberos credentials for integrated authentication outside
// Windows. Empty fields fall back to KRB5_CONFIG, KRB5CCNAME and the
// krb5.conf defaults.
type Krb5 struct {
	// ConfigFile is the krb5.conf path. Defaults to /etc/krb5.conf.
	ConfigFile string `toml:"config_file,omitempty"`
	// CredCacheFile is a credential cache populated by kinit.
	CredCacheFile string `toml:"credcache_file,omitempty"`
	// KeytabFile logs in as server.user from a keytab instead of a cache.
	KeytabFile string `toml:"keytab_file,omitempty"`
	// Realm is the Kerberos realm. Defaults to default_realm in krb5.conf.
	Realm string `toml:"realm,omitempty"`
}

// Checks holds per-check run options.
type Checks struct {
	// Skip lists check names that are not executed.
	Skip []string `toml:"skip,omitempty"`
}

// Log configures the operator log.
type Log struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `toml:"level,omitempty"`
	// File receives the log with size-based rotation. Empty logs to stderr.
	File       string `toml:"file,omitempty"`
	MaxSizeMB  int    `toml:"max_size_mb,omitempty"`
	MaxBackups int    `toml:"max_backups,omitempty"`
	MaxAgeDays int    `toml:"max_age_days,omitempty"`
	Compress   bool   `toml:"compress,omitempty"`
}

// Telemetry holds OTLP/HTTP endpoints. Empty disables export.
type Telemetry struct {
	MetricsURL string `toml:"metrics_url,omitempty"`
	LogsURL    string `toml:"logs_url,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("15s").
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// JSONSchema describes Duration as a string for generated schemas.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: `Go duration string, e.g. "15s" or "2m".`,
		Examples:    []any{"15s"},
	}
}

// Default returns the configuration used when no file is present. It
// mirrors the long-standing defaults: master database, integrated
// authentication, trusted server certificate.
func Default() Config {
	return Config{
		Server: Server{
			Host:                   "localhost",
			Database:               "master",
			Auth:                   AuthIntegrated,
			TrustServerCertificate: true,
			AppName:                "sqlhealth",
			DialTimeout:            Duration{15 * time.Second},
			QueryTimeout:           Duration{30 * time.Second},
		},
		Log: Log{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Marshal encodes a Config to TOML bytes.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return buf.Bytes(), nil
}

// Redacted returns a copy safe to print: the password is masked.
func (c Config) Redacted() Config {
	if c.Server.Password != "" {
		c.Server.Password = "********"
	}
	c.Checks.Skip = slices.Clone(c.Checks.Skip)
	return c
}

// Load reads and parses the config file at path on top of [Default].
func Load(fs fsys.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML data on top of [Default]. Keys absent from data keep
// their default values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parsing config: unknown keys: %s", strings.Join(keys, ", "))
	}
	return &cfg, nil
}

// Discover returns the config file path to load, or "" when defaults apply.
// An explicit path (flag, then SQLHEALTH_CONFIG) must exist; the working
// directory's sqlhealth.toml is used only when present.
func Discover(fs fsys.FS, flagPath string, getenv func(string) string) (string, error) {
	explicit := flagPath
	if explicit == "" {
		explicit = getenv("SQLHEALTH_CONFIG")
	}
	if explicit != "" {
		if _, err := fs.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %q: %w", explicit, err)
		}
		return explicit, nil
	}
	if _, err := fs.Stat(DefaultFile); err == nil {
		return DefaultFile, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("config file %q: %w", DefaultFile, err)
	}
	return "", nil
}

// EnvVars lists the SQLHEALTH_* variables read by [Config.ApplyEnv].
var EnvVars = []string{
	"SQLHEALTH_HOST",
	"SQLHEALTH_PORT",
	"SQLHEALTH_DATABASE",
	"SQLHEALTH_AUTH",
	"SQLHEALTH_USER",
	"SQLHEALTH_PASSWORD",
	"SQLHEALTH_OTEL_METRICS_URL",
	"SQLHEALTH_OTEL_LOGS_URL",
}

// EnvOverrides returns the names from [EnvVars] that are set, in order.
func EnvOverrides(getenv func(string) string) []string {
	var set []string
	for _, k := range EnvVars {
		if getenv(k) != "" {
			set = append(set, k)
		}
	}
	return set
}

// ApplyEnv overrides fields from SQLHEALTH_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("SQLHEALTH_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := getenv("SQLHEALTH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SQLHEALTH_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("SQLHEALTH_DATABASE"); v != "" {
		c.Server.Database = v
	}
	if v := getenv("SQLHEALTH_AUTH"); v != "" {
		c.Server.Auth = v
	}
	if v := getenv("SQLHEALTH_USER"); v != "" {
		c.Server.User = v
	}
	if v := getenv("SQLHEALTH_PASSWORD"); v != "" {
		c.Server.Password = v
	}
	if v := getenv("SQLHEALTH_OTEL_METRICS_URL"); v != "" {
		c.Telemetry.MetricsURL = v
	}
	if v := getenv("SQLHEALTH_OTEL_LOGS_URL"); v != "" {
		c.Telemetry.LogsURL = v
	}
	return nil
}

// Validate checks the config for values the diagnosis cannot run with.
// known lists the registered check names accepted in checks.skip.
func (c *Config) Validate(known []string) error {
	s := c.Server
	if strings.TrimSpace(s.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", s.Port)
	}
	switch s.Auth {
	case AuthIntegrated:
		if s.Krb5.KeytabFile != "" && s.User == "" {
			return fmt.Errorf("server.user is required with server.krb5.keytab_file")
		}
	case AuthSQL:
		if s.User == "" {
			return fmt.Errorf("server.user is required with auth = %q", AuthSQL)
		}
	default:
		return fmt.Errorf("server.auth %q: want %q or %q", s.Auth, AuthIntegrated, AuthSQL)
	}
	if s.DialTimeout.Duration < 0 || s.QueryTimeout.Duration < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	for _, name := range c.Checks.Skip {
		if !slices.Contains(known, name) {
			return fmt.Errorf("checks.skip: unknown check %q (known: %s)", name, strings.Join(known, ", "))
		}
	}
	return nil
}

// Target returns a short display form of the server target, e.g.
// "db01\SQL2019:1433/master".
func (s Server) Target() string {
	var b strings.Builder
	b.WriteString(s.Host)
	if s.Instance != "" {
		b.WriteString(`\`)
		b.WriteString(s.Instance)
	}
	if s.Port != 0 {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(s.Port))
	}
	if s.Database != "" {
		b.WriteString("/")
		b.WriteString(s.Database)
	}
	return b.String()
}
