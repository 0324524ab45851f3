package docgen

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/steveyegge/sqlhealth/internal/config"
)

const modulePath = "github.com/steveyegge/sqlhealth"

// newReflector creates a jsonschema.Reflector configured for TOML field
// names with doc comments from internal/config as descriptions.
//
// AddGoComments resolves packages relative to the working directory, so it
// runs with the module root as CWD.
func newReflector() (*jsonschema.Reflector, error) {
	root, err := ModuleRoot()
	if err != nil {
		return nil, err
	}
	orig, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	if err := os.Chdir(root); err != nil {
		return nil, fmt.Errorf("chdir to module root: %w", err)
	}
	defer func() { _ = os.Chdir(orig) }()

	r := &jsonschema.Reflector{
		FieldNameTag: "toml",
		// Only fields tagged jsonschema:"required" are required; everything
		// else has a default.
		RequiredFromJSONSchemaTags: true,
	}
	if err := r.AddGoComments(modulePath, "internal/config"); err != nil {
		return nil, fmt.Errorf("extracting Go comments: %w", err)
	}
	return r, nil
}

// GenerateConfigSchema produces a JSON Schema for sqlhealth.toml, with
// defaults taken from config.Default.
func GenerateConfigSchema() (*jsonschema.Schema, error) {
	r, err := newReflector()
	if err != nil {
		return nil, err
	}
	s := r.Reflect(&config.Config{})
	s.Title = "sqlhealth Configuration"
	s.Description = "Schema for sqlhealth.toml, the connection target and run options for a diagnosis."
	applyDefaults(s)
	return s, nil
}

// applyDefaults copies config.Default values into the Server and Log
// definitions so the reference shows them.
func applyDefaults(s *jsonschema.Schema) {
	def := config.Default()
	set := func(defName, field string, v any) {
		d, ok := s.Definitions[defName]
		if !ok || d.Properties == nil {
			return
		}
		if p, ok := d.Properties.Get(field); ok {
			p.Default = v
		}
	}
	set("Server", "host", def.Server.Host)
	set("Server", "database", def.Server.Database)
	set("Server", "auth", def.Server.Auth)
	set("Server", "trust_server_certificate", def.Server.TrustServerCertificate)
	set("Server", "app_name", def.Server.AppName)
	set("Server", "dial_timeout", def.Server.DialTimeout.String())
	set("Server", "query_timeout", def.Server.QueryTimeout.String())
	set("Log", "level", def.Log.Level)
	set("Log", "max_size_mb", def.Log.MaxSizeMB)
	set("Log", "max_backups", def.Log.MaxBackups)
	set("Log", "max_age_days", def.Log.MaxAgeDays)
}

// WriteSchema writes s as indented JSON.
func WriteSchema(w io.Writer, s *jsonschema.Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
