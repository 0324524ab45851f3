// Command genschema generates the JSON Schema and markdown reference docs
// for sqlhealth. Run from the repository root:
//
//	go run ./cmd/genschema
//
// Output:
//
//	docs/schema/sqlhealth-schema.json
//	docs/reference/config.md
//	docs/reference/checks.md
//	docs/reference/cli.md
package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/steveyegge/sqlhealth/internal/docgen"
	"github.com/steveyegge/sqlhealth/internal/doctor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "genschema: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if _, err := os.Stat("go.mod"); err != nil {
		return fmt.Errorf("must run from repository root (go.mod not found)")
	}
	for _, dir := range []string{"docs/schema", "docs/reference"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	schema, err := docgen.GenerateConfigSchema()
	if err != nil {
		return fmt.Errorf("generating config schema: %w", err)
	}
	if err := docgen.WriteFile("docs/schema/sqlhealth-schema.json", func(w io.Writer) error {
		return docgen.WriteSchema(w, schema)
	}); err != nil {
		return err
	}
	if err := docgen.WriteFile("docs/reference/config.md", func(w io.Writer) error {
		return docgen.RenderMarkdown(w, schema)
	}); err != nil {
		return err
	}
	if err := docgen.WriteFile("docs/reference/checks.md", func(w io.Writer) error {
		return docgen.RenderChecksMarkdown(w, doctor.DefaultChecks())
	}); err != nil {
		return err
	}

	// The CLI reference needs the real command tree, which lives in the
	// sqlhealth main package.
	genDoc := exec.Command("go", "run", "./cmd/sqlhealth", "gen-doc")
	genDoc.Stdout = os.Stdout
	genDoc.Stderr = os.Stderr
	if err := genDoc.Run(); err != nil {
		return fmt.Errorf("generating CLI docs: %w", err)
	}

	fmt.Println("Generated:")
	for _, f := range []string{
		"docs/schema/sqlhealth-schema.json",
		"docs/reference/config.md",
		"docs/reference/checks.md",
		"docs/reference/cli.md",
	} {
		fmt.Printf("  %s\n", f)
	}
	return nil
}
