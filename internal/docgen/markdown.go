package docgen

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// RenderMarkdown writes a config reference from a JSON Schema: one section
// per $defs entry, root type first, each with a field table.
func RenderMarkdown(w io.Writer, s *jsonschema.Schema) error {
	m := &mdWriter{w: w}
	title := s.Title
	if title == "" {
		title = "Configuration Reference"
	}
	m.printf("# %s\n\n", title)
	if s.Description != "" {
		m.printf("%s\n\n", s.Description)
	}
	m.autoGenerated()

	root := ""
	if s.Ref != "" {
		root = refName(s.Ref)
	}
	names := make([]string, 0, len(s.Definitions))
	for name := range s.Definitions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		switch {
		case names[i] == root:
			return names[j] != root
		case names[j] == root:
			return false
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		def := s.Definitions[name]
		if def == nil || def.Properties == nil {
			continue
		}
		m.printf("## %s\n\n", name)
		if def.Description != "" {
			m.printf("%s\n\n", def.Description)
		}
		required := make(map[string]bool, len(def.Required))
		for _, r := range def.Required {
			required[r] = true
		}
		m.printf("| Field | Type | Required | Default | Description |\n")
		m.printf("|-------|------|----------|---------|-------------|\n")
		for pair := def.Properties.Oldest(); pair != nil; pair = pair.Next() {
			req := ""
			if required[pair.Key] {
				req = "**yes**"
			}
			m.printf("| `%s` | %s | %s | %s | %s |\n",
				pair.Key, schemaTypeString(pair.Value), req,
				formatDefault(pair.Value), formatDescription(pair.Value))
		}
		m.printf("\n")
	}
	return m.err
}

// schemaTypeString returns a human-readable type string for a property.
func schemaTypeString(prop *jsonschema.Schema) string {
	if prop.Ref != "" {
		return refName(prop.Ref)
	}
	switch prop.Type {
	case "array":
		if prop.Items == nil {
			return "array"
		}
		if prop.Items.Ref != "" {
			return "[]" + refName(prop.Items.Ref)
		}
		return "[]" + prop.Items.Type
	case "object":
		if v := prop.AdditionalProperties; v != nil {
			if v.Ref != "" {
				return "map[string]" + refName(v.Ref)
			}
			return "map[string]" + v.Type
		}
		return "object"
	case "":
		return "any"
	default:
		return prop.Type
	}
}

// refName extracts the type name from a $ref path like "#/$defs/Server".
func refName(ref string) string {
	return ref[strings.LastIndex(ref, "/")+1:]
}

func formatDefault(prop *jsonschema.Schema) string {
	if prop.Default != nil {
		return fmt.Sprintf("`%v`", prop.Default)
	}
	return ""
}

// formatDescription returns the description with enum values appended,
// flattened for a table cell.
func formatDescription(prop *jsonschema.Schema) string {
	desc := prop.Description
	if len(prop.Enum) > 0 {
		vals := make([]string, len(prop.Enum))
		for i, v := range prop.Enum {
			vals[i] = fmt.Sprintf("`%v`", v)
		}
		desc = strings.TrimSpace(desc + " Enum: " + strings.Join(vals, ", "))
	}
	desc = strings.ReplaceAll(desc, "\n", " ")
	return strings.ReplaceAll(desc, "|", "\\|")
}
