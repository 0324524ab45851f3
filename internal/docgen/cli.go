package docgen

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RenderCLIMarkdown writes a CLI reference by walking a cobra command tree:
// global flags first, then one section per visible command with synopsis,
// example, local flags and subcommands.
func RenderCLIMarkdown(w io.Writer, root *cobra.Command) error {
	m := &mdWriter{w: w}
	m.printf("# CLI Reference\n\n")
	m.autoGenerated()

	if global := collectFlags(root.PersistentFlags()); len(global) > 0 {
		m.printf("## Global Flags\n\n")
		writeFlagTable(m, global)
	}
	walkCommands(m, root)
	return m.err
}

func walkCommands(m *mdWriter, cmd *cobra.Command) {
	renderCommand(m, cmd)
	for _, child := range visibleChildren(cmd) {
		walkCommands(m, child)
	}
}

func renderCommand(m *mdWriter, cmd *cobra.Command) {
	m.printf("## %s\n\n", cmd.CommandPath())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	if desc != "" {
		m.printf("%s\n\n", strings.TrimSpace(desc))
	}
	m.printf("```\n%s\n```\n\n", cmd.UseLine())
	if cmd.Example != "" {
		m.printf("**Example:**\n\n```\n%s\n```\n\n", strings.TrimSpace(cmd.Example))
	}
	if flags := collectFlags(cmd.LocalNonPersistentFlags()); len(flags) > 0 {
		writeFlagTable(m, flags)
	}
	if children := visibleChildren(cmd); len(children) > 0 {
		m.printf("| Subcommand | Description |\n|------------|-------------|\n")
		for _, c := range children {
			anchor := strings.ToLower(strings.ReplaceAll(c.CommandPath(), " ", "-"))
			m.printf("| [%s](#%s) | %s |\n", c.CommandPath(), anchor, c.Short)
		}
		m.printf("\n")
	}
}

func visibleChildren(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, c := range cmd.Commands() {
		if !c.Hidden && c.Name() != "help" && c.Name() != "completion" {
			out = append(out, c)
		}
	}
	return out
}

// flagInfo holds rendered flag metadata.
type flagInfo struct {
	Name    string
	Type    string
	Default string
	Desc    string
}

func collectFlags(fs *pflag.FlagSet) []flagInfo {
	var flags []flagInfo
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := "`--" + f.Name + "`"
		if f.Shorthand != "" {
			name = "`-" + f.Shorthand + "`, " + name
		}
		def := ""
		if !isZeroDefault(f.DefValue, f.Value.Type()) {
			def = "`" + f.DefValue + "`"
		}
		flags = append(flags, flagInfo{
			Name:    name,
			Type:    f.Value.Type(),
			Default: def,
			Desc:    strings.ReplaceAll(f.Usage, "|", "\\|"),
		})
	})
	return flags
}

// isZeroDefault reports whether val is the zero value for a pflag type.
func isZeroDefault(val, typ string) bool {
	switch typ {
	case "bool":
		return val == "false"
	case "int", "int32", "int64", "uint", "uint32", "uint64", "float32", "float64":
		return val == "0"
	case "stringSlice", "stringArray":
		return val == "[]"
	default:
		return val == ""
	}
}

func writeFlagTable(m *mdWriter, flags []flagInfo) {
	m.printf("| Flag | Type | Default | Description |\n|------|------|---------|-------------|\n")
	for _, f := range flags {
		m.printf("| %s | %s | %s | %s |\n", f.Name, f.Type, f.Default, f.Desc)
	}
	m.printf("\n")
}
