package docgen

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/steveyegge/sqlhealth/internal/doctor"
)

func renderConfigMarkdown(t *testing.T) string {
	t.Helper()
	s, err := GenerateConfigSchema()
	if err != nil {
		t.Fatalf("GenerateConfigSchema: %v", err)
	}
	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, s); err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	return buf.String()
}

func TestRenderMarkdown_Sections(t *testing.T) {
	md := renderConfigMarkdown(t)
	for _, section := range []string{"## Config", "## Server", "## Log", "## Telemetry", "## Checks"} {
		if !strings.Contains(md, section) {
			t.Errorf("missing section %q", section)
		}
	}
	if strings.Index(md, "## Config") > strings.Index(md, "## Checks") {
		t.Error("root Config section should come first")
	}
}

func TestRenderMarkdown_TableFormat(t *testing.T) {
	for _, line := range strings.Split(renderConfigMarkdown(t), "\n") {
		if !strings.HasPrefix(line, "|") {
			continue
		}
		if n := strings.Count(line, "|") - strings.Count(line, "\\|"); n != 6 {
			t.Errorf("table row has %d columns (expected 5): %s", n-1, line)
		}
	}
}

func TestRenderMarkdown_RequiredDefaultsEnums(t *testing.T) {
	md := renderConfigMarkdown(t)
	if !strings.Contains(md, "| `host` | string | **yes** | `localhost` |") {
		t.Error("host row should be required with default localhost")
	}
	if !strings.Contains(md, "Enum: `integrated`, `sql`") {
		t.Error("auth enum values not shown")
	}
	if !strings.Contains(md, "| `dial_timeout` | Duration |  | `15s` |") {
		t.Error("dial_timeout default not shown")
	}
}

func TestRenderChecksMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderChecksMarkdown(&buf, doctor.DefaultChecks()); err != nil {
		t.Fatalf("RenderChecksMarkdown: %v", err)
	}
	md := buf.String()
	mem := strings.Index(md, "## xtp-memory")
	txn := strings.Index(md, "## long-transactions")
	logw := strings.Index(md, "## log-reuse-wait")
	if mem < 0 || txn < mem || logw < txn {
		t.Errorf("check sections missing or out of order (%d, %d, %d)", mem, txn, logw)
	}
	if strings.Count(md, "```sql") != 3 {
		t.Error("want one SQL block per check")
	}
	if !strings.Contains(md, "sys.dm_os_memory_clerks") {
		t.Error("memory check query not rendered")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderChecksMarkdown_WriteError(t *testing.T) {
	if err := RenderChecksMarkdown(failingWriter{}, doctor.DefaultChecks()); err == nil {
		t.Error("expected write error")
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.md")
	if err := WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "# hello\n")
		return err
	}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "# hello\n" {
		t.Errorf("file = %q, %v", data, err)
	}

	bad := filepath.Join(dir, "bad.md")
	if err := WriteFile(bad, func(io.Writer) error { return errors.New("boom") }); err == nil {
		t.Fatal("expected render error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("failed render left files behind: %v", entries)
	}
}
