//go:build integration

package integration

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"testing"

	"github.com/steveyegge/sqlhealth/internal/config"
)

// testServer returns the server under test from SQLHEALTH_TEST_*.
func testServer(t *testing.T) config.Server {
	t.Helper()
	s := config.Default().Server
	s.Host = os.Getenv("SQLHEALTH_TEST_HOST")
	if v := os.Getenv("SQLHEALTH_TEST_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			t.Fatalf("SQLHEALTH_TEST_PORT: %v", err)
		}
		s.Port = port
	}
	if u := os.Getenv("SQLHEALTH_TEST_USER"); u != "" {
		s.Auth = config.AuthSQL
		s.User = u
		s.Password = os.Getenv("SQLHEALTH_TEST_PASSWORD")
	}
	return s
}

// writeConfig writes a sqlhealth.toml for the server under test into a
// fresh directory and returns that directory.
func writeConfig(t *testing.T) string {
	t.Helper()
	cfg := config.Default()
	cfg.Server = testServer(t)
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/sqlhealth.toml", data, 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

// sqlhealth runs the binary in dir and returns stdout, stderr and the exit
// code.
func sqlhealth(t *testing.T, dir string, args ...string) (string, string, int) {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "SQLHEALTH_CONFIG=", "NO_COLOR=1")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("running sqlhealth: %v", err)
	}
	return stdout.String(), stderr.String(), code
}
