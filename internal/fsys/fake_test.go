package fsys

import (
	"errors"
	"os"
	"testing"
)

func TestFakeReadFile(t *testing.T) {
	f := NewFake()
	f.Files["/etc/sqlhealth.toml"] = []byte("[server]\n")

	data, err := f.ReadFile("/etc/sqlhealth.toml")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "[server]\n" {
		t.Errorf("ReadFile = %q", data)
	}

	// Mutating the returned slice must not touch the stored copy.
	data[0] = 'X'
	if string(f.Files["/etc/sqlhealth.toml"]) != "[server]\n" {
		t.Error("ReadFile returned an alias of the stored contents")
	}
}

func TestFakeReadFileMissing(t *testing.T) {
	f := NewFake()
	_, err := f.ReadFile("/nope")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestFakeInjectedError(t *testing.T) {
	f := NewFake()
	f.Files["/x"] = []byte("data")
	f.Errors["/x"] = errors.New("permission denied")

	if _, err := f.ReadFile("/x"); err == nil || err.Error() != "permission denied" {
		t.Errorf("ReadFile err = %v, want injected error", err)
	}
	if _, err := f.Stat("/x"); err == nil {
		t.Error("Stat should return the injected error")
	}
}

func TestFakeStat(t *testing.T) {
	f := NewFake()
	f.Files["/a/b.toml"] = []byte("hello")

	fi, err := f.Stat("/a/b.toml")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Name() != "b.toml" || fi.Size() != 5 || fi.IsDir() {
		t.Errorf("Stat = %s/%d/%v", fi.Name(), fi.Size(), fi.IsDir())
	}
	if len(f.Calls) != 1 || f.Calls[0] != "Stat /a/b.toml" {
		t.Errorf("Calls = %v", f.Calls)
	}
}
