package fsys

import (
	"os"
	"path/filepath"
	"time"
)

// Fake is an in-memory [FS]. Populate Files and Errors before use; every
// call is appended to Calls.
type Fake struct {
	Files  map[string][]byte // path → contents
	Errors map[string]error  // path → injected error, checked first
	Calls  []string          // "ReadFile <path>" / "Stat <path>"
}

// NewFake returns a [Fake] with empty maps.
func NewFake() *Fake {
	return &Fake{
		Files:  make(map[string][]byte),
		Errors: make(map[string]error),
	}
}

// ReadFile returns a copy of the stored contents.
func (f *Fake) ReadFile(name string) ([]byte, error) {
	f.Calls = append(f.Calls, "ReadFile "+name)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	data, ok := f.Files[name]
	if !ok {
		return nil, &os.PathError{Op: "read", Path: name, Err: os.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

// Stat reports stored files as regular files.
func (f *Fake) Stat(name string) (os.FileInfo, error) {
	f.Calls = append(f.Calls, "Stat "+name)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	data, ok := f.Files[name]
	if !ok {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	return fileInfo{name: filepath.Base(name), size: int64(len(data))}, nil
}

type fileInfo struct {
	name string
	size int64
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() os.FileMode  { return 0o644 }
func (fi fileInfo) ModTime() time.Time { return time.Time{} }
func (fi fileInfo) IsDir() bool        { return false }
func (fi fileInfo) Sys() any           { return nil }

var (
	_ FS = (*Fake)(nil)
	_ FS = OSFS{}
)
