// Package fsys defines the small slice of filesystem access that config
// loading needs, so tests can substitute [Fake] for the real disk.
package fsys

import "os"

// FS is the read-only filesystem seam used by config discovery and loading.
type FS interface {
	// ReadFile returns the contents of the named file.
	ReadFile(name string) ([]byte, error)

	// Stat returns file info for the named file.
	Stat(name string) (os.FileInfo, error)
}

// OSFS implements [FS] on top of the os package.
type OSFS struct{}

// ReadFile delegates to [os.ReadFile].
func (OSFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Stat delegates to [os.Stat].
func (OSFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}
