package fs

import "errors"

// This is the host the bundler runs against. Everything that touches the disk
// goes through here so the whole build can run against an in-memory file
// system in tests and in the API.
type FS interface {
	// Fails with syscall.ENOENT if the file does not exist
	ReadFile(path string) (string, error)
	WriteFile(path string, contents []byte) error
	RemoveFile(path string) error

	FileExists(path string) bool
	IsFile(path string) (bool, error)

	// Returns a key that changes whenever the file changes. It fails with
	// ErrModKeyUnusable when no reliable key can be produced, in which case the
	// caller must assume the file changed.
	ModKey(path string) (ModKey, error)

	// Returns the same key for two different spellings of the same file,
	// following symlinks where the file system has them
	Canonical(path string) string

	// This is part of the interface because the mock file system used in tests
	// always uses forward slashes while the real one follows the platform.
	Abs(path string) (string, bool)
	IsAbs(path string) bool
	Dir(path string) string
	Base(path string) string
	Ext(path string) string
	Join(parts ...string) string
	Cwd() string
	Rel(base string, target string) (string, bool)
}

// A modification key is a summary of the file's metadata. Equal keys mean
// the file was not touched in between.
type ModKey struct {
	inode      uint64
	size       int64
	mtime_sec  int64
	mtime_nsec int64
	mode       uint32
	uid        uint32
}

// File systems with coarse timestamps can modify a file twice within the same
// second without changing its key. Files modified this recently are treated as
// having no usable key.
const modKeySafetyGap = 3 // In seconds

var ErrModKeyUnusable = errors.New("The modification key is unusable")

func (key ModKey) IsZero() bool {
	return key == ModKey{}
}
