package fs

import (
	"os"
	"path/filepath"
	"syscall"
)

type realFS struct {
	cwd string
}

type RealFSOptions struct {
	AbsWorkingDir string
}

func RealFS(options RealFSOptions) (FS, error) {
	cwd := options.AbsWorkingDir
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return nil, err
		}
	}

	// Symlinks in module paths are resolved so a file reached through two links
	// is still one module. The working directory is resolved the same way so
	// that relative paths in diagnostics come out right.
	if resolved, err := filepath.EvalSymlinks(cwd); err == nil {
		cwd = resolved
	}

	return &realFS{cwd: cwd}, nil
}

// Strip the *os.PathError wrapper so callers can compare against
// syscall.ENOENT directly
func unwrapPathError(err error) error {
	if pathErr, ok := err.(*os.PathError); ok {
		err = pathErr.Unwrap()
	}
	if err == syscall.ENOTDIR {
		return syscall.ENOENT
	}
	return err
}

func (fs *realFS) ReadFile(path string) (string, error) {
	buffer, err := os.ReadFile(path)
	return string(buffer), unwrapPathError(err)
}

func (fs *realFS) WriteFile(path string, contents []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, contents, 0644)
}

func (fs *realFS) RemoveFile(path string) error {
	return unwrapPathError(os.Remove(path))
}

func (fs *realFS) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (fs *realFS) IsFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, unwrapPathError(err)
	}
	return info.Mode().IsRegular(), nil
}

func (fs *realFS) ModKey(path string) (ModKey, error) {
	return modKey(path)
}

func (fs *realFS) Canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	// The file may not exist (yet). Canonicalize the directory instead so the
	// key still matches once it's created.
	dir := filepath.Dir(path)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return filepath.Join(resolved, filepath.Base(path))
	}
	return filepath.Clean(path)
}

func (fs *realFS) Abs(p string) (string, bool) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(fs.cwd, p)
	}
	return filepath.Clean(p), true
}

func (fs *realFS) IsAbs(p string) bool {
	return filepath.IsAbs(p)
}

func (fs *realFS) Dir(p string) string {
	return filepath.Dir(p)
}

func (fs *realFS) Base(p string) string {
	return filepath.Base(p)
}

func (fs *realFS) Ext(p string) string {
	return filepath.Ext(p)
}

func (fs *realFS) Join(parts ...string) string {
	return filepath.Clean(filepath.Join(parts...))
}

func (fs *realFS) Cwd() string {
	return fs.cwd
}

func (fs *realFS) Rel(base string, target string) (string, bool) {
	if rel, err := filepath.Rel(base, target); err == nil {
		return rel, true
	}
	return "", false
}
