package fs

// This is an in-memory file system for tests and for callers of the API that
// pass their files directly. Paths always use forward slashes. Files can be
// changed after creation, which bumps their modification key the way a write
// on disk would.

import (
	"path"
	"strings"
	"sync"
	"syscall"
)

type mockFile struct {
	contents string
	version  int64
}

type mockFS struct {
	mutex         sync.RWMutex
	files         map[string]mockFile
	absWorkingDir string
	nextVersion   int64
}

func MockFS(input map[string]string, absWorkingDir string) FS {
	if absWorkingDir == "" {
		absWorkingDir = "/"
	}
	fs := &mockFS{
		files:         make(map[string]mockFile, len(input)),
		absWorkingDir: absWorkingDir,
	}
	for k, v := range input {
		fs.writeLocked(fs.clean(k), v)
	}
	return fs
}

func (fs *mockFS) clean(p string) string {
	if !path.IsAbs(p) {
		p = path.Join(fs.absWorkingDir, p)
	}
	return path.Clean(p)
}

func (fs *mockFS) writeLocked(p string, contents string) {
	fs.nextVersion++
	fs.files[p] = mockFile{contents: contents, version: fs.nextVersion}
}

func (fs *mockFS) isDir(p string) bool {
	prefix := p
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	for file := range fs.files {
		if strings.HasPrefix(file, prefix) {
			return true
		}
	}
	return false
}

func (fs *mockFS) ReadFile(p string) (string, error) {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()
	if file, ok := fs.files[fs.clean(p)]; ok {
		return file.contents, nil
	}
	return "", syscall.ENOENT
}

func (fs *mockFS) WriteFile(p string, contents []byte) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.writeLocked(fs.clean(p), string(contents))
	return nil
}

func (fs *mockFS) RemoveFile(p string) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	key := fs.clean(p)
	if _, ok := fs.files[key]; !ok {
		return syscall.ENOENT
	}
	delete(fs.files, key)
	return nil
}

func (fs *mockFS) FileExists(p string) bool {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()
	key := fs.clean(p)
	_, ok := fs.files[key]
	return ok || fs.isDir(key)
}

func (fs *mockFS) IsFile(p string) (bool, error) {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()
	key := fs.clean(p)
	if _, ok := fs.files[key]; ok {
		return true, nil
	}
	if fs.isDir(key) {
		return false, nil
	}
	return false, syscall.ENOENT
}

func (fs *mockFS) ModKey(p string) (ModKey, error) {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()
	file, ok := fs.files[fs.clean(p)]
	if !ok {
		return ModKey{}, syscall.ENOENT
	}
	return ModKey{
		size:      int64(len(file.contents)),
		mtime_sec: file.version,
	}, nil
}

func (fs *mockFS) Canonical(p string) string {
	return fs.clean(p)
}

func (fs *mockFS) Abs(p string) (string, bool) {
	return fs.clean(p), true
}

func (*mockFS) IsAbs(p string) bool {
	return path.IsAbs(p)
}

func (*mockFS) Dir(p string) string {
	return path.Dir(p)
}

func (*mockFS) Base(p string) string {
	return path.Base(p)
}

func (*mockFS) Ext(p string) string {
	return path.Ext(p)
}

func (*mockFS) Join(parts ...string) string {
	return path.Clean(path.Join(parts...))
}

func (fs *mockFS) Cwd() string {
	return fs.absWorkingDir
}

func splitOnSlash(p string) (string, string) {
	if slash := strings.IndexByte(p, '/'); slash != -1 {
		return p[:slash], p[slash+1:]
	}
	return p, ""
}

func (*mockFS) Rel(base string, target string) (string, bool) {
	base = path.Clean(base)
	target = path.Clean(target)

	if base == target {
		return ".", true
	}
	if base == "/" {
		return target[1:], true
	}

	// Strip the leading slash so both sides split into the same components
	base = strings.TrimPrefix(base, "/")
	target = strings.TrimPrefix(target, "/")

	// Find the common parent directory
	for {
		bHead, bTail := splitOnSlash(base)
		tHead, tTail := splitOnSlash(target)
		if bHead == "" || bHead != tHead {
			break
		}
		base = bTail
		target = tTail
	}

	if base == "" {
		return target, true
	}

	commonParent := strings.Repeat("../", strings.Count(base, "/")+1)
	if target == "" {
		return commonParent[:len(commonParent)-1], true
	}
	return commonParent + target, true
}
