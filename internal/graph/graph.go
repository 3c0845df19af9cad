package graph

// The registry owns every module the build has ever referenced. A module gets
// its index the first time anything refers to it, which may be long before its
// file is read. That's what lets two modules require each other: each one can
// be rewritten to point at the other's slot before the other is wrapped.
//
// Records are never deleted. A file that disappears keeps its record and its
// index, and is marked as removed so the bundle can still refer to it.

import (
	"strings"

	"github.com/paeckchen/paeckchen/internal/fs"
	"github.com/paeckchen/paeckchen/internal/js_ast"
)

// Either an absolute canonical file path, a bare specifier for an external,
// or a "paeckchen:" name for a generated module.
type ModulePath string

const VirtualPrefix = "paeckchen:"

func (p ModulePath) IsVirtual() bool {
	return strings.HasPrefix(string(p), VirtualPrefix)
}

type Module struct {
	Index uint32
	Name  ModulePath

	// A nil body means the module needs to be (re)processed
	Body *js_ast.AST

	Removed bool
	ModKey  fs.ModKey

	// The paths this module required the last time it was rewritten, in the
	// order the calls appear
	Dependencies []ModulePath

	// Set when at least one "require()" call in this module could not be
	// resolved. A new file showing up may fix that.
	HasUnresolved bool

	// The body that was cleared by the last invalidation. It's reused if the
	// file turns out to be unchanged.
	lastBody   *js_ast.AST
	lastModKey fs.ModKey
}

type Registry struct {
	modules []*Module
	byPath  map[ModulePath]uint32
}

func NewRegistry() *Registry {
	return &Registry{byPath: make(map[ModulePath]uint32)}
}

// Returns the existing index or assigns the next one. Calling this again with
// the same path always returns the same index.
func (r *Registry) IndexOf(path ModulePath) uint32 {
	if index, ok := r.byPath[path]; ok {
		return index
	}
	index := uint32(len(r.modules))
	r.modules = append(r.modules, &Module{Index: index, Name: path})
	r.byPath[path] = index
	return index
}

func (r *Registry) Lookup(path ModulePath) (*Module, bool) {
	if index, ok := r.byPath[path]; ok {
		return r.modules[index], true
	}
	return nil, false
}

func (r *Registry) ModuleAt(index uint32) *Module {
	return r.modules[index]
}

func (r *Registry) Len() int {
	return len(r.modules)
}

// Clears the body so the module gets processed again. Does nothing for a path
// that was never referenced.
func (r *Registry) Invalidate(path ModulePath, removed bool) bool {
	module, ok := r.Lookup(path)
	if !ok {
		return false
	}
	if module.Body != nil {
		module.lastBody = module.Body
		module.lastModKey = module.ModKey
	}
	module.Body = nil
	module.Removed = removed
	return true
}

// Invalidates every module with a "require()" that didn't resolve and returns
// their paths. The previous bodies are dropped since they're known to be
// wrong even if the files themselves didn't change.
func (r *Registry) InvalidateUnresolved() []ModulePath {
	var paths []ModulePath
	for _, module := range r.modules {
		if module.HasUnresolved && !module.Removed {
			module.Body = nil
			module.lastBody = nil
			module.lastModKey = fs.ModKey{}
			paths = append(paths, module.Name)
		}
	}
	return paths
}

// Stores the finished wrapper. This is what fills the module's slot in the
// table.
func (r *Registry) SetWrapped(path ModulePath, wrapped *js_ast.AST, modKey fs.ModKey) {
	module := r.modules[r.IndexOf(path)]
	module.Body = wrapped
	module.ModKey = modKey
	module.lastBody = nil
	module.lastModKey = fs.ModKey{}
}

func (r *Registry) SetDependencies(path ModulePath, deps []ModulePath, hasUnresolved bool) {
	module := r.modules[r.IndexOf(path)]
	module.Dependencies = deps
	module.HasUnresolved = hasUnresolved
}

func (r *Registry) NeedsProcessing(path ModulePath) bool {
	module, ok := r.Lookup(path)
	return !ok || module.Body == nil
}

// Reports whether ReuseIfUnchanged would succeed without changing anything.
// Safe to call from several goroutines as long as nothing writes.
func (r *Registry) Unchanged(path ModulePath, modKey fs.ModKey) bool {
	module, ok := r.Lookup(path)
	return ok && !module.Removed && module.lastBody != nil && !modKey.IsZero() && module.lastModKey == modKey
}

// Puts the body cleared by the last invalidation back if the file still has
// the same modification key. A zero key never matches since it means the key
// could not be determined.
func (r *Registry) ReuseIfUnchanged(path ModulePath, modKey fs.ModKey) bool {
	if !r.Unchanged(path, modKey) {
		return false
	}
	module := r.modules[r.byPath[path]]
	module.Body = module.lastBody
	module.ModKey = modKey
	module.lastBody = nil
	module.lastModKey = fs.ModKey{}
	return true
}

// The module table. Slot i holds module i's wrapper or nil if it hasn't been
// wrapped yet.
func (r *Registry) Table() []*js_ast.AST {
	table := make([]*js_ast.AST, len(r.modules))
	for i, module := range r.modules {
		table[i] = module.Body
	}
	return table
}

func (r *Registry) Modules() []*Module {
	return append([]*Module{}, r.modules...)
}
