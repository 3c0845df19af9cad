package resolver

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paeckchen/paeckchen/internal/config"
	"github.com/paeckchen/paeckchen/internal/fs"
	"github.com/paeckchen/paeckchen/internal/graph"
	"github.com/paeckchen/paeckchen/internal/logger"
)

type ResolutionError struct {
	Specifier string
	From      graph.ModulePath
}

func (e *ResolutionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("Could not resolve %q", e.Specifier)
	}
	return fmt.Sprintf("Could not resolve %q from %q", e.Specifier, e.From)
}

type Resolver struct {
	fs      fs.FS
	options *config.Options
	tracer  *logger.Tracer
}

func NewResolver(fs fs.FS, options *config.Options, tracer *logger.Tracer) *Resolver {
	return &Resolver{
		fs:      fs,
		options: options,
		tracer:  tracer.Section("resolve"),
	}
}

// Turns a "require()" argument into the path of the module it refers to. On
// failure the returned path is still usable as a key: it is where the file
// was expected for relative specifiers and the specifier itself otherwise.
func (r *Resolver) Resolve(specifier string, from graph.ModulePath) (graph.ModulePath, error) {
	r.tracer.Trace(fmt.Sprintf("Resolving import %q from %q", specifier, from))

	if alias, ok := r.options.Alias[specifier]; ok {
		r.tracer.Trace(fmt.Sprintf("Matched with alias from %q to %q", specifier, alias))
		specifier = alias

		// A relative alias is relative to the project, not to the module that
		// happens to use it
		if isExplicitlyRelative(specifier) {
			specifier = r.fs.Join(r.fs.Cwd(), specifier)
		}
	}

	if _, ok := r.options.Externals[specifier]; ok {
		r.tracer.Trace(fmt.Sprintf("The path %q was marked as external by the user", specifier))
		return graph.ModulePath(specifier), nil
	}

	sourceDir := r.fs.Cwd()
	if from != "" && !from.IsVirtual() {
		sourceDir = r.fs.Dir(string(from))
	}

	if IsPackagePath(specifier) {
		if absolute, ok := r.loadNodeModules(specifier, sourceDir); ok {
			return graph.ModulePath(r.fs.Canonical(absolute)), nil
		}
		return graph.ModulePath(specifier), &ResolutionError{Specifier: specifier, From: from}
	}

	candidate := specifier
	if !r.fs.IsAbs(candidate) {
		candidate = r.fs.Join(sourceDir, candidate)
	} else {
		candidate = r.fs.Join(candidate)
	}

	if absolute, ok := r.loadAsFileOrDirectory(candidate); ok {
		return graph.ModulePath(r.fs.Canonical(absolute)), nil
	}
	return graph.ModulePath(r.fs.Canonical(candidate)), &ResolutionError{Specifier: specifier, From: from}
}

// The entry point is given relative to the working directory and is never
// looked up in "node_modules"
func (r *Resolver) ResolveEntry(entry string) (graph.ModulePath, error) {
	candidate := entry
	if !r.fs.IsAbs(candidate) {
		candidate = r.fs.Join(r.fs.Cwd(), candidate)
	}
	if absolute, ok := r.loadAsFileOrDirectory(candidate); ok {
		return graph.ModulePath(r.fs.Canonical(absolute)), nil
	}
	return graph.ModulePath(r.fs.Canonical(candidate)), &ResolutionError{Specifier: entry}
}

func (r *Resolver) loadAsFileOrDirectory(path string) (string, bool) {
	if absolute, ok := r.loadAsFile(path); ok {
		return absolute, true
	}
	return r.loadAsDirectory(path)
}

// Given "./x", tries "./x" itself and then "./x" with each extension in the
// configured order, so the default order checks "./x.js" before "./x.json"
func (r *Resolver) loadAsFile(path string) (string, bool) {
	r.tracer.Trace(fmt.Sprintf("Attempting to load %q as a file", path))

	if r.isFile(path) {
		return path, true
	}
	for _, ext := range r.options.ExtensionOrder {
		if withExt := path + ext; r.isFile(withExt) {
			return withExt, true
		}
	}
	return "", false
}

func (r *Resolver) loadAsDirectory(path string) (string, bool) {
	if isFile, err := r.fs.IsFile(path); err != nil || isFile {
		return "", false
	}
	r.tracer.Trace(fmt.Sprintf("Attempting to load %q as a directory", path))

	// Try using the main field from "package.json"
	if main, ok := r.parseMainField(path); ok {
		mainPath := r.fs.Join(path, main)
		r.tracer.Trace(fmt.Sprintf("Found main field %q with path %q", main, mainPath))
		if absolute, ok := r.loadAsFile(mainPath); ok {
			return absolute, true
		}
		if absolute, ok := r.loadAsIndex(mainPath); ok {
			return absolute, true
		}
	}

	return r.loadAsIndex(path)
}

func (r *Resolver) loadAsIndex(dir string) (string, bool) {
	for _, ext := range r.options.ExtensionOrder {
		if index := r.fs.Join(dir, "index"+ext); r.isFile(index) {
			r.tracer.Trace(fmt.Sprintf("Found file %q", index))
			return index, true
		}
	}
	return "", false
}

// Walks up from the requiring module's directory and checks every
// "node_modules" folder along the way
func (r *Resolver) loadNodeModules(specifier string, dir string) (string, bool) {
	r.tracer.Trace(fmt.Sprintf("Searching for %q in \"node_modules\" directories starting from %q", specifier, dir))

	for {
		// Skip "node_modules/node_modules"
		if r.fs.Base(dir) != "node_modules" {
			if absolute, ok := r.loadAsFileOrDirectory(r.fs.Join(dir, "node_modules", specifier)); ok {
				return absolute, true
			}
		}

		parent := r.fs.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func (r *Resolver) isFile(path string) bool {
	isFile, err := r.fs.IsFile(path)
	return err == nil && isFile
}

// Paths are shown relative to the working directory when that's shorter
func (r *Resolver) PrettyPath(path graph.ModulePath) string {
	if path.IsVirtual() || !r.fs.IsAbs(string(path)) {
		return string(path)
	}
	if rel, ok := r.fs.Rel(r.fs.Cwd(), string(path)); ok && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return string(path)
}

func IsPackagePath(path string) bool {
	return !strings.HasPrefix(path, "/") && !filepath.IsAbs(path) && !isExplicitlyRelative(path)
}

func isExplicitlyRelative(path string) bool {
	return path == "." || path == ".." || strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../")
}
