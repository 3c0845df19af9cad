package bundler

// A build starts at the entry point and works through the module graph one
// batch at a time. Each batch is loaded concurrently: files are read and
// parsed on their own goroutines, which only ever read the registry. The
// batch is then rewritten and committed in queue order on the calling
// goroutine, which is the only place the registry and the worklist change.
// Because indices are handed out in that order, the same graph always gets
// the same indices no matter how the loads interleave.

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/paeckchen/paeckchen/internal/config"
	"github.com/paeckchen/paeckchen/internal/fs"
	"github.com/paeckchen/paeckchen/internal/graph"
	"github.com/paeckchen/paeckchen/internal/helpers"
	"github.com/paeckchen/paeckchen/internal/js_ast"
	"github.com/paeckchen/paeckchen/internal/js_parser"
	"github.com/paeckchen/paeckchen/internal/logger"
	"github.com/paeckchen/paeckchen/internal/resolver"
	"github.com/paeckchen/paeckchen/internal/runtime"
)

// The part of a file watcher the bundler needs. Every file the build reads is
// registered, along with the files that would satisfy a missing module.
type FileWatcher interface {
	WatchFile(path string) error
}

type Bundler struct {
	fs       fs.FS
	options  *config.Options
	resolver *resolver.Resolver
	tracer   *logger.Tracer
	watcher  FileWatcher
	passes   []RewritePass
	state    *State
}

type Result struct {
	BuildID string
	JS      []byte

	// The number of modules in the table
	Modules int

	// How many modules this build rewrote and how many it took unchanged
	// from an earlier build
	Processed int
	Reused    int
}

// The options must already have their defaults applied. The watcher may be
// nil when not in watch mode.
func NewBundler(fs fs.FS, options *config.Options, tracer *logger.Tracer, watcher FileWatcher) *Bundler {
	return &Bundler{
		fs:       fs,
		options:  options,
		resolver: resolver.NewResolver(fs, options, tracer),
		tracer:   tracer.Section("bundle"),
		watcher:  watcher,
		passes:   DefaultPasses(),
		state:    NewState(),
	}
}

func (b *Bundler) State() *State {
	return b.state
}

func (b *Bundler) Resolver() *resolver.Resolver {
	return b.resolver
}

// Marks a file as changed so the next build processes it again. Returns false
// if no module refers to the file. A file like that may be one that a
// "require()" couldn't find before, so every module with an unresolved
// "require()" is queued instead.
func (b *Bundler) Invalidate(file string, removed bool) bool {
	path := graph.ModulePath(file)
	if b.fs.IsAbs(file) {
		path = graph.ModulePath(b.fs.Canonical(file))
	}

	if b.state.Registry.Invalidate(path, removed) {
		b.tracer.Trace("invalidate", "path", b.resolver.PrettyPath(path), "removed", removed)
		b.state.Worklist.Enqueue(path)
		return true
	}

	if !removed {
		for _, dependent := range b.state.Registry.InvalidateUnresolved() {
			b.tracer.Trace("invalidate", "path", b.resolver.PrettyPath(dependent), "reason", "unresolved")
			b.state.Worklist.Enqueue(dependent)
		}
	}
	return false
}

type cycle struct {
	id        string
	log       logger.Log
	tracer    *logger.Tracer
	visits    map[graph.ModulePath]int
	processed int
	reused    int
}

// Brings the module table up to date and prints the bundle. Only modules that
// were queued since the last build are processed. The timer may be nil.
func (b *Bundler) Build(ctx context.Context, log logger.Log, timer *helpers.Timer) (Result, error) {
	c := &cycle{
		id:     uuid.NewString(),
		log:    log,
		visits: make(map[graph.ModulePath]int),
	}
	c.tracer = b.tracer.With("build", c.id)
	c.tracer.Info("bundle started", "queued", b.state.Worklist.Len())
	result := Result{BuildID: c.id}

	timer.Begin("Scan phase")
	err := b.scan(ctx, c)
	timer.End("Scan phase")
	if err != nil {
		return result, b.fail(c, err)
	}

	timer.Begin("Link phase")
	js, err := b.link()
	timer.End("Link phase")
	if err != nil {
		return result, b.fail(c, err)
	}

	result.JS = js
	result.Modules = b.state.Registry.Len()
	result.Processed = c.processed
	result.Reused = c.reused
	c.tracer.Info("bundle finished", "modules", result.Modules, "processed", c.processed, "reused", c.reused)
	return result, nil
}

func (b *Bundler) fail(c *cycle, err error) error {
	var graphErr *GraphError
	if errors.As(err, &graphErr) {
		c.log.AddError(nil, logger.Loc{}, graphErr.Reason)
	}
	c.tracer.Info("bundle failed", "error", err)
	return err
}

func (b *Bundler) scan(ctx context.Context, c *cycle) error {
	if err := b.seedEntryPoint(c); err != nil {
		return err
	}
	if err := b.drain(ctx, c); err != nil {
		return err
	}

	// Globals can only be injected once every module has been scanned for
	// them, and the polyfills themselves need another pass
	if added := b.state.injectGlobals(); added > 0 {
		c.tracer.Trace("globals injected", "count", added)
	}
	return b.drain(ctx, c)
}

// The entry point is the first module ever registered, which gives it index 0
func (b *Bundler) seedEntryPoint(c *cycle) error {
	if b.state.Registry.Len() > 0 {
		return nil
	}
	if b.options.EntryPoint == "" {
		return &GraphError{Reason: "Missing entry point"}
	}
	entry, err := b.resolver.ResolveEntry(b.options.EntryPoint)
	if err != nil {
		return &GraphError{Reason: fmt.Sprintf("Could not resolve entry point %q", b.options.EntryPoint)}
	}
	b.state.Registry.IndexOf(entry)
	b.state.Worklist.Enqueue(entry)
	c.tracer.Trace("enqueue", "path", b.resolver.PrettyPath(entry), "index", 0)
	return nil
}

func (b *Bundler) drain(ctx context.Context, c *cycle) error {
	registry := b.state.Registry

	for b.state.Worklist.Len() > 0 {
		// A batch that has started always finishes
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := b.state.Worklist.DrainBatch(b.options.BatchSize)
		for _, path := range batch {
			c.visits[path]++
			if c.visits[path] > b.options.RevisitLimit && registry.NeedsProcessing(path) {
				b.requeue(batch)
				return &GraphError{Reason: fmt.Sprintf("The module %q was queued more than %d times in one build",
					b.resolver.PrettyPath(path), b.options.RevisitLimit)}
			}
		}

		loaded := b.loadBatch(c, batch)
		for i, path := range batch {
			if err := b.processModule(c, path, &loaded[i]); err != nil {
				b.requeue(batch[i:])
				return err
			}
		}

		if registry.Len() > b.options.MaxModules {
			return &GraphError{Reason: fmt.Sprintf("The module graph has more than %d modules", b.options.MaxModules)}
		}
	}

	return nil
}

// Puts modules that didn't get processed back so the next build retries them
func (b *Bundler) requeue(paths []graph.ModulePath) {
	for _, path := range paths {
		if b.state.Registry.NeedsProcessing(path) {
			b.state.Worklist.Enqueue(path)
		}
	}
}

type loadKind uint8

const (
	loadDone loadKind = iota
	loadReused
	loadRemoved
	loadExternal
	loadMissing
	loadJSON
	loadJS
)

type loadResult struct {
	kind     loadKind
	index    uint32
	modKey   fs.ModKey
	source   logger.Source
	external config.External
	readErr  error

	// Diagnostics are collected per module and passed on in queue order so
	// the log doesn't depend on which goroutine finished first
	log  logger.Log
	ok   bool
	tree *js_ast.AST
	json string
}

func (b *Bundler) loadBatch(c *cycle, batch []graph.ModulePath) []loadResult {
	results := make([]loadResult, len(batch))
	var group errgroup.Group
	group.SetLimit(b.options.BatchSize)
	for i, path := range batch {
		group.Go(func() error {
			results[i] = b.loadModule(c, path)
			return nil
		})
	}
	group.Wait()
	return results
}

// Runs on its own goroutine. Must not change the registry.
func (b *Bundler) loadModule(c *cycle, path graph.ModulePath) loadResult {
	module, _ := b.state.Registry.Lookup(path)
	result := loadResult{index: module.Index}

	switch {
	case module.Body != nil:
		result.kind = loadDone
		return result

	case module.Removed:
		result.kind = loadRemoved
		return result
	}

	if external, ok := b.options.Externals[string(path)]; ok {
		result.kind = loadExternal
		result.external = external
		return result
	}

	if info, ok := runtime.GlobalByPath(path); ok {
		result.source = logger.Source{Index: module.Index, KeyPath: string(path), PrettyPath: string(path), Contents: info.Source}
		b.parse(&result)
		return result
	}

	// A bare specifier that didn't resolve
	if !b.fs.IsAbs(string(path)) {
		result.kind = loadMissing
		return result
	}

	b.watch(c, string(path))

	// Get the key before reading so a write in between shows up as a change
	// on the next build instead of going unnoticed
	if key, err := b.fs.ModKey(string(path)); err == nil {
		result.modKey = key
	}
	if b.state.Registry.Unchanged(path, result.modKey) {
		result.kind = loadReused
		return result
	}

	contents, err := b.fs.ReadFile(string(path))
	if err != nil {
		result.kind = loadMissing
		result.readErr = err
		result.modKey = fs.ModKey{}
		b.watchCandidates(c, string(path))
		return result
	}

	result.source = logger.Source{
		Index:      module.Index,
		KeyPath:    string(path),
		PrettyPath: b.resolver.PrettyPath(path),
		Contents:   contents,
	}
	b.parse(&result)
	return result
}

func (b *Bundler) parse(result *loadResult) {
	result.log = logger.NewDeferLog()

	if b.options.LoaderForPath(result.source.KeyPath) == config.LoaderJSON {
		result.kind = loadJSON
		result.json, result.ok = js_parser.ParseJSON(result.log, result.source)
		return
	}

	result.kind = loadJS
	result.tree, result.ok = js_parser.Parse(result.log, result.source, js_parser.Options{
		Target:         b.options.Source,
		ValidateSyntax: !b.options.SkipSyntaxCheck,
	})
}

func (b *Bundler) watch(c *cycle, file string) {
	if b.watcher == nil {
		return
	}
	if err := b.watcher.WatchFile(file); err != nil {
		c.tracer.Trace("watch failed", "path", file, "error", err)
	}
}

// A missing module is fixed by a file at any of the paths the resolver would
// have tried, so all of those are watched
func (b *Bundler) watchCandidates(c *cycle, file string) {
	if b.watcher == nil {
		return
	}
	for _, ext := range b.options.ExtensionOrder {
		b.watch(c, file+ext)
		b.watch(c, b.fs.Join(file, "index"+ext))
	}
}

// Runs on the driver goroutine in queue order
func (b *Bundler) processModule(c *cycle, path graph.ModulePath, loaded *loadResult) error {
	registry := b.state.Registry
	pretty := b.resolver.PrettyPath(path)
	var body *js_ast.AST
	var deps []graph.ModulePath
	hasUnresolved := false

	if loaded.log.Done != nil {
		for _, msg := range loaded.log.Done() {
			c.log.AddMsg(msg)
		}
	}

	switch loaded.kind {
	case loadDone:
		return nil

	case loadReused:
		// Nothing has written to the registry since the load checked this
		registry.ReuseIfUnchanged(path, loaded.modKey)
		c.reused++
		c.tracer.Trace("up to date", "path", pretty)
		return nil

	case loadRemoved:
		body = removedBody(pretty)

	case loadExternal:
		body = externalBody(loaded.external)

	case loadMissing:
		if loaded.readErr != nil && !errors.Is(loaded.readErr, syscall.ENOENT) {
			ioErr := &IOError{Path: pretty, Err: loaded.readErr}
			c.log.AddWarning(nil, logger.Loc{}, ioErr.Error())
		}
		c.tracer.Trace("missing", "path", pretty)
		body = missingBody(pretty)

	case loadJSON:
		if !loaded.ok {
			return syntaxErrorFor(pretty, loaded.log)
		}
		body = jsonBody(loaded.json)

	case loadJS:
		if !loaded.ok {
			return syntaxErrorFor(pretty, loaded.log)
		}
		ctx := &PassContext{
			Log:      c.log,
			Source:   &loaded.source,
			Resolver: b.resolver,
			State:    b.state,
			Tracer:   c.tracer,
		}
		for _, pass := range b.passes {
			if err := pass.Apply(loaded.tree, path, ctx); err != nil {
				return fmt.Errorf("The %s pass failed on %q: %w", pass.Name(), pretty, err)
			}
		}
		body = loaded.tree
		deps = ctx.Dependencies
		hasUnresolved = ctx.HasUnresolved
	}

	registry.SetDependencies(path, deps, hasUnresolved)
	registry.SetWrapped(path, wrapModule(body, loaded.index), loaded.modKey)
	c.processed++
	c.tracer.Trace("wrap", "path", pretty, "index", loaded.index)
	return nil
}

func syntaxErrorFor(pretty string, log logger.Log) error {
	for _, msg := range log.Done() {
		if msg.Kind != logger.Error {
			continue
		}
		err := &SyntaxError{Path: pretty, Text: msg.Text}
		if msg.Location != nil {
			err.Line = msg.Location.Line
			err.Column = msg.Location.Column
		}
		return err
	}
	return &SyntaxError{Path: pretty, Text: "Invalid syntax"}
}
