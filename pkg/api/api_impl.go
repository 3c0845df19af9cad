package api

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/paeckchen/paeckchen/internal/bundler"
	"github.com/paeckchen/paeckchen/internal/config"
	"github.com/paeckchen/paeckchen/internal/fs"
	"github.com/paeckchen/paeckchen/internal/helpers"
	"github.com/paeckchen/paeckchen/internal/js_lexer"
	"github.com/paeckchen/paeckchen/internal/logger"
	"github.com/paeckchen/paeckchen/internal/watcher"
)

func validateColor(value StderrColor) logger.UseColor {
	switch value {
	case ColorIfTerminal:
		return logger.ColorIfTerminal
	case ColorNever:
		return logger.ColorNever
	case ColorAlways:
		return logger.ColorAlways
	default:
		panic("Invalid color")
	}
}

func validateLogLevel(value LogLevel) logger.LogLevel {
	switch value {
	case LogLevelDebug:
		return logger.LevelDebug
	case LogLevelInfo:
		return logger.LevelInfo
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	case LogLevelSilent:
		return logger.LevelSilent
	default:
		panic("Invalid log level")
	}
}

func validateSource(log logger.Log, value string) config.LanguageTarget {
	if value == "" {
		return config.ES2015
	}
	target, ok := config.ParseLanguageTarget(value)
	if !ok {
		log.AddError(nil, logger.Loc{}, fmt.Sprintf("Invalid source level: %q", value))
	}
	return target
}

func validateResolveExtensions(log logger.Log, order []string) []string {
	if order == nil {
		return append([]string{}, config.DefaultExtensionOrder...)
	}
	for _, ext := range order {
		if len(ext) < 2 || ext[0] != '.' {
			log.AddError(nil, logger.Loc{}, fmt.Sprintf("Invalid file extension: %q", ext))
		}
	}
	return order
}

func validateExternals(log logger.Log, externals map[string]string) map[string]config.External {
	result := make(map[string]config.External, len(externals))
	for specifier, globalName := range externals {
		if specifier == "" {
			log.AddError(nil, logger.Loc{}, "Invalid module name: \"\"")
			continue
		}
		if globalName != "" && !isGlobalName(globalName) {
			log.AddError(nil, logger.Loc{}, fmt.Sprintf("Invalid global name for %q: %q", specifier, globalName))
			continue
		}
		result[specifier] = config.External{GlobalName: globalName}
	}
	return result
}

// Either an identifier or a dot-separated list of identifiers
func isGlobalName(text string) bool {
	for _, part := range strings.Split(text, ".") {
		if !js_lexer.IsIdentifier(part) {
			return false
		}
	}
	return true
}

func validateAlias(log logger.Log, alias map[string]string) map[string]string {
	result := make(map[string]string, len(alias))
	for from, to := range alias {
		if from == "" || to == "" {
			log.AddError(nil, logger.Loc{}, fmt.Sprintf("Invalid alias: %q -> %q", from, to))
			continue
		}
		result[from] = to
	}
	return result
}

func validatePath(log logger.Log, fs fs.FS, relPath string) string {
	if relPath == "" {
		return ""
	}
	absPath, ok := fs.Abs(relPath)
	if !ok {
		log.AddError(nil, logger.Loc{}, fmt.Sprintf("Invalid path: %s", relPath))
	}
	return absPath
}

// The bundle goes to the output folder under the output file's name, which
// defaults to the entry point's path
func validateOutputPath(log logger.Log, fs fs.FS, options BuildOptions) string {
	switch {
	case options.Outdir != "" && options.Outfile != "":
		return validatePath(log, fs, fs.Join(options.Outdir, options.Outfile))
	case options.Outdir != "":
		if options.EntryPoint == "" || fs.IsAbs(options.EntryPoint) {
			log.AddError(nil, logger.Loc{}, "Must use \"outfile\" when the entry point is not a relative path")
			return ""
		}
		return validatePath(log, fs, fs.Join(options.Outdir, options.EntryPoint))
	default:
		return validatePath(log, fs, options.Outfile)
	}
}

func messagesOfKind(kind logger.MsgKind, msgs []logger.Msg) []Message {
	var filtered []Message
	for _, msg := range msgs {
		if msg.Kind == kind {
			var location *Location
			if loc := msg.Location; loc != nil {
				location = &Location{
					File:     loc.File,
					Line:     loc.Line,
					Column:   loc.Column,
					Length:   loc.Length,
					LineText: loc.LineText,
				}
			}
			filtered = append(filtered, Message{
				Text:     msg.Text,
				Location: location,
			})
		}
	}
	return filtered
}

////////////////////////////////////////////////////////////////////////////////
// Context API

type buildContext struct {
	options    BuildOptions
	fs         fs.FS
	config     *config.Options
	tracer     *logger.Tracer
	bundler    *bundler.Bundler
	outputPath string

	ctx    context.Context
	cancel context.CancelFunc

	// Builds, invalidation, and disposal take turns
	buildMutex sync.Mutex
	disposed   bool
	watch      *watchController

	// Every file any build has read, so a watcher started later can pick
	// them up. Loads happen concurrently, so this has its own lock.
	watchMutex   sync.Mutex
	watchedFiles []string
	watchedSet   map[string]bool
	fileWatcher  watcher.Watcher

	// Replaced in tests
	clock      helpers.Clock
	newWatcher func(WatchOptions) (watcher.Watcher, error)
}

func (c *buildContext) newLog() logger.Log {
	if c.options.LogLevel == LogLevelSilent {
		return logger.NewDeferLog()
	}
	return logger.NewStderrLog(logger.OutputOptions{
		IncludeSource: true,
		ErrorLimit:    c.options.ErrorLimit,
		Color:         validateColor(c.options.Color),
		LogLevel:      validateLogLevel(c.options.LogLevel),
	})
}

func contextImpl(options BuildOptions) (*buildContext, []Message) {
	c := &buildContext{
		options:    options,
		watchedSet: make(map[string]bool),
		clock:      helpers.RealClock,
	}
	validateLog := c.newLog()

	// In-memory files take the place of the file system
	if options.Files != nil {
		cwd := options.AbsWorkingDir
		if cwd == "" {
			cwd = "/"
		}
		c.fs = fs.MockFS(options.Files, cwd)
	} else {
		realFS, err := fs.RealFS(fs.RealFSOptions{AbsWorkingDir: options.AbsWorkingDir})
		if err != nil {
			validateLog.AddError(nil, logger.Loc{}, fmt.Sprintf("Could not determine the working directory: %s", err))
			msgs := validateLog.Done()
			return nil, messagesOfKind(logger.Error, msgs)
		}
		c.fs = realFS
	}

	// Convert and validate the options
	c.config = &config.Options{
		EntryPoint:      options.EntryPoint,
		Source:          validateSource(validateLog, options.Source),
		Externals:       validateExternals(validateLog, options.Externals),
		Alias:           validateAlias(validateLog, options.Alias),
		ExtensionOrder:  validateResolveExtensions(validateLog, options.ResolveExtensions),
		BatchSize:       options.BatchSize,
		Debounce:        options.Debounce,
		SkipSyntaxCheck: options.SkipSyntaxCheck,
		Output: config.Output{
			Folder: options.Outdir,
			File:   options.Outfile,
		},
	}
	if options.EntryPoint == "" {
		validateLog.AddError(nil, logger.Loc{}, "Missing entry point")
	}
	if options.BatchSize < 0 {
		validateLog.AddError(nil, logger.Loc{}, fmt.Sprintf("Invalid batch size: %d", options.BatchSize))
	}
	if options.Debounce < 0 {
		validateLog.AddError(nil, logger.Loc{}, fmt.Sprintf("Invalid debounce: %s", options.Debounce))
	}
	c.outputPath = validateOutputPath(validateLog, c.fs, options)
	if options.Write && c.outputPath == "" {
		validateLog.AddError(nil, logger.Loc{}, "Cannot use \"write\" without \"outfile\" or \"outdir\"")
	}
	c.config.ApplyDefaults()

	// Stop now if there were errors
	validateMsgs := validateLog.Done()
	if errors := messagesOfKind(logger.Error, validateMsgs); len(errors) > 0 {
		return nil, errors
	}

	c.tracer = logger.NewTracer(os.Stderr, validateLogLevel(options.LogLevel))
	c.bundler = bundler.NewBundler(c.fs, c.config, c.tracer, c)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// Called by the bundler for every file it reads, possibly from several
// goroutines at once
func (c *buildContext) WatchFile(path string) error {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()
	if c.watchedSet[path] {
		return nil
	}
	c.watchedSet[path] = true
	c.watchedFiles = append(c.watchedFiles, path)
	if c.fileWatcher != nil {
		return c.fileWatcher.WatchFile(path)
	}
	return nil
}

func (c *buildContext) setFileWatcher(w watcher.Watcher) {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()
	c.fileWatcher = w
	for _, path := range c.watchedFiles {
		if err := w.WatchFile(path); err != nil {
			c.tracer.Info("watch failed", "path", path, "error", err)
		}
	}
}

func (c *buildContext) Rebuild() BuildResult {
	c.buildMutex.Lock()
	defer c.buildMutex.Unlock()
	return c.rebuildLocked()
}

func (c *buildContext) rebuildLocked() BuildResult {
	if c.disposed {
		return BuildResult{Errors: []Message{{Text: "Cannot rebuild after the context was disposed"}}}
	}

	log := c.newLog()
	var timer *helpers.Timer
	if c.options.LogLevel == LogLevelDebug {
		timer = &helpers.Timer{}
	}

	result, err := c.bundler.Build(c.ctx, log, timer)
	timer.Log(log)
	var outputFiles []OutputFile
	if err != nil {
		// Syntax errors and graph errors are already in the log
		if !log.HasErrors() {
			log.AddError(nil, logger.Loc{}, err.Error())
		}
	} else {
		outputFiles = []OutputFile{{Path: c.outputPath, Contents: result.JS}}
		if c.options.Write {
			if err := c.fs.WriteFile(c.outputPath, result.JS); err != nil {
				log.AddError(nil, logger.Loc{}, fmt.Sprintf("Failed to write to output file: %s", err))
			}
		}
	}

	msgs := log.Done()
	return BuildResult{
		Errors:      messagesOfKind(logger.Error, msgs),
		Warnings:    messagesOfKind(logger.Warning, msgs),
		OutputFiles: outputFiles,
		BuildID:     result.BuildID,
	}
}

// Returns true if the change left something for the next build to do
func (c *buildContext) invalidate(event watcher.Event) bool {
	c.buildMutex.Lock()
	defer c.buildMutex.Unlock()
	if c.disposed {
		return false
	}
	c.bundler.Invalidate(event.Path, event.Kind == watcher.Remove)
	return c.bundler.State().Worklist.Len() > 0
}

func (c *buildContext) prettyPath(path string) string {
	if rel, ok := c.fs.Rel(c.fs.Cwd(), path); ok && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func (c *buildContext) Watch(options WatchOptions) error {
	c.buildMutex.Lock()
	defer c.buildMutex.Unlock()
	if c.disposed {
		return fmt.Errorf("Cannot watch after the context was disposed")
	}
	if c.watch != nil {
		return fmt.Errorf("Watch mode has already been enabled")
	}

	w, err := c.startWatcher(options)
	if err != nil {
		return err
	}
	c.config.WatchMode = true
	c.setFileWatcher(w)
	c.watch = newWatchController(c, w, options)
	c.watch.start()
	return nil
}

func (c *buildContext) startWatcher(options WatchOptions) (watcher.Watcher, error) {
	switch {
	case c.newWatcher != nil:
		return c.newWatcher(options)
	case options.Poll || c.options.Files != nil:
		return watcher.NewPollWatcher(c.fs, watcher.PollOptions{
			Interval: options.PollInterval,
			Clock:    c.clock,
		}), nil
	default:
		return watcher.NewNotifyWatcher(watcher.NotifyOptions{
			Ignore: options.Ignore,
			Tracer: c.tracer,
		})
	}
}

func (c *buildContext) Dispose() {
	// Let a build that is running now stop between batches
	c.cancel()

	c.buildMutex.Lock()
	if c.disposed {
		c.buildMutex.Unlock()
		return
	}
	c.disposed = true
	watch := c.watch
	c.buildMutex.Unlock()

	if watch != nil {
		watch.stop()
	}
}
