package api

import "time"

type Location struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Message struct {
	Text     string
	Location *Location
}

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type LogLevel uint8

const (
	LogLevelSilent LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

////////////////////////////////////////////////////////////////////////////////
// Build API

type BuildOptions struct {
	Color      StderrColor
	ErrorLimit int
	LogLevel   LogLevel

	// The language level modules are written in: "es5", "es6"/"es2015" up to
	// "es2020", or "esnext". Defaults to "es2015".
	Source string

	// Only scan modules for "require()" calls instead of running them through
	// a complete JavaScript parser. Malformed code then ends up in the bundle.
	SkipSyntaxCheck bool

	EntryPoint string

	// The bundle goes to Outdir/Outfile. Outfile defaults to the entry point's
	// path when only Outdir is set. Without either, the bundle is only
	// returned.
	Outdir  string
	Outfile string
	Write   bool

	// Maps a specifier to the name of a global variable that provides it. An
	// empty name makes the module an empty object.
	Externals map[string]string

	// Maps a specifier to the specifier to use instead
	Alias map[string]string

	ResolveExtensions []string

	// The number of modules loaded at the same time
	BatchSize int

	// The quiet period after the last change before a watch rebuild starts
	Debounce time.Duration

	// Defaults to the current working directory
	AbsWorkingDir string

	// Bundle these files instead of reading from disk. Keys are paths,
	// relative ones are relative to AbsWorkingDir. Writing the bundle with
	// Write puts it in here as well.
	Files map[string]string
}

type BuildResult struct {
	Errors   []Message
	Warnings []Message

	OutputFiles []OutputFile

	// A new identifier for every build
	BuildID string
}

// The path is empty when the bundle has no output location
type OutputFile struct {
	Path     string
	Contents []byte
}

func Build(options BuildOptions) BuildResult {
	ctx, err := Context(options)
	if err != nil {
		return BuildResult{Errors: err.Errors}
	}
	defer ctx.Dispose()
	return ctx.Rebuild()
}

////////////////////////////////////////////////////////////////////////////////
// Context API

// A context keeps the module graph between builds. Rebuilding only processes
// the modules that changed, and every module keeps its index in the bundle.
type BuildContext interface {
	Rebuild() BuildResult

	// Starts rebuilding whenever a file the bundle depends on changes
	Watch(options WatchOptions) error

	// Stops watching. The context can't be used afterward.
	Dispose()
}

type ContextError struct {
	Errors []Message
}

func (err *ContextError) Error() string {
	if len(err.Errors) == 0 {
		return "Invalid build options"
	}
	return err.Errors[0].Text
}

func Context(options BuildOptions) (BuildContext, *ContextError) {
	ctx, errors := contextImpl(options)
	if ctx == nil {
		return nil, &ContextError{Errors: errors}
	}
	return ctx, nil
}

type WatchOptions struct {
	// Check files for changes periodically instead of asking the operating
	// system to report them. This is the only option for in-memory files.
	Poll         bool
	PollInterval time.Duration

	// Glob patterns for changes to ignore, on top of editor swap files and
	// version control metadata. Polling only ever checks the files the build
	// read, so it doesn't need these.
	Ignore []string

	// Called after every rebuild started by a change
	OnRebuild func(BuildResult)
}
