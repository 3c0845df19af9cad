package config

import (
	"path"
	"strconv"
	"strings"
	"time"
)

type LanguageTarget int8

const (
	// These are arranged such that ESNext is the default zero value and such
	// that earlier releases are less than later releases
	ES5    LanguageTarget = -7
	ES2015 LanguageTarget = -6
	ES2016 LanguageTarget = -5
	ES2017 LanguageTarget = -4
	ES2018 LanguageTarget = -3
	ES2019 LanguageTarget = -2
	ES2020 LanguageTarget = -1
	ESNext LanguageTarget = 0
)

var languageTargetNames = map[string]LanguageTarget{
	"es5":    ES5,
	"es6":    ES2015,
	"es2015": ES2015,
	"es2016": ES2016,
	"es2017": ES2017,
	"es2018": ES2018,
	"es2019": ES2019,
	"es2020": ES2020,
	"esnext": ESNext,
}

func ParseLanguageTarget(text string) (LanguageTarget, bool) {
	target, ok := languageTargetNames[strings.ToLower(text)]
	return target, ok
}

func (target LanguageTarget) String() string {
	switch target {
	case ES5:
		return "es5"
	case ESNext:
		return "esnext"
	default:
		return "es" + strconv.Itoa(2015+int(target-ES2015))
	}
}

type Loader uint8

const (
	LoaderNone Loader = iota
	LoaderJS
	LoaderJSON
)

func (loader Loader) String() string {
	switch loader {
	case LoaderJS:
		return "js"
	case LoaderJSON:
		return "json"
	default:
		return "none"
	}
}

// An external replaces a module with a binding to something the host already
// provides. An empty global name means the module exports an empty object.
type External struct {
	GlobalName string
}

const DefaultBatchSize = 4
const DefaultDebounce = 100 * time.Millisecond
const DefaultRevisitLimit = 8
const DefaultMaxModules = 100000

var DefaultExtensionOrder = []string{".js", ".json"}

type Output struct {
	Folder string
	File   string
}

type Options struct {
	// Relative to the working directory
	EntryPoint string

	Output Output
	Source LanguageTarget

	WatchMode bool

	// Keyed by the exact specifier used in "require()"
	Externals map[string]External
	Alias     map[string]string

	ExtensionOrder    []string
	ExtensionToLoader map[string]Loader

	// The number of modules loaded concurrently before the scheduler waits
	BatchSize int

	Debounce time.Duration

	// Safeguards against a module graph that never settles
	RevisitLimit int
	MaxModules   int

	// Every module goes through a complete JavaScript parser in addition to
	// the scan for "require()" calls unless this is set
	SkipSyntaxCheck bool
}

func DefaultExtensionToLoader() map[string]Loader {
	return map[string]Loader{
		".js":   LoaderJS,
		".cjs":  LoaderJS,
		".mjs":  LoaderJS,
		".json": LoaderJSON,
	}
}

// Fills in the defaults for everything the caller left unset
func (options *Options) ApplyDefaults() {
	if options.ExtensionOrder == nil {
		options.ExtensionOrder = append([]string{}, DefaultExtensionOrder...)
	}
	if options.ExtensionToLoader == nil {
		options.ExtensionToLoader = DefaultExtensionToLoader()
	}
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultBatchSize
	}
	if options.Debounce <= 0 {
		options.Debounce = DefaultDebounce
	}
	if options.RevisitLimit <= 0 {
		options.RevisitLimit = DefaultRevisitLimit
	}
	if options.MaxModules <= 0 {
		options.MaxModules = DefaultMaxModules
	}
	if options.Externals == nil {
		options.Externals = make(map[string]External)
	}
	if options.Alias == nil {
		options.Alias = make(map[string]string)
	}
}

func (options *Options) LoaderForPath(file string) Loader {
	if loader, ok := options.ExtensionToLoader[path.Ext(file)]; ok {
		return loader
	}
	return LoaderJS
}
