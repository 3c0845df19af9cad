package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paeckchen/paeckchen/pkg/api"
)

const defaultConfigFile = "paeckchen.json"

type options struct {
	build api.BuildOptions
	watch bool
	poll  bool
}

func addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("entry", "", "The module to start bundling at, relative to the working directory")
	flags.String("config", "", "The config file to read (default \""+defaultConfigFile+"\" if it exists)")
	flags.Bool("watch", false, "Rebuild whenever a file the bundle depends on changes")
	flags.Bool("poll", false, "Watch for changes by checking files periodically")
	flags.String("source", "", "The language level modules are written in (es5, es2015, ..., esnext)")
	flags.String("outdir", "", "The folder to write the bundle to")
	flags.String("outfile", "", "The file name of the bundle (default stdout)")
	flags.StringArray("external", nil, "Leave module M out of the bundle as M or M=GlobalName")
	flags.StringArray("alias", nil, "Use module B wherever module A is required as A=B")
	flags.String("log-level", "info", "How much to log (debug, info, warning, error, silent)")
	flags.String("color", "", "Force use of color terminal escapes (true or false)")
	flags.Int("error-limit", 10, "Maximum error count or 0 to disable")
	flags.Bool("skip-syntax-check", false, "Only scan modules for require() calls without checking their syntax")
}

func parseLogLevel(text string) (api.LogLevel, error) {
	switch text {
	case "debug":
		return api.LogLevelDebug, nil
	case "info":
		return api.LogLevelInfo, nil
	case "warning":
		return api.LogLevelWarning, nil
	case "error":
		return api.LogLevelError, nil
	case "silent":
		return api.LogLevelSilent, nil
	default:
		return 0, fmt.Errorf("Invalid log level: %q", text)
	}
}

func parseColor(text string) (api.StderrColor, error) {
	switch text {
	case "":
		return api.ColorIfTerminal, nil
	case "true":
		return api.ColorAlways, nil
	case "false":
		return api.ColorNever, nil
	default:
		return 0, fmt.Errorf("Invalid color: %q (use \"true\" or \"false\")", text)
	}
}

// Specifiers can contain dots, so nested config keys are separated with "::"
func newViper() *viper.Viper {
	return viper.NewWithOptions(viper.KeyDelimiter("::"))
}

// Reads "paeckchen.json" from the working directory, or the file named by
// "--config", which must exist
func readConfigFile(v *viper.Viper, cmd *cobra.Command, cwd string) error {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}

	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("Could not read config file %q: %w", path, err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("Could not read config file %q: %w", path, err)
	}
	return nil
}

// Config file values come first and flags override them. Externals and
// aliases from both places are merged.
func loadOptions(cmd *cobra.Command, args []string, cwd string) (*options, error) {
	v := newViper()
	v.SetDefault("source", "es2015")
	if err := readConfigFile(v, cmd, cwd); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	bindings := map[string]string{
		"entry":           "entry",
		"source":          "source",
		"watchMode":       "watch",
		"output::folder":  "outdir",
		"output::file":    "outfile",
		"skipSyntaxCheck": "skip-syntax-check",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	result := &options{}
	build := &result.build
	build.AbsWorkingDir = cwd
	build.EntryPoint = v.GetString("entry")
	build.Source = v.GetString("source")
	build.Outdir = v.GetString("output::folder")
	build.Outfile = v.GetString("output::file")
	build.SkipSyntaxCheck = v.GetBool("skipSyntaxCheck")
	build.ResolveExtensions = v.GetStringSlice("resolveExtensions")
	if len(build.ResolveExtensions) == 0 {
		build.ResolveExtensions = nil
	}
	result.watch = v.GetBool("watchMode")
	result.poll, _ = flags.GetBool("poll")

	// The entry point can also be given by itself
	if len(args) > 0 {
		if flags.Changed("entry") {
			return nil, errors.New("Cannot use both \"--entry\" and a positional entry point")
		}
		build.EntryPoint = args[0]
	}

	var err error
	if build.Externals, err = configExternals(v); err != nil {
		return nil, err
	}
	if build.Alias, err = configAlias(v); err != nil {
		return nil, err
	}
	externals, _ := flags.GetStringArray("external")
	for _, text := range externals {
		name, globalName, _ := strings.Cut(text, "=")
		if name == "" {
			return nil, fmt.Errorf("Invalid external: %q", text)
		}
		build.Externals[name] = globalName
	}
	aliases, _ := flags.GetStringArray("alias")
	for _, text := range aliases {
		from, to, ok := strings.Cut(text, "=")
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("Invalid alias: %q (use \"--alias A=B\")", text)
		}
		build.Alias[from] = to
	}

	logLevel, _ := flags.GetString("log-level")
	if build.LogLevel, err = parseLogLevel(logLevel); err != nil {
		return nil, err
	}
	color, _ := flags.GetString("color")
	if build.Color, err = parseColor(color); err != nil {
		return nil, err
	}
	build.ErrorLimit, _ = flags.GetInt("error-limit")

	// The bundle is written to disk whenever there's somewhere to put it
	build.Write = build.Outdir != "" || build.Outfile != ""
	return result, nil
}

// Each external is either false, for a module that exports an empty object,
// or the name of a global variable holding the module
func configExternals(v *viper.Viper) (map[string]string, error) {
	result := make(map[string]string)
	for name, value := range v.GetStringMap("externals") {
		switch value := value.(type) {
		case bool:
			if value {
				return nil, fmt.Errorf("Invalid external %q: expected false or a global name", name)
			}
			result[name] = ""
		case string:
			result[name] = value
		default:
			return nil, fmt.Errorf("Invalid external %q: expected false or a global name", name)
		}
	}
	return result, nil
}

func configAlias(v *viper.Viper) (map[string]string, error) {
	result := make(map[string]string)
	for from, value := range v.GetStringMap("alias") {
		to, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("Invalid alias %q: expected a module name", from)
		}
		result[from] = to
	}
	return result, nil
}
