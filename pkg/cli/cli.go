package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paeckchen/paeckchen/internal/exitcode"
	"github.com/paeckchen/paeckchen/internal/logger"
	"github.com/paeckchen/paeckchen/pkg/api"
)

const Version = "0.1.0"

type runner struct {
	cwd    string
	stdout io.Writer

	// Blocks until watch mode should end
	wait func()
}

// Parses the command line, bundles, and returns the process exit code
func Run(osArgs []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		logger.PrintErrorToStderr(osArgs, fmt.Sprintf("Could not determine the working directory: %s", err))
		return 1
	}
	r := &runner{
		cwd:    cwd,
		stdout: os.Stdout,
		wait:   waitForSignal,
	}
	return r.run(osArgs)
}

func waitForSignal() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

func (r *runner) run(osArgs []string) int {
	cmd := r.newCommand()
	cmd.SetArgs(osArgs)
	err := cmd.Execute()
	if err != nil && !exitcode.IsReported(err) {
		logger.PrintErrorToStderr(osArgs, err.Error())
	}
	return exitcode.Get(err)
}

func (r *runner) newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paeckchen [entry point]",
		Short: "Bundles CommonJS modules into a single script",
		Long: `paeckchen starts at the entry point, follows every require() call with a
string literal argument, and writes one script that contains every module.

Options that aren't given on the command line are read from paeckchen.json
in the working directory, if it exists.`,
		Example: `  paeckchen --entry src/index.js > bundle.js
  paeckchen --entry src/index.js --outdir dist --watch
  paeckchen --entry src/index.js --external jquery=jQuery --external fs`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd, args, r.cwd)
			if err != nil {
				return exitcode.Set(err, exitcode.Usage)
			}
			return r.bundle(opts)
		},
	}
	addFlags(cmd)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return exitcode.Set(err, exitcode.Usage)
	})
	return cmd
}

func (r *runner) bundle(opts *options) error {
	start := time.Now()
	ctx, ctxErr := api.Context(opts.build)
	if ctxErr != nil {
		// The errors were already logged unless logging is off
		return exitcode.Reported(exitcode.Usage)
	}
	defer ctx.Dispose()

	result := ctx.Rebuild()
	r.printTiming(opts, time.Since(start))
	if len(result.Errors) == 0 {
		r.writeStdout(opts, result)
	} else if !opts.watch {
		return exitcode.Reported(exitcode.BuildFailed)
	}

	if !opts.watch {
		return nil
	}

	// The process is long-lived from here on
	debug.SetGCPercent(100)

	err := ctx.Watch(api.WatchOptions{
		Poll: opts.poll,
		OnRebuild: func(result api.BuildResult) {
			if len(result.Errors) == 0 {
				r.writeStdout(opts, result)
			}
		},
	})
	if err != nil {
		return err
	}
	r.printText(opts, "[watch] build finished, watching for changes...")
	r.wait()
	return nil
}

// Without an output path the bundle goes to stdout. Otherwise it was already
// written by the build.
func (r *runner) writeStdout(opts *options, result api.BuildResult) {
	if opts.build.Write {
		return
	}
	for _, outputFile := range result.OutputFiles {
		if _, err := r.stdout.Write(outputFile.Contents); err != nil {
			logger.PrintErrorToStderr(nil, fmt.Sprintf("Failed to write to stdout: %s", err))
		}
	}
}

func (r *runner) printTiming(opts *options, elapsed time.Duration) {
	r.printText(opts, fmt.Sprintf("Bundeling took %gs", elapsed.Seconds()))
}

func (r *runner) printText(opts *options, text string) {
	switch opts.build.LogLevel {
	case api.LogLevelSilent, api.LogLevelWarning, api.LogLevelError:
		return
	}
	useColor := logger.ColorIfTerminal
	switch opts.build.Color {
	case api.ColorNever:
		useColor = logger.ColorNever
	case api.ColorAlways:
		useColor = logger.ColorAlways
	}
	logger.PrintTextWithColor(os.Stderr, useColor, func(colors logger.Colors) string {
		return fmt.Sprintf("%s%s%s\n", colors.Dim, text, colors.Reset)
	})
}
