package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"runtime/pprof"
	"runtime/trace"
	"strings"

	"github.com/paeckchen/paeckchen/internal/logger"
	"github.com/paeckchen/paeckchen/pkg/cli"
)

func main() {
	osArgs := os.Args[1:]
	traceFile := ""
	cpuprofileFile := ""

	// Profiling flags are handled here so they cover all of the CLI
	argsEnd := 0
	for _, arg := range osArgs {
		switch {
		case strings.HasPrefix(arg, "--trace="):
			traceFile = arg[len("--trace="):]

		case strings.HasPrefix(arg, "--cpuprofile="):
			cpuprofileFile = arg[len("--cpuprofile="):]

		default:
			osArgs[argsEnd] = arg
			argsEnd++
		}
	}
	osArgs = osArgs[:argsEnd]

	// Capture the defer statements below so the profiles are flushed first
	exitCode := 1
	func() {
		// To view a CPU trace, use "go tool trace [file]"
		if traceFile != "" {
			f, err := os.Create(traceFile)
			if err != nil {
				logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
					"Failed to create trace file: %s", err.Error()))
				return
			}
			defer f.Close()
			trace.Start(f)
			defer trace.Stop()
		}

		if cpuprofileFile != "" {
			f, err := os.Create(cpuprofileFile)
			if err != nil {
				logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
					"Failed to create cpuprofile file: %s", err.Error()))
				return
			}
			defer f.Close()
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}

		// A single build allocates and then exits, so the GC only costs time.
		// Watch mode turns it back on.
		debug.SetGCPercent(-1)

		exitCode = cli.Run(osArgs)
	}()

	os.Exit(exitCode)
}
