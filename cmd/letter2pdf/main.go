package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	args := os.Args[1:]
	setMaxProcs(wantsVerbose(args), os.Stderr)

	ctx, stop := notifyContext(context.Background())
	code := run(ctx, args, DefaultEnv())
	stop()

	os.Exit(code)
}

// setMaxProcs matches GOMAXPROCS to the container CPU quota before the
// browser pool is sized. Logs the decision only in verbose mode.
func setMaxProcs(verbose bool, w io.Writer) {
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(w, format+"\n", args...)
		}))
		return
	}
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
}

func wantsVerbose(args []string) bool {
	return slices.Contains(args, "-v") || slices.Contains(args, "--verbose")
}

// run dispatches a command and returns the process exit code.
// Arguments that do not start with a command name go to convert.
func run(ctx context.Context, args []string, env *Environment) int {
	if len(args) > 0 {
		switch args[0] {
		case "version", "--version":
			fmt.Fprintf(env.Stdout, "letter2pdf %s\n", Version)
			return ExitSuccess
		case "help", "-h", "--help":
			return report(env, runHelp(args[1:], env))
		case "doctor":
			return runDoctorCmd(args[1:], env)
		case "convert":
			args = args[1:]
		}
	}

	err := runConvert(ctx, args, env)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	return report(env, err)
}

// report prints err and maps it to an exit code.
func report(env *Environment, err error) int {
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
	}
	return exitCodeFor(err)
}
