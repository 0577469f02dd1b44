package main

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// ErrInvalidFlags wraps command-line parsing failures.
var ErrInvalidFlags = errors.New("invalid flags")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// pathFlags holds input and output locations.
type pathFlags struct {
	outputDir string
	archive   string
	assets    string
	style     string
	cover     string
}

// renderFlags holds render pool and fetch tuning.
type renderFlags struct {
	workers      int
	timeout      string
	fetchTimeout string
	rateLimit    float64
	dateFormat   string
}

// archiveFlags holds archive metadata and policies.
type archiveFlags struct {
	title           string
	creator         string
	onRenderFailure string
	onUnreadable    string
	optimize        bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common      commonFlags
	paths       pathFlags
	render      renderFlags
	archive     archiveFlags
	printConfig bool

	// set records flags given on the command line, so an explicit zero
	// value (e.g. --optimize=false) still overrides the config.
	set map[string]bool
}

// changed reports whether name was given on the command line.
func (f *convertFlags) changed(name string) bool {
	return f.set[name]
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show per-message progress")
}

// addPathFlags adds input/output location flags to a FlagSet.
func addPathFlags(fs *flag.FlagSet, f *pathFlags) {
	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "directory for per-message PDFs")
	fs.StringVarP(&f.archive, "archive", "a", "", "merged archive path")
	fs.StringVar(&f.assets, "assets", "", "directory for downloaded images")
	fs.StringVar(&f.style, "style", "", "stylesheet applied to every message")
	fs.StringVar(&f.cover, "cover", "", "cover page PDF prepended to the archive")
}

// addRenderFlags adds rendering flags to a FlagSet.
func addRenderFlags(fs *flag.FlagSet, f *renderFlags) {
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel browsers (0 = config or 4)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "page-load timeout per message (e.g., 30s, 2m)")
	fs.StringVar(&f.fetchTimeout, "fetch-timeout", "", "download timeout per image")
	fs.Float64Var(&f.rateLimit, "rate-limit", 0, "max image downloads per second (0 = unlimited)")
	fs.StringVar(&f.dateFormat, "date-format", "", "date line format: iso, european, us, long or tokens like DD/MM/YYYY")
}

// addArchiveFlags adds archive flags to a FlagSet.
func addArchiveFlags(fs *flag.FlagSet, f *archiveFlags) {
	fs.StringVar(&f.title, "title", "", "archive title metadata")
	fs.StringVar(&f.creator, "creator", "", "archive creator metadata")
	fs.StringVar(&f.onRenderFailure, "on-render-failure", "", "failed messages: omit, fail")
	fs.StringVar(&f.onUnreadable, "on-unreadable", "", "unreadable message PDFs: abort, skip")
	fs.BoolVar(&f.optimize, "optimize", false, "deduplicate fonts and images in the archive")
}

// newConvertFlagSet registers every convert flag on a fresh FlagSet.
func newConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)

	addCommonFlags(fs, &f.common)
	addPathFlags(fs, &f.paths)
	addRenderFlags(fs, &f.render)
	addArchiveFlags(fs, &f.archive)
	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective config as YAML and exit")

	return fs
}

// parseConvertFlags parses convert command flags and returns positional args.
// Parse errors are wrapped in ErrInvalidFlags; -h prints usage and returns
// flag.ErrHelp as is.
func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, []string, error) {
	f := &convertFlags{set: make(map[string]bool)}
	fs := newConvertFlagSet(f)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { printConvertUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFlags, err)
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	if f.common.quiet && f.common.verbose {
		return nil, nil, fmt.Errorf("%w: --quiet and --verbose are mutually exclusive", ErrInvalidFlags)
	}
	if f.render.workers < 0 {
		return nil, nil, fmt.Errorf("%w: --workers must not be negative, got %d", ErrInvalidFlags, f.render.workers)
	}

	return f, fs.Args(), nil
}
