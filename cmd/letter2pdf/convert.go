package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	letter2pdf "github.com/alnah/go-letter2pdf"
	"github.com/alnah/go-letter2pdf/internal/config"
	"github.com/alnah/go-letter2pdf/internal/dateutil"
	"github.com/alnah/go-letter2pdf/internal/hints"
)

// runConvert reads the export, renders every message and merges the archive.
//
// Settings resolve as flags > LETTER2PDF_* env > config file > defaults.
// The table and the companion files are checked before anything is written.
func runConvert(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: expected one input file, got %d", ErrInvalidFlags, len(positional))
	}

	warnUnknownEnvVars(env.Stderr)

	cfg, err := loadConfig(flags.common.config, loadEnvConfig())
	if err != nil {
		return err
	}
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, letter2pdf.ErrInvalidDateFormat) {
			return fmt.Errorf("%w%s", err, hints.ForDateFormat(datePresets()))
		}
		return err
	}

	if flags.printConfig {
		out, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = env.Stdout.Write(out)
		return err
	}

	logger := newLogger(env.Stderr, flags.common)

	inputPath, err := resolveInputPath(positional, cfg, env)
	if err != nil {
		return err
	}

	records, err := letter2pdf.ReadRecordsFile(inputPath)
	if err != nil {
		if errors.Is(err, letter2pdf.ErrMissingColumns) {
			return fmt.Errorf("%w%s", err, hints.ForMissingColumns(letter2pdf.RequiredColumns))
		}
		return err
	}
	logger.Debug("input table read", "path", inputPath, "records", len(records))

	opts, err := buildOptions(cfg, logger)
	if err != nil {
		return err
	}

	companions := letter2pdf.Companions{
		Stylesheet: cfg.Companion.Stylesheet,
		Cover:      cfg.Companion.Cover,
	}
	archiver, err := env.NewArchiver(companions, opts...)
	if err != nil {
		return withCompanionHint(err)
	}
	defer func() {
		if cerr := archiver.Close(); cerr != nil {
			logger.Warn("closing browsers", "err", cerr)
		}
	}()

	start := env.Now()
	result, err := archiver.Convert(ctx, letter2pdf.Input{
		Records:     records,
		OutputDir:   cfg.Output.Dir,
		ArchivePath: cfg.Output.Archive,
	})
	printResults(env, result, flags.common.quiet, env.Now().Sub(start))

	if err != nil {
		return withRunHint(err, result)
	}
	if result != nil && result.Incomplete() {
		return incompleteError(result)
	}
	return nil
}

// loadConfig loads the named config file, or defaults when none is given,
// and applies environment overrides on top.
func loadConfig(flagConfig string, envCfg *envConfig) (*config.Config, error) {
	name := flagConfig
	if name == "" {
		name = envCfg.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(configCandidates(name)))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	return cfg, nil
}

// configCandidates lists where a config name would be looked up.
func configCandidates(name string) []string {
	if strings.ContainsAny(name, "/\\") {
		return nil
	}
	candidates := []string{name + ".yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "go-letter2pdf", name+".yaml"))
	}
	return candidates
}

// mergeFlags copies explicitly given flags into cfg (CLI wins).
func mergeFlags(flags *convertFlags, cfg *config.Config) {
	// Paths
	setString(&cfg.Output.Dir, flags.paths.outputDir)
	setString(&cfg.Output.Archive, flags.paths.archive)
	setString(&cfg.Assets.Dir, flags.paths.assets)
	setString(&cfg.Companion.Stylesheet, flags.paths.style)
	setString(&cfg.Companion.Cover, flags.paths.cover)

	// Rendering
	if flags.render.workers > 0 {
		cfg.Render.Workers = flags.render.workers
	}
	setString(&cfg.Render.Timeout, flags.render.timeout)
	setString(&cfg.Assets.Timeout, flags.render.fetchTimeout)
	setString(&cfg.Render.DateFormat, flags.render.dateFormat)
	if flags.changed("rate-limit") {
		cfg.Assets.RateLimit = flags.render.rateLimit
	}

	// Archive
	setString(&cfg.Archive.Title, flags.archive.title)
	setString(&cfg.Archive.Creator, flags.archive.creator)
	setString(&cfg.Policy.OnRenderFailure, flags.archive.onRenderFailure)
	setString(&cfg.Policy.OnUnreadablePDF, flags.archive.onUnreadable)
	if flags.changed("optimize") {
		cfg.Archive.Optimize = flags.archive.optimize
	}
}

// buildOptions translates a validated config into converter options.
func buildOptions(cfg *config.Config, logger *slog.Logger) ([]letter2pdf.Option, error) {
	renderPolicy, err := letter2pdf.ParseRenderFailurePolicy(cfg.Policy.OnRenderFailure)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidValue, err)
	}
	unreadable, err := letter2pdf.ParseUnreadablePolicy(cfg.Policy.OnUnreadablePDF)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidValue, err)
	}

	opts := []letter2pdf.Option{
		letter2pdf.WithWorkers(cfg.Render.Workers),
		letter2pdf.WithAssetDir(cfg.Assets.Dir),
		letter2pdf.WithFetchTimeout(cfg.FetchTimeout()),
		letter2pdf.WithDateFormat(cfg.Render.DateFormat),
		letter2pdf.WithFetchRateLimit(cfg.Assets.RateLimit),
		letter2pdf.WithArchiveMetadata(letter2pdf.Metadata{
			Title:   cfg.Archive.Title,
			Creator: cfg.Archive.Creator,
		}),
		letter2pdf.WithRenderFailurePolicy(renderPolicy),
		letter2pdf.WithUnreadablePDFPolicy(unreadable),
		letter2pdf.WithOptimizedArchive(cfg.Archive.Optimize),
		letter2pdf.WithLogger(logger),
	}
	if d := cfg.RenderTimeout(); d > 0 {
		opts = append(opts, letter2pdf.WithRenderTimeout(d))
	}
	return opts, nil
}

// newLogger writes progress events as text on w.
// --verbose adds debug detail, --quiet keeps warnings and errors only.
func newLogger(w io.Writer, f commonFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case f.verbose:
		level = slog.LevelDebug
	case f.quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolveInputPath determines the export from args, config, or the picker.
func resolveInputPath(args []string, cfg *config.Config, env *Environment) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Input.Path != "" {
		return cfg.Input.Path, nil
	}
	return pickInput(env.WorkDir, env.Stdin, env.Stdout)
}

// printResults outputs the run summary. Failures go to stderr even when quiet.
func printResults(env *Environment, result *letter2pdf.Result, quiet bool, elapsed time.Duration) {
	if result == nil || result.Batch == nil {
		return
	}
	batch := result.Batch

	if !quiet {
		for _, a := range batch.Artifacts {
			if !a.Skipped {
				fmt.Fprintf(env.Stdout, "Created %s\n", a.Path)
			}
		}
	}
	for _, f := range batch.Failures {
		fmt.Fprintf(env.Stderr, "FAILED %v\n", f)
	}
	if result.Archive != nil {
		for _, idx := range result.Archive.Omitted {
			fmt.Fprintf(env.Stderr, "OMITTED message %d: unreadable PDF\n", idx)
		}
	}

	if quiet {
		return
	}
	fmt.Fprintf(env.Stdout, "\n%d rendered, %d skipped, %d failed (%v)\n",
		batch.Rendered, batch.Skipped, len(batch.Failures), elapsed.Round(time.Millisecond))
	if result.Archive != nil {
		fmt.Fprintf(env.Stdout, "Archive written to %s (%d pages, %d messages)\n",
			result.Archive.Path, result.Archive.Pages, len(result.Archive.Bookmarks))
	}
}

// incompleteError reports messages missing from a written archive.
// When nothing rendered because the browser never came up, the browser
// error is returned instead so the exit code points at Chrome.
func incompleteError(result *letter2pdf.Result) error {
	if result.Batch != nil && len(result.Batch.Artifacts) == 0 && len(result.Batch.Failures) > 0 {
		first := result.Batch.Failures[0]
		if isBrowserFailure(first) {
			return fmt.Errorf("no message rendered: %w%s", first, hints.ForBrowserConnect())
		}
	}
	err := fmt.Errorf("%w: messages %s", letter2pdf.ErrIncompleteArchive, joinIndices(result.Missing()))
	return fmt.Errorf("%w%s", err, failureHints(result))
}

// withRunHint appends the hint matching a failed run.
func withRunHint(err error, result *letter2pdf.Result) error {
	switch {
	case errors.Is(err, letter2pdf.ErrIncompleteArchive):
		return fmt.Errorf("%w%s", err, failureHints(result))
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w%s", err, hints.ForOutputDirectory())
	}
	return err
}

// withCompanionHint points at the flag overriding a missing companion file.
func withCompanionHint(err error) error {
	switch {
	case errors.Is(err, letter2pdf.ErrStylesheetNotFound):
		return fmt.Errorf("%w%s", err, hints.ForCompanionFile("--style"))
	case errors.Is(err, letter2pdf.ErrCoverNotFound):
		return fmt.Errorf("%w%s", err, hints.ForCompanionFile("--cover"))
	}
	return err
}

// failureHints collects hints for the render failures of a run.
func failureHints(result *letter2pdf.Result) string {
	var browser, timeout bool
	if result != nil && result.Batch != nil {
		for _, f := range result.Batch.Failures {
			browser = browser || isBrowserFailure(f)
			timeout = timeout || errors.Is(f, context.DeadlineExceeded)
		}
	}

	var b strings.Builder
	if browser {
		b.WriteString(hints.ForBrowserConnect())
	}
	if timeout {
		b.WriteString(hints.ForTimeout())
	}
	b.WriteString(hints.ForIncompleteArchive())
	return b.String()
}

func isBrowserFailure(err error) bool {
	return errors.Is(err, letter2pdf.ErrBrowserConnect) || errors.Is(err, letter2pdf.ErrRendererInit)
}

func joinIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ", ")
}

// datePresets returns the preset names accepted by --date-format, sorted.
func datePresets() []string {
	return slices.Sorted(maps.Keys(dateutil.DatePresets))
}
