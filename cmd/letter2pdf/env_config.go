package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-letter2pdf/internal/config"
)

// envPrefix marks the variables this CLI reads.
const envPrefix = "LETTER2PDF_"

// envConfig holds configuration from environment variables.
// Provides CI/cron-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string // LETTER2PDF_CONFIG: config file name or path

	// Paths
	Input      string // LETTER2PDF_INPUT: CSV export
	OutputDir  string // LETTER2PDF_OUTPUT_DIR: per-message PDFs
	Archive    string // LETTER2PDF_ARCHIVE: merged archive path
	AssetsDir  string // LETTER2PDF_ASSETS_DIR: image cache
	Stylesheet string // LETTER2PDF_STYLE: stylesheet file
	Cover      string // LETTER2PDF_COVER: cover page PDF

	// Rendering
	Workers      int           // LETTER2PDF_WORKERS: parallel browsers
	Timeout      time.Duration // LETTER2PDF_TIMEOUT: page-load timeout
	FetchTimeout time.Duration // LETTER2PDF_FETCH_TIMEOUT: image download timeout
	DateFormat   string        // LETTER2PDF_DATE_FORMAT: "Sent on" date format

	// Archive
	Title   string // LETTER2PDF_TITLE: archive title
	Creator string // LETTER2PDF_CREATOR: archive creator

	// Policies
	OnRenderFailure string // LETTER2PDF_ON_RENDER_FAILURE: omit, fail
	OnUnreadable    string // LETTER2PDF_ON_UNREADABLE: abort, skip
}

// knownEnvVars lists valid LETTER2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"LETTER2PDF_CONFIG":            true,
	"LETTER2PDF_INPUT":             true,
	"LETTER2PDF_OUTPUT_DIR":        true,
	"LETTER2PDF_ARCHIVE":           true,
	"LETTER2PDF_ASSETS_DIR":        true,
	"LETTER2PDF_STYLE":             true,
	"LETTER2PDF_COVER":             true,
	"LETTER2PDF_WORKERS":           true,
	"LETTER2PDF_TIMEOUT":           true,
	"LETTER2PDF_FETCH_TIMEOUT":     true,
	"LETTER2PDF_DATE_FORMAT":       true,
	"LETTER2PDF_TITLE":             true,
	"LETTER2PDF_CREATOR":           true,
	"LETTER2PDF_ON_RENDER_FAILURE": true,
	"LETTER2PDF_ON_UNREADABLE":     true,
	"LETTER2PDF_CONTAINER":         true, // read by doctor
}

// loadEnvConfig reads configuration from environment variables.
// Unparsable or non-positive numbers and durations are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath:      os.Getenv("LETTER2PDF_CONFIG"),
		Input:           os.Getenv("LETTER2PDF_INPUT"),
		OutputDir:       os.Getenv("LETTER2PDF_OUTPUT_DIR"),
		Archive:         os.Getenv("LETTER2PDF_ARCHIVE"),
		AssetsDir:       os.Getenv("LETTER2PDF_ASSETS_DIR"),
		Stylesheet:      os.Getenv("LETTER2PDF_STYLE"),
		Cover:           os.Getenv("LETTER2PDF_COVER"),
		DateFormat:      os.Getenv("LETTER2PDF_DATE_FORMAT"),
		Title:           os.Getenv("LETTER2PDF_TITLE"),
		Creator:         os.Getenv("LETTER2PDF_CREATOR"),
		OnRenderFailure: os.Getenv("LETTER2PDF_ON_RENDER_FAILURE"),
		OnUnreadable:    os.Getenv("LETTER2PDF_ON_UNREADABLE"),
	}

	cfg.Timeout = positiveDuration(os.Getenv("LETTER2PDF_TIMEOUT"))
	cfg.FetchTimeout = positiveDuration(os.Getenv("LETTER2PDF_FETCH_TIMEOUT"))

	if workers := os.Getenv("LETTER2PDF_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

func positiveDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return 0
}

// warnUnknownEnvVars logs warnings for unrecognized LETTER2PDF_* variables.
// Helps catch typos like LETTER2PDF_WORKER instead of LETTER2PDF_WORKERS.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overrides config values with the environment variables that
// are set. The result still yields to CLI flags, applied later by mergeFlags:
// flags > env vars > config file > defaults.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	setString(&cfg.Input.Path, env.Input)
	setString(&cfg.Output.Dir, env.OutputDir)
	setString(&cfg.Output.Archive, env.Archive)
	setString(&cfg.Assets.Dir, env.AssetsDir)
	setString(&cfg.Companion.Stylesheet, env.Stylesheet)
	setString(&cfg.Companion.Cover, env.Cover)
	setString(&cfg.Render.DateFormat, env.DateFormat)
	setString(&cfg.Archive.Title, env.Title)
	setString(&cfg.Archive.Creator, env.Creator)
	setString(&cfg.Policy.OnRenderFailure, env.OnRenderFailure)
	setString(&cfg.Policy.OnUnreadablePDF, env.OnUnreadable)

	if env.Workers > 0 {
		cfg.Render.Workers = env.Workers
	}
	if env.Timeout > 0 {
		cfg.Render.Timeout = env.Timeout.String()
	}
	if env.FetchTimeout > 0 {
		cfg.Assets.Timeout = env.FetchTimeout.String()
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
