package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-letter2pdf/internal/dateutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrInvalidValue    = errors.New("invalid config value")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
)

// Defaults mirror the layout of a TinyLetter export run from its own folder.
const (
	DefaultOutputDir      = "pdfs"
	DefaultArchiveName    = "merged_emails.pdf"
	DefaultAssetDir       = "images"
	DefaultStylesheet     = "style.css"
	DefaultCover          = "coverpage.pdf"
	DefaultWorkers        = 4
	DefaultRenderTimeout  = "30s"
	DefaultFetchTimeout   = "30s"
	DefaultArchiveTitle   = "My TinyLetter Archive"
	DefaultArchiveCreator = "tinyletter2pdf v1"
)

// Policy values.
const (
	RenderFailureOmit = "omit"
	RenderFailureFail = "fail"

	UnreadableAbort = "abort"
	UnreadableSkip  = "skip"
)

// Limits.
const (
	MaxWorkers        = 32
	MaxMetadataLength = 200
	MaxPathLength     = 4096
)

// Config holds all configuration for an archive run.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Assets    AssetsConfig    `yaml:"assets"`
	Companion CompanionConfig `yaml:"companion"`
	Render    RenderConfig    `yaml:"render"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Policy    PolicyConfig    `yaml:"policy"`
}

// InputConfig defines the input table.
type InputConfig struct {
	Path string `yaml:"path"` // CSV export (empty = ask interactively)
}

// OutputConfig defines where PDFs land.
type OutputConfig struct {
	Dir     string `yaml:"dir"`     // per-message PDFs
	Archive string `yaml:"archive"` // merged archive path
}

// AssetsConfig defines the local image cache.
type AssetsConfig struct {
	Dir       string  `yaml:"dir"`
	Timeout   string  `yaml:"timeout"`   // Go duration, per image fetch
	RateLimit float64 `yaml:"rateLimit"` // fetches per second, 0 = unlimited
}

// CompanionConfig locates the fixed files every run needs.
type CompanionConfig struct {
	Stylesheet string `yaml:"stylesheet"`
	Cover      string `yaml:"cover"`
}

// RenderConfig defines the render worker pool.
type RenderConfig struct {
	Workers    int    `yaml:"workers"`
	Timeout    string `yaml:"timeout"`    // Go duration, per page load
	DateFormat string `yaml:"dateFormat"` // preset or tokens; empty = as exported
}

// ArchiveConfig defines metadata stamped on the merged archive.
type ArchiveConfig struct {
	Title    string `yaml:"title"`
	Creator  string `yaml:"creator"`
	Optimize bool   `yaml:"optimize"` // deduplicate shared fonts and images
}

// PolicyConfig defines how partial failures are handled.
type PolicyConfig struct {
	OnRenderFailure string `yaml:"onRenderFailure"` // "omit" or "fail"
	OnUnreadablePDF string `yaml:"onUnreadablePDF"` // "abort" or "skip"
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:     DefaultOutputDir,
			Archive: DefaultArchiveName,
		},
		Assets: AssetsConfig{
			Dir:     DefaultAssetDir,
			Timeout: DefaultFetchTimeout,
		},
		Companion: CompanionConfig{
			Stylesheet: DefaultStylesheet,
			Cover:      DefaultCover,
		},
		Render: RenderConfig{
			Workers: DefaultWorkers,
			Timeout: DefaultRenderTimeout,
		},
		Archive: ArchiveConfig{
			Title:   DefaultArchiveTitle,
			Creator: DefaultArchiveCreator,
		},
		Policy: PolicyConfig{
			OnRenderFailure: RenderFailureOmit,
			OnUnreadablePDF: UnreadableAbort,
		},
	}
}

// Validate checks values and lengths.
// Called automatically by LoadConfig, and again by the CLI after flags and
// environment overrides are merged.
func (c *Config) Validate() error {
	if c.Render.Workers < 0 || c.Render.Workers > MaxWorkers {
		return fmt.Errorf("%w: render.workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Render.Workers)
	}
	if _, err := parseDuration("render.timeout", c.Render.Timeout); err != nil {
		return err
	}
	if _, err := parseDuration("assets.timeout", c.Assets.Timeout); err != nil {
		return err
	}
	if _, err := dateutil.ResolveFormat(c.Render.DateFormat); err != nil {
		return fmt.Errorf("%w: render.dateFormat: %w", ErrInvalidValue, err)
	}
	if c.Assets.RateLimit < 0 {
		return fmt.Errorf("%w: assets.rateLimit must not be negative, got %.2f", ErrInvalidValue, c.Assets.RateLimit)
	}

	switch strings.ToLower(c.Policy.OnRenderFailure) {
	case "", RenderFailureOmit, RenderFailureFail:
	default:
		return fmt.Errorf("%w: policy.onRenderFailure %q (must be omit or fail)", ErrInvalidValue, c.Policy.OnRenderFailure)
	}
	switch strings.ToLower(c.Policy.OnUnreadablePDF) {
	case "", UnreadableAbort, UnreadableSkip:
	default:
		return fmt.Errorf("%w: policy.onUnreadablePDF %q (must be abort or skip)", ErrInvalidValue, c.Policy.OnUnreadablePDF)
	}

	if err := validateFieldLength("archive.title", c.Archive.Title, MaxMetadataLength); err != nil {
		return err
	}
	if err := validateFieldLength("archive.creator", c.Archive.Creator, MaxMetadataLength); err != nil {
		return err
	}
	for name, p := range map[string]string{
		"input.path":           c.Input.Path,
		"output.dir":           c.Output.Dir,
		"output.archive":       c.Output.Archive,
		"assets.dir":           c.Assets.Dir,
		"companion.stylesheet": c.Companion.Stylesheet,
		"companion.cover":      c.Companion.Cover,
	} {
		if err := validateFieldLength(name, p, MaxPathLength); err != nil {
			return err
		}
	}
	return nil
}

// RenderTimeout returns render.timeout, or zero when unset.
// Validate must have succeeded.
func (c *Config) RenderTimeout() time.Duration {
	d, _ := parseDuration("render.timeout", c.Render.Timeout)
	return d
}

// FetchTimeout returns assets.timeout, or zero when unset.
// Validate must have succeeded.
func (c *Config) FetchTimeout() time.Duration {
	d, _ := parseDuration("assets.timeout", c.Assets.Timeout)
	return d
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidValue, field, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidValue, field, s)
	}
	return d, nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's searched as a name in standard locations.
// Fields absent from the file keep their DefaultConfig values.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := decodeStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, <user config dir>/go-letter2pdf/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-letter2pdf", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
