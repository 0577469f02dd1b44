package main

// Notes:
// - Tests use t.Setenv() which prevents t.Parallel().
// - loadEnvConfig: invalid and negative numbers are ignored, not errors.
// - applyEnvConfig: env values override the file, unset ones leave it alone.

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/alnah/go-letter2pdf/internal/config"
)

// ---------------------------------------------------------------------------
// TestLoadEnvConfig - Environment variable loading
// ---------------------------------------------------------------------------

func TestLoadEnvConfig(t *testing.T) {
	t.Run("paths and metadata", func(t *testing.T) {
		t.Setenv("LETTER2PDF_CONFIG", "/etc/letter2pdf.yaml")
		t.Setenv("LETTER2PDF_INPUT", "export.csv")
		t.Setenv("LETTER2PDF_OUTPUT_DIR", "/out")
		t.Setenv("LETTER2PDF_ARCHIVE", "/out/all.pdf")
		t.Setenv("LETTER2PDF_ASSETS_DIR", "/cache")
		t.Setenv("LETTER2PDF_STYLE", "letter.css")
		t.Setenv("LETTER2PDF_COVER", "front.pdf")
		t.Setenv("LETTER2PDF_TITLE", "Field Notes")
		t.Setenv("LETTER2PDF_CREATOR", "ops")
		t.Setenv("LETTER2PDF_DATE_FORMAT", "long")

		cfg := loadEnvConfig()

		checks := map[string][2]string{
			"ConfigPath": {cfg.ConfigPath, "/etc/letter2pdf.yaml"},
			"Input":      {cfg.Input, "export.csv"},
			"OutputDir":  {cfg.OutputDir, "/out"},
			"Archive":    {cfg.Archive, "/out/all.pdf"},
			"AssetsDir":  {cfg.AssetsDir, "/cache"},
			"Stylesheet": {cfg.Stylesheet, "letter.css"},
			"Cover":      {cfg.Cover, "front.pdf"},
			"Title":      {cfg.Title, "Field Notes"},
			"Creator":    {cfg.Creator, "ops"},
			"DateFormat": {cfg.DateFormat, "long"},
		}
		for field, c := range checks {
			if c[0] != c[1] {
				t.Errorf("%s = %q, want %q", field, c[0], c[1])
			}
		}
	})

	t.Run("numbers and durations", func(t *testing.T) {
		t.Setenv("LETTER2PDF_WORKERS", "8")
		t.Setenv("LETTER2PDF_TIMEOUT", "2m")
		t.Setenv("LETTER2PDF_FETCH_TIMEOUT", "10s")

		cfg := loadEnvConfig()

		if cfg.Workers != 8 {
			t.Errorf("Workers = %d, want 8", cfg.Workers)
		}
		if cfg.Timeout != 2*time.Minute {
			t.Errorf("Timeout = %v, want 2m", cfg.Timeout)
		}
		if cfg.FetchTimeout != 10*time.Second {
			t.Errorf("FetchTimeout = %v, want 10s", cfg.FetchTimeout)
		}
	})

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid timeout ignored", "LETTER2PDF_TIMEOUT", "soon"},
		{"negative timeout ignored", "LETTER2PDF_TIMEOUT", "-5s"},
		{"invalid fetch timeout ignored", "LETTER2PDF_FETCH_TIMEOUT", "later"},
		{"invalid workers ignored", "LETTER2PDF_WORKERS", "abc"},
		{"negative workers ignored", "LETTER2PDF_WORKERS", "-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			cfg := loadEnvConfig()

			if cfg.Workers != 0 || cfg.Timeout != 0 || cfg.FetchTimeout != 0 {
				t.Errorf("got workers=%d timeout=%v fetch=%v, want zero values",
					cfg.Workers, cfg.Timeout, cfg.FetchTimeout)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWarnUnknownEnvVars - Typo detection
// ---------------------------------------------------------------------------

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Run("unknown variable warns", func(t *testing.T) {
		t.Setenv("LETTER2PDF_WORKER", "3")

		var buf bytes.Buffer
		warnUnknownEnvVars(&buf)

		if !strings.Contains(buf.String(), "LETTER2PDF_WORKER ") {
			t.Errorf("expected warning for LETTER2PDF_WORKER, got %q", buf.String())
		}
	})

	t.Run("known variables stay quiet", func(t *testing.T) {
		t.Setenv("LETTER2PDF_WORKERS", "3")
		t.Setenv("LETTER2PDF_STYLE", "style.css")

		var buf bytes.Buffer
		warnUnknownEnvVars(&buf)

		if strings.Contains(buf.String(), "LETTER2PDF_WORKERS") || strings.Contains(buf.String(), "LETTER2PDF_STYLE") {
			t.Errorf("known variables should not warn, got %q", buf.String())
		}
	})
}

// ---------------------------------------------------------------------------
// TestApplyEnvConfig - Priority over the config file
// ---------------------------------------------------------------------------

func TestApplyEnvConfig(t *testing.T) {
	t.Parallel()

	t.Run("set values override the file", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Output.Dir = "from-yaml"
		env := &envConfig{
			OutputDir:       "from-env",
			Workers:         6,
			Timeout:         time.Minute,
			OnRenderFailure: "fail",
		}

		applyEnvConfig(env, cfg)

		if cfg.Output.Dir != "from-env" {
			t.Errorf("Output.Dir = %q, want from-env", cfg.Output.Dir)
		}
		if cfg.Render.Workers != 6 {
			t.Errorf("Render.Workers = %d, want 6", cfg.Render.Workers)
		}
		if cfg.Render.Timeout != "1m0s" {
			t.Errorf("Render.Timeout = %q, want 1m0s", cfg.Render.Timeout)
		}
		if cfg.Policy.OnRenderFailure != "fail" {
			t.Errorf("Policy.OnRenderFailure = %q, want fail", cfg.Policy.OnRenderFailure)
		}
	})

	t.Run("unset values keep the file", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Archive.Title = "from-yaml"

		applyEnvConfig(&envConfig{}, cfg)

		if cfg.Archive.Title != "from-yaml" {
			t.Errorf("Archive.Title = %q, want from-yaml", cfg.Archive.Title)
		}
		if cfg.Render.Workers != config.DefaultWorkers {
			t.Errorf("Render.Workers = %d, want default %d", cfg.Render.Workers, config.DefaultWorkers)
		}
	})
}
