// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-letter2pdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	hints = append(hints, "run 'letter2pdf doctor' to diagnose")

	return formatHints(hints)
}

// ForTimeout returns a hint about raising the per-message render timeout.
func ForTimeout() string {
	return format("messages with many remote images may need --timeout 2m")
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, "go-letter2pdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForMissingColumns explains what a valid export header looks like.
func ForMissingColumns(required []string) string {
	return format("the first row must name the columns " + strings.Join(required, ", ") +
		" (a TinyLetter CSV export has them)")
}

// ForCompanionFile tells the operator how to provide a stylesheet or cover page.
// flag is the CLI flag that overrides the default location.
func ForCompanionFile(flag string) string {
	return format("place the file in the working directory or pass " + flag)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check that the parent of --output-dir and --archive exists and is writable")
}

// ForDateFormat lists the accepted date format presets and tokens.
func ForDateFormat(presets []string) string {
	return format("use a preset (" + strings.Join(presets, ", ") +
		") or tokens like DD/MM/YYYY; wrap literal text in [brackets]")
}

// ForIncompleteArchive explains how to finish an archive after render failures.
func ForIncompleteArchive() string {
	return format("rerun the same command: finished messages are skipped and only failed ones are retried")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
