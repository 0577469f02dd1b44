package main

// Notes:
// - Tests go through runDoctorCmd() and its JSON output. Chrome detection
//   depends on the host, so only consistency between status and exit code
//   is asserted for it.
// - Container and CI detection tests use t.Setenv() and cannot run in parallel.

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func runDoctorJSON(t *testing.T, args ...string) (doctorResult, int) {
	t.Helper()

	var stdout bytes.Buffer
	env := &Environment{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	code := runDoctorCmd(append([]string{"--json"}, args...), env)

	var result doctorResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout.String())
	}
	return result, code
}

func writeCompanions(t *testing.T) (style, cover string) {
	t.Helper()

	dir := t.TempDir()
	style = filepath.Join(dir, "style.css")
	cover = filepath.Join(dir, "coverpage.pdf")
	if err := os.WriteFile(style, []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cover, []byte("%PDF-1.4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return style, cover
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_JSONOutput - Structure and exit code consistency
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_JSONOutput(t *testing.T) {
	t.Parallel()

	style, cover := writeCompanions(t)
	result, code := runDoctorJSON(t, "--style", style, "--cover", cover)

	if result.Env.OS != runtime.GOOS || result.Env.Arch != runtime.GOARCH {
		t.Errorf("platform = %s/%s, want %s/%s", result.Env.OS, result.Env.Arch, runtime.GOOS, runtime.GOARCH)
	}

	valid := map[string]bool{"ready": true, "warnings": true, "errors": true}
	if !valid[result.Status] {
		t.Errorf("invalid status %q", result.Status)
	}
	if result.Status == "errors" && code != ExitGeneral {
		t.Errorf("exit code = %d for errors status, want %d", code, ExitGeneral)
	}
	if result.Status != "errors" && code != ExitSuccess {
		t.Errorf("exit code = %d for %s status, want %d", code, result.Status, ExitSuccess)
	}
	if !result.System.TempWritable {
		t.Error("temp directory should be writable in tests")
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_Companions - Companion file checks
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_Companions(t *testing.T) {
	t.Parallel()

	style, cover := writeCompanions(t)
	missing := filepath.Join(t.TempDir(), "absent.pdf")

	tests := []struct {
		name      string
		args      []string
		wantStyle bool
		wantCover bool
		wantError string
	}{
		{
			name:      "both present",
			args:      []string{"--style", style, "--cover", cover},
			wantStyle: true,
			wantCover: true,
		},
		{
			name:      "cover missing",
			args:      []string{"--style", style, "--cover", missing},
			wantStyle: true,
			wantError: "Cover page",
		},
		{
			name:      "stylesheet missing",
			args:      []string{"--style", missing, "--cover", cover},
			wantCover: true,
			wantError: "Stylesheet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, code := runDoctorJSON(t, tt.args...)

			if result.Companions.StylesheetFound != tt.wantStyle {
				t.Errorf("StylesheetFound = %v, want %v", result.Companions.StylesheetFound, tt.wantStyle)
			}
			if result.Companions.CoverFound != tt.wantCover {
				t.Errorf("CoverFound = %v, want %v", result.Companions.CoverFound, tt.wantCover)
			}
			if tt.wantError == "" {
				return
			}
			if code != ExitGeneral || result.Status != "errors" {
				t.Errorf("status = %q, code = %d, want errors/%d", result.Status, code, ExitGeneral)
			}
			if !strings.Contains(strings.Join(result.Errors, "\n"), tt.wantError) {
				t.Errorf("errors %v should mention %q", result.Errors, tt.wantError)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_HumanOutput - Section headers
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_HumanOutput(t *testing.T) {
	t.Parallel()

	style, cover := writeCompanions(t)
	var stdout bytes.Buffer
	env := &Environment{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	runDoctorCmd([]string{"--style", style, "--cover", cover}, env)

	output := stdout.String()
	for _, section := range []string{
		"letter2pdf doctor",
		"Chrome/Chromium",
		"Environment",
		"System",
		"Companion files",
		"Status:",
		runtime.GOOS + "/" + runtime.GOARCH,
	} {
		if !strings.Contains(output, section) {
			t.Errorf("output should contain %q", section)
		}
	}
}

func TestRunDoctorCmd_BadFlag(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	env := &Environment{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	if code := runDoctorCmd([]string{"--colour"}, env); code != ExitUsage {
		t.Errorf("exit code = %d, want %d", code, ExitUsage)
	}
	if !strings.Contains(stderr.String(), "colour") {
		t.Errorf("stderr should name the bad flag, got %q", stderr.String())
	}
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd_ContainerDetection - Container and CI signals
// ---------------------------------------------------------------------------

func clearDetectionEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"LETTER2PDF_CONTAINER", "container", "KUBERNETES_SERVICE_HOST",
		"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI",
	} {
		t.Setenv(v, "")
	}
}

func TestRunDoctorCmd_ContainerDetection(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envVal   string
		wantHint string
	}{
		{"explicit override", "LETTER2PDF_CONTAINER", "1", "LETTER2PDF_CONTAINER=1"},
		{"kubernetes", "KUBERNETES_SERVICE_HOST", "10.0.0.1", "KUBERNETES_SERVICE_HOST"},
		{"podman", "container", "podman", "container=podman"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearDetectionEnv(t)
			t.Setenv(tt.envVar, tt.envVal)

			result, _ := runDoctorJSON(t)

			if !result.Env.Container {
				t.Error("container should be detected")
			}
			// /.dockerenv outranks everything except the explicit override.
			if result.Env.ContainerHint != tt.wantHint && result.Env.ContainerHint != "/.dockerenv" {
				t.Errorf("ContainerHint = %q, want %q", result.Env.ContainerHint, tt.wantHint)
			}
		})
	}
}

func TestRunDoctorCmd_SandboxWarning(t *testing.T) {
	clearDetectionEnv(t)
	t.Setenv("CI", "true")
	t.Setenv("ROD_NO_SANDBOX", "")

	result, _ := runDoctorJSON(t)

	if !result.Env.CI {
		t.Fatal("CI should be detected")
	}
	if !strings.Contains(strings.Join(result.Warnings, "\n"), "ROD_NO_SANDBOX") {
		t.Errorf("warnings %v should suggest ROD_NO_SANDBOX", result.Warnings)
	}
}
