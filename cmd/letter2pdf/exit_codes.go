package main

import (
	"errors"
	"os"

	letter2pdf "github.com/alnah/go-letter2pdf"
	"github.com/alnah/go-letter2pdf/internal/config"
)

// Exit codes for the letter2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess    = 0 // Archive written with every message
	ExitGeneral    = 1 // General/unexpected error, including interruption
	ExitUsage      = 2 // Invalid flags, config, input table or companion files
	ExitIO         = 3 // File not found, permission denied, merge failure
	ExitBrowser    = 4 // Browser/Chrome errors
	ExitIncomplete = 5 // Archive written or refused with messages missing
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, letter2pdf.ErrIncompleteArchive) {
		return ExitIncomplete
	}

	// Browser errors (exit 4)
	if errors.Is(err, letter2pdf.ErrBrowserConnect) ||
		errors.Is(err, letter2pdf.ErrRendererInit) ||
		errors.Is(err, letter2pdf.ErrPageCreate) ||
		errors.Is(err, letter2pdf.ErrPageLoad) ||
		errors.Is(err, letter2pdf.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, letter2pdf.ErrWritePDF) ||
		errors.Is(err, letter2pdf.ErrMerge) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, letter2pdf.ErrMissingColumns) ||
		errors.Is(err, letter2pdf.ErrEmptyTable) ||
		errors.Is(err, letter2pdf.ErrStylesheetNotFound) ||
		errors.Is(err, letter2pdf.ErrCoverNotFound) ||
		errors.Is(err, letter2pdf.ErrInvalidLayout) ||
		errors.Is(err, letter2pdf.ErrInvalidDateFormat) ||
		errors.Is(err, letter2pdf.ErrDuplicateIndex) ||
		errors.Is(err, letter2pdf.ErrInvalidIndex) ||
		errors.Is(err, ErrInvalidFlags) ||
		errors.Is(err, ErrUnknownCommand) {
		return ExitUsage
	}

	return ExitGeneral
}
