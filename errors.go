package letter2pdf

import (
	"errors"
	"fmt"

	"github.com/alnah/go-letter2pdf/internal/dateutil"
)

// Sentinel errors for library operations.
var (
	// Configuration errors, fatal before any work begins.
	ErrMissingColumns     = errors.New("input table is missing required columns")
	ErrEmptyTable         = errors.New("input table has no header row")
	ErrStylesheetNotFound = errors.New("stylesheet file not found")
	ErrCoverNotFound      = errors.New("cover page file not found")
	ErrInvalidDateFormat  = dateutil.ErrInvalidDateFormat

	// Render errors, contained to one message.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrWritePDF       = errors.New("failed to write PDF file")
	ErrBuildDocument  = errors.New("failed to build message document")
	ErrRendererInit   = errors.New("failed to initialize renderer")

	// Batch and merge errors.
	ErrDuplicateIndex    = errors.New("duplicate sequence index")
	ErrInvalidIndex      = errors.New("invalid sequence index")
	ErrMerge             = errors.New("archive merge failed")
	ErrIncompleteArchive = errors.New("archive is missing messages")
)

// RenderError reports a message that produced no PDF.
type RenderError struct {
	Index int
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("message %d: %v", e.Index, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// MergeError reports a per-message PDF that could not be read at merge time.
// Index is -1 for the cover page.
type MergeError struct {
	Index int
	Path  string
	Err   error
}

func (e *MergeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: cover %s: %v", ErrMerge, e.Path, e.Err)
	}
	return fmt.Sprintf("%v: message %d (%s): %v", ErrMerge, e.Index, e.Path, e.Err)
}

func (e *MergeError) Unwrap() []error {
	return []error{ErrMerge, e.Err}
}
