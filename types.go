package letter2pdf

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Page dimensions in inches.
const (
	LetterWidth  = 8.5
	LetterHeight = 11.0
	MaxMargin    = 3.0
)

// ErrInvalidLayout indicates page margins that leave no printable area.
var ErrInvalidLayout = errors.New("invalid page layout")

// Record is one row of the exported message table.
// Index is the row's 0-based position among data rows and the only
// ordering key downstream.
type Record struct {
	Index     int
	Subject   string
	Body      string
	CreatedAt string
}

// Title returns the bookmark title for the record.
// Records without a subject are titled by position.
func (r Record) Title() string {
	if s := strings.TrimSpace(r.Subject); s != "" {
		return s
	}
	return "Message " + strconv.Itoa(r.Index+1)
}

// Artifact is a per-message PDF on disk.
type Artifact struct {
	Path    string
	Index   int
	Skipped bool // existed before this run
}

// Bookmark is one outline entry of the archive.
// StartPage is 0-based: the cover's first page is 0.
type Bookmark struct {
	Title     string
	Index     int
	StartPage int
}

// Archive describes a written merged archive.
type Archive struct {
	Path      string
	Pages     int
	Bookmarks []Bookmark
	// Omitted holds indices left out because their PDF was unreadable
	// under the skip policy.
	Omitted []int
}

// PageLayout is the fixed print configuration handed to the renderer.
type PageLayout struct {
	Width           float64 // inches
	Height          float64
	MarginTop       float64
	MarginRight     float64
	MarginBottom    float64
	MarginLeft      float64
	PrintBackground bool
}

// LetterLayout returns US Letter with the archive's asymmetric margins.
func LetterLayout() PageLayout {
	return PageLayout{
		Width:           LetterWidth,
		Height:          LetterHeight,
		MarginTop:       0.25,
		MarginRight:     0.5,
		MarginBottom:    0.25,
		MarginLeft:      0.5,
		PrintBackground: true,
	}
}

// Validate checks that every margin is within bounds and leaves room to print.
func (l PageLayout) Validate() error {
	for name, m := range map[string]float64{
		"top": l.MarginTop, "right": l.MarginRight,
		"bottom": l.MarginBottom, "left": l.MarginLeft,
	} {
		if m < 0 || m > MaxMargin {
			return fmt.Errorf("%w: %s margin %.2f (must be between 0 and %.2f)", ErrInvalidLayout, name, m, MaxMargin)
		}
	}
	if l.Width-l.MarginLeft-l.MarginRight <= 0 || l.Height-l.MarginTop-l.MarginBottom <= 0 {
		return fmt.Errorf("%w: margins exceed page size", ErrInvalidLayout)
	}
	return nil
}

// RenderFailurePolicy decides what a failed message does to the archive.
type RenderFailurePolicy int

const (
	// OmitFailed merges the messages that rendered and reports the rest.
	OmitFailed RenderFailurePolicy = iota
	// FailOnMissing refuses to merge when any message failed.
	FailOnMissing
)

// UnreadablePolicy decides what an unreadable per-message PDF does at merge.
type UnreadablePolicy int

const (
	// AbortMerge stops the merge and writes no archive.
	AbortMerge UnreadablePolicy = iota
	// SkipUnreadable leaves the message out of the archive.
	SkipUnreadable
)

// ParseRenderFailurePolicy maps "omit" and "fail" (any case) to a policy.
// The empty string means OmitFailed.
func ParseRenderFailurePolicy(s string) (RenderFailurePolicy, error) {
	switch strings.ToLower(s) {
	case "", "omit":
		return OmitFailed, nil
	case "fail":
		return FailOnMissing, nil
	}
	return OmitFailed, fmt.Errorf("unknown render failure policy %q", s)
}

// ParseUnreadablePolicy maps "abort" and "skip" (any case) to a policy.
// The empty string means AbortMerge.
func ParseUnreadablePolicy(s string) (UnreadablePolicy, error) {
	switch strings.ToLower(s) {
	case "", "abort":
		return AbortMerge, nil
	case "skip":
		return SkipUnreadable, nil
	}
	return AbortMerge, fmt.Errorf("unknown unreadable PDF policy %q", s)
}

// OutputPath returns the deterministic per-message PDF path for index.
func OutputPath(dir string, index int) string {
	return filepath.Join(dir, "email_"+strconv.Itoa(index)+".pdf")
}
