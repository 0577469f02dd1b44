package letter2pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
)

// Metadata is stamped on the archive's document information dictionary.
type Metadata struct {
	Title   string
	Creator string
}

// Archive metadata defaults.
const (
	DefaultArchiveTitle   = "My TinyLetter Archive"
	DefaultArchiveCreator = "tinyletter2pdf v1"
)

// PDFEngine is the PDF manipulation capability the merger relies on.
type PDFEngine interface {
	// PageCount returns the number of pages of the PDF at path.
	PageCount(path string) (int, error)
	// Assemble concatenates inputs into outPath, replaces its outline with
	// bookmarks and sets its metadata.
	Assemble(ctx context.Context, inputs []string, outPath string, bookmarks []Bookmark, info Metadata) error
}

// Merger concatenates a cover page and per-message PDFs into one archive.
type Merger struct {
	engine   PDFEngine
	cover    string
	info     Metadata
	policy   UnreadablePolicy
	optimize bool
	logger   *slog.Logger
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithPDFEngine replaces the pdfcpu engine.
func WithPDFEngine(e PDFEngine) MergerOption {
	return func(m *Merger) {
		if e != nil {
			m.engine = e
		}
	}
}

// WithMetadata sets the archive title and creator. Empty fields keep defaults.
func WithMetadata(info Metadata) MergerOption {
	return func(m *Merger) {
		if info.Title != "" {
			m.info.Title = info.Title
		}
		if info.Creator != "" {
			m.info.Creator = info.Creator
		}
	}
}

// WithUnreadablePolicy sets what happens to a message PDF that cannot be read.
func WithUnreadablePolicy(p UnreadablePolicy) MergerOption {
	return func(m *Merger) {
		m.policy = p
	}
}

// WithOptimize deduplicates shared fonts and images across messages before
// the outline is written. Only applies to the pdfcpu engine.
func WithOptimize(on bool) MergerOption {
	return func(m *Merger) {
		m.optimize = on
	}
}

// WithMergerLogger sets the logger for merge events.
func WithMergerLogger(l *slog.Logger) MergerOption {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMerger creates a Merger prepending the PDF at cover to every archive.
func NewMerger(cover string, opts ...MergerOption) *Merger {
	m := &Merger{
		engine: newPDFCPUEngine(),
		cover:  cover,
		info:   Metadata{Title: DefaultArchiveTitle, Creator: DefaultArchiveCreator},
		policy: AbortMerge,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if e, ok := m.engine.(*pdfcpuEngine); ok {
		e.optimize = m.optimize
	}
	return m
}

// Merge writes the archive to outputPath. Artifacts are merged by ascending
// Index whatever their order in the slice; titles supplies bookmark titles
// by index, falling back to "Message N".
//
// Bookmark pages are 0-based and cumulative: the first message starts right
// after the cover, each next one after the pages of all previous ones.
// The archive is staged next to outputPath and renamed into place, so a
// failed merge leaves any previous archive untouched.
func (m *Merger) Merge(ctx context.Context, artifacts []Artifact, titles map[int]string, outputPath string) (*Archive, error) {
	coverPages, err := m.pageCount(m.cover)
	if err != nil {
		return nil, &MergeError{Index: -1, Path: m.cover, Err: err}
	}

	ordered := slices.Clone(artifacts)
	slices.SortStableFunc(ordered, func(a, b Artifact) int { return a.Index - b.Index })

	archive := &Archive{Path: outputPath}
	inputs := []string{m.cover}
	offset := coverPages

	for _, a := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := m.pageCount(a.Path)
		if err != nil {
			if m.policy == SkipUnreadable {
				m.logger.Warn("unreadable PDF skipped", "index", a.Index, "path", a.Path, "err", err)
				archive.Omitted = append(archive.Omitted, a.Index)
				continue
			}
			return nil, &MergeError{Index: a.Index, Path: a.Path, Err: err}
		}

		archive.Bookmarks = append(archive.Bookmarks, Bookmark{
			Title:     bookmarkTitle(titles, a.Index),
			Index:     a.Index,
			StartPage: offset,
		})
		inputs = append(inputs, a.Path)
		offset += n
	}
	archive.Pages = offset

	if err := m.assemble(ctx, inputs, outputPath, archive.Bookmarks); err != nil {
		return nil, err
	}

	m.logger.Info("archive written",
		"path", outputPath,
		"pages", archive.Pages,
		"messages", len(archive.Bookmarks),
		"omitted", len(archive.Omitted))
	return archive, nil
}

// pageCount treats a PDF without pages as unreadable.
func (m *Merger) pageCount(path string) (int, error) {
	n, err := m.engine.PageCount(path)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("document has no pages")
	}
	return n, nil
}

func (m *Merger) assemble(ctx context.Context, inputs []string, outputPath string, bookmarks []Bookmark) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("%w: creating archive directory: %v", ErrMerge, err)
	}

	stageDir, err := os.MkdirTemp(dir, ".letter2pdf-merge-*")
	if err != nil {
		return fmt.Errorf("%w: creating staging directory: %v", ErrMerge, err)
	}
	defer func() { _ = os.RemoveAll(stageDir) }()

	staged := filepath.Join(stageDir, filepath.Base(outputPath))
	if err := m.engine.Assemble(ctx, inputs, staged, bookmarks, m.info); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrMerge, err)
	}

	if err := os.Rename(staged, outputPath); err != nil {
		return fmt.Errorf("%w: moving archive into place: %v", ErrMerge, err)
	}
	return nil
}

func bookmarkTitle(titles map[int]string, index int) string {
	return Record{Index: index, Subject: titles[index]}.Title()
}
