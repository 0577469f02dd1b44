package letter2pdf

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alnah/go-letter2pdf/internal/assets"
)

// fakeRenderer writes a small placeholder file instead of printing.
// hook, when set, runs before the write and may fail or stall the render.
type fakeRenderer struct {
	hook   func(ctx context.Context, htmlContent, outputPath string) error
	calls  *atomic.Int32
	closed atomic.Bool
}

func (f *fakeRenderer) Render(ctx context.Context, htmlContent, outputPath string) error {
	if f.calls != nil {
		f.calls.Add(1)
	}
	if f.hook != nil {
		if err := f.hook(ctx, htmlContent, outputPath); err != nil {
			return err
		}
	}
	return os.WriteFile(outputPath, []byte("%PDF-fake\n"+htmlContent), 0o644)
}

func (f *fakeRenderer) Close() error {
	f.closed.Store(true)
	return nil
}

// stubResolver fails every image; tests here do not exercise fetching.
type stubResolver struct{}

func (stubResolver) Resolve(context.Context, string) (assets.LocalAsset, error) {
	return assets.LocalAsset{}, assets.ErrFetch
}

// fakeEngine is an in-memory PDFEngine. Page counts are keyed by path;
// unknown paths are unreadable.
type fakeEngine struct {
	mu        sync.Mutex
	pages     map[string]int
	onDisk    bool // unknown paths that exist on disk count as one page
	merged    []string
	bookmarks []Bookmark
	info      Metadata
	outPath   string
	mergeErr  error
}

var errUnreadable = errors.New("not a PDF")

func (e *fakeEngine) PageCount(path string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.pages[path]
	if !ok {
		if e.onDisk {
			if _, err := os.Stat(path); err == nil {
				return 1, nil
			}
		}
		return 0, errUnreadable
	}
	return n, nil
}

func (e *fakeEngine) Assemble(_ context.Context, inputs []string, outPath string, bookmarks []Bookmark, info Metadata) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mergeErr != nil {
		return e.mergeErr
	}
	e.merged = append([]string(nil), inputs...)
	e.bookmarks = append([]Bookmark(nil), bookmarks...)
	e.info = info
	e.outPath = outPath
	return os.WriteFile(outPath, []byte("%PDF-merged"), 0o644)
}

// newFakePool builds a real RendererPool around fakeRenderers sharing hook
// and calls.
func newFakePool(t *testing.T, size int, hook func(context.Context, string, string) error, calls *atomic.Int32) *RendererPool {
	t.Helper()
	p := newRendererPool(size, func() (Renderer, error) {
		return &fakeRenderer{hook: hook, calls: calls}, nil
	})
	t.Cleanup(func() { _ = p.Close() })
	return p
}
