package letter2pdf

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-letter2pdf/internal/fileutil"
	"github.com/alnah/go-letter2pdf/internal/process"
)

// DefaultRenderTimeout bounds a single page load.
const DefaultRenderTimeout = 30 * time.Second

const filePermissions = 0o644

// Renderer converts one HTML document into a PDF file at outputPath.
// A Renderer is used by one goroutine at a time.
type Renderer interface {
	Render(ctx context.Context, htmlContent, outputPath string) error
	Close() error
}

// pdfRenderer abstracts PDF rendering from an HTML file to enable testing without a browser.
type pdfRenderer interface {
	RenderFromFile(ctx context.Context, filePath string, layout PageLayout) ([]byte, error)
	Close() error
}

// Compile-time interface checks
var (
	_ Renderer    = (*rodConverter)(nil)
	_ pdfRenderer = (*rodRenderer)(nil)
)

// rodRenderer implements pdfRenderer using go-rod.
// Rod automatically downloads Chromium on first run if not found.
type rodRenderer struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
}

// newRodRenderer creates a rodRenderer with the given page-load timeout.
func newRodRenderer(timeout time.Duration) *rodRenderer {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return &rodRenderer{timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodRenderer) ensureBrowser() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = browser
	r.launcher = l
	return nil
}

// Close releases browser resources, including Chrome's helper processes.
func (r *rodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		pid := r.launcher.PID()
		r.launcher.Kill()
		process.KillProcessGroup(pid)
		r.launcher = nil
	}
	return err
}

// RenderFromFile opens a local HTML file in headless Chrome and prints it.
func (r *rodRenderer) RenderFromFile(ctx context.Context, filePath string, layout PageLayout) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: fileutil.FileURL(filePath)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	// Load waits for local images, which the builder pointed at disk.
	if err := page.Context(ctx).Timeout(timeout).WaitLoad(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	reader, err := page.Context(ctx).PDF(printOptions(layout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdfBuf, nil
}

// printOptions maps a PageLayout to Chrome's print parameters.
func printOptions(l PageLayout) *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(l.Width),
		PaperHeight:     floatPtr(l.Height),
		MarginTop:       floatPtr(l.MarginTop),
		MarginRight:     floatPtr(l.MarginRight),
		MarginBottom:    floatPtr(l.MarginBottom),
		MarginLeft:      floatPtr(l.MarginLeft),
		PrintBackground: l.PrintBackground,
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}

// rodConverter renders documents through a pdfRenderer and stores the result.
type rodConverter struct {
	renderer pdfRenderer
	layout   PageLayout
}

// newRodConverter creates a rodConverter with the production renderer.
func newRodConverter(timeout time.Duration, layout PageLayout) *rodConverter {
	return &rodConverter{
		renderer: newRodRenderer(timeout),
		layout:   layout,
	}
}

// Render writes htmlContent to a temp file, prints it, and stores the PDF at
// outputPath via rename so an interrupted write never leaves a partial file.
func (c *rodConverter) Render(ctx context.Context, htmlContent, outputPath string) error {
	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return err
	}
	defer cleanup()

	pdf, err := c.renderer.RenderFromFile(ctx, tmpPath, c.layout)
	if err != nil {
		return err
	}

	// #nosec G306 -- PDFs are meant to be readable
	if err := fileutil.WriteFileAtomic(outputPath, pdf, filePermissions); err != nil {
		return fmt.Errorf("%w: %v", ErrWritePDF, err)
	}
	return nil
}

// Close releases browser resources.
func (c *rodConverter) Close() error {
	if c.renderer != nil {
		return c.renderer.Close()
	}
	return nil
}
