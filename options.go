package letter2pdf

import (
	"log/slog"
	"time"

	"github.com/alnah/go-letter2pdf/internal/pipeline"
)

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	workers       int
	renderTimeout time.Duration
	taskTimeout   time.Duration
	assetDir      string
	fetchTimeout  time.Duration
	fetchRate     float64
	layout        PageLayout
	metadata      Metadata
	renderPolicy  RenderFailurePolicy
	unreadable    UnreadablePolicy
	optimize      bool
	dateFormat    string

	// Test seams.
	pool     Pool
	engine   PDFEngine
	resolver pipeline.ImageResolver
}

// DefaultAssetDir is where fetched images are kept when none is configured.
const DefaultAssetDir = "images"

func defaultConverterConfig() converterConfig {
	return converterConfig{
		workers:       DefaultWorkers,
		renderTimeout: DefaultRenderTimeout,
		assetDir:      DefaultAssetDir,
		layout:        LetterLayout(),
		metadata:      Metadata{Title: DefaultArchiveTitle, Creator: DefaultArchiveCreator},
	}
}

// WithWorkers sets the number of concurrent renderers (browsers).
// Values are clamped by ResolvePoolSize.
func WithWorkers(n int) Option {
	return func(c *Converter) {
		c.cfg.workers = ResolvePoolSize(n)
	}
}

// WithRenderTimeout sets the page-load timeout of each render.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithRenderTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("letter2pdf: WithRenderTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.renderTimeout = d
	}
}

// WithMessageTimeout bounds the whole task of one message, image fetches
// included. Zero disables the bound.
func WithMessageTimeout(d time.Duration) Option {
	return func(c *Converter) {
		c.cfg.taskTimeout = d
	}
}

// WithAssetDir sets the directory fetched images are stored in.
func WithAssetDir(dir string) Option {
	return func(c *Converter) {
		if dir != "" {
			c.cfg.assetDir = dir
		}
	}
}

// WithFetchTimeout sets the timeout of each image download.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Converter) {
		c.cfg.fetchTimeout = d
	}
}

// WithFetchRateLimit caps image downloads per second. Zero means unlimited.
func WithFetchRateLimit(perSecond float64) Option {
	return func(c *Converter) {
		c.cfg.fetchRate = perSecond
	}
}

// WithLayout replaces the Letter layout.
func WithLayout(l PageLayout) Option {
	return func(c *Converter) {
		c.cfg.layout = l
	}
}

// WithArchiveMetadata sets the title and creator of the archive.
func WithArchiveMetadata(m Metadata) Option {
	return func(c *Converter) {
		if m.Title != "" {
			c.cfg.metadata.Title = m.Title
		}
		if m.Creator != "" {
			c.cfg.metadata.Creator = m.Creator
		}
	}
}

// WithRenderFailurePolicy sets what failed messages do to the archive.
func WithRenderFailurePolicy(p RenderFailurePolicy) Option {
	return func(c *Converter) {
		c.cfg.renderPolicy = p
	}
}

// WithUnreadablePDFPolicy sets what unreadable message PDFs do at merge time.
func WithUnreadablePDFPolicy(p UnreadablePolicy) Option {
	return func(c *Converter) {
		c.cfg.unreadable = p
	}
}

// WithOptimizedArchive deduplicates shared resources in the archive.
func WithOptimizedArchive(on bool) Option {
	return func(c *Converter) {
		c.cfg.optimize = on
	}
}

// WithDateFormat rewrites the "Sent on" line of every message with format,
// a preset (iso, european, us, long) or tokens such as "DD/MM/YYYY".
// Timestamps that cannot be parsed are printed as exported.
func WithDateFormat(format string) Option {
	return func(c *Converter) {
		c.cfg.dateFormat = format
	}
}

// WithLogger sets the logger shared by every stage.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

func withPool(p Pool) Option {
	return func(c *Converter) {
		c.cfg.pool = p
	}
}

func withPDFEngine(e PDFEngine) Option {
	return func(c *Converter) {
		c.cfg.engine = e
	}
}

func withImageResolver(r pipeline.ImageResolver) Option {
	return func(c *Converter) {
		c.cfg.resolver = r
	}
}
