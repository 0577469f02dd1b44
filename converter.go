package letter2pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/alnah/go-letter2pdf/internal/assets"
	"github.com/alnah/go-letter2pdf/internal/dateutil"
	"github.com/alnah/go-letter2pdf/internal/pipeline"
)

// Companions are the fixed files every run needs.
type Companions struct {
	Stylesheet string // linked and inlined into every message
	Cover      string // PDF prepended to every archive
}

// ValidateCompanions checks that both companion files exist and are regular files.
func ValidateCompanions(c Companions) error {
	if err := checkRegularFile(c.Stylesheet); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStylesheetNotFound, c.Stylesheet, err)
	}
	if err := checkRegularFile(c.Cover); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCoverNotFound, c.Cover, err)
	}
	return nil
}

func checkRegularFile(path string) error {
	if path == "" {
		return errors.New("no path given")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return errors.New("not a regular file")
	}
	return nil
}

// Input describes one archive run.
type Input struct {
	Records     []Record
	OutputDir   string // per-message PDFs
	ArchivePath string // merged archive
}

// Result is the outcome of a run. Archive is nil when no merge happened.
type Result struct {
	Batch   *BatchResult
	Archive *Archive
}

// Missing returns the indices absent from the archive, whether they failed
// to render or were skipped as unreadable at merge time.
func (r *Result) Missing() []int {
	var out []int
	if r.Batch != nil {
		out = append(out, r.Batch.Missing()...)
	}
	if r.Archive != nil {
		out = append(out, r.Archive.Omitted...)
	}
	slices.Sort(out)
	return out
}

// Incomplete reports whether any message is absent from the archive.
func (r *Result) Incomplete() bool {
	return len(r.Missing()) > 0
}

// Converter runs the whole pipeline: build, render in parallel, merge.
// Create with NewConverter, call Convert, and Close when done.
type Converter struct {
	cfg        converterConfig
	companions Companions
	logger     *slog.Logger
	pool       Pool
	builder    DocumentBuilder
}

// NewConverter creates a Converter for the given companion files.
// Fails with ErrStylesheetNotFound or ErrCoverNotFound before anything is
// created on disk.
func NewConverter(companions Companions, opts ...Option) (*Converter, error) {
	c := &Converter{
		cfg:        defaultConverterConfig(),
		companions: companions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := ValidateCompanions(companions); err != nil {
		return nil, err
	}
	if err := c.cfg.layout.Validate(); err != nil {
		return nil, err
	}

	css, err := os.ReadFile(companions.Stylesheet) // #nosec G304 -- operator-provided path
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStylesheetNotFound, err)
	}

	resolver := c.cfg.resolver
	if resolver == nil {
		r, err := assets.NewResolver(c.cfg.assetDir,
			assets.WithTimeout(c.cfg.fetchTimeout),
			assets.WithRateLimit(c.cfg.fetchRate),
			assets.WithLogger(c.logger),
		)
		if err != nil {
			return nil, err
		}
		resolver = r
	}

	dateLayout, err := dateutil.ResolveFormat(c.cfg.dateFormat)
	if err != nil {
		return nil, err
	}

	c.builder = pipeline.NewBuilder(resolver,
		pipeline.WithStylesheet(filepath.Base(companions.Stylesheet), string(css)),
		pipeline.WithDateLayout(dateLayout),
		pipeline.WithBuilderLogger(c.logger),
	)

	c.pool = c.cfg.pool
	if c.pool == nil {
		c.pool = NewRendererPool(c.cfg.workers, c.cfg.renderTimeout, c.cfg.layout)
	}
	return c, nil
}

// Convert renders every record and merges the results into the archive.
//
// Failed messages are reported in Result.Batch.Failures. Under OmitFailed the
// archive is still written without them; under FailOnMissing the merge is
// skipped and ErrIncompleteArchive returned. Cancellation stops the run
// before the merge. Recovers from internal panics.
func (c *Converter) Convert(ctx context.Context, input Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	if input.OutputDir == "" {
		return nil, errors.New("output directory cannot be empty")
	}
	if input.ArchivePath == "" {
		return nil, errors.New("archive path cannot be empty")
	}

	scheduler := NewScheduler(c.pool, c.builder, input.OutputDir,
		WithTaskTimeout(c.cfg.taskTimeout),
		WithSchedulerLogger(c.logger),
	)

	batch, err := scheduler.Run(ctx, input.Records)
	result = &Result{Batch: batch}
	if err != nil {
		return result, err
	}

	if len(batch.Failures) > 0 {
		c.logger.Warn("messages missing from archive", "count", len(batch.Failures), "indices", batch.Missing())
		if c.cfg.renderPolicy == FailOnMissing {
			return result, fmt.Errorf("%w: %d of %d messages failed to render",
				ErrIncompleteArchive, len(batch.Failures), len(input.Records))
		}
	}

	titles := make(map[int]string, len(input.Records))
	for _, rec := range input.Records {
		titles[rec.Index] = rec.Subject
	}

	mergerOpts := []MergerOption{
		WithMetadata(c.cfg.metadata),
		WithUnreadablePolicy(c.cfg.unreadable),
		WithOptimize(c.cfg.optimize),
		WithMergerLogger(c.logger),
	}
	if c.cfg.engine != nil {
		mergerOpts = append(mergerOpts, WithPDFEngine(c.cfg.engine))
	}

	archive, err := NewMerger(c.companions.Cover, mergerOpts...).
		Merge(ctx, batch.Artifacts, titles, input.ArchivePath)
	if err != nil {
		return result, err
	}
	result.Archive = archive
	return result, nil
}

// Close releases resources (headless Chrome browsers).
func (c *Converter) Close() error {
	if closer, ok := c.pool.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
