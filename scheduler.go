package letter2pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-letter2pdf/internal/fileutil"
	"github.com/alnah/go-letter2pdf/internal/pipeline"
)

const dirPermissions = 0o750

// DocumentBuilder assembles the HTML page for one message.
type DocumentBuilder interface {
	Build(ctx context.Context, msg pipeline.Message) (pipeline.Document, error)
}

// Compile-time interface implementation check.
var _ DocumentBuilder = (*pipeline.Builder)(nil)

// BatchResult is the outcome of a scheduler run.
// Artifacts are sorted by Index; Failures are sorted by Index.
type BatchResult struct {
	Artifacts []Artifact
	Failures  []*RenderError
	Rendered  int
	Skipped   int
}

// Missing returns the indices of failed messages.
func (b *BatchResult) Missing() []int {
	out := make([]int, len(b.Failures))
	for i, f := range b.Failures {
		out[i] = f.Index
	}
	return out
}

// Scheduler renders records across a bounded pool of renderers.
type Scheduler struct {
	pool        Pool
	builder     DocumentBuilder
	outputDir   string
	taskTimeout time.Duration
	logger      *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTaskTimeout bounds each render task (build plus print).
// Zero means no per-task limit beyond the renderer's own page-load timeout.
func WithTaskTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.taskTimeout = d
		}
	}
}

// WithSchedulerLogger sets the logger for per-message progress events.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a Scheduler writing email_<index>.pdf files into outputDir.
func NewScheduler(pool Pool, builder DocumentBuilder, outputDir string, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		pool:      pool,
		builder:   builder,
		outputDir: outputDir,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// outcome is what one worker records for one pending record.
type outcome struct {
	artifact Artifact
	err      error
}

// Run renders every record whose PDF does not exist yet and returns all
// artifacts, pre-existing ones included, ordered by Index.
//
// Per-record failures never abort the batch; they are returned in
// BatchResult.Failures. Run itself fails only on duplicate indices, an
// unusable output directory, or cancellation, in which case the partial
// result is still returned.
func (s *Scheduler) Run(ctx context.Context, records []Record) (*BatchResult, error) {
	if err := checkIndices(records); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.outputDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	result := &BatchResult{}
	var pending []Record

	for _, rec := range records {
		path := OutputPath(s.outputDir, rec.Index)
		if fileutil.FileExists(path) {
			s.logger.Info("skip", "index", rec.Index, "path", path)
			result.Artifacts = append(result.Artifacts, Artifact{Path: path, Index: rec.Index, Skipped: true})
			result.Skipped++
			continue
		}
		pending = append(pending, rec)
	}

	outcomes := s.renderAll(ctx, pending)

	for i, o := range outcomes {
		if o.err != nil {
			result.Failures = append(result.Failures, &RenderError{Index: pending[i].Index, Err: o.err})
			continue
		}
		result.Artifacts = append(result.Artifacts, o.artifact)
		result.Rendered++
	}

	// Completion order is meaningless downstream.
	slices.SortFunc(result.Artifacts, func(a, b Artifact) int { return a.Index - b.Index })
	slices.SortFunc(result.Failures, func(a, b *RenderError) int { return a.Index - b.Index })

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// renderAll renders pending records with at most pool.Size() in flight.
// Each task acquires its own renderer, so a failed renderer creation costs
// only that record and the next task tries again. Tasks write only their own
// slot of the outcomes slice.
func (s *Scheduler) renderAll(ctx context.Context, pending []Record) []outcome {
	if len(pending) == 0 {
		return nil
	}

	outcomes := make([]outcome, len(pending))

	var g errgroup.Group
	g.SetLimit(max(s.pool.Size(), 1))
	for i, rec := range pending {
		if err := ctx.Err(); err != nil {
			// Records not started yet fail with the cancellation cause.
			for j := i; j < len(pending); j++ {
				outcomes[j] = outcome{err: err}
			}
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = outcome{err: err}
				return nil
			}
			r := s.pool.Acquire()
			if r == nil {
				outcomes[i] = outcome{err: ErrRendererInit}
				s.logFailure(rec, ErrRendererInit)
				return nil
			}
			defer s.pool.Release(r)

			outcomes[i] = s.renderOne(ctx, r, rec)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// renderOne builds and prints a single record. Panics are contained to the record.
func (s *Scheduler) renderOne(ctx context.Context, r Renderer, rec Record) (o outcome) {
	start := time.Now()
	path := OutputPath(s.outputDir, rec.Index)

	defer func() {
		if p := recover(); p != nil {
			o = outcome{err: fmt.Errorf("internal error: %v", p)}
		}
		if o.err != nil {
			s.logFailure(rec, o.err)
		}
	}()

	if s.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.taskTimeout)
		defer cancel()
	}

	doc, err := s.builder.Build(ctx, pipeline.Message{
		Subject:   rec.Subject,
		Body:      rec.Body,
		CreatedAt: rec.CreatedAt,
	})
	if err != nil {
		return outcome{err: fmt.Errorf("%w: %v", ErrBuildDocument, err)}
	}

	if err := r.Render(ctx, doc.HTML, path); err != nil {
		return outcome{err: err}
	}

	s.logger.Info("complete",
		"index", rec.Index,
		"path", path,
		"unresolved_images", len(doc.Unresolved),
		"duration", time.Since(start).Round(time.Millisecond))
	return outcome{artifact: Artifact{Path: path, Index: rec.Index}}
}

func (s *Scheduler) logFailure(rec Record, err error) {
	s.logger.Error("error", "index", rec.Index, "subject", rec.Title(), "err", err)
}

// checkIndices rejects batches where two records would share an output file.
func checkIndices(records []Record) error {
	seen := make(map[int]struct{}, len(records))
	for _, rec := range records {
		if rec.Index < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidIndex, rec.Index)
		}
		if _, dup := seen[rec.Index]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateIndex, rec.Index)
		}
		seen[rec.Index] = struct{}{}
	}
	return nil
}
