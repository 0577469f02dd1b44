package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/alnah/go-letter2pdf/internal/fileutil"
)

// Default limits for remote images.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxSize      = 20 << 20 // 20MB
	dirPerm             = 0o750
	filePerm            = 0o644
)

// LocalAsset is an image stored in the asset directory.
type LocalAsset struct {
	Name string // filename inside the asset directory
	Path string // absolute path
}

// Resolver fetches remote images into a local directory, at most once per
// filename. Safe for concurrent use.
type Resolver struct {
	dir     string
	client  *http.Client
	limiter *rate.Limiter
	maxSize int64
	logger  *slog.Logger
	group   singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}

// WithTimeout sets the per-fetch timeout on the default client.
// Ignored when d is not positive.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.client = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit caps fetches per second across all callers.
// Zero means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(r *Resolver) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithMaxSize caps the size of a single image body.
func WithMaxSize(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSize = n
		}
	}
}

// WithLogger sets the logger for fetch events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver storing images under dir.
// The directory is made absolute now and created on first fetch.
func NewResolver(dir string, opts ...Option) (*Resolver, error) {
	if dir == "" {
		return nil, errors.New("asset directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving asset directory: %w", err)
	}

	r := &Resolver{
		dir:     abs,
		client:  &http.Client{Timeout: DefaultFetchTimeout},
		maxSize: DefaultMaxSize,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dir returns the absolute asset directory.
func (r *Resolver) Dir() string {
	return r.dir
}

// Resolve returns the local copy of the image at reference, downloading it
// if no file with the derived name exists yet.
func (r *Resolver) Resolve(ctx context.Context, reference string) (LocalAsset, error) {
	name, err := AssetName(reference)
	if err != nil {
		return LocalAsset{}, err
	}
	asset := LocalAsset{Name: name, Path: filepath.Join(r.dir, name)}

	if fileutil.FileExists(asset.Path) {
		return asset, nil
	}

	// The fetch is shared by every caller waiting on name, so it must not
	// die with whichever caller started it.
	ch := r.group.DoChan(name, func() (any, error) {
		// Another caller may have finished between the check and DoChan.
		if fileutil.FileExists(asset.Path) {
			return nil, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout())
		defer cancel()
		return nil, r.fetch(fetchCtx, reference, asset.Path)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return LocalAsset{}, res.Err
		}
		if res.Shared {
			r.logger.Debug("image fetch shared", "name", name)
		}
		return asset, nil
	case <-ctx.Done():
		return LocalAsset{}, fmt.Errorf("%w: %v", ErrFetch, ctx.Err())
	}
}

// fetchTimeout bounds a shared fetch, rate limiter wait included.
func (r *Resolver) fetchTimeout() time.Duration {
	if r.client.Timeout > 0 {
		return r.client.Timeout
	}
	return DefaultFetchTimeout
}

func (r *Resolver) fetch(ctx context.Context, reference, dest string) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrFetch, err)
		}
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reference, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrFetch, reference, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxSize+1))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrFetch, err)
	}
	if int64(len(body)) > r.maxSize {
		return fmt.Errorf("%w: %w (max %d bytes)", ErrFetch, ErrAssetTooLarge, r.maxSize)
	}

	if err := os.MkdirAll(r.dir, dirPerm); err != nil {
		return fmt.Errorf("creating asset directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(dest, body, filePerm); err != nil {
		return fmt.Errorf("storing image: %w", err)
	}

	r.logger.Info("image fetched",
		"name", filepath.Base(dest),
		"bytes", len(body),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}
