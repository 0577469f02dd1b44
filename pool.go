package letter2pdf

import (
	"errors"
	"sync"
	"time"
)

// DefaultWorkers is the render pool size when none is configured.
const DefaultWorkers = 4

// MaxWorkers caps browser instances to limit memory (~200MB each).
const MaxWorkers = 32

// Pool hands out Renderers to scheduler workers.
type Pool interface {
	// Acquire returns a Renderer, or nil if one could not be created.
	Acquire() Renderer
	Release(Renderer)
	Size() int
}

// RendererPool manages a pool of Renderer instances for parallel rendering.
// Each renderer owns its own browser, enabling true parallelism.
// Renderers are created lazily on first acquire to avoid startup delay.
type RendererPool struct {
	size      int
	newRender func() (Renderer, error)
	renderers []Renderer
	sem       chan Renderer
	mu        sync.Mutex
	created   int
	closed    bool
}

// Compile-time check that RendererPool implements Pool.
var _ Pool = (*RendererPool)(nil)

// NewRendererPool creates a pool of n headless Chrome renderers printing with
// layout. n < 1 means DefaultWorkers.
func NewRendererPool(n int, timeout time.Duration, layout PageLayout) *RendererPool {
	return newRendererPool(n, func() (Renderer, error) {
		return newRodConverter(timeout, layout), nil
	})
}

func newRendererPool(n int, factory func() (Renderer, error)) *RendererPool {
	n = ResolvePoolSize(n)
	return &RendererPool{
		size:      n,
		newRender: factory,
		renderers: make([]Renderer, 0, n),
		sem:       make(chan Renderer, n),
	}
}

// Acquire gets a renderer from the pool, creating one if needed.
// Blocks if all renderers are in use.
func (p *RendererPool) Acquire() Renderer {
	// Try to get an existing renderer (non-blocking)
	select {
	case r := <-p.sem:
		return r
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create new renderer outside the lock
		r, err := p.newRender()
		if err != nil || r == nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			return nil
		}

		p.mu.Lock()
		p.renderers = append(p.renderers, r)
		p.mu.Unlock()
		return r
	}
	p.mu.Unlock()

	// All renderers created, wait for one to be released
	return <-p.sem
}

// Release returns a renderer to the pool.
// The lock is released before sending to avoid deadlock when the channel is full.
func (p *RendererPool) Release(r Renderer) {
	if r == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.sem <- r
}

// Close releases all browser resources.
// Returns an aggregated error if several renderers fail to close.
func (p *RendererPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	renderers := p.renderers
	p.mu.Unlock()

	var errs []error
	for _, r := range renderers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *RendererPool) Size() int {
	return p.size
}

// ResolvePoolSize clamps a configured worker count.
// Zero or negative means DefaultWorkers.
func ResolvePoolSize(workers int) int {
	switch {
	case workers <= 0:
		return DefaultWorkers
	case workers > MaxWorkers:
		return MaxWorkers
	}
	return workers
}
