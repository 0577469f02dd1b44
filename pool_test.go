package letter2pdf

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"explicit value kept", 2, 2},
		{"one for sequential", 1, 1},
		{"zero uses default", 0, DefaultWorkers},
		{"negative uses default", -3, DefaultWorkers},
		{"capped at max", MaxWorkers + 10, MaxWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ResolvePoolSize(tt.workers); got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

func TestRendererPool_LazyCreation(t *testing.T) {
	t.Parallel()

	var created int
	var mu sync.Mutex
	p := newRendererPool(3, func() (Renderer, error) {
		mu.Lock()
		created++
		mu.Unlock()
		return &fakeRenderer{}, nil
	})
	defer p.Close()

	if created != 0 {
		t.Fatalf("renderers created before Acquire: %d", created)
	}

	r := p.Acquire()
	p.Release(r)
	r2 := p.Acquire()
	if r2 != r {
		t.Error("released renderer should be reused")
	}
	p.Release(r2)

	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
}

func TestRendererPool_BlocksAtCapacity(t *testing.T) {
	t.Parallel()

	p := newRendererPool(1, func() (Renderer, error) { return &fakeRenderer{}, nil })
	defer p.Close()

	first := p.Acquire()

	got := make(chan Renderer)
	go func() { got <- p.Acquire() }()

	select {
	case <-got:
		t.Fatal("Acquire should block while the only renderer is in use")
	case <-time.After(30 * time.Millisecond):
	}

	p.Release(first)
	select {
	case r := <-got:
		if r != first {
			t.Error("waiting Acquire should receive the released renderer")
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after Release")
	}
}

func TestRendererPool_FactoryFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	p := newRendererPool(2, func() (Renderer, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("no chrome")
		}
		return &fakeRenderer{}, nil
	})
	defer p.Close()

	if r := p.Acquire(); r != nil {
		t.Fatalf("Acquire() = %v, want nil on factory error", r)
	}
	// The failed slot is returned so a later attempt can succeed.
	if r := p.Acquire(); r == nil {
		t.Fatal("second Acquire() should create a renderer")
	}
}

func TestRendererPool_Close(t *testing.T) {
	t.Parallel()

	p := newRendererPool(2, func() (Renderer, error) { return &fakeRenderer{}, nil })

	a := p.Acquire()
	b := p.Acquire()
	p.Release(a)

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for i, r := range []Renderer{a, b} {
		if !r.(*fakeRenderer).closed.Load() {
			t.Errorf("renderer %d not closed", i)
		}
	}

	// Idempotent, and Release after Close is a no-op.
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	p.Release(b)
	if r := p.Acquire(); r != nil {
		t.Errorf("Acquire after Close = %v, want nil", r)
	}
}

func TestNewRendererPool_Size(t *testing.T) {
	t.Parallel()

	p := NewRendererPool(0, 0, LetterLayout())
	defer p.Close()

	if p.Size() != DefaultWorkers {
		t.Errorf("Size() = %d, want %d", p.Size(), DefaultWorkers)
	}
}
