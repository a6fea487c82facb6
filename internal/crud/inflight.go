package crud

import (
	"context"
	"sync"
)

// Inflight is the "submitting" flag, keyed per session and form.
type Inflight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewInflight() *Inflight {
	return &Inflight{keys: make(map[string]struct{})}
}

func (g *Inflight) Acquire(key string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.keys[key]; busy {
		return nil, false
	}
	g.keys[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.keys, key)
			g.mu.Unlock()
		})
	}, true
}

// Optimistic sets *state to next before the call and restores the previous
// value if the call fails.
func Optimistic[T any](ctx context.Context, state *T, next T, call func(ctx context.Context, next T) error) error {
	prev := *state
	*state = next
	if err := call(ctx, next); err != nil {
		*state = prev
		return err
	}
	return nil
}
