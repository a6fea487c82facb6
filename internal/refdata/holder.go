package refdata

import (
	"context"
	"log"
	"sync"

	"evoting/portal-service/internal/location"
)

type Fetcher interface {
	KeralaData(ctx context.Context) (any, error)
}

// Holder keeps the last dataset that parsed successfully.
type Holder struct {
	fetcher Fetcher

	mu      sync.RWMutex
	current Dataset
}

func NewHolder(fetcher Fetcher) *Holder {
	return &Holder{fetcher: fetcher}
}

// Refresh fetches the hierarchy again. A payload without districts, or a failed
// fetch, leaves the held dataset untouched.
func (h *Holder) Refresh(ctx context.Context) (Dataset, error) {
	payload, err := h.fetcher.KeralaData(ctx)
	if err != nil {
		return h.Current(), err
	}
	ds, ok := Parse(payload)
	if !ok {
		log.Printf("refdata payload without districts, keeping previous dataset")
		return h.Current(), nil
	}

	h.mu.Lock()
	h.current = ds
	h.mu.Unlock()
	return ds, nil
}

func (h *Holder) Current() Dataset {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Ensure returns the held dataset, fetching it the first time.
func (h *Holder) Ensure(ctx context.Context) (Dataset, error) {
	if ds := h.Current(); ds.Loaded() {
		return ds, nil
	}
	return h.Refresh(ctx)
}

func (h *Holder) Resolver() location.Resolver {
	return location.NewResolver(h.Current())
}
