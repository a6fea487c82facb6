package realtime

import (
	"context"
	"errors"
	"sync"

	"evoting/portal-service/internal/apiclient"

	"golang.org/x/sync/errgroup"
)

type Section struct {
	Name  string
	Fetch func(ctx context.Context) (any, error)
}

type Snapshot struct {
	Sections map[string]any    `json:"sections"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Gather fetches every section in parallel. A failing section is reported in
// Errors without blocking the others; only an expired session aborts.
func Gather(ctx context.Context, sections ...Section) (Snapshot, error) {
	snap := Snapshot{Sections: make(map[string]any, len(sections)), Errors: map[string]string{}}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, section := range sections {
		g.Go(func() error {
			value, err := section.Fetch(gctx)
			if errors.Is(err, apiclient.ErrUnauthorized) {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				snap.Errors[section.Name] = sectionMessage(err)
				return nil
			}
			snap.Sections[section.Name] = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	if len(snap.Errors) == 0 {
		snap.Errors = nil
	}
	return snap, nil
}

func sectionMessage(err error) string {
	switch {
	case errors.Is(err, apiclient.ErrForbidden):
		return "Access denied"
	case errors.Is(err, apiclient.ErrNotFound):
		return "Not available"
	default:
		return "Could not load this section"
	}
}
