package clock

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Fixed always reports the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// Ticker is the single tick source shared by every poll loop in the process.
type Ticker struct {
	interval time.Duration

	mu     sync.Mutex
	nextID int
	subs   map[int]chan time.Time
}

func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{interval: interval, subs: make(map[int]chan time.Time)}
}

func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Subscribe returns a channel that receives every tick. Slow subscribers miss
// ticks rather than block the others.
func (t *Ticker) Subscribe() (<-chan time.Time, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	ch := make(chan time.Time, 1)
	t.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
		})
	}
}

func (t *Ticker) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Tick delivers now to every subscriber.
func (t *Ticker) Tick(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- now:
		default:
		}
	}
}

func (t *Ticker) Run(ctx context.Context) {
	if t.interval <= 0 {
		return
	}
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Tick(now)
		}
	}
}
