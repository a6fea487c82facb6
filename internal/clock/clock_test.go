package clock

import (
	"testing"
	"time"
)

func TestTickerFanOut(t *testing.T) {
	ticker := NewTicker(time.Second)
	a, cancelA := ticker.Subscribe()
	b, cancelB := ticker.Subscribe()
	defer cancelB()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ticker.Tick(now)

	for _, ch := range []<-chan time.Time{a, b} {
		select {
		case got := <-ch:
			if !got.Equal(now) {
				t.Fatalf("expected %v, got %v", now, got)
			}
		default:
			t.Fatalf("expected tick delivered")
		}
	}

	cancelA()
	cancelA()
	if got := ticker.Subscribers(); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}
}

func TestTickerDropsForSlowSubscriber(t *testing.T) {
	ticker := NewTicker(time.Second)
	ch, cancel := ticker.Subscribe()
	defer cancel()

	first := time.Unix(1, 0)
	ticker.Tick(first)
	ticker.Tick(time.Unix(2, 0))

	if got := <-ch; !got.Equal(first) {
		t.Fatalf("expected first tick kept, got %v", got)
	}
	select {
	case got := <-ch:
		t.Fatalf("expected second tick dropped, got %v", got)
	default:
	}
}
