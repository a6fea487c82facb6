package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"evoting/portal-service/internal/apiclient"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

func TestParseEvent(t *testing.T) {
	cases := []struct {
		raw  string
		id   string
		kind string
	}{
		{`{"type":"VOTE_CAST","election":"e1"}`, "e1", EventVoteCast},
		{`{"type":"VOTE_CAST","election":{"ID":7,"title":"x"}}`, "7", EventVoteCast},
		{`{"type":"OTHER"}`, "", "OTHER"},
	}
	for _, tt := range cases {
		ev, ok := ParseEvent([]byte(tt.raw))
		if !ok || ev.ElectionID != tt.id || ev.Type != tt.kind {
			t.Fatalf("ParseEvent(%s)=%+v, %v", tt.raw, ev, ok)
		}
	}
	if _, ok := ParseEvent([]byte(`nope`)); ok {
		t.Fatalf("expected invalid event")
	}
}

func TestListenerReconnectsAndFiltersEvents(t *testing.T) {
	var connections int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := atomic.AddInt32(&connections, 1)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PING"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"VOTE_CAST","election":"e`+string(rune('0'+n))+`"}`))
		_ = conn.Close()
	}))
	defer srv.Close()

	var mu sync.Mutex
	var got []string
	received := make(chan struct{}, 16)
	listener := NewListener("ws"+strings.TrimPrefix(srv.URL, "http"), func(ev Event) {
		mu.Lock()
		got = append(got, ev.ElectionID)
		mu.Unlock()
		received <- struct{}{}
	})
	listener.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(10 * time.Millisecond) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != "e1" || got[1] != "e2" {
		t.Fatalf("expected vote events from two connections, got %v", got)
	}
}

func TestFeedRefreshesOnVoteAndTick(t *testing.T) {
	updates := make(chan []byte, 1)
	ticks := make(chan time.Time, 1)
	var refreshes int32
	var mu sync.Mutex
	var emitted []Message

	feed := Feed{
		ClientID: "c1",
		Updates:  updates,
		Ticks:    ticks,
		Refresh: func(ctx context.Context) (any, error) {
			n := atomic.AddInt32(&refreshes, 1)
			if n == 2 {
				return nil, errors.New("transient")
			}
			return map[string]int32{"n": n}, nil
		},
		Emit: func(payload []byte) error {
			var msg Message
			_ = json.Unmarshal(payload, &msg)
			mu.Lock()
			emitted = append(emitted, msg)
			mu.Unlock()
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	updates <- []byte(`{"type":"VOTE_CAST","election":"e1"}`)
	ticks <- time.Now()

	deadline := time.After(5 * time.Second)
	for atomic.LoadInt32(&refreshes) < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected 3 refreshes, got %d", atomic.LoadInt32(&refreshes))
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	close(updates)
	if err := <-done; err != nil {
		t.Fatalf("feed: %v", err)
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	var dashboards, votes int
	for _, msg := range emitted {
		switch msg.Type {
		case MessageDashboard:
			dashboards++
		case EventVoteCast:
			votes++
		}
	}
	if dashboards != 2 || votes != 1 {
		t.Fatalf("expected 2 dashboards and 1 vote forwarded, got %d and %d", dashboards, votes)
	}
}

func TestFeedStopsOnExpiredSession(t *testing.T) {
	var emitted []Message
	feed := Feed{
		Updates:   make(chan []byte),
		Ticks:     make(chan time.Time),
		LoginPath: "/admin/login",
		Refresh: func(ctx context.Context) (any, error) {
			return nil, &apiclient.APIError{Status: http.StatusUnauthorized}
		},
		Emit: func(payload []byte) error {
			var msg Message
			_ = json.Unmarshal(payload, &msg)
			emitted = append(emitted, msg)
			return nil
		},
	}
	err := feed.Run(context.Background())
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(emitted) != 1 || emitted[0].Type != MessageSessionExpired || emitted[0].Redirect != "/admin/login" {
		t.Fatalf("unexpected messages %+v", emitted)
	}
}

func TestGatherIsolatesFailures(t *testing.T) {
	snap, err := Gather(context.Background(),
		Section{Name: "dashboard", Fetch: func(ctx context.Context) (any, error) { return 42, nil }},
		Section{Name: "results", Fetch: func(ctx context.Context) (any, error) {
			return nil, &apiclient.APIError{Status: http.StatusForbidden}
		}},
		Section{Name: "elections", Fetch: func(ctx context.Context) (any, error) { return nil, errors.New("down") }},
	)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if snap.Sections["dashboard"] != 42 {
		t.Fatalf("expected dashboard section, got %v", snap.Sections)
	}
	if snap.Errors["results"] != "Access denied" || snap.Errors["elections"] == "" {
		t.Fatalf("unexpected errors %v", snap.Errors)
	}
}

func TestGatherAbortsOnExpiredSession(t *testing.T) {
	_, err := Gather(context.Background(),
		Section{Name: "dashboard", Fetch: func(ctx context.Context) (any, error) {
			return nil, &apiclient.APIError{Status: http.StatusUnauthorized}
		}},
		Section{Name: "results", Fetch: func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	)
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
