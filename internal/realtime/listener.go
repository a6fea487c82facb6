package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

const EventVoteCast = "VOTE_CAST"

type Event struct {
	Type       string          `json:"type"`
	ElectionID string          `json:"election_id,omitempty"`
	Election   json.RawMessage `json:"election,omitempty"`
}

// ParseEvent decodes a notification. election may be an ID or an object.
func ParseEvent(data []byte) (Event, bool) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil || ev.Type == "" {
		return Event{}, false
	}
	if ev.ElectionID == "" && len(ev.Election) > 0 {
		ev.ElectionID = electionID(ev.Election)
	}
	return ev, true
}

func electionID(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return ""
		}
		for key, value := range obj {
			if strings.EqualFold(key, "id") || strings.EqualFold(key, "election_id") {
				return scalar(value)
			}
		}
		return ""
	}
	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return ""
	}
	return scalar(value)
}

func scalar(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		out, _ := json.Marshal(v)
		return string(out)
	default:
		return ""
	}
}

// Listener holds the one backend notification socket of the process and
// reconnects after drops.
type Listener struct {
	url        string
	dialer     *websocket.Dialer
	handle     func(Event)
	newBackOff func() backoff.BackOff
}

func NewListener(url string, handle func(Event)) *Listener {
	return &Listener{
		url:    url,
		dialer: websocket.DefaultDialer,
		handle: handle,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = time.Minute
			return b
		},
	}
}

func (l *Listener) Run(ctx context.Context) error {
	b := l.newBackOff()
	for {
		err := l.listen(ctx, b)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		log.Printf("notifications disconnected url=%s err=%v retry_in=%s", l.url, err, wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Listener) listen(ctx context.Context, b backoff.BackOff) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	b.Reset()
	log.Printf("notifications connected url=%s", l.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ev, ok := ParseEvent(data)
		if !ok || ev.Type != EventVoteCast {
			continue
		}
		l.handle(ev)
	}
}
