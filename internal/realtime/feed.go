package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"evoting/portal-service/internal/apiclient"
)

const (
	MessageDashboard      = "DASHBOARD"
	MessageSessionExpired = "SESSION_EXPIRED"
)

type Message struct {
	Type     string    `json:"type"`
	At       time.Time `json:"at"`
	Data     any       `json:"data,omitempty"`
	Redirect string    `json:"redirect,omitempty"`
}

// Feed drives one browser's dashboard: it forwards pushed events and
// re-fetches on every vote and every shared tick.
type Feed struct {
	ClientID  string
	Updates   <-chan []byte
	Ticks     <-chan time.Time
	Refresh   func(ctx context.Context) (any, error)
	Emit      func(payload []byte) error
	LoginPath string
	Now       func() time.Time
}

func (f Feed) Run(ctx context.Context) error {
	if f.Now == nil {
		f.Now = time.Now
	}
	if err := f.refresh(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-f.Updates:
			if !ok {
				return nil
			}
			if err := f.Emit(msg); err != nil {
				return err
			}
			if ev, parsed := ParseEvent(msg); parsed && ev.Type == EventVoteCast {
				if err := f.refresh(ctx); err != nil {
					return err
				}
			}
		case <-f.Ticks:
			if err := f.refresh(ctx); err != nil {
				return err
			}
		}
	}
}

// refresh only fails the loop when the session is gone or the browser cannot
// be written to. Other fetch errors are logged and the next tick retries.
func (f Feed) refresh(ctx context.Context) error {
	data, err := f.Refresh(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			payload, _ := json.Marshal(Message{Type: MessageSessionExpired, At: f.Now(), Redirect: f.LoginPath})
			_ = f.Emit(payload)
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("dashboard refresh failed client=%s err=%v", f.ClientID, err)
		return nil
	}
	payload, err := json.Marshal(Message{Type: MessageDashboard, At: f.Now(), Data: data})
	if err != nil {
		return err
	}
	return f.Emit(payload)
}
