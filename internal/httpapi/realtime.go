package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"

	"evoting/portal-service/internal/apiclient"
	"evoting/portal-service/internal/hub"
	"evoting/portal-service/internal/realtime"
	"evoting/portal-service/internal/session"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
)

const (
	closeSessionExpired = 4001
	closeFeedStopped    = 4000
)

func (h *Handler) realtimeHandler() http.Handler {
	return sockjs.NewHandler("/portal/realtime", sockjs.DefaultOptions, h.serveRealtime)
}

// feedSource picks what a session's live view shows: the dashboard for
// admins and the ballot list for voters.
func (h *Handler) feedSource(sess session.Session) func(ctx context.Context) (any, error) {
	if sess.Kind == session.KindVoter {
		return func(ctx context.Context) (any, error) {
			return h.voterBallots(ctx, sess)
		}
	}
	return func(ctx context.Context) (any, error) {
		return h.dashboardSnapshot(ctx, sess)
	}
}

func (h *Handler) serveRealtime(conn sockjs.Session) {
	sess, err := h.loadSession(conn.Request())
	if err != nil {
		_ = conn.Close(closeSessionExpired, "session expired")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &hub.Client{ID: uuid.NewString(), SessionID: sess.ID, Kind: string(sess.Kind), Send: make(chan []byte, 16)}
	h.hub.Register(client)
	defer h.hub.Unregister(client)
	ticks, unsubscribe := h.ticker.Subscribe()
	defer unsubscribe()

	feed := realtime.Feed{
		ClientID:  client.ID,
		Updates:   client.Send,
		Ticks:     ticks,
		Refresh:   h.feedSource(sess),
		Emit:      func(payload []byte) error { return conn.Send(string(payload)) },
		LoginPath: sess.LoginPath(),
		Now:       h.now,
	}
	go func() {
		err := feed.Run(ctx)
		if errors.Is(err, apiclient.ErrUnauthorized) {
			sessionsExpired.Add(1)
			h.forgetSession(context.Background(), sess)
			_ = conn.Close(closeSessionExpired, "session expired")
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("realtime feed stopped client=%s err=%v", client.ID, err)
		}
		_ = conn.Close(closeFeedStopped, "feed stopped")
	}()

	for {
		msg, err := conn.Recv()
		if err != nil {
			return
		}
		parsed, ok := hub.ParseSubscribe([]byte(msg))
		if !ok {
			continue
		}
		if parsed.Action == "unsubscribe" {
			h.hub.UpdateSubscription(client, hub.Subscription{})
			continue
		}
		h.hub.UpdateSubscription(client, hub.Subscription{ElectionID: parsed.ElectionID})
	}
}
