package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"evoting/portal-service/internal/session"
	"evoting/portal-service/internal/store"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	sess := session.Session{ID: "sid", Kind: session.KindVoter, Token: "tok", ExpiresAt: now.Add(time.Hour)}
	if err := st.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := st.GetSession(ctx, "sid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != session.KindVoter || got.Token != "tok" {
		t.Fatalf("unexpected session %+v", got)
	}

	now = now.Add(2 * time.Hour)
	if _, err := st.GetSession(ctx, "sid"); !errors.Is(err, store.ErrSessionExpired) {
		t.Fatalf("expected expired, got %v", err)
	}

	removed, err := st.DeleteExpired(ctx, now)
	if err != nil || removed != 1 {
		t.Fatalf("expected 1 removed, got %d (%v)", removed, err)
	}
	if _, err := st.GetSession(ctx, "sid"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	_ = st.CreateSession(ctx, session.Session{ID: "a", Kind: session.KindAdmin, ExpiresAt: time.Now().Add(time.Hour)})
	if err := st.DeleteSession(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetSession(ctx, "a"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
