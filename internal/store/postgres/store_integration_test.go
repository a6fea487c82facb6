package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"evoting/portal-service/internal/session"
	"evoting/portal-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, pool, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	now := time.Now().UTC().Truncate(time.Second)
	sess := session.Session{
		ID:        uuid.NewString(),
		Kind:      session.KindAdmin,
		Token:     "backend-token",
		Claims:    session.Claims{Subject: "a1", Permissions: []string{"manage_voters"}},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := st.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	var stored int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM portal_sessions WHERE session_digest = $1`, sess.ID).Scan(&stored); err != nil {
		t.Fatalf("count: %v", err)
	}
	if stored != 0 {
		t.Fatalf("raw session id must not be stored")
	}

	got, err := st.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != session.KindAdmin || got.Token != "backend-token" || !got.Can("manage_voters") {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := st.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetSession(ctx, sess.ID); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	st, _, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	now := time.Now().UTC()
	expired := session.Session{ID: uuid.NewString(), Kind: session.KindVoter, Token: "t1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	live := session.Session{ID: uuid.NewString(), Kind: session.KindVoter, Token: "t2", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, sess := range []session.Session{expired, live} {
		if err := st.CreateSession(ctx, sess); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if _, err := st.GetSession(ctx, expired.ID); !errors.Is(err, store.ErrSessionExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	removed, err := st.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := st.GetSession(ctx, live.ID); err != nil {
		t.Fatalf("expected live session kept: %v", err)
	}
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, *pgxpool.Pool, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := execOnce(ctx, dsn, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = execOnce(context.Background(), dsn, "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
	}
	return NewStore(pool), pool, cleanup
}

func execOnce(ctx context.Context, dsn, statement string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, statement)
	return err
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir := filepath.Join("..", "..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return err
		}
	}
	return nil
}
