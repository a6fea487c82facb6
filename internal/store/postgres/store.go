package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"evoting/portal-service/internal/session"
	"evoting/portal-service/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateSession(ctx context.Context, sess session.Session) error {
	claims, err := json.Marshal(sess.Claims)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO portal_sessions (session_digest, kind, token, claims_json, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, store.Digest(sess.ID), string(sess.Kind), sess.Token, claims, sess.CreatedAt.UTC(), sess.ExpiresAt.UTC())
	return err
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (session.Session, error) {
	var sess session.Session
	var kind string
	var claims []byte
	row := s.pool.QueryRow(ctx, `
		SELECT kind, token, claims_json, created_at, expires_at
		FROM portal_sessions
		WHERE session_digest = $1
	`, store.Digest(sessionID))
	if err := row.Scan(&kind, &sess.Token, &claims, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, store.ErrSessionNotFound
		}
		return session.Session{}, err
	}
	if err := json.Unmarshal(claims, &sess.Claims); err != nil {
		return session.Session{}, err
	}
	sess.ID = sessionID
	sess.Kind = session.Kind(kind)
	if sess.Expired(time.Now()) {
		return session.Session{}, store.ErrSessionExpired
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE session_digest = $1`, store.Digest(sessionID))
	return err
}

func (s *Store) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE expires_at <= $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
