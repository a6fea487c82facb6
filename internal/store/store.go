package store

import (
	"context"
	"encoding/hex"
	"time"

	"evoting/portal-service/internal/session"

	"golang.org/x/crypto/blake2b"
)

type Store interface {
	CreateSession(ctx context.Context, sess session.Session) error
	GetSession(ctx context.Context, sessionID string) (session.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Digest is the at-rest key of a session. The cookie value itself is never
// persisted.
func Digest(sessionID string) string {
	sum := blake2b.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}
