// Package session abstracts login session storage behind the Store
// interface. Sessions live in the database so they survive restarts and
// so the hourly sweeper can expire them with one query.
package session

import (
	"context"
	"time"

	"github.com/huntiep/valentine/internal/auth"
	"github.com/huntiep/valentine/internal/db"
)

// Kind distinguishes user and admin sessions.
const (
	KindUser  = "user"
	KindAdmin = "admin"
)

// Store creates, resolves and revokes session tokens.
type Store interface {
	// Get resolves a token to the logged-in username, or ok=false when
	// the token is unknown, expired, or of a different kind.
	Get(ctx context.Context, kind, token string) (username string, ok bool, err error)
	// Create issues a new token for username with the given lifetime.
	Create(ctx context.Context, kind, username string, ttl time.Duration) (token string, err error)
	// Revoke invalidates a token. Revoking an unknown token is not an error.
	Revoke(ctx context.Context, token string) error
}

// DBStore persists sessions in the sessions table.
type DBStore struct {
	DB *db.DB
}

func NewDBStore(d *db.DB) *DBStore {
	return &DBStore{DB: d}
}

func (s *DBStore) Get(ctx context.Context, kind, token string) (string, bool, error) {
	if token == "" {
		return "", false, nil
	}
	sess, ok, err := s.DB.GetSession(ctx, token)
	if err != nil || !ok {
		return "", false, err
	}
	if sess.Kind != kind || sess.ExpiresAt <= time.Now().Unix() {
		return "", false, nil
	}
	return sess.Username, true, nil
}

func (s *DBStore) Create(ctx context.Context, kind, username string, ttl time.Duration) (string, error) {
	tok, err := auth.NewToken(32)
	if err != nil {
		return "", err
	}
	if err := s.DB.CreateSession(ctx, tok, kind, username, ttl); err != nil {
		return "", err
	}
	return tok, nil
}

func (s *DBStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.DB.DeleteSession(ctx, token)
}
