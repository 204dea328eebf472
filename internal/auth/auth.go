package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"blog/internal/db"
	"blog/internal/models"
)

var (
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrInvalidToken    = errors.New("invalid token")
)

// Manager issues and resolves opaque API tokens. Each user holds at most one
// token; it stays valid until revoked.
type Manager struct {
	db *sql.DB
}

func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

func newKey() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Issue returns the user's token, creating it when the user has none yet.
// q may be a transaction so registration can issue atomically.
func (m *Manager) Issue(ctx context.Context, q db.Querier, userID int64) (string, error) {
	if q == nil {
		q = m.db
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO tokens(key,user_id,created_at) VALUES(?,?,?) ON CONFLICT(user_id) DO NOTHING`,
		newKey(), userID, time.Now())
	if err != nil {
		return "", fmt.Errorf("insert token: %w", err)
	}
	var key string
	if err := q.QueryRowContext(ctx, `SELECT key FROM tokens WHERE user_id = ?`, userID).Scan(&key); err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return key, nil
}

// Revoke deletes the user's token. Revoking twice is harmless.
func (m *Manager) Revoke(ctx context.Context, userID int64) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = ?`, userID)
	return err
}

// Authenticate resolves a token key to its user.
func (m *Manager) Authenticate(ctx context.Context, key string) (*models.User, error) {
	u := &models.User{}
	err := m.db.QueryRowContext(ctx, `SELECT u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name, u.created_at
		FROM tokens t JOIN users u ON u.id = t.user_id WHERE t.key = ?`, key).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// TokenFromRequest extracts the key from an "Authorization: Token <key>" or
// "Authorization: Bearer <key>" header. No header, or another scheme, yields
// "" and no error; a recognised scheme with a malformed value is
// ErrInvalidToken.
func TokenFromRequest(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", nil
	}
	parts := strings.Fields(h)
	scheme := strings.ToLower(parts[0])
	if scheme != "token" && scheme != "bearer" {
		return "", nil
	}
	if len(parts) != 2 {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}
