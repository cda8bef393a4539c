package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cartfold/cartfold-backend/pkg/redis"
)

// store is the subset of the redis client the manager needs.
type store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, keys ...string) error
}

// ErrSessionNotFound is returned when a refresh token is unknown or expired.
var ErrSessionNotFound = fmt.Errorf("session not found")

// Session is the redis payload behind a refresh token.
type Session struct {
	UserID   string `json:"user_id"`
	AccessID string `json:"access_id"`
}

// Manager issues opaque refresh tokens and tracks which access token IDs
// are still live, so logout invalidates tokens before they expire.
type Manager struct {
	store      store
	refreshTTL time.Duration
	accessTTL  time.Duration
}

func NewManager(store store, refreshTTL, accessTTL time.Duration) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session manager requires a store")
	}
	if refreshTTL <= 0 {
		return nil, fmt.Errorf("refresh TTL must be positive")
	}
	if accessTTL <= 0 {
		return nil, fmt.Errorf("access TTL must be positive")
	}
	return &Manager{store: store, refreshTTL: refreshTTL, accessTTL: accessTTL}, nil
}

// Generate creates a refresh token bound to the user and the minted access
// token's ID.
func (m *Manager) Generate(ctx context.Context, userID, accessID string) (string, error) {
	refreshToken, err := newOpaqueToken()
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(Session{UserID: userID, AccessID: accessID})
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}

	if err := m.store.Set(ctx, redis.AccessSessionKey(refreshToken), string(payload), m.refreshTTL); err != nil {
		return "", fmt.Errorf("storing refresh session: %w", err)
	}
	if err := m.store.Set(ctx, accessKey(accessID), userID, m.accessTTL); err != nil {
		return "", fmt.Errorf("storing access marker: %w", err)
	}
	return refreshToken, nil
}

// Consume validates the refresh token and deletes it along with its access
// marker, so each refresh token rotates exactly once.
func (m *Manager) Consume(ctx context.Context, refreshToken string) (Session, error) {
	sess, err := m.lookup(ctx, refreshToken)
	if err != nil {
		return Session{}, err
	}

	if err := m.store.Del(ctx, redis.AccessSessionKey(refreshToken), accessKey(sess.AccessID)); err != nil {
		return Session{}, fmt.Errorf("revoking old session: %w", err)
	}
	return sess, nil
}

// Revoke deletes the refresh session and its access marker.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) error {
	sess, err := m.lookup(ctx, refreshToken)
	if err != nil {
		if err == ErrSessionNotFound {
			return nil
		}
		return err
	}
	return m.store.Del(ctx, redis.AccessSessionKey(refreshToken), accessKey(sess.AccessID))
}

// HasSession reports whether the access token ID is still live.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	_, ok, err := m.store.Get(ctx, accessKey(accessID))
	if err != nil {
		return false, fmt.Errorf("checking access session: %w", err)
	}
	return ok, nil
}

func (m *Manager) lookup(ctx context.Context, refreshToken string) (Session, error) {
	raw, ok, err := m.store.Get(ctx, redis.AccessSessionKey(refreshToken))
	if err != nil {
		return Session{}, fmt.Errorf("loading refresh session: %w", err)
	}
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("decoding session: %w", err)
	}
	return sess, nil
}

func accessKey(accessID string) string {
	return "session:access:" + accessID
}

func newOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
