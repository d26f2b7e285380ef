package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/performance-management/internal/identity"
	"github.com/frahmantamala/performance-management/internal/session"
)

// storedRecord is the wire form of a session record. Identity strips its
// backend token from public JSON, so persistence spells every field out
// explicitly; the round trip through Redis must be lossless.
type storedRecord struct {
	SessionID    string         `json:"session_id"`
	UserID       string         `json:"user_id"`
	Username     string         `json:"username"`
	Role         string         `json:"role"`
	BackendToken string         `json:"backend_token"`
	RoleDetails  map[string]any `json:"role_details,omitempty"`
	ExpiresAt    time.Time      `json:"expires_at"`
}

func encodeRecord(record session.Record) ([]byte, error) {
	return json.Marshal(storedRecord{
		SessionID:    record.SessionID,
		UserID:       record.Identity.ID,
		Username:     record.Identity.Username,
		Role:         record.Identity.Role.String(),
		BackendToken: record.Identity.Token,
		RoleDetails:  record.Identity.RoleDetails,
		ExpiresAt:    record.ExpiresAt,
	})
}

func decodeRecord(data []byte) (session.Record, error) {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return session.Record{}, fmt.Errorf("unmarshal session record: %w", err)
	}

	role, err := identity.ParseRole(stored.Role)
	if err != nil {
		return session.Record{}, fmt.Errorf("stored session record: %w", err)
	}

	return session.Record{
		SessionID: stored.SessionID,
		Identity: identity.Identity{
			ID:          stored.UserID,
			Username:    stored.Username,
			Role:        role,
			Token:       stored.BackendToken,
			RoleDetails: stored.RoleDetails,
		},
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

// Store is the Redis-backed session store used in production. TTLs track the
// token expiry so Redis expires records on its own.
type Store struct {
	client redis.UniversalClient
	prefix string
}

func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "session:"
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

func (s *Store) Save(ctx context.Context, record session.Record) error {
	if record.SessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session is already expired")
	}

	data, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	return s.client.Set(ctx, s.prefix+record.SessionID, data, ttl).Err()
}

func (s *Store) Get(ctx context.Context, sessionID string) (session.Record, error) {
	if sessionID == "" {
		return session.Record{}, session.ErrNoSession
	}

	data, err := s.client.Get(ctx, s.prefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.Record{}, session.ErrNoSession
		}
		return session.Record{}, fmt.Errorf("redis get: %w", err)
	}

	record, err := decodeRecord([]byte(data))
	if err != nil {
		return session.Record{}, err
	}

	// Redis TTL should have expired this already; double-check anyway
	if time.Now().After(record.ExpiresAt) {
		if err := s.Delete(ctx, sessionID); err != nil {
			return session.Record{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return session.Record{}, session.ErrNoSession
	}

	return record, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+sessionID).Err()
}

// RevocationList denylists session IDs in Redis. Entries carry a TTL to the
// original token expiry, after which the token is dead on its own.
type RevocationList struct {
	client redis.UniversalClient
	prefix string
}

func NewRevocationList(client redis.UniversalClient, prefix string) *RevocationList {
	if prefix == "" {
		prefix = "revoked:"
	}
	return &RevocationList{
		client: client,
		prefix: prefix,
	}
}

func (l *RevocationList) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	ttl := time.Until(until)
	if ttl <= 0 {
		// token already expired; nothing to guard against
		return nil
	}

	return l.client.Set(ctx, l.prefix+sessionID, "1", ttl).Err()
}

func (l *RevocationList) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}
