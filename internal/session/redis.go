package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/actuallystonmai/booklist-service/internal/domain"
)

// minRevocationTTL keeps a revocation around even for tokens about to expire,
// so clock skew cannot resurrect them.
const minRevocationTTL = time.Minute

// Store tracks revoked viewer sessions in Redis.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func buildKey(viewer domain.ViewerID, sessionID string) string {
	return fmt.Sprintf("session:revoked:viewer:%d:sid:%s", viewer, sessionID)
}

// Revoke marks a session as logged out until its token would have expired.
func (s *Store) Revoke(ctx context.Context, viewer domain.ViewerID, sessionID string, ttl time.Duration) error {
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	if err := s.client.Set(ctx, buildKey(viewer, sessionID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke session %s: %w", sessionID, err)
	}
	return nil
}

// IsRevoked reports whether the session was logged out.
func (s *Store) IsRevoked(ctx context.Context, viewer domain.ViewerID, sessionID string) (bool, error) {
	err := s.client.Get(ctx, buildKey(viewer, sessionID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session %s: %w", sessionID, err)
	}
	return true, nil
}

// Ping connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
