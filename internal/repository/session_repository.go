package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	revokedTokenPrefix = "auth:revoked:"
	revokedUserPrefix  = "auth:revoked-user:"
	inflightPrefix     = "inflight:"
)

// releaseScript deletes a lock only while it still carries the holder's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionRepository keeps short-lived session state in Redis: the access
// token denylist and in-flight submission locks. A nil client never reports
// a revocation and always grants locks.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// RevokeToken denylists an access token id until ttl elapses.
func (r *SessionRepository) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if r.client == nil || tokenID == "" || ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedTokenPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the access token id was denylisted.
func (r *SessionRepository) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r.client == nil || tokenID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedTokenPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revoked token: %w", err)
	}
	return n > 0, nil
}

// RevokeUser denylists every access token of a user until ttl elapses.
func (r *SessionRepository) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if r.client == nil || userID == "" || ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedUserPrefix+userID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke user: %w", err)
	}
	return nil
}

// IsUserRevoked reports whether every session of the user was denylisted.
func (r *SessionRepository) IsUserRevoked(ctx context.Context, userID string) (bool, error) {
	if r.client == nil || userID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedUserPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revoked user: %w", err)
	}
	return n > 0, nil
}

// Acquire takes the in-flight lock for key and returns the token that owns
// it. ok is false when another request holds the lock.
func (r *SessionRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	if r.client == nil {
		return token, true, nil
	}
	ok, err = r.client.SetNX(ctx, inflightPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis acquire %s: %w", key, err)
	}
	return token, ok, nil
}

// Release drops the in-flight lock for key if token still owns it. A lock
// that expired and was taken by another request is left alone.
func (r *SessionRepository) Release(ctx context.Context, key, token string) error {
	if r.client == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, r.client, []string{inflightPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}
