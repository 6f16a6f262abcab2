// Package invitetoken issues and redeems the single-use tokens embedded in
// invitation emails.
package invitetoken

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps issued invitation tokens in Redis. Only the SHA-256 of
// the token is stored; the plaintext lives solely in the email.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed token store
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "invite:",
		ttl:    ttl,
	}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "invite:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + hex.EncodeToString(sum[:])
}

// Issue creates a fresh token pointing at the invitation and stores it with
// the configured TTL.
func (s *RedisStore) Issue(ctx context.Context, invitationID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	token := hex.EncodeToString(raw)

	ttl := s.ttl
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour // Default 7 days
	}

	if err := s.client.Set(ctx, s.key(token), invitationID, ttl).Err(); err != nil {
		return "", fmt.Errorf("save invite token: %w", err)
	}
	return token, nil
}

// Redeem resolves a token to its invitation id and consumes it. A token
// redeems at most once.
func (s *RedisStore) Redeem(ctx context.Context, token string) (string, error) {
	key := s.key(token)
	invitationID, err := s.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("token not found or expired")
	}
	if err != nil {
		return "", fmt.Errorf("redeem invite token: %w", err)
	}
	return invitationID, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
