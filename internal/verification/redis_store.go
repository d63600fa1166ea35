package verification

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares tokens between api-server replicas. Keys hold the
// SHA-256 of the token so a dump of the cache does not leak usable values.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func tokenKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return "verify:token:" + hex.EncodeToString(sum[:])
}

// Put refuses a zero ttl, which SET NX would turn into a key that never expires.
func (s *RedisStore) Put(ctx context.Context, value, owner string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	ok, err := s.client.SetNX(ctx, tokenKey(value), owner, ttl).Result()
	if err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	if !ok {
		return ErrTokenExists
	}
	return nil
}

// Redeem uses GETDEL so concurrent redeemers race inside Redis and only
// the first one gets the owner back.
func (s *RedisStore) Redeem(ctx context.Context, value string) (string, bool, error) {
	owner, err := s.client.GetDel(ctx, tokenKey(value)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redeem verification token: %w", err)
	}
	return owner, true, nil
}
