package shared

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// IdempotencyStore remembers processed request keys in redis. Each key holds
// the fingerprint of the request that claimed it and expires after ttl.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// ErrIdempotencyReplay indicates the same request was already processed.
var ErrIdempotencyReplay = errors.New("idempotent request already processed")

// Fingerprint hashes request parts into a stable identifier.
func Fingerprint(parts ...string) string {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CheckAndInsert claims key for module. A repeat with the same fingerprint
// returns ErrIdempotencyReplay; a repeat with a different one is a validation
// failure.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module, fingerprint string) error {
	if s == nil || s.client == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	redisKey := idempotencyKey(module, key)
	claimed, err := s.client.SetNX(ctx, redisKey, fingerprint, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("idempotency: claim: %w", err)
	}
	if claimed {
		return nil
	}
	existing, err := s.client.Get(ctx, redisKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; claim again.
			return s.CheckAndInsert(ctx, key, module, fingerprint)
		}
		return fmt.Errorf("idempotency: lookup: %w", err)
	}
	if existing == fingerprint {
		return ErrIdempotencyReplay
	}
	return Validation("idempotency_key", key, "key reused for a different request")
}

// Delete removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, key, module string) error {
	if s == nil || s.client == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	return s.client.Del(ctx, idempotencyKey(module, key)).Err()
}

func idempotencyKey(module, key string) string {
	return fmt.Sprintf("idem:%s:%s", module, key)
}
