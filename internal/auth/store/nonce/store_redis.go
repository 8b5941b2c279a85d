package nonce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tipjar/internal/auth/models"
	id "tipjar/pkg/domain"
	"tipjar/pkg/platform/sentinel"
)

const challengeKeyPrefix = "tipjar:auth:challenge:"

// RedisStore shares pending challenges between server instances. Keys
// expire with the challenge so abandoned sign-ins leave nothing behind.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces keys, mostly for tests sharing one database.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: challengeKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) key(address id.Identity) string {
	return s.prefix + address.String()
}

func (s *RedisStore) Save(ctx context.Context, challenge *models.Challenge) error {
	if challenge == nil {
		return fmt.Errorf("nil challenge: %w", sentinel.ErrInvalidState)
	}
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("challenge for %s: %w", challenge.Address, sentinel.ErrExpired)
	}
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	// Plain SET so a fresh challenge replaces a pending one.
	if err := s.client.Set(ctx, s.key(challenge.Address), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, address id.Identity, now time.Time) (*models.Challenge, error) {
	raw, err := s.client.GetDel(ctx, s.key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("challenge for %s: %w", address, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}
	var challenge models.Challenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	if challenge.IsExpired(now) {
		return nil, fmt.Errorf("challenge for %s: %w", address, sentinel.ErrExpired)
	}
	return &challenge, nil
}
