package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
)

// Header carries the client-chosen key on order creation requests.
const Header = "Idempotency-Key"

const pendingMarker = "pending"

type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	log       *logrus.Logger
}

var _ domain.IdempotencyStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		client:    client,
		keyPrefix: "marketplace:idempotency",
		ttl:       ttl,
		log:       logger,
	}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Claim(ctx context.Context, customerID int, key string) (int, bool, error) {
	redisKey := s.redisKey(customerID, key)

	ok, err := s.client.SetNX(ctx, redisKey, pendingMarker, s.ttl).Result()
	if err != nil {
		s.log.Errorf("Idempotency: Failed to claim key %s: %v", redisKey, err)
		return 0, false, fmt.Errorf("could not claim idempotency key: %w", err)
	}
	if ok {
		return 0, true, nil
	}

	value, err := s.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; treat as a fresh claim attempt.
		return s.Claim(ctx, customerID, key)
	}
	if err != nil {
		return 0, false, fmt.Errorf("could not read idempotency key: %w", err)
	}
	if value == pendingMarker {
		s.log.Warnf("Idempotency: Key %s is still in flight", redisKey)
		return 0, false, domain.NewOrderError("create order", domain.ErrConflict, "a request with this idempotency key is already in progress")
	}
	orderID, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", value, err)
	}
	s.log.Infof("Idempotency: Key %s already produced order %d", redisKey, orderID)
	return orderID, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, customerID int, key string, orderID int) error {
	if err := s.client.Set(ctx, s.redisKey(customerID, key), strconv.Itoa(orderID), s.ttl).Err(); err != nil {
		return fmt.Errorf("could not store idempotency result: %w", err)
	}
	return nil
}

func (s *RedisStore) Forget(ctx context.Context, customerID int, key string) error {
	if err := s.client.Del(ctx, s.redisKey(customerID, key)).Err(); err != nil {
		return fmt.Errorf("could not release idempotency key: %w", err)
	}
	return nil
}

func (s *RedisStore) redisKey(customerID int, key string) string {
	return fmt.Sprintf("%s:%d:%s", s.keyPrefix, customerID, strings.TrimSpace(key))
}
