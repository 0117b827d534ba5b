// Package redisstore keeps backend continuation tokens in Redis so any engine
// instance can resume an in-flight flow.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/psd2hub/xs2a-engine/internal/core/spi"
)

const keyPrefix = "xs2a:continuation:"

type ContinuationStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewContinuationStore(client *redis.Client, ttl time.Duration) *ContinuationStore {
	return &ContinuationStore{client: client, ttl: ttl}
}

// Get returns the continuation data for a resource, or nil when none was
// stored yet. A missing token is not an error; flows start without one.
func (s *ContinuationStore) Get(ctx context.Context, resourceID uuid.UUID) (spi.ContinuationData, error) {
	data, err := s.client.Get(ctx, keyPrefix+resourceID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get continuation: %w", err)
	}
	return data, nil
}

func (s *ContinuationStore) Put(ctx context.Context, resourceID uuid.UUID, data spi.ContinuationData) error {
	if err := s.client.Set(ctx, keyPrefix+resourceID.String(), []byte(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("put continuation: %w", err)
	}
	return nil
}
