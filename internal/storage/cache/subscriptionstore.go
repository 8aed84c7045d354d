// Package cache adds a Redis read-aside layer over the subscription store,
// so the per-notification fan-out lookup does not hit Firestore every time.
package cache

import (
	"context"
	"time"

	"github.com/haulmatch/go-push-service/pkg/push"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedSubscriptionStore is a decorator adding read-aside caching to any
// push.SubscriptionStore.
type CachedSubscriptionStore struct {
	realStore push.SubscriptionStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedSubscriptionStore(realStore push.SubscriptionStore, cache CacheClient, ttl time.Duration) *CachedSubscriptionStore {
	return &CachedSubscriptionStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// Fetch serves from cache when possible and repopulates it on a miss.
// Cache writes are fire-and-forget: if Redis is down we just serve from the
// source of truth.
func (s *CachedSubscriptionStore) Fetch(ctx context.Context, userID string) ([]push.Subscription, error) {
	key := s.cacheKey(userID)

	var cached []push.Subscription
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	fresh, err := s.realStore.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, key, fresh, s.ttl)
	return fresh, nil
}

// Register writes through and invalidates, forcing the next Fetch back to
// the source of truth.
func (s *CachedSubscriptionStore) Register(ctx context.Context, userID string, sub push.Subscription) error {
	if err := s.realStore.Register(ctx, userID, sub); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

// Unregister must clear the cache even though the DB write succeeded:
// a dead (410) or opted-out endpoint has to stop receiving immediately,
// not when the TTL runs out.
func (s *CachedSubscriptionStore) Unregister(ctx context.Context, userID string, endpoint string) error {
	if err := s.realStore.Unregister(ctx, userID, endpoint); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

func (s *CachedSubscriptionStore) invalidate(ctx context.Context, userID string) error {
	return s.cache.Del(ctx, s.cacheKey(userID))
}

func (s *CachedSubscriptionStore) cacheKey(userID string) string {
	return "push:subs:" + userID
}
