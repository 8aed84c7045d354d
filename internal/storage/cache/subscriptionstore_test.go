package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haulmatch/go-push-service/internal/storage/cache"
	"github.com/haulmatch/go-push-service/pkg/push"
)

// --- Mocks ---

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}
func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}
func (m *MockCache) Del(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockRealStore struct {
	mock.Mock
}

func (m *MockRealStore) Register(ctx context.Context, userID string, sub push.Subscription) error {
	return m.Called(ctx, userID, sub).Error(0)
}
func (m *MockRealStore) Unregister(ctx context.Context, userID string, endpoint string) error {
	return m.Called(ctx, userID, endpoint).Error(0)
}
func (m *MockRealStore) Fetch(ctx context.Context, userID string) ([]push.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]push.Subscription), args.Error(1)
}

func TestCachedStore_ImmediateInvalidation(t *testing.T) {
	ctx := context.Background()
	mockCache := new(MockCache)
	mockDB := new(MockRealStore)

	store := cache.NewCachedSubscriptionStore(mockDB, mockCache, 1*time.Hour)
	const userID = "user-opting-out"
	const cacheKey = "push:subs:user-opting-out"

	t.Run("Unregister invalidates cache immediately", func(t *testing.T) {
		endpoint := "https://push.example/old"

		mockDB.On("Unregister", ctx, userID, endpoint).Return(nil)
		mockCache.On("Del", ctx, cacheKey).Return(nil)

		err := store.Unregister(ctx, userID, endpoint)

		require.NoError(t, err)
		mockDB.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("Subsequent Fetch hits DB and refills", func(t *testing.T) {
		// Cache miss (the delete worked), so the source of truth is read and
		// the empty state is cached back.
		mockCache.On("Get", ctx, cacheKey, mock.Anything).Return(assert.AnError)
		mockDB.On("Fetch", ctx, userID).Return([]push.Subscription{}, nil)
		mockCache.On("Set", ctx, cacheKey, []push.Subscription{}, mock.Anything).Return(nil)

		subs, err := store.Fetch(ctx, userID)

		require.NoError(t, err)
		require.Empty(t, subs)
		mockDB.AssertExpectations(t)
	})
}

func TestCachedStore_RegisterInvalidates(t *testing.T) {
	ctx := context.Background()
	mockCache := new(MockCache)
	mockDB := new(MockRealStore)
	store := cache.NewCachedSubscriptionStore(mockDB, mockCache, 1*time.Hour)

	sub := push.Subscription{
		UserID:   "u1",
		Endpoint: "https://push.example/new",
		Keys:     push.SubscriptionKeys{P256dh: "p", Auth: "a"},
	}

	mockDB.On("Register", ctx, "u1", sub).Return(nil)
	mockCache.On("Del", ctx, "push:subs:u1").Return(nil)

	require.NoError(t, store.Register(ctx, "u1", sub))
	mockDB.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestCachedStore_CacheFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	mockCache := new(MockCache)
	mockDB := new(MockRealStore)
	store := cache.NewCachedSubscriptionStore(mockDB, mockCache, 1*time.Hour)

	subs := []push.Subscription{{UserID: "u1", Endpoint: "https://push.example/a"}}

	// Redis down for both read and refill: the fetch still succeeds from DB.
	mockCache.On("Get", ctx, "push:subs:u1", mock.Anything).Return(assert.AnError)
	mockDB.On("Fetch", ctx, "u1").Return(subs, nil)
	mockCache.On("Set", ctx, "push:subs:u1", subs, mock.Anything).Return(assert.AnError)

	got, err := store.Fetch(ctx, "u1")

	require.NoError(t, err)
	assert.Equal(t, subs, got)
}
