package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"messaging-service/internal/domain/chat"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func testUser(id string) *chat.User {
	return &chat.User{
		ID:           id,
		FirstName:    "John",
		LastName:     "Doe",
		Email:        id + "@example.com",
		Role:         chat.RoleHost,
		PasswordHash: "$2a$10$secret",
		IsActive:     true,
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRedisUserCache_SetAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))

	user := testUser("11111111-1111-1111-1111-111111111111")
	require.NoError(t, cache.Set(context.Background(), user))

	raw, err := mr.Get("chat:user:" + user.ID)
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret")

	cached, err := cache.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)

	assert.Equal(t, user.ID, cached.ID)
	assert.Equal(t, user.Email, cached.Email)
	assert.Equal(t, chat.RoleHost, cached.Role)
	assert.True(t, cached.CreatedAt.Equal(user.CreatedAt))
	assert.Empty(t, cached.PasswordHash)
}

func TestRedisUserCache_Set_NilUser(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))

	err := cache.Set(context.Background(), nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot cache nil user")
}

func TestRedisUserCache_Get_CacheMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))

	cached, err := cache.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRedisUserCache_Get_Corrupted(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))

	require.NoError(t, mr.Set("chat:user:bad", "{not json"))
	_, err := cache.Get(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRedisUserCache_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))

	user := testUser("u1")
	require.NoError(t, cache.Set(context.Background(), user))
	require.NoError(t, cache.Delete(context.Background(), user.ID))

	cached, err := cache.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRedisUserCache_DeleteMultiple(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisUserCache(client, 5*time.Minute, zaptest.NewLogger(t))

	ids := []string{"u1", "u2", "u3"}
	for _, id := range ids {
		require.NoError(t, cache.Set(context.Background(), testUser(id)))
	}

	require.NoError(t, cache.DeleteMultiple(context.Background(), ids...))
	require.NoError(t, cache.DeleteMultiple(context.Background()))

	for _, id := range ids {
		cached, err := cache.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, cached)
	}
}

func TestRedisUserCache_TTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserCache(client, 2*time.Second, zaptest.NewLogger(t))

	require.NoError(t, cache.Set(context.Background(), testUser("u1")))

	mr.FastForward(3 * time.Second)

	cached, err := cache.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestRedisUserCache_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisUserCache(client, time.Minute, zaptest.NewLogger(t))

	mr.Close()

	_, err := cache.Get(context.Background(), "u1")
	assert.Error(t, err)
	assert.Error(t, cache.Set(context.Background(), testUser("u1")))
}
