package cached

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"messaging-service/internal/adapter/cache"
	"messaging-service/internal/domain/chat"
	apperrors "messaging-service/pkg/errors"
)

// countingRepo is an in-memory user.Repository that counts GetByID calls.
type countingRepo struct {
	mu    sync.Mutex
	users map[string]chat.User
	gets  atomic.Int32
	delay time.Duration
}

func newCountingRepo(users ...chat.User) *countingRepo {
	r := &countingRepo{users: make(map[string]chat.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *countingRepo) Create(_ context.Context, u *chat.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	return nil
}

func (r *countingRepo) GetByID(_ context.Context, id string) (*chat.User, error) {
	r.gets.Add(1)
	time.Sleep(r.delay)
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("user", "user not found")
	}
	return &u, nil
}

func (r *countingRepo) GetByEmail(context.Context, string) (*chat.User, error) { return nil, nil }

func (r *countingRepo) Update(_ context.Context, u *chat.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	return nil
}

func (r *countingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *countingRepo) Search(context.Context, string, string, int) ([]chat.User, error) {
	return nil, nil
}

func setupCache(t *testing.T) cache.UserCache {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisUserCache(client, time.Minute, zaptest.NewLogger(t))
}

func TestCachedUserRepository_GetByID_CachesResult(t *testing.T) {
	db := newCountingRepo(chat.User{ID: "u1", FirstName: "Ann", Email: "ann@example.com"})
	repo := NewCachedUserRepository(db, setupCache(t), zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ann", u.FirstName)
	}
	assert.Equal(t, int32(1), db.gets.Load())
}

func TestCachedUserRepository_GetByID_SingleFlight(t *testing.T) {
	db := newCountingRepo(chat.User{ID: "u1", FirstName: "Ann"})
	db.delay = 50 * time.Millisecond
	repo := NewCachedUserRepository(db, nil, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := repo.GetByID(context.Background(), "u1")
			assert.NoError(t, err)
			assert.Equal(t, "Ann", u.FirstName)
		}()
	}
	wg.Wait()

	assert.Less(t, db.gets.Load(), int32(10))
}

func TestCachedUserRepository_UpdateInvalidates(t *testing.T) {
	db := newCountingRepo(chat.User{ID: "u1", FirstName: "Ann"})
	repo := NewCachedUserRepository(db, setupCache(t), zaptest.NewLogger(t))
	ctx := context.Background()

	u, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)

	u.FirstName = "Anna"
	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.FirstName)
	assert.Equal(t, int32(2), db.gets.Load())
}

func TestCachedUserRepository_DeleteInvalidates(t *testing.T) {
	db := newCountingRepo(chat.User{ID: "u1", FirstName: "Ann"})
	repo := NewCachedUserRepository(db, setupCache(t), zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "u1"))

	_, err = repo.GetByID(ctx, "u1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCachedUserRepository_ReturnsCopies(t *testing.T) {
	db := newCountingRepo(chat.User{ID: "u1", FirstName: "Ann"})
	repo := NewCachedUserRepository(db, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	a, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	a.FirstName = "changed"

	b, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", b.FirstName)
}
