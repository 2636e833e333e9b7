package userdata

import (
	"context"
	"fmt"
	"iter"
	"math"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	domain "messaging-service/internal/domain/userdata"
	apperrors "messaging-service/pkg/errors"
)

func setupTestStore(t *testing.T) (*Store, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := NewStore(db, zaptest.NewLogger(t))
	require.NoError(t, store.Migrate(context.Background()))
	return store, db
}

func seedUsers(t *testing.T, s *Store, n int) {
	for i := 0; i < n; i++ {
		inserted, err := s.Insert(context.Background(), domain.SeedRow{
			Name:  fmt.Sprintf("User %d", i),
			Email: fmt.Sprintf("user%d@example.com", i),
			Age:   float64(20 + i),
		})
		require.NoError(t, err)
		require.True(t, inserted)
	}
}

func collect[T any](t *testing.T, seq iter.Seq2[T, error]) []T {
	var out []T
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func allUsers(t *testing.T, db *gorm.DB) []domain.UserRecord {
	var models []UserDataSchema
	require.NoError(t, db.Order("user_id").Find(&models).Error)
	out := make([]domain.UserRecord, len(models))
	for i, m := range models {
		out[i] = domain.UserRecord{UserID: m.UserID, Name: m.Name, Email: m.Email, Age: int(m.Age)}
	}
	return out
}

func TestStore_Migrate_Idempotent(t *testing.T) {
	store, _ := setupTestStore(t)
	assert.NoError(t, store.Migrate(context.Background()))
}

func TestStore_Insert_DuplicateEmailSkipped(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()
	row := domain.SeedRow{Name: "Ann", Email: "ann@example.com", Age: 31.5}

	inserted, err := store.Insert(ctx, row)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.Insert(ctx, domain.SeedRow{Name: "Other Ann", Email: "ann@example.com", Age: 50})
	require.NoError(t, err)
	assert.False(t, inserted)

	users := allUsers(t, db)
	require.Len(t, users, 1)
	assert.Equal(t, "Ann", users[0].Name)
	assert.Equal(t, 31, users[0].Age)
	assert.Len(t, users[0].UserID, 36)
}

func TestStore_StreamUsers(t *testing.T) {
	store, db := setupTestStore(t)
	seedUsers(t, store, 7)

	got := collect(t, store.StreamUsers(context.Background()))
	assert.Equal(t, allUsers(t, db), got)
}

func TestStore_StreamUsers_Empty(t *testing.T) {
	store, _ := setupTestStore(t)
	assert.Empty(t, collect(t, store.StreamUsers(context.Background())))
}

func TestStore_StreamUsers_BreakReleasesCursor(t *testing.T) {
	store, db := setupTestStore(t)
	seedUsers(t, store, 5)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	seen := 0
	for _, err := range store.StreamUsers(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, 1, sqlDB.Stats().InUse)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
	assert.Equal(t, 0, sqlDB.Stats().InUse)
}

func TestStore_StreamUsers_ErrorYieldedOnce(t *testing.T) {
	store, db := setupTestStore(t)
	require.NoError(t, db.Migrator().DropTable(&UserDataSchema{}))

	var errs int
	for _, err := range store.StreamUsers(context.Background()) {
		require.Error(t, err)
		errs++
	}
	assert.Equal(t, 1, errs)
}

func TestStore_StreamUsersInBatches(t *testing.T) {
	store, db := setupTestStore(t)
	seedUsers(t, store, 7)
	want := allUsers(t, db)

	tests := []struct {
		name      string
		batchSize int
		wantSizes []int
	}{
		{name: "uneven", batchSize: 3, wantSizes: []int{3, 3, 1}},
		{name: "even", batchSize: 7, wantSizes: []int{7}},
		{name: "larger than table", batchSize: 50, wantSizes: []int{7}},
		{name: "single", batchSize: 1, wantSizes: []int{1, 1, 1, 1, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				sizes []int
				flat  []domain.UserRecord
			)
			for batch, err := range store.StreamUsersInBatches(context.Background(), tt.batchSize) {
				require.NoError(t, err)
				sizes = append(sizes, len(batch))
				flat = append(flat, batch...)
			}
			assert.Equal(t, tt.wantSizes, sizes)
			assert.Equal(t, want, flat)
		})
	}
}

func TestStore_StreamUsersInBatches_InvalidSize(t *testing.T) {
	store, _ := setupTestStore(t)

	for _, size := range []int{0, -1} {
		var got []error
		for _, err := range store.StreamUsersInBatches(context.Background(), size) {
			got = append(got, err)
		}
		require.Len(t, got, 1)
		var vErr *apperrors.ValidationError
		assert.ErrorAs(t, got[0], &vErr)
	}
}

func TestStore_StreamUsersInBatches_HugeBatchSize(t *testing.T) {
	store, db := setupTestStore(t)
	seedUsers(t, store, 3)

	batches := collect(t, store.StreamUsersInBatches(context.Background(), math.MaxInt))
	require.Len(t, batches, 1)
	assert.Equal(t, allUsers(t, db), []domain.UserRecord(batches[0]))
}

func TestStore_StreamUsersInBatches_EmptyTable(t *testing.T) {
	store, _ := setupTestStore(t)
	assert.Empty(t, collect(t, store.StreamUsersInBatches(context.Background(), 10)))
}

func TestStore_PaginateUsers(t *testing.T) {
	store, db := setupTestStore(t)
	seedUsers(t, store, 5)
	want := allUsers(t, db)
	ctx := context.Background()

	page, err := store.PaginateUsers(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, want[2:4], page)

	page, err = store.PaginateUsers(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = store.PaginateUsers(ctx, 0, 0)
	assert.Error(t, err)
	_, err = store.PaginateUsers(ctx, 2, -1)
	assert.Error(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 0, sqlDB.Stats().InUse)
}

func TestStore_LazyPaginate(t *testing.T) {
	store, db := setupTestStore(t)
	seedUsers(t, store, 5)
	want := allUsers(t, db)

	pages := collect(t, store.LazyPaginate(context.Background(), 2))
	require.Len(t, pages, 3)

	var flat []domain.UserRecord
	for i, p := range pages {
		assert.Equal(t, i*2, p.Offset)
		flat = append(flat, p.Records...)
	}
	assert.Equal(t, want, flat)
	assert.Len(t, pages[2].Records, 1)
}

func TestStore_LazyPaginate_StopsEarly(t *testing.T) {
	store, _ := setupTestStore(t)
	seedUsers(t, store, 6)

	count := 0
	for _, err := range store.LazyPaginate(context.Background(), 2) {
		require.NoError(t, err)
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestStore_LazyPaginate_Empty(t *testing.T) {
	store, _ := setupTestStore(t)
	assert.Empty(t, collect(t, store.LazyPaginate(context.Background(), 3)))
}

func TestStore_StreamUserAges(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	_, err := store.Insert(ctx, domain.SeedRow{Name: "A", Email: "a@example.com", Age: 25})
	require.NoError(t, err)
	_, err = store.Insert(ctx, domain.SeedRow{Name: "B", Email: "b@example.com", Age: 45.5})
	require.NoError(t, err)

	ages := collect(t, store.StreamUserAges(ctx))
	assert.ElementsMatch(t, []float64{25, 45.5}, ages)
}
