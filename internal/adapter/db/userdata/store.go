// Package userdata streams rows of the user_data table through held database cursors.
package userdata

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"messaging-service/internal/adapter/db/sqlexec"
	domain "messaging-service/internal/domain/userdata"
	apperrors "messaging-service/pkg/errors"
)

const recordColumns = "user_id, name, email, age"

// UserDataSchema represents the database schema for the user_data table.
type UserDataSchema struct {
	UserID string  `gorm:"column:user_id;type:char(36);primaryKey"`
	Name   string  `gorm:"column:name;type:varchar(255);not null"`
	Email  string  `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	Age    float64 `gorm:"column:age;type:decimal(5,2);not null"`
}

// TableName specifies the table name for the UserDataSchema model.
func (UserDataSchema) TableName() string {
	return "user_data"
}

// Store reads and seeds the user_data table.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// Migrate creates the user_data table and its indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&UserDataSchema{}); err != nil {
		s.log.Error("failed to migrate user_data", zap.Error(err))
		return fmt.Errorf("failed to migrate user_data: %w", err)
	}
	return nil
}

// Insert stores row under a new user id. A row whose email already exists is skipped
// and reported with inserted=false.
func (s *Store) Insert(ctx context.Context, row domain.SeedRow) (bool, error) {
	model := UserDataSchema{
		UserID: uuid.NewString(),
		Name:   row.Name,
		Email:  row.Email,
		Age:    row.Age,
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if res.Error != nil {
		s.log.Error("failed to insert user_data row", zap.String("email", row.Email), zap.Error(res.Error))
		return false, fmt.Errorf("failed to insert user %s: %w", row.Email, res.Error)
	}
	if res.RowsAffected == 0 {
		s.log.Info("user already exists, skipping", zap.String("email", row.Email))
		return false, nil
	}

	s.log.Debug("user inserted", zap.String("user_id", model.UserID), zap.String("email", row.Email))
	return true, nil
}

func (s *Store) openCursor(ctx context.Context, columns string) (*sql.Rows, error) {
	return s.db.WithContext(ctx).Model(&UserDataSchema{}).Select(columns).Order("user_id").Rows()
}

func scanRecord(rows *sql.Rows) (domain.UserRecord, error) {
	var (
		rec domain.UserRecord
		age float64
	)
	if err := rows.Scan(&rec.UserID, &rec.Name, &rec.Email, &age); err != nil {
		return domain.UserRecord{}, err
	}
	rec.Age = int(age)
	return rec, nil
}

// StreamUsers yields every row of user_data, one at a time, from a single cursor.
// A database error is yielded once as the last element.
func (s *Store) StreamUsers(ctx context.Context) iter.Seq2[domain.UserRecord, error] {
	return func(yield func(domain.UserRecord, error) bool) {
		rows, err := s.openCursor(ctx, recordColumns)
		if err != nil {
			s.log.Error("failed to open user stream", zap.Error(err))
			yield(domain.UserRecord{}, fmt.Errorf("failed to stream users: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				s.log.Error("failed to scan user row", zap.Error(err))
				yield(domain.UserRecord{}, fmt.Errorf("failed to scan user: %w", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			s.log.Error("user stream interrupted", zap.Error(err))
			yield(domain.UserRecord{}, fmt.Errorf("failed to stream users: %w", err))
		}
	}
}

// maxBatchPrealloc bounds the capacity reserved up front for one batch.
const maxBatchPrealloc = 1024

// StreamUsersInBatches yields the rows of user_data grouped into batches of batchSize.
// The last batch may be shorter; the sequence ends at the first empty fetch.
func (s *Store) StreamUsersInBatches(ctx context.Context, batchSize int) iter.Seq2[domain.Batch, error] {
	return func(yield func(domain.Batch, error) bool) {
		if batchSize <= 0 {
			yield(nil, apperrors.NewValidationError("batch_size", "must be a positive integer"))
			return
		}

		rows, err := s.openCursor(ctx, recordColumns)
		if err != nil {
			s.log.Error("failed to open batch stream", zap.Error(err))
			yield(nil, fmt.Errorf("failed to stream batches: %w", err))
			return
		}
		defer rows.Close()

		for {
			batch := make(domain.Batch, 0, min(batchSize, maxBatchPrealloc))
			for len(batch) < batchSize && rows.Next() {
				rec, err := scanRecord(rows)
				if err != nil {
					s.log.Error("failed to scan user row", zap.Error(err))
					yield(nil, fmt.Errorf("failed to scan user: %w", err))
					return
				}
				batch = append(batch, rec)
			}
			if len(batch) == 0 {
				break
			}
			if !yield(batch, nil) {
				return
			}
			if len(batch) < batchSize {
				break
			}
		}
		if err := rows.Err(); err != nil {
			s.log.Error("batch stream interrupted", zap.Error(err))
			yield(nil, fmt.Errorf("failed to stream batches: %w", err))
		}
	}
}

// PaginateUsers returns at most pageSize rows starting at offset. Each call runs on its
// own connection, released before it returns.
func (s *Store) PaginateUsers(ctx context.Context, pageSize, offset int) ([]domain.UserRecord, error) {
	if pageSize <= 0 {
		return nil, apperrors.NewValidationError("page_size", "must be a positive integer")
	}
	if offset < 0 {
		return nil, apperrors.NewValidationError("offset", "must not be negative")
	}

	var models []UserDataSchema
	err := sqlexec.WithConnection(ctx, s.db, func(conn *gorm.DB) error {
		return conn.Select(recordColumns).Order("user_id").Limit(pageSize).Offset(offset).Find(&models).Error
	})
	if err != nil {
		s.log.Error("failed to paginate users", zap.Int("page_size", pageSize), zap.Int("offset", offset), zap.Error(err))
		return nil, fmt.Errorf("failed to paginate users: %w", err)
	}

	records := make([]domain.UserRecord, len(models))
	for i, m := range models {
		records[i] = domain.UserRecord{
			UserID: m.UserID,
			Name:   m.Name,
			Email:  m.Email,
			Age:    int(m.Age),
		}
	}
	return records, nil
}

// LazyPaginate yields consecutive pages of pageSize rows, fetching each page only when
// the consumer asks for it. It stops at the first empty page.
func (s *Store) LazyPaginate(ctx context.Context, pageSize int) iter.Seq2[domain.Page, error] {
	return func(yield func(domain.Page, error) bool) {
		offset := 0
		for {
			records, err := s.PaginateUsers(ctx, pageSize, offset)
			if err != nil {
				yield(domain.Page{Offset: offset}, err)
				return
			}
			if len(records) == 0 {
				return
			}
			if !yield(domain.Page{Offset: offset, Records: records}, nil) {
				return
			}
			offset += pageSize
		}
	}
}

// StreamUserAges yields the age column of every row, one at a time.
func (s *Store) StreamUserAges(ctx context.Context) iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		rows, err := s.openCursor(ctx, "age")
		if err != nil {
			s.log.Error("failed to open age stream", zap.Error(err))
			yield(0, fmt.Errorf("failed to stream ages: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var age float64
			if err := rows.Scan(&age); err != nil {
				s.log.Error("failed to scan age", zap.Error(err))
				yield(0, fmt.Errorf("failed to scan age: %w", err))
				return
			}
			if !yield(age, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			s.log.Error("age stream interrupted", zap.Error(err))
			yield(0, fmt.Errorf("failed to stream ages: %w", err))
		}
	}
}
