package chatstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"messaging-service/internal/domain/chat"
	apperrors "messaging-service/pkg/errors"
	"messaging-service/pkg/security"
)

// UserRepo implements the chat user repository with GORM.
type UserRepo struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepo creates a new instance of UserRepo.
func NewUserRepo(db *gorm.DB, log *zap.Logger) *UserRepo {
	return &UserRepo{db: db, log: log}
}

// Create inserts a new user. A duplicate email yields an AlreadyExistsError.
func (r *UserRepo) Create(ctx context.Context, u *chat.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	model := toUserSchema(u)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate email on create", zap.String("email", u.Email))
			return apperrors.NewAlreadyExistsError("user", "user with this email already exists")
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.CreatedAt = model.CreatedAt
	r.log.Info("user created in db", zap.String("id", model.ID))
	return nil
}

// Update saves the profile fields of an existing user. An empty PasswordHash leaves the
// stored hash unchanged.
func (r *UserRepo) Update(ctx context.Context, u *chat.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	fields := map[string]any{
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"email":        u.Email,
		"phone_number": u.PhoneNumber,
		"role":         string(u.Role),
		"is_active":    u.IsActive,
	}
	// cached users carry no hash; an empty hash keeps the stored one
	if u.PasswordHash != "" {
		fields["password_hash"] = u.PasswordHash
	}

	res := r.db.WithContext(ctx).Model(&UserSchema{}).Where("user_id = ?", u.ID).Updates(fields)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return apperrors.NewAlreadyExistsError("user", "user with this email already exists")
		}
		r.log.Error("failed to update user in db", zap.Error(res.Error), zap.String("id", u.ID))
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("user", "user not found")
	}

	r.log.Info("user updated in db", zap.String("id", u.ID))
	return nil
}

// Delete removes a user together with the messages they sent and their memberships.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sender_id = ?", id).Delete(&MessageSchema{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&ParticipantSchema{}).Error; err != nil {
			return err
		}
		res := tx.Where("user_id = ?", id).Delete(&UserSchema{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewNotFoundError("user", "user not found")
		}
		return nil
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return err
		}
		r.log.Error("failed to delete user in db", zap.Error(err), zap.String("id", id))
		return fmt.Errorf("failed to delete user: %w", err)
	}

	r.log.Info("user deleted in db", zap.String("id", id))
	return nil
}

// GetByID retrieves a user by their unique ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*chat.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("user_id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String("id", id))
			return nil, apperrors.NewNotFoundError("user", "user not found")
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u := model.toDomain()
	return &u, nil
}

// GetByEmail retrieves a user by email, ignoring case. It returns nil, nil when no user matches.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*chat.User, error) {
	var model UserSchema
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	u := model.toDomain()
	return &u, nil
}

// Search returns up to limit users whose email, first or last name contains query,
// case-insensitively, excluding excludeID.
func (r *UserRepo) Search(ctx context.Context, query, excludeID string, limit int) ([]chat.User, error) {
	pattern := "%" + security.EscapeLike(strings.ToLower(query)) + "%"

	var models []UserSchema
	err := r.db.WithContext(ctx).
		Where(`(LOWER(email) LIKE ? ESCAPE '\' OR LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\')`, pattern, pattern, pattern).
		Where("user_id <> ?", excludeID).
		Order("email").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to search users in db", zap.Error(err), zap.String("query", query))
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	users := make([]chat.User, len(models))
	for i, m := range models {
		users[i] = m.toDomain()
	}
	return users, nil
}

// Exists reports whether a user with id exists.
func (r *UserRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Where("user_id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return n > 0, nil
}
