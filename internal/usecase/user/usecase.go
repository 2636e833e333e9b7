package user

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"messaging-service/internal/domain/chat"
	"messaging-service/internal/usecase/permission"
	"messaging-service/internal/usecase/validation"
	apperrors "messaging-service/pkg/errors"
	"messaging-service/pkg/logger"
	"messaging-service/pkg/security"
)

// Repository defines the interface for chat user data access operations.
type Repository interface {
	Create(ctx context.Context, u *chat.User) error                                      // Create a new user
	GetByID(ctx context.Context, id string) (*chat.User, error)                          // Retrieve user by ID
	GetByEmail(ctx context.Context, email string) (*chat.User, error)                    // Retrieve user by email, nil if absent
	Update(ctx context.Context, u *chat.User) error                                      // Update existing user
	Delete(ctx context.Context, id string) error                                         // Delete user by ID
	Search(ctx context.Context, query, excludeID string, limit int) ([]chat.User, error) // Case-insensitive search
}

// Usecase implements the business logic for chat accounts.
type Usecase struct {
	repo     Repository
	perm     *permission.Checker
	log      *zap.Logger
	validate *validation.Validator
}

// New creates a new instance of Usecase.
func New(r Repository, perm *permission.Checker, log *zap.Logger) *Usecase {
	return &Usecase{repo: r, perm: perm, log: log, validate: validation.New()}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an active account. The role defaults to guest.
func (uc *Usecase) Register(ctx context.Context, in RegisterRequest) (*chat.User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("registering user", zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	email := normalizeEmail(in.Email)
	existing, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", email), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil {
		log.Warn("email already exists", zap.String("email", email))
		return nil, apperrors.NewAlreadyExistsError("user", "user with this email already exists")
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	role := chat.Role(in.Role)
	if role == "" {
		role = chat.RoleGuest
	}

	u := &chat.User{
		ID:           uuid.NewString(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		PhoneNumber:  in.PhoneNumber,
		Role:         role,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := uc.repo.Create(ctx, u); err != nil {
		log.Error("failed to create user", zap.Error(err))
		return nil, err
	}
	return u, nil
}

// Me returns the current profile of caller.
func (uc *Usecase) Me(ctx context.Context, caller *chat.User) (*chat.User, error) {
	return uc.repo.GetByID(ctx, caller.ID)
}

// List returns the profiles visible to caller, which is only their own.
func (uc *Usecase) List(ctx context.Context, caller *chat.User) ([]chat.User, error) {
	u, err := uc.repo.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	return []chat.User{*u}, nil
}

// Get returns the profile with id. Profiles of other users are reported as not found.
func (uc *Usecase) Get(ctx context.Context, caller *chat.User, id string) (*chat.User, error) {
	if id != caller.ID {
		return nil, apperrors.NewNotFoundError("user", "user not found")
	}
	return uc.repo.GetByID(ctx, id)
}

// Update changes the profile with id. Only the owner may update it.
func (uc *Usecase) Update(ctx context.Context, caller *chat.User, id string, in UpdateRequest) (*chat.User, error) {
	log := logger.WithContext(ctx, uc.log)

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	target, err := uc.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := uc.perm.IsOwner(ctx, caller, target); err != nil {
		return nil, err
	}

	if in.Email != nil {
		existing, err := uc.repo.GetByEmail(ctx, normalizeEmail(*in.Email))
		if err != nil {
			return nil, apperrors.NewInternalError("failed to validate email uniqueness", err)
		}
		if existing != nil && existing.ID != target.ID {
			log.Warn("email already exists", zap.String("email", *in.Email), zap.String("existing_id", existing.ID))
			return nil, apperrors.NewAlreadyExistsError("user", "user with this email already exists")
		}
	}

	in.apply(target)
	if in.Password != nil {
		hash, err := security.HashPassword(*in.Password)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to hash password", err)
		}
		target.PasswordHash = hash
	}

	if err := uc.repo.Update(ctx, target); err != nil {
		log.Error("failed to update user", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	log.Info("user updated", zap.String("id", id))
	return target, nil
}

// Delete removes the account with id. Only the owner may delete it.
func (uc *Usecase) Delete(ctx context.Context, caller *chat.User, id string) error {
	target, err := uc.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := uc.perm.IsOwner(ctx, caller, target); err != nil {
		return err
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to delete user", zap.String("id", id), zap.Error(err))
		return err
	}
	logger.WithContext(ctx, uc.log).Info("user deleted", zap.String("id", id))
	return nil
}

// owned loads the profile with id if it belongs to caller. Other profiles are outside
// the caller's scope and are reported as not found.
func (uc *Usecase) owned(ctx context.Context, caller *chat.User, id string) (*chat.User, error) {
	if id != caller.ID {
		logger.WithContext(ctx, uc.log).Warn("profile outside caller scope",
			zap.String("caller", caller.Email),
			zap.String("target_id", id))
		return nil, apperrors.NewNotFoundError("user", "user not found")
	}
	return uc.repo.GetByID(ctx, id)
}

// Search finds other users whose email or name contains q.
func (uc *Usecase) Search(ctx context.Context, caller *chat.User, q string) ([]chat.User, error) {
	if len([]rune(strings.TrimSpace(q))) < MinSearchLength {
		return nil, apperrors.NewValidationError("", "Search query must be at least 2 characters.")
	}

	query, err := security.ValidateSearchQuery(q)
	if err != nil {
		logger.WithContext(ctx, uc.log).Warn("invalid search query", zap.String("query", q), zap.Error(err))
		return nil, apperrors.NewValidationError("q", err.Error())
	}

	return uc.repo.Search(ctx, query, caller.ID, SearchLimit)
}
