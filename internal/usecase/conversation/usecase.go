package conversation

import (
	"context"

	"go.uber.org/zap"

	"messaging-service/internal/domain/chat"
	"messaging-service/internal/usecase/permission"
	apperrors "messaging-service/pkg/errors"
	"messaging-service/pkg/logger"
)

// Repository defines the conversation storage operations.
type Repository interface {
	Create(ctx context.Context, participantIDs []string) (*chat.Conversation, error)
	GetByID(ctx context.Context, id string) (*chat.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]chat.Conversation, error)
	AddParticipant(ctx context.Context, convID, userID string) error
	RemoveParticipant(ctx context.Context, convID, userID string) error
	SetParticipants(ctx context.Context, convID string, userIDs []string) error
	Delete(ctx context.Context, id string) error
}

// UserLookup resolves users by ID.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*chat.User, error)
}

// Usecase implements conversation management.
type Usecase struct {
	repo  Repository
	users UserLookup
	perm  *permission.Checker
	log   *zap.Logger
}

// New creates a new instance of Usecase.
func New(repo Repository, users UserLookup, perm *permission.Checker, log *zap.Logger) *Usecase {
	return &Usecase{repo: repo, users: users, perm: perm, log: log}
}

// List returns the conversations of caller, newest first.
func (uc *Usecase) List(ctx context.Context, caller *chat.User) ([]chat.Conversation, error) {
	return uc.repo.ListForUser(ctx, caller.ID)
}

// Create starts a conversation between caller and participantIDs.
func (uc *Usecase) Create(ctx context.Context, caller *chat.User, participantIDs []string) (*chat.Conversation, error) {
	ids := append([]string{caller.ID}, participantIDs...)
	conv, err := uc.repo.Create(ctx, ids)
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx, uc.log).Info("conversation created",
		zap.String("caller", caller.Email),
		zap.String("conversation_id", conv.ID))
	return conv, nil
}

// Get returns a conversation caller takes part in. Conversations caller is not in are
// reported as not found.
func (uc *Usecase) Get(ctx context.Context, caller *chat.User, id string) (*chat.Conversation, error) {
	conv, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(caller.ID) {
		logger.WithContext(ctx, uc.log).Warn("conversation outside caller scope",
			zap.String("caller", caller.Email),
			zap.String("conversation_id", id))
		return nil, apperrors.NewNotFoundError("conversation", "conversation not found")
	}
	if err := uc.perm.IsConversationParticipant(ctx, caller, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Update replaces the participant set when participantIDs is not nil.
func (uc *Usecase) Update(ctx context.Context, caller *chat.User, id string, participantIDs []string) (*chat.Conversation, error) {
	conv, err := uc.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if participantIDs == nil {
		return conv, nil
	}

	if err := uc.repo.SetParticipants(ctx, id, participantIDs); err != nil {
		return nil, err
	}
	logger.WithContext(ctx, uc.log).Info("conversation participants replaced",
		zap.String("caller", caller.Email),
		zap.String("conversation_id", id),
		zap.Int("participants", len(participantIDs)))
	return uc.repo.GetByID(ctx, id)
}

// Delete removes a conversation caller takes part in.
func (uc *Usecase) Delete(ctx context.Context, caller *chat.User, id string) error {
	if _, err := uc.Get(ctx, caller, id); err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.WithContext(ctx, uc.log).Info("conversation deleted",
		zap.String("caller", caller.Email),
		zap.String("conversation_id", id))
	return nil
}

// AddParticipant adds userID to a conversation caller takes part in.
func (uc *Usecase) AddParticipant(ctx context.Context, caller *chat.User, convID, userID string) (*chat.Conversation, error) {
	conv, err := uc.Get(ctx, caller, convID)
	if err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, apperrors.NewValidationError("", "user_id is required.")
	}

	u, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("user", "User not found.")
		}
		return nil, err
	}
	if conv.HasParticipant(u.ID) {
		return nil, apperrors.NewValidationError("", "User is already a participant.")
	}

	if err := uc.repo.AddParticipant(ctx, convID, u.ID); err != nil {
		return nil, err
	}
	logger.WithContext(ctx, uc.log).Info("participant added",
		zap.String("caller", caller.Email),
		zap.String("added", u.Email),
		zap.String("conversation_id", convID))
	return uc.repo.GetByID(ctx, convID)
}

// RemoveParticipant lets caller leave a conversation. userID defaults to caller;
// removing anyone else is forbidden.
func (uc *Usecase) RemoveParticipant(ctx context.Context, caller *chat.User, convID, userID string) error {
	conv, err := uc.Get(ctx, caller, convID)
	if err != nil {
		return err
	}
	if userID == "" {
		userID = caller.ID
	}

	u, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFoundError("user", "User not found.")
		}
		return err
	}
	if u.ID != caller.ID {
		logger.WithContext(ctx, uc.log).Warn("permission denied",
			zap.String("rule", "remove_participant"),
			zap.String("caller", caller.Email),
			zap.String("target", u.Email),
			zap.String("conversation_id", convID))
		return apperrors.NewPermissionDeniedError("You can only remove yourself.")
	}
	if !conv.HasParticipant(u.ID) {
		return apperrors.NewValidationError("", "User is not a participant.")
	}

	if err := uc.repo.RemoveParticipant(ctx, convID, u.ID); err != nil {
		return err
	}
	logger.WithContext(ctx, uc.log).Info("participant left",
		zap.String("user", u.Email),
		zap.String("conversation_id", convID))
	return nil
}
