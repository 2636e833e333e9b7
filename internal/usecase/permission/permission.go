// Package permission holds the object-level access rules of the messaging API.
// Every denial is logged as an audit warning naming the caller and the target.
package permission

import (
	"context"

	"go.uber.org/zap"

	"messaging-service/internal/domain/chat"
	apperrors "messaging-service/pkg/errors"
	"messaging-service/pkg/logger"
)

const (
	msgNotOwner       = "You can only access your own profile."
	msgNotSender      = "You can only edit or delete your own messages."
	msgNotParticipant = "You must be a participant in this conversation."
	msgCannotPost     = "You are not a participant in this conversation."
)

// Checker evaluates access rules.
type Checker struct {
	log *zap.Logger
}

// NewChecker creates a new Checker.
func NewChecker(log *zap.Logger) *Checker {
	return &Checker{log: log}
}

func (c *Checker) deny(ctx context.Context, msg string, fields ...zap.Field) error {
	logger.WithContext(ctx, c.log).Warn("permission denied", fields...)
	return apperrors.NewPermissionDeniedError(msg)
}

// IsOwner allows caller to modify only their own profile.
func (c *Checker) IsOwner(ctx context.Context, caller *chat.User, target *chat.User) error {
	if caller.ID == target.ID {
		return nil
	}
	return c.deny(ctx, msgNotOwner,
		zap.String("rule", "owner"),
		zap.String("caller", caller.Email),
		zap.String("target", target.Email))
}

// IsConversationParticipant allows access to a conversation only to its participants.
func (c *Checker) IsConversationParticipant(ctx context.Context, caller *chat.User, conv *chat.Conversation) error {
	if conv.HasParticipant(caller.ID) {
		return nil
	}
	return c.deny(ctx, msgNotParticipant,
		zap.String("rule", "conversation_participant"),
		zap.String("caller", caller.Email),
		zap.String("conversation_id", conv.ID))
}

// CanCreateMessage allows posting into a conversation only to its participants.
func (c *Checker) CanCreateMessage(ctx context.Context, caller *chat.User, conv *chat.Conversation) error {
	if conv.HasParticipant(caller.ID) {
		return nil
	}
	return c.deny(ctx, msgCannotPost,
		zap.String("rule", "create_message"),
		zap.String("caller", caller.Email),
		zap.String("conversation_id", conv.ID))
}

// IsMessageSender allows modifying a message only to its sender.
func (c *Checker) IsMessageSender(ctx context.Context, caller *chat.User, msg *chat.Message) error {
	if msg.Sender.ID == caller.ID {
		return nil
	}
	return c.deny(ctx, msgNotSender,
		zap.String("rule", "message_sender"),
		zap.String("caller", caller.Email),
		zap.String("message_id", msg.ID),
		zap.String("sender", msg.Sender.Email))
}
