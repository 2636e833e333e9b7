package chatstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"messaging-service/internal/domain/chat"
	apperrors "messaging-service/pkg/errors"
)

// ConversationRepo implements the conversation repository with GORM.
type ConversationRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewConversationRepo creates a new instance of ConversationRepo.
func NewConversationRepo(db *gorm.DB, log *zap.Logger) *ConversationRepo {
	return &ConversationRepo{db: db, log: log}
}

// Create stores a new conversation with the given participants. Unknown user ids are ignored.
func (r *ConversationRepo) Create(ctx context.Context, participantIDs []string) (*chat.Conversation, error) {
	model := ConversationSchema{ID: uuid.NewString()}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		return setParticipants(tx, model.ID, participantIDs)
	})
	if err != nil {
		r.log.Error("failed to create conversation in db", zap.Error(err))
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	r.log.Info("conversation created in db", zap.String("id", model.ID), zap.Int("participants", len(participantIDs)))
	return r.GetByID(ctx, model.ID)
}

// GetByID retrieves a conversation with its participants and messages.
func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*chat.Conversation, error) {
	var model ConversationSchema
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("conversation", "conversation not found")
		}
		r.log.Error("failed to get conversation from db", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	convs, err := r.hydrate(ctx, []ConversationSchema{model})
	if err != nil {
		return nil, err
	}
	return &convs[0], nil
}

// ListForUser returns the conversations userID takes part in, newest first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	var models []ConversationSchema
	err := r.db.WithContext(ctx).
		Where("conversation_id IN (?)", r.db.Model(&ParticipantSchema{}).Select("conversation_id").Where("user_id = ?", userID)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to list conversations from db", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return r.hydrate(ctx, models)
}

// IsParticipant reports whether userID takes part in conversation convID.
func (r *ConversationRepo) IsParticipant(ctx context.Context, convID, userID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&ParticipantSchema{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return n > 0, nil
}

// AddParticipant adds userID to the conversation. Adding an existing participant is a no-op.
func (r *ConversationRepo) AddParticipant(ctx context.Context, convID, userID string) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ParticipantSchema{ConversationID: convID, UserID: userID}).Error
	if err != nil {
		r.log.Error("failed to add participant", zap.Error(err), zap.String("conversation_id", convID), zap.String("user_id", userID))
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// RemoveParticipant removes userID from the conversation.
func (r *ConversationRepo) RemoveParticipant(ctx context.Context, convID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Delete(&ParticipantSchema{}).Error
	if err != nil {
		r.log.Error("failed to remove participant", zap.Error(err), zap.String("conversation_id", convID), zap.String("user_id", userID))
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

// SetParticipants replaces the participant set. Unknown user ids are ignored.
func (r *ConversationRepo) SetParticipants(ctx context.Context, convID string, userIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", convID).Delete(&ParticipantSchema{}).Error; err != nil {
			return err
		}
		return setParticipants(tx, convID, userIDs)
	})
	if err != nil {
		r.log.Error("failed to set participants", zap.Error(err), zap.String("conversation_id", convID))
		return fmt.Errorf("failed to set participants: %w", err)
	}
	return nil
}

// Delete removes a conversation together with its messages.
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&MessageSchema{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&ParticipantSchema{}).Error; err != nil {
			return err
		}
		res := tx.Where("conversation_id = ?", id).Delete(&ConversationSchema{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewNotFoundError("conversation", "conversation not found")
		}
		return nil
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return err
		}
		r.log.Error("failed to delete conversation", zap.Error(err), zap.String("id", id))
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	r.log.Info("conversation deleted in db", zap.String("id", id))
	return nil
}

// setParticipants inserts memberships for the ids that name existing users.
func setParticipants(tx *gorm.DB, convID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	var existing []string
	if err := tx.Model(&UserSchema{}).Where("user_id IN ?", userIDs).Pluck("user_id", &existing).Error; err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]ParticipantSchema, len(existing))
	for i, id := range existing {
		rows[i] = ParticipantSchema{ConversationID: convID, UserID: id, CreatedAt: now}
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

type participantRow struct {
	ConversationID string
	UserSchema     `gorm:"embedded"`
}

// hydrate loads participants and messages for models, keeping their order.
func (r *ConversationRepo) hydrate(ctx context.Context, models []ConversationSchema) ([]chat.Conversation, error) {
	convs := make([]chat.Conversation, len(models))
	if len(models) == 0 {
		return convs, nil
	}

	ids := make([]string, len(models))
	pos := make(map[string]int, len(models))
	for i, m := range models {
		ids[i] = m.ID
		pos[m.ID] = i
		convs[i] = chat.Conversation{ID: m.ID, CreatedAt: m.CreatedAt, Participants: []chat.User{}, Messages: []chat.Message{}}
	}

	var participants []participantRow
	err := r.db.WithContext(ctx).
		Table("conversation_participants").
		Select("conversation_participants.conversation_id, users.*").
		Joins("JOIN users ON users.user_id = conversation_participants.user_id").
		Where("conversation_participants.conversation_id IN ?", ids).
		Order("conversation_participants.created_at, users.email").
		Scan(&participants).Error
	if err != nil {
		r.log.Error("failed to load participants", zap.Error(err))
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	for _, p := range participants {
		i := pos[p.ConversationID]
		convs[i].Participants = append(convs[i].Participants, p.UserSchema.toDomain())
	}

	var messages []MessageSchema
	if err := r.db.WithContext(ctx).Where("conversation_id IN ?", ids).Order("sent_at").Find(&messages).Error; err != nil {
		r.log.Error("failed to load messages", zap.Error(err))
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	senders, err := loadUsers(ctx, r.db, senderIDs(messages))
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		i := pos[m.ConversationID]
		convs[i].Messages = append(convs[i].Messages, m.toDomain(senders))
	}

	return convs, nil
}
