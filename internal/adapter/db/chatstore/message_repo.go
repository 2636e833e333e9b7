package chatstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"messaging-service/internal/domain/chat"
	apperrors "messaging-service/pkg/errors"
)

// MessageRepo implements the message repository with GORM.
type MessageRepo struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewMessageRepo creates a new instance of MessageRepo.
func NewMessageRepo(db *gorm.DB, log *zap.Logger) *MessageRepo {
	return &MessageRepo{db: db, log: log}
}

func (m MessageSchema) toDomain(senders map[string]chat.User) chat.Message {
	sender, ok := senders[m.SenderID]
	if !ok {
		sender = chat.User{ID: m.SenderID}
	}
	return chat.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         sender,
		Body:           m.MessageBody,
		SentAt:         m.SentAt,
	}
}

func senderIDs(messages []MessageSchema) []string {
	seen := make(map[string]struct{}, len(messages))
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		if _, ok := seen[m.SenderID]; ok {
			continue
		}
		seen[m.SenderID] = struct{}{}
		ids = append(ids, m.SenderID)
	}
	return ids
}

func loadUsers(ctx context.Context, db *gorm.DB, ids []string) (map[string]chat.User, error) {
	users := make(map[string]chat.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var models []UserSchema
	if err := db.WithContext(ctx).Where("user_id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for _, m := range models {
		users[m.ID] = m.toDomain()
	}
	return users, nil
}

// Create stores msg, assigning its ID and SentAt when they are empty.
func (r *MessageRepo) Create(ctx context.Context, msg *chat.Message) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}

	model := MessageSchema{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.Sender.ID,
		MessageBody:    msg.Body,
		SentAt:         msg.SentAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.log.Error("failed to create message in db", zap.Error(err), zap.String("conversation_id", msg.ConversationID))
		return fmt.Errorf("failed to create message: %w", err)
	}

	r.log.Info("message created in db", zap.String("id", msg.ID), zap.String("conversation_id", msg.ConversationID))
	return nil
}

// GetByID retrieves a message with its sender.
func (r *MessageRepo) GetByID(ctx context.Context, id string) (*chat.Message, error) {
	var model MessageSchema
	if err := r.db.WithContext(ctx).Where("message_id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("message", "message not found")
		}
		r.log.Error("failed to get message from db", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	senders, err := loadUsers(ctx, r.db, []string{model.SenderID})
	if err != nil {
		return nil, err
	}
	msg := model.toDomain(senders)
	return &msg, nil
}

// ListForUser returns the messages of conversations userID takes part in, newest first,
// narrowed by f, together with the total number of matches.
func (r *MessageRepo) ListForUser(ctx context.Context, userID string, f chat.MessageFilter) ([]chat.Message, int64, error) {
	f.Normalize()

	q := r.db.WithContext(ctx).Model(&MessageSchema{}).
		Where("conversation_id IN (?)", r.db.Model(&ParticipantSchema{}).Select("conversation_id").Where("user_id = ?", userID))
	if f.SenderID != "" {
		q = q.Where("sender_id = ?", f.SenderID)
	}
	if f.ConversationID != "" {
		q = q.Where("conversation_id = ?", f.ConversationID)
	}
	if f.SentAfter != nil {
		q = q.Where("sent_at >= ?", f.SentAfter.UTC())
	}
	if f.SentBefore != nil {
		q = q.Where("sent_at <= ?", f.SentBefore.UTC())
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		r.log.Error("failed to count messages", zap.Error(err), zap.String("user_id", userID))
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var models []MessageSchema
	err := q.Session(&gorm.Session{}).
		Order("sent_at DESC").
		Limit(f.PageSize).
		Offset(f.Offset()).
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to list messages", zap.Error(err), zap.String("user_id", userID))
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}

	senders, err := loadUsers(ctx, r.db, senderIDs(models))
	if err != nil {
		return nil, 0, err
	}
	messages := make([]chat.Message, len(models))
	for i, m := range models {
		messages[i] = m.toDomain(senders)
	}
	return messages, total, nil
}

// UpdateBody replaces the body of a message.
func (r *MessageRepo) UpdateBody(ctx context.Context, id, body string) error {
	res := r.db.WithContext(ctx).Model(&MessageSchema{}).Where("message_id = ?", id).Update("message_body", body)
	if res.Error != nil {
		r.log.Error("failed to update message", zap.Error(res.Error), zap.String("id", id))
		return fmt.Errorf("failed to update message: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("message", "message not found")
	}
	return nil
}

// Delete removes a message.
func (r *MessageRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("message_id = ?", id).Delete(&MessageSchema{})
	if res.Error != nil {
		r.log.Error("failed to delete message", zap.Error(res.Error), zap.String("id", id))
		return fmt.Errorf("failed to delete message: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("message", "message not found")
	}
	return nil
}
