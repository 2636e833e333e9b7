// Package chatstore persists chat users, conversations and messages with GORM.
package chatstore

import (
	"time"

	"gorm.io/gorm"

	"messaging-service/internal/domain/chat"
)

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID           string    `gorm:"column:user_id;type:char(36);primaryKey"`
	FirstName    string    `gorm:"type:varchar(150);not null"`
	LastName     string    `gorm:"type:varchar(150);not null"`
	Email        string    `gorm:"type:varchar(254);not null;uniqueIndex"`
	PasswordHash string    `gorm:"type:varchar(128);not null"`
	PhoneNumber  string    `gorm:"type:varchar(20)"`
	Role         string    `gorm:"type:varchar(10);not null"`
	IsActive     bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// ConversationSchema represents the database schema for the conversations table.
type ConversationSchema struct {
	ID        string    `gorm:"column:conversation_id;type:char(36);primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for the ConversationSchema model.
func (ConversationSchema) TableName() string {
	return "conversations"
}

// ParticipantSchema is the join table between conversations and users.
type ParticipantSchema struct {
	ConversationID string    `gorm:"type:char(36);primaryKey"`
	UserID         string    `gorm:"type:char(36);primaryKey;index"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName specifies the table name for the ParticipantSchema model.
func (ParticipantSchema) TableName() string {
	return "conversation_participants"
}

// MessageSchema represents the database schema for the messages table.
type MessageSchema struct {
	ID             string    `gorm:"column:message_id;type:char(36);primaryKey"`
	ConversationID string    `gorm:"type:char(36);not null;index"`
	SenderID       string    `gorm:"type:char(36);not null;index"`
	MessageBody    string    `gorm:"type:text;not null"`
	SentAt         time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for the MessageSchema model.
func (MessageSchema) TableName() string {
	return "messages"
}

// Migrate creates the chat tables if they do not exist.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{}, &ConversationSchema{}, &ParticipantSchema{}, &MessageSchema{})
}

func toUserSchema(u *chat.User) UserSchema {
	return UserSchema{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		PhoneNumber:  u.PhoneNumber,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}

func (m UserSchema) toDomain() chat.User {
	return chat.User{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		PhoneNumber:  m.PhoneNumber,
		Role:         chat.Role(m.Role),
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
	}
}
