package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"messaging-service/internal/adapter/gin/middleware"
	"messaging-service/internal/domain/chat"
	apperrors "messaging-service/pkg/errors"
	"messaging-service/pkg/logger"
)

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	UserID      string    `json:"user_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Role        chat.Role `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessageResponse represents a message with its sender expanded.
type MessageResponse struct {
	MessageID    string       `json:"message_id"`
	Sender       UserResponse `json:"sender"`
	Conversation string       `json:"conversation"`
	MessageBody  string       `json:"message_body"`
	SentAt       time.Time    `json:"sent_at"`
}

// ConversationResponse represents a conversation with participants and messages expanded.
type ConversationResponse struct {
	ConversationID string            `json:"conversation_id"`
	Participants   []UserResponse    `json:"participants"`
	Messages       []MessageResponse `json:"messages"`
	CreatedAt      time.Time         `json:"created_at"`
}

// MessageListResponse is one page of messages.
type MessageListResponse struct {
	Count      int64             `json:"count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	Results    []MessageResponse `json:"results"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func toUserResponse(u *chat.User) UserResponse {
	return UserResponse{
		UserID:      u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}
}

func toUserResponses(users []chat.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	return out
}

func toMessageResponse(m *chat.Message) MessageResponse {
	return MessageResponse{
		MessageID:    m.ID,
		Sender:       toUserResponse(&m.Sender),
		Conversation: m.ConversationID,
		MessageBody:  m.Body,
		SentAt:       m.SentAt,
	}
}

func toMessageResponses(msgs []chat.Message) []MessageResponse {
	out := make([]MessageResponse, len(msgs))
	for i := range msgs {
		out[i] = toMessageResponse(&msgs[i])
	}
	return out
}

func toConversationResponse(c *chat.Conversation) ConversationResponse {
	return ConversationResponse{
		ConversationID: c.ID,
		Participants:   toUserResponses(c.Participants),
		Messages:       toMessageResponses(c.Messages),
		CreatedAt:      c.CreatedAt,
	}
}

// respondError writes err as {"detail": ...} with the status of its type.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, detail := apperrors.HTTPResponse(err)
	l := logger.WithContext(c.Request.Context(), log)
	if status >= http.StatusInternalServerError {
		l.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		l.Debug("request rejected", zap.Int("status", status), zap.String("detail", detail))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail})
}

// bindJSON decodes the request body into dst. An empty body leaves dst unchanged.
func bindJSON(c *gin.Context, log *zap.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, log, apperrors.NewValidationError("", "Malformed request body: "+err.Error()))
		return false
	}
	return true
}

// pathID returns the canonical form of the uuid path parameter name. Anything that is not
// a uuid cannot match a route and is reported as not found.
func pathID(c *gin.Context, log *zap.Logger, name string) (string, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, log, apperrors.NewNotFoundError("", "Not found."))
		return "", false
	}
	return id.String(), true
}

func caller(c *gin.Context) *chat.User {
	return middleware.CurrentUser(c)
}
