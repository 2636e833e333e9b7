package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"messaging-service/internal/domain/chat"
	"messaging-service/internal/usecase/message"
	apperrors "messaging-service/pkg/errors"
)

// MessageService is the message use case as seen by the HTTP layer.
type MessageService interface {
	List(ctx context.Context, caller *chat.User, f chat.MessageFilter) (*message.ListResult, error)
	Send(ctx context.Context, caller *chat.User, convID, body string) (*chat.Message, error)
	Get(ctx context.Context, caller *chat.User, id string) (*chat.Message, error)
	Update(ctx context.Context, caller *chat.User, id, body string) (*chat.Message, error)
	Delete(ctx context.Context, caller *chat.User, id string) error
}

// MessageHandler handles HTTP requests for messages, both top-level and nested
// under a conversation.
type MessageHandler struct {
	uc  MessageService
	log *zap.Logger
}

// NewMessageHandler creates a new MessageHandler instance
func NewMessageHandler(uc MessageService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{uc: uc, log: log}
}

// SendMessageRequest is the body of message create. Conversation is ignored on the
// nested route.
type SendMessageRequest struct {
	Conversation string `json:"conversation"`
	MessageBody  string `json:"message_body"`
}

// UpdateMessageRequest is the body of message update.
type UpdateMessageRequest struct {
	MessageBody string `json:"message_body"`
}

func parseFilter(c *gin.Context) (chat.MessageFilter, error) {
	var f chat.MessageFilter

	for param, dst := range map[string]*string{"sender": &f.SenderID, "conversation": &f.ConversationID} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, apperrors.NewValidationError(param, "Enter a valid UUID.")
		}
		*dst = id.String()
	}

	for param, dst := range map[string]**time.Time{"sent_after": &f.SentAfter, "sent_before": &f.SentBefore} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, apperrors.NewValidationError(param, "Enter a valid date/time.")
		}
		*dst = &t
	}

	for param, dst := range map[string]*int{"page": &f.Page, "page_size": &f.PageSize} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return f, apperrors.NewValidationError(param, "A positive integer is required.")
		}
		*dst = n
	}

	return f, nil
}

// List handles GET /api/messages/ and GET /api/conversations/:id/messages/
func (h *MessageHandler) List(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if c.Param("id") != "" {
		convID, ok := pathID(c, h.log, "id")
		if !ok {
			return
		}
		f.ConversationID = convID
	}

	res, err := h.uc.List(c.Request.Context(), caller(c), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, MessageListResponse{
		Count:      res.Pagination.Count,
		Page:       res.Pagination.Page,
		PageSize:   res.Pagination.PageSize,
		TotalPages: res.Pagination.TotalPages,
		Results:    toMessageResponses(res.Messages),
	})
}

// Create handles POST /api/messages/ and POST /api/conversations/:id/messages/
func (h *MessageHandler) Create(c *gin.Context) {
	var req SendMessageRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	convID := req.Conversation
	if c.Param("id") != "" {
		id, ok := pathID(c, h.log, "id")
		if !ok {
			return
		}
		convID = id
	} else if convID != "" {
		id, err := uuid.Parse(convID)
		if err != nil {
			respondError(c, h.log, apperrors.NewValidationError("conversation", "Must be a valid UUID."))
			return
		}
		convID = id.String()
	}

	msg, err := h.uc.Send(c.Request.Context(), caller(c), convID, req.MessageBody)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// Get handles GET /api/messages/:id/
func (h *MessageHandler) Get(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}

	msg, err := h.uc.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toMessageResponse(msg))
}

// Update handles PUT and PATCH /api/messages/:id/
func (h *MessageHandler) Update(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req UpdateMessageRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	msg, err := h.uc.Update(c.Request.Context(), caller(c), id, req.MessageBody)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toMessageResponse(msg))
}

// Delete handles DELETE /api/messages/:id/
func (h *MessageHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}

	if err := h.uc.Delete(c.Request.Context(), caller(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
