package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"messaging-service/internal/domain/chat"
	apperrors "messaging-service/pkg/errors"
)

// ConversationService is the conversation use case as seen by the HTTP layer.
type ConversationService interface {
	List(ctx context.Context, caller *chat.User) ([]chat.Conversation, error)
	Create(ctx context.Context, caller *chat.User, participantIDs []string) (*chat.Conversation, error)
	Get(ctx context.Context, caller *chat.User, id string) (*chat.Conversation, error)
	Update(ctx context.Context, caller *chat.User, id string, participantIDs []string) (*chat.Conversation, error)
	Delete(ctx context.Context, caller *chat.User, id string) error
	AddParticipant(ctx context.Context, caller *chat.User, convID, userID string) (*chat.Conversation, error)
	RemoveParticipant(ctx context.Context, caller *chat.User, convID, userID string) error
}

// ConversationHandler handles HTTP requests for conversations.
type ConversationHandler struct {
	uc  ConversationService
	log *zap.Logger
}

// NewConversationHandler creates a new ConversationHandler instance
func NewConversationHandler(uc ConversationService, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{uc: uc, log: log}
}

// ConversationRequest is the body of create and update. A nil ParticipantIDs on update
// leaves the participants unchanged.
type ConversationRequest struct {
	ParticipantIDs *[]string `json:"participant_ids"`
}

// ParticipantRequest is the body of add_participant and remove_participant.
type ParticipantRequest struct {
	UserID string `json:"user_id"`
}

// DetailResponse carries a human readable outcome.
type DetailResponse struct {
	Detail string `json:"detail"`
}

func (r ConversationRequest) ids() ([]string, error) {
	if r.ParticipantIDs == nil {
		return nil, nil
	}
	ids := make([]string, 0, len(*r.ParticipantIDs))
	for _, raw := range *r.ParticipantIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("participant_ids", "Must be a valid UUID.")
		}
		ids = append(ids, id.String())
	}
	return ids, nil
}

// List handles GET /api/conversations/
func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.uc.List(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]ConversationResponse, len(convs))
	for i := range convs {
		out[i] = toConversationResponse(&convs[i])
	}
	c.JSON(http.StatusOK, out)
}

// Create handles POST /api/conversations/
func (h *ConversationHandler) Create(c *gin.Context) {
	var req ConversationRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	ids, err := req.ids()
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	conv, err := h.uc.Create(c.Request.Context(), caller(c), ids)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toConversationResponse(conv))
}

// Get handles GET /api/conversations/:id/
func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}

	conv, err := h.uc.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toConversationResponse(conv))
}

// Update handles PUT and PATCH /api/conversations/:id/
func (h *ConversationHandler) Update(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req ConversationRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	ids, err := req.ids()
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	conv, err := h.uc.Update(c.Request.Context(), caller(c), id, ids)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toConversationResponse(conv))
}

// Delete handles DELETE /api/conversations/:id/
func (h *ConversationHandler) Delete(c *gin.Context) {
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

// AddParticipant handles POST /api/conversations/:id/add_participant/
func (h *ConversationHandler) AddParticipant(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req ParticipantRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	conv, err := h.uc.AddParticipant(c.Request.Context(), caller(c), id, req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toConversationResponse(conv))
}

// RemoveParticipant handles POST /api/conversations/:id/remove_participant/
func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req ParticipantRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	if err := h.uc.RemoveParticipant(c.Request.Context(), caller(c), id, req.UserID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, DetailResponse{Detail: "Successfully left the conversation."})
}
