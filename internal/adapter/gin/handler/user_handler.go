package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"messaging-service/internal/domain/chat"
	"messaging-service/internal/usecase/user"
)

// UserService is the user use case as seen by the HTTP layer.
type UserService interface {
	Register(ctx context.Context, in user.RegisterRequest) (*chat.User, error)
	Me(ctx context.Context, caller *chat.User) (*chat.User, error)
	List(ctx context.Context, caller *chat.User) ([]chat.User, error)
	Get(ctx context.Context, caller *chat.User, id string) (*chat.User, error)
	Update(ctx context.Context, caller *chat.User, id string, in user.UpdateRequest) (*chat.User, error)
	Delete(ctx context.Context, caller *chat.User, id string) error
	Search(ctx context.Context, caller *chat.User, q string) ([]chat.User, error)
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  UserService
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{uc: uc, log: log}
}

// RegisterUserRequest represents the HTTP request body for creating a user
type RegisterUserRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

// UpdateUserRequest represents the HTTP request body for updating a user.
// Omitted fields keep their current value.
type UpdateUserRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	PhoneNumber *string `json:"phone_number"`
	Role        *string `json:"role"`
}

// Register handles POST /api/users/
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	u, err := h.uc.Register(c.Request.Context(), user.RegisterRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(u))
}

// Me handles GET /api/users/me/
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.uc.Me(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// List handles GET /api/users/
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.uc.List(c.Request.Context(), caller(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponses(users))
}

// Get handles GET /api/users/:id/
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}

	u, err := h.uc.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// Update handles PUT and PATCH /api/users/:id/
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, h.log, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	u, err := h.uc.Update(c.Request.Context(), caller(c), id, user.UpdateRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// Delete handles DELETE /api/users/:id/
func (h *UserHandler) Delete(c *gin.Context) {
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

// Search handles GET /api/users/search/?q=
func (h *UserHandler) Search(c *gin.Context) {
	users, err := h.uc.Search(c.Request.Context(), caller(c), c.Query("q"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponses(users))
}
