package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"messaging-service/internal/usecase/auth"
	apperrors "messaging-service/pkg/errors"
)

// TokenService issues and refreshes JWT pairs.
type TokenService interface {
	Login(ctx context.Context, email, password string) (*auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// AuthHandler handles the token endpoints.
type AuthHandler struct {
	svc TokenService
	log *zap.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(svc TokenService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// TokenRequest is the body of POST /api/token/.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /api/token/refresh/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// TokenResponse carries an access token and, on login, a refresh token.
type TokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// ObtainToken handles POST /api/token/
func (h *AuthHandler) ObtainToken(c *gin.Context) {
	var req TokenRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	if req.Email == "" {
		respondError(c, h.log, apperrors.NewValidationError("email", "This field is required."))
		return
	}
	if req.Password == "" {
		respondError(c, h.log, apperrors.NewValidationError("password", "This field is required."))
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Access: pair.Access, Refresh: pair.Refresh})
}

// RefreshToken handles POST /api/token/refresh/
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	if req.Refresh == "" {
		respondError(c, h.log, apperrors.NewValidationError("refresh", "This field is required."))
		return
	}

	access, err := h.svc.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Access: access})
}
