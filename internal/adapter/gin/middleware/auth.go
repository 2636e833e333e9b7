package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/domain/chat"
	apperrors "messaging-service/pkg/errors"
	"messaging-service/pkg/logger"
)

const currentUserKey = "current_user"

// Authenticator resolves an access token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*chat.User, error)
}

// Auth rejects requests without a valid "Authorization: Bearer <token>" header.
func Auth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperrors.NewUnauthenticatedError("Authentication credentials were not provided."))
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, apperrors.NewUnauthenticatedError("Authorization header must contain two space-delimited values"))
			return
		}

		u, err := a.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(currentUserKey, u)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), u.ID))
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth, or nil on unauthenticated routes.
func CurrentUser(c *gin.Context) *chat.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*chat.User)
	return u
}

// SetCurrentUser stores u as the authenticated user of the request.
func SetCurrentUser(c *gin.Context, u *chat.User) {
	c.Set(currentUserKey, u)
}

func abort(c *gin.Context, err error) {
	status, detail := apperrors.HTTPResponse(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer realm="api"`)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
