package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"messaging-service/api"
	"messaging-service/internal/adapter/gin/handler"
	"messaging-service/internal/adapter/gin/middleware"
	"messaging-service/internal/adapter/ratelimit"
)

// HealthCheck reports the state of one backing service.
type HealthCheck func(ctx context.Context) error

// Deps holds everything the router wires into routes.
type Deps struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Conversations *handler.ConversationHandler
	Messages      *handler.MessageHandler
	Authenticator middleware.Authenticator
	Limiter       *ratelimit.Limiter
	Checks        map[string]HealthCheck
	ServiceName   string
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(d Deps, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.RateLimiter(d.Limiter))

	router.GET("/health", health(d.ServiceName, d.Checks))

	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", api.OpenAPI)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/token/", d.Auth.ObtainToken)
		apiGroup.POST("/token/refresh/", d.Auth.RefreshToken)
		apiGroup.POST("/users/", d.Users.Register)
	}

	authed := apiGroup.Group("", middleware.Auth(d.Authenticator))
	{
		users := authed.Group("/users")
		users.GET("/", d.Users.List)
		users.GET("/me/", d.Users.Me)
		users.GET("/search/", d.Users.Search)
		users.GET("/:id/", d.Users.Get)
		users.PUT("/:id/", d.Users.Update)
		users.PATCH("/:id/", d.Users.Update)
		users.DELETE("/:id/", d.Users.Delete)

		convs := authed.Group("/conversations")
		convs.GET("/", d.Conversations.List)
		convs.POST("/", d.Conversations.Create)
		convs.GET("/:id/", d.Conversations.Get)
		convs.PUT("/:id/", d.Conversations.Update)
		convs.PATCH("/:id/", d.Conversations.Update)
		convs.DELETE("/:id/", d.Conversations.Delete)
		convs.POST("/:id/add_participant/", d.Conversations.AddParticipant)
		convs.POST("/:id/remove_participant/", d.Conversations.RemoveParticipant)
		convs.GET("/:id/messages/", d.Messages.List)
		convs.POST("/:id/messages/", d.Messages.Create)

		msgs := authed.Group("/messages")
		msgs.GET("/", d.Messages.List)
		msgs.POST("/", d.Messages.Create)
		msgs.GET("/:id/", d.Messages.Get)
		msgs.PUT("/:id/", d.Messages.Update)
		msgs.PATCH("/:id/", d.Messages.Update)
		msgs.DELETE("/:id/", d.Messages.Delete)
	}

	return router
}

func health(service string, checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": service,
			"checks":  results,
		})
	}
}
