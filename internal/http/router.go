package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/orynlabs/oryn-auth/internal/config"
	"github.com/orynlabs/oryn-auth/internal/http/handler"
	httpmiddleware "github.com/orynlabs/oryn-auth/internal/http/middleware"
	"github.com/orynlabs/oryn-auth/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, sessionMiddleware *httpmiddleware.Session, rateLimiter *middleware.RateLimiter) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	authGroup := r.Group("/api/auth")
	{
		authGroup.GET("/github", authHandler.Login)
		authGroup.GET("/callback", authHandler.Callback)
		authGroup.GET("/me", sessionMiddleware.Validate, authHandler.Me)
		authGroup.GET("/logout", authHandler.Logout)
		authGroup.POST("/logout", authHandler.Logout)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
