package routes

import (
	"time"

	"wayfarer/handlers"
	"wayfarer/middleware"
	"wayfarer/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterSessionRoutes registers the research session endpoints.
func RegisterSessionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/sessions")
	{
		api.POST("", hb.StartSessionHandler)
		api.POST("/:id/replies", hb.ReplyHandler)
		api.GET("/:id/events", hb.EventsHandler)
		api.GET("/:id/state", hb.StateHandler)
		api.GET("/:id/results", hb.ResultsHandler)
		api.DELETE("/:id", hb.EndSessionHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, maxRequestsPerMin int, logger *zap.Logger) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(utils.ErrorHandler(logger))
	r.Use(middleware.RequestLogger(logger))

	RegisterHealthRoute(r, hb)

	r.Use(middleware.RateLimitMiddleware(maxRequestsPerMin, logger))
	RegisterSessionRoutes(r, hb)
}
