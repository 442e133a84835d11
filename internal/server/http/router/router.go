package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reno-apps/ordermerge/internal/server/http/handlers"
	"github.com/reno-apps/ordermerge/internal/server/http/middleware"
)

// Pinger reports storage availability for the health endpoint.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.MergeFacade, pinger Pinger, webhookSecret string, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	webhookHandler := handlers.NewWebhookHandler(facade, logger)
	groupHandler := handlers.NewGroupHandler(facade)
	settingsHandler := handlers.NewSettingsHandler(facade)
	eventHandler := handlers.NewEventHandler(facade)

	engine.GET("/ping", func(c *gin.Context) {
		if err := pinger.HealthCheck(c.Request.Context()); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")

	webhooks := api.Group("/webhooks")
	webhooks.Use(middleware.VerifyWebhook(webhookSecret))
	webhooks.POST("/orders", webhookHandler.Receive)

	admin := api.Group("")
	admin.Use(middleware.RequireShop())
	admin.GET("/groups/pending", groupHandler.Pending)
	admin.GET("/groups", groupHandler.Resolved)
	admin.POST("/groups/:id/approve", groupHandler.Approve)
	admin.POST("/groups/:id/reject", groupHandler.Reject)
	admin.GET("/settings", settingsHandler.Get)
	admin.PUT("/settings", settingsHandler.Update)
	admin.GET("/events", eventHandler.Recent)
	admin.GET("/stats", groupHandler.Stats)

	return engine
}
