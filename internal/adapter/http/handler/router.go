package handler

import (
	"audit-webhook-engine/internal/adapter/http/middleware"
	"audit-webhook-engine/internal/core/ports"
	"audit-webhook-engine/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	EventSvc       ports.EventService
	WebhookSvc     ports.WebhookService
	DeliverySvc    ports.DeliveryService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus scrape endpoint
	metrics.Register()
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// API v1 routes: tenant identity comes from the upstream gateway via
	// the X-Organization-ID header.
	v1 := r.Group("/api/v1", middleware.OrganizationContext())

	eventHandler := NewEventHandler(deps.EventSvc)
	v1.POST("/events", eventHandler.Ingest)

	webhookHandler := NewWebhookHandler(deps.WebhookSvc)
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("", webhookHandler.Create)
		webhooks.GET("", webhookHandler.List)
		webhooks.GET("/:id", webhookHandler.Get)
		webhooks.PATCH("/:id", webhookHandler.Update)
		webhooks.DELETE("/:id", webhookHandler.Delete)
	}

	deliveryHandler := NewDeliveryHandler(deps.DeliverySvc)
	deliveries := v1.Group("/deliveries")
	{
		deliveries.GET("", deliveryHandler.List)
		deliveries.GET("/:id", deliveryHandler.Get)
	}

	return r
}
