package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/listing-bot/internal/api/http/handlers"
	"github.com/spec-kit/listing-bot/internal/auth"
	"github.com/spec-kit/listing-bot/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Moderation     *handlers.ModerationHandler
	Webhook        *handlers.WebhookHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
	IsModerator    auth.ModeratorFunc
}

// RegisterRoutes wires HTTP routes. The webhook route is only mounted when a handler is configured.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	if cfg.Webhook != nil {
		app.Post("/telegram/webhook/:secret", cfg.Webhook.Receive)
	}

	moderation := app.Group("/api/v1/moderation", cfg.AuthMiddleware.Handle, auth.RequireModerator(cfg.IsModerator))
	moderation.Get("/queue", cfg.Moderation.ListQueue)
	moderation.Get("/submissions", cfg.Moderation.ListSubmissions)
	moderation.Get("/submissions/:id", cfg.Moderation.GetSubmission)
	moderation.Post("/submissions/:id/publish", cfg.Moderation.Publish)
	moderation.Post("/submissions/:id/reject", cfg.Moderation.Reject)
}
