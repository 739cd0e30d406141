package handlers

import (
	"crypto/subtle"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/service"
	"github.com/spec-kit/listing-bot/internal/transport/telegram"
	apperrors "github.com/spec-kit/listing-bot/pkg/util/errorutil"
)

// WebhookHandler accepts updates pushed by Telegram.
type WebhookHandler struct {
	secret   string
	enqueuer service.Enqueuer
	logger   *zap.Logger
}

// NewWebhookHandler constructs handler. The secret is the last path segment of the registered webhook URL.
func NewWebhookHandler(secret string, enqueuer service.Enqueuer, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{secret: secret, enqueuer: enqueuer, logger: logger}
}

// Receive POST /telegram/webhook/:secret.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(c.Params("secret")), []byte(h.secret)) != 1 {
		return apperrors.NewNotFound("route", nil)
	}
	var update tgbotapi.Update
	if err := c.BodyParser(&update); err != nil {
		return apperrors.NewValidationError("invalid update payload", nil)
	}
	telegram.Forward(c.UserContext(), h.enqueuer, update, h.logger)
	return c.SendStatus(fiber.StatusOK)
}
