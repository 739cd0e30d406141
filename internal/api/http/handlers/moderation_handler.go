package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/listing-bot/internal/api/dto"
	"github.com/spec-kit/listing-bot/internal/auth"
	"github.com/spec-kit/listing-bot/internal/domain"
	"github.com/spec-kit/listing-bot/internal/repository"
	apperrors "github.com/spec-kit/listing-bot/pkg/util/errorutil"
)

// Moderator is the decision surface shared with the moderation chat.
type Moderator interface {
	Pending(ctx context.Context) ([]domain.ModerationEntry, error)
	Publish(ctx context.Context, moderatorID int64, id string) error
	Reject(ctx context.Context, moderatorID int64, id, reason string) error
}

// ModerationHandler exposes the moderation queue and the submission archive.
type ModerationHandler struct {
	moderator   Moderator
	submissions repository.SubmissionRepository
	validate    *validator.Validate
}

// NewModerationHandler constructs handler.
func NewModerationHandler(moderator Moderator, submissions repository.SubmissionRepository) *ModerationHandler {
	return &ModerationHandler{moderator: moderator, submissions: submissions, validate: validator.New()}
}

// ListQueue GET /api/v1/moderation/queue.
func (h *ModerationHandler) ListQueue(c *fiber.Ctx) error {
	entries, err := h.moderator.Pending(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.QueueEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.QueueEntry(e))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListSubmissions GET /api/v1/moderation/submissions.
func (h *ModerationHandler) ListSubmissions(c *fiber.Ctx) error {
	filter, err := parseSubmissionQuery(c)
	if err != nil {
		return err
	}
	subs, err := h.submissions.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.SubmissionResponse, 0, len(subs))
	for i := range subs {
		items = append(items, dto.Submission(&subs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetSubmission GET /api/v1/moderation/submissions/:id.
func (h *ModerationHandler) GetSubmission(c *fiber.Ctx) error {
	sub, err := h.submissions.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.Submission(sub)})
}

// Publish POST /api/v1/moderation/submissions/:id/publish.
func (h *ModerationHandler) Publish(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("moderator required")
	}
	id := c.Params("id")
	if err := h.moderator.Publish(c.UserContext(), principal.ModeratorID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DecisionResponse{ID: id, Status: domain.SubmissionStatusPublished}})
}

// Reject POST /api/v1/moderation/submissions/:id/reject.
func (h *ModerationHandler) Reject(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("moderator required")
	}
	var req dto.RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := h.validate.Struct(req); err != nil {
		return err
	}
	id := c.Params("id")
	if err := h.moderator.Reject(c.UserContext(), principal.ModeratorID, id, req.Reason); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DecisionResponse{ID: id, Status: domain.SubmissionStatusRejected}})
}

func parseSubmissionQuery(c *fiber.Ctx) (repository.SubmissionFilter, error) {
	filter := repository.SubmissionFilter{}
	switch kind := domain.SubmissionKind(c.Query("kind")); kind {
	case "":
	case domain.SubmissionKindSell, domain.SubmissionKindBuy:
		filter.Kind = &kind
	default:
		return filter, apperrors.NewValidationError("unknown kind", map[string]any{"kind": string(kind)})
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status := domain.SubmissionStatus(strings.TrimSpace(part))
			switch status {
			case domain.SubmissionStatusPending, domain.SubmissionStatusPublished, domain.SubmissionStatusRejected:
				filter.Statuses = append(filter.Statuses, status)
			default:
				return filter, apperrors.NewValidationError("unknown status", map[string]any{"status": string(status)})
			}
		}
	}
	if userStr := c.Query("user_id"); userStr != "" {
		userID, err := strconv.ParseInt(userStr, 10, 64)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid user_id", nil)
		}
		filter.UserID = &userID
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
