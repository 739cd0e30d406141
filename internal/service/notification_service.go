package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/domain"
	"github.com/spec-kit/listing-bot/internal/events"
)

// NotificationService reacts to domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	enqueuer   Enqueuer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, enqueuer Enqueuer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		enqueuer:   enqueuer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSubmissionFinalized, n.handleSubmissionFinalized)
	n.dispatcher.Subscribe(events.EventSubmissionPublished, n.handleSubmissionDecided)
	n.dispatcher.Subscribe(events.EventSubmissionRejected, n.handleSubmissionDecided)
	n.dispatcher.Subscribe(events.EventInviteRecorded, n.handleInviteRecorded)
	n.dispatcher.Subscribe(events.EventReferralThresholdReached, n.handleThresholdReached)
}

func (n *NotificationService) handleSubmissionFinalized(_ context.Context, event events.Event) error {
	n.logger.Info("SubmissionFinalized",
		zap.String("submission_id", event.SubmissionID),
		zap.Int64("user_id", event.UserID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleSubmissionDecided(_ context.Context, event events.Event) error {
	n.logger.Info("SubmissionDecided",
		zap.String("event_type", string(event.Type)),
		zap.String("submission_id", event.SubmissionID),
		zap.Int64("moderator_id", event.ActorID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleInviteRecorded(_ context.Context, event events.Event) error {
	n.logger.Debug("InviteRecorded", zap.Int64("user_id", event.UserID), zap.Any("payload", event.Payload))
	return nil
}

// handleThresholdReached hands the milestone to the inviter's own lane so that
// only that lane mutates the inviter's session.
func (n *NotificationService) handleThresholdReached(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReferralThresholdPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("ReferralThresholdReached", zap.Int64("user_id", event.UserID), zap.Int("count", payload.Count))
	if n.enqueuer == nil {
		return nil
	}
	return n.enqueuer.Enqueue(ctx, domain.Inbound{
		Kind:        domain.InboundReferralThreshold,
		UserID:      event.UserID,
		ChatID:      event.UserID,
		InviteCount: payload.Count,
	})
}
