package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/domain"
	"github.com/spec-kit/listing-bot/internal/events"
	"github.com/spec-kit/listing-bot/internal/observability"
	"github.com/spec-kit/listing-bot/internal/store"
)

// ReferralService credits invitees to inviters and announces milestones.
type ReferralService struct {
	ledger     store.ReferralLedger
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	threshold  int
}

// NewReferralService creates the service.
func NewReferralService(ledger store.ReferralLedger, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, threshold int) *ReferralService {
	return &ReferralService{
		ledger:     ledger,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		threshold:  threshold,
	}
}

// Threshold is the number of invites that unlocks the bonus.
func (s *ReferralService) Threshold() int {
	return s.threshold
}

// Count returns the inviter's credited invites.
func (s *ReferralService) Count(ctx context.Context, inviterID int64) (int, error) {
	return s.ledger.Count(ctx, inviterID)
}

// Record credits invitee to inviter. Reaching the threshold exactly publishes
// EventReferralThresholdReached once.
func (s *ReferralService) Record(ctx context.Context, inviterID, inviteeID int64) (store.RecordResult, error) {
	res, err := s.ledger.RecordInvite(ctx, inviterID, inviteeID)
	if err != nil {
		if errors.Is(err, domain.ErrSelfInvite) {
			s.metrics.RecordInvite("self")
		} else {
			s.metrics.RecordInvite("error")
		}
		return store.RecordResult{}, err
	}

	if !res.Added {
		s.metrics.RecordInvite("duplicate")
		return res, nil
	}
	s.metrics.RecordInvite("added")

	if s.dispatcher == nil {
		return res, nil
	}
	event := events.New(events.EventInviteRecorded, inviterID, events.InviteRecordedPayload{
		InviteeID: inviteeID,
		Count:     res.Count,
		Added:     res.Added,
	})
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish invite event", zap.Int64("user_id", inviterID), zap.Error(err))
	}

	if res.Count == s.threshold {
		event := events.New(events.EventReferralThresholdReached, inviterID, events.ReferralThresholdPayload{Count: res.Count})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			return res, fmt.Errorf("publish threshold event: %w", err)
		}
	}
	return res, nil
}
