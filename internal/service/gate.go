package service

import (
	"context"

	"go.uber.org/zap"
)

// SubscriptionGate checks channel membership before a flow may start.
type SubscriptionGate struct {
	messenger Messenger
	logger    *zap.Logger
}

// NewSubscriptionGate creates the gate.
func NewSubscriptionGate(messenger Messenger, logger *zap.Logger) *SubscriptionGate {
	return &SubscriptionGate{messenger: messenger, logger: logger}
}

// IsMember treats every status except "left" and "kicked" as subscribed.
// Lookup failures are logged and count as not subscribed.
func (g *SubscriptionGate) IsMember(ctx context.Context, userID int64) bool {
	status, err := g.messenger.ChatMemberStatus(ctx, userID)
	if err != nil {
		g.logger.Warn("subscription check failed", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	switch status {
	case "left", "kicked", "":
		return false
	default:
		return true
	}
}
