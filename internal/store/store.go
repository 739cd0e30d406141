// Package store holds the keyed state shared between users: conversation
// sessions, the referral ledger, the moderation queue and moderators'
// pending rejections. Every store has a redis and an in-memory implementation.
package store

import (
	"context"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// SessionStore persists one conversation session per user.
type SessionStore interface {
	// Get returns the stored session or a fresh idle one.
	Get(ctx context.Context, userID int64) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, userID int64) error
}

// RecordResult describes the outcome of crediting an invite.
type RecordResult struct {
	// Count is the inviter's number of distinct credited invitees.
	Count int
	// Added is false when the invitee was already credited to any inviter.
	Added bool
	// CreditedTo is the inviter who owns the invitee after the call.
	CreditedTo int64
}

// ReferralLedger tracks inviter to invitee edges. An invitee is credited to the first inviter only.
type ReferralLedger interface {
	RecordInvite(ctx context.Context, inviterID, inviteeID int64) (RecordResult, error)
	Count(ctx context.Context, inviterID int64) (int, error)
}

// ModerationQueue holds pending entries keyed by submission id.
type ModerationQueue interface {
	Add(ctx context.Context, entry domain.ModerationEntry) error
	Get(ctx context.Context, id string) (domain.ModerationEntry, error)
	// Remove reports whether the entry existed.
	Remove(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]domain.ModerationEntry, error)
}

// RejectionContexts remembers which submission each moderator is rejecting.
// A newer reject overwrites the previous one.
type RejectionContexts interface {
	Set(ctx context.Context, moderatorID int64, submissionID string) error
	Get(ctx context.Context, moderatorID int64) (string, error)
	Clear(ctx context.Context, moderatorID int64) error
}
