package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSubmissionFinalized      EventType = "submission_finalized"
	EventSubmissionPublished      EventType = "submission_published"
	EventSubmissionRejected       EventType = "submission_rejected"
	EventInviteRecorded           EventType = "invite_recorded"
	EventReferralThresholdReached EventType = "referral_threshold_reached"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	UserID       int64     `json:"user_id"`
	SubmissionID string    `json:"submission_id,omitempty"`
	ActorID      int64     `json:"actor_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Payload      any       `json:"payload,omitempty"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, userID int64, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SubmissionFinalizedPayload payload.
type SubmissionFinalizedPayload struct {
	Kind        domain.SubmissionKind `json:"kind"`
	Invited     bool                  `json:"invited"`
	RejectedAll bool                  `json:"rejected_all"`
}

// SubmissionRejectedPayload payload.
type SubmissionRejectedPayload struct {
	Reason string `json:"reason"`
}

// InviteRecordedPayload payload. UserID of the event is the inviter.
type InviteRecordedPayload struct {
	InviteeID int64 `json:"invitee_id"`
	Count     int   `json:"count"`
	Added     bool  `json:"added"`
}

// ReferralThresholdPayload payload. UserID of the event is the inviter.
type ReferralThresholdPayload struct {
	Count int `json:"count"`
}
