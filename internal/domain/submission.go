package domain

import "time"

// SubmissionKind distinguishes listings from buy inquiries.
type SubmissionKind string

const (
	SubmissionKindSell SubmissionKind = "sell"
	SubmissionKindBuy  SubmissionKind = "buy"
)

// SubmissionStatus enumerates moderation outcomes.
type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusPublished SubmissionStatus = "published"
	SubmissionStatusRejected  SubmissionStatus = "rejected"
)

// Submission is a finalized listing or inquiry.
type Submission struct {
	ID           string
	UserID       int64
	Kind         SubmissionKind
	Data         SessionData
	Invited      bool
	RejectedAll  bool
	Status       SubmissionStatus
	RejectReason *string
	CreatedAt    time.Time
	DecidedAt    *time.Time
}

// ModerationEntry is the lightweight queue handle for a pending submission.
type ModerationEntry struct {
	ID        string         `json:"id"`
	UserID    int64          `json:"user_id"`
	Kind      SubmissionKind `json:"kind"`
	Data      SessionData    `json:"data"`
	Invited   bool           `json:"invited"`
	CreatedAt time.Time      `json:"created_at"`
}

// EntryFor builds the queue handle of a submission.
func EntryFor(s *Submission) ModerationEntry {
	return ModerationEntry{
		ID:        s.ID,
		UserID:    s.UserID,
		Kind:      s.Kind,
		Data:      s.Data,
		Invited:   s.Invited,
		CreatedAt: s.CreatedAt,
	}
}
