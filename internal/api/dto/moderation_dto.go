package dto

import (
	"time"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// RejectRequest payload.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

// QueueEntryResponse is a pending submission awaiting a decision.
type QueueEntryResponse struct {
	ID        string                `json:"id"`
	UserID    int64                 `json:"user_id"`
	Kind      domain.SubmissionKind `json:"kind"`
	Title     string                `json:"title"`
	City      string                `json:"city"`
	Category  string                `json:"category"`
	Price     int64                 `json:"price"`
	Invited   bool                  `json:"invited"`
	CreatedAt time.Time             `json:"created_at"`
}

// SubmissionResponse provides full submission info.
type SubmissionResponse struct {
	ID           string                  `json:"id"`
	UserID       int64                   `json:"user_id"`
	Kind         domain.SubmissionKind   `json:"kind"`
	Status       domain.SubmissionStatus `json:"status"`
	Invited      bool                    `json:"invited"`
	RejectedAll  bool                    `json:"rejected_all"`
	RejectReason *string                 `json:"reject_reason"`
	Data         domain.SessionData      `json:"data"`
	CreatedAt    time.Time               `json:"created_at"`
	DecidedAt    *time.Time              `json:"decided_at"`
}

// DecisionResponse acknowledges a publish or reject.
type DecisionResponse struct {
	ID     string                  `json:"id"`
	Status domain.SubmissionStatus `json:"status"`
}

// QueueEntry maps a queue handle.
func QueueEntry(e domain.ModerationEntry) QueueEntryResponse {
	return QueueEntryResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		Kind:      e.Kind,
		Title:     e.Data.Title,
		City:      e.Data.City,
		Category:  e.Data.Category,
		Price:     e.Data.Price,
		Invited:   e.Invited,
		CreatedAt: e.CreatedAt,
	}
}

// Submission maps a stored submission.
func Submission(s *domain.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		Kind:         s.Kind,
		Status:       s.Status,
		Invited:      s.Invited,
		RejectedAll:  s.RejectedAll,
		RejectReason: s.RejectReason,
		Data:         s.Data,
		CreatedAt:    s.CreatedAt,
		DecidedAt:    s.DecidedAt,
	}
}
