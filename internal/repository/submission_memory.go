package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// MemorySubmissionRepository keeps submissions in process memory.
type MemorySubmissionRepository struct {
	mu    sync.Mutex
	items map[string]domain.Submission
}

// NewMemorySubmissionRepository returns an empty in-memory repository.
func NewMemorySubmissionRepository() *MemorySubmissionRepository {
	return &MemorySubmissionRepository{items: make(map[string]domain.Submission)}
}

func (r *MemorySubmissionRepository) Create(_ context.Context, s *domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if s.Status == "" {
		s.Status = domain.SubmissionStatusPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	r.items[s.ID] = cloneSubmission(*s)
	return nil
}

func (r *MemorySubmissionRepository) GetByID(_ context.Context, id string) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneSubmission(s)
	return &out, nil
}

func (r *MemorySubmissionRepository) TransitionStatus(_ context.Context, id string, to domain.SubmissionStatus, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok || s.Status != domain.SubmissionStatusPending {
		return domain.ErrAlreadyHandled
	}
	now := time.Now().UTC()
	s.Status = to
	s.RejectReason = reason
	s.DecidedAt = &now
	r.items[id] = s
	return nil
}

func (r *MemorySubmissionRepository) RevertToPending(_ context.Context, id string, from domain.SubmissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok || s.Status != from {
		return domain.ErrNotFound
	}
	s.Status = domain.SubmissionStatusPending
	s.RejectReason = nil
	s.DecidedAt = nil
	r.items[id] = s
	return nil
}

func (r *MemorySubmissionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *MemorySubmissionRepository) List(_ context.Context, filter SubmissionFilter) ([]domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Submission
	for _, s := range r.items {
		if filter.Kind != nil && s.Kind != *filter.Kind {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, s.Status) {
			continue
		}
		if filter.UserID != nil && s.UserID != *filter.UserID {
			continue
		}
		result = append(result, cloneSubmission(s))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func cloneSubmission(s domain.Submission) domain.Submission {
	s.Data.Photos = slices.Clone(s.Data.Photos)
	if s.Data.Table != nil {
		doc := *s.Data.Table
		s.Data.Table = &doc
	}
	return s
}
