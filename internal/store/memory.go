package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// MemorySessionStore keeps sessions in process memory. Sessions are lost on restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]domain.Session
}

// NewMemorySessionStore returns an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]domain.Session)}
}

func (s *MemorySessionStore) Get(_ context.Context, userID int64) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return domain.NewSession(userID), nil
	}
	sess.Data.Photos = slices.Clone(sess.Data.Photos)
	return &sess, nil
}

func (s *MemorySessionStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	cp.UpdatedAt = time.Now().UTC()
	cp.Data.Photos = slices.Clone(sess.Data.Photos)
	s.sessions[sess.UserID] = cp
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// MemoryReferralLedger keeps referral edges in process memory.
type MemoryReferralLedger struct {
	mu       sync.Mutex
	owners   map[int64]int64
	invitees map[int64]map[int64]struct{}
}

// NewMemoryReferralLedger returns an empty ledger.
func NewMemoryReferralLedger() *MemoryReferralLedger {
	return &MemoryReferralLedger{
		owners:   make(map[int64]int64),
		invitees: make(map[int64]map[int64]struct{}),
	}
}

func (l *MemoryReferralLedger) RecordInvite(_ context.Context, inviterID, inviteeID int64) (RecordResult, error) {
	if inviterID == inviteeID {
		return RecordResult{}, domain.ErrSelfInvite
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if owner, ok := l.owners[inviteeID]; ok {
		return RecordResult{Count: len(l.invitees[inviterID]), CreditedTo: owner}, nil
	}
	l.owners[inviteeID] = inviterID
	set, ok := l.invitees[inviterID]
	if !ok {
		set = make(map[int64]struct{})
		l.invitees[inviterID] = set
	}
	set[inviteeID] = struct{}{}
	return RecordResult{Count: len(set), Added: true, CreditedTo: inviterID}, nil
}

func (l *MemoryReferralLedger) Count(_ context.Context, inviterID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.invitees[inviterID]), nil
}

// MemoryModerationQueue keeps pending entries in process memory.
type MemoryModerationQueue struct {
	mu      sync.Mutex
	entries map[string]domain.ModerationEntry
}

// NewMemoryModerationQueue returns an empty queue.
func NewMemoryModerationQueue() *MemoryModerationQueue {
	return &MemoryModerationQueue{entries: make(map[string]domain.ModerationEntry)}
}

func (q *MemoryModerationQueue) Add(_ context.Context, entry domain.ModerationEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[entry.ID] = entry
	return nil
}

func (q *MemoryModerationQueue) Get(_ context.Context, id string) (domain.ModerationEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[id]
	if !ok {
		return domain.ModerationEntry{}, domain.ErrNotFound
	}
	return entry, nil
}

func (q *MemoryModerationQueue) Remove(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[id]
	delete(q.entries, id)
	return ok, nil
}

func (q *MemoryModerationQueue) List(_ context.Context) ([]domain.ModerationEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.ModerationEntry, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type rejection struct {
	submissionID string
	expires      time.Time
}

// MemoryRejectionContexts keeps moderators' reject targets in process memory.
type MemoryRejectionContexts struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[int64]rejection
}

// NewMemoryRejectionContexts returns contexts that expire after ttl.
func NewMemoryRejectionContexts(ttl time.Duration) *MemoryRejectionContexts {
	return &MemoryRejectionContexts{ttl: ttl, now: time.Now, items: make(map[int64]rejection)}
}

func (r *MemoryRejectionContexts) Set(_ context.Context, moderatorID int64, submissionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[moderatorID] = rejection{submissionID: submissionID, expires: r.now().Add(r.ttl)}
	return nil
}

func (r *MemoryRejectionContexts) Get(_ context.Context, moderatorID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[moderatorID]
	if !ok {
		return "", domain.ErrNotFound
	}
	if r.ttl > 0 && !r.now().Before(item.expires) {
		delete(r.items, moderatorID)
		return "", domain.ErrNotFound
	}
	return item.submissionID, nil
}

func (r *MemoryRejectionContexts) Clear(_ context.Context, moderatorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, moderatorID)
	return nil
}
