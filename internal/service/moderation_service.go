package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/domain"
	"github.com/spec-kit/listing-bot/internal/events"
	"github.com/spec-kit/listing-bot/internal/observability"
	"github.com/spec-kit/listing-bot/internal/repository"
	"github.com/spec-kit/listing-bot/internal/store"
)

// ModerationService publishes or rejects queued submissions.
type ModerationService struct {
	submissions repository.SubmissionRepository
	queue       store.ModerationQueue
	rejections  store.RejectionContexts
	sessions    store.SessionStore
	messenger   Messenger
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	channelID   int64
	contactURL  string
	modChatID   int64
	moderators  map[int64]struct{}
}

// ModerationDependencies bundles the moderation collaborators.
type ModerationDependencies struct {
	Submissions repository.SubmissionRepository
	Queue       store.ModerationQueue
	Rejections  store.RejectionContexts
	Sessions    store.SessionStore
	Messenger   Messenger
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	// ChannelChatID is where published listings go.
	ChannelChatID int64
	ContactURL    string
	ModChatID     int64
	ModeratorIDs  []int64
}

// NewModerationService creates the service.
func NewModerationService(deps ModerationDependencies) *ModerationService {
	moderators := make(map[int64]struct{}, len(deps.ModeratorIDs))
	for _, id := range deps.ModeratorIDs {
		moderators[id] = struct{}{}
	}
	return &ModerationService{
		submissions: deps.Submissions,
		queue:       deps.Queue,
		rejections:  deps.Rejections,
		sessions:    deps.Sessions,
		messenger:   deps.Messenger,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		channelID:   deps.ChannelChatID,
		contactURL:  deps.ContactURL,
		modChatID:   deps.ModChatID,
		moderators:  moderators,
	}
}

// Authorized reports whether an action came from the moderation chat or a configured moderator.
func (m *ModerationService) Authorized(chatID, userID int64) bool {
	if m.modChatID != 0 && chatID == m.modChatID {
		return true
	}
	_, ok := m.moderators[userID]
	return ok
}

// Pending lists queued submissions, oldest first.
func (m *ModerationService) Pending(ctx context.Context) ([]domain.ModerationEntry, error) {
	return m.queue.List(ctx)
}

// Publish posts a queued listing to the channel and notifies its author.
func (m *ModerationService) Publish(ctx context.Context, moderatorID int64, id string) error {
	entry, err := m.queued(ctx, id)
	if err != nil {
		m.metrics.RecordDecision("publish", missingOutcome(err))
		return err
	}
	if entry.Kind != domain.SubmissionKindSell {
		m.metrics.RecordDecision("publish", "not_publishable")
		return domain.ErrNotPublishable
	}

	if err := m.submissions.TransitionStatus(ctx, id, domain.SubmissionStatusPublished, nil); err != nil {
		if errors.Is(err, domain.ErrAlreadyHandled) || errors.Is(err, domain.ErrNotFound) {
			m.dropEntry(ctx, id)
			m.metrics.RecordDecision("publish", "already_handled")
			return domain.ErrAlreadyHandled
		}
		m.metrics.RecordDecision("publish", "error")
		return fmt.Errorf("mark published: %w", err)
	}

	if err := m.postToChannel(ctx, entry); err != nil {
		if revErr := m.submissions.RevertToPending(ctx, id, domain.SubmissionStatusPublished); revErr != nil {
			m.logger.Error("revert publication", zap.String("submission_id", id), zap.Error(revErr))
		} else if addErr := m.queue.Add(ctx, entry); addErr != nil {
			// A concurrent decision that lost the transition may have dropped the entry.
			m.logger.Error("requeue after failed publication", zap.String("submission_id", id), zap.Error(addErr))
		}
		m.metrics.RecordDecision("publish", "error")
		return fmt.Errorf("post to channel: %w", err)
	}

	m.notify(ctx, entry.UserID, msgPublishedUser)
	m.dropEntry(ctx, id)
	m.metrics.RecordDecision("publish", "ok")
	m.emit(ctx, events.EventSubmissionPublished, entry.UserID, id, moderatorID, nil)
	m.logger.Info("submission published", zap.String("submission_id", id), zap.Int64("moderator_id", moderatorID))
	return nil
}

// queued returns the queue entry for id. Buy inquiries never enter the queue,
// so a miss on one reports ErrNotPublishable instead of ErrNotFound.
func (m *ModerationService) queued(ctx context.Context, id string) (domain.ModerationEntry, error) {
	entry, err := m.queue.Get(ctx, id)
	if !errors.Is(err, domain.ErrNotFound) {
		return entry, err
	}
	if sub, subErr := m.submissions.GetByID(ctx, id); subErr == nil && sub.Kind != domain.SubmissionKindSell {
		return entry, domain.ErrNotPublishable
	}
	return entry, err
}

func missingOutcome(err error) string {
	if errors.Is(err, domain.ErrNotPublishable) {
		return "not_publishable"
	}
	return "missing"
}

// postToChannel sends media first, then the text post. Only the text post is required to succeed.
func (m *ModerationService) postToChannel(ctx context.Context, entry domain.ModerationEntry) error {
	if err := sendListingMedia(ctx, m.messenger, m.channelID, entry.Data); err != nil {
		m.logger.Warn("post media to channel", zap.String("submission_id", entry.ID), zap.Error(err))
	}
	post := OutMessage{
		ChatID:         m.channelID,
		Text:           RenderChannelPost(entry.Data),
		Keyboard:       contactSellerKeyboard(m.contactURL),
		DisablePreview: true,
	}
	if _, err := m.messenger.SendMessage(ctx, post); err != nil {
		return err
	}
	if entry.Data.Table != nil {
		if err := m.messenger.SendDocument(ctx, m.channelID, *entry.Data.Table, "📊 Финансовая таблица"); err != nil {
			m.logger.Warn("post table to channel", zap.String("submission_id", entry.ID), zap.Error(err))
		}
	}
	return nil
}

// Reject marks a queued submission rejected and sends the reason to its author.
func (m *ModerationService) Reject(ctx context.Context, moderatorID int64, id, reason string) error {
	entry, err := m.queued(ctx, id)
	if err != nil {
		m.metrics.RecordDecision("reject", missingOutcome(err))
		return err
	}

	if err := m.submissions.TransitionStatus(ctx, id, domain.SubmissionStatusRejected, &reason); err != nil {
		if errors.Is(err, domain.ErrAlreadyHandled) || errors.Is(err, domain.ErrNotFound) {
			m.dropEntry(ctx, id)
			m.metrics.RecordDecision("reject", "already_handled")
			return domain.ErrAlreadyHandled
		}
		m.metrics.RecordDecision("reject", "error")
		return fmt.Errorf("mark rejected: %w", err)
	}

	m.notify(ctx, entry.UserID, rejectedUser(html.EscapeString(reason)))
	m.dropEntry(ctx, id)
	m.metrics.RecordDecision("reject", "ok")
	m.emit(ctx, events.EventSubmissionRejected, entry.UserID, id, moderatorID, events.SubmissionRejectedPayload{Reason: reason})
	m.logger.Info("submission rejected", zap.String("submission_id", id), zap.Int64("moderator_id", moderatorID))
	return nil
}

// BeginReject remembers the submission the moderator is rejecting and asks for a reason.
func (m *ModerationService) BeginReject(ctx context.Context, moderatorID int64, id string) error {
	if _, err := m.queued(ctx, id); err != nil {
		return err
	}
	if err := m.rejections.Set(ctx, moderatorID, id); err != nil {
		return fmt.Errorf("remember rejection: %w", err)
	}

	sess, err := m.sessions.Get(ctx, moderatorID)
	if err != nil {
		return fmt.Errorf("load moderator session: %w", err)
	}
	sess.AwaitingReason = true
	sess.UpdatedAt = time.Now().UTC()
	if err := m.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save moderator session: %w", err)
	}

	_, err = m.messenger.SendMessage(ctx, OutMessage{ChatID: moderatorID, Text: rejectReasonPrompt(id)})
	return err
}

// SubmitReason completes a two-phase rejection with the moderator's text.
func (m *ModerationService) SubmitReason(ctx context.Context, moderatorID int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		m.notify(ctx, moderatorID, msgRejectEmpty)
		return nil
	}

	defer m.resetModerator(ctx, moderatorID)

	id, err := m.rejections.Get(ctx, moderatorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			m.notify(ctx, moderatorID, msgRejectNoContext)
			return nil
		}
		return fmt.Errorf("load rejection: %w", err)
	}

	err = m.Reject(ctx, moderatorID, id, reason)
	if clearErr := m.rejections.Clear(ctx, moderatorID); clearErr != nil {
		m.logger.Warn("clear rejection", zap.Int64("moderator_id", moderatorID), zap.Error(clearErr))
	}
	switch {
	case err == nil:
		m.notify(ctx, moderatorID, rejectedModerator(id))
		return nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAlreadyHandled), errors.Is(err, domain.ErrNotPublishable):
		m.notify(ctx, moderatorID, msgRejectHandled)
		return nil
	default:
		return err
	}
}

// resetModerator clears the reason marker and leaves the moderator's own flow as it was.
func (m *ModerationService) resetModerator(ctx context.Context, moderatorID int64) {
	sess, err := m.sessions.Get(ctx, moderatorID)
	if err == nil {
		sess.AwaitingReason = false
		err = m.sessions.Save(ctx, sess)
	}
	if err != nil {
		m.logger.Warn("reset moderator session", zap.Int64("moderator_id", moderatorID), zap.Error(err))
	}
}

func (m *ModerationService) dropEntry(ctx context.Context, id string) {
	if _, err := m.queue.Remove(ctx, id); err != nil {
		m.logger.Warn("remove queue entry", zap.String("submission_id", id), zap.Error(err))
	}
}

func (m *ModerationService) notify(ctx context.Context, userID int64, text string) {
	if _, err := m.messenger.SendMessage(ctx, OutMessage{ChatID: userID, Text: text}); err != nil {
		m.logger.Warn("notify user", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (m *ModerationService) emit(ctx context.Context, t events.EventType, userID int64, id string, actor int64, payload any) {
	if m.dispatcher == nil {
		return
	}
	event := events.New(t, userID, payload)
	event.SubmissionID = id
	event.ActorID = actor
	if err := m.dispatcher.Publish(ctx, event); err != nil {
		m.logger.Warn("publish moderation event", zap.String("submission_id", id), zap.Error(err))
	}
}

// RestoreQueue re-queues pending listings from the submission archive, for
// queue backends that do not survive restarts.
func (m *ModerationService) RestoreQueue(ctx context.Context) (int, error) {
	kind := domain.SubmissionKindSell
	pending, err := m.submissions.List(ctx, repository.SubmissionFilter{
		Kind:     &kind,
		Statuses: []domain.SubmissionStatus{domain.SubmissionStatusPending},
		Limit:    1000,
	})
	if err != nil {
		return 0, fmt.Errorf("list pending submissions: %w", err)
	}
	for i := range pending {
		if err := m.queue.Add(ctx, domain.EntryFor(&pending[i])); err != nil {
			return i, fmt.Errorf("restore %s: %w", pending[i].ID, err)
		}
	}
	return len(pending), nil
}
