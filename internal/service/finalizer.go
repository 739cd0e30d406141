package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/domain"
	"github.com/spec-kit/listing-bot/internal/events"
	"github.com/spec-kit/listing-bot/internal/observability"
	"github.com/spec-kit/listing-bot/internal/repository"
	"github.com/spec-kit/listing-bot/internal/store"
)

// Finalizer turns a completed session into a persisted submission.
type Finalizer struct {
	submissions  repository.SubmissionRepository
	queue        store.ModerationQueue
	sessions     store.SessionStore
	messenger    Messenger
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
	modChatID    int64
	agentContact string
	now          func() time.Time
}

// FinalizerDependencies bundles the finalizer collaborators.
type FinalizerDependencies struct {
	Submissions  repository.SubmissionRepository
	Queue        store.ModerationQueue
	Sessions     store.SessionStore
	Messenger    Messenger
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	ModChatID    int64
	AgentContact string
}

// NewFinalizer creates the finalizer.
func NewFinalizer(deps FinalizerDependencies) *Finalizer {
	return &Finalizer{
		submissions:  deps.Submissions,
		queue:        deps.Queue,
		sessions:     deps.Sessions,
		messenger:    deps.Messenger,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		modChatID:    deps.ModChatID,
		agentContact: deps.AgentContact,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Finalize persists a sell listing, queues it for moderation, previews it to
// moderators and notifies the submitter. The user has already been told about
// any returned error.
func (f *Finalizer) Finalize(ctx context.Context, sess *domain.Session, invited bool) (string, error) {
	sub := &domain.Submission{
		ID:          uuid.NewString(),
		UserID:      sess.UserID,
		Kind:        domain.SubmissionKindSell,
		Data:        sess.Data,
		Invited:     invited,
		RejectedAll: sess.Data.RejectedAll,
		Status:      domain.SubmissionStatusPending,
		CreatedAt:   f.now(),
	}
	sub.Data.Invited = invited
	log := f.logger.With(zap.String("submission_id", sub.ID), zap.Int64("user_id", sub.UserID))

	if err := f.submissions.Create(ctx, sub); err != nil {
		f.metrics.RecordFinalize(string(sub.Kind), "persist_failed")
		f.notify(ctx, sub.UserID, msgSubmitSaveFail)
		return "", fmt.Errorf("persist submission: %w", err)
	}

	if err := f.queue.Add(ctx, domain.EntryFor(sub)); err != nil {
		if delErr := f.submissions.Delete(ctx, sub.ID); delErr != nil {
			log.Error("rollback submission", zap.Error(delErr))
		}
		f.metrics.RecordFinalize(string(sub.Kind), "enqueue_failed")
		f.notify(ctx, sub.UserID, msgSubmitQueueErr)
		return "", fmt.Errorf("enqueue submission: %w", err)
	}

	if err := sendListingMedia(ctx, f.messenger, f.modChatID, sub.Data); err != nil {
		log.Warn("forward media to moderators", zap.Error(err))
	}
	preview := OutMessage{
		ChatID:         f.modChatID,
		Text:           RenderModeratorPreview(sub.ID, sub.Data, f.agentContact),
		Keyboard:       moderationKeyboard(sub.ID),
		DisablePreview: true,
	}
	if _, err := f.messenger.SendMessage(ctx, preview); err != nil {
		log.Error("send moderation preview", zap.Error(err))
	}
	if sub.Data.Table != nil {
		if err := f.messenger.SendDocument(ctx, f.modChatID, *sub.Data.Table, "📊 Финансовая таблица"); err != nil {
			log.Warn("forward table to moderators", zap.Error(err))
		}
	}

	f.notify(ctx, sub.UserID, submittedForModeration(sub.ID))
	f.dropSession(ctx, sub.UserID)
	f.metrics.RecordFinalize(string(sub.Kind), "queued")
	f.publish(ctx, sub)
	log.Info("submission queued for moderation", zap.Bool("invited", invited))
	return sub.ID, nil
}

// FinalizeBuy archives a buy inquiry and forwards it to the moderation chat.
// Inquiries are not queued: they cannot be published. The session is always dropped.
func (f *Finalizer) FinalizeBuy(ctx context.Context, sess *domain.Session) (string, error) {
	defer f.dropSession(ctx, sess.UserID)

	sub := &domain.Submission{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		Kind:      domain.SubmissionKindBuy,
		Data:      sess.Data,
		Status:    domain.SubmissionStatusPending,
		CreatedAt: f.now(),
	}
	if err := f.submissions.Create(ctx, sub); err != nil {
		f.logger.Error("persist buy request", zap.Int64("user_id", sub.UserID), zap.Error(err))
		sub.ID = ""
	}

	msg := OutMessage{ChatID: f.modChatID, Text: RenderBuyRequest(sub.ID, sub.Data), DisablePreview: true}
	if _, err := f.messenger.SendMessage(ctx, msg); err != nil {
		f.metrics.RecordFinalize(string(sub.Kind), "notify_failed")
		f.notify(ctx, sub.UserID, msgBuyNotifyFail)
		return sub.ID, fmt.Errorf("forward buy request: %w", err)
	}

	f.notify(ctx, sub.UserID, msgBuyAccepted)
	f.metrics.RecordFinalize(string(sub.Kind), "forwarded")
	if sub.ID != "" {
		f.publish(ctx, sub)
	}
	return sub.ID, nil
}

func (f *Finalizer) notify(ctx context.Context, userID int64, text string) {
	if _, err := f.messenger.SendMessage(ctx, OutMessage{ChatID: userID, Text: text}); err != nil {
		f.logger.Warn("notify user", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (f *Finalizer) dropSession(ctx context.Context, userID int64) {
	if err := f.sessions.Delete(ctx, userID); err != nil {
		f.logger.Warn("delete session", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (f *Finalizer) publish(ctx context.Context, sub *domain.Submission) {
	if f.dispatcher == nil {
		return
	}
	event := events.New(events.EventSubmissionFinalized, sub.UserID, events.SubmissionFinalizedPayload{
		Kind:        sub.Kind,
		Invited:     sub.Invited,
		RejectedAll: sub.RejectedAll,
	})
	event.SubmissionID = sub.ID
	if err := f.dispatcher.Publish(ctx, event); err != nil {
		f.logger.Warn("publish finalized event", zap.String("submission_id", sub.ID), zap.Error(err))
	}
}
