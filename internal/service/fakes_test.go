package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/domain"
	"github.com/spec-kit/listing-bot/internal/events"
	"github.com/spec-kit/listing-bot/internal/repository"
	"github.com/spec-kit/listing-bot/internal/store"
)

const (
	modChatID     int64 = -1001
	channelChatID int64 = -2002
	moderatorID   int64 = 900
)

type sentDocument struct {
	ChatID  int64
	Doc     domain.Document
	Caption string
}

type fakeMessenger struct {
	mu        sync.Mutex
	nextID    int
	messages  []OutMessage
	albums    map[int64][][]Media
	documents []sentDocument
	notes     map[int64][]string
	deleted   []int
	toasts    []string
	statuses  map[int64]string
	statusErr error
	failChats map[int64]error
	// beforeSend runs ahead of every SendMessage, outside the lock.
	beforeSend func(OutMessage)
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		albums:    make(map[int64][][]Media),
		notes:     make(map[int64][]string),
		statuses:  make(map[int64]string),
		failChats: make(map[int64]error),
	}
}

func (m *fakeMessenger) SendMessage(_ context.Context, msg OutMessage) (int, error) {
	m.mu.Lock()
	hook := m.beforeSend
	m.mu.Unlock()
	if hook != nil {
		hook(msg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failChats[msg.ChatID]; err != nil {
		return 0, err
	}
	m.nextID++
	m.messages = append(m.messages, msg)
	return m.nextID, nil
}

func (m *fakeMessenger) SendMediaGroup(_ context.Context, chatID int64, media []Media) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.albums[chatID] = append(m.albums[chatID], media)
	return nil
}

func (m *fakeMessenger) SendDocument(_ context.Context, chatID int64, doc domain.Document, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, sentDocument{ChatID: chatID, Doc: doc, Caption: caption})
	return nil
}

func (m *fakeMessenger) SendVideoNote(_ context.Context, chatID int64, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[chatID] = append(m.notes[chatID], fileID)
	return nil
}

func (m *fakeMessenger) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) AnswerCallback(_ context.Context, _ string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = append(m.toasts, text)
	return nil
}

func (m *fakeMessenger) ChatMemberStatus(_ context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return "", m.statusErr
	}
	status, ok := m.statuses[userID]
	if !ok {
		return "member", nil
	}
	return status, nil
}

func (m *fakeMessenger) BotUsername() string { return "listing_test_bot" }

func (m *fakeMessenger) setStatus(userID int64, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[userID] = status
}

func (m *fakeMessenger) onSend(hook func(OutMessage)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beforeSend = hook
}

func (m *fakeMessenger) failChat(chatID int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failChats[chatID] = err
}

func (m *fakeMessenger) to(chatID int64) []OutMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OutMessage
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

func (m *fakeMessenger) last(t *testing.T, chatID int64) OutMessage {
	t.Helper()
	msgs := m.to(chatID)
	require.NotEmpty(t, msgs, "no messages to %d", chatID)
	return msgs[len(msgs)-1]
}

func (m *fakeMessenger) lastToast() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.toasts) == 0 {
		return ""
	}
	return m.toasts[len(m.toasts)-1]
}

func (m *fakeMessenger) containsText(chatID int64, fragment string) bool {
	for _, msg := range m.to(chatID) {
		if strings.Contains(msg.Text, fragment) {
			return true
		}
	}
	return false
}

type recordingEnqueuer struct {
	mu      sync.Mutex
	inbound []domain.Inbound
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, in domain.Inbound) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inbound = append(e.inbound, in)
	return nil
}

func (e *recordingEnqueuer) take() []domain.Inbound {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.inbound
	e.inbound = nil
	return out
}

type harness struct {
	flow       *FlowService
	moderation *ModerationService
	msg        *fakeMessenger
	sessions   *store.MemorySessionStore
	ledger     *store.MemoryReferralLedger
	queue      *store.MemoryModerationQueue
	rejections *store.MemoryRejectionContexts
	repo       *repository.MemorySubmissionRepository
	enqueuer   *recordingEnqueuer
}

func newHarness(t *testing.T, settings FlowSettings) *harness {
	t.Helper()
	h := &harness{
		msg:        newFakeMessenger(),
		sessions:   store.NewMemorySessionStore(),
		ledger:     store.NewMemoryReferralLedger(),
		queue:      store.NewMemoryModerationQueue(),
		rejections: store.NewMemoryRejectionContexts(0),
		repo:       repository.NewMemorySubmissionRepository(),
		enqueuer:   &recordingEnqueuer{},
	}
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, h.enqueuer, logger).RegisterHandlers()

	if settings.ChannelUsername == "" {
		settings.ChannelUsername = "biz_channel"
	}
	if settings.InviteThreshold == 0 {
		settings.InviteThreshold = 5
	}

	h.moderation = NewModerationService(ModerationDependencies{
		Submissions:   h.repo,
		Queue:         h.queue,
		Rejections:    h.rejections,
		Sessions:      h.sessions,
		Messenger:     h.msg,
		Dispatcher:    dispatcher,
		Logger:        logger,
		ChannelChatID: channelChatID,
		ContactURL:    "https://t.me/agent",
		ModChatID:     modChatID,
		ModeratorIDs:  []int64{moderatorID},
	})
	finalizer := NewFinalizer(FinalizerDependencies{
		Submissions:  h.repo,
		Queue:        h.queue,
		Sessions:     h.sessions,
		Messenger:    h.msg,
		Dispatcher:   dispatcher,
		Logger:       logger,
		ModChatID:    modChatID,
		AgentContact: "@agent",
	})
	h.flow = NewFlowService(FlowDependencies{
		Sessions:   h.sessions,
		Gate:       NewSubscriptionGate(h.msg, logger),
		Referrals:  NewReferralService(h.ledger, dispatcher, nil, logger, settings.InviteThreshold),
		Finalizer:  finalizer,
		Moderation: h.moderation,
		Messenger:  h.msg,
		Logger:     logger,
		Settings:   settings,
	})
	return h
}

func (h *harness) text(t *testing.T, userID int64, text string) {
	t.Helper()
	require.NoError(t, h.flow.Handle(context.Background(), domain.Inbound{
		Kind: domain.InboundText, UserID: userID, ChatID: userID, Text: text,
	}))
}

func (h *harness) press(t *testing.T, userID int64, data string) {
	t.Helper()
	h.pressIn(t, userID, userID, data)
}

func (h *harness) pressIn(t *testing.T, chatID, userID int64, data string) {
	t.Helper()
	require.NoError(t, h.flow.Handle(context.Background(), domain.Inbound{
		Kind: domain.InboundCallback, UserID: userID, ChatID: chatID, CallbackID: "cb", Data: data, MessageID: 77,
	}))
}

func (h *harness) command(t *testing.T, userID int64, command, args string) {
	t.Helper()
	require.NoError(t, h.flow.Handle(context.Background(), domain.Inbound{
		Kind: domain.InboundCommand, UserID: userID, ChatID: userID, Command: command, Args: args,
	}))
}

func (h *harness) media(t *testing.T, userID int64, kind domain.InboundKind, fileID string) {
	t.Helper()
	require.NoError(t, h.flow.Handle(context.Background(), domain.Inbound{
		Kind: kind, UserID: userID, ChatID: userID, FileID: fileID, FileName: fileID,
	}))
}

// drain processes the inbound events raised by event handlers.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	for _, in := range h.enqueuer.take() {
		require.NoError(t, h.flow.Handle(context.Background(), in))
	}
}

func (h *harness) session(t *testing.T, userID int64) *domain.Session {
	t.Helper()
	sess, err := h.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	return sess
}

// fillToPreview drives a sell flow from the start button up to the preview.
func (h *harness) fillToPreview(t *testing.T, userID int64) {
	t.Helper()
	h.press(t, userID, domain.ActionStartSell)
	h.press(t, userID, domain.ActionInfoReady)
	h.text(t, userID, "Кофейня у метро")
	h.text(t, userID, "150000")
	h.press(t, userID, domain.ActionSkipCurrent)
	h.text(t, userID, "3 бариста")
	h.text(t, userID, "Аренда 40 м2")
	h.text(t, userID, "Оборудование")
	h.text(t, userID, "Работает 5 лет")
	h.media(t, userID, domain.InboundDocument, "table.xlsx")
	h.media(t, userID, domain.InboundPhoto, "p1")
	h.media(t, userID, domain.InboundPhoto, "p2")
	h.press(t, userID, domain.ActionPhotosDone)
	h.text(t, userID, "новосибирск")
	h.text(t, userID, "ул. Ленина, 1")
	h.text(t, userID, "1250000")
	h.press(t, userID, domain.SellCategoryAction("6"))
	require.Equal(t, domain.StateSellPreview, h.session(t, userID).State)
}

var errSendFailed = errors.New("send failed")

type failingRepo struct {
	repository.SubmissionRepository
}

func (failingRepo) Create(context.Context, *domain.Submission) error {
	return errors.New("database unavailable")
}

func repositoryFilter(kind *domain.SubmissionKind) repository.SubmissionFilter {
	return repository.SubmissionFilter{Kind: kind}
}
