package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/domain"
	"github.com/spec-kit/listing-bot/internal/observability"
	"github.com/spec-kit/listing-bot/internal/store"
)

// FlowSettings tunes the conversation.
type FlowSettings struct {
	ChannelUsername  string
	TableTemplateURL string
	InviteThreshold  int
	MaxPhotos        int
}

// FlowDependencies bundles the flow controller collaborators.
type FlowDependencies struct {
	Sessions   store.SessionStore
	Gate       *SubscriptionGate
	Referrals  *ReferralService
	Finalizer  *Finalizer
	Moderation *ModerationService
	Messenger  Messenger
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Settings   FlowSettings
}

// FlowService drives the sell and buy conversations. Calls for one user must be serialised by the caller.
type FlowService struct {
	sessions   store.SessionStore
	gate       *SubscriptionGate
	referrals  *ReferralService
	finalizer  *Finalizer
	moderation *ModerationService
	messenger  Messenger
	metrics    *observability.Metrics
	logger     *zap.Logger
	settings   FlowSettings
	now        func() time.Time
}

// NewFlowService creates the flow controller.
func NewFlowService(deps FlowDependencies) *FlowService {
	settings := deps.Settings
	if settings.InviteThreshold <= 0 {
		settings.InviteThreshold = 5
	}
	if settings.MaxPhotos <= 0 || settings.MaxPhotos > maxAlbumSize {
		settings.MaxPhotos = maxAlbumSize
	}
	return &FlowService{
		sessions:   deps.Sessions,
		gate:       deps.Gate,
		referrals:  deps.Referrals,
		finalizer:  deps.Finalizer,
		moderation: deps.Moderation,
		messenger:  deps.Messenger,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		settings:   settings,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// turn carries one inbound event through the handlers.
type turn struct {
	in    domain.Inbound
	sess  *domain.Session
	toast string
}

// notifiedError marks failures the user has already been told about.
type notifiedError struct{ err error }

func (e *notifiedError) Error() string { return e.err.Error() }
func (e *notifiedError) Unwrap() error { return e.err }

// Handle processes one inbound event for its user.
func (f *FlowService) Handle(ctx context.Context, in domain.Inbound) error {
	started := time.Now()
	defer func() { f.metrics.RecordUpdate(string(in.Kind), time.Since(started)) }()

	t := &turn{in: in}
	sess, err := f.sessions.Get(ctx, in.UserID)
	if err == nil {
		t.sess = sess
		err = f.route(ctx, t)
	} else {
		err = fmt.Errorf("load session: %w", err)
	}

	if in.Kind == domain.InboundCallback && in.CallbackID != "" {
		if ackErr := f.messenger.AnswerCallback(ctx, in.CallbackID, t.toast); ackErr != nil {
			f.logger.Debug("answer callback", zap.Int64("user_id", in.UserID), zap.Error(ackErr))
		}
	}
	if err == nil {
		return nil
	}

	var notified *notifiedError
	if !errors.As(err, &notified) && in.ChatID != 0 && in.Kind != domain.InboundReferralThreshold {
		f.notice(ctx, in.ChatID, msgGenericFailure)
	}
	return err
}

func (f *FlowService) route(ctx context.Context, t *turn) error {
	switch t.in.Kind {
	case domain.InboundCommand:
		return f.handleCommand(ctx, t)
	case domain.InboundCallback:
		return f.handleCallback(ctx, t)
	case domain.InboundReferralThreshold:
		return f.handleThreshold(ctx, t)
	default:
		return f.handleInput(ctx, t)
	}
}

func (f *FlowService) handleCommand(ctx context.Context, t *turn) error {
	switch t.in.Command {
	case "start":
		if inviter, ok := domain.ParseReferral(t.in.Args); ok {
			return f.handleReferralStart(ctx, t, inviter)
		}
		if err := f.sessions.Delete(ctx, t.in.UserID); err != nil {
			return fmt.Errorf("reset session: %w", err)
		}
		return f.reply(ctx, t.in.ChatID, msgWelcome, welcomeKeyboard())
	case "reset":
		if err := f.sessions.Delete(ctx, t.in.UserID); err != nil {
			return fmt.Errorf("reset session: %w", err)
		}
		return f.reply(ctx, t.in.ChatID, msgReset, nil)
	default:
		if t.sess.Idle() {
			return f.reply(ctx, t.in.ChatID, msgStartHint, nil)
		}
		return f.reply(ctx, t.in.ChatID, msgUseInterface, nil)
	}
}

func (f *FlowService) handleCallback(ctx context.Context, t *turn) error {
	data := t.in.Data
	if id, ok := domain.ParsePublish(data); ok {
		return f.handlePublish(ctx, t, id)
	}
	if id, ok := domain.ParseReject(data); ok {
		return f.handleReject(ctx, t, id)
	}
	if key, ok := domain.ParseSellCategory(data); ok {
		return f.chooseSellCategory(ctx, t, key)
	}
	if key, ok := domain.ParseBuyCategory(data); ok {
		return f.chooseBuyCategory(ctx, t, key)
	}

	switch data {
	case domain.ActionStartSell:
		return f.requestFlow(ctx, t, domain.PendingSell)
	case domain.ActionStartBuy:
		return f.requestFlow(ctx, t, domain.PendingBuy)
	case domain.ActionCheckSub:
		return f.checkSubscription(ctx, t)
	case domain.ActionBack:
		return f.back(ctx, t)
	case domain.ActionRestart:
		return f.restart(ctx, t)
	case domain.ActionInfoReady:
		if !t.sess.Idle() {
			t.toast = toastStale
			return nil
		}
		t.sess.Begin(domain.StateSellTitle)
		return f.advance(ctx, t, domain.StateSellTitle, "")
	}
	return f.handleSellCallback(ctx, t)
}

// requestFlow starts a flow when the user passes the gate, parking the intent otherwise.
func (f *FlowService) requestFlow(ctx context.Context, t *turn, action domain.PendingAction) error {
	if !f.gate.IsMember(ctx, t.in.UserID) {
		t.sess.Data.PendingAction = action
		if err := f.save(ctx, t.sess); err != nil {
			return err
		}
		return f.reply(ctx, t.in.ChatID, gateMessage(action == domain.PendingBuy, f.settings.ChannelUsername), subscribeKeyboard(f.channelURL()))
	}
	return f.startFlow(ctx, t, action)
}

func (f *FlowService) startFlow(ctx context.Context, t *turn, action domain.PendingAction) error {
	if action == domain.PendingBuy {
		t.sess.Begin(domain.StateBuyBudget)
		return f.advance(ctx, t, domain.StateBuyBudget, "")
	}
	if err := f.sessions.Delete(ctx, t.in.UserID); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	return f.reply(ctx, t.in.ChatID, sellInstructions(f.settings.TableTemplateURL), infoReadyKeyboard())
}

// checkSubscription resumes whatever was parked behind the gate.
func (f *FlowService) checkSubscription(ctx context.Context, t *turn) error {
	if !f.gate.IsMember(ctx, t.in.UserID) {
		return f.reply(ctx, t.in.ChatID, msgNotSubscribed, subscribeKeyboard(f.channelURL()))
	}

	referrer := t.sess.Data.PendingReferrer
	action := t.sess.Data.PendingAction
	if referrer != 0 || action != domain.PendingNone {
		t.sess.Data.PendingReferrer = 0
		t.sess.Data.PendingAction = domain.PendingNone
		if err := f.save(ctx, t.sess); err != nil {
			return err
		}
	}

	if referrer != 0 {
		if err := f.creditReferral(ctx, t, referrer, action == domain.PendingNone); err != nil {
			return err
		}
	}
	if action != domain.PendingNone {
		return f.startFlow(ctx, t, action)
	}
	if referrer == 0 {
		return f.reply(ctx, t.in.ChatID, msgSubscribedGo, welcomeKeyboard())
	}
	return nil
}

func (f *FlowService) handleReferralStart(ctx context.Context, t *turn, inviter int64) error {
	if inviter == t.in.UserID {
		return f.reply(ctx, t.in.ChatID, msgSelfInvite, welcomeKeyboard())
	}
	if !f.gate.IsMember(ctx, t.in.UserID) {
		t.sess.Data.PendingReferrer = inviter
		if err := f.save(ctx, t.sess); err != nil {
			return err
		}
		return f.reply(ctx, t.in.ChatID, referralGateMessage(f.settings.ChannelUsername), subscribeKeyboard(f.channelURL()))
	}
	return f.creditReferral(ctx, t, inviter, true)
}

// creditReferral records the invite and tells both sides. withMenu appends the welcome keyboard.
func (f *FlowService) creditReferral(ctx context.Context, t *turn, inviter int64, withMenu bool) error {
	var menu Keyboard
	if withMenu {
		menu = welcomeKeyboard()
	}

	res, err := f.referrals.Record(ctx, inviter, t.in.UserID)
	switch {
	case errors.Is(err, domain.ErrSelfInvite):
		return f.reply(ctx, t.in.ChatID, msgSelfInvite, menu)
	case err != nil && !res.Added:
		return fmt.Errorf("record invite: %w", err)
	case err != nil:
		f.logger.Error("referral milestone", zap.Int64("user_id", inviter), zap.Error(err))
	}

	if !res.Added {
		return f.reply(ctx, t.in.ChatID, msgAlreadyHelped, menu)
	}
	if res.Count <= f.settings.InviteThreshold {
		f.notice(ctx, inviter, inviterNotice(res.Count, f.settings.InviteThreshold))
	}
	return f.reply(ctx, t.in.ChatID, msgInviteeThanks, menu)
}

func (f *FlowService) handlePublish(ctx context.Context, t *turn, id string) error {
	if !f.moderation.Authorized(t.in.ChatID, t.in.UserID) {
		t.toast = toastForbidden
		return nil
	}
	err := f.moderation.Publish(ctx, t.in.UserID, id)
	switch {
	case err == nil:
		t.toast = toastPublished
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAlreadyHandled):
		t.toast = toastHandled
	case errors.Is(err, domain.ErrNotPublishable):
		t.toast = toastBuyPublish
	default:
		t.toast = toastPublishError
		f.logger.Error("publish submission", zap.String("submission_id", id), zap.Error(err))
	}
	return nil
}

func (f *FlowService) handleReject(ctx context.Context, t *turn, id string) error {
	if !f.moderation.Authorized(t.in.ChatID, t.in.UserID) {
		t.toast = toastForbidden
		return nil
	}
	err := f.moderation.BeginReject(ctx, t.in.UserID, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		t.toast = toastHandled
		return nil
	case errors.Is(err, domain.ErrNotPublishable):
		t.toast = toastBuyPublish
		return nil
	}
	return err
}

// handleThreshold runs on the inviter's lane once their invites reach the threshold.
func (f *FlowService) handleThreshold(ctx context.Context, t *turn) error {
	if t.sess.State.Flow() != domain.FlowSell || !t.sess.Data.WaitingForInvites {
		return nil
	}
	f.notice(ctx, t.in.ChatID, thresholdCongrats(f.settings.InviteThreshold))
	t.sess.Data.WaitingForInvites = false
	return f.finalizeOrAskContact(ctx, t, true)
}

func (f *FlowService) back(ctx context.Context, t *turn) error {
	state := t.sess.State
	switch {
	case t.sess.Idle():
		t.toast = toastNoPrevious
		return nil
	case state == domain.StateSellTitle, state == domain.StateBuyBudget:
		t.toast = toastFirstStep
		return nil
	case state == domain.StateSellOffer, state == domain.StateSellInvites, t.sess.Data.FinalizeOnContact:
		t.toast = toastNoBackOffer
		return nil
	}
	prev, ok := state.Previous()
	if !ok {
		t.toast = toastNoPrevious
		return nil
	}

	if t.in.MessageID != 0 {
		if err := f.messenger.DeleteMessage(ctx, t.in.ChatID, t.in.MessageID); err != nil {
			f.logger.Debug("delete message on back", zap.Error(err))
		}
	}
	t.toast = toastBack
	return f.advance(ctx, t, prev, "")
}

func (f *FlowService) restart(ctx context.Context, t *turn) error {
	if err := f.sessions.Delete(ctx, t.in.UserID); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	t.toast = toastRestart
	return f.reply(ctx, t.in.ChatID, msgRestart, welcomeKeyboard())
}

func (f *FlowService) handleInput(ctx context.Context, t *turn) error {
	if t.sess.AwaitingReason {
		if t.in.Kind == domain.InboundText {
			return f.moderation.SubmitReason(ctx, t.in.UserID, t.in.Text)
		}
		if t.sess.Idle() {
			return f.reply(ctx, t.in.ChatID, msgTextHint, nil)
		}
	}
	state := t.sess.State
	switch {
	case state.Flow() == domain.FlowSell:
		return f.handleSellInput(ctx, t)
	case state.Flow() == domain.FlowBuy:
		return f.handleBuyInput(ctx, t)
	}

	if t.in.ChatID == t.in.UserID {
		return f.reply(ctx, t.in.ChatID, msgStartHint, nil)
	}
	return nil
}

// advance moves the session to state, persists it and shows the state's prompt.
func (f *FlowService) advance(ctx context.Context, t *turn, state domain.State, leadText string) error {
	t.sess.State = state
	if err := f.save(ctx, t.sess); err != nil {
		return err
	}
	f.metrics.RecordTransition(string(state))
	return f.prompt(ctx, t, leadText)
}

func (f *FlowService) prompt(ctx context.Context, t *turn, leadText string) error {
	d := t.sess.Data
	chatID := t.in.ChatID
	switch t.sess.State {
	case domain.StateSellTitle:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["title"]), Keyboard{restartRow()})
	case domain.StateSellProfit:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["profit"]), navKeyboard())
	case domain.StateSellMarketing:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["marketing"]), skipKeyboard())
	case domain.StateSellEmployees:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["employees"]), navKeyboard())
	case domain.StateSellPremises:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["premises"]), navKeyboard())
	case domain.StateSellIncluded:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["included"]), navKeyboard())
	case domain.StateSellExtra:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["extra"]), skipKeyboard())
	case domain.StateSellTable:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["table"]), skipTableKeyboard())
	case domain.StateSellPhotos:
		return f.reply(ctx, chatID, lead(leadText, photosPrompt(len(d.Photos), f.settings.MaxPhotos)), photosKeyboard())
	case domain.StateSellCity:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["city"]), navKeyboard())
	case domain.StateSellAddress:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["address"]), navKeyboard())
	case domain.StateSellPrice:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["price"]), navKeyboard())
	case domain.StateSellCategory:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["category"]), categoryKeyboard(domain.SellCategoryAction))
	case domain.StateSellPreview:
		return f.showPreview(ctx, t)
	case domain.StateSellAgentConfirm:
		return f.reply(ctx, chatID, lead(leadText, statePrompts["agent"]), agentKeyboard())
	case domain.StateSellContact:
		switch {
		case d.FinalizeOnContact:
			return f.reply(ctx, chatID, statePrompts["contactAgain"], Keyboard{restartRow()})
		case d.WithAgent:
			return f.reply(ctx, chatID, statePrompts["contactAgent"], navKeyboard())
		default:
			return f.reply(ctx, chatID, statePrompts["contactFree"], navKeyboard())
		}
	case domain.StateSellOffer:
		if d.WithAgent {
			return f.reply(ctx, chatID, agentOfferPrompt(f.settings.InviteThreshold), agentOfferKeyboard())
		}
		return f.reply(ctx, chatID, freeOfferPrompt(f.settings.InviteThreshold), freeOfferKeyboard())
	case domain.StateSellInvites:
		return f.showInvites(ctx, t)
	case domain.StateBuyBudget:
		return f.reply(ctx, chatID, statePrompts["buyBudget"], Keyboard{restartRow()})
	case domain.StateBuyCity:
		return f.reply(ctx, chatID, statePrompts["buyCity"], navKeyboard())
	case domain.StateBuyCategory:
		return f.reply(ctx, chatID, statePrompts["buyCategory"], categoryKeyboard(domain.BuyCategoryAction))
	case domain.StateBuyExperience:
		return f.reply(ctx, chatID, statePrompts["buyExperience"], navKeyboard())
	case domain.StateBuyPhone:
		return f.reply(ctx, chatID, statePrompts["buyPhone"], navKeyboard())
	case domain.StateBuyWhenContact:
		return f.reply(ctx, chatID, statePrompts["buyWhen"], navKeyboard())
	}
	return nil
}

func (f *FlowService) save(ctx context.Context, sess *domain.Session) error {
	sess.UpdatedAt = f.now()
	if err := f.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (f *FlowService) reply(ctx context.Context, chatID int64, text string, kb Keyboard) error {
	_, err := f.messenger.SendMessage(ctx, OutMessage{ChatID: chatID, Text: text, Keyboard: kb, DisablePreview: true})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// notice sends a message whose failure must not abort the turn.
func (f *FlowService) notice(ctx context.Context, chatID int64, text string) {
	if err := f.reply(ctx, chatID, text, nil); err != nil {
		f.logger.Warn("send notice", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (f *FlowService) channelURL() string {
	if f.settings.ChannelUsername == "" {
		return ""
	}
	return "https://t.me/" + f.settings.ChannelUsername
}

func (f *FlowService) referralURL(userID int64) string {
	bot := strings.TrimPrefix(f.messenger.BotUsername(), "@")
	return fmt.Sprintf("https://t.me/%s?start=%s", bot, domain.ReferralPayload(userID))
}
