package service

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// sellCallbacks lists the state each sell button is valid in.
var sellCallbacks = map[string][]domain.State{
	domain.ActionSkipCurrent:   {domain.StateSellMarketing, domain.StateSellExtra},
	domain.ActionSkipTable:     {domain.StateSellTable},
	domain.ActionPhotosDone:    {domain.StateSellPhotos},
	domain.ActionPreviewOK:     {domain.StateSellPreview},
	domain.ActionPreviewCancel: {domain.StateSellPreview},
	domain.ActionAgreeAgent:    {domain.StateSellAgentConfirm},
	domain.ActionNoAgent:       {domain.StateSellAgentConfirm},
	domain.ActionAgentInvite:   {domain.StateSellOffer},
	domain.ActionAgentNoDisc:   {domain.StateSellOffer},
	domain.ActionNoAgentInvite: {domain.StateSellOffer},
	domain.ActionNoAgentReject: {domain.StateSellOffer},
	domain.ActionInviteCopy:    {domain.StateSellInvites},
	domain.ActionInviteSent:    {domain.StateSellInvites},
}

func (f *FlowService) handleSellCallback(ctx context.Context, t *turn) error {
	action := t.in.Data
	states, ok := sellCallbacks[action]
	if !ok || !slices.Contains(states, t.sess.State) {
		t.toast = toastStale
		return nil
	}
	d := &t.sess.Data

	switch action {
	case domain.ActionSkipCurrent:
		if t.sess.State == domain.StateSellMarketing {
			d.Marketing = ""
			return f.advance(ctx, t, domain.StateSellEmployees, "")
		}
		d.Extra = ""
		return f.advance(ctx, t, domain.StateSellTable, "")
	case domain.ActionSkipTable:
		d.Table = nil
		return f.advance(ctx, t, domain.StateSellPhotos, "")
	case domain.ActionPhotosDone:
		return f.advance(ctx, t, domain.StateSellCity, "")
	case domain.ActionPreviewOK:
		return f.advance(ctx, t, domain.StateSellAgentConfirm, "")
	case domain.ActionPreviewCancel:
		if err := f.sessions.Delete(ctx, t.in.UserID); err != nil {
			return err
		}
		return f.reply(ctx, t.in.ChatID, msgPreviewCanceled, nil)
	case domain.ActionAgreeAgent:
		d.WithAgent = true
		return f.advance(ctx, t, domain.StateSellContact, "")
	case domain.ActionNoAgent:
		d.WithAgent = false
		return f.advance(ctx, t, domain.StateSellContact, "")
	}

	// Offer buttons are bound to the branch chosen at the agent question.
	switch action {
	case domain.ActionAgentInvite, domain.ActionAgentNoDisc:
		if !d.WithAgent {
			t.toast = toastStale
			return nil
		}
	case domain.ActionNoAgentInvite, domain.ActionNoAgentReject:
		if d.WithAgent {
			t.toast = toastStale
			return nil
		}
	}

	switch action {
	case domain.ActionAgentInvite:
		d.Discount = true
		d.Invited = true
		d.TrustAgentInvites = true
		d.WaitingForInvites = false
		return f.advance(ctx, t, domain.StateSellInvites, "")
	case domain.ActionAgentNoDisc:
		return f.finalizeOrAskContact(ctx, t, false)
	case domain.ActionNoAgentInvite:
		d.WaitingForInvites = true
		return f.advance(ctx, t, domain.StateSellInvites, "")
	case domain.ActionNoAgentReject:
		d.RejectedAll = true
		return f.finalize(ctx, t, false)
	case domain.ActionInviteCopy:
		return f.copyInvite(ctx, t)
	case domain.ActionInviteSent:
		return f.invitesSent(ctx, t)
	}
	return nil
}

func (f *FlowService) chooseSellCategory(ctx context.Context, t *turn, key string) error {
	if t.sess.State != domain.StateSellCategory {
		t.toast = toastStale
		return nil
	}
	if _, ok := domain.CategoryName(key); !ok {
		t.toast = toastStale
		return nil
	}
	t.sess.Data.Category = key
	return f.advance(ctx, t, domain.StateSellPreview, "")
}

func (f *FlowService) handleSellInput(ctx context.Context, t *turn) error {
	state := t.sess.State
	d := &t.sess.Data

	switch state {
	case domain.StateSellTable:
		if t.in.Kind != domain.InboundDocument {
			return f.reply(ctx, t.in.ChatID, msgTableNeedsFile, skipTableKeyboard())
		}
		d.Table = &domain.Document{FileID: t.in.FileID, FileName: t.in.FileName}
		return f.advance(ctx, t, domain.StateSellPhotos, msgTableAccepted)
	case domain.StateSellPhotos:
		return f.acceptMedia(ctx, t)
	}

	if t.in.Kind != domain.InboundText {
		return f.reply(ctx, t.in.ChatID, msgUseInterface, nil)
	}
	text := strings.TrimSpace(t.in.Text)

	switch state {
	case domain.StateSellProfit, domain.StateSellPrice:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			if state == domain.StateSellProfit {
				return f.reply(ctx, t.in.ChatID, msgProfitHint, nil)
			}
			return f.reply(ctx, t.in.ChatID, msgPriceHint, nil)
		}
		if state == domain.StateSellProfit {
			d.Profit = n
			return f.advance(ctx, t, domain.StateSellMarketing, "")
		}
		d.Price = n
		return f.advance(ctx, t, domain.StateSellCategory, "")
	case domain.StateSellCategory, domain.StateSellPreview, domain.StateSellAgentConfirm,
		domain.StateSellOffer, domain.StateSellInvites:
		return f.reply(ctx, t.in.ChatID, msgUseInterface, nil)
	}

	if text == "" {
		return f.reply(ctx, t.in.ChatID, msgTextHint, nil)
	}

	switch state {
	case domain.StateSellTitle:
		d.Title = text
		return f.advance(ctx, t, domain.StateSellProfit, "")
	case domain.StateSellMarketing:
		d.Marketing = text
		return f.advance(ctx, t, domain.StateSellEmployees, "")
	case domain.StateSellEmployees:
		d.Employees = text
		return f.advance(ctx, t, domain.StateSellPremises, "")
	case domain.StateSellPremises:
		d.Premises = text
		return f.advance(ctx, t, domain.StateSellIncluded, "")
	case domain.StateSellIncluded:
		d.Included = text
		return f.advance(ctx, t, domain.StateSellExtra, "")
	case domain.StateSellExtra:
		d.Extra = text
		return f.advance(ctx, t, domain.StateSellTable, "")
	case domain.StateSellCity:
		d.City = NormalizeCity(text)
		return f.advance(ctx, t, domain.StateSellAddress, "")
	case domain.StateSellAddress:
		d.Address = text
		return f.advance(ctx, t, domain.StateSellPrice, "")
	case domain.StateSellContact:
		d.Contact = text
		if d.FinalizeOnContact {
			return f.finalize(ctx, t, d.Invited)
		}
		return f.advance(ctx, t, domain.StateSellOffer, "")
	}
	return nil
}

// acceptMedia collects photos, one video and one video note without leaving the photos step.
func (f *FlowService) acceptMedia(ctx context.Context, t *turn) error {
	d := &t.sess.Data
	limit := f.settings.MaxPhotos
	var ack string

	switch t.in.Kind {
	case domain.InboundPhoto:
		switch {
		case slices.Contains(d.Photos, t.in.FileID):
			return f.reply(ctx, t.in.ChatID, msgPhotoDuplicate, nil)
		case len(d.Photos) >= limit:
			return f.reply(ctx, t.in.ChatID, photoLimit(limit), photosKeyboard())
		}
		d.Photos = append(d.Photos, t.in.FileID)
		ack = photoAccepted(len(d.Photos), limit)
	case domain.InboundVideo:
		if d.Video != "" {
			return f.reply(ctx, t.in.ChatID, msgVideoDuplicate, nil)
		}
		d.Video = t.in.FileID
		ack = msgVideoAccepted
	case domain.InboundVideoNote:
		if d.VideoNote != "" {
			return f.reply(ctx, t.in.ChatID, msgNoteDuplicate, nil)
		}
		d.VideoNote = t.in.FileID
		ack = msgNoteAccepted
	default:
		return f.reply(ctx, t.in.ChatID, photosPrompt(len(d.Photos), limit), photosKeyboard())
	}

	if err := f.save(ctx, t.sess); err != nil {
		return err
	}
	return f.reply(ctx, t.in.ChatID, ack, photosKeyboard())
}

// showPreview renders the listing back to its author with media first.
func (f *FlowService) showPreview(ctx context.Context, t *turn) error {
	d := t.sess.Data
	if err := sendListingMedia(ctx, f.messenger, t.in.ChatID, d); err != nil {
		f.logger.Warn("preview media", zap.Int64("user_id", t.in.UserID), zap.Error(err))
	}
	if d.Table != nil {
		if err := f.messenger.SendDocument(ctx, t.in.ChatID, *d.Table, "📊 Финансовая таблица"); err != nil {
			f.logger.Warn("preview table", zap.Int64("user_id", t.in.UserID), zap.Error(err))
		}
	}
	return f.reply(ctx, t.in.ChatID, RenderSellPreview(d), previewKeyboard())
}

func (f *FlowService) ensureInvite(d *domain.SessionData, userID int64) {
	if d.InviteText != "" {
		return
	}
	d.ChannelLink = f.channelURL()
	d.ReferralLink = f.referralURL(userID)
	d.InviteText = inviteText(d.ChannelLink, d.ReferralLink)
}

func (f *FlowService) showInvites(ctx context.Context, t *turn) error {
	d := &t.sess.Data
	if d.InviteText == "" {
		f.ensureInvite(d, t.in.UserID)
		if err := f.save(ctx, t.sess); err != nil {
			return err
		}
	}
	if !d.WaitingForInvites {
		return f.reply(ctx, t.in.ChatID, invitesAgent(d.InviteText, f.settings.InviteThreshold), invitesKeyboard())
	}
	count, err := f.referrals.Count(ctx, t.in.UserID)
	if err != nil {
		return err
	}
	return f.reply(ctx, t.in.ChatID, invitesCounting(d.InviteText, count, f.settings.InviteThreshold), invitesKeyboard())
}

// copyInvite resends the invite pieces as separate messages so each can be forwarded alone.
func (f *FlowService) copyInvite(ctx context.Context, t *turn) error {
	d := &t.sess.Data
	f.ensureInvite(d, t.in.UserID)
	t.toast = "📋 Ссылки отправлены"
	for _, text := range []string{"📋 Скопируйте и отправьте друзьям:", d.InviteText, d.ChannelLink, d.ReferralLink} {
		if text == "" {
			continue
		}
		if err := f.reply(ctx, t.in.ChatID, text, nil); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlowService) invitesSent(ctx context.Context, t *turn) error {
	d := &t.sess.Data
	// The agent branch takes the user's word for it; only the free branch counts invites.
	if d.TrustAgentInvites {
		d.WaitingForInvites = false
		return f.finalizeOrAskContact(ctx, t, true)
	}
	count, err := f.referrals.Count(ctx, t.in.UserID)
	if err != nil {
		return err
	}
	if count < f.settings.InviteThreshold {
		return f.reply(ctx, t.in.ChatID, invitesProgress(count, f.settings.InviteThreshold), invitesKeyboard())
	}
	d.WaitingForInvites = false
	return f.finalizeOrAskContact(ctx, t, true)
}

// finalizeOrAskContact finalizes, detouring through the contact step when no contact is known.
func (f *FlowService) finalizeOrAskContact(ctx context.Context, t *turn, invited bool) error {
	d := &t.sess.Data
	if strings.TrimSpace(d.Contact) != "" {
		return f.finalize(ctx, t, invited)
	}
	d.Invited = invited
	d.FinalizeOnContact = true
	return f.advance(ctx, t, domain.StateSellContact, "")
}

func (f *FlowService) finalize(ctx context.Context, t *turn, invited bool) error {
	if _, err := f.finalizer.Finalize(ctx, t.sess, invited); err != nil {
		return &notifiedError{err: err}
	}
	return nil
}
