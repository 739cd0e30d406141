package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/listing-bot/internal/domain"
)

// waitForInvites leaves the seller in the counting invites step of the no-agent branch.
func waitForInvites(t *testing.T, h *harness) {
	t.Helper()
	h.fillToPreview(t, seller)
	h.press(t, seller, domain.ActionPreviewOK)
	h.press(t, seller, domain.ActionNoAgent)
	h.text(t, seller, "@seller")
	h.press(t, seller, domain.ActionNoAgentInvite)
	sess := h.session(t, seller)
	require.Equal(t, domain.StateSellInvites, sess.State)
	require.True(t, sess.Data.WaitingForInvites)
}

func TestReferralThresholdFinalizesWaitingListing(t *testing.T) {
	h := newHarness(t, FlowSettings{})
	waitForInvites(t, h)
	assert.Contains(t, h.msg.last(t, seller).Text, "Приглашено: 0/5")

	for invitee := int64(101); invitee <= 103; invitee++ {
		h.command(t, invitee, "start", domain.ReferralPayload(seller))
		assert.Equal(t, msgInviteeThanks, h.msg.last(t, invitee).Text)
	}
	assert.Equal(t, "✅ Ваш друг подписался на канал и нажал START!\nПриглашено: 3/5", h.msg.last(t, seller).Text)

	h.press(t, seller, domain.ActionInviteSent)
	assert.Contains(t, h.msg.last(t, seller).Text, "Пока приглашено только 3/5")
	assert.Equal(t, domain.StateSellInvites, h.session(t, seller).State)

	h.command(t, 104, "start", domain.ReferralPayload(seller))
	assert.Empty(t, h.enqueuer.take())
	h.command(t, 105, "start", domain.ReferralPayload(seller))
	h.drain(t)

	assert.True(t, h.msg.containsText(seller, "🎉 Поздравляем! Вы пригласили 5 друзей."))
	entries, err := h.queue.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Invited)
	assert.True(t, h.session(t, seller).Idle())

	// further invites never raise the milestone again
	h.command(t, 106, "start", domain.ReferralPayload(seller))
	assert.Empty(t, h.enqueuer.take())
}

func TestReferralThresholdWithoutContactAsksOnce(t *testing.T) {
	h := newHarness(t, FlowSettings{})
	require.NoError(t, h.sessions.Save(context.Background(), &domain.Session{
		UserID: seller,
		State:  domain.StateSellInvites,
		Data: domain.SessionData{
			Title: "Автомойка", Profit: 90000, Price: 900000, City: "Пермь", Category: "5",
			WaitingForInvites: true,
		},
	}))

	for invitee := int64(101); invitee <= 105; invitee++ {
		h.command(t, invitee, "start", domain.ReferralPayload(seller))
	}
	threshold := h.enqueuer.take()
	require.Len(t, threshold, 1)
	require.NoError(t, h.flow.Handle(context.Background(), threshold[0]))

	sess := h.session(t, seller)
	assert.Equal(t, domain.StateSellContact, sess.State)
	assert.True(t, sess.Data.FinalizeOnContact)
	assert.False(t, sess.Data.WaitingForInvites)
	assert.Equal(t, statePrompts["contactAgain"], h.msg.last(t, seller).Text)
	entries, err := h.queue.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	// a replayed milestone must not finalize behind the contact prompt
	require.NoError(t, h.flow.Handle(context.Background(), threshold[0]))
	assert.Equal(t, domain.StateSellContact, h.session(t, seller).State)

	h.text(t, seller, "@carwash")
	h.text(t, seller, "@carwash")
	entries, err = h.queue.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Invited)
	assert.Equal(t, "@carwash", entries[0].Data.Contact)
	assert.True(t, h.session(t, seller).Idle())
}

func TestReferralThresholdWithoutWaitingOnlyCounts(t *testing.T) {
	h := newHarness(t, FlowSettings{InviteThreshold: 2})
	h.command(t, 101, "start", domain.ReferralPayload(seller))
	h.command(t, 102, "start", domain.ReferralPayload(seller))
	h.drain(t)

	assert.False(t, h.msg.containsText(seller, "Поздравляем"))
	assert.Equal(t, "✅ Ваш друг подписался на канал и нажал START!\nПриглашено: 2/2", h.msg.last(t, seller).Text)
	entries, err := h.queue.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReferralIdempotentAndFirstWriterWins(t *testing.T) {
	h := newHarness(t, FlowSettings{})
	const other int64 = 2

	h.command(t, 101, "start", domain.ReferralPayload(seller))
	h.command(t, 101, "start", domain.ReferralPayload(seller))
	assert.Equal(t, msgAlreadyHelped, h.msg.last(t, 101).Text)
	h.command(t, 101, "start", domain.ReferralPayload(other))
	assert.Equal(t, msgAlreadyHelped, h.msg.last(t, 101).Text)

	count, err := h.ledger.Count(context.Background(), seller)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = h.ledger.Count(context.Background(), other)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReferralSelfInvite(t *testing.T) {
	h := newHarness(t, FlowSettings{})
	h.command(t, seller, "start", domain.ReferralPayload(seller))
	assert.Equal(t, msgSelfInvite, h.msg.last(t, seller).Text)

	count, err := h.ledger.Count(context.Background(), seller)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReferralParkedBehindGate(t *testing.T) {
	h := newHarness(t, FlowSettings{})
	const invitee int64 = 200
	h.msg.setStatus(invitee, "left")

	h.command(t, invitee, "start", domain.ReferralPayload(seller))
	assert.Contains(t, h.msg.last(t, invitee).Text, "Чтобы помочь другу")
	assert.Equal(t, seller, h.session(t, invitee).Data.PendingReferrer)
	count, err := h.ledger.Count(context.Background(), seller)
	require.NoError(t, err)
	assert.Zero(t, count)

	h.msg.setStatus(invitee, "member")
	h.press(t, invitee, domain.ActionCheckSub)
	assert.Equal(t, msgInviteeThanks, h.msg.last(t, invitee).Text)
	assert.Zero(t, h.session(t, invitee).Data.PendingReferrer)
	count, err = h.ledger.Count(context.Background(), seller)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReferralLinkMalformedFallsBackToWelcome(t *testing.T) {
	h := newHarness(t, FlowSettings{})
	h.command(t, 101, "start", "ref_abc")
	assert.Equal(t, msgWelcome, h.msg.last(t, 101).Text)
}
