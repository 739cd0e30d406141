package domain

import (
	"strconv"
	"strings"
)

// Button payloads carried by inline keyboards.
const (
	ActionStartSell     = "start:sell"
	ActionStartBuy      = "start:buy"
	ActionCheckSub      = "check_sub"
	ActionInfoReady     = "info:ready"
	ActionBack          = "nav:back"
	ActionRestart       = "nav:restart"
	ActionSkipCurrent   = "sell:skip_current"
	ActionSkipTable     = "sell:skip_table"
	ActionPhotosDone    = "sell:photos_done"
	ActionPreviewOK     = "preview:confirm"
	ActionPreviewCancel = "preview:cancel"
	ActionAgreeAgent    = "sell:agree_agent"
	ActionNoAgent       = "sell:no_agent"
	ActionAgentInvite   = "agent:will_invite"
	ActionAgentNoDisc   = "agent:no_discount"
	ActionNoAgentInvite = "noagent:will_invite"
	ActionNoAgentReject = "noagent:decline"
	ActionInviteCopy    = "invite:copy"
	ActionInviteSent    = "invite:sent"

	sellCategoryPrefix = "cat:"
	buyCategoryPrefix  = "buycat:"
	publishPrefix      = "mod:publish:"
	rejectPrefix       = "mod:reject:"
	referralPrefix     = "ref_"
)

// SellCategoryAction is the payload of a category button in the sell flow.
func SellCategoryAction(key string) string { return sellCategoryPrefix + key }

// BuyCategoryAction is the payload of a category button in the buy flow.
func BuyCategoryAction(key string) string { return buyCategoryPrefix + key }

// PublishAction is the payload of the moderator publish button.
func PublishAction(id string) string { return publishPrefix + id }

// RejectAction is the payload of the moderator reject button.
func RejectAction(id string) string { return rejectPrefix + id }

// ParseSellCategory extracts a category key from a sell payload.
func ParseSellCategory(data string) (string, bool) {
	return strings.CutPrefix(data, sellCategoryPrefix)
}

// ParseBuyCategory extracts a category key from a buy payload.
func ParseBuyCategory(data string) (string, bool) {
	return strings.CutPrefix(data, buyCategoryPrefix)
}

// ParsePublish extracts a submission id from a publish payload.
func ParsePublish(data string) (string, bool) {
	id, ok := strings.CutPrefix(data, publishPrefix)
	return id, ok && id != ""
}

// ParseReject extracts a submission id from a reject payload.
func ParseReject(data string) (string, bool) {
	id, ok := strings.CutPrefix(data, rejectPrefix)
	return id, ok && id != ""
}

// ReferralPayload is the /start argument that credits an inviter.
func ReferralPayload(inviterID int64) string {
	return referralPrefix + strconv.FormatInt(inviterID, 10)
}

// ParseReferral extracts the inviter id from a /start argument.
func ParseReferral(arg string) (int64, bool) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(arg), referralPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
