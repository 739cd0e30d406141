package domain

import "time"

// PendingAction is the flow a user asked for before passing the subscription gate.
type PendingAction string

const (
	PendingNone PendingAction = ""
	PendingSell PendingAction = "sell"
	PendingBuy  PendingAction = "buy"
)

// Document references a file stored by the chat transport.
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
}

// SessionData accumulates everything a user typed or attached during a flow.
type SessionData struct {
	Title     string    `json:"title,omitempty"`
	Profit    int64     `json:"profit,omitempty"`
	Marketing string    `json:"marketing,omitempty"`
	Employees string    `json:"employees,omitempty"`
	Premises  string    `json:"premises,omitempty"`
	Included  string    `json:"included,omitempty"`
	Extra     string    `json:"extra,omitempty"`
	Table     *Document `json:"table,omitempty"`
	Photos    []string  `json:"photos,omitempty"`
	Video     string    `json:"video,omitempty"`
	VideoNote string    `json:"video_note,omitempty"`
	City      string    `json:"city,omitempty"`
	Address   string    `json:"address,omitempty"`
	Price     int64     `json:"price,omitempty"`
	Category  string    `json:"category,omitempty"`

	WithAgent         bool   `json:"with_agent,omitempty"`
	Contact           string `json:"contact,omitempty"`
	Discount          bool   `json:"discount,omitempty"`
	Invited           bool   `json:"invited,omitempty"`
	WaitingForInvites bool   `json:"waiting_for_invites,omitempty"`
	TrustAgentInvites bool   `json:"trust_agent_invites,omitempty"`
	RejectedAll       bool   `json:"rejected_all,omitempty"`
	FinalizeOnContact bool   `json:"finalize_on_contact,omitempty"`
	InviteText        string `json:"invite_text,omitempty"`
	ReferralLink      string `json:"referral_link,omitempty"`
	ChannelLink       string `json:"channel_link,omitempty"`

	Budget      string `json:"budget,omitempty"`
	Experience  string `json:"experience,omitempty"`
	WhenContact string `json:"when_contact,omitempty"`

	PendingAction   PendingAction `json:"pending_action,omitempty"`
	PendingReferrer int64         `json:"pending_referrer,omitempty"`
}

// HasMedia reports whether anything was attached in the photos step.
func (d SessionData) HasMedia() bool {
	return len(d.Photos) > 0 || d.Video != "" || d.VideoNote != ""
}

// Session is the conversation state of one user.
type Session struct {
	UserID    int64       `json:"user_id"`
	State     State       `json:"state"`
	Data      SessionData `json:"data"`
	UpdatedAt time.Time   `json:"updated_at"`

	// AwaitingReason marks a moderator whose next text is a rejection reason.
	// It lives beside State so the moderator's own flow is left untouched.
	AwaitingReason bool `json:"awaiting_reason,omitempty"`
}

// NewSession returns an idle session for the user.
func NewSession(userID int64) *Session {
	return &Session{UserID: userID, State: StateIdle}
}

// Idle reports whether the user is outside of any flow.
func (s *Session) Idle() bool {
	return s == nil || s.State == StateIdle
}

// Begin enters state with all collected data cleared, gate bookkeeping included.
func (s *Session) Begin(state State) {
	s.State = state
	s.Data = SessionData{}
}
