package domain

// InboundKind classifies events entering the flow controller.
type InboundKind string

const (
	InboundCommand   InboundKind = "command"
	InboundCallback  InboundKind = "callback"
	InboundText      InboundKind = "text"
	InboundPhoto     InboundKind = "photo"
	InboundVideo     InboundKind = "video"
	InboundVideoNote InboundKind = "video_note"
	InboundDocument  InboundKind = "document"

	// InboundReferralThreshold is raised internally when an inviter reaches the invite threshold.
	InboundReferralThreshold InboundKind = "referral_threshold"
)

// Inbound is a transport-neutral user event.
type Inbound struct {
	Kind      InboundKind
	UserID    int64
	ChatID    int64
	MessageID int

	Command string
	Args    string

	CallbackID string
	Data       string

	Text     string
	FileID   string
	FileName string

	InviteCount int
}

// LaneKey is the identity whose events must be processed serially.
func (in Inbound) LaneKey() int64 {
	return in.UserID
}
