package domain

// Flow identifies a top-level conversational journey.
type Flow string

const (
	FlowNone Flow = ""
	FlowSell Flow = "sell"
	FlowBuy  Flow = "buy"
)

// State is the position of a user inside a flow. Values are persisted, never parsed.
type State string

const (
	StateIdle State = ""

	StateSellTitle        State = "sell.title"
	StateSellProfit       State = "sell.profit"
	StateSellMarketing    State = "sell.marketing"
	StateSellEmployees    State = "sell.employees"
	StateSellPremises     State = "sell.premises"
	StateSellIncluded     State = "sell.included"
	StateSellExtra        State = "sell.extra"
	StateSellTable        State = "sell.table"
	StateSellPhotos       State = "sell.photos"
	StateSellCity         State = "sell.city"
	StateSellAddress      State = "sell.address"
	StateSellPrice        State = "sell.price"
	StateSellCategory     State = "sell.category"
	StateSellPreview      State = "sell.preview"
	StateSellAgentConfirm State = "sell.agent_confirm"
	StateSellContact      State = "sell.contact"
	StateSellOffer        State = "sell.offer"
	StateSellInvites      State = "sell.invites"

	StateBuyBudget      State = "buy.budget"
	StateBuyCity        State = "buy.city"
	StateBuyCategory    State = "buy.category"
	StateBuyExperience  State = "buy.experience"
	StateBuyPhone       State = "buy.phone"
	StateBuyWhenContact State = "buy.when_contact"
)

var stateFlows = map[State]Flow{
	StateSellTitle:        FlowSell,
	StateSellProfit:       FlowSell,
	StateSellMarketing:    FlowSell,
	StateSellEmployees:    FlowSell,
	StateSellPremises:     FlowSell,
	StateSellIncluded:     FlowSell,
	StateSellExtra:        FlowSell,
	StateSellTable:        FlowSell,
	StateSellPhotos:       FlowSell,
	StateSellCity:         FlowSell,
	StateSellAddress:      FlowSell,
	StateSellPrice:        FlowSell,
	StateSellCategory:     FlowSell,
	StateSellPreview:      FlowSell,
	StateSellAgentConfirm: FlowSell,
	StateSellContact:      FlowSell,
	StateSellOffer:        FlowSell,
	StateSellInvites:      FlowSell,

	StateBuyBudget:      FlowBuy,
	StateBuyCity:        FlowBuy,
	StateBuyCategory:    FlowBuy,
	StateBuyExperience:  FlowBuy,
	StateBuyPhone:       FlowBuy,
	StateBuyWhenContact: FlowBuy,
}

// predecessors drives the "back" navigation. States without an entry cannot go back.
var predecessors = map[State]State{
	StateSellProfit:       StateSellTitle,
	StateSellMarketing:    StateSellProfit,
	StateSellEmployees:    StateSellMarketing,
	StateSellPremises:     StateSellEmployees,
	StateSellIncluded:     StateSellPremises,
	StateSellExtra:        StateSellIncluded,
	StateSellTable:        StateSellExtra,
	StateSellPhotos:       StateSellTable,
	StateSellCity:         StateSellPhotos,
	StateSellAddress:      StateSellCity,
	StateSellPrice:        StateSellAddress,
	StateSellCategory:     StateSellPrice,
	StateSellPreview:      StateSellCategory,
	StateSellAgentConfirm: StateSellPreview,
	StateSellContact:      StateSellAgentConfirm,

	StateBuyCity:        StateBuyBudget,
	StateBuyCategory:    StateBuyCity,
	StateBuyExperience:  StateBuyCategory,
	StateBuyPhone:       StateBuyExperience,
	StateBuyWhenContact: StateBuyPhone,
}

// Flow returns the journey the state belongs to.
func (s State) Flow() Flow {
	return stateFlows[s]
}

// Known reports whether the state is part of the state machine.
func (s State) Known() bool {
	if s == StateIdle {
		return true
	}
	_, ok := stateFlows[s]
	return ok
}

// Previous returns the state "back" leads to.
func (s State) Previous() (State, bool) {
	prev, ok := predecessors[s]
	return prev, ok
}

// InFlow reports whether the user is inside a sell or buy journey.
func (s State) InFlow() bool {
	f := s.Flow()
	return f == FlowSell || f == FlowBuy
}
