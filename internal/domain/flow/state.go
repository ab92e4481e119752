package flow

// State represents a phase in a requester's reimbursement conversation
type State string

const (
	StateAwaitingReceipt State = "AWAITING_RECEIPT"
	StateGatheringInfo   State = "GATHERING_INFO"
	StateComplete        State = "COMPLETE"
)

var validStates = map[State]bool{
	StateAwaitingReceipt: true,
	StateGatheringInfo:   true,
	StateComplete:        true,
}

var terminalStates = map[State]bool{
	StateComplete: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid conversation phase
func (s State) IsValid() bool {
	return validStates[s]
}
