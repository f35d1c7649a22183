package workflow

// State represents a Kaizen request status in the approval lifecycle
type State string

const (
	StateDraft               State = "DRAFT"
	StatePendingOwnHod       State = "PENDING_OWN_HOD"
	StateOwnHodRejected      State = "OWN_HOD_REJECTED"
	StatePendingCrossManager State = "PENDING_CROSS_MANAGER"
	StateManagerRejected     State = "MANAGER_REJECTED"
	StatePendingCrossHod     State = "PENDING_CROSS_HOD"
	StateCrossHodRejected    State = "CROSS_HOD_REJECTED"
	StatePendingAGM          State = "PENDING_AGM"
	StateAGMRejected         State = "AGM_REJECTED"
	StatePendingGM           State = "PENDING_GM"
	StateApproved            State = "APPROVED"
	StateRejected            State = "REJECTED"
)

// InitialState is the status a request receives when it is submitted for approval
const InitialState = StatePendingOwnHod

var validStates = map[State]bool{
	StateDraft:               true,
	StatePendingOwnHod:       true,
	StateOwnHodRejected:      true,
	StatePendingCrossManager: true,
	StateManagerRejected:     true,
	StatePendingCrossHod:     true,
	StateCrossHodRejected:    true,
	StatePendingAGM:          true,
	StateAGMRejected:         true,
	StatePendingGM:           true,
	StateApproved:            true,
	StateRejected:            true,
}

var terminalStates = map[State]bool{
	StateOwnHodRejected:   true,
	StateManagerRejected:  true,
	StateCrossHodRejected: true,
	StateAGMRejected:      true,
	StateApproved:         true,
	StateRejected:         true,
}

var rejectedStates = map[State]bool{
	StateOwnHodRejected:   true,
	StateManagerRejected:  true,
	StateCrossHodRejected: true,
	StateAGMRejected:      true,
	StateRejected:         true,
}

// AllStates returns every state in lifecycle order
func AllStates() []State {
	return []State{
		StateDraft,
		StatePendingOwnHod,
		StateOwnHodRejected,
		StatePendingCrossManager,
		StateManagerRejected,
		StatePendingCrossHod,
		StateCrossHodRejected,
		StatePendingAGM,
		StateAGMRejected,
		StatePendingGM,
		StateApproved,
		StateRejected,
	}
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsRejected returns true for every member of the rejected family
func (s State) IsRejected() bool {
	return rejectedStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// Stage identifies the approval stage a request is waiting on
type Stage string

const (
	StageDraft        Stage = "DRAFT"
	StageOwnHod       Stage = "OWN_HOD"
	StageCrossManager Stage = "CROSS_MANAGER"
	StageCrossHod     Stage = "CROSS_HOD"
	StageAGM          Stage = "AGM"
	StageGM           Stage = "GM"
	StageCompleted    Stage = "COMPLETED"
)

// Stage maps a state to the stage it represents. Terminal states are COMPLETED.
func (s State) Stage() Stage {
	switch s {
	case StateDraft:
		return StageDraft
	case StatePendingOwnHod:
		return StageOwnHod
	case StatePendingCrossManager:
		return StageCrossManager
	case StatePendingCrossHod:
		return StageCrossHod
	case StatePendingAGM:
		return StageAGM
	case StatePendingGM:
		return StageGM
	default:
		return StageCompleted
	}
}
