package workflow

// Trigger represents an event that can cause a state transition.
// The stage is implied by the current state, so one trigger per verdict is enough.
type Trigger string

const (
	TriggerSubmit  Trigger = "SUBMIT"
	TriggerApprove Trigger = "APPROVE"
	TriggerReject  Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
