package workflow

import (
	"context"

	domainwf "github.com/kaizenflow/kaizen-approvals/internal/domain/workflow"
)

// Guards are the predicates the transition table consults. They close over a
// ledger snapshot taken inside the transaction, after the new decision is recorded.
type Guards struct {
	// QuorumMet reports that every cross department has approved at the current stage
	QuorumMet domainwf.GuardFunc
	// Escalate reports that the routing resolver sent the request to the AGM
	Escalate domainwf.GuardFunc
}

func never(context.Context) bool { return false }

// BuildKaizenStateMachine creates a state machine holding the complete Kaizen transition table.
// Nil guards never pass.
func BuildKaizenStateMachine(initialState domainwf.State, g Guards) domainwf.StateMachine {
	quorumMet := g.QuorumMet
	if quorumMet == nil {
		quorumMet = never
	}
	escalate := g.Escalate
	if escalate == nil {
		escalate = never
	}
	quorumAndEscalate := func(ctx context.Context) bool {
		return quorumMet(ctx) && escalate(ctx)
	}

	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StatePendingOwnHod)

	builder.Configure(domainwf.StatePendingOwnHod).
		Permit(domainwf.TriggerApprove, domainwf.StatePendingCrossManager).
		Permit(domainwf.TriggerReject, domainwf.StateOwnHodRejected)

	// a single cross-department rejection halts the stage
	builder.Configure(domainwf.StatePendingCrossManager).
		PermitIf(domainwf.TriggerApprove, domainwf.StatePendingCrossHod, quorumMet).
		Permit(domainwf.TriggerApprove, domainwf.StatePendingCrossManager).
		Permit(domainwf.TriggerReject, domainwf.StateManagerRejected)

	builder.Configure(domainwf.StatePendingCrossHod).
		PermitIf(domainwf.TriggerApprove, domainwf.StatePendingAGM, quorumAndEscalate).
		PermitIf(domainwf.TriggerApprove, domainwf.StateApproved, quorumMet).
		Permit(domainwf.TriggerApprove, domainwf.StatePendingCrossHod).
		Permit(domainwf.TriggerReject, domainwf.StateCrossHodRejected)

	// AGM approval always forwards to GM
	builder.Configure(domainwf.StatePendingAGM).
		Permit(domainwf.TriggerApprove, domainwf.StatePendingGM).
		Permit(domainwf.TriggerReject, domainwf.StateAGMRejected)

	builder.Configure(domainwf.StatePendingGM).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	return builder.Build(initialState)
}
