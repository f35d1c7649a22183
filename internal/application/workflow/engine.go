package workflow

import (
	"context"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	domainwf "github.com/kaizenflow/kaizen-approvals/internal/domain/workflow"
)

// Engine drives a Kaizen request through its approval stages. Every Submit
// operation runs lookup, checks, ledger writes, quorum, routing, the status
// update and audit rows in one transaction, then publishes events after commit.
//
// Checks run in a fixed order and the first failure is returned:
// not found, stale state, authorization, duplicate submission, evaluation gate, input validation.
type Engine interface {
	// SubmitDraft moves a DRAFT request into the approval pipeline
	SubmitDraft(ctx context.Context, requestID int64, actor entity.Actor) (*TransitionResult, error)

	// SubmitOwnHodDecision records the originating department HOD's sign-off
	SubmitOwnHodDecision(ctx context.Context, requestID int64, actor entity.Actor, in approval.DecisionInput) (*TransitionResult, error)

	// SubmitManagerDecision records a cross-department manager decision
	SubmitManagerDecision(ctx context.Context, requestID int64, actor entity.Actor, in approval.DecisionInput) (*TransitionResult, error)

	// SubmitCrossHodDecision records a cross-department HOD decision
	SubmitCrossHodDecision(ctx context.Context, requestID int64, actor entity.Actor, in approval.DecisionInput) (*TransitionResult, error)

	// SubmitEvaluation records a department questionnaire and the decision it carries.
	// The actor's role selects the stage: MANAGER for cross-manager, HOD for cross-HOD.
	SubmitEvaluation(ctx context.Context, requestID int64, actor entity.Actor, in approval.EvaluationInput) (*TransitionResult, error)

	// SubmitAgmDecision records the AGM decision on an escalated request
	SubmitAgmDecision(ctx context.Context, requestID int64, actor entity.Actor, in approval.ExecutiveInput) (*TransitionResult, error)

	// SubmitGmDecision records the final GM decision
	SubmitGmDecision(ctx context.Context, requestID int64, actor entity.Actor, in approval.ExecutiveInput) (*TransitionResult, error)

	// GetCurrentState returns the persisted status of a request
	GetCurrentState(ctx context.Context, requestID int64) (domainwf.State, error)
}

// TransitionResult describes what an accepted submission did
type TransitionResult struct {
	RequestID     int64               `json:"request_id"`
	RequestCode   string              `json:"request_code"`
	PreviousState domainwf.State      `json:"previous_state"`
	NewState      domainwf.State      `json:"new_state"`
	QuorumMet     bool                `json:"quorum_met"`
	Pending       []entity.Department `json:"pending_departments,omitempty"`
	Route         *approval.Route     `json:"route,omitempty"`
}

// Changed reports whether the request left its previous state
func (r *TransitionResult) Changed() bool {
	return r.PreviousState != r.NewState
}
