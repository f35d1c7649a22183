package approval

import (
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/workflow"
)

// RouteReason explains which routing rule matched
type RouteReason string

const (
	ReasonCostAboveAgmLimit RouteReason = "COST_ABOVE_AGM_LIMIT"
	ReasonResourceAddition  RouteReason = "RESOURCE_ADDITION"
	ReasonCostAboveHodLimit RouteReason = "COST_ABOVE_HOD_LIMIT"
	ReasonWithinHodLimit    RouteReason = "WITHIN_HOD_LIMIT"
)

// Route is the outcome of cost-based routing once the cross-HOD quorum is met
type Route struct {
	Target workflow.State `json:"target"`
	Reason RouteReason    `json:"reason"`
}

// Escalates reports whether the route sends the request to the AGM
func (r Route) Escalates() bool {
	return r.Target == workflow.StatePendingAGM
}

// RoutingInput is the part of a request the resolver looks at
type RoutingInput struct {
	CostEstimate             int64
	RequiresProcessAddition  bool
	RequiresManpowerAddition bool
}

// RoutingInputFor extracts routing input from a request
func RoutingInputFor(req *entity.KaizenRequest) RoutingInput {
	return RoutingInput{
		CostEstimate:             req.CostEstimate,
		RequiresProcessAddition:  req.RequiresProcessAddition,
		RequiresManpowerAddition: req.RequiresManpowerAddition,
	}
}

// Resolve picks the post-quorum destination. Rules are evaluated in order, first match wins.
// Every escalation lands on PENDING_AGM; AGM approval always forwards to GM.
func Resolve(in RoutingInput, thresholds entity.CostThresholds) Route {
	switch {
	case in.CostEstimate > thresholds.AgmLimit:
		return Route{Target: workflow.StatePendingAGM, Reason: ReasonCostAboveAgmLimit}
	case in.RequiresProcessAddition || in.RequiresManpowerAddition:
		return Route{Target: workflow.StatePendingAGM, Reason: ReasonResourceAddition}
	case in.CostEstimate > thresholds.HodLimit:
		return Route{Target: workflow.StatePendingAGM, Reason: ReasonCostAboveHodLimit}
	default:
		return Route{Target: workflow.StateApproved, Reason: ReasonWithinHodLimit}
	}
}
