package entity

import "time"

// Decision is the verdict rendered at a Manager or HOD stage
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// IsValid returns true for APPROVED and REJECTED
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// HodStageType distinguishes the own-department HOD sign-off from the cross-department round
type HodStageType string

const (
	HodStageOwn   HodStageType = "OWN_HOD"
	HodStageCross HodStageType = "CROSS_HOD"
)

// ExecutiveLevel is the escalation tier of an executive decision
type ExecutiveLevel string

const (
	ExecutiveAGM ExecutiveLevel = "AGM"
	ExecutiveGM  ExecutiveLevel = "GM"
)

// DepartmentVerdict is the projection of a ledger entry used for quorum checks
type DepartmentVerdict struct {
	Department Department
	Decision   Decision
}

// ManagerDecision is a cross-department Manager ledger entry.
// At most one exists per (request, department).
type ManagerDecision struct {
	ID            int64      `json:"id"`
	RequestID     int64      `json:"request_id"`
	ManagerUserID string     `json:"manager_user_id"`
	Department    Department `json:"department"`
	Decision      Decision   `json:"decision"`
	Remarks       string     `json:"remarks,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Verdict projects the entry for quorum evaluation
func (m *ManagerDecision) Verdict() DepartmentVerdict {
	return DepartmentVerdict{Department: m.Department, Decision: m.Decision}
}

// HodDecision is an HOD ledger entry at either the own or the cross stage.
// At most one exists per (request, department, stage type).
type HodDecision struct {
	ID         int64        `json:"id"`
	RequestID  int64        `json:"request_id"`
	HodUserID  string       `json:"hod_user_id"`
	Department Department   `json:"department"`
	Decision   Decision     `json:"decision"`
	Remarks    string       `json:"remarks,omitempty"`
	StageType  HodStageType `json:"stage_type"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Verdict projects the entry for quorum evaluation
func (h *HodDecision) Verdict() DepartmentVerdict {
	return DepartmentVerdict{Department: h.Department, Decision: h.Decision}
}

// ExecutiveDecision is an AGM or GM ledger entry
type ExecutiveDecision struct {
	ID                int64          `json:"id"`
	RequestID         int64          `json:"request_id"`
	Level             ExecutiveLevel `json:"level"`
	ApprovedBy        string         `json:"approved_by"`
	Approved          bool           `json:"approved"`
	Comments          string         `json:"comments,omitempty"`
	CostJustification string         `json:"cost_justification,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Ledger is the full set of decision records for one request
type Ledger struct {
	Managers   []*ManagerDecision   `json:"managers"`
	Hods       []*HodDecision       `json:"hods"`
	Executives []*ExecutiveDecision `json:"executives"`
}

// ManagerVerdicts returns quorum projections of every manager entry
func (l *Ledger) ManagerVerdicts() []DepartmentVerdict {
	out := make([]DepartmentVerdict, 0, len(l.Managers))
	for _, m := range l.Managers {
		out = append(out, m.Verdict())
	}
	return out
}

// HodVerdicts returns quorum projections of HOD entries at the given stage
func (l *Ledger) HodVerdicts(stage HodStageType) []DepartmentVerdict {
	out := make([]DepartmentVerdict, 0, len(l.Hods))
	for _, h := range l.Hods {
		if h.StageType == stage {
			out = append(out, h.Verdict())
		}
	}
	return out
}

// OwnHod returns the own-department HOD decision, if recorded
func (l *Ledger) OwnHod() *HodDecision {
	for _, h := range l.Hods {
		if h.StageType == HodStageOwn {
			return h
		}
	}
	return nil
}

// Executive returns the decision at the given level, if recorded
func (l *Ledger) Executive(level ExecutiveLevel) *ExecutiveDecision {
	for _, e := range l.Executives {
		if e.Level == level {
			return e
		}
	}
	return nil
}
