package approval

import (
	"strings"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// DecisionInput is the Manager/HOD decision contract
type DecisionInput struct {
	Decision entity.Decision `json:"decision"`
	Remarks  string          `json:"remarks,omitempty"`
}

// ExecutiveInput is the AGM/GM decision contract
type ExecutiveInput struct {
	Approved          bool   `json:"approved"`
	Comments          string `json:"comments,omitempty"`
	CostJustification string `json:"cost_justification,omitempty"`
}

// EvaluationInput is the questionnaire submission contract
type EvaluationInput struct {
	Answers  []entity.EvaluationAnswer `json:"answers"`
	Decision entity.Decision           `json:"decision"`
	Remarks  string                    `json:"remarks,omitempty"`
}

// ValidateDecision requires a known verdict, and remarks whenever it is REJECTED
func ValidateDecision(in DecisionInput) error {
	if !in.Decision.IsValid() {
		return invalid("decision", "must be APPROVED or REJECTED")
	}
	if in.Decision == entity.DecisionRejected && blank(in.Remarks) {
		return invalid("remarks", "remarks are mandatory for rejection")
	}
	return nil
}

// ValidateExecutive requires comments when the executive does not approve
func ValidateExecutive(in ExecutiveInput) error {
	if !in.Approved && blank(in.Comments) {
		return invalid("comments", "comments are mandatory for rejection")
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
