package entity

import (
	"fmt"
	"time"
)

// DefaultCurrency is applied when a request does not name one
const DefaultCurrency = "INR"

// FeasibilityStatus records the initiator's own feasibility call
type FeasibilityStatus string

const (
	FeasibilityFeasible    FeasibilityStatus = "FEASIBLE"
	FeasibilityNotFeasible FeasibilityStatus = "NOT_FEASIBLE"
)

// KaizenRequest is the workflow subject. Status is the authoritative workflow state
// and only the workflow engine changes it after creation.
type KaizenRequest struct {
	ID                       int64             `json:"id"`
	RequestCode              string            `json:"request_code"`
	Title                    string            `json:"title"`
	StationName              string            `json:"station_name"`
	AssemblyLine             string            `json:"assembly_line,omitempty"`
	IssueDescription         string            `json:"issue_description"`
	PokaYokeDescription      string            `json:"poka_yoke_description,omitempty"`
	ReasonForImplementation  string            `json:"reason_for_implementation,omitempty"`
	Program                  string            `json:"program"`
	CustomerPartNumber       string            `json:"customer_part_number"`
	DateOfOrigination        string            `json:"date_of_origination"`
	Department               Department        `json:"department"`
	InitiatorID              string            `json:"initiator_id"`
	FeasibilityStatus        FeasibilityStatus `json:"feasibility_status,omitempty"`
	FeasibilityReason        string            `json:"feasibility_reason,omitempty"`
	ExpectedBenefits         []string          `json:"expected_benefits,omitempty"`
	EffectOfChanges          []string          `json:"effect_of_changes,omitempty"`
	CostEstimate             int64             `json:"cost_estimate"`
	CostCurrency             string            `json:"cost_currency"`
	CostJustification        string            `json:"cost_justification,omitempty"`
	SpareCostIncluded        bool              `json:"spare_cost_included"`
	RequiresProcessAddition  bool              `json:"requires_process_addition"`
	RequiresManpowerAddition bool              `json:"requires_manpower_addition"`
	Status                   string            `json:"status"`
	RejectionReason          string            `json:"rejection_reason,omitempty"`
	RejectedBy               string            `json:"rejected_by,omitempty"`
	RejectedByDepartment     Department        `json:"rejected_by_department,omitempty"`
	CreatedAt                time.Time         `json:"created_at"`
	UpdatedAt                time.Time         `json:"updated_at"`
}

// Rejection carries the fields written when a request enters a rejected state
type Rejection struct {
	Reason     string
	By         string
	Department Department
}

// IsRejected reports whether rejection data is present
func (r *KaizenRequest) IsRejected() bool {
	return r.RejectionReason != "" || r.RejectedBy != ""
}

// FormatRequestCode renders the human readable request code, e.g. KZ-2025-004
func FormatRequestCode(year, sequence int) string {
	return fmt.Sprintf("KZ-%d-%03d", year, sequence)
}

// RequestCodePrefix returns the LIKE prefix shared by all codes of a year
func RequestCodePrefix(year int) string {
	return fmt.Sprintf("KZ-%d-", year)
}
