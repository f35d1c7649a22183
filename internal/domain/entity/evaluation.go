package entity

import "time"

// Answer is a Yes/No questionnaire response
type Answer string

const (
	AnswerYes Answer = "YES"
	AnswerNo  Answer = "NO"
)

// IsValid returns true for YES and NO
func (a Answer) IsValid() bool {
	return a == AnswerYes || a == AnswerNo
}

// RiskLevel grades the risk attached to one answer
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// IsValid returns true for LOW, MEDIUM and HIGH
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// EvaluatorRole is the role a department evaluation was submitted under
type EvaluatorRole string

const (
	EvaluatorManager EvaluatorRole = "MANAGER"
	EvaluatorHOD     EvaluatorRole = "HOD"
)

// Question is one entry of a department questionnaire
type Question struct {
	Key      string `json:"key" yaml:"key"`
	Text     string `json:"text" yaml:"text"`
	Required bool   `json:"required" yaml:"required"`
}

// EvaluationAnswer is the response to a single question
type EvaluationAnswer struct {
	QuestionKey string    `json:"question_key"`
	Answer      Answer    `json:"answer"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Remarks     string    `json:"remarks"`
}

// DepartmentEvaluation is the structured questionnaire a cross-department Manager or HOD
// completes before deciding. One exists per (request, department, evaluator role).
type DepartmentEvaluation struct {
	ID              int64              `json:"id"`
	RequestID       int64              `json:"request_id"`
	Department      Department         `json:"department"`
	EvaluatorUserID string             `json:"evaluator_user_id"`
	EvaluatorRole   EvaluatorRole      `json:"evaluator_role"`
	Answers         []EvaluationAnswer `json:"answers"`
	Decision        Decision           `json:"decision"`
	Remarks         string             `json:"remarks,omitempty"`
	OverallRisk     RiskLevel          `json:"overall_risk"`
	CreatedAt       time.Time          `json:"created_at"`
}

// CalculateOverallRisk grades an answer set: any HIGH wins, two or more MEDIUM give MEDIUM
func CalculateOverallRisk(answers []EvaluationAnswer) RiskLevel {
	medium := 0
	for _, a := range answers {
		switch a.RiskLevel {
		case RiskHigh:
			return RiskHigh
		case RiskMedium:
			medium++
		}
	}
	if medium >= 2 {
		return RiskMedium
	}
	return RiskLow
}
