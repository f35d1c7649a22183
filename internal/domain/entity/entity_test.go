package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrossDepartments(t *testing.T) {
	cross := CrossDepartments(DepartmentProduction)

	assert.Len(t, cross, 4)
	assert.NotContains(t, cross, DepartmentProduction)
	assert.Equal(t, []Department{DepartmentMaintenance, DepartmentAssembly, DepartmentAdmin, DepartmentAccounts}, cross)
}

func TestDepartment_IsValid(t *testing.T) {
	assert.True(t, DepartmentAccounts.IsValid())
	assert.False(t, Department("QUALITY").IsValid())
	assert.Equal(t, "Maintenance", DepartmentMaintenance.DisplayName())
	assert.Equal(t, "QUALITY", Department("QUALITY").DisplayName())
}

func TestFormatRequestCode(t *testing.T) {
	tests := []struct {
		year, seq int
		want      string
	}{
		{2025, 4, "KZ-2025-004"},
		{2025, 42, "KZ-2025-042"},
		{2026, 1234, "KZ-2026-1234"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRequestCode(tt.year, tt.seq))
		})
	}
	assert.Equal(t, "KZ-2025-", RequestCodePrefix(2025))
}

func TestCalculateOverallRisk(t *testing.T) {
	tests := []struct {
		name  string
		risks []RiskLevel
		want  RiskLevel
	}{
		{"empty", nil, RiskLow},
		{"all low", []RiskLevel{RiskLow, RiskLow}, RiskLow},
		{"single medium", []RiskLevel{RiskLow, RiskMedium}, RiskLow},
		{"two medium", []RiskLevel{RiskMedium, RiskLow, RiskMedium}, RiskMedium},
		{"any high", []RiskLevel{RiskLow, RiskHigh}, RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answers := make([]EvaluationAnswer, 0, len(tt.risks))
			for i, r := range tt.risks {
				answers = append(answers, EvaluationAnswer{QuestionKey: string(rune('a' + i)), Answer: AnswerYes, RiskLevel: r})
			}
			assert.Equal(t, tt.want, CalculateOverallRisk(answers))
		})
	}
}

func TestCostThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultCostThresholds().Validate())
	assert.Error(t, CostThresholds{HodLimit: 200, AgmLimit: 100}.Validate())
	assert.Error(t, CostThresholds{HodLimit: -1, AgmLimit: 100}.Validate())
	assert.NoError(t, CostThresholds{HodLimit: 100, AgmLimit: 100}.Validate())
}

func TestSLASettings_Validate(t *testing.T) {
	assert.NoError(t, DefaultSLASettings().Validate())
	assert.Error(t, SLASettings{OwnHodReviewHours: 0, CrossHodReviewHours: 1, AgmReviewHours: 1, GmReviewHours: 1}.Validate())
}

func TestLedger_Projections(t *testing.T) {
	ledger := &Ledger{
		Managers: []*ManagerDecision{
			{Department: DepartmentAdmin, Decision: DecisionApproved},
		},
		Hods: []*HodDecision{
			{Department: DepartmentProduction, Decision: DecisionApproved, StageType: HodStageOwn},
			{Department: DepartmentAdmin, Decision: DecisionApproved, StageType: HodStageCross},
		},
		Executives: []*ExecutiveDecision{
			{Level: ExecutiveAGM, Approved: true},
		},
	}

	assert.Equal(t, []DepartmentVerdict{{DepartmentAdmin, DecisionApproved}}, ledger.ManagerVerdicts())
	assert.Equal(t, []DepartmentVerdict{{DepartmentAdmin, DecisionApproved}}, ledger.HodVerdicts(HodStageCross))
	assert.Equal(t, DepartmentProduction, ledger.OwnHod().Department)
	assert.NotNil(t, ledger.Executive(ExecutiveAGM))
	assert.Nil(t, ledger.Executive(ExecutiveGM))
}
