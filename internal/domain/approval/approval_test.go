package approval

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/workflow"
)

func approvedBy(depts ...entity.Department) []entity.DepartmentVerdict {
	out := make([]entity.DepartmentVerdict, 0, len(depts))
	for _, d := range depts {
		out = append(out, entity.DepartmentVerdict{Department: d, Decision: entity.DecisionApproved})
	}
	return out
}

func permutations(in []entity.DepartmentVerdict) [][]entity.DepartmentVerdict {
	if len(in) <= 1 {
		return [][]entity.DepartmentVerdict{append([]entity.DepartmentVerdict{}, in...)}
	}
	var out [][]entity.DepartmentVerdict
	for i := range in {
		rest := make([]entity.DepartmentVerdict, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]entity.DepartmentVerdict{in[i]}, p...))
		}
	}
	return out
}

func TestIsComplete(t *testing.T) {
	all := entity.AllDepartments()
	own := entity.DepartmentProduction

	tests := []struct {
		name    string
		entries []entity.DepartmentVerdict
		want    bool
	}{
		{"no entries", nil, false},
		{"three of four", approvedBy(entity.DepartmentMaintenance, entity.DepartmentAssembly, entity.DepartmentAdmin), false},
		{"all four cross", approvedBy(entity.DepartmentMaintenance, entity.DepartmentAssembly, entity.DepartmentAdmin, entity.DepartmentAccounts), true},
		{"own department does not count", approvedBy(entity.DepartmentProduction, entity.DepartmentAssembly, entity.DepartmentAdmin, entity.DepartmentAccounts), false},
		{
			"rejection does not count",
			append(approvedBy(entity.DepartmentMaintenance, entity.DepartmentAssembly, entity.DepartmentAdmin),
				entity.DepartmentVerdict{Department: entity.DepartmentAccounts, Decision: entity.DecisionRejected}),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsComplete(all, own, tt.entries))
		})
	}
}

func TestIsComplete_OrderIndependent(t *testing.T) {
	all := entity.AllDepartments()
	own := entity.DepartmentAssembly
	cross := approvedBy(entity.CrossDepartments(own)...)

	for i, p := range permutations(cross) {
		assert.True(t, IsComplete(all, own, p), "permutation %d", i)
		for cut := 0; cut < len(p); cut++ {
			assert.False(t, IsComplete(all, own, p[:cut]), "permutation %d prefix %d", i, cut)
		}
	}
}

func TestPendingDepartments(t *testing.T) {
	pending := PendingDepartments(entity.AllDepartments(), entity.DepartmentMaintenance,
		approvedBy(entity.DepartmentAdmin, entity.DepartmentProduction))

	assert.Equal(t, []entity.Department{entity.DepartmentAssembly, entity.DepartmentAccounts}, pending)
}

func TestResolve(t *testing.T) {
	thresholds := entity.DefaultCostThresholds()

	tests := []struct {
		name   string
		in     RoutingInput
		target workflow.State
		reason RouteReason
	}{
		{"KZ-2025-004 cost between limits", RoutingInput{CostEstimate: 85000}, workflow.StatePendingAGM, ReasonCostAboveHodLimit},
		{"low cost approves directly", RoutingInput{CostEstimate: 25000}, workflow.StateApproved, ReasonWithinHodLimit},
		{"process addition overrides low cost", RoutingInput{CostEstimate: 10000, RequiresProcessAddition: true}, workflow.StatePendingAGM, ReasonResourceAddition},
		{"manpower addition overrides low cost", RoutingInput{CostEstimate: 0, RequiresManpowerAddition: true}, workflow.StatePendingAGM, ReasonResourceAddition},
		{"above agm limit wins first", RoutingInput{CostEstimate: 150000, RequiresProcessAddition: true}, workflow.StatePendingAGM, ReasonCostAboveAgmLimit},
		{"exactly hod limit stays", RoutingInput{CostEstimate: 50000}, workflow.StateApproved, ReasonWithinHodLimit},
		{"exactly agm limit", RoutingInput{CostEstimate: 100000}, workflow.StatePendingAGM, ReasonCostAboveHodLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := Resolve(tt.in, thresholds)
			assert.Equal(t, tt.target, route.Target)
			assert.Equal(t, tt.reason, route.Reason)
			assert.Equal(t, tt.target == workflow.StatePendingAGM, route.Escalates())
		})
	}
}

func TestResolve_UsesInjectedThresholds(t *testing.T) {
	route := Resolve(RoutingInput{CostEstimate: 25000}, entity.CostThresholds{HodLimit: 20000, AgmLimit: 30000})
	assert.Equal(t, workflow.StatePendingAGM, route.Target)
}

func TestValidateDecision(t *testing.T) {
	assert.NoError(t, ValidateDecision(DecisionInput{Decision: entity.DecisionApproved}))
	assert.NoError(t, ValidateDecision(DecisionInput{Decision: entity.DecisionRejected, Remarks: "unsafe"}))

	err := ValidateDecision(DecisionInput{Decision: entity.DecisionRejected, Remarks: "   "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	err = ValidateDecision(DecisionInput{Decision: entity.Decision("MAYBE")})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestValidateExecutive(t *testing.T) {
	assert.NoError(t, ValidateExecutive(ExecutiveInput{Approved: true}))
	assert.NoError(t, ValidateExecutive(ExecutiveInput{Approved: false, Comments: "over budget"}))
	assert.ErrorIs(t, ValidateExecutive(ExecutiveInput{Approved: false}), ErrValidation)
}

func fullAnswers(questions []entity.Question) []entity.EvaluationAnswer {
	answers := make([]entity.EvaluationAnswer, 0, len(questions))
	for _, q := range questions {
		answers = append(answers, entity.EvaluationAnswer{
			QuestionKey: q.Key,
			Answer:      entity.AnswerYes,
			RiskLevel:   entity.RiskLow,
		})
	}
	return answers
}

func TestValidateEvaluation(t *testing.T) {
	questions := DefaultCatalog().Questions(entity.DepartmentAccounts)
	require.Len(t, questions, 3)

	tests := []struct {
		name    string
		mutate  func(in *EvaluationInput)
		field   string
		keys    []string
		wantErr bool
	}{
		{"complete approval", func(in *EvaluationInput) {}, "", nil, false},
		{
			"duplicate key",
			func(in *EvaluationInput) { in.Answers = append(in.Answers, in.Answers[0]) },
			"answers", []string{"acc.q1"}, true,
		},
		{
			"foreign key",
			func(in *EvaluationInput) { in.Answers[2].QuestionKey = "maint.q1" },
			"answers", []string{"maint.q1"}, true,
		},
		{
			"missing required key",
			func(in *EvaluationInput) { in.Answers = in.Answers[:2] },
			"answers", []string{"acc.q3"}, true,
		},
		{
			"NO without remarks",
			func(in *EvaluationInput) { in.Answers[1].Answer = entity.AnswerNo },
			"answers.remarks", []string{"acc.q2"}, true,
		},
		{
			"HIGH risk without remarks",
			func(in *EvaluationInput) { in.Answers[0].RiskLevel = entity.RiskHigh; in.Answers[0].Remarks = "  " },
			"answers.remarks", []string{"acc.q1"}, true,
		},
		{
			"NO with remarks is fine",
			func(in *EvaluationInput) { in.Answers[1].Answer = entity.AnswerNo; in.Answers[1].Remarks = "no budget line" },
			"", nil, false,
		},
		{
			"rejection without overall remarks",
			func(in *EvaluationInput) { in.Decision = entity.DecisionRejected },
			"remarks", nil, true,
		},
		{
			"unknown risk level",
			func(in *EvaluationInput) { in.Answers[0].RiskLevel = "EXTREME" },
			"answers.risk_level", []string{"acc.q1"}, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := EvaluationInput{Answers: fullAnswers(questions), Decision: entity.DecisionApproved}
			tt.mutate(&in)

			err := ValidateEvaluation(questions, in)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.keys, verr.Keys)
		})
	}
}

func TestValidateEvaluation_NoQuestionnaire(t *testing.T) {
	err := ValidateEvaluation(nil, EvaluationInput{Decision: entity.DecisionApproved})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	require.NoError(t, catalog.Validate())

	counts := map[entity.Department]int{
		entity.DepartmentMaintenance: 6,
		entity.DepartmentProduction:  5,
		entity.DepartmentAssembly:    8,
		entity.DepartmentAdmin:       2,
		entity.DepartmentAccounts:    3,
	}
	for dept, n := range counts {
		assert.Len(t, catalog.Questions(dept), n, dept)
		assert.True(t, catalog.HasQuestionnaire(dept))
	}

	delete(catalog, entity.DepartmentAdmin)
	assert.False(t, catalog.HasQuestionnaire(entity.DepartmentAdmin))

	bad := Catalog{entity.DepartmentAdmin: {{Key: "x"}, {Key: "x"}}}
	assert.Error(t, bad.Validate())
	assert.Error(t, Catalog{"QUALITY": {{Key: "q"}}}.Validate())
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{&StaleStateError{Expected: []workflow.State{workflow.StatePendingGM}, Actual: workflow.StateApproved}, ErrStaleState},
		{&AuthorizationError{Reason: "own department"}, ErrUnauthorized},
		{&DuplicateSubmissionError{Department: entity.DepartmentAdmin, Stage: workflow.StageCrossHod}, ErrDuplicateSubmission},
		{&EvaluationRequiredError{Department: entity.DepartmentAdmin, Role: entity.EvaluatorHOD}, ErrEvaluationRequired},
		{&ValidationError{Field: "remarks", Reason: "required"}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.kind.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("submit: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
			assert.NotEmpty(t, tt.err.Error())
		})
	}

	stale := &StaleStateError{
		Expected: []workflow.State{workflow.StatePendingCrossManager, workflow.StatePendingCrossHod},
		Actual:   workflow.StateApproved,
	}
	assert.Equal(t, "request is APPROVED, expected PENDING_CROSS_MANAGER or PENDING_CROSS_HOD", stale.Error())
}
