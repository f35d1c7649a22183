package approval

import (
	"fmt"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// ValidateEvaluation checks a questionnaire submission against the department's questions.
// Checks run in a fixed order so callers always see the first problem:
// missing questionnaire, duplicate keys, foreign keys, missing required keys, count mismatch,
// per-answer value and remarks rules, then the overall decision rule.
func ValidateEvaluation(questions []entity.Question, in EvaluationInput) error {
	if len(questions) == 0 {
		return invalid("answers", "no evaluation questions are defined for this department")
	}

	defined := make(map[string]bool, len(questions))
	for _, q := range questions {
		defined[q.Key] = true
	}

	seen := make(map[string]bool, len(in.Answers))
	var duplicates, foreign []string
	for _, a := range in.Answers {
		if seen[a.QuestionKey] {
			duplicates = append(duplicates, a.QuestionKey)
			continue
		}
		seen[a.QuestionKey] = true
		if !defined[a.QuestionKey] {
			foreign = append(foreign, a.QuestionKey)
		}
	}
	if len(duplicates) > 0 {
		return invalid("answers", "duplicate question answers", duplicates...)
	}
	if len(foreign) > 0 {
		return invalid("answers", "unknown question keys", foreign...)
	}

	var missing []string
	for _, q := range questions {
		if q.Required && !seen[q.Key] {
			missing = append(missing, q.Key)
		}
	}
	if len(missing) > 0 {
		return invalid("answers", "not all required questions answered", missing...)
	}

	if len(in.Answers) != len(questions) {
		return invalid("answers", fmt.Sprintf("expected %d answers but received %d", len(questions), len(in.Answers)))
	}

	for _, a := range in.Answers {
		if !a.Answer.IsValid() {
			return invalid("answers.answer", "must be YES or NO", a.QuestionKey)
		}
		if !a.RiskLevel.IsValid() {
			return invalid("answers.risk_level", "must be LOW, MEDIUM or HIGH", a.QuestionKey)
		}
		if (a.Answer == entity.AnswerNo || a.RiskLevel == entity.RiskHigh) && blank(a.Remarks) {
			return invalid("answers.remarks", "remarks are mandatory when the answer is NO or the risk is HIGH", a.QuestionKey)
		}
	}

	return ValidateDecision(DecisionInput{Decision: in.Decision, Remarks: in.Remarks})
}
