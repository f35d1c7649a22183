package approval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/workflow"
)

// Error kinds. Every typed error below matches exactly one of these through errors.Is.
var (
	ErrRequestNotFound     = errors.New("kaizen request not found")
	ErrStaleState          = errors.New("request is not at the expected stage")
	ErrUnauthorized        = errors.New("actor is not eligible for this stage")
	ErrDuplicateSubmission = errors.New("decision already submitted")
	ErrEvaluationRequired  = errors.New("department evaluation required")
	ErrValidation          = errors.New("validation failed")
)

// StaleStateError means the request moved on (or never reached) the stage the caller targeted.
// The caller must refetch.
type StaleStateError struct {
	Expected []workflow.State
	Actual   workflow.State
}

func (e *StaleStateError) Error() string {
	expected := make([]string, 0, len(e.Expected))
	for _, s := range e.Expected {
		expected = append(expected, s.String())
	}
	return fmt.Sprintf("request is %s, expected %s", e.Actual, strings.Join(expected, " or "))
}

func (e *StaleStateError) Is(target error) bool { return target == ErrStaleState }

// AuthorizationError means the actor's role or department does not fit the stage
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + e.Reason
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

// DuplicateSubmissionError means the department already decided at this stage
type DuplicateSubmissionError struct {
	Department entity.Department
	Stage      workflow.Stage
}

func (e *DuplicateSubmissionError) Error() string {
	return fmt.Sprintf("%s has already submitted at stage %s", e.Department, e.Stage)
}

func (e *DuplicateSubmissionError) Is(target error) bool { return target == ErrDuplicateSubmission }

// EvaluationRequiredError means the department defines a questionnaire that has not been submitted
type EvaluationRequiredError struct {
	Department entity.Department
	Role       entity.EvaluatorRole
}

func (e *EvaluationRequiredError) Error() string {
	return fmt.Sprintf("%s requires a completed %s evaluation before a decision; submit the evaluation form instead", e.Department, e.Role)
}

func (e *EvaluationRequiredError) Is(target error) bool { return target == ErrEvaluationRequired }

// ValidationError reports a user-correctable input problem.
// Keys lists the offending question keys when the problem is key-related.
type ValidationError struct {
	Field  string
	Reason string
	Keys   []string
}

func (e *ValidationError) Error() string {
	if len(e.Keys) > 0 {
		return fmt.Sprintf("%s: %s [%s]", e.Field, e.Reason, strings.Join(e.Keys, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, reason string, keys ...string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Keys: keys}
}
