package port

import (
	"context"
	"errors"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// ErrConflict is returned by Create methods when a uniqueness constraint rejects the row.
// The ledger tables rely on it to turn concurrent duplicate submissions into a typed error.
var ErrConflict = errors.New("unique constraint violated")

// RequestFilter narrows a request listing. Zero values mean "any".
type RequestFilter struct {
	Statuses    []string
	Department  entity.Department
	InitiatorID string
	Limit       int
	Offset      int
}

// RequestRepository defines persistence operations for KaizenRequest
type RequestRepository interface {
	Create(ctx context.Context, req *entity.KaizenRequest) error
	GetByID(ctx context.Context, id int64) (*entity.KaizenRequest, error)
	GetByCode(ctx context.Context, code string) (*entity.KaizenRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]*entity.KaizenRequest, error)

	// CountByCodePrefix counts codes starting with prefix; used for per-year sequence allocation
	CountByCodePrefix(ctx context.Context, prefix string) (int, error)

	// UpdateStatus moves the request from expected to next only if it is still at expected.
	// It reports false when no row matched. rejection is written only when non-nil.
	UpdateStatus(ctx context.Context, id int64, expected, next string, rejection *entity.Rejection) (bool, error)
}

// ManagerDecisionRepository defines persistence operations for cross-department manager decisions
type ManagerDecisionRepository interface {
	Create(ctx context.Context, d *entity.ManagerDecision) error
	GetByDepartment(ctx context.Context, requestID int64, dept entity.Department) (*entity.ManagerDecision, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.ManagerDecision, error)
}

// HodDecisionRepository defines persistence operations for own and cross HOD decisions
type HodDecisionRepository interface {
	Create(ctx context.Context, d *entity.HodDecision) error
	GetByDepartment(ctx context.Context, requestID int64, dept entity.Department, stage entity.HodStageType) (*entity.HodDecision, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.HodDecision, error)
}

// ExecutiveDecisionRepository defines persistence operations for AGM and GM decisions
type ExecutiveDecisionRepository interface {
	Create(ctx context.Context, d *entity.ExecutiveDecision) error
	GetByLevel(ctx context.Context, requestID int64, level entity.ExecutiveLevel) (*entity.ExecutiveDecision, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.ExecutiveDecision, error)
}

// EvaluationRepository defines persistence operations for department evaluations
type EvaluationRepository interface {
	Create(ctx context.Context, e *entity.DepartmentEvaluation) error
	Get(ctx context.Context, requestID int64, dept entity.Department, role entity.EvaluatorRole) (*entity.DepartmentEvaluation, error)
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.DepartmentEvaluation, error)
}

// AuditRepository is the append-only audit log
type AuditRepository interface {
	Append(ctx context.Context, evt *entity.AuditEvent) error
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.AuditEvent, error)
}

// SettingsRepository stores settings documents as JSON keyed by setting name.
// Get returns nil when the key is absent.
type SettingsRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, updatedBy string) error
}

// TransactionManager handles database transactions.
// Repositories called with the ctx passed to fn join the transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
