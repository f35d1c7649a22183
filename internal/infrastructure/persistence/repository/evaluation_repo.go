package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/persistence/sqlite"
)

// EvaluationRepository implements port.EvaluationRepository.
// Answers are stored as a JSON array alongside the evaluation row.
type EvaluationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *sql.DB, logger *zap.Logger) port.EvaluationRepository {
	return &EvaluationRepository{db: db, logger: logger}
}

// Create stores a department evaluation
func (r *EvaluationRepository) Create(ctx context.Context, e *entity.DepartmentEvaluation) error {
	answers, err := json.Marshal(e.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO department_evaluations (
			request_id, department, evaluator_user_id, evaluator_role,
			answers, decision, remarks, overall_risk, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		e.RequestID,
		e.Department,
		e.EvaluatorUserID,
		e.EvaluatorRole,
		string(answers),
		e.Decision,
		nullString(e.Remarks),
		e.OverallRisk,
		e.CreatedAt,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%s evaluation %s: %w", e.EvaluatorRole, e.Department, port.ErrConflict)
		}
		r.logger.Error("Failed to create evaluation", zap.Int64("request_id", e.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create evaluation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// Get returns the evaluation a department submitted under role, nil if none
func (r *EvaluationRepository) Get(ctx context.Context, requestID int64, dept entity.Department, role entity.EvaluatorRole) (*entity.DepartmentEvaluation, error) {
	query := `
		SELECT id, request_id, department, evaluator_user_id, evaluator_role,
			answers, decision, remarks, overall_risk, created_at
		FROM department_evaluations
		WHERE request_id = ? AND department = ? AND evaluator_role = ?
	`

	e, err := scanEvaluation(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, requestID, dept, role))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get evaluation", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return e, nil
}

// ListByRequest returns every evaluation for the request
func (r *EvaluationRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.DepartmentEvaluation, error) {
	query := `
		SELECT id, request_id, department, evaluator_user_id, evaluator_role,
			answers, decision, remarks, overall_risk, created_at
		FROM department_evaluations
		WHERE request_id = ?
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list evaluations", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var out []*entity.DepartmentEvaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEvaluation(row rowScanner) (*entity.DepartmentEvaluation, error) {
	var e entity.DepartmentEvaluation
	var answers string
	var remarks sql.NullString

	err := row.Scan(
		&e.ID, &e.RequestID, &e.Department, &e.EvaluatorUserID, &e.EvaluatorRole,
		&answers, &e.Decision, &remarks, &e.OverallRisk, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &e.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	e.Remarks = remarks.String
	return &e, nil
}

var _ port.EvaluationRepository = (*EvaluationRepository)(nil)
