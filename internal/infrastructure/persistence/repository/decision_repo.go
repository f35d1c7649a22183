package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/persistence/sqlite"
)

// ManagerDecisionRepository implements port.ManagerDecisionRepository
type ManagerDecisionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewManagerDecisionRepository creates a new manager decision repository
func NewManagerDecisionRepository(db *sql.DB, logger *zap.Logger) port.ManagerDecisionRepository {
	return &ManagerDecisionRepository{db: db, logger: logger}
}

// Create records a manager decision. A second decision from the same department fails with port.ErrConflict.
func (r *ManagerDecisionRepository) Create(ctx context.Context, d *entity.ManagerDecision) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO manager_decisions (request_id, manager_user_id, department, decision, remarks, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		d.RequestID, d.ManagerUserID, d.Department, d.Decision, nullString(d.Remarks), d.CreatedAt,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("manager decision %s: %w", d.Department, port.ErrConflict)
		}
		r.logger.Error("Failed to create manager decision", zap.Int64("request_id", d.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create manager decision: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// GetByDepartment returns the department's manager decision, nil if none
func (r *ManagerDecisionRepository) GetByDepartment(ctx context.Context, requestID int64, dept entity.Department) (*entity.ManagerDecision, error) {
	query := `
		SELECT id, request_id, manager_user_id, department, decision, remarks, created_at
		FROM manager_decisions
		WHERE request_id = ? AND department = ?
	`

	d, err := scanManagerDecision(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, requestID, dept))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get manager decision", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get manager decision: %w", err)
	}
	return d, nil
}

// ListByRequest returns every manager decision for the request in submission order
func (r *ManagerDecisionRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.ManagerDecision, error) {
	query := `
		SELECT id, request_id, manager_user_id, department, decision, remarks, created_at
		FROM manager_decisions
		WHERE request_id = ?
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list manager decisions", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list manager decisions: %w", err)
	}
	defer rows.Close()

	var out []*entity.ManagerDecision
	for rows.Next() {
		d, err := scanManagerDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manager decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanManagerDecision(row rowScanner) (*entity.ManagerDecision, error) {
	var d entity.ManagerDecision
	var remarks sql.NullString
	if err := row.Scan(&d.ID, &d.RequestID, &d.ManagerUserID, &d.Department, &d.Decision, &remarks, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Remarks = remarks.String
	return &d, nil
}

// HodDecisionRepository implements port.HodDecisionRepository
type HodDecisionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHodDecisionRepository creates a new HOD decision repository
func NewHodDecisionRepository(db *sql.DB, logger *zap.Logger) port.HodDecisionRepository {
	return &HodDecisionRepository{db: db, logger: logger}
}

// Create records an HOD decision. One decision per (request, department, stage type).
func (r *HodDecisionRepository) Create(ctx context.Context, d *entity.HodDecision) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO hod_decisions (request_id, hod_user_id, department, decision, remarks, stage_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		d.RequestID, d.HodUserID, d.Department, d.Decision, nullString(d.Remarks), d.StageType, d.CreatedAt,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%s decision %s: %w", d.StageType, d.Department, port.ErrConflict)
		}
		r.logger.Error("Failed to create HOD decision", zap.Int64("request_id", d.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create HOD decision: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// GetByDepartment returns the department's HOD decision at the stage, nil if none
func (r *HodDecisionRepository) GetByDepartment(ctx context.Context, requestID int64, dept entity.Department, stage entity.HodStageType) (*entity.HodDecision, error) {
	query := `
		SELECT id, request_id, hod_user_id, department, decision, remarks, stage_type, created_at
		FROM hod_decisions
		WHERE request_id = ? AND department = ? AND stage_type = ?
	`

	d, err := scanHodDecision(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, requestID, dept, stage))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get HOD decision", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get HOD decision: %w", err)
	}
	return d, nil
}

// ListByRequest returns every HOD decision for the request in submission order
func (r *HodDecisionRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.HodDecision, error) {
	query := `
		SELECT id, request_id, hod_user_id, department, decision, remarks, stage_type, created_at
		FROM hod_decisions
		WHERE request_id = ?
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list HOD decisions", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list HOD decisions: %w", err)
	}
	defer rows.Close()

	var out []*entity.HodDecision
	for rows.Next() {
		d, err := scanHodDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan HOD decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanHodDecision(row rowScanner) (*entity.HodDecision, error) {
	var d entity.HodDecision
	var remarks sql.NullString
	if err := row.Scan(&d.ID, &d.RequestID, &d.HodUserID, &d.Department, &d.Decision, &remarks, &d.StageType, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Remarks = remarks.String
	return &d, nil
}

// ExecutiveDecisionRepository implements port.ExecutiveDecisionRepository
type ExecutiveDecisionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExecutiveDecisionRepository creates a new executive decision repository
func NewExecutiveDecisionRepository(db *sql.DB, logger *zap.Logger) port.ExecutiveDecisionRepository {
	return &ExecutiveDecisionRepository{db: db, logger: logger}
}

// Create records an AGM or GM decision
func (r *ExecutiveDecisionRepository) Create(ctx context.Context, d *entity.ExecutiveDecision) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO executive_decisions (request_id, level, approved_by, approved, comments, cost_justification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		d.RequestID, d.Level, d.ApprovedBy, d.Approved, nullString(d.Comments), nullString(d.CostJustification), d.CreatedAt,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("%s decision: %w", d.Level, port.ErrConflict)
		}
		r.logger.Error("Failed to create executive decision", zap.Int64("request_id", d.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create executive decision: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// GetByLevel returns the decision at the level, nil if none
func (r *ExecutiveDecisionRepository) GetByLevel(ctx context.Context, requestID int64, level entity.ExecutiveLevel) (*entity.ExecutiveDecision, error) {
	query := `
		SELECT id, request_id, level, approved_by, approved, comments, cost_justification, created_at
		FROM executive_decisions
		WHERE request_id = ? AND level = ?
	`

	d, err := scanExecutiveDecision(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, requestID, level))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get executive decision", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get executive decision: %w", err)
	}
	return d, nil
}

// ListByRequest returns the request's executive decisions in submission order
func (r *ExecutiveDecisionRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.ExecutiveDecision, error) {
	query := `
		SELECT id, request_id, level, approved_by, approved, comments, cost_justification, created_at
		FROM executive_decisions
		WHERE request_id = ?
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list executive decisions", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list executive decisions: %w", err)
	}
	defer rows.Close()

	var out []*entity.ExecutiveDecision
	for rows.Next() {
		d, err := scanExecutiveDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan executive decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanExecutiveDecision(row rowScanner) (*entity.ExecutiveDecision, error) {
	var d entity.ExecutiveDecision
	var comments, justification sql.NullString
	if err := row.Scan(&d.ID, &d.RequestID, &d.Level, &d.ApprovedBy, &d.Approved, &comments, &justification, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Comments = comments.String
	d.CostJustification = justification.String
	return &d, nil
}

var (
	_ port.ManagerDecisionRepository   = (*ManagerDecisionRepository)(nil)
	_ port.HodDecisionRepository       = (*HodDecisionRepository)(nil)
	_ port.ExecutiveDecisionRepository = (*ExecutiveDecisionRepository)(nil)
)
