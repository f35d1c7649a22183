package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/persistence/sqlite"
)

const requestColumns = `id, request_code, title, station_name, assembly_line, issue_description,
	poka_yoke_description, reason_for_implementation, program, customer_part_number,
	date_of_origination, department, initiator_id, feasibility_status, feasibility_reason,
	expected_benefits, effect_of_changes, cost_estimate, cost_currency, cost_justification,
	spare_cost_included, requires_process_addition, requires_manpower_addition, status,
	rejection_reason, rejected_by, rejected_by_department, created_at, updated_at`

const defaultListLimit = 50

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new kaizen request and sets its ID
func (r *RequestRepository) Create(ctx context.Context, req *entity.KaizenRequest) error {
	benefits, err := json.Marshal(nonNil(req.ExpectedBenefits))
	if err != nil {
		return fmt.Errorf("failed to encode expected benefits: %w", err)
	}
	effects, err := json.Marshal(nonNil(req.EffectOfChanges))
	if err != nil {
		return fmt.Errorf("failed to encode effect of changes: %w", err)
	}

	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt

	query := `
		INSERT INTO kaizen_requests (
			request_code, title, station_name, assembly_line, issue_description,
			poka_yoke_description, reason_for_implementation, program, customer_part_number,
			date_of_origination, department, initiator_id, feasibility_status, feasibility_reason,
			expected_benefits, effect_of_changes, cost_estimate, cost_currency, cost_justification,
			spare_cost_included, requires_process_addition, requires_manpower_addition, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.RequestCode,
		req.Title,
		req.StationName,
		req.AssemblyLine,
		req.IssueDescription,
		req.PokaYokeDescription,
		req.ReasonForImplementation,
		req.Program,
		req.CustomerPartNumber,
		req.DateOfOrigination,
		req.Department,
		req.InitiatorID,
		req.FeasibilityStatus,
		req.FeasibilityReason,
		string(benefits),
		string(effects),
		req.CostEstimate,
		req.CostCurrency,
		req.CostJustification,
		req.SpareCostIncluded,
		req.RequiresProcessAddition,
		req.RequiresManpowerAddition,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("request code %s: %w", req.RequestCode, port.ErrConflict)
		}
		r.logger.Error("Failed to create kaizen request", zap.String("request_code", req.RequestCode), zap.Error(err))
		return fmt.Errorf("failed to create kaizen request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID retrieves a kaizen request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.KaizenRequest, error) {
	return r.getOne(ctx, "id", id)
}

// GetByCode retrieves a kaizen request by its KZ code
func (r *RequestRepository) GetByCode(ctx context.Context, code string) (*entity.KaizenRequest, error) {
	return r.getOne(ctx, "request_code", code)
}

func (r *RequestRepository) getOne(ctx context.Context, column string, value interface{}) (*entity.KaizenRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM kaizen_requests WHERE ` + column + ` = ?`

	req, err := scanRequest(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get kaizen request", zap.String("by", column), zap.Any("value", value), zap.Error(err))
		return nil, fmt.Errorf("failed to get kaizen request: %w", err)
	}
	return req, nil
}

// List retrieves requests matching the filter, newest first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.KaizenRequest, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	builder := sq.Select(requestColumns).
		From("kaizen_requests").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(max(filter.Offset, 0)))

	if len(filter.Statuses) > 0 {
		builder = builder.Where(sq.Eq{"status": filter.Statuses})
	}
	if filter.Department != "" {
		builder = builder.Where(sq.Eq{"department": filter.Department})
	}
	if filter.InitiatorID != "" {
		builder = builder.Where(sq.Eq{"initiator_id": filter.InitiatorID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list kaizen requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list kaizen requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.KaizenRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kaizen request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// CountByCodePrefix counts request codes beginning with prefix
func (r *RequestRepository) CountByCodePrefix(ctx context.Context, prefix string) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("kaizen_requests").
		Where(sq.Like{"request_code": prefix + "%"}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count request codes", zap.String("prefix", prefix), zap.Error(err))
		return 0, fmt.Errorf("failed to count request codes: %w", err)
	}
	return count, nil
}

// UpdateStatus is a compare-and-set on status. It reports false when the row
// was not at expected, which callers treat as a stale-state conflict.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id int64, expected, next string, rejection *entity.Rejection) (bool, error) {
	builder := sq.Update("kaizen_requests").
		Set("status", next).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "status": expected})

	if rejection != nil {
		builder = builder.
			Set("rejection_reason", rejection.Reason).
			Set("rejected_by", rejection.By).
			Set("rejected_by_department", nullString(string(rejection.Department)))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build status update: %w", err)
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update status",
			zap.Int64("id", id),
			zap.String("expected", expected),
			zap.String("next", next),
			zap.Error(err))
		return false, fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.KaizenRequest, error) {
	var req entity.KaizenRequest
	var benefits, effects string
	var rejectionReason, rejectedBy, rejectedByDept sql.NullString

	err := row.Scan(
		&req.ID,
		&req.RequestCode,
		&req.Title,
		&req.StationName,
		&req.AssemblyLine,
		&req.IssueDescription,
		&req.PokaYokeDescription,
		&req.ReasonForImplementation,
		&req.Program,
		&req.CustomerPartNumber,
		&req.DateOfOrigination,
		&req.Department,
		&req.InitiatorID,
		&req.FeasibilityStatus,
		&req.FeasibilityReason,
		&benefits,
		&effects,
		&req.CostEstimate,
		&req.CostCurrency,
		&req.CostJustification,
		&req.SpareCostIncluded,
		&req.RequiresProcessAddition,
		&req.RequiresManpowerAddition,
		&req.Status,
		&rejectionReason,
		&rejectedBy,
		&rejectedByDept,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(benefits), &req.ExpectedBenefits); err != nil {
		return nil, fmt.Errorf("failed to decode expected benefits: %w", err)
	}
	if err := json.Unmarshal([]byte(effects), &req.EffectOfChanges); err != nil {
		return nil, fmt.Errorf("failed to decode effect of changes: %w", err)
	}

	req.RejectionReason = rejectionReason.String
	req.RejectedBy = rejectedBy.String
	req.RejectedByDepartment = entity.Department(rejectedByDept.String)

	return &req, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ port.RequestRepository = (*RequestRepository)(nil)
