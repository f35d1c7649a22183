package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRepository
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Append writes one audit row
func (r *AuditRepository) Append(ctx context.Context, evt *entity.AuditEvent) error {
	var details sql.NullString
	if len(evt.Details) > 0 {
		raw, err := json.Marshal(evt.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	var requestID sql.NullInt64
	if evt.RequestID != nil {
		requestID = sql.NullInt64{Int64: *evt.RequestID, Valid: true}
	}

	query := `INSERT INTO audit_logs (request_id, user_id, action, details, timestamp) VALUES (?, ?, ?, ?, ?)`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		requestID, evt.UserID, evt.Action, details, evt.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append audit event", zap.String("action", evt.Action), zap.Error(err))
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	evt.ID = id
	return nil
}

// ListByRequest returns the request's audit trail, oldest first
func (r *AuditRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.AuditEvent, error) {
	query := `
		SELECT id, request_id, user_id, action, details, timestamp
		FROM audit_logs
		WHERE request_id = ?
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list audit events", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var out []*entity.AuditEvent
	for rows.Next() {
		var evt entity.AuditEvent
		var reqID sql.NullInt64
		var details sql.NullString

		if err := rows.Scan(&evt.ID, &reqID, &evt.UserID, &evt.Action, &details, &evt.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if reqID.Valid {
			id := reqID.Int64
			evt.RequestID = &id
		}
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &evt.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit details: %w", err)
			}
		}
		out = append(out, &evt)
	}
	return out, rows.Err()
}

var _ port.AuditRepository = (*AuditRepository)(nil)
