package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/persistence/sqlite"
)

// SettingsRepository implements port.SettingsRepository over the system_settings table
type SettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB, logger *zap.Logger) port.SettingsRepository {
	return &SettingsRepository{db: db, logger: logger}
}

// Get returns the raw JSON value for key, nil when the key is absent
func (r *SettingsRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := sqlite.ExecutorFrom(ctx, r.db).
		QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key = ?`, key).
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get setting", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put upserts the JSON value for key
func (r *SettingsRepository) Put(ctx context.Context, key string, value []byte, updatedBy string) error {
	query := `
		INSERT INTO system_settings (key, value, updated_by, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, key, string(value), updatedBy, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to put setting", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to put setting %s: %w", key, err)
	}
	return nil
}

var _ port.SettingsRepository = (*SettingsRepository)(nil)
