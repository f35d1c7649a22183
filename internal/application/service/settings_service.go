package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaizenflow/kaizen-approvals/internal/application/dispatcher"
	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/event"
)

// SettingsService reads and updates the admin settings documents.
// It is the uncached SettingsProvider; the container may wrap it in the Redis cache.
type SettingsService interface {
	port.SettingsProvider
	Update(ctx context.Context, actor entity.Actor, patch entity.SettingsPatch) (*entity.Settings, error)
}

type settingsServiceImpl struct {
	repo        port.SettingsRepository
	audit       port.AuditRepository
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	invalidator port.SettingsInvalidator
	defaults    entity.Settings
	logger      Logger
}

// SettingsOption configures the settings service
type SettingsOption func(*settingsServiceImpl)

// WithSettingsDispatcher emits settings.updated after each committed update
func WithSettingsDispatcher(d dispatcher.Dispatcher) SettingsOption {
	return func(s *settingsServiceImpl) {
		s.dispatcher = d
	}
}

// WithInvalidator registers a cache to clear after each committed update
func WithInvalidator(inv port.SettingsInvalidator) SettingsOption {
	return func(s *settingsServiceImpl) {
		s.invalidator = inv
	}
}

// NewSettingsService creates a new SettingsService. defaults fill keys missing from storage.
func NewSettingsService(
	repo port.SettingsRepository,
	audit port.AuditRepository,
	txManager port.TransactionManager,
	defaults entity.Settings,
	logger Logger,
	opts ...SettingsOption,
) SettingsService {
	s := &settingsServiceImpl{
		repo:      repo,
		audit:     audit,
		txManager: txManager,
		defaults:  defaults,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CostThresholds implements port.SettingsProvider
func (s *settingsServiceImpl) CostThresholds(ctx context.Context) (entity.CostThresholds, error) {
	thresholds := s.defaults.CostThresholds
	if err := s.load(ctx, entity.SettingCostThresholds, &thresholds); err != nil {
		return entity.CostThresholds{}, err
	}
	return thresholds, nil
}

// Settings implements port.SettingsProvider
func (s *settingsServiceImpl) Settings(ctx context.Context) (*entity.Settings, error) {
	out := s.defaults
	if err := s.load(ctx, entity.SettingCostThresholds, &out.CostThresholds); err != nil {
		return nil, err
	}
	if err := s.load(ctx, entity.SettingSLA, &out.SLA); err != nil {
		return nil, err
	}
	if err := s.load(ctx, entity.SettingNotifications, &out.Notifications); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update validates and stores the patched documents, audits the change and clears caches
func (s *settingsServiceImpl) Update(ctx context.Context, actor entity.Actor, patch entity.SettingsPatch) (*entity.Settings, error) {
	if !actor.Is(entity.RoleAdmin) {
		return nil, &approval.AuthorizationError{Reason: "only administrators can change settings"}
	}
	if patch.IsEmpty() {
		return nil, &approval.ValidationError{Field: "settings", Reason: "no settings supplied"}
	}
	if patch.CostThresholds != nil {
		if err := patch.CostThresholds.Validate(); err != nil {
			return nil, &approval.ValidationError{Field: entity.SettingCostThresholds, Reason: err.Error()}
		}
	}
	if patch.SLA != nil {
		if err := patch.SLA.Validate(); err != nil {
			return nil, &approval.ValidationError{Field: entity.SettingSLA, Reason: err.Error()}
		}
	}

	changed := make([]string, 0, 3)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		docs := []struct {
			key   string
			value interface{}
			set   bool
		}{
			{entity.SettingCostThresholds, patch.CostThresholds, patch.CostThresholds != nil},
			{entity.SettingSLA, patch.SLA, patch.SLA != nil},
			{entity.SettingNotifications, patch.Notifications, patch.Notifications != nil},
		}
		for _, doc := range docs {
			if !doc.set {
				continue
			}
			raw, err := json.Marshal(doc.value)
			if err != nil {
				return fmt.Errorf("encode %s: %w", doc.key, err)
			}
			if err := s.repo.Put(txCtx, doc.key, raw, actor.UserID); err != nil {
				return fmt.Errorf("store %s: %w", doc.key, err)
			}
			changed = append(changed, doc.key)
		}

		return s.audit.Append(txCtx, &entity.AuditEvent{
			UserID:  actor.UserID,
			Action:  entity.AuditSettingsUpdated,
			Details: map[string]interface{}{"keys": changed, "patch": patch},
		})
	})
	if err != nil {
		s.logger.Error("Failed to update settings", "error", err, "user_id", actor.UserID)
		return nil, err
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Error("Failed to invalidate settings cache", "error", err)
		}
	}

	s.logger.Info("Settings updated", "user_id", actor.UserID, "keys", changed)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeSettingsUpdated, 0, "", map[string]interface{}{
			event.KeyActorID: actor.UserID,
			"keys":           changed,
		}))
	}

	return s.Settings(ctx)
}

// load decodes a stored document over dst; a missing key leaves dst at its default
func (s *settingsServiceImpl) load(ctx context.Context, key string, dst interface{}) error {
	raw, err := s.repo.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read setting %s: %w", key, err)
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}
