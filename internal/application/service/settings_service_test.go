package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/event"
)

func defaultSettings() entity.Settings {
	return entity.Settings{
		CostThresholds: entity.DefaultCostThresholds(),
		SLA:            entity.DefaultSLASettings(),
		Notifications:  entity.DefaultNotificationSettings(),
	}
}

var admin = entity.Actor{UserID: "admin-1", Role: entity.RoleAdmin}

func TestSettingsService_DefaultsWhenUnset(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{}, &mockAuditRepo{}, &mockTxManager{}, defaultSettings(), nopLogger{})

	thresholds, err := svc.CostThresholds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultCostThresholds(), thresholds)

	settings, err := svc.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 48, settings.SLA.GmReviewHours)
	assert.True(t, settings.Notifications.NotifyOnRejection)
}

func TestSettingsService_StoredValuesWin(t *testing.T) {
	repo := &mockSettingsRepo{values: map[string][]byte{
		entity.SettingCostThresholds: []byte(`{"hodLimit":20000,"agmLimit":80000}`),
	}}
	svc := NewSettingsService(repo, &mockAuditRepo{}, &mockTxManager{}, defaultSettings(), nopLogger{})

	thresholds, err := svc.CostThresholds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.CostThresholds{HodLimit: 20000, AgmLimit: 80000}, thresholds)
}

func TestSettingsService_ReadErrors(t *testing.T) {
	repo := &mockSettingsRepo{getErr: errors.New("locked")}
	svc := NewSettingsService(repo, &mockAuditRepo{}, &mockTxManager{}, defaultSettings(), nopLogger{})

	_, err := svc.CostThresholds(context.Background())
	assert.Error(t, err)

	repo.getErr = nil
	repo.values = map[string][]byte{entity.SettingSLA: []byte(`not json`)}
	_, err = svc.Settings(context.Background())
	assert.Error(t, err)
}

func TestSettingsService_Update(t *testing.T) {
	repo := &mockSettingsRepo{}
	audit := &mockAuditRepo{}
	inv := &mockInvalidator{}
	d := &mockDispatcher{}
	svc := NewSettingsService(repo, audit, &mockTxManager{}, defaultSettings(), nopLogger{},
		WithInvalidator(inv), WithSettingsDispatcher(d))

	updated, err := svc.Update(context.Background(), admin, entity.SettingsPatch{
		CostThresholds: &entity.CostThresholds{HodLimit: 30000, AgmLimit: 90000},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), updated.CostThresholds.HodLimit)
	assert.Equal(t, entity.DefaultSLASettings(), updated.SLA)

	assert.Contains(t, repo.values, entity.SettingCostThresholds)
	assert.NotContains(t, repo.values, entity.SettingSLA)

	require.Len(t, audit.events, 1)
	assert.Equal(t, entity.AuditSettingsUpdated, audit.events[0].Action)
	assert.Nil(t, audit.events[0].RequestID)

	assert.Equal(t, 1, inv.calls)
	require.Len(t, d.events, 1)
	assert.Equal(t, event.TypeSettingsUpdated, d.events[0].Type)
}

func TestSettingsService_UpdateRejections(t *testing.T) {
	tests := []struct {
		name  string
		actor entity.Actor
		patch entity.SettingsPatch
		want  error
	}{
		{"non admin", entity.Actor{UserID: "h1", Role: entity.RoleHOD}, entity.SettingsPatch{SLA: &entity.SLASettings{}}, approval.ErrUnauthorized},
		{"empty patch", admin, entity.SettingsPatch{}, approval.ErrValidation},
		{"hod above agm", admin, entity.SettingsPatch{CostThresholds: &entity.CostThresholds{HodLimit: 90000, AgmLimit: 50000}}, approval.ErrValidation},
		{"negative limit", admin, entity.SettingsPatch{CostThresholds: &entity.CostThresholds{HodLimit: -1, AgmLimit: 50000}}, approval.ErrValidation},
		{"zero sla hours", admin, entity.SettingsPatch{SLA: &entity.SLASettings{OwnHodReviewHours: 0, CrossHodReviewHours: 1, AgmReviewHours: 1, GmReviewHours: 1}}, approval.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockSettingsRepo{}
			audit := &mockAuditRepo{}
			svc := NewSettingsService(repo, audit, &mockTxManager{}, defaultSettings(), nopLogger{})

			_, err := svc.Update(context.Background(), tt.actor, tt.patch)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, repo.values)
			assert.Empty(t, audit.events)
		})
	}
}
