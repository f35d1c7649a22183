package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/persistence/sqlite"
	"github.com/kaizenflow/kaizen-approvals/pkg/database"
)

func setupDB(t *testing.T) (*sql.DB, *zap.Logger) {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "kaizen.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(filepath.Join("..", "..", "..", "..", "migrations")))
	return db.DB, logger
}

func sampleRequest(code string) *entity.KaizenRequest {
	return &entity.KaizenRequest{
		RequestCode:        code,
		Title:              "Poka-yoke for bracket orientation",
		StationName:        "ST-12",
		Program:            "P-700",
		CustomerPartNumber: "CPN-4411",
		DateOfOrigination:  "2025-03-02",
		Department:         entity.DepartmentProduction,
		InitiatorID:        "u-init",
		ExpectedBenefits:   []string{"Quality", "Safety"},
		CostEstimate:       85000,
		CostCurrency:       entity.DefaultCurrency,
		Status:             "PENDING_OWN_HOD",
	}
}

func TestRequestRepository(t *testing.T) {
	db, logger := setupDB(t)
	repo := NewRequestRepository(db, logger)
	ctx := context.Background()

	req := sampleRequest("KZ-2025-001")
	require.NoError(t, repo.Create(ctx, req))
	require.NotZero(t, req.ID)

	t.Run("get by id and code", func(t *testing.T) {
		byID, err := repo.GetByID(ctx, req.ID)
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, "KZ-2025-001", byID.RequestCode)
		assert.Equal(t, []string{"Quality", "Safety"}, byID.ExpectedBenefits)
		assert.Equal(t, []string{}, byID.EffectOfChanges)
		assert.Equal(t, int64(85000), byID.CostEstimate)

		byCode, err := repo.GetByCode(ctx, "KZ-2025-001")
		require.NoError(t, err)
		assert.Equal(t, req.ID, byCode.ID)
	})

	t.Run("missing returns nil", func(t *testing.T) {
		got, err := repo.GetByCode(ctx, "KZ-1999-001")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		err := repo.Create(ctx, sampleRequest("KZ-2025-001"))
		assert.ErrorIs(t, err, port.ErrConflict)
	})

	t.Run("count by prefix", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, sampleRequest("KZ-2025-002")))
		require.NoError(t, repo.Create(ctx, sampleRequest("KZ-2024-001")))

		n, err := repo.CountByCodePrefix(ctx, entity.RequestCodePrefix(2025))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("compare and set status", func(t *testing.T) {
		ok, err := repo.UpdateStatus(ctx, req.ID, "PENDING_CROSS_HOD", "APPROVED", nil)
		require.NoError(t, err)
		assert.False(t, ok, "status did not match expected")

		ok, err = repo.UpdateStatus(ctx, req.ID, "PENDING_OWN_HOD", "OWN_HOD_REJECTED", &entity.Rejection{
			Reason:     "Not feasible on this line",
			By:         "u-hod",
			Department: entity.DepartmentProduction,
		})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, "OWN_HOD_REJECTED", got.Status)
		assert.Equal(t, "Not feasible on this line", got.RejectionReason)
		assert.Equal(t, "u-hod", got.RejectedBy)
		assert.Equal(t, entity.DepartmentProduction, got.RejectedByDepartment)
	})

	t.Run("list with filters", func(t *testing.T) {
		all, err := repo.List(ctx, port.RequestFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		pending, err := repo.List(ctx, port.RequestFilter{Statuses: []string{"PENDING_OWN_HOD"}})
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		none, err := repo.List(ctx, port.RequestFilter{Department: entity.DepartmentAdmin})
		require.NoError(t, err)
		assert.Empty(t, none)

		page, err := repo.List(ctx, port.RequestFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})
}

func TestDecisionRepositories(t *testing.T) {
	db, logger := setupDB(t)
	ctx := context.Background()

	req := sampleRequest("KZ-2025-001")
	require.NoError(t, NewRequestRepository(db, logger).Create(ctx, req))

	t.Run("manager decisions are unique per department", func(t *testing.T) {
		repo := NewManagerDecisionRepository(db, logger)
		first := &entity.ManagerDecision{RequestID: req.ID, ManagerUserID: "m1", Department: entity.DepartmentAdmin, Decision: entity.DecisionApproved}
		require.NoError(t, repo.Create(ctx, first))

		err := repo.Create(ctx, &entity.ManagerDecision{RequestID: req.ID, ManagerUserID: "m2", Department: entity.DepartmentAdmin, Decision: entity.DecisionRejected, Remarks: "late"})
		assert.ErrorIs(t, err, port.ErrConflict)

		got, err := repo.GetByDepartment(ctx, req.ID, entity.DepartmentAdmin)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "m1", got.ManagerUserID)

		missing, err := repo.GetByDepartment(ctx, req.ID, entity.DepartmentAccounts)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("hod decisions are unique per stage type", func(t *testing.T) {
		repo := NewHodDecisionRepository(db, logger)
		require.NoError(t, repo.Create(ctx, &entity.HodDecision{RequestID: req.ID, HodUserID: "h1", Department: entity.DepartmentProduction, Decision: entity.DecisionApproved, StageType: entity.HodStageOwn}))
		require.NoError(t, repo.Create(ctx, &entity.HodDecision{RequestID: req.ID, HodUserID: "h1", Department: entity.DepartmentProduction, Decision: entity.DecisionApproved, StageType: entity.HodStageCross}))

		err := repo.Create(ctx, &entity.HodDecision{RequestID: req.ID, HodUserID: "h2", Department: entity.DepartmentProduction, Decision: entity.DecisionApproved, StageType: entity.HodStageOwn})
		assert.ErrorIs(t, err, port.ErrConflict)

		list, err := repo.ListByRequest(ctx, req.ID)
		require.NoError(t, err)
		ledger := entity.Ledger{Hods: list}
		assert.Len(t, ledger.HodVerdicts(entity.HodStageCross), 1)
		assert.NotNil(t, ledger.OwnHod())
	})

	t.Run("executive decisions", func(t *testing.T) {
		repo := NewExecutiveDecisionRepository(db, logger)
		require.NoError(t, repo.Create(ctx, &entity.ExecutiveDecision{RequestID: req.ID, Level: entity.ExecutiveAGM, ApprovedBy: "agm", Approved: true, CostJustification: "payback 8 months"}))

		got, err := repo.GetByLevel(ctx, req.ID, entity.ExecutiveAGM)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Approved)
		assert.Equal(t, "payback 8 months", got.CostJustification)

		gm, err := repo.GetByLevel(ctx, req.ID, entity.ExecutiveGM)
		require.NoError(t, err)
		assert.Nil(t, gm)
	})
}

func TestEvaluationRepository(t *testing.T) {
	db, logger := setupDB(t)
	ctx := context.Background()

	req := sampleRequest("KZ-2025-001")
	require.NoError(t, NewRequestRepository(db, logger).Create(ctx, req))
	repo := NewEvaluationRepository(db, logger)

	eval := &entity.DepartmentEvaluation{
		RequestID:       req.ID,
		Department:      entity.DepartmentAccounts,
		EvaluatorUserID: "acc-mgr",
		EvaluatorRole:   entity.EvaluatorManager,
		Answers: []entity.EvaluationAnswer{
			{QuestionKey: "acc.q1", Answer: entity.AnswerYes, RiskLevel: entity.RiskLow},
			{QuestionKey: "acc.q2", Answer: entity.AnswerNo, RiskLevel: entity.RiskHigh, Remarks: "thin justification"},
		},
		Decision:    entity.DecisionApproved,
		OverallRisk: entity.RiskHigh,
	}
	require.NoError(t, repo.Create(ctx, eval))

	got, err := repo.Get(ctx, req.ID, entity.DepartmentAccounts, entity.EvaluatorManager)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, eval.Answers, got.Answers)
	assert.Equal(t, entity.RiskHigh, got.OverallRisk)

	hod, err := repo.Get(ctx, req.ID, entity.DepartmentAccounts, entity.EvaluatorHOD)
	require.NoError(t, err)
	assert.Nil(t, hod)

	dup := *eval
	dup.ID = 0
	assert.ErrorIs(t, repo.Create(ctx, &dup), port.ErrConflict)
}

func TestAuditAndSettingsRepositories(t *testing.T) {
	db, logger := setupDB(t)
	ctx := context.Background()

	req := sampleRequest("KZ-2025-001")
	require.NoError(t, NewRequestRepository(db, logger).Create(ctx, req))

	audit := NewAuditRepository(db, logger)
	require.NoError(t, audit.Append(ctx, entity.NewRequestAudit(req.ID, "u-init", entity.AuditRequestCreated, map[string]interface{}{"request_code": req.RequestCode})))
	require.NoError(t, audit.Append(ctx, &entity.AuditEvent{UserID: "admin", Action: entity.AuditSettingsUpdated}))

	trail, err := audit.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, entity.AuditRequestCreated, trail[0].Action)
	assert.Equal(t, "KZ-2025-001", trail[0].Details["request_code"])

	settings := NewSettingsRepository(db, logger)
	seeded, err := settings.Get(ctx, entity.SettingCostThresholds)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hodLimit":50000,"agmLimit":100000}`, string(seeded))

	require.NoError(t, settings.Put(ctx, entity.SettingCostThresholds, []byte(`{"hodLimit":20000,"agmLimit":90000}`), "admin"))
	updated, err := settings.Get(ctx, entity.SettingCostThresholds)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hodLimit":20000,"agmLimit":90000}`, string(updated))

	missing, err := settings.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTransactionRollback(t *testing.T) {
	db, logger := setupDB(t)
	ctx := context.Background()
	tx := sqlite.NewDB(db, logger)
	repo := NewRequestRepository(db, logger)
	audit := NewAuditRepository(db, logger)

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
		req := sampleRequest("KZ-2025-009")
		if err := repo.Create(txCtx, req); err != nil {
			return err
		}
		if err := audit.Append(txCtx, entity.NewRequestAudit(req.ID, "u", entity.AuditRequestCreated, nil)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.GetByCode(ctx, "KZ-2025-009")
	require.NoError(t, err)
	assert.Nil(t, got, "request insert should roll back with the transaction")
}
