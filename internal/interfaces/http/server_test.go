package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/application/service"
	"github.com/kaizenflow/kaizen-approvals/internal/application/workflow"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	domainwf "github.com/kaizenflow/kaizen-approvals/internal/domain/workflow"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type fakeRequests struct {
	service.RequestService
	requests   map[string]*entity.KaizenRequest
	lastFilter port.RequestFilter
	createFunc func(actor entity.Actor, in service.CreateRequestInput) (*entity.KaizenRequest, error)
}

func (f *fakeRequests) GetByCode(ctx context.Context, code string) (*entity.KaizenRequest, error) {
	if r, ok := f.requests[code]; ok {
		return r, nil
	}
	return nil, approval.ErrRequestNotFound
}

func (f *fakeRequests) List(ctx context.Context, filter port.RequestFilter) ([]*entity.KaizenRequest, error) {
	f.lastFilter = filter
	return nil, nil
}

func (f *fakeRequests) Create(ctx context.Context, actor entity.Actor, in service.CreateRequestInput) (*entity.KaizenRequest, error) {
	return f.createFunc(actor, in)
}

type fakeEngine struct {
	workflow.Engine
	lastActor entity.Actor
	lastID    int64
	decision  approval.DecisionInput
	exec      approval.ExecutiveInput
	eval      approval.EvaluationInput
	err       error
}

func (f *fakeEngine) result(id int64, prev, next domainwf.State) (*workflow.TransitionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &workflow.TransitionResult{RequestID: id, RequestCode: "KZ-2025-001", PreviousState: prev, NewState: next}, nil
}

func (f *fakeEngine) SubmitOwnHodDecision(ctx context.Context, id int64, actor entity.Actor, in approval.DecisionInput) (*workflow.TransitionResult, error) {
	f.lastActor, f.lastID, f.decision = actor, id, in
	return f.result(id, domainwf.StatePendingOwnHod, domainwf.StatePendingCrossManager)
}

func (f *fakeEngine) SubmitManagerDecision(ctx context.Context, id int64, actor entity.Actor, in approval.DecisionInput) (*workflow.TransitionResult, error) {
	f.lastActor, f.lastID, f.decision = actor, id, in
	return f.result(id, domainwf.StatePendingCrossManager, domainwf.StatePendingCrossManager)
}

func (f *fakeEngine) SubmitEvaluation(ctx context.Context, id int64, actor entity.Actor, in approval.EvaluationInput) (*workflow.TransitionResult, error) {
	f.lastActor, f.lastID, f.eval = actor, id, in
	return f.result(id, domainwf.StatePendingCrossHod, domainwf.StatePendingCrossHod)
}

func (f *fakeEngine) SubmitGmDecision(ctx context.Context, id int64, actor entity.Actor, in approval.ExecutiveInput) (*workflow.TransitionResult, error) {
	f.lastActor, f.lastID, f.exec = actor, id, in
	return f.result(id, domainwf.StatePendingGM, domainwf.StateRejected)
}

type fakeSettings struct {
	service.SettingsService
	updated *entity.SettingsPatch
}

func (f *fakeSettings) CostThresholds(ctx context.Context) (entity.CostThresholds, error) {
	return entity.DefaultCostThresholds(), nil
}

func (f *fakeSettings) Settings(ctx context.Context) (*entity.Settings, error) {
	return &entity.Settings{CostThresholds: entity.DefaultCostThresholds()}, nil
}

func (f *fakeSettings) Update(ctx context.Context, actor entity.Actor, patch entity.SettingsPatch) (*entity.Settings, error) {
	if !actor.Is(entity.RoleAdmin) {
		return nil, &approval.AuthorizationError{Reason: "admin only"}
	}
	f.updated = &patch
	return &entity.Settings{CostThresholds: *patch.CostThresholds}, nil
}

type fakeSheets struct {
	service.ApprovalSheetService
}

func (fakeSheets) Build(ctx context.Context, code string) ([]byte, string, error) {
	return []byte("PK"), code + "-approval-sheet.xlsx", nil
}

type testServer struct {
	router   *gin.Engine
	requests *fakeRequests
	engine   *fakeEngine
	settings *fakeSettings
}

func newTestServer() *testServer {
	ts := &testServer{
		requests: &fakeRequests{requests: map[string]*entity.KaizenRequest{
			"KZ-2025-001": {ID: 1, RequestCode: "KZ-2025-001"},
		}},
		engine:   &fakeEngine{},
		settings: &fakeSettings{},
	}
	srv := NewServer(ServerConfig{Mode: gin.TestMode}, Services{
		Requests: ts.requests,
		Engine:   ts.engine,
		Settings: ts.settings,
		Sheets:   fakeSheets{},
		Catalog:  approval.DefaultCatalog(),
	}, nopLogger{})
	ts.router = srv.Router()
	return ts
}

func (ts *testServer) do(method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, Response) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func identity(id string, role entity.Role, dept entity.Department) map[string]string {
	return map[string]string{
		HeaderUserID:         id,
		HeaderUserRole:       string(role),
		HeaderUserDepartment: string(dept),
	}
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer()
	w, resp := ts.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestOwnHodDecision_PassesActorAndInput(t *testing.T) {
	ts := newTestServer()
	w, resp := ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/own-hod-decision",
		map[string]string{"decision": "APPROVED", "remarks": "ok"},
		identity("hod-p", entity.RoleHOD, entity.DepartmentProduction))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), ts.engine.lastID)
	assert.Equal(t, entity.Actor{UserID: "hod-p", Role: entity.RoleHOD, Department: entity.DepartmentProduction}, ts.engine.lastActor)
	assert.Equal(t, approval.DecisionInput{Decision: entity.DecisionApproved, Remarks: "ok"}, ts.engine.decision)
}

func TestTransition_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &approval.ValidationError{Field: "remarks", Reason: "required"}, http.StatusBadRequest, CodeValidation},
		{"evaluation required", &approval.EvaluationRequiredError{Department: entity.DepartmentAdmin, Role: entity.EvaluatorManager}, http.StatusBadRequest, CodeEvaluationRequired},
		{"authorization", &approval.AuthorizationError{Reason: "wrong department"}, http.StatusForbidden, CodeForbidden},
		{"stale", &approval.StaleStateError{Expected: []domainwf.State{domainwf.StatePendingCrossManager}, Actual: domainwf.StateApproved}, http.StatusConflict, CodeStaleState},
		{"duplicate", &approval.DuplicateSubmissionError{Department: entity.DepartmentAdmin}, http.StatusConflict, CodeDuplicate},
		{"internal", errors.New("database is locked"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.engine.err = tt.err

			w, resp := ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/manager-decision",
				map[string]string{"decision": "REJECTED", "remarks": "no"},
				identity("mgr-a", entity.RoleManager, entity.DepartmentAdmin))

			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", resp.Error)
			}
		})
	}
}

func TestTransition_UnknownRequest(t *testing.T) {
	ts := newTestServer()
	w, resp := ts.do(http.MethodPost, "/api/kaizen/KZ-2025-404/own-hod-decision",
		map[string]string{"decision": "APPROVED"},
		identity("hod-p", entity.RoleHOD, entity.DepartmentProduction))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, resp.Code)
}

func TestTransition_BindingValidation(t *testing.T) {
	ts := newTestServer()
	hdr := identity("mgr-a", entity.RoleManager, entity.DepartmentAdmin)

	w, resp := ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/manager-decision",
		map[string]string{"decision": "MAYBE"}, hdr)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, resp.Code)
	assert.Contains(t, resp.Error, "decision")

	w, _ = ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/department-evaluation",
		map[string]interface{}{
			"decision": "APPROVED",
			"answers":  []map[string]string{{"question_key": "admin.q1", "answer": "PERHAPS"}},
		}, hdr)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// approved must be present, false is a valid value
	w, _ = ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/gm-decision",
		map[string]string{"comments": "x"}, identity("gm-1", entity.RoleGM, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/gm-decision",
		map[string]interface{}{"approved": false, "comments": "not this year"}, identity("gm-1", entity.RoleGM, ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, ts.engine.exec.Approved)
	assert.Equal(t, "not this year", ts.engine.exec.Comments)
}

func TestSubmitEvaluation_ConvertsAnswers(t *testing.T) {
	ts := newTestServer()
	w, _ := ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/department-evaluation",
		map[string]interface{}{
			"decision": "APPROVED",
			"answers": []map[string]string{
				{"question_key": "admin.q1", "answer": "NO", "risk_level": "LOW"},
				{"question_key": "admin.q2", "answer": "YES"},
			},
		}, identity("hod-a", entity.RoleHOD, entity.DepartmentAdmin))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, ts.engine.eval.Answers, 2)
	assert.Equal(t, entity.AnswerNo, ts.engine.eval.Answers[0].Answer)
	assert.Equal(t, entity.RiskLow, ts.engine.eval.Answers[0].RiskLevel)
}

func TestActorMiddleware(t *testing.T) {
	ts := newTestServer()
	body := map[string]string{"decision": "APPROVED"}

	w, resp := ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/own-hod-decision", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeUnauthenticated, resp.Code)

	w, _ = ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/own-hod-decision", body,
		identity("x", "JANITOR", entity.DepartmentProduction))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/own-hod-decision", body,
		identity("x", entity.RoleHOD, "QUALITY"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// lower case headers are normalised
	w, _ = ts.do(http.MethodPost, "/api/kaizen/KZ-2025-001/own-hod-decision", body,
		map[string]string{HeaderUserID: "hod-p", HeaderUserRole: "hod", HeaderUserDepartment: "production"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.DepartmentProduction, ts.engine.lastActor.Department)
}

func TestListRequests_Filters(t *testing.T) {
	ts := newTestServer()
	w, resp := ts.do(http.MethodGet, "/api/requests?status=pending_agm,PENDING_GM&department=admin&limit=500&offset=-3", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, resp.Data)
	assert.Equal(t, []string{"PENDING_AGM", "PENDING_GM"}, ts.requests.lastFilter.Statuses)
	assert.Equal(t, entity.DepartmentAdmin, ts.requests.lastFilter.Department)
	assert.Equal(t, 20, ts.requests.lastFilter.Limit)
	assert.Equal(t, 0, ts.requests.lastFilter.Offset)
}

func TestCreateRequest(t *testing.T) {
	ts := newTestServer()
	ts.requests.createFunc = func(actor entity.Actor, in service.CreateRequestInput) (*entity.KaizenRequest, error) {
		return &entity.KaizenRequest{ID: 2, RequestCode: "KZ-2025-002", Title: in.Title, InitiatorID: actor.UserID}, nil
	}

	w, resp := ts.do(http.MethodPost, "/api/requests",
		map[string]interface{}{"title": "Sensor guard", "department": "ASSEMBLY"},
		identity("u-1", entity.RoleInitiator, entity.DepartmentAssembly))

	require.Equal(t, http.StatusCreated, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "KZ-2025-002", data["request_code"])
	assert.Equal(t, "u-1", data["initiator_id"])
}

func TestQuestionnaire(t *testing.T) {
	ts := newTestServer()

	w, resp := ts.do(http.MethodGet, "/api/questionnaires/accounts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Len(t, data["questions"], 3)

	w, resp = ts.do(http.MethodGet, "/api/questionnaires/QUALITY", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, resp.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	ts := newTestServer()

	w, _ := ts.do(http.MethodGet, "/api/settings/thresholds", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := ts.do(http.MethodGet, "/api/settings", nil, identity("h1", entity.RoleHOD, entity.DepartmentAdmin))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, CodeForbidden, resp.Code)

	w, _ = ts.do(http.MethodGet, "/api/settings", nil, identity("admin", entity.RoleAdmin, ""))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(http.MethodPut, "/api/settings",
		map[string]interface{}{"costThresholds": map[string]int{"hodLimit": 30000, "agmLimit": 90000}},
		identity("admin", entity.RoleAdmin, ""))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, ts.settings.updated)
	assert.Equal(t, int64(30000), ts.settings.updated.CostThresholds.HodLimit)
}

func TestApprovalSheetDownload(t *testing.T) {
	ts := newTestServer()
	w, _ := ts.do(http.MethodGet, "/api/kaizen/KZ-2025-001/approval-sheet", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "KZ-2025-001-approval-sheet.xlsx")
}

func TestListDepartments(t *testing.T) {
	ts := newTestServer()
	w, resp := ts.do(http.MethodGet, "/api/departments", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 5)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer()
	w, _ := ts.do(http.MethodOptions, "/api/requests", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderUserRole)
}
