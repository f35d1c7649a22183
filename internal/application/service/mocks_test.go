package service

import (
	"context"
	"strings"

	"github.com/kaizenflow/kaizen-approvals/internal/application/dispatcher"
	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/event"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockRequestRepo struct {
	requests  []*entity.KaizenRequest
	createErr error
	listFunc  func(ctx context.Context, filter port.RequestFilter) ([]*entity.KaizenRequest, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.KaizenRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	req.ID = int64(len(m.requests) + 1)
	m.requests = append(m.requests, req)
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.KaizenRequest, error) {
	for _, r := range m.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRequestRepo) GetByCode(ctx context.Context, code string) (*entity.KaizenRequest, error) {
	for _, r := range m.requests {
		if r.RequestCode == code {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.KaizenRequest, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return m.requests, nil
}

func (m *mockRequestRepo) CountByCodePrefix(ctx context.Context, prefix string) (int, error) {
	n := 0
	for _, r := range m.requests {
		if strings.HasPrefix(r.RequestCode, prefix) {
			n++
		}
	}
	return n, nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id int64, expected, next string, rejection *entity.Rejection) (bool, error) {
	return false, nil
}

type mockManagerRepo struct {
	decisions []*entity.ManagerDecision
}

func (m *mockManagerRepo) Create(ctx context.Context, d *entity.ManagerDecision) error {
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *mockManagerRepo) GetByDepartment(ctx context.Context, requestID int64, dept entity.Department) (*entity.ManagerDecision, error) {
	return nil, nil
}

func (m *mockManagerRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.ManagerDecision, error) {
	return m.decisions, nil
}

type mockHodRepo struct {
	decisions []*entity.HodDecision
}

func (m *mockHodRepo) Create(ctx context.Context, d *entity.HodDecision) error {
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *mockHodRepo) GetByDepartment(ctx context.Context, requestID int64, dept entity.Department, stage entity.HodStageType) (*entity.HodDecision, error) {
	return nil, nil
}

func (m *mockHodRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.HodDecision, error) {
	return m.decisions, nil
}

type mockExecutiveRepo struct {
	decisions []*entity.ExecutiveDecision
}

func (m *mockExecutiveRepo) Create(ctx context.Context, d *entity.ExecutiveDecision) error {
	m.decisions = append(m.decisions, d)
	return nil
}

func (m *mockExecutiveRepo) GetByLevel(ctx context.Context, requestID int64, level entity.ExecutiveLevel) (*entity.ExecutiveDecision, error) {
	return nil, nil
}

func (m *mockExecutiveRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.ExecutiveDecision, error) {
	return m.decisions, nil
}

type mockEvaluationRepo struct {
	evaluations []*entity.DepartmentEvaluation
}

func (m *mockEvaluationRepo) Create(ctx context.Context, e *entity.DepartmentEvaluation) error {
	m.evaluations = append(m.evaluations, e)
	return nil
}

func (m *mockEvaluationRepo) Get(ctx context.Context, requestID int64, dept entity.Department, role entity.EvaluatorRole) (*entity.DepartmentEvaluation, error) {
	return nil, nil
}

func (m *mockEvaluationRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.DepartmentEvaluation, error) {
	return m.evaluations, nil
}

type mockAuditRepo struct {
	events    []*entity.AuditEvent
	appendErr error
}

func (m *mockAuditRepo) Append(ctx context.Context, evt *entity.AuditEvent) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.events = append(m.events, evt)
	return nil
}

func (m *mockAuditRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.AuditEvent, error) {
	var out []*entity.AuditEvent
	for _, e := range m.events {
		if e.RequestID != nil && *e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockSettingsRepo struct {
	values map[string][]byte
	getErr error
}

func (m *mockSettingsRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.values[key], nil
}

func (m *mockSettingsRepo) Put(ctx context.Context, key string, value []byte, updatedBy string) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	m.values[key] = value
	return nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockDispatcher struct {
	events      []*event.Event
	subscribed  []event.Type
	handlerName string
	handler     dispatcher.Handler
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (m *mockDispatcher) SubscribeAll(eventTypes []event.Type, name, description string, handler dispatcher.Handler) {
	m.subscribed = eventTypes
	m.handlerName = name
	m.handler = handler
}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.events = append(m.events, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.events = append(m.events, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func (m *mockDispatcher) Close() error {
	return nil
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) Invalidate(ctx context.Context) error {
	m.calls++
	return nil
}

type mockNotifier struct {
	sent       []port.Notification
	notifyFunc func(ctx context.Context, n port.Notification) error
}

func (m *mockNotifier) Notify(ctx context.Context, n port.Notification) error {
	if m.notifyFunc != nil {
		return m.notifyFunc(ctx, n)
	}
	m.sent = append(m.sent, n)
	return nil
}

type mockSheetStore struct {
	saved map[string][]byte
}

func (m *mockSheetStore) Save(ctx context.Context, name string, content []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[name] = content
	return "/archive/" + name, nil
}

type fakeSettings struct {
	settings entity.Settings
}

func (f *fakeSettings) CostThresholds(ctx context.Context) (entity.CostThresholds, error) {
	return f.settings.CostThresholds, nil
}

func (f *fakeSettings) Settings(ctx context.Context) (*entity.Settings, error) {
	s := f.settings
	return &s, nil
}
