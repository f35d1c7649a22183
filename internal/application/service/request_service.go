package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kaizenflow/kaizen-approvals/internal/application/dispatcher"
	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/event"
	domainwf "github.com/kaizenflow/kaizen-approvals/internal/domain/workflow"
	"github.com/kaizenflow/kaizen-approvals/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateRequestInput is the initiator's Kaizen submission
type CreateRequestInput struct {
	Title                    string   `json:"title" validate:"required,max=200"`
	StationName              string   `json:"station_name" validate:"required"`
	AssemblyLine             string   `json:"assembly_line"`
	IssueDescription         string   `json:"issue_description" validate:"required"`
	PokaYokeDescription      string   `json:"poka_yoke_description"`
	ReasonForImplementation  string   `json:"reason_for_implementation"`
	Program                  string   `json:"program" validate:"required"`
	CustomerPartNumber       string   `json:"customer_part_number" validate:"required"`
	DateOfOrigination        string   `json:"date_of_origination" validate:"omitempty,datetime=2006-01-02"`
	Department               string   `json:"department" validate:"required,department"`
	FeasibilityStatus        string   `json:"feasibility_status" validate:"omitempty,oneof=FEASIBLE NOT_FEASIBLE"`
	FeasibilityReason        string   `json:"feasibility_reason"`
	ExpectedBenefits         []string `json:"expected_benefits" validate:"dive,required"`
	EffectOfChanges          []string `json:"effect_of_changes" validate:"dive,required"`
	CostEstimate             int64    `json:"cost_estimate" validate:"gte=0"`
	CostCurrency             string   `json:"cost_currency" validate:"omitempty,len=3,uppercase"`
	CostJustification        string   `json:"cost_justification"`
	SpareCostIncluded        bool     `json:"spare_cost_included"`
	RequiresProcessAddition  bool     `json:"requires_process_addition"`
	RequiresManpowerAddition bool     `json:"requires_manpower_addition"`
	Draft                    bool     `json:"draft"`
}

// RequestDetail is the full read model of one request
type RequestDetail struct {
	Request     *entity.KaizenRequest          `json:"request"`
	Stage       domainwf.Stage                 `json:"current_stage"`
	Ledger      *entity.Ledger                 `json:"ledger"`
	Evaluations []*entity.DepartmentEvaluation `json:"evaluations"`
	Pending     []entity.Department            `json:"pending_departments"`
}

// RequestService manages Kaizen requests outside of stage transitions
type RequestService interface {
	Create(ctx context.Context, actor entity.Actor, in CreateRequestInput) (*entity.KaizenRequest, error)
	GetByCode(ctx context.Context, code string) (*entity.KaizenRequest, error)
	List(ctx context.Context, filter port.RequestFilter) ([]*entity.KaizenRequest, error)
	Detail(ctx context.Context, code string) (*RequestDetail, error)
	Evaluations(ctx context.Context, code string) ([]*entity.DepartmentEvaluation, error)
	AuditTrail(ctx context.Context, code string) ([]*entity.AuditEvent, error)
}

// RequestStores groups the repositories the request service reads
type RequestStores struct {
	Requests    port.RequestRepository
	Managers    port.ManagerDecisionRepository
	Hods        port.HodDecisionRepository
	Executives  port.ExecutiveDecisionRepository
	Evaluations port.EvaluationRepository
	Audit       port.AuditRepository
}

type requestServiceImpl struct {
	stores          RequestStores
	txManager       port.TransactionManager
	dispatcher      dispatcher.Dispatcher
	validate        *validator.Validate
	departments     []entity.Department
	defaultCurrency string
	logger          Logger
	now             func() time.Time
}

// NewRequestService creates a new RequestService. d may be nil.
func NewRequestService(
	stores RequestStores,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	defaultCurrency string,
	logger Logger,
) RequestService {
	if defaultCurrency == "" {
		defaultCurrency = entity.DefaultCurrency
	}
	return &requestServiceImpl{
		stores:          stores,
		txManager:       txManager,
		dispatcher:      d,
		validate:        utils.NewValidator(),
		departments:     entity.AllDepartments(),
		defaultCurrency: defaultCurrency,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the submission, allocates the next KZ-{year}-{NNN} code and stores the request
func (s *requestServiceImpl) Create(ctx context.Context, actor entity.Actor, in CreateRequestInput) (*entity.KaizenRequest, error) {
	if !actor.Is(entity.RoleInitiator) {
		return nil, &approval.AuthorizationError{Reason: fmt.Sprintf("role %s cannot create requests", actor.Role)}
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	now := s.now()
	status := domainwf.InitialState
	if in.Draft {
		status = domainwf.StateDraft
	}
	currency := in.CostCurrency
	if currency == "" {
		currency = s.defaultCurrency
	}
	origination := in.DateOfOrigination
	if origination == "" {
		origination = now.Format("2006-01-02")
	}

	req := &entity.KaizenRequest{
		Title:                    clean(in.Title),
		StationName:              clean(in.StationName),
		AssemblyLine:             clean(in.AssemblyLine),
		IssueDescription:         clean(in.IssueDescription),
		PokaYokeDescription:      clean(in.PokaYokeDescription),
		ReasonForImplementation:  clean(in.ReasonForImplementation),
		Program:                  clean(in.Program),
		CustomerPartNumber:       clean(in.CustomerPartNumber),
		DateOfOrigination:        origination,
		Department:               entity.Department(in.Department),
		InitiatorID:              actor.UserID,
		FeasibilityStatus:        entity.FeasibilityStatus(in.FeasibilityStatus),
		FeasibilityReason:        clean(in.FeasibilityReason),
		ExpectedBenefits:         in.ExpectedBenefits,
		EffectOfChanges:          in.EffectOfChanges,
		CostEstimate:             in.CostEstimate,
		CostCurrency:             currency,
		CostJustification:        clean(in.CostJustification),
		SpareCostIncluded:        in.SpareCostIncluded,
		RequiresProcessAddition:  in.RequiresProcessAddition,
		RequiresManpowerAddition: in.RequiresManpowerAddition,
		Status:                   status.String(),
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		count, err := s.stores.Requests.CountByCodePrefix(txCtx, entity.RequestCodePrefix(now.Year()))
		if err != nil {
			return fmt.Errorf("count request codes: %w", err)
		}
		req.RequestCode = entity.FormatRequestCode(now.Year(), count+1)

		if err := s.stores.Requests.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		audit := entity.NewRequestAudit(req.ID, actor.UserID, entity.AuditRequestCreated, map[string]interface{}{
			"request_code":  req.RequestCode,
			"department":    string(req.Department),
			"cost_estimate": req.CostEstimate,
			"status":        req.Status,
		})
		audit.Timestamp = now
		if err := s.stores.Audit.Append(txCtx, audit); err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create request", "error", err, "initiator_id", actor.UserID)
		return nil, err
	}

	s.logger.Info("Request created",
		"request_code", req.RequestCode,
		"department", req.Department,
		"status", req.Status,
	)

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeRequestCreated, req.ID, req.RequestCode, map[string]interface{}{
			event.KeyInitiatorID:  req.InitiatorID,
			event.KeyDepartment:   string(req.Department),
			event.KeyNewState:     req.Status,
			event.KeyCostEstimate: req.CostEstimate,
		}))
	}

	return req, nil
}

// GetByCode returns the request or ErrRequestNotFound
func (s *requestServiceImpl) GetByCode(ctx context.Context, code string) (*entity.KaizenRequest, error) {
	req, err := s.stores.Requests.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", code, approval.ErrRequestNotFound)
	}
	return req, nil
}

// List returns requests matching the filter
func (s *requestServiceImpl) List(ctx context.Context, filter port.RequestFilter) ([]*entity.KaizenRequest, error) {
	if filter.Department != "" && !filter.Department.IsValid() {
		return nil, &approval.ValidationError{Field: "department", Reason: "unknown department"}
	}
	for _, st := range filter.Statuses {
		if !domainwf.State(st).IsValid() {
			return nil, &approval.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", st)}
		}
	}

	requests, err := s.stores.Requests.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// Detail assembles the request, its ledger, evaluations and the departments still pending
func (s *requestServiceImpl) Detail(ctx context.Context, code string) (*RequestDetail, error) {
	req, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	managers, err := s.stores.Managers.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("list manager decisions: %w", err)
	}
	hods, err := s.stores.Hods.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("list hod decisions: %w", err)
	}
	executives, err := s.stores.Executives.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("list executive decisions: %w", err)
	}
	evaluations, err := s.stores.Evaluations.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}

	state := domainwf.State(req.Status)
	detail := &RequestDetail{
		Request:     req,
		Stage:       state.Stage(),
		Ledger:      &entity.Ledger{Managers: managers, Hods: hods, Executives: executives},
		Evaluations: evaluations,
		Pending:     []entity.Department{},
	}

	switch state {
	case domainwf.StatePendingCrossManager:
		detail.Pending = approval.PendingDepartments(s.departments, req.Department, detail.Ledger.ManagerVerdicts())
	case domainwf.StatePendingCrossHod:
		detail.Pending = approval.PendingDepartments(s.departments, req.Department, detail.Ledger.HodVerdicts(entity.HodStageCross))
	}

	return detail, nil
}

// Evaluations returns every department evaluation recorded for the request
func (s *requestServiceImpl) Evaluations(ctx context.Context, code string) ([]*entity.DepartmentEvaluation, error) {
	req, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	evaluations, err := s.stores.Evaluations.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return evaluations, nil
}

// AuditTrail returns the request's audit rows, oldest first
func (s *requestServiceImpl) AuditTrail(ctx context.Context, code string) ([]*entity.AuditEvent, error) {
	req, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	events, err := s.stores.Audit.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

func clean(s string) string {
	return strings.TrimSpace(utils.SanitizeString(s))
}

// validationError turns the first validator failure into a domain ValidationError
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &approval.ValidationError{Field: "request", Reason: err.Error()}
	}
	fe := verrs[0]
	return &approval.ValidationError{
		Field:  fe.Field(),
		Reason: fmt.Sprintf("failed %s validation", fe.Tag()),
	}
}
