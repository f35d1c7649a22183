package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kaizenflow/kaizen-approvals/internal/application/dispatcher"
	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/event"
	domainwf "github.com/kaizenflow/kaizen-approvals/internal/domain/workflow"
)

const tracerName = "github.com/kaizenflow/kaizen-approvals/workflow"

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Stores groups the repositories the engine reads and writes inside its transactions
type Stores struct {
	Requests    port.RequestRepository
	Managers    port.ManagerDecisionRepository
	Hods        port.HodDecisionRepository
	Executives  port.ExecutiveDecisionRepository
	Evaluations port.EvaluationRepository
	Audit       port.AuditRepository
}

type engineImpl struct {
	stores      Stores
	txManager   port.TransactionManager
	settings    port.SettingsProvider
	dispatcher  dispatcher.Dispatcher
	catalog     approval.Catalog
	departments []entity.Department
	logger      Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithCatalog replaces the default evaluation questionnaires
func WithCatalog(c approval.Catalog) EngineOption {
	return func(e *engineImpl) {
		e.catalog = c
	}
}

// WithDepartments overrides the department enumeration used for quorum
func WithDepartments(depts []entity.Department) EngineOption {
	return func(e *engineImpl) {
		e.departments = depts
	}
}

// WithLogger sets a logger for the engine
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithTracer sets the tracer used for per-transition spans
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *engineImpl) {
		e.tracer = t
	}
}

// WithClock sets the time source for ledger timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(stores Stores, txManager port.TransactionManager, settings port.SettingsProvider, opts ...EngineOption) Engine {
	e := &engineImpl{
		stores:      stores,
		txManager:   txManager,
		settings:    settings,
		catalog:     approval.DefaultCatalog(),
		departments: entity.AllDepartments(),
		tracer:      otel.Tracer(tracerName),
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// submission describes one engine operation. run executes it inside a single transaction.
type submission struct {
	op        string
	actor     entity.Actor
	expected  []domainwf.State
	trigger   domainwf.Trigger
	eventType event.Type
	payload   map[string]interface{}

	// check runs authorization, duplicate, evaluation-gate and input checks, in that order
	check func(ctx context.Context, req *entity.KaizenRequest) error
	// record writes ledger rows and returns the audit rows describing them
	record func(ctx context.Context, req *entity.KaizenRequest) ([]*entity.AuditEvent, error)
	// guards evaluates quorum and routing once the ledger includes the new record
	guards func(ctx context.Context, req *entity.KaizenRequest, res *TransitionResult) (Guards, error)
	// rejection builds the rejection fields when the request enters a rejected state
	rejection func(req *entity.KaizenRequest) *entity.Rejection
	// milestones returns audit rows for stage completion
	milestones func(req *entity.KaizenRequest, res *TransitionResult) []*entity.AuditEvent
}

func (e *engineImpl) run(ctx context.Context, requestID int64, s submission) (*TransitionResult, error) {
	ctx, span := e.tracer.Start(ctx, "workflow."+s.op, trace.WithAttributes(
		attribute.Int64("kaizen.request_id", requestID),
		attribute.String("kaizen.actor_role", string(s.actor.Role)),
		attribute.String("kaizen.actor_department", string(s.actor.Department)),
		attribute.String("kaizen.trigger", s.trigger.String()),
	))
	defer span.End()

	var (
		req *entity.KaizenRequest
		res *TransitionResult
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = e.load(txCtx, requestID)
		if err != nil {
			return err
		}

		current := domainwf.State(req.Status)
		if !contains(s.expected, current) {
			return &approval.StaleStateError{Expected: s.expected, Actual: current}
		}

		if s.check != nil {
			if err := s.check(txCtx, req); err != nil {
				return err
			}
		}

		var audits []*entity.AuditEvent
		if s.record != nil {
			if audits, err = s.record(txCtx, req); err != nil {
				return err
			}
		}

		res = &TransitionResult{
			RequestID:     req.ID,
			RequestCode:   req.RequestCode,
			PreviousState: current,
		}

		var guards Guards
		if s.guards != nil && s.trigger == domainwf.TriggerApprove {
			if guards, err = s.guards(txCtx, req, res); err != nil {
				return err
			}
		}

		machine := BuildKaizenStateMachine(current, guards)
		if err := machine.Fire(txCtx, s.trigger); err != nil {
			return fmt.Errorf("transition %s from %s: %w", s.trigger, current, err)
		}
		res.NewState = machine.State()

		var rejection *entity.Rejection
		if res.NewState.IsRejected() && s.rejection != nil {
			rejection = s.rejection(req)
		}

		updated, err := e.stores.Requests.UpdateStatus(txCtx, req.ID, current.String(), res.NewState.String(), rejection)
		if err != nil {
			return fmt.Errorf("failed to update request status: %w", err)
		}
		if !updated {
			return e.staleAfterRace(txCtx, req.ID, s.expected)
		}

		if s.milestones != nil {
			audits = append(audits, s.milestones(req, res)...)
		}
		for _, a := range audits {
			a.Timestamp = e.now()
			if err := e.stores.Audit.Append(txCtx, a); err != nil {
				return fmt.Errorf("failed to write audit %s: %w", a.Action, err)
			}
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if e.logger != nil {
			e.logger.Error("Submission refused",
				"op", s.op,
				"request_id", requestID,
				"actor_id", s.actor.UserID,
				"actor_role", s.actor.Role,
				"error", err,
			)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("kaizen.previous_state", res.PreviousState.String()),
		attribute.String("kaizen.new_state", res.NewState.String()),
		attribute.Bool("kaizen.quorum_met", res.QuorumMet),
	)

	if e.logger != nil {
		e.logger.Info("Submission accepted",
			"op", s.op,
			"request_code", res.RequestCode,
			"actor_id", s.actor.UserID,
			"previous_state", res.PreviousState,
			"new_state", res.NewState,
		)
	}

	e.publish(ctx, req, s, res)
	return res, nil
}

func (e *engineImpl) load(ctx context.Context, requestID int64) (*entity.KaizenRequest, error) {
	req, err := e.stores.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("request %d: %w", requestID, approval.ErrRequestNotFound)
	}
	return req, nil
}

// staleAfterRace reports the state that won when the compare-and-set matched no row
func (e *engineImpl) staleAfterRace(ctx context.Context, requestID int64, expected []domainwf.State) error {
	req, err := e.load(ctx, requestID)
	if err != nil {
		return err
	}
	return &approval.StaleStateError{Expected: expected, Actual: domainwf.State(req.Status)}
}

// publish emits post-commit events; delivery is fire-and-forget
func (e *engineImpl) publish(ctx context.Context, req *entity.KaizenRequest, s submission, res *TransitionResult) {
	if e.dispatcher == nil {
		return
	}
	correlationID := uuid.NewString()

	if s.eventType != "" {
		payload := make(map[string]interface{}, len(s.payload)+3)
		for k, v := range s.payload {
			payload[k] = v
		}
		payload[event.KeyActorID] = s.actor.UserID
		payload[event.KeyActorRole] = string(s.actor.Role)
		payload[event.KeyNewState] = res.NewState.String()
		e.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(s.eventType, req.ID, req.RequestCode, payload, correlationID))
	}

	if !res.Changed() {
		return
	}

	payload := map[string]interface{}{
		event.KeyPreviousState: res.PreviousState.String(),
		event.KeyNewState:      res.NewState.String(),
		event.KeyActorID:       s.actor.UserID,
		event.KeyActorRole:     string(s.actor.Role),
		event.KeyInitiatorID:   req.InitiatorID,
		event.KeyDepartment:    string(req.Department),
		event.KeyCostEstimate:  req.CostEstimate,
	}
	if res.Route != nil {
		payload[event.KeyRoute] = res.Route.Target.String()
		payload[event.KeyRouteReason] = string(res.Route.Reason)
	}
	e.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeStatusChanged, req.ID, req.RequestCode, payload, correlationID))
}

// SubmitDraft implements Engine
func (e *engineImpl) SubmitDraft(ctx context.Context, requestID int64, actor entity.Actor) (*TransitionResult, error) {
	return e.run(ctx, requestID, submission{
		op:       "submit_draft",
		actor:    actor,
		expected: []domainwf.State{domainwf.StateDraft},
		trigger:  domainwf.TriggerSubmit,
		check: func(ctx context.Context, req *entity.KaizenRequest) error {
			if actor.UserID != req.InitiatorID {
				return &approval.AuthorizationError{Reason: "only the initiator can submit a draft"}
			}
			return nil
		},
		record: func(ctx context.Context, req *entity.KaizenRequest) ([]*entity.AuditEvent, error) {
			return []*entity.AuditEvent{
				entity.NewRequestAudit(req.ID, actor.UserID, entity.AuditRequestSubmitted, map[string]interface{}{
					"request_code": req.RequestCode,
				}),
			}, nil
		},
	})
}

// SubmitOwnHodDecision implements Engine
func (e *engineImpl) SubmitOwnHodDecision(ctx context.Context, requestID int64, actor entity.Actor, in approval.DecisionInput) (*TransitionResult, error) {
	return e.run(ctx, requestID, submission{
		op:        "own_hod_decision",
		actor:     actor,
		expected:  []domainwf.State{domainwf.StatePendingOwnHod},
		trigger:   decisionTrigger(in.Decision),
		eventType: event.TypeDecisionRecorded,
		payload:   decisionPayload(domainwf.StageOwnHod, actor.Department, in.Decision, in.Remarks),
		check: checks(
			func(ctx context.Context, req *entity.KaizenRequest) error {
				if !actor.Is(entity.RoleHOD) {
					return roleError(actor, entity.RoleHOD)
				}
				if actor.Department != req.Department {
					return &approval.AuthorizationError{Reason: fmt.Sprintf("only the %s HOD can sign off at the own-department stage", req.Department)}
				}
				return nil
			},
			func(ctx context.Context, req *entity.KaizenRequest) error {
				prior, err := e.stores.Hods.GetByDepartment(ctx, req.ID, actor.Department, entity.HodStageOwn)
				if err != nil {
					return fmt.Errorf("failed to check prior HOD decision: %w", err)
				}
				if prior != nil {
					return &approval.DuplicateSubmissionError{Department: actor.Department, Stage: domainwf.StageOwnHod}
				}
				return nil
			},
			func(ctx context.Context, req *entity.KaizenRequest) error {
				return approval.ValidateDecision(in)
			},
		),
		record: func(ctx context.Context, req *entity.KaizenRequest) ([]*entity.AuditEvent, error) {
			if err := e.recordHod(ctx, req, actor, in, entity.HodStageOwn, domainwf.StageOwnHod); err != nil {
				return nil, err
			}
			action := entity.AuditOwnHodApproved
			if in.Decision == entity.DecisionRejected {
				action = entity.AuditOwnHodRejected
			}
			return []*entity.AuditEvent{decisionAudit(req, actor, action, in)}, nil
		},
		rejection: func(req *entity.KaizenRequest) *entity.Rejection {
			return &entity.Rejection{Reason: strings.TrimSpace(in.Remarks), By: actor.UserID, Department: actor.Department}
		},
	})
}

// SubmitManagerDecision implements Engine
func (e *engineImpl) SubmitManagerDecision(ctx context.Context, requestID int64, actor entity.Actor, in approval.DecisionInput) (*TransitionResult, error) {
	return e.run(ctx, requestID, submission{
		op:        "manager_decision",
		actor:     actor,
		expected:  []domainwf.State{domainwf.StatePendingCrossManager},
		trigger:   decisionTrigger(in.Decision),
		eventType: event.TypeDecisionRecorded,
		payload:   decisionPayload(domainwf.StageCrossManager, actor.Department, in.Decision, in.Remarks),
		check: checks(
			e.crossEligible(actor, entity.RoleManager),
			e.noPriorManager(actor),
			e.evaluationGate(actor, entity.EvaluatorManager),
			func(ctx context.Context, req *entity.KaizenRequest) error {
				return approval.ValidateDecision(in)
			},
		),
		record: func(ctx context.Context, req *entity.KaizenRequest) ([]*entity.AuditEvent, error) {
			return e.recordManager(ctx, req, actor, in)
		},
		guards:     e.managerQuorum,
		rejection:  crossRejection(actor, "Manager", in.Remarks),
		milestones: e.managerMilestones(actor),
	})
}

// SubmitCrossHodDecision implements Engine
func (e *engineImpl) SubmitCrossHodDecision(ctx context.Context, requestID int64, actor entity.Actor, in approval.DecisionInput) (*TransitionResult, error) {
	return e.run(ctx, requestID, submission{
		op:        "cross_hod_decision",
		actor:     actor,
		expected:  []domainwf.State{domainwf.StatePendingCrossHod},
		trigger:   decisionTrigger(in.Decision),
		eventType: event.TypeDecisionRecorded,
		payload:   decisionPayload(domainwf.StageCrossHod, actor.Department, in.Decision, in.Remarks),
		check: checks(
			e.crossEligible(actor, entity.RoleHOD),
			e.noPriorCrossHod(actor),
			e.evaluationGate(actor, entity.EvaluatorHOD),
			func(ctx context.Context, req *entity.KaizenRequest) error {
				return approval.ValidateDecision(in)
			},
		),
		record: func(ctx context.Context, req *entity.KaizenRequest) ([]*entity.AuditEvent, error) {
			return e.recordCrossHod(ctx, req, actor, in)
		},
		guards:     e.crossHodQuorumAndRoute,
		rejection:  crossRejection(actor, "HOD", in.Remarks),
		milestones: e.crossHodMilestones(actor),
	})
}

// SubmitEvaluation implements Engine
func (e *engineImpl) SubmitEvaluation(ctx context.Context, requestID int64, actor entity.Actor, in approval.EvaluationInput) (*TransitionResult, error) {
	decision := approval.DecisionInput{Decision: in.Decision, Remarks: in.Remarks}

	s := submission{
		op:        "department_evaluation",
		actor:     actor,
		trigger:   decisionTrigger(in.Decision),
		eventType: event.TypeEvaluationSubmitted,
	}

	var (
		role          entity.EvaluatorRole
		stage         domainwf.Stage
		noPrior       func(ctx context.Context, req *entity.KaizenRequest) error
		recordDecision     func(ctx context.Context, req *entity.KaizenRequest) ([]*entity.AuditEvent, error)
		requiredRole  entity.Role
		rejectionRole string
	)

	switch actor.Role {
	case entity.RoleManager:
		role, stage, requiredRole, rejectionRole = entity.EvaluatorManager, domainwf.StageCrossManager, entity.RoleManager, "Manager"
		s.expected = []domainwf.State{domainwf.StatePendingCrossManager}
		noPrior = e.noPriorManager(actor)
		recordDecision = func(ctx context.Context, req *entity.KaizenRequest) ([]*entity.AuditEvent, error) {
			return e.recordManager(ctx, req, actor, decision)
		}
		s.guards = e.managerQuorum
		s.milestones = e.managerMilestones(actor)
	case entity.RoleHOD:
		role, stage, requiredRole, rejectionRole = entity.EvaluatorHOD, domainwf.StageCrossHod, entity.RoleHOD, "HOD"
		s.expected = []domainwf.State{domainwf.StatePendingCrossHod}
		noPrior = e.noPriorCrossHod(actor)
		recordDecision = func(ctx context.Context, req *entity.KaizenRequest) ([]*entity.AuditEvent, error) {
			return e.recordCrossHod(ctx, req, actor, decision)
		}
		s.guards = e.crossHodQuorumAndRoute
		s.milestones = e.crossHodMilestones(actor)
	default:
		// no stage accepts evaluations from this role; report staleness first, then authorization
		s.expected = []domainwf.State{domainwf.StatePendingCrossManager, domainwf.StatePendingCrossHod}
		s.check = func(ctx context.Context, req *entity.KaizenRequest) error {
			return &approval.AuthorizationError{Reason: fmt.Sprintf("role %s cannot submit department evaluations", actor.Role)}
		}
		return e.run(ctx, requestID, s)
	}

	questions := e.catalog.Questions(actor.Department)
	overall := entity.CalculateOverallRisk(in.Answers)

	s.payload = decisionPayload(stage, actor.Department, in.Decision, in.Remarks)
	s.payload[event.KeyOverallRisk] = string(overall)
	s.rejection = crossRejection(actor, rejectionRole, in.Remarks)
	s.check = checks(
		e.crossEligible(actor, requiredRole),
		noPrior,
		func(ctx context.Context, req *entity.KaizenRequest) error {
			prior, err := e.stores.Evaluations.Get(ctx, req.ID, actor.Department, role)
			if err != nil {
				return fmt.Errorf("failed to check prior evaluation: %w", err)
			}
			if prior != nil {
				return &approval.DuplicateSubmissionError{Department: actor.Department, Stage: stage}
			}
			return nil
		},
		func(ctx context.Context, req *entity.KaizenRequest) error {
			return approval.ValidateEvaluation(questions, in)
		},
	)
	s.record = func(ctx context.Context, req *entity.KaizenRequest) ([]*entity.AuditEvent, error) {
		eval := &entity.DepartmentEvaluation{
			RequestID:       req.ID,
			Department:      actor.Department,
			EvaluatorUserID: actor.UserID,
			EvaluatorRole:   role,
			Answers:         in.Answers,
			Decision:        in.Decision,
			Remarks:         strings.TrimSpace(in.Remarks),
			OverallRisk:     overall,
			CreatedAt:       e.now(),
		}
		if err := e.stores.Evaluations.Create(ctx, eval); err != nil {
			return nil, duplicateOr(err, actor.Department, stage, "failed to record evaluation")
		}

		audits, err := recordDecision(ctx, req)
		if err != nil {
			return nil, err
		}

		submitted := entity.NewRequestAudit(req.ID, actor.UserID, entity.AuditEvaluationSubmitted, map[string]interface{}{
			"department":    string(actor.Department),
			"role":          string(role),
			"decision":      string(in.Decision),
			"overall_risk":  string(overall),
			"answers_count": len(in.Answers),
		})
		return append([]*entity.AuditEvent{submitted}, audits...), nil
	}

	return e.run(ctx, requestID, s)
}

// SubmitAgmDecision implements Engine
func (e *engineImpl) SubmitAgmDecision(ctx context.Context, requestID int64, actor entity.Actor, in approval.ExecutiveInput) (*TransitionResult, error) {
	return e.executive(ctx, requestID, actor, in, executiveStage{
		op:             "agm_decision",
		level:          entity.ExecutiveAGM,
		role:           entity.RoleAGM,
		state:          domainwf.StatePendingAGM,
		stage:          domainwf.StageAGM,
		approvedAudit:  entity.AuditAGMApproved,
		rejectedAudit:  entity.AuditAGMRejected,
		rejectionLabel: "Rejected by AGM",
	})
}

// SubmitGmDecision implements Engine
func (e *engineImpl) SubmitGmDecision(ctx context.Context, requestID int64, actor entity.Actor, in approval.ExecutiveInput) (*TransitionResult, error) {
	return e.executive(ctx, requestID, actor, in, executiveStage{
		op:             "gm_decision",
		level:          entity.ExecutiveGM,
		role:           entity.RoleGM,
		state:          domainwf.StatePendingGM,
		stage:          domainwf.StageGM,
		approvedAudit:  entity.AuditGMApproved,
		rejectedAudit:  entity.AuditGMRejected,
		rejectionLabel: "Final rejection by GM",
	})
}

// GetCurrentState implements Engine
func (e *engineImpl) GetCurrentState(ctx context.Context, requestID int64) (domainwf.State, error) {
	req, err := e.load(ctx, requestID)
	if err != nil {
		return "", err
	}
	return domainwf.State(req.Status), nil
}

type executiveStage struct {
	op             string
	level          entity.ExecutiveLevel
	role           entity.Role
	state          domainwf.State
	stage          domainwf.Stage
	approvedAudit  string
	rejectedAudit  string
	rejectionLabel string
}

func (e *engineImpl) executive(ctx context.Context, requestID int64, actor entity.Actor, in approval.ExecutiveInput, st executiveStage) (*TransitionResult, error) {
	trigger := domainwf.TriggerReject
	decision := entity.DecisionRejected
	if in.Approved {
		trigger = domainwf.TriggerApprove
		decision = entity.DecisionApproved
	}

	payload := decisionPayload(st.stage, "", decision, in.Comments)

	return e.run(ctx, requestID, submission{
		op:        st.op,
		actor:     actor,
		expected:  []domainwf.State{st.state},
		trigger:   trigger,
		eventType: event.TypeDecisionRecorded,
		payload:   payload,
		check: checks(
			func(ctx context.Context, req *entity.KaizenRequest) error {
				if !actor.Is(st.role) {
					return roleError(actor, st.role)
				}
				return nil
			},
			func(ctx context.Context, req *entity.KaizenRequest) error {
				prior, err := e.stores.Executives.GetByLevel(ctx, req.ID, st.level)
				if err != nil {
					return fmt.Errorf("failed to check prior %s decision: %w", st.level, err)
				}
				if prior != nil {
					return &approval.DuplicateSubmissionError{Stage: st.stage}
				}
				return nil
			},
			func(ctx context.Context, req *entity.KaizenRequest) error {
				return approval.ValidateExecutive(in)
			},
		),
		record: func(ctx context.Context, req *entity.KaizenRequest) ([]*entity.AuditEvent, error) {
			d := &entity.ExecutiveDecision{
				RequestID:         req.ID,
				Level:             st.level,
				ApprovedBy:        actor.UserID,
				Approved:          in.Approved,
				Comments:          strings.TrimSpace(in.Comments),
				CostJustification: strings.TrimSpace(in.CostJustification),
				CreatedAt:         e.now(),
			}
			if err := e.stores.Executives.Create(ctx, d); err != nil {
				return nil, duplicateOr(err, "", st.stage, "failed to record executive decision")
			}

			action := st.rejectedAudit
			if in.Approved {
				action = st.approvedAudit
			}
			details := map[string]interface{}{"approved": in.Approved}
			if d.Comments != "" {
				details["comments"] = d.Comments
			}
			if d.CostJustification != "" {
				details["cost_justification"] = d.CostJustification
			}
			return []*entity.AuditEvent{entity.NewRequestAudit(req.ID, actor.UserID, action, details)}, nil
		},
		rejection: func(req *entity.KaizenRequest) *entity.Rejection {
			return &entity.Rejection{
				Reason: fmt.Sprintf("%s: %s", st.rejectionLabel, strings.TrimSpace(in.Comments)),
				By:     actor.UserID,
			}
		},
	})
}

// crossEligible requires the role and a department other than the request's own
func (e *engineImpl) crossEligible(actor entity.Actor, role entity.Role) func(context.Context, *entity.KaizenRequest) error {
	return func(ctx context.Context, req *entity.KaizenRequest) error {
		if !actor.Is(role) {
			return roleError(actor, role)
		}
		if !actor.Department.IsValid() {
			return &approval.AuthorizationError{Reason: fmt.Sprintf("unknown department %q", actor.Department)}
		}
		if actor.Department == req.Department {
			return &approval.AuthorizationError{
				Reason: fmt.Sprintf("%s is the originating department and does not take part in the cross-department review", actor.Department),
			}
		}
		return nil
	}
}

func (e *engineImpl) noPriorManager(actor entity.Actor) func(context.Context, *entity.KaizenRequest) error {
	return func(ctx context.Context, req *entity.KaizenRequest) error {
		prior, err := e.stores.Managers.GetByDepartment(ctx, req.ID, actor.Department)
		if err != nil {
			return fmt.Errorf("failed to check prior manager decision: %w", err)
		}
		if prior != nil {
			return &approval.DuplicateSubmissionError{Department: actor.Department, Stage: domainwf.StageCrossManager}
		}
		return nil
	}
}

func (e *engineImpl) noPriorCrossHod(actor entity.Actor) func(context.Context, *entity.KaizenRequest) error {
	return func(ctx context.Context, req *entity.KaizenRequest) error {
		prior, err := e.stores.Hods.GetByDepartment(ctx, req.ID, actor.Department, entity.HodStageCross)
		if err != nil {
			return fmt.Errorf("failed to check prior HOD decision: %w", err)
		}
		if prior != nil {
			return &approval.DuplicateSubmissionError{Department: actor.Department, Stage: domainwf.StageCrossHod}
		}
		return nil
	}
}

// evaluationGate blocks plain decisions from departments that define a questionnaire
// until their evaluation exists. Departments without one pass straight through.
func (e *engineImpl) evaluationGate(actor entity.Actor, role entity.EvaluatorRole) func(context.Context, *entity.KaizenRequest) error {
	return func(ctx context.Context, req *entity.KaizenRequest) error {
		if !e.catalog.HasQuestionnaire(actor.Department) {
			return nil
		}
		eval, err := e.stores.Evaluations.Get(ctx, req.ID, actor.Department, role)
		if err != nil {
			return fmt.Errorf("failed to check evaluation: %w", err)
		}
		if eval == nil {
			return &approval.EvaluationRequiredError{Department: actor.Department, Role: role}
		}
		return nil
	}
}

func (e *engineImpl) recordManager(ctx context.Context, req *entity.KaizenRequest, actor entity.Actor, in approval.DecisionInput) ([]*entity.AuditEvent, error) {
	d := &entity.ManagerDecision{
		RequestID:     req.ID,
		ManagerUserID: actor.UserID,
		Department:    actor.Department,
		Decision:      in.Decision,
		Remarks:       strings.TrimSpace(in.Remarks),
		CreatedAt:     e.now(),
	}
	if err := e.stores.Managers.Create(ctx, d); err != nil {
		return nil, duplicateOr(err, actor.Department, domainwf.StageCrossManager, "failed to record manager decision")
	}

	action := entity.AuditManagerApproved
	if in.Decision == entity.DecisionRejected {
		action = entity.AuditManagerRejected
	}
	return []*entity.AuditEvent{decisionAudit(req, actor, action, in)}, nil
}

func (e *engineImpl) recordCrossHod(ctx context.Context, req *entity.KaizenRequest, actor entity.Actor, in approval.DecisionInput) ([]*entity.AuditEvent, error) {
	if err := e.recordHod(ctx, req, actor, in, entity.HodStageCross, domainwf.StageCrossHod); err != nil {
		return nil, err
	}

	action := entity.AuditCrossHodApproved
	if in.Decision == entity.DecisionRejected {
		action = entity.AuditCrossHodRejected
	}
	return []*entity.AuditEvent{decisionAudit(req, actor, action, in)}, nil
}

func (e *engineImpl) recordHod(ctx context.Context, req *entity.KaizenRequest, actor entity.Actor, in approval.DecisionInput, stageType entity.HodStageType, stage domainwf.Stage) error {
	d := &entity.HodDecision{
		RequestID:  req.ID,
		HodUserID:  actor.UserID,
		Department: actor.Department,
		Decision:   in.Decision,
		Remarks:    strings.TrimSpace(in.Remarks),
		StageType:  stageType,
		CreatedAt:  e.now(),
	}
	if err := e.stores.Hods.Create(ctx, d); err != nil {
		return duplicateOr(err, actor.Department, stage, "failed to record HOD decision")
	}
	return nil
}

// managerQuorum recomputes the manager quorum from the full ledger
func (e *engineImpl) managerQuorum(ctx context.Context, req *entity.KaizenRequest, res *TransitionResult) (Guards, error) {
	decisions, err := e.stores.Managers.ListByRequest(ctx, req.ID)
	if err != nil {
		return Guards{}, fmt.Errorf("failed to load manager ledger: %w", err)
	}
	ledger := entity.Ledger{Managers: decisions}
	verdicts := ledger.ManagerVerdicts()

	res.Pending = approval.PendingDepartments(e.departments, req.Department, verdicts)
	res.QuorumMet = len(res.Pending) == 0

	met := res.QuorumMet
	return Guards{QuorumMet: func(context.Context) bool { return met }}, nil
}

// crossHodQuorumAndRoute recomputes the cross-HOD quorum and, once met, resolves the route
// using the thresholds in force right now
func (e *engineImpl) crossHodQuorumAndRoute(ctx context.Context, req *entity.KaizenRequest, res *TransitionResult) (Guards, error) {
	decisions, err := e.stores.Hods.ListByRequest(ctx, req.ID)
	if err != nil {
		return Guards{}, fmt.Errorf("failed to load HOD ledger: %w", err)
	}
	ledger := entity.Ledger{Hods: decisions}
	verdicts := ledger.HodVerdicts(entity.HodStageCross)

	res.Pending = approval.PendingDepartments(e.departments, req.Department, verdicts)
	res.QuorumMet = len(res.Pending) == 0
	if !res.QuorumMet {
		return Guards{}, nil
	}

	thresholds, err := e.settings.CostThresholds(ctx)
	if err != nil {
		return Guards{}, fmt.Errorf("failed to read cost thresholds: %w", err)
	}
	route := approval.Resolve(approval.RoutingInputFor(req), thresholds)
	res.Route = &route

	return Guards{
		QuorumMet: func(context.Context) bool { return true },
		Escalate:  func(context.Context) bool { return route.Escalates() },
	}, nil
}

func (e *engineImpl) managerMilestones(actor entity.Actor) func(*entity.KaizenRequest, *TransitionResult) []*entity.AuditEvent {
	return func(req *entity.KaizenRequest, res *TransitionResult) []*entity.AuditEvent {
		if !res.QuorumMet || res.NewState != domainwf.StatePendingCrossHod {
			return nil
		}
		return []*entity.AuditEvent{
			entity.NewRequestAudit(req.ID, actor.UserID, entity.AuditAllManagersApproved, map[string]interface{}{
				"next_status": res.NewState.String(),
			}),
		}
	}
}

func (e *engineImpl) crossHodMilestones(actor entity.Actor) func(*entity.KaizenRequest, *TransitionResult) []*entity.AuditEvent {
	return func(req *entity.KaizenRequest, res *TransitionResult) []*entity.AuditEvent {
		if !res.QuorumMet || res.Route == nil {
			return nil
		}
		return []*entity.AuditEvent{
			entity.NewRequestAudit(req.ID, actor.UserID, entity.AuditAllCrossHodsApproved, map[string]interface{}{
				"next_status":   res.NewState.String(),
				"route_reason":  string(res.Route.Reason),
				"cost_estimate": req.CostEstimate,
			}),
		}
	}
}

func checks(fns ...func(context.Context, *entity.KaizenRequest) error) func(context.Context, *entity.KaizenRequest) error {
	return func(ctx context.Context, req *entity.KaizenRequest) error {
		for _, fn := range fns {
			if err := fn(ctx, req); err != nil {
				return err
			}
		}
		return nil
	}
}

func crossRejection(actor entity.Actor, title, remarks string) func(*entity.KaizenRequest) *entity.Rejection {
	return func(req *entity.KaizenRequest) *entity.Rejection {
		return &entity.Rejection{
			Reason:     fmt.Sprintf("Rejected by %s %s: %s", actor.Department, title, strings.TrimSpace(remarks)),
			By:         actor.UserID,
			Department: actor.Department,
		}
	}
}

func decisionTrigger(d entity.Decision) domainwf.Trigger {
	if d == entity.DecisionRejected {
		return domainwf.TriggerReject
	}
	return domainwf.TriggerApprove
}

func decisionAudit(req *entity.KaizenRequest, actor entity.Actor, action string, in approval.DecisionInput) *entity.AuditEvent {
	details := map[string]interface{}{
		"department": string(actor.Department),
		"decision":   string(in.Decision),
	}
	if remarks := strings.TrimSpace(in.Remarks); remarks != "" {
		details["remarks"] = remarks
	}
	return entity.NewRequestAudit(req.ID, actor.UserID, action, details)
}

func decisionPayload(stage domainwf.Stage, dept entity.Department, d entity.Decision, remarks string) map[string]interface{} {
	payload := map[string]interface{}{
		event.KeyStage:    string(stage),
		event.KeyDecision: string(d),
	}
	if dept != "" {
		payload[event.KeyDepartment] = string(dept)
	}
	if r := strings.TrimSpace(remarks); r != "" {
		payload[event.KeyRemarks] = r
	}
	return payload
}

func roleError(actor entity.Actor, want entity.Role) error {
	return &approval.AuthorizationError{Reason: fmt.Sprintf("role %s cannot act at this stage, %s required", actor.Role, want)}
}

// duplicateOr maps a unique-constraint conflict to a duplicate submission
func duplicateOr(err error, dept entity.Department, stage domainwf.Stage, msg string) error {
	if errors.Is(err, port.ErrConflict) {
		return &approval.DuplicateSubmissionError{Department: dept, Stage: stage}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func contains(states []domainwf.State, s domainwf.State) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}

var _ Engine = (*engineImpl)(nil)
