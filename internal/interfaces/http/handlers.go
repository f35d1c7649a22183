package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/application/service"
	"github.com/kaizenflow/kaizen-approvals/internal/application/workflow"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{services: services, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

// DepartmentResponse is one entry of the department list
type DepartmentResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DecisionRequest is the body of Manager and HOD decisions
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,decision"`
	Remarks  string `json:"remarks"`
}

// ExecutiveRequest is the body of AGM and GM decisions
type ExecutiveRequest struct {
	Approved          *bool  `json:"approved" binding:"required"`
	Comments          string `json:"comments"`
	CostJustification string `json:"costJustification"`
}

// AnswerRequest is a single questionnaire answer
type AnswerRequest struct {
	QuestionKey string `json:"question_key" binding:"required"`
	Answer      string `json:"answer" binding:"required,answer"`
	RiskLevel   string `json:"risk_level" binding:"omitempty,risklevel"`
	Remarks     string `json:"remarks"`
}

// EvaluationRequest is the body of a department evaluation
type EvaluationRequest struct {
	Answers  []AnswerRequest `json:"answers" binding:"required,min=1,dive"`
	Decision string          `json:"decision" binding:"required,decision"`
	Remarks  string          `json:"remarks"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Database:  "unknown",
	}
	status := http.StatusOK

	if h.services.DB != nil {
		if err := h.services.DB.PingContext(c.Request.Context()); err != nil {
			h.logger.Error("Health check database ping failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	c.JSON(status, Response{Success: status == http.StatusOK, Data: resp})
}

// ListDepartments handles GET /api/departments
func (h *Handlers) ListDepartments(c *gin.Context) {
	depts := entity.AllDepartments()
	out := make([]DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		out = append(out, DepartmentResponse{Code: string(d), Name: d.DisplayName()})
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// GetQuestionnaire handles GET /api/questionnaires/:department
func (h *Handlers) GetQuestionnaire(c *gin.Context) {
	dept := entity.Department(strings.ToUpper(c.Param("department")))
	if !dept.IsValid() {
		h.fail(c, "questionnaire", &approval.ValidationError{Field: "department", Reason: "unknown department " + string(dept)})
		return
	}

	questions := h.services.Catalog.Questions(dept)
	if questions == nil {
		questions = []entity.Question{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"department": dept,
		"questions":  questions,
	}})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	filter := port.RequestFilter{
		Department:  entity.Department(strings.ToUpper(c.Query("department"))),
		InitiatorID: c.Query("initiator"),
		Limit:       queryInt(c, "limit", 20),
		Offset:      queryInt(c, "offset", 0),
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, strings.ToUpper(s))
			}
		}
	}

	requests, err := h.services.Requests.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list requests", err)
		return
	}
	if requests == nil {
		requests = []*entity.KaizenRequest{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var in service.CreateRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.bindFailed(c, err)
		return
	}

	req, err := h.services.Requests.Create(c.Request.Context(), actor, in)
	if err != nil {
		h.fail(c, "create request", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// GetRequest handles GET /api/requests/:code
func (h *Handlers) GetRequest(c *gin.Context) {
	detail, err := h.services.Requests.Detail(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, "get request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// SubmitDraft handles POST /api/requests/:code/submit
func (h *Handlers) SubmitDraft(c *gin.Context) {
	h.transition(c, "submit draft", nil, func(c *gin.Context, id int64, actor entity.Actor) (*workflow.TransitionResult, error) {
		return h.services.Engine.SubmitDraft(c.Request.Context(), id, actor)
	})
}

// OwnHodDecision handles POST /api/kaizen/:code/own-hod-decision
func (h *Handlers) OwnHodDecision(c *gin.Context) {
	var body DecisionRequest
	h.transition(c, "own hod decision", &body, func(c *gin.Context, id int64, actor entity.Actor) (*workflow.TransitionResult, error) {
		return h.services.Engine.SubmitOwnHodDecision(c.Request.Context(), id, actor, body.input())
	})
}

// ManagerDecision handles POST /api/kaizen/:code/manager-decision
func (h *Handlers) ManagerDecision(c *gin.Context) {
	var body DecisionRequest
	h.transition(c, "manager decision", &body, func(c *gin.Context, id int64, actor entity.Actor) (*workflow.TransitionResult, error) {
		return h.services.Engine.SubmitManagerDecision(c.Request.Context(), id, actor, body.input())
	})
}

// CrossHodDecision handles POST /api/kaizen/:code/cross-hod-decision
func (h *Handlers) CrossHodDecision(c *gin.Context) {
	var body DecisionRequest
	h.transition(c, "cross hod decision", &body, func(c *gin.Context, id int64, actor entity.Actor) (*workflow.TransitionResult, error) {
		return h.services.Engine.SubmitCrossHodDecision(c.Request.Context(), id, actor, body.input())
	})
}

// SubmitEvaluation handles POST /api/kaizen/:code/department-evaluation
func (h *Handlers) SubmitEvaluation(c *gin.Context) {
	var body EvaluationRequest
	h.transition(c, "department evaluation", &body, func(c *gin.Context, id int64, actor entity.Actor) (*workflow.TransitionResult, error) {
		return h.services.Engine.SubmitEvaluation(c.Request.Context(), id, actor, body.input())
	})
}

// AgmDecision handles POST /api/kaizen/:code/agm-decision
func (h *Handlers) AgmDecision(c *gin.Context) {
	var body ExecutiveRequest
	h.transition(c, "agm decision", &body, func(c *gin.Context, id int64, actor entity.Actor) (*workflow.TransitionResult, error) {
		return h.services.Engine.SubmitAgmDecision(c.Request.Context(), id, actor, body.input())
	})
}

// GmDecision handles POST /api/kaizen/:code/gm-decision
func (h *Handlers) GmDecision(c *gin.Context) {
	var body ExecutiveRequest
	h.transition(c, "gm decision", &body, func(c *gin.Context, id int64, actor entity.Actor) (*workflow.TransitionResult, error) {
		return h.services.Engine.SubmitGmDecision(c.Request.Context(), id, actor, body.input())
	})
}

// ListEvaluations handles GET /api/kaizen/:code/department-evaluations
func (h *Handlers) ListEvaluations(c *gin.Context) {
	evals, err := h.services.Requests.Evaluations(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, "list evaluations", err)
		return
	}
	if evals == nil {
		evals = []*entity.DepartmentEvaluation{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: evals})
}

// AuditTrail handles GET /api/kaizen/:code/audit
func (h *Handlers) AuditTrail(c *gin.Context) {
	trail, err := h.services.Requests.AuditTrail(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, "audit trail", err)
		return
	}
	if trail == nil {
		trail = []*entity.AuditEvent{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: trail})
}

// ApprovalSheet handles GET /api/kaizen/:code/approval-sheet
func (h *Handlers) ApprovalSheet(c *gin.Context) {
	content, name, err := h.services.Sheets.Build(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, "approval sheet", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, content)
}

// GetThresholds handles GET /api/settings/thresholds
func (h *Handlers) GetThresholds(c *gin.Context) {
	thresholds, err := h.services.Settings.CostThresholds(c.Request.Context())
	if err != nil {
		h.fail(c, "thresholds", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: thresholds})
}

// GetSettings handles GET /api/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if !actor.Is(entity.RoleAdmin) {
		h.fail(c, "settings", &approval.AuthorizationError{Reason: "settings are restricted to ADMIN"})
		return
	}

	settings, err := h.services.Settings.Settings(c.Request.Context())
	if err != nil {
		h.fail(c, "settings", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: settings})
}

// UpdateSettings handles PUT /api/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var patch entity.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.bindFailed(c, err)
		return
	}

	settings, err := h.services.Settings.Update(c.Request.Context(), actor, patch)
	if err != nil {
		h.fail(c, "update settings", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: settings})
}

type transitionFunc func(c *gin.Context, requestID int64, actor entity.Actor) (*workflow.TransitionResult, error)

// transition resolves the request code, binds the body when one is expected and runs the engine call
func (h *Handlers) transition(c *gin.Context, op string, body interface{}, fn transitionFunc) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if body != nil {
		if err := c.ShouldBindJSON(body); err != nil {
			h.bindFailed(c, err)
			return
		}
	}

	req, err := h.services.Requests.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, op, err)
		return
	}

	result, err := fn(c, req.ID, actor)
	if err != nil {
		h.fail(c, op, err)
		return
	}

	h.logger.Info("Transition accepted",
		"op", op,
		"request_code", result.RequestCode,
		"previous_state", result.PreviousState.String(),
		"new_state", result.NewState.String(),
		"user_id", actor.UserID,
	)
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

func (b *DecisionRequest) input() approval.DecisionInput {
	return approval.DecisionInput{Decision: entity.Decision(b.Decision), Remarks: b.Remarks}
}

func (b *ExecutiveRequest) input() approval.ExecutiveInput {
	return approval.ExecutiveInput{
		Approved:          *b.Approved,
		Comments:          b.Comments,
		CostJustification: b.CostJustification,
	}
}

func (b *EvaluationRequest) input() approval.EvaluationInput {
	answers := make([]entity.EvaluationAnswer, 0, len(b.Answers))
	for _, a := range b.Answers {
		answers = append(answers, entity.EvaluationAnswer{
			QuestionKey: a.QuestionKey,
			Answer:      entity.Answer(a.Answer),
			RiskLevel:   entity.RiskLevel(a.RiskLevel),
			Remarks:     a.Remarks,
		})
	}
	return approval.EvaluationInput{Answers: answers, Decision: entity.Decision(b.Decision), Remarks: b.Remarks}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
