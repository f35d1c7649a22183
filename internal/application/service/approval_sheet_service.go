package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// Approval sheet tab names
const (
	SheetSummary     = "Summary"
	SheetLedger      = "Ledger"
	SheetEvaluations = "Evaluations"
)

const timestampLayout = "2006-01-02 15:04"

// ApprovalSheetService renders the per-request approval sheet workbook
type ApprovalSheetService interface {
	// Build returns the xlsx bytes and a download file name
	Build(ctx context.Context, code string) ([]byte, string, error)
	// Archive builds the sheet and hands it to the sheet store, returning the stored location
	Archive(ctx context.Context, code string) (string, error)
}

type approvalSheetServiceImpl struct {
	requests RequestService
	store    port.SheetStore
	logger   Logger
}

// NewApprovalSheetService creates a new ApprovalSheetService. store may be nil when archiving is unused.
func NewApprovalSheetService(requests RequestService, store port.SheetStore, logger Logger) ApprovalSheetService {
	return &approvalSheetServiceImpl{
		requests: requests,
		store:    store,
		logger:   logger,
	}
}

// Build implements ApprovalSheetService
func (s *approvalSheetServiceImpl) Build(ctx context.Context, code string) ([]byte, string, error) {
	detail, err := s.requests.Detail(ctx, code)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetLedger, SheetEvaluations} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, "", fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, "", fmt.Errorf("create style: %w", err)
	}

	if err := writeSummary(f, detail, bold); err != nil {
		return nil, "", err
	}
	if err := writeLedger(f, detail.Ledger, bold); err != nil {
		return nil, "", err
	}
	if err := writeEvaluations(f, detail.Evaluations, bold); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("render workbook: %w", err)
	}

	s.logger.Info("Approval sheet built",
		"request_code", detail.Request.RequestCode,
		"ledger_rows", ledgerSize(detail.Ledger),
		"evaluations", len(detail.Evaluations),
	)

	return buf.Bytes(), detail.Request.RequestCode + "-approval-sheet.xlsx", nil
}

// Archive implements ApprovalSheetService
func (s *approvalSheetServiceImpl) Archive(ctx context.Context, code string) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("no sheet store configured")
	}
	content, name, err := s.Build(ctx, code)
	if err != nil {
		return "", err
	}
	location, err := s.store.Save(ctx, name, content)
	if err != nil {
		s.logger.Error("Failed to archive approval sheet", "error", err, "request_code", code)
		return "", fmt.Errorf("save approval sheet: %w", err)
	}
	return location, nil
}

func writeSummary(f *excelize.File, d *RequestDetail, bold int) error {
	r := d.Request
	rows := [][]interface{}{
		{"Request Code", r.RequestCode},
		{"Title", r.Title},
		{"Department", r.Department.DisplayName()},
		{"Station", r.StationName},
		{"Assembly Line", r.AssemblyLine},
		{"Program", r.Program},
		{"Customer Part Number", r.CustomerPartNumber},
		{"Date of Origination", r.DateOfOrigination},
		{"Initiator", r.InitiatorID},
		{"Issue", r.IssueDescription},
		{"Poka-Yoke", r.PokaYokeDescription},
		{"Cost Estimate", r.CostEstimate},
		{"Currency", r.CostCurrency},
		{"Cost Justification", r.CostJustification},
		{"Process Addition", yesNo(r.RequiresProcessAddition)},
		{"Manpower Addition", yesNo(r.RequiresManpowerAddition)},
		{"Status", r.Status},
		{"Current Stage", string(d.Stage)},
	}
	if r.IsRejected() {
		rows = append(rows,
			[]interface{}{"Rejection Reason", r.RejectionReason},
			[]interface{}{"Rejected By", r.RejectedBy},
			[]interface{}{"Rejected By Department", string(r.RejectedByDepartment)},
		)
	}

	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}
	last := strconv.Itoa(len(rows))
	if err := f.SetCellStyle(SheetSummary, "A1", "A"+last, bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	return f.SetColWidth(SheetSummary, "A", "A", 24)
}

func writeLedger(f *excelize.File, l *entity.Ledger, bold int) error {
	rows := [][]interface{}{{"Stage", "Department", "User", "Decision", "Remarks", "Recorded At"}}

	for _, h := range l.Hods {
		if h.StageType == entity.HodStageOwn {
			rows = append(rows, []interface{}{"Own HOD", string(h.Department), h.HodUserID, string(h.Decision), h.Remarks, h.CreatedAt.Format(timestampLayout)})
		}
	}
	for _, m := range l.Managers {
		rows = append(rows, []interface{}{"Cross Manager", string(m.Department), m.ManagerUserID, string(m.Decision), m.Remarks, m.CreatedAt.Format(timestampLayout)})
	}
	for _, h := range l.Hods {
		if h.StageType == entity.HodStageCross {
			rows = append(rows, []interface{}{"Cross HOD", string(h.Department), h.HodUserID, string(h.Decision), h.Remarks, h.CreatedAt.Format(timestampLayout)})
		}
	}
	for _, e := range l.Executives {
		decision := entity.DecisionRejected
		if e.Approved {
			decision = entity.DecisionApproved
		}
		rows = append(rows, []interface{}{string(e.Level), "", e.ApprovedBy, string(decision), e.Comments, e.CreatedAt.Format(timestampLayout)})
	}

	if err := writeRows(f, SheetLedger, rows); err != nil {
		return err
	}
	return f.SetCellStyle(SheetLedger, "A1", "F1", bold)
}

func writeEvaluations(f *excelize.File, evals []*entity.DepartmentEvaluation, bold int) error {
	rows := [][]interface{}{{"Department", "Evaluator", "Role", "Question", "Answer", "Risk", "Remarks", "Overall Risk", "Decision"}}
	for _, e := range evals {
		for _, a := range e.Answers {
			rows = append(rows, []interface{}{
				string(e.Department), e.EvaluatorUserID, string(e.EvaluatorRole),
				a.QuestionKey, string(a.Answer), string(a.RiskLevel), a.Remarks,
				string(e.OverallRisk), string(e.Decision),
			})
		}
	}

	if err := writeRows(f, SheetEvaluations, rows); err != nil {
		return err
	}
	return f.SetCellStyle(SheetEvaluations, "A1", "I1", bold)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func ledgerSize(l *entity.Ledger) int {
	return len(l.Managers) + len(l.Hods) + len(l.Executives)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
