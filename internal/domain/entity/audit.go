package entity

import "time"

// Audit actions written for each meaningful transition
const (
	AuditRequestCreated       = "REQUEST_CREATED"
	AuditRequestSubmitted     = "REQUEST_SUBMITTED"
	AuditOwnHodApproved       = "OWN_HOD_APPROVED"
	AuditOwnHodRejected       = "OWN_HOD_REJECTED"
	AuditManagerApproved      = "MANAGER_APPROVED"
	AuditManagerRejected      = "MANAGER_REJECTED"
	AuditAllManagersApproved  = "ALL_MANAGERS_APPROVED"
	AuditEvaluationSubmitted  = "EVALUATION_SUBMITTED"
	AuditCrossHodApproved     = "CROSS_HOD_APPROVED"
	AuditCrossHodRejected     = "CROSS_HOD_REJECTED"
	AuditAllCrossHodsApproved = "ALL_CROSS_HOD_APPROVED"
	AuditAGMApproved          = "AGM_APPROVED"
	AuditAGMRejected          = "AGM_REJECTED"
	AuditGMApproved           = "GM_APPROVED"
	AuditGMRejected           = "GM_REJECTED"
	AuditSettingsUpdated      = "SETTINGS_UPDATED"
)

// AuditEvent is one {requestId, userId, action, details} tuple.
// RequestID is nil for process-wide actions such as settings updates.
type AuditEvent struct {
	ID        int64                  `json:"id"`
	RequestID *int64                 `json:"request_id,omitempty"`
	UserID    string                 `json:"user_id"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewRequestAudit builds an audit event bound to a request
func NewRequestAudit(requestID int64, userID, action string, details map[string]interface{}) *AuditEvent {
	id := requestID
	return &AuditEvent{
		RequestID: &id,
		UserID:    userID,
		Action:    action,
		Details:   details,
	}
}
