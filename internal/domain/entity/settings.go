package entity

import "errors"

// Settings keys as stored by the settings collaborator
const (
	SettingCostThresholds = "costThresholds"
	SettingSLA            = "sla"
	SettingNotifications  = "notifications"
)

// CostThresholds are the two routing breakpoints read at each escalation decision
type CostThresholds struct {
	HodLimit int64 `json:"hodLimit" mapstructure:"hod_limit"`
	AgmLimit int64 `json:"agmLimit" mapstructure:"agm_limit"`
}

// DefaultCostThresholds returns the plant defaults
func DefaultCostThresholds() CostThresholds {
	return CostThresholds{HodLimit: 50000, AgmLimit: 100000}
}

// Validate checks the breakpoints are usable
func (c CostThresholds) Validate() error {
	if c.HodLimit < 0 || c.AgmLimit < 0 {
		return errors.New("cost limits must not be negative")
	}
	if c.HodLimit > c.AgmLimit {
		return errors.New("hodLimit must not exceed agmLimit")
	}
	return nil
}

// SLASettings are per-stage review targets in hours. Informational only.
type SLASettings struct {
	OwnHodReviewHours   int `json:"ownHodReviewHours"`
	CrossHodReviewHours int `json:"crossHodReviewHours"`
	AgmReviewHours      int `json:"agmReviewHours"`
	GmReviewHours       int `json:"gmReviewHours"`
}

// DefaultSLASettings returns the plant defaults
func DefaultSLASettings() SLASettings {
	return SLASettings{
		OwnHodReviewHours:   12,
		CrossHodReviewHours: 24,
		AgmReviewHours:      24,
		GmReviewHours:       48,
	}
}

// Validate requires positive hour targets
func (s SLASettings) Validate() error {
	if s.OwnHodReviewHours <= 0 || s.CrossHodReviewHours <= 0 || s.AgmReviewHours <= 0 || s.GmReviewHours <= 0 {
		return errors.New("sla review hours must be positive")
	}
	return nil
}

// NotificationSettings toggle which workflow milestones produce notifications
type NotificationSettings struct {
	EmailEnabled       bool `json:"emailEnabled"`
	NotifyOnSubmission bool `json:"notifyOnSubmission"`
	NotifyOnEscalation bool `json:"notifyOnEscalation"`
	NotifyOnApproval   bool `json:"notifyOnApproval"`
	NotifyOnRejection  bool `json:"notifyOnRejection"`
}

// DefaultNotificationSettings returns the plant defaults
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		NotifyOnSubmission: true,
		NotifyOnEscalation: true,
		NotifyOnApproval:   true,
		NotifyOnRejection:  true,
	}
}

// Settings is the full admin-facing settings document
type Settings struct {
	CostThresholds CostThresholds       `json:"costThresholds"`
	SLA            SLASettings          `json:"sla"`
	Notifications  NotificationSettings `json:"notifications"`
}

// SettingsPatch carries a partial settings update
type SettingsPatch struct {
	CostThresholds *CostThresholds       `json:"costThresholds,omitempty"`
	SLA            *SLASettings          `json:"sla,omitempty"`
	Notifications  *NotificationSettings `json:"notifications,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p SettingsPatch) IsEmpty() bool {
	return p.CostThresholds == nil && p.SLA == nil && p.Notifications == nil
}
