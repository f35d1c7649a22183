package port

import (
	"context"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// SettingsProvider supplies the current settings. The engine reads thresholds
// through it at every escalation decision, so updates apply to the next transition.
type SettingsProvider interface {
	CostThresholds(ctx context.Context) (entity.CostThresholds, error)
	Settings(ctx context.Context) (*entity.Settings, error)
}

// SettingsInvalidator is implemented by caching providers
type SettingsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Notification is a delivery intent produced from a workflow milestone
type Notification struct {
	Kind        string            `json:"kind"`
	RequestID   int64             `json:"request_id"`
	RequestCode string            `json:"request_code"`
	Audience    []string          `json:"audience"`
	Subject     string            `json:"subject"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// Notifier delivers notifications. Delivery failures never affect workflow state.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SheetStore persists generated approval sheets
type SheetStore interface {
	Save(ctx context.Context, name string, content []byte) (string, error)
}
