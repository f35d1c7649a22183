package service

import (
	"context"
	"fmt"

	"github.com/kaizenflow/kaizen-approvals/internal/application/dispatcher"
	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/event"
	domainwf "github.com/kaizenflow/kaizen-approvals/internal/domain/workflow"
)

// Notification kinds
const (
	NotifyReviewRequested = "REVIEW_REQUESTED"
	NotifyEscalated       = "ESCALATED"
	NotifyApproved        = "APPROVED"
	NotifyRejected        = "REJECTED"
)

// NotificationSubscriber turns committed workflow events into notification intents
type NotificationSubscriber struct {
	settings    port.SettingsProvider
	notifier    port.Notifier
	departments []entity.Department
	logger      Logger
}

// NewNotificationSubscriber creates a new NotificationSubscriber
func NewNotificationSubscriber(settings port.SettingsProvider, notifier port.Notifier, logger Logger) *NotificationSubscriber {
	return &NotificationSubscriber{
		settings:    settings,
		notifier:    notifier,
		departments: entity.AllDepartments(),
		logger:      logger,
	}
}

// Register subscribes the handler to request creation and status changes
func (s *NotificationSubscriber) Register(d dispatcher.Dispatcher) {
	d.SubscribeAll(
		[]event.Type{event.TypeRequestCreated, event.TypeStatusChanged},
		"notification-subscriber",
		"Builds notification intents for reviewers and initiators",
		s.Handle,
	)
}

// Handle implements dispatcher.Handler
func (s *NotificationSubscriber) Handle(ctx context.Context, evt *event.Event) error {
	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return fmt.Errorf("read notification settings: %w", err)
	}

	n, ok := s.build(evt, settings.Notifications)
	if !ok {
		return nil
	}

	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Error("Failed to deliver notification",
			"error", err,
			"kind", n.Kind,
			"request_code", n.RequestCode,
		)
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (s *NotificationSubscriber) build(evt *event.Event, flags entity.NotificationSettings) (port.Notification, bool) {
	state := domainwf.State(evt.GetPayloadString(event.KeyNewState))
	dept := entity.Department(evt.GetPayloadString(event.KeyDepartment))
	initiator := evt.GetPayloadString(event.KeyInitiatorID)

	n := port.Notification{
		RequestID:   evt.RequestID,
		RequestCode: evt.RequestCode,
		Fields: map[string]string{
			"status":         state.String(),
			"correlation_id": evt.CorrelationID,
		},
	}
	if prev := evt.GetPayloadString(event.KeyPreviousState); prev != "" {
		n.Fields["previous_status"] = prev
	}
	if reason := evt.GetPayloadString(event.KeyRouteReason); reason != "" {
		n.Fields["route_reason"] = reason
	}

	switch {
	case state == domainwf.StatePendingOwnHod:
		if !flags.NotifyOnSubmission {
			return n, false
		}
		n.Kind = NotifyReviewRequested
		n.Audience = []string{audience(entity.RoleHOD, dept)}
		n.Subject = fmt.Sprintf("%s awaits your sign-off", evt.RequestCode)
	case state == domainwf.StatePendingCrossManager || state == domainwf.StatePendingCrossHod:
		if !flags.NotifyOnSubmission {
			return n, false
		}
		role := entity.RoleManager
		if state == domainwf.StatePendingCrossHod {
			role = entity.RoleHOD
		}
		n.Kind = NotifyReviewRequested
		for _, d := range s.departments {
			if d != dept {
				n.Audience = append(n.Audience, audience(role, d))
			}
		}
		n.Subject = fmt.Sprintf("%s needs a cross-department review", evt.RequestCode)
	case state == domainwf.StatePendingAGM || state == domainwf.StatePendingGM:
		if !flags.NotifyOnEscalation {
			return n, false
		}
		role := entity.RoleAGM
		if state == domainwf.StatePendingGM {
			role = entity.RoleGM
		}
		n.Kind = NotifyEscalated
		n.Audience = []string{string(role)}
		n.Subject = fmt.Sprintf("%s escalated for %s approval", evt.RequestCode, role)
	case state == domainwf.StateApproved:
		if !flags.NotifyOnApproval {
			return n, false
		}
		n.Kind = NotifyApproved
		n.Audience = []string{initiator}
		n.Subject = fmt.Sprintf("%s has been approved", evt.RequestCode)
	case state.IsRejected():
		if !flags.NotifyOnRejection {
			return n, false
		}
		n.Kind = NotifyRejected
		n.Audience = []string{initiator}
		n.Subject = fmt.Sprintf("%s has been rejected", evt.RequestCode)
	default:
		return n, false
	}

	return n, true
}

func audience(role entity.Role, dept entity.Department) string {
	return fmt.Sprintf("%s@%s", role, dept)
}
