package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by publishers and subscribers
const (
	KeyPreviousState = "previous_state"
	KeyNewState      = "new_state"
	KeyActorID       = "actor_id"
	KeyActorRole     = "actor_role"
	KeyInitiatorID   = "initiator_id"
	KeyDepartment    = "department"
	KeyDecision      = "decision"
	KeyStage         = "stage"
	KeyRoute         = "route"
	KeyRouteReason   = "route_reason"
	KeyOverallRisk   = "overall_risk"
	KeyRemarks       = "remarks"
	KeyCostEstimate  = "cost_estimate"
)

// Event represents a domain event. RequestID is zero for process-wide events.
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequestID     int64                  `json:"request_id"`
	RequestCode   string                 `json:"request_code,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with a fresh ID and correlation ID
func NewEvent(eventType Type, requestID int64, requestCode string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, requestID, requestCode, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, requestID int64, requestCode string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		RequestID:     requestID,
		RequestCode:   requestCode,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a copy of the event with key set; the receiver is not modified
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload.
// Values of named string types (states, departments) are converted.
func (e *Event) GetPayloadString(key string) string {
	val, ok := e.Payload[key]
	if !ok {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case interface{ String() string }:
		return v.String()
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
