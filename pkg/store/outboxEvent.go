package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery status of an outbox event.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// EventType is the closed set of domain events the pipeline propagates to
// the ERP.
type EventType string

const (
	TypeStatusChanged               EventType = "status-changed"
	TypeLineItemsChanged            EventType = "line-items-changed"
	TypeApprovalLinkCreated         EventType = "approval-link-created"
	TypeStockReplenishmentRequested EventType = "stock-replenishment-requested"
)

var validEventTypes = []EventType{
	TypeStatusChanged,
	TypeLineItemsChanged,
	TypeApprovalLinkCreated,
	TypeStockReplenishmentRequested,
}

// IsValid reports whether the value is one of the known event types.
func (t EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxEvent is the unit of durable work. Once Status reaches SENT the
// record is terminal and immutable; Attempts and NextRetryAt only ever
// advance, except for an explicit manual retry which resets Status and
// NextRetryAt but preserves Attempts.
type OutboxEvent struct {
	ID            string          `json:"id" bson:"id"`
	TenantID      string          `json:"tenant_id" bson:"tenant_id"`
	EntityID      string          `json:"entity_id" bson:"entity_id"`
	Type          EventType       `json:"type" bson:"type"`
	Payload       json.RawMessage `json:"payload" bson:"payload"`
	Status        Status          `json:"status" bson:"status"`
	Attempts      int             `json:"attempts" bson:"attempts"`
	NextRetryAt   time.Time       `json:"next_retry_at" bson:"next_retry_at"`
	CreatedAt     time.Time       `json:"created_at" bson:"created_at"`
	LastError     string          `json:"last_error,omitempty" bson:"last_error,omitempty"`
	LastAttemptAt time.Time       `json:"last_attempt_at,omitempty" bson:"last_attempt_at,omitempty"`
}

// NewEvent creates a pending OutboxEvent with a generated id. The payload
// is serialized as-is; its shape is interpreted only by the mapper.
func NewEvent(tenantID, entityID string, eventType EventType, payload any, now time.Time) (*OutboxEvent, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &OutboxEvent{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		EntityID:    entityID,
		Type:        eventType,
		Payload:     raw,
		Status:      StatusPending,
		Attempts:    0,
		NextRetryAt: now,
		CreatedAt:   now,
	}, nil
}

func marshalPayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return json.RawMessage(`{}`), nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	default:
		return json.Marshal(payload)
	}
}
