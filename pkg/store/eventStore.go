package store

import (
	"context"
	"time"

	"github.com/otodash/erp-sync/pkg/notify"
)

// EventStore defines the database operations for outbox events.
type EventStore interface {
	// Enqueue persists a new pending event and returns the created record.
	Enqueue(ctx context.Context, tenantID, entityID string, eventType EventType, payload any) (*OutboxEvent, error)
	// ListDue retrieves all non-sent events whose next retry time has passed.
	ListDue(ctx context.Context, now time.Time) ([]OutboxEvent, error)
	// ListByEntity retrieves all events for a tenant and entity, most recent first.
	ListByEntity(ctx context.Context, tenantID, entityID string) ([]OutboxEvent, error)
	// MarkSent transitions an event to SENT. Idempotent: already-sent or
	// unknown ids are a no-op.
	MarkSent(ctx context.Context, eventID string) error
	// MarkFailed records a failed delivery attempt and schedules the next
	// retry after the given delay.
	MarkFailed(ctx context.Context, eventID string, cause error, delay time.Duration) error
	// RetryNow makes every non-sent event for the tenant and entity
	// immediately eligible again. No-op when nothing matches.
	RetryNow(ctx context.Context, tenantID, entityID string) error
	// Changes returns the hub that signals store mutations.
	Changes() *notify.Hub
	// Close releases the store's persistence handle.
	Close(ctx context.Context) error
}
