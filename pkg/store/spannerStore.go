package store

import (
	"context"
	"time"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"github.com/otodash/erp-sync/pkg/notify"
)

// SpannerStore persists outbox events in a Cloud Spanner table mirroring
// the Postgres layout (see PostgresStore).
type SpannerStore struct {
	client *spanner.Client
	hub    *notify.Hub
}

func NewSpannerStore(client *spanner.Client) *SpannerStore {
	return &SpannerStore{client: client, hub: notify.NewHub()}
}

func (s *SpannerStore) Enqueue(ctx context.Context, tenantID, entityID string, eventType EventType, payload any) (*OutboxEvent, error) {
	event, err := NewEvent(tenantID, entityID, eventType, payload, time.Now())
	if err != nil {
		return nil, err
	}

	_, err = s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		stmt := spanner.Statement{
			SQL: `INSERT INTO erp_outbox (id, tenant_id, entity_id, event_type, payload, status, attempts, next_retry_at, created_at, last_error)
                  VALUES (@id, @tenantID, @entityID, @eventType, @payload, @status, 0, @nextRetryAt, @createdAt, '')`,
			Params: map[string]interface{}{
				"id":          event.ID,
				"tenantID":    event.TenantID,
				"entityID":    event.EntityID,
				"eventType":   string(event.Type),
				"payload":     []byte(event.Payload),
				"status":      string(event.Status),
				"nextRetryAt": event.NextRetryAt,
				"createdAt":   event.CreatedAt,
			},
		}
		_, err := txn.Update(ctx, stmt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify()
	return event, nil
}

func (s *SpannerStore) ListDue(ctx context.Context, now time.Time) ([]OutboxEvent, error) {
	stmt := spanner.Statement{
		SQL: `SELECT id, tenant_id, entity_id, event_type, payload, status, attempts, next_retry_at, created_at, last_error, last_attempt_at
              FROM erp_outbox
              WHERE status != @statusSent AND next_retry_at <= @now`,
		Params: map[string]interface{}{
			"statusSent": string(StatusSent),
			"now":        now,
		},
	}
	return s.queryEvents(ctx, stmt)
}

func (s *SpannerStore) ListByEntity(ctx context.Context, tenantID, entityID string) ([]OutboxEvent, error) {
	stmt := spanner.Statement{
		SQL: `SELECT id, tenant_id, entity_id, event_type, payload, status, attempts, next_retry_at, created_at, last_error, last_attempt_at
              FROM erp_outbox
              WHERE tenant_id = @tenantID AND entity_id = @entityID
              ORDER BY created_at DESC`,
		Params: map[string]interface{}{
			"tenantID": tenantID,
			"entityID": entityID,
		},
	}
	return s.queryEvents(ctx, stmt)
}

func (s *SpannerStore) queryEvents(ctx context.Context, stmt spanner.Statement) ([]OutboxEvent, error) {
	iter := s.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var events []OutboxEvent
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		event, err := decodeEventRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func decodeEventRow(row *spanner.Row) (OutboxEvent, error) {
	var event OutboxEvent
	var eventType, status string
	var payload []byte
	var attempts int64
	var lastAttemptAt spanner.NullTime
	if err := row.Columns(
		&event.ID,
		&event.TenantID,
		&event.EntityID,
		&eventType,
		&payload,
		&status,
		&attempts,
		&event.NextRetryAt,
		&event.CreatedAt,
		&event.LastError,
		&lastAttemptAt); err != nil {
		return OutboxEvent{}, err
	}
	event.Type = EventType(eventType)
	event.Status = Status(status)
	event.Payload = payload
	event.Attempts = int(attempts)
	if lastAttemptAt.Valid {
		event.LastAttemptAt = lastAttemptAt.Time
	}
	return event, nil
}

func (s *SpannerStore) MarkSent(ctx context.Context, eventID string) error {
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		stmt := spanner.Statement{
			SQL: `UPDATE erp_outbox SET status = @status, last_attempt_at = CURRENT_TIMESTAMP(), last_error = '' WHERE id = @id AND status != @statusSent`,
			Params: map[string]interface{}{
				"status":     string(StatusSent),
				"statusSent": string(StatusSent),
				"id":         eventID,
			},
		}
		_, err := txn.Update(ctx, stmt)
		return err
	})
	if err != nil {
		return err
	}
	s.hub.Notify()
	return nil
}

func (s *SpannerStore) MarkFailed(ctx context.Context, eventID string, cause error, delay time.Duration) error {
	now := time.Now()
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		stmt := spanner.Statement{
			SQL: `UPDATE erp_outbox SET status = @status, attempts = attempts + 1, last_error = @lastError, last_attempt_at = @now, next_retry_at = @nextRetryAt WHERE id = @id AND status != @statusSent`,
			Params: map[string]interface{}{
				"status":      string(StatusFailed),
				"statusSent":  string(StatusSent),
				"lastError":   cause.Error(),
				"now":         now,
				"nextRetryAt": now.Add(delay),
				"id":          eventID,
			},
		}
		_, err := txn.Update(ctx, stmt)
		return err
	})
	if err != nil {
		return err
	}
	s.hub.Notify()
	return nil
}

func (s *SpannerStore) RetryNow(ctx context.Context, tenantID, entityID string) error {
	_, err := s.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		stmt := spanner.Statement{
			SQL: `UPDATE erp_outbox SET status = @status, next_retry_at = CURRENT_TIMESTAMP() WHERE tenant_id = @tenantID AND entity_id = @entityID AND status != @statusSent`,
			Params: map[string]interface{}{
				"status":     string(StatusPending),
				"statusSent": string(StatusSent),
				"tenantID":   tenantID,
				"entityID":   entityID,
			},
		}
		_, err := txn.Update(ctx, stmt)
		return err
	})
	if err != nil {
		return err
	}
	s.hub.Notify()
	return nil
}

func (s *SpannerStore) Changes() *notify.Hub {
	return s.hub
}

func (s *SpannerStore) Close(ctx context.Context) error {
	s.client.Close()
	return nil
}
