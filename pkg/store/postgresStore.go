package store

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/otodash/erp-sync/pkg/notify"
)

// PostgresStore persists outbox events in a single append-friendly table:
//
//	CREATE TABLE erp_outbox (
//	    id              TEXT PRIMARY KEY,
//	    tenant_id       TEXT NOT NULL,
//	    entity_id       TEXT NOT NULL,
//	    event_type      TEXT NOT NULL,
//	    payload         JSONB NOT NULL,
//	    status          TEXT NOT NULL,
//	    attempts        INT NOT NULL DEFAULT 0,
//	    next_retry_at   TIMESTAMPTZ NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL,
//	    last_error      TEXT NOT NULL DEFAULT '',
//	    last_attempt_at TIMESTAMPTZ
//	);
//	CREATE INDEX ON erp_outbox (tenant_id, entity_id);
//	CREATE INDEX ON erp_outbox (status, next_retry_at);
type PostgresStore struct {
	db  *sql.DB // using database/sql
	hub *notify.Hub
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, hub: notify.NewHub()}
}

func (p *PostgresStore) Enqueue(ctx context.Context, tenantID, entityID string, eventType EventType, payload any) (*OutboxEvent, error) {
	event, err := NewEvent(tenantID, entityID, eventType, payload, time.Now())
	if err != nil {
		return nil, err
	}

	err = p.withTransaction(ctx, "Enqueue", func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO erp_outbox (id, tenant_id, entity_id, event_type, payload, status, attempts, next_retry_at, created_at, last_error)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '')`,
			event.ID, event.TenantID, event.EntityID, event.Type, []byte(event.Payload),
			event.Status, event.Attempts, event.NextRetryAt, event.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.hub.Notify()
	return event, nil
}

func (p *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]OutboxEvent, error) {
	var events []OutboxEvent
	err := p.withTransaction(ctx, "ListDue", func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, tenant_id, entity_id, event_type, payload, status, attempts, next_retry_at, created_at, last_error, last_attempt_at
             FROM erp_outbox
             WHERE status <> 'SENT' AND next_retry_at <= $1
             FOR UPDATE SKIP LOCKED`, now)
		if err != nil {
			return err
		}
		defer rows.Close()

		events, err = scanEvents(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (p *PostgresStore) ListByEntity(ctx context.Context, tenantID, entityID string) ([]OutboxEvent, error) {
	var events []OutboxEvent
	err := p.withTransaction(ctx, "ListByEntity", func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, tenant_id, entity_id, event_type, payload, status, attempts, next_retry_at, created_at, last_error, last_attempt_at
             FROM erp_outbox
             WHERE tenant_id = $1 AND entity_id = $2
             ORDER BY created_at DESC`, tenantID, entityID)
		if err != nil {
			return err
		}
		defer rows.Close()

		events, err = scanEvents(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (p *PostgresStore) MarkSent(ctx context.Context, eventID string) error {
	err := p.withTransaction(ctx, "MarkSent", func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE erp_outbox SET status='SENT', last_attempt_at=$1, last_error='' WHERE id=$2 AND status <> 'SENT'`,
			time.Now(), eventID)
		return err
	})
	if err != nil {
		return err
	}
	p.hub.Notify()
	return nil
}

func (p *PostgresStore) MarkFailed(ctx context.Context, eventID string, cause error, delay time.Duration) error {
	now := time.Now()
	err := p.withTransaction(ctx, "MarkFailed", func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE erp_outbox SET status='FAILED', attempts = attempts + 1, last_error=$1, last_attempt_at=$2, next_retry_at=$3 WHERE id=$4 AND status <> 'SENT'`,
			cause.Error(), now, now.Add(delay), eventID)
		return err
	})
	if err != nil {
		return err
	}
	p.hub.Notify()
	return nil
}

func (p *PostgresStore) RetryNow(ctx context.Context, tenantID, entityID string) error {
	err := p.withTransaction(ctx, "RetryNow", func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE erp_outbox SET status='PENDING', next_retry_at=$1 WHERE tenant_id=$2 AND entity_id=$3 AND status <> 'SENT'`,
			time.Now(), tenantID, entityID)
		return err
	})
	if err != nil {
		return err
	}
	p.hub.Notify()
	return nil
}

func (p *PostgresStore) Changes() *notify.Hub {
	return p.hub
}

func (p *PostgresStore) Close(ctx context.Context) error {
	return p.db.Close()
}

func scanEvents(rows *sql.Rows) ([]OutboxEvent, error) {
	var events []OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		var payload []byte
		var lastAttemptAt sql.NullTime
		if err := rows.Scan(&event.ID, &event.TenantID, &event.EntityID, &event.Type, &payload,
			&event.Status, &event.Attempts, &event.NextRetryAt, &event.CreatedAt,
			&event.LastError, &lastAttemptAt); err != nil {
			return nil, err
		}
		event.Payload = payload
		if lastAttemptAt.Valid {
			event.LastAttemptAt = lastAttemptAt.Time
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (p *PostgresStore) withTransaction(ctx context.Context, spanName string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	start := time.Now()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := fn(ctx, tx); err != nil {
		tx.Rollback()
		span.RecordError(err)
		return err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return err
	}

	addDBStatsToSpan(span, "postgresql", spanName, 0, time.Since(start))
	return nil
}
