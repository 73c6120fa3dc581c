package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestPostgresEnqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO erp_outbox \(id, tenant_id, entity_id, event_type, payload, status, attempts, next_retry_at, created_at, last_error\)`).
		WithArgs(sqlmock.AnyArg(), "tenant-1", "wo-1", string(TypeStatusChanged), []byte(`{"toStatus":"APPROVED"}`),
			string(StatusPending), 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	event, err := repo.Enqueue(ctx, "tenant-1", "wo-1", TypeStatusChanged, map[string]string{"toStatus": "APPROVED"})
	assert.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, StatusPending, event.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewPostgresStore(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "entity_id", "event_type", "payload", "status", "attempts", "next_retry_at", "created_at", "last_error", "last_attempt_at"}).
		AddRow("1", "t", "wo-1", string(TypeStatusChanged), []byte(`{}`), string(StatusPending), 0, now, now, "", nil).
		AddRow("2", "t", "wo-2", string(TypeLineItemsChanged), []byte(`{}`), string(StatusFailed), 2, now, now, "endpoint busy", now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, tenant_id, entity_id, event_type, payload, status, attempts, next_retry_at, created_at, last_error, last_attempt_at\s+FROM erp_outbox\s+WHERE status <> 'SENT' AND next_retry_at <= \$1\s+FOR UPDATE SKIP LOCKED`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)
	mock.ExpectCommit()

	ctx := context.Background()
	events, err := repo.ListDue(ctx, now)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, "1", events[0].ID)
	assert.Equal(t, TypeStatusChanged, events[0].Type)
	assert.Equal(t, StatusPending, events[0].Status)
	assert.Equal(t, "2", events[1].ID)
	assert.Equal(t, 2, events[1].Attempts)
	assert.Equal(t, "endpoint busy", events[1].LastError)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE erp_outbox SET status='SENT', last_attempt_at=\$1, last_error='' WHERE id=\$2 AND status <> 'SENT'`).
		WithArgs(sqlmock.AnyArg(), "1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	err = repo.MarkSent(ctx, "1")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE erp_outbox SET status='FAILED', attempts = attempts \+ 1, last_error=\$1, last_attempt_at=\$2, next_retry_at=\$3 WHERE id=\$4 AND status <> 'SENT'`).
		WithArgs("endpoint busy", sqlmock.AnyArg(), sqlmock.AnyArg(), "1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	err = repo.MarkFailed(ctx, "1", errors.New("endpoint busy"), 10*time.Second)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRetryNow(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE erp_outbox SET status='PENDING', next_retry_at=\$1 WHERE tenant_id=\$2 AND entity_id=\$3 AND status <> 'SENT'`).
		WithArgs(sqlmock.AnyArg(), "t", "wo-1").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	ctx := context.Background()
	err = repo.RetryNow(ctx, "t", "wo-1")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByEntity(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewPostgresStore(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "tenant_id", "entity_id", "event_type", "payload", "status", "attempts", "next_retry_at", "created_at", "last_error", "last_attempt_at"}).
		AddRow("2", "t", "wo-1", string(TypeLineItemsChanged), []byte(`{}`), string(StatusSent), 0, now, now, "", now).
		AddRow("1", "t", "wo-1", string(TypeStatusChanged), []byte(`{}`), string(StatusSent), 0, now, now.Add(-time.Minute), "", now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, tenant_id, entity_id, event_type, payload, status, attempts, next_retry_at, created_at, last_error, last_attempt_at\s+FROM erp_outbox\s+WHERE tenant_id = \$1 AND entity_id = \$2\s+ORDER BY created_at DESC`).
		WithArgs("t", "wo-1").
		WillReturnRows(rows)
	mock.ExpectCommit()

	ctx := context.Background()
	events, err := repo.ListByEntity(ctx, "t", "wo-1")
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, "2", events[0].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
