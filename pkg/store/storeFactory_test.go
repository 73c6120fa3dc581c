package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/otodash/erp-sync/pkg/config"
)

func TestNewStoreSelectsBackend(t *testing.T) {
	ctx := context.Background()

	st, err := NewStore(ctx, config.DbSettings{Type: "memory"})
	assert.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, st)

	// sql.Open validates lazily, so construction succeeds without a server.
	st, err = NewStore(ctx, config.DbSettings{Type: "postgres", DSN: "postgres://localhost/erp?sslmode=disable"})
	assert.NoError(t, err)
	assert.IsType(t, &PostgresStore{}, st)

	st, err = NewStore(ctx, config.DbSettings{Type: "dynamodb"})
	assert.Error(t, err)
	assert.Nil(t, st)
}
