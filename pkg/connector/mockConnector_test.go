package connector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockConnectorAlwaysFailing(t *testing.T) {
	conn := NewMockConnectorWithBehavior(0, 0, 1.0, 1)
	defer conn.Close()

	err := conn.Deliver(context.Background(), testDocument())
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestMockConnectorNeverFailing(t *testing.T) {
	conn := NewMockConnectorWithBehavior(0, 0, 0, 1)
	defer conn.Close()

	for i := 0; i < 10; i++ {
		assert.NoError(t, conn.Deliver(context.Background(), testDocument()))
	}
}

func TestMockConnectorHonorsContextDuringLatency(t *testing.T) {
	conn := NewMockConnectorWithBehavior(time.Minute, time.Minute, 0, 1)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := conn.Deliver(ctx, testDocument())
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}
