package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/otodash/erp-sync/pkg/store"
)

func TestProjectEmptyIsIdle(t *testing.T) {
	status := Project(nil)
	assert.Equal(t, StateIdle, status.State)
}

func TestProjectPendingDominates(t *testing.T) {
	now := time.Now()

	// Most-recent-first, as ListByEntity returns them. A pending event
	// anywhere in the log wins over a newer SENT one.
	events := []store.OutboxEvent{
		{Status: store.StatusSent, CreatedAt: now},
		{Status: store.StatusPending, CreatedAt: now.Add(-time.Minute)},
		{Status: store.StatusFailed, Attempts: 5, CreatedAt: now.Add(-2 * time.Minute)},
	}

	status := Project(events)
	assert.Equal(t, StatePending, status.State)
}

func TestProjectNewestSentWins(t *testing.T) {
	now := time.Now()
	events := []store.OutboxEvent{
		{Status: store.StatusSent, Attempts: 1, LastAttemptAt: now, CreatedAt: now},
		{Status: store.StatusFailed, Attempts: 2, LastError: "busy", CreatedAt: now.Add(-time.Minute)},
	}

	status := Project(events)
	assert.Equal(t, StateSent, status.State)
	assert.Empty(t, status.LastError)
	assert.Equal(t, now, status.LastAttemptAt)
}

func TestProjectFailedBelowThreshold(t *testing.T) {
	events := []store.OutboxEvent{
		{Status: store.StatusFailed, Attempts: 2, LastError: "endpoint busy"},
	}

	status := Project(events)
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, "endpoint busy", status.LastError)
	assert.Equal(t, 2, status.Attempts)
}

func TestProjectOfflineAtThreshold(t *testing.T) {
	events := []store.OutboxEvent{
		{Status: store.StatusFailed, Attempts: 3, LastError: "endpoint busy"},
	}

	status := Project(events)
	assert.Equal(t, StateOffline, status.State)
}

func TestProjectWithCustomThreshold(t *testing.T) {
	events := []store.OutboxEvent{
		{Status: store.StatusFailed, Attempts: 3},
	}

	assert.Equal(t, StateFailed, ProjectWithThreshold(events, 5).State)
	assert.Equal(t, StateOffline, ProjectWithThreshold(events, 2).State)

	// Non-positive thresholds fall back to the default.
	assert.Equal(t, StateOffline, ProjectWithThreshold(events, 0).State)
}

func TestProjectNewEventRevivesOfflineEntity(t *testing.T) {
	now := time.Now()
	events := []store.OutboxEvent{
		{Status: store.StatusPending, CreatedAt: now},
		{Status: store.StatusFailed, Attempts: 4, LastError: "endpoint busy", CreatedAt: now.Add(-time.Hour)},
	}

	status := Project(events)
	assert.Equal(t, StatePending, status.State)
}
