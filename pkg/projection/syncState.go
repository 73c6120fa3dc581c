// Package projection derives the user-facing sync state of a business
// entity from its raw event log.
package projection

import (
	"time"

	"github.com/otodash/erp-sync/pkg/store"
)

// State is the derived, dashboard-facing delivery state of an entity.
type State string

const (
	StateIdle    State = "IDLE"
	StatePending State = "PENDING"
	StateFailed  State = "FAILED"
	StateSent    State = "SENT"
	StateOffline State = "OFFLINE"
)

// DefaultOfflineThreshold is the attempt count at which a failing entity
// is surfaced as OFFLINE instead of FAILED.
const DefaultOfflineThreshold = 3

// SyncStatus is the projection result for one entity.
type SyncStatus struct {
	State         State     `json:"state"`
	LastError     string    `json:"last_error,omitempty"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
	Attempts      int       `json:"attempts,omitempty"`
}

// Project derives the sync state from an entity's events, which must be
// sorted most-recent-first by creation time (the store's ListByEntity
// order).
//
// The precedence is deliberate: a pending event dominates everything else,
// so an entity that previously went OFFLINE surfaces as PENDING again the
// moment a new event is enqueued for it.
func Project(events []store.OutboxEvent) SyncStatus {
	return ProjectWithThreshold(events, DefaultOfflineThreshold)
}

// ProjectWithThreshold is Project with a configurable OFFLINE attempt
// threshold.
func ProjectWithThreshold(events []store.OutboxEvent, offlineThreshold int) SyncStatus {
	if offlineThreshold <= 0 {
		offlineThreshold = DefaultOfflineThreshold
	}
	if len(events) == 0 {
		return SyncStatus{State: StateIdle}
	}

	for _, event := range events {
		if event.Status == store.StatusPending {
			return SyncStatus{
				State:         StatePending,
				LastError:     event.LastError,
				LastAttemptAt: event.LastAttemptAt,
				Attempts:      event.Attempts,
			}
		}
	}

	latest := events[0]
	if latest.Status == store.StatusSent {
		return SyncStatus{
			State:         StateSent,
			LastAttemptAt: latest.LastAttemptAt,
			Attempts:      latest.Attempts,
		}
	}

	state := StateFailed
	if latest.Attempts >= offlineThreshold {
		state = StateOffline
	}
	return SyncStatus{
		State:         state,
		LastError:     latest.LastError,
		LastAttemptAt: latest.LastAttemptAt,
		Attempts:      latest.Attempts,
	}
}
