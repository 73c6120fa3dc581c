// Package audit keeps the append-only record of documents actually
// transmitted to the ERP, bounded to a recent window for the compliance
// views on the dashboard.
package audit

import (
	"sync"
	"time"

	"github.com/otodash/erp-sync/pkg/mapper"
	"github.com/otodash/erp-sync/pkg/notify"
)

// DefaultMaxEntries bounds the log when no explicit cap is configured.
const DefaultMaxEntries = 50

// Entry is one successfully delivered document.
type Entry struct {
	Document    mapper.OutboundDocument `json:"document"`
	DeliveredAt time.Time               `json:"delivered_at"`
}

// Log is a capped, most-recent-first list of delivered documents. Oldest
// entries are evicted once the cap is reached.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	hub     *notify.Hub
}

func NewLog(maxEntries int) *Log {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Log{max: maxEntries, hub: notify.NewHub()}
}

// Append records a delivered document at the head of the log.
func (l *Log) Append(doc mapper.OutboundDocument, deliveredAt time.Time) {
	l.mu.Lock()
	l.entries = append([]Entry{{Document: doc, DeliveredAt: deliveredAt}}, l.entries...)
	if len(l.entries) > l.max {
		l.entries = l.entries[:l.max]
	}
	l.mu.Unlock()

	l.hub.Notify()
}

// Entries returns a most-recent-first snapshot of the log.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	snapshot := make([]Entry, len(l.entries))
	copy(snapshot, l.entries)
	return snapshot
}

// Len reports the current number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Changes returns the hub that signals log mutations.
func (l *Log) Changes() *notify.Hub {
	return l.hub
}
