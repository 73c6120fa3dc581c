package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/otodash/erp-sync/pkg/notify"
)

// MemoryStore is the reference EventStore. It keeps the full event log in
// process memory behind a single mutex; reads return copies so callers
// never observe a torn write.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string]*OutboxEvent
	order  []string // insertion order, for stable iteration
	clock  clockwork.Clock
	hub    *notify.Hub
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(clockwork.NewRealClock())
}

func NewMemoryStoreWithClock(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*OutboxEvent),
		clock:  clock,
		hub:    notify.NewHub(),
	}
}

func (m *MemoryStore) Enqueue(ctx context.Context, tenantID, entityID string, eventType EventType, payload any) (*OutboxEvent, error) {
	event, err := NewEvent(tenantID, entityID, eventType, payload, m.clock.Now())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.events[event.ID] = event
	m.order = append(m.order, event.ID)
	m.mu.Unlock()

	m.hub.Notify()
	copied := *event
	return &copied, nil
}

func (m *MemoryStore) ListDue(ctx context.Context, now time.Time) ([]OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []OutboxEvent
	for _, id := range m.order {
		event := m.events[id]
		if event.Status == StatusSent {
			continue
		}
		if event.NextRetryAt.After(now) {
			continue
		}
		due = append(due, *event)
	}
	return due, nil
}

func (m *MemoryStore) ListByEntity(ctx context.Context, tenantID, entityID string) ([]OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []OutboxEvent
	for _, id := range m.order {
		event := m.events[id]
		if event.TenantID == tenantID && event.EntityID == entityID {
			events = append(events, *event)
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

func (m *MemoryStore) MarkSent(ctx context.Context, eventID string) error {
	m.mu.Lock()
	event, ok := m.events[eventID]
	if !ok || event.Status == StatusSent {
		m.mu.Unlock()
		return nil
	}
	event.Status = StatusSent
	event.LastAttemptAt = m.clock.Now()
	event.LastError = ""
	m.mu.Unlock()

	m.hub.Notify()
	return nil
}

func (m *MemoryStore) MarkFailed(ctx context.Context, eventID string, cause error, delay time.Duration) error {
	m.mu.Lock()
	event, ok := m.events[eventID]
	if !ok || event.Status == StatusSent {
		m.mu.Unlock()
		return nil
	}
	now := m.clock.Now()
	event.Status = StatusFailed
	event.Attempts++
	event.LastError = cause.Error()
	event.LastAttemptAt = now
	event.NextRetryAt = now.Add(delay)
	m.mu.Unlock()

	m.hub.Notify()
	return nil
}

func (m *MemoryStore) RetryNow(ctx context.Context, tenantID, entityID string) error {
	now := m.clock.Now()
	changed := false

	m.mu.Lock()
	for _, id := range m.order {
		event := m.events[id]
		if event.TenantID != tenantID || event.EntityID != entityID {
			continue
		}
		if event.Status == StatusSent {
			continue
		}
		event.Status = StatusPending
		event.NextRetryAt = now
		changed = true
	}
	m.mu.Unlock()

	if changed {
		m.hub.Notify()
	}
	return nil
}

func (m *MemoryStore) Changes() *notify.Hub {
	return m.hub
}

func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}
