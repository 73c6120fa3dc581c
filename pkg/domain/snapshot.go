// Package domain holds the narrow read-only view of the business layer the
// sync pipeline consumes. Work orders and inventory are owned elsewhere;
// the pipeline only ever asks for an entity snapshot to enrich outbound
// documents with a correlation hash.
package domain

import "sync"

// EntitySnapshot is the read-only projection of a business entity at
// mapping time. Hash links the outbound document back to the originating
// record without exposing personal identifiers.
type EntitySnapshot struct {
	TenantID string `json:"tenant_id"`
	EntityID string `json:"entity_id"`
	Hash     string `json:"hash,omitempty"`
}

// SnapshotSource looks up the current snapshot of an entity. Absence is
// tolerated by all callers.
type SnapshotSource interface {
	GetEntitySnapshot(tenantID, entityID string) (*EntitySnapshot, bool)
}

// StaticSnapshotSource is a map-backed SnapshotSource for development and
// tests.
type StaticSnapshotSource struct {
	mu        sync.RWMutex
	snapshots map[string]EntitySnapshot
}

func NewStaticSnapshotSource() *StaticSnapshotSource {
	return &StaticSnapshotSource{snapshots: make(map[string]EntitySnapshot)}
}

func (s *StaticSnapshotSource) Put(snapshot EntitySnapshot) {
	s.mu.Lock()
	s.snapshots[snapshot.TenantID+"/"+snapshot.EntityID] = snapshot
	s.mu.Unlock()
}

func (s *StaticSnapshotSource) GetEntitySnapshot(tenantID, entityID string) (*EntitySnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[tenantID+"/"+entityID]
	if !ok {
		return nil, false
	}
	return &snapshot, true
}
