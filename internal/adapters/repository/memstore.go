package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

// MemoryStore is the in-memory Store. Records live in one map and each role
// keeps an index of its ids, so an id is in at most one partition.
type MemoryStore struct {
	mu             sync.RWMutex
	records        map[string]*model.Connection
	partitions     map[model.Role]map[string]struct{}
	metricsEnabled bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty registry.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		records:        make(map[string]*model.Connection),
		partitions:     make(map[model.Role]map[string]struct{}, len(model.Roles)),
		metricsEnabled: true,
	}
	for _, r := range model.Roles {
		s.partitions[r] = make(map[string]struct{})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register implements Store.
func (s *MemoryStore) Register(_ context.Context, id string, role model.Role, meta model.Meta) error {
	if id == "" {
		return ErrInvalidID
	}
	if _, ok := s.partitions[role]; !ok {
		return fmt.Errorf("%w: %d", ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.records[id]; ok {
		delete(s.partitions[prev.Role], id)
	}
	s.records[id] = &model.Connection{ID: id, Role: role, Meta: meta}
	s.partitions[role][id] = struct{}{}
	s.publishLocked()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return model.Connection{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(_ context.Context, id string) (model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return model.RoleUnregistered, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.records, id)
	delete(s.partitions[rec.Role], id)
	s.publishLocked()
	return rec.Role, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context, role model.Role) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partitions[role])
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(_ context.Context, role model.Role) []model.Connection {
	s.mu.RLock()
	out := make([]model.Connection, 0, len(s.partitions[role]))
	for id := range s.partitions[role] {
		out = append(out, s.records[id].Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ConnectedAt.Equal(b.ConnectedAt) {
			return a.ConnectedAt.Before(b.ConnectedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// SetLastShake implements Store.
func (s *MemoryStore) SetLastShake(_ context.Context, id string, shake model.ShakeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Role != model.RoleController {
		return fmt.Errorf("%w: %s is %s", ErrNotController, id, rec.Role)
	}
	if rec.LastShake != nil && shake.At.Before(rec.LastShake.At) {
		return fmt.Errorf("%w: %s", ErrStaleShake, id)
	}
	rec.LastShake = &shake
	return nil
}

func (s *MemoryStore) publishLocked() {
	if !s.metricsEnabled {
		return
	}
	for role, ids := range s.partitions {
		metrics.UpdateConnections(role.String(), len(ids))
	}
}
