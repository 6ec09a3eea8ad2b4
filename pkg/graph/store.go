package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entitiesAddedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spoke_entities_added_total",
		Help: "Entities newly added to the job state by type",
	}, []string{"type"})

	relationshipsAddedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spoke_relationships_added_total",
		Help: "Relationships newly added to the job state by type",
	}, []string{"type"})
)

// ErrDuplicateRelationship is returned when a relationship key was already added.
var ErrDuplicateRelationship = errors.New("duplicate relationship key")

// JobState is the run-scoped store entities and relationships are written to.
// AddEntity is "add if absent, else return existing": the returned entity is
// the one stored under the key, and the bool reports whether it was new.
type JobState interface {
	AddEntity(ctx context.Context, e *Entity) (*Entity, bool, error)
	AddRelationship(ctx context.Context, r *Relationship) error
	FindEntity(ctx context.Context, key string) (*Entity, bool, error)
}

// MemoryStore is an in-memory JobState. It keeps insertion order.
type MemoryStore struct {
	mu            sync.RWMutex
	entities      []*Entity
	byKey         map[string]*Entity
	relationships []*Relationship
	relKeys       map[string]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey:   make(map[string]*Entity),
		relKeys: make(map[string]struct{}),
	}
}

// AddEntity implements JobState.
func (s *MemoryStore) AddEntity(ctx context.Context, e *Entity) (*Entity, bool, error) {
	if e == nil {
		return nil, false, fmt.Errorf("add entity: nil entity")
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byKey[e.Key]; ok {
		return existing, false, nil
	}
	s.byKey[e.Key] = e
	s.entities = append(s.entities, e)
	entitiesAddedTotal.WithLabelValues(e.Type).Inc()
	return e, true, nil
}

// AddRelationship implements JobState.
func (s *MemoryStore) AddRelationship(ctx context.Context, r *Relationship) error {
	if r == nil {
		return fmt.Errorf("add relationship: nil relationship")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.relKeys[r.Key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRelationship, r.Key)
	}
	s.relKeys[r.Key] = struct{}{}
	s.relationships = append(s.relationships, r)
	relationshipsAddedTotal.WithLabelValues(r.Type).Inc()
	return nil
}

// FindEntity implements JobState.
func (s *MemoryStore) FindEntity(ctx context.Context, key string) (*Entity, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byKey[key]
	return e, ok, nil
}

// Entities returns the stored entities in insertion order.
func (s *MemoryStore) Entities() []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Entity(nil), s.entities...)
}

// Relationships returns the stored relationships in insertion order.
func (s *MemoryStore) Relationships() []*Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Relationship(nil), s.relationships...)
}

// EntitiesByType returns the stored entities of one _type.
func (s *MemoryStore) EntitiesByType(typ string) []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entity
	for _, e := range s.entities {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// TypeCounts returns the number of entities and relationships per _type.
func (s *MemoryStore) TypeCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, e := range s.entities {
		counts[e.Type]++
	}
	for _, r := range s.relationships {
		counts[r.Type]++
	}
	return counts
}

// EncounteredTypes returns every _type seen, sorted.
func (s *MemoryStore) EncounteredTypes() []string {
	counts := s.TypeCounts()
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
