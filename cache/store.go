// Package cache provides a TTL-bounded, copy-on-write in-memory store for
// entity collections. Snapshots handed to callers are never aliased by later
// mutations, so concurrent readers cannot observe a torn collection.
package cache

import (
	"sync"
	"time"

	"github.com/c360studio/boardsync/model"
)

// Key identifies a cached collection.
type Key string

// ProjectsKey is the key for the projects list collection.
const ProjectsKey Key = "projects"

// TasksKey returns the key for a project's task collection.
func TasksKey(projectID model.EntityID) Key {
	return Key("tasks:" + projectID.String())
}

// Default TTLs per collection kind.
const (
	DefaultProjectsTTL = 5 * time.Minute
	DefaultTasksTTL    = 2 * time.Minute
)

// Entity is the constraint for cacheable values. Clone must return a deep
// copy so snapshots stay independent.
type Entity[T any] interface {
	EntityID() model.EntityID
	Clone() T
}

// Snapshot is an immutable view of a cached collection.
type Snapshot[T Entity[T]] struct {
	// Entities is the collection at fetch time plus any optimistic
	// mutations applied since.
	Entities []T
	// FetchedAt is when the collection was last put.
	FetchedAt time.Time
	// Stale reports whether the TTL has elapsed (or the key was
	// invalidated) and the next read should trigger a refetch.
	Stale bool
}

// Find returns the entity with the given ID, if present.
func (s Snapshot[T]) Find(id model.EntityID) (T, bool) {
	for _, e := range s.Entities {
		if e.EntityID().Equal(id) {
			return e, true
		}
	}
	var zero T
	return zero, false
}

type entry[T Entity[T]] struct {
	entities    []T
	fetchedAt   time.Time
	invalidated bool
}

// touch makes an invalidated entry readable again after an optimistic
// mutation lands in it. The fetch time is zeroed so reads report stale and
// the refetch obligation survives.
func (e *entry[T]) touch() {
	if e.invalidated {
		e.invalidated = false
		e.fetchedAt = time.Time{}
	}
}

// Store caches entity collections keyed by Key. All mutation operations are
// copy-on-write over the whole collection.
type Store[T Entity[T]] struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   func() time.Time
	entries map[Key]*entry[T]
	metrics *Metrics
}

// Option configures a Store.
type Option[T Entity[T]] func(*Store[T])

// WithClock overrides the time source, primarily for tests.
func WithClock[T Entity[T]](clock func() time.Time) Option[T] {
	return func(s *Store[T]) { s.clock = clock }
}

// WithMetrics attaches counters to the store.
func WithMetrics[T Entity[T]](m *Metrics) Option[T] {
	return func(s *Store[T]) { s.metrics = m }
}

// NewStore creates a Store whose collections go stale after ttl.
func NewStore[T Entity[T]](ttl time.Duration, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[Key]*entry[T]),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current snapshot for key. The second return value is false
// when the key has never been put or has been invalidated (a miss). Get never
// blocks on I/O and never fetches.
func (s *Store[T]) Get(key Key) (Snapshot[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.invalidated {
		s.metrics.miss(string(key))
		return Snapshot[T]{}, false
	}

	snap := Snapshot[T]{
		Entities:  cloneAll(e.entities),
		FetchedAt: e.fetchedAt,
		Stale:     s.clock().Sub(e.fetchedAt) > s.ttl,
	}
	if snap.Stale {
		s.metrics.stale(string(key))
	} else {
		s.metrics.hit(string(key))
	}
	return snap, true
}

// Put replaces the collection for key, stamping fetchedAt with the current
// time. The input is cloned; the caller keeps ownership of its slice.
func (s *Store[T]) Put(key Key, entities []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &entry[T]{
		entities:  cloneAll(entities),
		fetchedAt: s.clock(),
	}
}

// Invalidate forces the next Get for key to report a miss regardless of TTL.
// Invalidating an absent or already-stale key is a no-op.
func (s *Store[T]) Invalidate(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.invalidated = true
	}
}

// InvalidateAll invalidates every cached collection.
func (s *Store[T]) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.invalidated = true
	}
}

// MutateEntity applies transform to the entity with the given ID inside the
// collection at key, producing a new snapshot. It reports false (a no-op)
// when the key or entity is absent.
func (s *Store[T]) MutateEntity(key Key, id model.EntityID, transform func(T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	for i, ent := range e.entities {
		if ent.EntityID().Equal(id) {
			next := cloneAll(e.entities)
			next[i] = transform(ent.Clone())
			e.entities = next
			e.touch()
			s.metrics.mutation(string(key))
			return true
		}
	}
	return false
}

// Upsert replaces the entity with the same ID, or appends it when absent.
// Upserting into a key that was never put seeds an empty collection. The
// seeded entry has a zero fetch time, so reads see the entity but report it
// stale, keeping the refetch obligation intact.
func (s *Store[T]) Upsert(key Key, ent T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry[T]{}
		s.entries[key] = e
	}
	next := cloneAll(e.entities)
	replaced := false
	for i, existing := range next {
		if existing.EntityID().Equal(ent.EntityID()) {
			next[i] = ent.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		next = append(next, ent.Clone())
	}
	e.entities = next
	e.touch()
	s.metrics.mutation(string(key))
}

// RemoveEntity produces a new snapshot without the entity. It reports false
// when the key or entity is absent.
func (s *Store[T]) RemoveEntity(key Key, id model.EntityID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	for i, ent := range e.entities {
		if ent.EntityID().Equal(id) {
			next := make([]T, 0, len(e.entities)-1)
			for j, other := range e.entities {
				if j != i {
					next = append(next, other.Clone())
				}
			}
			e.entities = next
			e.touch()
			s.metrics.mutation(string(key))
			return true
		}
	}
	return false
}

func cloneAll[T Entity[T]](entities []T) []T {
	if entities == nil {
		return nil
	}
	out := make([]T, len(entities))
	for i, e := range entities {
		out[i] = e.Clone()
	}
	return out
}
