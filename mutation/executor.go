// Package mutation implements optimistic mutation execution: local changes
// are applied to the cache synchronously, confirmed or rolled back when the
// remote call resolves, and superseded when a newer mutation on the same
// entity takes over rollback responsibility.
package mutation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/boardsync/cache"
	"github.com/c360studio/boardsync/model"
	"github.com/c360studio/boardsync/remote"
)

// ErrSuperseded resolves a ticket whose mutation was replaced by a newer
// local mutation on the same entity before its remote call finished.
var ErrSuperseded = errors.New("superseded by a newer local mutation")

// State is the lifecycle state of a pending mutation.
type State string

const (
	StatePending    State = "pending"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
)

// Kind classifies a mutation.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// ChangeEvent describes a committed local mutation for the realtime publish
// side.
type ChangeEvent struct {
	Scope     string // "project" or "task"
	Action    string // "created", "updated", "deleted"
	EntityID  string
	ProjectID string
	Summary   string
}

// Mutation describes one optimistic change to an entity in a collection.
type Mutation[T cache.Entity[T]] struct {
	Kind Kind
	// Key is the cache collection the entity lives in.
	Key cache.Key
	// ID is the target entity. For creates this is the temporary ID
	// carried by Entity.
	ID model.EntityID
	// Entity is the optimistic value (unused for deletes).
	Entity T
	// ProjectID scopes task mutations to their parent project.
	ProjectID model.EntityID
	// Call performs the remote mutation and returns the authoritative
	// entity (the zero value for deletes).
	Call func(ctx context.Context) (T, error)
	// Event is the change event published on commit.
	Event ChangeEvent
}

// Outcome is the terminal result of a mutation.
type Outcome[T cache.Entity[T]] struct {
	State  State
	Entity T // authoritative server entity on commit (zero for deletes)
	Err    error
}

// Ticket tracks one mutation instance to its outcome.
type Ticket[T cache.Entity[T]] struct {
	// ID uniquely identifies the pending mutation record.
	ID   string
	done chan Outcome[T]
}

// Done returns a channel that receives the terminal outcome exactly once.
func (t *Ticket[T]) Done() <-chan Outcome[T] { return t.done }

// Wait blocks until the mutation resolves or ctx is done.
func (t *Ticket[T]) Wait(ctx context.Context) (Outcome[T], error) {
	select {
	case out := <-t.done:
		return out, nil
	case <-ctx.Done():
		return Outcome[T]{}, ctx.Err()
	}
}

type pendingKey struct {
	Key cache.Key
	ID  string
}

// record is the pending-mutation bookkeeping for one entity. The prior value
// always belongs to the FIRST instance in the chain; seq identifies the
// latest instance, whose response is the only one applied.
type record[T cache.Entity[T]] struct {
	id           string
	key          cache.Key
	entityID     model.EntityID
	seq          uint64
	prior        T
	priorPresent bool
	kind         Kind
	ticket       *Ticket[T]
}

// Executor applies mutations optimistically against one store and reconciles
// them with their remote outcomes.
type Executor[T cache.Entity[T]] struct {
	store   *cache.Store[T]
	logger  *slog.Logger
	timeout time.Duration
	metrics *Metrics

	publish        func(ChangeEvent)
	onUnauthorized func()
	gate           func(Mutation[T]) error

	mu       sync.Mutex
	seq      uint64
	pending  map[pendingKey]*record[T]
	deferred map[cache.Key]bool
}

// ExecutorOption configures an Executor.
type ExecutorOption[T cache.Entity[T]] func(*Executor[T])

// WithPublisher sets the sink for committed change events.
func WithPublisher[T cache.Entity[T]](publish func(ChangeEvent)) ExecutorOption[T] {
	return func(e *Executor[T]) { e.publish = publish }
}

// WithUnauthorizedHook sets the callback invoked when a remote call fails
// with an unauthorized class.
func WithUnauthorizedHook[T cache.Entity[T]](hook func()) ExecutorOption[T] {
	return func(e *Executor[T]) { e.onUnauthorized = hook }
}

// WithGate sets a pre-check that can reject a mutation before any optimistic
// state is applied.
func WithGate[T cache.Entity[T]](gate func(Mutation[T]) error) ExecutorOption[T] {
	return func(e *Executor[T]) { e.gate = gate }
}

// WithTimeout sets the remote call timeout.
func WithTimeout[T cache.Entity[T]](d time.Duration) ExecutorOption[T] {
	return func(e *Executor[T]) { e.timeout = d }
}

// WithLogger sets the executor logger.
func WithLogger[T cache.Entity[T]](logger *slog.Logger) ExecutorOption[T] {
	return func(e *Executor[T]) { e.logger = logger }
}

// WithExecutorMetrics attaches mutation counters.
func WithExecutorMetrics[T cache.Entity[T]](m *Metrics) ExecutorOption[T] {
	return func(e *Executor[T]) { e.metrics = m }
}

// NewExecutor creates an executor over the given store.
func NewExecutor[T cache.Entity[T]](store *cache.Store[T], opts ...ExecutorOption[T]) *Executor[T] {
	e := &Executor[T]{
		store:    store,
		logger:   slog.Default(),
		timeout:  15 * time.Second,
		pending:  make(map[pendingKey]*record[T]),
		deferred: make(map[cache.Key]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies m optimistically and launches its remote call. The
// returned ticket resolves exactly once. A gate rejection returns an error
// and leaves the cache untouched.
func (e *Executor[T]) Execute(ctx context.Context, m Mutation[T]) (*Ticket[T], error) {
	if m.Call == nil {
		return nil, errors.New("mutation has no remote call")
	}
	if m.ID.IsZero() && m.Kind != KindDelete {
		m.ID = m.Entity.EntityID()
	}
	if m.ID.IsZero() {
		return nil, errors.New("mutation has no target entity")
	}
	if e.gate != nil {
		if err := e.gate(m); err != nil {
			return nil, err
		}
	}

	e.mu.Lock()
	pk := pendingKey{Key: m.Key, ID: m.ID.String()}

	// Capture the rollback value before touching the cache. When a
	// mutation is already pending on this entity, its prior stays
	// authoritative (chain rule): rolling back to an intermediate
	// optimistic value would resurrect state the backend never confirmed.
	rec, superseding := e.pending[pk]
	var supersededTicket *Ticket[T]
	if superseding {
		supersededTicket = rec.ticket
	} else {
		rec = &record[T]{
			id:       uuid.New().String(),
			key:      m.Key,
			entityID: m.ID,
		}
		if snap, ok := e.store.Get(m.Key); ok {
			rec.prior, rec.priorPresent = snap.Find(m.ID)
		}
		e.pending[pk] = rec
	}

	// Optimistic apply, synchronously, before any network I/O.
	switch m.Kind {
	case KindDelete:
		e.store.RemoveEntity(m.Key, m.ID)
	default:
		e.store.Upsert(m.Key, m.Entity)
	}

	e.seq++
	seq := e.seq
	rec.seq = seq
	rec.kind = m.Kind
	rec.ticket = &Ticket[T]{ID: rec.id, done: make(chan Outcome[T], 1)}
	ticket := rec.ticket
	e.mu.Unlock()

	if supersededTicket != nil {
		e.metrics.count(string(m.Kind), "superseded")
		supersededTicket.done <- Outcome[T]{State: StateRolledBack, Err: ErrSuperseded}
	}

	go func() {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		result, err := m.Call(callCtx)
		e.resolve(pk, seq, m, result, err)
	}()

	return ticket, nil
}

// Invalidate marks key for refetch. When a mutation is pending on the key,
// invalidation is deferred until the last pending mutation resolves so the
// in-flight optimistic value is not discarded against stale server data.
func (e *Executor[T]) Invalidate(key cache.Key) {
	e.mu.Lock()
	if e.hasPendingLocked(key) {
		e.deferred[key] = true
		e.mu.Unlock()
		e.logger.Debug("invalidation deferred", slog.String("key", string(key)))
		return
	}
	e.mu.Unlock()
	e.store.Invalidate(key)
}

// HasPending reports whether any mutation is in flight for the key.
func (e *Executor[T]) HasPending(key cache.Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasPendingLocked(key)
}

func (e *Executor[T]) hasPendingLocked(key cache.Key) bool {
	for pk := range e.pending {
		if pk.Key == key {
			return true
		}
	}
	return false
}

// resolve reconciles one remote response with the pending record. Responses
// for superseded instances are consumed and dropped.
func (e *Executor[T]) resolve(pk pendingKey, seq uint64, m Mutation[T], result T, callErr error) {
	e.mu.Lock()
	rec, ok := e.pending[pk]
	if !ok || rec.seq != seq {
		e.mu.Unlock()
		e.logger.Debug("dropping stale mutation response",
			slog.String("entity", pk.ID),
			slog.String("key", string(pk.Key)))
		return
	}
	delete(e.pending, pk)
	ticket := rec.ticket

	var outcome Outcome[T]
	var unauthorized bool
	if callErr == nil {
		e.commitLocked(rec, result)
		outcome = Outcome[T]{State: StateCommitted, Entity: result}
	} else {
		unauthorized = e.rollbackLocked(rec, callErr)
		outcome = Outcome[T]{State: StateRolledBack, Err: callErr}
	}
	e.flushDeferredLocked(pk.Key)
	e.mu.Unlock()

	e.metrics.count(string(m.Kind), string(outcome.State))
	if outcome.State == StateCommitted && e.publish != nil {
		ev := m.Event
		if ev.EntityID == "" {
			ev.EntityID = pk.ID
		}
		if m.Kind != KindDelete {
			ev.EntityID = result.EntityID().String()
		}
		e.publish(ev)
	}
	if unauthorized && e.onUnauthorized != nil {
		e.onUnauthorized()
	}
	ticket.done <- outcome
}

// commitLocked replaces the optimistic value with the authoritative server
// entity. This is the only place a temporary ID is swapped for a persisted
// one.
func (e *Executor[T]) commitLocked(rec *record[T], result T) {
	if rec.kind == KindDelete {
		// Entity already removed optimistically; the server confirmed.
		return
	}
	if !rec.entityID.Equal(result.EntityID()) {
		e.store.RemoveEntity(rec.key, rec.entityID)
	}
	e.store.Upsert(rec.key, result)
	e.logger.Debug("mutation committed",
		slog.String("key", string(rec.key)),
		slog.String("entity", result.EntityID().String()))
}

// rollbackLocked restores the pre-mutation state and reports whether the
// failure revoked the session.
func (e *Executor[T]) rollbackLocked(rec *record[T], callErr error) bool {
	class := remote.ClassOf(callErr)

	switch class {
	case remote.ClassNotFound:
		// The entity vanished remotely: remove it locally regardless of
		// the prior value.
		e.store.RemoveEntity(rec.key, rec.entityID)
		if rec.priorPresent && !rec.prior.EntityID().Equal(rec.entityID) {
			e.store.RemoveEntity(rec.key, rec.prior.EntityID())
		}
	default:
		if rec.priorPresent {
			e.store.Upsert(rec.key, rec.prior)
			if !rec.prior.EntityID().Equal(rec.entityID) {
				e.store.RemoveEntity(rec.key, rec.entityID)
			}
		} else {
			e.store.RemoveEntity(rec.key, rec.entityID)
		}
	}

	e.logger.Debug("mutation rolled back",
		slog.String("key", string(rec.key)),
		slog.String("entity", rec.entityID.String()),
		slog.String("class", string(class)))
	return class == remote.ClassUnauthorized
}

// flushDeferredLocked applies a deferred invalidation once the key has no
// pending mutations left.
func (e *Executor[T]) flushDeferredLocked(key cache.Key) {
	if !e.deferred[key] {
		return
	}
	if e.hasPendingLocked(key) {
		return
	}
	delete(e.deferred, key)
	e.store.Invalidate(key)
	e.logger.Debug("deferred invalidation applied", slog.String("key", string(key)))
}
