package mutation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/boardsync/cache"
	"github.com/c360studio/boardsync/model"
	"github.com/c360studio/boardsync/remote"
)

var testKey = cache.TasksKey(model.PersistedID("p1"))

func newTestStore() *cache.Store[model.Task] {
	return cache.NewStore[model.Task](cache.DefaultTasksTTL)
}

func serverTask(id string, status model.CanonicalStatus) model.Task {
	return model.Task{ID: model.PersistedID(id), ProjectID: model.PersistedID("p1"), Title: "Write spec", Status: status}
}

func waitOutcome(t *testing.T, ticket *Ticket[model.Task]) Outcome[model.Task] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := ticket.Wait(ctx)
	require.NoError(t, err)
	return out
}

func TestCreateOptimisticThenCommit(t *testing.T) {
	store := newTestStore()
	exec := NewExecutor(store)

	tmp := model.NewTemporaryID()
	optimistic := model.Task{ID: tmp, ProjectID: model.PersistedID("p1"), Title: "Write spec", Status: model.StatusToDo}

	release := make(chan struct{})
	ticket, err := exec.Execute(context.Background(), Mutation[model.Task]{
		Kind:   KindCreate,
		Key:    testKey,
		Entity: optimistic,
		Call: func(ctx context.Context) (model.Task, error) {
			<-release
			return serverTask("t1", model.StatusToDo), nil
		},
	})
	require.NoError(t, err)

	// Before the remote resolves, the optimistic entity is visible under
	// its temporary ID.
	snap, ok := store.Get(testKey)
	require.True(t, ok)
	require.Len(t, snap.Entities, 1)
	assert.True(t, snap.Entities[0].ID.IsTemporary())
	assert.Equal(t, "Write spec", snap.Entities[0].Title)

	close(release)
	out := waitOutcome(t, ticket)
	assert.Equal(t, StateCommitted, out.State)
	assert.Equal(t, "t1", out.Entity.ID.String())

	// After commit the temporary ID is gone; only the server entity remains.
	snap, _ = store.Get(testKey)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, "t1", snap.Entities[0].ID.String())
	assert.False(t, snap.Entities[0].ID.IsTemporary())
}

func TestStatusChangeRollbackOnServerError(t *testing.T) {
	store := newTestStore()
	store.Put(testKey, []model.Task{serverTask("t1", model.StatusToDo)})
	before, _ := store.Get(testKey)

	exec := NewExecutor(store)

	moved := serverTask("t1", model.StatusInProgress)
	ticket, err := exec.Execute(context.Background(), Mutation[model.Task]{
		Kind:   KindUpdate,
		Key:    testKey,
		ID:     moved.ID,
		Entity: moved,
		Call: func(ctx context.Context) (model.Task, error) {
			return model.Task{}, remote.NewError(remote.ClassServer, "update task status", "boom")
		},
	})
	require.NoError(t, err)

	out := waitOutcome(t, ticket)
	assert.Equal(t, StateRolledBack, out.State)
	assert.True(t, remote.Retryable(out.Err), "server errors surface as retryable")

	after, _ := store.Get(testKey)
	got, found := after.Find(model.PersistedID("t1"))
	require.True(t, found)
	assert.Equal(t, model.StatusToDo, got.Status)
	assert.Equal(t, before.Entities, after.Entities, "rollback restores the pre-mutation collection")
}

func TestLastIntentWinsOutOfOrderResponses(t *testing.T) {
	store := newTestStore()
	store.Put(testKey, []model.Task{serverTask("t1", model.StatusToDo)})

	exec := NewExecutor(store)
	ctx := context.Background()

	releaseFirst := make(chan struct{})
	releaseSecond := make(chan struct{})

	first, err := exec.Execute(ctx, Mutation[model.Task]{
		Kind:   KindUpdate,
		Key:    testKey,
		ID:     model.PersistedID("t1"),
		Entity: serverTask("t1", model.StatusInProgress),
		Call: func(ctx context.Context) (model.Task, error) {
			<-releaseFirst
			return serverTask("t1", model.StatusInProgress), nil
		},
	})
	require.NoError(t, err)

	second, err := exec.Execute(ctx, Mutation[model.Task]{
		Kind:   KindUpdate,
		Key:    testKey,
		ID:     model.PersistedID("t1"),
		Entity: serverTask("t1", model.StatusCompleted),
		Call: func(ctx context.Context) (model.Task, error) {
			<-releaseSecond
			return serverTask("t1", model.StatusCompleted), nil
		},
	})
	require.NoError(t, err)

	// The first instance is superseded as soon as the second is issued.
	firstOut := waitOutcome(t, first)
	assert.Equal(t, StateRolledBack, firstOut.State)
	assert.ErrorIs(t, firstOut.Err, ErrSuperseded)

	// Second response arrives first and commits.
	close(releaseSecond)
	secondOut := waitOutcome(t, second)
	assert.Equal(t, StateCommitted, secondOut.State)

	// First response arrives last; it must be dropped, not applied.
	close(releaseFirst)
	time.Sleep(100 * time.Millisecond)

	snap, _ := store.Get(testKey)
	got, found := snap.Find(model.PersistedID("t1"))
	require.True(t, found)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestSupersededRollbackUsesFirstPrior(t *testing.T) {
	store := newTestStore()
	store.Put(testKey, []model.Task{serverTask("t1", model.StatusToDo)})

	exec := NewExecutor(store)
	ctx := context.Background()

	hold := make(chan struct{})
	_, err := exec.Execute(ctx, Mutation[model.Task]{
		Kind:   KindUpdate,
		Key:    testKey,
		ID:     model.PersistedID("t1"),
		Entity: serverTask("t1", model.StatusInProgress),
		Call: func(ctx context.Context) (model.Task, error) {
			<-hold
			return serverTask("t1", model.StatusInProgress), nil
		},
	})
	require.NoError(t, err)

	second, err := exec.Execute(ctx, Mutation[model.Task]{
		Kind:   KindUpdate,
		Key:    testKey,
		ID:     model.PersistedID("t1"),
		Entity: serverTask("t1", model.StatusCompleted),
		Call: func(ctx context.Context) (model.Task, error) {
			return model.Task{}, remote.NewError(remote.ClassServer, "update task status", "boom")
		},
	})
	require.NoError(t, err)

	out := waitOutcome(t, second)
	assert.Equal(t, StateRolledBack, out.State)

	// Rollback lands on the original ToDo, not the intermediate InProgress.
	snap, _ := store.Get(testKey)
	got, _ := snap.Find(model.PersistedID("t1"))
	assert.Equal(t, model.StatusToDo, got.Status)
	close(hold)
}

func TestCreateRollbackDropsTemporary(t *testing.T) {
	store := newTestStore()
	exec := NewExecutor(store)

	tmp := model.NewTemporaryID()
	ticket, err := exec.Execute(context.Background(), Mutation[model.Task]{
		Kind:   KindCreate,
		Key:    testKey,
		Entity: model.Task{ID: tmp, Title: "doomed", Status: model.StatusToDo},
		Call: func(ctx context.Context) (model.Task, error) {
			return model.Task{}, remote.NewError(remote.ClassServer, "create task", "boom")
		},
	})
	require.NoError(t, err)

	out := waitOutcome(t, ticket)
	assert.Equal(t, StateRolledBack, out.State)

	snap, ok := store.Get(testKey)
	if ok {
		assert.Empty(t, snap.Entities, "failed create must not leave the temporary entity behind")
	}
}

func TestDeleteRollbackReinserts(t *testing.T) {
	store := newTestStore()
	store.Put(testKey, []model.Task{serverTask("t1", model.StatusToDo)})

	exec := NewExecutor(store)
	ticket, err := exec.Execute(context.Background(), Mutation[model.Task]{
		Kind: KindDelete,
		Key:  testKey,
		ID:   model.PersistedID("t1"),
		Call: func(ctx context.Context) (model.Task, error) {
			return model.Task{}, remote.NewError(remote.ClassNetwork, "delete task", "offline")
		},
	})
	require.NoError(t, err)

	// Optimistically removed.
	snap, _ := store.Get(testKey)
	assert.Empty(t, snap.Entities)

	out := waitOutcome(t, ticket)
	assert.Equal(t, StateRolledBack, out.State)

	snap, _ = store.Get(testKey)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, "t1", snap.Entities[0].ID.String())
}

func TestNotFoundRemovesLocally(t *testing.T) {
	store := newTestStore()
	store.Put(testKey, []model.Task{serverTask("t1", model.StatusToDo)})

	exec := NewExecutor(store)
	ticket, err := exec.Execute(context.Background(), Mutation[model.Task]{
		Kind:   KindUpdate,
		Key:    testKey,
		ID:     model.PersistedID("t1"),
		Entity: serverTask("t1", model.StatusInProgress),
		Call: func(ctx context.Context) (model.Task, error) {
			return model.Task{}, remote.NewError(remote.ClassNotFound, "update task", "gone")
		},
	})
	require.NoError(t, err)

	out := waitOutcome(t, ticket)
	assert.Equal(t, StateRolledBack, out.State)

	snap, _ := store.Get(testKey)
	assert.Empty(t, snap.Entities, "entity that vanished remotely is removed locally")
}

func TestUnauthorizedInvokesHook(t *testing.T) {
	store := newTestStore()
	store.Put(testKey, []model.Task{serverTask("t1", model.StatusToDo)})

	revoked := make(chan struct{}, 1)
	exec := NewExecutor(store, WithUnauthorizedHook[model.Task](func() {
		revoked <- struct{}{}
	}))

	ticket, err := exec.Execute(context.Background(), Mutation[model.Task]{
		Kind:   KindUpdate,
		Key:    testKey,
		ID:     model.PersistedID("t1"),
		Entity: serverTask("t1", model.StatusInProgress),
		Call: func(ctx context.Context) (model.Task, error) {
			return model.Task{}, remote.NewError(remote.ClassUnauthorized, "update task", "expired")
		},
	})
	require.NoError(t, err)

	waitOutcome(t, ticket)
	select {
	case <-revoked:
	case <-time.After(time.Second):
		t.Fatal("unauthorized hook was not invoked")
	}
}

func TestGateRejectsWithoutOptimisticApply(t *testing.T) {
	store := newTestStore()
	gateErr := remote.NewError(remote.ClassValidation, "create task", "project not loaded")
	exec := NewExecutor(store, WithGate[model.Task](func(m Mutation[model.Task]) error {
		return gateErr
	}))

	_, err := exec.Execute(context.Background(), Mutation[model.Task]{
		Kind:   KindCreate,
		Key:    testKey,
		Entity: model.Task{ID: model.NewTemporaryID(), Title: "blocked"},
		Call: func(ctx context.Context) (model.Task, error) {
			return model.Task{}, nil
		},
	})
	require.Error(t, err)
	assert.Equal(t, remote.ClassValidation, remote.ClassOf(err))

	_, ok := store.Get(testKey)
	assert.False(t, ok, "rejected mutation must not touch the cache")
}

func TestDeferredInvalidation(t *testing.T) {
	store := newTestStore()
	store.Put(testKey, []model.Task{serverTask("t1", model.StatusToDo)})

	exec := NewExecutor(store)

	release := make(chan struct{})
	ticket, err := exec.Execute(context.Background(), Mutation[model.Task]{
		Kind:   KindUpdate,
		Key:    testKey,
		ID:     model.PersistedID("t1"),
		Entity: serverTask("t1", model.StatusInProgress),
		Call: func(ctx context.Context) (model.Task, error) {
			<-release
			return serverTask("t1", model.StatusInProgress), nil
		},
	})
	require.NoError(t, err)

	// A notification arrives while the mutation is pending: invalidation
	// is deferred, the optimistic value stays readable.
	exec.Invalidate(testKey)
	snap, ok := store.Get(testKey)
	require.True(t, ok, "deferred invalidation must not discard the optimistic value")
	got, _ := snap.Find(model.PersistedID("t1"))
	assert.Equal(t, model.StatusInProgress, got.Status)

	close(release)
	out := waitOutcome(t, ticket)
	assert.Equal(t, StateCommitted, out.State)

	// Once resolved, the deferred invalidation applies and the next read
	// forces a refetch.
	_, ok = store.Get(testKey)
	assert.False(t, ok)
}

func TestInvalidateWithoutPendingIsImmediate(t *testing.T) {
	store := newTestStore()
	store.Put(testKey, []model.Task{serverTask("t1", model.StatusToDo)})

	exec := NewExecutor(store)
	exec.Invalidate(testKey)

	_, ok := store.Get(testKey)
	assert.False(t, ok)
}

func TestPublishOnCommit(t *testing.T) {
	store := newTestStore()
	events := make(chan ChangeEvent, 1)
	exec := NewExecutor(store, WithPublisher[model.Task](func(ev ChangeEvent) {
		events <- ev
	}))

	tmp := model.NewTemporaryID()
	ticket, err := exec.Execute(context.Background(), Mutation[model.Task]{
		Kind:   KindCreate,
		Key:    testKey,
		Entity: model.Task{ID: tmp, Title: "Write spec", Status: model.StatusToDo},
		Event:  ChangeEvent{Scope: "task", Action: "created", ProjectID: "p1", Summary: "Task created"},
		Call: func(ctx context.Context) (model.Task, error) {
			return serverTask("t1", model.StatusToDo), nil
		},
	})
	require.NoError(t, err)
	waitOutcome(t, ticket)

	select {
	case ev := <-events:
		assert.Equal(t, "task", ev.Scope)
		assert.Equal(t, "created", ev.Action)
		assert.Equal(t, "t1", ev.EntityID, "event carries the persisted ID, not the temporary one")
	case <-time.After(time.Second):
		t.Fatal("no change event published")
	}
}

func TestExecuteValidatesMutation(t *testing.T) {
	exec := NewExecutor(newTestStore())

	_, err := exec.Execute(context.Background(), Mutation[model.Task]{Kind: KindDelete, Key: testKey})
	assert.Error(t, err, "delete without target or call must be rejected")

	_, err = exec.Execute(context.Background(), Mutation[model.Task]{
		Kind: KindDelete,
		Key:  testKey,
		ID:   model.PersistedID("t1"),
	})
	assert.Error(t, err, "missing remote call must be rejected")
}
