package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/boardsync/model"
)

func testClock(now *time.Time) func() time.Time {
	return func() time.Time { return *now }
}

func newTaskStore(now *time.Time) *Store[model.Task] {
	return NewStore(DefaultTasksTTL, WithClock[model.Task](testClock(now)))
}

func task(id, title string, status model.CanonicalStatus) model.Task {
	return model.Task{ID: model.PersistedID(id), Title: title, Status: status}
}

func TestGetMissOnUnknownKey(t *testing.T) {
	now := time.Now()
	s := newTaskStore(&now)

	_, ok := s.Get(TasksKey(model.PersistedID("p1")))
	assert.False(t, ok, "never-fetched key should miss")
}

func TestPutThenGet(t *testing.T) {
	now := time.Now()
	s := newTaskStore(&now)
	key := TasksKey(model.PersistedID("p1"))

	s.Put(key, []model.Task{task("t1", "one", model.StatusToDo)})

	snap, ok := s.Get(key)
	require.True(t, ok)
	assert.False(t, snap.Stale)
	assert.Equal(t, now, snap.FetchedAt)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, "one", snap.Entities[0].Title)
}

func TestStaleAfterTTL(t *testing.T) {
	now := time.Now()
	s := newTaskStore(&now)
	key := TasksKey(model.PersistedID("p1"))

	s.Put(key, []model.Task{task("t1", "one", model.StatusToDo)})

	now = now.Add(DefaultTasksTTL + time.Second)
	snap, ok := s.Get(key)
	require.True(t, ok)
	assert.True(t, snap.Stale, "collection past TTL should be stale")
}

func TestInvalidateForcesMiss(t *testing.T) {
	now := time.Now()
	s := newTaskStore(&now)
	key := TasksKey(model.PersistedID("p1"))

	s.Put(key, []model.Task{task("t1", "one", model.StatusToDo)})
	s.Invalidate(key)

	_, ok := s.Get(key)
	assert.False(t, ok, "invalidated key should miss regardless of TTL")

	// Idempotent on absent and already-invalidated keys.
	s.Invalidate(key)
	s.Invalidate(Key("tasks:never"))
}

func TestMutateEntity(t *testing.T) {
	now := time.Now()
	s := newTaskStore(&now)
	key := TasksKey(model.PersistedID("p1"))

	s.Put(key, []model.Task{
		task("t1", "one", model.StatusToDo),
		task("t2", "two", model.StatusToDo),
	})

	ok := s.MutateEntity(key, model.PersistedID("t2"), func(tk model.Task) model.Task {
		tk.Status = model.StatusInProgress
		return tk
	})
	require.True(t, ok)

	snap, _ := s.Get(key)
	got, found := snap.Find(model.PersistedID("t2"))
	require.True(t, found)
	assert.Equal(t, model.StatusInProgress, got.Status)

	other, _ := snap.Find(model.PersistedID("t1"))
	assert.Equal(t, model.StatusToDo, other.Status)
}

func TestMutateEntityAbsentIsNoop(t *testing.T) {
	now := time.Now()
	s := newTaskStore(&now)
	key := TasksKey(model.PersistedID("p1"))
	s.Put(key, nil)

	ok := s.MutateEntity(key, model.PersistedID("ghost"), func(tk model.Task) model.Task { return tk })
	assert.False(t, ok)
}

func TestUpsertSeedsEmptyCollection(t *testing.T) {
	now := time.Now()
	s := newTaskStore(&now)
	key := TasksKey(model.PersistedID("p1"))

	s.Upsert(key, task("tmp-1", "draft", model.StatusToDo))

	snap, ok := s.Get(key)
	require.True(t, ok, "seeded collection should be readable")
	assert.True(t, snap.Stale, "seeded collection should report stale")
	require.Len(t, snap.Entities, 1)
}

func TestRemoveEntity(t *testing.T) {
	now := time.Now()
	s := newTaskStore(&now)
	key := TasksKey(model.PersistedID("p1"))

	s.Put(key, []model.Task{
		task("t1", "one", model.StatusToDo),
		task("t2", "two", model.StatusToDo),
	})

	require.True(t, s.RemoveEntity(key, model.PersistedID("t1")))
	assert.False(t, s.RemoveEntity(key, model.PersistedID("t1")), "second removal is a no-op")

	snap, _ := s.Get(key)
	require.Len(t, snap.Entities, 1)
	assert.Equal(t, "t2", snap.Entities[0].ID.String())
}

func TestSnapshotsAreIndependent(t *testing.T) {
	now := time.Now()
	s := newTaskStore(&now)
	key := TasksKey(model.PersistedID("p1"))

	original := task("t1", "one", model.StatusToDo)
	original.Tags = []string{"backend"}
	s.Put(key, []model.Task{original})

	before, _ := s.Get(key)

	s.MutateEntity(key, model.PersistedID("t1"), func(tk model.Task) model.Task {
		tk.Title = "changed"
		tk.Tags[0] = "frontend"
		return tk
	})

	// The earlier snapshot must not observe the mutation.
	assert.Equal(t, "one", before.Entities[0].Title)
	assert.Equal(t, "backend", before.Entities[0].Tags[0])

	// Mutating a returned snapshot must not leak back into the store.
	after, _ := s.Get(key)
	after.Entities[0].Title = "hacked"
	final, _ := s.Get(key)
	assert.Equal(t, "changed", final.Entities[0].Title)
}

func TestInvalidateAll(t *testing.T) {
	now := time.Now()
	s := NewStore(DefaultProjectsTTL, WithClock[model.Project](testClock(&now)))
	s.Put(ProjectsKey, []model.Project{{ID: model.PersistedID("p1"), Title: "one"}})

	s.InvalidateAll()

	_, ok := s.Get(ProjectsKey)
	assert.False(t, ok)
}
