package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/ironhabit/internal/model"
	"github.com/existflow/ironhabit/internal/relay"
	"github.com/existflow/ironhabit/internal/remote"
)

type fakeStore struct {
	todos       []model.TodoItem
	habits      []model.HabitItem
	notifAsked  bool
	lastDeleted *model.DeletedTodo
	failSave    error
	todoSaves   int
}

func (s *fakeStore) LoadTodos() []model.TodoItem { return model.Clone(s.todos) }

func (s *fakeStore) SaveTodos(todos []model.TodoItem) error {
	if s.failSave != nil {
		return s.failSave
	}
	s.todoSaves++
	s.todos = model.Clone(todos)
	return nil
}

func (s *fakeStore) LoadHabits() []model.HabitItem { return model.CloneHabits(s.habits) }

func (s *fakeStore) SaveHabits(habits []model.HabitItem) error {
	if s.failSave != nil {
		return s.failSave
	}
	s.habits = model.CloneHabits(habits)
	return nil
}

func (s *fakeStore) NotifAsked() bool               { return s.notifAsked }
func (s *fakeStore) SetNotifAsked(asked bool) error { s.notifAsked = asked; return nil }

func (s *fakeStore) LoadLastDeleted() (model.DeletedTodo, bool) {
	if s.lastDeleted == nil {
		return model.DeletedTodo{}, false
	}
	return *s.lastDeleted, true
}

func (s *fakeStore) SaveLastDeleted(d model.DeletedTodo) error { s.lastDeleted = &d; return nil }
func (s *fakeStore) ClearLastDeleted() error                   { s.lastDeleted = nil; return nil }

type fakeAdapter struct {
	mu       sync.Mutex
	docs     map[string]model.TodoItem
	order    []string
	upserts  []string
	lists    int
	deletes  []string
	failOn   string
	listErr  error
	listResp []model.TodoItem
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{docs: make(map[string]model.TodoItem)}
}

func (a *fakeAdapter) Upsert(ctx context.Context, itemID string, item model.TodoItem) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if itemID == a.failOn {
		return errors.New("connection reset")
	}
	if _, ok := a.docs[itemID]; !ok {
		a.order = append(a.order, itemID)
	}
	a.docs[itemID] = item
	a.upserts = append(a.upserts, itemID)
	return nil
}

func (a *fakeAdapter) ListAll(ctx context.Context) ([]model.TodoItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lists++
	if a.listErr != nil {
		return nil, a.listErr
	}
	if a.listResp != nil {
		return model.Clone(a.listResp), nil
	}
	out := make([]model.TodoItem, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.docs[id])
	}
	return out, nil
}

func (a *fakeAdapter) Delete(ctx context.Context, itemID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deletes = append(a.deletes, itemID)
	delete(a.docs, itemID)
	for i, id := range a.order {
		if id == itemID {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return nil
}

type fakeIdentity struct {
	id    model.Identity
	ready chan struct{}
}

func present(uid string) *fakeIdentity {
	ch := make(chan struct{})
	close(ch)
	return &fakeIdentity{id: model.Identity{UID: uid, Token: "tok-" + uid}, ready: ch}
}

func absent() *fakeIdentity {
	return &fakeIdentity{ready: make(chan struct{})}
}

func (f *fakeIdentity) Current() (model.Identity, bool) { return f.id, f.id.Valid() }
func (f *fakeIdentity) Ready() <-chan struct{}          { return f.ready }

type fakeRegistrar struct {
	tags []string
}

func (r *fakeRegistrar) Register(tag string) error {
	r.tags = append(r.tags, tag)
	return nil
}

type fakeConn bool

func (c fakeConn) Online() bool { return bool(c) }

type harness struct {
	store     *fakeStore
	adapter   *fakeAdapter
	registrar *fakeRegistrar
	scoped    []string
	renders   int
	now       time.Time
	engine    *Engine
}

func newHarness(t *testing.T, store *fakeStore, ids IdentitySource, online bool) *harness {
	t.Helper()
	h := &harness{
		store:     store,
		adapter:   newFakeAdapter(),
		registrar: &fakeRegistrar{},
		now:       time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
	h.engine = New(Deps{
		Store:    store,
		Identity: ids,
		Remote: func(id model.Identity) remote.Adapter {
			h.scoped = append(h.scoped, id.UID)
			return h.adapter
		},
		Registrar:    h.registrar,
		Connectivity: fakeConn(online),
		Render:       func(Snapshot) { h.renders++ },
		Now:          func() time.Time { return h.now },
	})
	return h
}

func item(id string, done bool) model.TodoItem {
	return model.TodoItem{ID: id, Text: "task " + id, Date: "2026-10-20", Category: "general", Priority: "low", Done: done}
}

func TestSave_LocalRoundTripWithoutNetwork(t *testing.T) {
	store := &fakeStore{}
	h := newHarness(t, store, absent(), false)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, res, err := h.engine.AddTodo(ctx, TodoInput{Text: text, Date: "2026-10-20"})
		require.NoError(t, err)
		assert.Equal(t, StatePersistedLocal, res.State)
	}
	todos := h.engine.Todos()
	_, err := h.engine.Reorder(ctx, todos[2].ID, 0)
	require.NoError(t, err)
	_, err = h.engine.Toggle(ctx, todos[1].ID)
	require.NoError(t, err)

	reloaded := New(Deps{Store: store})
	assert.Equal(t, h.engine.Todos(), reloaded.Todos())
	assert.Equal(t, []string{"three", "one", "two"}, []string{
		reloaded.Todos()[0].Text, reloaded.Todos()[1].Text, reloaded.Todos()[2].Text,
	})
	assert.Empty(t, h.adapter.upserts)
}

func TestScenarioA_OfflineToggle(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("1", false)}}
	h := newHarness(t, store, present("u"), false)

	res, err := h.engine.Toggle(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, StatePersistedLocal, res.State)
	assert.Equal(t, []model.TodoItem{item("1", true)}, store.todos)
	assert.Empty(t, h.adapter.upserts)
	assert.Empty(t, h.scoped)
	assert.Equal(t, []string{model.SyncTag}, h.registrar.tags)
	assert.Equal(t, 1, h.renders)
}

func TestScenarioB_NoIdentityNoPull(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("x", false)}}
	h := newHarness(t, store, absent(), true)

	res, err := h.engine.PullOnStartup(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, h.adapter.lists)
	assert.Equal(t, []model.TodoItem{item("x", false)}, h.engine.Todos())
}

func TestScenarioC_OnlinePushUpsertsEachItem(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("a", false), item("b", false)}}
	h := newHarness(t, store, present("u1"), true)

	res, err := h.engine.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatePushSucceeded, res.State)
	assert.Equal(t, 2, res.Pushed)
	assert.Equal(t, []string{"a", "b"}, h.adapter.upserts)
	assert.Equal(t, []string{"u1"}, h.scoped)
	assert.Equal(t, item("a", false), h.adapter.docs["a"])
	assert.Equal(t, item("b", false), h.adapter.docs["b"])
}

func TestPush_FailureIsDeferredNotSurfaced(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("a", false), item("b", false), item("c", false)}}
	h := newHarness(t, store, present("u"), true)
	h.adapter.failOn = "b"

	res, err := h.engine.Toggle(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, StatePushDeferred, res.State)
	assert.Equal(t, 1, res.Pushed)
	assert.Error(t, res.Err)
	assert.True(t, store.todos[2].Done)
	assert.Equal(t, []string{"a"}, h.adapter.upserts)
	assert.Equal(t, 1, h.renders)
}

func TestSave_LocalFailureSurfacedBeforeNetwork(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("a", false)}}
	h := newHarness(t, store, present("u"), true)
	store.failSave = errors.New("disk full")

	_, err := h.engine.Toggle(context.Background(), "a")
	require.Error(t, err)
	assert.Empty(t, h.adapter.upserts)
	assert.Empty(t, h.registrar.tags)
	assert.False(t, h.engine.Todos()[0].Done)
}

func TestPull_ReplacesOnNonEmpty(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("local", false)}}
	h := newHarness(t, store, present("u"), true)
	remoteItems := []model.TodoItem{item("r1", true), item("r2", false)}
	h.adapter.listResp = remoteItems

	res, err := h.engine.PullOnStartup(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.Equal(t, remoteItems, h.engine.Todos())
	assert.Equal(t, remoteItems, store.todos)
	assert.Equal(t, 1, h.renders)

	res, err = h.engine.PullOnStartup(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, h.adapter.lists)
}

func TestPull_SkipsOnEmpty(t *testing.T) {
	before := []model.TodoItem{item("keep", false)}
	store := &fakeStore{todos: before}
	h := newHarness(t, store, present("u"), true)

	res, err := h.engine.PullOnStartup(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Replaced)
	assert.Equal(t, before, h.engine.Todos())
	assert.Zero(t, store.todoSaves)
}

func TestPull_FailureKeepsLocal(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("keep", false)}}
	h := newHarness(t, store, present("u"), true)
	h.adapter.listErr = errors.New("timeout")

	_, err := h.engine.Pull(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []model.TodoItem{item("keep", false)}, h.engine.Todos())
}

func TestPull_OfflineSkipped(t *testing.T) {
	h := newHarness(t, &fakeStore{}, present("u"), false)
	res, err := h.engine.Pull(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, h.adapter.lists)
}

func TestDeleteUndo_RestoresPosition(t *testing.T) {
	original := []model.TodoItem{item("a", false), item("b", true), item("c", false)}
	store := &fakeStore{todos: original}
	h := newHarness(t, store, absent(), false)
	ctx := context.Background()

	deleted, _, err := h.engine.Delete(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted.Index)
	assert.Len(t, h.engine.Todos(), 2)
	require.NotNil(t, store.lastDeleted)

	h.now = h.now.Add(3 * time.Second)
	restored, _, err := h.engine.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, item("b", true), restored)
	assert.Equal(t, original, h.engine.Todos())
	assert.Nil(t, store.lastDeleted)

	_, _, err = h.engine.Undo(ctx)
	assert.ErrorIs(t, err, model.ErrNothingToUndo)
}

func TestUndo_ExpiresAfterWindow(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("a", false)}}
	h := newHarness(t, store, absent(), false)
	ctx := context.Background()

	_, _, err := h.engine.Delete(ctx, "a")
	require.NoError(t, err)

	h.now = h.now.Add(5 * time.Second)
	_, _, err = h.engine.Undo(ctx)
	assert.ErrorIs(t, err, model.ErrUndoExpired)
	assert.Empty(t, h.engine.Todos())
	assert.Nil(t, store.lastDeleted)
}

func TestUndo_SurvivesRestart(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("a", false), item("b", false)}}
	h := newHarness(t, store, absent(), false)
	ctx := context.Background()

	_, _, err := h.engine.Delete(ctx, "a")
	require.NoError(t, err)

	next := New(Deps{Store: store, Now: func() time.Time { return h.now.Add(time.Second) }})
	_, _, err = next.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.TodoItem{item("a", false), item("b", false)}, next.Todos())
}

func TestAddTodo_Validation(t *testing.T) {
	h := newHarness(t, &fakeStore{}, absent(), false)
	_, _, err := h.engine.AddTodo(context.Background(), TodoInput{Text: "   ", Date: "2026-10-20"})
	assert.ErrorIs(t, err, model.ErrInvalid)
	assert.False(t, h.store.notifAsked)
}

func TestCheckOverdue_FiresOnce(t *testing.T) {
	overdue := model.TodoItem{ID: "o", Text: "late", Date: "2026-10-01", Category: "general", Priority: "low"}
	store := &fakeStore{todos: []model.TodoItem{overdue, item("future", false)}, notifAsked: true}

	var notified []string
	h := newHarness(t, store, present("u"), true)
	h.engine.notify = func(it model.TodoItem) { notified = append(notified, it.ID) }

	fired, err := h.engine.CheckOverdue()
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, []string{"o"}, notified)
	assert.True(t, store.todos[0].Notified)
	assert.Empty(t, h.adapter.upserts)

	fired, err = h.engine.CheckOverdue()
	require.NoError(t, err)
	assert.Empty(t, fired)
	assert.Equal(t, []string{"o"}, notified)
}

func TestCheckOverdue_RequiresPermission(t *testing.T) {
	overdue := model.TodoItem{ID: "o", Text: "late", Date: "2026-10-01", Category: "general", Priority: "low"}
	store := &fakeStore{todos: []model.TodoItem{overdue}}
	h := newHarness(t, store, absent(), false)

	fired, err := h.engine.CheckOverdue()
	require.NoError(t, err)
	assert.Empty(t, fired)
	assert.False(t, store.todos[0].Notified)
}

func TestHabits_LocalOnlyWithStreakGuard(t *testing.T) {
	store := &fakeStore{}
	h := newHarness(t, store, present("u"), true)

	require.NoError(t, h.engine.AddHabit("read"))
	changed, err := h.engine.MarkHabitDone(0)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = h.engine.MarkHabitDone(0)
	require.NoError(t, err)
	assert.False(t, changed)
	require.Len(t, store.habits, 1)
	assert.Equal(t, 1, store.habits[0].Streak)
	require.NotNil(t, store.habits[0].LastDone)
	assert.Equal(t, "2026-10-19", *store.habits[0].LastDone)

	h.now = h.now.Add(24 * time.Hour)
	changed, err = h.engine.MarkHabitDone(0)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, h.engine.Habits()[0].Streak)

	require.NoError(t, h.engine.DeleteHabit(0))
	assert.Empty(t, store.habits)
	assert.Empty(t, h.adapter.upserts)
	assert.Empty(t, h.registrar.tags)
}

func TestRun_PullsWhenReadyAndResyncsOnMessage(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("a", false)}}
	ids := absent()
	h := newHarness(t, store, ids, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages := make(chan relay.Message, 1)
	done := make(chan struct{})
	go func() {
		h.engine.Run(ctx, messages)
		close(done)
	}()

	ids.id = model.Identity{UID: "u", Token: "t"}
	close(ids.ready)

	require.Eventually(t, func() bool {
		h.adapter.mu.Lock()
		defer h.adapter.mu.Unlock()
		return h.adapter.lists == 1
	}, time.Second, 5*time.Millisecond)

	messages <- relay.Message{Type: model.MessageSyncTodos}
	require.Eventually(t, func() bool {
		h.adapter.mu.Lock()
		defer h.adapter.mu.Unlock()
		return len(h.adapter.upserts) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestResync_IsIdempotent(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("a", false), item("b", true)}}
	h := newHarness(t, store, present("u"), true)
	ctx := context.Background()

	_, err := h.engine.ForcePush(ctx)
	require.NoError(t, err)
	first, err := h.adapter.ListAll(ctx)
	require.NoError(t, err)

	_, err = h.engine.ForcePush(ctx)
	require.NoError(t, err)
	second, err := h.adapter.ListAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPrune_RemovesRemoteOnlyDocuments(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("a", false), item("b", false)}}
	h := newHarness(t, store, present("u"), true)
	ctx := context.Background()

	_, err := h.engine.Save(ctx)
	require.NoError(t, err)
	_, _, err = h.engine.Delete(ctx, "a")
	require.NoError(t, err)

	n, err := h.engine.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a"}, h.adapter.deletes)

	_, err = newHarness(t, &fakeStore{}, absent(), true).engine.Prune(ctx)
	assert.ErrorIs(t, err, ErrNoIdentity)
	_, err = newHarness(t, &fakeStore{}, present("u"), false).engine.Prune(ctx)
	assert.ErrorIs(t, err, ErrOffline)
}

func TestPruneAll_EmptiesRemote(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("a", false), item("b", true)}}
	h := newHarness(t, store, present("u"), true)
	ctx := context.Background()

	_, err := h.engine.Save(ctx)
	require.NoError(t, err)

	n, err := h.engine.PruneAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := h.adapter.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Len(t, h.engine.Todos(), 2)
}

// slowAdapter delays every upsert, like a push over a slow link.
type slowAdapter struct {
	*fakeAdapter
	delay time.Duration
}

func (a *slowAdapter) Upsert(ctx context.Context, itemID string, item model.TodoItem) error {
	select {
	case <-time.After(a.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return a.fakeAdapter.Upsert(ctx, itemID, item)
}

func TestUndo_AvailableWhilePushInFlight(t *testing.T) {
	original := []model.TodoItem{item("a", false), item("b", false), item("c", false)}
	store := &fakeStore{todos: original}
	adapter := &slowAdapter{fakeAdapter: newFakeAdapter(), delay: 300 * time.Millisecond}
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	engine := New(Deps{
		Store:        store,
		Identity:     present("u"),
		Remote:       func(model.Identity) remote.Adapter { return adapter },
		Connectivity: fakeConn(true),
		Now:          func() time.Time { return now },
	})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, _, err := engine.Delete(ctx, "b")
		done <- err
	}()

	require.Eventually(t, func() bool { return len(engine.Todos()) == 2 },
		time.Second, 5*time.Millisecond)
	require.NotNil(t, store.lastDeleted)
	assert.Equal(t, "b", store.lastDeleted.Item.ID)

	restored, _, err := engine.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, item("b", false), restored)
	assert.Equal(t, original, engine.Todos())

	require.NoError(t, <-done)
	assert.Nil(t, store.lastDeleted)
}

// listHookAdapter runs onList before answering a listing.
type listHookAdapter struct {
	*fakeAdapter
	onList func()
}

func (a *listHookAdapter) ListAll(ctx context.Context) ([]model.TodoItem, error) {
	if a.onList != nil {
		a.onList()
	}
	return a.fakeAdapter.ListAll(ctx)
}

func TestPull_LocalWriteDuringListingWins(t *testing.T) {
	store := &fakeStore{todos: []model.TodoItem{item("local", false)}}
	adapter := &listHookAdapter{fakeAdapter: newFakeAdapter()}
	adapter.listResp = []model.TodoItem{item("r1", false)}
	engine := New(Deps{
		Store:        store,
		Identity:     present("u"),
		Remote:       func(model.Identity) remote.Adapter { return adapter },
		Connectivity: fakeConn(true),
	})
	ctx := context.Background()

	var added model.TodoItem
	adapter.onList = func() {
		var err error
		added, _, err = engine.AddTodo(ctx, TodoInput{Text: "written mid-pull", Date: "2026-10-20"})
		require.NoError(t, err)
	}

	res, err := engine.Pull(ctx)
	require.NoError(t, err)
	assert.True(t, res.Superseded)
	assert.False(t, res.Replaced)
	assert.Equal(t, []model.TodoItem{item("local", false), added}, engine.Todos())
	assert.Equal(t, engine.Todos(), store.todos)

	// With no concurrent write the next pull applies the remote collection.
	adapter.onList = nil
	res, err = engine.Pull(ctx)
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.Equal(t, []model.TodoItem{item("r1", false)}, engine.Todos())
}
