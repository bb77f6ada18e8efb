// Package app holds the sync engine: the single owner of the todo and habit
// collections. Every mutation is written to the local store first; pushing
// to the remote collection is best effort and never blocks or fails the
// local write.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
	"github.com/existflow/ironhabit/internal/relay"
	"github.com/existflow/ironhabit/internal/remote"
)

var (
	ErrNoIdentity = errors.New("no identity")
	ErrOffline    = errors.New("offline")
)

// SaveState is how far a save got.
type SaveState string

const (
	StatePersistedLocal SaveState = "PERSISTED_LOCAL"
	StatePushAttempted  SaveState = "PUSH_ATTEMPTED"
	StatePushSucceeded  SaveState = "PUSH_SUCCEEDED"
	StatePushDeferred   SaveState = "PUSH_DEFERRED"
)

// SaveResult describes one save. Err carries a push failure; it has already
// been logged and is informational only.
type SaveResult struct {
	State  SaveState
	Pushed int
	Err    error
}

// PullResult describes one pull.
type PullResult struct {
	Skipped  bool
	Replaced bool
	Count    int
	// Superseded is set when a local write landed during the listing and
	// the remote collection was not applied.
	Superseded bool
}

// LocalStore is the durable store the engine writes through.
type LocalStore interface {
	LoadTodos() []model.TodoItem
	SaveTodos(todos []model.TodoItem) error
	LoadHabits() []model.HabitItem
	SaveHabits(habits []model.HabitItem) error
	NotifAsked() bool
	SetNotifAsked(asked bool) error
	LoadLastDeleted() (model.DeletedTodo, bool)
	SaveLastDeleted(d model.DeletedTodo) error
	ClearLastDeleted() error
}

// IdentitySource reports the anonymous identity once it exists.
type IdentitySource interface {
	Current() (model.Identity, bool)
	Ready() <-chan struct{}
}

// RemoteFactory returns the remote collection for an identity.
type RemoteFactory func(id model.Identity) remote.Adapter

// Registrar records a deferred sync with the background relay.
type Registrar interface {
	Register(tag string) error
}

// Connectivity reports whether the network is usable.
type Connectivity interface {
	Online() bool
}

// Snapshot is the state handed to the renderer.
type Snapshot struct {
	Todos  []model.TodoItem
	Habits []model.HabitItem
}

// Deps are the collaborators of an Engine. Identity, Remote, Registrar and
// Connectivity may be nil; the engine then runs local-only.
type Deps struct {
	Store        LocalStore
	Identity     IdentitySource
	Remote       RemoteFactory
	Registrar    Registrar
	Connectivity Connectivity

	// Render is called after every save and every replacing pull.
	Render func(Snapshot)
	// Notify is called for each todo that becomes overdue.
	Notify func(model.TodoItem)

	Now            func() time.Time
	RequestTimeout time.Duration
}

// Engine owns the collections and runs the save and pull algorithms.
type Engine struct {
	store        LocalStore
	identity     IdentitySource
	remote       RemoteFactory
	registrar    Registrar
	connectivity Connectivity
	render       func(Snapshot)
	notify       func(model.TodoItem)
	now          func() time.Time
	timeout      time.Duration

	mu          sync.Mutex
	todos       []model.TodoItem
	habits      []model.HabitItem
	lastDeleted *model.DeletedTodo
	// gen counts local todo writes; Pull uses it to detect one that landed
	// while the remote listing was in flight.
	gen uint64

	pullOnce sync.Once
}

// New loads the collections from the local store and returns an engine.
func New(deps Deps) *Engine {
	e := &Engine{
		store:        deps.Store,
		identity:     deps.Identity,
		remote:       deps.Remote,
		registrar:    deps.Registrar,
		connectivity: deps.Connectivity,
		render:       deps.Render,
		notify:       deps.Notify,
		now:          deps.Now,
		timeout:      deps.RequestTimeout,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.timeout <= 0 {
		e.timeout = 10 * time.Second
	}

	e.todos = model.Clone(e.store.LoadTodos())
	e.habits = model.CloneHabits(e.store.LoadHabits())
	if d, ok := e.store.LoadLastDeleted(); ok {
		e.lastDeleted = &d
	}
	return e
}

// Todos returns a copy of the todo collection.
func (e *Engine) Todos() []model.TodoItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.Clone(e.todos)
}

// Habits returns a copy of the habit collection.
func (e *Engine) Habits() []model.HabitItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.CloneHabits(e.habits)
}

// Snapshot returns copies of both collections.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{Todos: model.Clone(e.todos), Habits: model.CloneHabits(e.habits)}
}

// LastDeleted returns the deletion that Undo would reinstate.
func (e *Engine) LastDeleted() (model.DeletedTodo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastDeleted == nil {
		return model.DeletedTodo{}, false
	}
	return *e.lastDeleted, true
}

func (e *Engine) online() bool {
	return e.connectivity == nil || e.connectivity.Online()
}

func (e *Engine) currentIdentity() (model.Identity, bool) {
	if e.identity == nil || e.remote == nil {
		return model.Identity{}, false
	}
	return e.identity.Current()
}

func (e *Engine) emit() {
	if e.render == nil {
		return
	}
	e.render(e.Snapshot())
}

// mutateTodos applies fn to the collection and saves the result. A local
// write failure leaves the in-memory collection unchanged and is returned.
func (e *Engine) mutateTodos(ctx context.Context, fn func([]model.TodoItem) ([]model.TodoItem, error)) (SaveResult, error) {
	return e.mutateTodosThen(ctx, fn, nil)
}

// mutateTodosThen is mutateTodos with a hook that runs under the lock once
// the local write has succeeded and before the push starts.
func (e *Engine) mutateTodosThen(ctx context.Context, fn func([]model.TodoItem) ([]model.TodoItem, error), committed func()) (SaveResult, error) {
	e.mu.Lock()
	next, err := fn(e.todos)
	if err != nil {
		e.mu.Unlock()
		return SaveResult{}, err
	}
	if err := e.store.SaveTodos(next); err != nil {
		e.mu.Unlock()
		return SaveResult{}, fmt.Errorf("save todos locally: %w", err)
	}
	e.setTodos(next)
	if committed != nil {
		committed()
	}
	snapshot := model.Clone(next)
	e.mu.Unlock()

	res := e.push(ctx, snapshot)
	e.emit()
	return res, nil
}

// setTodos records a local write. e.mu must be held.
func (e *Engine) setTodos(next []model.TodoItem) {
	e.todos = next
	e.gen++
}

// Save runs the save algorithm on the current collection.
func (e *Engine) Save(ctx context.Context) (SaveResult, error) {
	return e.mutateTodos(ctx, func(todos []model.TodoItem) ([]model.TodoItem, error) {
		return model.Clone(todos), nil
	})
}

// push registers a deferred sync and, when online with an identity,
// upserts every item. It stops at the first failure.
func (e *Engine) push(ctx context.Context, todos []model.TodoItem) SaveResult {
	res := SaveResult{State: StatePersistedLocal}

	if e.registrar != nil {
		if err := e.registrar.Register(model.SyncTag); err != nil {
			logger.Warn("Background sync registration failed", logger.F("error", err))
		}
	}

	id, ok := e.currentIdentity()
	if !ok || !e.online() {
		logger.Debug("Push skipped",
			logger.F("identity", ok), logger.F("online", e.online()))
		return res
	}

	res.State = StatePushAttempted
	adapter := e.remote(id)
	for _, item := range todos {
		if err := e.upsert(ctx, adapter, item); err != nil {
			logger.Warn("Push failed, waiting for background sync",
				logger.F("id", item.ID), logger.F("pushed", res.Pushed), logger.F("error", err))
			res.State = StatePushDeferred
			res.Err = err
			return res
		}
		res.Pushed++
	}

	res.State = StatePushSucceeded
	logger.Debug("Pushed todos", logger.F("count", res.Pushed))
	return res
}

func (e *Engine) upsert(ctx context.Context, adapter remote.Adapter, item model.TodoItem) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return adapter.Upsert(ctx, item.ID, item)
}

// PullOnStartup pulls once per engine. Later calls return the zero result.
func (e *Engine) PullOnStartup(ctx context.Context) (PullResult, error) {
	var (
		res PullResult
		err error
	)
	ran := false
	e.pullOnce.Do(func() {
		ran = true
		res, err = e.Pull(ctx)
	})
	if !ran {
		return PullResult{Skipped: true}, nil
	}
	return res, err
}

// Pull reads the remote collection. A non-empty remote collection replaces
// the local one; an empty one leaves it untouched. Failures are logged and
// leave local state alone. A local write that lands while the listing is in
// flight wins: the listing predates it and the write pushes on its own.
func (e *Engine) Pull(ctx context.Context) (PullResult, error) {
	id, ok := e.currentIdentity()
	if !ok || !e.online() {
		logger.Debug("Pull skipped", logger.F("identity", ok), logger.F("online", e.online()))
		return PullResult{Skipped: true}, nil
	}

	e.mu.Lock()
	gen := e.gen
	e.mu.Unlock()

	listCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	items, err := e.remote(id).ListAll(listCtx)
	if err != nil {
		logger.Warn("Pull failed, keeping local todos", logger.F("error", err))
		return PullResult{}, err
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		logger.Info("Local todos changed during pull, keeping local todos",
			logger.F("remote", len(items)))
		return PullResult{Superseded: true}, nil
	}
	next, replaced := model.ReconcilePull(e.todos, items)
	if !replaced {
		e.mu.Unlock()
		logger.Debug("Remote collection empty, keeping local todos")
		return PullResult{}, nil
	}
	if err := e.store.SaveTodos(next); err != nil {
		e.mu.Unlock()
		logger.Warn("Failed to persist pulled todos", logger.F("error", err))
		return PullResult{}, fmt.Errorf("save pulled todos: %w", err)
	}
	e.todos = next
	e.mu.Unlock()

	logger.Info("Todos loaded from remote", logger.F("count", len(next)))
	e.emit()
	return PullResult{Replaced: true, Count: len(next)}, nil
}

// Run pulls once the identity is ready and re-runs the save path on every
// SYNC_TODOS message. It returns when ctx is done.
func (e *Engine) Run(ctx context.Context, messages <-chan relay.Message) {
	var ready <-chan struct{}
	if e.identity != nil {
		ready = e.identity.Ready()
	}

	for {
		select {
		case <-ready:
			ready = nil
			_, _ = e.PullOnStartup(ctx)
		case msg, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			if msg.Type != model.MessageSyncTodos {
				continue
			}
			logger.Info("Background sync triggered")
			if _, err := e.Save(ctx); err != nil {
				logger.Error("Background sync save failed", logger.F("error", err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// ForcePush re-runs the save path on the current collection.
func (e *Engine) ForcePush(ctx context.Context) (SaveResult, error) {
	return e.Save(ctx)
}

// Prune deletes remote documents whose ids are no longer in the local
// collection. Upserts never remove anything, so deleted todos linger
// remotely until pruned.
func (e *Engine) Prune(ctx context.Context) (int, error) {
	local := e.Todos()
	return e.prune(ctx, func(id string) bool {
		return model.IndexOf(local, id) >= 0
	})
}

// PruneAll deletes every remote document of the current identity.
func (e *Engine) PruneAll(ctx context.Context) (int, error) {
	return e.prune(ctx, func(string) bool { return false })
}

func (e *Engine) prune(ctx context.Context, keep func(id string) bool) (int, error) {
	id, ok := e.currentIdentity()
	if !ok {
		return 0, fmt.Errorf("prune: %w", ErrNoIdentity)
	}
	if !e.online() {
		return 0, fmt.Errorf("prune: %w", ErrOffline)
	}

	adapter := e.remote(id)
	listCtx, cancel := context.WithTimeout(ctx, e.timeout)
	items, err := adapter.ListAll(listCtx)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}

	pruned := 0
	for _, item := range items {
		if keep(item.ID) {
			continue
		}
		delCtx, cancel := context.WithTimeout(ctx, e.timeout)
		err := adapter.Delete(delCtx, item.ID)
		cancel()
		if err != nil {
			return pruned, fmt.Errorf("prune %s: %w", item.ID, err)
		}
		pruned++
	}

	logger.Info("Pruned remote todos", logger.F("count", pruned))
	return pruned, nil
}
