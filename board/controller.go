// Package board owns the task collection for the single open project and
// the drag-and-drop status transition protocol.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/boardsync/boardsync/entity"
	"github.com/boardsync/boardsync/events"
	"github.com/boardsync/boardsync/metrics"
	"github.com/boardsync/boardsync/rest"
	"github.com/boardsync/boardsync/store"
)

const collection = "tasks"

// Operation kinds for the per-action error state.
const (
	OpLoad   = "load"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Direction is a single-step status transition along the column order.
type Direction string

// Transition directions.
const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// API is the slice of the REST surface the controller uses.
type API interface {
	ListTasks(ctx context.Context, projectID string) ([]entity.Task, error)
	CreateTask(ctx context.Context, projectID string, task entity.Task) (entity.Task, error)
	UpdateTask(ctx context.Context, id string, patch entity.TaskPatch) (entity.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Broadcaster is the slice of the event channel the controller talks to.
type Broadcaster interface {
	PublishTaskCreated(entity.Task) error
	PublishTaskUpdated(entity.Task) error
	PublishTaskDeleted(id, projectID string) error
	SubscribeTaskCreated(func(entity.Task)) (events.Unsubscribe, error)
	SubscribeTaskUpdated(func(entity.Task)) (events.Unsubscribe, error)
	SubscribeTaskDeleted(func(id, projectID string)) (events.Unsubscribe, error)
}

// Snapshotter persists last-known-good task snapshots per project.
type Snapshotter interface {
	SaveTasks(ctx context.Context, projectID string, tasks []entity.Task) error
	LoadTasks(ctx context.Context, projectID string) ([]entity.Task, error)
}

// Controller owns the task collection of whichever project is currently
// open. Opening a project tears down the previous project's listeners
// before binding new ones, and every incoming event is filtered by
// project id, so a stale listener can never deliver into the wrong
// collection.
type Controller struct {
	api     API
	channel Broadcaster
	cache   Snapshotter
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	project *entity.Project
	tasks   *store.Store[entity.Task]
	unsubs  []events.Unsubscribe

	errMu sync.RWMutex
	errs  map[string]error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithMetrics enables merge instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithSnapshotter enables the offline last-known-good cache.
func WithSnapshotter(s Snapshotter) Option {
	return func(c *Controller) {
		c.cache = s
	}
}

// New creates a task board controller with no project open.
func New(api API, channel Broadcaster, opts ...Option) *Controller {
	c := &Controller{
		api:     api,
		channel: channel,
		logger:  slog.Default(),
		tasks:   store.New[entity.Task](store.Append),
		errs:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open makes project the board's current project: the previous project's
// listeners and task collection are discarded first, then the task list
// is fetched and the push subscriptions bound. Only one project is open
// at a time.
func (c *Controller) Open(ctx context.Context, project entity.Project) error {
	c.mu.Lock()
	c.teardownLocked()
	c.project = &project
	c.tasks = store.New[entity.Task](store.Append)

	projectID := project.ID
	subs := []func() (events.Unsubscribe, error){
		func() (events.Unsubscribe, error) {
			return c.channel.SubscribeTaskCreated(func(t entity.Task) {
				c.onRemoteCreated(projectID, t)
			})
		},
		func() (events.Unsubscribe, error) {
			return c.channel.SubscribeTaskUpdated(func(t entity.Task) {
				c.onRemoteUpdated(projectID, t)
			})
		},
		func() (events.Unsubscribe, error) {
			return c.channel.SubscribeTaskDeleted(func(id, evProjectID string) {
				c.onRemoteDeleted(projectID, id, evProjectID)
			})
		},
	}

	for _, sub := range subs {
		unsub, err := sub()
		if err != nil {
			c.teardownLocked()
			c.project = nil
			c.mu.Unlock()
			return fmt.Errorf("bind task subscription: %w", err)
		}
		c.unsubs = append(c.unsubs, unsub)
	}
	c.mu.Unlock()

	return c.LoadAll(ctx)
}

// Close tears down the open project's listeners and discards its task
// collection. Paired with Open.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.project = nil
	c.tasks = store.New[entity.Task](store.Append)
}

func (c *Controller) teardownLocked() {
	for _, unsub := range c.unsubs {
		if err := unsub(); err != nil {
			c.logger.Warn("Failed to unsubscribe task listener", "error", err)
		}
	}
	c.unsubs = nil
}

// Project returns the currently open project.
func (c *Controller) Project() (entity.Project, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project == nil {
		return entity.Project{}, false
	}
	return *c.project, true
}

// current captures the open project's id together with its task store in
// one critical section. Callers keep using the captured store even if a
// project switch replaces it mid-operation: a late result then lands in
// the discarded store instead of the next project's collection.
func (c *Controller) current() (*store.Store[entity.Task], string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project == nil {
		return nil, "", false
	}
	return c.tasks, c.project.ID, true
}

// currentFor returns the task store only while projectID is still the
// open project.
func (c *Controller) currentFor(projectID string) (*store.Store[entity.Task], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project == nil || c.project.ID != projectID {
		return nil, false
	}
	return c.tasks, true
}

func (c *Controller) storeRef() *store.Store[entity.Task] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasks
}

// LoadAll fetches the open project's task list. On failure the prior
// collection is left untouched; an empty collection is seeded from the
// cached snapshot when one exists.
func (c *Controller) LoadAll(ctx context.Context) error {
	tasks, projectID, ok := c.current()
	if !ok {
		return fmt.Errorf("no project open")
	}

	list, err := c.api.ListTasks(ctx, projectID)
	if err != nil {
		c.setErr(OpLoad, err)
		if tasks.Len() == 0 {
			c.loadFromCache(ctx, projectID, tasks)
		}
		return err
	}

	tasks.ReplaceAll(list)
	c.clearErr(OpLoad)
	c.snapshot(ctx, projectID, tasks)
	return nil
}

// Create validates, issues the create request, merges the confirmed task,
// and broadcasts it. New tasks append to their column's order.
func (c *Controller) Create(ctx context.Context, task entity.Task) (entity.Task, error) {
	tasks, projectID, ok := c.current()
	if !ok {
		return entity.Task{}, fmt.Errorf("no project open")
	}

	created, err := c.api.CreateTask(ctx, projectID, task)
	if err != nil {
		c.setErr(OpCreate, err)
		return entity.Task{}, err
	}

	tasks.Upsert(created)
	c.metrics.MergeApplied(collection, "create")
	c.broadcast(func() error { return c.channel.PublishTaskCreated(created) })
	c.clearErr(OpCreate)
	c.snapshot(ctx, projectID, tasks)
	return created, nil
}

// Update issues the update request and merges the server's record. No
// optimistic patch; the drag engine is the one deliberate exception.
func (c *Controller) Update(ctx context.Context, id string, patch entity.TaskPatch) (entity.Task, error) {
	tasks, projectID, ok := c.current()
	if !ok {
		return entity.Task{}, fmt.Errorf("no project open")
	}

	updated, err := c.api.UpdateTask(ctx, id, patch)
	if err != nil {
		c.setErr(OpUpdate, err)
		return entity.Task{}, err
	}

	tasks.Upsert(updated)
	c.metrics.MergeApplied(collection, "update")
	c.broadcast(func() error { return c.channel.PublishTaskUpdated(updated) })
	c.clearErr(OpUpdate)
	c.snapshot(ctx, projectID, tasks)
	return updated, nil
}

// Remove issues the delete request and, only on success, removes the task
// and broadcasts the deletion.
func (c *Controller) Remove(ctx context.Context, id string) error {
	tasks, projectID, ok := c.current()
	if !ok {
		return fmt.Errorf("no project open")
	}

	if err := c.api.DeleteTask(ctx, id); err != nil {
		c.setErr(OpDelete, err)
		return err
	}

	tasks.Remove(id)
	c.metrics.MergeApplied(collection, "delete")
	c.broadcast(func() error { return c.channel.PublishTaskDeleted(id, projectID) })
	c.clearErr(OpDelete)
	c.snapshot(ctx, projectID, tasks)
	return nil
}

// ChangeStatus moves a task one step along the column order. Already at
// the terminal column for the given direction is a no-op: no request is
// issued.
func (c *Controller) ChangeStatus(ctx context.Context, id string, direction Direction) (entity.Task, error) {
	task, ok := c.storeRef().Get(id)
	if !ok {
		err := rest.NewValidationError("unknown task: %s", id)
		c.setErr(OpUpdate, err)
		return entity.Task{}, err
	}

	var next entity.Status
	var can bool
	switch direction {
	case Forward:
		next, can = task.Status.Next()
	case Backward:
		next, can = task.Status.Prev()
	default:
		err := rest.NewValidationError("unknown direction: %q", direction)
		c.setErr(OpUpdate, err)
		return entity.Task{}, err
	}
	if !can {
		return task, nil
	}

	return c.Update(ctx, id, entity.TaskPatch{Status: &next})
}

// Tasks returns an ordered snapshot of the open project's tasks.
func (c *Controller) Tasks() []entity.Task {
	return c.storeRef().List()
}

// Get returns one task by id.
func (c *Controller) Get(id string) (entity.Task, bool) {
	return c.storeRef().Get(id)
}

// Columns groups the tasks by status, preserving collection order inside
// each column.
func (c *Controller) Columns() map[entity.Status][]entity.Task {
	cols := make(map[entity.Status][]entity.Task, 3)
	for _, status := range entity.Statuses() {
		cols[status] = []entity.Task{}
	}
	for _, task := range c.storeRef().List() {
		cols[task.Status] = append(cols[task.Status], task)
	}
	return cols
}

// Column returns one status bucket in collection order.
func (c *Controller) Column(status entity.Status) []entity.Task {
	var out []entity.Task
	for _, task := range c.storeRef().List() {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out
}

// Search narrows the task collection by a case-insensitive substring
// match on the title.
func (c *Controller) Search(query string) []entity.Task {
	return store.Filter(c.storeRef().List(), query, func(t entity.Task) string {
		return t.Title
	})
}

// Err returns the sticky error for one operation kind.
func (c *Controller) Err(op string) error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.errs[op]
}

// ClearErr dismisses the error for one operation kind.
func (c *Controller) ClearErr(op string) {
	c.clearErr(op)
}

// Remote handlers. boundProjectID is the project the subscription was
// created for; events for any other project are dropped before merging,
// and currentFor hands out the store only while that project is still
// open, so a listener that outlives a project switch stays harmless.

func (c *Controller) onRemoteCreated(boundProjectID string, t entity.Task) {
	if t.ProjectID != boundProjectID {
		return
	}
	tasks, ok := c.currentFor(boundProjectID)
	if !ok {
		return
	}
	if _, inserted := tasks.UpsertIfAbsent(t); inserted {
		c.metrics.MergeApplied(collection, "remote_create")
	} else {
		c.metrics.MergeIgnored(collection, "remote_create")
	}
}

func (c *Controller) onRemoteUpdated(boundProjectID string, t entity.Task) {
	if t.ProjectID != boundProjectID {
		return
	}
	tasks, ok := c.currentFor(boundProjectID)
	if !ok {
		return
	}
	tasks.Upsert(t)
	c.metrics.MergeApplied(collection, "remote_update")
}

func (c *Controller) onRemoteDeleted(boundProjectID, id, evProjectID string) {
	if evProjectID != boundProjectID {
		return
	}
	tasks, ok := c.currentFor(boundProjectID)
	if !ok {
		return
	}
	if _, removed := tasks.Remove(id); removed {
		c.metrics.MergeApplied(collection, "remote_delete")
	} else {
		c.metrics.MergeIgnored(collection, "remote_delete")
	}
}

func (c *Controller) broadcast(publish func() error) {
	if err := publish(); err != nil {
		c.logger.Warn("Failed to broadcast task event", "error", err)
	}
}

func (c *Controller) snapshot(ctx context.Context, projectID string, tasks *store.Store[entity.Task]) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SaveTasks(ctx, projectID, tasks.List()); err != nil {
		c.logger.Warn("Failed to persist task snapshot", "error", err)
	}
}

func (c *Controller) loadFromCache(ctx context.Context, projectID string, tasks *store.Store[entity.Task]) {
	if c.cache == nil {
		return
	}
	cached, err := c.cache.LoadTasks(ctx, projectID)
	if err != nil {
		c.logger.Warn("Failed to load cached tasks", "error", err)
		return
	}
	if len(cached) > 0 {
		tasks.ReplaceAll(cached)
		c.logger.Info("Serving cached task snapshot",
			"project_id", projectID,
			"count", len(cached))
	}
}

func (c *Controller) setErr(op string, err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.errs[op] = err
}

func (c *Controller) clearErr(op string) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	delete(c.errs, op)
}
