// Package projectsync owns the project collection for the application
// session and keeps it converged across local REST mutations and remote
// push events.
package projectsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/boardsync/boardsync/entity"
	"github.com/boardsync/boardsync/events"
	"github.com/boardsync/boardsync/metrics"
	"github.com/boardsync/boardsync/rest"
	"github.com/boardsync/boardsync/store"
)

const collection = "projects"

// Operation kinds for the per-action error state.
const (
	OpLoad   = "load"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// API is the slice of the REST surface the controller uses.
type API interface {
	ListProjects(ctx context.Context) ([]entity.Project, error)
	CreateProject(ctx context.Context, name, description string) (entity.Project, error)
	UpdateProject(ctx context.Context, id string, patch entity.ProjectPatch) (entity.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// Broadcaster is the slice of the event channel the controller talks to.
type Broadcaster interface {
	PublishProjectCreated(entity.Project) error
	PublishProjectUpdated(entity.Project) error
	PublishProjectDeleted(id string) error
	SubscribeProjectCreated(func(entity.Project)) (events.Unsubscribe, error)
	SubscribeProjectUpdated(func(entity.Project)) (events.Unsubscribe, error)
	SubscribeProjectDeleted(func(id string)) (events.Unsubscribe, error)
}

// Snapshotter persists last-known-good project snapshots across restarts.
type Snapshotter interface {
	SaveProjects(ctx context.Context, projects []entity.Project) error
	LoadProjects(ctx context.Context) ([]entity.Project, error)
}

// Controller owns the project collection. All mutation flows through its
// methods; push handlers and REST responses funnel into the same
// idempotent store operations so either arrival order converges.
type Controller struct {
	api     API
	channel Broadcaster
	store   *store.Store[entity.Project]
	cache   Snapshotter
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	running bool
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

// New creates a project controller. Projects insert newest-first.
func New(api API, channel Broadcaster, opts ...Option) *Controller {
	c := &Controller{
		api:     api,
		channel: channel,
		store:   store.New[entity.Project](store.Prepend),
		logger:  slog.Default(),
		errs:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start binds the push subscriptions. The handlers read the live store on
// every event, never a snapshot captured here, so updates arriving long
// after Start still land in current state.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("project controller already running")
	}

	subs := []func() (events.Unsubscribe, error){
		func() (events.Unsubscribe, error) {
			return c.channel.SubscribeProjectCreated(c.onRemoteCreated)
		},
		func() (events.Unsubscribe, error) {
			return c.channel.SubscribeProjectUpdated(c.onRemoteUpdated)
		},
		func() (events.Unsubscribe, error) {
			return c.channel.SubscribeProjectDeleted(c.onRemoteDeleted)
		},
	}

	for _, sub := range subs {
		unsub, err := sub()
		if err != nil {
			c.teardownLocked()
			return fmt.Errorf("bind project subscription: %w", err)
		}
		c.unsubs = append(c.unsubs, unsub)
	}

	c.running = true
	return nil
}

// Stop tears down the push subscriptions. Paired with Start.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.running = false
}

func (c *Controller) teardownLocked() {
	for _, unsub := range c.unsubs {
		if err := unsub(); err != nil {
			c.logger.Warn("Failed to unsubscribe project listener", "error", err)
		}
	}
	c.unsubs = nil
}

// LoadAll fetches the full project list. On failure the prior collection
// is left untouched (stale-but-available over empty); if the collection
// is empty, the cached last-known-good snapshot is served instead.
func (c *Controller) LoadAll(ctx context.Context) error {
	projects, err := c.api.ListProjects(ctx)
	if err != nil {
		c.setErr(OpLoad, err)
		if c.store.Len() == 0 {
			c.loadFromCache(ctx)
		}
		return err
	}

	c.store.ReplaceAll(projects)
	c.clearErr(OpLoad)
	c.snapshot(ctx)
	return nil
}

// Create validates, issues the create request, merges the confirmed
// entity, and broadcasts it so other clients can merge the same record.
// There is no optimistic insert: the id does not exist until the server
// assigns it.
func (c *Controller) Create(ctx context.Context, name, description string) (entity.Project, error) {
	if strings.TrimSpace(name) == "" {
		err := rest.NewValidationError("project name is required")
		c.setErr(OpCreate, err)
		return entity.Project{}, err
	}

	created, err := c.api.CreateProject(ctx, name, description)
	if err != nil {
		c.setErr(OpCreate, err)
		return entity.Project{}, err
	}

	c.store.Upsert(created)
	c.metrics.MergeApplied(collection, "create")
	c.broadcast(func() error { return c.channel.PublishProjectCreated(created) })
	c.clearErr(OpCreate)
	c.snapshot(ctx)
	return created, nil
}

// Update issues the update request and merges the server's record. No
// optimistic patch: server-validated fields must not diverge locally.
func (c *Controller) Update(ctx context.Context, id string, patch entity.ProjectPatch) (entity.Project, error) {
	updated, err := c.api.UpdateProject(ctx, id, patch)
	if err != nil {
		c.setErr(OpUpdate, err)
		return entity.Project{}, err
	}

	c.store.Upsert(updated)
	c.metrics.MergeApplied(collection, "update")
	c.broadcast(func() error { return c.channel.PublishProjectUpdated(updated) })
	c.clearErr(OpUpdate)
	c.snapshot(ctx)
	return updated, nil
}

// Remove issues the delete request and, only on success, removes the
// entity and broadcasts the deletion. On failure the entity remains and
// nothing is emitted. Interactive confirmation is the caller's concern.
func (c *Controller) Remove(ctx context.Context, id string) error {
	if err := c.api.DeleteProject(ctx, id); err != nil {
		c.setErr(OpDelete, err)
		return err
	}

	c.store.Remove(id)
	c.metrics.MergeApplied(collection, "delete")
	c.broadcast(func() error { return c.channel.PublishProjectDeleted(id) })
	c.clearErr(OpDelete)
	c.snapshot(ctx)
	return nil
}

// Projects returns an ordered snapshot of the collection.
func (c *Controller) Projects() []entity.Project {
	return c.store.List()
}

// Get returns one project by id.
func (c *Controller) Get(id string) (entity.Project, bool) {
	return c.store.Get(id)
}

// Search narrows the collection by a case-insensitive substring match on
// the project name. Empty query returns the full collection. Debouncing
// belongs to the UI boundary, not here.
func (c *Controller) Search(query string) []entity.Project {
	return store.Filter(c.store.List(), query, func(p entity.Project) string {
		return p.Name
	})
}

// Err returns the sticky error for one operation kind, cleared by the
// next successful action of the same kind.
func (c *Controller) Err(op string) error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.errs[op]
}

// ClearErr dismisses the error for one operation kind.
func (c *Controller) ClearErr(op string) {
	c.clearErr(op)
}

// onRemoteCreated merges a push-originated creation. UpsertIfAbsent keeps
// the echo of a local create harmless: if the optimistic insert already
// happened, this is a no-op.
func (c *Controller) onRemoteCreated(p entity.Project) {
	if _, inserted := c.store.UpsertIfAbsent(p); inserted {
		c.metrics.MergeApplied(collection, "remote_create")
	} else {
		c.metrics.MergeIgnored(collection, "remote_create")
	}
}

func (c *Controller) onRemoteUpdated(p entity.Project) {
	c.store.Upsert(p)
	c.metrics.MergeApplied(collection, "remote_update")
}

func (c *Controller) onRemoteDeleted(id string) {
	if _, removed := c.store.Remove(id); removed {
		c.metrics.MergeApplied(collection, "remote_delete")
	} else {
		c.metrics.MergeIgnored(collection, "remote_delete")
	}
}

// broadcast publishes a confirmed mutation. Publish failures are logged,
// not surfaced: the local mutation already succeeded, and other clients
// will converge on their next full fetch.
func (c *Controller) broadcast(publish func() error) {
	if err := publish(); err != nil {
		c.logger.Warn("Failed to broadcast project event", "error", err)
	}
}

func (c *Controller) snapshot(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SaveProjects(ctx, c.store.List()); err != nil {
		c.logger.Warn("Failed to persist project snapshot", "error", err)
	}
}

func (c *Controller) loadFromCache(ctx context.Context) {
	if c.cache == nil {
		return
	}
	cached, err := c.cache.LoadProjects(ctx)
	if err != nil {
		c.logger.Warn("Failed to load cached projects", "error", err)
		return
	}
	if len(cached) > 0 {
		c.store.ReplaceAll(cached)
		c.logger.Info("Serving cached project snapshot", "count", len(cached))
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
