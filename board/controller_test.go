package board

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardsync/boardsync/entity"
	"github.com/boardsync/boardsync/events"
	"github.com/boardsync/boardsync/rest"
)

// fakeAPI scripts REST outcomes per operation and records update calls.
type fakeAPI struct {
	mu         sync.Mutex
	listResult []entity.Task
	listErr    error
	createErr  error
	updateErr  error
	deleteErr  error

	createdID string
	updates   []entity.TaskPatch

	// onUpdate runs inside UpdateTask, before the scripted result is
	// returned, to interleave concurrent activity with the request.
	onUpdate func()
}

func (f *fakeAPI) ListTasks(ctx context.Context, projectID string) ([]entity.Task, error) {
	return f.listResult, f.listErr
}

func (f *fakeAPI) CreateTask(ctx context.Context, projectID string, task entity.Task) (entity.Task, error) {
	if f.createErr != nil {
		return entity.Task{}, f.createErr
	}
	task.ID = f.createdID
	if task.ID == "" {
		task.ID = "srv-1"
	}
	task.ProjectID = projectID
	if task.Status == "" {
		task.Status = entity.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = entity.DefaultPriority
	}
	return task, nil
}

func (f *fakeAPI) UpdateTask(ctx context.Context, id string, patch entity.TaskPatch) (entity.Task, error) {
	f.mu.Lock()
	f.updates = append(f.updates, patch)
	hook := f.onUpdate
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.updateErr != nil {
		return entity.Task{}, f.updateErr
	}
	task := entity.Task{ID: id, ProjectID: "p1", Title: "Task", Status: entity.StatusTodo, Priority: entity.DefaultPriority}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	return task, nil
}

func (f *fakeAPI) DeleteTask(ctx context.Context, id string) error {
	return f.deleteErr
}

func (f *fakeAPI) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeAPI) lastUpdate() entity.TaskPatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[len(f.updates)-1]
}

// loopback is an in-process Broadcaster delivering published task events
// synchronously to every subscriber.
type loopback struct {
	mu        sync.Mutex
	created   []func(entity.Task)
	updated   []func(entity.Task)
	deleted   []func(id, projectID string)
	published int
}

func (l *loopback) PublishTaskCreated(t entity.Task) error {
	l.mu.Lock()
	handlers := append([]func(entity.Task){}, l.created...)
	l.published++
	l.mu.Unlock()
	for _, h := range handlers {
		h(t)
	}
	return nil
}

func (l *loopback) PublishTaskUpdated(t entity.Task) error {
	l.mu.Lock()
	handlers := append([]func(entity.Task){}, l.updated...)
	l.published++
	l.mu.Unlock()
	for _, h := range handlers {
		h(t)
	}
	return nil
}

func (l *loopback) PublishTaskDeleted(id, projectID string) error {
	l.mu.Lock()
	handlers := append([]func(string, string){}, l.deleted...)
	l.published++
	l.mu.Unlock()
	for _, h := range handlers {
		h(id, projectID)
	}
	return nil
}

func (l *loopback) SubscribeTaskCreated(h func(entity.Task)) (events.Unsubscribe, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created = append(l.created, h)
	return func() error { return nil }, nil
}

func (l *loopback) SubscribeTaskUpdated(h func(entity.Task)) (events.Unsubscribe, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updated = append(l.updated, h)
	return func() error { return nil }, nil
}

func (l *loopback) SubscribeTaskDeleted(h func(id, projectID string)) (events.Unsubscribe, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deleted = append(l.deleted, h)
	return func() error { return nil }, nil
}

func (l *loopback) publishCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.published
}

func task(id string, status entity.Status) entity.Task {
	return entity.Task{ID: id, ProjectID: "p1", Title: "Task " + id, Status: status, Priority: entity.DefaultPriority}
}

func openBoard(t *testing.T, api *fakeAPI) (*Controller, *loopback) {
	t.Helper()
	lb := &loopback{}
	c := New(api, lb)
	require.NoError(t, c.Open(context.Background(), entity.Project{ID: "p1", Name: "Alpha"}))
	t.Cleanup(c.Close)
	return c, lb
}

func TestOpenLoadsTasks(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo), task("t2", entity.StatusDone)}}
	c, _ := openBoard(t, api)

	assert.Len(t, c.Tasks(), 2)
	project, ok := c.Project()
	require.True(t, ok)
	assert.Equal(t, "p1", project.ID)
}

func TestColumnsGroupByStatus(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{
		task("t1", entity.StatusTodo),
		task("t2", entity.StatusInProgress),
		task("t3", entity.StatusTodo),
	}}
	c, _ := openBoard(t, api)

	cols := c.Columns()
	require.Len(t, cols[entity.StatusTodo], 2)
	assert.Equal(t, "t1", cols[entity.StatusTodo][0].ID, "column preserves collection order")
	assert.Len(t, cols[entity.StatusInProgress], 1)
	assert.Empty(t, cols[entity.StatusDone])
}

func TestCreateAppends(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, _ := openBoard(t, api)

	api.createdID = "t2"
	created, err := c.Create(context.Background(), entity.Task{Title: "New"})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusTodo, created.Status)

	tasks := c.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "t2", tasks[1].ID, "new tasks land at the end")
}

// Moving a task forward issues a status-only update; the task changes
// bucket once the server confirms.
func TestChangeStatusForward(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, _ := openBoard(t, api)

	moved, err := c.ChangeStatus(context.Background(), "t1", Forward)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInProgress, moved.Status)

	patch := api.lastUpdate()
	require.NotNil(t, patch.Status)
	assert.Equal(t, entity.StatusInProgress, *patch.Status)
	assert.Nil(t, patch.Title, "only the status field travels")

	cols := c.Columns()
	assert.Empty(t, cols[entity.StatusTodo])
	assert.Len(t, cols[entity.StatusInProgress], 1)
}

func TestChangeStatusForwardAtDoneIsNoOp(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusDone)}}
	c, lb := openBoard(t, api)

	got, err := c.ChangeStatus(context.Background(), "t1", Forward)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDone, got.Status)
	assert.Zero(t, api.updateCount(), "no request at the boundary")
	assert.Zero(t, lb.publishCount())
}

func TestChangeStatusBackwardAtTodoIsNoOp(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, _ := openBoard(t, api)

	got, err := c.ChangeStatus(context.Background(), "t1", Backward)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusTodo, got.Status)
	assert.Zero(t, api.updateCount())
}

func TestChangeStatusUnknownTask(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, _ := openBoard(t, api)

	_, err := c.ChangeStatus(context.Background(), "missing", Forward)
	require.Error(t, err)
	assert.True(t, rest.IsValidation(err))
}

func TestRemoveEmitsProjectID(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, lb := openBoard(t, api)

	var gotID, gotProject string
	_, err := lb.SubscribeTaskDeleted(func(id, projectID string) {
		gotID, gotProject = id, projectID
	})
	require.NoError(t, err)

	require.NoError(t, c.Remove(context.Background(), "t1"))
	assert.Empty(t, c.Tasks())
	assert.Equal(t, "t1", gotID)
	assert.Equal(t, "p1", gotProject)
}

func TestRemoveFailureKeepsTask(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, lb := openBoard(t, api)

	api.deleteErr = &rest.RequestError{Status: 404, Message: "not found"}
	require.Error(t, c.Remove(context.Background(), "t1"))
	assert.Len(t, c.Tasks(), 1)
	assert.Zero(t, lb.publishCount())
	assert.Error(t, c.Err(OpDelete))
}

// Events for other projects must never leak into the open board.
func TestRemoteEventsFilteredByProject(t *testing.T) {
	api := &fakeAPI{}
	c, lb := openBoard(t, api)

	foreign := entity.Task{ID: "x1", ProjectID: "other", Title: "Foreign", Status: entity.StatusTodo}
	require.NoError(t, lb.PublishTaskCreated(foreign))
	assert.Empty(t, c.Tasks())

	mine := task("t1", entity.StatusTodo)
	require.NoError(t, lb.PublishTaskCreated(mine))
	assert.Len(t, c.Tasks(), 1)

	require.NoError(t, lb.PublishTaskDeleted("t1", "other"))
	assert.Len(t, c.Tasks(), 1, "delete for another project is ignored")

	require.NoError(t, lb.PublishTaskDeleted("t1", "p1"))
	assert.Empty(t, c.Tasks())
}

func TestRemoteDuplicateCreateIsIdempotent(t *testing.T) {
	api := &fakeAPI{}
	c, lb := openBoard(t, api)

	tk := task("t1", entity.StatusTodo)
	require.NoError(t, lb.PublishTaskCreated(tk))
	require.NoError(t, lb.PublishTaskCreated(tk))
	assert.Len(t, c.Tasks(), 1)
}

// Switching projects must tear down the old listeners: events bound to
// the previous project never reach the new collection.
func TestOpenReplacesPreviousProject(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	lb := &loopback{}
	c := New(api, lb)
	require.NoError(t, c.Open(context.Background(), entity.Project{ID: "p1"}))
	t.Cleanup(c.Close)
	require.Len(t, c.Tasks(), 1)

	api.listResult = nil
	require.NoError(t, c.Open(context.Background(), entity.Project{ID: "p2"}))
	assert.Empty(t, c.Tasks(), "previous project's tasks are discarded")

	// Event for the old project arrives after the switch.
	require.NoError(t, lb.PublishTaskCreated(task("t9", entity.StatusTodo)))
	assert.Empty(t, c.Tasks())
}

// An update whose response arrives after a project switch lands in the
// discarded collection, never in the new project's.
func TestUpdateDuringProjectSwitchDoesNotLeak(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, _ := openBoard(t, api)

	api.onUpdate = func() {
		api.listResult = nil
		require.NoError(t, c.Open(context.Background(), entity.Project{ID: "p2"}))
	}

	title := "Renamed"
	_, err := c.Update(context.Background(), "t1", entity.TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Empty(t, c.Tasks(), "late result stays out of the new project's collection")
}

func TestSearchByTitle(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{
		{ID: "t1", ProjectID: "p1", Title: "Write report", Status: entity.StatusTodo},
		{ID: "t2", ProjectID: "p1", Title: "Fix bug", Status: entity.StatusTodo},
	}}
	c, _ := openBoard(t, api)

	got := c.Search("REPORT")
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
	assert.Len(t, c.Search(""), 2)
}
