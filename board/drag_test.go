package board

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardsync/boardsync/entity"
	"github.com/boardsync/boardsync/rest"
)

func TestDragCrossColumnDrop(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, lb := openBoard(t, api)
	engine := NewDragEngine(c)

	require.NoError(t, engine.Start("t1"))
	require.NoError(t, engine.Drop(context.Background(), entity.StatusInProgress))

	got, ok := c.Get("t1")
	require.True(t, ok)
	assert.Equal(t, entity.StatusInProgress, got.Status)
	assert.Equal(t, DragIdle, engine.State())
	assert.Equal(t, 1, lb.publishCount(), "confirmed move is broadcast")

	patch := api.lastUpdate()
	require.NotNil(t, patch.Status)
	assert.Equal(t, entity.StatusInProgress, *patch.Status)
}

// Dropping a card onto its own column resolves without a request.
func TestDragSameColumnDropIsNoOp(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, lb := openBoard(t, api)
	engine := NewDragEngine(c)

	require.NoError(t, engine.Start("t1"))
	require.NoError(t, engine.Drop(context.Background(), entity.StatusTodo))

	got, _ := c.Get("t1")
	assert.Equal(t, entity.StatusTodo, got.Status)
	assert.Zero(t, api.updateCount())
	assert.Zero(t, lb.publishCount())
	assert.Equal(t, DragIdle, engine.State())
}

func TestDragInvalidTargetCancels(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, _ := openBoard(t, api)
	engine := NewDragEngine(c)

	require.NoError(t, engine.Start("t1"))
	require.NoError(t, engine.Drop(context.Background(), entity.Status("archived")))
	assert.Zero(t, api.updateCount())
}

func TestDragRejectedRollsBack(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, lb := openBoard(t, api)
	engine := NewDragEngine(c)

	api.updateErr = &rest.RequestError{Status: 422, Message: "transition not allowed"}
	require.NoError(t, engine.Start("t1"))
	err := engine.Drop(context.Background(), entity.StatusDone)
	require.Error(t, err)

	got, _ := c.Get("t1")
	assert.Equal(t, entity.StatusTodo, got.Status, "card snaps back to its pre-drag column")
	assert.Zero(t, lb.publishCount(), "rejected move is never broadcast")
	assert.Error(t, c.Err(OpUpdate))
}

// A remote delete arriving while the drop request is in flight wins over
// the rollback: a rejected drag never resurrects a task someone else
// already removed.
func TestDragRollbackSkipsRemotelyDeletedTask(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, lb := openBoard(t, api)
	engine := NewDragEngine(c)

	api.updateErr = &rest.RequestError{Status: 500, Message: "server error"}
	api.onUpdate = func() {
		require.NoError(t, lb.PublishTaskDeleted("t1", "p1"))
	}

	require.NoError(t, engine.Start("t1"))
	require.Error(t, engine.Drop(context.Background(), entity.StatusDone))

	_, ok := c.Get("t1")
	assert.False(t, ok, "deleted task stays deleted")
}

func TestDragStartWhileActiveRejected(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo), task("t2", entity.StatusTodo)}}
	c, _ := openBoard(t, api)
	engine := NewDragEngine(c)

	require.NoError(t, engine.Start("t1"))
	assert.Error(t, engine.Start("t2"))

	id, active := engine.Dragging()
	require.True(t, active)
	assert.Equal(t, "t1", id, "the first drag keeps its snapshot")
}

func TestDragCancel(t *testing.T) {
	api := &fakeAPI{listResult: []entity.Task{task("t1", entity.StatusTodo)}}
	c, _ := openBoard(t, api)
	engine := NewDragEngine(c)

	require.NoError(t, engine.Start("t1"))
	engine.Cancel()
	assert.Equal(t, DragIdle, engine.State())
	assert.Error(t, engine.Drop(context.Background(), entity.StatusDone))
	assert.Zero(t, api.updateCount())

	// Cancel when idle is harmless.
	engine.Cancel()
}

func TestDragStartUnknownTask(t *testing.T) {
	api := &fakeAPI{}
	c, _ := openBoard(t, api)
	engine := NewDragEngine(c)

	assert.Error(t, engine.Start("missing"))
	assert.Equal(t, DragIdle, engine.State())
}
