package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/boardsync/boardsync/entity"
)

// DragState is the phase of an in-flight drag.
type DragState int

// Drag phases.
const (
	DragIdle DragState = iota
	DragActive
)

// DragEngine runs the drag-and-drop protocol for the board. A drop onto
// another column applies the status change optimistically so the card
// moves under the pointer, then confirms with the server; on rejection
// the card snaps back to its pre-drag state. This is the one mutation in
// the client that shows unconfirmed state.
type DragEngine struct {
	controller *Controller

	mu       sync.Mutex
	state    DragState
	taskID   string
	snapshot entity.Task
}

// NewDragEngine creates a drag engine bound to a board controller.
func NewDragEngine(c *Controller) *DragEngine {
	return &DragEngine{controller: c}
}

// State reports the current drag phase.
func (d *DragEngine) State() DragState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Dragging returns the id of the task being dragged, if any.
func (d *DragEngine) Dragging() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.taskID, d.state == DragActive
}

// Start begins a drag on the given task. Starting while another drag is
// active is rejected; the first drag keeps its snapshot.
func (d *DragEngine) Start(taskID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == DragActive {
		return fmt.Errorf("drag already active for task %s", d.taskID)
	}
	task, ok := d.controller.Get(taskID)
	if !ok {
		return fmt.Errorf("unknown task: %s", taskID)
	}

	d.state = DragActive
	d.taskID = taskID
	d.snapshot = task
	return nil
}

// Cancel abandons the active drag without issuing a request. Safe to call
// when idle.
func (d *DragEngine) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// Drop completes the drag onto the target column. A drop onto the card's
// own column, or with an invalid target, cancels without a request. A
// cross-column drop moves the card immediately, then reconciles with the
// server's record; if the server rejects it, the pre-drag snapshot is
// restored.
func (d *DragEngine) Drop(ctx context.Context, target entity.Status) error {
	d.mu.Lock()
	if d.state != DragActive {
		d.mu.Unlock()
		return fmt.Errorf("no drag active")
	}
	snapshot := d.snapshot
	taskID := d.taskID
	d.reset()
	d.mu.Unlock()

	if !target.Valid() || target == snapshot.Status {
		return nil
	}

	c := d.controller
	tasks, projectID, ok := c.current()
	if !ok {
		return fmt.Errorf("no project open")
	}

	// Optimistic move: the card lands in the target column before the
	// server has confirmed.
	moved := snapshot
	moved.Status = target
	tasks.Upsert(moved)

	updated, err := c.api.UpdateTask(ctx, taskID, entity.TaskPatch{Status: &target})
	if err != nil {
		// Restore only while the task is still in the collection: a
		// remote delete that arrived mid-drag must not be undone.
		if _, present := tasks.Get(taskID); present {
			tasks.Upsert(snapshot)
		}
		c.metrics.DragRollback()
		c.setErr(OpUpdate, err)
		c.logger.Warn("Drag rejected by server, restoring task",
			"task_id", taskID,
			"target", target,
			"error", err)
		return err
	}

	tasks.Upsert(updated)
	c.broadcast(func() error { return c.channel.PublishTaskUpdated(updated) })
	c.clearErr(OpUpdate)
	c.snapshot(ctx, projectID, tasks)
	return nil
}

func (d *DragEngine) reset() {
	d.state = DragIdle
	d.taskID = ""
	d.snapshot = entity.Task{}
}
