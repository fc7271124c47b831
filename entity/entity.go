// Package entity defines the project and task records shared by the sync
// core, the REST client, and the push-event channel.
package entity

import (
	"fmt"
	"strings"
	"time"
)

// Status is the Kanban column a task sits in. The three statuses form a
// total order: todo < in_progress < done.
type Status string

// Board columns in forward order.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

var statusOrder = []Status{StatusTodo, StatusInProgress, StatusDone}

// Statuses returns the board columns in forward order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Index returns the position of the status in the column order, or -1 for
// an unknown status.
func (s Status) Index() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether the status is one of the three board columns.
func (s Status) Valid() bool {
	return s.Index() >= 0
}

// Next returns the status one step forward. ok is false when the status is
// already at the terminal forward column or is unknown.
func (s Status) Next() (Status, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(statusOrder) {
		return s, false
	}
	return statusOrder[i+1], true
}

// Prev returns the status one step backward. ok is false when the status is
// already at the terminal backward column or is unknown.
func (s Status) Prev() (Status, bool) {
	i := s.Index()
	if i <= 0 {
		return s, false
	}
	return statusOrder[i-1], true
}

// ParseStatus converts a wire string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status: %q", s)
	}
	return st, nil
}

// Priority is a task's urgency level.
type Priority string

// Supported priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is applied when a task is created without one.
const DefaultPriority = PriorityMedium

// Valid reports whether the priority is a supported level.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority converts a wire string into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority: %q", s)
	}
	return p, nil
}

// Project groups tasks on one board. ID and CreatedAt are server-assigned
// and immutable.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// EntityID returns the project's unique identifier.
func (p Project) EntityID() string { return p.ID }

// Validate checks the client-enforceable project invariants.
func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	return nil
}

// Task is a single board card. ID and ProjectID are server-assigned and
// immutable; a task belongs to exactly one project and one status column.
type Task struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	Title     string     `json:"title"`
	Status    Status     `json:"status"`
	Priority  Priority   `json:"priority"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

// EntityID returns the task's unique identifier.
func (t Task) EntityID() string { return t.ID }

// Validate checks the client-enforceable task invariants.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("unknown status: %q", t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("unknown priority: %q", t.Priority)
	}
	return nil
}

// ProjectPatch is a partial project update. Nil fields are left unchanged
// by the server.
type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p ProjectPatch) IsZero() bool {
	return p.Name == nil && p.Description == nil
}

// TaskPatch is a partial task update. Nil fields are left unchanged by the
// server.
type TaskPatch struct {
	Title    *string    `json:"title,omitempty"`
	Status   *Status    `json:"status,omitempty"`
	Priority *Priority  `json:"priority,omitempty"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p TaskPatch) IsZero() bool {
	return p.Title == nil && p.Status == nil && p.Priority == nil && p.DueDate == nil
}
