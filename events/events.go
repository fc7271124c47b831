// Package events carries confirmed mutations between clients over NATS.
//
// A client publishes an event only after the REST call it mirrors has
// succeeded, and every client (the originator included) merges incoming
// events through the same idempotent store operations, so duplicate and
// out-of-order delivery converge.
package events

import "github.com/boardsync/boardsync/entity"

// Push-event subjects, one per entity mutation.
const (
	TopicProjectCreated = "board.project.created"
	TopicProjectUpdated = "board.project.updated"
	TopicProjectDeleted = "board.project.deleted"
	TopicTaskCreated    = "board.task.created"
	TopicTaskUpdated    = "board.task.updated"
	TopicTaskDeleted    = "board.task.deleted"
)

// ProjectEvent is the payload of project created/updated events: the full
// confirmed entity, including the server-assigned id.
type ProjectEvent struct {
	// Origin identifies the publishing client. Merges do not depend on it;
	// it exists for logging and debugging duplicate delivery.
	Origin  string         `json:"origin,omitempty"`
	Project entity.Project `json:"project"`
}

// ProjectDeletedEvent carries the bare id of a deleted project.
type ProjectDeletedEvent struct {
	Origin string `json:"origin,omitempty"`
	ID     string `json:"id"`
}

// TaskEvent is the payload of task created/updated events.
type TaskEvent struct {
	Origin string      `json:"origin,omitempty"`
	Task   entity.Task `json:"task"`
}

// TaskDeletedEvent carries the id of a deleted task plus its project id so
// listeners can filter events for the project they have open.
type TaskDeletedEvent struct {
	Origin    string `json:"origin,omitempty"`
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
}
