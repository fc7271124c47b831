package events

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/boardsync/boardsync/entity"
	"github.com/boardsync/boardsync/metrics"
)

// Unsubscribe tears down one subscription. Safe to call more than once.
type Unsubscribe func() error

// Channel is the client's handle on the push-event fabric. One Channel is
// shared by all controllers in a process; it is injected, never
// re-instantiated per component.
type Channel struct {
	conn     *nats.Conn
	ownsConn bool
	clientID string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

// WithMetrics enables event instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Channel) {
		c.metrics = m
	}
}

// WithClientID sets the origin id stamped on published events. Defaults to
// a random id per Channel.
func WithClientID(id string) Option {
	return func(c *Channel) {
		c.clientID = id
	}
}

// Connect dials NATS and returns a Channel owning the connection.
func Connect(url string, opts ...Option) (*Channel, error) {
	conn, err := nats.Connect(url,
		nats.Name("boardsync"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	c := NewChannel(conn, opts...)
	c.ownsConn = true
	return c, nil
}

// NewChannel wraps an existing NATS connection (embedded-server case). The
// caller keeps ownership of the connection.
func NewChannel(conn *nats.Conn, opts ...Option) *Channel {
	c := &Channel{
		conn:     conn,
		clientID: uuid.New().String(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientID returns the origin id stamped on published events.
func (c *Channel) ClientID() string {
	return c.clientID
}

// Close drains the subscriptions and, when the Channel owns the
// connection, closes it.
func (c *Channel) Close() {
	if c.conn == nil {
		return
	}
	if c.ownsConn {
		c.conn.Close()
	}
}

// PublishProjectCreated broadcasts a confirmed project creation.
func (c *Channel) PublishProjectCreated(p entity.Project) error {
	return c.publish(TopicProjectCreated, ProjectEvent{Origin: c.clientID, Project: p})
}

// PublishProjectUpdated broadcasts a confirmed project update.
func (c *Channel) PublishProjectUpdated(p entity.Project) error {
	return c.publish(TopicProjectUpdated, ProjectEvent{Origin: c.clientID, Project: p})
}

// PublishProjectDeleted broadcasts a confirmed project deletion.
func (c *Channel) PublishProjectDeleted(id string) error {
	return c.publish(TopicProjectDeleted, ProjectDeletedEvent{Origin: c.clientID, ID: id})
}

// PublishTaskCreated broadcasts a confirmed task creation.
func (c *Channel) PublishTaskCreated(t entity.Task) error {
	return c.publish(TopicTaskCreated, TaskEvent{Origin: c.clientID, Task: t})
}

// PublishTaskUpdated broadcasts a confirmed task update.
func (c *Channel) PublishTaskUpdated(t entity.Task) error {
	return c.publish(TopicTaskUpdated, TaskEvent{Origin: c.clientID, Task: t})
}

// PublishTaskDeleted broadcasts a confirmed task deletion.
func (c *Channel) PublishTaskDeleted(id, projectID string) error {
	return c.publish(TopicTaskDeleted, TaskDeletedEvent{Origin: c.clientID, ID: id, ProjectID: projectID})
}

// SubscribeProjectCreated delivers remote project creations.
func (c *Channel) SubscribeProjectCreated(h func(entity.Project)) (Unsubscribe, error) {
	return subscribe(c, TopicProjectCreated, func(ev ProjectEvent) { h(ev.Project) })
}

// SubscribeProjectUpdated delivers remote project updates.
func (c *Channel) SubscribeProjectUpdated(h func(entity.Project)) (Unsubscribe, error) {
	return subscribe(c, TopicProjectUpdated, func(ev ProjectEvent) { h(ev.Project) })
}

// SubscribeProjectDeleted delivers remote project deletions.
func (c *Channel) SubscribeProjectDeleted(h func(id string)) (Unsubscribe, error) {
	return subscribe(c, TopicProjectDeleted, func(ev ProjectDeletedEvent) { h(ev.ID) })
}

// SubscribeTaskCreated delivers remote task creations.
func (c *Channel) SubscribeTaskCreated(h func(entity.Task)) (Unsubscribe, error) {
	return subscribe(c, TopicTaskCreated, func(ev TaskEvent) { h(ev.Task) })
}

// SubscribeTaskUpdated delivers remote task updates.
func (c *Channel) SubscribeTaskUpdated(h func(entity.Task)) (Unsubscribe, error) {
	return subscribe(c, TopicTaskUpdated, func(ev TaskEvent) { h(ev.Task) })
}

// SubscribeTaskDeleted delivers remote task deletions.
func (c *Channel) SubscribeTaskDeleted(h func(id, projectID string)) (Unsubscribe, error) {
	return subscribe(c, TopicTaskDeleted, func(ev TaskDeletedEvent) { h(ev.ID, ev.ProjectID) })
}

func (c *Channel) publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	if err := c.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	c.metrics.EventPublished(topic)
	return nil
}

// subscribe binds a typed handler to a subject. Undecodable payloads are
// logged and dropped; a malformed event from one client must not take the
// subscription down.
func subscribe[T any](c *Channel, topic string, h func(T)) (Unsubscribe, error) {
	sub, err := c.conn.Subscribe(topic, func(msg *nats.Msg) {
		var ev T
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.logger.Warn("Dropping undecodable push event",
				"topic", topic,
				"error", err)
			return
		}
		c.metrics.EventReceived(topic)
		h(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	return func() error {
		if !sub.IsValid() {
			return nil
		}
		return sub.Unsubscribe()
	}, nil
}
