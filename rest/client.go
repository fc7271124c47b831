// Package rest implements the HTTP client for the board API: projects and
// tasks CRUD with bearer authentication, error classification, and retry
// for idempotent requests.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boardsync/boardsync/entity"
	"github.com/boardsync/boardsync/metrics"
)

// maxResponseSize caps response bodies to prevent memory exhaustion.
const maxResponseSize = 4 * 1024 * 1024 // 4MB

// TokenSource supplies the bearer token attached to every request. The
// session is established by an external auth collaborator; this client
// only consumes it.
type TokenSource interface {
	Token() (string, error)
}

// Client talks to the board API.
type Client struct {
	baseURL     string
	tokens      TokenSource
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithMetrics enables request instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(client *Client) {
		client.metrics = m
	}
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokens:      tokens,
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListProjects fetches all projects owned by the session.
func (c *Client) ListProjects(ctx context.Context) ([]entity.Project, error) {
	var out []entity.Project
	if err := c.do(ctx, "list_projects", http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject creates a project and returns the server-assigned record.
func (c *Client) CreateProject(ctx context.Context, name, description string) (entity.Project, error) {
	if strings.TrimSpace(name) == "" {
		return entity.Project{}, NewValidationError("project name is required")
	}

	body := map[string]string{"name": name, "description": description}
	var out entity.Project
	if err := c.do(ctx, "create_project", http.MethodPost, "/projects", body, &out); err != nil {
		return entity.Project{}, err
	}
	return out, nil
}

// UpdateProject applies a partial update and returns the server's record.
func (c *Client) UpdateProject(ctx context.Context, id string, patch entity.ProjectPatch) (entity.Project, error) {
	if id == "" {
		return entity.Project{}, NewValidationError("project id is required")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return entity.Project{}, NewValidationError("project name is required")
	}

	var out entity.Project
	if err := c.do(ctx, "update_project", http.MethodPut, "/projects/"+id, patch, &out); err != nil {
		return entity.Project{}, err
	}
	return out, nil
}

// DeleteProject removes a project. The server cascades the delete to the
// project's tasks.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("project id is required")
	}
	return c.do(ctx, "delete_project", http.MethodDelete, "/projects/"+id, nil, nil)
}

// ListTasks fetches the tasks of one project.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]entity.Task, error) {
	if projectID == "" {
		return nil, NewValidationError("project id is required")
	}
	var out []entity.Task
	if err := c.do(ctx, "list_tasks", http.MethodGet, "/projects/"+projectID+"/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTask creates a task inside a project and returns the
// server-assigned record.
func (c *Client) CreateTask(ctx context.Context, projectID string, task entity.Task) (entity.Task, error) {
	if projectID == "" {
		return entity.Task{}, NewValidationError("project id is required")
	}
	if task.Status == "" {
		task.Status = entity.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = entity.DefaultPriority
	}
	if err := task.Validate(); err != nil {
		return entity.Task{}, NewValidationError("%s", err)
	}

	var out entity.Task
	if err := c.do(ctx, "create_task", http.MethodPost, "/projects/"+projectID+"/tasks", task, &out); err != nil {
		return entity.Task{}, err
	}
	return out, nil
}

// UpdateTask applies a partial update and returns the server's record.
func (c *Client) UpdateTask(ctx context.Context, id string, patch entity.TaskPatch) (entity.Task, error) {
	if id == "" {
		return entity.Task{}, NewValidationError("task id is required")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return entity.Task{}, NewValidationError("task title is required")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return entity.Task{}, NewValidationError("unknown status: %q", *patch.Status)
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return entity.Task{}, NewValidationError("unknown priority: %q", *patch.Priority)
	}

	var out entity.Task
	if err := c.do(ctx, "update_task", http.MethodPut, "/tasks/"+id, patch, &out); err != nil {
		return entity.Task{}, err
	}
	return out, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return NewValidationError("task id is required")
	}
	return c.do(ctx, "delete_task", http.MethodDelete, "/tasks/"+id, nil, nil)
}

// do executes one API operation, retrying idempotent requests on
// transient failures. POST is never retried: a create that timed out may
// have landed, and a retry would duplicate the entity.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	start := time.Now()
	err := c.doWithRetry(ctx, operation, method, path, body, out)
	c.metrics.ObserveRequest(operation, err, time.Since(start))
	return err
}

func (c *Client) doWithRetry(ctx context.Context, operation, method, path string, body, out any) error {
	maxAttempts := c.retryConfig.MaxAttempts
	if method == http.MethodPost {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt == maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Debug("Request failed, retrying",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return NewTransportError(ctx.Err())
		case <-time.After(backoff):
		}
	}

	return lastErr
}

// calculateBackoff computes exponential backoff with jitter. Jitter
// prevents synchronized retries when several clients hit the same outage.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retryConfig.BackoffMultiplier
	}

	backoff := time.Duration(float64(c.retryConfig.BackoffBase) * multiplier)
	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("session token: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NewTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return NewTransportError(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{
			Status:  resp.StatusCode,
			Message: serverMessage(respBody),
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// serverMessage extracts the error message from a 4xx/5xx body. The API
// responds with {"message": ...}; {"error": ...} is tolerated for
// compatibility with older deployments.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
