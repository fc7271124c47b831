package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardsync/boardsync/entity"
	"github.com/boardsync/boardsync/rest"
	"github.com/boardsync/boardsync/session"
)

// client builds a real API client against an in-process mock server, so
// the test exercises the same wire format production clients use.
func client(t *testing.T, token string) *rest.Client {
	t.Helper()
	ts := httptest.NewServer(newRouter(&server{}, token))
	t.Cleanup(ts.Close)
	return rest.NewClient(ts.URL+"/api", session.StaticToken(token))
}

func TestProjectLifecycle(t *testing.T) {
	c := client(t, "dev-token")
	ctx := t.Context()

	created, err := c.CreateProject(ctx, "Alpha", "first project")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	second, err := c.CreateProject(ctx, "Beta", "")
	require.NoError(t, err)

	projects, err := c.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, second.ID, projects[0].ID, "newest project listed first")

	name := "Alpha v2"
	updated, err := c.UpdateProject(ctx, created.ID, entity.ProjectPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alpha v2", updated.Name)

	require.NoError(t, c.DeleteProject(ctx, created.ID))
	projects, err = c.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestTaskLifecycle(t *testing.T) {
	c := client(t, "dev-token")
	ctx := t.Context()

	project, err := c.CreateProject(ctx, "Alpha", "")
	require.NoError(t, err)

	created, err := c.CreateTask(ctx, project.ID, entity.Task{Title: "Write report"})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusTodo, created.Status, "status defaults to todo")
	assert.Equal(t, entity.DefaultPriority, created.Priority)
	assert.Equal(t, project.ID, created.ProjectID)

	status := entity.StatusInProgress
	updated, err := c.UpdateTask(ctx, created.ID, entity.TaskPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInProgress, updated.Status)
	assert.Equal(t, "Write report", updated.Title, "unpatched fields survive")

	tasks, err := c.ListTasks(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	require.NoError(t, c.DeleteTask(ctx, created.ID))
	tasks, err = c.ListTasks(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestDeleteProjectCascades(t *testing.T) {
	c := client(t, "dev-token")
	ctx := t.Context()

	project, err := c.CreateProject(ctx, "Alpha", "")
	require.NoError(t, err)
	task, err := c.CreateTask(ctx, project.ID, entity.Task{Title: "Orphan-to-be"})
	require.NoError(t, err)

	require.NoError(t, c.DeleteProject(ctx, project.ID))

	err = c.DeleteTask(ctx, task.ID)
	require.Error(t, err)
	var reqErr *rest.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
}

func TestNotFoundCarriesMessage(t *testing.T) {
	c := client(t, "dev-token")

	_, err := c.UpdateProject(t.Context(), "missing", entity.ProjectPatch{})
	require.Error(t, err)
	var reqErr *rest.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
	assert.Contains(t, reqErr.Message, "missing")
}

func TestBearerAuthRequired(t *testing.T) {
	ts := httptest.NewServer(newRouter(&server{}, "secret"))
	t.Cleanup(ts.Close)

	wrong := rest.NewClient(ts.URL+"/api", session.StaticToken("not-it"))
	_, err := wrong.ListProjects(t.Context())
	require.Error(t, err)
	var reqErr *rest.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)

	right := rest.NewClient(ts.URL+"/api", session.StaticToken("secret"))
	_, err = right.ListProjects(t.Context())
	assert.NoError(t, err)
}

func TestValidationRejectedServerSide(t *testing.T) {
	ts := httptest.NewServer(newRouter(&server{}, ""))
	t.Cleanup(ts.Close)

	// Bypass the client's own validation with a raw request.
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/projects", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
