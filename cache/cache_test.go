package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardsync/boardsync/entity"
)

func openTemp(t *testing.T) *Snapshots {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestProjectSnapshotRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	projects := []entity.Project{
		{ID: "p2", Name: "Beta", CreatedAt: createdAt},
		{ID: "p1", Name: "Alpha", Description: "first"},
	}
	require.NoError(t, s.SaveProjects(ctx, projects))

	got, err := s.LoadProjects(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ID, "saved order survives the round trip")
	assert.True(t, got[0].CreatedAt.Equal(createdAt))
	assert.Equal(t, "first", got[1].Description)
}

func TestSaveProjectsReplacesSnapshot(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProjects(ctx, []entity.Project{{ID: "p1", Name: "Old"}}))
	require.NoError(t, s.SaveProjects(ctx, []entity.Project{{ID: "p2", Name: "New"}}))

	got, err := s.LoadProjects(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)
}

func TestTaskSnapshotScopedByProject(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveTasks(ctx, "p1", []entity.Task{
		{ID: "t1", ProjectID: "p1", Title: "First", Status: entity.StatusTodo, Priority: entity.PriorityHigh, DueDate: &due},
		{ID: "t2", ProjectID: "p1", Title: "Second", Status: entity.StatusDone, Priority: entity.DefaultPriority},
	}))
	require.NoError(t, s.SaveTasks(ctx, "p2", []entity.Task{
		{ID: "t9", ProjectID: "p2", Title: "Other", Status: entity.StatusTodo, Priority: entity.DefaultPriority},
	}))

	got, err := s.LoadTasks(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, entity.PriorityHigh, got[0].Priority)
	require.NotNil(t, got[0].DueDate)
	assert.True(t, got[0].DueDate.Equal(due))
	assert.Nil(t, got[1].DueDate)

	// Rewriting p1 leaves p2 untouched.
	require.NoError(t, s.SaveTasks(ctx, "p1", nil))
	got, err = s.LoadTasks(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, got)

	other, err := s.LoadTasks(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestLoadEmptySnapshot(t *testing.T) {
	s := openTemp(t)

	projects, err := s.LoadProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)

	tasks, err := s.LoadTasks(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
