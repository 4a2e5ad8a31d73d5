package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type mockTaskRepo struct {
	tasks   map[string]models.Task
	entries []models.ActivityEntry
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if task, ok := m.tasks[id]; ok {
		return &task, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTaskRepo) ListByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	var out []models.Task
	for _, task := range m.tasks {
		if task.ProjectID == projectID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.Task, entry *models.ActivityEntry) error {
	if m.tasks == nil {
		m.tasks = map[string]models.Task{}
	}
	if task.ID == "" {
		task.ID = "t1"
	}
	m.tasks[task.ID] = *task
	entry.ProjectID = task.ProjectID
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *models.Task, entry *models.ActivityEntry) error {
	m.tasks[task.ID] = *task
	entry.ProjectID = task.ProjectID
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, taskID, projectID string, entry *models.ActivityEntry) error {
	delete(m.tasks, taskID)
	entry.ProjectID = projectID
	m.entries = append(m.entries, *entry)
	return nil
}

func newTestTaskService(repo *mockTaskRepo) *TaskService {
	svc, _, _ := newTestPermissions()
	return NewTaskService(repo, svc, nil, nil)
}

// Walks a task through its whole life and checks the activity log keeps
// the mutations in order.
func TestTaskLifecycle(t *testing.T) {
	repo := &mockTaskRepo{}
	svc := newTestTaskService(repo)
	ctx := context.Background()

	task, err := svc.Create(ctx, "collab", "p1", CreateTaskRequest{Title: "write outline"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)

	task, err = svc.Update(ctx, "collab", task.ID, UpdateTaskRequest{
		Title: "write outline", Status: models.TaskStatusInProgress, Priority: models.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)

	task, err = svc.Update(ctx, "owner", task.ID, UpdateTaskRequest{
		Title: "write full outline", Status: models.TaskStatusInProgress, Priority: models.PriorityHigh,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "owner", task.ID))
	assert.Empty(t, repo.tasks)

	require.Len(t, repo.entries, 4)
	assert.Equal(t, models.ActivityTaskCreated, repo.entries[0].Action)
	assert.Equal(t, models.ActivityTaskStatusChanged, repo.entries[1].Action)
	assert.Contains(t, repo.entries[1].Detail, string(models.TaskStatusTodo))
	assert.Contains(t, repo.entries[1].Detail, string(models.TaskStatusInProgress))
	assert.Equal(t, models.ActivityTaskUpdated, repo.entries[2].Action)
	assert.Equal(t, models.ActivityTaskDeleted, repo.entries[3].Action)
	for _, entry := range repo.entries {
		assert.Equal(t, "p1", entry.ProjectID)
	}
}

func TestTaskViewerCannotManage(t *testing.T) {
	repo := &mockTaskRepo{tasks: map[string]models.Task{
		"t1": {ID: "t1", ProjectID: "p1", Title: "write outline", Status: models.TaskStatusTodo, Priority: models.PriorityMedium},
	}}
	svc := newTestTaskService(repo)

	_, err := svc.Create(context.Background(), "watcher", "p1", CreateTaskRequest{Title: "extra"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "watcher", "t1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Viewing is fine.
	tasks, err := svc.List(context.Background(), "watcher", "p1")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestTaskInvalidPriority(t *testing.T) {
	svc := newTestTaskService(&mockTaskRepo{})

	_, err := svc.Create(context.Background(), "owner", "p1", CreateTaskRequest{Title: "x", Priority: "Urgent-ish"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
