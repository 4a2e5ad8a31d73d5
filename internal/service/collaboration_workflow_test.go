package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-app/studyhub-api/internal/models"
	"github.com/studyhub-app/studyhub-api/internal/repository"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

// The workflow mocks share one activity log so a scenario spanning
// several services can assert the order of the recorded entries, the
// way the real repositories share the activity_entries table.

type workflowLog struct {
	entries []models.ActivityEntry
}

func (l *workflowLog) record(entry *models.ActivityEntry) {
	l.entries = append(l.entries, *entry)
}

func (l *workflowLog) actions() []string {
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Action)
	}
	return out
}

type workflowProjectRepo struct {
	projects map[string]models.Project
	log      *workflowLog
}

func (m *workflowProjectRepo) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if p, ok := m.projects[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *workflowProjectRepo) ListVisible(ctx context.Context, userID string, filter models.ProjectFilter) ([]models.Project, int, error) {
	return nil, 0, nil
}

func (m *workflowProjectRepo) Create(ctx context.Context, project *models.Project, entry *models.ActivityEntry) error {
	if project.ID == "" {
		project.ID = "p1"
	}
	if m.projects == nil {
		m.projects = map[string]models.Project{}
	}
	m.projects[project.ID] = *project
	entry.ProjectID = project.ID
	m.log.record(entry)
	return nil
}

func (m *workflowProjectRepo) Update(ctx context.Context, project *models.Project, entry *models.ActivityEntry) error {
	m.projects[project.ID] = *project
	entry.ProjectID = project.ID
	m.log.record(entry)
	return nil
}

func (m *workflowProjectRepo) Delete(ctx context.Context, projectID string, entry *models.ActivityEntry) ([]string, error) {
	delete(m.projects, projectID)
	entry.ProjectID = projectID
	m.log.record(entry)
	return nil, nil
}

type workflowCollabRepo struct {
	roles map[string]models.CollaboratorRole
	log   *workflowLog
}

func (m *workflowCollabRepo) FindRole(ctx context.Context, projectID, userID string) (*models.ProjectCollaborator, error) {
	if role, ok := m.roles[projectID+":"+userID]; ok {
		return &models.ProjectCollaborator{ProjectID: projectID, UserID: userID, Role: role}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *workflowCollabRepo) ListByProject(ctx context.Context, projectID string) ([]models.ProjectCollaborator, error) {
	return nil, nil
}

func (m *workflowCollabRepo) Insert(ctx context.Context, collab *models.ProjectCollaborator, entry *models.ActivityEntry) error {
	key := collab.ProjectID + ":" + collab.UserID
	if _, exists := m.roles[key]; exists {
		return repository.ErrDuplicateCollaborator
	}
	if m.roles == nil {
		m.roles = map[string]models.CollaboratorRole{}
	}
	m.roles[key] = collab.Role
	entry.ProjectID = collab.ProjectID
	m.log.record(entry)
	return nil
}

func (m *workflowCollabRepo) UpdateRole(ctx context.Context, projectID, userID string, role models.CollaboratorRole, entry *models.ActivityEntry) error {
	m.roles[projectID+":"+userID] = role
	entry.ProjectID = projectID
	m.log.record(entry)
	return nil
}

func (m *workflowCollabRepo) Delete(ctx context.Context, projectID, userID string, entry *models.ActivityEntry) error {
	key := projectID + ":" + userID
	if _, ok := m.roles[key]; !ok {
		return sql.ErrNoRows
	}
	delete(m.roles, key)
	entry.ProjectID = projectID
	m.log.record(entry)
	return nil
}

func (m *workflowCollabRepo) TransferOwnership(ctx context.Context, projectID, oldOwnerID, newOwnerID string, entry *models.ActivityEntry) error {
	entry.ProjectID = projectID
	m.log.record(entry)
	return nil
}

type workflowTaskRepo struct {
	tasks map[string]models.Task
	log   *workflowLog
}

func (m *workflowTaskRepo) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if task, ok := m.tasks[id]; ok {
		return &task, nil
	}
	return nil, sql.ErrNoRows
}

func (m *workflowTaskRepo) ListByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	return nil, nil
}

func (m *workflowTaskRepo) Create(ctx context.Context, task *models.Task, entry *models.ActivityEntry) error {
	if task.ID == "" {
		task.ID = "t1"
	}
	if m.tasks == nil {
		m.tasks = map[string]models.Task{}
	}
	m.tasks[task.ID] = *task
	entry.ProjectID = task.ProjectID
	m.log.record(entry)
	return nil
}

func (m *workflowTaskRepo) Update(ctx context.Context, task *models.Task, entry *models.ActivityEntry) error {
	m.tasks[task.ID] = *task
	entry.ProjectID = task.ProjectID
	m.log.record(entry)
	return nil
}

func (m *workflowTaskRepo) Delete(ctx context.Context, taskID, projectID string, entry *models.ActivityEntry) error {
	delete(m.tasks, taskID)
	entry.ProjectID = projectID
	m.log.record(entry)
	return nil
}

type workflowUsers struct {
	users map[string]models.User
}

func (m *workflowUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *workflowUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

// The full collaboration arc: Alice creates a project, invites Bob,
// Bob works a task to Done, Alice removes Bob, and Bob's next write is
// denied. The shared activity log must hold the five mutations in
// order.
func TestCollaborationWorkflow(t *testing.T) {
	ctx := context.Background()
	log := &workflowLog{}

	projectRepo := &workflowProjectRepo{log: log}
	collabRepo := &workflowCollabRepo{log: log}
	taskRepo := &workflowTaskRepo{log: log}
	users := &workflowUsers{users: map[string]models.User{
		"alice": {ID: "alice", Email: "alice@example.com", FullName: "Alice"},
		"bob":   {ID: "bob", Email: "bob@example.com", FullName: "Bob"},
	}}

	permissions := NewPermissionService(projectRepo, collabRepo, nil)
	projectSvc := NewProjectService(projectRepo, &mockCourseFinder{}, permissions, nil, nil, nil, nil)
	collabSvc := NewCollaborationService(collabRepo, users, permissions, nil, nil, nil)
	taskSvc := NewTaskService(taskRepo, permissions, nil, nil)

	project, err := projectSvc.Create(ctx, "alice", CreateProjectRequest{Title: "Group thesis"})
	require.NoError(t, err)

	_, err = collabSvc.Invite(ctx, "alice", project.ID, InviteRequest{
		Email: "bob@example.com", Role: models.CollaboratorRoleCollaborator,
	})
	require.NoError(t, err)

	task, err := taskSvc.Create(ctx, "bob", project.ID, CreateTaskRequest{Title: "draft chapter 1"})
	require.NoError(t, err)

	task, err = taskSvc.Update(ctx, "bob", task.ID, UpdateTaskRequest{
		Title: "draft chapter 1", Status: models.TaskStatusDone, Priority: task.Priority,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, task.Status)

	require.NoError(t, collabSvc.Remove(ctx, "alice", project.ID, "bob"))

	// Removal revokes everything, including visibility.
	_, err = taskSvc.Update(ctx, "bob", task.ID, UpdateTaskRequest{
		Title: "draft chapter 1", Status: models.TaskStatusInProgress, Priority: task.Priority,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	assert.Equal(t, []string{
		models.ActivityProjectCreated,
		models.ActivityCollaboratorAdded,
		models.ActivityTaskCreated,
		models.ActivityTaskStatusChanged,
		models.ActivityCollaboratorRemoved,
	}, log.actions())
	for _, entry := range log.entries {
		assert.Equal(t, project.ID, entry.ProjectID)
	}
}
