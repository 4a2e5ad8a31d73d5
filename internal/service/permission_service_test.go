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

type mockProjectFinder struct {
	projects map[string]models.Project
}

func (m *mockProjectFinder) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if p, ok := m.projects[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

type mockRoleFinder struct {
	roles map[string]models.CollaboratorRole
}

func (m *mockRoleFinder) FindRole(ctx context.Context, projectID, userID string) (*models.ProjectCollaborator, error) {
	if r, ok := m.roles[projectID+":"+userID]; ok {
		return &models.ProjectCollaborator{ProjectID: projectID, UserID: userID, Role: r}, nil
	}
	return nil, sql.ErrNoRows
}

func newTestPermissions() (*PermissionService, *mockProjectFinder, *mockRoleFinder) {
	projects := &mockProjectFinder{projects: map[string]models.Project{
		"p1": {ID: "p1", OwnerID: "owner"},
	}}
	roles := &mockRoleFinder{roles: map[string]models.CollaboratorRole{
		"p1:collab":  models.CollaboratorRoleCollaborator,
		"p1:watcher": models.CollaboratorRoleViewer,
	}}
	return NewPermissionService(projects, roles, nil), projects, roles
}

func TestResolveRoles(t *testing.T) {
	svc, projects, _ := newTestPermissions()
	project := projects.projects["p1"]

	tests := []struct {
		userID string
		want   models.Role
	}{
		{"owner", models.RoleOwner},
		{"collab", models.RoleCollaborator},
		{"watcher", models.RoleViewer},
		{"stranger", models.RoleNone},
	}
	for _, tt := range tests {
		role, err := svc.Resolve(context.Background(), tt.userID, &project)
		require.NoError(t, err)
		assert.Equal(t, tt.want, role, tt.userID)
	}
}

func TestRequireProjectHidesExistence(t *testing.T) {
	svc, _, _ := newTestPermissions()

	// A stranger gets NotFound, not Forbidden, for a real project.
	_, _, err := svc.RequireProject(context.Background(), "stranger", "p1", models.CapabilityView)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// Same shape as a genuinely missing project.
	_, _, err = svc.RequireProject(context.Background(), "owner", "missing", models.CapabilityView)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRequireProjectForbidsInsufficientRole(t *testing.T) {
	svc, _, _ := newTestPermissions()

	// Viewer can view but not manage tasks.
	_, role, err := svc.RequireProject(context.Background(), "watcher", "p1", models.CapabilityView)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, role)

	_, _, err = svc.RequireProject(context.Background(), "watcher", "p1", models.CapabilityManageTasks)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Collaborator can manage tasks but not members.
	_, _, err = svc.RequireProject(context.Background(), "collab", "p1", models.CapabilityManageTasks)
	require.NoError(t, err)

	_, _, err = svc.RequireProject(context.Background(), "collab", "p1", models.CapabilityManageCollaborators)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
