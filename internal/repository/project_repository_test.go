package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-app/studyhub-api/internal/models"
)

func TestProjectFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "owner_id", "course_id", "title", "description", "status", "deadline", "created_at", "updated_at"}).
		AddRow("p1", "u1", nil, "Thesis", "", string(models.ProjectStatusInProgress), nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, course_id, title, description, status, deadline, created_at, updated_at FROM projects WHERE id = $1 LIMIT 1")).
		WithArgs("p1").
		WillReturnRows(rows)

	project, err := repo.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Thesis", project.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectCreateWritesActivity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO projects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO activity_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	project := &models.Project{OwnerID: "u1", Title: "Thesis", Status: models.ProjectStatusPlanning}
	entry := &models.ActivityEntry{ActorID: "u1", Action: models.ActivityProjectCreated, Detail: "created project"}
	err := repo.Create(context.Background(), project, entry)
	require.NoError(t, err)
	assert.Equal(t, project.ID, entry.ProjectID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectCreateRollsBackOnActivityFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO projects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO activity_entries").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	project := &models.Project{OwnerID: "u1", Title: "Thesis", Status: models.ProjectStatusPlanning}
	entry := &models.ActivityEntry{ActorID: "u1", Action: models.ActivityProjectCreated}
	err := repo.Create(context.Background(), project, entry)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectUpdateLocksRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM projects WHERE id = $1 FOR UPDATE")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectExec("UPDATE projects SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	project := &models.Project{ID: "p1", OwnerID: "u1", Title: "Thesis v2", Status: models.ProjectStatusInProgress}
	entry := &models.ActivityEntry{ActorID: "u1", Action: models.ActivityProjectUpdated}
	err := repo.Update(context.Background(), project, entry)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectDeleteCascades(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM projects WHERE id = $1 FOR UPDATE")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectExec("INSERT INTO activity_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT stored_path FROM project_files WHERE project_id = $1")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"stored_path"}).AddRow("p1/notes.txt"))
	mock.ExpectExec("DELETE FROM study_sessions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM project_files").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM project_comments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM tasks").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM project_collaborators").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM projects").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry := &models.ActivityEntry{ActorID: "u1", Action: models.ActivityProjectDeleted}
	paths, err := repo.Delete(context.Background(), "p1", entry)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1/notes.txt"}, paths)
	assert.NoError(t, mock.ExpectationsWereMet())
}
