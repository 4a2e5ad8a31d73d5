package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-app/studyhub-api/internal/models"
)

func TestSessionCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM study_sessions WHERE user_id = $1 AND state != $2")).
		WithArgs("u1", string(models.SessionCompleted)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO study_sessions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	now := time.Now()
	session := &models.StudySession{UserID: "u1", State: models.SessionActive, StartedAt: now, LastResumedAt: now}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCreateRejectsSecondOpen(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM study_sessions WHERE user_id = $1 AND state != $2")).
		WithArgs("u1", string(models.SessionCompleted)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	now := time.Now()
	session := &models.StudySession{UserID: "u1", State: models.SessionActive, StartedAt: now, LastResumedAt: now}
	err := repo.Create(context.Background(), session)
	assert.ErrorIs(t, err, ErrActiveSessionExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionListCompleted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	since := time.Now().Add(-24 * time.Hour)
	ended := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "project_id", "state", "started_at", "last_resumed_at", "accumulated_seconds", "ended_at", "notes"}).
		AddRow("s1", "u1", nil, string(models.SessionCompleted), ended.Add(-time.Hour), ended.Add(-time.Hour), 3600, ended, "")
	mock.ExpectQuery("SELECT .+ FROM study_sessions WHERE user_id = \\$1 AND state = \\$2 AND ended_at >= \\$3").
		WithArgs("u1", string(models.SessionCompleted), since).
		WillReturnRows(rows)

	sessions, err := repo.ListCompleted(context.Background(), "u1", since)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(3600), sessions[0].AccumulatedSeconds)
	assert.NoError(t, mock.ExpectationsWereMet())
}
