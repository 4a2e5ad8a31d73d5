package service

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-app/studyhub-api/internal/repository"
)

// Runs the real repository under the service so the composed SQL is
// what gets asserted: the first page must read from offset zero.
func TestActivityListFirstPageOffsetZero(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	permissions, _, _ := newTestPermissions()
	svc := NewActivityService(repository.NewActivityRepository(sqlx.NewDb(db, "sqlmock")), permissions, nil)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "project_id", "actor_id", "action", "detail", "created_at", "actor_name"}).
		AddRow("a1", "p1", "owner", "project_created", "created project", now, "Owner")
	mock.ExpectQuery(`ORDER BY a\.created_at DESC, a\.id DESC LIMIT 20 OFFSET 0`).
		WithArgs("p1").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activity_entries`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, pagination, err := svc.List(context.Background(), "owner", "p1", 1, 20)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityListLaterPageOffset(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	permissions, _, _ := newTestPermissions()
	svc := NewActivityService(repository.NewActivityRepository(sqlx.NewDb(db, "sqlmock")), permissions, nil)

	mock.ExpectQuery(`LIMIT 10 OFFSET 20`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "actor_id", "action", "detail", "created_at", "actor_name"}))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activity_entries`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	_, pagination, err := svc.List(context.Background(), "owner", "p1", 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, pagination.Page)
	assert.Equal(t, 25, pagination.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
