package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-app/studyhub-api/internal/models"
	"github.com/studyhub-app/studyhub-api/internal/repository"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type mockSessionRepo struct {
	open map[string]*models.StudySession
}

func (m *mockSessionRepo) FindOpenByUser(ctx context.Context, userID string) (*models.StudySession, error) {
	if s, ok := m.open[userID]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.StudySession) error {
	if _, exists := m.open[session.UserID]; exists {
		return repository.ErrActiveSessionExists
	}
	if m.open == nil {
		m.open = map[string]*models.StudySession{}
	}
	session.ID = "s1"
	m.open[session.UserID] = session
	return nil
}

func (m *mockSessionRepo) Update(ctx context.Context, session *models.StudySession) error {
	if session.State == models.SessionCompleted {
		delete(m.open, session.UserID)
		return nil
	}
	m.open[session.UserID] = session
	return nil
}

func newTestSessionService(repo *mockSessionRepo) (*SessionService, *time.Time) {
	projects := &mockProjectFinder{projects: map[string]models.Project{
		"p1": {ID: "p1", OwnerID: "u1"},
	}}
	roles := &mockRoleFinder{roles: map[string]models.CollaboratorRole{}}
	permissions := NewPermissionService(projects, roles, nil)

	svc := NewSessionService(repo, permissions, nil, nil, nil)
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	clock := &now
	svc.now = func() time.Time { return *clock }
	return svc, clock
}

func TestSessionLifecycle(t *testing.T) {
	repo := &mockSessionRepo{}
	svc, clock := newTestSessionService(repo)

	projectID := "p1"
	session, err := svc.Start(context.Background(), "u1", StartSessionRequest{ProjectID: &projectID})
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, session.State)

	// Study 10 minutes, pause for 5, resume for another 15, then stop.
	*clock = clock.Add(10 * time.Minute)
	session, err = svc.Pause(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionPaused, session.State)
	assert.Equal(t, int64(600), session.AccumulatedSeconds)

	*clock = clock.Add(5 * time.Minute)
	session, err = svc.Resume(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, session.State)

	*clock = clock.Add(15 * time.Minute)
	session, err = svc.Stop(context.Background(), "u1", StopSessionRequest{Notes: "calculus"})
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, session.State)
	assert.Equal(t, int64(1500), session.AccumulatedSeconds)
	require.NotNil(t, session.EndedAt)
	assert.Equal(t, "calculus", session.Notes)
}

func TestSessionSecondStartIsConflict(t *testing.T) {
	repo := &mockSessionRepo{}
	svc, _ := newTestSessionService(repo)

	_, err := svc.Start(context.Background(), "u1", StartSessionRequest{})
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), "u1", StartSessionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSessionPauseWhenPausedIsConflict(t *testing.T) {
	repo := &mockSessionRepo{}
	svc, clock := newTestSessionService(repo)

	_, err := svc.Start(context.Background(), "u1", StartSessionRequest{})
	require.NoError(t, err)

	*clock = clock.Add(time.Minute)
	_, err = svc.Pause(context.Background(), "u1")
	require.NoError(t, err)

	_, err = svc.Pause(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Resume(context.Background(), "u1")
	require.NoError(t, err)

	_, err = svc.Resume(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSessionStopWhilePaused(t *testing.T) {
	repo := &mockSessionRepo{}
	svc, clock := newTestSessionService(repo)

	_, err := svc.Start(context.Background(), "u1", StartSessionRequest{})
	require.NoError(t, err)

	*clock = clock.Add(20 * time.Minute)
	_, err = svc.Pause(context.Background(), "u1")
	require.NoError(t, err)

	// Idle time after the pause must not count.
	*clock = clock.Add(2 * time.Hour)
	session, err := svc.Stop(context.Background(), "u1", StopSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), session.AccumulatedSeconds)
}

func TestSessionStartRejectsHiddenProject(t *testing.T) {
	repo := &mockSessionRepo{}
	svc, _ := newTestSessionService(repo)

	projectID := "p1"
	_, err := svc.Start(context.Background(), "stranger", StartSessionRequest{ProjectID: &projectID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionCurrentWhenNoneOpen(t *testing.T) {
	repo := &mockSessionRepo{}
	svc, _ := newTestSessionService(repo)

	_, err := svc.Current(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

// Stopping feeds the analytics aggregates, so the cached reads must be
// dropped; pausing changes nothing completed and must not.
func TestSessionStopInvalidatesAnalytics(t *testing.T) {
	repo := &mockSessionRepo{}
	invalidator := &mockInvalidator{}
	svc, clock := newTestSessionService(repo)
	svc.analytics = invalidator

	_, err := svc.Start(context.Background(), "u1", StartSessionRequest{})
	require.NoError(t, err)

	*clock = clock.Add(10 * time.Minute)
	_, err = svc.Pause(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, invalidator.users)

	_, err = svc.Resume(context.Background(), "u1")
	require.NoError(t, err)

	_, err = svc.Stop(context.Background(), "u1", StopSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, invalidator.users)
}
