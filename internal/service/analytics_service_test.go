package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type mockCompletedSessions struct {
	sessions []models.StudySession
}

func (m *mockCompletedSessions) ListCompleted(ctx context.Context, userID string, since time.Time) ([]models.StudySession, error) {
	return m.sessions, nil
}

type mockOwnedProjects struct {
	projects []models.Project
}

func (m *mockOwnedProjects) ListByOwner(ctx context.Context, ownerID string) ([]models.Project, error) {
	return m.projects, nil
}

type mockAnalyticsCache struct {
	deletedPatterns []string
}

func (m *mockAnalyticsCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (m *mockAnalyticsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (m *mockAnalyticsCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletedPatterns = append(m.deletedPatterns, pattern)
	return nil
}

type mockInvalidator struct {
	users []string
}

func (m *mockInvalidator) InvalidateUser(ctx context.Context, userID string) {
	m.users = append(m.users, userID)
}

func completedSession(projectID string, endedAt time.Time, minutes int64) models.StudySession {
	var pid *string
	if projectID != "" {
		pid = &projectID
	}
	return models.StudySession{
		ProjectID:          pid,
		State:              models.SessionCompleted,
		StartedAt:          endedAt.Add(-time.Duration(minutes) * time.Minute),
		EndedAt:            &endedAt,
		AccumulatedSeconds: minutes * 60,
	}
}

func TestReduceSessions(t *testing.T) {
	// 2026-03-09 is a Monday of ISO week 11; 2026-03-16 opens week 12.
	week11 := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	week12 := time.Date(2026, 3, 17, 14, 0, 0, 0, time.UTC)

	sessions := []models.StudySession{
		completedSession("p1", week11, 30),
		completedSession("p1", week11.Add(3*time.Hour), 60),
		completedSession("p2", week12, 45),
		completedSession("", week12, 15),
	}

	analytics := reduceSessions(sessions, week12)

	assert.Equal(t, int64(150), analytics.TotalMinutes)
	assert.Equal(t, 4, analytics.SessionCount)
	assert.InDelta(t, 37.5, analytics.AverageMinutes, 0.001)

	require.Len(t, analytics.ByWeek, 2)
	assert.Equal(t, "2026-W11", analytics.ByWeek[0].Week)
	assert.Equal(t, int64(90), analytics.ByWeek[0].Minutes)
	assert.Equal(t, "2026-W12", analytics.ByWeek[1].Week)
	assert.Equal(t, int64(60), analytics.ByWeek[1].Minutes)

	// Per-project totals, highest first; unbound time excluded.
	require.Len(t, analytics.ByProject, 2)
	assert.Equal(t, "p1", analytics.ByProject[0].ProjectID)
	assert.Equal(t, int64(90), analytics.ByProject[0].Minutes)
	assert.Equal(t, "p2", analytics.ByProject[1].ProjectID)
	assert.Equal(t, int64(45), analytics.ByProject[1].Minutes)
}

func TestReduceSessionsEmpty(t *testing.T) {
	analytics := reduceSessions(nil, time.Now().UTC())
	assert.Zero(t, analytics.TotalMinutes)
	assert.Zero(t, analytics.SessionCount)
	assert.Zero(t, analytics.AverageMinutes)
	assert.Empty(t, analytics.ByWeek)
	assert.Empty(t, analytics.ByProject)
}

func TestDashboard(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-48 * time.Hour)
	course := "c1"

	projects := &mockOwnedProjects{projects: []models.Project{
		{ID: "p1", Status: models.ProjectStatusCompleted, CourseID: &course},
		{ID: "p2", Status: models.ProjectStatusInProgress, Deadline: &past},
		{ID: "p3", Status: models.ProjectStatusPlanning, CourseID: &course},
	}}
	sessions := &mockCompletedSessions{sessions: []models.StudySession{
		completedSession("p2", now.Add(-time.Hour), 40),
	}}

	svc := NewAnalyticsService(sessions, projects, nil, 0, nil)
	stats, err := svc.Dashboard(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalProjects)
	assert.Equal(t, 1, stats.CompletedProjects)
	assert.Equal(t, 1, stats.InProgressProjects)
	assert.Equal(t, 1, stats.OverdueProjects)
	assert.Equal(t, map[string]int{"c1": 2}, stats.ProjectsByCourse)
	assert.Equal(t, int64(40), stats.WeeklyStudyMinutes)
}

func TestExportStudyCSV(t *testing.T) {
	ended := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	sessions := &mockCompletedSessions{sessions: []models.StudySession{
		completedSession("p1", ended, 30),
	}}

	svc := NewAnalyticsService(sessions, &mockOwnedProjects{}, nil, 0, nil)
	result, err := svc.ExportStudy(context.Background(), "u1", ExportCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.FileName, ".csv"))

	body := string(result.Data)
	assert.Contains(t, body, "week,minutes")
	assert.Contains(t, body, "2026-W11,30")
	assert.Contains(t, body, "total,30")
}

func TestExportStudyUnknownFormat(t *testing.T) {
	svc := NewAnalyticsService(&mockCompletedSessions{}, &mockOwnedProjects{}, nil, 0, nil)
	_, err := svc.ExportStudy(context.Background(), "u1", ExportFormat("xml"))
	require.Error(t, err)
}

func TestInvalidateUserDropsBothKeys(t *testing.T) {
	cache := &mockAnalyticsCache{}
	svc := NewAnalyticsService(&mockCompletedSessions{}, &mockOwnedProjects{}, cache, time.Minute, nil)

	svc.InvalidateUser(context.Background(), "u1")
	assert.Equal(t, []string{"analytics:*:u1"}, cache.deletedPatterns)
}
