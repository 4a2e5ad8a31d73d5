package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type mockSearchRepo struct {
	projects []models.Project
	tasks    []models.Task
	comments []models.ProjectComment
	files    []models.ProjectFile
	limits   []int
}

func (m *mockSearchRepo) Projects(ctx context.Context, userID, q string, limit int) ([]models.Project, error) {
	m.limits = append(m.limits, limit)
	return m.projects, nil
}

func (m *mockSearchRepo) Tasks(ctx context.Context, userID, q string, limit int) ([]models.Task, error) {
	return m.tasks, nil
}

func (m *mockSearchRepo) Comments(ctx context.Context, userID, q string, limit int) ([]models.ProjectComment, error) {
	return m.comments, nil
}

func (m *mockSearchRepo) Files(ctx context.Context, userID, q string, limit int) ([]models.ProjectFile, error) {
	return m.files, nil
}

func TestSearchRejectsShortQuery(t *testing.T) {
	svc := NewSearchService(&mockSearchRepo{}, nil)

	_, err := svc.Search(context.Background(), "u1", " a ", models.SearchFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSearchRejectsUnknownType(t *testing.T) {
	svc := NewSearchService(&mockSearchRepo{}, nil)

	_, err := svc.Search(context.Background(), "u1", "calculus", models.SearchFilter{Types: []string{"projects", "courses"}})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "unknown search type")
}

func TestSearchTypeFilter(t *testing.T) {
	repo := &mockSearchRepo{
		projects: []models.Project{{ID: "p1", Title: "Calculus notes"}},
		tasks:    []models.Task{{ID: "t1", Title: "Calculus homework"}},
	}
	svc := NewSearchService(repo, nil)

	results, err := svc.Search(context.Background(), "u1", "calculus", models.SearchFilter{Types: []string{"tasks"}})
	require.NoError(t, err)

	assert.Empty(t, results.Projects)
	assert.Len(t, results.Tasks, 1)
	assert.NotNil(t, results.Comments)
	assert.NotNil(t, results.Files)
	assert.Equal(t, 1, results.Total())
}

func TestSearchAllTypesAndLimitClamp(t *testing.T) {
	repo := &mockSearchRepo{projects: []models.Project{{ID: "p1"}}}
	svc := NewSearchService(repo, nil)

	results, err := svc.Search(context.Background(), "u1", "calculus", models.SearchFilter{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, results.Projects, 1)
	require.Len(t, repo.limits, 1)
	assert.Equal(t, searchMaxLimit, repo.limits[0])
}
