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

type mockCourseRepo struct {
	courses map[string]models.Course
	inUse   map[string]bool
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Course, error) {
	var out []models.Course
	for _, c := range m.courses {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "c1"
	}
	if m.courses == nil {
		m.courses = map[string]models.Course{}
	}
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.ID] = *course
	return nil
}

func (m *mockCourseRepo) Delete(ctx context.Context, id string) error {
	if m.inUse[id] {
		return repository.ErrCourseInUse
	}
	delete(m.courses, id)
	return nil
}

func TestCourseCRUD(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, nil, nil)

	course, err := svc.Create(context.Background(), "u1", CourseRequest{
		Name: "Linear Algebra", Code: "MATH201", Semester: "fall", Year: 2026, Credits: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", course.OwnerID)

	course, err = svc.Update(context.Background(), "u1", course.ID, CourseRequest{Name: "Linear Algebra II"})
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra II", course.Name)

	require.NoError(t, svc.Delete(context.Background(), "u1", course.ID))
	assert.Empty(t, repo.courses)
}

func TestCourseValidation(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), "u1", CourseRequest{Year: 1950})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseHiddenFromOtherUsers(t *testing.T) {
	repo := &mockCourseRepo{courses: map[string]models.Course{
		"c1": {ID: "c1", OwnerID: "u1", Name: "Chemistry"},
	}}
	svc := NewCourseService(repo, nil, nil)

	_, err := svc.Get(context.Background(), "u2", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseDeleteBlockedWhileInUse(t *testing.T) {
	repo := &mockCourseRepo{
		courses: map[string]models.Course{"c1": {ID: "c1", OwnerID: "u1", Name: "Chemistry"}},
		inUse:   map[string]bool{"c1": true},
	}
	svc := NewCourseService(repo, nil, nil)

	err := svc.Delete(context.Background(), "u1", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
