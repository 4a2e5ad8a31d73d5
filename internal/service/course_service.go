package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	"github.com/studyhub-app/studyhub-api/internal/repository"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CourseRequest creates or updates a catalogue entry.
type CourseRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=200"`
	Code       string `json:"code" validate:"max=20"`
	Semester   string `json:"semester" validate:"max=20"`
	Year       int    `json:"year" validate:"omitempty,min=2000,max=2100"`
	Instructor string `json:"instructor" validate:"max=200"`
	Credits    int    `json:"credits" validate:"omitempty,min=0,max=30"`
}

// CourseService manages a user's private course catalogue. Courses are
// not shared; collaborators see a project's course name only through
// the project itself.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService creates a new course service instance.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// Create adds a course to the actor's catalogue.
func (s *CourseService) Create(ctx context.Context, actorID string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		OwnerID:    actorID,
		Name:       req.Name,
		Code:       req.Code,
		Semester:   req.Semester,
		Year:       req.Year,
		Instructor: req.Instructor,
		Credits:    req.Credits,
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update modifies a course the actor owns.
func (s *CourseService) Update(ctx context.Context, actorID, courseID string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.findOwned(ctx, actorID, courseID)
	if err != nil {
		return nil, err
	}

	course.Name = req.Name
	course.Code = req.Code
	course.Semester = req.Semester
	course.Year = req.Year
	course.Instructor = req.Instructor
	course.Credits = req.Credits

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course. Deletion is blocked while projects still
// reference it.
func (s *CourseService) Delete(ctx context.Context, actorID, courseID string) error {
	if _, err := s.findOwned(ctx, actorID, courseID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, courseID); err != nil {
		if errors.Is(err, repository.ErrCourseInUse) {
			return appErrors.Clone(appErrors.ErrConflict, "course still has projects assigned to it")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

// Get returns one of the actor's courses.
func (s *CourseService) Get(ctx context.Context, actorID, courseID string) (*models.Course, error) {
	return s.findOwned(ctx, actorID, courseID)
}

// List returns the actor's course catalogue.
func (s *CourseService) List(ctx context.Context, actorID string) ([]models.Course, error) {
	courses, err := s.repo.ListByOwner(ctx, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

func (s *CourseService) findOwned(ctx context.Context, actorID, courseID string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.OwnerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}
