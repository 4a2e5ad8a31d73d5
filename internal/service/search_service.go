package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
)

type searchRepository interface {
	Projects(ctx context.Context, userID, q string, limit int) ([]models.Project, error)
	Tasks(ctx context.Context, userID, q string, limit int) ([]models.Task, error)
	Comments(ctx context.Context, userID, q string, limit int) ([]models.ProjectComment, error)
	Files(ctx context.Context, userID, q string, limit int) ([]models.ProjectFile, error)
}

const (
	searchMinQueryLen  = 2
	searchDefaultLimit = 20
	searchMaxLimit     = 50
)

// SearchService runs permission-scoped substring search across
// projects, tasks, comments and file names. Scoping happens in the
// queries themselves; a result set never leaks entities from projects
// the user cannot view.
type SearchService struct {
	repo   searchRepository
	logger *zap.Logger
}

// NewSearchService creates a new search service instance.
func NewSearchService(repo searchRepository, logger *zap.Logger) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{repo: repo, logger: logger}
}

// Search runs the query across the requested entity types. An empty
// Types filter searches everything.
func (s *SearchService) Search(ctx context.Context, userID, query string, filter models.SearchFilter) (*models.SearchResults, error) {
	query = strings.TrimSpace(query)
	if len(query) < searchMinQueryLen {
		return nil, appErrors.Clone(appErrors.ErrValidation, "search query must be at least 2 characters")
	}

	limit := filter.Limit
	if limit < 1 {
		limit = searchDefaultLimit
	}
	if limit > searchMaxLimit {
		limit = searchMaxLimit
	}

	wanted := map[string]bool{}
	for _, t := range filter.Types {
		switch t = strings.ToLower(strings.TrimSpace(t)); t {
		case "projects", "tasks", "comments", "files":
			wanted[t] = true
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown search type: "+t)
		}
	}
	all := len(wanted) == 0

	results := &models.SearchResults{
		Projects: []models.Project{},
		Tasks:    []models.Task{},
		Comments: []models.ProjectComment{},
		Files:    []models.ProjectFile{},
	}

	var err error
	if all || wanted["projects"] {
		if results.Projects, err = s.repo.Projects(ctx, userID, query, limit); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "project search failed")
		}
	}
	if all || wanted["tasks"] {
		if results.Tasks, err = s.repo.Tasks(ctx, userID, query, limit); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "task search failed")
		}
	}
	if all || wanted["comments"] {
		if results.Comments, err = s.repo.Comments(ctx, userID, query, limit); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "comment search failed")
		}
	}
	if all || wanted["files"] {
		if results.Files, err = s.repo.Files(ctx, userID, query, limit); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "file search failed")
		}
	}

	return results, nil
}
