package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
	"github.com/studyhub-app/studyhub-api/pkg/export"
)

type analyticsSessionRepository interface {
	ListCompleted(ctx context.Context, userID string, since time.Time) ([]models.StudySession, error)
}

type analyticsProjectRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Project, error)
}

// analyticsInvalidator is the slice of AnalyticsService the mutating
// services depend on to drop stale cached reads.
type analyticsInvalidator interface {
	InvalidateUser(ctx context.Context, userID string)
}

type analyticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ExportFormat selects the analytics export encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportResult carries rendered export bytes with HTTP metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

const analyticsWindow = 12 * 7 * 24 * time.Hour

// AnalyticsService computes study-time analytics and dashboard stats
// from completed sessions. Reads go through the cache when enabled;
// mutating paths are expected to invalidate via InvalidateUser.
type AnalyticsService struct {
	sessions analyticsSessionRepository
	projects analyticsProjectRepository
	cache    analyticsCache
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	cacheTTL time.Duration
	logger   *zap.Logger

	now func() time.Time
}

// NewAnalyticsService creates a new analytics service instance. A nil
// cache disables caching.
func NewAnalyticsService(sessions analyticsSessionRepository, projects analyticsProjectRepository, cache analyticsCache, cacheTTL time.Duration, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		sessions: sessions,
		projects: projects,
		cache:    cache,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Study aggregates the user's completed sessions from the last twelve
// weeks: total and average minutes, per-ISO-week and per-project
// breakdowns.
func (s *AnalyticsService) Study(ctx context.Context, userID string) (*models.StudyAnalytics, error) {
	cacheKey := "analytics:study:" + userID
	if s.cache != nil {
		var cached models.StudyAnalytics
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("analytics cache read failed", zap.Error(err))
		}
	}

	now := s.now().UTC()
	sessions, err := s.sessions.ListCompleted(ctx, userID, now.Add(-analyticsWindow))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	analytics := reduceSessions(sessions, now)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, analytics, s.cacheTTL); err != nil {
			s.logger.Warn("analytics cache write failed", zap.Error(err))
		}
	}
	return analytics, nil
}

// Dashboard builds the landing stats: project counts by state, overdue
// tally, per-course grouping and the rolling week of study minutes.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID string) (*models.DashboardStats, error) {
	cacheKey := "analytics:dashboard:" + userID
	if s.cache != nil {
		var cached models.DashboardStats
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("analytics cache read failed", zap.Error(err))
		}
	}

	now := s.now().UTC()

	projects, err := s.projects.ListByOwner(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load projects")
	}

	stats := &models.DashboardStats{
		ProjectsByCourse: map[string]int{},
		GeneratedAt:      now,
	}
	for i := range projects {
		p := &projects[i]
		stats.TotalProjects++
		switch p.Status {
		case models.ProjectStatusCompleted:
			stats.CompletedProjects++
		case models.ProjectStatusInProgress:
			stats.InProgressProjects++
		}
		if p.IsOverdue(now) {
			stats.OverdueProjects++
		}
		if p.CourseID != nil {
			stats.ProjectsByCourse[*p.CourseID]++
		}
	}

	sessions, err := s.sessions.ListCompleted(ctx, userID, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	for i := range sessions {
		stats.WeeklyStudyMinutes += sessions[i].AccumulatedSeconds / 60
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("analytics cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// ExportStudy renders the user's study analytics as CSV or PDF.
func (s *AnalyticsService) ExportStudy(ctx context.Context, userID string, format ExportFormat) (*ExportResult, error) {
	analytics, err := s.Study(ctx, userID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"week", "minutes"},
	}
	for _, week := range analytics.ByWeek {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"week":    week.Week,
			"minutes": strconv.FormatInt(week.Minutes, 10),
		})
	}
	dataset.Rows = append(dataset.Rows, map[string]string{
		"week":    "total",
		"minutes": strconv.FormatInt(analytics.TotalMinutes, 10),
	})

	stamp := s.now().UTC().Format("2006-01-02")
	switch format {
	case ExportCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("study-analytics-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ExportPDF:
		data, err := s.pdf.Render(dataset, "Study Analytics")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("study-analytics-%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
}

// InvalidateUser drops the user's cached analytics. Called after
// session stops and project mutations.
func (s *AnalyticsService) InvalidateUser(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "analytics:*:"+userID); err != nil {
		s.logger.Warn("analytics cache invalidation failed", zap.Error(err))
	}
}

// reduceSessions folds completed sessions into the analytics read
// model. Weeks are keyed by ISO year and week number.
func reduceSessions(sessions []models.StudySession, now time.Time) *models.StudyAnalytics {
	analytics := &models.StudyAnalytics{
		ByWeek:      []models.WeeklyStudyTotal{},
		ByProject:   []models.ProjectStudyTotal{},
		GeneratedAt: now,
	}

	byWeek := map[string]int64{}
	byProject := map[string]int64{}
	for i := range sessions {
		sess := &sessions[i]
		minutes := sess.AccumulatedSeconds / 60
		analytics.TotalMinutes += minutes
		analytics.SessionCount++

		ref := sess.StartedAt.UTC()
		if sess.EndedAt != nil {
			ref = sess.EndedAt.UTC()
		}
		year, week := ref.ISOWeek()
		byWeek[fmt.Sprintf("%d-W%02d", year, week)] += minutes

		if sess.ProjectID != nil {
			byProject[*sess.ProjectID] += minutes
		}
	}

	if analytics.SessionCount > 0 {
		analytics.AverageMinutes = float64(analytics.TotalMinutes) / float64(analytics.SessionCount)
	}

	for week, minutes := range byWeek {
		analytics.ByWeek = append(analytics.ByWeek, models.WeeklyStudyTotal{Week: week, Minutes: minutes})
	}
	sort.Slice(analytics.ByWeek, func(i, j int) bool {
		return analytics.ByWeek[i].Week < analytics.ByWeek[j].Week
	})

	for projectID, minutes := range byProject {
		analytics.ByProject = append(analytics.ByProject, models.ProjectStudyTotal{ProjectID: projectID, Minutes: minutes})
	}
	sort.Slice(analytics.ByProject, func(i, j int) bool {
		if analytics.ByProject[i].Minutes != analytics.ByProject[j].Minutes {
			return analytics.ByProject[i].Minutes > analytics.ByProject[j].Minutes
		}
		return analytics.ByProject[i].ProjectID < analytics.ByProject[j].ProjectID
	})

	return analytics
}
