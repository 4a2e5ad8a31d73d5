package models

import "time"

// SessionState enumerates study session timer states.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionPaused    SessionState = "paused"
	SessionCompleted SessionState = "completed"
)

// StudySession tracks one study timer for a user, optionally bound to a
// project. Accumulated seconds count only active time; paused intervals
// are excluded. At most one non-completed session exists per user.
type StudySession struct {
	ID                 string       `db:"id" json:"id"`
	UserID             string       `db:"user_id" json:"user_id"`
	ProjectID          *string      `db:"project_id" json:"project_id,omitempty"`
	State              SessionState `db:"state" json:"state"`
	StartedAt          time.Time    `db:"started_at" json:"started_at"`
	LastResumedAt      time.Time    `db:"last_resumed_at" json:"last_resumed_at"`
	AccumulatedSeconds int64        `db:"accumulated_seconds" json:"accumulated_seconds"`
	EndedAt            *time.Time   `db:"ended_at" json:"ended_at,omitempty"`
	Notes              string       `db:"notes" json:"notes"`
}

// Duration returns the recorded active time of the session. For a
// running session it includes the elapsed time of the current interval.
func (s *StudySession) Duration(now time.Time) time.Duration {
	total := time.Duration(s.AccumulatedSeconds) * time.Second
	if s.State == SessionActive {
		total += now.UTC().Sub(s.LastResumedAt.UTC())
	}
	return total
}

// StudyAnalytics is the read model produced by the analytics reducers.
type StudyAnalytics struct {
	TotalMinutes   int64               `json:"total_minutes"`
	SessionCount   int                 `json:"session_count"`
	AverageMinutes float64             `json:"average_minutes"`
	ByWeek         []WeeklyStudyTotal  `json:"by_week"`
	ByProject      []ProjectStudyTotal `json:"by_project"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// WeeklyStudyTotal aggregates study minutes per ISO week.
type WeeklyStudyTotal struct {
	Week    string `json:"week"`
	Minutes int64  `json:"minutes"`
}

// ProjectStudyTotal aggregates study minutes per project.
type ProjectStudyTotal struct {
	ProjectID string `json:"project_id"`
	Minutes   int64  `json:"minutes"`
}

// DashboardStats mirrors the landing dashboard: project counts, overdue
// tally, per-course grouping and the rolling week of study time.
type DashboardStats struct {
	TotalProjects      int            `json:"total_projects"`
	CompletedProjects  int            `json:"completed_projects"`
	InProgressProjects int            `json:"in_progress_projects"`
	OverdueProjects    int            `json:"overdue_projects"`
	ProjectsByCourse   map[string]int `json:"projects_by_course"`
	WeeklyStudyMinutes int64          `json:"weekly_study_minutes"`
	GeneratedAt        time.Time      `json:"generated_at"`
}
