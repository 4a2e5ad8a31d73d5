package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionDuration(t *testing.T) {
	start := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	paused := StudySession{
		State:              SessionPaused,
		StartedAt:          start,
		LastResumedAt:      start,
		AccumulatedSeconds: 600,
	}
	assert.Equal(t, 10*time.Minute, paused.Duration(start.Add(time.Hour)))

	active := StudySession{
		State:              SessionActive,
		StartedAt:          start,
		LastResumedAt:      start.Add(30 * time.Minute),
		AccumulatedSeconds: 600,
	}
	assert.Equal(t, 15*time.Minute, active.Duration(start.Add(35*time.Minute)))
}
