package service

import (
	"testing"
	"time"

	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func staleExam() *model.Exam {
	return &model.Exam{ID: 7, DurationMinutes: 30}
}

func staleRecord(startedAt time.Time) *model.ExamSession {
	return &model.ExamSession{ID: 42, ExamID: 7, StartedAt: startedAt}
}

func TestStaleOutcomePastCachedDeadlineExpires(t *testing.T) {
	startedAt := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	deadline := startedAt.Add(30*time.Minute + 15*time.Second)

	status, timeSpent := staleOutcome(staleRecord(startedAt), staleExam(),
		deadline, 15*time.Second, deadline.Add(4*time.Hour))

	assert.Equal(t, model.SessionStatusExpired, status)
	assert.Equal(t, 1800, timeSpent)
}

func TestStaleOutcomeBeforeDeadlineAbandonsWithElapsed(t *testing.T) {
	startedAt := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	deadline := startedAt.Add(30*time.Minute + 15*time.Second)

	status, timeSpent := staleOutcome(staleRecord(startedAt), staleExam(),
		deadline, 15*time.Second, startedAt.Add(10*time.Minute))

	assert.Equal(t, model.SessionStatusAbandoned, status)
	assert.Equal(t, 600, timeSpent)
}

func TestStaleOutcomeFallsBackToRecordTimestamps(t *testing.T) {
	startedAt := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	// The cache entry evaporated; the record's own start time decides.
	status, timeSpent := staleOutcome(staleRecord(startedAt), staleExam(),
		time.Time{}, 15*time.Second, startedAt.Add(45*time.Minute))

	assert.Equal(t, model.SessionStatusExpired, status)
	assert.Equal(t, 1800, timeSpent)
}

func TestStaleOutcomeClampsElapsedToDuration(t *testing.T) {
	startedAt := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	// A generous cached deadline must not inflate time spent past the
	// exam duration.
	status, timeSpent := staleOutcome(staleRecord(startedAt), staleExam(),
		startedAt.Add(2*time.Hour), 15*time.Second, startedAt.Add(31*time.Minute))

	assert.Equal(t, model.SessionStatusAbandoned, status)
	assert.Equal(t, 1800, timeSpent)
}
