package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyfocus/internal/event"
)

func TestSummarize(t *testing.T) {
	// Wednesday
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	sessions := []event.StudySession{
		{ID: "1", Subject: "Math", Duration: 1500, Date: now.Add(-2 * time.Hour)},
		{ID: "2", Duration: 600, Date: now.Add(-1 * time.Hour)},
		{ID: "3", Subject: "Math", Duration: 1200, Date: now.AddDate(0, 0, -1)},
		{ID: "4", Subject: "Art", Duration: 3300, Date: now.AddDate(0, 0, -5)},
	}
	done := now.Add(-time.Hour)
	assignments := []event.Assignment{
		{ID: "a", Completed: true, CompletedAt: &done, DueDate: now},
		{ID: "b", DueDate: now.Add(-time.Hour)},
		{ID: "c", DueDate: now.Add(time.Hour)},
		{ID: "d", DueDate: now.AddDate(0, 0, 2)},
	}

	sum := Summarize(sessions, assignments, now, time.UTC)

	assert.Equal(t, 2100, sum.TodaySeconds)
	assert.Equal(t, 3300, sum.WeekSeconds, "week starts Sunday Jan 7")
	assert.Equal(t, 6600, sum.TotalSeconds)
	assert.Equal(t, 4, sum.SessionCount)
	assert.InDelta(t, 27.5, sum.AverageMinutes, 0.001)
	assert.Equal(t, 2, sum.CurrentStreak)
	assert.Equal(t, 2, sum.LongestStreak)
	assert.True(t, sum.StudiedToday)

	require.Len(t, sum.Subjects, 3)
	assert.Equal(t, "Art", sum.Subjects[0].Subject)
	assert.Equal(t, "Math", sum.Subjects[1].Subject)
	assert.Equal(t, event.UntaggedSubject, sum.Subjects[2].Subject)
	assert.InDelta(t, 50.0, sum.Subjects[0].Percent, 0.001)

	assert.Equal(t, 4, sum.AssignmentsTotal)
	assert.Equal(t, 1, sum.AssignmentsCompleted)
	assert.Equal(t, 1, sum.AssignmentsOverdue)
	assert.InDelta(t, 25.0, sum.CompletionRate, 0.001)
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil, nil, time.Now(), nil)
	assert.Zero(t, sum.TotalSeconds)
	assert.Zero(t, sum.AverageMinutes)
	assert.Zero(t, sum.CompletionRate)
	assert.Empty(t, sum.Subjects)
	assert.False(t, sum.StudiedToday)
}
