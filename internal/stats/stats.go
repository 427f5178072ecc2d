// Package stats summarizes study history for status displays.
package stats

import (
	"sort"
	"time"

	"studyfocus/internal/event"
	"studyfocus/internal/history"
)

type SubjectShare struct {
	Subject string  `json:"subject" yaml:"subject"`
	Seconds int     `json:"seconds" yaml:"seconds"`
	Percent float64 `json:"percent" yaml:"percent"`
}

type Summary struct {
	TodaySeconds         int            `json:"todaySeconds" yaml:"today_seconds"`
	WeekSeconds          int            `json:"weekSeconds" yaml:"week_seconds"`
	TotalSeconds         int            `json:"totalSeconds" yaml:"total_seconds"`
	SessionCount         int            `json:"sessionCount" yaml:"session_count"`
	AverageMinutes       float64        `json:"averageMinutes" yaml:"average_minutes"`
	CurrentStreak        int            `json:"currentStreak" yaml:"current_streak"`
	LongestStreak        int            `json:"longestStreak" yaml:"longest_streak"`
	StudiedToday         bool           `json:"studiedToday" yaml:"studied_today"`
	Subjects             []SubjectShare `json:"subjects" yaml:"subjects"`
	AssignmentsTotal     int            `json:"assignmentsTotal" yaml:"assignments_total"`
	AssignmentsCompleted int            `json:"assignmentsCompleted" yaml:"assignments_completed"`
	AssignmentsOverdue   int            `json:"assignmentsOverdue" yaml:"assignments_overdue"`
	CompletionRate       float64        `json:"completionRate" yaml:"completion_rate"`
}

// Summarize computes totals relative to now. "This week" starts on Sunday.
func Summarize(sessions []event.StudySession, assignments []event.Assignment, now time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.Local
	}
	today := history.DayOf(now, loc)
	weekStart := today.WeekStart()

	var sum Summary
	for _, s := range sessions {
		day := history.DayOf(s.Date, loc)
		sum.TotalSeconds += s.Duration
		if day == today {
			sum.TodaySeconds += s.Duration
		}
		if day >= weekStart && day <= today {
			sum.WeekSeconds += s.Duration
		}
	}
	sum.SessionCount = len(sessions)
	if sum.SessionCount > 0 {
		sum.AverageMinutes = float64(sum.TotalSeconds) / float64(sum.SessionCount) / 60
	}
	sum.CurrentStreak = history.CurrentStreak(sessions, now, loc)
	sum.LongestStreak = history.LongestStreak(sessions, loc)
	sum.StudiedToday = sum.TodaySeconds >= history.QualifyingSeconds

	for subject, seconds := range history.SubjectTotals(sessions) {
		share := SubjectShare{Subject: subject, Seconds: seconds}
		if sum.TotalSeconds > 0 {
			share.Percent = float64(seconds) * 100 / float64(sum.TotalSeconds)
		}
		sum.Subjects = append(sum.Subjects, share)
	}
	sort.Slice(sum.Subjects, func(i, j int) bool {
		if sum.Subjects[i].Seconds != sum.Subjects[j].Seconds {
			return sum.Subjects[i].Seconds > sum.Subjects[j].Seconds
		}
		return sum.Subjects[i].Subject < sum.Subjects[j].Subject
	})

	for _, a := range assignments {
		sum.AssignmentsTotal++
		switch {
		case a.Completed:
			sum.AssignmentsCompleted++
		case a.DueDate.Before(now):
			sum.AssignmentsOverdue++
		}
	}
	if sum.AssignmentsTotal > 0 {
		sum.CompletionRate = float64(sum.AssignmentsCompleted) * 100 / float64(sum.AssignmentsTotal)
	}
	return sum
}
