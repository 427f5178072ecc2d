// Package history buckets study sessions into local calendar days and weeks.
//
// Every streak, weekend and diversity computation goes through Day so that a
// session at 23:59 and one at 00:01 always land on the days a user sees on
// their wall calendar, regardless of DST transitions or UTC offset.
package history

import (
	"sort"
	"time"

	"studyfocus/internal/event"
)

// QualifyingSeconds is the study time a calendar day needs to count toward a streak.
const QualifyingSeconds = 900

// Day is a civil-date ordinal: consecutive calendar days differ by exactly one.
type Day int64

// DayOf truncates t to its calendar day in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// Weekday of the civil date; 1970-01-01 was a Thursday.
func (d Day) Weekday() time.Weekday {
	return time.Weekday((int64(d)%7 + 7 + 4) % 7)
}

// WeekStart is the Sunday on or before d.
func (d Day) WeekStart() Day {
	return d - Day(d.Weekday())
}

// Time is midnight of the day in loc.
func (d Day) Time(loc *time.Location) time.Time {
	u := time.Unix(int64(d)*86400, 0).UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, loc)
}

// DailyTotals sums session durations per calendar day.
func DailyTotals(sessions []event.StudySession, loc *time.Location) map[Day]int {
	totals := make(map[Day]int)
	for _, s := range sessions {
		totals[DayOf(s.Date, loc)] += s.Duration
	}
	return totals
}

// QualifyingDays returns the days with at least QualifyingSeconds of study,
// most recent first.
func QualifyingDays(sessions []event.StudySession, loc *time.Location) []Day {
	var days []Day
	for day, total := range DailyTotals(sessions, loc) {
		if total >= QualifyingSeconds {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] > days[j] })
	return days
}

// CurrentStreak counts consecutive qualifying days ending today or yesterday.
// A streak whose latest day is older than yesterday is broken and counts zero.
func CurrentStreak(sessions []event.StudySession, now time.Time, loc *time.Location) int {
	days := QualifyingDays(sessions, loc)
	if len(days) == 0 {
		return 0
	}
	today := DayOf(now, loc)
	if today-days[0] > 1 {
		return 0
	}
	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i-1]-days[i] != 1 {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak is the longest run of consecutive qualifying days anywhere in history.
func LongestStreak(sessions []event.StudySession, loc *time.Location) int {
	days := QualifyingDays(sessions, loc)
	if len(days) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1]-days[i] == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// Week aggregates the sessions whose day falls in one Sunday-started week.
type Week struct {
	Start    Day
	Seconds  int
	Subjects map[string]bool
}

// Weeks buckets sessions by WeekStart.
func Weeks(sessions []event.StudySession, loc *time.Location) map[Day]*Week {
	weeks := make(map[Day]*Week)
	for _, s := range sessions {
		start := DayOf(s.Date, loc).WeekStart()
		w, ok := weeks[start]
		if !ok {
			w = &Week{Start: start, Subjects: make(map[string]bool)}
			weeks[start] = w
		}
		w.Seconds += s.Duration
		w.Subjects[s.Label()] = true
	}
	return weeks
}

// Subjects returns the distinct labels among sessions.
func Subjects(sessions []event.StudySession) map[string]bool {
	labels := make(map[string]bool)
	for _, s := range sessions {
		labels[s.Label()] = true
	}
	return labels
}

// SubjectsOn returns the distinct labels studied on day.
func SubjectsOn(sessions []event.StudySession, day Day, loc *time.Location) map[string]bool {
	labels := make(map[string]bool)
	for _, s := range sessions {
		if DayOf(s.Date, loc) == day {
			labels[s.Label()] = true
		}
	}
	return labels
}

// SubjectTotals sums seconds per label.
func SubjectTotals(sessions []event.StudySession) map[string]int {
	totals := make(map[string]int)
	for _, s := range sessions {
		totals[s.Label()] += s.Duration
	}
	return totals
}
