package achievement

import (
	"sort"
	"time"

	"studyfocus/internal/event"
	"studyfocus/internal/history"
)

// facts is what a predicate may look at. NewSession and NewAssignment are nil
// unless the evaluation was triggered by that item.
type facts struct {
	Sessions      []event.StudySession
	Assignments   []event.Assignment
	NewSession    *event.StudySession
	NewAssignment *event.Assignment
	Now           time.Time
	Location      *time.Location
}

type predicate func(f *facts, threshold int) bool

var predicates = map[event.CriteriaKind]predicate{
	// Event-scoped: only the item that triggered the evaluation counts.
	KindFirstSession: func(f *facts, _ int) bool {
		return f.NewSession != nil && len(f.Sessions) >= 1
	},
	KindEarlyBird: func(f *facts, hour int) bool {
		return f.NewSession != nil && f.newSessionHour() < hour
	},
	KindNightOwl: func(f *facts, hour int) bool {
		return f.NewSession != nil && f.newSessionHour() >= hour
	},
	KindMidnightWindow: func(f *facts, hour int) bool {
		if f.NewSession == nil {
			return false
		}
		h := f.newSessionHour()
		return h >= 0 && h < hour
	},
	KindSpeedDemon: func(f *facts, target int) bool {
		if f.NewSession == nil {
			return false
		}
		diff := f.NewSession.Duration - target
		return diff >= -durationTolerance && diff <= durationTolerance
	},
	KindMarathoner: func(f *facts, minimum int) bool {
		return f.NewSession != nil && f.NewSession.Duration >= minimum
	},
	KindSameDaySubjects: func(f *facts, n int) bool {
		if f.NewSession == nil {
			return false
		}
		day := history.DayOf(f.NewSession.Date, f.Location)
		return len(history.SubjectsOn(f.Sessions, day, f.Location)) >= n
	},
	KindOverachiever: func(f *facts, margin int) bool {
		a := f.NewAssignment
		if a == nil || !a.Completed || a.CompletedAt == nil {
			return false
		}
		return a.DueDate.Sub(*a.CompletedAt) >= time.Duration(margin)*time.Second
	},

	// Aggregate over the full history.
	KindTotalHours: func(f *facts, seconds int) bool {
		total := 0
		for _, s := range f.Sessions {
			total += s.Duration
		}
		return total >= seconds
	},
	KindSessionCount: func(f *facts, n int) bool {
		return len(f.Sessions) >= n
	},
	KindAssignmentsCompleted: func(f *facts, n int) bool {
		count := 0
		for _, a := range f.Assignments {
			if a.Completed {
				count++
			}
		}
		return count >= n
	},
	KindOnTimeAssignments: func(f *facts, n int) bool {
		count := 0
		for _, a := range f.Assignments {
			if a.OnTime() {
				count++
			}
		}
		return count >= n
	},
	KindDistinctSubjects: func(f *facts, n int) bool {
		return len(history.Subjects(f.Sessions)) >= n
	},

	// Calendar based.
	KindConsistent: func(f *facts, days int) bool {
		return history.CurrentStreak(f.Sessions, f.Now, f.Location) >= days
	},
	KindPerfectWeek: func(f *facts, days int) bool {
		return history.LongestStreak(f.Sessions, f.Location) >= days
	},
	KindWeekendWarrior: func(f *facts, _ int) bool {
		qualifying := make(map[history.Day]bool)
		for _, d := range history.QualifyingDays(f.Sessions, f.Location) {
			qualifying[d] = true
		}
		for d := range qualifying {
			// weeks start on Sunday, so that week's Saturday is six days later
			if d.Weekday() == time.Sunday && qualifying[d+6] {
				return true
			}
		}
		return false
	},
	KindProductivityBeast: func(f *facts, seconds int) bool {
		for _, w := range history.Weeks(f.Sessions, f.Location) {
			if w.Seconds >= seconds {
				return true
			}
		}
		return false
	},
	KindWeeklySubjects: func(f *facts, n int) bool {
		for _, w := range history.Weeks(f.Sessions, f.Location) {
			if len(w.Subjects) >= n {
				return true
			}
		}
		return false
	},
	KindAssignmentStreak: func(f *facts, n int) bool {
		return longestOnTimeRun(f.Assignments) >= n
	},
}

func (f *facts) newSessionHour() int {
	return f.NewSession.Date.In(f.Location).Hour()
}

// longestOnTimeRun scans completed assignments in completion order and returns
// the longest run finished on or before their due dates.
func longestOnTimeRun(assignments []event.Assignment) int {
	var done []event.Assignment
	for _, a := range assignments {
		if a.Completed && a.CompletedAt != nil {
			done = append(done, a)
		}
	}
	sort.SliceStable(done, func(i, j int) bool {
		return done[i].CompletedAt.Before(*done[j].CompletedAt)
	})

	longest, run := 0, 0
	for _, a := range done {
		if a.OnTime() {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}
