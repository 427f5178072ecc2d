package achievement

import "studyfocus/internal/event"

const (
	KindFirstSession         event.CriteriaKind = "first_session"
	KindEarlyBird            event.CriteriaKind = "early_bird"
	KindNightOwl             event.CriteriaKind = "night_owl"
	KindMidnightWindow       event.CriteriaKind = "midnight_window"
	KindSpeedDemon           event.CriteriaKind = "speed_demon"
	KindMarathoner           event.CriteriaKind = "marathoner"
	KindSameDaySubjects      event.CriteriaKind = "same_day_subjects"
	KindOverachiever         event.CriteriaKind = "overachiever"
	KindTotalHours           event.CriteriaKind = "total_hours"
	KindSessionCount         event.CriteriaKind = "session_count"
	KindAssignmentsCompleted event.CriteriaKind = "assignments_completed"
	KindOnTimeAssignments    event.CriteriaKind = "on_time_assignments"
	KindDistinctSubjects     event.CriteriaKind = "distinct_subjects"
	KindConsistent           event.CriteriaKind = "consistent"
	KindPerfectWeek          event.CriteriaKind = "perfect_week"
	KindWeekendWarrior       event.CriteriaKind = "weekend_warrior"
	KindProductivityBeast    event.CriteriaKind = "productivity_beast"
	KindWeeklySubjects       event.CriteriaKind = "weekly_subjects"
	KindAssignmentStreak     event.CriteriaKind = "assignment_streak"
)

// durationTolerance is the band around a focused-session target, in seconds.
const durationTolerance = 300

var catalog = []event.Achievement{
	{ID: "first_step", Name: "First Step", Description: "Complete your first study session",
		Category: event.CategoryMilestone, Rarity: event.RarityCommon, CriteriaType: KindFirstSession},

	{ID: "early_bird", Name: "Early Bird", Description: "Complete a study session before 9 AM",
		Category: event.CategorySession, Rarity: event.RarityCommon, CriteriaType: KindEarlyBird, CriteriaValue: 9},
	{ID: "dawn_patrol", Name: "Dawn Patrol", Description: "Complete a study session before 6 AM",
		Category: event.CategorySession, Rarity: event.RarityRare, CriteriaType: KindEarlyBird, CriteriaValue: 6},
	{ID: "night_owl", Name: "Night Owl", Description: "Complete a study session after 9 PM",
		Category: event.CategorySession, Rarity: event.RarityCommon, CriteriaType: KindNightOwl, CriteriaValue: 21},
	{ID: "midnight_oil", Name: "Midnight Oil", Description: "Complete a study session between midnight and 3 AM",
		Category: event.CategorySession, Rarity: event.RarityRare, CriteriaType: KindMidnightWindow, CriteriaValue: 3},

	{ID: "marathoner", Name: "Marathoner", Description: "Complete a study session longer than 2 hours",
		Category: event.CategorySession, Rarity: event.RarityRare, CriteriaType: KindMarathoner, CriteriaValue: 7200},
	{ID: "ultra_marathoner", Name: "Ultra Marathoner", Description: "Complete a study session longer than 4 hours",
		Category: event.CategorySession, Rarity: event.RarityEpic, CriteriaType: KindMarathoner, CriteriaValue: 14400},
	{ID: "speed_demon", Name: "Speed Demon", Description: "Complete a focused 25-minute session",
		Category: event.CategorySession, Rarity: event.RarityCommon, CriteriaType: KindSpeedDemon, CriteriaValue: 1500},
	{ID: "deep_focus", Name: "Deep Focus", Description: "Complete a focused 50-minute session",
		Category: event.CategorySession, Rarity: event.RarityRare, CriteriaType: KindSpeedDemon, CriteriaValue: 3000},
	{ID: "renaissance", Name: "Renaissance", Description: "Study 3 different subjects in one day",
		Category: event.CategorySession, Rarity: event.RarityRare, CriteriaType: KindSameDaySubjects, CriteriaValue: 3},

	{ID: "consistent", Name: "Consistent", Description: "Maintain a 7-day study streak",
		Category: event.CategoryStreak, Rarity: event.RarityRare, CriteriaType: KindConsistent, CriteriaValue: 7},
	{ID: "unstoppable", Name: "Unstoppable", Description: "Maintain a 30-day study streak",
		Category: event.CategoryStreak, Rarity: event.RarityLegendary, CriteriaType: KindConsistent, CriteriaValue: 30},
	{ID: "perfect_week", Name: "Perfect Week", Description: "Study every day for a week",
		Category: event.CategoryStreak, Rarity: event.RarityEpic, CriteriaType: KindPerfectWeek, CriteriaValue: 7},
	{ID: "weekend_warrior", Name: "Weekend Warrior", Description: "Study on both Saturday and Sunday of the same week",
		Category: event.CategoryStreak, Rarity: event.RarityRare, CriteriaType: KindWeekendWarrior},
	{ID: "productivity_beast", Name: "Productivity Beast", Description: "Study 10 hours in a single week",
		Category: event.CategoryStreak, Rarity: event.RarityEpic, CriteriaType: KindProductivityBeast, CriteriaValue: 36000},

	{ID: "overachiever", Name: "Overachiever", Description: "Complete an assignment more than 24 hours before its due date",
		Category: event.CategoryAssignment, Rarity: event.RarityRare, CriteriaType: KindOverachiever, CriteriaValue: 86400},
	{ID: "punctual", Name: "Punctual", Description: "Complete 5 assignments on time",
		Category: event.CategoryAssignment, Rarity: event.RarityCommon, CriteriaType: KindOnTimeAssignments, CriteriaValue: 5},
	{ID: "task_master", Name: "Task Master", Description: "Complete 10 assignments",
		Category: event.CategoryAssignment, Rarity: event.RarityRare, CriteriaType: KindAssignmentsCompleted, CriteriaValue: 10},
	{ID: "reliable", Name: "Reliable", Description: "Complete 5 assignments in a row on time",
		Category: event.CategoryAssignment, Rarity: event.RarityEpic, CriteriaType: KindAssignmentStreak, CriteriaValue: 5},

	{ID: "getting_started", Name: "Getting Started", Description: "Complete 10 study sessions",
		Category: event.CategoryMilestone, Rarity: event.RarityCommon, CriteriaType: KindSessionCount, CriteriaValue: 10},
	{ID: "study_master", Name: "Study Master", Description: "Complete 50 study sessions",
		Category: event.CategoryMilestone, Rarity: event.RarityEpic, CriteriaType: KindSessionCount, CriteriaValue: 50},
	{ID: "centurion", Name: "Centurion", Description: "Complete 100 study sessions",
		Category: event.CategoryMilestone, Rarity: event.RarityLegendary, CriteriaType: KindSessionCount, CriteriaValue: 100},
	{ID: "dedicated_learner", Name: "Dedicated Learner", Description: "Accumulate 10 hours of total study time",
		Category: event.CategoryMilestone, Rarity: event.RarityRare, CriteriaType: KindTotalHours, CriteriaValue: 36000},
	{ID: "scholar", Name: "Scholar", Description: "Accumulate 100 hours of total study time",
		Category: event.CategoryMilestone, Rarity: event.RarityLegendary, CriteriaType: KindTotalHours, CriteriaValue: 360000},
	{ID: "explorer", Name: "Explorer", Description: "Study 5 different subjects",
		Category: event.CategoryMilestone, Rarity: event.RarityRare, CriteriaType: KindDistinctSubjects, CriteriaValue: 5},
	{ID: "well_rounded", Name: "Well Rounded", Description: "Study 4 different subjects in a single week",
		Category: event.CategoryMilestone, Rarity: event.RarityRare, CriteriaType: KindWeeklySubjects, CriteriaValue: 4},
}

// Catalog returns a copy of every achievement definition in evaluation order.
func Catalog() []event.Achievement {
	out := make([]event.Achievement, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog entry by id.
func Lookup(id string) (event.Achievement, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return event.Achievement{}, false
}
