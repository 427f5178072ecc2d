package event

import "time"

type EventType string

const (
	EventTypeAppStart            EventType = "app_start"
	EventTypeAppStop             EventType = "app_stop"
	EventTypeTimerState          EventType = "timer_state"
	EventTypeSessionSaved        EventType = "session_saved"
	EventTypeAchievementUnlocked EventType = "achievement_unlocked"
	EventTypeAssignmentUpdated   EventType = "assignment_updated"
	EventTypeFocusChange         EventType = "focus_change"
)

// Event is one row of the activity journal.
type Event struct {
	ID        int64     `db:"id" json:"id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Type      EventType `db:"type" json:"type"`
	Tag       string    `db:"tag" json:"tag,omitempty"`     // timer state, achievement id, app name
	Notes     string    `db:"notes" json:"notes,omitempty"` // free-form detail
	Value     float64   `db:"value" json:"value,omitempty"` // seconds for sessions, remaining for timer
}

// UntaggedSubject buckets sessions that carry no subject label.
const UntaggedSubject = "Untagged"

// StudySession is an immutable record of time actually studied.
type StudySession struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Subject  string    `json:"subject,omitempty"`
	Duration int       `json:"duration"` // seconds
	Date     time.Time `json:"date"`
}

// Label returns the subject used for diversity counts.
func (s StudySession) Label() string {
	if s.Subject == "" {
		return UntaggedSubject
	}
	return s.Subject
}

type Assignment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Subject     string     `json:"subject,omitempty"`
	DueDate     time.Time  `json:"dueDate"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// OnTime reports whether a completed assignment was finished by its due date.
func (a Assignment) OnTime() bool {
	return a.Completed && a.CompletedAt != nil && !a.CompletedAt.After(a.DueDate)
}

type Category string

const (
	CategorySession    Category = "session"
	CategoryStreak     Category = "streak"
	CategoryAssignment Category = "assignment"
	CategoryMilestone  Category = "milestone"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// CriteriaKind names the predicate an achievement is judged by.
type CriteriaKind string

type Achievement struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Category      Category     `json:"category"`
	Rarity        Rarity       `json:"rarity"`
	CriteriaType  CriteriaKind `json:"criteriaType"`
	CriteriaValue int          `json:"criteriaValue,omitempty"`
}

type UnlockedAchievement struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// TimerStatus is the externally visible state of the countdown.
type TimerStatus string

const (
	TimerUnconfigured TimerStatus = "unconfigured"
	TimerIdle         TimerStatus = "idle"
	TimerRunning      TimerStatus = "running"
	TimerPaused       TimerStatus = "paused"
	TimerCompleted    TimerStatus = "completed"
)

// TimerUpdate is a point-in-time view of the countdown.
type TimerUpdate struct {
	Status      TimerStatus `json:"status"`
	Remaining   int         `json:"remaining"`
	InitialTime int         `json:"initialTime"`
	SessionName string      `json:"sessionName,omitempty"`
	Deadline    *time.Time  `json:"deadline,omitempty"`
}

// --- Updates sent to the daemon main loop ---

type SessionSaved struct {
	Session StudySession
}

type TimerFinished struct {
	Session StudySession
}

type AchievementUnlocked struct {
	Achievement Achievement
	UnlockedAt  time.Time
}

type AssignmentUpdated struct {
	AssignmentID string
	Deleted      bool
}

type Notification struct {
	Title   string
	Message string
}

// FocusInfo is reported by desktop focus collectors.
type FocusInfo struct {
	AppName string
	Title   string
}
