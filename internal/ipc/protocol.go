package ipc

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"studyfocus/internal/event"
)

const DefaultSocketPath = "/tmp/studyfocus.sock"

// Command represents a command sent over the socket
type Command struct {
	Name string      `json:"name"`
	Args interface{} `json:"args,omitempty"`
}

// Response represents a response sent back over the socket
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// --- Command Argument Structs ---

type ConfigureArgs struct {
	Minutes    int    `json:"minutes"`
	Name       string `json:"name,omitempty"`
	UseDefault bool   `json:"use_default,omitempty"` // ignore Minutes, use timer.default_minutes
}

type StopArgs struct {
	Discard bool `json:"discard,omitempty"`
}

type AssignmentAddArgs struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Due         string `json:"due"` // RFC 3339, "2006-01-02 15:04" or "2006-01-02"
}

type AssignmentIDArgs struct {
	ID string `json:"id"`
}

type NotesSetArgs struct {
	Text string `json:"text"`
}

type JournalArgs struct {
	Days int `json:"days,omitempty"`
}

// --- Command Names (Constants) ---

const (
	CmdPing               = "ping"
	CmdGetStatus          = "get_status"
	CmdTimerConfigure     = "timer_configure"
	CmdTimerStart         = "timer_start"
	CmdTimerPause         = "timer_pause"
	CmdTimerStop          = "timer_stop"
	CmdTimerReset         = "timer_reset"
	CmdTimerDismiss       = "timer_dismiss"
	CmdSessionList        = "session_list"
	CmdAssignmentAdd      = "assignment_add"
	CmdAssignmentComplete = "assignment_complete"
	CmdAssignmentReopen   = "assignment_reopen"
	CmdAssignmentDelete   = "assignment_delete"
	CmdAssignmentList     = "assignment_list"
	CmdAchievementList    = "achievement_list"
	CmdStats              = "stats"
	CmdNotesGet           = "notes_get"
	CmdNotesSet           = "notes_set"
	CmdJournal            = "journal"
)

// --- Response Data ---

type StatusData struct {
	Timer             event.TimerUpdate `json:"timer" yaml:"timer"`
	TodaySeconds      int               `json:"today_seconds" yaml:"today_seconds"`
	CurrentStreak     int               `json:"current_streak" yaml:"current_streak"`
	UnlockedCount     int               `json:"unlocked_count" yaml:"unlocked_count"`
	AchievementsTotal int               `json:"achievements_total" yaml:"achievements_total"`
	StorageBackend    string            `json:"storage_backend" yaml:"storage_backend"`
	FocusedApp        string            `json:"focused_app,omitempty" yaml:"focused_app,omitempty"` // empty without a focus collector
}

type StopData struct {
	Session   *event.StudySession `json:"session,omitempty" yaml:"session,omitempty"`
	Completed bool                `json:"completed" yaml:"completed"`
}

type AchievementView struct {
	event.Achievement `yaml:",inline"`
	Unlocked          bool       `json:"unlocked" yaml:"unlocked"`
	UnlockedAt        *time.Time `json:"unlockedAt,omitempty" yaml:"unlocked_at,omitempty"`
}

type NotesData struct {
	Text string `json:"text" yaml:"text"`
}

// Decode converts loosely typed command args, as they arrive from JSON, into
// one of the argument structs above.
func Decode(args interface{}, out interface{}) error {
	if args == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
