package app

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"studyfocus/internal/achievement"
	"studyfocus/internal/assignment"
	"studyfocus/internal/event"
	"studyfocus/internal/history"
	"studyfocus/internal/ipc"
	"studyfocus/internal/stats"
	"studyfocus/internal/storage"
	"studyfocus/internal/timer"
)

const defaultJournalDays = 7

// processCommand routes the command to the correct handler
func (a *App) processCommand(cmd ipc.Command) ipc.Response {
	ctx := a.ctx

	switch cmd.Name {
	case ipc.CmdPing:
		return ipc.Response{Success: true, Message: "pong"}

	case ipc.CmdGetStatus:
		return ipc.Response{Success: true, Data: a.status()}

	case ipc.CmdTimerConfigure:
		var args ipc.ConfigureArgs
		if err := ipc.Decode(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		if args.UseDefault {
			args.Minutes = a.defaultDuration()
		}
		u, err := a.timer.Configure(ctx, args.Minutes, args.Name)
		if err != nil {
			return failure(err)
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("Timer set for %s", formatDuration(seconds(u.Remaining))), Data: u}

	case ipc.CmdTimerStart:
		u, err := a.timer.Start(ctx)
		if err != nil {
			return failure(err)
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("Timer running, %s remaining", formatDuration(seconds(u.Remaining))), Data: u}

	case ipc.CmdTimerPause:
		u, err := a.timer.Pause(ctx)
		if err != nil {
			return failure(err)
		}
		if u.Status == event.TimerCompleted {
			return ipc.Response{Success: true, Message: "Timer had already finished", Data: u}
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("Timer paused at %s", formatDuration(seconds(u.Remaining))), Data: u}

	case ipc.CmdTimerStop:
		var args ipc.StopArgs
		if err := ipc.Decode(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		res, err := a.timer.Stop(ctx, !args.Discard)
		if err != nil {
			return failure(err)
		}
		data := ipc.StopData{Session: res.Session, Completed: res.Completed}
		switch {
		case res.Session == nil:
			return ipc.Response{Success: true, Message: "Timer stopped, nothing saved", Data: data}
		case res.Completed:
			return ipc.Response{Success: true, Message: fmt.Sprintf("Timer had finished, saved %q", res.Session.Name), Data: data}
		default:
			return ipc.Response{Success: true, Message: fmt.Sprintf("Saved %q (%s)", res.Session.Name, formatDuration(seconds(res.Session.Duration))), Data: data}
		}

	case ipc.CmdTimerReset:
		return ipc.Response{Success: true, Message: "Timer reset", Data: a.timer.Reset(ctx)}

	case ipc.CmdTimerDismiss:
		u, err := a.timer.Dismiss(ctx)
		if err != nil {
			return failure(err)
		}
		return ipc.Response{Success: true, Message: "Completion dismissed", Data: u}

	case ipc.CmdSessionList:
		return ipc.Response{Success: true, Data: a.sessions.List(ctx)}

	case ipc.CmdAssignmentAdd:
		var args ipc.AssignmentAddArgs
		if err := ipc.Decode(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		due, err := parseDue(args.Due, a.loc)
		if err != nil {
			return failure(err)
		}
		added, err := a.assignments.Add(ctx, assignment.AddInput{
			Title:       args.Title,
			Description: args.Description,
			Subject:     args.Subject,
			DueDate:     due,
		})
		if err != nil {
			return failure(err)
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("Assignment %q added", added.Title), Data: added}

	case ipc.CmdAssignmentComplete, ipc.CmdAssignmentReopen, ipc.CmdAssignmentDelete:
		var args ipc.AssignmentIDArgs
		if err := ipc.Decode(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		return a.mutateAssignment(cmd.Name, strings.TrimSpace(args.ID))

	case ipc.CmdAssignmentList:
		return ipc.Response{Success: true, Data: a.assignments.Sorted(ctx)}

	case ipc.CmdAchievementList:
		return ipc.Response{Success: true, Data: a.achievementViews()}

	case ipc.CmdStats:
		summary := stats.Summarize(a.sessions.List(ctx), a.assignments.List(ctx), a.clock.Now(), a.loc)
		return ipc.Response{Success: true, Data: summary}

	case ipc.CmdNotesGet:
		var notes ipc.NotesData
		if _, err := storage.LoadJSON(ctx, a.storage, storage.KeyNotes, &notes); err != nil {
			return failure(err)
		}
		return ipc.Response{Success: true, Data: notes}

	case ipc.CmdNotesSet:
		var args ipc.NotesSetArgs
		if err := ipc.Decode(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		if err := storage.SaveJSON(ctx, a.storage, storage.KeyNotes, ipc.NotesData{Text: args.Text}); err != nil {
			return failure(err)
		}
		return ipc.Response{Success: true, Message: "Notes saved"}

	case ipc.CmdJournal:
		var args ipc.JournalArgs
		if err := ipc.Decode(cmd.Args, &args); err != nil {
			return invalidArgs(cmd, err)
		}
		if args.Days <= 0 {
			args.Days = defaultJournalDays
		}
		end := a.clock.Now()
		events, err := a.storage.GetEvents(ctx, end.AddDate(0, 0, -args.Days), end)
		if err != nil {
			return failure(err)
		}
		return ipc.Response{Success: true, Data: events}

	default:
		return ipc.Response{Success: false, Message: fmt.Sprintf("Unknown command: %s", cmd.Name)}
	}
}

func (a *App) mutateAssignment(name, id string) ipc.Response {
	var (
		updated event.Assignment
		err     error
		verb    string
	)
	switch name {
	case ipc.CmdAssignmentComplete:
		updated, err = a.assignments.Complete(a.ctx, id)
		verb = "completed"
	case ipc.CmdAssignmentReopen:
		updated, err = a.assignments.Reopen(a.ctx, id)
		verb = "reopened"
	default:
		err = a.assignments.Delete(a.ctx, id)
		verb = "deleted"
	}
	if err != nil {
		return failure(err)
	}
	if verb == "deleted" {
		return ipc.Response{Success: true, Message: "Assignment deleted"}
	}
	return ipc.Response{Success: true, Message: fmt.Sprintf("Assignment %q %s", updated.Title, verb), Data: updated}
}

// status recomputes the timer so callers always see the current remaining time.
func (a *App) status() ipc.StatusData {
	u := a.timer.Tick(a.ctx)
	sessions := a.sessions.List(a.ctx)
	now := a.clock.Now()

	today := history.DailyTotals(sessions, a.loc)[history.DayOf(now, a.loc)]
	data := ipc.StatusData{
		Timer:             u,
		TodaySeconds:      today,
		CurrentStreak:     history.CurrentStreak(sessions, now, a.loc),
		UnlockedCount:     len(a.achievements.Unlocked(a.ctx)),
		AchievementsTotal: len(achievement.Catalog()),
		StorageBackend:    a.backend,
	}
	if a.focus != nil {
		focus, err := a.focus.CurrentFocus()
		if err != nil {
			log.Printf("Warning: Could not read current focus: %v", err)
		} else {
			data.FocusedApp = focus.AppName
		}
	}
	return data
}

func (a *App) achievementViews() []ipc.AchievementView {
	unlocked := make(map[string]time.Time)
	for _, u := range a.achievements.Unlocked(a.ctx) {
		unlocked[u.ID] = u.UnlockedAt
	}
	var views []ipc.AchievementView
	for _, def := range achievement.Catalog() {
		v := ipc.AchievementView{Achievement: def}
		if at, ok := unlocked[def.ID]; ok {
			at := at
			v.Unlocked = true
			v.UnlockedAt = &at
		}
		views = append(views, v)
	}
	return views
}

var dueLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// parseDue accepts a timestamp or a bare date; a bare date means the end of
// that day in loc.
func parseDue(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: due date is required", assignment.ErrInvalidInput)
	}
	for _, layout := range dueLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse due date %q", assignment.ErrInvalidInput, s)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func failure(err error) ipc.Response {
	msg := err.Error()
	switch {
	case errors.Is(err, timer.ErrInvalidDuration), errors.Is(err, assignment.ErrInvalidInput):
		msg = "Invalid input: " + msg
	}
	return ipc.Response{Success: false, Message: msg}
}

func invalidArgs(cmd ipc.Command, err error) ipc.Response {
	return ipc.Response{Success: false, Message: fmt.Sprintf("Invalid args for %s: %v", cmd.Name, err)}
}
