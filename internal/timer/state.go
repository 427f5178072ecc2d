package timer

import (
	"time"

	"studyfocus/internal/event"
)

// State is the persisted countdown snapshot. Timestamps are epoch
// milliseconds; Remaining is whole seconds.
type State struct {
	IsConfigured bool   `json:"isConfigured"`
	IsRunning    bool   `json:"isRunning"`
	InitialTime  int    `json:"initialTime"`
	Remaining    int    `json:"time"`
	SessionName  string `json:"sessionName"`
	Deadline     *int64 `json:"deadline,omitempty"`
	PausedAt     *int64 `json:"pausedAt,omitempty"`
	Completed    bool   `json:"showCompletionDialog"`
}

func (s State) Status() event.TimerStatus {
	switch {
	case !s.IsConfigured:
		return event.TimerUnconfigured
	case s.Completed:
		return event.TimerCompleted
	case s.IsRunning:
		return event.TimerRunning
	case s.PausedAt != nil:
		return event.TimerPaused
	default:
		return event.TimerIdle
	}
}

// consistent reports whether a decoded snapshot describes exactly one of the
// legal states. Anything else is treated as "no active timer".
func (s State) consistent() bool {
	if !s.IsConfigured {
		return false
	}
	if s.InitialTime <= 0 || s.Remaining < 0 || s.Remaining > s.InitialTime {
		return false
	}
	switch {
	case s.Completed:
		return !s.IsRunning
	case s.IsRunning:
		return s.Deadline != nil && s.PausedAt == nil
	case s.PausedAt != nil:
		return s.Deadline != nil
	default:
		return s.Deadline == nil
	}
}

// remainingSeconds is ceil((deadline-now)/1000), floored at zero.
func remainingSeconds(deadline, now int64) int {
	diff := deadline - now
	if diff <= 0 {
		return 0
	}
	return int((diff + 999) / 1000)
}

func millisPtr(v int64) *int64 {
	return &v
}

func (s State) update() event.TimerUpdate {
	u := event.TimerUpdate{
		Status:      s.Status(),
		Remaining:   s.Remaining,
		InitialTime: s.InitialTime,
		SessionName: s.SessionName,
	}
	if s.Deadline != nil && s.IsRunning {
		d := time.UnixMilli(*s.Deadline)
		u.Deadline = &d
	}
	return u
}
