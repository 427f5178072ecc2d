package timer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	"studyfocus/internal/clock"
	"studyfocus/internal/event"
	"studyfocus/internal/storage"
)

var (
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")
	ErrNotConfigured   = errors.New("timer is not configured")
	ErrNotRunning      = errors.New("timer is not running")
	ErrCompleted       = errors.New("timer has completed, dismiss it first")
	ErrNotCompleted    = errors.New("timer has not completed")
)

// SessionRecorder receives the sessions a run produces.
type SessionRecorder interface {
	Append(ctx context.Context, s event.StudySession) (event.StudySession, error)
}

type Options struct {
	// Interval is the recompute cadence while running. Correctness never
	// depends on it; zero disables the background loop entirely.
	Interval  time.Duration
	Clock     clock.Clock
	Publisher event.Publisher
}

// StopResult describes what a manual stop recorded.
type StopResult struct {
	Session   *event.StudySession
	Completed bool // the deadline had already passed; full credit was given
}

// Engine is the single countdown of the process. Remaining time is always
// derived from an absolute deadline, never decremented, so it stays correct
// across suspension, throttled callbacks and restarts.
type Engine struct {
	mu       sync.Mutex
	state    State
	store    storage.Storage
	sessions SessionRecorder
	pub      event.Publisher
	clock    clock.Clock
	interval time.Duration

	// generation changes whenever a recompute loop is cancelled, so a loop
	// left over from an earlier run can never act on a newer one.
	generation *atomic.Uint64
	cancelLoop context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

func NewEngine(store storage.Storage, sessions SessionRecorder, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Publisher == nil {
		opts.Publisher = event.Discard{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:      store,
		sessions:   sessions,
		pub:        opts.Publisher,
		clock:      opts.Clock,
		interval:   opts.Interval,
		generation: atomic.NewUint64(0),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Restore reloads the persisted snapshot. A run whose deadline passed while
// the process was gone is completed immediately so its session is not lost.
func (e *Engine) Restore(ctx context.Context) event.TimerUpdate {
	e.mu.Lock()
	e.cancelLoopLocked()
	e.state = e.loadLocked(ctx)

	var completed *event.StudySession
	switch e.state.Status() {
	case event.TimerRunning:
		completed = e.recomputeLocked(ctx)
		if completed == nil {
			e.scheduleLocked()
		}
	case event.TimerPaused:
		e.state.Remaining = remainingSeconds(*e.state.Deadline, *e.state.PausedAt)
	}
	u := e.state.update()
	e.mu.Unlock()

	log.Printf("Timer restored: %s (%ds remaining)", u.Status, u.Remaining)
	if s := e.finish(ctx, completed); s != nil {
		e.pub.Publish(event.Notification{
			Title:   "Session completed",
			Message: fmt.Sprintf("%q finished while StudyFocus was not running", s.Name),
		})
	}
	return u
}

// Configure sets a fresh countdown of minutes, discarding any current run.
func (e *Engine) Configure(ctx context.Context, minutes int, name string) (event.TimerUpdate, error) {
	if minutes <= 0 {
		return e.Snapshot(), ErrInvalidDuration
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLoopLocked()
	seconds := minutes * 60
	e.state = State{
		IsConfigured: true,
		InitialTime:  seconds,
		Remaining:    seconds,
		SessionName:  strings.TrimSpace(name),
	}
	e.persistLocked(ctx)
	return e.state.update(), nil
}

// Start begins a fresh run or resumes a paused one. Resuming shifts the
// deadline by the paused duration so the remaining time is preserved exactly.
func (e *Engine) Start(ctx context.Context) (event.TimerUpdate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state.Status() {
	case event.TimerUnconfigured:
		return e.state.update(), ErrNotConfigured
	case event.TimerCompleted:
		return e.state.update(), ErrCompleted
	case event.TimerRunning:
		return e.state.update(), nil
	}

	now := clock.Millis(e.clock)
	if e.state.Deadline == nil {
		e.state.Deadline = millisPtr(now + int64(e.state.Remaining)*1000)
	} else if e.state.PausedAt != nil {
		e.state.Deadline = millisPtr(*e.state.Deadline + (now - *e.state.PausedAt))
	}
	e.state.PausedAt = nil
	e.state.IsRunning = true
	e.persistLocked(ctx)
	e.scheduleLocked()
	return e.state.update(), nil
}

// Pause freezes the remaining time at its current value. If the deadline has
// already passed, the run completes instead.
func (e *Engine) Pause(ctx context.Context) (event.TimerUpdate, error) {
	e.mu.Lock()
	if !e.state.IsRunning {
		u := e.state.update()
		e.mu.Unlock()
		return u, ErrNotRunning
	}

	completed := e.recomputeLocked(ctx)
	if completed == nil {
		e.cancelLoopLocked()
		e.state.PausedAt = millisPtr(clock.Millis(e.clock))
		e.state.IsRunning = false
		e.persistLocked(ctx)
	}
	u := e.state.update()
	e.mu.Unlock()

	if s := e.finish(ctx, completed); s != nil {
		e.pub.Publish(event.Notification{
			Title:   "Session completed",
			Message: fmt.Sprintf("%q had already finished, nothing to pause", s.Name),
		})
	}
	return u, nil
}

// Stop ends the run and always leaves the timer unconfigured. With save set,
// partial progress is recorded as a session of the time actually studied.
func (e *Engine) Stop(ctx context.Context, save bool) (StopResult, error) {
	e.mu.Lock()
	if !e.state.IsConfigured {
		e.mu.Unlock()
		return StopResult{}, ErrNotConfigured
	}

	var partial *event.StudySession
	completed := e.recomputeLocked(ctx)
	if completed == nil {
		e.state.IsRunning = false
		studied := e.state.InitialTime - e.state.Remaining
		if save && !e.state.Completed && e.state.Remaining > 0 && e.state.Remaining < e.state.InitialTime {
			partial = &event.StudySession{
				Name:     sessionName(e.state.SessionName, studied),
				Subject:  e.state.SessionName,
				Duration: studied,
				Date:     e.clock.Now(),
			}
		}
	}
	e.resetLocked(ctx)
	e.mu.Unlock()

	// sessions are recorded outside the lock; Append publishes and may block
	if completed != nil {
		return StopResult{Session: e.finish(ctx, completed), Completed: true}, nil
	}
	if partial != nil {
		s := e.record(ctx, *partial)
		return StopResult{Session: &s}, nil
	}
	return StopResult{}, nil
}

// Reset discards the timer and any unsaved progress.
func (e *Engine) Reset(ctx context.Context) event.TimerUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked(ctx)
	return e.state.update()
}

// Dismiss acknowledges a completed run and returns the timer to unconfigured.
func (e *Engine) Dismiss(ctx context.Context) (event.TimerUpdate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Completed {
		return e.state.update(), ErrNotCompleted
	}
	e.resetLocked(ctx)
	return e.state.update(), nil
}

// Tick recomputes the remaining time from the deadline. It is the single
// completion trigger and is safe to call any number of times.
func (e *Engine) Tick(ctx context.Context) event.TimerUpdate {
	return e.tick(ctx, 0)
}

// Wake forces an immediate recompute after the process regains attention
// (resume from suspension, desktop focus returning).
func (e *Engine) Wake(ctx context.Context) event.TimerUpdate {
	u := e.Tick(ctx)
	if u.Status == event.TimerRunning {
		log.Printf("Timer woke: %ds remaining", u.Remaining)
	}
	return u
}

// Snapshot returns the last computed view without recomputing.
func (e *Engine) Snapshot() event.TimerUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.update()
}

// SetInterval changes the recompute cadence; a running loop is rescheduled.
func (e *Engine) SetInterval(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.interval = d
	if e.state.IsRunning {
		e.scheduleLocked()
	}
}

// Close stops any recompute loop. Persisted state is left untouched so the
// next process can restore it.
func (e *Engine) Close() {
	e.mu.Lock()
	e.cancelLoopLocked()
	e.mu.Unlock()
	e.cancel()
}

// tick with gen == 0 is an explicit call; loops pass their generation and
// are ignored once superseded.
func (e *Engine) tick(ctx context.Context, gen uint64) event.TimerUpdate {
	e.mu.Lock()
	if gen != 0 && e.generation.Load() != gen {
		u := e.state.update()
		e.mu.Unlock()
		return u
	}
	completed := e.recomputeLocked(ctx)
	u := e.state.update()
	e.mu.Unlock()

	e.finish(ctx, completed)
	return u
}

// recomputeLocked refreshes Remaining and completes the run on the zero
// crossing. It returns the completion session at most once per run because
// completion clears IsRunning. The caller records it with finish after
// releasing the lock.
func (e *Engine) recomputeLocked(ctx context.Context) *event.StudySession {
	if !e.state.IsRunning || e.state.Deadline == nil {
		return nil
	}
	now := clock.Millis(e.clock)
	e.state.Remaining = remainingSeconds(*e.state.Deadline, now)
	if e.state.Remaining > 0 {
		return nil
	}

	completedAt := *e.state.Deadline
	if completedAt > now {
		completedAt = now
	}
	e.cancelLoopLocked()
	e.state.IsRunning = false
	e.state.Completed = true
	e.state.Remaining = 0
	e.state.Deadline = nil
	e.state.PausedAt = nil
	e.persistLocked(ctx)

	return &event.StudySession{
		Name:     sessionName(e.state.SessionName, e.state.InitialTime),
		Subject:  e.state.SessionName,
		Duration: e.state.InitialTime,
		Date:     time.UnixMilli(completedAt),
	}
}

// finish records a completion session and announces it. Must not be called
// with e.mu held.
func (e *Engine) finish(ctx context.Context, completed *event.StudySession) *event.StudySession {
	if completed == nil {
		return nil
	}
	s := e.record(ctx, *completed)
	log.Printf("Timer completed: %q (%ds)", s.Name, s.Duration)
	e.pub.Publish(event.TimerFinished{Session: s})
	return &s
}

func (e *Engine) record(ctx context.Context, s event.StudySession) event.StudySession {
	if e.sessions == nil {
		return s
	}
	saved, err := e.sessions.Append(ctx, s)
	if err != nil {
		log.Printf("Warning: Failed to record session %q: %v", s.Name, err)
		return s
	}
	return saved
}

func (e *Engine) resetLocked(ctx context.Context) {
	e.cancelLoopLocked()
	e.state = State{}
	if err := e.store.Remove(ctx, storage.KeyTimerState); err != nil {
		log.Printf("Warning: Failed to clear timer state: %v", err)
	}
	e.journalLocked(ctx)
}

func (e *Engine) persistLocked(ctx context.Context) {
	if err := storage.SaveJSON(ctx, e.store, storage.KeyTimerState, e.state); err != nil {
		log.Printf("Warning: Failed to persist timer state: %v", err)
	}
	e.journalLocked(ctx)
}

func (e *Engine) journalLocked(ctx context.Context) {
	storage.Journal(ctx, e.store, event.Event{
		Timestamp: e.clock.Now(),
		Type:      event.EventTypeTimerState,
		Tag:       string(e.state.Status()),
		Notes:     e.state.SessionName,
		Value:     float64(e.state.Remaining),
	})
}

// loadLocked fails safe: missing, undecodable or inconsistent snapshots all
// mean "no active timer".
func (e *Engine) loadLocked(ctx context.Context) State {
	var st State
	found, err := storage.LoadJSON(ctx, e.store, storage.KeyTimerState, &st)
	if err != nil {
		log.Printf("Warning: Discarding unreadable timer state: %v", err)
		return State{}
	}
	if !found {
		return State{}
	}
	if !st.consistent() {
		if st.IsConfigured {
			log.Printf("Warning: Discarding inconsistent timer state: %+v", st)
		}
		return State{}
	}
	return st
}

func sessionName(name string, seconds int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%d min Study Session", seconds/60)
}
