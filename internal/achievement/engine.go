// Package achievement awards catalog entries when study history satisfies
// their criteria. Each entry unlocks at most once.
package achievement

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"studyfocus/internal/clock"
	"studyfocus/internal/event"
	"studyfocus/internal/storage"
)

type Options struct {
	Clock     clock.Clock
	Publisher event.Publisher
	// Location decides calendar days and time-of-day windows.
	Location *time.Location
}

// Input is the history an evaluation looks at. NewSessionID and
// NewAssignmentID name the item that triggered it, if any.
type Input struct {
	Sessions        []event.StudySession
	Assignments     []event.Assignment
	NewSessionID    string
	NewAssignmentID string
}

type Engine struct {
	mu    sync.Mutex
	store storage.Storage
	pub   event.Publisher
	clock clock.Clock
	loc   *time.Location

	// unlocked remembers every id awarded in this process, so a store that
	// fails to persist never causes a second unlock.
	unlocked map[string]time.Time
}

func NewEngine(store storage.Storage, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Publisher == nil {
		opts.Publisher = event.Discard{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Engine{
		store:    store,
		pub:      opts.Publisher,
		clock:    opts.Clock,
		loc:      opts.Location,
		unlocked: make(map[string]time.Time),
	}
}

// Evaluate unlocks every catalog entry that newly qualifies and returns them
// in catalog order. Evaluating unchanged input twice returns nothing the
// second time.
func (e *Engine) Evaluate(ctx context.Context, in Input) []event.Achievement {
	e.mu.Lock()
	records := e.loadLocked(ctx)
	have := make(map[string]bool, len(records))
	for _, r := range records {
		have[r.ID] = true
	}

	f := &facts{
		Sessions:    in.Sessions,
		Assignments: in.Assignments,
		Now:         e.clock.Now(),
		Location:    e.loc,
	}
	if in.NewSessionID != "" {
		for i := range in.Sessions {
			if in.Sessions[i].ID == in.NewSessionID {
				f.NewSession = &in.Sessions[i]
			}
		}
	}
	if in.NewAssignmentID != "" {
		for i := range in.Assignments {
			if in.Assignments[i].ID == in.NewAssignmentID {
				f.NewAssignment = &in.Assignments[i]
			}
		}
	}

	var unlocked []event.Achievement
	for _, a := range catalog {
		if have[a.ID] {
			continue
		}
		check, ok := predicates[a.CriteriaType]
		if !ok {
			log.Printf("Warning: No criteria registered for %s (%s)", a.ID, a.CriteriaType)
			continue
		}
		if !check(f, a.CriteriaValue) {
			continue
		}
		unlocked = append(unlocked, a)
		e.unlocked[a.ID] = f.Now
		records = append(records, event.UnlockedAchievement{ID: a.ID, UnlockedAt: f.Now})
	}

	if len(unlocked) > 0 {
		if err := storage.SaveJSON(ctx, e.store, storage.KeyAchievements, records); err != nil {
			log.Printf("Warning: Failed to persist unlocked achievements: %v", err)
		}
	}
	e.mu.Unlock()

	for _, a := range unlocked {
		log.Printf("Achievement unlocked: %s (%s)", a.Name, a.Rarity)
		storage.Journal(ctx, e.store, event.Event{
			Timestamp: f.Now,
			Type:      event.EventTypeAchievementUnlocked,
			Tag:       a.ID,
			Notes:     a.Name,
		})
		e.pub.Publish(event.AchievementUnlocked{Achievement: a, UnlockedAt: f.Now})
	}
	return unlocked
}

// Unlocked returns the persisted unlocked set merged with anything awarded in
// this process that failed to persist, oldest first. Stored ids that are no
// longer in the catalog are skipped but kept in the store.
func (e *Engine) Unlocked(ctx context.Context) []event.UnlockedAchievement {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []event.UnlockedAchievement
	for _, u := range e.loadLocked(ctx) {
		if _, ok := Lookup(u.ID); ok {
			out = append(out, u)
		}
	}
	return out
}

func (e *Engine) loadLocked(ctx context.Context) []event.UnlockedAchievement {
	var records []event.UnlockedAchievement
	if _, err := storage.LoadJSON(ctx, e.store, storage.KeyAchievements, &records); err != nil {
		log.Printf("Warning: Unlocked achievements unreadable, treating as empty: %v", err)
		records = nil
	}

	seen := make(map[string]bool, len(records))
	out := records[:0]
	for _, r := range records {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	for id, at := range e.unlocked {
		if !seen[id] {
			out = append(out, event.UnlockedAchievement{ID: id, UnlockedAt: at})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UnlockedAt.Before(out[j].UnlockedAt)
	})
	return out
}
