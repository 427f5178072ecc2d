package assignment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"studyfocus/internal/clock"
	"studyfocus/internal/event"
	"studyfocus/internal/id"
	"studyfocus/internal/storage"
)

var (
	ErrNotFound     = errors.New("assignment not found")
	ErrInvalidInput = errors.New("invalid assignment input")
)

type AddInput struct {
	Title       string
	Description string
	Subject     string
	DueDate     time.Time
}

// Log is the CRUD list of user tasks. Every mutation is persisted before an
// AssignmentUpdated notification goes out.
type Log struct {
	mu    sync.Mutex
	store storage.Storage
	pub   event.Publisher
	clock clock.Clock
}

func NewLog(store storage.Storage, pub event.Publisher, clk clock.Clock) *Log {
	if pub == nil {
		pub = event.Discard{}
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Log{store: store, pub: pub, clock: clk}
}

func (l *Log) Add(ctx context.Context, in AddInput) (event.Assignment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.DueDate.IsZero() {
		return event.Assignment{}, fmt.Errorf("%w: title and due date are required", ErrInvalidInput)
	}
	a := event.Assignment{
		ID:          id.New(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Subject:     strings.TrimSpace(in.Subject),
		DueDate:     in.DueDate,
		CreatedAt:   l.clock.Now(),
	}
	err := l.mutate(ctx, func(list []event.Assignment) ([]event.Assignment, error) {
		return append(list, a), nil
	})
	if err != nil {
		return event.Assignment{}, err
	}
	l.notify(ctx, a.ID, "added", false)
	return a, nil
}

// Complete marks id done now. Completing an already completed assignment keeps
// its original completion time.
func (l *Log) Complete(ctx context.Context, id string) (event.Assignment, error) {
	var updated event.Assignment
	err := l.mutate(ctx, func(list []event.Assignment) ([]event.Assignment, error) {
		i := indexOf(list, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		if !list[i].Completed || list[i].CompletedAt == nil {
			now := l.clock.Now()
			list[i].Completed = true
			list[i].CompletedAt = &now
		}
		updated = list[i]
		return list, nil
	})
	if err != nil {
		return event.Assignment{}, err
	}
	l.notify(ctx, id, "completed", false)
	return updated, nil
}

func (l *Log) Reopen(ctx context.Context, id string) (event.Assignment, error) {
	var updated event.Assignment
	err := l.mutate(ctx, func(list []event.Assignment) ([]event.Assignment, error) {
		i := indexOf(list, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		list[i].Completed = false
		list[i].CompletedAt = nil
		updated = list[i]
		return list, nil
	})
	if err != nil {
		return event.Assignment{}, err
	}
	l.notify(ctx, id, "reopened", false)
	return updated, nil
}

func (l *Log) Delete(ctx context.Context, id string) error {
	err := l.mutate(ctx, func(list []event.Assignment) ([]event.Assignment, error) {
		i := indexOf(list, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		return append(list[:i], list[i+1:]...), nil
	})
	if err != nil {
		return err
	}
	l.notify(ctx, id, "deleted", true)
	return nil
}

// List returns assignments in storage order.
func (l *Log) List(ctx context.Context) []event.Assignment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// Sorted returns open assignments first, each group ordered by due date.
func (l *Log) Sorted(ctx context.Context) []event.Assignment {
	list := l.List(ctx)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Completed != list[j].Completed {
			return !list[i].Completed
		}
		return list[i].DueDate.Before(list[j].DueDate)
	})
	return list
}

// MostRecentlyCompleted returns the id of the assignment with the latest
// completion time, or "" when none is completed.
func MostRecentlyCompleted(list []event.Assignment) string {
	var latest *event.Assignment
	for i := range list {
		a := &list[i]
		if !a.Completed || a.CompletedAt == nil {
			continue
		}
		if latest == nil || a.CompletedAt.After(*latest.CompletedAt) {
			latest = a
		}
	}
	if latest == nil {
		return ""
	}
	return latest.ID
}

func (l *Log) mutate(ctx context.Context, fn func([]event.Assignment) ([]event.Assignment, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	list, err := fn(l.load(ctx))
	if err != nil {
		return err
	}
	if err := storage.SaveJSON(ctx, l.store, storage.KeyAssignments, list); err != nil {
		return fmt.Errorf("save assignments: %w", err)
	}
	return nil
}

func (l *Log) load(ctx context.Context) []event.Assignment {
	var list []event.Assignment
	if _, err := storage.LoadJSON(ctx, l.store, storage.KeyAssignments, &list); err != nil {
		log.Printf("Warning: Assignment list unreadable, treating as empty: %v", err)
		return nil
	}
	return list
}

func (l *Log) notify(ctx context.Context, id, action string, deleted bool) {
	storage.Journal(ctx, l.store, event.Event{
		Timestamp: l.clock.Now(),
		Type:      event.EventTypeAssignmentUpdated,
		Tag:       action,
		Notes:     id,
	})
	l.pub.Publish(event.AssignmentUpdated{AssignmentID: id, Deleted: deleted})
}

func indexOf(list []event.Assignment, id string) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}
