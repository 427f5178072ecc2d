package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"studyfocus/internal/event"
)

// Keys are a compatibility surface with data written by earlier versions.
const (
	KeySessions     = "studyfocus-sessions"
	KeyTimerState   = "studyfocus-timer-state"
	KeyAchievements = "studyfocus-achievements"
	KeyAssignments  = "studyfocus-assignments"
	KeyNotes        = "studyfocus-notes"
)

var ErrNotFound = errors.New("key not found")

// Storage is a synchronous key-value store plus an append-only activity journal.
type Storage interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	SaveEvent(ctx context.Context, e event.Event) (int64, error)
	GetEvents(ctx context.Context, start, end time.Time, eventTypes ...event.EventType) ([]event.Event, error)
	Close() error
}

// LoadJSON decodes the value under key into v. It reports false when the key
// is absent; a decode error is returned wrapped so callers can fall back.
func LoadJSON(ctx context.Context, s Storage, key string, v interface{}) (bool, error) {
	payload, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func SaveJSON(ctx context.Context, s Storage, key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, payload)
}

// Journal appends an activity record, logging instead of failing; the journal
// is informational and must never block a state transition.
func Journal(ctx context.Context, s Storage, e event.Event) {
	if s == nil {
		return
	}
	if _, err := s.SaveEvent(ctx, e); err != nil {
		log.Printf("Warning: Failed to journal %s event: %v", e.Type, err)
	}
}
