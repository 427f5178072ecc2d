package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"studyfocus/internal/event"
	"studyfocus/internal/id"
	"studyfocus/internal/storage"
)

// Log is the append-only list of completed study sessions.
type Log struct {
	mu    sync.Mutex
	store storage.Storage
	pub   event.Publisher
}

func NewLog(store storage.Storage, pub event.Publisher) *Log {
	if pub == nil {
		pub = event.Discard{}
	}
	return &Log{store: store, pub: pub}
}

// Append persists s and only then publishes SessionSaved, so subscribers
// reading the log always see the new entry.
func (l *Log) Append(ctx context.Context, s event.StudySession) (event.StudySession, error) {
	if s.Duration < 0 {
		return event.StudySession{}, fmt.Errorf("session duration must be non-negative")
	}
	if s.ID == "" {
		s.ID = id.New()
	}

	l.mu.Lock()
	sessions := l.load(ctx)
	sessions = append(sessions, s)
	err := storage.SaveJSON(ctx, l.store, storage.KeySessions, sessions)
	l.mu.Unlock()
	if err != nil {
		return event.StudySession{}, fmt.Errorf("save session: %w", err)
	}

	storage.Journal(ctx, l.store, event.Event{
		Timestamp: s.Date,
		Type:      event.EventTypeSessionSaved,
		Tag:       s.Label(),
		Notes:     s.Name,
		Value:     float64(s.Duration),
	})
	log.Printf("Session saved: %q (%ds)", s.Name, s.Duration)
	l.pub.Publish(event.SessionSaved{Session: s})
	return s, nil
}

// List returns every recorded session in insertion order.
func (l *Log) List(ctx context.Context) []event.StudySession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

// Find returns the session with id, if present.
func (l *Log) Find(ctx context.Context, id string) (event.StudySession, bool) {
	for _, s := range l.List(ctx) {
		if s.ID == id {
			return s, true
		}
	}
	return event.StudySession{}, false
}

// load treats an unreadable or corrupt list as empty.
func (l *Log) load(ctx context.Context) []event.StudySession {
	var sessions []event.StudySession
	if _, err := storage.LoadJSON(ctx, l.store, storage.KeySessions, &sessions); err != nil {
		log.Printf("Warning: Session log unreadable, treating as empty: %v", err)
		return nil
	}
	return sessions
}
