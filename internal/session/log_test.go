package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyfocus/internal/event"
	"studyfocus/internal/storage"
	"studyfocus/internal/storage/filestore"
)

// checkingPublisher asserts write-then-notify: by the time SessionSaved is
// published the session must already be in the store.
type checkingPublisher struct {
	t     *testing.T
	store storage.Storage
	mu    sync.Mutex
	seen  []event.SessionSaved
}

func (p *checkingPublisher) Publish(update interface{}) {
	saved, ok := update.(event.SessionSaved)
	if !ok {
		return
	}
	var stored []event.StudySession
	_, err := storage.LoadJSON(context.Background(), p.store, storage.KeySessions, &stored)
	require.NoError(p.t, err)
	require.NotEmpty(p.t, stored)
	assert.Equal(p.t, saved.Session.ID, stored[len(stored)-1].ID)

	p.mu.Lock()
	p.seen = append(p.seen, saved)
	p.mu.Unlock()
}

func newTestLog(t *testing.T) (*Log, *checkingPublisher, storage.Storage) {
	t.Helper()
	store := filestore.NewMemory()
	require.NoError(t, store.Init(context.Background()))
	pub := &checkingPublisher{t: t, store: store}
	return NewLog(store, pub), pub, store
}

func TestAppendPersistsBeforePublishing(t *testing.T) {
	l, pub, _ := newTestLog(t)
	ctx := context.Background()
	when := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	first, err := l.Append(ctx, event.StudySession{Name: "Math", Subject: "Math", Duration: 1500, Date: when})
	require.NoError(t, err)
	second, err := l.Append(ctx, event.StudySession{Name: "10 min Study Session", Duration: 600, Date: when.Add(time.Hour)})
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.Less(t, first.ID, second.ID, "ids must sort in generation order")

	sessions := l.List(ctx)
	require.Len(t, sessions, 2)
	assert.Equal(t, first, sessions[0])
	assert.Equal(t, second, sessions[1])
	require.Len(t, pub.seen, 2)

	found, ok := l.Find(ctx, second.ID)
	assert.True(t, ok)
	assert.Equal(t, 600, found.Duration)
}

func TestAppendRejectsNegativeDuration(t *testing.T) {
	l, pub, _ := newTestLog(t)
	_, err := l.Append(context.Background(), event.StudySession{Duration: -1})
	assert.Error(t, err)
	assert.Empty(t, pub.seen)
	assert.Empty(t, l.List(context.Background()))
}

func TestCorruptLogIsTreatedAsEmpty(t *testing.T) {
	l, _, store := newTestLog(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, storage.KeySessions, []byte("not-json")))

	assert.Empty(t, l.List(ctx))

	_, err := l.Append(ctx, event.StudySession{Name: "Recovery", Duration: 60, Date: time.Now()})
	require.NoError(t, err)
	assert.Len(t, l.List(ctx), 1)
}

func TestAppendJournalsSession(t *testing.T) {
	l, _, store := newTestLog(t)
	ctx := context.Background()
	when := time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC)

	_, err := l.Append(ctx, event.StudySession{Name: "Chemistry", Subject: "Chemistry", Duration: 1200, Date: when})
	require.NoError(t, err)

	events, err := store.GetEvents(ctx, when.Add(-time.Minute), when.Add(time.Minute), event.EventTypeSessionSaved)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Chemistry", events[0].Tag)
	assert.InDelta(t, 1200, events[0].Value, 0.001)
}
