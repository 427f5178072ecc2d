package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"studyfocus/internal/event"
	"studyfocus/internal/storage"
)

func setupTestDB(t *testing.T) (storage.Storage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test_studyfocus.db")
	store := NewSQLiteStore(dbPath)
	err := store.Init(context.Background())
	require.NoError(t, err, "Failed to initialize test database")

	cleanup := func() {
		assert.NoError(t, store.Close(), "Failed to close test database")
	}
	return store, cleanup
}

func TestGetSetRemove(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Get(ctx, storage.KeySessions)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Set(ctx, storage.KeySessions, []byte(`[1]`)))
	require.NoError(t, store.Set(ctx, storage.KeySessions, []byte(`[1,2]`)))

	got, err := store.Get(ctx, storage.KeySessions)
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))

	require.NoError(t, store.Remove(ctx, storage.KeySessions))
	_, err = store.Get(ctx, storage.KeySessions)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Removing an absent key is not an error.
	assert.NoError(t, store.Remove(ctx, "missing"))
}

func TestLoadAndSaveJSON(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	var notes string
	found, err := storage.LoadJSON(ctx, store, storage.KeyNotes, &notes)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, storage.SaveJSON(ctx, store, storage.KeyNotes, "chapter 4 review"))
	found, err = storage.LoadJSON(ctx, store, storage.KeyNotes, &notes)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "chapter 4 review", notes)

	require.NoError(t, store.Set(ctx, storage.KeyNotes, []byte("{not json")))
	_, err = storage.LoadJSON(ctx, store, storage.KeyNotes, &notes)
	assert.Error(t, err)
}

func TestSaveAndGetEvent(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	testEvent := event.Event{
		Timestamp: now,
		Type:      event.EventTypeSessionSaved,
		Tag:       "Math",
		Notes:     "25 min",
		Value:     1500,
	}

	id, err := store.SaveEvent(ctx, testEvent)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	retrievedEvents, err := store.GetEvents(ctx, now.Add(-1*time.Minute), now.Add(1*time.Minute))
	require.NoError(t, err)
	require.Len(t, retrievedEvents, 1)

	retrieved := retrievedEvents[0]
	assert.Equal(t, id, retrieved.ID)
	assert.Equal(t, testEvent.Type, retrieved.Type)
	assert.Equal(t, testEvent.Timestamp, retrieved.Timestamp.UTC().Truncate(time.Second))
	assert.InDelta(t, testEvent.Value, retrieved.Value, 0.001)
	assert.Equal(t, testEvent.Tag, retrieved.Tag)
	assert.Equal(t, testEvent.Notes, retrieved.Notes)
}

func TestGetEventsFiltering(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	t1 := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)
	t2 := t1.Add(1 * time.Minute)
	t3 := t1.Add(5 * time.Minute)
	t4 := t1.Add(15 * time.Minute)

	events := []event.Event{
		{Timestamp: t1, Type: event.EventTypeTimerState, Tag: "running"},
		{Timestamp: t2, Type: event.EventTypeFocusChange, Tag: "Emacs"},
		{Timestamp: t3, Type: event.EventTypeTimerState, Tag: "paused"},
		{Timestamp: t4, Type: event.EventTypeSessionSaved, Tag: "Math"},
	}
	for _, e := range events {
		_, err := store.SaveEvent(ctx, e)
		require.NoError(t, err)
	}

	retrieved, err := store.GetEvents(ctx, t1, t3)
	require.NoError(t, err)
	require.Len(t, retrieved, 3)
	assert.Equal(t, "running", retrieved[0].Tag)
	assert.Equal(t, "Emacs", retrieved[1].Tag)
	assert.Equal(t, "paused", retrieved[2].Tag)

	retrieved, err = store.GetEvents(ctx, t1.Add(-time.Hour), t4.Add(time.Hour), event.EventTypeTimerState)
	require.NoError(t, err)
	require.Len(t, retrieved, 2)

	retrieved, err = store.GetEvents(ctx, t1.Add(-time.Hour), t4.Add(time.Hour), event.EventTypeFocusChange, event.EventTypeSessionSaved)
	require.NoError(t, err)
	require.Len(t, retrieved, 2)
	assert.Equal(t, "Emacs", retrieved[0].Tag)
	assert.Equal(t, "Math", retrieved[1].Tag)

	retrieved, err = store.GetEvents(ctx, t1.Add(10*time.Hour), t4.Add(11*time.Hour))
	require.NoError(t, err)
	assert.Len(t, retrieved, 0)
}

func TestCloseDB(t *testing.T) {
	store, cleanup := setupTestDB(t)
	cleanup()

	_, err := store.SaveEvent(context.Background(), event.Event{Timestamp: time.Now(), Type: event.EventTypeAppStart})
	assert.Error(t, err)
}
