package achievement

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyfocus/internal/event"
	"studyfocus/internal/storage"
	"studyfocus/internal/storage/filestore"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type recorder struct {
	mu      sync.Mutex
	updates []event.AchievementUnlocked
}

func (r *recorder) Publish(update interface{}) {
	if u, ok := update.(event.AchievementUnlocked); ok {
		r.mu.Lock()
		r.updates = append(r.updates, u)
		r.mu.Unlock()
	}
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *recorder, storage.Storage) {
	t.Helper()
	store := filestore.NewMemory()
	require.NoError(t, store.Init(context.Background()))
	pub := &recorder{}
	e := NewEngine(store, Options{Clock: fixedClock(now), Publisher: pub, Location: time.UTC})
	return e, pub, store
}

func ids(list []event.Achievement) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func sess(id string, at time.Time, seconds int, subject string) event.StudySession {
	return event.StudySession{ID: id, Name: subject, Subject: subject, Duration: seconds, Date: at}
}

func TestEveryCriteriaKindHasAPredicate(t *testing.T) {
	for _, a := range Catalog() {
		_, ok := predicates[a.CriteriaType]
		assert.True(t, ok, "%s uses unregistered kind %s", a.ID, a.CriteriaType)
	}
	seen := make(map[string]bool)
	for _, a := range Catalog() {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
}

func TestSpeedDemonScenario(t *testing.T) {
	now := time.Date(2024, 5, 6, 14, 25, 0, 0, time.UTC)
	e, pub, _ := newTestEngine(t, now)

	s := sess("s1", now, 1500, "Math")
	unlocked := e.Evaluate(context.Background(), Input{Sessions: []event.StudySession{s}, NewSessionID: "s1"})

	assert.Equal(t, []string{"first_step", "speed_demon"}, ids(unlocked))
	require.Len(t, pub.updates, 2)
	assert.Equal(t, "first_step", pub.updates[0].Achievement.ID)
	assert.Equal(t, now, pub.updates[1].UnlockedAt)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)
	e, pub, store := newTestEngine(t, now)
	in := Input{Sessions: []event.StudySession{sess("s1", now, 1500, "")}, NewSessionID: "s1"}

	first := e.Evaluate(context.Background(), in)
	assert.Equal(t, []string{"first_step", "early_bird", "speed_demon"}, ids(first))
	assert.Empty(t, e.Evaluate(context.Background(), in))
	assert.Len(t, pub.updates, 3)

	var persisted []event.UnlockedAchievement
	found, err := storage.LoadJSON(context.Background(), store, storage.KeyAchievements, &persisted)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, persisted, 3)

	// a fresh engine over the same store sees the persisted set
	again := NewEngine(store, Options{Clock: fixedClock(now), Location: time.UTC})
	assert.Empty(t, again.Evaluate(context.Background(), in))
	assert.Len(t, again.Unlocked(context.Background()), 3)
}

func TestCorruptUnlockedSetTreatedAsEmpty(t *testing.T) {
	now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	e, _, store := newTestEngine(t, now)
	require.NoError(t, store.Set(context.Background(), storage.KeyAchievements, []byte("{oops")))

	unlocked := e.Evaluate(context.Background(), Input{Sessions: []event.StudySession{sess("s1", now, 600, "")}, NewSessionID: "s1"})
	assert.Equal(t, []string{"first_step"}, ids(unlocked))
}

func TestEventScopedCriteriaNeedTheNewItem(t *testing.T) {
	now := time.Date(2024, 5, 6, 5, 0, 0, 0, time.UTC)
	e, _, _ := newTestEngine(t, now)
	history := []event.StudySession{sess("s1", now, 8000, "Art")}

	assert.Empty(t, e.Evaluate(context.Background(), Input{Sessions: history}))

	unlocked := e.Evaluate(context.Background(), Input{Sessions: history, NewSessionID: "s1"})
	assert.ElementsMatch(t, []string{"first_step", "early_bird", "dawn_patrol", "marathoner"}, ids(unlocked))
}

func TestTimeOfDayWindows(t *testing.T) {
	cases := []struct {
		hour int
		want []string
	}{
		{hour: 1, want: []string{"early_bird", "dawn_patrol", "midnight_oil"}},
		{hour: 3, want: []string{"early_bird", "dawn_patrol"}},
		{hour: 8, want: []string{"early_bird"}},
		{hour: 9, want: nil},
		{hour: 20, want: nil},
		{hour: 21, want: []string{"night_owl"}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%02d", tc.hour), func(t *testing.T) {
			at := time.Date(2024, 5, 6, tc.hour, 30, 0, 0, time.UTC)
			e, _, _ := newTestEngine(t, at)
			unlocked := e.Evaluate(context.Background(), Input{
				Sessions:     []event.StudySession{sess("s1", at, 60, "")},
				NewSessionID: "s1",
			})
			want := append([]string{"first_step"}, tc.want...)
			assert.ElementsMatch(t, want, ids(unlocked))
		})
	}
}

func TestTimeOfDayUsesConfiguredLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 22:00 UTC is 07:00 the next morning in Tokyo
	at := time.Date(2024, 5, 6, 22, 0, 0, 0, time.UTC)
	store := filestore.NewMemory()
	require.NoError(t, store.Init(context.Background()))
	e := NewEngine(store, Options{Clock: fixedClock(at), Location: tokyo})

	unlocked := e.Evaluate(context.Background(), Input{Sessions: []event.StudySession{sess("s1", at, 60, "")}, NewSessionID: "s1"})
	assert.Contains(t, ids(unlocked), "early_bird")
	assert.NotContains(t, ids(unlocked), "night_owl")
}

func TestFocusedDurationTolerance(t *testing.T) {
	for seconds, want := range map[int]bool{1199: false, 1200: true, 1500: true, 1800: true, 1801: false} {
		now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
		e, _, _ := newTestEngine(t, now)
		unlocked := e.Evaluate(context.Background(), Input{Sessions: []event.StudySession{sess("s1", now, seconds, "")}, NewSessionID: "s1"})
		assert.Equal(t, want, contains(ids(unlocked), "speed_demon"), "duration %d", seconds)
	}
}

func TestSameDaySubjects(t *testing.T) {
	now := time.Date(2024, 5, 6, 18, 0, 0, 0, time.UTC)
	e, _, _ := newTestEngine(t, now)
	sessions := []event.StudySession{
		sess("a", now.Add(-5*time.Hour), 600, "Math"),
		sess("b", now.Add(-3*time.Hour), 600, ""),
		sess("c", now.Add(-25*time.Hour), 600, "History"),
		sess("d", now, 600, "Physics"),
	}
	unlocked := e.Evaluate(context.Background(), Input{Sessions: sessions, NewSessionID: "d"})
	assert.Contains(t, ids(unlocked), "renaissance", "Untagged counts as a subject")
}

func TestStreakAchievements(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	var sessions []event.StudySession
	for i := 0; i < 7; i++ {
		sessions = append(sessions, sess(fmt.Sprintf("s%d", i), start.AddDate(0, 0, i), 900, "Math"))
	}

	e, _, _ := newTestEngine(t, start.AddDate(0, 0, 7))
	unlocked := e.Evaluate(context.Background(), Input{Sessions: sessions})
	assert.Contains(t, ids(unlocked), "consistent")
	assert.Contains(t, ids(unlocked), "perfect_week")

	// a week long past still counts as perfect, but no longer as a current streak
	e, _, _ = newTestEngine(t, start.AddDate(0, 2, 0))
	unlocked = e.Evaluate(context.Background(), Input{Sessions: sessions})
	assert.NotContains(t, ids(unlocked), "consistent")
	assert.Contains(t, ids(unlocked), "perfect_week")
}

func TestWeekendWarrior(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 10, 0, 0, 0, time.UTC)
	saturdayBefore := sunday.AddDate(0, 0, -1)
	saturdayAfter := sunday.AddDate(0, 0, 6)

	e, _, _ := newTestEngine(t, sunday.AddDate(0, 1, 0))
	split := []event.StudySession{sess("a", saturdayBefore, 900, ""), sess("b", sunday, 900, "")}
	assert.NotContains(t, ids(e.Evaluate(context.Background(), Input{Sessions: split})), "weekend_warrior",
		"Saturday and the following Sunday are in different weeks")

	e, _, _ = newTestEngine(t, sunday.AddDate(0, 1, 0))
	same := []event.StudySession{sess("a", sunday, 900, ""), sess("b", saturdayAfter, 1000, "")}
	assert.Contains(t, ids(e.Evaluate(context.Background(), Input{Sessions: same})), "weekend_warrior")

	e, _, _ = newTestEngine(t, sunday.AddDate(0, 1, 0))
	short := []event.StudySession{sess("a", sunday, 899, ""), sess("b", saturdayAfter, 1000, "")}
	assert.NotContains(t, ids(e.Evaluate(context.Background(), Input{Sessions: short})), "weekend_warrior")
}

func TestWeeklyAggregates(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 9, 0, 0, 0, time.UTC)
	subjects := []string{"Math", "Art", "Biology", "Chemistry"}
	var sessions []event.StudySession
	for i, subject := range subjects {
		sessions = append(sessions, sess(subject, sunday.AddDate(0, 0, i), 9000, subject))
	}

	e, _, _ := newTestEngine(t, sunday.AddDate(0, 0, 10))
	unlocked := ids(e.Evaluate(context.Background(), Input{Sessions: sessions}))
	assert.Contains(t, unlocked, "productivity_beast")
	assert.Contains(t, unlocked, "well_rounded")
	assert.Contains(t, unlocked, "dedicated_learner")
	assert.NotContains(t, unlocked, "explorer")
}

func TestAssignmentCriteria(t *testing.T) {
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	var list []event.Assignment
	for i := 0; i < 5; i++ {
		done := base.AddDate(0, 0, i)
		list = append(list, event.Assignment{
			ID:          fmt.Sprintf("a%d", i),
			Title:       "Essay",
			DueDate:     done.Add(2 * time.Hour),
			Completed:   true,
			CompletedAt: &done,
		})
	}

	e, _, _ := newTestEngine(t, base.AddDate(0, 0, 5))
	unlocked := ids(e.Evaluate(context.Background(), Input{Assignments: list, NewAssignmentID: "a4"}))
	assert.Contains(t, unlocked, "punctual")
	assert.Contains(t, unlocked, "reliable")
	assert.NotContains(t, unlocked, "overachiever", "only two hours early")
	assert.NotContains(t, unlocked, "first_step")
}

func TestAssignmentStreakBrokenByLateCompletion(t *testing.T) {
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	var list []event.Assignment
	for i := 0; i < 6; i++ {
		done := base.AddDate(0, 0, i)
		due := done.Add(time.Hour)
		if i == 2 {
			due = done.Add(-time.Hour)
		}
		list = append(list, event.Assignment{ID: fmt.Sprintf("a%d", i), DueDate: due, Completed: true, CompletedAt: &done})
	}
	assert.Equal(t, 3, longestOnTimeRun(list))
}

func TestOverachiever(t *testing.T) {
	done := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	cases := map[time.Duration]bool{
		23*time.Hour + 59*time.Minute: false,
		24 * time.Hour:                true,
		72 * time.Hour:                true,
	}
	for margin, want := range cases {
		e, _, _ := newTestEngine(t, done)
		a := event.Assignment{ID: "a", DueDate: done.Add(margin), Completed: true, CompletedAt: &done}
		unlocked := ids(e.Evaluate(context.Background(), Input{Assignments: []event.Assignment{a}, NewAssignmentID: "a"}))
		assert.Equal(t, want, contains(unlocked, "overachiever"), "margin %s", margin)
	}
}

func TestCountMilestones(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var sessions []event.StudySession
	for i := 0; i < 10; i++ {
		sessions = append(sessions, sess(fmt.Sprintf("s%d", i), now.Add(-time.Duration(i)*time.Hour), 60, fmt.Sprintf("Subject %d", i%5)))
	}
	e, _, _ := newTestEngine(t, now)
	unlocked := ids(e.Evaluate(context.Background(), Input{Sessions: sessions}))
	assert.Contains(t, unlocked, "getting_started")
	assert.Contains(t, unlocked, "explorer")
	assert.NotContains(t, unlocked, "study_master")
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func TestUnlockedSkipsRetiredIDs(t *testing.T) {
	ctx := context.Background()
	e, _, store := newTestEngine(t, time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC))
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, storage.SaveJSON(ctx, store, storage.KeyAchievements, []event.UnlockedAchievement{
		{ID: "first_step", UnlockedAt: at},
		{ID: "retired_badge", UnlockedAt: at},
	}))

	unlocked := e.Unlocked(ctx)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_step", unlocked[0].ID)

	var stored []event.UnlockedAchievement
	_, err := storage.LoadJSON(ctx, store, storage.KeyAchievements, &stored)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	_, ok := Lookup("retired_badge")
	assert.False(t, ok)
	def, ok := Lookup("speed_demon")
	require.True(t, ok)
	assert.Equal(t, 1500, def.CriteriaValue)
}
