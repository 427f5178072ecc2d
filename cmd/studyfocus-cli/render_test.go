package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyfocus/internal/event"
	"studyfocus/internal/ipc"
)

func TestTableAlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{out: &buf}
	tbl := table{header: []string{"SUBJECT", "TIME"}}
	tbl.add("数学", "1h 0m")
	tbl.add("Physics", "25m")
	tbl.render(p)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	col := runewidth.StringWidth("SUBJECT  ")
	for _, l := range lines {
		// second column starts at the same display offset on every line
		assert.Equal(t, col, runewidth.StringWidth(l)-runewidth.StringWidth(l[strings.LastIndex(l, "  ")+2:]))
	}
}

func TestTableTruncatesLongCells(t *testing.T) {
	var buf bytes.Buffer
	tbl := table{header: []string{"TITLE", "DUE"}}
	tbl.add(strings.Repeat("x", 100), "2024-04-12")
	tbl.render(&printer{out: &buf})
	assert.Contains(t, buf.String(), "…")
	assert.NotContains(t, buf.String(), strings.Repeat("x", maxCellWidth))
}

func TestEmitFormats(t *testing.T) {
	data := ipc.NotesData{Text: "chapter 4"}

	var buf bytes.Buffer
	require.NoError(t, (&printer{out: &buf, format: "json"}).emit(data, nil))
	assert.JSONEq(t, `{"text":"chapter 4"}`, buf.String())

	buf.Reset()
	require.NoError(t, (&printer{out: &buf, format: "yaml"}).emit(data, nil))
	assert.Equal(t, "text: chapter 4\n", buf.String())

	called := false
	require.NoError(t, (&printer{out: &buf, format: "text"}).emit(data, func() { called = true }))
	assert.True(t, called)

	assert.Error(t, (&printer{out: &buf, format: "xml"}).emit(data, nil))
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "0m", humanDuration(0))
	assert.Equal(t, "25m", humanDuration(1500))
	assert.Equal(t, "1h 30m", humanDuration(5400))
}

func TestAssignmentState(t *testing.T) {
	now := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	early := due.Add(-time.Hour)
	late := now

	assert.Equal(t, "overdue", assignmentState(event.Assignment{DueDate: due}, now))
	assert.Equal(t, "open", assignmentState(event.Assignment{DueDate: now.Add(time.Hour)}, now))
	assert.Equal(t, "done", assignmentState(event.Assignment{DueDate: due, Completed: true, CompletedAt: &early}, now))
	assert.Equal(t, "done late", assignmentState(event.Assignment{DueDate: due, Completed: true, CompletedAt: &late}, now))
}

func TestAchievementsListing(t *testing.T) {
	var buf bytes.Buffer
	at := time.Now()
	list := []ipc.AchievementView{
		{Achievement: event.Achievement{Name: "First Step", Rarity: event.RarityCommon, Category: event.CategoryMilestone}, Unlocked: true, UnlockedAt: &at},
		{Achievement: event.Achievement{Name: "Scholar", Rarity: event.RarityLegendary, Category: event.CategoryMilestone}},
	}
	(&printer{out: &buf}).achievements(list, true)
	assert.Contains(t, buf.String(), "First Step")
	assert.Contains(t, buf.String(), "Common")
	assert.NotContains(t, buf.String(), "Scholar")
	assert.Contains(t, buf.String(), "1 of 2 unlocked")
}

func TestStatusShowsFocusedApp(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{out: &buf}
	p.status(ipc.StatusData{Timer: event.TimerUpdate{Status: event.TimerUnconfigured}, AchievementsTotal: 26})
	assert.NotContains(t, buf.String(), "Focused app")

	buf.Reset()
	p.status(ipc.StatusData{Timer: event.TimerUpdate{Status: event.TimerUnconfigured}, FocusedApp: "Anki"})
	assert.Contains(t, buf.String(), "Focused app:  Anki")
}
