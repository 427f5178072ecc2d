package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"studyfocus/internal/event"
)

func TestTrackerReportsTransitionsOnly(t *testing.T) {
	var tr Tracker
	editor := event.FocusInfo{AppName: "Code", Title: "notes.md"}
	browser := event.FocusInfo{AppName: "firefox", Title: "Docs"}

	assert.False(t, tr.Observe(editor), "first sample is the baseline")
	assert.False(t, tr.Observe(editor))
	assert.True(t, tr.Observe(browser))
	assert.Equal(t, browser, tr.Last())
	assert.True(t, tr.Observe(editor))
}

func TestTrackerNormalizesEmptyNames(t *testing.T) {
	var tr Tracker
	tr.Observe(event.FocusInfo{})
	assert.False(t, tr.Observe(event.FocusInfo{AppName: "Unknown App", Title: " "}))
	assert.Equal(t, "Unknown Title", tr.Last().Title)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "Chapter four...", Truncate("Chapter four exercises and notes", 20))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "日本語...", Truncate("日本語のノートと練習", 6))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
}
