package collector

import (
	"context"
	"strings"
	"time"

	"studyfocus/internal/event"
)

// Collector watches the desktop and publishes event.FocusInfo whenever the
// focused window changes. The daemon treats each change as a chance to
// recompute the timer.
type Collector interface {
	Start(ctx context.Context, interval time.Duration, pub event.Publisher) error
	Stop() error
	CurrentFocus() (event.FocusInfo, error)
}

// Tracker filters repeated focus samples down to transitions.
type Tracker struct {
	last event.FocusInfo
	seen bool
}

// Observe records cur and reports whether it differs from the previous sample.
// The first sample establishes a baseline and is not a transition.
func (t *Tracker) Observe(cur event.FocusInfo) bool {
	cur = Normalize(cur)
	if !t.seen {
		t.last, t.seen = cur, true
		return false
	}
	if cur == t.last {
		return false
	}
	t.last = cur
	return true
}

func (t *Tracker) Last() event.FocusInfo {
	return t.last
}

func Normalize(f event.FocusInfo) event.FocusInfo {
	if strings.TrimSpace(f.AppName) == "" {
		f.AppName = "Unknown App"
	}
	if strings.TrimSpace(f.Title) == "" {
		f.Title = "Unknown Title"
	}
	return f
}

// Truncate shortens s to at most maxLen runes, preferring a word boundary.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	cut := string(runes[:maxLen-3])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		return cut[:idx] + "..."
	}
	return cut + "..."
}
