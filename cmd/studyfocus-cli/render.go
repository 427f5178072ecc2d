package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"studyfocus/internal/event"
	"studyfocus/internal/ipc"
	"studyfocus/internal/stats"
)

const maxCellWidth = 40

var titleCase = cases.Title(language.English)

type printer struct {
	out    io.Writer
	format string // text, json or yaml
	color  bool
}

// emit writes data in the structured formats, or calls text otherwise.
func (p *printer) emit(data interface{}, text func()) error {
	switch p.format {
	case "json":
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.out, string(b))
		return err
	case "yaml":
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		text()
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use text, json or yaml)", p.format)
	}
}

func (p *printer) bold(s string) string {
	if !p.color {
		return s
	}
	return "\x1b[1m" + s + "\x1b[0m"
}

type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cols ...string) {
	t.rows = append(t.rows, cols)
}

// render aligns columns by display width so wide runes line up.
func (t *table) render(p *printer) {
	widths := make([]int, len(t.header))
	cell := func(s string) string {
		return runewidth.Truncate(s, maxCellWidth, "…")
	}
	for i, h := range t.header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i := range row {
			if i < len(widths) {
				if w := runewidth.StringWidth(cell(row[i])); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	line := func(cols []string, header bool) {
		var b strings.Builder
		for i, c := range cols {
			if i >= len(widths) {
				break
			}
			c = cell(c)
			if i < len(cols)-1 {
				c = runewidth.FillRight(c, widths[i]) + "  "
			}
			b.WriteString(c)
		}
		s := strings.TrimRight(b.String(), " ")
		if header {
			s = p.bold(s)
		}
		fmt.Fprintln(p.out, s)
	}
	line(t.header, true)
	for _, row := range t.rows {
		line(row, false)
	}
}

func humanDuration(seconds int) string {
	d := (time.Duration(seconds) * time.Second).Round(time.Minute)
	h := d / time.Hour
	m := (d - h*time.Hour) / time.Minute
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func clock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (p *printer) timer(u event.TimerUpdate) {
	if u.Status == event.TimerUnconfigured {
		fmt.Fprintln(p.out, "Timer:        not set")
		return
	}
	line := fmt.Sprintf("Timer:        %s  %s / %s", strings.ToUpper(string(u.Status)), clock(u.Remaining), clock(u.InitialTime))
	if u.SessionName != "" {
		line += "  " + u.SessionName
	}
	fmt.Fprintln(p.out, line)
}

func (p *printer) status(s ipc.StatusData) {
	p.timer(s.Timer)
	fmt.Fprintf(p.out, "Today:        %s\n", humanDuration(s.TodaySeconds))
	fmt.Fprintf(p.out, "Streak:       %d day(s)\n", s.CurrentStreak)
	fmt.Fprintf(p.out, "Achievements: %d/%d\n", s.UnlockedCount, s.AchievementsTotal)
	fmt.Fprintf(p.out, "Storage:      %s\n", s.StorageBackend)
	if s.FocusedApp != "" {
		fmt.Fprintf(p.out, "Focused app:  %s\n", s.FocusedApp)
	}
}

func (p *printer) sessions(list []event.StudySession) {
	if len(list) == 0 {
		fmt.Fprintln(p.out, "No study sessions yet.")
		return
	}
	t := table{header: []string{"DATE", "NAME", "SUBJECT", "DURATION"}}
	for _, s := range list {
		t.add(s.Date.Local().Format("2006-01-02 15:04"), s.Name, s.Label(), humanDuration(s.Duration))
	}
	t.render(p)
}

func assignmentState(a event.Assignment, now time.Time) string {
	switch {
	case a.Completed && a.OnTime():
		return "done"
	case a.Completed:
		return "done late"
	case now.After(a.DueDate):
		return "overdue"
	default:
		return "open"
	}
}

func (p *printer) assignments(list []event.Assignment, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(p.out, "No assignments.")
		return
	}
	t := table{header: []string{"ID", "TITLE", "SUBJECT", "DUE", "STATE"}}
	for _, a := range list {
		t.add(a.ID, a.Title, a.Subject, a.DueDate.Local().Format("2006-01-02 15:04"), assignmentState(a, now))
	}
	t.render(p)
}

func (p *printer) achievements(list []ipc.AchievementView, onlyUnlocked bool) {
	t := table{header: []string{"", "NAME", "RARITY", "CATEGORY", "DESCRIPTION"}}
	unlocked := 0
	for _, a := range list {
		mark := "·"
		if a.Unlocked {
			mark = "✓"
			unlocked++
		} else if onlyUnlocked {
			continue
		}
		t.add(mark, a.Name, titleCase.String(string(a.Rarity)), titleCase.String(string(a.Category)), a.Description)
	}
	t.render(p)
	fmt.Fprintf(p.out, "\n%d of %d unlocked\n", unlocked, len(list))
}

func (p *printer) stats(s stats.Summary) {
	fmt.Fprintf(p.out, "Today:           %s\n", humanDuration(s.TodaySeconds))
	fmt.Fprintf(p.out, "This week:       %s\n", humanDuration(s.WeekSeconds))
	fmt.Fprintf(p.out, "All time:        %s over %d session(s)\n", humanDuration(s.TotalSeconds), s.SessionCount)
	fmt.Fprintf(p.out, "Average session: %.1f min\n", s.AverageMinutes)
	fmt.Fprintf(p.out, "Streak:          %d day(s), longest %d\n", s.CurrentStreak, s.LongestStreak)
	fmt.Fprintf(p.out, "Assignments:     %d/%d done, %d overdue (%.0f%%)\n",
		s.AssignmentsCompleted, s.AssignmentsTotal, s.AssignmentsOverdue, s.CompletionRate)
	if len(s.Subjects) == 0 {
		return
	}
	fmt.Fprintln(p.out)
	t := table{header: []string{"SUBJECT", "TIME", "SHARE"}}
	for _, sub := range s.Subjects {
		t.add(sub.Subject, humanDuration(sub.Seconds), fmt.Sprintf("%.0f%%", sub.Percent))
	}
	t.render(p)
}

func (p *printer) journal(events []event.Event) {
	if len(events) == 0 {
		fmt.Fprintln(p.out, "No journal entries in range.")
		return
	}
	t := table{header: []string{"TIME", "TYPE", "TAG", "NOTES"}}
	for _, e := range events {
		t.add(e.Timestamp.Local().Format("2006-01-02 15:04:05"), string(e.Type), e.Tag, e.Notes)
	}
	t.render(p)
}
