// Package tui is a terminal dashboard for a running daemon.
package tui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/tview"

	"studyfocus/internal/event"
	"studyfocus/internal/ipc"
)

const (
	refreshInterval = time.Second
	barWidth        = 40
)

var (
	barStart, _ = colorful.Hex("#4caf50")
	barEnd, _   = colorful.Hex("#f44336")
)

// Caller is the part of ipc.Client the dashboard needs.
type Caller interface {
	Call(cmd ipc.Command, out interface{}) (string, error)
}

type Dashboard struct {
	client Caller
	app    *tview.Application
	timer  *tview.TextView
	info   *tview.TextView
	footer *tview.TextView

	mu      sync.Mutex
	message string
}

func New(client Caller) *Dashboard {
	d := &Dashboard{
		client: client,
		app:    tview.NewApplication(),
		timer:  tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter),
		info:   tview.NewTextView().SetDynamicColors(true),
		footer: tview.NewTextView().SetDynamicColors(true),
	}
	d.timer.SetBorder(true).SetTitle(" Study Timer ")
	d.info.SetBorder(true).SetTitle(" Today ")

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.timer, 7, 0, false).
		AddItem(d.info, 0, 1, false).
		AddItem(d.footer, 2, 0, false)

	d.app.SetRoot(layout, true)
	d.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			d.app.Stop()
			return nil
		}
		if ev.Key() == tcell.KeyRune && d.handleKey(ev.Rune()) {
			return nil
		}
		return ev
	})
	return d
}

// Run blocks until the user quits or ctx is cancelled.
func (d *Dashboard) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			d.app.QueueUpdateDraw(d.poll())
			select {
			case <-ctx.Done():
				d.app.Stop()
				return
			case <-ticker.C:
			}
		}
	}()
	return d.app.Run()
}

// handleKey maps a key to a daemon command. It reports whether the key was used.
func (d *Dashboard) handleKey(r rune) bool {
	var cmd ipc.Command
	switch r {
	case 's':
		cmd = ipc.Command{Name: ipc.CmdTimerStart}
	case 'p':
		cmd = ipc.Command{Name: ipc.CmdTimerPause}
	case 'x':
		cmd = ipc.Command{Name: ipc.CmdTimerStop}
	case 'r':
		cmd = ipc.Command{Name: ipc.CmdTimerReset}
	case 'd':
		cmd = ipc.Command{Name: ipc.CmdTimerDismiss}
	case 'n':
		cmd = ipc.Command{Name: ipc.CmdTimerConfigure, Args: ipc.ConfigureArgs{UseDefault: true}}
	case 'q':
		d.app.Stop()
		return true
	default:
		return false
	}

	go func() {
		msg, err := d.client.Call(cmd, nil)
		d.mu.Lock()
		if err != nil {
			d.message = "[red]" + tview.Escape(err.Error())
		} else {
			d.message = "[green]" + tview.Escape(msg)
		}
		d.mu.Unlock()
		d.app.QueueUpdateDraw(d.poll())
	}()
	return true
}

// poll fetches the status on the calling goroutine and returns the view
// update to queue on the UI goroutine, so a slow daemon never stalls drawing.
func (d *Dashboard) poll() func() {
	var status ipc.StatusData
	_, err := d.client.Call(ipc.Command{Name: ipc.CmdGetStatus}, &status)
	if err != nil {
		log.Printf("Dashboard: status failed: %v", err)
	}
	d.mu.Lock()
	msg := d.message
	d.mu.Unlock()
	return func() { d.show(status, err, msg) }
}

func (d *Dashboard) show(status ipc.StatusData, err error, msg string) {
	if err != nil {
		d.timer.SetText("[red]daemon unavailable[-]\n" + tview.Escape(err.Error()))
		return
	}
	d.timer.SetText(renderTimer(status.Timer, barWidth))
	d.info.SetText(renderInfo(status))
	d.footer.SetText("[::d]n[-:-:-] new  [::d]s[-:-:-] start  [::d]p[-:-:-] pause  [::d]x[-:-:-] stop+save  [::d]r[-:-:-] reset  [::d]d[-:-:-] dismiss  [::d]q[-:-:-] quit\n" + msg)
}

func renderTimer(u event.TimerUpdate, width int) string {
	if u.Status == event.TimerUnconfigured {
		return "\n[::d]No timer set. Press n for a default session.[-:-:-]"
	}
	name := u.SessionName
	if name == "" {
		name = "Study Session"
	}
	var fraction float64
	if u.InitialTime > 0 {
		fraction = float64(u.InitialTime-u.Remaining) / float64(u.InitialTime)
	}
	return fmt.Sprintf("%s  [::b]%s[-:-:-]\n\n[::b]%s[-:-:-]  %s\n\n%s",
		tview.Escape(name), strings.ToUpper(string(u.Status)),
		clockText(u.Remaining), statusHint(u.Status), progressBar(fraction, width))
}

func renderInfo(s ipc.StatusData) string {
	text := fmt.Sprintf("Studied today:  %s\nCurrent streak: %d day(s)\nAchievements:   %d / %d\nStorage:        %s",
		clockText(s.TodaySeconds), s.CurrentStreak, s.UnlockedCount, s.AchievementsTotal, s.StorageBackend)
	if s.FocusedApp != "" {
		text += "\nFocused app:    " + tview.Escape(s.FocusedApp)
	}
	return text
}

func statusHint(st event.TimerStatus) string {
	switch st {
	case event.TimerCompleted:
		return "[green]done, press d to dismiss[-]"
	case event.TimerPaused:
		return "[yellow]paused[-]"
	case event.TimerIdle:
		return "[::d]ready[-:-:-]"
	default:
		return ""
	}
}

func clockText(seconds int) string {
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// progressBar draws fraction (0..1) of width cells in a colour that moves from
// green toward red as the session runs out.
func progressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return fmt.Sprintf("[%s]%s[-][::d]%s[-:-:-]",
		progressColor(fraction), strings.Repeat("█", filled), strings.Repeat("░", width-filled))
}

func progressColor(fraction float64) string {
	switch {
	case fraction <= 0:
		return barStart.Hex()
	case fraction >= 1:
		return barEnd.Hex()
	}
	return barStart.BlendLuv(barEnd, fraction).Clamped().Hex()
}
