package x11

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"studyfocus/internal/collector"
	"studyfocus/internal/event"
)

type X11Collector struct {
	X            *xgbutil.XUtil
	tracker      collector.Tracker
	stopChan     chan struct{}
	focusRequest chan chan event.FocusInfo
}

var _ collector.Collector = (*X11Collector)(nil)

func NewX11Collector() (*X11Collector, error) {
	X, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	// _NET_ACTIVE_WINDOW and _NET_WM_NAME need an EWMH window manager
	if _, err := ewmh.CurrentDesktopGet(X); err != nil {
		log.Printf("Warning: EWMH potentially not supported by Window Manager: %v", err)
	}

	return &X11Collector{
		X:            X,
		stopChan:     make(chan struct{}),
		focusRequest: make(chan chan event.FocusInfo),
	}, nil
}

func (c *X11Collector) getActiveWindowInfo() (event.FocusInfo, error) {
	activeWinID, err := ewmh.ActiveWindowGet(c.X)
	if err != nil {
		return event.FocusInfo{}, fmt.Errorf("could not get active window ID: %w", err)
	}
	if activeWinID == 0 {
		return event.FocusInfo{AppName: "None", Title: "No Active Window"}, nil
	}

	title, err := ewmh.WmNameGet(c.X, activeWinID)
	if err != nil || title == "" {
		title, _ = icccm.WmNameGet(c.X, activeWinID)
	}

	var appName string
	if classHints, err := icccm.WmClassGet(c.X, activeWinID); err == nil && classHints != nil {
		appName = classHints.Class
	}

	return collector.Normalize(event.FocusInfo{AppName: appName, Title: title}), nil
}

// Start polls the active window every interval and publishes each change.
func (c *X11Collector) Start(ctx context.Context, interval time.Duration, pub event.Publisher) error {
	log.Printf("Starting X11 focus watcher (interval: %s)", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// the window manager may not answer immediately after login
	var err error
	for i := 0; i < 3; i++ {
		var initial event.FocusInfo
		if initial, err = c.getActiveWindowInfo(); err == nil {
			c.tracker.Observe(initial)
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		log.Printf("Warning: Failed to get initial window focus: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("X11 focus watcher stopping due to context cancellation.")
			return ctx.Err()
		case <-c.stopChan:
			log.Println("X11 focus watcher stopping.")
			return nil
		case respChan := <-c.focusRequest:
			current, err := c.getActiveWindowInfo()
			if err != nil {
				log.Printf("Error getting current focus on request: %v", err)
			}
			respChan <- current
		case <-ticker.C:
			current, err := c.getActiveWindowInfo()
			if err != nil {
				continue
			}
			if c.tracker.Observe(current) {
				pub.Publish(current)
			}
		}
	}
}

func (c *X11Collector) CurrentFocus() (event.FocusInfo, error) {
	respChan := make(chan event.FocusInfo, 1)
	select {
	case c.focusRequest <- respChan:
		select {
		case focus := <-respChan:
			return focus, nil
		case <-time.After(1 * time.Second):
			return event.FocusInfo{}, fmt.Errorf("timeout waiting for current focus response")
		}
	case <-time.After(100 * time.Millisecond):
		return event.FocusInfo{}, fmt.Errorf("timeout sending focus request to collector")
	}
}

func (c *X11Collector) Stop() error {
	log.Println("Sending stop signal to X11 focus watcher.")
	close(c.stopChan)
	c.X.Conn().Close()
	return nil
}
