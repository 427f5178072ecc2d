package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"studyfocus/internal/achievement"
	"studyfocus/internal/assignment"
	"studyfocus/internal/clock"
	"studyfocus/internal/collector"
	"studyfocus/internal/collector/x11"
	"studyfocus/internal/config"
	"studyfocus/internal/event"
	"studyfocus/internal/ipc"
	"studyfocus/internal/session"
	"studyfocus/internal/storage"
	"studyfocus/internal/storage/filestore"
	sqlitestore "studyfocus/internal/storage/sqlite"
	"studyfocus/internal/timer"
)

const focusPollInterval = 2 * time.Second

type App struct {
	cfg     *config.Config
	storage storage.Storage
	backend string
	clock   clock.Clock
	loc     *time.Location

	// Core services; each persists through storage
	timer        *timer.Engine
	sessions     *session.Log
	assignments  *assignment.Log
	achievements *achievement.Engine
	focus        collector.Collector

	// --- Socket Handling ---
	socketPath string
	listener   *net.UnixListener

	// updates carries everything the components publish to mainLoop
	updates chan interface{}

	// Lifecycle of every goroutine the daemon starts
	wg     conc.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	// timer.default_minutes, replaced on config reload
	defaultsMu     sync.RWMutex
	defaultMinutes int
}

func NewApp(cfg *config.Config) (*App, error) {
	// Initialize Storage
	store, backend := openStorage(cfg)
	a := newApp(cfg, store, backend, clock.System{})

	// Initialize X11 Collector
	if cfg.FocusWake {
		x, err := x11.NewX11Collector()
		if err != nil {
			log.Printf("Warning: Failed to initialize X11 collector: %v. Focus wake disabled.", err)
		} else {
			a.focus = x
		}
	}
	return a, nil
}

// openStorage initializes the configured backend. If it is unusable the
// daemon keeps running on an in-memory store and says so.
func openStorage(cfg *config.Config) (storage.Storage, string) {
	var store storage.Storage
	switch cfg.Storage.Backend {
	case "file":
		store = filestore.NewOS(cfg.Storage.DataDir)
	default:
		if dir := filepath.Dir(cfg.Storage.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				log.Printf("Warning: Failed to create database directory %s: %v", dir, err)
			}
		}
		store = sqlitestore.NewSQLiteStore(cfg.Storage.DatabasePath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		log.Printf("Warning: Failed to initialize %s storage: %v. Data will not survive a restart.", cfg.Storage.Backend, err)
		mem := filestore.NewMemory()
		if err := mem.Init(ctx); err != nil {
			log.Printf("Warning: In-memory store failed to initialize: %v", err)
		}
		return mem, "memory"
	}
	return store, cfg.Storage.Backend
}

func newApp(cfg *config.Config, store storage.Storage, backend string, clk clock.Clock) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:            cfg,
		storage:        store,
		backend:        backend,
		clock:          clk,
		loc:            cfg.Location(),
		socketPath:     cfg.SocketPath,
		updates:        make(chan interface{}, 100),
		ctx:            ctx,
		cancel:         cancel,
		defaultMinutes: cfg.Timer.DefaultMinutes,
	}
	if a.socketPath == "" {
		a.socketPath = ipc.DefaultSocketPath // Use constant
	}

	// All components publish into the same update channel consumed by mainLoop
	pub := event.NewChannelPublisher(ctx, a.updates, time.Second)
	a.sessions = session.NewLog(store, pub)
	a.assignments = assignment.NewLog(store, pub, clk)
	a.achievements = achievement.NewEngine(store, achievement.Options{Clock: clk, Publisher: pub, Location: a.loc})
	a.timer = timer.NewEngine(store, a.sessions, timer.Options{
		Interval:  cfg.Timer.TickInterval(),
		Clock:     clk,
		Publisher: pub,
	})
	return a
}

// setupSocket checks for existing socket and creates the listener
func (a *App) setupSocket() error {
	// Check if socket file exists and try connecting
	if _, err := os.Stat(a.socketPath); err == nil {
		// Socket file exists, try to connect
		conn, err := net.DialTimeout("unix", a.socketPath, 1*time.Second)
		if err == nil {
			// Connection successful - another instance is likely running
			conn.Close()
			return fmt.Errorf("socket %s already active, another instance might be running", a.socketPath)
		}
		// Connection failed - socket file is stale, remove it
		log.Printf("Stale socket file found at %s, removing.", a.socketPath)
		if err := os.Remove(a.socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket file %s: %w", a.socketPath, err)
		}
	} else if !os.IsNotExist(err) {
		// Other error stating the file (permission denied?)
		return fmt.Errorf("error checking socket file %s: %w", a.socketPath, err)
	}

	// Resolve the address
	addr, err := net.ResolveUnixAddr("unix", a.socketPath)
	if err != nil {
		return fmt.Errorf("failed to resolve unix addr %s: %w", a.socketPath, err)
	}
	// Listen on the socket
	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", a.socketPath, err)
	}
	// Set permissions: the socket controls personal data, user only R/W
	if err := os.Chmod(a.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set permissions on socket %s: %w", a.socketPath, err)
	}

	a.listener = listener
	log.Printf("Listening for commands on %s", a.socketPath)
	return nil
}

// listenForCommands accepts connections and handles them
func (a *App) listenForCommands() {
	defer log.Println("Socket command listener stopped.")

	for {
		conn, err := a.listener.AcceptUnix()
		if err != nil {
			// Check if the error is due to the listener being closed
			select {
			case <-a.ctx.Done():
				return // Expected error on shutdown
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// Avoid tight loop on persistent error
			log.Printf("Failed to accept connection: %v", err)
			time.Sleep(100 * time.Millisecond) // Small delay before retrying
			continue
		}
		// Handle each connection in a new goroutine
		a.wg.Go(func() { a.handleConnection(conn) })
	}
}

// handleConnection reads command, processes it, and sends response
func (a *App) handleConnection(conn *net.UnixConn) {
	defer conn.Close()

	// Set a deadline for reading the command
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var cmd ipc.Command
	if err := decoder.Decode(&cmd); err != nil {
		if err != io.EOF {
			log.Printf("Failed to decode command: %v", err)
		}
		// Send error response even if decoding failed partially
		_ = encoder.Encode(ipc.Response{Success: false, Message: "Failed to decode command: " + err.Error()})
		return
	}

	// Reset read deadline
	conn.SetReadDeadline(time.Time{})
	// Set write deadline for response
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	log.Printf("Received command: %s", cmd.Name)

	// Process command and send response
	if err := encoder.Encode(a.processCommand(cmd)); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

func (a *App) Run() error {
	defer a.cleanup() // Ensure cleanup runs

	log.Println("Starting StudyFocus daemon...")
	log.Printf("Storage backend: %s", a.backend)
	if a.focus == nil {
		log.Println("X11 focus wake: DISABLED")
	} else {
		log.Println("X11 focus wake: ENABLED")
	}

	// --- Setup Socket ---
	if err := a.setupSocket(); err != nil {
		a.cancel()
		return err
	}

	// Start signal handling
	stopSignals := a.handleSignals()
	defer stopSignals()

	// Start main application loop before restoring the timer, so a missed
	// completion found on restore is evaluated like any other
	a.wg.Go(a.mainLoop)
	a.timer.Restore(a.ctx)

	// Apply config file edits without a restart
	a.cfg.Watch(func(next *config.Config) {
		a.timer.SetInterval(next.Timer.TickInterval())
		a.defaultsMu.Lock()
		a.defaultMinutes = next.Timer.DefaultMinutes
		a.defaultsMu.Unlock()
		log.Printf("Applied config change: tick interval %s, default %d min", next.Timer.TickInterval(), next.Timer.DefaultMinutes)
	})

	// Start X11 collector if initialized
	if a.focus != nil {
		pub := event.NewChannelPublisher(a.ctx, a.updates, time.Second)
		a.wg.Go(func() {
			err := a.focus.Start(a.ctx, focusPollInterval, pub)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("X11 collector error: %v", err)
			}
		})
	}

	// --- Start Socket Listener ---
	a.wg.Go(a.listenForCommands)

	// Record App Start event
	storage.Journal(a.ctx, a.storage, event.Event{Timestamp: a.clock.Now(), Type: event.EventTypeAppStart})

	log.Println("StudyFocus daemon running. Send commands via studyfocus-cli or socket.")
	<-a.ctx.Done() // Block here until context is cancelled

	log.Println("Shutdown signal received, waiting for components...")
	// Close the listener *before* waiting for goroutines to allow accept() to return
	if a.listener != nil {
		if err := a.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("Error closing socket listener: %v", err)
		}
	}

	waitChan := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(waitChan)
	}()
	select {
	case <-waitChan:
		log.Println("All application goroutines finished.")
	case <-time.After(5 * time.Second):
		log.Println("Warning: Timeout waiting for application goroutines to stop.")
	}

	log.Println("StudyFocus daemon finished.")
	return nil
}

// Shutdown asks Run to return.
func (a *App) Shutdown() {
	a.cancel()
}

// mainLoop consumes every update published by the components. Achievement
// evaluation runs here, after the triggering write has been persisted.
func (a *App) mainLoop() {
	defer log.Println("Main application loop stopped.")

	for {
		select {
		case <-a.ctx.Done():
			return // Exit loop on context cancellation

		case update := <-a.updates:
			switch u := update.(type) {
			case event.SessionSaved:
				// The session log persisted before publishing, so List includes it
				a.achievements.Evaluate(a.ctx, achievement.Input{
					Sessions:     a.sessions.List(a.ctx),
					Assignments:  a.assignments.List(a.ctx),
					NewSessionID: u.Session.ID,
				})

			case event.AssignmentUpdated:
				list := a.assignments.List(a.ctx)
				a.achievements.Evaluate(a.ctx, achievement.Input{
					Sessions:        a.sessions.List(a.ctx),
					Assignments:     list,
					NewAssignmentID: assignment.MostRecentlyCompleted(list),
				})

			case event.TimerFinished:
				// TODO: desktop notifications (e.g. via dbus) for completed sessions
				log.Printf("Notification: [Session complete] %s (%s)",
					u.Session.Name, formatDuration(time.Duration(u.Session.Duration)*time.Second))

			case event.AchievementUnlocked:
				log.Printf("Notification: [Achievement unlocked] %s: %s", u.Achievement.Name, u.Achievement.Description)

			case event.Notification:
				log.Printf("Notification: [%s] %s", u.Title, u.Message)

			case event.FocusInfo:
				// Focus returning to the desktop doubles as a wake-up for the timer
				log.Printf("Focus Changed: App='%s', Title='%s'", u.AppName, collector.Truncate(u.Title, 80))
				storage.Journal(a.ctx, a.storage, event.Event{
					Timestamp: a.clock.Now(),
					Type:      event.EventTypeFocusChange,
					Tag:       u.AppName,
					Notes:     collector.Truncate(u.Title, 120),
				})
				a.timer.Wake(a.ctx)

			default:
				log.Printf("Unknown update type: %T", u)
			}
		}
	}
}

// handleSignals shuts down on SIGINT/SIGTERM and recomputes the timer on
// SIGCONT, which is delivered when a stopped process resumes.
func (a *App) handleSignals() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGCONT)

	a.wg.Go(func() {
		for {
			select {
			case <-a.ctx.Done():
				return
			case sig := <-sigChan:
				if sig == syscall.SIGCONT {
					log.Println("Resumed after stop, recomputing timer.")
					a.timer.Wake(a.ctx)
					continue
				}
				log.Printf("Received signal: %v. Initiating shutdown...", sig)
				a.cancel() // Trigger context cancellation for graceful shutdown
				return
			}
		}
	})
	return func() { signal.Stop(sigChan) }
}

func (a *App) cleanup() {
	log.Println("Running cleanup...")

	// Record App Stop event
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer saveCancel()
	storage.Journal(saveCtx, a.storage, event.Event{Timestamp: a.clock.Now(), Type: event.EventTypeAppStop})

	// Stop components
	a.timer.Close()

	var err error
	if a.focus != nil {
		err = multierr.Append(err, a.focus.Stop())
	}
	// Close storage
	if a.storage != nil {
		err = multierr.Append(err, a.storage.Close())
	}
	// --- Remove Socket File ---
	// Note: Listener is closed in Run() before wg.Wait()
	if _, statErr := os.Stat(a.socketPath); statErr == nil && a.listener != nil {
		log.Printf("Removing socket file: %s", a.socketPath)
		err = multierr.Append(err, os.Remove(a.socketPath))
	}
	for _, e := range multierr.Errors(err) {
		log.Printf("Warning: Cleanup error: %v", e)
	}

	log.Println("Cleanup finished.")
}

func (a *App) defaultDuration() int {
	a.defaultsMu.RLock()
	defer a.defaultsMu.RUnlock()
	return a.defaultMinutes
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
