package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"studyfocus/internal/event"
	"studyfocus/internal/ipc"
	"studyfocus/internal/stats"
	"studyfocus/internal/tui"
)

var (
	socketPath   string // --socket, falls back to $STUDYFOCUS_SOCKET_PATH then the default path
	outputFormat string
	out          *printer
)

var rootCmd = &cobra.Command{
	Use:   "studyfocus-cli",
	Short: "CLI tool to interact with the StudyFocus daemon",
	Long:  `A command-line interface to drive the study timer, manage assignments and browse achievements through the running StudyFocus daemon's Unix socket.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Resolve the socket and output settings once, before any subcommand runs
		if socketPath == "" {
			socketPath = os.Getenv("STUDYFOCUS_SOCKET_PATH")
		}
		out = &printer{
			out:    os.Stdout,
			format: strings.ToLower(outputFormat),
			color:  term.IsTerminal(int(os.Stdout.Fd())), // No escape codes when piped
		}
	},
	SilenceUsage: true, // Daemon errors are not usage errors
}

// --- Client Helper Functions ---

// call sends cmd and exits on any transport or daemon failure.
func call(cmd ipc.Command, data interface{}) string {
	msg, err := ipc.NewClient(socketPath).Call(cmd, data)
	if err != nil {
		var remote *ipc.RemoteError
		if errors.As(err, &remote) {
			// The daemon answered but refused the command
			fmt.Fprintf(os.Stderr, "Error: %s\n", remote.Message)
			os.Exit(1) // Exit with error code if command failed server-side
		}
		// Could not reach the daemon at all
		log.Fatalf("Error: %v\nIs the StudyFocus daemon running?", err)
	}
	return msg
}

// simple runs a command whose reply is a timer update.
func simple(name string, args interface{}) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		var u event.TimerUpdate
		msg := call(ipc.Command{Name: name, Args: args}, &u)
		return out.emit(u, func() {
			fmt.Println(msg)
			out.timer(u)
		})
	}
}

// --- Command Definitions ---

// Ping Command
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if the StudyFocus daemon is running",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(call(ipc.Command{Name: ipc.CmdPing}, nil))
	},
}

// Status Command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the timer, today's study time and streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		var s ipc.StatusData
		call(ipc.Command{Name: ipc.CmdGetStatus}, &s)
		return out.emit(s, func() { out.status(s) })
	},
}

// Timer Command Group
var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Control the study countdown",
}

var timerConfigureCmd = &cobra.Command{
	Use:   "configure [minutes]",
	Short: "Set the countdown length and optional session name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		cfgArgs := ipc.ConfigureArgs{Name: name}
		if len(args) == 0 {
			// No minutes given: the daemon applies timer.default_minutes
			cfgArgs.UseDefault = true
		} else {
			// Basic validation of the number (range checks happen in the daemon)
			minutes, err := cast.ToIntE(args[0])
			if err != nil {
				return fmt.Errorf("minutes must be a whole number: %w", err)
			}
			cfgArgs.Minutes = minutes
		}
		return simple(ipc.CmdTimerConfigure, cfgArgs)(cmd, args)
	},
}

var timerStartCmd = &cobra.Command{
	Use:     "start",
	Aliases: []string{"resume"},
	Short:   "Start or resume the countdown",
	RunE:    simple(ipc.CmdTimerStart, nil),
}

var timerPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the countdown",
	RunE:  simple(ipc.CmdTimerPause, nil),
}

// Stop saves partial progress unless --discard is given
var timerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the countdown, saving the time studied so far",
	RunE: func(cmd *cobra.Command, args []string) error {
		discard, _ := cmd.Flags().GetBool("discard")
		var data ipc.StopData
		msg := call(ipc.Command{Name: ipc.CmdTimerStop, Args: ipc.StopArgs{Discard: discard}}, &data)
		return out.emit(data, func() { fmt.Println(msg) })
	},
}

var timerResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the countdown without saving",
	RunE:  simple(ipc.CmdTimerReset, nil),
}

var timerDismissCmd = &cobra.Command{
	Use:   "dismiss",
	Short: "Acknowledge a finished countdown",
	RunE:  simple(ipc.CmdTimerDismiss, nil),
}

// Sessions Command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved study sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		var list []event.StudySession
		call(ipc.Command{Name: ipc.CmdSessionList}, &list)
		return out.emit(list, func() { out.sessions(list) })
	},
}

// Assignment Command Group
var assignmentCmd = &cobra.Command{
	Use:     "assignment",
	Aliases: []string{"assignments", "hw"},
	Short:   "Manage assignments",
}

var assignmentAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add an assignment (--due accepts 2006-01-02, '2006-01-02 15:04' or RFC 3339)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Due date parsing happens in the daemon, in its configured timezone
		due, _ := cmd.Flags().GetString("due")
		subject, _ := cmd.Flags().GetString("subject")
		description, _ := cmd.Flags().GetString("description")
		var added event.Assignment
		msg := call(ipc.Command{
			Name: ipc.CmdAssignmentAdd,
			Args: ipc.AssignmentAddArgs{
				Title:       strings.Join(args, " "),
				Description: description,
				Subject:     subject,
				Due:         due,
			},
		}, &added)
		return out.emit(added, func() { fmt.Printf("%s (id %s)\n", msg, added.ID) })
	},
}

// assignmentByID builds the complete/reopen/delete subcommands, which all
// take a single assignment id.
func assignmentByID(name string) *cobra.Command {
	verb := strings.TrimPrefix(name, "assignment_")
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: titleCase.String(verb) + " an assignment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(call(ipc.Command{Name: name, Args: ipc.AssignmentIDArgs{ID: args[0]}}, nil))
		},
	}
}

var assignmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assignments, open ones first by due date",
	RunE: func(cmd *cobra.Command, args []string) error {
		var list []event.Assignment
		call(ipc.Command{Name: ipc.CmdAssignmentList}, &list)
		return out.emit(list, func() { out.assignments(list, time.Now()) })
	},
}

// Achievements Command
var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "Show the achievement catalog and what is unlocked",
	RunE: func(cmd *cobra.Command, args []string) error {
		onlyUnlocked, _ := cmd.Flags().GetBool("unlocked")
		var list []ipc.AchievementView
		call(ipc.Command{Name: ipc.CmdAchievementList}, &list)
		return out.emit(list, func() { out.achievements(list, onlyUnlocked) })
	},
}

// Stats Command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize study time, streaks and assignments",
	RunE: func(cmd *cobra.Command, args []string) error {
		var s stats.Summary
		call(ipc.Command{Name: ipc.CmdStats}, &s)
		return out.emit(s, func() { out.stats(s) })
	},
}

// Notes Command Group
var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Show or replace the scratch notes",
}

var notesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		var n ipc.NotesData
		call(ipc.Command{Name: ipc.CmdNotesGet}, &n)
		return out.emit(n, func() { fmt.Println(n.Text) })
	},
}

var notesSetCmd = &cobra.Command{
	Use:   "set <text>",
	Short: "Replace the notes",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(call(ipc.Command{Name: ipc.CmdNotesSet, Args: ipc.NotesSetArgs{Text: strings.Join(args, " ")}}, nil))
	},
}

// Journal Command
var journalCmd = &cobra.Command{
	Use:   "journal [days]",
	Short: "Show the activity journal for the last few days (default 7)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var days int
		if len(args) == 1 {
			n, err := cast.ToIntE(args[0])
			if err != nil {
				return fmt.Errorf("days must be a whole number: %w", err)
			}
			days = n
		}
		var events []event.Event
		call(ipc.Command{Name: ipc.CmdJournal, Args: ipc.JournalArgs{Days: days}}, &events)
		return out.emit(events, func() { out.journal(events) })
	},
}

// Dashboard Command
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive terminal dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("dashboard needs an interactive terminal")
		}
		// Fail fast instead of opening a screen that can only show errors
		client := ipc.NewClient(socketPath)
		if _, err := client.Call(ipc.Command{Name: ipc.CmdPing}, nil); err != nil {
			return fmt.Errorf("%w\nIs the StudyFocus daemon running?", err)
		}
		// keep log output from scribbling over the screen
		log.SetOutput(io.Discard)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return tui.New(client).Run(ctx)
	},
}

func main() {
	// --- Global Flags ---
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "Daemon socket path (default $STUDYFOCUS_SOCKET_PATH or "+ipc.DefaultSocketPath+")")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json or yaml")

	// --- Timer Commands ---
	timerConfigureCmd.Flags().StringP("name", "n", "", "Session name, used as the subject of the saved session")
	timerStopCmd.Flags().Bool("discard", false, "Do not save the partial session")
	timerCmd.AddCommand(timerConfigureCmd, timerStartCmd, timerPauseCmd, timerStopCmd, timerResetCmd, timerDismissCmd)
	rootCmd.AddCommand(timerCmd)

	// --- Assignment Commands ---
	assignmentAddCmd.Flags().StringP("due", "d", "", "Due date (required)")
	assignmentAddCmd.Flags().StringP("subject", "s", "", "Subject label")
	assignmentAddCmd.Flags().String("description", "", "Longer description")
	assignmentAddCmd.MarkFlagRequired("due")
	assignmentCmd.AddCommand(
		assignmentAddCmd,
		assignmentByID(ipc.CmdAssignmentComplete),
		assignmentByID(ipc.CmdAssignmentReopen),
		assignmentByID(ipc.CmdAssignmentDelete),
		assignmentListCmd,
	)
	rootCmd.AddCommand(assignmentCmd)

	// --- Notes Commands ---
	notesCmd.AddCommand(notesShowCmd, notesSetCmd)
	rootCmd.AddCommand(notesCmd)

	// --- Other Commands ---
	achievementsCmd.Flags().BoolP("unlocked", "u", false, "Only list unlocked achievements")
	rootCmd.AddCommand(pingCmd, statusCmd, sessionsCmd, achievementsCmd, statsCmd, journalCmd, dashboardCmd)

	// --- Execute ---
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
