package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sevlyar/go-daemon"

	"studyfocus/internal/app"
	"studyfocus/internal/config"
)

var (
	// Define command-line flags
	configPath = flag.String("c", "", "Path to configuration file (e.g., config.yaml). Defaults to ./config.yaml, ~/.config/studyfocus/config.yaml, /etc/studyfocus/config.yaml")
	logPath    = flag.String("log", "", "Path to log file (optional, defaults to stderr)")
	envPath    = flag.String("env", ".env", "Optional dotenv file with STUDYFOCUS_* overrides")
	daemonize  = flag.Bool("d", false, "Detach and run in the background (writes pid_file from the config)")
)

// daemonLogPath picks a log file next to the pid file, so a detached daemon
// never writes to a closed stderr.
func daemonLogPath(pidFile string) string {
	if pidFile == "" {
		return filepath.Join(os.TempDir(), "studyfocus.log")
	}
	return strings.TrimSuffix(pidFile, filepath.Ext(pidFile)) + ".log"
}

// setupLogging configures the log output destination.
func setupLogging(logFilePath string) (*os.File, error) {
	if logFilePath == "" {
		log.SetOutput(os.Stderr) // Default: log to standard error
		log.Println("Logging to stderr")
		return nil, nil
	}

	// Ensure the directory for the log file exists
	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0750); err != nil { // Use 0750 for permissions
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	// Open the log file for appending, create if it doesn't exist
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	log.SetOutput(file)                                              // Set log output to the file
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile) // Add microsecond and file/line info
	log.Printf("Logging to file: %s", logFilePath)
	return file, nil
}

func main() {

	// Parse the command-line flags provided by the user
	flag.Parse()

	// STUDYFOCUS_* variables from a .env file; real environment variables win
	if err := config.LoadEnvFile(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read env file %s: %v\n", *envPath, err)
	}

	// Load the application configuration
	// Uses viper which checks env vars and config files (./, ~/.config/studyfocus/, /etc/studyfocus/)
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// --- Optional Daemonization ---
	// The parent re-executes itself detached and exits; only the child gets
	// past Reborn. Logging is configured afterwards, in the child.
	if *daemonize {
		if *logPath == "" {
			*logPath = daemonLogPath(cfg.PidFile)
		}
		ctx := &daemon.Context{
			PidFileName: cfg.PidFile,
			PidFilePerm: 0644,
			LogFileName: *logPath,
			LogFilePerm: 0640,
			WorkDir:     "./",
			Umask:       027,
			Args:        os.Args,
		}
		child, err := ctx.Reborn()
		if err != nil {
			log.Fatalf("FATAL: Failed to daemonize: %v", err)
		}
		if child != nil { // Parent process
			fmt.Printf("StudyFocus daemon started (pid %d)\n", child.Pid)
			return
		}
		defer ctx.Release() // Removes the pid file on exit
	}
	// -----------------------------------------

	// Set up logging based on the -log flag

	logFile, logErr := setupLogging(*logPath)
	if logErr != nil {
		// If file logging fails, log the error to stderr and continue logging to stderr
		fmt.Fprintf(os.Stderr, "Error setting up file logging: %v. Logging to stderr instead.\n", logErr)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile) // Ensure flags are set for stderr too
	}
	// If a log file was successfully opened, ensure it's closed upon exit
	if logFile != nil {
		defer logFile.Close()
	}

	// Create the main application instance
	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to create application: %v", err)
	}

	// Run the application. This will block until the app exits (e.g., via Ctrl+C).
	if err := application.Run(); err != nil {
		// Log the error that caused the application to exit abnormally
		log.Fatalf("FATAL: Application exited with error: %v", err)
	}

	// Application exited gracefully
	log.Println("StudyFocus finished successfully.")
}
