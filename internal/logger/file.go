package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/researchflow/internal/models"
)

// FileLogger logs run events to files under a log directory.
// It creates a timestamped log file per process, a per-run summary file in
// runs/, and maintains a latest.log symlink pointing to the newest log.
// It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	runsDir  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing to logDir with level "info".
func NewFileLogger(logDir string) (*FileLogger, error) {
	return NewFileLoggerWithLevel(logDir, "info")
}

// NewFileLoggerWithLevel creates a FileLogger writing to logDir.
// It creates the directory if needed, opens a run-YYYYMMDD-HHMMSS.log file
// and points latest.log at it.
func NewFileLoggerWithLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	runsDir := filepath.Join(logDir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", stamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		runsDir:  runsDir,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.writeRunLog("=== researchflow log ===\n")
	fl.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// Path returns the path of the log file being written.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message.
func (fl *FileLogger) LogTrace(message string) { fl.logWithLevel("TRACE", message) }

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) { fl.logWithLevel("DEBUG", message) }

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) { fl.logWithLevel("INFO", message) }

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) { fl.logWithLevel("WARN", message) }

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) { fl.logWithLevel("ERROR", message) }

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogPhase records a phase transition.
func (fl *FileLogger) LogPhase(runID string, from, to models.Phase, message string) {
	level := "INFO"
	if to == models.PhaseFailed {
		level = "ERROR"
	}
	line := fmt.Sprintf("[%s] %s -> %s", runID, from, to)
	if message != "" {
		line += ": " + message
	}
	fl.logWithLevel(level, line)
}

// LogTaskOutcome records one task outcome.
func (fl *FileLogger) LogTaskOutcome(runID string, outcome models.TaskOutcome) {
	fl.logWithLevel(outcomeLevel(outcome), fmt.Sprintf("[%s] %s", runID, outcomeText(outcome)))
}

// LogProgress is a no-op: progress bars are console-only.
func (fl *FileLogger) LogProgress(runID string, done, total int) {}

// LogSummary appends the summary block to the log and writes the full
// snapshot to runs/<run-id>.json.
func (fl *FileLogger) LogSummary(snapshot models.Snapshot) {
	if fl.shouldLog("info") {
		ts := timestamp()
		var sb strings.Builder
		sb.WriteString("\n")
		for _, line := range summaryLines(snapshot) {
			fmt.Fprintf(&sb, "[%s] %s\n", ts, line)
		}
		fl.writeRunLog(sb.String())
	}

	if err := fl.writeSnapshot(snapshot); err != nil {
		fl.logWithLevel("WARN", fmt.Sprintf("[%s] %v", snapshot.RunID, err))
	}
}

func (fl *FileLogger) writeSnapshot(snapshot models.Snapshot) error {
	if snapshot.RunID == "" {
		return nil
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run snapshot: %w", err)
	}
	path := filepath.Join(fl.runsDir, snapshot.RunID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run snapshot: %w", err)
	}
	return nil
}

// Close flushes and closes the log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		// Flush after each write for real-time tailing
		fl.runLog.Sync()
	}
}
