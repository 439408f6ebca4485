package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/researchflow/internal/models"
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps for tracking run flow.
// It supports log level filtering to control message verbosity.
// Color output is automatically enabled when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive); anything
// else falls back to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is a TTY that should receive ANSI colors.
// NO_COLOR (via color.NoColor) disables colors everywhere.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
// Format: "[HH:MM:SS] [WARN] <message>"
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, colorLevel(level), message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}
	cl.writer.Write([]byte(formatted))
}

func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// LogPhase logs a phase transition at INFO level, or ERROR when the run
// moves to the failed phase.
// Format: "[HH:MM:SS] [INFO] [<run>] planning -> executing: <message>"
func (cl *ConsoleLogger) LogPhase(runID string, from, to models.Phase, message string) {
	arrow := fmt.Sprintf("%s -> %s", from, to)
	if cl.colorOutput {
		switch to {
		case models.PhaseCompleted:
			arrow = color.New(color.FgGreen).Sprint(arrow)
		case models.PhaseFailed:
			arrow = color.New(color.FgRed).Sprint(arrow)
		default:
			arrow = color.New(color.Bold).Sprint(arrow)
		}
	}

	level := "INFO"
	if to == models.PhaseFailed {
		level = "ERROR"
	}
	line := fmt.Sprintf("[%s] %s", shortID(runID), arrow)
	if message != "" {
		line += ": " + message
	}
	cl.logWithLevel(level, line)
}

// LogTaskOutcome logs one recorded task outcome. Successes are INFO, failures
// and timeouts are WARN.
func (cl *ConsoleLogger) LogTaskOutcome(runID string, outcome models.TaskOutcome) {
	text := outcomeText(outcome)
	if cl.colorOutput {
		switch outcome.Status {
		case models.StatusSuccess:
			text = color.New(color.FgGreen).Sprint(text)
		case models.StatusTimedOut:
			text = color.New(color.FgYellow).Sprint(text)
		default:
			text = color.New(color.FgRed).Sprint(text)
		}
	}
	cl.logWithLevel(outcomeLevel(outcome), fmt.Sprintf("[%s] %s", shortID(runID), text))
}

// LogProgress logs task progress at INFO level.
// Format: "[HH:MM:SS] [INFO] [<run>] Progress: [=====     ] 2/4 (50%)"
func (cl *ConsoleLogger) LogProgress(runID string, done, total int) {
	pb := NewProgressBar(total, 10, cl.colorOutput)
	pb.Update(done)
	cl.logWithLevel("INFO", fmt.Sprintf("[%s] Progress: %s", shortID(runID), pb.Render()))
}

// LogSummary logs the run summary block at INFO level.
func (cl *ConsoleLogger) LogSummary(snapshot models.Snapshot) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	status := runStatus(snapshot)
	var sb strings.Builder
	for i, line := range summaryLines(snapshot) {
		if cl.colorOutput {
			switch {
			case i == 0:
				line = color.New(color.Bold).Sprint(line)
			case strings.HasPrefix(line, "Status:"):
				line = statusColor(status).Sprint(line)
			case strings.HasPrefix(line, "Error:"), strings.HasPrefix(line, "  - "):
				line = color.New(color.FgRed).Sprint(line)
			}
		}
		fmt.Fprintf(&sb, "[%s] %s\n", ts, line)
	}
	cl.writer.Write([]byte(sb.String()))
}

func statusColor(status string) *color.Color {
	switch status {
	case "SUCCESS":
		return color.New(color.FgGreen)
	case "PARTIAL", "EMPTY":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}
