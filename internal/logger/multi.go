package logger

import "github.com/harrison/researchflow/internal/models"

// RunLogger is the set of run events every logger in this package accepts.
type RunLogger interface {
	LogPhase(runID string, from, to models.Phase, message string)
	LogTaskOutcome(runID string, outcome models.TaskOutcome)
	LogProgress(runID string, done, total int)
	LogSummary(snapshot models.Snapshot)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// MultiLogger fans every event out to several loggers in order.
type MultiLogger struct {
	loggers []RunLogger
}

// Multi combines loggers, skipping nil entries.
func Multi(loggers ...RunLogger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) LogPhase(runID string, from, to models.Phase, message string) {
	for _, l := range m.loggers {
		l.LogPhase(runID, from, to, message)
	}
}

func (m *MultiLogger) LogTaskOutcome(runID string, outcome models.TaskOutcome) {
	for _, l := range m.loggers {
		l.LogTaskOutcome(runID, outcome)
	}
}

func (m *MultiLogger) LogProgress(runID string, done, total int) {
	for _, l := range m.loggers {
		l.LogProgress(runID, done, total)
	}
}

func (m *MultiLogger) LogSummary(snapshot models.Snapshot) {
	for _, l := range m.loggers {
		l.LogSummary(snapshot)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

// NoOpLogger discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) LogPhase(string, models.Phase, models.Phase, string) {}
func (n *NoOpLogger) LogTaskOutcome(string, models.TaskOutcome)           {}
func (n *NoOpLogger) LogProgress(string, int, int)                        {}
func (n *NoOpLogger) LogSummary(models.Snapshot)                          {}
func (n *NoOpLogger) LogInfo(string)                                      {}
func (n *NoOpLogger) LogWarn(string)                                      {}
func (n *NoOpLogger) LogError(string)                                     {}
