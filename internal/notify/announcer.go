package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harrison/researchflow/internal/models"
)

// Sender delivers one event.
type Sender interface {
	Wants(eventType string) bool
	Send(ctx context.Context, ev Event) error
}

// Warner receives delivery failures.
type Warner interface {
	LogWarn(message string)
}

// Announcer turns workflow events into webhook notifications. Delivery is
// asynchronous; Close waits for pending deliveries.
type Announcer struct {
	sender Sender
	warn   Warner
	now    func() time.Time

	wg sync.WaitGroup
}

// NewAnnouncer creates an Announcer. warn may be nil.
func NewAnnouncer(sender Sender, warn Warner) *Announcer {
	return &Announcer{sender: sender, warn: warn, now: time.Now}
}

// LogPhase announces the start of a run.
func (a *Announcer) LogPhase(runID string, from, to models.Phase, message string) {
	if to != models.PhasePlanning || from != models.PhaseCreated {
		return
	}
	if message == "" {
		message = "Run started"
	}
	a.dispatch(Event{Type: EventRunStarted, RunID: runID, Phase: to, Message: message})
}

// LogTaskOutcome announces tasks that failed or timed out.
func (a *Announcer) LogTaskOutcome(runID string, o models.TaskOutcome) {
	if o.Succeeded() {
		return
	}
	ev := Event{
		Type:       EventTaskFailed,
		RunID:      runID,
		Status:     string(o.Status),
		Message:    fmt.Sprintf("Task %s %s", o.TaskID, o.Status),
		TaskID:     o.TaskID,
		Capability: o.Capability,
	}
	if o.Error != nil {
		ev.ErrorKind = o.Error.Kind
		ev.Message += ": " + o.Error.Message
	}
	a.dispatch(ev)
}

// LogProgress is not announced.
func (a *Announcer) LogProgress(string, int, int) {}

// LogSummary announces the end of a run.
func (a *Announcer) LogSummary(snap models.Snapshot) {
	ev := Event{
		RunID:   snap.RunID,
		Subject: snap.Request.Subject,
		Phase:   snap.Phase,
	}
	switch {
	case snap.Phase == models.PhaseFailed:
		ev.Type = EventRunFailed
		ev.Status = "failed"
		ev.Message = "Run failed"
		if snap.Error != nil {
			ev.Message = fmt.Sprintf("Run failed during %s: %s", snap.Error.Stage, snap.Error.Message)
		}
	case snap.Result != nil:
		r := snap.Result
		stats := r.Stats
		ev.Type = EventRunCompleted
		ev.Stats = &stats
		switch {
		case r.NoAnalysesRun:
			ev.Status = "empty"
			ev.Message = "Run completed. No analyses were run"
		case r.TotalFailure:
			ev.Status = "total_failure"
			ev.Message = fmt.Sprintf("Run completed. All %d analyses failed", stats.Planned)
		case r.Degraded():
			ev.Status = "partial"
			ev.Message = fmt.Sprintf("Run completed. %d of %d analyses succeeded", stats.Succeeded, stats.Planned)
		default:
			ev.Status = "success"
			ev.Message = fmt.Sprintf("Run completed. All %d analyses succeeded", stats.Planned)
		}
	default:
		return
	}
	a.dispatch(ev)
}

// LogInfo is not announced.
func (a *Announcer) LogInfo(string) {}

// LogWarn is not announced.
func (a *Announcer) LogWarn(string) {}

// LogError is not announced.
func (a *Announcer) LogError(string) {}

func (a *Announcer) dispatch(ev Event) {
	if !a.sender.Wants(ev.Type) {
		return
	}
	ev.Time = a.now()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.sender.Send(context.Background(), ev); err != nil && a.warn != nil {
			a.warn.LogWarn(fmt.Sprintf("[%s] notification dropped: %v", ev.RunID, err))
		}
	}()
}

// Close waits for in-flight deliveries.
func (a *Announcer) Close() {
	a.wg.Wait()
}
