package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harrison/researchflow/internal/models"
)

// RunSummary is one row of the run history listing.
type RunSummary struct {
	RunID        string       `json:"run_id"`
	Subject      string       `json:"subject"`
	Query        string       `json:"query"`
	Phase        models.Phase `json:"phase"`
	Planned      int          `json:"planned"`
	Recorded     int          `json:"recorded"`
	ErrorStage   string       `json:"error_stage,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ListOptions filters List. Zero values mean no filter.
type ListOptions struct {
	Subject string
	Phase   models.Phase
	Limit   int
}

// List returns runs, most recently updated first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]RunSummary, error) {
	var (
		where []string
		args  []any
	)
	if opts.Subject != "" {
		where = append(where, "subject = ? COLLATE NOCASE")
		args = append(args, opts.Subject)
	}
	if opts.Phase != "" {
		where = append(where, "phase = ?")
		args = append(args, string(opts.Phase))
	}

	query := `SELECT run_id, subject, query, phase, planned, recorded, error_stage, error_message, created_at, updated_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, run_id"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r                RunSummary
			phase            string
			q, stage, msg    sql.NullString
			created, updated int64
		)
		if err := rows.Scan(&r.RunID, &r.Subject, &q, &phase, &r.Planned, &r.Recorded, &stage, &msg, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Query = q.String
		r.Phase = models.Phase(phase)
		r.ErrorStage = stage.String
		r.ErrorMessage = msg.String
		r.CreatedAt = fromMillis(created)
		r.UpdatedAt = fromMillis(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Resumable returns ids of runs that stopped before reaching a terminal
// phase, oldest first.
func (s *Store) Resumable(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM runs WHERE phase NOT IN (?, ?) ORDER BY created_at, run_id`,
		string(models.PhaseCompleted), string(models.PhaseFailed))
	if err != nil {
		return nil, fmt.Errorf("query resumable runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CapabilityStat aggregates recorded outcomes for one capability.
type CapabilityStat struct {
	Capability    models.Capability `json:"capability"`
	Total         int               `json:"total"`
	Succeeded     int               `json:"succeeded"`
	Failed        int               `json:"failed"`
	TimedOut      int               `json:"timed_out"`
	AvgDurationMs float64           `json:"avg_duration_ms"`
}

// SuccessRate returns Succeeded/Total, or 0 with no outcomes.
func (c CapabilityStat) SuccessRate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Succeeded) / float64(c.Total)
}

// CapabilityStats summarises outcomes per capability across all runs.
func (s *Store) CapabilityStats(ctx context.Context) ([]CapabilityStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT capability,
			COUNT(*),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			AVG(duration_ms)
		FROM task_outcomes GROUP BY capability ORDER BY capability`,
		string(models.StatusSuccess), string(models.StatusFailed), string(models.StatusTimedOut))
	if err != nil {
		return nil, fmt.Errorf("query capability stats: %w", err)
	}
	defer rows.Close()

	var out []CapabilityStat
	for rows.Next() {
		var (
			c          CapabilityStat
			capability string
		)
		if err := rows.Scan(&capability, &c.Total, &c.Succeeded, &c.Failed, &c.TimedOut, &c.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("scan capability stats: %w", err)
		}
		c.Capability = models.Capability(capability)
		out = append(out, c)
	}
	return out, rows.Err()
}
