package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/harrison/researchflow/internal/models"
)

func renderJSON(s models.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

var csvHeader = []string{"task_id", "capability", "status", "duration_seconds", "attempts", "analyst", "source", "error_kind", "error"}

// renderCSV writes one row per task outcome, ordered by task id.
func renderCSV(s models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, o := range models.SortedOutcomes(s.Outcomes) {
		var analyst, source, kind string
		if o.Payload != nil {
			analyst, source = o.Payload.Analyst, o.Payload.Source
		}
		if o.Error != nil {
			kind = string(o.Error.Kind)
		}
		row := []string{
			o.TaskID,
			string(o.Capability),
			string(o.Status),
			fmt.Sprintf("%.3f", o.Duration.Seconds()),
			strconv.Itoa(o.Attempts),
			analyst,
			source,
			kind,
			o.Reason(),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
