// Package report renders completed workflow runs into report artifacts.
package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/researchflow/internal/filelock"
	"github.com/harrison/researchflow/internal/models"
)

// Format is a report output format.
type Format string

// Supported report formats
const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
)

// ErrNotCompleted is returned when rendering a run that has not reached the
// completed phase.
var ErrNotCompleted = errors.New("run is not completed")

// Artifact is one written report file.
type Artifact struct {
	Format Format `json:"format"`
	Path   string `json:"path"`
	Bytes  int    `json:"bytes"`
}

type renderFunc func(models.Snapshot) ([]byte, error)

var formats = map[Format]struct {
	file   string
	render renderFunc
}{
	FormatMarkdown: {"report.md", renderMarkdown},
	FormatHTML:     {"report.html", renderHTML},
	FormatPDF:      {"report.pdf", renderPDF},
	FormatJSON:     {"run.json", renderJSON},
	FormatCSV:      {"outcomes.csv", renderCSV},
}

// ParseFormat validates a format name (case-insensitive, "md" accepted).
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == "md" {
		f = FormatMarkdown
	}
	if _, ok := formats[f]; !ok {
		return "", fmt.Errorf("unknown report format %q", name)
	}
	return f, nil
}

// Renderer writes the configured formats for a completed run.
type Renderer struct {
	formats []Format
}

// New returns a renderer for the named formats. Duplicates are dropped.
func New(names []string) (*Renderer, error) {
	r := &Renderer{}
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(r.formats, f) {
			r.formats = append(r.formats, f)
		}
	}
	return r, nil
}

// Formats returns the configured formats in order.
func (r *Renderer) Formats() []Format {
	return slices.Clone(r.formats)
}

// Render writes one artifact per format into <dir>/<run-id>/. Formats are
// rendered concurrently; artifacts are returned in configured order.
func (r *Renderer) Render(ctx context.Context, snapshot models.Snapshot, dir string) ([]Artifact, error) {
	if snapshot.Phase != models.PhaseCompleted || snapshot.Result == nil {
		return nil, fmt.Errorf("render %s: %w (phase %s)", snapshot.RunID, ErrNotCompleted, snapshot.Phase)
	}
	if snapshot.RunID == "" {
		return nil, errors.New("render: snapshot has no run id")
	}

	runDir := filepath.Join(dir, snapshot.RunID)
	artifacts := make([]Artifact, len(r.formats))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range r.formats {
		g.Go(func() error {
			spec := formats[f]
			data, err := spec.render(snapshot)
			if err != nil {
				return fmt.Errorf("render %s: %w", f, err)
			}
			path := filepath.Join(runDir, spec.file)
			if err := filelock.WriteLocked(gctx, path, data); err != nil {
				return fmt.Errorf("write %s report: %w", f, err)
			}
			artifacts[i] = Artifact{Format: f, Path: path, Bytes: len(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}
