package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/harrison/researchflow/internal/models"
)

func renderPDF(s models.Snapshot) ([]byte, error) {
	r := s.Result
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Research Report: "+s.Request.Subject, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	heading := func(text string, size float64) {
		pdf.SetFont("Helvetica", "B", size)
		pdf.MultiCell(0, size*0.5, tr(text), "", "L", false)
		pdf.Ln(2)
	}
	paragraph := func(text string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(strings.TrimSpace(text)), "", "L", false)
		pdf.Ln(3)
	}
	bullets := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		heading(title, 13)
		pdf.SetFont("Helvetica", "", 10)
		for _, item := range items {
			pdf.MultiCell(0, 5, tr("- "+item), "", "L", false)
		}
		pdf.Ln(3)
	}

	heading("Research Report: "+s.Request.Subject, 18)
	if s.Request.Query != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, tr(s.Request.Query), "", "L", false)
		pdf.Ln(3)
	}
	paragraph(fmt.Sprintf("Run %s. %d planned, %d succeeded, %d failed, %d timed out.",
		s.RunID, r.Stats.Planned, r.Stats.Succeeded, r.Stats.Failed, r.Stats.TimedOut))

	if r.Summary != "" {
		heading("Executive Summary", 13)
		paragraph(r.Summary)
	}
	if r.Narrative != "" {
		heading("Strategic Synthesis", 13)
		paragraph(r.Narrative)
	}
	bullets("Key Findings", r.KeyFindings)
	bullets("Recommendations", r.Recommendations)

	heading("Analyses", 13)
	widths := []float64{40, 35, 25, 80}
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range []string{"Task", "Capability", "Status", "Detail"} {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, o := range models.SortedOutcomes(s.Outcomes) {
		detail := o.Reason()
		if o.Payload != nil {
			detail = o.Payload.Analyst
		}
		row := []string{o.TaskID, string(o.Capability), string(o.Status), truncate(detail, 48)}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 6, tr(cell), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
