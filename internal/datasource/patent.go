package datasource

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/harrison/researchflow/internal/models"
)

// Patent is one patent record.
type Patent struct {
	Number       string    `json:"patent_number"`
	Title        string    `json:"title"`
	Assignee     string    `json:"assignee"`
	FilingDate   time.Time `json:"filing_date"`
	ExpiryDate   time.Time `json:"expiry_date"`
	Active       bool      `json:"active"`
	Type         string    `json:"type"`
	Jurisdiction string    `json:"jurisdiction"`
}

// FTOStatus is a freedom-to-operate traffic light.
type FTOStatus string

// Freedom-to-operate statuses
const (
	FTOGreen FTOStatus = "Green"
	FTOAmber FTOStatus = "Amber"
	FTORed   FTOStatus = "Red"
)

// FTOAssessment summarises freedom to operate.
type FTOAssessment struct {
	Status          FTOStatus `json:"status"`
	RiskLevel       string    `json:"risk_level"`
	Reason          string    `json:"reason"`
	BlockingPatents []Patent  `json:"blocking_patents"`
}

// PatentData is the patent landscape for one molecule.
type PatentData struct {
	Molecule         string        `json:"molecule"`
	TherapyArea      string        `json:"therapy_area,omitempty"`
	Patents          []Patent      `json:"patents"`
	ActivePatents    int           `json:"active_patents"`
	ExpiredPatents   int           `json:"expired_patents"`
	FTO              FTOAssessment `json:"fto_assessment"`
	UpcomingExpiries int           `json:"upcoming_expiries"`
	TopAssignee      string        `json:"top_assignee"`
	Source           string        `json:"data_source"`
	LastUpdated      string        `json:"last_updated"`
}

const patentTerm = 20 * 365 * 24 * time.Hour

// upcomingWindow is how far ahead an active patent counts as expiring soon.
const upcomingWindow = 5 * 365 * 24 * time.Hour

var (
	assignees = []string{
		"PharmaCorp Inc.",
		"BioTech Solutions Ltd.",
		"Global Pharma Co.",
		"Innovation Labs",
		"Research Institute",
		"Generic Pharma LLC",
	}
	patentTypes   = []string{"Composition of Matter", "Method of Use", "Formulation", "Process", "Dosage Form"}
	jurisdictions = []string{"US", "EP", "WO", "IN"}
)

func generatePatents(rng *rand.Rand, molecule, therapyArea string, now time.Time) *PatentData {
	d := &PatentData{
		Molecule:    molecule,
		TherapyArea: therapyArea,
		Source:      "USPTO Patent Database (Mock)",
		LastUpdated: "2024-Q4",
	}

	n := intBetween(rng, 5, 20)
	var assigned []string
	var active []Patent
	for i := 0; i < n; i++ {
		filed := now.Add(-time.Duration(intBetween(rng, 0, 25)) * 365 * 24 * time.Hour).Truncate(24 * time.Hour)
		expiry := filed.Add(patentTerm)
		kind := pick(rng, patentTypes)
		p := Patent{
			Number:       fmt.Sprintf("US%d", intBetween(rng, 10000000, 99999999)),
			Title:        fmt.Sprintf("%s %s Patent", molecule, kind),
			Assignee:     pick(rng, assignees),
			FilingDate:   filed,
			ExpiryDate:   expiry,
			Active:       expiry.After(now),
			Type:         kind,
			Jurisdiction: pick(rng, jurisdictions),
		}
		d.Patents = append(d.Patents, p)
		assigned = append(assigned, p.Assignee)
		if p.Active {
			active = append(active, p)
			if p.ExpiryDate.Before(now.Add(upcomingWindow)) {
				d.UpcomingExpiries++
			}
		}
	}

	d.ActivePatents = len(active)
	d.ExpiredPatents = n - len(active)
	d.TopAssignee = mostCommon(assigned)

	switch {
	case len(active) == 0:
		d.FTO = FTOAssessment{Status: FTOGreen, RiskLevel: "Low", Reason: "No active patents blocking the molecule"}
	case len(active) <= 3:
		d.FTO = FTOAssessment{
			Status:    FTOAmber,
			RiskLevel: "Medium",
			Reason:    fmt.Sprintf("%d active patents may require licensing or design-around", len(active)),
		}
	default:
		d.FTO = FTOAssessment{
			Status:    FTORed,
			RiskLevel: "High",
			Reason:    fmt.Sprintf("%d active patents create significant FTO risk", len(active)),
		}
	}
	d.FTO.BlockingPatents = head(active, 3)

	return d
}

// Capability implements Dataset.
func (d *PatentData) Capability() models.Capability { return models.CapabilityPatent }

// SourceName implements Dataset.
func (d *PatentData) SourceName() string { return d.Source }

// Report implements Dataset.
func (d *PatentData) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Patent Landscape Report for %s\n", d.Molecule)
	if d.TherapyArea != "" {
		fmt.Fprintf(&sb, "Therapy Area: %s\n", d.TherapyArea)
	}
	sb.WriteString("\nPatent Overview:\n")
	fmt.Fprintf(&sb, "- Total Patents Found: %d\n", len(d.Patents))
	fmt.Fprintf(&sb, "- Active Patents: %d\n", d.ActivePatents)
	fmt.Fprintf(&sb, "- Expired Patents: %d\n", d.ExpiredPatents)
	fmt.Fprintf(&sb, "- Upcoming Expiries (5 years): %d\n\n", d.UpcomingExpiries)
	sb.WriteString("FTO Assessment:\n")
	fmt.Fprintf(&sb, "- Status: %s (%s Risk)\n", d.FTO.Status, d.FTO.RiskLevel)
	fmt.Fprintf(&sb, "- Assessment: %s\n\n", d.FTO.Reason)
	sb.WriteString("Key Blocking Patents:\n")
	if len(d.FTO.BlockingPatents) == 0 {
		sb.WriteString("  - No blocking patents identified\n")
	}
	for _, p := range d.FTO.BlockingPatents {
		fmt.Fprintf(&sb, "  - %s - %s (%s, expires %s)\n", p.Number, p.Title, p.Assignee, p.ExpiryDate.Format("2006-01-02"))
	}
	fmt.Fprintf(&sb, "\nTop Assignee: %s\n", d.TopAssignee)
	fmt.Fprintf(&sb, "\nData Source: %s\nLast Updated: %s", d.Source, d.LastUpdated)
	return sb.String()
}
