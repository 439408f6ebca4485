package datasource

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/harrison/researchflow/internal/models"
)

// InternalDocument is one document from the internal repository.
type InternalDocument struct {
	ID             string   `json:"document_id"`
	Title          string   `json:"title"`
	Type           string   `json:"type"`
	Department     string   `json:"department"`
	Date           string   `json:"date"`
	KeyTakeaways   []string `json:"key_takeaways"`
	RelevanceScore float64  `json:"relevance_score"`
}

// InternalData is the internal strategy view of one molecule.
type InternalData struct {
	Molecule          string             `json:"molecule"`
	DocumentFilter    string             `json:"document_filter,omitempty"`
	Documents         []InternalDocument `json:"documents"`
	StrategyAlignment string             `json:"strategy_alignment"`
	PriorityLevel     string             `json:"priority_level"`
	FieldInsights     []string           `json:"field_insights"`
	TopDepartment     string             `json:"top_department"`
	Source            string             `json:"data_source"`
	LastUpdated       string             `json:"last_updated"`
}

// Internal priority levels
const (
	PriorityTop       = "Top Priority - Active Development"
	PriorityMedium    = "Medium Priority - Under Evaluation"
	PriorityLow       = "Low Priority - On Hold"
	PriorityMonitored = "Strategic Interest - Monitoring"
)

var (
	documentTypes = []string{
		"Strategy Deck",
		"Market Research Report",
		"Field Intelligence",
		"Competitive Analysis",
		"Regulatory Brief",
		"Portfolio Review",
	}
	departments = []string{
		"Business Development",
		"Market Intelligence",
		"Regulatory Affairs",
		"R&D Strategy",
		"Commercial Planning",
	}
	priorities = []string{PriorityTop, PriorityMedium, PriorityLow, PriorityMonitored}
)

func generateInternal(rng *rand.Rand, molecule, filter string) *InternalData {
	d := &InternalData{
		Molecule:       molecule,
		DocumentFilter: filter,
		Source:         "Internal Document Repository (Mock)",
		LastUpdated:    "2024-Q4",
	}

	n := intBetween(rng, 3, 12)
	var depts []string
	for i := 0; i < n; i++ {
		docType := pick(rng, documentTypes)
		if filter != "" && rng.IntN(2) == 0 {
			docType = filter
		}
		takeaways := []string{
			molecule + " identified as priority molecule for repurposing",
			fmt.Sprintf("Market opportunity in %s segment", pick(rng, []string{"diabetes", "cardiovascular", "oncology"})),
			"Internal strategy alignment: " + pick(rng, levels),
			"Regulatory pathway: " + pick(rng, []string{"505(b)(2)", "ANDA", "NDA"}),
			"Competitive threat level: " + pick(rng, levels),
		}
		doc := InternalDocument{
			ID:             fmt.Sprintf("INT-%d", intBetween(rng, 1000, 9999)),
			Title:          fmt.Sprintf("%s: %s Analysis", docType, molecule),
			Type:           docType,
			Department:     pick(rng, departments),
			Date:           fmt.Sprintf("2024-%02d-%02d", intBetween(rng, 1, 12), intBetween(rng, 1, 28)),
			KeyTakeaways:   sample(rng, takeaways, intBetween(rng, 2, 4)),
			RelevanceScore: floatBetween(rng, 0.6, 1.0, 2),
		}
		d.Documents = append(d.Documents, doc)
		depts = append(depts, doc.Department)
	}

	d.StrategyAlignment = pick(rng, levels)
	d.PriorityLevel = pick(rng, priorities)
	d.TopDepartment = mostCommon(depts)

	field := []string{
		fmt.Sprintf("Field team reports strong physician interest in %s for new indications", molecule),
		"Market research indicates unmet need in target patient population",
		"Competitive intelligence suggests limited market entry barriers",
		"Regulatory team confirms feasible pathway for repurposing",
	}
	d.FieldInsights = sample(rng, field, intBetween(rng, 2, 4))

	return d
}

// Capability implements Dataset.
func (d *InternalData) Capability() models.Capability { return models.CapabilityInternal }

// SourceName implements Dataset.
func (d *InternalData) SourceName() string { return d.Source }

// Report implements Dataset.
func (d *InternalData) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Internal Insights Report for %s\n", d.Molecule)
	if d.DocumentFilter != "" {
		fmt.Fprintf(&sb, "Document Filter: %s\n", d.DocumentFilter)
	}
	sb.WriteString("\nStrategic Overview:\n")
	fmt.Fprintf(&sb, "- Strategy Alignment: %s\n", d.StrategyAlignment)
	fmt.Fprintf(&sb, "- Priority Level: %s\n", d.PriorityLevel)
	fmt.Fprintf(&sb, "- Documents Reviewed: %d\n", len(d.Documents))
	fmt.Fprintf(&sb, "- Top Department: %s\n\n", d.TopDepartment)
	sb.WriteString("Recent Documents:\n")
	for _, doc := range head(d.Documents, 5) {
		fmt.Fprintf(&sb, "  - %s (%s, %s)\n", doc.Title, doc.Department, doc.Date)
	}
	sb.WriteString("\nField Insights:\n")
	for _, f := range d.FieldInsights {
		fmt.Fprintf(&sb, "  - %s\n", f)
	}
	fmt.Fprintf(&sb, "\nData Source: %s\nLast Updated: %s", d.Source, d.LastUpdated)
	return sb.String()
}
