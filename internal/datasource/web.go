package datasource

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/harrison/researchflow/internal/models"
)

// WebResult is one search hit.
type WebResult struct {
	Title          string  `json:"title"`
	Source         string  `json:"source"`
	SourceType     string  `json:"source_type"`
	Date           string  `json:"date"`
	URL            string  `json:"url"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Web source types referenced by analysts
const (
	SourceScientificPublication = "Scientific Publication"
	SourceClinicalGuideline     = "Clinical Guideline"
	SourceRegulatoryNews        = "Regulatory News"
)

// WebData is the web intelligence gathered for one molecule.
type WebData struct {
	Molecule         string      `json:"molecule"`
	TargetIndication string      `json:"target_indication,omitempty"`
	Results          []WebResult `json:"results"` // Most relevant first
	BySourceType     []Count     `json:"by_source_type"`
	Source           string      `json:"data_source"`
	LastUpdated      string      `json:"last_updated"`
}

var (
	webSourceTypes = []string{
		SourceScientificPublication,
		SourceClinicalGuideline,
		SourceRegulatoryNews,
		"Market News",
		"Conference Abstract",
		"Review Article",
	}
	webSources = []string{
		"Nature Medicine",
		"The Lancet",
		"New England Journal of Medicine",
		"FDA News Release",
		"EMA Press Release",
		"Pharma Industry News",
		"Clinical Guidelines Database",
		"PubMed",
	}
)

func generateWeb(rng *rand.Rand, molecule, indication string) *WebData {
	d := &WebData{
		Molecule:         molecule,
		TargetIndication: indication,
		Source:           "Web Intelligence Search (Mock)",
		LastUpdated:      "2024-Q4",
	}

	target := indication
	if target == "" {
		target = "new therapeutic areas"
	}
	slug := strings.ReplaceAll(strings.ToLower(molecule), " ", "-")
	snippets := []string{
		fmt.Sprintf("%s shows promise in %s", molecule, target),
		fmt.Sprintf("Recent study demonstrates efficacy of %s in target population", molecule),
		fmt.Sprintf("Regulatory approval pathway for %s repurposing appears feasible", molecule),
		fmt.Sprintf("Market analysis indicates growing demand for %s-based therapies", molecule),
		fmt.Sprintf("Clinical evidence supports %s use in expanded indications", molecule),
	}

	counts := make(map[string]int)
	n := intBetween(rng, 10, 25)
	for i := 0; i < n; i++ {
		st := pick(rng, webSourceTypes)
		year := 2024
		if rng.IntN(4) == 0 {
			year = 2023
		}
		d.Results = append(d.Results, WebResult{
			Title:          fmt.Sprintf("%s %s: %s", molecule, st, pick(rng, []string{"Analysis", "Study", "Update", "Review"})),
			Source:         pick(rng, webSources),
			SourceType:     st,
			Date:           fmt.Sprintf("%d-%02d-%02d", year, intBetween(rng, 1, 12), intBetween(rng, 1, 28)),
			URL:            fmt.Sprintf("https://example.com/%s-%d", slug, i+1),
			Snippet:        pick(rng, snippets),
			RelevanceScore: floatBetween(rng, 0.5, 1.0, 2),
		})
		counts[st]++
	}
	sort.SliceStable(d.Results, func(i, j int) bool {
		return d.Results[i].RelevanceScore > d.Results[j].RelevanceScore
	})

	for _, st := range webSourceTypes {
		if c := counts[st]; c > 0 {
			d.BySourceType = append(d.BySourceType, Count{Name: st, Count: c})
		}
	}
	return d
}

// SourceTypeCount returns the number of results of the given source type.
func (d *WebData) SourceTypeCount(sourceType string) int {
	for _, c := range d.BySourceType {
		if c.Name == sourceType {
			return c.Count
		}
	}
	return 0
}

// TopSourceType returns the most frequent source type.
func (d *WebData) TopSourceType() (Count, bool) {
	var top Count
	for _, c := range d.BySourceType {
		if c.Count > top.Count {
			top = c
		}
	}
	return top, top.Count > 0
}

// PublishedIn counts results dated in the given year.
func (d *WebData) PublishedIn(year int) int {
	prefix := fmt.Sprintf("%d-", year)
	n := 0
	for _, r := range d.Results {
		if strings.HasPrefix(r.Date, prefix) {
			n++
		}
	}
	return n
}

// Capability implements Dataset.
func (d *WebData) Capability() models.Capability { return models.CapabilityWeb }

// SourceName implements Dataset.
func (d *WebData) SourceName() string { return d.Source }

// Report implements Dataset.
func (d *WebData) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Web Intelligence Report for %s\n", d.Molecule)
	if d.TargetIndication != "" {
		fmt.Fprintf(&sb, "Target Indication: %s\n", d.TargetIndication)
	}
	fmt.Fprintf(&sb, "\nTotal Results: %d\n\nBy Source Type:\n", len(d.Results))
	for _, c := range d.BySourceType {
		fmt.Fprintf(&sb, "  - %s: %d\n", c.Name, c.Count)
	}
	sb.WriteString("\nTop Results:\n")
	for _, r := range head(d.Results, 5) {
		fmt.Fprintf(&sb, "  - %s (%s, %s): %s\n", r.Title, r.Source, r.Date, r.Snippet)
	}
	fmt.Fprintf(&sb, "\nData Source: %s\nLast Updated: %s", d.Source, d.LastUpdated)
	return sb.String()
}
