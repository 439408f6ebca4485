package datasource

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/harrison/researchflow/internal/models"
)

// MarketData is market-intelligence data for one molecule.
type MarketData struct {
	Molecule             string   `json:"molecule"`
	Region               string   `json:"region"`
	MarketSizeUSDMillion int      `json:"market_size_usd_millions"`
	CAGRPercent          float64  `json:"cagr_percent"`
	ForecastYears        int      `json:"forecast_years"`
	Trend                string   `json:"market_trend"`
	TotalCompetitors     int      `json:"total_competitors"`
	TopCompetitors       []string `json:"top_competitors"`
	Concentration        string   `json:"market_concentration"`
	TherapyAreas         []string `json:"therapy_areas"`
	Source               string   `json:"data_source"`
	LastUpdated          string   `json:"last_updated"`
}

var therapyAreas = []string{
	"Cardiovascular",
	"Diabetes",
	"Oncology",
	"Neurology",
	"Infectious Diseases",
	"Respiratory",
}

var levels = []string{"High", "Medium", "Low"}

func generateMarket(rng *rand.Rand, molecule, region string) *MarketData {
	if region == "" {
		region = "Global"
	}
	size := intBetween(rng, 500, 5000)
	cagr := floatBetween(rng, -5, 15, 2)
	competitors := intBetween(rng, 3, 25)

	names := []string{
		molecule + " Generic A",
		molecule + " Generic B",
		molecule + " Brand X",
		molecule + " Brand Y",
		"Competitor Molecule 1",
	}
	if competitors < len(names) {
		names = names[:competitors]
	}

	trend := "Declining"
	switch {
	case cagr > 2:
		trend = "Growing"
	case cagr > -2:
		trend = "Stable"
	}

	return &MarketData{
		Molecule:             molecule,
		Region:               region,
		MarketSizeUSDMillion: size,
		CAGRPercent:          cagr,
		ForecastYears:        5,
		Trend:                trend,
		TotalCompetitors:     competitors,
		TopCompetitors:       names,
		Concentration:        pick(rng, levels),
		TherapyAreas:         sample(rng, therapyAreas, intBetween(rng, 1, 3)),
		Source:               "IQVIA Market Intelligence (Mock)",
		LastUpdated:          "2024-Q4",
	}
}

// Capability implements Dataset.
func (d *MarketData) Capability() models.Capability { return models.CapabilityMarket }

// SourceName implements Dataset.
func (d *MarketData) SourceName() string { return d.Source }

// Report implements Dataset.
func (d *MarketData) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Market Intelligence Report for %s\n", d.Molecule)
	fmt.Fprintf(&sb, "Region: %s\n\n", d.Region)
	sb.WriteString("Market Overview:\n")
	fmt.Fprintf(&sb, "- Market Size: $%dM USD\n", d.MarketSizeUSDMillion)
	fmt.Fprintf(&sb, "- CAGR (%d-year): %.2f%%\n", d.ForecastYears, d.CAGRPercent)
	fmt.Fprintf(&sb, "- Market Trend: %s\n\n", d.Trend)
	sb.WriteString("Competitive Landscape:\n")
	fmt.Fprintf(&sb, "- Total Competitors: %d\n", d.TotalCompetitors)
	fmt.Fprintf(&sb, "- Market Concentration: %s\n", d.Concentration)
	fmt.Fprintf(&sb, "- Top Competitors: %s\n\n", strings.Join(head(d.TopCompetitors, 3), ", "))
	fmt.Fprintf(&sb, "Therapy Areas: %s\n\n", strings.Join(d.TherapyAreas, ", "))
	fmt.Fprintf(&sb, "Data Source: %s\nLast Updated: %s", d.Source, d.LastUpdated)
	return sb.String()
}

func head[T any](items []T, n int) []T {
	if len(items) < n {
		return items
	}
	return items[:n]
}
