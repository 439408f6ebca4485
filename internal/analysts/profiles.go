package analysts

import (
	"fmt"
	"strings"

	"github.com/harrison/researchflow/internal/datasource"
	"github.com/harrison/researchflow/internal/models"
)

var profiles = map[models.Capability]profile{
	models.CapabilityMarket: {
		name:   "Market Insights Analyst",
		role:   "Market Intelligence Analyst",
		system: "You are a senior market intelligence analyst specializing in pharmaceutical market research: market size and growth, competitive landscape, therapy area dynamics and repurposing opportunities.",
		focus: []string{
			"Market opportunity assessment (size, growth potential)",
			"Competitive landscape analysis",
			"Key therapy areas and their market dynamics",
			"Strategic recommendations",
		},
		insights: marketInsights,
	},
	models.CapabilityTrade: {
		name:   "Trade Insights Analyst",
		role:   "Trade Intelligence Analyst",
		system: "You are a senior trade intelligence analyst specializing in pharmaceutical supply chains: import dependency, sourcing risk and formulation movement.",
		focus: []string{
			"Supply chain risk assessment",
			"Import dependency implications",
			"Formulation availability",
			"Sourcing recommendations",
		},
		insights: tradeInsights,
	},
	models.CapabilityPatent: {
		name:   "Patent Landscape Analyst",
		role:   "Intellectual Property Analyst",
		system: "You are a senior patent analyst specializing in pharmaceutical intellectual property: patent landscapes, freedom to operate and expiry timelines.",
		focus: []string{
			"Freedom-to-operate assessment",
			"Blocking patents and licensing options",
			"Expiry timeline opportunities",
			"IP strategy recommendations",
		},
		insights: patentInsights,
	},
	models.CapabilityClinicalTrials: {
		name:   "Clinical Trials Analyst",
		role:   "Clinical Research Analyst",
		system: "You are a senior clinical research analyst specializing in trial landscapes: ongoing research, phase distribution and emerging indications.",
		focus: []string{
			"Research activity assessment",
			"Phase distribution and clinical validation",
			"Emerging indications",
			"Clinical development recommendations",
		},
		insights: trialInsights,
	},
	models.CapabilityInternal: {
		name:   "Internal Insights Analyst",
		role:   "Strategy Analyst",
		system: "You are a senior strategy analyst with access to internal strategy decks, field intelligence and portfolio reviews.",
		focus: []string{
			"Strategic alignment assessment",
			"Internal priority and resourcing",
			"Field intelligence signals",
			"Strategic recommendations",
		},
		insights: internalInsights,
	},
	models.CapabilityWeb: {
		name:   "Web Intelligence Analyst",
		role:   "Scientific Intelligence Analyst",
		system: "You are a senior scientific intelligence analyst reviewing publications, clinical guidelines and regulatory news.",
		focus: []string{
			"Strength of the evidence base",
			"Scientific publication support",
			"Guideline and regulatory developments",
			"Research recommendations",
		},
		insights: webInsights,
	},
}

func marketInsights(ds datasource.Dataset) ([]string, []string, error) {
	d, ok := ds.(*datasource.MarketData)
	if !ok {
		return nil, nil, unexpected("market", ds)
	}

	var findings, recs []string
	switch {
	case d.MarketSizeUSDMillion > 1000:
		findings = append(findings, fmt.Sprintf("Large market size: $%dM USD", d.MarketSizeUSDMillion))
	case d.MarketSizeUSDMillion > 500:
		findings = append(findings, fmt.Sprintf("Moderate market size: $%dM USD", d.MarketSizeUSDMillion))
	default:
		findings = append(findings, fmt.Sprintf("Emerging market: $%dM USD", d.MarketSizeUSDMillion))
	}
	switch {
	case d.CAGRPercent > 5:
		findings = append(findings, fmt.Sprintf("Strong growth trajectory: %.2f%% CAGR", d.CAGRPercent))
	case d.CAGRPercent > 0:
		findings = append(findings, fmt.Sprintf("Stable growth: %.2f%% CAGR", d.CAGRPercent))
	default:
		findings = append(findings, fmt.Sprintf("Declining market: %.2f%% CAGR", d.CAGRPercent))
	}
	switch {
	case d.TotalCompetitors < 5:
		findings = append(findings, fmt.Sprintf("Low competition: %d competitors", d.TotalCompetitors))
	case d.TotalCompetitors < 15:
		findings = append(findings, fmt.Sprintf("Moderate competition: %d competitors", d.TotalCompetitors))
	default:
		findings = append(findings, fmt.Sprintf("High competition: %d competitors", d.TotalCompetitors))
	}
	if len(d.TherapyAreas) > 0 {
		findings = append(findings, "Key therapy areas: "+strings.Join(d.TherapyAreas, ", "))
	}

	switch {
	case d.CAGRPercent > 5 && d.TotalCompetitors < 10:
		recs = append(recs, "High-growth, low-competition market - strong repurposing opportunity")
	case d.CAGRPercent > 0 && d.Trend == "Growing":
		recs = append(recs, "Growing market with potential for new indications")
	}
	if d.TotalCompetitors > 20 {
		recs = append(recs, "Highly competitive market - focus on niche indications or formulations")
	}
	if len(d.TherapyAreas) > 1 {
		recs = append(recs, "Multiple therapy areas suggest cross-indication repurposing potential")
	}
	return findings, recs, nil
}

func tradeInsights(ds datasource.Dataset) ([]string, []string, error) {
	d, ok := ds.(*datasource.TradeData)
	if !ok {
		return nil, nil, unexpected("trade", ds)
	}

	findings := []string{
		fmt.Sprintf("Import dependency: %.1f%%", d.ImportDependencyPercent),
		"Supply chain risk: " + d.RiskLevel,
	}
	if len(d.TopExporters) > 0 {
		findings = append(findings, "Primary exporter: "+d.TopExporters[0].Country)
	}
	if len(d.Formulations) > 0 {
		findings = append(findings, "Available formulations: "+strings.Join(head(d.Formulations, 3), ", "))
	}
	if d.Trend != "" {
		findings = append(findings, "Trade trend: "+d.Trend)
	}

	var recs []string
	switch {
	case d.ImportDependencyPercent > 70:
		recs = append(recs, "High import dependency - consider local manufacturing or alternative suppliers")
	case d.ImportDependencyPercent > 50:
		recs = append(recs, "Moderate import dependency - diversify supplier base")
	default:
		recs = append(recs, "Low import dependency - favorable supply chain position")
	}
	switch {
	case d.RiskLevel == "High" && len(d.RiskZones) > 0:
		recs = append(recs, fmt.Sprintf("High-risk zones identified: %s - develop mitigation strategy", strings.Join(d.RiskZones, ", ")))
	case d.RiskLevel == "Medium":
		recs = append(recs, "Monitor supply chain risks and maintain backup suppliers")
	}
	if len(d.Formulations) > 3 {
		recs = append(recs, "Multiple formulations available - consider formulation-specific repurposing")
	}
	return findings, recs, nil
}

func patentInsights(ds datasource.Dataset) ([]string, []string, error) {
	d, ok := ds.(*datasource.PatentData)
	if !ok {
		return nil, nil, unexpected("patent", ds)
	}

	findings := []string{
		fmt.Sprintf("FTO Status: %s (%s risk)", d.FTO.Status, d.FTO.RiskLevel),
		fmt.Sprintf("Active patents: %d, Expired: %d", d.ActivePatents, d.ExpiredPatents),
	}
	if d.UpcomingExpiries > 0 {
		findings = append(findings, fmt.Sprintf("Patents expiring in next 5 years: %d", d.UpcomingExpiries))
	}
	if n := len(d.FTO.BlockingPatents); n > 0 {
		findings = append(findings, fmt.Sprintf("Blocking patents identified: %d", n))
	}

	var recs []string
	switch d.FTO.Status {
	case datasource.FTOGreen:
		recs = append(recs, "Clear FTO path - proceed with repurposing initiatives")
	case datasource.FTOAmber:
		recs = append(recs, "Moderate FTO risk - consider licensing or design-around strategies")
	case datasource.FTORed:
		recs = append(recs, "High FTO risk - require detailed IP analysis and potential licensing")
	}
	if d.UpcomingExpiries > 0 {
		recs = append(recs, fmt.Sprintf("%d patents expiring soon - plan for post-expiry opportunities", d.UpcomingExpiries))
	}
	if len(d.FTO.BlockingPatents) > 0 {
		recs = append(recs, "Review blocking patents for licensing opportunities or expiry dates")
	}
	if d.FTO.RiskLevel == "Low" && d.UpcomingExpiries > 0 {
		recs = append(recs, "Favorable IP landscape with upcoming expiries - strategic timing opportunity")
	}
	return findings, recs, nil
}

func trialInsights(ds datasource.Dataset) ([]string, []string, error) {
	d, ok := ds.(*datasource.TrialsData)
	if !ok {
		return nil, nil, unexpected("clinical trials", ds)
	}

	findings := []string{
		fmt.Sprintf("Total trials: %d (Ongoing: %d, Completed: %d)", len(d.Trials), d.OngoingTrials, d.CompletedTrials),
	}
	if len(d.PhaseDistribution) > 0 {
		parts := make([]string, 0, len(d.PhaseDistribution))
		for _, c := range d.PhaseDistribution {
			parts = append(parts, fmt.Sprintf("%s: %d", c.Name, c.Count))
		}
		findings = append(findings, "Phase distribution: "+strings.Join(parts, ", "))
	}
	if len(d.EmergingIndications) > 0 {
		top := d.EmergingIndications[0]
		findings = append(findings, fmt.Sprintf("Top emerging indication: %s (%d trials)", top.Name, top.Count))
	}
	switch {
	case d.OngoingTrials > 10:
		findings = append(findings, "High research activity - strong repurposing interest")
	case d.OngoingTrials > 5:
		findings = append(findings, "Moderate research activity")
	default:
		findings = append(findings, "Limited ongoing research")
	}

	var recs []string
	if d.OngoingTrials > 10 {
		recs = append(recs, "High research momentum - consider aligning with active research areas")
	}
	if len(d.EmergingIndications) > 0 {
		names := make([]string, 0, 3)
		for _, c := range head(d.EmergingIndications, 3) {
			names = append(names, c.Name)
		}
		recs = append(recs, "Focus on emerging indications: "+strings.Join(names, ", "))
	}
	if d.PhaseCount("Phase 2") > 0 || d.PhaseCount("Phase 3") > 0 {
		recs = append(recs, "Active Phase 2/3 trials indicate strong clinical validation potential")
	}
	if len(d.EmergingIndications) == 0 && d.OngoingTrials < 5 {
		recs = append(recs, "Limited research activity - potential whitespace opportunity")
	}
	return findings, recs, nil
}

func internalInsights(ds datasource.Dataset) ([]string, []string, error) {
	d, ok := ds.(*datasource.InternalData)
	if !ok {
		return nil, nil, unexpected("internal", ds)
	}

	findings := []string{
		"Strategy alignment: " + d.StrategyAlignment,
		"Priority level: " + d.PriorityLevel,
		fmt.Sprintf("Internal documents reviewed: %d", len(d.Documents)),
	}
	if len(d.FieldInsights) > 0 {
		findings = append(findings, fmt.Sprintf("Field intelligence points: %d", len(d.FieldInsights)))
	}
	if d.TopDepartment != "" {
		findings = append(findings, "Primary department: "+d.TopDepartment)
	}

	var recs []string
	switch d.StrategyAlignment {
	case "High":
		recs = append(recs, "Strong strategy alignment - prioritize this repurposing opportunity")
	case "Medium":
		recs = append(recs, "Moderate strategy alignment - evaluate fit with strategic priorities")
	default:
		recs = append(recs, "Low strategy alignment - may require strategic review")
	}
	topPriority := strings.Contains(d.PriorityLevel, "Top Priority")
	switch {
	case topPriority || strings.Contains(d.PriorityLevel, "Active Development"):
		recs = append(recs, "High internal priority - allocate resources accordingly")
	case strings.Contains(d.PriorityLevel, "Medium Priority"):
		recs = append(recs, "Moderate priority - monitor and evaluate progress")
	}
	if len(d.FieldInsights) > 0 {
		recs = append(recs, "Field intelligence available - incorporate market signals into strategy")
	}
	if d.StrategyAlignment == "High" && topPriority {
		recs = append(recs, "Strong alignment and priority - fast-track repurposing initiative")
	}
	return findings, recs, nil
}

// recentYear is the publication year counted as recent.
const recentYear = 2024

func webInsights(ds datasource.Dataset) ([]string, []string, error) {
	d, ok := ds.(*datasource.WebData)
	if !ok {
		return nil, nil, unexpected("web", ds)
	}

	total := len(d.Results)
	recent := d.PublishedIn(recentYear)

	findings := []string{fmt.Sprintf("Total sources found: %d", total)}
	if top, ok := d.TopSourceType(); ok {
		findings = append(findings, fmt.Sprintf("Primary source type: %s (%d results)", top.Name, top.Count))
	}
	if recent > 0 {
		findings = append(findings, fmt.Sprintf("Recent publications (%d): %d", recentYear, recent))
	}
	if len(d.BySourceType) > 0 {
		names := make([]string, 0, 3)
		for _, c := range head(d.BySourceType, 3) {
			names = append(names, c.Name)
		}
		findings = append(findings, "Source types: "+strings.Join(names, ", "))
	}

	var recs []string
	switch {
	case total > 20:
		recs = append(recs, "Strong evidence base - multiple sources support repurposing potential")
	case total > 10:
		recs = append(recs, "Moderate evidence base - sufficient sources for evaluation")
	default:
		recs = append(recs, "Limited evidence base - may require additional research")
	}
	if d.SourceTypeCount(datasource.SourceScientificPublication) > 5 {
		recs = append(recs, "Strong scientific publication support - evidence-based opportunity")
	}
	if d.SourceTypeCount(datasource.SourceClinicalGuideline) > 0 {
		recs = append(recs, "Clinical guidelines available - regulatory pathway support")
	}
	if d.SourceTypeCount(datasource.SourceRegulatoryNews) > 0 {
		recs = append(recs, "Regulatory developments identified - monitor for opportunities")
	}
	if recent > 5 {
		recs = append(recs, "High recent publication activity - active research area")
	}
	return findings, recs, nil
}

func head[T any](items []T, n int) []T {
	if len(items) < n {
		return items
	}
	return items[:n]
}
