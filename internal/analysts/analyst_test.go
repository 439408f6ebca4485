package analysts

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/researchflow/internal/analysis"
	"github.com/harrison/researchflow/internal/datasource"
	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/registry"
)

// stubProvider returns a fixed dataset and records the params it was given.
type stubProvider struct {
	mu     sync.Mutex
	data   datasource.Dataset
	err    error
	params map[string]string
}

func (p *stubProvider) Fetch(ctx context.Context, c models.Capability, subject string, params map[string]string) (datasource.Dataset, error) {
	p.mu.Lock()
	p.params = params
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.data, nil
}

// recordingService captures the prompts it receives.
type recordingService struct {
	mu      sync.Mutex
	prompts []analysis.Prompt
	err     error
}

func (s *recordingService) Analyze(ctx context.Context, p analysis.Prompt) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, p)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "analysis for " + p.Label, nil
}

func lookup(t *testing.T, c models.Capability) models.TaskSpec {
	t.Helper()
	spec, ok := registry.Default().Lookup(c)
	require.True(t, ok)
	return spec
}

func TestAnalyze_AllCapabilities(t *testing.T) {
	provider := datasource.NewMockProvider(datasource.MockConfig{
		Seed: 7,
		Now:  func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
	svc := analysis.NewTemplateService()
	req := models.NewWorkflowRequest("Metformin", "repurposing potential", nil)

	for _, c := range registry.Default().Capabilities() {
		t.Run(string(c), func(t *testing.T) {
			a, err := New(c, provider, svc)
			require.NoError(t, err)

			payload, err := a.Analyze(context.Background(), lookup(t, c), req)
			require.NoError(t, err)
			require.NotNil(t, payload)

			assert.Equal(t, a.Name(), payload.Analyst)
			assert.NotEmpty(t, payload.Role)
			assert.NotEmpty(t, payload.KeyFindings)
			assert.NotEmpty(t, payload.Source)
			assert.Contains(t, payload.Analysis, "Metformin")
			assert.Contains(t, payload.Analysis, payload.KeyFindings[0])

			ds, ok := payload.RawData.(datasource.Dataset)
			require.True(t, ok)
			assert.Equal(t, c, ds.Capability())
		})
	}
}

func TestAnalyze_PromptCarriesReportAndParams(t *testing.T) {
	provider := &stubProvider{data: &datasource.MarketData{
		Molecule:             "Aspirin",
		MarketSizeUSDMillion: 1500,
		CAGRPercent:          6.5,
		TotalCompetitors:     4,
		TherapyAreas:         []string{"Cardiovascular"},
		Source:               "Market Intelligence Database",
	}}
	svc := &recordingService{}
	a, err := New(models.CapabilityMarket, provider, svc)
	require.NoError(t, err)

	req := models.NewWorkflowRequest("Aspirin", "what about Europe?", map[string]string{registry.KeyRegion: "Europe"})
	_, err = a.Analyze(context.Background(), lookup(t, models.CapabilityMarket), req)
	require.NoError(t, err)

	assert.Equal(t, "Europe", provider.params[registry.KeyRegion])
	require.Len(t, svc.prompts, 1)
	p := svc.prompts[0]
	assert.Contains(t, p.User, "Analyze the following data for Aspirin")
	assert.Contains(t, p.User, provider.data.Report())
	assert.Contains(t, p.User, "Research question: what about Europe?")
	assert.Contains(t, p.User, "1. Market opportunity assessment")
	assert.NotEmpty(t, p.System)
	assert.Equal(t, "Large market size: $1500M USD", p.Facts[0])
}

func TestAnalyze_Errors(t *testing.T) {
	spec := lookup(t, models.CapabilityTrade)
	req := models.NewWorkflowRequest("Metformin", "", nil)

	t.Run("fetch error propagates", func(t *testing.T) {
		fetchErr := &datasource.FetchError{Capability: models.CapabilityTrade, Subject: "Metformin", Err: datasource.ErrInjectedFault}
		a, err := New(models.CapabilityTrade, &stubProvider{err: fetchErr}, &recordingService{})
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), spec, req)
		assert.ErrorIs(t, err, datasource.ErrInjectedFault)
	})

	t.Run("service error wrapped", func(t *testing.T) {
		svc := &recordingService{err: analysis.ErrUnavailable}
		a, err := New(models.CapabilityTrade, &stubProvider{data: &datasource.TradeData{RiskLevel: "Low"}}, svc)
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), spec, req)
		assert.ErrorIs(t, err, analysis.ErrUnavailable)
		assert.Contains(t, err.Error(), "analysis service")
	})

	t.Run("wrong dataset", func(t *testing.T) {
		a, err := New(models.CapabilityTrade, &stubProvider{data: &datasource.WebData{}}, &recordingService{})
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), spec, req)
		assert.ErrorContains(t, err, "expected trade data")
	})

	t.Run("capability mismatch", func(t *testing.T) {
		a, err := New(models.CapabilityWeb, &stubProvider{data: &datasource.WebData{}}, &recordingService{})
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), spec, req)
		assert.Error(t, err)
	})
}

func TestNew_Validation(t *testing.T) {
	provider := &stubProvider{}
	svc := &recordingService{}

	_, err := New(models.CapabilityMarket, nil, svc)
	assert.Error(t, err)
	_, err = New(models.CapabilityMarket, provider, nil)
	assert.Error(t, err)
	_, err = New(models.Capability("astrology"), provider, svc)
	assert.Error(t, err)
}

func TestBindings(t *testing.T) {
	reg := registry.Default()
	b, err := Bindings(reg, &stubProvider{}, &recordingService{})
	require.NoError(t, err)

	for _, c := range reg.Capabilities() {
		a, ok := b.Analyst(c)
		assert.True(t, ok, "capability %s", c)
		assert.NotNil(t, a)
	}
}

func TestMarketInsights(t *testing.T) {
	tests := []struct {
		name     string
		data     *datasource.MarketData
		findings []string
		recs     []string
	}{
		{
			name: "high growth low competition",
			data: &datasource.MarketData{MarketSizeUSDMillion: 1200, CAGRPercent: 7.25, Trend: "Growing", TotalCompetitors: 4, TherapyAreas: []string{"Oncology", "Diabetes"}},
			findings: []string{
				"Large market size: $1200M USD",
				"Strong growth trajectory: 7.25% CAGR",
				"Low competition: 4 competitors",
				"Key therapy areas: Oncology, Diabetes",
			},
			recs: []string{
				"High-growth, low-competition market - strong repurposing opportunity",
				"Multiple therapy areas suggest cross-indication repurposing potential",
			},
		},
		{
			name: "crowded growing market",
			data: &datasource.MarketData{MarketSizeUSDMillion: 600, CAGRPercent: 3, Trend: "Growing", TotalCompetitors: 25, TherapyAreas: []string{"Oncology"}},
			findings: []string{
				"Moderate market size: $600M USD",
				"Stable growth: 3.00% CAGR",
				"High competition: 25 competitors",
				"Key therapy areas: Oncology",
			},
			recs: []string{
				"Growing market with potential for new indications",
				"Highly competitive market - focus on niche indications or formulations",
			},
		},
		{
			name: "declining market",
			data: &datasource.MarketData{MarketSizeUSDMillion: 200, CAGRPercent: -1.5, Trend: "Declining", TotalCompetitors: 10},
			findings: []string{
				"Emerging market: $200M USD",
				"Declining market: -1.50% CAGR",
				"Moderate competition: 10 competitors",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, recs, err := marketInsights(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.findings, findings)
			assert.Equal(t, tt.recs, recs)
		})
	}
}

func TestTradeInsights(t *testing.T) {
	data := &datasource.TradeData{
		ImportDependencyPercent: 82.5,
		RiskLevel:               "High",
		RiskZones:               []string{"South Asia", "Eastern Europe"},
		TopExporters:            []datasource.TradeFlow{{Country: "India", VolumeTons: 1200}},
		Formulations:            []string{"Tablet", "Capsule", "Injection", "Syrup"},
		Trend:                   "Increasing",
	}
	findings, recs, err := tradeInsights(data)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Import dependency: 82.5%",
		"Supply chain risk: High",
		"Primary exporter: India",
		"Available formulations: Tablet, Capsule, Injection",
		"Trade trend: Increasing",
	}, findings)
	assert.Equal(t, []string{
		"High import dependency - consider local manufacturing or alternative suppliers",
		"High-risk zones identified: South Asia, Eastern Europe - develop mitigation strategy",
		"Multiple formulations available - consider formulation-specific repurposing",
	}, recs)

	_, recs, err = tradeInsights(&datasource.TradeData{ImportDependencyPercent: 55, RiskLevel: "Medium"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Moderate import dependency - diversify supplier base",
		"Monitor supply chain risks and maintain backup suppliers",
	}, recs)
}

func TestPatentInsights(t *testing.T) {
	tests := []struct {
		name     string
		data     *datasource.PatentData
		findings []string
		recs     []string
	}{
		{
			name: "green with expiries",
			data: &datasource.PatentData{ActivePatents: 3, ExpiredPatents: 5, UpcomingExpiries: 2, FTO: datasource.FTOAssessment{Status: datasource.FTOGreen, RiskLevel: "Low"}},
			findings: []string{
				"FTO Status: Green (Low risk)",
				"Active patents: 3, Expired: 5",
				"Patents expiring in next 5 years: 2",
			},
			recs: []string{
				"Clear FTO path - proceed with repurposing initiatives",
				"2 patents expiring soon - plan for post-expiry opportunities",
				"Favorable IP landscape with upcoming expiries - strategic timing opportunity",
			},
		},
		{
			name: "red with blocking patents",
			data: &datasource.PatentData{ActivePatents: 6, FTO: datasource.FTOAssessment{Status: datasource.FTORed, RiskLevel: "High", BlockingPatents: []datasource.Patent{{Number: "US1"}, {Number: "US2"}}}},
			findings: []string{
				"FTO Status: Red (High risk)",
				"Active patents: 6, Expired: 0",
				"Blocking patents identified: 2",
			},
			recs: []string{
				"High FTO risk - require detailed IP analysis and potential licensing",
				"Review blocking patents for licensing opportunities or expiry dates",
			},
		},
		{
			name: "amber",
			data: &datasource.PatentData{ActivePatents: 2, ExpiredPatents: 1, FTO: datasource.FTOAssessment{Status: datasource.FTOAmber, RiskLevel: "Medium"}},
			findings: []string{
				"FTO Status: Amber (Medium risk)",
				"Active patents: 2, Expired: 1",
			},
			recs: []string{"Moderate FTO risk - consider licensing or design-around strategies"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, recs, err := patentInsights(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.findings, findings)
			assert.Equal(t, tt.recs, recs)
		})
	}
}

func TestTrialInsights(t *testing.T) {
	trials := make([]datasource.Trial, 14)
	for i := range trials {
		trials[i] = datasource.Trial{ID: fmt.Sprintf("NCT%d", i)}
	}
	data := &datasource.TrialsData{
		Trials:          trials,
		OngoingTrials:   12,
		CompletedTrials: 2,
		PhaseDistribution: []datasource.Count{
			{Name: "Phase 1", Count: 4},
			{Name: "Phase 2", Count: 10},
		},
		EmergingIndications: []datasource.Count{
			{Name: "Obesity", Count: 5},
			{Name: "Cancer", Count: 3},
			{Name: "Hypertension", Count: 1},
			{Name: "Chronic Pain", Count: 1},
		},
	}
	findings, recs, err := trialInsights(data)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Total trials: 14 (Ongoing: 12, Completed: 2)",
		"Phase distribution: Phase 1: 4, Phase 2: 10",
		"Top emerging indication: Obesity (5 trials)",
		"High research activity - strong repurposing interest",
	}, findings)
	assert.Equal(t, []string{
		"High research momentum - consider aligning with active research areas",
		"Focus on emerging indications: Obesity, Cancer, Hypertension",
		"Active Phase 2/3 trials indicate strong clinical validation potential",
	}, recs)

	findings, recs, err = trialInsights(&datasource.TrialsData{OngoingTrials: 2})
	require.NoError(t, err)
	assert.Contains(t, findings, "Limited ongoing research")
	assert.Equal(t, []string{"Limited research activity - potential whitespace opportunity"}, recs)
}

func TestInternalInsights(t *testing.T) {
	data := &datasource.InternalData{
		Documents:         make([]datasource.InternalDocument, 4),
		StrategyAlignment: "High",
		PriorityLevel:     datasource.PriorityTop,
		FieldInsights:     []string{"KOLs report off-label use"},
		TopDepartment:     "Medical Affairs",
	}
	findings, recs, err := internalInsights(data)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Strategy alignment: High",
		"Priority level: " + datasource.PriorityTop,
		"Internal documents reviewed: 4",
		"Field intelligence points: 1",
		"Primary department: Medical Affairs",
	}, findings)
	assert.Equal(t, []string{
		"Strong strategy alignment - prioritize this repurposing opportunity",
		"High internal priority - allocate resources accordingly",
		"Field intelligence available - incorporate market signals into strategy",
		"Strong alignment and priority - fast-track repurposing initiative",
	}, recs)

	_, recs, err = internalInsights(&datasource.InternalData{StrategyAlignment: "Low", PriorityLevel: datasource.PriorityMedium})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Low strategy alignment - may require strategic review",
		"Moderate priority - monitor and evaluate progress",
	}, recs)
}

func TestWebInsights(t *testing.T) {
	results := make([]datasource.WebResult, 0, 22)
	for i := 0; i < 22; i++ {
		r := datasource.WebResult{Title: fmt.Sprintf("result %d", i), SourceType: datasource.SourceScientificPublication, Date: "2023-05-01"}
		if i < 6 {
			r.Date = "2024-03-10"
		}
		results = append(results, r)
	}
	data := &datasource.WebData{
		Results: results,
		BySourceType: []datasource.Count{
			{Name: datasource.SourceScientificPublication, Count: 20},
			{Name: datasource.SourceClinicalGuideline, Count: 2},
		},
	}
	findings, recs, err := webInsights(data)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Total sources found: 22",
		"Primary source type: Scientific Publication (20 results)",
		"Recent publications (2024): 6",
		"Source types: Scientific Publication, Clinical Guideline",
	}, findings)
	assert.Equal(t, []string{
		"Strong evidence base - multiple sources support repurposing potential",
		"Strong scientific publication support - evidence-based opportunity",
		"Clinical guidelines available - regulatory pathway support",
		"High recent publication activity - active research area",
	}, recs)

	_, recs, err = webInsights(&datasource.WebData{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Limited evidence base - may require additional research"}, recs)
}

func TestInsights_RejectForeignDataset(t *testing.T) {
	for c, p := range profiles {
		var foreign datasource.Dataset = &datasource.MarketData{}
		if c == models.CapabilityMarket {
			foreign = &datasource.WebData{}
		}
		_, _, err := p.insights(foreign)
		assert.Error(t, err, "capability %s", c)
	}
}
