package datasource

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/harrison/researchflow/internal/models"
	"github.com/harrison/researchflow/internal/registry"
)

// MockConfig tunes the mock provider.
type MockConfig struct {
	Seed    uint64                     // Mixed into every per-call RNG
	Latency time.Duration              // Simulated upstream latency per fetch
	Fail    map[models.Capability]bool // Capabilities whose fetches always fail
	Now     func() time.Time           // Clock for date-relative data (default time.Now)
}

// MockProvider generates synthetic datasets. Each call builds its own RNG from
// the seed, capability, subject and params, so concurrent calls share no
// mutable state and identical inputs give identical data.
type MockProvider struct {
	seed    uint64
	latency time.Duration
	fail    map[models.Capability]bool
	now     func() time.Time
}

// NewMockProvider creates a mock provider.
func NewMockProvider(cfg MockConfig) *MockProvider {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	fail := make(map[models.Capability]bool, len(cfg.Fail))
	for c, v := range cfg.Fail {
		fail[c] = v
	}
	return &MockProvider{
		seed:    cfg.Seed,
		latency: cfg.Latency,
		fail:    fail,
		now:     now,
	}
}

// Fetch implements Provider.
func (p *MockProvider) Fetch(ctx context.Context, capability models.Capability, subject string, params map[string]string) (Dataset, error) {
	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &FetchError{Capability: capability, Subject: subject, Err: ctx.Err()}
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, &FetchError{Capability: capability, Subject: subject, Err: err}
	}

	if p.fail[capability] {
		return nil, &FetchError{Capability: capability, Subject: subject, Err: ErrInjectedFault}
	}

	rng := p.rng(capability, subject, params)
	now := p.now()

	switch capability {
	case models.CapabilityMarket:
		return generateMarket(rng, subject, params[registry.KeyRegion]), nil
	case models.CapabilityTrade:
		return generateTrade(rng, subject), nil
	case models.CapabilityPatent:
		return generatePatents(rng, subject, params[registry.KeyTherapyArea], now), nil
	case models.CapabilityClinicalTrials:
		return generateTrials(rng, subject, params[registry.KeyMechanism], now), nil
	case models.CapabilityInternal:
		return generateInternal(rng, subject, params[registry.KeyDocumentFilter]), nil
	case models.CapabilityWeb:
		return generateWeb(rng, subject, params[registry.KeyTargetIndication]), nil
	default:
		return nil, &FetchError{Capability: capability, Subject: subject, Err: ErrUnsupportedCapability}
	}
}

func (p *MockProvider) rng(capability models.Capability, subject string, params map[string]string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(capability))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(subject)))
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k + "=" + params[k]))
	}
	return rand.New(rand.NewPCG(p.seed, h.Sum64()))
}

// intBetween returns a uniform int in [lo, hi].
func intBetween(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

// floatBetween returns a uniform float in [lo, hi) rounded to the given decimals.
func floatBetween(rng *rand.Rand, lo, hi float64, decimals int) float64 {
	v := lo + rng.Float64()*(hi-lo)
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}

// sample returns k distinct items in random order.
func sample[T any](rng *rand.Rand, items []T, k int) []T {
	out := slices.Clone(items)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if k > len(out) {
		k = len(out)
	}
	return out[:k]
}

// mostCommon returns the most frequent value, ties broken alphabetically.
func mostCommon(values []string) string {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	best := ""
	for v, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && v < best) {
			best = v
		}
	}
	return best
}
