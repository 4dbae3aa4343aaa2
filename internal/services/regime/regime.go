// Package regime derives cross-cutting regime metrics (uncertainty, cooperation regime,
// trend phase and per-perspective fallback hints) from a feature vector.
package regime

import (
	"math"

	"github.com/vadiminshakov/quorum/internal/domain"
)

// Engine derives regime metrics under a fixed policy. It holds no mutable state.
type Engine struct {
	policy Policy
}

// NewEngine creates a regime engine with the given policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy returns the policy the engine runs with.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Derive computes regime metrics. Input is clamped first, so Derive is total.
func (e *Engine) Derive(fv domain.FeatureVector) domain.RegimeMetrics {
	fv = fv.Clamp()

	dispersion := e.dispersion(fv)
	uncertainty := domain.Clamp01(e.policy.VolatilityWeight*fv.Volatility + e.policy.DispersionWeight*dispersion)

	in := inputs{fv: fv, dispersion: dispersion, extremity: fv.SentimentExtremity()}
	cooperation := e.cooperationRegime(in)

	return domain.RegimeMetrics{
		Uncertainty: domain.Uncertainty{
			Value:      uncertainty,
			Band:       e.policy.band(uncertainty),
			Dispersion: dispersion,
		},
		CooperationRegime:  cooperation,
		TrendPhase:         e.trendPhase(fv),
		PerPerspectiveHint: Hints(cooperation),
	}
}

// Derive runs the default policy.
func Derive(fv domain.FeatureVector) domain.RegimeMetrics {
	return defaultEngine.Derive(fv)
}

var defaultEngine = NewEngine(DefaultPolicy())

type inputs struct {
	fv         domain.FeatureVector
	dispersion float64
	extremity  float64
}

// directionalSignals returns the readings of the vector that carry a bullish/bearish direction, each in [-1,1].
func (e *Engine) directionalSignals(fv domain.FeatureVector) []float64 {
	onchain := 0.0
	if e.policy.OnchainScale > 0 {
		onchain = math.Tanh(fv.OnchainChangePct / e.policy.OnchainScale)
	}
	return []float64{fv.SentimentBias(), fv.Momentum, onchain}
}

// dispersion is the binary Shannon entropy of bullish versus bearish mass,
// scaled by the share of signals that point anywhere at all.
// All-neutral or fully aligned signals give 0; an even bull/bear split gives the maximum.
func (e *Engine) dispersion(fv domain.FeatureVector) float64 {
	signals := e.directionalSignals(fv)

	var bull, bear float64
	for _, s := range signals {
		switch {
		case s > e.policy.SignalDeadband:
			bull += s
		case s < -e.policy.SignalDeadband:
			bear += -s
		}
	}

	total := bull + bear
	if total == 0 {
		return 0
	}

	p := bull / total
	mass := math.Min(1, total/float64(len(signals)))

	return domain.Clamp01(binaryEntropy(p) * mass)
}

func binaryEntropy(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return -p*math.Log2(p) - (1-p)*math.Log2(1-p)
}

type cooperationRule struct {
	regime domain.CooperationRegime
	match  func(in inputs) bool
}

// cooperationRules returns the rules ordered by priority. The first match wins.
func (e *Engine) cooperationRules() []cooperationRule {
	c := e.policy.Cooperation
	return []cooperationRule{
		{domain.RegimeDefection, func(in inputs) bool {
			return in.fv.Volatility >= c.DefectionVolatility && in.dispersion >= c.DefectionDispersion
		}},
		{domain.RegimeFocalPoint, func(in inputs) bool {
			return in.fv.MemeVelocity >= c.FocalMemeVelocity && in.fv.NarrativeStrength >= c.FocalNarrative
		}},
		{domain.RegimeCooperative, func(in inputs) bool {
			sameSign := in.fv.SentimentBias()*in.fv.Momentum > 0
			return in.fv.Volatility < c.CooperativeVolatility &&
				sameSign &&
				in.extremity >= c.CooperativeExtremity &&
				math.Abs(in.fv.Momentum) >= c.CooperativeMomentum &&
				in.dispersion < c.CooperativeDispersion
		}},
		{domain.RegimeEquilibrium, func(in inputs) bool {
			return in.extremity < c.EquilibriumExtremity && in.fv.Volatility < c.EquilibriumVolatility
		}},
		{domain.RegimeCompetitive, func(in inputs) bool {
			return in.fv.Volatility >= c.CompetitiveVolatility ||
				math.Abs(in.fv.Momentum) >= c.CompetitiveMomentum ||
				in.extremity >= c.CompetitiveExtremity
		}},
	}
}

func (e *Engine) cooperationRegime(in inputs) domain.CooperationRegime {
	for _, rule := range e.cooperationRules() {
		if rule.match(in) {
			return rule.regime
		}
	}
	return domain.RegimeEquilibrium
}

func (e *Engine) trendPhase(fv domain.FeatureVector) domain.TrendPhase {
	t := e.policy.Trend
	rules := []struct {
		phase domain.TrendPhase
		match bool
	}{
		{domain.PhaseMarkup, fv.Momentum >= t.Momentum && fv.VolumeChangePct >= t.VolumeChange},
		{domain.PhaseMarkdown, fv.Momentum <= -t.Momentum && fv.VolumeChangePct >= t.VolumeChange},
		{domain.PhaseAccumulation, math.Abs(fv.Momentum) < t.Momentum && fv.OnchainChangePct >= t.OnchainChange},
		{domain.PhaseDistribution, math.Abs(fv.Momentum) < t.Momentum && fv.OnchainChangePct <= -t.OnchainChange},
		{domain.PhaseMarkup, fv.Momentum >= t.StrongMomentum},
		{domain.PhaseMarkdown, fv.Momentum <= -t.StrongMomentum},
	}

	for _, rule := range rules {
		if rule.match {
			return rule.phase
		}
	}
	return domain.PhaseRanging
}
