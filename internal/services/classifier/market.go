package classifier

import (
	"github.com/vadiminshakov/quorum/internal/domain"
)

var (
	stateHighUncertaintyChaos = State{
		ID:                domain.MarketHighUncertaintyChaos,
		Description:       "signals disagree under extreme uncertainty",
		RecommendedAction: "cut exposure and wait for the regime to settle",
	}
	stateCapitulation = State{
		ID:                domain.MarketCapitulation,
		Description:       "panic selling on heavy volume",
		RecommendedAction: "stay out until selling exhausts",
	}
	stateFocalPointConvergence = State{
		ID:                domain.MarketFocalPointConvergence,
		Description:       "participants converge on a shared focal narrative",
		RecommendedAction: "position ahead of the focal event with small size",
	}
	stateBreakoutMomentum = State{
		ID:                domain.MarketBreakoutMomentum,
		Description:       "markup phase with strong momentum and greed",
		RecommendedAction: "follow the breakout with trailing stops",
	}
	stateDistributionWarning = State{
		ID:                domain.MarketDistributionWarning,
		Description:       "smart money distributing into strength",
		RecommendedAction: "take profit and tighten stops",
	}
	stateAccumulationUnderFear = State{
		ID:                domain.MarketAccumulationUnderFear,
		Description:       "fear while on-chain activity keeps growing",
		RecommendedAction: "accumulate gradually",
	}
	stateConvictionHold = State{
		ID:                domain.MarketConvictionHold,
		Description:       "cooperative market drifting upwards",
		RecommendedAction: "hold core position",
	}
	stateRangeHarvest = State{
		ID:                domain.MarketRangeHarvest,
		Description:       "calm ranging market",
		RecommendedAction: "harvest the range edges",
	}
)

// MarketTable lists the market-regime rules.
func MarketTable() Table {
	return Table{
		Perspective: domain.PerspectiveMarket,
		Rules: []Rule{
			{
				Predicate: func(_ domain.FeatureVector, m domain.RegimeMetrics) bool {
					band := m.Uncertainty.Band
					return band == domain.UncertaintyExtreme ||
						(m.CooperationRegime == domain.RegimeDefection && band == domain.UncertaintyHigh)
				},
				State: stateHighUncertaintyChaos,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.SentimentIndex <= 15 && fv.Momentum <= -0.5 && fv.VolumeChangePct >= 50
				},
				State: stateCapitulation,
			},
			{
				Predicate: func(_ domain.FeatureVector, m domain.RegimeMetrics) bool {
					return m.CooperationRegime == domain.RegimeFocalPoint
				},
				State: stateFocalPointConvergence,
			},
			{
				Predicate: func(fv domain.FeatureVector, m domain.RegimeMetrics) bool {
					return m.TrendPhase == domain.PhaseMarkup && fv.Momentum >= 0.5 && fv.SentimentIndex >= 60
				},
				State: stateBreakoutMomentum,
			},
			{
				Predicate: func(fv domain.FeatureVector, m domain.RegimeMetrics) bool {
					return m.TrendPhase == domain.PhaseDistribution || (fv.SentimentIndex >= 75 && fv.Momentum < 0)
				},
				State: stateDistributionWarning,
			},
			{
				Predicate: func(fv domain.FeatureVector, m domain.RegimeMetrics) bool {
					return fv.SentimentIndex <= 30 &&
						(m.TrendPhase == domain.PhaseAccumulation || fv.OnchainChangePct > 0)
				},
				State: stateAccumulationUnderFear,
			},
			{
				Predicate: func(fv domain.FeatureVector, m domain.RegimeMetrics) bool {
					return m.CooperationRegime == domain.RegimeCooperative && fv.Momentum > 0
				},
				State: stateConvictionHold,
			},
			{
				Predicate: func(_ domain.FeatureVector, m domain.RegimeMetrics) bool {
					return m.TrendPhase == domain.PhaseRanging && m.Uncertainty.Band == domain.UncertaintyLow
				},
				State: stateRangeHarvest,
			},
		},
	}
}
