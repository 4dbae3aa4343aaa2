package classifier

import (
	"github.com/vadiminshakov/quorum/internal/domain"
)

var (
	stateViralRide = State{
		ID:                domain.NarrativeViralRide,
		Description:       "meme spreading fast with positive momentum",
		RecommendedAction: "ride the wave, keep posts short",
	}
	stateFlagshipMoment = State{
		ID:                domain.NarrativeFlagshipMoment,
		Description:       "dominant narrative with upbeat sentiment",
		RecommendedAction: "publish the flagship announcement",
	}
	stateHypeAmplification = State{
		ID:                domain.NarrativeHypeAmplification,
		Description:       "meme and narrative reinforce each other",
		RecommendedAction: "amplify but avoid overpromising",
	}
	stateCelebration = State{
		ID:                domain.NarrativeCelebration,
		Description:       "euphoric sentiment with strong momentum",
		RecommendedAction: "celebrate milestones with the community",
	}
	stateResolveUnderPressure = State{
		ID:                domain.NarrativeResolveUnderPressure,
		Description:       "strong narrative holding up against fear",
		RecommendedAction: "show steady progress under pressure",
	}
	stateFactBasedCounterNarrative = State{
		ID:                domain.NarrativeFactBasedCounterNarrative,
		Description:       "negative memes spreading in fearful market",
		RecommendedAction: "counter with verifiable facts",
	}
	stateCommunityBuilding = State{
		ID:                domain.NarrativeCommunityBuilding,
		Description:       "moderate narrative in a calm market",
		RecommendedAction: "invest in community engagement",
	}
	stateLowProfileSubstance = State{
		ID:                domain.NarrativeLowProfileSubstance,
		Description:       "little attention on the narrative",
		RecommendedAction: "ship substance quietly",
	}
)

// NarrativeTable lists the narrative-momentum rules.
func NarrativeTable() Table {
	return Table{
		Perspective: domain.PerspectiveNarrative,
		Rules: []Rule{
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.MemeVelocity >= 0.8 && fv.Momentum > 0
				},
				State: stateViralRide,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.NarrativeStrength >= 0.8 && fv.SentimentIndex >= 60
				},
				State: stateFlagshipMoment,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.MemeVelocity >= 0.6 && fv.NarrativeStrength >= 0.5
				},
				State: stateHypeAmplification,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.SentimentIndex >= 80 && fv.Momentum >= 0.5
				},
				State: stateCelebration,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.SentimentIndex <= 30 && fv.NarrativeStrength >= 0.5
				},
				State: stateResolveUnderPressure,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.SentimentIndex <= 35 && fv.MemeVelocity >= 0.5
				},
				State: stateFactBasedCounterNarrative,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.NarrativeStrength >= 0.3 && fv.NarrativeStrength < 0.6 &&
						fv.MemeVelocity < 0.4 && fv.Volatility < 0.4
				},
				State: stateCommunityBuilding,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.NarrativeStrength < 0.3 && fv.MemeVelocity < 0.3
				},
				State: stateLowProfileSubstance,
			},
		},
	}
}
