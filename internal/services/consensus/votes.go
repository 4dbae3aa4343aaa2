package consensus

import (
	"github.com/vadiminshakov/quorum/internal/domain"
)

// membership is the direction and magnitude of a state's vote.
type membership struct {
	direction domain.Direction
	magnitude float64
}

func bullish(m float64) membership { return membership{domain.DirectionBullish, m} }
func bearish(m float64) membership { return membership{domain.DirectionBearish, m} }

var neutral = membership{direction: domain.DirectionNeutral}

// voteTable holds the fixed bullish/bearish membership of every state, declared once per perspective.
var voteTable = map[domain.PerspectiveID]map[string]membership{
	domain.PerspectiveMarket: {
		domain.MarketBreakoutMomentum:      bullish(1.0),
		domain.MarketConvictionHold:        bullish(0.7),
		domain.MarketAccumulationUnderFear: bullish(0.6),
		domain.MarketFocalPointConvergence: bullish(0.5),
		domain.MarketRangeHarvest:          neutral,
		domain.MarketHighUncertaintyChaos:  bearish(0.6),
		domain.MarketDistributionWarning:   bearish(0.7),
		domain.MarketCapitulation:          bearish(0.8),
	},
	domain.PerspectiveThreat: {
		domain.ThreatNormalOperations:   bullish(0.2),
		domain.ThreatElevatedMonitoring: bearish(0.2),
		domain.ThreatSuspiciousActivity: bearish(0.5),
		domain.ThreatActiveThreat:       bearish(0.8),
		domain.ThreatActiveAttack:       bearish(1.0),
		domain.ThreatConfirmedBreach:    bearish(1.0),
	},
	domain.PerspectiveNarrative: {
		domain.NarrativeFlagshipMoment:            bullish(0.9),
		domain.NarrativeViralRide:                 bullish(0.8),
		domain.NarrativeHypeAmplification:         bullish(0.6),
		domain.NarrativeCelebration:               bullish(0.5),
		domain.NarrativeCommunityBuilding:         bullish(0.3),
		domain.NarrativeLowProfileSubstance:       neutral,
		domain.NarrativeResolveUnderPressure:      bearish(0.4),
		domain.NarrativeFactBasedCounterNarrative: bearish(0.5),
	},
	domain.PerspectiveCoherence: {
		domain.CoherenceScaling:             bullish(0.5),
		domain.CoherenceAligned:             bullish(0.4),
		domain.CoherenceActivelyOptimizing:  bullish(0.2),
		domain.CoherenceEmergentBehavior:    neutral,
		domain.CoherenceMaintenance:         bearish(0.2),
		domain.CoherenceSelfReferentialLoop: bearish(0.3),
		domain.CoherenceDiverging:           bearish(0.4),
		domain.CoherenceDegraded:            bearish(0.6),
	},
}

// Vote converts a classification into a vote. Unknown states vote neutral.
func Vote(res domain.ClassificationResult, weight float64) domain.ConsensusVote {
	m, ok := voteTable[res.PerspectiveID][res.StateID]
	if !ok {
		m = neutral
	}

	return domain.ConsensusVote{
		PerspectiveID: res.PerspectiveID,
		StateID:       res.StateID,
		Direction:     m.direction,
		Magnitude:     m.magnitude,
		Weight:        weight,
	}
}

// tally sums weighted bullish and bearish totals, each divided by the total weight.
func tally(votes []domain.ConsensusVote, totalWeight float64) (bull, bear float64) {
	if totalWeight <= 0 {
		return 0, 0
	}

	for _, v := range votes {
		switch v.Direction {
		case domain.DirectionBullish:
			bull += v.Weight * v.Magnitude
		case domain.DirectionBearish:
			bear += v.Weight * v.Magnitude
		}
	}

	return bull / totalWeight, bear / totalWeight
}
