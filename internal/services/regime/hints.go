package regime

import "github.com/vadiminshakov/quorum/internal/domain"

// hintTable fallback recommendations per cooperation regime and perspective.
// Every classifier falls back to this table when none of its rules match.
var hintTable = map[domain.CooperationRegime]map[domain.PerspectiveID]domain.Hint{
	domain.RegimeCooperative: {
		domain.PerspectiveMarket:    {State: domain.MarketConvictionHold, Action: "hold core position, add on dips", Confidence: 0.6},
		domain.PerspectiveThreat:    {State: domain.ThreatNormalOperations, Action: "routine monitoring", Confidence: 0.7},
		domain.PerspectiveNarrative: {State: domain.NarrativeCommunityBuilding, Action: "amplify shared wins", Confidence: 0.55},
		domain.PerspectiveCoherence: {State: domain.CoherenceAligned, Action: "keep current coordination", Confidence: 0.6},
	},
	domain.RegimeCompetitive: {
		domain.PerspectiveMarket:    {State: domain.MarketRangeHarvest, Action: "trade the range with tight stops", Confidence: 0.45},
		domain.PerspectiveThreat:    {State: domain.ThreatNormalOperations, Action: "routine monitoring", Confidence: 0.6},
		domain.PerspectiveNarrative: {State: domain.NarrativeLowProfileSubstance, Action: "ship quietly, let results talk", Confidence: 0.5},
		domain.PerspectiveCoherence: {State: domain.CoherenceActivelyOptimizing, Action: "rebalance agent priorities", Confidence: 0.5},
	},
	domain.RegimeDefection: {
		domain.PerspectiveMarket:    {State: domain.MarketHighUncertaintyChaos, Action: "reduce exposure, wait for clarity", Confidence: 0.55},
		domain.PerspectiveThreat:    {State: domain.ThreatElevatedMonitoring, Action: "tighten monitoring while actors defect", Confidence: 0.6},
		domain.PerspectiveNarrative: {State: domain.NarrativeFactBasedCounterNarrative, Action: "answer noise with verifiable facts", Confidence: 0.5},
		domain.PerspectiveCoherence: {State: domain.CoherenceDiverging, Action: "resync agents before acting", Confidence: 0.55},
	},
	domain.RegimeEquilibrium: {
		domain.PerspectiveMarket:    {State: domain.MarketRangeHarvest, Action: "harvest the range", Confidence: 0.5},
		domain.PerspectiveThreat:    {State: domain.ThreatNormalOperations, Action: "routine monitoring", Confidence: 0.7},
		domain.PerspectiveNarrative: {State: domain.NarrativeLowProfileSubstance, Action: "build substance, stay low profile", Confidence: 0.5},
		domain.PerspectiveCoherence: {State: domain.CoherenceMaintenance, Action: "use the calm for maintenance", Confidence: 0.5},
	},
	domain.RegimeFocalPoint: {
		domain.PerspectiveMarket:    {State: domain.MarketFocalPointConvergence, Action: "position ahead of the focal event", Confidence: 0.55},
		domain.PerspectiveThreat:    {State: domain.ThreatElevatedMonitoring, Action: "watch for opportunistic attacks", Confidence: 0.55},
		domain.PerspectiveNarrative: {State: domain.NarrativeHypeAmplification, Action: "ride the shared narrative", Confidence: 0.55},
		domain.PerspectiveCoherence: {State: domain.CoherenceEmergentBehavior, Action: "observe emergent coordination", Confidence: 0.5},
	},
}

// Hints returns a copy of the hint row for the regime.
// Unknown regimes resolve to the EQUILIBRIUM row.
func Hints(r domain.CooperationRegime) map[domain.PerspectiveID]domain.Hint {
	row, ok := hintTable[r]
	if !ok {
		row = hintTable[domain.RegimeEquilibrium]
	}

	out := make(map[domain.PerspectiveID]domain.Hint, len(row))
	for id, h := range row {
		out[id] = h
	}
	return out
}
