package classifier

import (
	"github.com/vadiminshakov/quorum/internal/domain"
)

var (
	stateDegraded = State{
		ID:                domain.CoherenceDegraded,
		Description:       "system health degraded or critical errors piling up",
		RecommendedAction: "restart failing agents before trusting their output",
		Coherence:         domain.CoherenceLow,
	}
	stateSelfReferentialLoop = State{
		ID:                domain.CoherenceSelfReferentialLoop,
		Description:       "agents agree perfectly while the world is uncertain",
		RecommendedAction: "inject an independent signal to break the echo",
		Coherence:         domain.CoherenceLow,
	}
	stateDiverging = State{
		ID:                domain.CoherenceDiverging,
		Description:       "agents disagree",
		RecommendedAction: "resync agent state",
		Coherence:         domain.CoherenceLow,
	}
	stateMaintenance = State{
		ID:                domain.CoherenceMaintenance,
		Description:       "minor errors with reduced health",
		RecommendedAction: "schedule maintenance",
		Coherence:         domain.CoherenceMedium,
	}
	stateEmergentBehavior = State{
		ID:                domain.CoherenceEmergentBehavior,
		Description:       "agents self-organise around a focal point",
		RecommendedAction: "observe and record the emergent pattern",
		Coherence:         domain.CoherenceMedium,
	}
	stateScaling = State{
		ID:                domain.CoherenceScaling,
		Description:       "healthy synchronized system under growing load",
		RecommendedAction: "add capacity",
		Coherence:         domain.CoherenceHigh,
	}
	stateAligned = State{
		ID:                domain.CoherenceAligned,
		Description:       "healthy and synchronized",
		RecommendedAction: "keep current coordination",
		Coherence:         domain.CoherenceHigh,
	}
	stateActivelyOptimizing = State{
		ID:                domain.CoherenceActivelyOptimizing,
		Description:       "reasonably healthy, tuning in progress",
		RecommendedAction: "continue optimizing agent priorities",
		Coherence:         domain.CoherenceMedium,
	}
)

// CoherenceTable lists the system-coherence rules.
func CoherenceTable() Table {
	return Table{
		Perspective: domain.PerspectiveCoherence,
		Rules: []Rule{
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.SystemHealth < 0.4 || fv.CriticalErrorCount >= 5
				},
				State: stateDegraded,
			},
			{
				Predicate: func(fv domain.FeatureVector, m domain.RegimeMetrics) bool {
					return fv.AgentSyncScore >= 0.95 && m.Uncertainty.Band.AtLeast(domain.UncertaintyHigh)
				},
				State: stateSelfReferentialLoop,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.AgentSyncScore < 0.4
				},
				State: stateDiverging,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.CriticalErrorCount >= 1 && fv.SystemHealth < 0.7
				},
				State: stateMaintenance,
			},
			{
				Predicate: func(fv domain.FeatureVector, m domain.RegimeMetrics) bool {
					return m.CooperationRegime == domain.RegimeFocalPoint && fv.AgentSyncScore >= 0.6
				},
				State: stateEmergentBehavior,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.SystemHealth >= 0.9 && fv.AgentSyncScore >= 0.8 && fv.VolumeChangePct >= 50
				},
				State: stateScaling,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.SystemHealth >= 0.8 && fv.AgentSyncScore >= 0.7
				},
				State: stateAligned,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.SystemHealth >= 0.6 && fv.AgentSyncScore >= 0.5
				},
				State: stateActivelyOptimizing,
			},
		},
	}
}
