package classifier

import (
	"github.com/vadiminshakov/quorum/internal/domain"
)

var (
	stateConfirmedBreach = State{
		ID:                domain.ThreatConfirmedBreach,
		Description:       "breach confirmed",
		RecommendedAction: "exit all positions, rotate keys, start incident response",
		Severity:          5,
	}
	stateActiveAttack = State{
		ID:                domain.ThreatActiveAttack,
		Description:       "attack in progress or component compromised",
		RecommendedAction: "freeze trading and isolate affected services",
		Severity:          4,
	}
	stateActiveThreat = State{
		ID:                domain.ThreatActiveThreat,
		Description:       "threat indicators backed by suspicious activity",
		RecommendedAction: "block offending sources and reduce exposure",
		Severity:          3,
	}
	stateSuspiciousActivity = State{
		ID:                domain.ThreatSuspiciousActivity,
		Description:       "isolated suspicious signals",
		RecommendedAction: "investigate and enable extra logging",
		Severity:          2,
	}
	stateElevatedMonitoring = State{
		ID:                domain.ThreatElevatedMonitoring,
		Description:       "counters above baseline",
		RecommendedAction: "raise alert sensitivity",
		Severity:          1,
	}
	stateNormalOperations = State{
		ID:                domain.ThreatNormalOperations,
		Description:       "no threat signals",
		RecommendedAction: "routine monitoring",
		Severity:          0,
	}
)

// ThreatTable lists the threat-level rules, highest tier first.
func ThreatTable() Table {
	return Table{
		Perspective: domain.PerspectiveThreat,
		Rules: []Rule{
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.ThreatFlags.Breach
				},
				State: stateConfirmedBreach,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.ThreatFlags.ActiveAttack || fv.ThreatFlags.Compromised
				},
				State: stateActiveAttack,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.ThreatFlags.ThreatIndicators &&
						(fv.ThreatFlags.SuspiciousPatterns || fv.FailedLogins >= 20)
				},
				State: stateActiveThreat,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.ThreatFlags.ThreatIndicators ||
						fv.ThreatFlags.SuspiciousPatterns ||
						fv.FailedLogins >= 10 ||
						fv.UnusualRequests >= 100
				},
				State: stateSuspiciousActivity,
			},
			{
				Predicate: func(fv domain.FeatureVector, _ domain.RegimeMetrics) bool {
					return fv.FailedLogins >= 3 || fv.UnusualRequests >= 20 || fv.NewDependencies >= 3
				},
				State: stateElevatedMonitoring,
			},
		},
		Extra: []State{stateNormalOperations},
	}
}
