package domain

// These are the state identifiers of the four perspectives.
const (
	MarketAccumulationUnderFear = "accumulation-under-fear"
	MarketConvictionHold        = "conviction-hold"
	MarketBreakoutMomentum      = "breakout-momentum"
	MarketDistributionWarning   = "distribution-warning"
	MarketCapitulation          = "capitulation"
	MarketFocalPointConvergence = "focal-point-convergence"
	MarketRangeHarvest          = "range-harvest"
	MarketHighUncertaintyChaos  = "high-uncertainty-chaos"
)

const (
	ThreatNormalOperations   = "normal-operations"
	ThreatElevatedMonitoring = "elevated-monitoring"
	ThreatSuspiciousActivity = "suspicious-activity"
	ThreatActiveThreat       = "active-threat"
	ThreatActiveAttack       = "active-attack"
	ThreatConfirmedBreach    = "confirmed-breach"
)

const (
	NarrativeHypeAmplification         = "hype-amplification"
	NarrativeResolveUnderPressure      = "resolve-under-pressure"
	NarrativeFactBasedCounterNarrative = "fact-based-counter-narrative"
	NarrativeCommunityBuilding         = "community-building"
	NarrativeViralRide                 = "viral-ride"
	NarrativeFlagshipMoment            = "flagship-moment"
	NarrativeLowProfileSubstance       = "low-profile-substance"
	NarrativeCelebration               = "celebration"
)

const (
	CoherenceAligned             = "aligned"
	CoherenceSelfReferentialLoop = "self-referential-loop-detected"
	CoherenceDiverging           = "diverging"
	CoherenceActivelyOptimizing  = "actively-optimizing"
	CoherenceDegraded            = "degraded"
	CoherenceEmergentBehavior    = "emergent-behavior"
	CoherenceMaintenance         = "maintenance"
	CoherenceScaling             = "scaling"
)
