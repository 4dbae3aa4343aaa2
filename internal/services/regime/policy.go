package regime

import "github.com/vadiminshakov/quorum/internal/domain"

// Policy holds the numeric constants used by the regime engine.
// It is versioned so that recorded decisions can be traced back to the thresholds that produced them.
type Policy struct {
	Version string

	// VolatilityWeight and DispersionWeight blend the uncertainty value.
	VolatilityWeight float64
	DispersionWeight float64
	// SignalDeadband marks directional readings within +-deadband as neutral.
	SignalDeadband float64
	// OnchainScale is the percentage at which the on-chain reading reaches tanh(1).
	OnchainScale float64

	// Band cut points: value < MediumFrom is LOW, < HighFrom MEDIUM, < ExtremeFrom HIGH.
	MediumFrom  float64
	HighFrom    float64
	ExtremeFrom float64

	Cooperation CooperationThresholds
	Trend       TrendThresholds
}

// CooperationThresholds holds the cut points of the cooperation regime rules.
type CooperationThresholds struct {
	DefectionVolatility   float64
	DefectionDispersion   float64
	FocalMemeVelocity     float64
	FocalNarrative        float64
	CooperativeVolatility float64
	CooperativeExtremity  float64
	CooperativeMomentum   float64
	CooperativeDispersion float64
	EquilibriumExtremity  float64
	EquilibriumVolatility float64
	CompetitiveVolatility float64
	CompetitiveMomentum   float64
	CompetitiveExtremity  float64
}

// TrendThresholds holds the cut points of the trend phase rules.
type TrendThresholds struct {
	Momentum       float64
	StrongMomentum float64
	VolumeChange   float64
	OnchainChange  float64
}

// DefaultPolicy returns the v1 policy.
func DefaultPolicy() Policy {
	return Policy{
		Version:          "v1",
		VolatilityWeight: 0.6,
		DispersionWeight: 0.4,
		SignalDeadband:   0.1,
		OnchainScale:     20,
		MediumFrom:       0.3,
		HighFrom:         0.6,
		ExtremeFrom:      0.8,
		Cooperation: CooperationThresholds{
			DefectionVolatility:   0.6,
			DefectionDispersion:   0.5,
			FocalMemeVelocity:     0.7,
			FocalNarrative:        0.6,
			CooperativeVolatility: 0.4,
			CooperativeExtremity:  0.3,
			CooperativeMomentum:   0.3,
			CooperativeDispersion: 0.3,
			EquilibriumExtremity:  0.2,
			EquilibriumVolatility: 0.3,
			CompetitiveVolatility: 0.35,
			CompetitiveMomentum:   0.3,
			CompetitiveExtremity:  0.4,
		},
		Trend: TrendThresholds{
			Momentum:       0.3,
			StrongMomentum: 0.5,
			VolumeChange:   10,
			OnchainChange:  5,
		},
	}
}

// band maps an uncertainty value to its band.
func (p Policy) band(value float64) domain.UncertaintyBand {
	switch {
	case value < p.MediumFrom:
		return domain.UncertaintyLow
	case value < p.HighFrom:
		return domain.UncertaintyMedium
	case value < p.ExtremeFrom:
		return domain.UncertaintyHigh
	default:
		return domain.UncertaintyExtreme
	}
}
