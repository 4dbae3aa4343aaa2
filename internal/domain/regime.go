package domain

// UncertaintyBand is the discrete banding of the uncertainty value.
type UncertaintyBand string

const (
	UncertaintyLow     UncertaintyBand = "LOW"
	UncertaintyMedium  UncertaintyBand = "MEDIUM"
	UncertaintyHigh    UncertaintyBand = "HIGH"
	UncertaintyExtreme UncertaintyBand = "EXTREME"
)

// Rank returns the band position, LOW being 0. Unknown bands rank -1.
func (b UncertaintyBand) Rank() int {
	switch b {
	case UncertaintyLow:
		return 0
	case UncertaintyMedium:
		return 1
	case UncertaintyHigh:
		return 2
	case UncertaintyExtreme:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether b is the same as or above other.
func (b UncertaintyBand) AtLeast(other UncertaintyBand) bool {
	return b.Rank() >= other.Rank()
}

// CooperationRegime describes how the actors of the system currently behave towards each other.
type CooperationRegime string

const (
	RegimeCooperative CooperationRegime = "COOPERATIVE"
	RegimeCompetitive CooperationRegime = "COMPETITIVE"
	RegimeDefection   CooperationRegime = "DEFECTION"
	RegimeEquilibrium CooperationRegime = "EQUILIBRIUM"
	RegimeFocalPoint  CooperationRegime = "FOCAL_POINT"
)

// CooperationRegimes lists every regime in declaration order.
var CooperationRegimes = []CooperationRegime{
	RegimeCooperative,
	RegimeCompetitive,
	RegimeDefection,
	RegimeEquilibrium,
	RegimeFocalPoint,
}

// Valid reports whether r is a known regime.
func (r CooperationRegime) Valid() bool {
	for _, known := range CooperationRegimes {
		if r == known {
			return true
		}
	}
	return false
}

// TrendPhase is the market cycle phase.
type TrendPhase string

const (
	PhaseAccumulation TrendPhase = "ACCUMULATION"
	PhaseDistribution TrendPhase = "DISTRIBUTION"
	PhaseMarkup       TrendPhase = "MARKUP"
	PhaseMarkdown     TrendPhase = "MARKDOWN"
	PhaseRanging      TrendPhase = "RANGING"
)

// Uncertainty holds a value in [0,1] and its band.
type Uncertainty struct {
	Value      float64         `json:"value"`
	Band       UncertaintyBand `json:"band"`
	Dispersion float64         `json:"dispersion"`
}

// Hint is the fallback recommendation for a single perspective.
type Hint struct {
	State      string  `json:"state"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// RegimeMetrics holds the cross-cutting metrics derived from a FeatureVector.
type RegimeMetrics struct {
	Uncertainty        Uncertainty            `json:"uncertainty"`
	CooperationRegime  CooperationRegime      `json:"cooperation_regime"`
	TrendPhase         TrendPhase             `json:"trend_phase"`
	PerPerspectiveHint map[PerspectiveID]Hint `json:"per_perspective_hint"`
}

// Snapshot returns the subset of metrics kept on a decision record.
func (m RegimeMetrics) Snapshot() RegimeSnapshot {
	return RegimeSnapshot{
		UncertaintyBand:   m.Uncertainty.Band,
		Uncertainty:       m.Uncertainty.Value,
		CooperationRegime: m.CooperationRegime,
		TrendPhase:        m.TrendPhase,
	}
}
