package domain

// PerspectiveID identifies one of the domain classifiers.
type PerspectiveID string

const (
	PerspectiveMarket    PerspectiveID = "market-regime"
	PerspectiveThreat    PerspectiveID = "threat-level"
	PerspectiveNarrative PerspectiveID = "narrative-momentum"
	PerspectiveCoherence PerspectiveID = "system-coherence"
)

// Perspectives is the fixed evaluation order of the classifiers.
var Perspectives = []PerspectiveID{
	PerspectiveMarket,
	PerspectiveThreat,
	PerspectiveNarrative,
	PerspectiveCoherence,
}

// Valid reports whether p is a known perspective.
func (p PerspectiveID) Valid() bool {
	for _, known := range Perspectives {
		if p == known {
			return true
		}
	}
	return false
}

// CoherenceLevel describes how well the agents of the system agree with each other.
type CoherenceLevel string

const (
	CoherenceUnknown CoherenceLevel = ""
	CoherenceLow     CoherenceLevel = "LOW"
	CoherenceMedium  CoherenceLevel = "MEDIUM"
	CoherenceHigh    CoherenceLevel = "HIGH"
)

// ClassificationResult is the single state a classifier produced for one call.
type ClassificationResult struct {
	PerspectiveID     PerspectiveID `json:"perspective_id"`
	StateID           string        `json:"state_id"`
	PriorityRank      int           `json:"priority_rank"`
	Description       string        `json:"description"`
	RecommendedAction string        `json:"recommended_action"`

	// Severity is the threat tier, only set by the threat-level perspective.
	Severity int `json:"severity,omitempty"`
	// Coherence is only set by the system-coherence perspective.
	Coherence CoherenceLevel `json:"coherence,omitempty"`
	// Fallback is true when no rule matched and the regime hint was used.
	Fallback   bool    `json:"fallback,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Direction is the sign of a consensus vote.
type Direction string

const (
	DirectionBullish Direction = "BULLISH"
	DirectionBearish Direction = "BEARISH"
	DirectionNeutral Direction = "NEUTRAL"
)

// Sign returns +1 for bullish, -1 for bearish and 0 otherwise.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionBullish:
		return 1
	case DirectionBearish:
		return -1
	default:
		return 0
	}
}

// ConsensusVote is the signed interpretation of a classification.
type ConsensusVote struct {
	PerspectiveID PerspectiveID `json:"perspective_id"`
	StateID       string        `json:"state_id"`
	Direction     Direction     `json:"direction"`
	Magnitude     float64       `json:"magnitude"`
	Weight        float64       `json:"weight"`
}

// MaxThreatSeverity is the highest threat tier.
const MaxThreatSeverity = 5
