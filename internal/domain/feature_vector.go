package domain

import "math"

const (
	neutralSentiment = 50

	minChangePct = -100
	maxChangePct = 1000
)

// ThreatFlags holds boolean security indicators.
type ThreatFlags struct {
	ActiveAttack       bool `json:"active_attack"`
	Breach             bool `json:"breach"`
	Compromised        bool `json:"compromised"`
	ThreatIndicators   bool `json:"threat_indicators"`
	SuspiciousPatterns bool `json:"suspicious_patterns"`
}

// Any reports whether at least one flag is raised.
func (f ThreatFlags) Any() bool {
	return f.ActiveAttack || f.Breach || f.Compromised || f.ThreatIndicators || f.SuspiciousPatterns
}

// FeatureVector is a normalized snapshot of market, security, narrative and system conditions.
type FeatureVector struct {
	// SentimentIndex is a fear/greed style index in [0,100].
	SentimentIndex float64 `json:"sentiment_index"`
	// Volatility in [0,1].
	Volatility float64 `json:"volatility"`
	// Momentum in [-1,1].
	Momentum float64 `json:"momentum"`
	// OnchainChangePct is the percentage change of on-chain activity.
	OnchainChangePct float64 `json:"onchain_change_pct"`
	// VolumeChangePct is the percentage change of traded volume.
	VolumeChangePct float64 `json:"volume_change_pct"`
	// NarrativeStrength in [0,1].
	NarrativeStrength float64 `json:"narrative_strength"`
	// MemeVelocity in [0,1].
	MemeVelocity float64 `json:"meme_velocity"`

	ThreatFlags     ThreatFlags `json:"threat_flags"`
	FailedLogins    int         `json:"failed_logins"`
	UnusualRequests int         `json:"unusual_requests"`
	NewDependencies int         `json:"new_dependencies"`

	// SystemHealth in [0,1].
	SystemHealth float64 `json:"system_health"`
	// AgentSyncScore in [0,1].
	AgentSyncScore     float64 `json:"agent_sync_score"`
	CriticalErrorCount int     `json:"critical_error_count"`
}

// Clamp returns a copy with every field forced into its declared domain.
// NaN becomes the neutral value of the field, infinities the nearest bound.
func (v FeatureVector) Clamp() FeatureVector {
	out := v
	out.SentimentIndex = clampValue(v.SentimentIndex, 0, 100, neutralSentiment)
	out.Volatility = clampValue(v.Volatility, 0, 1, 0)
	out.Momentum = clampValue(v.Momentum, -1, 1, 0)
	out.OnchainChangePct = clampValue(v.OnchainChangePct, minChangePct, maxChangePct, 0)
	out.VolumeChangePct = clampValue(v.VolumeChangePct, minChangePct, maxChangePct, 0)
	out.NarrativeStrength = clampValue(v.NarrativeStrength, 0, 1, 0)
	out.MemeVelocity = clampValue(v.MemeVelocity, 0, 1, 0)
	out.SystemHealth = clampValue(v.SystemHealth, 0, 1, 0)
	out.AgentSyncScore = clampValue(v.AgentSyncScore, 0, 1, 0)
	out.FailedLogins = nonNegative(v.FailedLogins)
	out.UnusualRequests = nonNegative(v.UnusualRequests)
	out.NewDependencies = nonNegative(v.NewDependencies)
	out.CriticalErrorCount = nonNegative(v.CriticalErrorCount)
	return out
}

// SentimentExtremity returns the distance of sentiment from neutral, scaled to [0,1].
func (v FeatureVector) SentimentExtremity() float64 {
	return math.Abs(v.SentimentIndex-neutralSentiment) / neutralSentiment
}

// SentimentBias maps sentiment to [-1,1].
func (v FeatureVector) SentimentBias() float64 {
	return (v.SentimentIndex - neutralSentiment) / neutralSentiment
}

// Clamp01 clamps x into [0,1], NaN becomes 0.
func Clamp01(x float64) float64 {
	return clampValue(x, 0, 1, 0)
}

func clampValue(x, lo, hi, nanValue float64) float64 {
	if math.IsNaN(x) {
		return nanValue
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
