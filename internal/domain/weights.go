package domain

import (
	"fmt"
	"math"
)

// ActionThresholds holds the net score cut points for the action tiers.
type ActionThresholds struct {
	StrongBuy  float64 `yaml:"strong_buy" json:"strong_buy"`
	Buy        float64 `yaml:"buy" json:"buy"`
	Sell       float64 `yaml:"sell" json:"sell"`
	StrongSell float64 `yaml:"strong_sell" json:"strong_sell"`
}

// Range is a closed interval used for in-tier interpolation.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Lerp interpolates t in [0,1] across the range.
func (r Range) Lerp(t float64) float64 {
	t = Clamp01(t)
	return r.Min + (r.Max-r.Min)*t
}

// TierProfile holds the size and confidence ranges for one action tier.
type TierProfile struct {
	Size       Range `yaml:"size" json:"size"`
	Confidence Range `yaml:"confidence" json:"confidence"`
}

// WeightConfig is the static configuration of a consensus engine.
// It is loaded once at construction and never changes afterwards.
type WeightConfig struct {
	// Weights are per-perspective weights. They act as a weighted-average divisor and need not sum to 1.
	Weights map[PerspectiveID]float64
	// RegimeMultipliers scale size per cooperation regime.
	RegimeMultipliers map[CooperationRegime]float64
	// VetoThreshold is the threat severity at or above which the engine exits.
	VetoThreshold int
	Thresholds    ActionThresholds

	Hold   TierProfile
	Normal TierProfile
	Strong TierProfile

	MaxSize            float64
	MaxConfidence      float64
	VetoConfidence     float64
	CoherenceDampening float64
	// UncertaintyDiscount is the share of confidence removed at uncertainty 1.0.
	UncertaintyDiscount float64
	// StopLossBase is the stop distance at zero volatility.
	StopLossBase float64
	RewardRisk   float64
}

// DefaultWeightConfig returns the stock configuration.
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		Weights: map[PerspectiveID]float64{
			PerspectiveMarket:    0.35,
			PerspectiveThreat:    0.25,
			PerspectiveNarrative: 0.20,
			PerspectiveCoherence: 0.20,
		},
		RegimeMultipliers: map[CooperationRegime]float64{
			RegimeCooperative: 1.25,
			RegimeCompetitive: 0.8,
			RegimeDefection:   0.5,
			RegimeEquilibrium: 1.0,
			RegimeFocalPoint:  1.1,
		},
		VetoThreshold: 4,
		Thresholds: ActionThresholds{
			StrongBuy:  0.4,
			Buy:        0.2,
			Sell:       -0.2,
			StrongSell: -0.4,
		},
		Hold:                TierProfile{Size: Range{0, 0}, Confidence: Range{0.4, 0.6}},
		Normal:              TierProfile{Size: Range{0.02, 0.05}, Confidence: Range{0.55, 0.7}},
		Strong:              TierProfile{Size: Range{0.05, 0.08}, Confidence: Range{0.7, 0.9}},
		MaxSize:             0.10,
		MaxConfidence:       0.95,
		VetoConfidence:      0.95,
		CoherenceDampening:  0.5,
		UncertaintyDiscount: 0.3,
		StopLossBase:        0.02,
		RewardRisk:          2.0,
	}
}

// Clone deep-copies the maps so the returned config shares nothing with c.
func (c WeightConfig) Clone() WeightConfig {
	out := c
	out.Weights = make(map[PerspectiveID]float64, len(c.Weights))
	for k, v := range c.Weights {
		out.Weights[k] = v
	}
	out.RegimeMultipliers = make(map[CooperationRegime]float64, len(c.RegimeMultipliers))
	for k, v := range c.RegimeMultipliers {
		out.RegimeMultipliers[k] = v
	}
	return out
}

// TotalWeight returns the sum of the perspective weights.
func (c WeightConfig) TotalWeight() float64 {
	total := 0.0
	for _, id := range Perspectives {
		total += c.Weights[id]
	}
	return total
}

// Multiplier returns the size multiplier for the regime, 1.0 when not configured.
func (c WeightConfig) Multiplier(r CooperationRegime) float64 {
	if m, ok := c.RegimeMultipliers[r]; ok {
		return m
	}
	return 1.0
}

// Validate validates the configuration.
func (c WeightConfig) Validate() error {
	for id, w := range c.Weights {
		if !id.Valid() {
			return fmt.Errorf("unknown perspective %q in weights", id)
		}
		if w < 0 || !isFinite(w) {
			return fmt.Errorf("weight for %s must be a non-negative number, got %f", id, w)
		}
	}
	if c.TotalWeight() <= 0 {
		return fmt.Errorf("perspective weights must sum to a positive value")
	}

	for r, m := range c.RegimeMultipliers {
		if !r.Valid() {
			return fmt.Errorf("unknown cooperation regime %q in multipliers", r)
		}
		if m < 0 || !isFinite(m) {
			return fmt.Errorf("multiplier for %s must be a non-negative number, got %f", r, m)
		}
	}

	if c.VetoThreshold < 0 || c.VetoThreshold > MaxThreatSeverity {
		return fmt.Errorf("veto threshold must be between 0 and %d, got %d", MaxThreatSeverity, c.VetoThreshold)
	}

	t := c.Thresholds
	if !(t.StrongBuy >= t.Buy && t.Buy >= 0 && 0 >= t.Sell && t.Sell >= t.StrongSell) {
		return fmt.Errorf("action thresholds must satisfy strong_buy >= buy >= 0 >= sell >= strong_sell, got %+v", t)
	}
	if t.StrongBuy > 1 || t.StrongSell < -1 {
		return fmt.Errorf("action thresholds must lie within [-1,1], got %+v", t)
	}

	if c.MaxSize <= 0 || c.MaxSize > 1 {
		return fmt.Errorf("max size must be in (0,1], got %f", c.MaxSize)
	}
	for name, v := range map[string]float64{
		"max confidence":       c.MaxConfidence,
		"veto confidence":      c.VetoConfidence,
		"coherence dampening":  c.CoherenceDampening,
		"uncertainty discount": c.UncertaintyDiscount,
	} {
		if v < 0 || v > 1 || !isFinite(v) {
			return fmt.Errorf("%s must be in [0,1], got %f", name, v)
		}
	}
	for name, p := range map[string]TierProfile{"hold": c.Hold, "normal": c.Normal, "strong": c.Strong} {
		if err := p.validate(); err != nil {
			return fmt.Errorf("%s tier: %w", name, err)
		}
	}
	if c.StopLossBase < 0 || c.RewardRisk < 0 {
		return fmt.Errorf("stop loss base and reward/risk must be non-negative")
	}

	return nil
}

func (p TierProfile) validate() error {
	for _, r := range []Range{p.Size, p.Confidence} {
		if r.Min < 0 || r.Max > 1 || r.Min > r.Max {
			return fmt.Errorf("range must satisfy 0 <= min <= max <= 1, got %+v", r)
		}
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
