package domain

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// RegimeSnapshot holds the regime metrics kept with a decision.
type RegimeSnapshot struct {
	UncertaintyBand   UncertaintyBand   `json:"uncertainty_band"`
	Uncertainty       float64           `json:"uncertainty"`
	CooperationRegime CooperationRegime `json:"cooperation_regime"`
	TrendPhase        TrendPhase        `json:"trend_phase"`
}

// DecisionRecord is the audited output of one decision call. It is immutable once created.
type DecisionRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	Confidence   float64   `json:"confidence"`
	SizeFraction float64   `json:"size_fraction"`
	// StopLoss and TakeProfit are fractional distances from the entry price.
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	MaxSize    float64 `json:"max_size"`
	NetScore   float64 `json:"net_score"`
	Vetoed     bool    `json:"vetoed"`

	ReasoningTrail []string        `json:"reasoning_trail"`
	VotesSnapshot  []ConsensusVote `json:"votes_snapshot"`
	RegimeSnapshot RegimeSnapshot  `json:"regime_snapshot"`
}

// Validate checks the structural invariants of the record.
func (d DecisionRecord) Validate() error {
	if !isValidAction(d.Action) {
		return errors.Errorf("invalid action: %s", d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return errors.Errorf("invalid confidence: %f (must be 0.0-1.0)", d.Confidence)
	}
	if d.SizeFraction < 0 || d.SizeFraction > d.MaxSize {
		return errors.Errorf("invalid size_fraction: %f (must be 0.0-%f)", d.SizeFraction, d.MaxSize)
	}
	if len(d.ReasoningTrail) == 0 {
		return errors.New("reasoning trail is required")
	}
	return nil
}

// Clone returns a deep copy so stored records never share slices with callers.
func (d DecisionRecord) Clone() DecisionRecord {
	out := d
	out.ReasoningTrail = append([]string(nil), d.ReasoningTrail...)
	out.VotesSnapshot = append([]ConsensusVote(nil), d.VotesSnapshot...)
	return out
}

// Vote returns the vote recorded for the perspective.
func (d DecisionRecord) Vote(id PerspectiveID) (ConsensusVote, bool) {
	for _, v := range d.VotesSnapshot {
		if v.PerspectiveID == id {
			return v, true
		}
	}
	return ConsensusVote{}, false
}

// Allocate converts the size fraction into a quote notional and base amount.
func (d DecisionRecord) Allocate(balance, price decimal.Decimal) (notional decimal.Decimal, amount decimal.Decimal) {
	if d.SizeFraction <= 0 || d.Action == ActionHold {
		return decimal.Zero, decimal.Zero
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero
	}

	notional = balance.Mul(decimal.NewFromFloat(d.SizeFraction))
	if notional.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero
	}

	return notional, notional.Div(price)
}

// DecisionEventRecord bundles a stored decision with its log index.
type DecisionEventRecord struct {
	Index  uint64
	Record DecisionRecord
}
