package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() DecisionRecord {
	return DecisionRecord{
		Action:         ActionBuy,
		Confidence:     0.7,
		SizeFraction:   0.05,
		MaxSize:        0.10,
		ReasoningTrail: []string{"net +0.30"},
		VotesSnapshot: []ConsensusVote{
			{PerspectiveID: PerspectiveMarket, StateID: MarketConvictionHold, Direction: DirectionBullish, Magnitude: 0.6, Weight: 0.3},
		},
	}
}

func TestDecisionRecord_Validate(t *testing.T) {
	require.NoError(t, validRecord().Validate())

	tests := []struct {
		name   string
		modify func(r *DecisionRecord)
	}{
		{"unknown action", func(r *DecisionRecord) { r.Action = "PANIC" }},
		{"confidence above one", func(r *DecisionRecord) { r.Confidence = 1.2 }},
		{"negative confidence", func(r *DecisionRecord) { r.Confidence = -0.1 }},
		{"size above max", func(r *DecisionRecord) { r.SizeFraction = 0.2 }},
		{"negative size", func(r *DecisionRecord) { r.SizeFraction = -0.01 }},
		{"empty trail", func(r *DecisionRecord) { r.ReasoningTrail = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.modify(&rec)
			assert.Error(t, rec.Validate())
		})
	}
}

func TestDecisionRecord_CloneIsDeep(t *testing.T) {
	rec := validRecord()
	cp := rec.Clone()

	cp.ReasoningTrail[0] = "changed"
	cp.VotesSnapshot[0].Magnitude = 0

	assert.Equal(t, "net +0.30", rec.ReasoningTrail[0])
	assert.Equal(t, 0.6, rec.VotesSnapshot[0].Magnitude)
}

func TestDecisionRecord_Vote(t *testing.T) {
	rec := validRecord()

	v, ok := rec.Vote(PerspectiveMarket)
	require.True(t, ok)
	assert.Equal(t, DirectionBullish, v.Direction)

	_, ok = rec.Vote(PerspectiveThreat)
	assert.False(t, ok)
}

func TestDecisionRecord_Allocate(t *testing.T) {
	rec := validRecord()

	notional, amount := rec.Allocate(decimal.NewFromInt(1000), decimal.NewFromInt(25))
	assert.True(t, notional.Equal(decimal.NewFromInt(50)), notional.String())
	assert.True(t, amount.Equal(decimal.NewFromInt(2)), amount.String())

	rec.Action = ActionHold
	notional, amount = rec.Allocate(decimal.NewFromInt(1000), decimal.NewFromInt(25))
	assert.True(t, notional.IsZero())
	assert.True(t, amount.IsZero())

	rec = validRecord()
	notional, _ = rec.Allocate(decimal.NewFromInt(1000), decimal.Zero)
	assert.True(t, notional.IsZero())
}

func TestFeatureVector_Clamp(t *testing.T) {
	fv := FeatureVector{
		SentimentIndex:    math.NaN(),
		Volatility:        math.Inf(1),
		Momentum:          math.NaN(),
		OnchainChangePct:  math.Inf(-1),
		VolumeChangePct:   5000,
		NarrativeStrength: 1.5,
		MemeVelocity:      -0.5,
		SystemHealth:      math.NaN(),
		AgentSyncScore:    2,
		FailedLogins:      -4,
		UnusualRequests:   3,
	}.Clamp()

	assert.Equal(t, 50.0, fv.SentimentIndex)
	assert.Equal(t, 1.0, fv.Volatility)
	assert.Equal(t, 0.0, fv.Momentum)
	assert.Equal(t, -100.0, fv.OnchainChangePct)
	assert.Equal(t, 1000.0, fv.VolumeChangePct)
	assert.Equal(t, 1.0, fv.NarrativeStrength)
	assert.Equal(t, 0.0, fv.MemeVelocity)
	assert.Equal(t, 0.0, fv.SystemHealth)
	assert.Equal(t, 1.0, fv.AgentSyncScore)
	assert.Equal(t, 0, fv.FailedLogins)
	assert.Equal(t, 3, fv.UnusualRequests)
}

func TestFeatureVector_Sentiment(t *testing.T) {
	fv := FeatureVector{SentimentIndex: 75}
	assert.InDelta(t, 0.5, fv.SentimentBias(), 1e-12)
	assert.InDelta(t, 0.5, fv.SentimentExtremity(), 1e-12)

	fv.SentimentIndex = 10
	assert.InDelta(t, -0.8, fv.SentimentBias(), 1e-12)
	assert.InDelta(t, 0.8, fv.SentimentExtremity(), 1e-12)
}

func TestAction(t *testing.T) {
	assert.True(t, ActionStrongBuy.IsBuy())
	assert.False(t, ActionHold.IsBuy())
	assert.True(t, ActionEmergencyExit.IsSell())
	assert.False(t, ActionBuy.IsSell())
	assert.Equal(t, "unknown", Action("X").String())
	assert.Equal(t, 1.0, DirectionBullish.Sign())
	assert.Equal(t, -1.0, DirectionBearish.Sign())
	assert.Zero(t, DirectionNeutral.Sign())
}

func TestWeightConfig(t *testing.T) {
	def := DefaultWeightConfig()
	require.NoError(t, def.Validate())

	cp := def.Clone()
	cp.Weights[PerspectiveMarket] = 0
	cp.RegimeMultipliers[RegimeDefection] = 9
	assert.NotEqual(t, cp.Weights[PerspectiveMarket], def.Weights[PerspectiveMarket])
	assert.NotEqual(t, cp.RegimeMultipliers[RegimeDefection], def.RegimeMultipliers[RegimeDefection])

	bad := DefaultWeightConfig()
	bad.Weights[PerspectiveThreat] = math.NaN()
	assert.Error(t, bad.Validate())

	bad = DefaultWeightConfig()
	bad.Thresholds.Buy = -0.1
	assert.Error(t, bad.Validate())
}

func TestRange_Lerp(t *testing.T) {
	r := Range{Min: 0.2, Max: 0.6}
	assert.InDelta(t, 0.2, r.Lerp(-1), 1e-12)
	assert.InDelta(t, 0.4, r.Lerp(0.5), 1e-12)
	assert.InDelta(t, 0.6, r.Lerp(3), 1e-12)
}

func TestVolumeAnalysis(t *testing.T) {
	candles := make([]Candle, 20)
	for i := range candles {
		candles[i].Volume = decimal.NewFromInt(10)
	}
	candles[19].Volume = decimal.NewFromInt(48)

	va := NewVolumeAnalysis(candles)
	assert.True(t, va.AverageVolume.Equal(decimal.NewFromFloat(11.9)), va.AverageVolume.String())
	assert.True(t, va.HasSpike())
	assert.Greater(t, va.ChangePct(), 300.0)

	empty := NewVolumeAnalysis(nil)
	assert.Zero(t, empty.ChangePct())
	assert.False(t, empty.HasSpike())
}
