package normalizer

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vadiminshakov/quorum/internal/domain"
)

func risingCandles(n int) []domain.Candle {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.Candle, n)
	for i := range out {
		price := decimal.NewFromInt(int64(100 + i))
		volume := decimal.NewFromInt(10)
		if i == n-1 {
			volume = decimal.NewFromInt(30)
		}
		out[i] = domain.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     price.Sub(decimal.NewFromFloat(0.5)),
			High:     price.Add(decimal.NewFromInt(1)),
			Low:      price.Sub(decimal.NewFromInt(1)),
			Close:    price,
			Volume:   volume,
		}
	}
	return out
}

func TestNormalize_FromCandles(t *testing.T) {
	n := New(zap.NewNop())

	fv := n.Normalize(RawSignals{
		SentimentIndex: 60,
		Candles:        risingCandles(30),
		Momentum:       -1,
	})

	assert.Greater(t, fv.Momentum, 0.5)
	assert.LessOrEqual(t, fv.Momentum, 1.0)
	assert.InDelta(t, 0.155, fv.Volatility, 0.05)
	assert.InDelta(t, 172.7, fv.VolumeChangePct, 0.1)
	assert.Equal(t, 60.0, fv.SentimentIndex)
}

func TestNormalize_FewCandlesUsesScalars(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	n := New(zap.New(core))

	fv := n.Normalize(RawSignals{
		SentimentIndex:  40,
		Candles:         risingCandles(5),
		Volatility:      0.3,
		Momentum:        -0.2,
		VolumeChangePct: 12,
	})

	assert.Equal(t, 0.3, fv.Volatility)
	assert.Equal(t, -0.2, fv.Momentum)
	assert.Equal(t, 12.0, fv.VolumeChangePct)
	assert.Equal(t, 1, logs.Len())
}

func TestNormalize_HealthAndSync(t *testing.T) {
	n := New(nil)

	fv := n.Normalize(RawSignals{
		SentimentIndex: 50,
		HealthSamples:  []float64{0.9, 0.7, 0.8},
		AgentScores:    []float64{0.6, 0.6, 0.6, 0.6},
	})
	assert.InDelta(t, 0.8, fv.SystemHealth, 1e-9)
	assert.InDelta(t, 1.0, fv.AgentSyncScore, 1e-9)

	fv = n.Normalize(RawSignals{SentimentIndex: 50, AgentScores: []float64{0, 1}})
	assert.Equal(t, 0.0, fv.AgentSyncScore)

	fv = n.Normalize(RawSignals{SentimentIndex: 50})
	assert.Equal(t, defaultHealth, fv.SystemHealth)
	assert.Equal(t, defaultSync, fv.AgentSyncScore)
}

func TestNormalize_ClampsEverything(t *testing.T) {
	n := New(nil)

	fv := n.Normalize(RawSignals{
		SentimentIndex:     math.NaN(),
		Volatility:         4,
		Momentum:           math.Inf(-1),
		OnchainChangePct:   1e9,
		NarrativeStrength:  -1,
		MemeVelocity:       2,
		FailedLogins:       -3,
		HealthSamples:      []float64{2, 2},
		CriticalErrorCount: -1,
	})

	assert.Equal(t, 50.0, fv.SentimentIndex)
	assert.Equal(t, 1.0, fv.Volatility)
	assert.Equal(t, -1.0, fv.Momentum)
	assert.Equal(t, 1000.0, fv.OnchainChangePct)
	assert.Equal(t, 0.0, fv.NarrativeStrength)
	assert.Equal(t, 1.0, fv.MemeVelocity)
	assert.Equal(t, 0, fv.FailedLogins)
	assert.Equal(t, 1.0, fv.SystemHealth)
	assert.Equal(t, 0, fv.CriticalErrorCount)
}

func TestNormalize_FlatCandlesStayFinite(t *testing.T) {
	candles := risingCandles(30)
	for i := range candles {
		candles[i].Open = decimal.NewFromInt(100)
		candles[i].High = decimal.NewFromInt(100)
		candles[i].Low = decimal.NewFromInt(100)
		candles[i].Close = decimal.NewFromInt(100)
		candles[i].Volume = decimal.Zero
	}

	fv := New(nil).Normalize(RawSignals{SentimentIndex: 50, Candles: candles})

	assert.False(t, math.IsNaN(fv.Momentum))
	assert.False(t, math.IsNaN(fv.Volatility))
	assert.Zero(t, fv.VolumeChangePct)
	require.GreaterOrEqual(t, fv.Volatility, 0.0)
}
