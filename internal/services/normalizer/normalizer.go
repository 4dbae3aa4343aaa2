// Package normalizer turns heterogeneous raw signals into a clamped feature vector.
package normalizer

import (
	"math"

	"go.uber.org/zap"

	"github.com/vadiminshakov/quorum/internal/domain"
	"github.com/vadiminshakov/quorum/pkg/indicators"
)

const (
	rsiPeriod = 14
	atrPeriod = 14
	emaPeriod = 20

	// atrFullScale ATR/close ratio that maps to volatility 1.0.
	atrFullScale = 0.10
	// emaTrendWeight share of momentum taken from the close/EMA distance.
	emaTrendWeight = 0.3
	emaTrendScale  = 10

	// defaults used when no health samples or agent scores are supplied
	defaultHealth = 1.0
	defaultSync   = 0.8
)

// RawSignals carries the inputs gathered by the acquisition layer.
// Candles are optional; without enough of them the scalar fallbacks are used.
type RawSignals struct {
	SentimentIndex float64         `json:"sentiment_index"`
	Candles        []domain.Candle `json:"candles,omitempty"`

	Volatility      float64 `json:"volatility"`
	Momentum        float64 `json:"momentum"`
	VolumeChangePct float64 `json:"volume_change_pct"`

	OnchainChangePct  float64 `json:"onchain_change_pct"`
	NarrativeStrength float64 `json:"narrative_strength"`
	MemeVelocity      float64 `json:"meme_velocity"`

	ThreatFlags     domain.ThreatFlags `json:"threat_flags"`
	FailedLogins    int                `json:"failed_logins"`
	UnusualRequests int                `json:"unusual_requests"`
	NewDependencies int                `json:"new_dependencies"`

	HealthSamples      []float64 `json:"health_samples,omitempty"`
	AgentScores        []float64 `json:"agent_scores,omitempty"`
	CriticalErrorCount int       `json:"critical_error_count"`
}

// Normalizer converts RawSignals into FeatureVectors.
type Normalizer struct {
	logger *zap.Logger
}

// New creates a normalizer.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize never fails: missing data falls back to scalars, everything is clamped.
func (n *Normalizer) Normalize(raw RawSignals) domain.FeatureVector {
	fv := domain.FeatureVector{
		SentimentIndex:     raw.SentimentIndex,
		Volatility:         raw.Volatility,
		Momentum:           raw.Momentum,
		OnchainChangePct:   raw.OnchainChangePct,
		VolumeChangePct:    raw.VolumeChangePct,
		NarrativeStrength:  raw.NarrativeStrength,
		MemeVelocity:       raw.MemeVelocity,
		ThreatFlags:        raw.ThreatFlags,
		FailedLogins:       raw.FailedLogins,
		UnusualRequests:    raw.UnusualRequests,
		NewDependencies:    raw.NewDependencies,
		SystemHealth:       defaultHealth,
		AgentSyncScore:     defaultSync,
		CriticalErrorCount: raw.CriticalErrorCount,
	}

	switch {
	case len(raw.Candles) > rsiPeriod:
		n.applyCandles(&fv, raw.Candles)
	case len(raw.Candles) > 0:
		n.logger.Warn("not enough candles for indicators, using scalar signals",
			zap.Int("candles", len(raw.Candles)),
			zap.Int("required", rsiPeriod+1))
	}

	if len(raw.HealthSamples) > 0 {
		fv.SystemHealth = mean(raw.HealthSamples)
	}
	if len(raw.AgentScores) > 0 {
		fv.AgentSyncScore = 1 - 2*stddev(raw.AgentScores)
	}

	return fv.Clamp()
}

func (n *Normalizer) applyCandles(fv *domain.FeatureVector, candles []domain.Candle) {
	closes := indicators.Closes(candles)
	lastClose := closes[len(closes)-1]

	if atr, err := indicators.CalculateATR(candles, atrPeriod); err != nil {
		n.logger.Warn("ATR unavailable", zap.Error(err))
	} else if v, ok := indicators.Last(atr); ok && lastClose > 0 {
		fv.Volatility = (v / lastClose) / atrFullScale
	}

	if rsi, err := indicators.CalculateRSI(closes, rsiPeriod); err != nil {
		n.logger.Warn("RSI unavailable", zap.Error(err))
	} else if v, ok := indicators.Last(rsi); ok {
		fv.Momentum = (v - 50) / 50
	}

	if len(closes) >= emaPeriod {
		if ema, err := indicators.CalculateEMA(closes, emaPeriod); err == nil {
			if v, ok := indicators.Last(ema); ok && v > 0 {
				trend := math.Tanh(emaTrendScale * (lastClose - v) / v)
				fv.Momentum = (1-emaTrendWeight)*fv.Momentum + emaTrendWeight*trend
			}
		}
	}

	volume := domain.NewVolumeAnalysis(candles)
	fv.VolumeChangePct = volume.ChangePct()
	if volume.HasSpike() {
		n.logger.Debug("volume spike",
			zap.String("relative_volume", volume.RelativeVolume.StringFixed(2)))
	}
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)))
}
