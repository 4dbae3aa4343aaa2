package domain

import "github.com/shopspring/decimal"

const (
	defaultVolumePeriod  = 20
	volumeSpikeThreshold = 1.5
)

// VolumeAnalysis compares the volume of the latest candle with its recent average.
type VolumeAnalysis struct {
	CurrentVolume decimal.Decimal
	// AverageVolume is the simple average over the last 20 candles (fewer if not available).
	AverageVolume decimal.Decimal
	// RelativeVolume CurrentVolume / AverageVolume, zero when the average is zero.
	RelativeVolume decimal.Decimal
}

// NewVolumeAnalysis analyses the tail of candles.
func NewVolumeAnalysis(candles []Candle) VolumeAnalysis {
	if len(candles) == 0 {
		return VolumeAnalysis{
			CurrentVolume:  decimal.Zero,
			AverageVolume:  decimal.Zero,
			RelativeVolume: decimal.Zero,
		}
	}

	period := defaultVolumePeriod
	if len(candles) < period {
		period = len(candles)
	}

	sum := decimal.Zero
	for i := len(candles) - period; i < len(candles); i++ {
		sum = sum.Add(candles[i].Volume)
	}
	avgVolume := sum.Div(decimal.NewFromInt(int64(period)))

	currentVolume := candles[len(candles)-1].Volume

	relativeVolume := decimal.Zero
	if avgVolume.GreaterThan(decimal.Zero) {
		relativeVolume = currentVolume.Div(avgVolume)
	}

	return VolumeAnalysis{
		CurrentVolume:  currentVolume,
		AverageVolume:  avgVolume,
		RelativeVolume: relativeVolume,
	}
}

// ChangePct returns the percentage by which current volume exceeds the average, or zero without data.
func (v VolumeAnalysis) ChangePct() float64 {
	if v.AverageVolume.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	pct, _ := v.RelativeVolume.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// HasSpike reports whether current volume is above 1.5x the average.
func (v VolumeAnalysis) HasSpike() bool {
	return v.RelativeVolume.GreaterThan(decimal.NewFromFloat(volumeSpikeThreshold))
}
