package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is an OHLCV data point used by the signal normalizer.
type Candle struct {
	OpenTime time.Time       `json:"open_time"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// ClosePrice returns the closing price.
func (c Candle) ClosePrice() decimal.Decimal {
	return c.Close
}
