package ta

import (
	"fmt"
	"time"

	"crude-outlook/internal/domain"
)

const (
	fastEMA         = 20
	slowEMA         = 50
	rsiPeriod       = 14
	bollingerPeriod = 20
	bollingerWidth  = 2.0
	volWindow       = 20

	// MinPoints is the shortest series Summarize accepts.
	MinPoints = slowEMA + 1
)

// Snapshot is the latest value of every indicator for one series.
type Snapshot struct {
	Ticker          string    `json:"ticker"`
	Date            time.Time `json:"date"`
	Close           float64   `json:"close"`
	EMA20           float64   `json:"ema_20"`
	EMA50           float64   `json:"ema_50"`
	RSI14           float64   `json:"rsi_14"`
	MACD            float64   `json:"macd"`
	MACDSignal      float64   `json:"macd_signal"`
	BollingerUpper  float64   `json:"bollinger_upper"`
	BollingerMiddle float64   `json:"bollinger_middle"`
	BollingerLower  float64   `json:"bollinger_lower"`
	Volatility20    float64   `json:"volatility_20d"`
	Trend           string    `json:"trend"`
}

// Summarize computes the indicator snapshot at the last observation of s.
func Summarize(s *domain.PriceSeries) (Snapshot, error) {
	if s.Len() < MinPoints {
		return Snapshot{}, fmt.Errorf("%w: indicators need %d closes, have %d", domain.ErrInsufficientData, MinPoints, s.Len())
	}
	closes := make([]float64, s.Len())
	for i, p := range s.Points {
		closes[i] = p.Price
	}
	last := len(closes) - 1

	ema20 := EMASeries(closes, fastEMA)
	ema50 := EMASeries(closes, slowEMA)
	macd, signal := MACDSeries(closes, 12, 26, 9)
	middle, upper, lower := BollingerSeries(closes, bollingerPeriod, bollingerWidth)

	snap := Snapshot{
		Ticker:          s.Ticker,
		Date:            s.Points[last].Date,
		Close:           closes[last],
		EMA20:           ema20[last],
		EMA50:           ema50[last],
		RSI14:           RSISeries(closes, rsiPeriod)[last],
		MACD:            macd[last],
		MACDSignal:      signal[last],
		BollingerUpper:  upper[last],
		BollingerMiddle: middle[last],
		BollingerLower:  lower[last],
		Volatility20:    AnnualizedVolatility(closes, volWindow),
		Trend:           "flat",
	}
	switch {
	case snap.EMA20 > snap.EMA50:
		snap.Trend = "up"
	case snap.EMA20 < snap.EMA50:
		snap.Trend = "down"
	}
	return snap, nil
}
