// Package ta derives technical indicators from daily close series.
package ta

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(values, nil)
}

// EMASeries seeds with the first value; period <= 1 returns a copy of values.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	if period <= 1 {
		copy(out, values)
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSISeries uses Wilder smoothing. The first period entries are NaN.
func RSISeries(closes []float64, period int) []float64 {
	if period < 1 || len(closes) <= period {
		return nil
	}
	series := make([]float64, len(closes))
	for i := range series {
		series[i] = math.NaN()
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		avgGain = (avgGain*float64(period-1) + math.Max(delta, 0)) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + math.Max(-delta, 0)) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// MACDSeries returns the MACD line and its signal line.
func MACDSeries(values []float64, fast, slow, signal int) ([]float64, []float64) {
	if len(values) == 0 {
		return nil, nil
	}
	fastEMA := EMASeries(values, fast)
	slowEMA := EMASeries(values, slow)
	line := make([]float64, len(values))
	for i := range values {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	return line, EMASeries(line, signal)
}

// BollingerSeries returns middle, upper and lower bands. Entries before the first full window are NaN.
func BollingerSeries(values []float64, period int, stdDevs float64) ([]float64, []float64, []float64) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	middle := make([]float64, len(values))
	upper := make([]float64, len(values))
	lower := make([]float64, len(values))
	for i := range values {
		middle[i] = math.NaN()
		upper[i] = math.NaN()
		lower[i] = math.NaN()
	}
	if period <= 0 {
		return middle, upper, lower
	}
	for i := period - 1; i < len(values); i++ {
		mean, std := MeanStd(values[i-period+1 : i+1])
		middle[i] = mean
		upper[i] = mean + stdDevs*std
		lower[i] = mean - stdDevs*std
	}
	return middle, upper, lower
}

// LogReturns returns ln(p[i]/p[i-1]); non-positive prices yield 0 for that step.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i] > 0 && closes[i-1] > 0 {
			out[i-1] = math.Log(closes[i] / closes[i-1])
		}
	}
	return out
}

// AnnualizedVolatility is the sample standard deviation of the last window log returns, scaled
// to a year of trading days.
func AnnualizedVolatility(closes []float64, window int) float64 {
	returns := LogReturns(closes)
	if window > 0 && len(returns) > window {
		returns = returns[len(returns)-window:]
	}
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(TradingDaysPerYear)
}
