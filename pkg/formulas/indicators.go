// Package formulas provides shared financial math helpers: thin wrappers
// around go-talib for indicators and gonum for statistics. All functions
// are pure and operate on plain float64 slices.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// lastValid returns the last non-NaN value of a talib output slice.
// talib pads the warmup period with NaN (or zeros for some functions).
func lastValid(values []float64) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if !math.IsNaN(values[i]) {
			return values[i], true
		}
	}
	return 0, false
}

// RSI returns the most recent RSI value for the given period.
func RSI(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 {
		return 0, false
	}
	return lastValid(talib.Rsi(closes, period))
}

// SMA returns the most recent simple moving average.
func SMA(closes []float64, period int) (float64, bool) {
	if len(closes) < period {
		return 0, false
	}
	return lastValid(talib.Sma(closes, period))
}

// EMA returns the most recent exponential moving average.
func EMA(closes []float64, period int) (float64, bool) {
	if len(closes) < period {
		return 0, false
	}
	return lastValid(talib.Ema(closes, period))
}

// MACD returns the most recent MACD line, signal line and histogram
// using the standard 12/26/9 parameters.
func MACD(closes []float64) (macd, signal, hist float64, ok bool) {
	if len(closes) < 35 {
		return 0, 0, 0, false
	}
	macdLine, signalLine, histLine := talib.Macd(closes, 12, 26, 9)
	m, ok1 := lastValid(macdLine)
	s, ok2 := lastValid(signalLine)
	h, ok3 := lastValid(histLine)
	return m, s, h, ok1 && ok2 && ok3
}

// BollingerPct returns the position of the last close inside the Bollinger
// bands as a fraction: 0 at the lower band, 1 at the upper band.
func BollingerPct(closes []float64, period int) (float64, bool) {
	if len(closes) < period {
		return 0, false
	}
	upper, _, lower := talib.BBands(closes, period, 2.0, 2.0, talib.SMA)
	u, ok1 := lastValid(upper)
	l, ok2 := lastValid(lower)
	if !ok1 || !ok2 || u <= l {
		return 0, false
	}
	last := closes[len(closes)-1]
	return (last - l) / (u - l), true
}

// ATR returns the most recent average true range.
func ATR(highs, lows, closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 || len(highs) != len(closes) || len(lows) != len(closes) {
		return 0, false
	}
	return lastValid(talib.Atr(highs, lows, closes, period))
}

// Stochastic returns the most recent %K and %D of the slow stochastic
// oscillator (14/3/3).
func Stochastic(highs, lows, closes []float64) (k, d float64, ok bool) {
	if len(closes) < 20 || len(highs) != len(closes) || len(lows) != len(closes) {
		return 0, 0, false
	}
	slowK, slowD := talib.Stoch(highs, lows, closes, 14, 3, talib.SMA, 3, talib.SMA)
	kv, ok1 := lastValid(slowK)
	dv, ok2 := lastValid(slowD)
	return kv, dv, ok1 && ok2
}

// OBV returns the most recent on-balance volume.
func OBV(closes, volumes []float64) (float64, bool) {
	if len(closes) < 2 || len(closes) != len(volumes) {
		return 0, false
	}
	return lastValid(talib.Obv(closes, volumes))
}

// VWAP returns the volume-weighted average price over the whole window.
func VWAP(highs, lows, closes, volumes []float64) (float64, bool) {
	if len(closes) == 0 || len(highs) != len(closes) || len(lows) != len(closes) || len(volumes) != len(closes) {
		return 0, false
	}
	var pv, v float64
	for i := range closes {
		typical := (highs[i] + lows[i] + closes[i]) / 3.0
		pv += typical * volumes[i]
		v += volumes[i]
	}
	if v == 0 {
		return 0, false
	}
	return pv / v, true
}

// RelativeVolume returns the last volume divided by the average volume of
// the preceding period bars. Returns 1 when not enough history.
func RelativeVolume(volumes []float64, period int) float64 {
	if len(volumes) < period+1 {
		return 1.0
	}
	window := volumes[len(volumes)-1-period : len(volumes)-1]
	var sum float64
	for _, v := range window {
		sum += v
	}
	avg := sum / float64(period)
	if avg == 0 {
		return 1.0
	}
	return volumes[len(volumes)-1] / avg
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
