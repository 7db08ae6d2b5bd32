package domain

import "time"

// Candle is one OHLCV bar indexed by trading day (naive UTC).
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an ordered OHLCV time series (ascending by date).
type Series []Candle

// Closes returns the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Highs returns the high column.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows returns the low column.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the volume column.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Last returns the most recent candle, or false if the series is empty.
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// Tail returns the last n candles (the whole series if shorter).
func (s Series) Tail(n int) Series {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Upto returns the prefix of the series with dates <= t.
// Used by the backtester to enforce look-ahead discipline.
func (s Series) Upto(t time.Time) Series {
	for i := len(s) - 1; i >= 0; i-- {
		if !s[i].Date.After(t) {
			return s[:i+1]
		}
	}
	return nil
}

// At returns the candle on date t, or false when t is not a trading day
// for this series.
func (s Series) At(t time.Time) (Candle, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Date.Equal(t) {
			return s[i], true
		}
		if s[i].Date.Before(t) {
			break
		}
	}
	return Candle{}, false
}
