// Package analysis computes the per-symbol and global factor signals that
// feed the fusion engine. Each function is pure over an OHLCV series (or a
// small snapshot record) and returns a bounded score with a confidence.
package analysis

import (
	"math"

	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === TECHNICAL SCORING ===

// Indicator sub-score weights.
const (
	weightRSI        = 0.20
	weightMACD       = 0.25
	weightBollinger  = 0.15
	weightMATrend    = 0.25
	weightStochastic = 0.15
)

// Pattern blend weight into the technical composite.
const patternBlendWeight = 0.15

// Relative volume thresholds.
const (
	relVolumeHigh = 2.0 // boosts confidence, nudges composite
	relVolumeLow  = 0.3 // penalises confidence
)

// minTechnicalBars is the minimum history needed for a meaningful score.
const minTechnicalBars = 30

// TechnicalSignal scores the latest bar of a daily series. Patterns found
// in the window are blended into the composite at a fixed weight.
func TechnicalSignal(series domain.Series) domain.TechnicalSignal {
	if len(series) < minTechnicalBars {
		return domain.TechnicalSignal{Score: 0, Confidence: 0}
	}

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()
	lastClose := closes[len(closes)-1]

	subScores := map[string]float64{
		"rsi":        scoreRSI(closes),
		"macd":       scoreMACD(closes),
		"bollinger":  scoreBollinger(closes),
		"ma_trend":   scoreMATrend(lastClose, closes),
		"stochastic": scoreStochastic(highs, lows, closes),
	}

	composite := subScores["rsi"]*weightRSI +
		subScores["macd"]*weightMACD +
		subScores["bollinger"]*weightBollinger +
		subScores["ma_trend"]*weightMATrend +
		subScores["stochastic"]*weightStochastic

	// Confidence: participation x (0.3 + 0.7 x agreement) over the
	// non-neutral sub-scores.
	var nonNeutral, signSum int
	for _, s := range subScores {
		if s > 0.1 {
			nonNeutral++
			signSum++
		} else if s < -0.1 {
			nonNeutral++
			signSum--
		}
	}
	participation := float64(nonNeutral) / float64(len(subScores))
	agreement := 0.0
	if nonNeutral > 0 {
		agreement = math.Abs(float64(signSum)) / float64(nonNeutral)
	}
	confidence := participation * (0.3 + 0.7*agreement)

	// Relative volume: conviction behind the current bar
	relVolume := formulas.RelativeVolume(volumes, 20)
	switch {
	case relVolume > relVolumeHigh:
		confidence = math.Min(1.0, confidence*1.10)
		if composite > 0.05 {
			composite += 0.05
		} else if composite < -0.05 {
			composite -= 0.05
		}
	case relVolume < relVolumeLow:
		confidence *= 0.85
	}

	// Chart patterns blend into the composite
	patterns := DetectPatterns(series)
	if len(patterns.Matches) > 0 {
		composite = (1-patternBlendWeight)*composite + patternBlendWeight*patterns.Score
		confidence = math.Min(1.0, confidence+0.05*patterns.Confidence)
	}

	return domain.TechnicalSignal{
		Score:          formulas.Clamp(composite, -1, 1),
		Confidence:     formulas.Clamp(confidence, 0, 1),
		SubScores:      subScores,
		RelativeVolume: relVolume,
		Patterns:       patterns.Matches,
	}
}

// scoreRSI maps oversold to buy and overbought to sell.
func scoreRSI(closes []float64) float64 {
	rsi, ok := formulas.RSI(closes, 14)
	if !ok {
		return 0
	}
	switch {
	case rsi < 30:
		return 0.5 + (30-rsi)/60 // 0.5 to 1.0
	case rsi > 70:
		return -0.5 - (rsi-70)/60 // -0.5 to -1.0
	default:
		return (50 - rsi) / 40 // slight bias around neutral
	}
}

func scoreMACD(closes []float64) float64 {
	_, signal, hist, ok := formulas.MACD(closes)
	if !ok {
		return 0
	}
	raw := hist / (math.Abs(signal) + 1e-8) * 0.5
	return formulas.Clamp(raw, -1, 1)
}

func scoreBollinger(closes []float64) float64 {
	bbPct, ok := formulas.BollingerPct(closes, 20)
	if !ok {
		return 0
	}
	switch {
	case bbPct < 0.1:
		return 0.6 // near lower band
	case bbPct > 0.9:
		return -0.6 // near upper band
	default:
		return (0.5 - bbPct) * 0.8
	}
}

func scoreMATrend(close float64, closes []float64) float64 {
	score := 0.0
	sma20, ok20 := formulas.SMA(closes, 20)
	sma50, ok50 := formulas.SMA(closes, 50)
	sma200, ok200 := formulas.SMA(closes, 200)

	if ok20 {
		if close > sma20 {
			score += 0.2
		} else {
			score -= 0.2
		}
	}
	if ok50 {
		if close > sma50 {
			score += 0.2
		} else {
			score -= 0.2
		}
	}
	if ok200 {
		if close > sma200 {
			score += 0.3
		} else {
			score -= 0.3
		}
	}
	if ok20 && ok50 {
		if sma20 > sma50 {
			score += 0.15
		} else {
			score -= 0.15
		}
	}
	return formulas.Clamp(score, -1, 1)
}

func scoreStochastic(highs, lows, closes []float64) float64 {
	k, d, ok := formulas.Stochastic(highs, lows, closes)
	if !ok {
		return 0
	}
	switch {
	case k < 20 && d < 20:
		return 0.5
	case k > 80 && d > 80:
		return -0.5
	case k > d:
		return 0.2
	default:
		return -0.2
	}
}

// LatestATR returns the current 14-period ATR for stop computation.
func LatestATR(series domain.Series) (float64, bool) {
	return formulas.ATR(series.Highs(), series.Lows(), series.Closes(), 14)
}
