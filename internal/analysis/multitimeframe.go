package analysis

import (
	"math"
	"time"

	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === MULTI-TIMEFRAME CONFLUENCE ===

// Timeframe weights. The daily frame is the primary signal timeframe;
// the weekly frame carries the structural trend and intraday frames
// refine entry timing when hourly bars are available.
var timeframeWeights = map[string]float64{
	"1W": 0.30,
	"1D": 0.40,
	"4H": 0.20,
	"1H": 0.10,
}

// MultiTimeframe evaluates trend alignment across up to four timeframes.
// hourly may be nil (crypto and vendors without intraday bars); the
// composite renormalises over whatever frames scored.
func MultiTimeframe(daily, hourly domain.Series) domain.MultiTimeframeSignal {
	type tfResult struct {
		tf  string
		sig domain.TechnicalSignal
	}
	var results []tfResult

	if len(daily) >= minTechnicalBars {
		results = append(results, tfResult{"1D", TechnicalSignal(daily)})
		if weekly := ResampleWeekly(daily); len(weekly) >= 15 {
			results = append(results, tfResult{"1W", TechnicalSignal(weekly)})
		}
	}
	if len(hourly) >= 26 {
		results = append(results, tfResult{"1H", TechnicalSignal(hourly)})
		if fourH := ResampleHours(hourly, 4); len(fourH) >= 20 {
			results = append(results, tfResult{"4H", TechnicalSignal(fourH)})
		}
	}

	if len(results) == 0 {
		return domain.MultiTimeframeSignal{Alignment: 0.5}
	}

	weightedScore, totalWeight, confSum := 0.0, 0.0, 0.0
	var directions []int
	for _, r := range results {
		w := timeframeWeights[r.tf]
		weightedScore += w * r.sig.Score
		totalWeight += w
		confSum += r.sig.Confidence
		switch {
		case r.sig.Score > 0.05:
			directions = append(directions, 1)
		case r.sig.Score < -0.05:
			directions = append(directions, -1)
		default:
			directions = append(directions, 0)
		}
	}
	composite := 0.0
	if totalWeight > 0 {
		composite = weightedScore / totalWeight
	}

	// Alignment: share of all frames agreeing with the dominant direction.
	// All-neutral means no conviction either way.
	pos, neg := 0, 0
	for _, d := range directions {
		if d > 0 {
			pos++
		} else if d < 0 {
			neg++
		}
	}
	alignment := 0.5
	if pos+neg > 0 {
		dominant := pos
		if neg > pos {
			dominant = neg
		}
		alignment = float64(dominant) / float64(len(directions))
	}

	avgConf := confSum / float64(len(results))
	confidence := formulas.Clamp(avgConf*(0.5+0.5*alignment), 0, 1)

	return domain.MultiTimeframeSignal{
		Score:      formulas.Clamp(composite, -1, 1),
		Confidence: confidence,
		Alignment:  alignment,
	}
}

// ResampleWeekly aggregates daily bars into ISO-week OHLCV bars.
func ResampleWeekly(daily domain.Series) domain.Series {
	return resample(daily, func(t time.Time) int64 {
		year, week := t.ISOWeek()
		return int64(year)*100 + int64(week)
	})
}

// ResampleHours aggregates hourly bars into n-hour OHLCV bars.
func ResampleHours(hourly domain.Series, n int) domain.Series {
	bucket := time.Duration(n) * time.Hour
	return resample(hourly, func(t time.Time) int64 {
		return t.Truncate(bucket).Unix()
	})
}

// resample groups consecutive candles by bucket key, keeping first open,
// max high, min low, last close and summed volume. Input must be in
// time order; buckets are emitted in encounter order.
func resample(series domain.Series, key func(time.Time) int64) domain.Series {
	if len(series) == 0 {
		return nil
	}
	var out domain.Series
	current := series[0]
	currentKey := key(series[0].Date)
	for _, c := range series[1:] {
		k := key(c.Date)
		if k == currentKey {
			current.High = math.Max(current.High, c.High)
			current.Low = math.Min(current.Low, c.Low)
			current.Close = c.Close
			current.Volume += c.Volume
			current.Date = c.Date
			continue
		}
		out = append(out, current)
		current = c
		currentKey = k
	}
	return append(out, current)
}
