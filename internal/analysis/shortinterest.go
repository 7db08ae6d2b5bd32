package analysis

import (
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === SHORT INTEREST / SQUEEZE ===

// ScoreShortInterest combines short float with 5-day momentum. A heavily
// shorted stock that starts rising forces covering, accelerating the move;
// one that keeps falling confirms the bears.
//
// shortFloat is the shorted fraction of float (0-1); daysToCover is the
// short ratio (0 if unknown); momentum5d is the 5-day percent change.
func ScoreShortInterest(shortFloat, daysToCover, momentum5d float64) domain.ShortInterestSignal {
	if shortFloat <= 0 {
		return domain.ShortInterestSignal{}
	}

	var score float64
	squeeze := false
	switch {
	case shortFloat > 0.20:
		switch {
		case momentum5d > 3.0:
			score = 0.25 + min64(0.15, (momentum5d-3.0)*0.03)
			squeeze = true
			if daysToCover > 10 {
				// Longer cover time amplifies the squeeze
				score = min64(0.50, score+0.05)
			}
		case momentum5d > 1.0:
			score = 0.15
		case momentum5d < -3.0:
			score = -0.10
		}
	case shortFloat > 0.10:
		switch {
		case momentum5d > 2.0:
			score = 0.10
		case momentum5d < -2.0:
			score = -0.05
		default:
			score = 0.05
		}
	}

	return domain.ShortInterestSignal{
		Score:       formulas.Clamp(score, -0.50, 0.50),
		Confidence:  min64(0.70, 0.40+shortFloat*1.5),
		Squeeze:     squeeze,
		ShortFloat:  shortFloat,
		MomentumPct: momentum5d,
	}
}

// Momentum5d is the 5-day percent change of a daily series.
func Momentum5d(series domain.Series) (float64, bool) {
	closes := series.Closes()
	if len(closes) < 6 {
		return 0, false
	}
	prev := closes[len(closes)-6]
	if prev == 0 {
		return 0, false
	}
	return (closes[len(closes)-1]/prev - 1) * 100, true
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
