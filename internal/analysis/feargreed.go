package analysis

import "github.com/helixtrade/helix/internal/domain"

// === FEAR & GREED ===

// ScoreFearGreed maps the 0-100 index to a contrarian signal: extreme
// fear is a buy-the-fear setup, extreme greed a complacency warning.
func ScoreFearGreed(value float64) domain.FearGreedSignal {
	var score float64
	switch {
	case value <= 25:
		score = 0.40 + (25-value)/25*0.40
	case value <= 45:
		score = 0.20 + (45-value)/20*0.20
	case value <= 55:
		score = 0.0
	case value <= 75:
		score = -0.15 * (value - 55) / 20
	default:
		score = -0.15 + (value-75)/25*(-0.15)
	}
	return domain.FearGreedSignal{
		Score:      score,
		Confidence: 0.80,
		Value:      int(value),
		Label:      fearGreedLabel(value),
	}
}

func fearGreedLabel(value float64) string {
	switch {
	case value <= 25:
		return "Extreme Fear"
	case value <= 45:
		return "Fear"
	case value <= 55:
		return "Neutral"
	case value <= 75:
		return "Greed"
	default:
		return "Extreme Greed"
	}
}
