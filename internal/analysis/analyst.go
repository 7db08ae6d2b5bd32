package analysis

import (
	"github.com/helixtrade/helix/internal/clients"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === ANALYST CONSENSUS ===

// ScoreAnalyst summarises Wall Street consensus: rating counts weighted
// strong-buy to strong-sell plus a capped upgrade/downgrade momentum bonus.
func ScoreAnalyst(r clients.AnalystRatings) domain.AnalystSignal {
	total := r.StrongBuy + r.Buy + r.Hold + r.Sell + r.StrongSell
	if total == 0 {
		return domain.AnalystSignal{Label: "N/A"}
	}

	score := (float64(r.StrongBuy)*1.0 + float64(r.Buy)*0.5 +
		float64(r.Sell)*(-0.5) + float64(r.StrongSell)*(-1.0)) / float64(total)

	bonus := formulas.Clamp(float64(r.NetChanges)*0.05, -0.20, 0.20)
	score = formulas.Clamp(score+bonus, -1, 1)

	// More ratings mean a firmer consensus
	confidence := 0.40 + 0.02*float64(total)
	if confidence > 0.80 {
		confidence = 0.80
	}

	return domain.AnalystSignal{
		Score:        score,
		Confidence:   confidence,
		Label:        analystLabel(score),
		TotalRatings: total,
	}
}

func analystLabel(score float64) string {
	switch {
	case score > 0.4:
		return "Strong Buy"
	case score > 0.1:
		return "Buy"
	case score > -0.1:
		return "Hold"
	case score > -0.4:
		return "Sell"
	default:
		return "Strong Sell"
	}
}
