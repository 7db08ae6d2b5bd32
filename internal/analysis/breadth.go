package analysis

import (
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === MARKET BREADTH ===

// BreadthBasket is a diversified large-cap proxy basket spanning all
// eleven sectors; participation across it approximates market-wide breadth.
var BreadthBasket = []string{
	"AAPL", "MSFT", "NVDA", "AVGO", "ORCL",
	"JPM", "BAC", "V", "GS",
	"UNH", "JNJ", "LLY",
	"AMZN", "TSLA", "HD",
	"GOOGL", "META",
	"CAT", "BA",
	"PG", "KO",
	"XOM", "CVX",
	"NEE", "LIN",
}

// BreadthMember is one basket constituent's snapshot.
type BreadthMember struct {
	Symbol      string
	Above200MA  bool
	DailyChange float64
}

// ScoreBreadth grades market participation from the fetched basket
// members. An empty slice yields a zero-confidence neutral.
func ScoreBreadth(members []BreadthMember) domain.BreadthSignal {
	if len(members) == 0 {
		return domain.BreadthSignal{Regime: domain.BreadthNeutral}
	}

	fetched := len(members)
	above, advances, declines := 0, 0, 0
	for _, m := range members {
		if m.Above200MA {
			above++
		}
		if m.DailyChange > 0 {
			advances++
		} else if m.DailyChange < 0 {
			declines++
		}
	}
	pctAbove := float64(above) / float64(fetched)
	adRatio := float64(advances) / float64(fetched)

	// 200MA position 60%, advance/decline ratio 40%, both mapped to [-1,1]
	composite := formulas.Clamp(
		0.60*(2*pctAbove-1)+0.40*(2*adRatio-1),
		-1, 1,
	)

	return domain.BreadthSignal{
		Score:          composite,
		Confidence:     float64(fetched) / float64(len(BreadthBasket)),
		Regime:         breadthRegime(composite),
		PctAbove200:    pctAbove,
		AdvanceDecline: adRatio,
	}
}

// MemberFromSeries derives one basket member's snapshot from its daily
// series. Short histories fall back to the full-window mean for the 200MA.
func MemberFromSeries(symbol string, series domain.Series) (BreadthMember, bool) {
	closes := series.Closes()
	if len(closes) < 2 {
		return BreadthMember{}, false
	}
	latest := closes[len(closes)-1]
	prev := closes[len(closes)-2]
	window := closes
	if len(closes) >= 200 {
		window = closes[len(closes)-200:]
	}
	return BreadthMember{
		Symbol:      symbol,
		Above200MA:  latest > meanOf(window),
		DailyChange: latest - prev,
	}, true
}

func breadthRegime(score float64) domain.BreadthRegime {
	switch {
	case score > 0.30:
		return domain.BreadthHealthy
	case score > -0.20:
		return domain.BreadthNeutral
	case score > -0.50:
		return domain.BreadthWeak
	default:
		return domain.BreadthPoor
	}
}
