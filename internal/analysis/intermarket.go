package analysis

import (
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === INTERMARKET ===

// Cross-asset component weights. The composite is renormalised over
// whichever assets actually fetched.
var intermarketWeights = map[string]float64{
	"BTC":  0.30,
	"DXY":  0.25,
	"Gold": 0.20,
	"Oil":  0.10,
	"TLT":  0.15,
}

// IntermarketAssets names every tracked cross-asset gauge.
var IntermarketAssets = []string{"BTC", "DXY", "Gold", "Oil", "TLT"}

// ScoreIntermarket maps 20-day percent returns of the tracked assets to a
// risk-on/risk-off tailwind score. Missing assets shrink confidence.
func ScoreIntermarket(returns20d map[string]float64) domain.IntermarketSignal {
	if len(returns20d) == 0 {
		return domain.IntermarketSignal{Regime: domain.RegimeNeutral}
	}

	components := map[string]float64{}
	weightedSum, totalWeight := 0.0, 0.0
	for name, ret := range returns20d {
		weight, ok := intermarketWeights[name]
		if !ok {
			continue
		}
		score := scoreIntermarketAsset(name, ret)
		components[name] = score
		weightedSum += weight * score
		totalWeight += weight
	}
	composite := 0.0
	if totalWeight > 0 {
		composite = formulas.Clamp(weightedSum/totalWeight, -1, 1)
	}

	return domain.IntermarketSignal{
		Score:      composite,
		Confidence: float64(len(components)) / float64(len(IntermarketAssets)),
		Regime:     intermarketRegime(composite),
		Components: components,
	}
}

func scoreIntermarketAsset(name string, ret20 float64) float64 {
	switch name {
	case "BTC":
		// Risk appetite proxy
		switch {
		case ret20 > 10:
			return 0.30
		case ret20 > 5:
			return 0.15 + 0.03*(ret20-5)
		case ret20 > -5:
			return ret20 * 0.03
		case ret20 > -10:
			return -0.15 - 0.03*(-ret20-5)
		default:
			return -0.30
		}
	case "DXY":
		// USD strength is a headwind
		switch {
		case ret20 > 3:
			return -0.25
		case ret20 > 1:
			return -0.25 * (ret20 - 1) / 2
		case ret20 > -1:
			return 0.0
		case ret20 > -3:
			return 0.25 * (-ret20 - 1) / 2
		default:
			return 0.25
		}
	case "Gold":
		// Rising gold signals safe-haven demand
		switch {
		case ret20 > 5:
			return -0.20
		case ret20 > 2:
			return -0.20 * (ret20 - 2) / 3
		case ret20 > -2:
			return 0.0
		default:
			return 0.10
		}
	case "Oil":
		// Cost-push headwind vs relief
		switch {
		case ret20 > 10:
			return -0.10
		case ret20 > 3:
			return -0.10 * (ret20 - 3) / 7
		case ret20 > -5:
			return 0.0
		case ret20 > -10:
			return 0.15 * (-ret20 - 5) / 5
		default:
			return 0.15
		}
	case "TLT":
		// Long-bond rally reads as falling yields
		switch {
		case ret20 > 3:
			return 0.20
		case ret20 > 1:
			return 0.10 * (ret20 - 1) / 2
		case ret20 > -1:
			return 0.0
		case ret20 > -3:
			return -0.20 * (-ret20 - 1) / 2
		default:
			return -0.20
		}
	}
	return 0
}

func intermarketRegime(score float64) domain.MacroRegime {
	switch {
	case score > 0.25:
		return domain.RegimeRiskOn
	case score > -0.15:
		return domain.RegimeNeutral
	default:
		return domain.RegimeRiskOff
	}
}
