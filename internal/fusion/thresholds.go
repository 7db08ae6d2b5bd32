// Package fusion combines per-symbol and global factor signals into one
// trade signal, with regime-aware thresholds and outcome-driven weights.
package fusion

import (
	"fmt"

	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === ADAPTIVE THRESHOLDS ===

// RegimeContext is the global market state the threshold function reads.
// Nil VIX skips the VIX adjustment; empty regimes skip theirs.
type RegimeContext struct {
	VIX           *float64
	MacroRegime   domain.MacroRegime
	BreadthRegime domain.BreadthRegime
}

// AdaptiveThresholds raises the bar for BUY in fearful regimes and lowers
// it slightly in calm ones. Adjustments are cumulative, then clamped to
// safe ranges. The returned list records every applied delta.
func AdaptiveThresholds(base domain.Thresholds, regime RegimeContext) (domain.Thresholds, []string) {
	out := base
	var adjustments []string

	if regime.VIX != nil && *regime.VIX > 0 {
		vix := *regime.VIX
		switch {
		case vix > 40:
			out.Buy += 0.15
			out.BuyConfidence += 0.10
			adjustments = append(adjustments, fmt.Sprintf("VIX %.0f (extreme) +0.15 thresh / +0.10 conf", vix))
		case vix > 30:
			out.Buy += 0.10
			out.BuyConfidence += 0.07
			adjustments = append(adjustments, fmt.Sprintf("VIX %.0f (high) +0.10 thresh / +0.07 conf", vix))
		case vix > 20:
			out.Buy += 0.05
			out.BuyConfidence += 0.03
			adjustments = append(adjustments, fmt.Sprintf("VIX %.0f (elevated) +0.05 thresh / +0.03 conf", vix))
		case vix < 12:
			out.Buy -= 0.05
			out.BuyConfidence -= 0.03
			adjustments = append(adjustments, fmt.Sprintf("VIX %.0f (very calm) -0.05 thresh / -0.03 conf", vix))
		}
	}

	switch regime.MacroRegime {
	case domain.RegimeRiskOff:
		out.Buy += 0.08
		out.BuyConfidence += 0.05
		adjustments = append(adjustments, "macro RISK_OFF +0.08 thresh / +0.05 conf")
	case domain.RegimeCautious:
		out.Buy += 0.04
		out.BuyConfidence += 0.02
		adjustments = append(adjustments, "macro CAUTIOUS +0.04 thresh / +0.02 conf")
	case domain.RegimeRiskOn:
		out.Buy -= 0.03
		adjustments = append(adjustments, "macro RISK_ON -0.03 thresh")
	case domain.RegimeConstructive:
		out.Buy -= 0.01
		adjustments = append(adjustments, "macro CONSTRUCTIVE -0.01 thresh")
	}

	switch regime.BreadthRegime {
	case domain.BreadthPoor:
		out.Buy += 0.06
		out.BuyConfidence += 0.04
		adjustments = append(adjustments, "breadth POOR +0.06 thresh / +0.04 conf")
	case domain.BreadthWeak:
		out.Buy += 0.03
		out.BuyConfidence += 0.02
		adjustments = append(adjustments, "breadth WEAK +0.03 thresh / +0.02 conf")
	case domain.BreadthHealthy:
		out.Buy -= 0.02
		adjustments = append(adjustments, "breadth HEALTHY -0.02 thresh")
	}

	out.Buy = formulas.Clamp(out.Buy, 0.15, 0.55)
	out.BuyConfidence = formulas.Clamp(out.BuyConfidence, 0.50, 0.85)
	out.Sell = formulas.Clamp(out.Sell, -0.50, -0.10)
	out.SellConfidence = formulas.Clamp(out.SellConfidence, 0.40, 0.75)

	return out, adjustments
}
