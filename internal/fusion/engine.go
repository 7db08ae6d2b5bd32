package fusion

import (
	"fmt"
	"math"

	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === FUSION ENGINE ===

// Blend fractions for the optional factors.
const (
	mtfTechnicalBlend  = 0.30 // technical' = 0.70 tech + 0.30 mtf
	analystSentBlend   = 0.30 // sentiment' = 0.70 sent + 0.30 analyst
	fearGreedSentBlend = 0.20 // sentiment' = 0.80 sent + 0.20 fg
	optionsSentBlend   = 0.08 // sentiment' = 0.92 sent + 0.08 opt
	intermarketBlend   = 0.10 // composite' = 0.90 comp + 0.10 im
	shortInterestBlend = 0.05 // composite' = 0.95 comp + 0.05 si
	sectorNudge        = 0.05
)

// Fuse combines every available factor into one signal. Purely
// functional: optional factors left nil are skipped, and nothing here
// performs I/O. The diagnostics bundle records how the decision was made.
func Fuse(in domain.FusionInput, weights domain.Weights, base domain.Thresholds) (domain.Signal, domain.FusionDiagnostics) {
	diag := domain.FusionDiagnostics{
		WeightsUsed:    weights,
		BaseThresholds: base,
		FactorScores:   map[string]float64{},
	}

	// Multi-timeframe blends into technical before weighting.
	techScore := in.Technical.Score
	if in.MultiTimeframe != nil {
		techScore = clip1((1-mtfTechnicalBlend)*techScore + mtfTechnicalBlend*in.MultiTimeframe.Score)
	}

	// Analyst, fear/greed and options refine sentiment before weighting.
	sentScore := in.Sentiment.Score
	if in.Analyst != nil && in.Analyst.TotalRatings > 0 {
		sentScore = clip1((1-analystSentBlend)*sentScore + analystSentBlend*in.Analyst.Score)
	}
	if in.FearGreed != nil {
		sentScore = clip1((1-fearGreedSentBlend)*sentScore + fearGreedSentBlend*in.FearGreed.Score)
	}
	if in.Options != nil && in.Options.Confidence > 0.3 {
		sentScore = clip1((1-optionsSentBlend)*sentScore + optionsSentBlend*in.Options.Score)
	}

	// Weighted core. An absent macro factor redistributes its weight
	// proportionally over the other three.
	w := weights
	if in.Macro == nil {
		rest := w.Technical + w.Sentiment + w.ML
		if rest > 0 {
			scale := (rest + w.Macro) / rest
			w.Technical *= scale
			w.Sentiment *= scale
			w.ML *= scale
		}
		w.Macro = 0
	}
	diag.WeightsUsed = w

	composite := w.Technical*techScore + w.Sentiment*sentScore + w.ML*in.ML.Score
	confidence := w.Technical*in.Technical.Confidence +
		w.Sentiment*in.Sentiment.Confidence +
		w.ML*in.ML.Confidence
	coreScores := []float64{techScore, sentScore, in.ML.Score}
	if in.Macro != nil {
		composite += w.Macro * in.Macro.Score
		confidence += w.Macro * in.Macro.Confidence
		coreScores = append(coreScores, in.Macro.Score)
	}
	composite = clip1(composite)

	diag.FactorScores["technical"] = techScore
	diag.FactorScores["sentiment"] = sentScore
	diag.FactorScores["ml"] = in.ML.Score
	if in.Macro != nil {
		diag.FactorScores["macro"] = in.Macro.Score
	}

	// Alignment across timeframes shifts confidence up to +/-0.15.
	if in.MultiTimeframe != nil {
		delta := (in.MultiTimeframe.Alignment - 0.5) * 0.30
		confidence += delta
		diag.Adjustments = append(diag.Adjustments, adj("mtf alignment", delta))
	}

	// Divergence penalty over the core factor directions.
	confidence -= divergencePenalty(coreScores, &diag)

	// Cross-asset regime tilts the composite and scales confidence.
	if in.Intermarket != nil {
		composite = clip1((1-intermarketBlend)*composite + intermarketBlend*in.Intermarket.Score)
		if composite > 0.1 {
			switch in.Intermarket.Regime {
			case domain.RegimeRiskOff:
				confidence *= 0.88
				diag.Adjustments = append(diag.Adjustments, "intermarket RISK_OFF conf x0.88")
			case domain.RegimeRiskOn:
				confidence *= 1.04
				diag.Adjustments = append(diag.Adjustments, "intermarket RISK_ON conf x1.04")
			}
		}
		diag.FactorScores["intermarket"] = in.Intermarket.Score
	}

	// Sector rotation gives a small tailwind or headwind.
	if in.Sector != nil {
		switch in.Sector.Status {
		case domain.SectorLeading:
			composite = clip1(composite + sectorNudge)
			diag.Adjustments = append(diag.Adjustments, "sector LEADING +0.05")
		case domain.SectorLagging:
			composite = clip1(composite - sectorNudge)
			diag.Adjustments = append(diag.Adjustments, "sector LAGGING -0.05")
		}
		diag.FactorScores["sector"] = in.Sector.Score
	}

	// Short interest blends in when it has conviction.
	if in.ShortInterest != nil && in.ShortInterest.Confidence > 0.3 &&
		math.Abs(in.ShortInterest.Score) > 0.05 {
		composite = clip1((1-shortInterestBlend)*composite + shortInterestBlend*in.ShortInterest.Score)
		if in.ShortInterest.Squeeze && composite > 0.05 {
			confidence += 0.04
			diag.Adjustments = append(diag.Adjustments, "short squeeze conf +0.04")
		}
		diag.FactorScores["short_interest"] = in.ShortInterest.Score
	}

	// Breadth scales confidence on conviction signals only.
	if in.Breadth != nil && math.Abs(composite) > 0.2 {
		switch in.Breadth.Regime {
		case domain.BreadthPoor:
			confidence *= 0.75
			diag.Adjustments = append(diag.Adjustments, "breadth POOR conf x0.75")
		case domain.BreadthWeak:
			confidence *= 0.88
			diag.Adjustments = append(diag.Adjustments, "breadth WEAK conf x0.88")
		case domain.BreadthHealthy:
			confidence *= 1.05
			diag.Adjustments = append(diag.Adjustments, "breadth HEALTHY conf x1.05")
		}
	}

	// Strong analyst agreement with the composite direction adds a bump.
	if in.Analyst != nil && in.Analyst.TotalRatings > 0 &&
		in.Analyst.Score*composite > 0 && math.Abs(in.Analyst.Score) > 0.3 {
		confidence += 0.05
		diag.Adjustments = append(diag.Adjustments, "analyst aligned conf +0.05")
	}

	// Options positioning agreeing with the composite adds a bump.
	if in.Options != nil && in.Options.Confidence > 0.3 && in.Options.Score*composite > 0 {
		confidence += 0.04
		diag.Adjustments = append(diag.Adjustments, "options aligned conf +0.04")
	}

	// Earnings proximity multiplies final confidence.
	earningsToday := false
	if in.Earnings != nil {
		earningsToday = in.Earnings.EarningsToday
		if in.Earnings.Multiplier < 1.0 {
			confidence *= in.Earnings.Multiplier
			diag.Adjustments = append(diag.Adjustments,
				fmt.Sprintf("earnings proximity conf x%.2f", in.Earnings.Multiplier))
			if earningsToday {
				diag.EarningsWarning = "Earnings today, direction forced to HOLD"
			} else {
				diag.EarningsWarning = fmt.Sprintf("Earnings in %d day(s)", in.Earnings.DaysUntil)
			}
		}
	}

	confidence = formulas.Clamp(confidence, 0, 1)

	// Regime-aware thresholds decide the direction.
	regime := RegimeContext{}
	if in.Macro != nil {
		regime.VIX = in.Macro.VIX
		regime.MacroRegime = in.Macro.Regime
	}
	if in.Breadth != nil {
		regime.BreadthRegime = in.Breadth.Regime
	}
	effective, thresholdAdjustments := AdaptiveThresholds(base, regime)
	diag.EffectiveThresholds = effective
	diag.Adjustments = append(diag.Adjustments, thresholdAdjustments...)

	direction := domain.DirectionHold
	switch {
	case earningsToday:
		direction = domain.DirectionHold
	case composite > effective.Buy && confidence >= effective.BuyConfidence:
		direction = domain.DirectionBuy
	case composite < effective.Sell && confidence >= effective.SellConfidence:
		direction = domain.DirectionSell
	}

	diag.RiskLevel = riskLevel(composite, confidence)

	sig := domain.Signal{
		Symbol:     in.Symbol,
		Kind:       in.Kind,
		Direction:  direction,
		Strength:   composite,
		Confidence: confidence,
	}
	sig.TechnicalScore = ptr(techScore)
	sig.SentimentScore = ptr(sentScore)
	sig.MLScore = ptr(in.ML.Score)
	if in.Macro != nil {
		sig.MacroScore = ptr(in.Macro.Score)
		sig.MacroRegime = string(in.Macro.Regime)
	}
	return sig, diag
}

// divergencePenalty subtracts 0.30 when factors point in opposite
// directions and 0.15 when they merely spread widely.
func divergencePenalty(scores []float64, diag *domain.FusionDiagnostics) float64 {
	hasPos, hasNeg := false, false
	for _, s := range scores {
		if s > 0.05 {
			hasPos = true
		} else if s < -0.05 {
			hasNeg = true
		}
	}
	if hasPos && hasNeg {
		diag.Adjustments = append(diag.Adjustments, "factor divergence conf -0.30")
		return 0.30
	}
	if formulas.StdDev(scores) > 0.30 {
		diag.Adjustments = append(diag.Adjustments, "factor spread conf -0.15")
		return 0.15
	}
	return 0
}

func riskLevel(composite, confidence float64) domain.RiskLevel {
	abs := math.Abs(composite)
	switch {
	case abs > 0.5 && confidence > 0.7:
		return domain.RiskLow
	case abs > 0.3 && confidence > 0.5:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

func clip1(x float64) float64 {
	return formulas.Clamp(x, -1, 1)
}

func adj(label string, v float64) string {
	return fmt.Sprintf("%s %+.3f", label, v)
}

func ptr(v float64) *float64 {
	return &v
}
