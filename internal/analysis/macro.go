package analysis

import (
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === MACRO ENVIRONMENT ===

// Macro sub-signal weights.
const (
	macroWeightVIX   = 0.50
	macroWeightYield = 0.30
	macroWeightDXY   = 0.20
)

// MacroInputs are the raw gauge readings. Nil means the source failed;
// each missing source reduces confidence by one third.
type MacroInputs struct {
	VIXLevel     *float64 // current VIX close
	VIXChange20d *float64 // 20-day percent change
	YieldSpread  *float64 // 10Y minus 3M, in percentage points
	DXYChange20d *float64 // 20-day percent change
}

// ScoreMacro combines VIX, yield curve and USD strength into one regime
// signal. Total failure yields a zero-confidence neutral.
func ScoreMacro(in MacroInputs) domain.MacroSignal {
	components := map[string]float64{}
	fetched := 0

	vixScore := 0.0
	if in.VIXLevel != nil {
		vixScore = scoreVIX(*in.VIXLevel, in.VIXChange20d)
		components["vix"] = vixScore
		fetched++
	}
	yieldScore := 0.0
	if in.YieldSpread != nil {
		yieldScore = scoreYieldSpread(*in.YieldSpread)
		components["yield"] = yieldScore
		fetched++
	}
	dxyScore := 0.0
	if in.DXYChange20d != nil {
		dxyScore = scoreDXYChange(*in.DXYChange20d)
		components["dxy"] = dxyScore
		fetched++
	}

	if fetched == 0 {
		return domain.MacroSignal{Regime: domain.RegimeNeutral}
	}

	composite := formulas.Clamp(
		macroWeightVIX*vixScore+macroWeightYield*yieldScore+macroWeightDXY*dxyScore,
		-1, 1,
	)
	confidence := 1.0 - float64(3-fetched)/3.0

	return domain.MacroSignal{
		Score:      composite,
		Confidence: confidence,
		Regime:     macroRegime(composite),
		VIX:        in.VIXLevel,
		Components: components,
	}
}

// scoreVIX: high VIX (fear) scores negative, complacency positive. The
// 20-day rate of change shifts the base by up to 0.2 either way.
func scoreVIX(level float64, change20d *float64) float64 {
	var base float64
	switch {
	case level > 40:
		base = -1.0
	case level > 30:
		base = -0.75 - 0.025*(level-30)
	case level > 20:
		base = -0.20 - 0.030*(level-20)
	case level > 15:
		base = -0.040 * (level - 15)
	case level > 12:
		base = 0.30 - (0.20/3)*(level-12)
	default:
		base = 0.30
	}
	rocAdj := 0.0
	if change20d != nil {
		rocAdj = formulas.Clamp(-*change20d/50.0, -0.2, 0.2)
	}
	return formulas.Clamp(base+rocAdj, -1, 1)
}

// scoreYieldSpread: inverted curve negative, steep curve positive.
func scoreYieldSpread(spread float64) float64 {
	switch {
	case spread < -0.5:
		return -0.6
	case spread < 0.0:
		return -0.30 - 0.60*(-spread/0.5)
	case spread < 0.5:
		return -0.20 + 0.40*(spread/0.5)
	case spread < 2.0:
		return 0.10 + (0.30/1.5)*(spread-0.5)
	default:
		return 0.40
	}
}

// scoreDXYChange: strong USD rise is a headwind for risk assets.
func scoreDXYChange(pct float64) float64 {
	switch {
	case pct > 5.0:
		return -0.30
	case pct > 2.0:
		return -0.10 - (0.20/3.0)*(pct-2.0)
	case pct > -2.0:
		return 0.0
	case pct > -5.0:
		return 0.10 + (0.20/3.0)*(-pct-2.0)
	default:
		return 0.30
	}
}

func macroRegime(score float64) domain.MacroRegime {
	switch {
	case score <= -0.4:
		return domain.RegimeRiskOff
	case score <= -0.1:
		return domain.RegimeCautious
	case score <= 0.1:
		return domain.RegimeNeutral
	case score <= 0.35:
		return domain.RegimeConstructive
	default:
		return domain.RegimeRiskOn
	}
}
