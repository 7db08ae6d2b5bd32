package analysis

import (
	"github.com/helixtrade/helix/internal/clients"
	"github.com/helixtrade/helix/internal/domain"
	"github.com/helixtrade/helix/pkg/formulas"
)

// === OPTIONS POSITIONING ===

// ScoreOptions reads contrarian sentiment from the put/call volume ratio
// plus the put-over-call IV skew. The composite stays within [-0.40, 0.40]
// and confidence scales with chain volume.
func ScoreOptions(snap clients.OptionsSnapshot) domain.OptionsSignal {
	totalVolume := snap.PutVolume + snap.CallVolume
	if totalVolume <= 0 {
		return domain.OptionsSignal{}
	}

	callVol := snap.CallVolume
	if callVol < 1 {
		callVol = 1
	}
	pcr := snap.PutVolume / callVol

	ivSkew := 0.0
	if snap.CallIV > 0 && snap.PutIV > 0 {
		ivSkew = snap.PutIV / snap.CallIV
	}

	composite := formulas.Clamp(scorePCR(pcr)+scoreIVSkew(ivSkew), -0.40, 0.40)
	confidence := 0.35 + totalVolume/500_000
	if confidence > 0.70 {
		confidence = 0.70
	}

	return domain.OptionsSignal{
		Score:        composite,
		Confidence:   confidence,
		PutCallRatio: pcr,
		IVSkew:       ivSkew,
		TotalVolume:  totalVolume,
	}
}

// scorePCR: heavy put buying is contrarian bullish, complacency bearish.
func scorePCR(pcr float64) float64 {
	switch {
	case pcr > 1.5:
		return 0.25
	case pcr > 1.2:
		return 0.12
	case pcr >= 0.8:
		return 0.0
	case pcr >= 0.6:
		return -0.10
	default:
		return -0.22
	}
}

func scoreIVSkew(skew float64) float64 {
	if skew <= 0 {
		return 0
	}
	switch {
	case skew > 1.30:
		return 0.08
	case skew > 1.15:
		return 0.04
	case skew < 0.70:
		return -0.08
	case skew < 0.85:
		return -0.04
	}
	return 0
}
