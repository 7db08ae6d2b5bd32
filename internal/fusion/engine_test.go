package fusion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixtrade/helix/internal/domain"
)

var (
	testWeights = domain.Weights{Technical: 0.315, Sentiment: 0.225, ML: 0.36, Macro: 0.10}
	testBase    = domain.Thresholds{Buy: 0.30, BuyConfidence: 0.65, Sell: -0.20, SellConfidence: 0.50}
)

func bullishInput() domain.FusionInput {
	return domain.FusionInput{
		Symbol:    "AAPL",
		Kind:      domain.KindScheduled,
		Technical: domain.TechnicalSignal{Score: 0.8, Confidence: 0.9},
		Sentiment: domain.SentimentSignal{Score: 0.6, Confidence: 0.8},
		ML:        domain.MLSignal{Score: 0.7, Confidence: 0.8},
	}
}

func hasAdjustment(adjustments []string, substr string) bool {
	for _, a := range adjustments {
		if strings.Contains(a, substr) {
			return true
		}
	}
	return false
}

func TestFuseBullishNoMacroRedistributesWeight(t *testing.T) {
	sig, diag := Fuse(bullishInput(), testWeights, testBase)

	// Macro's 0.10 spreads over the other three: 0.35 / 0.25 / 0.40.
	assert.InDelta(t, 0.35, diag.WeightsUsed.Technical, 1e-9)
	assert.InDelta(t, 0.25, diag.WeightsUsed.Sentiment, 1e-9)
	assert.InDelta(t, 0.40, diag.WeightsUsed.ML, 1e-9)
	assert.Zero(t, diag.WeightsUsed.Macro)

	assert.InDelta(t, 0.71, sig.Strength, 1e-9)
	assert.InDelta(t, 0.835, sig.Confidence, 1e-9)
	assert.Equal(t, domain.DirectionBuy, sig.Direction)
	assert.Equal(t, domain.RiskLow, diag.RiskLevel)

	require.NotNil(t, sig.TechnicalScore)
	assert.InDelta(t, 0.8, *sig.TechnicalScore, 1e-9)
	assert.Nil(t, sig.MacroScore)
}

func TestFuseMacroIncluded(t *testing.T) {
	in := bullishInput()
	in.Macro = &domain.MacroSignal{Score: -0.2, Confidence: 0.5, Regime: domain.RegimeNeutral}

	sig, diag := Fuse(in, testWeights, testBase)

	assert.Equal(t, testWeights, diag.WeightsUsed)
	want := 0.315*0.8 + 0.225*0.6 + 0.36*0.7 + 0.10*(-0.2)
	assert.InDelta(t, want, sig.Strength, 1e-9)
	require.NotNil(t, sig.MacroScore)
	assert.Equal(t, string(domain.RegimeNeutral), sig.MacroRegime)
}

func TestFuseDivergencePenalty(t *testing.T) {
	in := bullishInput()
	in.Sentiment = domain.SentimentSignal{Score: -0.5, Confidence: 0.8}
	in.ML = domain.MLSignal{Score: 0.3, Confidence: 0.8}

	sig, diag := Fuse(in, testWeights, testBase)

	assert.True(t, hasAdjustment(diag.Adjustments, "factor divergence"))
	// composite 0.275 below the buy threshold after the sentiment flip
	assert.InDelta(t, 0.275, sig.Strength, 1e-9)
	assert.InDelta(t, 0.535, sig.Confidence, 1e-9)
	assert.Equal(t, domain.DirectionHold, sig.Direction)
}

func TestFuseMultiTimeframeBlendAndAlignment(t *testing.T) {
	in := domain.FusionInput{
		Symbol:         "AAPL",
		Technical:      domain.TechnicalSignal{Score: 0.6, Confidence: 0.8},
		Sentiment:      domain.SentimentSignal{Score: 0.6, Confidence: 0.8},
		ML:             domain.MLSignal{Score: 0.6, Confidence: 0.8},
		MultiTimeframe: &domain.MultiTimeframeSignal{Score: 0.6, Confidence: 0.8, Alignment: 1.0},
	}
	weights := domain.Weights{Technical: 0.25, Sentiment: 0.25, ML: 0.25, Macro: 0.25}

	sig, diag := Fuse(in, weights, testBase)

	// All factors agree at 0.6 and a fully aligned stack adds +0.15.
	assert.InDelta(t, 0.6, sig.Strength, 1e-9)
	assert.InDelta(t, 0.95, sig.Confidence, 1e-9)
	assert.True(t, hasAdjustment(diag.Adjustments, "mtf alignment"))
	assert.Equal(t, domain.DirectionBuy, sig.Direction)
}

func TestFuseEarningsTodayForcesHold(t *testing.T) {
	in := bullishInput()
	in.Earnings = &domain.EarningsFilter{Multiplier: 0.30, DaysUntil: 0, EarningsToday: true}

	sig, diag := Fuse(in, testWeights, testBase)

	assert.Equal(t, domain.DirectionHold, sig.Direction)
	assert.InDelta(t, 0.835*0.30, sig.Confidence, 1e-9)
	assert.Contains(t, diag.EarningsWarning, "HOLD")
}

func TestFuseSectorNudge(t *testing.T) {
	base, _ := Fuse(bullishInput(), testWeights, testBase)

	in := bullishInput()
	in.Sector = &domain.SectorSignal{Score: 0.6, Status: domain.SectorLeading, Sector: "Technology"}
	leading, diag := Fuse(in, testWeights, testBase)
	assert.InDelta(t, base.Strength+0.05, leading.Strength, 1e-9)
	assert.True(t, hasAdjustment(diag.Adjustments, "sector LEADING"))

	in.Sector.Status = domain.SectorLagging
	lagging, _ := Fuse(in, testWeights, testBase)
	assert.InDelta(t, base.Strength-0.05, lagging.Strength, 1e-9)
}

func TestFuseBreadthScalesConfidence(t *testing.T) {
	in := bullishInput()
	in.Breadth = &domain.BreadthSignal{Score: -0.8, Confidence: 0.9, Regime: domain.BreadthPoor}

	sig, diag := Fuse(in, testWeights, testBase)

	assert.InDelta(t, 0.835*0.75, sig.Confidence, 1e-9)
	assert.True(t, hasAdjustment(diag.Adjustments, "breadth POOR"))
	// Poor breadth also raises the buy bar via adaptive thresholds.
	assert.InDelta(t, 0.36, diag.EffectiveThresholds.Buy, 1e-9)
}

func TestFuseShortSqueezeBump(t *testing.T) {
	base, _ := Fuse(bullishInput(), testWeights, testBase)

	in := bullishInput()
	in.ShortInterest = &domain.ShortInterestSignal{
		Score: 0.36, Confidence: 0.70, Squeeze: true, ShortFloat: 0.25,
	}
	sig, diag := Fuse(in, testWeights, testBase)

	wantComposite := 0.95*base.Strength + 0.05*0.36
	assert.InDelta(t, wantComposite, sig.Strength, 1e-9)
	assert.InDelta(t, base.Confidence+0.04, sig.Confidence, 1e-9)
	assert.True(t, hasAdjustment(diag.Adjustments, "short squeeze"))
}

func TestFuseBearishSell(t *testing.T) {
	in := domain.FusionInput{
		Symbol:    "AAPL",
		Technical: domain.TechnicalSignal{Score: -0.7, Confidence: 0.8},
		Sentiment: domain.SentimentSignal{Score: -0.5, Confidence: 0.7},
		ML:        domain.MLSignal{Score: -0.6, Confidence: 0.8},
	}
	sig, diag := Fuse(in, testWeights, testBase)

	assert.Less(t, sig.Strength, testBase.Sell)
	assert.Equal(t, domain.DirectionSell, sig.Direction)
	assert.NotEqual(t, domain.RiskHigh, diag.RiskLevel)
}
