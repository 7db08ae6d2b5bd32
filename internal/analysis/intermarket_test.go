package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixtrade/helix/internal/domain"
)

func TestScoreIntermarketEmpty(t *testing.T) {
	sig := ScoreIntermarket(nil)
	assert.Zero(t, sig.Score)
	assert.Zero(t, sig.Confidence)
	assert.Equal(t, domain.RegimeNeutral, sig.Regime)
}

func TestScoreIntermarketRiskOn(t *testing.T) {
	sig := ScoreIntermarket(map[string]float64{
		"BTC": 15,  // strong risk appetite
		"DXY": -4,  // falling dollar
		"TLT": 4,   // falling yields
	})
	assert.Equal(t, domain.RegimeRiskOn, sig.Regime)
	assert.Greater(t, sig.Score, 0.25)
	assert.InDelta(t, 3.0/5.0, sig.Confidence, 1e-9)
	assert.Len(t, sig.Components, 3)
}

func TestScoreIntermarketRiskOff(t *testing.T) {
	sig := ScoreIntermarket(map[string]float64{
		"BTC": -15,
		"DXY": 4,
		"TLT": -4,
	})
	assert.Equal(t, domain.RegimeRiskOff, sig.Regime)
	assert.Less(t, sig.Score, -0.15)
}

func TestScoreIntermarketIgnoresUnknownAssets(t *testing.T) {
	sig := ScoreIntermarket(map[string]float64{"SPY": 5, "Copper": 2})
	assert.Zero(t, sig.Score)
	assert.Zero(t, sig.Confidence)
}
