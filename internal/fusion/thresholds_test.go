package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixtrade/helix/internal/domain"
)

func vixPtr(v float64) *float64 { return &v }

func TestAdaptiveThresholdsVIXLadder(t *testing.T) {
	tests := []struct {
		name     string
		vix      float64
		wantBuy  float64
		wantConf float64
	}{
		{"extreme", 45, 0.45, 0.75},
		{"high", 35, 0.40, 0.72},
		{"elevated", 25, 0.35, 0.68},
		{"normal", 15, 0.30, 0.65},
		{"very calm", 11, 0.25, 0.62},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := AdaptiveThresholds(testBase, RegimeContext{VIX: vixPtr(tt.vix)})
			assert.InDelta(t, tt.wantBuy, out.Buy, 1e-9)
			assert.InDelta(t, tt.wantConf, out.BuyConfidence, 1e-9)
		})
	}
}

func TestAdaptiveThresholdsMacroRegime(t *testing.T) {
	tests := []struct {
		regime  domain.MacroRegime
		wantBuy float64
	}{
		{domain.RegimeRiskOff, 0.38},
		{domain.RegimeCautious, 0.34},
		{domain.RegimeNeutral, 0.30},
		{domain.RegimeConstructive, 0.29},
		{domain.RegimeRiskOn, 0.27},
	}
	for _, tt := range tests {
		out, _ := AdaptiveThresholds(testBase, RegimeContext{MacroRegime: tt.regime})
		assert.InDelta(t, tt.wantBuy, out.Buy, 1e-9, "regime %s", tt.regime)
	}
}

func TestAdaptiveThresholdsCumulativeAndClamped(t *testing.T) {
	// Extreme VIX, risk-off macro and poor breadth stack up but stay clamped.
	out, adjustments := AdaptiveThresholds(testBase, RegimeContext{
		VIX:           vixPtr(55),
		MacroRegime:   domain.RegimeRiskOff,
		BreadthRegime: domain.BreadthPoor,
	})
	assert.InDelta(t, 0.55, out.Buy, 1e-9) // 0.30+0.15+0.08+0.06 clamps at 0.55
	assert.InDelta(t, 0.84, out.BuyConfidence, 1e-9)
	assert.Len(t, adjustments, 3)
}

func TestAdaptiveThresholdsSellBoundsHold(t *testing.T) {
	out, _ := AdaptiveThresholds(testBase, RegimeContext{})
	assert.Equal(t, testBase.Sell, out.Sell)
	assert.Equal(t, testBase.SellConfidence, out.SellConfidence)
}

func TestAdaptiveThresholdsZeroVIXSkipped(t *testing.T) {
	out, adjustments := AdaptiveThresholds(testBase, RegimeContext{VIX: vixPtr(0)})
	assert.Equal(t, testBase, out)
	assert.Empty(t, adjustments)
}
