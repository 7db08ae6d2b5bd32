package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaxDrawdown(t *testing.T) {
	assert.Zero(t, MaxDrawdown(nil))
	assert.Zero(t, MaxDrawdown([]float64{100, 110, 120}))
	assert.InDelta(t, 0.25, MaxDrawdown([]float64{100, 120, 90, 130}), 1e-9)
	assert.InDelta(t, 0.5, MaxDrawdown([]float64{100, 50, 75}), 1e-9)
}

func TestAnnualizedReturn(t *testing.T) {
	// One full trading year returns itself.
	assert.InDelta(t, 0.10, annualizedReturn(0.10, 252), 1e-9)
	// Half a year compounds up.
	assert.InDelta(t, math.Pow(1.10, 2)-1, annualizedReturn(0.10, 126), 1e-9)
	assert.Zero(t, annualizedReturn(0.10, 1))
	assert.Zero(t, annualizedReturn(-1.0, 252))
}

func TestSharpeZeroVolatility(t *testing.T) {
	assert.Zero(t, sharpeRatio([]float64{0.001, 0.001, 0.001}))
	assert.Zero(t, sharpeRatio(nil))
}

func TestSortinoNoDownside(t *testing.T) {
	assert.Zero(t, sortinoRatio([]float64{0.01, 0.02, 0.01}))
}

func TestTradeStats(t *testing.T) {
	now := time.Now()
	trades := []Trade{
		{Action: "BUY", Date: now},
		{Action: "SELL (SIGNAL)", PnL: 300, Date: now},
		{Action: "BUY", Date: now},
		{Action: "SELL (STOP)", PnL: -100, Date: now},
		{Action: "CLOSE", PnL: 200, Date: now},
	}
	winRate, profitFactor := tradeStats(trades)
	assert.InDelta(t, 2.0/3.0, winRate, 1e-9)
	assert.InDelta(t, 5.0, profitFactor, 1e-9)

	winRate, profitFactor = tradeStats([]Trade{
		{Action: "SELL (SIGNAL)", PnL: 100},
	})
	assert.Equal(t, 1.0, winRate)
	assert.True(t, math.IsInf(profitFactor, 1))

	winRate, profitFactor = tradeStats(nil)
	assert.Zero(t, winRate)
	assert.Zero(t, profitFactor)
}

func TestExpectedShortfall(t *testing.T) {
	daily := []float64{-0.05, -0.02, 0.01, 0.03}
	assert.InDelta(t, -0.035, expectedShortfall(daily, -0.02), 1e-9)
}

func TestFillMetricsFlatCurve(t *testing.T) {
	r := Result{InitialCapital: 100000, EquityCurve: []float64{100000, 100000, 100000}}
	fillMetrics(&r)
	assert.Zero(t, r.TotalReturn)
	assert.Zero(t, r.Sharpe)
	assert.Zero(t, r.MaxDrawdown)
}
