package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonteCarloEmptyInputs(t *testing.T) {
	assert.Equal(t, MonteCarloResult{}, MonteCarlo(nil, 100000, 100, 1))
	assert.Equal(t, MonteCarloResult{}, MonteCarlo([]float64{100}, 100000, 0, 1))
	assert.Equal(t, MonteCarloResult{}, MonteCarlo([]float64{100}, 0, 100, 1))
}

func TestMonteCarloDeterministicSeed(t *testing.T) {
	pnls := []float64{500, -200, 300, -100, 400, 250, -150, 600}

	a := MonteCarlo(pnls, 100000, 200, 42)
	b := MonteCarlo(pnls, 100000, 200, 42)
	assert.Equal(t, a, b)

	c := MonteCarlo(pnls, 100000, 200, 7)
	assert.NotEqual(t, a.Sharpe, c.Sharpe)
}

func TestMonteCarloAllWinners(t *testing.T) {
	pnls := []float64{500, 300, 400, 250, 600}
	result := MonteCarlo(pnls, 100000, 100, 1)

	assert.Equal(t, 100, result.NumSimulations)
	assert.Equal(t, 5, result.NumTrades)
	assert.Equal(t, 1.0, result.ProbPositive)
	assert.Zero(t, result.ProbDrawdownOver20Pct)

	// Order does not change the sum: the return spread collapses to a point.
	want := 2050.0 / 100000.0
	assert.InDelta(t, want, result.TotalReturn.P5, 1e-9)
	assert.InDelta(t, want, result.TotalReturn.P95, 1e-9)
	assert.InDelta(t, 102050, result.FinalValue.P50, 1e-9)
}

func TestMonteCarloDrawdownSpread(t *testing.T) {
	pnls := []float64{8000, -6000, 7000, -5000, 9000}
	result := MonteCarlo(pnls, 20000, 500, 99)

	// Shuffling reorders the losses, so drawdown varies across runs.
	assert.GreaterOrEqual(t, result.MaxDrawdown.P95, result.MaxDrawdown.P5)
	assert.Positive(t, result.MaxDrawdown.P50)
	assert.InDelta(t, 13000.0/20000.0, result.TotalReturn.P50, 1e-9)
}

func TestTradePnLsSkipsEntries(t *testing.T) {
	trades := []Trade{
		{Action: "BUY"},
		{Action: "SELL (SIGNAL)", PnL: 120},
		{Action: "BUY"},
		{Action: "SELL (STOP)", PnL: -80},
		{Action: "CLOSE", PnL: 40},
	}
	assert.Equal(t, []float64{120, -80, 40}, TradePnLs(trades))
	assert.Nil(t, TradePnLs([]Trade{{Action: "BUY"}}))
}
