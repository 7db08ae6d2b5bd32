package backtest

import (
	"math/rand"

	"github.com/helixtrade/helix/pkg/formulas"
)

// === MONTE CARLO ===

// Percentiles is the {p5, p25, p50, p75, p95} spread of one metric.
type Percentiles struct {
	P5  float64 `json:"p5"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P95 float64 `json:"p95"`
}

// MonteCarloResult is the outcome distribution over all shuffles.
type MonteCarloResult struct {
	NumSimulations      int         `json:"n_simulations"`
	NumTrades           int         `json:"n_trades"`
	TotalReturn         Percentiles `json:"total_return"`
	MaxDrawdown         Percentiles `json:"max_drawdown"`
	Sharpe              Percentiles `json:"sharpe_ratio"`
	FinalValue          Percentiles `json:"final_value"`
	ProbPositive        float64     `json:"prob_positive"`
	ProbDrawdownOver20Pct float64   `json:"prob_drawdown_over_20pct"`
}

// MonteCarlo bootstrap-shuffles the observed trade PnL sequence to
// separate edge from ordering luck: the same trades in a different order
// give the distribution of equity curves the strategy could have drawn.
func MonteCarlo(tradePnLs []float64, initialCapital float64, simulations int, seed int64) MonteCarloResult {
	if len(tradePnLs) == 0 || simulations <= 0 || initialCapital <= 0 {
		return MonteCarloResult{}
	}

	rng := rand.New(rand.NewSource(seed))
	shuffled := make([]float64, len(tradePnLs))
	copy(shuffled, tradePnLs)

	totalReturns := make([]float64, simulations)
	maxDDs := make([]float64, simulations)
	sharpes := make([]float64, simulations)
	finalValues := make([]float64, simulations)

	equity := make([]float64, len(tradePnLs)+1)
	for i := 0; i < simulations; i++ {
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		equity[0] = initialCapital
		for j, pnl := range shuffled {
			equity[j+1] = equity[j] + pnl
		}

		totalReturns[i] = (equity[len(equity)-1] - initialCapital) / initialCapital
		maxDDs[i] = MaxDrawdown(equity)
		sharpes[i] = sharpeRatio(formulas.Returns(equity))
		finalValues[i] = equity[len(equity)-1]
	}

	positive, over20 := 0, 0
	for i := 0; i < simulations; i++ {
		if totalReturns[i] > 0 {
			positive++
		}
		if maxDDs[i] > 0.20 {
			over20++
		}
	}

	return MonteCarloResult{
		NumSimulations:        simulations,
		NumTrades:             len(tradePnLs),
		TotalReturn:           percentiles(totalReturns),
		MaxDrawdown:           percentiles(maxDDs),
		Sharpe:                percentiles(sharpes),
		FinalValue:            percentiles(finalValues),
		ProbPositive:          float64(positive) / float64(simulations),
		ProbDrawdownOver20Pct: float64(over20) / float64(simulations),
	}
}

// TradePnLs extracts the closed-trade PnL sequence from a run, in
// execution order.
func TradePnLs(trades []Trade) []float64 {
	var out []float64
	for _, t := range trades {
		if t.Action == "BUY" {
			continue
		}
		out = append(out, t.PnL)
	}
	return out
}

func percentiles(values []float64) Percentiles {
	return Percentiles{
		P5:  formulas.Quantile(values, 0.05),
		P25: formulas.Quantile(values, 0.25),
		P50: formulas.Quantile(values, 0.50),
		P75: formulas.Quantile(values, 0.75),
		P95: formulas.Quantile(values, 0.95),
	}
}
