package backtest

import (
	"math"

	"github.com/helixtrade/helix/pkg/formulas"
)

// riskFreeRate is the annual risk-free rate used by Sharpe and Sortino.
const riskFreeRate = 0.04

// fillMetrics computes every performance metric from the finished run.
func fillMetrics(r *Result) {
	r.TotalTrades = len(r.Trades)
	if len(r.EquityCurve) < 2 || r.InitialCapital <= 0 {
		return
	}

	final := r.EquityCurve[len(r.EquityCurve)-1]
	r.TotalReturn = (final - r.InitialCapital) / r.InitialCapital
	r.AnnualReturn = annualizedReturn(r.TotalReturn, len(r.EquityCurve))

	daily := formulas.Returns(r.EquityCurve)
	r.Sharpe = sharpeRatio(daily)
	r.Sortino = sortinoRatio(daily)
	r.MaxDrawdown = MaxDrawdown(r.EquityCurve)
	if r.MaxDrawdown > 0 {
		r.Calmar = r.AnnualReturn / r.MaxDrawdown
	}
	r.VaR95 = formulas.Quantile(daily, 0.05)
	r.CVaR95 = expectedShortfall(daily, r.VaR95)

	r.WinRate, r.ProfitFactor = tradeStats(r.Trades)

	if len(r.BenchmarkCurve) == len(r.EquityCurve) && len(r.BenchmarkCurve) > 1 {
		first := r.BenchmarkCurve[0]
		if first > 0 {
			r.BenchmarkReturn = r.BenchmarkCurve[len(r.BenchmarkCurve)-1]/first - 1
		}
		r.InformationRatio = informationRatio(daily, formulas.Returns(r.BenchmarkCurve))
	}
}

// annualizedReturn converts a total return over n daily bars to a yearly
// rate.
func annualizedReturn(totalReturn float64, bars int) float64 {
	if bars < 2 || totalReturn <= -1 {
		return 0
	}
	years := float64(bars) / formulas.TradingDaysPerYear
	if years <= 0 {
		return 0
	}
	return math.Pow(1+totalReturn, 1/years) - 1
}

// sharpeRatio annualises excess daily returns over their volatility.
func sharpeRatio(daily []float64) float64 {
	std := formulas.StdDev(daily)
	if std < 1e-12 {
		return 0
	}
	excess := formulas.Mean(daily) - riskFreeRate/formulas.TradingDaysPerYear
	return excess / std * math.Sqrt(formulas.TradingDaysPerYear)
}

// sortinoRatio is Sharpe with only downside volatility in the denominator.
func sortinoRatio(daily []float64) float64 {
	var downside []float64
	for _, r := range daily {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	std := formulas.StdDev(downside)
	if std < 1e-12 {
		return 0
	}
	excess := formulas.Mean(daily) - riskFreeRate/formulas.TradingDaysPerYear
	return excess / std * math.Sqrt(formulas.TradingDaysPerYear)
}

// MaxDrawdown is the largest peak-to-trough fall of an equity curve.
func MaxDrawdown(equity []float64) float64 {
	maxDD, peak := 0.0, 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// expectedShortfall averages the returns at or below the VaR cutoff.
func expectedShortfall(daily []float64, cutoff float64) float64 {
	var tail []float64
	for _, r := range daily {
		if r <= cutoff {
			tail = append(tail, r)
		}
	}
	return formulas.Mean(tail)
}

// tradeStats derives win rate and profit factor from the closed trades.
// Entries carry no PnL and are excluded.
func tradeStats(trades []Trade) (winRate, profitFactor float64) {
	var wins, closed int
	var grossProfit, grossLoss float64
	for _, t := range trades {
		if t.Action == "BUY" {
			continue
		}
		closed++
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
	}
	if closed > 0 {
		winRate = float64(wins) / float64(closed)
	}
	switch {
	case grossLoss > 0:
		profitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		profitFactor = math.Inf(1)
	}
	return winRate, profitFactor
}

// informationRatio annualises the active return over its tracking error.
func informationRatio(strategy, benchmark []float64) float64 {
	n := len(strategy)
	if len(benchmark) < n {
		n = len(benchmark)
	}
	if n < 2 {
		return 0
	}
	active := make([]float64, n)
	for i := 0; i < n; i++ {
		active[i] = strategy[i] - benchmark[i]
	}
	std := formulas.StdDev(active)
	if std < 1e-12 {
		return 0
	}
	return formulas.Mean(active) / std * math.Sqrt(formulas.TradingDaysPerYear)
}
